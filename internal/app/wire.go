package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/alanyoungcy/pmsledger/internal/blob/s3"
	"github.com/alanyoungcy/pmsledger/internal/cache/redis"
	"github.com/alanyoungcy/pmsledger/internal/config"
	"github.com/alanyoungcy/pmsledger/internal/domain"
	"github.com/alanyoungcy/pmsledger/internal/notify"
	"github.com/alanyoungcy/pmsledger/internal/platform/marketdata"
	"github.com/alanyoungcy/pmsledger/internal/server/handler"
	"github.com/alanyoungcy/pmsledger/internal/service"
	"github.com/alanyoungcy/pmsledger/internal/store/memory"
	"github.com/alanyoungcy/pmsledger/internal/store/postgres"
)

// Dependencies bundles the concrete backends and the services built on
// them. Optional backends are nil when disabled in the configuration.
type Dependencies struct {
	// Storage
	Store domain.Store
	Audit domain.AuditStore

	// Caches and coordination (Redis)
	PriceCache  domain.PriceCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	SignalBus   domain.SignalBus

	// Blob storage
	Archiver   domain.Archiver
	BlobLister domain.BlobLister

	Market   domain.MarketData
	Notifier *notify.Notifier

	// Services
	Prices       *service.PriceService
	Wallet       *service.WalletService
	Transactions *service.TransactionService
	Positions    *service.PositionService
	Portfolio    *service.PortfolioService

	// Checks are probed by GET /api/health.
	Checks map[string]handler.Pinger
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(what string, err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, fmt.Errorf("wire: %s: %w", what, err)
	}

	deps := &Dependencies{Checks: map[string]handler.Pinger{}}

	// --- Storage ---
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		pg, err := postgres.New(ctx, postgresConfig(cfg.Postgres))
		if err != nil {
			return fail("postgres", err)
		}
		closers = append(closers, pg.Close)

		if cfg.Postgres.RunMigrations {
			applied, err := pg.RunMigrations(ctx)
			if err != nil {
				return fail("postgres migrations", err)
			}
			if len(applied) > 0 {
				logger.InfoContext(ctx, "postgres migrations applied", slog.Any("files", applied))
			}
		}
		deps.Store = pg.Store()
		deps.Audit = postgres.NewAuditStore(pg.Pool())
		deps.Checks["postgres"] = pg
	default:
		deps.Store = memory.New()
		deps.Audit = memory.NewAuditStore()
	}

	// --- Redis ---
	if cfg.Redis.Enabled {
		rc, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
			Namespace:  cfg.Redis.Namespace,
		})
		if err != nil {
			return fail("redis", err)
		}
		closers = append(closers, func() { _ = rc.Close() })

		deps.PriceCache = redis.NewPriceCache(rc, cfg.MarketData.MarkTTL.Duration)
		deps.RateLimiter = redis.NewRateLimiter(rc)
		deps.SignalBus = redis.NewSignalBus(rc, int64(cfg.Redis.StreamMaxLen))
		if cfg.Lock.Enabled {
			deps.LockManager = redis.NewLockManager(rc)
		}
		deps.Checks["redis"] = rc
	}

	// --- S3 archive ---
	if cfg.S3.Enabled {
		sc, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			Prefix:         cfg.S3.Prefix,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return fail("s3", err)
		}
		deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(sc), deps.Store.Transactions(), deps.Audit)
		deps.BlobLister = s3blob.NewReader(sc)
		deps.Checks["s3"] = sc
	}

	// --- Market data ---
	if cfg.MarketData.BaseURL != "" {
		mc := marketdata.NewClient(cfg.MarketData.BaseURL, cfg.MarketData.Timeout.Duration)
		deps.Market = mc
		deps.Checks["market_data"] = mc
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			notify.DefaultTelegramAPI,
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	wireServices(deps, cfg, logger)
	return deps, cleanup, nil
}

// wireServices builds the service layer over the backends already in deps.
func wireServices(deps *Dependencies, cfg *config.Config, logger *slog.Logger) {
	sc := service.SideChannels{Bus: deps.SignalBus, Audit: deps.Audit}
	if deps.Notifier.Enabled() {
		sc.Notifier = deps.Notifier
	}

	guard := service.NewGuard(deps.LockManager, service.GuardConfig{
		Key:  cfg.Lock.Key,
		TTL:  cfg.Lock.TTL.Duration,
		Wait: cfg.Lock.Wait.Duration,
	})

	deps.Prices = service.NewPriceService(deps.PriceCache, deps.Market, cfg.MarketData.MaxAge.Duration, logger)
	deps.Wallet = service.NewWalletService(deps.Store, guard, service.WalletConfig{
		Currency:            cfg.Wallet.Currency,
		LowBalanceThreshold: cfg.Notify.LowBalanceThreshold,
	}, sc, logger)
	deps.Transactions = service.NewTransactionService(deps.Store, guard, sc, logger)
	deps.Positions = service.NewPositionService(deps.Store, guard, deps.Wallet, deps.Transactions, deps.Prices, sc, logger)
	deps.Portfolio = service.NewPortfolioService(deps.Store.Positions(), deps.Prices, logger)
}

func postgresConfig(c config.PostgresConfig) postgres.ClientConfig {
	return postgres.ClientConfig{
		DSN:      c.DSN,
		Host:     c.Host,
		Port:     c.Port,
		Database: c.Database,
		User:     c.User,
		Password: c.Password,
		SSLMode:  c.SSLMode,
		MaxConns: c.PoolMaxConns,
		MinConns: c.PoolMinConns,
	}
}
