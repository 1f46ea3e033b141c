package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/pmsledger/internal/crypto"
	"github.com/alanyoungcy/pmsledger/internal/server"
	"github.com/alanyoungcy/pmsledger/internal/server/handler"
	"github.com/alanyoungcy/pmsledger/internal/server/ws"
)

// archivePrefix is where the archiver writes transaction exports.
const archivePrefix = "archive/transactions/"

// Serve wires all dependencies, makes sure the wallet exists, and runs the
// HTTP API, the WebSocket hub and the background jobs until ctx is
// cancelled.
func (a *App) Serve(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting ledger",
		slog.String("storage", a.cfg.Storage.Driver),
		slog.Bool("redis", a.cfg.Redis.Enabled),
		slog.Bool("s3", a.cfg.S3.Enabled),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, err := a.wire(ctx)
	if err != nil {
		return err
	}

	w, err := deps.Wallet.EnsureWallet(ctx, a.cfg.Wallet.InitialBalance)
	if err != nil {
		return fmt.Errorf("app: ensure wallet: %w", err)
	}
	a.logger.InfoContext(ctx, "wallet ready",
		slog.String("balance", w.Balance.StringFixed(2)),
		slog.String("currency", a.cfg.Wallet.Currency),
	)

	if deps.Notifier.Enabled() {
		if err := deps.Notifier.NotifyAll(ctx, "Ledger started",
			fmt.Sprintf("Portfolio ledger is up. Storage: %s.", a.cfg.Storage.Driver)); err != nil {
			a.logger.WarnContext(ctx, "startup notification failed", slog.String("error", err.Error()))
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		return nil
	})

	if a.cfg.Server.Enabled {
		if err := a.startHTTPServer(ctx, g, deps); err != nil {
			return err
		}
	}

	if deps.Archiver != nil && a.cfg.Archive.Enabled {
		a.every(ctx, g, "archive", a.cfg.Archive.Interval.Duration, func(ctx context.Context) error {
			_, err := a.archiveOnce(ctx, deps, monthStart(a.now()))
			return err
		})
	}

	if deps.Market != nil && a.cfg.MarketData.Interval.Duration > 0 {
		a.every(ctx, g, "mark refresh", a.cfg.MarketData.Interval.Duration, func(ctx context.Context) error {
			n, err := deps.Positions.RefreshMarks(ctx)
			if err == nil {
				a.logger.DebugContext(ctx, "marks refreshed", slog.Int("updated", n))
			}
			return err
		})
	}

	err = g.Wait()
	a.logger.Info("ledger stopped")
	return err
}

// startHTTPServer adds the HTTP server, its graceful shutdown and, when an
// event bus is wired, the WebSocket hub to g.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) error {
	cfg := server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		Limiter:     deps.RateLimiter,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}
	if a.cfg.Server.APIKeyHash != "" {
		v, err := crypto.NewVerifier(a.cfg.Server.APIKeyHash)
		if err != nil {
			return fmt.Errorf("app: server.api_key_hash: %w", err)
		}
		cfg.Verifier = v
	}

	var hub *ws.Hub
	if deps.SignalBus != nil {
		hub = ws.NewHub(deps.SignalBus, a.logger, ws.Config{
			AllowedOrigins: a.cfg.Server.CORSOrigins,
			Status: func(ctx context.Context) (any, error) {
				return deps.Wallet.GetWalletSummary(ctx)
			},
		})
		g.Go(func() error {
			if err := hub.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		})
	}

	var events *handler.EventsHandler
	if deps.SignalBus != nil {
		events = handler.NewEventsHandler(deps.SignalBus, a.logger)
	}

	startedAt := a.now()
	srv := server.NewServer(cfg, server.Handlers{
		Health: handler.NewHealthHandler(deps.Checks, a.logger),
		Status: &handler.StatusHandler{
			Storage:   a.cfg.Storage.Driver,
			Currency:  a.cfg.Wallet.Currency,
			Redis:     a.cfg.Redis.Enabled,
			Archive:   deps.Archiver != nil,
			StartedAt: startedAt,
		},
		Assets:       handler.NewAssetHandler(deps.Positions, a.logger),
		Wallet:       handler.NewWalletHandler(deps.Wallet, a.logger),
		Transactions: handler.NewTransactionHandler(deps.Transactions, a.logger),
		Portfolio:    handler.NewPortfolioHandler(deps.Portfolio, a.logger),
		Audit:        handler.NewAuditHandler(deps.Audit, a.logger),
		Events:       events,
	}, hub, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
	return nil
}

// every runs job immediately and then on each tick until ctx is done. Job
// failures are logged and do not stop the loop.
func (a *App) every(ctx context.Context, g *errgroup.Group, name string, interval time.Duration, job func(ctx context.Context) error) {
	runOnce := func() {
		if err := job(ctx); err != nil && ctx.Err() == nil {
			a.logger.ErrorContext(ctx, name+" failed", slog.String("error", err.Error()))
		}
	}
	g.Go(func() error {
		runOnce()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				runOnce()
			}
		}
	})
	a.logger.InfoContext(ctx, name+" scheduled", slog.Duration("interval", interval))
}

// archiveOnce exports the transactions before the cutoff and logs the result.
func (a *App) archiveOnce(ctx context.Context, deps *Dependencies, before time.Time) (int64, error) {
	n, err := deps.Archiver.ArchiveTransactions(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("archive: %w", err)
	}
	a.logger.InfoContext(ctx, "transactions archived",
		slog.Int64("count", n),
		slog.Time("before", before),
	)
	return n, nil
}

// monthStart truncates t to midnight UTC on the first of its month.
func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
