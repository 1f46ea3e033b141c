// Package app provides the top-level lifecycle of the ledger daemon. It wires
// storage, caches, blob storage, services and notifications, then runs the
// HTTP API and background jobs until the context is cancelled.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/pmsledger/internal/config"
	"github.com/alanyoungcy/pmsledger/internal/domain"
	"github.com/alanyoungcy/pmsledger/internal/store/postgres"
)

// ErrArchiveDisabled is returned by archive commands when S3 is not configured.
var ErrArchiveDisabled = errors.New("app: archive requires s3.enabled")

// App is the root application object. It owns the configuration, logger, and a
// list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
	now     func() time.Time
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
		now:    time.Now,
	}
}

// wire builds the dependencies once and registers their cleanup.
func (a *App) wire(ctx context.Context) (*Dependencies, error) {
	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return nil, fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)
	return deps, nil
}

// Migrate applies the embedded PostgreSQL migrations and creates the wallet
// with the configured opening balance when it does not exist yet.
func (a *App) Migrate(ctx context.Context) ([]string, error) {
	if a.cfg.Storage.Driver != config.DriverPostgres {
		return nil, fmt.Errorf("app: migrate requires storage.driver = %q", config.DriverPostgres)
	}
	pg, err := postgres.New(ctx, postgresConfig(a.cfg.Postgres))
	if err != nil {
		return nil, fmt.Errorf("app: migrate: %w", err)
	}
	defer pg.Close()

	applied, err := pg.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("app: migrate: %w", err)
	}
	if err := pg.EnsureWallet(ctx, a.cfg.Wallet.InitialBalance); err != nil {
		return applied, fmt.Errorf("app: migrate: %w", err)
	}
	a.logger.InfoContext(ctx, "migrations complete", slog.Int("applied", len(applied)))
	return applied, nil
}

// Archive exports every transaction before the cutoff to object storage. A
// zero cutoff means the start of the current month.
func (a *App) Archive(ctx context.Context, before time.Time) (int64, error) {
	deps, err := a.wire(ctx)
	if err != nil {
		return 0, err
	}
	if deps.Archiver == nil {
		return 0, ErrArchiveDisabled
	}
	if before.IsZero() {
		before = monthStart(a.now())
	}
	return a.archiveOnce(ctx, deps, before)
}

// ListArchives lists the archive files already in object storage.
func (a *App) ListArchives(ctx context.Context) ([]domain.BlobInfo, error) {
	deps, err := a.wire(ctx)
	if err != nil {
		return nil, err
	}
	if deps.BlobLister == nil {
		return nil, ErrArchiveDisabled
	}
	return deps.BlobLister.List(ctx, archivePrefix)
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
