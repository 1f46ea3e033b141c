package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/subcommands"

	"github.com/alanyoungcy/pmsledger/internal/app"
	"github.com/alanyoungcy/pmsledger/internal/config"
	"github.com/alanyoungcy/pmsledger/internal/crypto"
)

// configFlag is embedded by every command that needs a configuration file.
type configFlag struct {
	path string
}

func (c *configFlag) register(f *flag.FlagSet) {
	f.StringVar(&c.path, "config", "config.toml", "path to configuration file (empty: defaults and environment only)")
}

// load reads and validates the configuration and builds the JSON logger at
// the configured level.
func (c *configFlag) load() (*config.Config, *slog.Logger, error) {
	logger := newLogger("info")
	cfg, err := config.Load(c.path)
	if err != nil {
		logger.Error("failed to load config",
			slog.String("path", c.path),
			slog.String("error", err.Error()),
		)
		return nil, nil, err
	}
	logger = newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, nil, err
	}
	return cfg, logger, nil
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: l}))
}

type serveCmd struct{ configFlag }

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the HTTP API and background jobs" }
func (*serveCmd) Usage() string {
	return `pmsd serve [-config <path>]

  Wires storage, caches and services from the configuration and serves the
  ledger API until interrupted.
`
}
func (c *serveCmd) SetFlags(f *flag.FlagSet) { c.register(f) }

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	cfg, logger, err := c.load()
	if err != nil {
		return subcommands.ExitFailure
	}
	logger.Info("portfolio ledger starting", slog.String("config", c.path))

	a := app.New(cfg, logger)
	defer a.Close()

	if err := a.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("application exited with error", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return subcommands.ExitFailure
	}
	logger.Info("portfolio ledger stopped")
	return subcommands.ExitSuccess
}

type migrateCmd struct{ configFlag }

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "apply database migrations and create the wallet" }
func (*migrateCmd) Usage() string {
	return `pmsd migrate [-config <path>]

  Applies the embedded PostgreSQL migrations and creates the wallet with the
  configured initial balance when it does not exist.
`
}
func (c *migrateCmd) SetFlags(f *flag.FlagSet) { c.register(f) }

func (c *migrateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	cfg, logger, err := c.load()
	if err != nil {
		return subcommands.ExitFailure
	}
	applied, err := app.New(cfg, logger).Migrate(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	for _, name := range applied {
		fmt.Println("applied", name)
	}
	return subcommands.ExitSuccess
}

type archiveCmd struct {
	configFlag
	before string
	list   bool
}

func (*archiveCmd) Name() string     { return "archive" }
func (*archiveCmd) Synopsis() string { return "export old transactions to object storage" }
func (*archiveCmd) Usage() string {
	return `pmsd archive [-config <path>] [-before YYYY-MM-DD] [-list]

  Writes every transaction before the cutoff (default: start of this month)
  to archive/transactions/YYYY-MM.jsonl. With -list, prints the archive
  files already stored instead.
`
}

func (c *archiveCmd) SetFlags(f *flag.FlagSet) {
	c.register(f)
	f.StringVar(&c.before, "before", "", "cutoff date (YYYY-MM-DD, UTC)")
	f.BoolVar(&c.list, "list", false, "list stored archive files")
}

func (c *archiveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	var before time.Time
	if c.before != "" {
		t, err := time.Parse(time.DateOnly, c.before)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -before: %v\n", err)
			return subcommands.ExitUsageError
		}
		before = t
	}

	cfg, logger, err := c.load()
	if err != nil {
		return subcommands.ExitFailure
	}
	a := app.New(cfg, logger)
	defer a.Close()

	if c.list {
		files, err := a.ListArchives(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PATH\tSIZE\tMODIFIED")
		for _, f := range files {
			fmt.Fprintf(w, "%s\t%d\t%s\n", f.Path, f.Size, f.LastModified.Format(time.RFC3339))
		}
		w.Flush()
		return subcommands.ExitSuccess
	}

	n, err := a.Archive(ctx, before)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("archived %d transactions\n", n)
	return subcommands.ExitSuccess
}

type hashKeyCmd struct {
	key        string
	iterations int
}

func (*hashKeyCmd) Name() string     { return "hash-key" }
func (*hashKeyCmd) Synopsis() string { return "print the hash of an API key for server.api_key_hash" }
func (*hashKeyCmd) Usage() string {
	return `pmsd hash-key -key <secret> [-iterations N]
`
}

func (c *hashKeyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.key, "key", "", "API key to hash")
	f.IntVar(&c.iterations, "iterations", crypto.DefaultIterations, "pbkdf2 iterations")
}

func (c *hashKeyCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if c.key == "" {
		fmt.Fprintln(os.Stderr, "-key is required")
		return subcommands.ExitUsageError
	}
	h, err := crypto.HashKey(c.key, c.iterations)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Println(h)
	return subcommands.ExitSuccess
}
