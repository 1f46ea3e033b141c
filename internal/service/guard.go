package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alanyoungcy/pmsledger/internal/domain"
)

// GuardConfig configures the optional distributed half of a Guard.
type GuardConfig struct {
	Key   string        // lock key shared by every instance
	TTL   time.Duration // lease on the distributed lock
	Wait  time.Duration // how long to keep retrying a held lock
	Retry time.Duration // pause between attempts
}

// Guard serialises every mutation of the wallet, the positions and the
// transaction log. Inside one process it is a mutex; when a LockManager is
// configured it also holds a distributed lock so several instances sharing
// a database cannot interleave.
type Guard struct {
	mu    sync.Mutex
	locks domain.LockManager
	cfg   GuardConfig
}

// NewGuard creates a Guard. locks may be nil for a single-process deployment.
func NewGuard(locks domain.LockManager, cfg GuardConfig) *Guard {
	if cfg.Key == "" {
		cfg.Key = "portfolio"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Second
	}
	if cfg.Retry <= 0 {
		cfg.Retry = 50 * time.Millisecond
	}
	return &Guard{locks: locks, cfg: cfg}
}

// Do runs fn while holding the guard.
func (g *Guard) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.locks != nil {
		unlock, err := g.acquire(ctx)
		if err != nil {
			return err
		}
		defer unlock()
	}
	return fn(ctx)
}

func (g *Guard) acquire(ctx context.Context) (func(), error) {
	deadline := time.Now().Add(g.cfg.Wait)
	for {
		unlock, err := g.locks.Acquire(ctx, g.cfg.Key, g.cfg.TTL)
		if err == nil {
			return unlock, nil
		}
		if !errors.Is(err, domain.ErrLockHeld) || !time.Now().Before(deadline) {
			return nil, fmt.Errorf("guard: acquire %s: %w", g.cfg.Key, err)
		}

		t := time.NewTimer(g.cfg.Retry)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, fmt.Errorf("guard: acquire %s: %w", g.cfg.Key, ctx.Err())
		case <-t.C:
		}
	}
}
