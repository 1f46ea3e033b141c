// Package redis implements the ledger's mark cache, distributed lock, rate
// limiter and event bus on go-redis/v9.
package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// DefaultNamespace prefixes every key and channel when none is configured.
const DefaultNamespace = "pms"

// ClientConfig holds connection parameters for the ledger's Redis server.
type ClientConfig struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	MaxRetries int
	TLSEnabled bool

	// Namespace separates ledgers that share one server.
	Namespace string
}

// keyspace builds namespaced Redis keys: keyspace("pms").key("price", "AAPL")
// is "pms:price:AAPL".
type keyspace string

func (k keyspace) key(parts ...string) string {
	return string(k) + ":" + strings.Join(parts, ":")
}

// Client is the shared connection behind the cache, lock, limiter and bus.
type Client struct {
	rdb  *redis.Client
	keys keyspace
}

// New connects to Redis and fails fast when the server does not answer.
func New(ctx context.Context, cfg ClientConfig) (*Client, error) {
	opts := &redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		PoolSize:   cfg.PoolSize,
		MaxRetries: cfg.MaxRetries,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	ns := strings.Trim(cfg.Namespace, ": ")
	if ns == "" {
		ns = DefaultNamespace
	}

	c := &Client{rdb: redis.NewClient(opts), keys: keyspace(ns)}
	if err := c.Ping(ctx); err != nil {
		_ = c.rdb.Close()
		return nil, err
	}
	return c, nil
}

// Ping reports whether the server is reachable. It backs the redis entry of
// /api/health.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping %s: %w", c.rdb.Options().Addr, err)
	}
	return nil
}

// Close releases the connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}
