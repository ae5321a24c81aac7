// Package redis holds the ambient pieces of this service that are
// naturally request-rate/TTL shaped rather than durable: OAuth2 CSRF
// state (a few minutes, then gone whether consumed or not) and login
// rate-limit counters. Durable account state stays in Storage.
package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Client wraps a go-redis client so the rest of this package's types
// can depend on a small local type instead of the upstream library
// directly.
type Client struct {
	rdb *goredis.Client
}

// New constructs a Client. addr is host:port; db selects the Redis
// logical database.
func New(addr, password string, db int) *Client {
	return &Client{
		rdb: goredis.NewClient(&goredis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

// Ping verifies connectivity with a short bound, suitable for a
// startup health check.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
