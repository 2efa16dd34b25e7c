package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options defines connection parameters for the document-store binding.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// NewClient opens a Redis client and verifies connectivity with a ping.
func NewClient(ctx context.Context, opts Options) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis unavailable at %s: %w", opts.Addr, err)
	}

	return client, nil
}
