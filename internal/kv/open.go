package kv

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Options selects and configures a backend for Open.
type Options struct {
	Backend string

	// SQLite is the shared database handle used by the sqlite backend.
	SQLite *sql.DB

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	PostgresURL string

	QuotaBytes int
}

// Open builds the configured backend wrapped with the quota check.
func Open(ctx context.Context, opts Options) (Store, error) {
	var (
		s   Store
		err error
	)
	switch opts.Backend {
	case BackendMemory:
		s = NewMemory()
	case BackendSQLite, "":
		if opts.SQLite == nil {
			return nil, fmt.Errorf("sqlite backend requires a database handle")
		}
		s, err = NewSQLite(ctx, opts.SQLite)
	case BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
		})
		if err = client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("ping redis %s: %w", opts.RedisAddr, err)
		}
		s = NewRedis(client)
	case BackendPostgres:
		s, err = NewPostgres(ctx, opts.PostgresURL)
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
	if err != nil {
		return nil, err
	}
	return WithQuota(s, opts.QuotaBytes), nil
}
