package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options selects and configures the ledger source.
type Options struct {
	DatabaseURL      string
	StatementTimeout time.Duration
	SQLitePath       string // used when DatabaseURL is empty
	RedisURL         string // optional display-name cache
	CacheTTL         time.Duration
}

// Open acquires the configured source. The returned release function closes
// every handle Open created, in reverse order, and is safe to call once even
// when Open fails.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (Source, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}
	var cleanup []func()
	release := func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}

	var src Source
	switch {
	case opts.DatabaseURL != "":
		pool, err := OpenPostgres(ctx, opts.DatabaseURL, opts.StatementTimeout)
		if err != nil {
			return nil, release, err
		}
		cleanup = append(cleanup, pool.Close)
		src = NewPostgresStore(pool)
		logger.Info("connected to PostgreSQL")
	case opts.SQLitePath != "":
		snap, err := OpenSQLite(opts.SQLitePath)
		if err != nil {
			return nil, release, err
		}
		cleanup = append(cleanup, func() { snap.Close() })
		src = snap
		logger.Info("reading SQLite snapshot", "path", opts.SQLitePath)
	default:
		return nil, release, fmt.Errorf("no ledger source configured")
	}

	// Wrap with Redis display-name cache if configured.
	if opts.RedisURL != "" {
		opt, err := redis.ParseURL(opts.RedisURL)
		if err != nil {
			return nil, release, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opt)
		cleanup = append(cleanup, func() { rdb.Close() })
		src = NewCachedDirectory(src, rdb, opts.CacheTTL)
		logger.Info("Redis display-name cache enabled", "ttl", opts.CacheTTL.String())
	}

	return src, release, nil
}
