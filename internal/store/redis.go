package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/btcprophets/leaderboard/internal/model"
)

// CachedDirectory wraps a primary Source with a Redis read-through cache for
// the wallet display-name directory. Ledger reads always go to the primary,
// so leaderboard figures are recomputed from fresh data on every call.
type CachedDirectory struct {
	primary Source
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedDirectory creates a cached wrapper around a primary source.
func NewCachedDirectory(primary Source, rdb *redis.Client, ttl time.Duration) *CachedDirectory {
	return &CachedDirectory{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Read-through (check cache first) ---

func (s *CachedDirectory) DisplayNames(ctx context.Context, wallets []string) (map[string]string, error) {
	names := make(map[string]string, len(wallets))
	if len(wallets) == 0 {
		return names, nil
	}

	keys := make([]string, len(wallets))
	for i, w := range wallets {
		keys[i] = displayNameKey(w)
	}

	// A cache failure degrades to a full primary read.
	missing := wallets
	if vals, err := s.rdb.MGet(ctx, keys...).Result(); err == nil {
		missing = nil
		for i, v := range vals {
			name, ok := v.(string)
			if !ok {
				missing = append(missing, wallets[i])
				continue
			}
			if name != noDisplayName {
				names[wallets[i]] = name
			}
		}
	} else {
		slog.Warn("display name cache read failed", "err", err)
	}

	if len(missing) == 0 {
		return names, nil
	}

	// Cache miss.
	fetched, err := s.primary.DisplayNames(ctx, missing)
	if err != nil {
		return nil, err
	}

	// Wallets without a profile name are cached too, as noDisplayName.
	pipe := s.rdb.Pipeline()
	for _, w := range missing {
		name, ok := fetched[w]
		if ok {
			names[w] = name
		} else {
			name = noDisplayName
		}
		pipe.Set(ctx, displayNameKey(w), name, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Warn("display name cache write failed", "err", err)
	}
	return names, nil
}

// --- Passthrough (not cached) ---

func (s *CachedDirectory) MarketsCreatedOn(ctx context.Context, day time.Time) ([]model.Market, error) {
	return s.primary.MarketsCreatedOn(ctx, day)
}

func (s *CachedDirectory) AMMTrades(ctx context.Context, marketIDs []string) ([]model.AMMTrade, error) {
	return s.primary.AMMTrades(ctx, marketIDs)
}

func (s *CachedDirectory) Fills(ctx context.Context, marketIDs []string) ([]model.Fill, error) {
	return s.primary.Fills(ctx, marketIDs)
}

func (s *CachedDirectory) Ping(ctx context.Context) error {
	return s.primary.Ping(ctx)
}

// --- Cache helpers ---

// noDisplayName marks a wallet known to have no display name. Sources never
// return empty names.
const noDisplayName = ""

func displayNameKey(wallet string) string { return fmt.Sprintf("profile:display_name:%s", wallet) }
