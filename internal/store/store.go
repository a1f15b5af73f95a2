// Package store defines the read-only ledger interface the leaderboard is
// computed from. Implementations include PostgreSQL (the production ledger),
// SQLite (offline snapshots), in-memory (for testing), and a Redis
// read-through cache for the wallet directory.
package store

import (
	"context"
	"time"

	"github.com/btcprophets/leaderboard/internal/model"
)

// Source yields raw ledger records. It never mutates anything; every call
// returns a fresh snapshot.
type Source interface {
	// MarketsCreatedOn returns the market catalogue rows created on day
	// (UTC calendar date). Implementations may narrow further but callers
	// must not rely on it.
	MarketsCreatedOn(ctx context.Context, day time.Time) ([]model.Market, error)

	// AMMTrades returns every AMM swap on the given markets.
	AMMTrades(ctx context.Context, marketIDs []string) ([]model.AMMTrade, error)

	// Fills returns taker and maker order-book rows on the given markets,
	// whatever their status.
	Fills(ctx context.Context, marketIDs []string) ([]model.Fill, error)

	// DisplayNames maps wallets to their profile display names. Wallets
	// without a name are absent from the result.
	DisplayNames(ctx context.Context, wallets []string) (map[string]string, error)

	// Ping checks that the source is reachable.
	Ping(ctx context.Context) error
}

// dayKey is the YYYY-MM-DD form of a UTC calendar date.
func dayKey(day time.Time) string {
	return day.UTC().Format("2006-01-02")
}
