package store

import (
	"context"
	"fmt"
	"time"
)

// SnapshotStats counts the rows copied by Snapshot.
type SnapshotStats struct {
	Markets   int
	AMMTrades int
	Fills     int
	Profiles  int
}

// Snapshot copies every ledger row needed to compute day's leaderboard from
// src into dst. Markets are copied unfiltered so the snapshot can be
// recomputed under a different keyword policy.
//
// The write is one transaction that replaces the trades and fills already
// stored for the copied markets, so snapshotting the same day twice leaves
// the file as if it had been written once.
func Snapshot(ctx context.Context, src Source, dst *SQLiteStore, day time.Time) (SnapshotStats, error) {
	var stats SnapshotStats

	markets, err := src.MarketsCreatedOn(ctx, day)
	if err != nil {
		return stats, fmt.Errorf("snapshot markets: %w", err)
	}
	ids := make([]string, 0, len(markets))
	for _, m := range markets {
		ids = append(ids, m.ID)
	}

	trades, err := src.AMMTrades(ctx, ids)
	if err != nil {
		return stats, fmt.Errorf("snapshot amm trades: %w", err)
	}
	fills, err := src.Fills(ctx, ids)
	if err != nil {
		return stats, fmt.Errorf("snapshot fills: %w", err)
	}

	seen := make(map[string]bool)
	var wallets []string
	for _, t := range trades {
		if t.Wallet != "" && !seen[t.Wallet] {
			seen[t.Wallet] = true
			wallets = append(wallets, t.Wallet)
		}
	}
	for _, f := range fills {
		if f.Wallet != "" && !seen[f.Wallet] {
			seen[f.Wallet] = true
			wallets = append(wallets, f.Wallet)
		}
	}
	names, err := src.DisplayNames(ctx, wallets)
	if err != nil {
		return stats, fmt.Errorf("snapshot profiles: %w", err)
	}

	tx, err := dst.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("snapshot begin: %w", err)
	}
	defer tx.Rollback()

	for _, m := range markets {
		if err := insertMarket(ctx, tx, m); err != nil {
			return SnapshotStats{}, fmt.Errorf("snapshot market %s: %w", m.ID, err)
		}
		stats.Markets++
	}
	if err := deleteLedgerRows(ctx, tx, ids); err != nil {
		return SnapshotStats{}, fmt.Errorf("snapshot: %w", err)
	}
	for _, t := range trades {
		if err := insertAMMTrade(ctx, tx, t); err != nil {
			return SnapshotStats{}, fmt.Errorf("snapshot amm trade: %w", err)
		}
		stats.AMMTrades++
	}
	for _, f := range fills {
		if err := insertFill(ctx, tx, f); err != nil {
			return SnapshotStats{}, fmt.Errorf("snapshot fill: %w", err)
		}
		stats.Fills++
	}
	for w, name := range names {
		if err := upsertProfile(ctx, tx, w, name); err != nil {
			return SnapshotStats{}, fmt.Errorf("snapshot profile %s: %w", w, err)
		}
		stats.Profiles++
	}

	if err := tx.Commit(); err != nil {
		return SnapshotStats{}, fmt.Errorf("snapshot commit: %w", err)
	}
	return stats, nil
}
