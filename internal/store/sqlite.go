package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/btcprophets/leaderboard/internal/model"
)

// SQLiteStore implements Source over an offline snapshot of the ledger. It
// also exposes insert methods used to build snapshots.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) a snapshot database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot db: %w", err)
	}

	// WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if _, err := db.Exec(snapshotDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("schema migration: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Snapshot writers ---

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLiteStore) InsertMarket(ctx context.Context, m model.Market) error {
	return insertMarket(ctx, s.db, m)
}

func (s *SQLiteStore) InsertAMMTrade(ctx context.Context, t model.AMMTrade) error {
	return insertAMMTrade(ctx, s.db, t)
}

func (s *SQLiteStore) InsertFill(ctx context.Context, f model.Fill) error {
	return insertFill(ctx, s.db, f)
}

func (s *SQLiteStore) UpsertProfile(ctx context.Context, wallet, displayName string) error {
	return upsertProfile(ctx, s.db, wallet, displayName)
}

func insertMarket(ctx context.Context, db execer, m model.Market) error {
	var winning sql.NullInt64
	if m.WinningIndex != nil {
		winning = sql.NullInt64{Int64: int64(*m.WinningIndex), Valid: true}
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO markets (id, address, title, description, status, created_at, deadline, winning_index)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			deadline = excluded.deadline,
			winning_index = excluded.winning_index`,
		m.ID, m.Address, m.Title, m.Description, m.Status,
		formatTime(m.CreatedAt), formatTime(m.Deadline), winning,
	)
	return err
}

func insertAMMTrade(ctx context.Context, db execer, t model.AMMTrade) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO amm_trades (block_time, wallet, market_id, side, outcome,
			token_usd_rate, trade_amount_usd, contracts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		formatTime(t.Timestamp), t.Wallet, t.MarketID, t.Side, t.Outcome,
		t.TokenUSDRate.String(), t.TradeAmountUSD.String(), t.Contracts.String(),
	)
	return err
}

func insertFill(ctx context.Context, db execer, f model.Fill) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO fills (role, match_id, created_at, profile_id, wallet, market_id,
			order_side, order_type, order_price, order_token,
			main_token, complementary_token, matched_size, filled_amount, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.Role, f.MatchID, formatTime(f.CreatedAt), f.ProfileID, f.Wallet, f.MarketID,
		f.OrderSide, f.OrderType, f.OrderPrice.String(), f.OrderToken,
		f.MainToken, f.ComplementaryToken, f.MatchedSize.String(), f.FilledAmount.String(), f.Status,
	)
	return err
}

func upsertProfile(ctx context.Context, db execer, wallet, displayName string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO profiles (wallet, display_name) VALUES (?, ?)
		ON CONFLICT(wallet) DO UPDATE SET display_name = excluded.display_name`,
		wallet, displayName,
	)
	return err
}

// deleteLedgerRows removes every AMM trade and fill stored for marketIDs.
func deleteLedgerRows(ctx context.Context, db execer, marketIDs []string) error {
	if len(marketIDs) == 0 {
		return nil
	}
	in, args := inClause(marketIDs)
	if _, err := db.ExecContext(ctx, `DELETE FROM amm_trades WHERE market_id IN (`+in+`)`, args...); err != nil {
		return fmt.Errorf("clear amm trades: %w", err)
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM fills WHERE market_id IN (`+in+`)`, args...); err != nil {
		return fmt.Errorf("clear fills: %w", err)
	}
	return nil
}

// --- Source ---

func (s *SQLiteStore) MarketsCreatedOn(ctx context.Context, day time.Time) ([]model.Market, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, address, title, description, status, created_at, deadline, winning_index
		FROM markets
		WHERE substr(created_at, 1, 10) = ?`, dayKey(day))
	if err != nil {
		return nil, fmt.Errorf("query markets for %s: %w", dayKey(day), err)
	}
	defer rows.Close()

	var markets []model.Market
	for rows.Next() {
		var m model.Market
		var createdS, deadlineS string
		var winning sql.NullInt64
		if err := rows.Scan(&m.ID, &m.Address, &m.Title, &m.Description, &m.Status,
			&createdS, &deadlineS, &winning); err != nil {
			return nil, err
		}
		if m.CreatedAt, err = parseTime("created_at", createdS); err != nil {
			return nil, err
		}
		if m.Deadline, err = parseTime("deadline", deadlineS); err != nil {
			return nil, err
		}
		if winning.Valid {
			idx := int(winning.Int64)
			m.WinningIndex = &idx
		}
		markets = append(markets, m)
	}
	return markets, rows.Err()
}

func (s *SQLiteStore) AMMTrades(ctx context.Context, marketIDs []string) ([]model.AMMTrade, error) {
	if len(marketIDs) == 0 {
		return nil, nil
	}
	in, args := inClause(marketIDs)
	rows, err := s.db.QueryContext(ctx, `
		SELECT block_time, wallet, market_id, side, outcome,
			token_usd_rate, trade_amount_usd, contracts
		FROM amm_trades
		WHERE market_id IN (`+in+`)
		ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query amm trades: %w", err)
	}
	defer rows.Close()

	var trades []model.AMMTrade
	for rows.Next() {
		var t model.AMMTrade
		var tsS, rateS, amountS, contractsS string
		if err := rows.Scan(&tsS, &t.Wallet, &t.MarketID, &t.Side, &t.Outcome,
			&rateS, &amountS, &contractsS); err != nil {
			return nil, err
		}
		if t.Timestamp, err = parseTime("block_time", tsS); err != nil {
			return nil, err
		}
		if t.TokenUSDRate, err = parseDecimal("token_usd_rate", rateS); err != nil {
			return nil, err
		}
		if t.TradeAmountUSD, err = parseDecimal("trade_amount_usd", amountS); err != nil {
			return nil, err
		}
		if t.Contracts, err = parseDecimal("contracts", contractsS); err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

func (s *SQLiteStore) Fills(ctx context.Context, marketIDs []string) ([]model.Fill, error) {
	if len(marketIDs) == 0 {
		return nil, nil
	}
	in, args := inClause(marketIDs)
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, match_id, created_at, profile_id, wallet, market_id,
			order_side, order_type, order_price, order_token,
			main_token, complementary_token, matched_size, filled_amount, status
		FROM fills
		WHERE market_id IN (`+in+`)
		ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query order-book fills: %w", err)
	}
	defer rows.Close()

	var fills []model.Fill
	for rows.Next() {
		var f model.Fill
		var createdS, priceS, matchedS, filledS string
		if err := rows.Scan(&f.Role, &f.MatchID, &createdS, &f.ProfileID, &f.Wallet, &f.MarketID,
			&f.OrderSide, &f.OrderType, &priceS, &f.OrderToken,
			&f.MainToken, &f.ComplementaryToken, &matchedS, &filledS, &f.Status); err != nil {
			return nil, err
		}
		if f.CreatedAt, err = parseTime("created_at", createdS); err != nil {
			return nil, err
		}
		if f.OrderPrice, err = parseDecimal("order_price", priceS); err != nil {
			return nil, err
		}
		if f.MatchedSize, err = parseDecimal("matched_size", matchedS); err != nil {
			return nil, err
		}
		if f.FilledAmount, err = parseDecimal("filled_amount", filledS); err != nil {
			return nil, err
		}
		fills = append(fills, f)
	}
	return fills, rows.Err()
}

func (s *SQLiteStore) DisplayNames(ctx context.Context, wallets []string) (map[string]string, error) {
	names := make(map[string]string)
	if len(wallets) == 0 {
		return names, nil
	}
	in, args := inClause(wallets)
	rows, err := s.db.QueryContext(ctx,
		`SELECT wallet, display_name FROM profiles WHERE wallet IN (`+in+`) AND display_name <> ''`, args...)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var wallet, name string
		if err := rows.Scan(&wallet, &name); err != nil {
			return nil, err
		}
		names[wallet] = name
	}
	return names, rows.Err()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// inClause builds "?, ?, ?" and the matching argument list.
func inClause(values []string) (string, []any) {
	marks := make([]string, len(values))
	args := make([]any, len(values))
	for i, v := range values {
		marks[i] = "?"
		args[i] = v
	}
	return strings.Join(marks, ", "), args
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(field, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %s %q: %w", field, raw, err)
	}
	return t, nil
}
