package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/btcprophets/leaderboard/internal/model"
)

// PostgresStore implements Source against the production ledger database.
// Monetary columns are read as NUMERIC text for exact decimal precision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed source on an existing pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// OpenPostgres creates a pool for databaseURL with a server-side statement
// timeout and checks connectivity. The caller owns the pool and must Close it.
func OpenPostgres(ctx context.Context, databaseURL string, statementTimeout time.Duration) (*pgxpool.Pool, error) {
	cfg, err := postgresConfig(databaseURL, statementTimeout)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return pool, nil
}

// postgresConfig pins every session to UTC so created_at::date agrees with
// the UTC calendar dates the market filter compares.
func postgresConfig(databaseURL string, statementTimeout time.Duration) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second
	cfg.ConnConfig.RuntimeParams["timezone"] = "UTC"
	if statementTimeout > 0 {
		cfg.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(statementTimeout.Milliseconds(), 10)
	}
	return cfg, nil
}

func (s *PostgresStore) MarketsCreatedOn(ctx context.Context, day time.Time) ([]model.Market, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id::TEXT, COALESCE(address, ''), COALESCE(title, ''), COALESCE(description, ''),
		        COALESCE(status, ''), created_at, deadline, winning_index
		 FROM public.markets
		 WHERE created_at::date = $1::date`, dayKey(day))
	if err != nil {
		return nil, fmt.Errorf("query markets for %s: %w", dayKey(day), err)
	}
	defer rows.Close()

	var markets []model.Market
	for rows.Next() {
		var m model.Market
		var deadline *time.Time
		var winning *int32
		if err := rows.Scan(&m.ID, &m.Address, &m.Title, &m.Description,
			&m.Status, &m.CreatedAt, &deadline, &winning); err != nil {
			return nil, err
		}
		if deadline != nil {
			m.Deadline = *deadline
		}
		if winning != nil {
			idx := int(*winning)
			m.WinningIndex = &idx
		}
		markets = append(markets, m)
	}
	return markets, rows.Err()
}

func (s *PostgresStore) AMMTrades(ctx context.Context, marketIDs []string) ([]model.AMMTrade, error) {
	if len(marketIDs) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT t.block_timestamp, COALESCE(t.account, ''), m.id::TEXT,
		        COALESCE(t.strategy, ''), COALESCE(t.outcome, ''),
		        COALESCE(t.token_usd_rate, 0)::TEXT,
		        COALESCE(t.trade_amount_usd, 0)::TEXT,
		        COALESCE(t.contracts, 0)::TEXT
		 FROM analytic.market_trades t
		 JOIN public.markets m ON m.address = t.market_address
		 WHERE m.id::TEXT = ANY($1)`, marketIDs)
	if err != nil {
		return nil, fmt.Errorf("query amm trades: %w", err)
	}
	defer rows.Close()

	var trades []model.AMMTrade
	for rows.Next() {
		var t model.AMMTrade
		var blockTS int64
		var rateS, amountS, contractsS string
		if err := rows.Scan(&blockTS, &t.Wallet, &t.MarketID, &t.Side, &t.Outcome,
			&rateS, &amountS, &contractsS); err != nil {
			return nil, err
		}
		t.Timestamp = time.Unix(blockTS, 0).UTC()
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

// fillsQuery reads both counterparties of every match. Taker rows take their
// status from the public trade event keyed by the taker order; maker rows go
// through maker_matches to the same table.
const fillsQuery = `
SELECT 'taker', COALESCE(pt.id::TEXT, ''), t.created_at,
       COALESCE(t.id_taker_owner::TEXT, ''), COALESCE(p.account, ''),
       t.id_market::int::TEXT,
       COALESCE(o.side, ''), COALESCE(o.type, ''), COALESCE(o.price, 0)::TEXT, COALESCE(o.token, ''),
       COALESCE(c.main_token, ''), COALESCE(c.complementary_token, ''),
       COALESCE(t.matched_size, 0)::TEXT, COALESCE(t.filled_amount, 0)::TEXT,
       COALESCE(pt.status, '')
FROM ome.trade_events t
LEFT JOIN public.trade_events pt ON t.id_taker_order = pt.taker_order_id
LEFT JOIN ome.orders o ON o.id = t.id_taker_order
LEFT JOIN ome.market_configs c ON o.id_market = c.id_market
LEFT JOIN public.profiles p ON p.id = t.id_taker_owner
WHERE t.id_market::int::TEXT = ANY($1)
UNION ALL
SELECT 'maker', COALESCE(te.id::TEXT, ''), te.created_at,
       COALESCE(t.id_maker_owner::TEXT, ''), COALESCE(p.account, ''),
       o.id_market::int::TEXT,
       COALESCE(o.side, ''), COALESCE(o.type, ''), COALESCE(o.price, 0)::TEXT, COALESCE(o.token, ''),
       COALESCE(c.main_token, ''), COALESCE(c.complementary_token, ''),
       COALESCE(t.matched_size, 0)::TEXT, COALESCE(t.filled_amount, 0)::TEXT,
       COALESCE(te.status, '')
FROM ome.trade_events_maker t
LEFT JOIN public.maker_matches mm ON t.id_maker_order = mm.order_id
LEFT JOIN public.trade_events te ON te.id = mm.trade_event_id
LEFT JOIN ome.orders o ON o.id = t.id_maker_order
LEFT JOIN ome.market_configs c ON o.id_market = c.id_market
LEFT JOIN public.profiles p ON p.id = t.id_maker_owner
WHERE o.id_market::int::TEXT = ANY($1)`

func (s *PostgresStore) Fills(ctx context.Context, marketIDs []string) ([]model.Fill, error) {
	if len(marketIDs) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, fillsQuery, marketIDs)
	if err != nil {
		return nil, fmt.Errorf("query order-book fills: %w", err)
	}
	defer rows.Close()

	var fills []model.Fill
	for rows.Next() {
		var f model.Fill
		var createdAt *time.Time
		var priceS, matchedS, filledS string
		if err := rows.Scan(&f.Role, &f.MatchID, &createdAt,
			&f.ProfileID, &f.Wallet, &f.MarketID,
			&f.OrderSide, &f.OrderType, &priceS, &f.OrderToken,
			&f.MainToken, &f.ComplementaryToken,
			&matchedS, &filledS, &f.Status); err != nil {
			return nil, err
		}
		if createdAt != nil {
			f.CreatedAt = *createdAt
		}
		if f.OrderPrice, err = parseDecimal("price", priceS); err != nil {
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

func (s *PostgresStore) DisplayNames(ctx context.Context, wallets []string) (map[string]string, error) {
	names := make(map[string]string)
	if len(wallets) == 0 {
		return names, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT account, display_name
		 FROM public.profiles
		 WHERE account = ANY($1) AND COALESCE(display_name, '') <> ''`, wallets)
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

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func parseDecimal(field, raw string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse %s %q: %w", field, raw, err)
	}
	return v, nil
}
