package store

// snapshotDDL is a flattened copy of the ledger tables the leaderboard reads.
// Timestamps are RFC 3339 UTC text and amounts are decimal text, so nothing
// is rounded through float storage.
const snapshotDDL = `
CREATE TABLE IF NOT EXISTS markets (
	id            TEXT PRIMARY KEY,
	address       TEXT NOT NULL DEFAULT '',
	title         TEXT NOT NULL DEFAULT '',
	description   TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL DEFAULT '',
	created_at    TEXT NOT NULL,
	deadline      TEXT NOT NULL DEFAULT '',
	winning_index INTEGER
);

CREATE INDEX IF NOT EXISTS idx_markets_created ON markets(created_at);

CREATE TABLE IF NOT EXISTS amm_trades (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	block_time       TEXT NOT NULL,
	wallet           TEXT NOT NULL DEFAULT '',
	market_id        TEXT NOT NULL,
	side             TEXT NOT NULL DEFAULT '',
	outcome          TEXT NOT NULL DEFAULT '',
	token_usd_rate   TEXT NOT NULL DEFAULT '0',
	trade_amount_usd TEXT NOT NULL DEFAULT '0',
	contracts        TEXT NOT NULL DEFAULT '0'
);

CREATE INDEX IF NOT EXISTS idx_amm_trades_market ON amm_trades(market_id);

CREATE TABLE IF NOT EXISTS fills (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	role                TEXT NOT NULL,
	match_id            TEXT NOT NULL DEFAULT '',
	created_at          TEXT NOT NULL DEFAULT '',
	profile_id          TEXT NOT NULL DEFAULT '',
	wallet              TEXT NOT NULL DEFAULT '',
	market_id           TEXT NOT NULL,
	order_side          TEXT NOT NULL DEFAULT '',
	order_type          TEXT NOT NULL DEFAULT '',
	order_price         TEXT NOT NULL DEFAULT '0',
	order_token         TEXT NOT NULL DEFAULT '',
	main_token          TEXT NOT NULL DEFAULT '',
	complementary_token TEXT NOT NULL DEFAULT '',
	matched_size        TEXT NOT NULL DEFAULT '0',
	filled_amount       TEXT NOT NULL DEFAULT '0',
	status              TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_fills_market ON fills(market_id);

CREATE TABLE IF NOT EXISTS profiles (
	wallet       TEXT PRIMARY KEY,
	display_name TEXT NOT NULL
);
`
