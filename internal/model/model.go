// Package model defines the domain types shared across the leaderboard service.
// All monetary values and contract quantities use shopspring/decimal, never
// float64 for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Market status and outcome labels as they appear in the upstream ledger.
const (
	StatusResolved = "RESOLVED"

	OutcomeYes = "YES"
	OutcomeNo  = "NO"

	SideBuy  = "BUY"
	SideSell = "SELL"

	// OrderTypeGTC marks a resting good-till-cancel limit order. Every other
	// order type reports its USD fill amount directly.
	OrderTypeGTC = "GTC"

	// FillStatusMined is the only order-book trade status that counts as executed.
	FillStatusMined = "MINED"
)

// Fill roles: a single match yields one row per counterparty.
const (
	RoleTaker = "taker"
	RoleMaker = "maker"
)

// Market is a read-only snapshot of one prediction market.
type Market struct {
	ID          string    `json:"id" db:"id"`
	Address     string    `json:"address" db:"address"` // AMM contract address
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Status      string    `json:"status" db:"status"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	Deadline    time.Time `json:"deadline" db:"deadline"`
	// WinningIndex is nil until the upstream records an outcome.
	WinningIndex *int `json:"winning_index" db:"winning_index"`
}

// AMMTrade is one on-chain swap against the automated market maker.
type AMMTrade struct {
	Timestamp      time.Time       `json:"timestamp"`
	Wallet         string          `json:"wallet"`
	MarketID       string          `json:"market_id"`
	Side           string          `json:"side"`    // "BUY" or "SELL"
	Outcome        string          `json:"outcome"` // "YES" or "NO"
	TokenUSDRate   decimal.Decimal `json:"token_usd_rate"`
	TradeAmountUSD decimal.Decimal `json:"trade_amount_usd"`
	Contracts      decimal.Decimal `json:"contracts"` // unsigned
}

// Fill is one matched order-book event seen from one counterparty. The order,
// the market token configuration and the profile directory are already joined.
type Fill struct {
	Role      string    `json:"role"`     // "taker" or "maker"
	MatchID   string    `json:"match_id"` // shared by the taker and maker rows of one match
	CreatedAt time.Time `json:"created_at"`
	ProfileID string    `json:"profile_id"`
	Wallet    string    `json:"wallet"` // empty when the profile has no account
	MarketID  string    `json:"market_id"`

	OrderSide  string          `json:"order_side"`
	OrderType  string          `json:"order_type"`
	OrderPrice decimal.Decimal `json:"order_price"`
	OrderToken string          `json:"order_token"`

	MainToken          string `json:"main_token"`
	ComplementaryToken string `json:"complementary_token"`

	// MatchedSize and FilledAmount are raw 6-decimal fixed-point integers.
	MatchedSize  decimal.Decimal `json:"matched_size"`
	FilledAmount decimal.Decimal `json:"filled_amount"`

	Status string `json:"status"`
}

// NormalizedTrade is the shape every AMM trade and order-book fill reduces to.
type NormalizedTrade struct {
	Source        string          `json:"source"` // "amm", "taker" or "maker"
	Wallet        string          `json:"wallet"`
	MarketID      string          `json:"market_id"`
	Outcome       string          `json:"outcome"`
	BuyAmountUSD  decimal.Decimal `json:"buy_amount_usd"`
	CashFlowUSD   decimal.Decimal `json:"cash_flow_usd"`  // -spent on BUY, +received on SELL
	PositionDelta decimal.Decimal `json:"position_delta"` // +contracts on BUY, -contracts on SELL
	EntryRate     decimal.Decimal `json:"entry_rate"`
}

// PositionSummary aggregates one wallet's trades in one outcome of one market.
type PositionSummary struct {
	Wallet            string          `json:"wallet"`
	MarketID          string          `json:"market_id"`
	Outcome           string          `json:"outcome"`
	TradeProfitUSD    decimal.Decimal `json:"trade_profit_usd"`
	NetPosition       decimal.Decimal `json:"net_position"`
	WeightedEntryRate decimal.Decimal `json:"weighted_entry_rate"`
	TotalBuyUSD       decimal.Decimal `json:"total_buy_usd"`
	// EntryValueUSD is Σ(position_delta × entry_rate), the exact numerator of
	// WeightedEntryRate.
	EntryValueUSD decimal.Decimal `json:"entry_value_usd"`
}

// ProfitRecord is a PositionSummary settled against its market's resolution.
type ProfitRecord struct {
	PositionSummary
	Resolution          string          `json:"resolution"`
	ResolutionProfitUSD decimal.Decimal `json:"resolution_profit_usd"`
}

// LeaderboardEntry is one wallet's row in the daily leaderboard.
type LeaderboardEntry struct {
	WalletAddress       string          `json:"wallet_address"`
	DisplayName         *string         `json:"display_name"`
	TotalBuyVolumeUSD   decimal.Decimal `json:"total_buy_volume_usd"`
	TradeProfitUSD      decimal.Decimal `json:"trade_profit_usd"`
	ResolutionProfitUSD decimal.Decimal `json:"resolution_profit_usd"`
	TotalProfitUSD      decimal.Decimal `json:"total_profit_usd"` // trade + resolution
	ROI                 decimal.Decimal `json:"roi"`
}

// Rejection records a row the pipeline excluded because the upstream data
// could not be reconciled. Excluded is false for warnings that annotate a
// row without dropping it.
type Rejection struct {
	Stage    string `json:"stage"`
	Reason   string `json:"reason"`
	Wallet   string `json:"wallet,omitempty"`
	MarketID string `json:"market_id,omitempty"`
	Detail   string `json:"detail,omitempty"`
	Excluded bool   `json:"excluded"`
}
