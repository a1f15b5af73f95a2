// Package roi computes the daily ROI leaderboard by reconciling automated
// market maker swaps and order-book fills into per-wallet profit and loss.
//
// The computation is a sequence of pure stages:
//
//	FilterMarkets -> Resolve -> NormalizeAMM / NormalizeFill -> Unify
//	  -> Aggregate -> Settle -> Rank
//
// Engine wires them to a store.Source. Each stage is independently testable
// and none of them keeps state between calls.
//
// All monetary values use shopspring/decimal, never float64 for money.
package roi

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidDate is returned when the requested leaderboard date is not a
	// real YYYY-MM-DD calendar date.
	ErrInvalidDate = errors.New("roi: invalid leaderboard date")

	// ErrUnknownSide is returned for trades whose side is neither BUY nor SELL.
	ErrUnknownSide = errors.New("roi: unknown trade side")

	// ErrUnknownRole is returned for order-book fills that are neither the
	// taker nor the maker side of a match.
	ErrUnknownRole = errors.New("roi: unknown fill role")

	// ErrUnmappedOutcome is returned when a trade cannot be mapped to YES or NO.
	ErrUnmappedOutcome = errors.New("roi: outcome could not be mapped")

	// ErrMissingWallet is returned for trades with no wallet, such as fills
	// whose profile has no account.
	ErrMissingWallet = errors.New("roi: trade has no wallet")

	// ErrMissingResolution is returned when a position's market has no
	// resolution label.
	ErrMissingResolution = errors.New("roi: market has no resolution")

	// ErrZeroVolume is returned for wallets with no buy volume, whose ROI is
	// undefined.
	ErrZeroVolume = errors.New("roi: wallet has zero buy volume")
)

var (
	// fixedPointShift converts the order book's raw 6-decimal integers.
	fixedPointShift int32 = -6

	// ROIScale is the number of decimal places kept on published ROI values.
	ROIScale int32 = 8

	one = decimal.NewFromInt(1)
)

// Stage names used in rejection records and metrics labels.
const (
	StageAMM        = "amm"
	StageOrderBook  = "orderbook"
	StageSettlement = "settlement"
	StageRanking    = "ranking"
)

// Rejection reasons.
const (
	ReasonUnknownSide       = "unknown_side"
	ReasonUnknownRole       = "unknown_role"
	ReasonUnmappedOutcome   = "unmapped_outcome"
	ReasonMissingWallet     = "missing_wallet"
	ReasonMissingResolution = "missing_resolution"
	ReasonZeroVolume        = "zero_volume"
	ReasonSelfTrade         = "self_trade"
)

// reasonFor maps a sentinel error to its rejection reason label.
func reasonFor(err error) string {
	switch {
	case errors.Is(err, ErrUnknownSide):
		return ReasonUnknownSide
	case errors.Is(err, ErrUnknownRole):
		return ReasonUnknownRole
	case errors.Is(err, ErrUnmappedOutcome):
		return ReasonUnmappedOutcome
	case errors.Is(err, ErrMissingWallet):
		return ReasonMissingWallet
	case errors.Is(err, ErrMissingResolution):
		return ReasonMissingResolution
	case errors.Is(err, ErrZeroVolume):
		return ReasonZeroVolume
	default:
		return "unknown"
	}
}
