package roi

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/btcprophets/leaderboard/internal/model"
)

// cashFlows applies the side rules shared by both trading mechanisms:
// a BUY spends usd and adds contracts, a SELL receives usd and removes them.
func cashFlows(side string, usd, contracts decimal.Decimal) (buy, cash, delta decimal.Decimal, err error) {
	switch side {
	case model.SideBuy:
		return usd, usd.Neg(), contracts, nil
	case model.SideSell:
		return decimal.Zero, usd, contracts.Neg(), nil
	default:
		return decimal.Zero, decimal.Zero, decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownSide, side)
	}
}

// NormalizeAMM maps one AMM swap to a NormalizedTrade. The entry rate is the
// swap's own token/USD rate.
func NormalizeAMM(t model.AMMTrade) (model.NormalizedTrade, error) {
	if t.Wallet == "" {
		return model.NormalizedTrade{}, fmt.Errorf("%w: amm trade on market %s", ErrMissingWallet, t.MarketID)
	}
	if t.Outcome != model.OutcomeYes && t.Outcome != model.OutcomeNo {
		return model.NormalizedTrade{}, fmt.Errorf("%w: amm outcome %q", ErrUnmappedOutcome, t.Outcome)
	}
	buy, cash, delta, err := cashFlows(t.Side, t.TradeAmountUSD, t.Contracts)
	if err != nil {
		return model.NormalizedTrade{}, err
	}
	return model.NormalizedTrade{
		Source:        StageAMM,
		Wallet:        t.Wallet,
		MarketID:      t.MarketID,
		Outcome:       t.Outcome,
		BuyAmountUSD:  buy,
		CashFlowUSD:   cash,
		PositionDelta: delta,
		EntryRate:     t.TokenUSDRate,
	}, nil
}

// FillOutcome derives YES or NO by comparing the traded token with the
// market's configured main and complementary tokens.
func FillOutcome(f model.Fill) (string, error) {
	switch {
	case f.OrderToken != "" && f.OrderToken == f.MainToken:
		return model.OutcomeYes, nil
	case f.OrderToken != "" && f.OrderToken == f.ComplementaryToken:
		return model.OutcomeNo, nil
	default:
		return "", fmt.Errorf("%w: token %q on market %s", ErrUnmappedOutcome, f.OrderToken, f.MarketID)
	}
}

// FillSize returns the matched size in contracts and in USD. Resting GTC
// orders are priced at the order price; every other order type reports its
// USD fill amount directly.
func FillSize(f model.Fill) (contracts, usd decimal.Decimal) {
	contracts = f.MatchedSize.Shift(fixedPointShift)
	if f.OrderType == model.OrderTypeGTC {
		return contracts, contracts.Mul(f.OrderPrice)
	}
	return contracts, f.FilledAmount.Shift(fixedPointShift)
}

// NormalizeFill maps one mined order-book fill to a NormalizedTrade. The
// entry rate is fixed at 1 because order-book amounts are already in USD.
func NormalizeFill(f model.Fill) (model.NormalizedTrade, error) {
	if f.Role != model.RoleTaker && f.Role != model.RoleMaker {
		return model.NormalizedTrade{}, fmt.Errorf("%w: %q on match %s", ErrUnknownRole, f.Role, f.MatchID)
	}
	if f.Wallet == "" {
		return model.NormalizedTrade{}, fmt.Errorf("%w: profile %q", ErrMissingWallet, f.ProfileID)
	}
	outcome, err := FillOutcome(f)
	if err != nil {
		return model.NormalizedTrade{}, err
	}
	contracts, usd := FillSize(f)
	buy, cash, delta, err := cashFlows(f.OrderSide, usd, contracts)
	if err != nil {
		return model.NormalizedTrade{}, err
	}
	return model.NormalizedTrade{
		Source:        f.Role,
		Wallet:        f.Wallet,
		MarketID:      f.MarketID,
		Outcome:       outcome,
		BuyAmountUSD:  buy,
		CashFlowUSD:   cash,
		PositionDelta: delta,
		EntryRate:     one,
	}, nil
}

// NormalizeAMMTrades normalizes every swap, excluding the ones that cannot be
// reconciled and recording why.
func NormalizeAMMTrades(trades []model.AMMTrade) ([]model.NormalizedTrade, []model.Rejection) {
	out := make([]model.NormalizedTrade, 0, len(trades))
	var rejected []model.Rejection
	for _, t := range trades {
		nt, err := NormalizeAMM(t)
		if err != nil {
			rejected = append(rejected, model.Rejection{
				Stage:    StageAMM,
				Reason:   reasonFor(err),
				Wallet:   t.Wallet,
				MarketID: t.MarketID,
				Detail:   err.Error(),
				Excluded: true,
			})
			continue
		}
		out = append(out, nt)
	}
	return out, rejected
}

// NormalizeFills splits mined fills into taker and maker streams. Fills that
// are not mined are not executed trades and are skipped without a record.
//
// A match whose taker and maker are the same wallet is kept on both sides
// and annotated as a self-trade.
func NormalizeFills(fills []model.Fill) (taker, maker []model.NormalizedTrade, rejected []model.Rejection) {
	takerWallets := make(map[string]string)
	makerWallets := make(map[string]string)

	for _, f := range fills {
		if f.Status != model.FillStatusMined {
			continue
		}
		nt, err := NormalizeFill(f)
		if err != nil {
			rejected = append(rejected, model.Rejection{
				Stage:    StageOrderBook,
				Reason:   reasonFor(err),
				Wallet:   f.Wallet,
				MarketID: f.MarketID,
				Detail:   fmt.Sprintf("%s fill %s: %v", f.Role, f.MatchID, err),
				Excluded: true,
			})
			continue
		}
		switch f.Role {
		case model.RoleMaker:
			maker = append(maker, nt)
			if f.MatchID != "" {
				makerWallets[f.MatchID] = f.Wallet
			}
		case model.RoleTaker:
			taker = append(taker, nt)
			if f.MatchID != "" {
				takerWallets[f.MatchID] = f.Wallet
			}
		}
	}

	for _, f := range fills {
		if f.Role != model.RoleTaker || f.MatchID == "" {
			continue
		}
		w, ok := takerWallets[f.MatchID]
		if !ok || makerWallets[f.MatchID] != w {
			continue
		}
		rejected = append(rejected, model.Rejection{
			Stage:    StageOrderBook,
			Reason:   ReasonSelfTrade,
			Wallet:   w,
			MarketID: f.MarketID,
			Detail:   fmt.Sprintf("match %s has the same wallet on both sides", f.MatchID),
		})
		// Report each match once.
		delete(takerWallets, f.MatchID)
	}

	return taker, maker, rejected
}

// Unify concatenates normalized streams. It is a pure union: the output
// length is the sum of the input lengths and row order is preserved.
func Unify(streams ...[]model.NormalizedTrade) []model.NormalizedTrade {
	n := 0
	for _, s := range streams {
		n += len(s)
	}
	out := make([]model.NormalizedTrade, 0, n)
	for _, s := range streams {
		out = append(out, s...)
	}
	return out
}
