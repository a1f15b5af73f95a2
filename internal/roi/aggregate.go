package roi

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/btcprophets/leaderboard/internal/model"
)

type positionKey struct {
	wallet   string
	marketID string
	outcome  string
}

type positionAgg struct {
	cash      decimal.Decimal
	position  decimal.Decimal
	rateSum   decimal.Decimal // Σ position_delta × entry_rate
	buyAmount decimal.Decimal
}

// Aggregate groups trades by (wallet, market, outcome). The weighted entry
// rate is Σ(delta × rate) / Σ delta, and 0 when the net position is flat.
// Output is ordered by wallet, market and outcome, one row per triple.
func Aggregate(trades []model.NormalizedTrade) []model.PositionSummary {
	groups := make(map[positionKey]*positionAgg)
	for _, t := range trades {
		k := positionKey{wallet: t.Wallet, marketID: t.MarketID, outcome: t.Outcome}
		g, ok := groups[k]
		if !ok {
			g = &positionAgg{}
			groups[k] = g
		}
		g.cash = g.cash.Add(t.CashFlowUSD)
		g.position = g.position.Add(t.PositionDelta)
		g.rateSum = g.rateSum.Add(t.PositionDelta.Mul(t.EntryRate))
		g.buyAmount = g.buyAmount.Add(t.BuyAmountUSD)
	}

	out := make([]model.PositionSummary, 0, len(groups))
	for k, g := range groups {
		rate := decimal.Zero
		if !g.position.IsZero() {
			rate = g.rateSum.Div(g.position)
		}
		out = append(out, model.PositionSummary{
			Wallet:            k.wallet,
			MarketID:          k.marketID,
			Outcome:           k.outcome,
			TradeProfitUSD:    g.cash,
			NetPosition:       g.position,
			WeightedEntryRate: rate,
			TotalBuyUSD:       g.buyAmount,
			EntryValueUSD:     g.rateSum,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Wallet != b.Wallet {
			return a.Wallet < b.Wallet
		}
		if a.MarketID != b.MarketID {
			return a.MarketID < b.MarketID
		}
		return a.Outcome < b.Outcome
	})
	return out
}

// Settle applies each market's resolution. A position on the winning outcome
// is cashed out at net_position × weighted_entry_rate; a losing position
// settles at zero, its cost already being in the trade profit.
func Settle(summaries []model.PositionSummary, resolutions map[string]string) ([]model.ProfitRecord, []model.Rejection) {
	out := make([]model.ProfitRecord, 0, len(summaries))
	var rejected []model.Rejection
	for _, s := range summaries {
		resolution, ok := resolutions[s.MarketID]
		if !ok || resolution == "" {
			err := fmt.Errorf("%w: market %s", ErrMissingResolution, s.MarketID)
			rejected = append(rejected, model.Rejection{
				Stage:    StageSettlement,
				Reason:   reasonFor(err),
				Wallet:   s.Wallet,
				MarketID: s.MarketID,
				Detail:   err.Error(),
				Excluded: true,
			})
			continue
		}
		out = append(out, model.ProfitRecord{
			PositionSummary:     s,
			Resolution:          resolution,
			ResolutionProfitUSD: ResolutionProfit(s, resolution),
		})
	}
	return out, rejected
}

// ResolutionProfit is the settlement value of one position:
// net_position × weighted_entry_rate, which for an open position equals its
// entry value exactly. WeightedEntryRate is rounded and is for display only.
func ResolutionProfit(s model.PositionSummary, resolution string) decimal.Decimal {
	if s.Outcome != resolution || s.NetPosition.IsZero() {
		return decimal.Zero
	}
	return s.EntryValueUSD
}
