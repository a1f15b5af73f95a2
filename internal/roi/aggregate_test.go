package roi

import (
	"testing"

	"github.com/btcprophets/leaderboard/internal/model"
)

func trade(wallet, marketID, outcome string, buy, cash, delta, rate float64) model.NormalizedTrade {
	return model.NormalizedTrade{
		Wallet:        wallet,
		MarketID:      marketID,
		Outcome:       outcome,
		BuyAmountUSD:  d(buy),
		CashFlowUSD:   d(cash),
		PositionDelta: d(delta),
		EntryRate:     d(rate),
	}
}

// --- Aggregation ---

func TestAggregate_GroupsByTriple(t *testing.T) {
	got := Aggregate([]model.NormalizedTrade{
		trade("0xa", "m1", model.OutcomeYes, 60, -60, 100, 0.6),
		trade("0xa", "m1", model.OutcomeYes, 40, -40, 100, 0.4),
		trade("0xa", "m1", model.OutcomeNo, 10, -10, 20, 0.5),
		trade("0xb", "m1", model.OutcomeYes, 5, -5, 10, 0.5),
	})

	if len(got) != 3 {
		t.Fatalf("expected 3 position summaries, got %d", len(got))
	}

	seen := make(map[positionKey]bool)
	for _, s := range got {
		k := positionKey{s.Wallet, s.MarketID, s.Outcome}
		if seen[k] {
			t.Errorf("duplicate summary for %+v", k)
		}
		seen[k] = true
	}

	yes := got[1] // sorted: (0xa,m1,NO), (0xa,m1,YES), (0xb,m1,YES)
	if yes.Wallet != "0xa" || yes.Outcome != model.OutcomeYes {
		t.Fatalf("unexpected ordering: %+v", got)
	}
	if !yes.TradeProfitUSD.Equal(d(-100)) {
		t.Errorf("trade profit: expected -100, got %s", yes.TradeProfitUSD)
	}
	if !yes.NetPosition.Equal(d(200)) {
		t.Errorf("net position: expected 200, got %s", yes.NetPosition)
	}
	if !yes.TotalBuyUSD.Equal(d(100)) {
		t.Errorf("total buy: expected 100, got %s", yes.TotalBuyUSD)
	}
	// (100×0.6 + 100×0.4) / 200 = 0.5
	if !yes.WeightedEntryRate.Equal(d(0.5)) {
		t.Errorf("weighted rate: expected 0.5, got %s", yes.WeightedEntryRate)
	}
}

func TestAggregate_FlatPositionHasZeroRate(t *testing.T) {
	got := Aggregate([]model.NormalizedTrade{
		trade("0xa", "m1", model.OutcomeYes, 50, -50, 100, 0.5),
		trade("0xa", "m1", model.OutcomeYes, 0, 70, -100, 0.7),
	})
	if len(got) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(got))
	}
	s := got[0]
	if !s.NetPosition.IsZero() {
		t.Errorf("expected flat position, got %s", s.NetPosition)
	}
	if !s.WeightedEntryRate.IsZero() {
		t.Errorf("flat position should have weighted rate 0, got %s", s.WeightedEntryRate)
	}
	if !s.TradeProfitUSD.Equal(d(20)) {
		t.Errorf("trade profit: expected 20, got %s", s.TradeProfitUSD)
	}
}

func TestAggregate_Empty(t *testing.T) {
	if got := Aggregate(nil); len(got) != 0 {
		t.Errorf("expected no summaries, got %d", len(got))
	}
}

// --- Settlement ---

func TestResolutionProfit_OnlyOnWinningOutcome(t *testing.T) {
	s := model.PositionSummary{
		Outcome:           model.OutcomeYes,
		NetPosition:       d(100),
		WeightedEntryRate: d(0.9),
		EntryValueUSD:     d(90),
	}
	if got := ResolutionProfit(s, model.OutcomeYes); !got.Equal(d(90)) {
		t.Errorf("winning position: expected 100 × 0.9 = 90, got %s", got)
	}
	if got := ResolutionProfit(s, model.OutcomeNo); !got.IsZero() {
		t.Errorf("losing position: expected 0, got %s", got)
	}
}

func TestSettle_MissingResolution(t *testing.T) {
	summaries := []model.PositionSummary{
		{Wallet: "0xa", MarketID: "m1", Outcome: model.OutcomeYes, NetPosition: d(10), WeightedEntryRate: d(1), EntryValueUSD: d(10)},
		{Wallet: "0xa", MarketID: "ghost", Outcome: model.OutcomeYes, NetPosition: d(10), WeightedEntryRate: d(1), EntryValueUSD: d(10)},
	}
	records, rejected := Settle(summaries, map[string]string{"m1": model.OutcomeYes})

	if len(records) != 1 || records[0].MarketID != "m1" {
		t.Fatalf("expected only m1 to settle, got %+v", records)
	}
	if !records[0].ResolutionProfitUSD.Equal(d(10)) {
		t.Errorf("resolution profit: expected 10, got %s", records[0].ResolutionProfitUSD)
	}
	if len(rejected) != 1 || rejected[0].Reason != ReasonMissingResolution || !rejected[0].Excluded {
		t.Errorf("expected missing_resolution rejection, got %+v", rejected)
	}
}

func TestResolutionProfit_FlatPositionIsZero(t *testing.T) {
	s := model.PositionSummary{
		Outcome:       model.OutcomeYes,
		NetPosition:   d(0),
		EntryValueUSD: d(12),
	}
	if got := ResolutionProfit(s, model.OutcomeYes); !got.IsZero() {
		t.Errorf("flat position should settle at 0, got %s", got)
	}
}

func TestSettle_RepeatingRateStaysExact(t *testing.T) {
	// 100 @ 0.6 + 200 @ 0.4 has a weighted rate of 0.4666..., which does not
	// terminate. Settlement must still pay exactly 60 + 80 = 140.
	summaries := Aggregate([]model.NormalizedTrade{
		trade("0xa", "m1", model.OutcomeYes, 60, -60, 100, 0.6),
		trade("0xa", "m1", model.OutcomeYes, 80, -80, 200, 0.4),
	})
	records, _ := Settle(summaries, map[string]string{"m1": model.OutcomeYes})
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if got := records[0].ResolutionProfitUSD.String(); got != "140" {
		t.Errorf("resolution profit: expected exactly 140, got %s", got)
	}

	entries, _ := Rank(records, nil)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if got := entries[0].TotalProfitUSD; !got.IsZero() || got.String() != "0" {
		t.Errorf("break-even wallet: expected total profit exactly 0, got %s", got)
	}
	if !entries[0].ROI.IsZero() {
		t.Errorf("break-even wallet: expected roi 0, got %s", entries[0].ROI)
	}
}
