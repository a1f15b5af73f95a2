package roi

import (
	"testing"

	"github.com/btcprophets/leaderboard/internal/model"
)

func record(wallet string, trade, resolution, buy float64) model.ProfitRecord {
	return model.ProfitRecord{
		PositionSummary: model.PositionSummary{
			Wallet:         wallet,
			MarketID:       "m1",
			Outcome:        model.OutcomeYes,
			TradeProfitUSD: d(trade),
			TotalBuyUSD:    d(buy),
		},
		ResolutionProfitUSD: d(resolution),
	}
}

func TestRank_TotalsAndROI(t *testing.T) {
	entries, rejected := Rank([]model.ProfitRecord{
		record("0xa", -100, 150, 100),
		record("0xa", -50, 0, 50),
	}, nil)

	if len(rejected) != 0 {
		t.Fatalf("unexpected rejections: %+v", rejected)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if !e.TotalProfitUSD.Equal(e.TradeProfitUSD.Add(e.ResolutionProfitUSD)) {
		t.Errorf("total %s != trade %s + resolution %s", e.TotalProfitUSD, e.TradeProfitUSD, e.ResolutionProfitUSD)
	}
	if !e.TotalProfitUSD.Equal(d(0)) {
		t.Errorf("total profit: expected 0, got %s", e.TotalProfitUSD)
	}
	if !e.TotalBuyVolumeUSD.Equal(d(150)) {
		t.Errorf("volume: expected 150, got %s", e.TotalBuyVolumeUSD)
	}
	if !e.ROI.IsZero() {
		t.Errorf("roi: expected 0, got %s", e.ROI)
	}
	if e.DisplayName != nil {
		t.Errorf("expected no display name, got %q", *e.DisplayName)
	}
}

func TestRank_SortedByROIDescending(t *testing.T) {
	entries, _ := Rank([]model.ProfitRecord{
		record("0xlow", -50, 0, 50),   // roi -1
		record("0xhigh", -10, 30, 10), // roi 2
		record("0xmid", -20, 25, 20),  // roi 0.25
	}, nil)

	want := []string{"0xhigh", "0xmid", "0xlow"}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(entries))
	}
	for i, w := range want {
		if entries[i].WalletAddress != w {
			t.Errorf("position %d: expected %s, got %s", i, w, entries[i].WalletAddress)
		}
	}
	for i := 1; i < len(entries); i++ {
		if entries[i-1].ROI.LessThan(entries[i].ROI) {
			t.Errorf("entries not sorted by roi: %s before %s", entries[i-1].ROI, entries[i].ROI)
		}
	}
}

func TestRank_TiesBrokenByWallet(t *testing.T) {
	entries, _ := Rank([]model.ProfitRecord{
		record("0xc", -10, 20, 10),
		record("0xa", -30, 60, 30),
		record("0xb", -20, 40, 20),
	}, nil)

	for i, w := range []string{"0xa", "0xb", "0xc"} {
		if entries[i].WalletAddress != w {
			t.Errorf("position %d: expected %s, got %s", i, w, entries[i].WalletAddress)
		}
	}
}

func TestRank_ZeroVolumeExcluded(t *testing.T) {
	// A wallet that only sold has profit but no buy volume.
	entries, rejected := Rank([]model.ProfitRecord{
		record("0xseller", 25, 0, 0),
		record("0xbuyer", -10, 10, 10),
	}, nil)

	if len(entries) != 1 || entries[0].WalletAddress != "0xbuyer" {
		t.Fatalf("expected only 0xbuyer on the board, got %+v", entries)
	}
	if len(rejected) != 1 {
		t.Fatalf("expected 1 rejection, got %d", len(rejected))
	}
	rej := rejected[0]
	if rej.Wallet != "0xseller" || rej.Reason != ReasonZeroVolume || rej.Stage != StageRanking || !rej.Excluded {
		t.Errorf("unexpected rejection: %+v", rej)
	}
}

func TestRank_DisplayNames(t *testing.T) {
	entries, _ := Rank([]model.ProfitRecord{
		record("0xa", -10, 20, 10),
		record("0xb", -10, 5, 10),
	}, map[string]string{"0xa": "satoshi"})

	if entries[0].DisplayName == nil || *entries[0].DisplayName != "satoshi" {
		t.Errorf("expected display name satoshi for 0xa, got %v", entries[0].DisplayName)
	}
	if entries[1].DisplayName != nil {
		t.Errorf("expected nil display name for 0xb, got %q", *entries[1].DisplayName)
	}
}

func TestRank_ROIRounded(t *testing.T) {
	entries, _ := Rank([]model.ProfitRecord{record("0xa", -3, 4, 3)}, nil)
	// 1/3 kept to ROIScale places.
	if got := entries[0].ROI.String(); got != "0.33333333" {
		t.Errorf("expected roi 0.33333333, got %s", got)
	}
}

func TestRank_Empty(t *testing.T) {
	entries, rejected := Rank(nil, nil)
	if len(entries) != 0 || len(rejected) != 0 {
		t.Errorf("expected empty result, got %d entries, %d rejections", len(entries), len(rejected))
	}
}
