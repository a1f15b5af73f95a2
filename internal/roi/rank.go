package roi

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/btcprophets/leaderboard/internal/model"
)

type walletAgg struct {
	trade      decimal.Decimal
	resolution decimal.Decimal
	volume     decimal.Decimal
}

// Rank folds profit records into one leaderboard entry per wallet.
//
// total_profit = trade_profit + resolution_profit and roi = total_profit /
// total_buy_volume. A wallet with no buy volume has no defined ROI; it is
// left off the board and recorded as a rejection. Entries are sorted by ROI
// descending, then by wallet address ascending.
func Rank(records []model.ProfitRecord, names map[string]string) ([]model.LeaderboardEntry, []model.Rejection) {
	wallets := make(map[string]*walletAgg)
	for _, r := range records {
		w, ok := wallets[r.Wallet]
		if !ok {
			w = &walletAgg{}
			wallets[r.Wallet] = w
		}
		w.trade = w.trade.Add(r.TradeProfitUSD)
		w.resolution = w.resolution.Add(r.ResolutionProfitUSD)
		w.volume = w.volume.Add(r.TotalBuyUSD)
	}

	entries := make([]model.LeaderboardEntry, 0, len(wallets))
	var rejected []model.Rejection
	for addr, w := range wallets {
		total := w.trade.Add(w.resolution)
		if w.volume.IsZero() {
			err := fmt.Errorf("%w: total profit %s", ErrZeroVolume, total.String())
			rejected = append(rejected, model.Rejection{
				Stage:    StageRanking,
				Reason:   reasonFor(err),
				Wallet:   addr,
				Detail:   err.Error(),
				Excluded: true,
			})
			continue
		}

		entry := model.LeaderboardEntry{
			WalletAddress:       addr,
			TotalBuyVolumeUSD:   w.volume,
			TradeProfitUSD:      w.trade,
			ResolutionProfitUSD: w.resolution,
			TotalProfitUSD:      total,
			ROI:                 total.Div(w.volume).Round(ROIScale),
		}
		if name, ok := names[addr]; ok {
			entry.DisplayName = &name
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if c := entries[i].ROI.Cmp(entries[j].ROI); c != 0 {
			return c > 0
		}
		return entries[i].WalletAddress < entries[j].WalletAddress
	})

	// Stable order for callers that log or diff rejections.
	sort.Slice(rejected, func(i, j int) bool { return rejected[i].Wallet < rejected[j].Wallet })
	return entries, rejected
}
