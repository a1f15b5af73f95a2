package roi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/btcprophets/leaderboard/internal/metrics"
	"github.com/btcprophets/leaderboard/internal/model"
	"github.com/btcprophets/leaderboard/internal/store"
)

// Report is the outcome of one leaderboard computation.
type Report struct {
	RunID      string                   `json:"run_id"`
	Date       string                   `json:"date"`
	MarketIDs  []string                 `json:"market_ids"`
	Entries    []model.LeaderboardEntry `json:"entries"`
	Rejections []model.Rejection        `json:"rejections"`

	// Row counts per normalized stream, before aggregation.
	AMMRows   int `json:"amm_rows"`
	TakerRows int `json:"taker_rows"`
	MakerRows int `json:"maker_rows"`
}

// Excluded returns how many rows were dropped for data-integrity reasons.
func (r *Report) Excluded() int {
	n := 0
	for _, rej := range r.Rejections {
		if rej.Excluded {
			n++
		}
	}
	return n
}

// Engine computes leaderboards from a Source. It holds no mutable state, so
// one Engine serves concurrent requests.
type Engine struct {
	source store.Source
	policy KeywordPolicy
	logger *slog.Logger
}

// NewEngine creates an engine. A nil logger uses slog.Default().
func NewEngine(src store.Source, policy KeywordPolicy, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{source: src, policy: policy, logger: logger}
}

// Compute builds the leaderboard for date (YYYY-MM-DD). The date is validated
// before any data access. A date without qualifying markets yields a report
// with no entries. Source failures are returned wrapped and unmodified.
func (e *Engine) Compute(ctx context.Context, date string) (*Report, error) {
	start := time.Now()
	report, err := e.compute(ctx, date)
	metrics.LeaderboardLatency.Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, ErrInvalidDate):
		metrics.LeaderboardRuns.WithLabelValues("invalid").Inc()
	case err != nil:
		metrics.LeaderboardRuns.WithLabelValues("error").Inc()
		e.logger.Error("leaderboard computation failed", "date", date, "err", err)
	case len(report.Entries) == 0:
		metrics.LeaderboardRuns.WithLabelValues("empty").Inc()
	default:
		metrics.LeaderboardRuns.WithLabelValues("ok").Inc()
	}
	return report, err
}

func (e *Engine) compute(ctx context.Context, date string) (*Report, error) {
	day, err := ParseDate(date)
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:   uuid.New().String(),
		Date:    day.Format(DateLayout),
		Entries: []model.LeaderboardEntry{},
	}
	log := e.logger.With("run_id", report.RunID, "date", report.Date)

	catalogue, err := e.source.MarketsCreatedOn(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("load markets: %w", err)
	}
	markets := FilterMarkets(catalogue, day, e.policy)
	metrics.InScopeMarkets.Set(float64(len(markets)))
	if len(markets) == 0 {
		log.Info("no qualifying markets", "catalogue", len(catalogue))
		return report, nil
	}

	inScope := make(map[string]bool, len(markets))
	for _, m := range markets {
		report.MarketIDs = append(report.MarketIDs, m.ID)
		inScope[m.ID] = true
	}
	sort.Strings(report.MarketIDs)
	resolutions := Resolutions(markets)

	rawAMM, err := e.source.AMMTrades(ctx, report.MarketIDs)
	if err != nil {
		return nil, fmt.Errorf("load amm trades: %w", err)
	}
	rawFills, err := e.source.Fills(ctx, report.MarketIDs)
	if err != nil {
		return nil, fmt.Errorf("load order-book fills: %w", err)
	}

	amm, rejected := NormalizeAMMTrades(scopeAMM(rawAMM, inScope))
	report.Rejections = append(report.Rejections, rejected...)

	taker, maker, rejected := NormalizeFills(scopeFills(rawFills, inScope))
	report.Rejections = append(report.Rejections, rejected...)

	report.AMMRows, report.TakerRows, report.MakerRows = len(amm), len(taker), len(maker)
	metrics.NormalizedRows.WithLabelValues(StageAMM).Add(float64(len(amm)))
	metrics.NormalizedRows.WithLabelValues(model.RoleTaker).Add(float64(len(taker)))
	metrics.NormalizedRows.WithLabelValues(model.RoleMaker).Add(float64(len(maker)))

	summaries := Aggregate(Unify(amm, taker, maker))

	records, rejected := Settle(summaries, resolutions)
	report.Rejections = append(report.Rejections, rejected...)

	names, err := e.source.DisplayNames(ctx, walletsOf(records))
	if err != nil {
		return nil, fmt.Errorf("load display names: %w", err)
	}

	entries, rejected := Rank(records, names)
	report.Entries = entries
	report.Rejections = append(report.Rejections, rejected...)

	for _, rej := range report.Rejections {
		metrics.RejectedRows.WithLabelValues(rej.Stage, rej.Reason).Inc()
		log.Warn("ledger row rejected",
			"stage", rej.Stage,
			"reason", rej.Reason,
			"wallet", rej.Wallet,
			"market_id", rej.MarketID,
			"excluded", rej.Excluded,
			"detail", rej.Detail,
		)
	}

	log.Info("leaderboard computed",
		"markets", len(markets),
		"amm_rows", report.AMMRows,
		"taker_rows", report.TakerRows,
		"maker_rows", report.MakerRows,
		"positions", len(summaries),
		"entries", len(report.Entries),
		"excluded", report.Excluded(),
	)
	return report, nil
}

// scopeAMM drops swaps on markets outside the filter, in case a source
// returns more than it was asked for.
func scopeAMM(trades []model.AMMTrade, inScope map[string]bool) []model.AMMTrade {
	out := make([]model.AMMTrade, 0, len(trades))
	for _, t := range trades {
		if inScope[t.MarketID] {
			out = append(out, t)
		}
	}
	return out
}

func scopeFills(fills []model.Fill, inScope map[string]bool) []model.Fill {
	out := make([]model.Fill, 0, len(fills))
	for _, f := range fills {
		if inScope[f.MarketID] {
			out = append(out, f)
		}
	}
	return out
}

func walletsOf(records []model.ProfitRecord) []string {
	seen := make(map[string]bool)
	var wallets []string
	for _, r := range records {
		if !seen[r.Wallet] {
			seen[r.Wallet] = true
			wallets = append(wallets, r.Wallet)
		}
	}
	sort.Strings(wallets)
	return wallets
}
