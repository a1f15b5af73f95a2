// Package api provides the HTTP handlers for the leaderboard service.
//
// All monetary values use shopspring/decimal and are written to JSON as
// exact numbers, never through float64.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/btcprophets/leaderboard/internal/model"
	"github.com/btcprophets/leaderboard/internal/roi"
	"github.com/btcprophets/leaderboard/internal/store"
)

// RejectedRowsHeader carries the number of ledger rows excluded from a
// leaderboard because they could not be reconciled.
const RejectedRowsHeader = "X-Leaderboard-Rejected-Rows"

// Service serves leaderboard requests. Each request computes its own
// leaderboard; nothing is shared or cached between requests.
type Service struct {
	engine *roi.Engine
	source store.Source
	logger *slog.Logger
}

// NewService creates a new API service. The source is only used for health
// checks; the engine owns all ledger reads.
func NewService(engine *roi.Engine, src store.Source, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		engine: engine,
		source: src,
		logger: logger,
	}
}

// --- Response types ---

// Number is a decimal written to JSON as a bare number.
type Number decimal.Decimal

func (n Number) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(n).String()), nil
}

func (n *Number) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	*n = Number(d)
	return nil
}

// Decimal returns the underlying value.
func (n Number) Decimal() decimal.Decimal { return decimal.Decimal(n) }

// LeaderboardRow is one element of the GET /api/leaderboard response.
type LeaderboardRow struct {
	WalletAddress     string  `json:"wallet_address"`
	DisplayName       *string `json:"display_name"`
	TotalBuyVolumeUSD Number  `json:"total_buy_volume_usd"`
	TotalProfitUSD    Number  `json:"total_profit_usd"`
	ROI               Number  `json:"roi"`
}

// HealthResponse is returned from GET /api/health.
type HealthResponse struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

func toRows(entries []model.LeaderboardEntry) []LeaderboardRow {
	rows := make([]LeaderboardRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, LeaderboardRow{
			WalletAddress:     e.WalletAddress,
			DisplayName:       e.DisplayName,
			TotalBuyVolumeUSD: Number(e.TotalBuyVolumeUSD),
			TotalProfitUSD:    Number(e.TotalProfitUSD),
			ROI:               Number(e.ROI),
		})
	}
	return rows
}

// --- HTTP Handlers ---

// GetLeaderboard handles GET /api/leaderboard?date=YYYY-MM-DD
// Returns wallets sorted by ROI descending; an empty list when no market
// qualifies on that date.
func (s *Service) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		writeError(w, "date is required (YYYY-MM-DD)", http.StatusBadRequest)
		return
	}

	report, err := s.engine.Compute(r.Context(), date)
	switch {
	case err == nil:
	case errors.Is(err, roi.ErrInvalidDate):
		writeError(w, "Invalid date format. Use YYYY-MM-DD.", http.StatusBadRequest)
		return
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, "leaderboard computation timed out", http.StatusGatewayTimeout)
		return
	default:
		writeError(w, "data source unavailable", http.StatusBadGateway)
		return
	}

	w.Header().Set(RejectedRowsHeader, strconv.Itoa(report.Excluded()))
	writeJSON(w, http.StatusOK, toRows(report.Entries))
}

// GetReport handles GET /api/leaderboard/report?date=YYYY-MM-DD
// Returns the full computation report, including the trade/resolution
// profit split and every rejection.
func (s *Service) GetReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.engine.Compute(r.Context(), r.URL.Query().Get("date"))
	switch {
	case err == nil:
	case errors.Is(err, roi.ErrInvalidDate):
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, "leaderboard computation timed out", http.StatusGatewayTimeout)
		return
	default:
		writeError(w, "data source unavailable", http.StatusBadGateway)
		return
	}

	w.Header().Set(RejectedRowsHeader, strconv.Itoa(report.Excluded()))
	writeJSON(w, http.StatusOK, report)
}

// Health handles GET /health
func (s *Service) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok","service":"prophets-leaderboard"}`))
}

// DataSourceHealth handles GET /api/health
// Pings the ledger source; 503 when it is unreachable.
func (s *Service) DataSourceHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		Database:  "connected",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK

	if err := s.source.Ping(r.Context()); err != nil {
		s.logger.Warn("data source ping failed", "err", err)
		resp.Status = "unhealthy"
		resp.Database = "disconnected"
		resp.Error = err.Error()
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
