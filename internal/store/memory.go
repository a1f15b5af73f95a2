package store

import (
	"context"
	"sync"
	"time"

	"github.com/btcprophets/leaderboard/internal/model"
)

// MemoryStore implements Source with in-memory slices. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu       sync.RWMutex
	markets  []model.Market
	amm      []model.AMMTrade
	fills    []model.Fill
	profiles map[string]string // wallet -> display name
	pingErr  error
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]string),
	}
}

// AddMarket seeds a market.
func (s *MemoryStore) AddMarket(m model.Market) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markets = append(s.markets, m)
}

// AddAMMTrade seeds an AMM swap.
func (s *MemoryStore) AddAMMTrade(t model.AMMTrade) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.amm = append(s.amm, t)
}

// AddFill seeds an order-book row.
func (s *MemoryStore) AddFill(f model.Fill) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fills = append(s.fills, f)
}

// SetDisplayName seeds the wallet directory.
func (s *MemoryStore) SetDisplayName(wallet, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[wallet] = name
}

// SetPingError makes Ping fail, for health check tests.
func (s *MemoryStore) SetPingError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pingErr = err
}

func (s *MemoryStore) MarketsCreatedOn(_ context.Context, day time.Time) ([]model.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := dayKey(day)
	var result []model.Market
	for _, m := range s.markets {
		if dayKey(m.CreatedAt) == key {
			result = append(result, m)
		}
	}
	return result, nil
}

func (s *MemoryStore) AMMTrades(_ context.Context, marketIDs []string) ([]model.AMMTrade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := idSet(marketIDs)
	var result []model.AMMTrade
	for _, t := range s.amm {
		if ids[t.MarketID] {
			result = append(result, t)
		}
	}
	return result, nil
}

func (s *MemoryStore) Fills(_ context.Context, marketIDs []string) ([]model.Fill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := idSet(marketIDs)
	var result []model.Fill
	for _, f := range s.fills {
		if ids[f.MarketID] {
			result = append(result, f)
		}
	}
	return result, nil
}

func (s *MemoryStore) DisplayNames(_ context.Context, wallets []string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make(map[string]string)
	for _, w := range wallets {
		if name := s.profiles[w]; name != "" {
			names[w] = name
		}
	}
	return names, nil
}

func (s *MemoryStore) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pingErr
}

func idSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
