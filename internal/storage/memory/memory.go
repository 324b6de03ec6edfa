// internal/storage/memory/memory.go
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rovshanmuradov/trust-engine/internal/storage"
	"github.com/rovshanmuradov/trust-engine/internal/storage/models"
)

// Store is an in-memory Storage implementation used in tests and local runs.
type Store struct {
	mu              sync.RWMutex
	recommenders    map[string]*models.Recommender
	metrics         map[string]*models.RecommenderMetrics
	history         []*models.RecommenderMetricsHistory
	performances    map[string]*models.TokenPerformance
	recommendations []*models.TokenRecommendation
	trades          []*models.TradePerformance
	transactions    []*models.Transaction
}

func New() *Store {
	return &Store{
		recommenders: make(map[string]*models.Recommender),
		metrics:      make(map[string]*models.RecommenderMetrics),
		performances: make(map[string]*models.TokenPerformance),
	}
}

var _ storage.Storage = (*Store)(nil)

func (s *Store) GetOrCreateRecommender(_ context.Context, r *models.Recommender) (*models.Recommender, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.recommenders[r.RecommenderID]; ok {
		clone := *existing
		return &clone, nil
	}
	clone := *r
	s.recommenders[r.RecommenderID] = &clone
	result := clone
	return &result, nil
}

func (s *Store) GetRecommender(_ context.Context, recommenderID string) (*models.Recommender, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.recommenders[recommenderID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	clone := *r
	return &clone, nil
}

func (s *Store) GetRecommenderByPlatform(_ context.Context, platform, handle string) (*models.Recommender, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.recommenders {
		var match bool
		switch platform {
		case "telegram":
			match = r.TelegramID == handle
		case "discord":
			match = r.DiscordID == handle
		case "twitter":
			match = r.TwitterID == handle
		case "solana":
			match = r.SolanaPubkey == handle
		default:
			return nil, fmt.Errorf("unknown platform: %s", platform)
		}
		if match {
			clone := *r
			return &clone, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) GetRecommenderMetrics(_ context.Context, recommenderID string) (*models.RecommenderMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.metrics[recommenderID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	clone := *m
	return &clone, nil
}

func (s *Store) SaveRecommenderMetrics(_ context.Context, m *models.RecommenderMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *m
	s.metrics[m.RecommenderID] = &clone
	return nil
}

func (s *Store) AddMetricsHistory(_ context.Context, h *models.RecommenderMetricsHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *h
	s.history = append(s.history, &clone)
	return nil
}

// MetricsHistory returns the recorded snapshots for assertions in tests.
func (s *Store) MetricsHistory(recommenderID string) []*models.RecommenderMetricsHistory {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.RecommenderMetricsHistory
	for _, h := range s.history {
		if h.RecommenderID == recommenderID {
			clone := *h
			out = append(out, &clone)
		}
	}
	return out
}

func (s *Store) UpsertTokenPerformance(_ context.Context, perf *models.TokenPerformance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *perf
	s.performances[perf.TokenAddress] = &clone
	return nil
}

func (s *Store) GetTokenPerformance(_ context.Context, tokenAddress string) (*models.TokenPerformance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	perf, ok := s.performances[tokenAddress]
	if !ok {
		return nil, storage.ErrNotFound
	}
	clone := *perf
	return &clone, nil
}

func (s *Store) ListTokenPerformancesWithBalance(_ context.Context) ([]*models.TokenPerformance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.TokenPerformance
	for _, perf := range s.performances {
		if perf.Balance > 0 {
			clone := *perf
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TokenAddress < out[j].TokenAddress })
	return out, nil
}

func (s *Store) UpdateTokenBalance(_ context.Context, tokenAddress string, balance float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	perf, ok := s.performances[tokenAddress]
	if !ok {
		return storage.ErrNotFound
	}
	perf.Balance = balance
	perf.LastUpdated = time.Now().UTC()
	return nil
}

func (s *Store) AddTokenRecommendation(_ context.Context, rec *models.TokenRecommendation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *rec
	s.recommendations = append(s.recommendations, &clone)
	return nil
}

func (s *Store) ListRecommendationsByToken(_ context.Context, tokenAddress string) ([]*models.TokenRecommendation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.TokenRecommendation
	for _, rec := range s.recommendations {
		if rec.TokenAddress == tokenAddress {
			clone := *rec
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (s *Store) ListRecommendationsByDateRange(_ context.Context, start, end time.Time) ([]*models.TokenRecommendation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.TokenRecommendation
	for _, rec := range s.recommendations {
		if !rec.Timestamp.Before(start) && !rec.Timestamp.After(end) {
			clone := *rec
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (s *Store) AddTradePerformance(_ context.Context, trade *models.TradePerformance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *trade
	s.trades = append(s.trades, &clone)
	return nil
}

func (s *Store) GetLatestTradePerformance(_ context.Context, tokenAddress, recommenderID string, isSimulation bool) (*models.TradePerformance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *models.TradePerformance
	for _, trade := range s.trades {
		if trade.TokenAddress != tokenAddress || trade.RecommenderID != recommenderID ||
			trade.IsSimulation != isSimulation || trade.SellTimestamp != nil {
			continue
		}
		if latest == nil || trade.BuyTimestamp.After(latest.BuyTimestamp) {
			latest = trade
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}
	clone := *latest
	return &clone, nil
}

func (s *Store) UpdateTradePerformanceOnSell(_ context.Context, trade *models.TradePerformance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, stored := range s.trades {
		if stored.TokenAddress == trade.TokenAddress &&
			stored.RecommenderID == trade.RecommenderID &&
			stored.BuyTimestamp.Equal(trade.BuyTimestamp) &&
			stored.SellTimestamp == nil {
			stored.SellTimestamp = trade.SellTimestamp
			stored.SellPrice = trade.SellPrice
			stored.SellAmount = trade.SellAmount
			stored.SellValueUsd = trade.SellValueUsd
			stored.SellMarketCap = trade.SellMarketCap
			stored.SellLiquidity = trade.SellLiquidity
			stored.ProfitUsd = trade.ProfitUsd
			stored.ProfitPercent = trade.ProfitPercent
			stored.MarketCapChange = trade.MarketCapChange
			stored.LiquidityChange = trade.LiquidityChange
			stored.RapidDump = trade.RapidDump
			return nil
		}
	}
	return storage.ErrNotFound
}

func (s *Store) AddTransaction(_ context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *tx
	s.transactions = append(s.transactions, &clone)
	return nil
}

// Transactions returns the ledger for assertions in tests.
func (s *Store) Transactions(tokenAddress string) []*models.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Transaction
	for _, tx := range s.transactions {
		if tx.TokenAddress == tokenAddress {
			clone := *tx
			out = append(out, &clone)
		}
	}
	return out
}

func (s *Store) CalculateValidationTrust(_ context.Context, tokenAddress string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var sum float64
	var count int
	for _, rec := range s.recommendations {
		if rec.TokenAddress != tokenAddress {
			continue
		}
		if _, ok := seen[rec.RecommenderID]; ok {
			continue
		}
		seen[rec.RecommenderID] = struct{}{}
		if m, ok := s.metrics[rec.RecommenderID]; ok {
			sum += m.TrustScore
			count++
		}
	}
	if count == 0 {
		return 0, nil
	}
	return sum / float64(count), nil
}

func (s *Store) RunMigrations() error { return nil }
