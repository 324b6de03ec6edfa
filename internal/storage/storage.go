// internal/storage/storage.go
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/rovshanmuradov/trust-engine/internal/storage/models"
)

// ErrNotFound is returned when a requested row does not exist. Callers treat
// it as an expected domain state, not a failure.
var ErrNotFound = errors.New("storage: record not found")

// Storage is the persistence collaborator. The engine holds entities only
// for the duration of a computation; every read is a snapshot that may be
// stale by the time a write occurs.
type Storage interface {
	// Recommenders
	GetOrCreateRecommender(ctx context.Context, r *models.Recommender) (*models.Recommender, error)
	GetRecommender(ctx context.Context, recommenderID string) (*models.Recommender, error)
	GetRecommenderByPlatform(ctx context.Context, platform, handle string) (*models.Recommender, error)

	// Metrics
	GetRecommenderMetrics(ctx context.Context, recommenderID string) (*models.RecommenderMetrics, error)
	SaveRecommenderMetrics(ctx context.Context, m *models.RecommenderMetrics) error
	AddMetricsHistory(ctx context.Context, h *models.RecommenderMetricsHistory) error

	// Token performance
	UpsertTokenPerformance(ctx context.Context, perf *models.TokenPerformance) error
	GetTokenPerformance(ctx context.Context, tokenAddress string) (*models.TokenPerformance, error)
	ListTokenPerformancesWithBalance(ctx context.Context) ([]*models.TokenPerformance, error)
	UpdateTokenBalance(ctx context.Context, tokenAddress string, balance float64) error

	// Recommendations
	AddTokenRecommendation(ctx context.Context, rec *models.TokenRecommendation) error
	ListRecommendationsByToken(ctx context.Context, tokenAddress string) ([]*models.TokenRecommendation, error)
	ListRecommendationsByDateRange(ctx context.Context, start, end time.Time) ([]*models.TokenRecommendation, error)

	// Trades
	AddTradePerformance(ctx context.Context, trade *models.TradePerformance) error
	GetLatestTradePerformance(ctx context.Context, tokenAddress, recommenderID string, isSimulation bool) (*models.TradePerformance, error)
	UpdateTradePerformanceOnSell(ctx context.Context, trade *models.TradePerformance) error

	// Transactions
	AddTransaction(ctx context.Context, tx *models.Transaction) error

	// Aggregates
	CalculateValidationTrust(ctx context.Context, tokenAddress string) (float64, error)

	RunMigrations() error
}
