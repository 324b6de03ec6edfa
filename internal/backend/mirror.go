// internal/backend/mirror.go
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rovshanmuradov/trust-engine/internal/fetch"
	"github.com/rovshanmuradov/trust-engine/internal/storage/models"
	"go.uber.org/zap"
)

// Mirror forwards trade and recommender writes to an external analytics
// backend. Best-effort only: every send failure is swallowed after logging.
type Mirror struct {
	baseURL string
	apiKey  string
	fetcher *fetch.Client
	logger  *zap.Logger
}

// NewMirror creates an analytics mirror. The URL is required: callers that
// treat analytics as optional must catch the error and run without mirroring.
func NewMirror(baseURL, apiKey string, fetcher *fetch.Client, logger *zap.Logger) (*Mirror, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("backend URL is not configured")
	}
	return &Mirror{
		baseURL: baseURL,
		apiKey:  apiKey,
		fetcher: fetcher,
		logger:  logger.Named("backend"),
	}, nil
}

// MirrorTradePerformance forwards one recorded buy.
func (m *Mirror) MirrorTradePerformance(ctx context.Context, trade *models.TradePerformance) {
	if err := m.post(ctx, "/api/updaters/createTradePerformance", map[string]interface{}{
		"tokenAddress":  trade.TokenAddress,
		"recommenderId": trade.RecommenderID,
		"buyAmount":     trade.BuyAmount,
		"buyPrice":      trade.BuyPrice,
		"buyTimeStamp":  trade.BuyTimestamp,
		"isSimulation":  trade.IsSimulation,
	}); err != nil {
		m.logger.Warn("failed to mirror trade performance",
			zap.String("token", trade.TokenAddress),
			zap.Error(err))
	}
}

// MirrorRecommender forwards one recommender upsert.
func (m *Mirror) MirrorRecommender(ctx context.Context, r *models.Recommender) {
	if err := m.post(ctx, "/api/updaters/getOrCreateRecommender", r); err != nil {
		m.logger.Warn("failed to mirror recommender",
			zap.String("recommender_id", r.RecommenderID),
			zap.Error(err))
	}
}

func (m *Mirror) post(ctx context.Context, path string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	headers := map[string]string{"Content-Type": "application/json"}
	if m.apiKey != "" {
		headers["Authorization"] = "Bearer " + m.apiKey
	}
	_, err = m.fetcher.Do(ctx, m.baseURL+path, &fetch.RequestOptions{
		Method:  http.MethodPost,
		Headers: headers,
		Body:    body,
	})
	return err
}
