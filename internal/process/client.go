// internal/process/client.go
package process

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rovshanmuradov/trust-engine/internal/fetch"
	"go.uber.org/zap"
)

// Client notifies the external process-control backend about sell-monitoring
// lifecycles. Calls are fire-and-forget: failures are logged, never fatal.
type Client struct {
	baseURL string
	fetcher *fetch.Client
	logger  *zap.Logger
}

// StartRequest describes one monitoring process to start.
type StartRequest struct {
	TokenAddress     string  `json:"tokenAddress"`
	Balance          float64 `json:"balance"`
	IsSimulation     bool    `json:"isSimulation"`
	RecommenderID    string  `json:"sell_recommender_id"`
	InitialMarketCap float64 `json:"initial_mc"`
	WalletAddress    string  `json:"walletAddress"`
}

// NewClient creates a process-backend client. An empty base URL disables
// notifications entirely; both calls become no-ops.
func NewClient(baseURL string, fetcher *fetch.Client, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		fetcher: fetcher,
		logger:  logger.Named("process"),
	}
}

// StartProcess tells the backend to begin monitoring a position.
func (c *Client) StartProcess(ctx context.Context, req StartRequest) {
	if c.baseURL == "" {
		return
	}
	if err := c.post(ctx, "/startProcess", req); err != nil {
		c.logger.Warn("failed to notify process backend of start",
			zap.String("token", req.TokenAddress),
			zap.Error(err))
		return
	}
	c.logger.Debug("process started",
		zap.String("token", req.TokenAddress),
		zap.Float64("balance", req.Balance))
}

// StopProcess tells the backend to stop monitoring a token.
func (c *Client) StopProcess(ctx context.Context, tokenAddress string) {
	if c.baseURL == "" {
		return
	}
	payload := map[string]string{"tokenAddress": tokenAddress}
	if err := c.post(ctx, "/stopProcess", payload); err != nil {
		c.logger.Warn("failed to notify process backend of stop",
			zap.String("token", tokenAddress),
			zap.Error(err))
		return
	}
	c.logger.Debug("process stopped", zap.String("token", tokenAddress))
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	_, err = c.fetcher.Do(ctx, c.baseURL+path, &fetch.RequestOptions{
		Method:  http.MethodPost,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    body,
	})
	return err
}
