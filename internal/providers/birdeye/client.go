// internal/providers/birdeye/client.go
package birdeye

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/rovshanmuradov/trust-engine/internal/fetch"
	"go.uber.org/zap"
)

const (
	priceTTL     = 5 * time.Minute
	securityTTL  = time.Hour
	tradeDataTTL = 5 * time.Minute
	portfolioTTL = 5 * time.Minute

	solAddress = "So11111111111111111111111111111111111111112"
)

// Client wraps the Birdeye market-data API. All calls go through the fetch
// client with a TTL matched to the data's volatility.
type Client struct {
	baseURL string
	apiKey  string
	fetcher *fetch.Client
	cache   *fetch.Cache
	logger  *zap.Logger
}

// NewClient creates a Birdeye client. The API key is required: callers that
// treat market data as optional must catch the error and continue without it.
func NewClient(baseURL, apiKey string, fetcher *fetch.Client, cache *fetch.Cache, logger *zap.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("birdeye API key is not configured")
	}
	if baseURL == "" {
		baseURL = "https://public-api.birdeye.so"
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		fetcher: fetcher,
		cache:   cache,
		logger:  logger.Named("birdeye"),
	}, nil
}

func (c *Client) options(query url.Values) *fetch.RequestOptions {
	return &fetch.RequestOptions{
		Headers: map[string]string{
			"X-API-KEY": c.apiKey,
			"x-chain":   "solana",
		},
		Query: query,
	}
}

type envelope[T any] struct {
	Data    T    `json:"data"`
	Success bool `json:"success"`
}

// Price returns the current USD price of a token.
func (c *Client) Price(ctx context.Context, tokenAddress string) (*PriceSnapshot, error) {
	endpoint := c.baseURL + "/defi/price"
	query := url.Values{"address": []string{tokenAddress}}
	key := fetch.CacheKey(endpoint, query)

	snapshot, err := fetch.Cached(ctx, c.cache, key, priceTTL, func(ctx context.Context) (PriceSnapshot, error) {
		resp, err := fetch.JSON[envelope[PriceSnapshot]](ctx, c.fetcher, endpoint, c.options(query))
		if err != nil {
			return PriceSnapshot{}, fmt.Errorf("fetch price for %s: %w", tokenAddress, err)
		}
		return resp.Data, nil
	})
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// TokenSecurity returns the ownership concentration profile of a token.
func (c *Client) TokenSecurity(ctx context.Context, tokenAddress string) (*TokenSecurity, error) {
	endpoint := c.baseURL + "/defi/token_security"
	query := url.Values{"address": []string{tokenAddress}}
	key := fetch.CacheKey(endpoint, query)

	security, err := fetch.Cached(ctx, c.cache, key, securityTTL, func(ctx context.Context) (TokenSecurity, error) {
		resp, err := fetch.JSON[envelope[TokenSecurity]](ctx, c.fetcher, endpoint, c.options(query))
		if err != nil {
			return TokenSecurity{}, fmt.Errorf("fetch token security for %s: %w", tokenAddress, err)
		}
		return resp.Data, nil
	})
	if err != nil {
		return nil, err
	}
	return &security, nil
}

// TokenTradeData returns the normalized 24h trade activity of a token.
func (c *Client) TokenTradeData(ctx context.Context, tokenAddress string) (*TokenTradeData, error) {
	endpoint := c.baseURL + "/defi/v3/token/trade-data/single"
	query := url.Values{"address": []string{tokenAddress}}
	key := fetch.CacheKey(endpoint, query)

	tradeData, err := fetch.Cached(ctx, c.cache, key, tradeDataTTL, func(ctx context.Context) (TokenTradeData, error) {
		resp, err := fetch.JSON[envelope[TokenTradeData]](ctx, c.fetcher, endpoint, c.options(query))
		if err != nil {
			return TokenTradeData{}, fmt.Errorf("fetch trade data for %s: %w", tokenAddress, err)
		}
		return resp.Data, nil
	})
	if err != nil {
		return nil, err
	}
	return &tradeData, nil
}
