// internal/providers/dexscreener/client.go
package dexscreener

import (
	"context"
	"fmt"
	"time"

	"github.com/rovshanmuradov/trust-engine/internal/fetch"
	"go.uber.org/zap"
)

const pairTTL = 5 * time.Minute

// Response is the DexScreener pair-search payload.
type Response struct {
	SchemaVersion string `json:"schemaVersion"`
	Pairs         []Pair `json:"pairs"`
}

// Pair is one trading pair for a token.
type Pair struct {
	ChainID     string    `json:"chainId"`
	DexID       string    `json:"dexId"`
	PairAddress string    `json:"pairAddress"`
	BaseToken   Token     `json:"baseToken"`
	QuoteToken  Token     `json:"quoteToken"`
	PriceNative string    `json:"priceNative"`
	PriceUsd    string    `json:"priceUsd"`
	Liquidity   Liquidity `json:"liquidity"`
	MarketCap   float64   `json:"marketCap"`
	Fdv         float64   `json:"fdv"`
}

type Token struct {
	Address string `json:"address"`
	Symbol  string `json:"symbol"`
	Name    string `json:"name"`
}

type Liquidity struct {
	Usd   float64 `json:"usd"`
	Base  float64 `json:"base"`
	Quote float64 `json:"quote"`
}

// Client wraps the DexScreener pair-search API. No API key is required.
type Client struct {
	baseURL string
	fetcher *fetch.Client
	cache   *fetch.Cache
	logger  *zap.Logger
}

func NewClient(baseURL string, fetcher *fetch.Client, cache *fetch.Cache, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://api.dexscreener.com/latest/dex"
	}
	return &Client{
		baseURL: baseURL,
		fetcher: fetcher,
		cache:   cache,
		logger:  logger.Named("dexscreener"),
	}
}

// Search returns every known pair for the token address.
func (c *Client) Search(ctx context.Context, tokenAddress string) ([]Pair, error) {
	endpoint := fmt.Sprintf("%s/tokens/%s", c.baseURL, tokenAddress)

	resp, err := fetch.Cached(ctx, c.cache, endpoint, pairTTL, func(ctx context.Context) (Response, error) {
		return fetch.JSON[Response](ctx, c.fetcher, endpoint, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("search pairs for %s: %w", tokenAddress, err)
	}
	return resp.Pairs, nil
}

// BestPair selects the pair with the highest USD liquidity, breaking ties by
// market cap descending. Pairs missing liquidity data are treated as absent.
func (c *Client) BestPair(ctx context.Context, tokenAddress string) (*Pair, error) {
	pairs, err := c.Search(ctx, tokenAddress)
	if err != nil {
		return nil, err
	}

	var best *Pair
	for i := range pairs {
		pair := &pairs[i]
		if pair.Liquidity.Usd <= 0 {
			continue
		}
		if best == nil ||
			pair.Liquidity.Usd > best.Liquidity.Usd ||
			(pair.Liquidity.Usd == best.Liquidity.Usd && pair.MarketCap > best.MarketCap) {
			best = pair
		}
	}

	if best == nil {
		return nil, fmt.Errorf("no pair with liquidity found for token %s", tokenAddress)
	}

	c.logger.Debug("selected best pair",
		zap.String("token", tokenAddress),
		zap.String("pair_address", best.PairAddress),
		zap.Float64("liquidity_usd", best.Liquidity.Usd),
		zap.Float64("market_cap", best.MarketCap),
		zap.String("dex", best.DexID))

	return best, nil
}
