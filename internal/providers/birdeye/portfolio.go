// internal/providers/birdeye/portfolio.go
package birdeye

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"github.com/rovshanmuradov/trust-engine/internal/fetch"
)

type walletTokenList struct {
	Wallet   string  `json:"wallet"`
	TotalUsd float64 `json:"totalUsd"`
	Items    []struct {
		Address  string  `json:"address"`
		Symbol   string  `json:"symbol"`
		Name     string  `json:"name"`
		Decimals int     `json:"decimals"`
		UIAmount float64 `json:"uiAmount"`
		PriceUsd float64 `json:"priceUsd"`
		ValueUsd float64 `json:"valueUsd"`
	} `json:"items"`
}

// Portfolio fetches a wallet's token list and values every holding in USD
// and in the native asset (SOL), sorted descending by USD value.
func (c *Client) Portfolio(ctx context.Context, walletAddress string) (*Portfolio, error) {
	endpoint := c.baseURL + "/v1/wallet/token_list"
	query := url.Values{"wallet": []string{walletAddress}}
	key := fetch.CacheKey(endpoint, query)

	portfolio, err := fetch.Cached(ctx, c.cache, key, portfolioTTL, func(ctx context.Context) (Portfolio, error) {
		resp, err := fetch.JSON[envelope[walletTokenList]](ctx, c.fetcher, endpoint, c.options(query))
		if err != nil {
			return Portfolio{}, fmt.Errorf("fetch wallet token list for %s: %w", walletAddress, err)
		}

		solPrice, err := c.Price(ctx, solAddress)
		if err != nil {
			return Portfolio{}, fmt.Errorf("fetch SOL price: %w", err)
		}

		out := Portfolio{
			Wallet: resp.Data.Wallet,
			Items:  make([]PortfolioItem, 0, len(resp.Data.Items)),
		}
		for _, item := range resp.Data.Items {
			valueNative := 0.0
			if solPrice.Value > 0 {
				valueNative = item.ValueUsd / solPrice.Value
			}
			out.Items = append(out.Items, PortfolioItem{
				Address:     item.Address,
				Symbol:      item.Symbol,
				Name:        item.Name,
				Decimals:    item.Decimals,
				UIAmount:    item.UIAmount,
				PriceUsd:    item.PriceUsd,
				ValueUsd:    item.ValueUsd,
				ValueNative: valueNative,
			})
			out.TotalUsd += item.ValueUsd
			out.TotalNative += valueNative
		}

		sort.Slice(out.Items, func(i, j int) bool {
			return out.Items[i].ValueUsd > out.Items[j].ValueUsd
		})
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return &portfolio, nil
}

// WalletBalance returns the wallet's total value in the native asset, used
// as the input to virtual confidence scoring.
func (c *Client) WalletBalance(ctx context.Context, walletAddress string) (float64, error) {
	if walletAddress == "" {
		return 0, nil
	}
	portfolio, err := c.Portfolio(ctx, walletAddress)
	if err != nil {
		return 0, err
	}
	return portfolio.TotalNative, nil
}
