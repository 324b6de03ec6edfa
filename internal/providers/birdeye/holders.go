// internal/providers/birdeye/holders.go
package birdeye

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/rovshanmuradov/trust-engine/internal/fetch"
)

const (
	holderPageLimit = 100
	holderPageCap   = 50
	holdersTTL      = 5 * time.Minute
)

type holderPage struct {
	Items []struct {
		Owner    string  `json:"owner"`
		UIAmount float64 `json:"ui_amount"`
	} `json:"items"`
}

// Holders pages through the holder list accumulating balances per owner.
// Duplicate owner rows across pages are merged by summation; pagination
// stops on the first empty page or after the page cap. The aggregated list
// is cached as one entry.
func (c *Client) Holders(ctx context.Context, tokenAddress string) ([]HolderBalance, error) {
	endpoint := c.baseURL + "/defi/v3/token/holder"
	key := fetch.CacheKey(endpoint, url.Values{"address": []string{tokenAddress}})
	return fetch.Cached(ctx, c.cache, key, holdersTTL, func(ctx context.Context) ([]HolderBalance, error) {
		return c.fetchHolders(ctx, endpoint, tokenAddress)
	})
}

func (c *Client) fetchHolders(ctx context.Context, endpoint, tokenAddress string) ([]HolderBalance, error) {
	balances := make(map[string]float64)

	for page := 0; page < holderPageCap; page++ {
		query := url.Values{
			"address": []string{tokenAddress},
			"offset":  []string{strconv.Itoa(page * holderPageLimit)},
			"limit":   []string{strconv.Itoa(holderPageLimit)},
		}

		resp, err := fetch.JSON[envelope[holderPage]](ctx, c.fetcher, endpoint, c.options(query))
		if err != nil {
			return nil, fmt.Errorf("fetch holder page %d for %s: %w", page, tokenAddress, err)
		}
		if len(resp.Data.Items) == 0 {
			break
		}

		for _, item := range resp.Data.Items {
			balances[item.Owner] += item.UIAmount
		}
	}

	out := make([]HolderBalance, 0, len(balances))
	for owner, balance := range balances {
		out = append(out, HolderBalance{Owner: owner, Balance: balance})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Balance > out[j].Balance })
	return out, nil
}
