package report

import (
	"context"
	"errors"
	"testing"

	"github.com/rovshanmuradov/trust-engine/internal/providers/birdeye"
	"github.com/rovshanmuradov/trust-engine/internal/providers/dexscreener"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeMarket struct {
	portfolio    *birdeye.Portfolio
	portfolioErr error
	priceErr     error
	tradeErr     error
}

func (f *fakeMarket) Price(_ context.Context, _ string) (*birdeye.PriceSnapshot, error) {
	if f.priceErr != nil {
		return nil, f.priceErr
	}
	return &birdeye.PriceSnapshot{Value: 0.0042}, nil
}

func (f *fakeMarket) TokenSecurity(_ context.Context, _ string) (*birdeye.TokenSecurity, error) {
	return &birdeye.TokenSecurity{Top10HolderPercent: 34.5}, nil
}

func (f *fakeMarket) TokenTradeData(_ context.Context, _ string) (*birdeye.TokenTradeData, error) {
	if f.tradeErr != nil {
		return nil, f.tradeErr
	}
	return &birdeye.TokenTradeData{
		PriceChange24hPercent:  12.5,
		Volume24h:              10_000,
		Volume24hChangePercent: 80,
		Trade24h:               420,
		Trade24hChangePercent:  -5,
		UniqueWallet24h:        150,
	}, nil
}

func (f *fakeMarket) Portfolio(_ context.Context, _ string) (*birdeye.Portfolio, error) {
	if f.portfolioErr != nil {
		return nil, f.portfolioErr
	}
	return f.portfolio, nil
}

type fakePairs struct {
	pair *dexscreener.Pair
	err  error
}

func (f *fakePairs) BestPair(_ context.Context, _ string) (*dexscreener.Pair, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.pair, nil
}

func TestPortfolioReport(t *testing.T) {
	market := &fakeMarket{portfolio: &birdeye.Portfolio{
		Wallet:      "wallet-1",
		TotalUsd:    160,
		TotalNative: 3.2,
		Items: []birdeye.PortfolioItem{
			{Symbol: "BONK", UIAmount: 1000, ValueUsd: 100},
			{Address: "addr-no-symbol", UIAmount: 5, ValueUsd: 60},
		},
	}}
	s := NewService(market, &fakePairs{}, zap.NewNop())

	out := s.PortfolioReport(context.Background(), "wallet-1")

	assert.Contains(t, out, "Portfolio for wallet-1")
	assert.Contains(t, out, "$160.00")
	assert.Contains(t, out, "BONK")
	assert.Contains(t, out, "addr-no-symbol")
}

func TestPortfolioReportFallback(t *testing.T) {
	market := &fakeMarket{portfolioErr: errors.New("upstream down")}
	s := NewService(market, &fakePairs{}, zap.NewNop())

	assert.Equal(t, "Unable to fetch portfolio data.", s.PortfolioReport(context.Background(), "wallet-1"))
}

func TestTokenReport(t *testing.T) {
	pair := &dexscreener.Pair{
		PairAddress: "pair-1",
		DexID:       "raydium",
		MarketCap:   1_000_000,
		Liquidity:   dexscreener.Liquidity{Usd: 50_000},
	}
	s := NewService(&fakeMarket{}, &fakePairs{pair: pair}, zap.NewNop())

	out := s.TokenReport(context.Background(), "tok-1")

	assert.Contains(t, out, "Price: $0.004200")
	assert.Contains(t, out, "12.50%")
	assert.Contains(t, out, "Top 10 holders: 34.50%")
	assert.Contains(t, out, "pair-1 on raydium")
}

func TestTokenReportWithoutPairData(t *testing.T) {
	s := NewService(&fakeMarket{}, &fakePairs{err: errors.New("no pairs")}, zap.NewNop())

	out := s.TokenReport(context.Background(), "tok-1")

	assert.Contains(t, out, "Price: $0.004200")
	assert.NotContains(t, out, "Best pair")
}

func TestTokenReportFallback(t *testing.T) {
	s := NewService(&fakeMarket{priceErr: errors.New("upstream down")}, &fakePairs{}, zap.NewNop())
	assert.Equal(t, "Unable to fetch token data.", s.TokenReport(context.Background(), "tok-1"))

	s = NewService(&fakeMarket{tradeErr: errors.New("upstream down")}, &fakePairs{}, zap.NewNop())
	assert.Equal(t, "Unable to fetch token data.", s.TokenReport(context.Background(), "tok-1"))
}
