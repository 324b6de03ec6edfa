// internal/report/report.go
package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/rovshanmuradov/trust-engine/internal/providers/birdeye"
	"github.com/rovshanmuradov/trust-engine/internal/providers/dexscreener"
	"go.uber.org/zap"
)

// Fallback texts returned when upstream data cannot be fetched. Callers
// display them verbatim.
const (
	portfolioUnavailable = "Unable to fetch portfolio data."
	tokenUnavailable     = "Unable to fetch token data."
)

// MarketData is the subset of market lookups the reports need.
type MarketData interface {
	Price(ctx context.Context, tokenAddress string) (*birdeye.PriceSnapshot, error)
	TokenSecurity(ctx context.Context, tokenAddress string) (*birdeye.TokenSecurity, error)
	TokenTradeData(ctx context.Context, tokenAddress string) (*birdeye.TokenTradeData, error)
	Portfolio(ctx context.Context, walletAddress string) (*birdeye.Portfolio, error)
}

// PairData resolves the most liquid trading pair for a token.
type PairData interface {
	BestPair(ctx context.Context, tokenAddress string) (*dexscreener.Pair, error)
}

// Service renders human-readable summaries of wallets and tokens.
type Service struct {
	market MarketData
	pairs  PairData
	logger *zap.Logger
}

func NewService(market MarketData, pairs PairData, logger *zap.Logger) *Service {
	return &Service{
		market: market,
		pairs:  pairs,
		logger: logger.Named("report"),
	}
}

// PortfolioReport renders a wallet's holdings. Any fetch failure collapses
// into a fixed fallback line.
func (s *Service) PortfolioReport(ctx context.Context, walletAddress string) string {
	portfolio, err := s.market.Portfolio(ctx, walletAddress)
	if err != nil {
		s.logger.Warn("portfolio report failed",
			zap.String("wallet", walletAddress),
			zap.Error(err))
		return portfolioUnavailable
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Portfolio for %s\n", portfolio.Wallet)
	fmt.Fprintf(&b, "Total value: $%.2f (%.4f SOL)\n", portfolio.TotalUsd, portfolio.TotalNative)
	if len(portfolio.Items) == 0 {
		b.WriteString("No holdings.\n")
		return b.String()
	}
	b.WriteString("Holdings:\n")
	for _, item := range portfolio.Items {
		name := item.Symbol
		if name == "" {
			name = item.Address
		}
		fmt.Fprintf(&b, "  %s: %.4f ($%.2f)\n", name, item.UIAmount, item.ValueUsd)
	}
	return b.String()
}

// TokenReport renders one token's market state: price, 24h activity, holder
// concentration and the most liquid pair. Any fetch failure collapses into a
// fixed fallback line.
func (s *Service) TokenReport(ctx context.Context, tokenAddress string) string {
	price, err := s.market.Price(ctx, tokenAddress)
	if err != nil {
		s.logger.Warn("token report failed",
			zap.String("token", tokenAddress),
			zap.Error(err))
		return tokenUnavailable
	}
	td, err := s.market.TokenTradeData(ctx, tokenAddress)
	if err != nil {
		s.logger.Warn("token report failed",
			zap.String("token", tokenAddress),
			zap.Error(err))
		return tokenUnavailable
	}
	security, err := s.market.TokenSecurity(ctx, tokenAddress)
	if err != nil {
		s.logger.Warn("token report failed",
			zap.String("token", tokenAddress),
			zap.Error(err))
		return tokenUnavailable
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Token %s\n", tokenAddress)
	fmt.Fprintf(&b, "Price: $%.6f\n", price.Value)
	fmt.Fprintf(&b, "24h price change: %.2f%%\n", td.PriceChange24hPercent)
	fmt.Fprintf(&b, "24h volume: %.2f (%.2f%% change)\n", td.Volume24h, td.Volume24hChangePercent)
	fmt.Fprintf(&b, "24h trades: %d (%.2f%% change)\n", td.Trade24h, td.Trade24hChangePercent)
	fmt.Fprintf(&b, "Unique wallets 24h: %d\n", td.UniqueWallet24h)
	fmt.Fprintf(&b, "Top 10 holders: %.2f%%\n", security.Top10HolderPercent)

	// pair data enriches the report but is not required for it
	if pair, err := s.pairs.BestPair(ctx, tokenAddress); err != nil {
		s.logger.Debug("no pair data for token report",
			zap.String("token", tokenAddress),
			zap.Error(err))
	} else {
		fmt.Fprintf(&b, "Best pair: %s on %s (liquidity $%.2f, market cap $%.2f)\n",
			pair.PairAddress, pair.DexID, pair.Liquidity.Usd, pair.MarketCap)
	}
	return b.String()
}
