// internal/trust/engine.go
package trust

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rovshanmuradov/trust-engine/internal/providers/birdeye"
	"github.com/rovshanmuradov/trust-engine/internal/providers/dexscreener"
	"github.com/rovshanmuradov/trust-engine/internal/storage"
	"github.com/rovshanmuradov/trust-engine/internal/storage/models"
	"go.uber.org/zap"
)

// ErrNoOpenTrade signals that sell settlement found no matching buy. It is
// an expected outcome, not a failure: duplicate sell directives resolve to it.
var ErrNoOpenTrade = errors.New("trust: no open trade")

// MarketData is the market-data collaborator consumed by the engine.
type MarketData interface {
	Price(ctx context.Context, tokenAddress string) (*birdeye.PriceSnapshot, error)
	TokenSecurity(ctx context.Context, tokenAddress string) (*birdeye.TokenSecurity, error)
	TokenTradeData(ctx context.Context, tokenAddress string) (*birdeye.TokenTradeData, error)
	WalletBalance(ctx context.Context, walletAddress string) (float64, error)
}

// PairData resolves the most liquid trading pair for a token.
type PairData interface {
	BestPair(ctx context.Context, tokenAddress string) (*dexscreener.Pair, error)
}

// Mirror forwards writes to the external analytics backend, best-effort.
type Mirror interface {
	MirrorTradePerformance(ctx context.Context, trade *models.TradePerformance)
	MirrorRecommender(ctx context.Context, r *models.Recommender)
}

// PositionMonitor is notified when a new position needs sell monitoring.
type PositionMonitor interface {
	StartMonitoring(ctx context.Context, req MonitorRequest)
}

// MonitorRequest describes one position to monitor.
type MonitorRequest struct {
	TokenAddress     string
	Balance          float64
	IsSimulation     bool
	RecommenderID    string
	InitialMarketCap float64
	WalletAddress    string
}

// TradeData is the input to CreateTradePerformance. BuyAmount is the token
// quantity bought.
type TradeData struct {
	TokenAddress  string
	RecommenderID string
	BuyAmount     float64
	IsSimulation  bool
	WalletAddress string
}

// SellDetails is the input to UpdateSellDetails.
type SellDetails struct {
	TokenAddress  string
	RecommenderID string
	SellAmount    float64
	IsSimulation  bool
}

// SellSummary is the computed outcome of one sell settlement.
type SellSummary struct {
	TokenAddress     string
	RecommenderID    string
	SellPrice        float64
	SellAmount       float64
	SellValueUsd     float64
	ProfitUsd        float64
	ProfitPercent    float64
	MarketCapChange  float64
	LiquidityChange  float64
	RemainingBalance float64
}

// TrustScoreResult is the read-only projection returned by GenerateTrustScore.
type TrustScoreResult struct {
	TokenPerformance models.TokenPerformance
	Metrics          models.RecommenderMetrics
}

// TokenRecommendationSummary aggregates all recommendations of one token.
type TokenRecommendationSummary struct {
	TokenAddress        string
	Recommenders        int
	AvgTrustScore       float64
	AvgRiskScore        float64
	AvgConsistencyScore float64
}

// Engine computes and persists trust metrics for recommenders and positions.
type Engine struct {
	store   storage.Storage
	market  MarketData
	pairs   PairData
	mirror  Mirror
	monitor PositionMonitor
	params  ScoringParams
	logger  *zap.Logger
	now     func() time.Time
}

func NewEngine(store storage.Storage, market MarketData, pairs PairData, params ScoringParams, logger *zap.Logger) *Engine {
	return &Engine{
		store:  store,
		market: market,
		pairs:  pairs,
		params: params,
		logger: logger.Named("trust"),
		now:    time.Now,
	}
}

// SetMirror attaches the optional analytics mirror.
func (e *Engine) SetMirror(m Mirror) { e.mirror = m }

// SetPositionMonitor attaches the selling orchestrator. Set after
// construction because the orchestrator also depends on the engine.
func (e *Engine) SetPositionMonitor(m PositionMonitor) { e.monitor = m }

// GetOrCreateRecommender upserts a recommender by identity. Idempotent and
// safe under concurrency: every caller converges on one stored record.
func (e *Engine) GetOrCreateRecommender(ctx context.Context, r *models.Recommender) (*models.Recommender, error) {
	if r.RecommenderID == "" {
		r.RecommenderID = uuid.New().String()
	}

	stored, err := e.store.GetOrCreateRecommender(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("get or create recommender: %w", err)
	}

	if e.mirror != nil {
		e.mirror.MirrorRecommender(ctx, stored)
	}

	return stored, nil
}

// GenerateTrustScore computes fresh risk flags and a decayed trust score for
// one recommendation without persisting anything.
func (e *Engine) GenerateTrustScore(ctx context.Context, tokenAddress, recommenderID, recommenderWallet string) (*TrustScoreResult, error) {
	td, err := e.market.TokenTradeData(ctx, tokenAddress)
	if err != nil {
		return nil, fmt.Errorf("fetch trade data: %w", err)
	}

	validationTrust, err := e.store.CalculateValidationTrust(ctx, tokenAddress)
	if err != nil {
		return nil, fmt.Errorf("calculate validation trust: %w", err)
	}

	prior, err := e.priorMetrics(ctx, recommenderID)
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	perf := models.TokenPerformance{
		TokenAddress:     tokenAddress,
		PriceChange24h:   td.PriceChange24hPercent,
		VolumeChange24h:  td.Volume24hChangePercent,
		TradeChange24h:   td.Trade24hChangePercent,
		RapidDump:        IsRapidDump(td),
		SustainedGrowth:  IsSustainedGrowth(td),
		SuspiciousVolume: IsSuspiciousVolume(td),
		ValidationTrust:  validationTrust,
		LastUpdated:      now,
	}

	walletBalance := 0.0
	if recommenderWallet != "" {
		balance, err := e.market.WalletBalance(ctx, recommenderWallet)
		if err != nil {
			e.logger.Warn("failed to fetch recommender wallet balance",
				zap.String("recommender_id", recommenderID),
				zap.Error(err))
		} else {
			walletBalance = balance
		}
	}

	metrics := *prior
	metrics.RecommenderID = recommenderID
	metrics.RiskScore = e.params.CalculateRiskScore(&perf)
	metrics.ConsistencyScore = CalculateConsistencyScore(&perf, prior)
	metrics.TrustDecay = e.params.DecayedTrustScore(prior.TrustScore, prior.LastActiveDate, now)
	metrics.VirtualConfidence = e.params.VirtualConfidence(walletBalance)

	return &TrustScoreResult{TokenPerformance: perf, Metrics: metrics}, nil
}

// UpdateRecommenderMetrics derives and persists new metrics from the prior
// state plus this token outcome, together with a history snapshot.
func (e *Engine) UpdateRecommenderMetrics(ctx context.Context, recommenderID string, perf *models.TokenPerformance, recommenderWallet string) error {
	prior, err := e.priorMetrics(ctx, recommenderID)
	if err != nil {
		return err
	}

	now := e.now().UTC()
	total := prior.TotalRecommendations + 1
	successful := prior.SuccessfulRecs
	if perf.PriceChange24h > 0 && !perf.RugPull && !perf.IsScam {
		successful++
	}
	avgPerformance := (prior.AvgTokenPerformance*float64(prior.TotalRecommendations) + perf.PriceChange24h) / float64(total)

	riskScore := e.params.CalculateRiskScore(perf)
	consistencyScore := CalculateConsistencyScore(perf, prior)
	trustScore := e.params.CalculateTrustScore(perf, prior)
	// the persisted decay stays within [0, trustScore]
	decayed := e.params.DecayedTrustScore(prior.TrustScore, prior.LastActiveDate, now)
	if decayed > trustScore {
		decayed = trustScore
	}
	if decayed < 0 {
		decayed = 0
	}

	walletBalance := 0.0
	if recommenderWallet != "" {
		balance, err := e.market.WalletBalance(ctx, recommenderWallet)
		if err != nil {
			e.logger.Warn("failed to fetch recommender wallet balance",
				zap.String("recommender_id", recommenderID),
				zap.Error(err))
		} else {
			walletBalance = balance
		}
	}

	updated := models.RecommenderMetrics{
		RecommenderID:        recommenderID,
		TrustScore:           trustScore,
		TotalRecommendations: total,
		SuccessfulRecs:       successful,
		AvgTokenPerformance:  avgPerformance,
		RiskScore:            riskScore,
		ConsistencyScore:     consistencyScore,
		VirtualConfidence:    e.params.VirtualConfidence(walletBalance),
		LastActiveDate:       now,
		TrustDecay:           decayed,
		LastUpdated:          now,
	}

	if err := e.store.SaveRecommenderMetrics(ctx, &updated); err != nil {
		return fmt.Errorf("save recommender metrics: %w", err)
	}

	history := models.RecommenderMetricsHistory{
		HistoryID:            uuid.New().String(),
		RecommenderID:        recommenderID,
		TrustScore:           updated.TrustScore,
		TotalRecommendations: updated.TotalRecommendations,
		SuccessfulRecs:       updated.SuccessfulRecs,
		AvgTokenPerformance:  updated.AvgTokenPerformance,
		RiskScore:            updated.RiskScore,
		ConsistencyScore:     updated.ConsistencyScore,
		VirtualConfidence:    updated.VirtualConfidence,
		TrustDecay:           updated.TrustDecay,
		RecordedAt:           now,
	}
	if err := e.store.AddMetricsHistory(ctx, &history); err != nil {
		return fmt.Errorf("record metrics history: %w", err)
	}

	e.logger.Info("recommender metrics updated",
		zap.String("recommender_id", recommenderID),
		zap.Float64("trust_score", updated.TrustScore),
		zap.Int("total_recommendations", updated.TotalRecommendations))

	return nil
}

// CreateTradePerformance records a buy: persists the trade row, upserts the
// token performance, appends a recommendation, logs a transaction when
// simulated and hands the position to the selling orchestrator.
func (e *Engine) CreateTradePerformance(ctx context.Context, data *TradeData) (*models.TradePerformance, error) {
	price, err := e.market.Price(ctx, data.TokenAddress)
	if err != nil {
		return nil, fmt.Errorf("fetch buy price: %w", err)
	}

	var marketCap, liquidity float64
	if pair, err := e.pairs.BestPair(ctx, data.TokenAddress); err != nil {
		e.logger.Warn("no pair data at buy time",
			zap.String("token", data.TokenAddress),
			zap.Error(err))
	} else {
		marketCap = pair.MarketCap
		liquidity = pair.Liquidity.Usd
	}

	now := e.now().UTC()
	trade := models.TradePerformance{
		TokenAddress:  data.TokenAddress,
		RecommenderID: data.RecommenderID,
		BuyTimestamp:  now,
		BuyPrice:      price.Value,
		BuyAmount:     data.BuyAmount,
		BuyValueUsd:   data.BuyAmount * price.Value,
		BuyMarketCap:  marketCap,
		BuyLiquidity:  liquidity,
		IsSimulation:  data.IsSimulation,
	}
	if err := e.store.AddTradePerformance(ctx, &trade); err != nil {
		return nil, fmt.Errorf("save trade performance: %w", err)
	}

	perf := models.TokenPerformance{
		TokenAddress:     data.TokenAddress,
		InitialMarketCap: marketCap,
	}
	if existing, err := e.store.GetTokenPerformance(ctx, data.TokenAddress); err == nil {
		perf = *existing
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("load token performance: %w", err)
	}
	perf.Balance += data.BuyAmount
	perf.LastUpdated = now
	balance := perf.Balance
	if err := e.store.UpsertTokenPerformance(ctx, &perf); err != nil {
		return nil, fmt.Errorf("upsert token performance: %w", err)
	}

	rec := models.TokenRecommendation{
		RecommendationID: uuid.New().String(),
		RecommenderID:    data.RecommenderID,
		TokenAddress:     data.TokenAddress,
		Timestamp:        now,
		InitialMarketCap: marketCap,
		InitialLiquidity: liquidity,
		InitialPrice:     price.Value,
	}
	if err := e.store.AddTokenRecommendation(ctx, &rec); err != nil {
		return nil, fmt.Errorf("save token recommendation: %w", err)
	}

	if data.IsSimulation {
		tx := models.Transaction{
			TokenAddress:    data.TokenAddress,
			TransactionHash: uuid.New().String(),
			Type:            "buy",
			Amount:          data.BuyAmount,
			Price:           price.Value,
			IsSimulation:    true,
			Timestamp:       now,
		}
		if err := e.store.AddTransaction(ctx, &tx); err != nil {
			return nil, fmt.Errorf("save buy transaction: %w", err)
		}
	}

	if e.monitor != nil {
		e.monitor.StartMonitoring(ctx, MonitorRequest{
			TokenAddress:     data.TokenAddress,
			Balance:          balance,
			IsSimulation:     data.IsSimulation,
			RecommenderID:    data.RecommenderID,
			InitialMarketCap: marketCap,
			WalletAddress:    data.WalletAddress,
		})
	}

	if e.mirror != nil {
		e.mirror.MirrorTradePerformance(ctx, &trade)
	}

	e.logger.Info("trade performance created",
		zap.String("token", data.TokenAddress),
		zap.String("recommender_id", data.RecommenderID),
		zap.Float64("buy_amount", data.BuyAmount),
		zap.Float64("buy_price", price.Value),
		zap.Bool("is_simulation", data.IsSimulation))

	return &trade, nil
}

// UpdateSellDetails settles a sell against the latest open buy. When no open
// trade exists the result is ErrNoOpenTrade and nothing is mutated.
func (e *Engine) UpdateSellDetails(ctx context.Context, details *SellDetails) (*SellSummary, error) {
	trade, err := e.store.GetLatestTradePerformance(ctx, details.TokenAddress, details.RecommenderID, details.IsSimulation)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNoOpenTrade
		}
		return nil, fmt.Errorf("load open trade: %w", err)
	}

	price, err := e.market.Price(ctx, details.TokenAddress)
	if err != nil {
		return nil, fmt.Errorf("fetch sell price: %w", err)
	}

	var sellMarketCap, sellLiquidity float64
	if pair, err := e.pairs.BestPair(ctx, details.TokenAddress); err != nil {
		e.logger.Warn("no pair data at sell time",
			zap.String("token", details.TokenAddress),
			zap.Error(err))
	} else {
		sellMarketCap = pair.MarketCap
		sellLiquidity = pair.Liquidity.Usd
	}

	rapidDump := false
	if td, err := e.market.TokenTradeData(ctx, details.TokenAddress); err == nil {
		rapidDump = IsRapidDump(td)
	}

	now := e.now().UTC()
	sellValueUsd := details.SellAmount * price.Value
	profitUsd := sellValueUsd - trade.BuyValueUsd
	profitPercent := 0.0
	if trade.BuyValueUsd != 0 {
		profitPercent = profitUsd / trade.BuyValueUsd * 100
	}

	trade.SellTimestamp = &now
	trade.SellPrice = price.Value
	trade.SellAmount = details.SellAmount
	trade.SellValueUsd = sellValueUsd
	trade.SellMarketCap = sellMarketCap
	trade.SellLiquidity = sellLiquidity
	trade.ProfitUsd = profitUsd
	trade.ProfitPercent = profitPercent
	trade.MarketCapChange = sellMarketCap - trade.BuyMarketCap
	trade.LiquidityChange = sellLiquidity - trade.BuyLiquidity
	trade.RapidDump = rapidDump

	if err := e.store.UpdateTradePerformanceOnSell(ctx, trade); err != nil {
		return nil, fmt.Errorf("update trade on sell: %w", err)
	}

	remaining := 0.0
	if perf, err := e.store.GetTokenPerformance(ctx, details.TokenAddress); err == nil {
		remaining = perf.Balance - details.SellAmount
		if remaining < 0 {
			remaining = 0
		}
		if err := e.store.UpdateTokenBalance(ctx, details.TokenAddress, remaining); err != nil {
			return nil, fmt.Errorf("update token balance: %w", err)
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("load token performance: %w", err)
	}

	tx := models.Transaction{
		TokenAddress:    details.TokenAddress,
		TransactionHash: uuid.New().String(),
		Type:            "sell",
		Amount:          details.SellAmount,
		Price:           price.Value,
		IsSimulation:    details.IsSimulation,
		Timestamp:       now,
	}
	if err := e.store.AddTransaction(ctx, &tx); err != nil {
		return nil, fmt.Errorf("save sell transaction: %w", err)
	}

	e.logger.Info("sell settled",
		zap.String("token", details.TokenAddress),
		zap.String("recommender_id", details.RecommenderID),
		zap.Float64("sell_amount", details.SellAmount),
		zap.Float64("profit_usd", profitUsd),
		zap.Float64("profit_percent", profitPercent))

	return &SellSummary{
		TokenAddress:     details.TokenAddress,
		RecommenderID:    details.RecommenderID,
		SellPrice:        price.Value,
		SellAmount:       details.SellAmount,
		SellValueUsd:     sellValueUsd,
		ProfitUsd:        profitUsd,
		ProfitPercent:    profitPercent,
		MarketCapChange:  trade.MarketCapChange,
		LiquidityChange:  trade.LiquidityChange,
		RemainingBalance: remaining,
	}, nil
}

// GetRecommendations aggregates recommendations in the date range per token,
// averaging trust, risk and consistency across the recommenders involved,
// sorted descending by average trust score.
func (e *Engine) GetRecommendations(ctx context.Context, start, end time.Time) ([]TokenRecommendationSummary, error) {
	recs, err := e.store.ListRecommendationsByDateRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}

	type agg struct {
		recommenders map[string]struct{}
		trustSum     float64
		riskSum      float64
		consistSum   float64
		count        int
	}
	byToken := make(map[string]*agg)

	for _, rec := range recs {
		a, ok := byToken[rec.TokenAddress]
		if !ok {
			a = &agg{recommenders: make(map[string]struct{})}
			byToken[rec.TokenAddress] = a
		}
		// each recommender contributes once per token regardless of how
		// many times it recommended it
		if _, counted := a.recommenders[rec.RecommenderID]; counted {
			continue
		}
		a.recommenders[rec.RecommenderID] = struct{}{}

		metrics, err := e.store.GetRecommenderMetrics(ctx, rec.RecommenderID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("load metrics for %s: %w", rec.RecommenderID, err)
		}
		a.trustSum += metrics.TrustScore
		a.riskSum += metrics.RiskScore
		a.consistSum += metrics.ConsistencyScore
		a.count++
	}

	out := make([]TokenRecommendationSummary, 0, len(byToken))
	for token, a := range byToken {
		summary := TokenRecommendationSummary{
			TokenAddress: token,
			Recommenders: len(a.recommenders),
		}
		if a.count > 0 {
			summary.AvgTrustScore = a.trustSum / float64(a.count)
			summary.AvgRiskScore = a.riskSum / float64(a.count)
			summary.AvgConsistencyScore = a.consistSum / float64(a.count)
		}
		out = append(out, summary)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].AvgTrustScore > out[j].AvgTrustScore
	})
	return out, nil
}

// priorMetrics loads the recommender's metrics, falling back to a zeroed
// aggregate for first-time recommenders.
func (e *Engine) priorMetrics(ctx context.Context, recommenderID string) (*models.RecommenderMetrics, error) {
	metrics, err := e.store.GetRecommenderMetrics(ctx, recommenderID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &models.RecommenderMetrics{RecommenderID: recommenderID}, nil
		}
		return nil, fmt.Errorf("load recommender metrics: %w", err)
	}
	return metrics, nil
}
