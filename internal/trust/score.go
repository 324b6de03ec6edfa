// internal/trust/score.go
package trust

import (
	"math"
	"time"

	"github.com/rovshanmuradov/trust-engine/internal/providers/birdeye"
	"github.com/rovshanmuradov/trust-engine/internal/storage/models"
)

// ScoringParams holds the tunable weights of the scoring heuristics. The
// defaults reproduce the historical behavior; they are parameters rather
// than constants because the weighting has no derived formula yet.
type ScoringParams struct {
	WeightRugPull          float64
	WeightScam             float64
	WeightRapidDump        float64
	WeightSuspiciousVolume float64
	ConfidenceDivisor      float64
	DecayRate              float64
	MaxDecayDays           int
}

// DefaultScoringParams returns the standard weights: 10/10/5/5 risk flags,
// 0.95 daily decay clamped at 30 days, confidence divisor of one million.
func DefaultScoringParams() ScoringParams {
	return ScoringParams{
		WeightRugPull:          10,
		WeightScam:             10,
		WeightRapidDump:        5,
		WeightSuspiciousVolume: 5,
		ConfidenceDivisor:      1_000_000,
		DecayRate:              0.95,
		MaxDecayDays:           30,
	}
}

// CalculateRiskScore scores a token's risk from its boolean flags.
func (p ScoringParams) CalculateRiskScore(perf *models.TokenPerformance) float64 {
	var score float64
	if perf.RugPull {
		score += p.WeightRugPull
	}
	if perf.IsScam {
		score += p.WeightScam
	}
	if perf.RapidDump {
		score += p.WeightRapidDump
	}
	if perf.SuspiciousVolume {
		score += p.WeightSuspiciousVolume
	}
	return score
}

// CalculateConsistencyScore measures how far the token's 24h price change
// deviates from the recommender's historical average performance. Lower is
// more consistent; despite the name this is a deviation, not a percentage.
func CalculateConsistencyScore(perf *models.TokenPerformance, metrics *models.RecommenderMetrics) float64 {
	return math.Abs(perf.PriceChange24h - metrics.AvgTokenPerformance)
}

// CalculateTrustScore combines risk and consistency into one score.
func (p ScoringParams) CalculateTrustScore(perf *models.TokenPerformance, metrics *models.RecommenderMetrics) float64 {
	riskScore := p.CalculateRiskScore(perf)
	consistencyScore := CalculateConsistencyScore(perf, metrics)
	return (riskScore + consistencyScore) / 2
}

// CalculateOverallRiskScore computes the overall risk of a recommendation.
// It intentionally matches CalculateTrustScore; both entry points are kept
// because callers depend on both names.
func (p ScoringParams) CalculateOverallRiskScore(perf *models.TokenPerformance, metrics *models.RecommenderMetrics) float64 {
	riskScore := p.CalculateRiskScore(perf)
	consistencyScore := CalculateConsistencyScore(perf, metrics)
	return (riskScore + consistencyScore) / 2
}

// IsRapidDump reports a sharp drop in trade count over 24h. The -50 boundary
// itself is not a dump.
func IsRapidDump(td *birdeye.TokenTradeData) bool {
	return td.Trade24hChangePercent < -50
}

// IsSustainedGrowth reports strong 24h volume growth. The +50 boundary
// itself is not growth.
func IsSustainedGrowth(td *birdeye.TokenTradeData) bool {
	return td.Volume24hChangePercent > 50
}

// IsSuspiciousVolume reports a unique-wallet-to-volume ratio high enough to
// suggest wash trading.
func IsSuspiciousVolume(td *birdeye.TokenTradeData) bool {
	if td.Volume24h == 0 {
		return false
	}
	return float64(td.UniqueWallet24h)/td.Volume24h > 0.5
}

// DecayedTrustScore applies time decay to a prior trust score:
// priorScore · DecayRate^min(inactiveDays, MaxDecayDays).
func (p ScoringParams) DecayedTrustScore(priorScore float64, lastActiveDate, now time.Time) float64 {
	if lastActiveDate.IsZero() {
		return priorScore
	}
	inactiveDays := int(now.Sub(lastActiveDate).Hours() / 24)
	if inactiveDays < 0 {
		inactiveDays = 0
	}
	if inactiveDays > p.MaxDecayDays {
		inactiveDays = p.MaxDecayDays
	}
	return priorScore * math.Pow(p.DecayRate, float64(inactiveDays))
}

// VirtualConfidence scales a recommender's wallet balance into a confidence
// value. Linear placeholder, tunable through ConfidenceDivisor.
func (p ScoringParams) VirtualConfidence(walletBalance float64) float64 {
	return walletBalance / p.ConfidenceDivisor
}
