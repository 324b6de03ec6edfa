package trust

import (
	"math"
	"testing"
	"time"

	"github.com/rovshanmuradov/trust-engine/internal/providers/birdeye"
	"github.com/rovshanmuradov/trust-engine/internal/storage/models"
	"github.com/stretchr/testify/assert"
)

func TestCalculateRiskScore(t *testing.T) {
	params := DefaultScoringParams()

	tests := []struct {
		name string
		perf models.TokenPerformance
		want float64
	}{
		{"no flags", models.TokenPerformance{}, 0},
		{"rug pull only", models.TokenPerformance{RugPull: true}, 10},
		{"scam only", models.TokenPerformance{IsScam: true}, 10},
		{"rapid dump only", models.TokenPerformance{RapidDump: true}, 5},
		{"suspicious volume only", models.TokenPerformance{SuspiciousVolume: true}, 5},
		{"all flags", models.TokenPerformance{RugPull: true, IsScam: true, RapidDump: true, SuspiciousVolume: true}, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, params.CalculateRiskScore(&tt.perf))
		})
	}
}

func TestCalculateConsistencyScore(t *testing.T) {
	metrics := &models.RecommenderMetrics{AvgTokenPerformance: 10}

	assert.Equal(t, 5.0, CalculateConsistencyScore(&models.TokenPerformance{PriceChange24h: 15}, metrics))
	assert.Equal(t, 35.0, CalculateConsistencyScore(&models.TokenPerformance{PriceChange24h: -25}, metrics))
	assert.Equal(t, 0.0, CalculateConsistencyScore(&models.TokenPerformance{PriceChange24h: 10}, metrics))
}

func TestTrustAndOverallRiskScoresMatch(t *testing.T) {
	params := DefaultScoringParams()
	perf := &models.TokenPerformance{PriceChange24h: 42, RugPull: true, SuspiciousVolume: true}
	metrics := &models.RecommenderMetrics{AvgTokenPerformance: 12}

	trust := params.CalculateTrustScore(perf, metrics)
	overall := params.CalculateOverallRiskScore(perf, metrics)

	assert.Equal(t, trust, overall)
	assert.Equal(t, (15.0+30.0)/2, trust)
}

func TestIsRapidDumpBoundary(t *testing.T) {
	assert.False(t, IsRapidDump(&birdeye.TokenTradeData{Trade24hChangePercent: -50}))
	assert.True(t, IsRapidDump(&birdeye.TokenTradeData{Trade24hChangePercent: -50.01}))
	assert.False(t, IsRapidDump(&birdeye.TokenTradeData{Trade24hChangePercent: -10}))
}

func TestIsSustainedGrowthBoundary(t *testing.T) {
	assert.False(t, IsSustainedGrowth(&birdeye.TokenTradeData{Volume24hChangePercent: 50}))
	assert.True(t, IsSustainedGrowth(&birdeye.TokenTradeData{Volume24hChangePercent: 50.1}))
	assert.False(t, IsSustainedGrowth(&birdeye.TokenTradeData{Volume24hChangePercent: -80}))
}

func TestIsSuspiciousVolume(t *testing.T) {
	assert.True(t, IsSuspiciousVolume(&birdeye.TokenTradeData{UniqueWallet24h: 60, Volume24h: 100}))
	assert.False(t, IsSuspiciousVolume(&birdeye.TokenTradeData{UniqueWallet24h: 50, Volume24h: 100}))
	assert.False(t, IsSuspiciousVolume(&birdeye.TokenTradeData{UniqueWallet24h: 100, Volume24h: 0}))
}

func TestDecayedTrustScore(t *testing.T) {
	params := DefaultScoringParams()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("thirty days of inactivity", func(t *testing.T) {
		got := params.DecayedTrustScore(100, now.AddDate(0, 0, -30), now)
		assert.InDelta(t, 100*math.Pow(0.95, 30), got, 1e-9)
		assert.InDelta(t, 21.46, got, 0.01)
	})

	t.Run("decay clamps at thirty days", func(t *testing.T) {
		at30 := params.DecayedTrustScore(100, now.AddDate(0, 0, -30), now)
		at60 := params.DecayedTrustScore(100, now.AddDate(0, 0, -60), now)
		assert.Equal(t, at30, at60)
	})

	t.Run("same day keeps the score", func(t *testing.T) {
		assert.Equal(t, 80.0, params.DecayedTrustScore(80, now.Add(-2*time.Hour), now))
	})

	t.Run("zero last active date keeps the score", func(t *testing.T) {
		assert.Equal(t, 80.0, params.DecayedTrustScore(80, time.Time{}, now))
	})
}

func TestVirtualConfidence(t *testing.T) {
	params := DefaultScoringParams()
	assert.Equal(t, 2.5, params.VirtualConfidence(2_500_000))
	assert.Equal(t, 0.0, params.VirtualConfidence(0))
}
