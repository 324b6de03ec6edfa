// internal/storage/models/token.go
package models

import "time"

// TokenPerformance is the one-per-token mutable snapshot of market state.
// Upserted on every trade or scan; Balance is the only field mutated during
// sell settlement.
type TokenPerformance struct {
	BaseModel
	TokenAddress       string    `gorm:"uniqueIndex;not null;type:varchar(64)"`
	Symbol             string    `gorm:"type:varchar(32)"`
	PriceChange24h     float64   `gorm:"not null;default:0"`
	VolumeChange24h    float64   `gorm:"not null;default:0"`
	TradeChange24h     float64   `gorm:"not null;default:0"`
	LiquidityChange24h float64   `gorm:"not null;default:0"`
	HolderChange24h    float64   `gorm:"not null;default:0"`
	RugPull            bool      `gorm:"not null;default:false"`
	IsScam             bool      `gorm:"not null;default:false"`
	MarketCapChange24h float64   `gorm:"not null;default:0"`
	SustainedGrowth    bool      `gorm:"not null;default:false"`
	RapidDump          bool      `gorm:"not null;default:false"`
	SuspiciousVolume   bool      `gorm:"not null;default:false"`
	ValidationTrust    float64   `gorm:"not null;default:0"`
	Balance            float64   `gorm:"not null;default:0"`
	InitialMarketCap   float64   `gorm:"not null;default:0"`
	LastUpdated        time.Time `gorm:"index"`
}

// TokenRecommendation links a recommender to a token at a timestamp, with
// market state captured at recommendation time. Immutable once written.
type TokenRecommendation struct {
	BaseModel
	RecommendationID string    `gorm:"uniqueIndex;not null;type:varchar(64)"`
	RecommenderID    string    `gorm:"index;not null;type:varchar(64)"`
	TokenAddress     string    `gorm:"index;not null;type:varchar(64)"`
	Timestamp        time.Time `gorm:"index;not null"`
	InitialMarketCap float64   `gorm:"not null;default:0"`
	InitialLiquidity float64   `gorm:"not null;default:0"`
	InitialPrice     float64   `gorm:"not null;default:0"`
}
