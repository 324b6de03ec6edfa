// internal/storage/models/recommender.go
package models

import "time"

// Recommender is an identity whose token suggestions are tracked and scored.
// Identity fields are immutable once written; rows are never deleted.
type Recommender struct {
	BaseModel
	RecommenderID string `gorm:"uniqueIndex;not null;type:varchar(64)"`
	Address       string `gorm:"index;not null;type:varchar(64)"`
	SolanaPubkey  string `gorm:"index;type:varchar(44)"`
	TelegramID    string `gorm:"index;type:varchar(64)"`
	DiscordID     string `gorm:"index;type:varchar(64)"`
	TwitterID     string `gorm:"index;type:varchar(64)"`
	IP            string `gorm:"type:varchar(45)"`
}

// RecommenderMetrics is the one-per-recommender mutable aggregate. It is
// mutated only through the trust engine's update operation.
type RecommenderMetrics struct {
	BaseModel
	RecommenderID        string    `gorm:"uniqueIndex;not null;type:varchar(64)"`
	TrustScore           float64   `gorm:"not null;default:0"`
	TotalRecommendations int       `gorm:"not null;default:0"`
	SuccessfulRecs       int       `gorm:"not null;default:0"`
	AvgTokenPerformance  float64   `gorm:"not null;default:0"`
	RiskScore            float64   `gorm:"not null;default:0"`
	ConsistencyScore     float64   `gorm:"not null;default:0"`
	VirtualConfidence    float64   `gorm:"not null;default:0"`
	LastActiveDate       time.Time `gorm:"index"`
	TrustDecay           float64   `gorm:"not null;default:0"`
	LastUpdated          time.Time `gorm:"index"`
}

// RecommenderMetricsHistory is an append-only snapshot of metrics at a point
// in time, used for auditing decay and trends. Write-once.
type RecommenderMetricsHistory struct {
	BaseModel
	HistoryID            string    `gorm:"uniqueIndex;not null;type:varchar(64)"`
	RecommenderID        string    `gorm:"index;not null;type:varchar(64)"`
	TrustScore           float64   `gorm:"not null"`
	TotalRecommendations int       `gorm:"not null"`
	SuccessfulRecs       int       `gorm:"not null"`
	AvgTokenPerformance  float64   `gorm:"not null"`
	RiskScore            float64   `gorm:"not null"`
	ConsistencyScore     float64   `gorm:"not null"`
	VirtualConfidence    float64   `gorm:"not null"`
	TrustDecay           float64   `gorm:"not null"`
	RecordedAt           time.Time `gorm:"index;not null"`
}
