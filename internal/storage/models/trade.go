// internal/storage/models/trade.go
package models

import "time"

// TradePerformance is one row per buy, mutated exactly once by the matching
// sell. Keyed by (token_address, recommender_id, buy_timestamp); simulated
// and real trades share the same invariants, partitioned by IsSimulation.
type TradePerformance struct {
	BaseModel
	TokenAddress    string    `gorm:"index:idx_trade_key;not null;type:varchar(64)"`
	RecommenderID   string    `gorm:"index:idx_trade_key;not null;type:varchar(64)"`
	BuyTimestamp    time.Time `gorm:"index:idx_trade_key;not null"`
	BuyPrice        float64   `gorm:"not null"`
	BuyAmount       float64   `gorm:"not null"`
	BuyValueUsd     float64   `gorm:"not null"`
	BuyMarketCap    float64   `gorm:"not null;default:0"`
	BuyLiquidity    float64   `gorm:"not null;default:0"`
	SellTimestamp   *time.Time
	SellPrice       float64 `gorm:"not null;default:0"`
	SellAmount      float64 `gorm:"not null;default:0"`
	SellValueUsd    float64 `gorm:"not null;default:0"`
	SellMarketCap   float64 `gorm:"not null;default:0"`
	SellLiquidity   float64 `gorm:"not null;default:0"`
	ProfitUsd       float64 `gorm:"not null;default:0"`
	ProfitPercent   float64 `gorm:"not null;default:0"`
	MarketCapChange float64 `gorm:"not null;default:0"`
	LiquidityChange float64 `gorm:"not null;default:0"`
	RapidDump       bool    `gorm:"not null;default:false"`
	IsSimulation    bool    `gorm:"index;not null;default:true"`
}

// Transaction is an append-only ledger entry, one per executed trade leg.
type Transaction struct {
	BaseModel
	TokenAddress    string    `gorm:"index;not null;type:varchar(64)"`
	TransactionHash string    `gorm:"uniqueIndex;not null;type:varchar(128)"`
	Type            string    `gorm:"not null;type:varchar(8)"` // buy | sell
	Amount          float64   `gorm:"not null"`
	Price           float64   `gorm:"not null"`
	IsSimulation    bool      `gorm:"index;not null;default:true"`
	Timestamp       time.Time `gorm:"index;not null"`
}
