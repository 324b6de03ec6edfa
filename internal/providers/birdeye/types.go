// internal/providers/birdeye/types.go
package birdeye

// PriceSnapshot is the normalized price of one token.
type PriceSnapshot struct {
	Value           float64 `json:"value"`
	UpdateUnixTime  int64   `json:"updateUnixTime"`
	UpdateHumanTime string  `json:"updateHumanTime"`
}

// TokenSecurity is the normalized security profile of one token.
type TokenSecurity struct {
	OwnerBalance       float64 `json:"ownerBalance"`
	CreatorBalance     float64 `json:"creatorBalance"`
	OwnerPercentage    float64 `json:"ownerPercentage"`
	CreatorPercentage  float64 `json:"creatorPercentage"`
	Top10HolderBalance float64 `json:"top10HolderBalance"`
	Top10HolderPercent float64 `json:"top10HolderPercent"`
}

// TokenTradeData is the normalized short-window trade activity of one token.
type TokenTradeData struct {
	Price                  float64 `json:"price"`
	PriceChange24hPercent  float64 `json:"price_change_24h_percent"`
	Volume24h              float64 `json:"volume_24h"`
	Volume24hUsd           float64 `json:"volume_24h_usd"`
	Volume24hChangePercent float64 `json:"volume_24h_change_percent"`
	Trade24h               int64   `json:"trade_24h"`
	Trade24hChangePercent  float64 `json:"trade_24h_change_percent"`
	UniqueWallet24h        int64   `json:"unique_wallet_24h"`
	UniqueWallet24hChange  float64 `json:"unique_wallet_24h_change_percent"`
	LastTradeUnixTime      int64   `json:"last_trade_unix_time"`
}

// HolderBalance is one unique owner with its aggregated balance.
type HolderBalance struct {
	Owner   string  `json:"owner"`
	Balance float64 `json:"balance"`
}

// PortfolioItem is one wallet holding valued in USD and the native asset.
type PortfolioItem struct {
	Address     string  `json:"address"`
	Symbol      string  `json:"symbol"`
	Name        string  `json:"name"`
	Decimals    int     `json:"decimals"`
	UIAmount    float64 `json:"uiAmount"`
	PriceUsd    float64 `json:"priceUsd"`
	ValueUsd    float64 `json:"valueUsd"`
	ValueNative float64 `json:"valueNative"`
}

// Portfolio is a wallet's full holding list with totals.
type Portfolio struct {
	Wallet      string          `json:"wallet"`
	TotalUsd    float64         `json:"totalUsd"`
	TotalNative float64         `json:"totalNative"`
	Items       []PortfolioItem `json:"items"`
}
