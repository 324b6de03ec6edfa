// internal/simulation/directive.go
package simulation

import (
	"encoding/json"
	"errors"
	"fmt"
)

// SellDirective is the queue payload ordering one simulated sell.
type SellDirective struct {
	TokenAddress  string  `json:"tokenAddress"`
	Amount        float64 `json:"amount"`
	RecommenderID string  `json:"sell_recommender_id"`
}

func (d *SellDirective) validate() error {
	if d.TokenAddress == "" {
		return errors.New("sell directive: missing token address")
	}
	if d.RecommenderID == "" {
		return errors.New("sell directive: missing recommender id")
	}
	if d.Amount <= 0 {
		return fmt.Errorf("sell directive: non-positive amount %f", d.Amount)
	}
	return nil
}

func decodeDirective(data []byte) (*SellDirective, error) {
	var d SellDirective
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode sell directive: %w", err)
	}
	if err := d.validate(); err != nil {
		return nil, err
	}
	return &d, nil
}
