// internal/fetch/retry.go
package fetch

import (
	"math"
	"time"
)

// RetryPolicy controls the retry envelope of a request.
type RetryPolicy struct {
	MaxRetries        int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffFactor     float64
	RetryableStatuses []int
}

// DefaultRetryPolicy returns the standard envelope: 3 attempts, 1s initial
// delay doubling up to 30s, retrying on 408/429 and 5xx gateway statuses.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        3,
		InitialDelay:      time.Second,
		MaxDelay:          30 * time.Second,
		BackoffFactor:     2,
		RetryableStatuses: []int{408, 429, 500, 502, 503, 504},
	}
}

// Delay returns the sleep before retrying after the given 1-based attempt.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	scaled := float64(p.InitialDelay) * math.Pow(p.BackoffFactor, float64(attempt-1))
	if scaled > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(scaled)
}

// Retryable reports whether the HTTP status is in the retryable set.
func (p RetryPolicy) Retryable(status int) bool {
	for _, s := range p.RetryableStatuses {
		if s == status {
			return true
		}
	}
	return false
}
