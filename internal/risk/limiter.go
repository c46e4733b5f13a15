// Package risk enforces stake limits on wager placement.
//
// Two limits apply: a cap on any single wager, and a cap on a user's
// aggregate open stake within one market. The second exists because a
// user splitting one oversized position into many small wagers carries
// the same concentrated exposure as a single large one.
package risk

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrStakeTooLarge is returned when a single wager exceeds the
	// per-wager stake cap.
	ErrStakeTooLarge = errors.New("risk: wager exceeds maximum single stake")

	// ErrMarketExposureExceeded is returned when a wager would push the
	// user's aggregate open stake in one market beyond the cap.
	ErrMarketExposureExceeded = errors.New("risk: open stake in market exceeds limit")
)

// Limiter enforces stake limits. A zero limit disables that check.
type Limiter struct {
	// MaxStakePerWager is the maximum gross amount of one wager.
	MaxStakePerWager decimal.Decimal

	// MaxOpenStakePerMarket is the maximum aggregate open stake one
	// user may hold across all active predictions in one market,
	// including the incoming wager.
	MaxOpenStakePerMarket decimal.Decimal
}

// NewLimiter creates a limiter with the given caps. Pass zero for either
// to leave it unlimited.
func NewLimiter(maxStakePerWager, maxOpenStakePerMarket decimal.Decimal) *Limiter {
	return &Limiter{
		MaxStakePerWager:      maxStakePerWager,
		MaxOpenStakePerMarket: maxOpenStakePerMarket,
	}
}

// Check validates an incoming wager amount against the caps, given the
// user's existing open stake in the target market. Returns nil when the
// wager is within limits.
func (l *Limiter) Check(amount, existingOpenStake decimal.Decimal) error {
	if l == nil {
		return nil
	}
	if l.MaxStakePerWager.IsPositive() && amount.GreaterThan(l.MaxStakePerWager) {
		return ErrStakeTooLarge
	}
	if l.MaxOpenStakePerMarket.IsPositive() &&
		existingOpenStake.Add(amount).GreaterThan(l.MaxOpenStakePerMarket) {
		return ErrMarketExposureExceeded
	}
	return nil
}
