// Package fee implements the tiered platform fee policy. Computing a fee
// is deterministic and side-effect free; the schedule is configuration.
//
// All monetary values use shopspring/decimal — never float64 for money.
package fee

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Tier is a user's fee tier. Higher tiers pay lower fees; a schedule must
// be monotonic non-increasing in tier rank.
type Tier string

const (
	TierStandard Tier = "STANDARD"
	TierSilver   Tier = "SILVER"
	TierGold     Tier = "GOLD"
	TierPlatinum Tier = "PLATINUM"
)

// tierRank orders tiers from lowest to highest.
var tierRank = []Tier{TierStandard, TierSilver, TierGold, TierPlatinum}

var (
	// ErrInvalidPercent is returned for a schedule entry outside [0, 100].
	ErrInvalidPercent = errors.New("fee: percent must be in [0, 100]")

	// ErrNotMonotonic is returned when a higher tier would pay a higher
	// fee percent than a lower one.
	ErrNotMonotonic = errors.New("fee: schedule must be non-increasing in tier rank")
)

// MoneyScale is the number of decimal places fees are truncated to.
// Always round-down: the remainder stays with the bettor, never charged.
var MoneyScale int32 = 2

var oneHundred = decimal.NewFromInt(100)

// Policy maps tiers to fee percentages.
type Policy struct {
	schedule map[Tier]decimal.Decimal
}

// NewPolicy validates and builds a fee policy. Every known tier must be
// present in the schedule.
func NewPolicy(schedule map[Tier]decimal.Decimal) (*Policy, error) {
	prev := oneHundred
	for _, tier := range tierRank {
		pct, ok := schedule[tier]
		if !ok {
			return nil, fmt.Errorf("fee: schedule missing tier %s", tier)
		}
		if pct.IsNegative() || pct.GreaterThan(oneHundred) {
			return nil, ErrInvalidPercent
		}
		if pct.GreaterThan(prev) {
			return nil, ErrNotMonotonic
		}
		prev = pct
	}

	copied := make(map[Tier]decimal.Decimal, len(schedule))
	for k, v := range schedule {
		copied[k] = v
	}
	return &Policy{schedule: copied}, nil
}

// DefaultPolicy returns the production fee schedule.
func DefaultPolicy() *Policy {
	p, err := NewPolicy(map[Tier]decimal.Decimal{
		TierStandard: decimal.NewFromFloat(3.0),
		TierSilver:   decimal.NewFromFloat(2.5),
		TierGold:     decimal.NewFromFloat(2.0),
		TierPlatinum: decimal.NewFromFloat(1.5),
	})
	if err != nil {
		panic(err) // static schedule, cannot fail
	}
	return p
}

// ZeroPolicy returns a policy that charges no fees on any tier.
func ZeroPolicy() *Policy {
	p, err := NewPolicy(map[Tier]decimal.Decimal{
		TierStandard: decimal.Zero,
		TierSilver:   decimal.Zero,
		TierGold:     decimal.Zero,
		TierPlatinum: decimal.Zero,
	})
	if err != nil {
		panic(err)
	}
	return p
}

// Compute returns the fee for a wager amount at the given tier. Unknown
// tiers fall back to the STANDARD rate. The fee never exceeds the amount.
func (p *Policy) Compute(amount decimal.Decimal, tier Tier) decimal.Decimal {
	pct, ok := p.schedule[tier]
	if !ok {
		pct = p.schedule[TierStandard]
	}
	return ComputePercent(amount, pct)
}

// ComputePercent returns amount × percent / 100, truncated to 2dp and
// capped at the amount. Used directly for markets carrying a flat
// fee-percent override.
func ComputePercent(amount, percent decimal.Decimal) decimal.Decimal {
	if !amount.IsPositive() || !percent.IsPositive() {
		return decimal.Zero
	}
	f := amount.Mul(percent).Div(oneHundred).RoundDown(MoneyScale)
	if f.GreaterThan(amount) {
		return amount
	}
	return f
}
