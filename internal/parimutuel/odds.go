// Package parimutuel implements the pooled-liquidity odds model used for
// all cricket prediction markets.
//
// All stakes on one market form a shared pool; payout odds are derived
// from the pool's internal distribution rather than fixed in advance. A
// virtual liquidity seed acts as phantom volume backing the whole market,
// distributed evenly across outcomes, so odds are defined before real
// wagers exist and compress naturally toward 1 as the pool concentrates
// on one side.
//
// All monetary values use shopspring/decimal — never float64 for money.
// Odds always round DOWN to 2 decimal places (truncation, never
// round-to-nearest): the pool keeps the rounding remainder, not the
// bettor.
package parimutuel

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrNoOutcomes is returned when a pool is built with no outcomes.
	ErrNoOutcomes = errors.New("parimutuel: market must have at least one outcome")

	// ErrNegativeLiquidity is returned when the liquidity seed is negative.
	ErrNegativeLiquidity = errors.New("parimutuel: liquidity seed must not be negative")

	// ErrInvalidStake is returned when the net stake is not positive.
	ErrInvalidStake = errors.New("parimutuel: net stake must be positive")

	// ErrUnknownOutcome is returned when quoting an outcome the pool
	// does not contain.
	ErrUnknownOutcome = errors.New("parimutuel: outcome not in pool")

	// MinOdds is the floor applied to every computed odds value. A
	// losing stake never multiplies below the stake itself.
	MinOdds = decimal.NewFromInt(1)

	// OddsScale is the number of decimal places odds are truncated to.
	OddsScale int32 = 2

	// MoneyScale is the number of decimal places payouts are truncated to.
	MoneyScale int32 = 2
)

// OutcomeVolume is one outcome's cumulative net-wager volume, used to
// build a Pool from persisted market state.
type OutcomeVolume struct {
	ID     string
	Volume decimal.Decimal
}

// OutcomeOdds is a refreshed odds snapshot for one outcome.
type OutcomeOdds struct {
	ID   string          `json:"id"`
	Odds decimal.Decimal `json:"odds"`
}

// Quote is the result of pricing one wager against the pool.
type Quote struct {
	// ExecutionOdds is the frozen price for the chosen outcome,
	// including the incoming stake's own dilution of the pool.
	ExecutionOdds decimal.Decimal

	// PotentialPayout is netStake × ExecutionOdds, truncated to 2dp.
	PotentialPayout decimal.Decimal

	// TotalPool is the market's new total backing: prior volume +
	// liquidity seed + incoming stake.
	TotalPool decimal.Decimal

	// Outcomes holds refreshed odds for every outcome in the market,
	// in pool order. The chosen outcome carries ExecutionOdds.
	Outcomes []OutcomeOdds
}

// Pool is an immutable snapshot of one market's volume state. It is
// stateless with respect to execution: Quote does not mutate the pool.
type Pool struct {
	totalVolume    decimal.Decimal
	liquidity      decimal.Decimal
	liquidityShare decimal.Decimal // liquidity / outcome count
	outcomes       []OutcomeVolume
	index          map[string]int
}

// NewPool builds a pool snapshot from persisted market state.
func NewPool(totalVolume, liquidity decimal.Decimal, outcomes []OutcomeVolume) (*Pool, error) {
	if len(outcomes) == 0 {
		return nil, ErrNoOutcomes
	}
	if liquidity.IsNegative() {
		return nil, ErrNegativeLiquidity
	}

	index := make(map[string]int, len(outcomes))
	for i, o := range outcomes {
		index[o.ID] = i
	}

	return &Pool{
		totalVolume:    totalVolume,
		liquidity:      liquidity,
		liquidityShare: liquidity.Div(decimal.NewFromInt(int64(len(outcomes)))),
		outcomes:       outcomes,
		index:          index,
	}, nil
}

// Quote prices a net stake against the chosen outcome and refreshes odds
// for every outcome in the market, so market-wide odds stay internally
// consistent (total implied payout ≈ total pool).
//
//	totalPool        = V + L + s
//	chosen pool      = Ov + L/N + s
//	sibling pool_i   = Ov_i + L/N
//	odds             = truncate(totalPool / pool, 2dp), floored at 1.00
func (p *Pool) Quote(outcomeID string, netStake decimal.Decimal) (*Quote, error) {
	if !netStake.IsPositive() {
		return nil, ErrInvalidStake
	}
	chosen, ok := p.index[outcomeID]
	if !ok {
		return nil, ErrUnknownOutcome
	}

	totalPool := p.totalVolume.Add(p.liquidity).Add(netStake)

	refreshed := make([]OutcomeOdds, len(p.outcomes))
	var executionOdds decimal.Decimal

	for i, o := range p.outcomes {
		outcomePool := o.Volume.Add(p.liquidityShare)
		if i == chosen {
			outcomePool = outcomePool.Add(netStake)
		}
		odds := impliedOdds(totalPool, outcomePool)
		refreshed[i] = OutcomeOdds{ID: o.ID, Odds: odds}
		if i == chosen {
			executionOdds = odds
		}
	}

	return &Quote{
		ExecutionOdds:   executionOdds,
		PotentialPayout: netStake.Mul(executionOdds).RoundDown(MoneyScale),
		TotalPool:       totalPool,
		Outcomes:        refreshed,
	}, nil
}

// impliedOdds divides the total pool by one outcome's pool, truncating
// down to OddsScale. A zero outcome pool is treated as 1 to avoid
// division by zero; results are floored at MinOdds.
func impliedOdds(totalPool, outcomePool decimal.Decimal) decimal.Decimal {
	if outcomePool.IsZero() {
		outcomePool = decimal.NewFromInt(1)
	}
	odds := totalPool.Div(outcomePool).RoundDown(OddsScale)
	if odds.LessThan(MinOdds) {
		return MinOdds
	}
	return odds
}
