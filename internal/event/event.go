// Package event defines the outbound event contract and its publishers.
//
// Delivery is at-most-once and best-effort: the prediction engine never
// blocks on, retries, or fails a wager because of publishing. Publishers
// exist for Redis pub/sub, Kafka, and a WebSocket fan-out hub.
package event

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Activity is broadcast on the global activity feed after every wager.
type Activity struct {
	ID      string          `json:"id"`      // prediction ID
	User    string          `json:"user"`    // bettor username
	Amount  decimal.Decimal `json:"amount"`  // gross wager amount
	Match   string          `json:"match"`   // match label
	Outcome string          `json:"outcome"` // chosen outcome name
	Time    time.Time       `json:"time"`
}

// OutcomeOdds is one outcome's refreshed odds inside an OddsUpdate.
type OutcomeOdds struct {
	ID   string          `json:"id"`
	Odds decimal.Decimal `json:"odds"`
}

// OddsUpdate carries the refreshed per-outcome odds for one market,
// broadcast on the per-match topic after every wager.
type OddsUpdate struct {
	MatchID  string        `json:"matchId"`
	MarketID string        `json:"marketId"`
	Outcomes []OutcomeOdds `json:"outcomes"`
}

// Publisher broadcasts domain events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	PublishActivity(ctx context.Context, a Activity) error
	PublishOddsUpdate(ctx context.Context, u OddsUpdate) error
}

// Nop is a Publisher that discards everything.
type Nop struct{}

func (Nop) PublishActivity(context.Context, Activity) error     { return nil }
func (Nop) PublishOddsUpdate(context.Context, OddsUpdate) error { return nil }

// Multi fans events out to several publishers. Every publisher is
// attempted; errors are joined rather than short-circuiting.
type Multi []Publisher

func (m Multi) PublishActivity(ctx context.Context, a Activity) error {
	var errs []error
	for _, p := range m {
		if err := p.PublishActivity(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) PublishOddsUpdate(ctx context.Context, u OddsUpdate) error {
	var errs []error
	for _, p := range m {
		if err := p.PublishOddsUpdate(ctx, u); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
