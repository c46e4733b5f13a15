// Package referral implements the instant referral reward cascade.
//
// When a referred user places a wager, their direct (level-1) referrer
// earns a configured percentage of the net stake, credited inside the
// same transaction as the wager so the reward can never outlive a
// rolled-back bet.
package referral

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/crickpool/prediction-engine/internal/model"
	"github.com/crickpool/prediction-engine/internal/store"
)

// NotificationKind is the kind attached to reward notifications.
const NotificationKind = "REFERRAL_REWARD"

// MoneyScale is the number of decimal places rewards are truncated to.
var MoneyScale int32 = 2

var oneHundred = decimal.NewFromInt(100)

// Cascade computes and credits instant referral rewards.
type Cascade struct {
	percent  decimal.Decimal // instant reward percent of net stake
	currency string
	now      func() time.Time
}

// NewCascade creates a cascade paying the given percent of each net
// stake. A non-positive percent disables the cascade entirely.
func NewCascade(instantPercent decimal.Decimal, currency string) *Cascade {
	return &Cascade{
		percent:  instantPercent,
		currency: currency,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run executes the cascade for one wager inside the caller's transaction
// scope. It reports whether a reward was credited; a missing edge or a
// zero reward is a silent no-op, not an error.
func (c *Cascade) Run(ctx context.Context, tx store.Store, refereeID, predictionID string, netStake decimal.Decimal) (bool, error) {
	if c == nil || !c.percent.IsPositive() {
		return false, nil
	}

	edge, err := tx.DirectEdge(ctx, refereeID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("referral: look up edge: %w", err)
	}

	reward := netStake.Mul(c.percent).Div(oneHundred).RoundDown(MoneyScale)
	if !reward.IsPositive() {
		return false, nil
	}

	now := c.now()
	rec := &model.ReferralReward{
		ID:           uuid.New().String(),
		EdgeID:       edge.ID,
		ReferrerID:   edge.ReferrerID,
		RefereeID:    refereeID,
		PredictionID: predictionID,
		Amount:       reward,
		CreatedAt:    now,
	}
	if err := tx.InsertReward(ctx, rec); err != nil {
		return false, fmt.Errorf("referral: insert reward: %w", err)
	}

	newBalance, err := tx.Credit(ctx, edge.ReferrerID, c.currency, reward)
	if err != nil {
		return false, fmt.Errorf("referral: credit referrer: %w", err)
	}

	if err := tx.AddEdgeEarnings(ctx, edge.ID, reward); err != nil {
		return false, fmt.Errorf("referral: bump edge earnings: %w", err)
	}

	if err := tx.AppendTransaction(ctx, &model.Transaction{
		ID:           uuid.New().String(),
		UserID:       edge.ReferrerID,
		Currency:     c.currency,
		Type:         model.TxReferralReward,
		Amount:       reward,
		BalanceAfter: newBalance,
		Reference:    rec.ID,
		CreatedAt:    now,
	}); err != nil {
		return false, fmt.Errorf("referral: append transaction: %w", err)
	}

	if err := tx.InsertNotification(ctx, &model.Notification{
		ID:        uuid.New().String(),
		UserID:    edge.ReferrerID,
		Kind:      NotificationKind,
		Body:      fmt.Sprintf("You earned %s %s from a referral's wager", reward, c.currency),
		CreatedAt: now,
	}); err != nil {
		return false, fmt.Errorf("referral: insert notification: %w", err)
	}
	return true, nil
}
