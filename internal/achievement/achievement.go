// Package achievement awards milestone notifications after wagers. The
// check runs detached from wager placement: failures are logged and
// never affect the committed wager.
package achievement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/crickpool/prediction-engine/internal/model"
	"github.com/crickpool/prediction-engine/internal/store"
)

// NotificationKind is the kind attached to achievement notifications.
const NotificationKind = "ACHIEVEMENT"

// milestones maps lifetime prediction counts to achievement names.
// Firing exactly at the count means each awards at most once.
var milestones = map[int64]string{
	1:   "First Prediction",
	10:  "Regular Punter",
	50:  "Seasoned Analyst",
	100: "Century Club",
}

// Checker awards milestone achievements.
type Checker struct {
	store store.Store
	now   func() time.Time
}

// NewChecker creates a milestone checker over the given store.
func NewChecker(st store.Store) *Checker {
	return &Checker{
		store: st,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// CheckAfterWager awards a milestone notification if the user's lifetime
// prediction count just hit one. Errors are logged, never returned.
func (c *Checker) CheckAfterWager(ctx context.Context, userID string) {
	user, err := c.store.GetUser(ctx, userID)
	if err != nil {
		slog.Warn("achievement check: load user", "user", userID, "err", err)
		return
	}

	name, ok := milestones[user.TotalPredictions]
	if !ok {
		return
	}

	err = c.store.InsertNotification(ctx, &model.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Kind:      NotificationKind,
		Body:      fmt.Sprintf("Achievement unlocked: %s (%d predictions)", name, user.TotalPredictions),
		CreatedAt: c.now(),
	})
	if err != nil {
		slog.Warn("achievement check: insert notification", "user", userID, "err", err)
		return
	}
	slog.Info("achievement awarded", "user", userID, "achievement", name)
}
