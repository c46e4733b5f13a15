package achievement_test

import (
	"context"
	"testing"

	"github.com/crickpool/prediction-engine/internal/achievement"
	"github.com/crickpool/prediction-engine/internal/model"
	"github.com/crickpool/prediction-engine/internal/store"
)

func seedUserWithCount(t *testing.T, ms *store.MemoryStore, count int64) {
	t.Helper()
	if err := ms.CreateUser(context.Background(), &model.User{
		ID: "u1", Username: "u1", TotalPredictions: count,
	}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func TestCheckAfterWager_AwardsMilestone(t *testing.T) {
	ms := store.NewMemoryStore()
	seedUserWithCount(t, ms, 1)

	achievement.NewChecker(ms).CheckAfterWager(context.Background(), "u1")

	notifs := ms.Notifications()
	if len(notifs) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifs))
	}
	if notifs[0].Kind != achievement.NotificationKind || notifs[0].UserID != "u1" {
		t.Errorf("unexpected notification: %+v", notifs[0])
	}
}

func TestCheckAfterWager_NonMilestoneIsNoOp(t *testing.T) {
	ms := store.NewMemoryStore()
	seedUserWithCount(t, ms, 7)

	achievement.NewChecker(ms).CheckAfterWager(context.Background(), "u1")

	if n := ms.Notifications(); len(n) != 0 {
		t.Errorf("expected no notification at count 7, got %d", len(n))
	}
}

func TestCheckAfterWager_UnknownUserIsNoOp(t *testing.T) {
	ms := store.NewMemoryStore()

	achievement.NewChecker(ms).CheckAfterWager(context.Background(), "ghost")

	if n := ms.Notifications(); len(n) != 0 {
		t.Errorf("expected no notification for unknown user, got %d", len(n))
	}
}
