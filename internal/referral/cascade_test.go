package referral_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crickpool/prediction-engine/internal/model"
	"github.com/crickpool/prediction-engine/internal/referral"
	"github.com/crickpool/prediction-engine/internal/store"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func seedReferralPair(t *testing.T, ms *store.MemoryStore) {
	t.Helper()
	ctx := context.Background()

	for _, id := range []string{"referrer", "referee"} {
		if err := ms.CreateUser(ctx, &model.User{ID: id, Username: id, Tier: "STANDARD"}); err != nil {
			t.Fatalf("seed user: %v", err)
		}
		if err := ms.CreateWallet(ctx, &model.Wallet{
			UserID: id, Currency: "INR", Available: d(1000), UpdatedAt: time.Now().UTC(),
		}); err != nil {
			t.Fatalf("seed wallet: %v", err)
		}
	}
	if err := ms.CreateReferralEdge(ctx, &model.ReferralEdge{
		ID: "edge-1", ReferrerID: "referrer", RefereeID: "referee", CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("seed edge: %v", err)
	}
}

func TestRun_CreditsTwoPercent(t *testing.T) {
	ms := store.NewMemoryStore()
	seedReferralPair(t, ms)
	ctx := context.Background()

	c := referral.NewCascade(d(2), "INR")
	rewarded, err := c.Run(ctx, ms, "referee", "pred-1", d(1000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rewarded {
		t.Fatal("expected a reward to be credited")
	}

	// Referrer credited exactly 20 (2% of 1000).
	w, err := ms.GetWallet(ctx, "referrer", "INR")
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if !w.Available.Equal(d(1020)) {
		t.Errorf("referrer balance: expected 1020, got %s", w.Available)
	}

	// Exactly one reward record.
	rewards := ms.Rewards()
	if len(rewards) != 1 {
		t.Fatalf("expected 1 reward record, got %d", len(rewards))
	}
	if !rewards[0].Amount.Equal(d(20)) {
		t.Errorf("reward amount: expected 20, got %s", rewards[0].Amount)
	}
	if rewards[0].PredictionID != "pred-1" {
		t.Errorf("reward should link prediction pred-1, got %s", rewards[0].PredictionID)
	}

	// Exactly one ledger transaction for the referrer.
	txs, _ := ms.TransactionsByUser(ctx, "referrer")
	if len(txs) != 1 {
		t.Fatalf("expected 1 referrer transaction, got %d", len(txs))
	}
	if txs[0].Type != model.TxReferralReward {
		t.Errorf("transaction type: expected %s, got %s", model.TxReferralReward, txs[0].Type)
	}

	// Edge earnings bumped.
	edge, _ := ms.DirectEdge(ctx, "referee")
	if !edge.TotalEarned.Equal(d(20)) {
		t.Errorf("edge earnings: expected 20, got %s", edge.TotalEarned)
	}

	// Referrer notified.
	if n := ms.Notifications(); len(n) != 1 || n[0].UserID != "referrer" {
		t.Errorf("expected one notification for referrer, got %+v", n)
	}
}

func TestRun_NoEdgeIsNoOp(t *testing.T) {
	ms := store.NewMemoryStore()
	ctx := context.Background()

	c := referral.NewCascade(d(2), "INR")
	rewarded, err := c.Run(ctx, ms, "nobody", "pred-1", d(1000))
	if err != nil {
		t.Fatalf("missing edge must be a silent no-op, got %v", err)
	}
	if rewarded {
		t.Error("missing edge must not report a reward")
	}
	if len(ms.Rewards()) != 0 {
		t.Error("no reward should be created without an edge")
	}
}

func TestRun_ZeroPercentIsNoOp(t *testing.T) {
	ms := store.NewMemoryStore()
	seedReferralPair(t, ms)
	ctx := context.Background()

	c := referral.NewCascade(decimal.Zero, "INR")
	rewarded, err := c.Run(ctx, ms, "referee", "pred-1", d(1000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rewarded {
		t.Error("zero percent must not report a reward")
	}
	if len(ms.Rewards()) != 0 {
		t.Error("zero percent must not create rewards")
	}
}

func TestRun_TinyStakeRoundsToZeroReward(t *testing.T) {
	ms := store.NewMemoryStore()
	seedReferralPair(t, ms)
	ctx := context.Background()

	// 2% of 0.40 = 0.008, truncates to 0.00, so nothing is paid.
	c := referral.NewCascade(d(2), "INR")
	rewarded, err := c.Run(ctx, ms, "referee", "pred-1", d(0.40))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rewarded {
		t.Error("sub-cent reward must not report a reward")
	}
	if len(ms.Rewards()) != 0 {
		t.Error("sub-cent reward must be a silent no-op")
	}

	w, _ := ms.GetWallet(ctx, "referrer", "INR")
	if !w.Available.Equal(d(1000)) {
		t.Errorf("referrer balance must be unchanged, got %s", w.Available)
	}
}
