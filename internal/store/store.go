// Package store defines the persistence interface for the prediction
// engine. Implementations include PostgreSQL (source of truth), a Redis
// read-through cache wrapper, and in-memory (for testing).
package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/crickpool/prediction-engine/internal/model"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrInsufficientFunds is returned by Debit when the wallet's
	// available balance cannot cover the amount.
	ErrInsufficientFunds = errors.New("store: insufficient funds")

	// ErrConflict is returned when a create collides with an existing
	// record.
	ErrConflict = errors.New("store: already exists")
)

// Ledger holds durable account balances and the append-only transaction
// journal.
type Ledger interface {
	// GetUser retrieves a user's profile (fee tier, counters).
	GetUser(ctx context.Context, userID string) (*model.User, error)

	// GetWallet retrieves one user's balance in one currency.
	GetWallet(ctx context.Context, userID, currency string) (*model.Wallet, error)

	// Debit atomically subtracts amount from the wallet's available
	// balance and returns the new balance. Fails with
	// ErrInsufficientFunds when the balance would go negative.
	Debit(ctx context.Context, userID, currency string, amount decimal.Decimal) (decimal.Decimal, error)

	// Credit atomically adds amount to the wallet's available balance
	// and returns the new balance.
	Credit(ctx context.Context, userID, currency string, amount decimal.Decimal) (decimal.Decimal, error)

	// AppendTransaction records one balance movement. Entries are
	// append-only: never mutated or deleted.
	AppendTransaction(ctx context.Context, tx *model.Transaction) error

	// TransactionsByUser returns a user's ledger entries, oldest first.
	TransactionsByUser(ctx context.Context, userID string) ([]model.Transaction, error)
}

// Markets holds market, outcome, match, and prediction state.
type Markets interface {
	// GetMatch retrieves a match by ID.
	GetMatch(ctx context.Context, id string) (*model.Match, error)

	// GetMarket retrieves a market by ID.
	GetMarket(ctx context.Context, id string) (*model.Market, error)

	// OutcomesByMarket returns a market's outcomes in creation order.
	OutcomesByMarket(ctx context.Context, marketID string) ([]model.Outcome, error)

	// UpdateOutcome persists a refreshed odds snapshot and adds
	// volumeDelta to the outcome's cumulative volume.
	UpdateOutcome(ctx context.Context, outcomeID string, odds, volumeDelta decimal.Decimal) error

	// AddMarketVolume adds delta to the market's total volume.
	AddMarketVolume(ctx context.Context, marketID string, delta decimal.Decimal) error

	// InsertPrediction appends an immutable wager record.
	InsertPrediction(ctx context.Context, p *model.Prediction) error

	// PredictionsByUser returns a user's predictions, newest first.
	PredictionsByUser(ctx context.Context, userID string) ([]model.Prediction, error)

	// UserOpenStake sums the gross amounts of a user's ACTIVE
	// predictions in one market.
	UserOpenStake(ctx context.Context, userID, marketID string) (decimal.Decimal, error)

	// BumpCounters increments the denormalized match pool size,
	// match prediction count, and user prediction count. Best-effort
	// bookkeeping, not correctness-critical.
	BumpCounters(ctx context.Context, matchID, userID string, stake decimal.Decimal) error
}

// Referrals holds referral edges, rewards, and notifications.
type Referrals interface {
	// DirectEdge returns the level-1 edge whose referee is the given
	// user, or ErrNotFound when the user was not referred.
	DirectEdge(ctx context.Context, refereeID string) (*model.ReferralEdge, error)

	// InsertReward records one instant referral payout.
	InsertReward(ctx context.Context, r *model.ReferralReward) error

	// AddEdgeEarnings adds amount to an edge's cumulative earnings.
	AddEdgeEarnings(ctx context.Context, edgeID string, amount decimal.Decimal) error

	// InsertNotification creates an in-app notification.
	InsertNotification(ctx context.Context, n *model.Notification) error
}

// Seeder creates base records. Used by the composition root and tests;
// signup and market-setup flows live outside this service.
type Seeder interface {
	CreateUser(ctx context.Context, u *model.User) error
	CreateWallet(ctx context.Context, w *model.Wallet) error
	CreateMatch(ctx context.Context, m *model.Match) error
	CreateMarket(ctx context.Context, m *model.Market, outcomes []model.Outcome) error
	CreateReferralEdge(ctx context.Context, e *model.ReferralEdge) error
}

// Store is the full persistence interface. InTx runs fn inside one
// all-or-nothing atomic scope: every write made through the Store handed
// to fn commits together or not at all.
type Store interface {
	Ledger
	Markets
	Referrals
	Seeder

	// InTx executes fn atomically. Concurrent transactions touching the
	// same rows must not observe each other's intermediate state.
	InTx(ctx context.Context, fn func(tx Store) error) error
}
