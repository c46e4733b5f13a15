// Package model defines the core domain types shared across the prediction
// engine. All monetary values and odds use shopspring/decimal — never
// float64 for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketStatus is the lifecycle state of a market.
type MarketStatus string

const (
	MarketUpcoming  MarketStatus = "UPCOMING"
	MarketOpen      MarketStatus = "OPEN"
	MarketLive      MarketStatus = "LIVE"
	MarketClosed    MarketStatus = "CLOSED"
	MarketSettled   MarketStatus = "SETTLED"
	MarketCancelled MarketStatus = "CANCELLED"
)

// MatchStatus is the lifecycle state of the parent cricket match.
type MatchStatus string

const (
	MatchScheduled MatchStatus = "SCHEDULED"
	MatchLive      MatchStatus = "LIVE"
	MatchCompleted MatchStatus = "COMPLETED"
	MatchAbandoned MatchStatus = "ABANDONED"
)

// PredictionStatus is the settlement state of a placed wager.
// Settlement transitions (WON/LOST/REFUNDED) are owned by a separate
// settlement process; this engine only ever creates ACTIVE predictions.
type PredictionStatus string

const (
	PredictionActive    PredictionStatus = "ACTIVE"
	PredictionWon       PredictionStatus = "WON"
	PredictionLost      PredictionStatus = "LOST"
	PredictionCancelled PredictionStatus = "CANCELLED"
	PredictionRefunded  PredictionStatus = "REFUNDED"
)

// TransactionType partitions ledger entries by what moved the balance.
type TransactionType string

const (
	TxBetPlaced      TransactionType = "BET_PLACED"
	TxPlatformFee    TransactionType = "PLATFORM_FEE"
	TxReferralReward TransactionType = "REFERRAL_INSTANT_REWARD"
	TxDeposit        TransactionType = "DEPOSIT"
)

// User holds the subset of profile data the engine needs: fee tier and
// a denormalized prediction count.
type User struct {
	ID               string `json:"id" db:"id"`
	Username         string `json:"username" db:"username"`
	Tier             string `json:"tier" db:"tier"`
	TotalPredictions int64  `json:"total_predictions" db:"total_predictions"`
}

// Wallet is one user's balance in one currency. Available never goes
// negative; a debit that would breach this aborts the whole transaction.
type Wallet struct {
	UserID    string          `json:"user_id" db:"user_id"`
	Currency  string          `json:"currency" db:"currency"`
	Available decimal.Decimal `json:"available" db:"available"`
	Locked    decimal.Decimal `json:"locked" db:"locked"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// Match is one cricket fixture. PoolSize and PredictionCount are
// best-effort denormalized counters bumped on every wager.
type Match struct {
	ID              string          `json:"id" db:"id"`
	Label           string          `json:"label" db:"label"` // e.g. "IND vs AUS, 3rd ODI"
	Status          MatchStatus     `json:"status" db:"status"`
	StartsAt        time.Time       `json:"starts_at" db:"starts_at"`
	PoolSize        decimal.Decimal `json:"pool_size" db:"pool_size"`
	PredictionCount int64           `json:"prediction_count" db:"prediction_count"`
}

// Market is one betable question tied to a match. Liquidity is a virtual
// seed volume backing the whole market so odds are defined before real
// wagers exist; it is distributed evenly across outcomes as a phantom
// offset, never persisted per outcome.
type Market struct {
	ID          string          `json:"id" db:"id"`
	MatchID     string          `json:"match_id" db:"match_id"`
	Question    string          `json:"question" db:"question"`
	Status      MarketStatus    `json:"status" db:"status"`
	TotalVolume decimal.Decimal `json:"total_volume" db:"total_volume"`
	Liquidity   decimal.Decimal `json:"liquidity" db:"liquidity"`
	// FeePercent, when positive, overrides the tiered fee policy for
	// wagers on this market.
	FeePercent decimal.Decimal `json:"fee_percent" db:"fee_percent"`
	ClosesAt   *time.Time      `json:"closes_at,omitempty" db:"closes_at"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// Outcome is one selectable result within a market. Odds is a snapshot
// refreshed on every wager against any outcome in the same market.
type Outcome struct {
	ID       string          `json:"id" db:"id"`
	MarketID string          `json:"market_id" db:"market_id"`
	Name     string          `json:"name" db:"name"`
	Odds     decimal.Decimal `json:"odds" db:"odds"`
	Volume   decimal.Decimal `json:"volume" db:"volume"`
}

// Prediction is an immutable record of one placed wager. Created exactly
// once per successful wager; only the settlement process may flip Status
// afterwards.
type Prediction struct {
	ID              string           `json:"id" db:"id"`
	UserID          string           `json:"user_id" db:"user_id"`
	MatchID         string           `json:"match_id" db:"match_id"`
	MarketID        string           `json:"market_id" db:"market_id"`
	OutcomeID       string           `json:"outcome_id" db:"outcome_id"`
	Amount          decimal.Decimal  `json:"amount" db:"amount"` // gross wager
	Fee             decimal.Decimal  `json:"fee" db:"fee"`
	NetStake        decimal.Decimal  `json:"net_stake" db:"net_stake"` // amount - fee, what enters the pool
	OddsAtPlacement decimal.Decimal  `json:"odds_at_placement" db:"odds_at_placement"`
	PotentialPayout decimal.Decimal  `json:"potential_payout" db:"potential_payout"`
	Status          PredictionStatus `json:"status" db:"status"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
}

// Transaction is an append-only audit record of one balance movement.
// Never mutated or deleted.
type Transaction struct {
	ID           string          `json:"id" db:"id"`
	UserID       string          `json:"user_id" db:"user_id"`
	Currency     string          `json:"currency" db:"currency"`
	Type         TransactionType `json:"type" db:"type"`
	Amount       decimal.Decimal `json:"amount" db:"amount"` // always positive; Type implies direction
	BalanceAfter decimal.Decimal `json:"balance_after" db:"balance_after"`
	Reference    string          `json:"reference" db:"reference"` // prediction or reward ID
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// ReferralEdge is the directed referrer → referee relation created at
// signup, with cumulative level-1 earnings.
type ReferralEdge struct {
	ID          string          `json:"id" db:"id"`
	ReferrerID  string          `json:"referrer_id" db:"referrer_id"`
	RefereeID   string          `json:"referee_id" db:"referee_id"`
	TotalEarned decimal.Decimal `json:"total_earned" db:"total_earned"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// ReferralReward links one instant referral payout to the prediction that
// triggered it.
type ReferralReward struct {
	ID           string          `json:"id" db:"id"`
	EdgeID       string          `json:"edge_id" db:"edge_id"`
	ReferrerID   string          `json:"referrer_id" db:"referrer_id"`
	RefereeID    string          `json:"referee_id" db:"referee_id"`
	PredictionID string          `json:"prediction_id" db:"prediction_id"`
	Amount       decimal.Decimal `json:"amount" db:"amount"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// Notification is an in-app message for a user.
type Notification struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Kind      string    `json:"kind" db:"kind"`
	Body      string    `json:"body" db:"body"`
	Read      bool      `json:"read" db:"read"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
