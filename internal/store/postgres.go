package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/crickpool/prediction-engine/internal/model"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so every query
// method works identically inside and outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision.
// InTx opens a SERIALIZABLE transaction so concurrent wagers on the same
// market never compute odds from a stale pool.
type PostgresStore struct {
	pool *pgxpool.Pool // nil when this store is bound to a transaction
	q    querier
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, q: pool}
}

// InTx runs fn inside a serializable transaction. Nested calls reuse the
// enclosing transaction.
func (s *PostgresStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	if s.pool == nil {
		return fn(s)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	txStore := &PostgresStore{q: tx}
	if err := fn(txStore); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// parseNumeric converts a NUMERIC column scanned as TEXT. A malformed
// value is a data corruption signal and must surface, never scan as zero.
func parseNumeric(column, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse %s %q: %w", column, raw, err)
	}
	return d, nil
}

// --- Ledger ---

func (s *PostgresStore) GetUser(ctx context.Context, userID string) (*model.User, error) {
	var u model.User
	err := s.q.QueryRow(ctx,
		`SELECT id, username, tier, total_predictions FROM users WHERE id = $1`, userID).
		Scan(&u.ID, &u.Username, &u.Tier, &u.TotalPredictions)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", userID, err)
	}
	return &u, nil
}

func (s *PostgresStore) GetWallet(ctx context.Context, userID, currency string) (*model.Wallet, error) {
	var w model.Wallet
	var available, locked string

	err := s.q.QueryRow(ctx,
		`SELECT user_id, currency, available::TEXT, locked::TEXT, updated_at
		 FROM wallets WHERE user_id = $1 AND currency = $2`, userID, currency).
		Scan(&w.UserID, &w.Currency, &available, &locked, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get wallet %s/%s: %w", userID, currency, err)
	}

	if w.Available, err = parseNumeric("available", available); err != nil {
		return nil, err
	}
	if w.Locked, err = parseNumeric("locked", locked); err != nil {
		return nil, err
	}
	return &w, nil
}

// Debit enforces the non-negative balance invariant in SQL: the update
// only matches when available covers the amount, so a concurrent debit
// can never drive the balance negative.
func (s *PostgresStore) Debit(ctx context.Context, userID, currency string, amount decimal.Decimal) (decimal.Decimal, error) {
	var newBalance string
	err := s.q.QueryRow(ctx,
		`UPDATE wallets
		 SET available = available - $3::NUMERIC, updated_at = now()
		 WHERE user_id = $1 AND currency = $2 AND available >= $3::NUMERIC
		 RETURNING available::TEXT`,
		userID, currency, amount.String()).
		Scan(&newBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		// Wallet existence is checked upstream; a missed update here
		// means the balance could not cover the amount.
		return decimal.Decimal{}, ErrInsufficientFunds
	}
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("debit %s/%s: %w", userID, currency, err)
	}

	return parseNumeric("available", newBalance)
}

func (s *PostgresStore) Credit(ctx context.Context, userID, currency string, amount decimal.Decimal) (decimal.Decimal, error) {
	var newBalance string
	err := s.q.QueryRow(ctx,
		`UPDATE wallets
		 SET available = available + $3::NUMERIC, updated_at = now()
		 WHERE user_id = $1 AND currency = $2
		 RETURNING available::TEXT`,
		userID, currency, amount.String()).
		Scan(&newBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Decimal{}, ErrNotFound
	}
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("credit %s/%s: %w", userID, currency, err)
	}

	return parseNumeric("available", newBalance)
}

func (s *PostgresStore) AppendTransaction(ctx context.Context, t *model.Transaction) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO transactions (id, user_id, currency, type, amount, balance_after, reference, created_at)
		 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6::NUMERIC, $7, $8)`,
		t.ID, t.UserID, t.Currency, string(t.Type),
		t.Amount.String(), t.BalanceAfter.String(), t.Reference, t.CreatedAt)
	return err
}

func (s *PostgresStore) TransactionsByUser(ctx context.Context, userID string) ([]model.Transaction, error) {
	rows, err := s.q.Query(ctx,
		`SELECT id, user_id, currency, type, amount::TEXT, balance_after::TEXT, reference, created_at
		 FROM transactions WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Transaction
	for rows.Next() {
		var t model.Transaction
		var typ, amount, balanceAfter string
		if err := rows.Scan(&t.ID, &t.UserID, &t.Currency, &typ,
			&amount, &balanceAfter, &t.Reference, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Type = model.TransactionType(typ)
		if t.Amount, err = parseNumeric("amount", amount); err != nil {
			return nil, err
		}
		if t.BalanceAfter, err = parseNumeric("balance_after", balanceAfter); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

// --- Markets ---

func (s *PostgresStore) GetMatch(ctx context.Context, id string) (*model.Match, error) {
	var m model.Match
	var status, poolSize string

	err := s.q.QueryRow(ctx,
		`SELECT id, label, status, starts_at, pool_size::TEXT, prediction_count
		 FROM matches WHERE id = $1`, id).
		Scan(&m.ID, &m.Label, &status, &m.StartsAt, &poolSize, &m.PredictionCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get match %s: %w", id, err)
	}

	m.Status = model.MatchStatus(status)
	if m.PoolSize, err = parseNumeric("pool_size", poolSize); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *PostgresStore) GetMarket(ctx context.Context, id string) (*model.Market, error) {
	var m model.Market
	var status, totalVolume, liquidity, feePercent string

	err := s.q.QueryRow(ctx,
		`SELECT id, match_id, question, status,
		        total_volume::TEXT, liquidity::TEXT, fee_percent::TEXT,
		        closes_at, created_at
		 FROM markets WHERE id = $1`, id).
		Scan(&m.ID, &m.MatchID, &m.Question, &status,
			&totalVolume, &liquidity, &feePercent,
			&m.ClosesAt, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get market %s: %w", id, err)
	}

	m.Status = model.MarketStatus(status)
	if m.TotalVolume, err = parseNumeric("total_volume", totalVolume); err != nil {
		return nil, err
	}
	if m.Liquidity, err = parseNumeric("liquidity", liquidity); err != nil {
		return nil, err
	}
	if m.FeePercent, err = parseNumeric("fee_percent", feePercent); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *PostgresStore) OutcomesByMarket(ctx context.Context, marketID string) ([]model.Outcome, error) {
	rows, err := s.q.Query(ctx,
		`SELECT id, market_id, name, odds::TEXT, volume::TEXT
		 FROM outcomes WHERE market_id = $1 ORDER BY created_at`, marketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Outcome
	for rows.Next() {
		var o model.Outcome
		var odds, volume string
		if err := rows.Scan(&o.ID, &o.MarketID, &o.Name, &odds, &volume); err != nil {
			return nil, err
		}
		if o.Odds, err = parseNumeric("odds", odds); err != nil {
			return nil, err
		}
		if o.Volume, err = parseNumeric("volume", volume); err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	return result, rows.Err()
}

func (s *PostgresStore) UpdateOutcome(ctx context.Context, outcomeID string, odds, volumeDelta decimal.Decimal) error {
	tag, err := s.q.Exec(ctx,
		`UPDATE outcomes
		 SET odds = $2::NUMERIC, volume = volume + $3::NUMERIC
		 WHERE id = $1`,
		outcomeID, odds.String(), volumeDelta.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AddMarketVolume(ctx context.Context, marketID string, delta decimal.Decimal) error {
	tag, err := s.q.Exec(ctx,
		`UPDATE markets SET total_volume = total_volume + $2::NUMERIC WHERE id = $1`,
		marketID, delta.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) InsertPrediction(ctx context.Context, p *model.Prediction) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO predictions
		   (id, user_id, match_id, market_id, outcome_id,
		    amount, fee, net_stake, odds_at_placement, potential_payout,
		    status, created_at)
		 VALUES ($1, $2, $3, $4, $5,
		         $6::NUMERIC, $7::NUMERIC, $8::NUMERIC, $9::NUMERIC, $10::NUMERIC,
		         $11, $12)`,
		p.ID, p.UserID, p.MatchID, p.MarketID, p.OutcomeID,
		p.Amount.String(), p.Fee.String(), p.NetStake.String(),
		p.OddsAtPlacement.String(), p.PotentialPayout.String(),
		string(p.Status), p.CreatedAt)
	return err
}

func (s *PostgresStore) PredictionsByUser(ctx context.Context, userID string) ([]model.Prediction, error) {
	rows, err := s.q.Query(ctx,
		`SELECT id, user_id, match_id, market_id, outcome_id,
		        amount::TEXT, fee::TEXT, net_stake::TEXT,
		        odds_at_placement::TEXT, potential_payout::TEXT,
		        status, created_at
		 FROM predictions WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Prediction
	for rows.Next() {
		var p model.Prediction
		var amount, fee, netStake, odds, payout, status string
		if err := rows.Scan(&p.ID, &p.UserID, &p.MatchID, &p.MarketID, &p.OutcomeID,
			&amount, &fee, &netStake, &odds, &payout,
			&status, &p.CreatedAt); err != nil {
			return nil, err
		}
		if p.Amount, err = parseNumeric("amount", amount); err != nil {
			return nil, err
		}
		if p.Fee, err = parseNumeric("fee", fee); err != nil {
			return nil, err
		}
		if p.NetStake, err = parseNumeric("net_stake", netStake); err != nil {
			return nil, err
		}
		if p.OddsAtPlacement, err = parseNumeric("odds_at_placement", odds); err != nil {
			return nil, err
		}
		if p.PotentialPayout, err = parseNumeric("potential_payout", payout); err != nil {
			return nil, err
		}
		p.Status = model.PredictionStatus(status)
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *PostgresStore) UserOpenStake(ctx context.Context, userID, marketID string) (decimal.Decimal, error) {
	var total string
	err := s.q.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0)::TEXT
		 FROM predictions
		 WHERE user_id = $1 AND market_id = $2 AND status = 'ACTIVE'`,
		userID, marketID).
		Scan(&total)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return parseNumeric("open stake", total)
}

func (s *PostgresStore) BumpCounters(ctx context.Context, matchID, userID string, stake decimal.Decimal) error {
	if _, err := s.q.Exec(ctx,
		`UPDATE matches
		 SET pool_size = pool_size + $2::NUMERIC, prediction_count = prediction_count + 1
		 WHERE id = $1`,
		matchID, stake.String()); err != nil {
		return err
	}
	_, err := s.q.Exec(ctx,
		`UPDATE users SET total_predictions = total_predictions + 1 WHERE id = $1`, userID)
	return err
}

// --- Referrals ---

func (s *PostgresStore) DirectEdge(ctx context.Context, refereeID string) (*model.ReferralEdge, error) {
	var e model.ReferralEdge
	var totalEarned string

	err := s.q.QueryRow(ctx,
		`SELECT id, referrer_id, referee_id, total_earned::TEXT, created_at
		 FROM referral_edges WHERE referee_id = $1`, refereeID).
		Scan(&e.ID, &e.ReferrerID, &e.RefereeID, &totalEarned, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get referral edge for %s: %w", refereeID, err)
	}

	if e.TotalEarned, err = parseNumeric("total_earned", totalEarned); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *PostgresStore) InsertReward(ctx context.Context, r *model.ReferralReward) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO referral_rewards
		   (id, edge_id, referrer_id, referee_id, prediction_id, amount, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6::NUMERIC, $7)`,
		r.ID, r.EdgeID, r.ReferrerID, r.RefereeID, r.PredictionID,
		r.Amount.String(), r.CreatedAt)
	return err
}

func (s *PostgresStore) AddEdgeEarnings(ctx context.Context, edgeID string, amount decimal.Decimal) error {
	tag, err := s.q.Exec(ctx,
		`UPDATE referral_edges SET total_earned = total_earned + $2::NUMERIC WHERE id = $1`,
		edgeID, amount.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) InsertNotification(ctx context.Context, n *model.Notification) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO notifications (id, user_id, kind, body, read, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		n.ID, n.UserID, n.Kind, n.Body, n.Read, n.CreatedAt)
	return err
}

// --- Seeder ---

func (s *PostgresStore) CreateUser(ctx context.Context, u *model.User) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO users (id, username, tier, total_predictions)
		 VALUES ($1, $2, $3, $4)`,
		u.ID, u.Username, u.Tier, u.TotalPredictions)
	return err
}

func (s *PostgresStore) CreateWallet(ctx context.Context, w *model.Wallet) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO wallets (user_id, currency, available, locked, updated_at)
		 VALUES ($1, $2, $3::NUMERIC, $4::NUMERIC, $5)`,
		w.UserID, w.Currency, w.Available.String(), w.Locked.String(), w.UpdatedAt)
	return err
}

func (s *PostgresStore) CreateMatch(ctx context.Context, m *model.Match) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO matches (id, label, status, starts_at, pool_size, prediction_count)
		 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6)`,
		m.ID, m.Label, string(m.Status), m.StartsAt, m.PoolSize.String(), m.PredictionCount)
	return err
}

func (s *PostgresStore) CreateMarket(ctx context.Context, m *model.Market, outcomes []model.Outcome) error {
	if _, err := s.q.Exec(ctx,
		`INSERT INTO markets
		   (id, match_id, question, status, total_volume, liquidity, fee_percent, closes_at, created_at)
		 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6::NUMERIC, $7::NUMERIC, $8, $9)`,
		m.ID, m.MatchID, m.Question, string(m.Status),
		m.TotalVolume.String(), m.Liquidity.String(), m.FeePercent.String(),
		m.ClosesAt, m.CreatedAt); err != nil {
		return err
	}

	for _, o := range outcomes {
		if _, err := s.q.Exec(ctx,
			`INSERT INTO outcomes (id, market_id, name, odds, volume, created_at)
			 VALUES ($1, $2, $3, $4::NUMERIC, $5::NUMERIC, now())`,
			o.ID, m.ID, o.Name, o.Odds.String(), o.Volume.String()); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) CreateReferralEdge(ctx context.Context, e *model.ReferralEdge) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO referral_edges (id, referrer_id, referee_id, total_earned, created_at)
		 VALUES ($1, $2, $3, $4::NUMERIC, $5)`,
		e.ID, e.ReferrerID, e.RefereeID, e.TotalEarned.String(), e.CreatedAt)
	return err
}
