package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/crickpool/prediction-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache for hot market reads. Writes go to the primary store and
// invalidate the cache; reads check Redis first then fall back.
//
// Inside a transaction the cache is bypassed for reads: a serializable
// transaction must only ever see its own snapshot, never cached state.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
	inTx    bool
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{primary: primary, rdb: rdb, ttl: ttl}
}

// InTx delegates to the primary's transaction, wrapping the transactional
// store so writes made inside fn still invalidate cache keys.
func (s *CachedStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	return s.primary.InTx(ctx, func(tx Store) error {
		return fn(&CachedStore{primary: tx, rdb: s.rdb, ttl: s.ttl, inTx: true})
	})
}

// --- Cached reads ---

func (s *CachedStore) GetMarket(ctx context.Context, id string) (*model.Market, error) {
	if s.inTx {
		return s.primary.GetMarket(ctx, id)
	}

	data, err := s.rdb.Get(ctx, marketKey(id)).Bytes()
	if err == nil {
		var m model.Market
		if json.Unmarshal(data, &m) == nil {
			return &m, nil
		}
	}

	m, err := s.primary.GetMarket(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cacheJSON(ctx, marketKey(id), m)
	return m, nil
}

func (s *CachedStore) GetMatch(ctx context.Context, id string) (*model.Match, error) {
	if s.inTx {
		return s.primary.GetMatch(ctx, id)
	}

	data, err := s.rdb.Get(ctx, matchKey(id)).Bytes()
	if err == nil {
		var m model.Match
		if json.Unmarshal(data, &m) == nil {
			return &m, nil
		}
	}

	m, err := s.primary.GetMatch(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cacheJSON(ctx, matchKey(id), m)
	return m, nil
}

func (s *CachedStore) OutcomesByMarket(ctx context.Context, marketID string) ([]model.Outcome, error) {
	if s.inTx {
		return s.primary.OutcomesByMarket(ctx, marketID)
	}

	data, err := s.rdb.Get(ctx, outcomesKey(marketID)).Bytes()
	if err == nil {
		var outcomes []model.Outcome
		if json.Unmarshal(data, &outcomes) == nil {
			return outcomes, nil
		}
	}

	outcomes, err := s.primary.OutcomesByMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	s.cacheJSON(ctx, outcomesKey(marketID), outcomes)
	return outcomes, nil
}

// --- Invalidating writes ---

func (s *CachedStore) UpdateOutcome(ctx context.Context, outcomeID string, odds, volumeDelta decimal.Decimal) error {
	if err := s.primary.UpdateOutcome(ctx, outcomeID, odds, volumeDelta); err != nil {
		return err
	}
	// Outcome rows are cached per market; we don't know the market ID
	// here, so AddMarketVolume (always called in the same transaction)
	// carries the invalidation.
	return nil
}

func (s *CachedStore) AddMarketVolume(ctx context.Context, marketID string, delta decimal.Decimal) error {
	if err := s.primary.AddMarketVolume(ctx, marketID, delta); err != nil {
		return err
	}
	s.rdb.Del(ctx, marketKey(marketID), outcomesKey(marketID))
	return nil
}

func (s *CachedStore) BumpCounters(ctx context.Context, matchID, userID string, stake decimal.Decimal) error {
	if err := s.primary.BumpCounters(ctx, matchID, userID, stake); err != nil {
		return err
	}
	s.rdb.Del(ctx, matchKey(matchID))
	return nil
}

func (s *CachedStore) CreateMarket(ctx context.Context, m *model.Market, outcomes []model.Outcome) error {
	if err := s.primary.CreateMarket(ctx, m, outcomes); err != nil {
		return err
	}
	s.rdb.Del(ctx, marketKey(m.ID), outcomesKey(m.ID))
	return nil
}

func (s *CachedStore) CreateMatch(ctx context.Context, m *model.Match) error {
	if err := s.primary.CreateMatch(ctx, m); err != nil {
		return err
	}
	s.rdb.Del(ctx, matchKey(m.ID))
	return nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) GetUser(ctx context.Context, userID string) (*model.User, error) {
	return s.primary.GetUser(ctx, userID)
}

func (s *CachedStore) GetWallet(ctx context.Context, userID, currency string) (*model.Wallet, error) {
	return s.primary.GetWallet(ctx, userID, currency)
}

func (s *CachedStore) Debit(ctx context.Context, userID, currency string, amount decimal.Decimal) (decimal.Decimal, error) {
	return s.primary.Debit(ctx, userID, currency, amount)
}

func (s *CachedStore) Credit(ctx context.Context, userID, currency string, amount decimal.Decimal) (decimal.Decimal, error) {
	return s.primary.Credit(ctx, userID, currency, amount)
}

func (s *CachedStore) AppendTransaction(ctx context.Context, t *model.Transaction) error {
	return s.primary.AppendTransaction(ctx, t)
}

func (s *CachedStore) TransactionsByUser(ctx context.Context, userID string) ([]model.Transaction, error) {
	return s.primary.TransactionsByUser(ctx, userID)
}

func (s *CachedStore) InsertPrediction(ctx context.Context, p *model.Prediction) error {
	return s.primary.InsertPrediction(ctx, p)
}

func (s *CachedStore) PredictionsByUser(ctx context.Context, userID string) ([]model.Prediction, error) {
	return s.primary.PredictionsByUser(ctx, userID)
}

func (s *CachedStore) UserOpenStake(ctx context.Context, userID, marketID string) (decimal.Decimal, error) {
	return s.primary.UserOpenStake(ctx, userID, marketID)
}

func (s *CachedStore) DirectEdge(ctx context.Context, refereeID string) (*model.ReferralEdge, error) {
	return s.primary.DirectEdge(ctx, refereeID)
}

func (s *CachedStore) InsertReward(ctx context.Context, r *model.ReferralReward) error {
	return s.primary.InsertReward(ctx, r)
}

func (s *CachedStore) AddEdgeEarnings(ctx context.Context, edgeID string, amount decimal.Decimal) error {
	return s.primary.AddEdgeEarnings(ctx, edgeID, amount)
}

func (s *CachedStore) InsertNotification(ctx context.Context, n *model.Notification) error {
	return s.primary.InsertNotification(ctx, n)
}

func (s *CachedStore) CreateUser(ctx context.Context, u *model.User) error {
	return s.primary.CreateUser(ctx, u)
}

func (s *CachedStore) CreateWallet(ctx context.Context, w *model.Wallet) error {
	return s.primary.CreateWallet(ctx, w)
}

func (s *CachedStore) CreateReferralEdge(ctx context.Context, e *model.ReferralEdge) error {
	return s.primary.CreateReferralEdge(ctx, e)
}

// --- Cache helpers ---

func (s *CachedStore) cacheJSON(ctx context.Context, key string, v any) {
	if data, err := json.Marshal(v); err == nil {
		s.rdb.Set(ctx, key, data, s.ttl)
	}
}

func marketKey(id string) string   { return fmt.Sprintf("market:%s", id) }
func matchKey(id string) string    { return fmt.Sprintf("match:%s", id) }
func outcomesKey(id string) string { return fmt.Sprintf("outcomes:%s", id) }
