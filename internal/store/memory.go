package store

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crickpool/prediction-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing and
// development. Not suitable for production (no persistence).
//
// InTx serializes transactions with a dedicated mutex and rolls back by
// restoring a snapshot, so a failed transaction leaves no partial writes.
type MemoryStore struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	users         map[string]*model.User
	wallets       map[string]*model.Wallet // key: userID + "/" + currency
	matches       map[string]*model.Match
	markets       map[string]*model.Market
	outcomes      map[string]*model.Outcome
	outcomeOrder  map[string][]string // marketID → outcome IDs in creation order
	predictions   []model.Prediction
	transactions  []model.Transaction
	edges         map[string]*model.ReferralEdge // key: refereeID
	rewards       []model.ReferralReward
	notifications []model.Notification
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:        make(map[string]*model.User),
		wallets:      make(map[string]*model.Wallet),
		matches:      make(map[string]*model.Match),
		markets:      make(map[string]*model.Market),
		outcomes:     make(map[string]*model.Outcome),
		outcomeOrder: make(map[string][]string),
		edges:        make(map[string]*model.ReferralEdge),
	}
}

func walletKey(userID, currency string) string {
	return userID + "/" + currency
}

// --- Ledger ---

func (s *MemoryStore) GetUser(_ context.Context, userID string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (s *MemoryStore) GetWallet(_ context.Context, userID, currency string) (*model.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.wallets[walletKey(userID, currency)]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *w
	return &copied, nil
}

func (s *MemoryStore) Debit(_ context.Context, userID, currency string, amount decimal.Decimal) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[walletKey(userID, currency)]
	if !ok {
		return decimal.Decimal{}, ErrNotFound
	}
	if w.Available.LessThan(amount) {
		return decimal.Decimal{}, ErrInsufficientFunds
	}
	w.Available = w.Available.Sub(amount)
	w.UpdatedAt = time.Now().UTC()
	return w.Available, nil
}

func (s *MemoryStore) Credit(_ context.Context, userID, currency string, amount decimal.Decimal) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[walletKey(userID, currency)]
	if !ok {
		return decimal.Decimal{}, ErrNotFound
	}
	w.Available = w.Available.Add(amount)
	w.UpdatedAt = time.Now().UTC()
	return w.Available, nil
}

func (s *MemoryStore) AppendTransaction(_ context.Context, tx *model.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.transactions = append(s.transactions, *tx)
	return nil
}

func (s *MemoryStore) TransactionsByUser(_ context.Context, userID string) ([]model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Transaction
	for _, t := range s.transactions {
		if t.UserID == userID {
			result = append(result, t)
		}
	}
	return result, nil
}

// --- Markets ---

func (s *MemoryStore) GetMatch(_ context.Context, id string) (*model.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.matches[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *m
	return &copied, nil
}

func (s *MemoryStore) GetMarket(_ context.Context, id string) (*model.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.markets[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *m
	return &copied, nil
}

func (s *MemoryStore) OutcomesByMarket(_ context.Context, marketID string) ([]model.Outcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.outcomeOrder[marketID]
	result := make([]model.Outcome, 0, len(ids))
	for _, id := range ids {
		if o, ok := s.outcomes[id]; ok {
			result = append(result, *o)
		}
	}
	return result, nil
}

func (s *MemoryStore) UpdateOutcome(_ context.Context, outcomeID string, odds, volumeDelta decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.outcomes[outcomeID]
	if !ok {
		return ErrNotFound
	}
	o.Odds = odds
	o.Volume = o.Volume.Add(volumeDelta)
	return nil
}

func (s *MemoryStore) AddMarketVolume(_ context.Context, marketID string, delta decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.markets[marketID]
	if !ok {
		return ErrNotFound
	}
	m.TotalVolume = m.TotalVolume.Add(delta)
	return nil
}

func (s *MemoryStore) InsertPrediction(_ context.Context, p *model.Prediction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.predictions = append(s.predictions, *p)
	return nil
}

func (s *MemoryStore) PredictionsByUser(_ context.Context, userID string) ([]model.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Prediction
	for i := len(s.predictions) - 1; i >= 0; i-- {
		if s.predictions[i].UserID == userID {
			result = append(result, s.predictions[i])
		}
	}
	return result, nil
}

func (s *MemoryStore) UserOpenStake(_ context.Context, userID, marketID string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, p := range s.predictions {
		if p.UserID == userID && p.MarketID == marketID && p.Status == model.PredictionActive {
			total = total.Add(p.Amount)
		}
	}
	return total, nil
}

func (s *MemoryStore) BumpCounters(_ context.Context, matchID, userID string, stake decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m, ok := s.matches[matchID]; ok {
		m.PoolSize = m.PoolSize.Add(stake)
		m.PredictionCount++
	}
	if u, ok := s.users[userID]; ok {
		u.TotalPredictions++
	}
	return nil
}

// --- Referrals ---

func (s *MemoryStore) DirectEdge(_ context.Context, refereeID string) (*model.ReferralEdge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.edges[refereeID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *e
	return &copied, nil
}

func (s *MemoryStore) InsertReward(_ context.Context, r *model.ReferralReward) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rewards = append(s.rewards, *r)
	return nil
}

func (s *MemoryStore) AddEdgeEarnings(_ context.Context, edgeID string, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.edges {
		if e.ID == edgeID {
			e.TotalEarned = e.TotalEarned.Add(amount)
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) InsertNotification(_ context.Context, n *model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notifications = append(s.notifications, *n)
	return nil
}

// --- Seeder ---

func (s *MemoryStore) CreateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.ID]; ok {
		return ErrConflict
	}
	copied := *u
	s.users[u.ID] = &copied
	return nil
}

func (s *MemoryStore) CreateWallet(_ context.Context, w *model.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := walletKey(w.UserID, w.Currency)
	if _, ok := s.wallets[key]; ok {
		return ErrConflict
	}
	copied := *w
	s.wallets[key] = &copied
	return nil
}

func (s *MemoryStore) CreateMatch(_ context.Context, m *model.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.matches[m.ID]; ok {
		return ErrConflict
	}
	copied := *m
	s.matches[m.ID] = &copied
	return nil
}

func (s *MemoryStore) CreateMarket(_ context.Context, m *model.Market, outcomes []model.Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.markets[m.ID]; ok {
		return ErrConflict
	}
	copied := *m
	s.markets[m.ID] = &copied

	ids := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		oc := o
		oc.MarketID = m.ID
		s.outcomes[o.ID] = &oc
		ids = append(ids, o.ID)
	}
	s.outcomeOrder[m.ID] = ids
	return nil
}

func (s *MemoryStore) CreateReferralEdge(_ context.Context, e *model.ReferralEdge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.edges[e.RefereeID]; ok {
		return ErrConflict
	}
	copied := *e
	s.edges[e.RefereeID] = &copied
	return nil
}

// --- Transactions ---

// InTx serializes transactions via txMu, snapshots all state, runs fn
// against the store itself, and restores the snapshot on error. Reads
// outside a transaction may briefly observe in-flight writes; the
// Postgres store is the implementation with real isolation.
func (s *MemoryStore) InTx(_ context.Context, fn func(tx Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(s); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type memSnapshot struct {
	users         map[string]*model.User
	wallets       map[string]*model.Wallet
	matches       map[string]*model.Match
	markets       map[string]*model.Market
	outcomes      map[string]*model.Outcome
	outcomeOrder  map[string][]string
	predictions   []model.Prediction
	transactions  []model.Transaction
	edges         map[string]*model.ReferralEdge
	rewards       []model.ReferralReward
	notifications []model.Notification
}

func (s *MemoryStore) snapshot() *memSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &memSnapshot{
		users:         make(map[string]*model.User, len(s.users)),
		wallets:       make(map[string]*model.Wallet, len(s.wallets)),
		matches:       make(map[string]*model.Match, len(s.matches)),
		markets:       make(map[string]*model.Market, len(s.markets)),
		outcomes:      make(map[string]*model.Outcome, len(s.outcomes)),
		outcomeOrder:  make(map[string][]string, len(s.outcomeOrder)),
		predictions:   append([]model.Prediction(nil), s.predictions...),
		transactions:  append([]model.Transaction(nil), s.transactions...),
		rewards:       append([]model.ReferralReward(nil), s.rewards...),
		notifications: append([]model.Notification(nil), s.notifications...),
		edges:         make(map[string]*model.ReferralEdge, len(s.edges)),
	}
	for k, v := range s.users {
		c := *v
		snap.users[k] = &c
	}
	for k, v := range s.wallets {
		c := *v
		snap.wallets[k] = &c
	}
	for k, v := range s.matches {
		c := *v
		snap.matches[k] = &c
	}
	for k, v := range s.markets {
		c := *v
		snap.markets[k] = &c
	}
	for k, v := range s.outcomes {
		c := *v
		snap.outcomes[k] = &c
	}
	for k, v := range s.outcomeOrder {
		snap.outcomeOrder[k] = append([]string(nil), v...)
	}
	for k, v := range s.edges {
		c := *v
		snap.edges[k] = &c
	}
	return snap
}

func (s *MemoryStore) restore(snap *memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users = snap.users
	s.wallets = snap.wallets
	s.matches = snap.matches
	s.markets = snap.markets
	s.outcomes = snap.outcomes
	s.outcomeOrder = snap.outcomeOrder
	s.predictions = snap.predictions
	s.transactions = snap.transactions
	s.edges = snap.edges
	s.rewards = snap.rewards
	s.notifications = snap.notifications
}

// Rewards returns a copy of all referral rewards. Test helper.
func (s *MemoryStore) Rewards() []model.ReferralReward {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.ReferralReward(nil), s.rewards...)
}

// Notifications returns a copy of all notifications. Test helper.
func (s *MemoryStore) Notifications() []model.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Notification(nil), s.notifications...)
}
