// Package wager implements the prediction engine: it validates wager
// requests, prices them against the parimutuel pool, executes the atomic
// ledger/market transaction, runs the referral cascade, and notifies
// publishers after commit.
//
// All monetary values use shopspring/decimal — never float64 for money.
package wager

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/crickpool/prediction-engine/internal/event"
	"github.com/crickpool/prediction-engine/internal/fee"
	"github.com/crickpool/prediction-engine/internal/metrics"
	"github.com/crickpool/prediction-engine/internal/model"
	"github.com/crickpool/prediction-engine/internal/parimutuel"
	"github.com/crickpool/prediction-engine/internal/referral"
	"github.com/crickpool/prediction-engine/internal/risk"
	"github.com/crickpool/prediction-engine/internal/store"
)

// PlaceRequest is one wager placement request. UserID comes from the
// authenticated caller identity, never the request body.
type PlaceRequest struct {
	UserID    string
	MatchID   string
	MarketID  string
	OutcomeID string
	Amount    decimal.Decimal
}

// PlaceResult is the committed outcome of a wager placement.
type PlaceResult struct {
	PredictionID    string                 `json:"id"`
	Amount          decimal.Decimal        `json:"amount"`
	Fee             decimal.Decimal        `json:"fee"`
	NetStake        decimal.Decimal        `json:"net_stake"`
	Odds            decimal.Decimal        `json:"odds"`
	PotentialPayout decimal.Decimal        `json:"potential_payout"`
	Status          model.PredictionStatus `json:"status"`
}

// Placed bundles everything post-commit hooks may need.
type Placed struct {
	Request  PlaceRequest
	Result   PlaceResult
	Activity event.Activity
	Odds     event.OddsUpdate
}

// Hook runs after a wager commits. Hooks are fault-isolated: a panicking
// or failing hook is logged and never affects the returned result.
type Hook func(ctx context.Context, p *Placed)

// Options configures a Service.
type Options struct {
	// Currency is the wager currency. Defaults to "INR".
	Currency string

	// AllowLiveBetting enables the in-play variant: markets in LIVE
	// status accept wagers and a LIVE match does not lock betting.
	// Off by default (strict variant).
	AllowLiveBetting bool

	// AchievementCheck, when set, runs detached after each commit.
	AchievementCheck func(ctx context.Context, userID string)
}

// Service is the prediction engine orchestrator. All collaborators are
// injected; the composition root owns their lifecycles.
type Service struct {
	store     store.Store
	fees      *fee.Policy
	limiter   *risk.Limiter
	cascade   *referral.Cascade
	publisher event.Publisher
	hooks     []Hook
	currency  string
	allowLive bool
	now       func() time.Time
}

// NewService creates the engine. Pass nil publisher to disable
// broadcasting.
func NewService(st store.Store, fees *fee.Policy, limiter *risk.Limiter, cascade *referral.Cascade, pub event.Publisher, opts Options) *Service {
	if pub == nil {
		pub = event.Nop{}
	}
	if opts.Currency == "" {
		opts.Currency = "INR"
	}

	s := &Service{
		store:     st,
		fees:      fees,
		limiter:   limiter,
		cascade:   cascade,
		publisher: pub,
		currency:  opts.Currency,
		allowLive: opts.AllowLiveBetting,
		now:       func() time.Time { return time.Now().UTC() },
	}

	s.hooks = []Hook{
		func(ctx context.Context, p *Placed) {
			if err := s.publisher.PublishActivity(ctx, p.Activity); err != nil {
				slog.Warn("activity publish failed", "err", err, "prediction", p.Result.PredictionID)
			}
		},
		func(ctx context.Context, p *Placed) {
			if err := s.publisher.PublishOddsUpdate(ctx, p.Odds); err != nil {
				slog.Warn("odds publish failed", "err", err, "market", p.Request.MarketID)
			}
		},
	}
	if opts.AchievementCheck != nil {
		check := opts.AchievementCheck
		s.hooks = append(s.hooks, func(_ context.Context, p *Placed) {
			go check(context.Background(), p.Request.UserID)
		})
	}
	return s
}

// AddHook appends a post-commit hook. Not safe to call after the service
// starts handling requests.
func (s *Service) AddHook(h Hook) {
	s.hooks = append(s.hooks, h)
}

// PlaceWager validates and executes one wager. Every precondition
// failure returns a *Error before any funds move; once the transaction
// commits the wager is final.
func (s *Service) PlaceWager(ctx context.Context, req PlaceRequest) (*PlaceResult, error) {
	start := time.Now()

	res, err := s.placeWager(ctx, req)
	if err != nil {
		var code Code = CodeInternal
		if we, ok := err.(*Error); ok {
			code = we.Code
		}
		metrics.WagerRejections.WithLabelValues(string(code)).Inc()
		return nil, err
	}

	metrics.WagersPlaced.Inc()
	metrics.WagerLatency.Observe(time.Since(start).Seconds())
	metrics.WagerVolume.WithLabelValues(req.MarketID).Add(res.NetStake.InexactFloat64())
	return res, nil
}

func (s *Service) placeWager(ctx context.Context, req PlaceRequest) (*PlaceResult, error) {
	// --- Preconditions, checked before any funds move ---

	if req.UserID == "" {
		return nil, E(CodeUnauthenticated, "authentication required")
	}
	if !req.Amount.IsPositive() {
		return nil, E(CodeInvalidRequest, "amount must be a positive number")
	}

	wallet, err := s.store.GetWallet(ctx, req.UserID, s.currency)
	if errors.Is(err, store.ErrNotFound) {
		return nil, E(CodeWalletNotFound, "wallet not found for user")
	}
	if err != nil {
		return nil, internalErr(err)
	}
	if wallet.Available.LessThan(req.Amount) {
		return nil, E(CodeInsufficientFunds,
			"insufficient funds: balance %s, requested %s", wallet.Available, req.Amount)
	}

	market, err := s.store.GetMarket(ctx, req.MarketID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, E(CodeMarketNotFound, "market not found")
	}
	if err != nil {
		return nil, internalErr(err)
	}
	if market.MatchID != req.MatchID {
		return nil, E(CodeMarketMismatch, "market does not belong to match %s", req.MatchID)
	}

	if !s.marketAcceptsWagers(market.Status) {
		return nil, E(CodeMarketClosed, "market is not open for betting (status %s)", market.Status)
	}

	match, err := s.store.GetMatch(ctx, market.MatchID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, E(CodeMarketNotFound, "match not found")
	}
	if err != nil {
		return nil, internalErr(err)
	}
	if s.bettingLocked(match.Status) {
		return nil, E(CodeBettingLocked, "betting is locked: match is %s", match.Status)
	}

	now := s.now()
	if market.ClosesAt != nil && !now.Before(*market.ClosesAt) {
		return nil, E(CodeMarketClosed, "market closed at %s", market.ClosesAt.Format(time.RFC3339))
	}

	outcomes, err := s.store.OutcomesByMarket(ctx, req.MarketID)
	if err != nil {
		return nil, internalErr(err)
	}
	if !containsOutcome(outcomes, req.OutcomeID) {
		return nil, E(CodeOutcomeNotFound, "outcome does not belong to market")
	}

	if s.limiter != nil {
		open, err := s.store.UserOpenStake(ctx, req.UserID, req.MarketID)
		if err != nil {
			return nil, internalErr(err)
		}
		if err := s.limiter.Check(req.Amount, open); err != nil {
			return nil, E(CodeStakeLimitExceeded, "%s", err)
		}
	}

	user, err := s.store.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, internalErr(err)
	}

	// --- Atomic transaction: all-or-nothing ---

	var (
		result   PlaceResult
		quote    *parimutuel.Quote
		outNames = outcomeNames(outcomes)
	)

	err = s.store.InTx(ctx, func(tx store.Store) error {
		// Debit the gross amount first; the store-level guard aborts
		// on any concurrent race toward a negative balance.
		newBalance, err := tx.Debit(ctx, req.UserID, s.currency, req.Amount)
		if err != nil {
			return err
		}

		wagerFee := s.computeFee(req.Amount, market.FeePercent, fee.Tier(user.Tier))
		netStake := req.Amount.Sub(wagerFee)

		// Re-read pool state inside the transaction so concurrent
		// wagers never price against a stale pool.
		txMarket, err := tx.GetMarket(ctx, req.MarketID)
		if err != nil {
			return err
		}

		// Recheck the close conditions against the transactional read:
		// the pre-transaction check may have seen a cached market that a
		// concurrent admin close or settlement already invalidated.
		if !s.marketAcceptsWagers(txMarket.Status) {
			return E(CodeMarketClosed, "market is not open for betting (status %s)", txMarket.Status)
		}
		if txMarket.ClosesAt != nil && !now.Before(*txMarket.ClosesAt) {
			return E(CodeMarketClosed, "market closed at %s", txMarket.ClosesAt.Format(time.RFC3339))
		}

		txOutcomes, err := tx.OutcomesByMarket(ctx, req.MarketID)
		if err != nil {
			return err
		}

		pool, err := parimutuel.NewPool(txMarket.TotalVolume, txMarket.Liquidity, outcomeVolumes(txOutcomes))
		if err != nil {
			return err
		}
		quote, err = pool.Quote(req.OutcomeID, netStake)
		if err != nil {
			return err
		}

		pred := &model.Prediction{
			ID:              uuid.New().String(),
			UserID:          req.UserID,
			MatchID:         req.MatchID,
			MarketID:        req.MarketID,
			OutcomeID:       req.OutcomeID,
			Amount:          req.Amount,
			Fee:             wagerFee,
			NetStake:        netStake,
			OddsAtPlacement: quote.ExecutionOdds,
			PotentialPayout: quote.PotentialPayout,
			Status:          model.PredictionActive,
			CreatedAt:       now,
		}
		if err := tx.InsertPrediction(ctx, pred); err != nil {
			return err
		}

		// Persist refreshed odds on every outcome; only the chosen one
		// gains volume.
		for _, o := range quote.Outcomes {
			delta := decimal.Zero
			if o.ID == req.OutcomeID {
				delta = netStake
			}
			if err := tx.UpdateOutcome(ctx, o.ID, o.Odds, delta); err != nil {
				return err
			}
		}
		if err := tx.AddMarketVolume(ctx, req.MarketID, netStake); err != nil {
			return err
		}

		if err := tx.AppendTransaction(ctx, &model.Transaction{
			ID:           uuid.New().String(),
			UserID:       req.UserID,
			Currency:     s.currency,
			Type:         model.TxBetPlaced,
			Amount:       req.Amount,
			BalanceAfter: newBalance,
			Reference:    pred.ID,
			CreatedAt:    now,
		}); err != nil {
			return err
		}
		if wagerFee.IsPositive() {
			if err := tx.AppendTransaction(ctx, &model.Transaction{
				ID:           uuid.New().String(),
				UserID:       req.UserID,
				Currency:     s.currency,
				Type:         model.TxPlatformFee,
				Amount:       wagerFee,
				BalanceAfter: newBalance,
				Reference:    pred.ID,
				CreatedAt:    now,
			}); err != nil {
				return err
			}
		}

		if err := tx.BumpCounters(ctx, req.MatchID, req.UserID, netStake); err != nil {
			return err
		}

		rewarded, err := s.cascade.Run(ctx, tx, req.UserID, pred.ID, netStake)
		if err != nil {
			return err
		}
		if rewarded {
			metrics.ReferralRewards.Inc()
		}

		result = PlaceResult{
			PredictionID:    pred.ID,
			Amount:          req.Amount,
			Fee:             wagerFee,
			NetStake:        netStake,
			Odds:            quote.ExecutionOdds,
			PotentialPayout: quote.PotentialPayout,
			Status:          pred.Status,
		}
		return nil
	})
	if err != nil {
		// Any failure inside the transaction rolls everything back.
		// The in-tx close recheck carries its own rejection code, and a
		// debit lost to a concurrent wager stays an insufficient-funds
		// rejection; everything else surfaces as an internal error.
		var we *Error
		if errors.As(err, &we) {
			return nil, we
		}
		if errors.Is(err, store.ErrInsufficientFunds) {
			return nil, E(CodeInsufficientFunds,
				"insufficient funds: balance changed concurrently, requested %s", req.Amount)
		}
		return nil, internalErr(err)
	}

	slog.Info("wager placed",
		"prediction", result.PredictionID,
		"user", req.UserID,
		"market", req.MarketID,
		"outcome", req.OutcomeID,
		"amount", result.Amount.String(),
		"fee", result.Fee.String(),
		"odds", result.Odds.String(),
	)

	s.runHooks(ctx, &Placed{
		Request: req,
		Result:  result,
		Activity: event.Activity{
			ID:      result.PredictionID,
			User:    user.Username,
			Amount:  result.Amount,
			Match:   match.Label,
			Outcome: outNames[req.OutcomeID],
			Time:    now,
		},
		Odds: event.OddsUpdate{
			MatchID:  req.MatchID,
			MarketID: req.MarketID,
			Outcomes: toEventOdds(quote.Outcomes),
		},
	})

	return &result, nil
}

// runHooks executes post-commit hooks, each fault-isolated.
func (s *Service) runHooks(ctx context.Context, p *Placed) {
	for _, h := range s.hooks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("post-commit hook panicked", "panic", r)
				}
			}()
			h(ctx, p)
		}()
	}
}

func (s *Service) marketAcceptsWagers(status model.MarketStatus) bool {
	if status == model.MarketOpen {
		return true
	}
	return s.allowLive && status == model.MarketLive
}

func (s *Service) bettingLocked(status model.MatchStatus) bool {
	if status == model.MatchCompleted {
		return true
	}
	return !s.allowLive && status == model.MatchLive
}

// computeFee uses the market's flat percent override when set, otherwise
// the tiered policy.
func (s *Service) computeFee(amount, marketPercent decimal.Decimal, tier fee.Tier) decimal.Decimal {
	if marketPercent.IsPositive() {
		return fee.ComputePercent(amount, marketPercent)
	}
	return s.fees.Compute(amount, tier)
}

// --- Read-side queries ---

// MarketWithOutcomes returns a market and its outcomes with live odds.
func (s *Service) MarketWithOutcomes(ctx context.Context, marketID string) (*model.Market, []model.Outcome, error) {
	market, err := s.store.GetMarket(ctx, marketID)
	if err != nil {
		return nil, nil, err
	}
	outcomes, err := s.store.OutcomesByMarket(ctx, marketID)
	if err != nil {
		return nil, nil, err
	}
	return market, outcomes, nil
}

// UserPredictions returns a user's predictions, newest first.
func (s *Service) UserPredictions(ctx context.Context, userID string) ([]model.Prediction, error) {
	return s.store.PredictionsByUser(ctx, userID)
}

// Balance returns a user's wallet in the engine currency.
func (s *Service) Balance(ctx context.Context, userID string) (*model.Wallet, error) {
	return s.store.GetWallet(ctx, userID, s.currency)
}

// --- helpers ---

func containsOutcome(outcomes []model.Outcome, id string) bool {
	for _, o := range outcomes {
		if o.ID == id {
			return true
		}
	}
	return false
}

func outcomeVolumes(outcomes []model.Outcome) []parimutuel.OutcomeVolume {
	vols := make([]parimutuel.OutcomeVolume, len(outcomes))
	for i, o := range outcomes {
		vols[i] = parimutuel.OutcomeVolume{ID: o.ID, Volume: o.Volume}
	}
	return vols
}

func outcomeNames(outcomes []model.Outcome) map[string]string {
	names := make(map[string]string, len(outcomes))
	for _, o := range outcomes {
		names[o.ID] = o.Name
	}
	return names
}

func toEventOdds(odds []parimutuel.OutcomeOdds) []event.OutcomeOdds {
	out := make([]event.OutcomeOdds, len(odds))
	for i, o := range odds {
		out[i] = event.OutcomeOdds{ID: o.ID, Odds: o.Odds}
	}
	return out
}
