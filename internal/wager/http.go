package wager

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/crickpool/prediction-engine/internal/model"
	"github.com/crickpool/prediction-engine/internal/store"
)

type ctxKey int

const userIDKey ctxKey = 0

// UserResolver extracts the caller identity from a request. An empty
// string means unauthenticated.
type UserResolver func(r *http.Request) string

// HeaderUserResolver trusts the X-User-ID header set by the upstream
// auth gateway.
func HeaderUserResolver(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

// AuthMiddleware resolves the caller identity into the request context.
// Handlers reject requests with no identity.
func AuthMiddleware(resolve UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), userIDKey, resolve(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func userID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

// --- Response envelope ---

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

func writeFail(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Success: false, Error: msg})
}

func writeWagerErr(w http.ResponseWriter, err error) {
	if we, ok := err.(*Error); ok {
		writeFail(w, HTTPStatus(we.Code), we.Message)
		return
	}
	if errors.Is(err, store.ErrNotFound) {
		writeFail(w, http.StatusNotFound, "not found")
		return
	}
	writeFail(w, http.StatusInternalServerError, "internal error: "+err.Error())
}

// --- HTTP Handlers ---

type placeWagerBody struct {
	MatchID   string          `json:"matchId"`
	MarketID  string          `json:"marketId"`
	OutcomeID string          `json:"outcomeId"`
	Amount    decimal.Decimal `json:"amount"`
}

// HandlePlaceWager handles POST /api/v1/wagers.
func (s *Service) HandlePlaceWager(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeFail(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var body placeWagerBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.MatchID == "" || body.MarketID == "" || body.OutcomeID == "" {
		writeFail(w, http.StatusBadRequest, "matchId, marketId and outcomeId are required")
		return
	}

	res, err := s.PlaceWager(r.Context(), PlaceRequest{
		UserID:    uid,
		MatchID:   body.MatchID,
		MarketID:  body.MarketID,
		OutcomeID: body.OutcomeID,
		Amount:    body.Amount,
	})
	if err != nil {
		writeWagerErr(w, err)
		return
	}
	writeData(w, http.StatusCreated, res)
}

type marketView struct {
	Market   *model.Market   `json:"market"`
	Outcomes []model.Outcome `json:"outcomes"`
}

// HandleGetMarket handles GET /api/v1/markets/{marketID}.
func (s *Service) HandleGetMarket(w http.ResponseWriter, r *http.Request) {
	marketID := chi.URLParam(r, "marketID")

	market, outcomes, err := s.MarketWithOutcomes(r.Context(), marketID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeFail(w, http.StatusNotFound, "market not found")
			return
		}
		writeWagerErr(w, err)
		return
	}
	writeData(w, http.StatusOK, marketView{Market: market, Outcomes: outcomes})
}

// HandleGetPredictions handles GET /api/v1/predictions for the caller.
func (s *Service) HandleGetPredictions(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeFail(w, http.StatusUnauthorized, "authentication required")
		return
	}

	preds, err := s.UserPredictions(r.Context(), uid)
	if err != nil {
		writeWagerErr(w, err)
		return
	}
	if preds == nil {
		preds = []model.Prediction{}
	}
	writeData(w, http.StatusOK, preds)
}

// HandleGetWallet handles GET /api/v1/wallet for the caller.
func (s *Service) HandleGetWallet(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeFail(w, http.StatusUnauthorized, "authentication required")
		return
	}

	wallet, err := s.Balance(r.Context(), uid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeFail(w, http.StatusNotFound, "wallet not found for user")
			return
		}
		writeWagerErr(w, err)
		return
	}
	writeData(w, http.StatusOK, wallet)
}

// Routes mounts the wager API onto a chi router.
func (s *Service) Routes(r chi.Router) {
	r.Post("/wagers", s.HandlePlaceWager)
	r.Get("/markets/{marketID}", s.HandleGetMarket)
	r.Get("/predictions", s.HandleGetPredictions)
	r.Get("/wallet", s.HandleGetWallet)
}
