package wager_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/crickpool/prediction-engine/internal/store"
	"github.com/crickpool/prediction-engine/internal/wager"
)

// newRouter mounts the wager API the way cmd/server does.
func newRouter(svc *wager.Service) chi.Router {
	r := chi.NewRouter()
	r.Use(wager.AuthMiddleware(wager.HeaderUserResolver))
	r.Route("/api/v1", svc.Routes)
	return r
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func doJSON(t *testing.T, router chi.Router, method, path, user string, body any) (*httptest.ResponseRecorder, apiEnvelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env apiEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("response is not an envelope: %v: %s", err, w.Body.String())
	}
	return w, env
}

func wagerBody(outcomeID string, amount float64) map[string]any {
	return map[string]any{
		"matchId":   "match-1",
		"marketId":  "market-1",
		"outcomeId": outcomeID,
		"amount":    amount,
	}
}

func TestHandlePlaceWager_Success(t *testing.T) {
	ms := store.NewMemoryStore()
	seedUser(t, ms, "alice", 1000)
	seedMarket(t, ms, 0, 0, 0)
	router := newRouter(newEngine(t, ms, wager.Options{}))

	w, env := doJSON(t, router, "POST", "/api/v1/wagers", "alice", wagerBody("out-a", 500))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if !env.Success {
		t.Fatalf("expected success envelope, got %s", w.Body.String())
	}

	var res wager.PlaceResult
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if res.PredictionID == "" {
		t.Error("expected non-empty prediction id")
	}
	if !res.Odds.Equal(d(1.5)) {
		t.Errorf("odds: expected 1.5, got %s", res.Odds)
	}
}

func TestHandlePlaceWager_Unauthenticated(t *testing.T) {
	ms := store.NewMemoryStore()
	seedMarket(t, ms, 0, 0, 0)
	router := newRouter(newEngine(t, ms, wager.Options{}))

	w, env := doJSON(t, router, "POST", "/api/v1/wagers", "", wagerBody("out-a", 500))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if env.Success || env.Error == "" {
		t.Errorf("expected failure envelope with message, got %s", w.Body.String())
	}
}

func TestHandlePlaceWager_InvalidBody(t *testing.T) {
	ms := store.NewMemoryStore()
	seedUser(t, ms, "alice", 1000)
	router := newRouter(newEngine(t, ms, wager.Options{}))

	req := httptest.NewRequest("POST", "/api/v1/wagers", bytes.NewBufferString("{not json"))
	req.Header.Set("X-User-ID", "alice")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestHandlePlaceWager_MissingFields(t *testing.T) {
	ms := store.NewMemoryStore()
	seedUser(t, ms, "alice", 1000)
	router := newRouter(newEngine(t, ms, wager.Options{}))

	w, env := doJSON(t, router, "POST", "/api/v1/wagers", "alice", map[string]any{"amount": 100})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if env.Success {
		t.Error("expected failure envelope")
	}
}

func TestHandlePlaceWager_InsufficientFunds(t *testing.T) {
	ms := store.NewMemoryStore()
	seedUser(t, ms, "alice", 50)
	seedMarket(t, ms, 0, 0, 0)
	router := newRouter(newEngine(t, ms, wager.Options{}))

	w, env := doJSON(t, router, "POST", "/api/v1/wagers", "alice", wagerBody("out-a", 100))

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
	}
	if env.Success || env.Error == "" {
		t.Errorf("expected failure envelope with message, got %s", w.Body.String())
	}
}

func TestHandlePlaceWager_UnknownMarketNotFound(t *testing.T) {
	ms := store.NewMemoryStore()
	seedUser(t, ms, "alice", 1000)
	seedMarket(t, ms, 0, 0, 0)
	router := newRouter(newEngine(t, ms, wager.Options{}))

	w, _ := doJSON(t, router, "POST", "/api/v1/wagers", "alice", map[string]any{
		"matchId": "match-1", "marketId": "missing", "outcomeId": "out-a", "amount": 100,
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown market, got %d", w.Code)
	}
}

func TestHandleGetMarket(t *testing.T) {
	ms := store.NewMemoryStore()
	seedMarket(t, ms, 0, 0, 0)
	router := newRouter(newEngine(t, ms, wager.Options{}))

	w, env := doJSON(t, router, "GET", "/api/v1/markets/market-1", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var view struct {
		Market struct {
			ID string `json:"id"`
		} `json:"market"`
		Outcomes []struct {
			ID string `json:"id"`
		} `json:"outcomes"`
	}
	if err := json.Unmarshal(env.Data, &view); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if view.Market.ID != "market-1" || len(view.Outcomes) != 2 {
		t.Errorf("unexpected market view: %s", env.Data)
	}

	w, _ = doJSON(t, router, "GET", "/api/v1/markets/nope", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown market, got %d", w.Code)
	}
}

func TestHandleGetPredictions(t *testing.T) {
	ms := store.NewMemoryStore()
	seedUser(t, ms, "alice", 1000)
	seedMarket(t, ms, 0, 0, 0)
	svc := newEngine(t, ms, wager.Options{})
	router := newRouter(svc)

	// Empty list before any wager.
	w, env := doJSON(t, router, "GET", "/api/v1/predictions", "alice", nil)
	if w.Code != http.StatusOK || string(env.Data) != "[]" {
		t.Fatalf("expected empty list, got %d: %s", w.Code, w.Body.String())
	}

	if _, err := place(svc, "alice", "out-a", 500); err != nil {
		t.Fatal(err)
	}

	w, env = doJSON(t, router, "GET", "/api/v1/predictions", "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var preds []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &preds); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(preds) != 1 {
		t.Errorf("expected 1 prediction, got %d", len(preds))
	}

	// Unauthenticated.
	w, _ = doJSON(t, router, "GET", "/api/v1/predictions", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestHandleGetWallet(t *testing.T) {
	ms := store.NewMemoryStore()
	seedUser(t, ms, "alice", 1000)
	router := newRouter(newEngine(t, ms, wager.Options{}))

	w, env := doJSON(t, router, "GET", "/api/v1/wallet", "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var wallet struct {
		Available decimal.Decimal `json:"available"`
	}
	if err := json.Unmarshal(env.Data, &wallet); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if !wallet.Available.Equal(d(1000)) {
		t.Errorf("available: expected 1000, got %s", wallet.Available)
	}

	w, _ = doJSON(t, router, "GET", "/api/v1/wallet", "nobody", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for missing wallet, got %d", w.Code)
	}
}
