package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trade-advisor/internal/engine"
	"trade-advisor/internal/levels"
	"trade-advisor/internal/market"
	"trade-advisor/internal/profile"
	"trade-advisor/internal/signal"
	"trade-advisor/internal/store"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	registry, err := profile.NewRegistry()
	if err != nil {
		t.Fatalf("default registry failed: %v", err)
	}
	eng := engine.New(registry, levels.NewDetector(levels.DefaultConfig()), engine.RiskTargetConfig{}, nil)
	cache := store.NewRecommendationCache(nil, time.Minute, nil)
	return NewServer(DefaultServerConfig(), eng, registry, cache, nil, nil)
}

func testCandles(n int) []market.Candle {
	candles := make([]market.Candle, n)
	for i := range candles {
		candles[i] = market.Candle{
			OpenTime:  int64(i) * 3600,
			Open:      100,
			High:      100.5,
			Low:       99.5,
			Close:     100,
			Volume:    1000,
			CloseTime: int64(i+1)*3600 - 1,
		}
	}
	return candles
}

func testRequest() RecommendRequest {
	return RecommendRequest{
		Symbol:  "BTCUSDT",
		Style:   "day_trading",
		Capital: 10000,
		Signals: []signal.StrategySignal{
			{
				StrategyName: "momentum",
				Timeframe:    "1h",
				Signal:       signal.ActionBuy,
				Confidence:   0.8,
				Strength:     0.9,
				EntryRange:   signal.EntryRange{Min: 99.5, Max: 100.5},
				RiskTargets:  signal.RiskTargets{StopLoss: 97, TakeProfit: 106},
			},
		},
		Candles: testCandles(60),
	}
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	s := testServer(t)
	w := doJSON(t, s, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestRecommendEndpoint(t *testing.T) {
	s := testServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/v1/recommend", testRequest())
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var rec engine.Recommendation
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if rec.Symbol != "BTCUSDT" {
		t.Errorf("expected BTCUSDT, got %q", rec.Symbol)
	}
	if rec.Action != signal.ActionBuy {
		t.Errorf("expected BUY, got %s", rec.Action)
	}
	if rec.ID == "" {
		t.Error("expected an id")
	}
}

func TestRecommendUnknownStyle(t *testing.T) {
	s := testServer(t)

	req := testRequest()
	req.Style = "scalping"

	w := doJSON(t, s, http.MethodPost, "/api/v1/recommend", req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestRecommendMalformedBody(t *testing.T) {
	s := testServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recommend", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestRecommendPopulatesLatestCache(t *testing.T) {
	s := testServer(t)

	if w := doJSON(t, s, http.MethodGet, "/api/v1/recommendations/BTCUSDT/latest?style=day_trading", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on a cold cache, got %d", w.Code)
	}

	if w := doJSON(t, s, http.MethodPost, "/api/v1/recommend", testRequest()); w.Code != http.StatusOK {
		t.Fatalf("recommend failed: %d", w.Code)
	}

	w := doJSON(t, s, http.MethodGet, "/api/v1/recommendations/BTCUSDT/latest?style=day_trading", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 after recommend, got %d", w.Code)
	}
}

func TestProfilesEndpoint(t *testing.T) {
	s := testServer(t)

	w := doJSON(t, s, http.MethodGet, "/api/v1/profiles", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Profiles []struct {
			Style string `json:"style"`
		} `json:"profiles"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Profiles) != 4 {
		t.Errorf("expected 4 profiles, got %d", len(resp.Profiles))
	}
}

func TestHistoryWithoutRepository(t *testing.T) {
	s := testServer(t)

	w := doJSON(t, s, http.MethodGet, "/api/v1/recommendations/BTCUSDT", nil)
	if w.Code != http.StatusNotImplemented {
		t.Errorf("expected 501 with the audit trail disabled, got %d", w.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.Allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("1.2.3.4") {
		t.Error("4th request should be rejected")
	}
	if !rl.Allow("5.6.7.8") {
		t.Error("other clients must not be affected")
	}
}

func TestRateLimiterEvictsIdleClients(t *testing.T) {
	rl := NewRateLimiter(1, 10*time.Millisecond)

	rl.Allow("a")
	rl.Allow("b")
	time.Sleep(20 * time.Millisecond)

	// A request after the window sweeps the idle entries away.
	rl.Allow("c")

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if len(rl.requests) != 1 {
		t.Errorf("expected only the live client tracked, got %d entries", len(rl.requests))
	}
	if _, ok := rl.requests["c"]; !ok {
		t.Error("live client must still be tracked")
	}
}

func TestRateLimiterWindowSlides(t *testing.T) {
	rl := NewRateLimiter(1, 10*time.Millisecond)

	if !rl.Allow("a") {
		t.Fatal("first request should pass")
	}
	if rl.Allow("a") {
		t.Fatal("second immediate request should be rejected")
	}
	time.Sleep(20 * time.Millisecond)
	if !rl.Allow("a") {
		t.Error("request after the window should pass")
	}
}
