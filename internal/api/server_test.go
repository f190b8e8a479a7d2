package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"trading-journal/internal/analytics"
	"trading-journal/internal/models"
	"trading-journal/internal/resilience"
	"trading-journal/internal/store"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newTestServer(t *testing.T) (*Server, *store.MemoryStore) {
	t.Helper()
	ds := store.NewMemoryStore()
	s := NewServer(ds, zerolog.Nop(), Options{Port: 0, CORSOrigin: "*", DefaultWindow: analytics.Window{Kind: analytics.WindowAll}})
	s.now = func() time.Time { return time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC) }
	return s, ds
}

func do(t *testing.T, s *Server, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, isString := body.(string); isString {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("%s %s: invalid JSON %q", method, path, w.Body.String())
		}
	}
	return w.Code, env
}

func seed(t *testing.T, ds *store.MemoryStore) {
	t.Helper()
	ctx := context.Background()
	exit := func(v float64) *float64 { return &v }
	for _, st := range []*models.Strategy{
		{Name: "Breakout", Status: models.StrategyActive},
		{Name: "Fade", Status: models.StrategyTesting},
	} {
		if err := ds.CreateStrategy(ctx, st); err != nil {
			t.Fatal(err)
		}
	}
	for _, tr := range []*models.Trade{
		{TradeDate: time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC), StockName: "TCS", Quantity: 10, EntryPrice: 100, ExitPrice: exit(110), WhichSetup: "Breakout", Emotion: models.EmotionConfident, SetupFollowed: true},
		{TradeDate: time.Date(2024, 6, 25, 0, 0, 0, 0, time.UTC), StockName: "INFY", Quantity: 5, EntryPrice: 200, ExitPrice: exit(190), WhichSetup: "Fade", Emotion: models.EmotionAnxious},
		{TradeDate: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), StockName: "SBIN", Quantity: 1, EntryPrice: 50, ExitPrice: exit(80), WhichSetup: "Breakout"},
	} {
		if err := ds.CreateTrade(ctx, tr); err != nil {
			t.Fatal(err)
		}
	}
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	code, env := do(t, s, http.MethodGet, "/health", nil)
	if code != http.StatusOK || !env.Success {
		t.Errorf("health = %d %+v", code, env)
	}
}

// remoteStore is a memory store that reports a remote backend state.
type remoteStore struct {
	*store.MemoryStore
	state resilience.CircuitState
}

func (r remoteStore) BackendHealth() resilience.BreakerStats {
	return resilience.BreakerStats{Name: "sheets", State: r.state, TotalRequests: 4, TotalFailures: 4}
}

func TestHealthReportsBackend(t *testing.T) {
	for _, tt := range []struct {
		state resilience.CircuitState
		want  string
	}{
		{resilience.CircuitClosed, "ok"},
		{resilience.CircuitOpen, "degraded"},
	} {
		s := NewServer(remoteStore{store.NewMemoryStore(), tt.state}, zerolog.Nop(), Options{})
		code, env := do(t, s, http.MethodGet, "/health", nil)
		if code != http.StatusOK {
			t.Fatalf("health = %d", code)
		}
		var health struct {
			Status      string                  `json:"status"`
			Backend     resilience.BreakerStats `json:"backend"`
			FailureRate float64                 `json:"backendFailureRate"`
		}
		if err := json.Unmarshal(env.Data, &health); err != nil {
			t.Fatal(err)
		}
		if health.Status != tt.want || health.Backend.State != tt.state || health.FailureRate != 100 {
			t.Errorf("%s: health = %+v", tt.state, health)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/trades", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q", got)
	}
}

func TestTradeEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	code, env := do(t, s, http.MethodPost, "/api/trades", map[string]interface{}{
		"tradeDate":  "2024-05-02",
		"stockName":  "HDFC",
		"quantity":   "20",
		"entryPrice": "1500.5",
		"exitPrice":  1510.5,
		"emotion":    "disciplined",
	})
	if code != http.StatusCreated || !env.Success {
		t.Fatalf("create = %d %s", code, env.Error)
	}
	var created models.Trade
	json.Unmarshal(env.Data, &created)
	if created.ID == 0 || created.Quantity != 20 || created.Emotion != models.EmotionDisciplined {
		t.Errorf("created = %+v", created)
	}

	code, env = do(t, s, http.MethodPut, "/api/trades/1", map[string]interface{}{"notes": "good exit"})
	if code != http.StatusOK {
		t.Fatalf("update = %d %s", code, env.Error)
	}
	var updated models.Trade
	json.Unmarshal(env.Data, &updated)
	if updated.Notes != "good exit" || updated.StockName != "HDFC" {
		t.Errorf("updated = %+v", updated)
	}

	code, env = do(t, s, http.MethodGet, "/api/trades?symbol=HDFC", nil)
	var list []models.Trade
	json.Unmarshal(env.Data, &list)
	if code != http.StatusOK || len(list) != 1 {
		t.Errorf("list = %d %v", code, list)
	}

	if code, _ = do(t, s, http.MethodDelete, "/api/trades/1", nil); code != http.StatusOK {
		t.Errorf("delete = %d", code)
	}
	if code, env = do(t, s, http.MethodGet, "/api/trades/1", nil); code != http.StatusNotFound || env.Success {
		t.Errorf("get after delete = %d %+v", code, env)
	}
}

func TestTradeEndpointErrors(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"missing stock", http.MethodPost, "/api/trades", map[string]interface{}{"tradeDate": "2024-01-01", "quantity": 1, "entryPrice": 10}, http.StatusBadRequest},
		{"bad json", http.MethodPost, "/api/trades", "{not json", http.StatusBadRequest},
		{"bad id", http.MethodGet, "/api/trades/abc", nil, http.StatusBadRequest},
		{"unknown id", http.MethodPut, "/api/trades/42", map[string]interface{}{"notes": "x"}, http.StatusNotFound},
		{"bad filter date", http.MethodGet, "/api/trades?start=yesterday", nil, http.StatusBadRequest},
		{"unknown route", http.MethodGet, "/api/nothing", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := do(t, s, tt.method, tt.path, tt.body)
			if code != tt.want {
				t.Errorf("status = %d, want %d (%s)", code, tt.want, env.Error)
			}
			if env.Success || env.Error == "" {
				t.Errorf("expected error envelope, got %+v", env)
			}
		})
	}
}

func TestStrategyAndPsychologyEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	code, env := do(t, s, http.MethodPost, "/api/strategies", map[string]interface{}{"name": "Breakout", "tags": "momentum,trend"})
	if code != http.StatusCreated {
		t.Fatalf("create strategy = %d %s", code, env.Error)
	}
	var st models.Strategy
	json.Unmarshal(env.Data, &st)
	if st.Status != models.StrategyActive || len(st.Tags) != 2 {
		t.Errorf("strategy = %+v", st)
	}

	if code, _ = do(t, s, http.MethodPost, "/api/strategies", map[string]interface{}{"name": "Breakout"}); code != http.StatusBadRequest {
		t.Errorf("duplicate strategy = %d, want 400", code)
	}
	if code, _ = do(t, s, http.MethodPut, "/api/strategies/1", map[string]interface{}{"status": "retired"}); code != http.StatusBadRequest {
		t.Errorf("bad status = %d, want 400", code)
	}

	code, env = do(t, s, http.MethodPost, "/api/psychology", map[string]interface{}{"month": "6", "year": 2024, "monthlyPnL": "1250"})
	if code != http.StatusCreated {
		t.Fatalf("create psychology = %d %s", code, env.Error)
	}
	code, env = do(t, s, http.MethodGet, "/api/psychology", nil)
	var entries []models.PsychologyEntry
	json.Unmarshal(env.Data, &entries)
	if code != http.StatusOK || len(entries) != 1 || entries[0].MonthlyPnL == nil || *entries[0].MonthlyPnL != 1250 {
		t.Errorf("psychology list = %d %+v", code, entries)
	}
}

func TestSummaryEndpoint(t *testing.T) {
	s, ds := newTestServer(t)
	seed(t, ds)

	code, env := do(t, s, http.MethodGet, "/api/analytics/summary", nil)
	if code != http.StatusOK {
		t.Fatalf("summary = %d %s", code, env.Error)
	}
	var all analytics.Summary
	json.Unmarshal(env.Data, &all)
	// 100 - 50 + 30
	if all.Metrics.TotalPnL != 80 || all.Metrics.Outcomes.Total != 3 {
		t.Errorf("all-time metrics = %+v", all.Metrics)
	}

	_, env = do(t, s, http.MethodGet, "/api/analytics/summary?window=30d&active_only=true", nil)
	var recent analytics.Summary
	json.Unmarshal(env.Data, &recent)
	if recent.Metrics.TotalPnL != 100 || recent.Metrics.Outcomes.Total != 1 {
		t.Errorf("30d active metrics = %+v", recent.Metrics)
	}

	_, env = do(t, s, http.MethodGet, "/api/analytics/summary?start=2024-01-01&end=2024-01-31", nil)
	var jan analytics.Summary
	json.Unmarshal(env.Data, &jan)
	if jan.Metrics.TotalPnL != 30 {
		t.Errorf("january metrics = %+v", jan.Metrics)
	}

	if code, _ = do(t, s, http.MethodGet, "/api/analytics/summary?window=fortnight", nil); code != http.StatusBadRequest {
		t.Errorf("bad window = %d, want 400", code)
	}
	if code, _ = do(t, s, http.MethodGet, "/api/analytics/summary?window=custom", nil); code != http.StatusBadRequest {
		t.Errorf("window=custom = %d, want 400", code)
	}
}

func TestSummaryWithOverflowingPnL(t *testing.T) {
	s, _ := newTestServer(t)
	for _, day := range []string{"2024-06-10", "2024-06-11"} {
		code, env := do(t, s, http.MethodPost, "/api/trades", map[string]interface{}{
			"tradeDate":  day,
			"stockName":  "MRF",
			"quantity":   1,
			"entryPrice": 100000,
			"profitLoss": "1e308",
		})
		if code != http.StatusCreated {
			t.Fatalf("create = %d %s", code, env.Error)
		}
	}

	for _, path := range []string{"/api/analytics/summary", "/api/analytics/monthly", "/api/analytics/strategies"} {
		code, env := do(t, s, http.MethodGet, path, nil)
		if code != http.StatusOK || !env.Success || len(env.Data) == 0 {
			t.Errorf("%s = %d %+v", path, code, env)
		}
	}

	_, env := do(t, s, http.MethodGet, "/api/analytics/summary", nil)
	var summary analytics.Summary
	if err := json.Unmarshal(env.Data, &summary); err != nil {
		t.Fatal(err)
	}
	if summary.Metrics.Outcomes.Wins != 2 || summary.Metrics.TotalPnL != 0 || summary.Metrics.ProfitFactor != 0 {
		t.Errorf("metrics = %+v", summary.Metrics)
	}
}

func TestBreakdownEndpoints(t *testing.T) {
	s, ds := newTestServer(t)
	seed(t, ds)

	_, env := do(t, s, http.MethodGet, "/api/analytics/monthly", nil)
	var months []analytics.PeriodStats
	json.Unmarshal(env.Data, &months)
	if len(months) != 2 || months[0].Period != "2024-01" || months[1].PnL != 50 {
		t.Errorf("monthly = %+v", months)
	}

	_, env = do(t, s, http.MethodGet, "/api/analytics/strategies", nil)
	var byStrategy []analytics.GroupStats
	json.Unmarshal(env.Data, &byStrategy)
	if len(byStrategy) != 2 || byStrategy[0].Key != "Breakout" || byStrategy[0].TotalPnL != 130 || byStrategy[1].Status != models.StrategyTesting {
		t.Errorf("strategies = %+v", byStrategy)
	}

	_, env = do(t, s, http.MethodGet, "/api/analytics/emotions", nil)
	var byEmotion []analytics.GroupStats
	json.Unmarshal(env.Data, &byEmotion)
	if len(byEmotion) != 3 {
		t.Errorf("emotions = %+v", byEmotion)
	}

	_, env = do(t, s, http.MethodGet, "/api/analytics/daily?window=7d", nil)
	var days []analytics.PeriodStats
	json.Unmarshal(env.Data, &days)
	if len(days) != 1 || days[0].Period != "2024-06-25" {
		t.Errorf("daily = %+v", days)
	}
}
