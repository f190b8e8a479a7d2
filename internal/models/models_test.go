package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	apperrors "trading-journal/internal/errors"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in    string
		want  float64
		valid bool
	}{
		{"42", 42, true},
		{" 1,250.50 ", 1250.5, true},
		{"₹3,000", 3000, true},
		{"-75.25", -75.25, true},
		{"", 0, false},
		{"n/a", 0, false},
	}
	for _, tt := range tests {
		n := ParseNumber(tt.in)
		got, ok := n.Float64()
		if ok != tt.valid || got != tt.want {
			t.Errorf("ParseNumber(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.valid)
		}
	}
}

func TestNumberJSON(t *testing.T) {
	var row struct {
		A Number `json:"a"`
		B Number `json:"b"`
		C Number `json:"c"`
		D Number `json:"d"`
		E Number `json:"e"`
	}
	if err := json.Unmarshal([]byte(`{"a": 10.5, "b": "20", "c": "", "d": null, "e": true}`), &row); err != nil {
		t.Fatal(err)
	}
	if row.A.Or(0) != 10.5 || row.B.Or(0) != 20 {
		t.Errorf("numbers = %v, %v", row.A, row.B)
	}
	if row.C.Valid() || row.D.Valid() || row.E.Valid() {
		t.Errorf("absent values parsed as present: %+v", row)
	}

	out, err := json.Marshal(struct {
		X Number `json:"x"`
		Y Number `json:"y"`
	}{NumberFromFloat(1.5), Number{}})
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"x":1.5,"y":null}` {
		t.Errorf("marshal = %s", out)
	}
}

func TestFlagAndTags(t *testing.T) {
	var row struct {
		A Flag `json:"a"`
		B Flag `json:"b"`
		C Flag `json:"c"`
		D Flag `json:"d"`
		T Tags `json:"t"`
		U Tags `json:"u"`
	}
	raw := `{"a": "TRUE", "b": "no", "c": 1, "d": "yes", "t": "momentum, , intraday", "u": ["swing", " "]}`
	if err := json.Unmarshal([]byte(raw), &row); err != nil {
		t.Fatal(err)
	}
	if !row.A || row.B || !row.C || !row.D {
		t.Errorf("flags = %v %v %v %v", row.A, row.B, row.C, row.D)
	}
	if len(row.T) != 2 || row.T[1] != "intraday" || len(row.U) != 1 {
		t.Errorf("tags = %q %q", row.T, row.U)
	}
}

func TestParseTradeDate(t *testing.T) {
	want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2024-03-15", "2024-03-15T18:30:00.000Z", "2024-03-15 09:15:00", "2024/03/15", "15-Mar-2024"} {
		got, ok := ParseTradeDate(in)
		if !ok || !got.Equal(want) {
			t.Errorf("ParseTradeDate(%q) = %v, %v", in, got, ok)
		}
	}
	if _, ok := ParseTradeDate("yesterday"); ok {
		t.Error("garbage date parsed")
	}
}

func TestTradeNormalizeAndValidate(t *testing.T) {
	var in TradeInput
	raw := `{"id":"7","tradeDate":"2024-05-02","stockName":" HDFC ","quantity":"20","entryPrice":1500,"exitPrice":"","emotion":"greedy","setupFollowed":"TRUE"}`
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		t.Fatal(err)
	}
	trade := in.Normalize()
	if trade.ID != 7 || trade.StockName != "HDFC" || trade.Quantity != 20 || !trade.IsOpen() {
		t.Errorf("trade = %+v", trade)
	}
	if trade.Emotion != EmotionGreedy || !trade.SetupFollowed || trade.DateString() != "2024-05-02" {
		t.Errorf("trade = %+v", trade)
	}
	if err := trade.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}

	bad := trade
	bad.Quantity = 0
	if err := bad.Validate(); !errors.Is(err, apperrors.ErrInputValidation) {
		t.Errorf("zero quantity: %v", err)
	}
	bad = trade
	bad.Emotion = "Bored"
	if err := bad.Validate(); err == nil {
		t.Error("unknown emotion accepted")
	}
	bad = trade
	bad.TradeDate = time.Time{}
	if err := bad.Validate(); err == nil {
		t.Error("missing date accepted")
	}

	back := trade.ToInput().Normalize()
	if back.StockName != trade.StockName || back.Quantity != trade.Quantity || back.ExitPrice != nil {
		t.Errorf("row round trip = %+v", back)
	}
}

func TestTradePatch(t *testing.T) {
	exit := 110.0
	trade := Trade{StockName: "TCS", Quantity: 10, EntryPrice: 100, ExitPrice: &exit, Notes: "first"}

	var patch TradePatch
	if err := json.Unmarshal([]byte(`{"exitPrice": "", "notes": "second", "quantity": "12"}`), &patch); err != nil {
		t.Fatal(err)
	}
	if patch.IsEmpty() {
		t.Fatal("patch reported empty")
	}
	patch.ApplyTo(&trade)
	if !trade.IsOpen() || trade.Notes != "second" || trade.Quantity != 12 || trade.StockName != "TCS" {
		t.Errorf("patched = %+v", trade)
	}
	if !(TradePatch{}).IsEmpty() {
		t.Error("zero patch not empty")
	}
}

func TestStrategyNormalize(t *testing.T) {
	s := StrategyInput{Name: " Breakout ", Tags: Tags{"a", "b"}}.Normalize()
	if s.Name != "Breakout" || s.Status != StrategyActive || !s.IsActive() {
		t.Errorf("strategy = %+v", s)
	}

	s = StrategyInput{Name: "Fade", Status: "Testing"}.Normalize()
	if s.Status != StrategyTesting || s.IsActive() {
		t.Errorf("status = %q", s.Status)
	}

	s = StrategyInput{Name: "Old", Status: "retired"}.Normalize()
	if err := s.Validate(); !errors.Is(err, apperrors.ErrInputValidation) {
		t.Errorf("unknown status: %v", err)
	}

	status := "deprecated"
	StrategyPatch{Status: &status}.ApplyTo(&s)
	if s.Status != StrategyDeprecated {
		t.Errorf("patched status = %q", s.Status)
	}
}

func TestPsychologyEntry(t *testing.T) {
	var in PsychologyInput
	if err := json.Unmarshal([]byte(`{"month":"3","year":2024,"bestTradeId":"12","worstTradeId":"","monthlyPnL":"-500"}`), &in); err != nil {
		t.Fatal(err)
	}
	p := in.Normalize()
	if p.Period() != "2024-03" || p.BestTradeID == nil || *p.BestTradeID != 12 || p.WorstTradeID != nil {
		t.Errorf("entry = %+v", p)
	}
	if p.MonthlyPnL == nil || *p.MonthlyPnL != -500 {
		t.Errorf("monthlyPnL = %v", p.MonthlyPnL)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}

	p.Month = 13
	if err := p.Validate(); !errors.Is(err, apperrors.ErrInputValidation) {
		t.Errorf("month 13: %v", err)
	}
}

func TestParseEmotion(t *testing.T) {
	if e, ok := ParseEmotion(" anxious "); !ok || e != EmotionAnxious {
		t.Errorf("ParseEmotion = %q, %v", e, ok)
	}
	if e, ok := ParseEmotion("Bored"); ok || e != "Bored" {
		t.Errorf("unknown emotion = %q, %v", e, ok)
	}
}
