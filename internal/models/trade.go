package models

import (
	"strings"
	"time"

	apperrors "trading-journal/internal/errors"
)

// Trade represents a logged trade. Numeric fields are normalized; optional
// ones are nil when absent.
type Trade struct {
	ID                    int64     `json:"id"`
	TradeDate             time.Time `json:"tradeDate"`
	StockName             string    `json:"stockName"`
	Quantity              float64   `json:"quantity"`
	EntryPrice            float64   `json:"entryPrice"`
	ExitPrice             *float64  `json:"exitPrice"`
	StopLoss              *float64  `json:"stopLoss"`
	TargetPrice           *float64  `json:"targetPrice"`
	ProfitLoss            *float64  `json:"profitLoss"`
	SetupFollowed         bool      `json:"setupFollowed"`
	WhichSetup            string    `json:"whichSetup"`
	Emotion               Emotion   `json:"emotion"`
	Notes                 string    `json:"notes"`
	PsychologyReflections string    `json:"psychologyReflections"`
	ScreenshotLink        string    `json:"screenshotLink"`
	CreatedAt             time.Time `json:"createdAt"`
}

// IsOpen reports whether the position has no exit price yet.
func (t Trade) IsOpen() bool {
	return t.ExitPrice == nil
}

// DateString returns the trade date as YYYY-MM-DD, or "" when unknown.
func (t Trade) DateString() string {
	if t.TradeDate.IsZero() {
		return ""
	}
	return t.TradeDate.Format(DateLayout)
}

// Validate checks the fields the entry form requires.
func (t Trade) Validate() error {
	if t.TradeDate.IsZero() {
		return apperrors.NewValidationError("tradeDate", t.TradeDate, "a valid YYYY-MM-DD date is required")
	}
	if strings.TrimSpace(t.StockName) == "" {
		return apperrors.NewValidationError("stockName", t.StockName, "stock name is required")
	}
	if t.Quantity <= 0 {
		return apperrors.NewValidationError("quantity", t.Quantity, "must be greater than zero")
	}
	if t.EntryPrice <= 0 {
		return apperrors.NewValidationError("entryPrice", t.EntryPrice, "must be greater than zero")
	}
	if t.ExitPrice != nil && *t.ExitPrice < 0 {
		return apperrors.NewValidationError("exitPrice", *t.ExitPrice, "must not be negative")
	}
	if t.Emotion != "" {
		if _, ok := ParseEmotion(string(t.Emotion)); !ok {
			return apperrors.NewValidationError("emotion", t.Emotion, "unknown emotion")
		}
	}
	return nil
}

// TradeInput is a trade as submitted by a form or read from a sheet row.
type TradeInput struct {
	ID                    Number `json:"id"`
	TradeDate             string `json:"tradeDate"`
	StockName             string `json:"stockName"`
	Quantity              Number `json:"quantity"`
	EntryPrice            Number `json:"entryPrice"`
	ExitPrice             Number `json:"exitPrice"`
	StopLoss              Number `json:"stopLoss"`
	TargetPrice           Number `json:"targetPrice"`
	ProfitLoss            Number `json:"profitLoss"`
	SetupFollowed         Flag   `json:"setupFollowed"`
	WhichSetup            string `json:"whichSetup"`
	Emotion               string `json:"emotion"`
	Notes                 string `json:"notes"`
	PsychologyReflections string `json:"psychologyReflections"`
	ScreenshotLink        string `json:"screenshotLink"`
	CreatedAt             string `json:"createdAt"`
}

// Normalize converts the raw input into a Trade. Unparseable values become
// absent; no error is returned so that a partially filled row still loads.
func (in TradeInput) Normalize() Trade {
	date, _ := ParseTradeDate(in.TradeDate)
	emotion, _ := ParseEmotion(in.Emotion)
	return Trade{
		ID:                    int64(in.ID.Or(0)),
		TradeDate:             date,
		StockName:             strings.TrimSpace(in.StockName),
		Quantity:              in.Quantity.Or(0),
		EntryPrice:            in.EntryPrice.Or(0),
		ExitPrice:             in.ExitPrice.Ptr(),
		StopLoss:              in.StopLoss.Ptr(),
		TargetPrice:           in.TargetPrice.Ptr(),
		ProfitLoss:            in.ProfitLoss.Ptr(),
		SetupFollowed:         bool(in.SetupFollowed),
		WhichSetup:            strings.TrimSpace(in.WhichSetup),
		Emotion:               emotion,
		Notes:                 in.Notes,
		PsychologyReflections: in.PsychologyReflections,
		ScreenshotLink:        strings.TrimSpace(in.ScreenshotLink),
		CreatedAt:             parseTimestamp(in.CreatedAt),
	}
}

// ToInput converts a Trade back to its row form.
func (t Trade) ToInput() TradeInput {
	in := TradeInput{
		ID:                    NumberFromFloat(float64(t.ID)),
		TradeDate:             t.DateString(),
		StockName:             t.StockName,
		Quantity:              NumberFromFloat(t.Quantity),
		EntryPrice:            NumberFromFloat(t.EntryPrice),
		ExitPrice:             NumberFromPtr(t.ExitPrice),
		StopLoss:              NumberFromPtr(t.StopLoss),
		TargetPrice:           NumberFromPtr(t.TargetPrice),
		ProfitLoss:            NumberFromPtr(t.ProfitLoss),
		SetupFollowed:         Flag(t.SetupFollowed),
		WhichSetup:            t.WhichSetup,
		Emotion:               string(t.Emotion),
		Notes:                 t.Notes,
		PsychologyReflections: t.PsychologyReflections,
		ScreenshotLink:        t.ScreenshotLink,
	}
	if !t.CreatedAt.IsZero() {
		in.CreatedAt = t.CreatedAt.UTC().Format(time.RFC3339)
	}
	return in
}

// TradePatch is a partial update. Nil fields are left unchanged; an
// optional numeric field set to an absent Number is cleared.
type TradePatch struct {
	TradeDate             *string `json:"tradeDate"`
	StockName             *string `json:"stockName"`
	Quantity              *Number `json:"quantity"`
	EntryPrice            *Number `json:"entryPrice"`
	ExitPrice             *Number `json:"exitPrice"`
	StopLoss              *Number `json:"stopLoss"`
	TargetPrice           *Number `json:"targetPrice"`
	ProfitLoss            *Number `json:"profitLoss"`
	SetupFollowed         *Flag   `json:"setupFollowed"`
	WhichSetup            *string `json:"whichSetup"`
	Emotion               *string `json:"emotion"`
	Notes                 *string `json:"notes"`
	PsychologyReflections *string `json:"psychologyReflections"`
	ScreenshotLink        *string `json:"screenshotLink"`
}

// IsEmpty reports whether the patch changes nothing.
func (p TradePatch) IsEmpty() bool {
	return p == TradePatch{}
}

// ApplyTo applies the supplied fields to t.
func (p TradePatch) ApplyTo(t *Trade) {
	if p.TradeDate != nil {
		t.TradeDate, _ = ParseTradeDate(*p.TradeDate)
	}
	if p.StockName != nil {
		t.StockName = strings.TrimSpace(*p.StockName)
	}
	if p.Quantity != nil {
		t.Quantity = p.Quantity.Or(0)
	}
	if p.EntryPrice != nil {
		t.EntryPrice = p.EntryPrice.Or(0)
	}
	if p.ExitPrice != nil {
		t.ExitPrice = p.ExitPrice.Ptr()
	}
	if p.StopLoss != nil {
		t.StopLoss = p.StopLoss.Ptr()
	}
	if p.TargetPrice != nil {
		t.TargetPrice = p.TargetPrice.Ptr()
	}
	if p.ProfitLoss != nil {
		t.ProfitLoss = p.ProfitLoss.Ptr()
	}
	if p.SetupFollowed != nil {
		t.SetupFollowed = bool(*p.SetupFollowed)
	}
	if p.WhichSetup != nil {
		t.WhichSetup = strings.TrimSpace(*p.WhichSetup)
	}
	if p.Emotion != nil {
		t.Emotion, _ = ParseEmotion(*p.Emotion)
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
	if p.PsychologyReflections != nil {
		t.PsychologyReflections = *p.PsychologyReflections
	}
	if p.ScreenshotLink != nil {
		t.ScreenshotLink = strings.TrimSpace(*p.ScreenshotLink)
	}
}
