package models

import (
	"fmt"
	"strings"
	"time"

	apperrors "trading-journal/internal/errors"
)

// PsychologyEntry is a monthly reflection. BestTradeID and WorstTradeID are
// not checked against existing trades.
type PsychologyEntry struct {
	ID           int64     `json:"id"`
	Month        int       `json:"month"`
	Year         int       `json:"year"`
	MonthlyPnL   *float64  `json:"monthlyPnL"`
	BestTradeID  *int64    `json:"bestTradeId"`
	WorstTradeID *int64    `json:"worstTradeId"`
	MentalState  string    `json:"mentalState"`
	Improvements string    `json:"improvementAreas"`
	Lessons      string    `json:"lessonsLearned"`
	Reflections  string    `json:"reflections"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Period returns the entry's month as YYYY-MM.
func (p PsychologyEntry) Period() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// Validate checks the month and year.
func (p PsychologyEntry) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return apperrors.NewValidationError("month", p.Month, "must be between 1 and 12")
	}
	if p.Year <= 0 {
		return apperrors.NewValidationError("year", p.Year, "must be a positive year")
	}
	return nil
}

// PsychologyInput is a psychology entry as submitted or read from a sheet row.
type PsychologyInput struct {
	ID           Number `json:"id"`
	Month        Number `json:"month"`
	Year         Number `json:"year"`
	MonthlyPnL   Number `json:"monthlyPnL"`
	BestTradeID  Number `json:"bestTradeId"`
	WorstTradeID Number `json:"worstTradeId"`
	MentalState  string `json:"mentalState"`
	Improvements string `json:"improvementAreas"`
	Lessons      string `json:"lessonsLearned"`
	Reflections  string `json:"reflections"`
	CreatedAt    string `json:"createdAt"`
}

// Normalize converts the raw input into a PsychologyEntry.
func (in PsychologyInput) Normalize() PsychologyEntry {
	return PsychologyEntry{
		ID:           int64(in.ID.Or(0)),
		Month:        int(in.Month.Or(0)),
		Year:         int(in.Year.Or(0)),
		MonthlyPnL:   in.MonthlyPnL.Ptr(),
		BestTradeID:  idPtr(in.BestTradeID),
		WorstTradeID: idPtr(in.WorstTradeID),
		MentalState:  in.MentalState,
		Improvements: in.Improvements,
		Lessons:      in.Lessons,
		Reflections:  strings.TrimSpace(in.Reflections),
		CreatedAt:    parseTimestamp(in.CreatedAt),
	}
}

// ToInput converts the entry back to its row form.
func (p PsychologyEntry) ToInput() PsychologyInput {
	in := PsychologyInput{
		ID:           NumberFromFloat(float64(p.ID)),
		Month:        NumberFromFloat(float64(p.Month)),
		Year:         NumberFromFloat(float64(p.Year)),
		MonthlyPnL:   NumberFromPtr(p.MonthlyPnL),
		BestTradeID:  idNumber(p.BestTradeID),
		WorstTradeID: idNumber(p.WorstTradeID),
		MentalState:  p.MentalState,
		Improvements: p.Improvements,
		Lessons:      p.Lessons,
		Reflections:  p.Reflections,
	}
	if !p.CreatedAt.IsZero() {
		in.CreatedAt = p.CreatedAt.UTC().Format(time.RFC3339)
	}
	return in
}

// PsychologyPatch is a partial update of a psychology entry.
type PsychologyPatch struct {
	Month        *Number `json:"month"`
	Year         *Number `json:"year"`
	MonthlyPnL   *Number `json:"monthlyPnL"`
	BestTradeID  *Number `json:"bestTradeId"`
	WorstTradeID *Number `json:"worstTradeId"`
	MentalState  *string `json:"mentalState"`
	Improvements *string `json:"improvementAreas"`
	Lessons      *string `json:"lessonsLearned"`
	Reflections  *string `json:"reflections"`
}

// ApplyTo applies the supplied fields to p.
func (patch PsychologyPatch) ApplyTo(p *PsychologyEntry) {
	if patch.Month != nil {
		p.Month = int(patch.Month.Or(0))
	}
	if patch.Year != nil {
		p.Year = int(patch.Year.Or(0))
	}
	if patch.MonthlyPnL != nil {
		p.MonthlyPnL = patch.MonthlyPnL.Ptr()
	}
	if patch.BestTradeID != nil {
		p.BestTradeID = idPtr(*patch.BestTradeID)
	}
	if patch.WorstTradeID != nil {
		p.WorstTradeID = idPtr(*patch.WorstTradeID)
	}
	if patch.MentalState != nil {
		p.MentalState = *patch.MentalState
	}
	if patch.Improvements != nil {
		p.Improvements = *patch.Improvements
	}
	if patch.Lessons != nil {
		p.Lessons = *patch.Lessons
	}
	if patch.Reflections != nil {
		p.Reflections = strings.TrimSpace(*patch.Reflections)
	}
}

func idPtr(n Number) *int64 {
	f, ok := n.Float64()
	if !ok {
		return nil
	}
	id := int64(f)
	return &id
}

func idNumber(id *int64) Number {
	if id == nil {
		return Number{}
	}
	return NumberFromFloat(float64(*id))
}
