package models

import (
	"strings"
	"time"

	apperrors "trading-journal/internal/errors"
)

// Strategy is a named trading plan. Trades refer to it by Name.
type Strategy struct {
	ID            int64          `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Status        StrategyStatus `json:"status"`
	Tags          []string       `json:"tags"`
	ScreenshotURL string         `json:"screenshotUrl"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// IsActive reports whether the strategy is in the active playbook.
func (s Strategy) IsActive() bool {
	return s.Status == StrategyActive
}

// Validate checks the fields the strategy form requires.
func (s Strategy) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return apperrors.NewValidationError("name", s.Name, "strategy name is required")
	}
	if _, ok := ParseStrategyStatus(string(s.Status)); !ok {
		return apperrors.NewValidationError("status", s.Status, "must be active, testing or deprecated")
	}
	return nil
}

// StrategyInput is a strategy as submitted by a form or read from a sheet row.
type StrategyInput struct {
	ID            Number `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Status        string `json:"status"`
	Tags          Tags   `json:"tags"`
	ScreenshotURL string `json:"screenshotUrl"`
	CreatedAt     string `json:"createdAt"`
}

// Normalize converts the raw input into a Strategy. An empty status
// defaults to active.
func (in StrategyInput) Normalize() Strategy {
	status := StrategyActive
	if strings.TrimSpace(in.Status) != "" {
		status, _ = ParseStrategyStatus(in.Status)
	}
	return Strategy{
		ID:            int64(in.ID.Or(0)),
		Name:          strings.TrimSpace(in.Name),
		Description:   in.Description,
		Status:        status,
		Tags:          []string(in.Tags),
		ScreenshotURL: strings.TrimSpace(in.ScreenshotURL),
		CreatedAt:     parseTimestamp(in.CreatedAt),
	}
}

// ToInput converts a Strategy back to its row form.
func (s Strategy) ToInput() StrategyInput {
	in := StrategyInput{
		ID:            NumberFromFloat(float64(s.ID)),
		Name:          s.Name,
		Description:   s.Description,
		Status:        string(s.Status),
		Tags:          Tags(s.Tags),
		ScreenshotURL: s.ScreenshotURL,
	}
	if !s.CreatedAt.IsZero() {
		in.CreatedAt = s.CreatedAt.UTC().Format(time.RFC3339)
	}
	return in
}

// StrategyPatch is a partial update of a strategy.
type StrategyPatch struct {
	Name          *string `json:"name"`
	Description   *string `json:"description"`
	Status        *string `json:"status"`
	Tags          *Tags   `json:"tags"`
	ScreenshotURL *string `json:"screenshotUrl"`
}

// ApplyTo applies the supplied fields to s. Renaming does not touch trades
// that reference the old name.
func (p StrategyPatch) ApplyTo(s *Strategy) {
	if p.Name != nil {
		s.Name = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		s.Description = *p.Description
	}
	if p.Status != nil {
		s.Status, _ = ParseStrategyStatus(*p.Status)
	}
	if p.Tags != nil {
		s.Tags = []string(*p.Tags)
	}
	if p.ScreenshotURL != nil {
		s.ScreenshotURL = strings.TrimSpace(*p.ScreenshotURL)
	}
}
