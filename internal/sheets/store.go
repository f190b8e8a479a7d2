package sheets

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "trading-journal/internal/errors"
	"trading-journal/internal/models"
	"trading-journal/internal/resilience"
	"trading-journal/internal/store"
)

// Store implements store.DataStore against the spreadsheet. The script has
// no query support, so every read fetches the whole sheet and filters
// locally.
type Store struct {
	client *Client
	now    func() time.Time
}

var _ store.DataStore = (*Store)(nil)

// NewStore creates a spreadsheet-backed store.
func NewStore(cfg Config, logger zerolog.Logger) (*Store, error) {
	client, err := NewClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Store{client: client, now: time.Now}, nil
}

// BackendHealth reports whether the spreadsheet backend is reachable.
func (s *Store) BackendHealth() resilience.BreakerStats {
	return s.client.BreakerStats()
}

// Close is a no-op; the HTTP client holds no resources that need releasing.
func (s *Store) Close() error {
	return nil
}

func scriptError(sheet, msg string) error {
	if msg == "" {
		msg = "script reported failure"
	}
	if strings.Contains(strings.ToLower(msg), "not found") {
		return apperrors.Wrapf(apperrors.ErrNotFound, "%s: %s", sheet, msg)
	}
	return apperrors.NewDataError("sheets", sheet, msg, nil)
}

// ============================================================================
// Trades Methods
// ============================================================================

func (s *Store) readTrades(ctx context.Context) ([]models.Trade, error) {
	var rows []models.TradeInput
	if err := s.client.Read(ctx, models.SheetTrades, &rows); err != nil {
		return nil, err
	}
	trades := make([]models.Trade, 0, len(rows))
	for _, row := range rows {
		trades = append(trades, row.Normalize())
	}
	return trades, nil
}

// ListTrades reads the Trades sheet and applies filter locally.
func (s *Store) ListTrades(ctx context.Context, filter store.TradeFilter) ([]models.Trade, error) {
	trades, err := s.readTrades(ctx)
	if err != nil {
		return nil, err
	}
	return store.ApplyTradeFilter(trades, filter), nil
}

// GetTrade finds one trade by id.
func (s *Store) GetTrade(ctx context.Context, id int64) (*models.Trade, error) {
	trades, err := s.readTrades(ctx)
	if err != nil {
		return nil, err
	}
	for i := range trades {
		if trades[i].ID == id {
			return &trades[i], nil
		}
	}
	return nil, apperrors.NotFound("trade", id)
}

// CreateTrade validates and appends a trade. The script assigns the id.
func (s *Store) CreateTrade(ctx context.Context, trade *models.Trade) error {
	if err := trade.Validate(); err != nil {
		return err
	}
	trade.CreatedAt = s.now().UTC()
	row := trade.ToInput()
	row.ID = models.Number{}

	var created models.TradeInput
	if err := s.client.Write(ctx, "create", models.SheetTrades, 0, row, &created); err != nil {
		return err
	}
	id, ok := created.ID.Float64()
	if !ok || id <= 0 {
		return apperrors.NewDataError("sheets", models.SheetTrades, "create returned no id", nil)
	}
	trade.ID = int64(id)
	return nil
}

// UpdateTrade applies a partial update and writes back the full row.
func (s *Store) UpdateTrade(ctx context.Context, id int64, patch models.TradePatch) (*models.Trade, error) {
	existing, err := s.GetTrade(ctx, id)
	if err != nil {
		return nil, err
	}
	updated, err := store.ApplyTradePatch(*existing, patch)
	if err != nil {
		return nil, err
	}
	if err := s.client.Write(ctx, "update", models.SheetTrades, id, updated.ToInput(), nil); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteTrade removes a trade row.
func (s *Store) DeleteTrade(ctx context.Context, id int64) error {
	return s.client.Write(ctx, "delete", models.SheetTrades, id, nil, nil)
}

// ============================================================================
// Strategies Methods
// ============================================================================

// ListStrategies reads the Strategies sheet in row order.
func (s *Store) ListStrategies(ctx context.Context) ([]models.Strategy, error) {
	var rows []models.StrategyInput
	if err := s.client.Read(ctx, models.SheetStrategies, &rows); err != nil {
		return nil, err
	}
	strategies := make([]models.Strategy, 0, len(rows))
	for _, row := range rows {
		strategies = append(strategies, row.Normalize())
	}
	return strategies, nil
}

// GetStrategy finds one strategy by id.
func (s *Store) GetStrategy(ctx context.Context, id int64) (*models.Strategy, error) {
	strategies, err := s.ListStrategies(ctx)
	if err != nil {
		return nil, err
	}
	for i := range strategies {
		if strategies[i].ID == id {
			return &strategies[i], nil
		}
	}
	return nil, apperrors.NotFound("strategy", id)
}

func (s *Store) checkNameFree(ctx context.Context, name string, selfID int64) error {
	strategies, err := s.ListStrategies(ctx)
	if err != nil {
		return err
	}
	for _, st := range strategies {
		if st.ID != selfID && st.Name == name {
			return apperrors.NewValidationError("name", name, "a strategy with this name already exists")
		}
	}
	return nil
}

// CreateStrategy validates and appends a strategy with a unique name.
func (s *Store) CreateStrategy(ctx context.Context, strategy *models.Strategy) error {
	if err := strategy.Validate(); err != nil {
		return err
	}
	if err := s.checkNameFree(ctx, strategy.Name, 0); err != nil {
		return err
	}
	strategy.CreatedAt = s.now().UTC()
	row := strategy.ToInput()
	row.ID = models.Number{}

	var created models.StrategyInput
	if err := s.client.Write(ctx, "create", models.SheetStrategies, 0, row, &created); err != nil {
		return err
	}
	id, ok := created.ID.Float64()
	if !ok || id <= 0 {
		return apperrors.NewDataError("sheets", models.SheetStrategies, "create returned no id", nil)
	}
	strategy.ID = int64(id)
	return nil
}

// UpdateStrategy applies a partial update. Trades that reference the old
// name are not rewritten.
func (s *Store) UpdateStrategy(ctx context.Context, id int64, patch models.StrategyPatch) (*models.Strategy, error) {
	existing, err := s.GetStrategy(ctx, id)
	if err != nil {
		return nil, err
	}
	updated, err := store.ApplyStrategyPatch(*existing, patch)
	if err != nil {
		return nil, err
	}
	if updated.Name != existing.Name {
		if err := s.checkNameFree(ctx, updated.Name, id); err != nil {
			return nil, err
		}
	}
	if err := s.client.Write(ctx, "update", models.SheetStrategies, id, updated.ToInput(), nil); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteStrategy removes a strategy row.
func (s *Store) DeleteStrategy(ctx context.Context, id int64) error {
	return s.client.Write(ctx, "delete", models.SheetStrategies, id, nil, nil)
}

// ============================================================================
// Psychology Methods
// ============================================================================

// ListPsychology reads the Psychology sheet, newest month first.
func (s *Store) ListPsychology(ctx context.Context) ([]models.PsychologyEntry, error) {
	var rows []models.PsychologyInput
	if err := s.client.Read(ctx, models.SheetPsychology, &rows); err != nil {
		return nil, err
	}
	entries := make([]models.PsychologyEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.Normalize())
	}
	store.SortPsychology(entries)
	return entries, nil
}

// GetPsychology finds one entry by id.
func (s *Store) GetPsychology(ctx context.Context, id int64) (*models.PsychologyEntry, error) {
	entries, err := s.ListPsychology(ctx)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].ID == id {
			return &entries[i], nil
		}
	}
	return nil, apperrors.NotFound("psychology entry", id)
}

// CreatePsychology validates and appends an entry.
func (s *Store) CreatePsychology(ctx context.Context, entry *models.PsychologyEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	entry.CreatedAt = s.now().UTC()
	row := entry.ToInput()
	row.ID = models.Number{}

	var created models.PsychologyInput
	if err := s.client.Write(ctx, "create", models.SheetPsychology, 0, row, &created); err != nil {
		return err
	}
	id, ok := created.ID.Float64()
	if !ok || id <= 0 {
		return apperrors.NewDataError("sheets", models.SheetPsychology, "create returned no id", nil)
	}
	entry.ID = int64(id)
	return nil
}

// UpdatePsychology applies a partial update.
func (s *Store) UpdatePsychology(ctx context.Context, id int64, patch models.PsychologyPatch) (*models.PsychologyEntry, error) {
	existing, err := s.GetPsychology(ctx, id)
	if err != nil {
		return nil, err
	}
	updated, err := store.ApplyPsychologyPatch(*existing, patch)
	if err != nil {
		return nil, err
	}
	if err := s.client.Write(ctx, "update", models.SheetPsychology, id, updated.ToInput(), nil); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeletePsychology removes an entry row.
func (s *Store) DeletePsychology(ctx context.Context, id int64) error {
	return s.client.Write(ctx, "delete", models.SheetPsychology, id, nil, nil)
}
