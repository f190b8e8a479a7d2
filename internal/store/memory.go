package store

import (
	"context"
	"sort"
	"sync"
	"time"

	apperrors "trading-journal/internal/errors"
	"trading-journal/internal/models"
)

// MemoryStore implements DataStore in process memory. It backs tests and
// the "memory" data source.
type MemoryStore struct {
	mu         sync.RWMutex
	trades     map[int64]models.Trade
	strategies map[int64]models.Strategy
	psychology map[int64]models.PsychologyEntry
	nextID     map[string]int64
	now        func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		trades:     make(map[int64]models.Trade),
		strategies: make(map[int64]models.Strategy),
		psychology: make(map[int64]models.PsychologyEntry),
		nextID:     make(map[string]int64),
		now:        time.Now,
	}
}

func (s *MemoryStore) allocID(sheet string) int64 {
	s.nextID[sheet]++
	return s.nextID[sheet]
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

// ============================================================================
// Trades Methods
// ============================================================================

// ListTrades returns trades matching filter.
func (s *MemoryStore) ListTrades(ctx context.Context, filter TradeFilter) ([]models.Trade, error) {
	s.mu.RLock()
	trades := make([]models.Trade, 0, len(s.trades))
	for _, t := range s.trades {
		trades = append(trades, t)
	}
	s.mu.RUnlock()
	return ApplyTradeFilter(trades, filter), nil
}

// GetTrade returns one trade.
func (s *MemoryStore) GetTrade(ctx context.Context, id int64) (*models.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.trades[id]
	if !ok {
		return nil, apperrors.NotFound("trade", id)
	}
	return &t, nil
}

// CreateTrade validates and stores a trade, assigning ID and CreatedAt.
func (s *MemoryStore) CreateTrade(ctx context.Context, trade *models.Trade) error {
	if err := trade.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	trade.ID = s.allocID(models.SheetTrades)
	trade.CreatedAt = s.now().UTC()
	s.trades[trade.ID] = *trade
	return nil
}

// UpdateTrade applies a partial update.
func (s *MemoryStore) UpdateTrade(ctx context.Context, id int64, patch models.TradePatch) (*models.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.trades[id]
	if !ok {
		return nil, apperrors.NotFound("trade", id)
	}
	updated, err := ApplyTradePatch(existing, patch)
	if err != nil {
		return nil, err
	}
	s.trades[id] = updated
	return &updated, nil
}

// DeleteTrade removes a trade.
func (s *MemoryStore) DeleteTrade(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trades[id]; !ok {
		return apperrors.NotFound("trade", id)
	}
	delete(s.trades, id)
	return nil
}

// ============================================================================
// Strategies Methods
// ============================================================================

// ListStrategies returns strategies ordered by id.
func (s *MemoryStore) ListStrategies(ctx context.Context) ([]models.Strategy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Strategy, 0, len(s.strategies))
	for _, st := range s.strategies {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetStrategy returns one strategy.
func (s *MemoryStore) GetStrategy(ctx context.Context, id int64) (*models.Strategy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.strategies[id]
	if !ok {
		return nil, apperrors.NotFound("strategy", id)
	}
	return &st, nil
}

// CreateStrategy validates and stores a strategy.
func (s *MemoryStore) CreateStrategy(ctx context.Context, strategy *models.Strategy) error {
	if err := strategy.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.strategies {
		if existing.Name == strategy.Name {
			return apperrors.NewValidationError("name", strategy.Name, "a strategy with this name already exists")
		}
	}
	strategy.ID = s.allocID(models.SheetStrategies)
	strategy.CreatedAt = s.now().UTC()
	s.strategies[strategy.ID] = *strategy
	return nil
}

// UpdateStrategy applies a partial update.
func (s *MemoryStore) UpdateStrategy(ctx context.Context, id int64, patch models.StrategyPatch) (*models.Strategy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.strategies[id]
	if !ok {
		return nil, apperrors.NotFound("strategy", id)
	}
	updated, err := ApplyStrategyPatch(existing, patch)
	if err != nil {
		return nil, err
	}
	for otherID, other := range s.strategies {
		if otherID != id && other.Name == updated.Name {
			return nil, apperrors.NewValidationError("name", updated.Name, "a strategy with this name already exists")
		}
	}
	s.strategies[id] = updated
	return &updated, nil
}

// DeleteStrategy removes a strategy. Trades naming it are left as they are.
func (s *MemoryStore) DeleteStrategy(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.strategies[id]; !ok {
		return apperrors.NotFound("strategy", id)
	}
	delete(s.strategies, id)
	return nil
}

// ============================================================================
// Psychology Methods
// ============================================================================

// ListPsychology returns entries, newest month first.
func (s *MemoryStore) ListPsychology(ctx context.Context) ([]models.PsychologyEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.PsychologyEntry, 0, len(s.psychology))
	for _, p := range s.psychology {
		out = append(out, p)
	}
	SortPsychology(out)
	return out, nil
}

// GetPsychology returns one entry.
func (s *MemoryStore) GetPsychology(ctx context.Context, id int64) (*models.PsychologyEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.psychology[id]
	if !ok {
		return nil, apperrors.NotFound("psychology entry", id)
	}
	return &p, nil
}

// CreatePsychology validates and stores an entry.
func (s *MemoryStore) CreatePsychology(ctx context.Context, entry *models.PsychologyEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.ID = s.allocID(models.SheetPsychology)
	entry.CreatedAt = s.now().UTC()
	s.psychology[entry.ID] = *entry
	return nil
}

// UpdatePsychology applies a partial update.
func (s *MemoryStore) UpdatePsychology(ctx context.Context, id int64, patch models.PsychologyPatch) (*models.PsychologyEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.psychology[id]
	if !ok {
		return nil, apperrors.NotFound("psychology entry", id)
	}
	updated, err := ApplyPsychologyPatch(existing, patch)
	if err != nil {
		return nil, err
	}
	s.psychology[id] = updated
	return &updated, nil
}

// DeletePsychology removes an entry.
func (s *MemoryStore) DeletePsychology(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.psychology[id]; !ok {
		return apperrors.NotFound("psychology entry", id)
	}
	delete(s.psychology, id)
	return nil
}

// SortPsychology orders entries newest month first, then by id.
func SortPsychology(entries []models.PsychologyEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Year != b.Year {
			return a.Year > b.Year
		}
		if a.Month != b.Month {
			return a.Month > b.Month
		}
		return a.ID < b.ID
	})
}
