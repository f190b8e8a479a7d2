// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "trading-journal/internal/errors"
	"trading-journal/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{
		db:  db,
		now: time.Now,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Trades table; AUTOINCREMENT keeps ids from being reused after deletes
	CREATE TABLE IF NOT EXISTS trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		trade_date TEXT NOT NULL,
		stock_name TEXT NOT NULL,
		quantity REAL NOT NULL,
		entry_price REAL NOT NULL,
		exit_price REAL,
		stop_loss REAL,
		target_price REAL,
		profit_loss REAL,
		setup_followed INTEGER DEFAULT 0,
		which_setup TEXT DEFAULT '',
		emotion TEXT DEFAULT '',
		notes TEXT DEFAULT '',
		psychology_reflections TEXT DEFAULT '',
		screenshot_link TEXT DEFAULT '',
		created_at DATETIME NOT NULL
	);

	-- Strategies table; trades reference strategies by name
	CREATE TABLE IF NOT EXISTS strategies (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		description TEXT DEFAULT '',
		status TEXT NOT NULL DEFAULT 'active',
		tags TEXT DEFAULT '[]',
		screenshot_url TEXT DEFAULT '',
		created_at DATETIME NOT NULL
	);

	-- Monthly psychology journal
	CREATE TABLE IF NOT EXISTS psychology (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		month INTEGER NOT NULL,
		year INTEGER NOT NULL,
		monthly_pnl REAL,
		best_trade_id INTEGER,
		worst_trade_id INTEGER,
		mental_state TEXT DEFAULT '',
		improvements TEXT DEFAULT '',
		lessons TEXT DEFAULT '',
		reflections TEXT DEFAULT '',
		created_at DATETIME NOT NULL
	);

	-- Create indexes for performance
	CREATE INDEX IF NOT EXISTS idx_trades_date ON trades(trade_date);
	CREATE INDEX IF NOT EXISTS idx_trades_setup ON trades(which_setup);
	CREATE INDEX IF NOT EXISTS idx_trades_stock ON trades(stock_name);
	CREATE INDEX IF NOT EXISTS idx_psychology_period ON psychology(year, month);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func nullInt(i *int64) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *i, Valid: true}
}

func intPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// ============================================================================
// Trades Methods
// ============================================================================

const tradeColumns = "id, trade_date, stock_name, quantity, entry_price, exit_price, stop_loss, target_price, profit_loss, setup_followed, which_setup, emotion, notes, psychology_reflections, screenshot_link, created_at"

func scanTrade(row rowScanner) (models.Trade, error) {
	var t models.Trade
	var tradeDate, emotion string
	var exit, stop, target, pnl sql.NullFloat64
	var followed int
	if err := row.Scan(&t.ID, &tradeDate, &t.StockName, &t.Quantity, &t.EntryPrice, &exit, &stop, &target, &pnl, &followed, &t.WhichSetup, &emotion, &t.Notes, &t.PsychologyReflections, &t.ScreenshotLink, &t.CreatedAt); err != nil {
		return t, err
	}
	t.TradeDate, _ = models.ParseTradeDate(tradeDate)
	t.ExitPrice = floatPtr(exit)
	t.StopLoss = floatPtr(stop)
	t.TargetPrice = floatPtr(target)
	t.ProfitLoss = floatPtr(pnl)
	t.SetupFollowed = followed == 1
	t.Emotion = models.Emotion(emotion)
	return t, nil
}

// ListTrades retrieves trades from the database.
func (s *SQLiteStore) ListTrades(ctx context.Context, filter TradeFilter) ([]models.Trade, error) {
	query := "SELECT " + tradeColumns + " FROM trades WHERE 1=1"
	args := []interface{}{}

	if !filter.StartDate.IsZero() {
		query += " AND trade_date >= ?"
		args = append(args, filter.StartDate.Format(models.DateLayout))
	}
	if !filter.EndDate.IsZero() {
		query += " AND trade_date <= ?"
		args = append(args, filter.EndDate.Format(models.DateLayout))
	}
	if filter.Strategy != "" {
		query += " AND which_setup = ?"
		args = append(args, filter.Strategy)
	}
	if filter.Symbol != "" {
		query += " AND stock_name = ?"
		args = append(args, filter.Symbol)
	}

	query += " ORDER BY trade_date ASC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, t)
	}

	return trades, rows.Err()
}

func getTrade(ctx context.Context, q queryer, id int64) (*models.Trade, error) {
	row := q.QueryRowContext(ctx, "SELECT "+tradeColumns+" FROM trades WHERE id = ?", id)
	t, err := scanTrade(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("trade", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade: %w", err)
	}
	return &t, nil
}

// GetTrade retrieves one trade.
func (s *SQLiteStore) GetTrade(ctx context.Context, id int64) (*models.Trade, error) {
	return getTrade(ctx, s.db, id)
}

// CreateTrade validates and inserts a trade, assigning ID and CreatedAt.
func (s *SQLiteStore) CreateTrade(ctx context.Context, trade *models.Trade) error {
	if err := trade.Validate(); err != nil {
		return err
	}
	trade.CreatedAt = s.now().UTC()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO trades (trade_date, stock_name, quantity, entry_price, exit_price, stop_loss, target_price, profit_loss, setup_followed, which_setup, emotion, notes, psychology_reflections, screenshot_link, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, trade.DateString(), trade.StockName, trade.Quantity, trade.EntryPrice, nullFloat(trade.ExitPrice), nullFloat(trade.StopLoss), nullFloat(trade.TargetPrice), nullFloat(trade.ProfitLoss), boolInt(trade.SetupFollowed), trade.WhichSetup, string(trade.Emotion), trade.Notes, trade.PsychologyReflections, trade.ScreenshotLink, trade.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}
	trade.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read trade id: %w", err)
	}
	return nil
}

// UpdateTrade applies a partial update inside a transaction.
func (s *SQLiteStore) UpdateTrade(ctx context.Context, id int64, patch models.TradePatch) (*models.Trade, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := getTrade(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	updated, err := ApplyTradePatch(*existing, patch)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE trades SET trade_date = ?, stock_name = ?, quantity = ?, entry_price = ?, exit_price = ?, stop_loss = ?, target_price = ?, profit_loss = ?, setup_followed = ?, which_setup = ?, emotion = ?, notes = ?, psychology_reflections = ?, screenshot_link = ?
		WHERE id = ?
	`, updated.DateString(), updated.StockName, updated.Quantity, updated.EntryPrice, nullFloat(updated.ExitPrice), nullFloat(updated.StopLoss), nullFloat(updated.TargetPrice), nullFloat(updated.ProfitLoss), boolInt(updated.SetupFollowed), updated.WhichSetup, string(updated.Emotion), updated.Notes, updated.PsychologyReflections, updated.ScreenshotLink, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update trade: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &updated, nil
}

// DeleteTrade removes a trade.
func (s *SQLiteStore) DeleteTrade(ctx context.Context, id int64) error {
	return s.deleteRow(ctx, "trades", "trade", id)
}

func (s *SQLiteStore) deleteRow(ctx context.Context, table, kind string, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", kind, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", kind, err)
	}
	if n == 0 {
		return apperrors.NotFound(kind, id)
	}
	return nil
}

// ============================================================================
// Strategies Methods
// ============================================================================

const strategyColumns = "id, name, description, status, tags, screenshot_url, created_at"

func scanStrategy(row rowScanner) (models.Strategy, error) {
	var st models.Strategy
	var status, tagsJSON string
	if err := row.Scan(&st.ID, &st.Name, &st.Description, &status, &tagsJSON, &st.ScreenshotURL, &st.CreatedAt); err != nil {
		return st, err
	}
	st.Status = models.StrategyStatus(status)
	json.Unmarshal([]byte(tagsJSON), &st.Tags)
	return st, nil
}

// ListStrategies retrieves all strategies ordered by id.
func (s *SQLiteStore) ListStrategies(ctx context.Context) ([]models.Strategy, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+strategyColumns+" FROM strategies ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query strategies: %w", err)
	}
	defer rows.Close()

	strategies := []models.Strategy{}
	for rows.Next() {
		st, err := scanStrategy(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan strategy: %w", err)
		}
		strategies = append(strategies, st)
	}
	return strategies, rows.Err()
}

func getStrategy(ctx context.Context, q queryer, id int64) (*models.Strategy, error) {
	st, err := scanStrategy(q.QueryRowContext(ctx, "SELECT "+strategyColumns+" FROM strategies WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("strategy", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get strategy: %w", err)
	}
	return &st, nil
}

// GetStrategy retrieves one strategy.
func (s *SQLiteStore) GetStrategy(ctx context.Context, id int64) (*models.Strategy, error) {
	return getStrategy(ctx, s.db, id)
}

// CreateStrategy validates and inserts a strategy.
func (s *SQLiteStore) CreateStrategy(ctx context.Context, strategy *models.Strategy) error {
	if err := strategy.Validate(); err != nil {
		return err
	}
	strategy.CreatedAt = s.now().UTC()
	tags, _ := json.Marshal(strategy.Tags)

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO strategies (name, description, status, tags, screenshot_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, strategy.Name, strategy.Description, string(strategy.Status), string(tags), strategy.ScreenshotURL, strategy.CreatedAt)
	if isUniqueViolation(err) {
		return apperrors.NewValidationError("name", strategy.Name, "a strategy with this name already exists")
	}
	if err != nil {
		return fmt.Errorf("failed to insert strategy: %w", err)
	}
	strategy.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read strategy id: %w", err)
	}
	return nil
}

// UpdateStrategy applies a partial update. A rename does not cascade to trades.
func (s *SQLiteStore) UpdateStrategy(ctx context.Context, id int64, patch models.StrategyPatch) (*models.Strategy, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := getStrategy(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	updated, err := ApplyStrategyPatch(*existing, patch)
	if err != nil {
		return nil, err
	}
	tags, _ := json.Marshal(updated.Tags)

	_, err = tx.ExecContext(ctx, `
		UPDATE strategies SET name = ?, description = ?, status = ?, tags = ?, screenshot_url = ?
		WHERE id = ?
	`, updated.Name, updated.Description, string(updated.Status), string(tags), updated.ScreenshotURL, id)
	if isUniqueViolation(err) {
		return nil, apperrors.NewValidationError("name", updated.Name, "a strategy with this name already exists")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update strategy: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &updated, nil
}

// DeleteStrategy removes a strategy.
func (s *SQLiteStore) DeleteStrategy(ctx context.Context, id int64) error {
	return s.deleteRow(ctx, "strategies", "strategy", id)
}

// ============================================================================
// Psychology Methods
// ============================================================================

const psychologyColumns = "id, month, year, monthly_pnl, best_trade_id, worst_trade_id, mental_state, improvements, lessons, reflections, created_at"

func scanPsychology(row rowScanner) (models.PsychologyEntry, error) {
	var p models.PsychologyEntry
	var pnl sql.NullFloat64
	var best, worst sql.NullInt64
	if err := row.Scan(&p.ID, &p.Month, &p.Year, &pnl, &best, &worst, &p.MentalState, &p.Improvements, &p.Lessons, &p.Reflections, &p.CreatedAt); err != nil {
		return p, err
	}
	p.MonthlyPnL = floatPtr(pnl)
	p.BestTradeID = intPtr(best)
	p.WorstTradeID = intPtr(worst)
	return p, nil
}

// ListPsychology retrieves entries, newest month first.
func (s *SQLiteStore) ListPsychology(ctx context.Context) ([]models.PsychologyEntry, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+psychologyColumns+" FROM psychology ORDER BY year DESC, month DESC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query psychology: %w", err)
	}
	defer rows.Close()

	var entries []models.PsychologyEntry
	for rows.Next() {
		p, err := scanPsychology(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan psychology entry: %w", err)
		}
		entries = append(entries, p)
	}
	return entries, rows.Err()
}

func getPsychology(ctx context.Context, q queryer, id int64) (*models.PsychologyEntry, error) {
	p, err := scanPsychology(q.QueryRowContext(ctx, "SELECT "+psychologyColumns+" FROM psychology WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("psychology entry", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get psychology entry: %w", err)
	}
	return &p, nil
}

// GetPsychology retrieves one entry.
func (s *SQLiteStore) GetPsychology(ctx context.Context, id int64) (*models.PsychologyEntry, error) {
	return getPsychology(ctx, s.db, id)
}

// CreatePsychology validates and inserts an entry.
func (s *SQLiteStore) CreatePsychology(ctx context.Context, entry *models.PsychologyEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	entry.CreatedAt = s.now().UTC()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO psychology (month, year, monthly_pnl, best_trade_id, worst_trade_id, mental_state, improvements, lessons, reflections, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.Month, entry.Year, nullFloat(entry.MonthlyPnL), nullInt(entry.BestTradeID), nullInt(entry.WorstTradeID), entry.MentalState, entry.Improvements, entry.Lessons, entry.Reflections, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert psychology entry: %w", err)
	}
	entry.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read psychology id: %w", err)
	}
	return nil
}

// UpdatePsychology applies a partial update inside a transaction.
func (s *SQLiteStore) UpdatePsychology(ctx context.Context, id int64, patch models.PsychologyPatch) (*models.PsychologyEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := getPsychology(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	updated, err := ApplyPsychologyPatch(*existing, patch)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE psychology SET month = ?, year = ?, monthly_pnl = ?, best_trade_id = ?, worst_trade_id = ?, mental_state = ?, improvements = ?, lessons = ?, reflections = ?
		WHERE id = ?
	`, updated.Month, updated.Year, nullFloat(updated.MonthlyPnL), nullInt(updated.BestTradeID), nullInt(updated.WorstTradeID), updated.MentalState, updated.Improvements, updated.Lessons, updated.Reflections, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update psychology entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &updated, nil
}

// DeletePsychology removes an entry.
func (s *SQLiteStore) DeletePsychology(ctx context.Context, id int64) error {
	return s.deleteRow(ctx, "psychology", "psychology entry", id)
}
