package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"trading-journal/internal/analytics"
	apperrors "trading-journal/internal/errors"
	"trading-journal/internal/logging"
	"trading-journal/internal/models"
	"trading-journal/internal/store"
)

// ============================================================================
// Trades
// ============================================================================

// tradeFilter reads start, end, strategy, symbol and limit query parameters.
func tradeFilter(c *gin.Context) (store.TradeFilter, error) {
	var f store.TradeFilter
	if v := c.Query("start"); v != "" {
		d, ok := models.ParseTradeDate(v)
		if !ok {
			return f, apperrors.NewValidationError("start", v, "expected YYYY-MM-DD")
		}
		f.StartDate = d
	}
	if v := c.Query("end"); v != "" {
		d, ok := models.ParseTradeDate(v)
		if !ok {
			return f, apperrors.NewValidationError("end", v, "expected YYYY-MM-DD")
		}
		f.EndDate = d
	}
	f.Strategy = c.Query("strategy")
	f.Symbol = c.Query("symbol")
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, apperrors.NewValidationError("limit", v, "must be a non-negative integer")
		}
		f.Limit = n
	}
	return f, nil
}

func (s *Server) handleListTrades(c *gin.Context) {
	filter, err := tradeFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}
	trades, err := s.store.ListTrades(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	if trades == nil {
		trades = []models.Trade{}
	}
	ok(c, http.StatusOK, trades)
}

func (s *Server) handleGetTrade(c *gin.Context) {
	id, valid := parseID(c)
	if !valid {
		return
	}
	trade, err := s.store.GetTrade(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, trade)
}

func (s *Server) handleCreateTrade(c *gin.Context) {
	var in models.TradeInput
	if !bindJSON(c, &in) {
		return
	}
	trade := in.Normalize()
	trade.ID = 0
	if err := s.store.CreateTrade(c.Request.Context(), &trade); err != nil {
		respondError(c, err)
		return
	}
	logging.LogTrade(requestLogger(c, "create_trade"), "created", trade.ID, trade.StockName, analytics.ResolveTradePnL(trade))
	ok(c, http.StatusCreated, trade)
}

func (s *Server) handleUpdateTrade(c *gin.Context) {
	id, valid := parseID(c)
	if !valid {
		return
	}
	var patch models.TradePatch
	if !bindJSON(c, &patch) {
		return
	}
	trade, err := s.store.UpdateTrade(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	logging.LogTrade(requestLogger(c, "update_trade"), "updated", trade.ID, trade.StockName, analytics.ResolveTradePnL(*trade))
	ok(c, http.StatusOK, trade)
}

func (s *Server) handleDeleteTrade(c *gin.Context) {
	id, valid := parseID(c)
	if !valid {
		return
	}
	if err := s.store.DeleteTrade(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	logger := logging.WithTradeID(requestLogger(c, "delete_trade"), id)
	logger.Info().Msg("Trade deleted")
	ok(c, http.StatusOK, gin.H{"id": id})
}

// ============================================================================
// Strategies
// ============================================================================

func (s *Server) handleListStrategies(c *gin.Context) {
	strategies, err := s.store.ListStrategies(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if strategies == nil {
		strategies = []models.Strategy{}
	}
	ok(c, http.StatusOK, strategies)
}

func (s *Server) handleGetStrategy(c *gin.Context) {
	id, valid := parseID(c)
	if !valid {
		return
	}
	strategy, err := s.store.GetStrategy(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, strategy)
}

func (s *Server) handleCreateStrategy(c *gin.Context) {
	var in models.StrategyInput
	if !bindJSON(c, &in) {
		return
	}
	strategy := in.Normalize()
	strategy.ID = 0
	if err := s.store.CreateStrategy(c.Request.Context(), &strategy); err != nil {
		respondError(c, err)
		return
	}
	logging.LogStrategy(requestLogger(c, "create_strategy"), "created", strategy.ID, strategy.Name, string(strategy.Status))
	ok(c, http.StatusCreated, strategy)
}

func (s *Server) handleUpdateStrategy(c *gin.Context) {
	id, valid := parseID(c)
	if !valid {
		return
	}
	var patch models.StrategyPatch
	if !bindJSON(c, &patch) {
		return
	}
	strategy, err := s.store.UpdateStrategy(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	logging.LogStrategy(requestLogger(c, "update_strategy"), "updated", strategy.ID, strategy.Name, string(strategy.Status))
	ok(c, http.StatusOK, strategy)
}

func (s *Server) handleDeleteStrategy(c *gin.Context) {
	id, valid := parseID(c)
	if !valid {
		return
	}
	if err := s.store.DeleteStrategy(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"id": id})
}

// ============================================================================
// Psychology
// ============================================================================

func (s *Server) handleListPsychology(c *gin.Context) {
	entries, err := s.store.ListPsychology(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if entries == nil {
		entries = []models.PsychologyEntry{}
	}
	ok(c, http.StatusOK, entries)
}

func (s *Server) handleGetPsychology(c *gin.Context) {
	id, valid := parseID(c)
	if !valid {
		return
	}
	entry, err := s.store.GetPsychology(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, entry)
}

func (s *Server) handleCreatePsychology(c *gin.Context) {
	var in models.PsychologyInput
	if !bindJSON(c, &in) {
		return
	}
	entry := in.Normalize()
	entry.ID = 0
	if err := s.store.CreatePsychology(c.Request.Context(), &entry); err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusCreated, entry)
}

func (s *Server) handleUpdatePsychology(c *gin.Context) {
	id, valid := parseID(c)
	if !valid {
		return
	}
	var patch models.PsychologyPatch
	if !bindJSON(c, &patch) {
		return
	}
	entry, err := s.store.UpdatePsychology(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, entry)
}

func (s *Server) handleDeletePsychology(c *gin.Context) {
	id, valid := parseID(c)
	if !valid {
		return
	}
	if err := s.store.DeletePsychology(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"id": id})
}

// ============================================================================
// Analytics
// ============================================================================

// analyticsOptions reads window, active_only, start and end. Supplying
// start or end selects a custom window.
func (s *Server) analyticsOptions(c *gin.Context) (analytics.Options, error) {
	opts := analytics.Options{
		Window:     s.opts.DefaultWindow,
		ActiveOnly: s.opts.ActiveOnly,
		Now:        s.now(),
	}

	if v := c.Query("window"); v != "" {
		kind, err := analytics.ParseWindow(v)
		if err != nil {
			return opts, apperrors.NewValidationError("window", v, err.Error())
		}
		if kind == analytics.WindowCustom {
			return opts, apperrors.NewValidationError("window", v, "use start and end for a custom window")
		}
		opts.Window = analytics.Window{Kind: kind}
	}
	if v := c.Query("active_only"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, apperrors.NewValidationError("active_only", v, "must be true or false")
		}
		opts.ActiveOnly = b
	}

	start, end := c.Query("start"), c.Query("end")
	if start != "" || end != "" {
		opts.Window = analytics.Window{Kind: analytics.WindowCustom}
		if start != "" {
			d, ok := models.ParseTradeDate(start)
			if !ok {
				return opts, apperrors.NewValidationError("start", start, "expected YYYY-MM-DD")
			}
			opts.Window.Start = d
		}
		if end != "" {
			d, ok := models.ParseTradeDate(end)
			if !ok {
				return opts, apperrors.NewValidationError("end", end, "expected YYYY-MM-DD")
			}
			opts.Window.End = d
		}
	}
	return opts, nil
}

// loadSelection reads the journal and returns the trades the query selects
// together with the strategy list.
func (s *Server) loadSelection(c *gin.Context) ([]models.Trade, []models.Strategy, analytics.Options, bool) {
	opts, err := s.analyticsOptions(c)
	if err != nil {
		respondError(c, err)
		return nil, nil, opts, false
	}
	snap, err := store.LoadSnapshot(c.Request.Context(), s.store, store.TradeFilter{})
	if err != nil {
		respondError(c, err)
		return nil, nil, opts, false
	}
	return snap.Trades, snap.Strategies, opts, true
}

func (s *Server) handleSummary(c *gin.Context) {
	trades, strategies, opts, valid := s.loadSelection(c)
	if !valid {
		return
	}
	ok(c, http.StatusOK, analytics.Summarize(trades, strategies, opts))
}

func (s *Server) handleMonthly(c *gin.Context) {
	trades, strategies, opts, valid := s.loadSelection(c)
	if !valid {
		return
	}
	ok(c, http.StatusOK, analytics.GroupByCalendarMonth(analytics.Select(trades, strategies, opts)))
}

func (s *Server) handleDaily(c *gin.Context) {
	trades, strategies, opts, valid := s.loadSelection(c)
	if !valid {
		return
	}
	ok(c, http.StatusOK, analytics.GroupByCalendarDay(analytics.Select(trades, strategies, opts)))
}

func (s *Server) handleStrategyBreakdown(c *gin.Context) {
	trades, strategies, opts, valid := s.loadSelection(c)
	if !valid {
		return
	}
	ok(c, http.StatusOK, analytics.StrategyBreakdown(analytics.Select(trades, strategies, opts), strategies))
}

func (s *Server) handleEmotionBreakdown(c *gin.Context) {
	trades, strategies, opts, valid := s.loadSelection(c)
	if !valid {
		return
	}
	ok(c, http.StatusOK, analytics.Breakdown(analytics.GroupByEmotion(analytics.Select(trades, strategies, opts))))
}
