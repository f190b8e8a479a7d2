// Package sheets implements the journal store on top of a Google Apps Script
// web app that fronts a spreadsheet with Trades, Strategies and Psychology
// sheets.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	apperrors "trading-journal/internal/errors"
	"trading-journal/internal/logging"
	"trading-journal/internal/performance"
	"trading-journal/internal/resilience"
	"trading-journal/pkg/utils"
)

// Config configures the Apps Script client.
type Config struct {
	ScriptURL         string
	Timeout           time.Duration
	MaxAttempts       int
	RequestsPerSecond float64
	// BreakerThreshold is the number of consecutive unavailable responses
	// that stop further calls for BreakerCooldown. Zero disables it.
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// Client talks to the Apps Script endpoint.
type Client struct {
	scriptURL  string
	httpClient *http.Client
	limiter    *performance.RateLimiter
	breaker    *resilience.Breaker
	retry      utils.RetryConfig
	logger     zerolog.Logger
}

// envelope is the response shape shared by every Apps Script action.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type writeRequest struct {
	Action string      `json:"action"`
	Sheet  string      `json:"sheet"`
	ID     int64       `json:"id,omitempty"`
	Data   interface{} `json:"data,omitempty"`
}

// NewClient creates a client. The script URL is required.
func NewClient(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.ScriptURL == "" {
		return nil, apperrors.Wrap(apperrors.ErrConfigInvalid, "sheets script URL is not set")
	}
	if _, err := url.ParseRequestURI(cfg.ScriptURL); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrConfigInvalid, "invalid sheets script URL %q", cfg.ScriptURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	retry := utils.DefaultRetryConfig()
	if cfg.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.MaxAttempts
	}

	breakerCfg := resilience.DefaultBreakerConfig()
	breakerCfg.FailureThreshold = cfg.BreakerThreshold
	if cfg.BreakerCooldown > 0 {
		breakerCfg.Cooldown = cfg.BreakerCooldown
	}

	return &Client{
		scriptURL:  cfg.ScriptURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    performance.NewRateLimiter(cfg.RequestsPerSecond, 1),
		breaker:    resilience.NewBreaker("sheets", breakerCfg),
		retry:      retry,
		logger:     logger,
	}, nil
}

// Read fetches every row of sheet and decodes it into out, which must be a
// pointer to a slice of row structs.
func (c *Client) Read(ctx context.Context, sheet string, out interface{}) error {
	q := url.Values{}
	q.Set("action", "read")
	q.Set("sheet", sheet)

	data, err := c.do(ctx, sheet, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, c.scriptURL+"?"+q.Encode(), nil)
	})
	if err != nil {
		return err
	}
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperrors.NewDataError("sheets", sheet, "malformed rows", err)
	}
	return nil
}

// Write performs a create, update or delete action. When out is non-nil the
// returned row is decoded into it.
func (c *Client) Write(ctx context.Context, action, sheet string, id int64, row, out interface{}) error {
	body, err := json.Marshal(writeRequest{Action: action, Sheet: sheet, ID: id, Data: row})
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", action, err)
	}

	data, err := c.do(ctx, sheet, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.scriptURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		// Apps Script rejects preflighted content types
		req.Header.Set("Content-Type", "text/plain;charset=utf-8")
		return req, nil
	})
	if err != nil {
		return err
	}
	if out != nil && len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, out); err != nil {
			return apperrors.NewDataError("sheets", sheet, "malformed row in response", err)
		}
	}
	return nil
}

// do sends a request built by build, retrying transport failures and 5xx
// responses, and returns the envelope's data. While the breaker is open
// calls fail immediately.
func (c *Client) do(ctx context.Context, sheet string, build func() (*http.Request, error)) (json.RawMessage, error) {
	logger := logging.WithSheet(c.logger, sheet)

	return utils.RetryWithResult(ctx, c.retry, func() (json.RawMessage, error) {
		if err := c.breaker.Allow(); err != nil {
			return nil, utils.Permanent(apperrors.NewDataError("sheets", sheet, "backend unavailable", err))
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, utils.Permanent(err)
		}
		req, err := build()
		if err != nil {
			return nil, utils.Permanent(err)
		}

		start := time.Now()
		data, err := c.send(req, sheet)
		logging.LogAPICall(logger, req.Method, req.URL.Path, time.Since(start), err)

		// Script and 4xx failures are answers from a live backend.
		unavailable := err != nil && !utils.IsPermanent(err)
		c.breaker.Record(unavailable)
		if c.breaker.State() == resilience.CircuitOpen && unavailable {
			logger.Warn().Msg("Sheets backend unavailable, pausing requests")
		}
		return data, err
	})
}

// BreakerStats reports the backend circuit breaker state.
func (c *Client) BreakerStats() resilience.BreakerStats {
	return c.breaker.Stats()
}

func (c *Client) send(req *http.Request, sheet string) (json.RawMessage, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if req.Context().Err() != nil {
			return nil, utils.Permanent(req.Context().Err())
		}
		return nil, apperrors.NewDataError("sheets", sheet, "request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewDataError("sheets", sheet, "failed to read response", err)
	}

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, apperrors.NewDataError("sheets", sheet, "server returned "+strconv.Itoa(resp.StatusCode), nil)
	}
	if resp.StatusCode >= 400 {
		return nil, utils.Permanent(apperrors.NewDataError("sheets", sheet, "server returned "+strconv.Itoa(resp.StatusCode), nil))
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, utils.Permanent(apperrors.NewDataError("sheets", sheet, "response is not JSON", err))
	}
	if !env.Success {
		return nil, utils.Permanent(scriptError(sheet, env.Error))
	}
	return env.Data, nil
}
