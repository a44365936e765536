package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/campusplan/timetable-api/internal/dto"
	"github.com/campusplan/timetable-api/pkg/config"
	appErrors "github.com/campusplan/timetable-api/pkg/errors"
)

// Client calls the external constraint solver over HTTP. The solver is a
// black box: one request, one bounded wait, no retries.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// New constructs a solver client with the configured timeout.
func New(cfg config.SolverConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// errorBody mirrors the solver's failure payload.
type errorBody struct {
	Detail string `json:"detail"`
}

// Solve posts the payload to {baseURL}/solve and decodes the solution list.
// Any non-200 response, malformed body or timeout is a hard failure; the
// solver's detail message is surfaced verbatim when present.
func (c *Client) Solve(ctx context.Context, payload dto.SolveRequest) ([]dto.SolutionEntry, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode solver request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/solve", bytes.NewReader(body))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build solver request")
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("solver call failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return nil, appErrors.Wrap(err, appErrors.ErrSolver.Code, appErrors.ErrSolver.Status, "unexpected error")
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrSolver.Code, appErrors.ErrSolver.Status, "failed to read solver response")
	}

	if resp.StatusCode != http.StatusOK {
		detail := "unexpected error"
		var failure errorBody
		if unmarshalErr := json.Unmarshal(raw, &failure); unmarshalErr == nil && failure.Detail != "" {
			detail = failure.Detail
		}
		c.logger.Warn("solver rejected request",
			zap.Int("status", resp.StatusCode),
			zap.String("detail", detail),
		)
		return nil, appErrors.Clone(appErrors.ErrSolver, detail)
	}

	var solution []dto.SolutionEntry
	if err := json.Unmarshal(raw, &solution); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrSolver.Code, appErrors.ErrSolver.Status, "malformed solver response")
	}

	c.logger.Info("solver call completed",
		zap.Int("entries", len(solution)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return solution, nil
}

// String identifies the solver endpoint for diagnostics.
func (c *Client) String() string {
	return fmt.Sprintf("solver(%s)", c.baseURL)
}
