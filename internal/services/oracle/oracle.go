package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/mcoot/partyroom/internal/model"
)

// Request is everything the oracle needs to judge one round
type Request struct {
	Letter     string                                `json:"letter"`
	Answers    map[model.ParticipantID]model.Answers `json:"answers"`
	Categories []string                              `json:"categories"`
}

// Verdict is the oracle's judgement: per participant, per category correctness
type Verdict struct {
	Valid   bool                                    `json:"valid"`
	Errors  []string                                `json:"errors"`
	Details map[model.ParticipantID]map[string]bool `json:"details"`
}

// Oracle judges free-text answers. Implementations may be slow; callers bound
// the call with the context deadline.
type Oracle interface {
	Validate(ctx context.Context, req Request) (*Verdict, error)
}

// Unavailable is the oracle used when none is configured. Every call fails so
// scoring falls back to the local heuristic.
type Unavailable struct{}

// Validate always reports the oracle as unavailable
func (Unavailable) Validate(ctx context.Context, req Request) (*Verdict, error) {
	return nil, model.ErrOracleUnavailable
}

// HTTPOracle posts the request as JSON to a remote judge
type HTTPOracle struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// NewHTTPOracle creates an oracle that calls url
func NewHTTPOracle(url string, client *http.Client, logger *slog.Logger) *HTTPOracle {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPOracle{
		url:    url,
		client: client,
		logger: logger.With(slog.String("component", "oracle")),
	}
}

// Validate sends req to the remote judge and decodes its verdict
func (o *HTTPOracle) Validate(ctx context.Context, req Request) (*Verdict, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode oracle request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build oracle request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrOracleUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", model.ErrOracleUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		o.logger.Warn("oracle returned error status",
			slog.Int("status", resp.StatusCode),
		)
		return nil, fmt.Errorf("%w: status %d", model.ErrOracleUnavailable, resp.StatusCode)
	}

	var verdict Verdict
	if err := json.Unmarshal(data, &verdict); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrOracleMalformed, err)
	}
	return &verdict, nil
}
