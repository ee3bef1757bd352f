// Package predict talks to the flood-risk scoring service.
package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/floodsense/internal/model"
	"github.com/sells-group/floodsense/internal/resilience"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 1 << 20

// Client scores a single point.
type Client interface {
	// Analyze requests a flood-risk prediction for p. Every failure is an
	// *AnalysisError. The client never retries.
	Analyze(ctx context.Context, p model.Point) (*model.PredictionResult, error)
}

// Mode selects the live scoring service or the canned offline result.
type Mode string

const (
	ModeLive    Mode = "live"
	ModeOffline Mode = "offline"
)

// ParseMode converts a config string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeLive:
		return ModeLive, nil
	case ModeOffline:
		return ModeOffline, nil
	default:
		return "", eris.Errorf("predict: unknown mode %q", s)
	}
}

// Config fixes a client's mode and endpoint at construction time.
type Config struct {
	Mode    Mode
	BaseURL string
	Timeout time.Duration
}

// Option configures the live client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// New returns the client for cfg.Mode. The mode cannot change afterwards.
func New(cfg Config, opts ...Option) (Client, error) {
	switch cfg.Mode {
	case ModeOffline:
		return offlineClient{}, nil
	case ModeLive:
	default:
		return nil, eris.Errorf("predict: unknown mode %q", cfg.Mode)
	}

	if cfg.BaseURL == "" {
		return nil, eris.New("predict: base URL is required in live mode")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	c := &httpClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type httpClient struct {
	baseURL string
	http    *http.Client
}

type predictRequest struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type predictResponse struct {
	AIResponse *aiResponse          `json:"ai_response"`
	Features   []model.FeatureValue `json:"features"`
	Error      json.RawMessage      `json:"error"`
	Details    string               `json:"details"`
}

type aiResponse struct {
	RiskScore *float64        `json:"risk_score"`
	Error     json.RawMessage `json:"error"`
}

func (c *httpClient) Analyze(ctx context.Context, p model.Point) (*model.PredictionResult, error) {
	log := zap.L().With(zap.Float64("lat", p.Lat), zap.Float64("lng", p.Lng))

	payload, err := json.Marshal(predictRequest{Lat: p.Lat, Lon: p.Lng})
	if err != nil {
		return nil, &AnalysisError{Point: p, Reason: ReasonMalformed, Err: eris.Wrap(err, "predict: marshal request")}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(payload))
	if err != nil {
		return nil, &AnalysisError{Point: p, Reason: ReasonTransport, Err: eris.Wrap(err, "predict: create request")}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	log.Debug("predict: request")

	resp, err := c.http.Do(req)
	if err != nil {
		reason := ReasonTransport
		if ctx.Err() != nil {
			reason = ReasonCanceled
		}
		log.Debug("predict: request failed", zap.Error(err))
		return nil, &AnalysisError{Point: p, Reason: reason, Err: eris.Wrap(err, "predict: request failed")}
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &AnalysisError{Point: p, Reason: ReasonTransport, StatusCode: resp.StatusCode, Err: eris.Wrap(err, "predict: read response body")}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var statusErr error = eris.Errorf("predict: unexpected status %d: %s", resp.StatusCode, snippet(body))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			statusErr = resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		log.Debug("predict: non-2xx response", zap.Int("status", resp.StatusCode))
		return nil, &AnalysisError{Point: p, Reason: ReasonStatus, StatusCode: resp.StatusCode, Err: statusErr}
	}

	result, err := decodeResponse(body)
	if err != nil {
		log.Debug("predict: malformed response", zap.Error(err))
		return nil, &AnalysisError{Point: p, Reason: ReasonMalformed, StatusCode: resp.StatusCode, Err: err}
	}

	log.Debug("predict: response",
		zap.Float64("risk_score", result.RiskScore),
		zap.Int("features", len(result.Features)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

// decodeResponse validates the scoring service's JSON body. The backend
// reports upstream failures as a 2xx with an "error" field, so that is
// treated as malformed too.
func decodeResponse(body []byte) (*model.PredictionResult, error) {
	var pr predictResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return nil, eris.Wrap(err, "predict: unmarshal response")
	}
	if present(pr.Error) {
		return nil, eris.Errorf("predict: service error: %s %s", string(pr.Error), pr.Details)
	}
	if pr.AIResponse == nil {
		return nil, eris.New("predict: response missing ai_response")
	}
	if present(pr.AIResponse.Error) {
		return nil, eris.Errorf("predict: ai_response error: %s", string(pr.AIResponse.Error))
	}
	if pr.AIResponse.RiskScore == nil {
		return nil, eris.New("predict: response missing ai_response.risk_score")
	}
	score := *pr.AIResponse.RiskScore
	if math.IsNaN(score) || score < 0 || score > 1 {
		return nil, eris.Errorf("predict: risk_score %v outside [0,1]", score)
	}
	if pr.Features == nil {
		return nil, eris.New("predict: response missing features")
	}
	return &model.PredictionResult{RiskScore: score, Features: pr.Features}, nil
}

func present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

func snippet(body []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
