// Package geocode reverse geocodes coordinates into human-readable place
// names via Nominatim, with an optional SQLite cache.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrNoPlaceName is returned when the service answers without a usable name.
var ErrNoPlaceName = eris.New("geocode: no place name in response")

// Reverser turns a coordinate into a place name.
type Reverser interface {
	// Reverse returns the display name for lat/lng.
	Reverse(ctx context.Context, lat, lng float64) (string, error)
}

// Option configures the Nominatim client.
type Option func(*nominatim)

// WithBaseURL sets a custom base URL (for testing or a self-hosted instance).
func WithBaseURL(u string) Option {
	return func(n *nominatim) {
		n.baseURL = strings.TrimRight(u, "/")
	}
}

// WithUserAgent sets the identifying User-Agent sent with every request.
func WithUserAgent(ua string) Option {
	return func(n *nominatim) {
		n.userAgent = ua
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(n *nominatim) {
		n.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second rate limit.
func WithRateLimit(rps float64) Option {
	return func(n *nominatim) {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		n.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

type nominatim struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewNominatim creates a Reverser backed by the Nominatim reverse API.
func NewNominatim(opts ...Option) Reverser {
	n := &nominatim{
		baseURL:    "https://nominatim.openstreetmap.org",
		userAgent:  "FloodSense/1.0",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(1, 1), // Nominatim usage policy: 1 req/s
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

type reverseResponse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

func (n *nominatim) Reverse(ctx context.Context, lat, lng float64) (string, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "geocode: rate limiter wait")
	}

	params := url.Values{}
	params.Set("format", "json")
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	reqURL := fmt.Sprintf("%s/reverse?%s", n.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", eris.Wrap(err, "geocode: create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", n.userAgent)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "geocode: request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", eris.Errorf("geocode: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var rr reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return "", eris.Wrap(err, "geocode: decode response")
	}
	if rr.DisplayName == "" {
		zap.L().Debug("geocode: no display name",
			zap.Float64("lat", lat),
			zap.Float64("lng", lng),
			zap.String("service_error", rr.Error),
		)
		return "", ErrNoPlaceName
	}

	return rr.DisplayName, nil
}

// FallbackName formats lat/lng with 5 decimal places, "lat, lng". It is the
// location name shown when no place name can be resolved.
func FallbackName(lat, lng float64) string {
	return fmt.Sprintf("%.5f, %.5f", lat, lng)
}
