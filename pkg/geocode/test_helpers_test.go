package geocode

import (
	"net/http"
	"strings"

	"golang.org/x/time/rate"
)

// unlimited swaps in a limiter that never waits.
func unlimited() Option {
	return func(n *nominatim) {
		n.limiter = rate.NewLimiter(rate.Inf, 1)
	}
}

// testNominatim returns a Nominatim client against baseURL with rate
// limiting disabled.
func testNominatim(baseURL string, opts ...Option) Reverser {
	return NewNominatim(append([]Option{WithBaseURL(baseURL), unlimited()}, opts...)...)
}

// redirectClient sends requests whose URL starts with prefix to target
// instead, so the default base URL can be exercised against httptest.
func redirectClient(target, prefix string) *http.Client {
	return &http.Client{Transport: redirectTransport{target: target, prefix: prefix}}
}

type redirectTransport struct {
	target string
	prefix string
}

func (t redirectTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	u := req.URL.String()
	if !strings.HasPrefix(u, t.prefix) {
		return http.DefaultTransport.RoundTrip(req)
	}
	parsed, err := req.URL.Parse(t.target + strings.TrimPrefix(u, t.prefix))
	if err != nil {
		return nil, err
	}
	out := req.Clone(req.Context())
	out.URL = parsed
	out.Host = parsed.Host
	return http.DefaultTransport.RoundTrip(out)
}
