package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/time/rate"
)

// newTestClient creates a search client pointed at a test server with no rate limiting.
func newTestClient(t *testing.T, handler http.HandlerFunc) *client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &client{
		httpClient: srv.Client(),
		apiKey:     "test-key",
		baseURL:    srv.URL,
		lang:       "ru_RU",
		limiter:    rate.NewLimiter(rate.Inf, 1),
	}
}

// stubSearcher records queries and returns a fixed answer.
type stubSearcher struct {
	calls  []Query
	result *Result
	err    error
}

func (s *stubSearcher) Search(_ context.Context, q Query) (*Result, error) {
	s.calls = append(s.calls, q)
	if s.err != nil {
		return nil, s.err
	}
	r := *s.result
	return &r, nil
}
