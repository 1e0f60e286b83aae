// Package geocode resolves free-text school and address queries through the
// Yandex organisation search API, backed by a plain-text cache file.
package geocode

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/school-tracker/internal/model"
)

// DefaultBaseURL is the search API endpoint.
const DefaultBaseURL = "https://search-maps.yandex.ru/v1"

// Kind selects the result type the search API should return.
type Kind string

const (
	KindOrganization Kind = "biz"
	KindPlace        Kind = "geo"
)

// ErrNotFound is returned by a Searcher when the service matched nothing.
var ErrNotFound = eris.New("geocode: no results")

// StatusError is returned when the search API answers with a non-200 status.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("geocode: search returned status %d: %s", e.Code, e.Message)
}

// Query is a single lookup. Center and Span bias the search window.
type Query struct {
	Text   string
	Kind   Kind
	Center model.Coord
	Span   model.Coord
}

// Searcher performs one external lookup and returns the first result.
type Searcher interface {
	Search(ctx context.Context, q Query) (*Result, error)
}

// Option configures the search client.
type Option func(*client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithBaseURL overrides the search endpoint.
func WithBaseURL(u string) Option {
	return func(c *client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithLang sets the response language hint, e.g. "ru_RU".
func WithLang(lang string) Option {
	return func(c *client) {
		c.lang = lang
	}
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *client) {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithVerifyTLS toggles server certificate verification.
func WithVerifyTLS(verify bool) Option {
	return func(c *client) {
		if verify {
			return
		}
		c.httpClient = &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // operator opt-in
			},
		}
	}
}

type client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	lang       string
	limiter    *rate.Limiter
}

// NewClient creates a search API client.
func NewClient(apiKey string, opts ...Option) Searcher {
	c := &client{
		httpClient: &http.Client{},
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		lang:       "ru_RU",
		limiter:    rate.NewLimiter(5, 5),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type searchResponse struct {
	Features []feature `json:"features"`
}

type feature struct {
	Geometry struct {
		Coordinates []float64 `json:"coordinates"`
	} `json:"geometry"`
	Properties struct {
		Name            string `json:"name"`
		Description     string `json:"description"`
		CompanyMetaData *struct {
			Name    string `json:"name"`
			Address string `json:"address"`
		} `json:"CompanyMetaData"`
	} `json:"properties"`
}

type errorResponse struct {
	StatusCode int    `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

// Search implements Searcher.
func (c *client) Search(ctx context.Context, q Query) (*Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: rate limit")
	}

	params := url.Values{
		"apikey": {c.apiKey},
		"text":   {q.Text},
		"type":   {string(q.Kind)},
		"lang":   {c.lang},
		"ll":     {model.FormatDegrees(q.Center.Lng) + "," + model.FormatDegrees(q.Center.Lat)},
		"spn":    {model.FormatDegrees(q.Span.Lng) + "," + model.FormatDegrees(q.Span.Lat)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: build request")
	}

	zap.L().Debug("geocode: send query", zap.String("text", q.Text), zap.String("type", string(q.Kind)))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: read body")
	}

	if resp.StatusCode != http.StatusOK {
		msg := http.StatusText(resp.StatusCode)
		var er errorResponse
		if json.Unmarshal(body, &er) == nil && er.Message != "" {
			msg = er.Message
		}
		return nil, &StatusError{Code: resp.StatusCode, Message: msg}
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, eris.Wrap(err, "geocode: parse response")
	}
	if len(sr.Features) == 0 {
		return nil, ErrNotFound
	}

	return sr.Features[0].toResult(q.Kind)
}

func (f feature) toResult(kind Kind) (*Result, error) {
	coords := f.Geometry.Coordinates
	if len(coords) < 2 {
		return nil, eris.Errorf("geocode: malformed coordinates %v", coords)
	}

	var address string
	switch kind {
	case KindOrganization:
		if f.Properties.CompanyMetaData != nil {
			address = f.Properties.CompanyMetaData.Address
		}
		if address == "" {
			address = f.Properties.Description
		}
	default:
		address = joinNonEmpty(f.Properties.Description, f.Properties.Name)
	}
	if strings.TrimSpace(address) == "" {
		return nil, ErrNotFound
	}

	// The API orders coordinates longitude first.
	return &Result{
		Address: address,
		Coord:   model.Coord{Lat: coords[1], Lng: coords[0]},
		Matched: true,
	}, nil
}

func joinNonEmpty(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}
