package geocode

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/school-tracker/internal/model"
)

var moscowQuery = Query{
	Text:   "Школа №179 Москва",
	Kind:   KindOrganization,
	Center: model.Coord{Lat: 55.756994, Lng: 37.618920},
	Span:   model.Coord{Lat: 0.400552, Lng: 0.552069},
}

func TestSearch_Organization(t *testing.T) {
	var got *http.Request
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"type": "FeatureCollection",
			"features": [{
				"geometry": {"type": "Point", "coordinates": [37.6133, 55.7612]},
				"properties": {
					"name": "Школа № 179",
					"description": "ул. Большая Дмитровка, 5/6, стр. 7, Москва, Россия",
					"CompanyMetaData": {"name": "Школа № 179", "address": "Москва, ул. Большая Дмитровка, 5/6, стр. 7"}
				}
			}, {
				"geometry": {"type": "Point", "coordinates": [1, 2]},
				"properties": {"name": "second"}
			}]
		}`)
	})

	res, err := c.Search(context.Background(), moscowQuery)
	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.Equal(t, "Москва, ул. Большая Дмитровка, 5/6, стр. 7", res.Address)
	assert.InDelta(t, 55.7612, res.Coord.Lat, 1e-9)
	assert.InDelta(t, 37.6133, res.Coord.Lng, 1e-9)

	require.NotNil(t, got)
	params := got.URL.Query()
	assert.Equal(t, "test-key", params.Get("apikey"))
	assert.Equal(t, "Школа №179 Москва", params.Get("text"))
	assert.Equal(t, "biz", params.Get("type"))
	assert.Equal(t, "ru_RU", params.Get("lang"))
	assert.Equal(t, "37.61892,55.756994", params.Get("ll"))
	assert.Equal(t, "0.552069,0.400552", params.Get("spn"))
}

func TestSearch_OrganizationFallsBackToDescription(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"features": [{
			"geometry": {"coordinates": [37.5, 55.5]},
			"properties": {"name": "Школа", "description": "Москва, Россия"}
		}]}`)
	})

	res, err := c.Search(context.Background(), moscowQuery)
	require.NoError(t, err)
	assert.Equal(t, "Москва, Россия", res.Address)
}

func TestSearch_PlaceJoinsAddressParts(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "geo", r.URL.Query().Get("type"))
		_, _ = io.WriteString(w, `{"features": [{
			"geometry": {"coordinates": [37.59, 55.73]},
			"properties": {"name": "улица Льва Толстого, 16", "description": "Москва, Россия"}
		}]}`)
	})

	q := moscowQuery
	q.Kind = KindPlace
	res, err := c.Search(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, "Москва, Россия, улица Льва Толстого, 16", res.Address)
	assert.InDelta(t, 55.73, res.Coord.Lat, 1e-9)
	assert.InDelta(t, 37.59, res.Coord.Lng, 1e-9)
}

func TestSearch_StatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"statusCode": 403, "error": "Forbidden", "message": "Invalid key"}`)
	})

	_, err := c.Search(context.Background(), moscowQuery)
	require.Error(t, err)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusForbidden, se.Code)
	assert.Equal(t, "Invalid key", se.Message)
	assert.Contains(t, err.Error(), "status 403")
}

func TestSearch_StatusErrorWithoutBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Search(context.Background(), moscowQuery)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "Bad Gateway", se.Message)
}

func TestSearch_NoResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"type": "FeatureCollection", "features": []}`)
	})

	_, err := c.Search(context.Background(), moscowQuery)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearch_ResultWithoutAddress(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"features": [{"geometry": {"coordinates": [37.61, 55.76]}, "properties": {"name": " ", "description": ""}}]}`)
	})

	_, err := c.Search(context.Background(), moscowQuery)
	assert.ErrorIs(t, err, ErrNotFound)

	place := moscowQuery
	place.Kind = KindPlace
	_, err = c.Search(context.Background(), place)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearch_MalformedCoordinates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"features": [{"geometry": {"coordinates": [37.5]}, "properties": {}}]}`)
	})

	_, err := c.Search(context.Background(), moscowQuery)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed coordinates")
}

func TestSearch_BadJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `not json`)
	})

	_, err := c.Search(context.Background(), moscowQuery)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse response")
}

func TestNewClient_Options(t *testing.T) {
	s := NewClient("key",
		WithBaseURL("http://localhost:1234/v1/"),
		WithLang("en_US"),
		WithRateLimit(0.5),
		WithVerifyTLS(false),
	)
	c, ok := s.(*client)
	require.True(t, ok)
	assert.Equal(t, "http://localhost:1234/v1", c.baseURL)
	assert.Equal(t, "en_US", c.lang)
	assert.Equal(t, 1, c.limiter.Burst())

	tr, ok := c.httpClient.Transport.(*http.Transport)
	require.True(t, ok)
	assert.True(t, tr.TLSClientConfig.InsecureSkipVerify)
}

func TestNewClient_Defaults(t *testing.T) {
	c, ok := NewClient("key").(*client)
	require.True(t, ok)
	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.Equal(t, "ru_RU", c.lang)
	assert.Zero(t, c.httpClient.Timeout)
}
