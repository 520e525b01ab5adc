package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestByIP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/json/203.0.113.9", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"success","city":"Lisbon","regionName":"Lisboa","country":"Portugal","lat":38.72,"lon":-9.14}`))
	}))
	defer srv.Close()

	r := NewResolver("", zap.NewNop()).WithBaseURLs(srv.URL, srv.URL)
	loc := r.ByIP(context.Background(), "203.0.113.9")

	assert.Equal(t, "Lisbon", loc.City)
	assert.Equal(t, "Lisboa", loc.Region)
	assert.Equal(t, "Portugal", loc.Country)
	require.NotNil(t, loc.Latitude)
	assert.InDelta(t, 38.72, *loc.Latitude, 1e-9)
}

func TestByIPFailureYieldsUnknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"fail"}`))
	}))
	defer srv.Close()

	r := NewResolver("", zap.NewNop()).WithBaseURLs(srv.URL, srv.URL)
	loc := r.ByIP(context.Background(), "256.0.0.1")
	assert.Equal(t, "Unknown", loc.City)
	assert.Equal(t, "Unknown", loc.Country)
	assert.Nil(t, loc.Latitude)
}

func TestByIPServerErrorYieldsUnknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := NewResolver("", zap.NewNop()).WithBaseURLs(srv.URL, srv.URL)
	loc := r.ByIP(context.Background(), "203.0.113.9")
	assert.Equal(t, "Unknown", loc.City)
}

func TestByCoordinates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geo/1.0/reverse", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"name":"Berlin","state":"Berlin","country":"DE"}]`))
	}))
	defer srv.Close()

	r := NewResolver("key", zap.NewNop()).WithBaseURLs(srv.URL, srv.URL)
	loc := r.ByCoordinates(context.Background(), 52.52, 13.40)

	assert.Equal(t, "Berlin", loc.City)
	assert.Equal(t, "DE", loc.Country)
	require.NotNil(t, loc.Latitude)
	assert.InDelta(t, 52.52, *loc.Latitude, 1e-9)
}

func TestByCoordinatesFailureKeepsCoords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	r := NewResolver("key", zap.NewNop()).WithBaseURLs(srv.URL, srv.URL)
	loc := r.ByCoordinates(context.Background(), 52.52, 13.40)

	// The sentinel still carries the coordinates so weather lookup can run.
	assert.Equal(t, "Unknown", loc.City)
	require.NotNil(t, loc.Latitude)
	assert.InDelta(t, 52.52, *loc.Latitude, 1e-9)
}

func TestByCoordinatesFillsBlanks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"name":"Berlin","state":"","country":""}]`))
	}))
	defer srv.Close()

	r := NewResolver("key", zap.NewNop()).WithBaseURLs(srv.URL, srv.URL)
	loc := r.ByCoordinates(context.Background(), 52.52, 13.40)
	assert.Equal(t, "Berlin", loc.City)
	assert.Equal(t, "Unknown", loc.Region)
	assert.Equal(t, "Unknown", loc.Country)
}
