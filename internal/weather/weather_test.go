package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"sentimeter/internal/models"
)

func coordLocation(lat, lon float64) *models.Location {
	return &models.Location{City: "Berlin", Latitude: &lat, Longitude: &lon}
}

func TestCurrentByCoordinates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/2.5/weather", r.URL.Path)
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		assert.Equal(t, "52.52", r.URL.Query().Get("lat"))
		assert.Empty(t, r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"weather":[{"description":"light rain"}],"main":{"temp":12.3,"humidity":81},"wind":{"speed":4.2}}`))
	}))
	defer srv.Close()

	c := NewClient("key", zap.NewNop()).WithBaseURL(srv.URL)
	got := c.Current(context.Background(), coordLocation(52.52, 13.4))

	assert.Equal(t, "light rain", got.Description)
	assert.InDelta(t, 12.3, got.Temperature, 1e-9)
	assert.InDelta(t, 81, got.Humidity, 1e-9)
	assert.InDelta(t, 4.2, got.WindSpeed, 1e-9)
}

func TestCurrentByCityName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Lisbon", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"weather":[{"description":"clear sky"}],"main":{"temp":25,"humidity":40},"wind":{"speed":2}}`))
	}))
	defer srv.Close()

	c := NewClient("key", zap.NewNop()).WithBaseURL(srv.URL)
	got := c.Current(context.Background(), &models.Location{City: "Lisbon"})
	assert.Equal(t, "clear sky", got.Description)
}

func TestCurrentFailureYieldsUnknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient("bad-key", zap.NewNop()).WithBaseURL(srv.URL)
	got := c.Current(context.Background(), coordLocation(52.52, 13.4))
	assert.Equal(t, models.UnknownWeather(), got)
}

func TestCurrentUnresolvableLocation(t *testing.T) {
	c := NewClient("key", zap.NewNop())

	// No coordinates and no usable city name: skip the call entirely.
	assert.Equal(t, models.UnknownWeather(), c.Current(context.Background(), models.UnknownLocation()))
	assert.Equal(t, models.UnknownWeather(), c.Current(context.Background(), nil))
}
