package geo

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"sentimeter/internal/models"
)

// Resolver turns coordinates or an IP address into a coarse location. Lookups
// are best-effort single attempts: any failure yields the Unknown sentinel so
// enrichment never fails on location alone.
type Resolver struct {
	ipClient  *resty.Client
	geoClient *resty.Client
	apiKey    string
	logger    *zap.Logger
}

// NewResolver builds a resolver using ip-api.com for IP lookups and the
// OpenWeatherMap geocoding API for reverse geocoding.
func NewResolver(openWeatherKey string, logger *zap.Logger) *Resolver {
	return &Resolver{
		ipClient: resty.New().
			SetBaseURL("http://ip-api.com").
			SetTimeout(10 * time.Second),
		geoClient: resty.New().
			SetBaseURL("https://api.openweathermap.org").
			SetTimeout(10 * time.Second),
		apiKey: openWeatherKey,
		logger: logger,
	}
}

// WithBaseURLs overrides the provider endpoints; tests point them at httptest
// servers.
func (r *Resolver) WithBaseURLs(ipBase, geoBase string) *Resolver {
	r.ipClient.SetBaseURL(ipBase)
	r.geoClient.SetBaseURL(geoBase)
	return r
}

type ipAPIResponse struct {
	Status     string  `json:"status"`
	City       string  `json:"city"`
	RegionName string  `json:"regionName"`
	Country    string  `json:"country"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
}

// ByIP resolves a location from an IP address.
func (r *Resolver) ByIP(ctx context.Context, ip string) *models.Location {
	var body ipAPIResponse
	resp, err := r.ipClient.R().
		SetContext(ctx).
		SetResult(&body).
		Get("/json/" + ip)
	if err != nil || resp.StatusCode() != http.StatusOK || body.Status != "success" {
		r.logger.Warn("ip geolocation failed", zap.String("ip", ip), zap.Error(err))
		return models.UnknownLocation()
	}

	loc := &models.Location{
		City:    orUnknown(body.City),
		Region:  orUnknown(body.RegionName),
		Country: orUnknown(body.Country),
	}
	lat, lon := body.Lat, body.Lon
	loc.Latitude, loc.Longitude = &lat, &lon
	return loc
}

type reverseGeoResponse []struct {
	Name    string `json:"name"`
	State   string `json:"state"`
	Country string `json:"country"`
}

// ByCoordinates reverse-geocodes an explicit lat/lon pair.
func (r *Resolver) ByCoordinates(ctx context.Context, lat, lon float64) *models.Location {
	var body reverseGeoResponse
	resp, err := r.geoClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"lat":   fmt.Sprintf("%f", lat),
			"lon":   fmt.Sprintf("%f", lon),
			"limit": "1",
			"appid": r.apiKey,
		}).
		SetResult(&body).
		Get("/geo/1.0/reverse")
	if err != nil || resp.StatusCode() != http.StatusOK || len(body) == 0 {
		r.logger.Warn("reverse geocode failed",
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
			zap.Error(err),
		)
		loc := models.UnknownLocation()
		loc.Latitude, loc.Longitude = &lat, &lon
		return loc
	}

	return &models.Location{
		City:      orUnknown(body[0].Name),
		Region:    orUnknown(body[0].State),
		Country:   orUnknown(body[0].Country),
		Latitude:  &lat,
		Longitude: &lon,
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
