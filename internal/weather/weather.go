package weather

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"sentimeter/internal/models"
)

// Client fetches current conditions from OpenWeatherMap. Failures degrade to
// the Unknown sentinel; weather must never block an entry's enrichment.
type Client struct {
	http   *resty.Client
	apiKey string
	logger *zap.Logger
}

func NewClient(apiKey string, logger *zap.Logger) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL("https://api.openweathermap.org").
			SetTimeout(10 * time.Second),
		apiKey: apiKey,
		logger: logger,
	}
}

// WithBaseURL overrides the endpoint; tests point it at an httptest server.
func (c *Client) WithBaseURL(base string) *Client {
	c.http.SetBaseURL(base)
	return c
}

type owmResponse struct {
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

// Current returns the weather at a location, preferring coordinates over the
// city name when available.
func (c *Client) Current(ctx context.Context, loc *models.Location) *models.Weather {
	if loc == nil {
		return models.UnknownWeather()
	}

	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("units", "metric").
		SetQueryParam("appid", c.apiKey)
	if loc.Latitude != nil && loc.Longitude != nil {
		req.SetQueryParam("lat", formatCoord(*loc.Latitude))
		req.SetQueryParam("lon", formatCoord(*loc.Longitude))
	} else if loc.City != "" && loc.City != "Unknown" {
		req.SetQueryParam("q", loc.City)
	} else {
		return models.UnknownWeather()
	}

	var body owmResponse
	resp, err := req.SetResult(&body).Get("/data/2.5/weather")
	if err != nil || resp.StatusCode() != http.StatusOK || len(body.Weather) == 0 {
		c.logger.Warn("weather lookup failed", zap.String("city", loc.City), zap.Error(err))
		return models.UnknownWeather()
	}

	return &models.Weather{
		Description: body.Weather[0].Description,
		Temperature: body.Main.Temp,
		Humidity:    body.Main.Humidity,
		WindSpeed:   body.Wind.Speed,
	}
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
