package textanalysis

import (
	"context"
	"fmt"
	"strings"

	"sentimeter/internal/models"
)

// TemplateWeatherDescriber renders a deterministic description without any
// external call. It is the default backend so a missing OpenAI key never
// degrades weather descriptions.
type TemplateWeatherDescriber struct{}

func NewTemplateWeatherDescriber() *TemplateWeatherDescriber {
	return &TemplateWeatherDescriber{}
}

func (TemplateWeatherDescriber) Describe(_ context.Context, w *models.Weather) (string, error) {
	return fmt.Sprintf("%s, %.1f°C, %.0f%% humidity, %.1f m/s wind.",
		capitalize(w.Description), w.Temperature, w.Humidity, w.WindSpeed), nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
