package textanalysis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sentimeter/internal/models"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		rawLabel   string
		confidence float64
		wantLabel  string
		wantScore  float64
	}{
		{"positive", 0.9, "positive", 0.9},
		{"negative", 0.9, "negative", -0.9},
		{"positive", 0.5, "neutral", 0.5},
		{"positive", 0.3, "neutral", 0.3},
		{"negative", 0.3, "neutral", -0.3},
		{"negative", 0.5, "neutral", -0.5},
		{"neutral", 0.97, "neutral", -0.97},
		{"POSITIVE", 0.8, "positive", 0.8},
	}
	for _, tt := range tests {
		label, score := Normalize(tt.rawLabel, tt.confidence)
		assert.Equal(t, tt.wantLabel, label, "raw %q %v", tt.rawLabel, tt.confidence)
		assert.InDelta(t, tt.wantScore, score, 1e-9, "raw %q %v", tt.rawLabel, tt.confidence)
	}
}

func TestParseSentimentReply(t *testing.T) {
	label, conf, err := parseSentimentReply("positive 0.95")
	require.NoError(t, err)
	assert.Equal(t, LabelPositive, label)
	assert.InDelta(t, 0.95, conf, 1e-9)

	label, conf, err = parseSentimentReply("Negative")
	require.NoError(t, err)
	assert.Equal(t, LabelNegative, label)
	assert.InDelta(t, 0.8, conf, 1e-9)

	label, conf, err = parseSentimentReply("no idea what this text means")
	require.NoError(t, err)
	assert.Equal(t, LabelNeutral, label)
	assert.InDelta(t, 0.5, conf, 1e-9)
}

type stubSentiment struct {
	label string
	conf  float64
	err   error
}

func (s stubSentiment) AnalyzeSentiment(context.Context, string) (string, float64, error) {
	return s.label, s.conf, s.err
}

type stubKeywords struct {
	words []string
	err   error
}

func (s stubKeywords) ExtractKeywords(context.Context, string, int) ([]string, error) {
	return s.words, s.err
}

type stubEmbedder struct {
	vec []float64
	err error
}

func (s stubEmbedder) Embed(context.Context, string) ([]float64, error) {
	return s.vec, s.err
}

func TestAnalyzeHappyPath(t *testing.T) {
	a := NewAnalyzer(
		stubSentiment{label: "positive", conf: 0.9},
		stubKeywords{words: []string{"park", "sun"}},
		nil,
		stubEmbedder{vec: []float64{0.1, 0.2}},
		zap.NewNop(),
	)
	res := a.Analyze(context.Background(), "lovely day")
	assert.Equal(t, LabelPositive, res.Sentiment)
	assert.InDelta(t, 0.9, res.SentimentScore, 1e-9)
	assert.Equal(t, []string{"park", "sun"}, res.Keywords)
	assert.Equal(t, []float64{0.1, 0.2}, res.Embedding)
}

func TestAnalyzeFailuresAreIsolated(t *testing.T) {
	boom := errors.New("backend down")
	a := NewAnalyzer(
		stubSentiment{err: boom},
		stubKeywords{words: []string{"work"}},
		nil,
		stubEmbedder{err: boom},
		zap.NewNop(),
	)
	res := a.Analyze(context.Background(), "rough day")

	// Sentiment and embedding degrade; keywords still come through.
	assert.Equal(t, LabelNeutral, res.Sentiment)
	assert.Zero(t, res.SentimentScore)
	assert.Equal(t, []string{"work"}, res.Keywords)
	assert.Nil(t, res.Embedding)
}

func TestDescribeWeather(t *testing.T) {
	a := NewAnalyzer(nil, nil, NewTemplateWeatherDescriber(), nil, zap.NewNop())

	w := &models.Weather{Description: "light rain", Temperature: 12.3, Humidity: 80, WindSpeed: 4.5}
	assert.Equal(t, "Light rain, 12.3°C, 80% humidity, 4.5 m/s wind.", a.DescribeWeather(context.Background(), w))

	// The Unknown sentinel and a nil weather both yield the fallback.
	assert.Equal(t, DescriptionUnavailable, a.DescribeWeather(context.Background(), models.UnknownWeather()))
	assert.Equal(t, DescriptionUnavailable, a.DescribeWeather(context.Background(), nil))
}

func TestDescribeWeatherNoDescriber(t *testing.T) {
	a := NewAnalyzer(nil, nil, nil, nil, zap.NewNop())
	w := &models.Weather{Description: "clear sky"}
	assert.Equal(t, DescriptionUnavailable, a.DescribeWeather(context.Background(), w))
}

func TestEmbedWithoutEmbedder(t *testing.T) {
	a := NewAnalyzer(nil, nil, nil, nil, zap.NewNop())
	_, err := a.Embed(context.Background(), "query")
	assert.Error(t, err)
}
