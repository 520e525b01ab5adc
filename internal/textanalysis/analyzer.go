package textanalysis

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"sentimeter/internal/models"
)

// Sentiment labels.
const (
	LabelPositive = "positive"
	LabelNeutral  = "neutral"
	LabelNegative = "negative"
)

// DefaultKeywordCount is the number of terms extracted when the caller does
// not ask for a specific count.
const DefaultKeywordCount = 5

// SentimentAnalyzer classifies free text into a raw (label, confidence) pair
// with confidence in [0, 1]. Normalization into a signed score happens in
// Normalize, not in the backends.
type SentimentAnalyzer interface {
	AnalyzeSentiment(ctx context.Context, text string) (label string, confidence float64, err error)
}

// KeywordExtractor pulls up to topN representative terms from free text.
type KeywordExtractor interface {
	ExtractKeywords(ctx context.Context, text string, topN int) ([]string, error)
}

// WeatherDescriber turns structured weather into a short human sentence.
type WeatherDescriber interface {
	Describe(ctx context.Context, w *models.Weather) (string, error)
}

// Embedder produces a fixed-dimension vector for semantic search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// DescriptionUnavailable is the fallback when no description can be produced.
const DescriptionUnavailable = "Description not available."

// Normalize converts a raw classifier output into the signed score and final
// label the rest of the system stores. The score keeps the raw confidence as
// magnitude, signed by label, and any score within the [-0.5, 0.5] band is
// reported as neutral regardless of the raw label.
func Normalize(rawLabel string, confidence float64) (string, float64) {
	label := strings.ToLower(rawLabel)
	score := confidence
	if label != LabelPositive {
		score = -confidence
	}
	if score >= -0.5 && score <= 0.5 {
		return LabelNeutral, score
	}
	return label, score
}

// Result holds everything the analyzer derives from an entry body.
type Result struct {
	Sentiment      string
	SentimentScore float64
	Keywords       []string
	Embedding      []float64
}

// Analyzer bundles the four capabilities behind one facade. Each sub-call is
// failure-isolated: an error degrades that output to its neutral default and
// never aborts the others.
type Analyzer struct {
	sentiment SentimentAnalyzer
	keywords  KeywordExtractor
	describer WeatherDescriber
	embedder  Embedder
	logger    *zap.Logger
}

func NewAnalyzer(s SentimentAnalyzer, k KeywordExtractor, d WeatherDescriber, e Embedder, logger *zap.Logger) *Analyzer {
	return &Analyzer{sentiment: s, keywords: k, describer: d, embedder: e, logger: logger}
}

// Analyze runs sentiment, keyword extraction, and embedding over the text.
func (a *Analyzer) Analyze(ctx context.Context, text string) Result {
	res := Result{Sentiment: LabelNeutral}

	if a.sentiment != nil {
		rawLabel, confidence, err := a.sentiment.AnalyzeSentiment(ctx, text)
		if err != nil {
			a.logger.Warn("sentiment analysis failed", zap.Error(err))
		} else {
			res.Sentiment, res.SentimentScore = Normalize(rawLabel, confidence)
		}
	}

	if a.keywords != nil {
		kws, err := a.keywords.ExtractKeywords(ctx, text, DefaultKeywordCount)
		if err != nil {
			a.logger.Warn("keyword extraction failed", zap.Error(err))
		} else {
			res.Keywords = kws
		}
	}

	if a.embedder != nil {
		vec, err := a.embedder.Embed(ctx, text)
		if err != nil {
			// Degrade to a null embedding rather than failing the whole job.
			a.logger.Warn("embedding generation failed", zap.Error(err))
		} else {
			res.Embedding = vec
		}
	}

	return res
}

// DescribeWeather renders the weather description, falling back to the
// unavailable sentinel when the describer fails or the weather itself is the
// Unknown sentinel.
func (a *Analyzer) DescribeWeather(ctx context.Context, w *models.Weather) string {
	if a.describer == nil || w == nil || strings.EqualFold(w.Description, "unknown") {
		return DescriptionUnavailable
	}
	desc, err := a.describer.Describe(ctx, w)
	if err != nil || desc == "" {
		a.logger.Warn("weather description failed", zap.Error(err))
		return DescriptionUnavailable
	}
	return desc
}

// Embed exposes the embedder directly for semantic search queries.
func (a *Analyzer) Embed(ctx context.Context, text string) ([]float64, error) {
	if a.embedder == nil {
		return nil, fmt.Errorf("no embedder configured")
	}
	return a.embedder.Embed(ctx, text)
}
