package textanalysis

import (
	"context"
	"fmt"
	"sync"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"sentimeter/internal/config"
	"sentimeter/internal/models"
)

// newFromConfig wires concrete backends by provider name so a deployment can
// swap vendors without code changes.
func newFromConfig(cfg *config.Config, logger *zap.Logger) (*Analyzer, error) {
	var client *openai.Client
	if cfg.OpenAIAPIKey != "" {
		client = openai.NewClient(cfg.OpenAIAPIKey)
	}

	requireClient := func(concern string) error {
		if client == nil {
			return fmt.Errorf("%s provider 'openai' requires OPENAI_API_KEY", concern)
		}
		return nil
	}

	var sentiment SentimentAnalyzer
	switch cfg.SentimentProvider {
	case "openai":
		if err := requireClient("sentiment"); err != nil {
			return nil, err
		}
		sentiment = NewOpenAISentimentAnalyzer(client)
	case "none":
		sentiment = nil
	default:
		return nil, fmt.Errorf("unsupported sentiment provider: %s", cfg.SentimentProvider)
	}

	var keywords KeywordExtractor
	switch cfg.KeywordProvider {
	case "openai":
		if err := requireClient("keyword"); err != nil {
			return nil, err
		}
		keywords = NewOpenAIKeywordExtractor(client)
	case "none":
		keywords = nil
	default:
		return nil, fmt.Errorf("unsupported keyword provider: %s", cfg.KeywordProvider)
	}

	var describer WeatherDescriber
	switch cfg.DescriptionProvider {
	case "openai":
		if err := requireClient("description"); err != nil {
			return nil, err
		}
		describer = NewOpenAIWeatherDescriber(client)
	case "template":
		describer = NewTemplateWeatherDescriber()
	default:
		return nil, fmt.Errorf("unsupported description provider: %s", cfg.DescriptionProvider)
	}

	var embedder Embedder
	if client != nil {
		embedder = NewOpenAIEmbedder(client)
	}

	return NewAnalyzer(sentiment, keywords, describer, embedder, logger), nil
}

// Shared is a lazily-initialized analyzer owned by the worker process. The
// backends are constructed on first use and released with Close, giving the
// heavyweight resources an explicit lifecycle instead of package-global state.
type Shared struct {
	cfg    *config.Config
	logger *zap.Logger

	mu       sync.Mutex
	analyzer *Analyzer
}

func NewShared(cfg *config.Config, logger *zap.Logger) *Shared {
	return &Shared{cfg: cfg, logger: logger}
}

// Get returns the process-wide analyzer, building it on first call.
func (s *Shared) Get() (*Analyzer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.analyzer == nil {
		a, err := newFromConfig(s.cfg, s.logger)
		if err != nil {
			return nil, err
		}
		s.logger.Info("analyzer initialized",
			zap.String("sentiment", s.cfg.SentimentProvider),
			zap.String("keywords", s.cfg.KeywordProvider),
			zap.String("description", s.cfg.DescriptionProvider),
		)
		s.analyzer = a
	}
	return s.analyzer, nil
}

// Close drops the analyzer so the next Get rebuilds it.
func (s *Shared) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyzer = nil
}

// Analyze delegates to the lazily-built analyzer. A failed build degrades to
// neutral defaults, matching the per-sub-call failure policy.
func (s *Shared) Analyze(ctx context.Context, text string) Result {
	a, err := s.Get()
	if err != nil {
		s.logger.Warn("analyzer unavailable", zap.Error(err))
		return Result{Sentiment: LabelNeutral}
	}
	return a.Analyze(ctx, text)
}

// DescribeWeather delegates to the lazily-built analyzer.
func (s *Shared) DescribeWeather(ctx context.Context, w *models.Weather) string {
	a, err := s.Get()
	if err != nil {
		s.logger.Warn("analyzer unavailable", zap.Error(err))
		return DescriptionUnavailable
	}
	return a.DescribeWeather(ctx, w)
}

// Embed delegates to the lazily-built analyzer. Unlike the other delegates it
// surfaces the error; callers need to distinguish an empty result from a
// missing embedder.
func (s *Shared) Embed(ctx context.Context, text string) ([]float64, error) {
	a, err := s.Get()
	if err != nil {
		return nil, err
	}
	return a.Embed(ctx, text)
}
