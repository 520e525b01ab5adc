package textanalysis

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"sentimeter/internal/models"
)

const (
	chatModel      = openai.GPT4oMini
	embeddingModel = openai.SmallEmbedding3
)

// OpenAISentimentAnalyzer classifies text with a chat completion.
type OpenAISentimentAnalyzer struct {
	client *openai.Client
}

func NewOpenAISentimentAnalyzer(client *openai.Client) *OpenAISentimentAnalyzer {
	return &OpenAISentimentAnalyzer{client: client}
}

func (a *OpenAISentimentAnalyzer) AnalyzeSentiment(ctx context.Context, text string) (string, float64, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: chatModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "Analyze sentiment. Return 'positive', 'negative', or 'neutral' followed by a confidence between 0 and 1.",
			},
			{Role: openai.ChatMessageRoleUser, Content: "Text: " + text},
		},
		MaxTokens:   10,
		Temperature: 0,
	})
	if err != nil {
		return "", 0, fmt.Errorf("sentiment completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", 0, fmt.Errorf("sentiment completion: empty response")
	}

	return parseSentimentReply(resp.Choices[0].Message.Content)
}

// parseSentimentReply reads replies of the form "positive 0.8". A missing or
// unparsable confidence defaults to 0.8 for the signed labels; anything
// unrecognized is neutral at 0.5.
func parseSentimentReply(reply string) (string, float64, error) {
	r := strings.ToLower(strings.TrimSpace(reply))
	fields := strings.Fields(r)

	confidence := 0.8
	if len(fields) > 1 {
		if v, err := strconv.ParseFloat(strings.TrimSuffix(fields[len(fields)-1], "."), 64); err == nil {
			confidence = v
		}
	}

	switch {
	case strings.Contains(r, LabelPositive):
		return LabelPositive, confidence, nil
	case strings.Contains(r, LabelNegative):
		return LabelNegative, confidence, nil
	default:
		return LabelNeutral, 0.5, nil
	}
}

// OpenAIKeywordExtractor extracts keywords with a chat completion.
type OpenAIKeywordExtractor struct {
	client *openai.Client
}

func NewOpenAIKeywordExtractor(client *openai.Client) *OpenAIKeywordExtractor {
	return &OpenAIKeywordExtractor{client: client}
}

func (e *OpenAIKeywordExtractor) ExtractKeywords(ctx context.Context, text string, topN int) ([]string, error) {
	if topN <= 0 {
		topN = DefaultKeywordCount
	}
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: chatModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf("Extract exactly %d keywords. Return only keywords separated by commas.", topN),
			},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		MaxTokens:   50,
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("keyword completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("keyword completion: empty response")
	}

	var keywords []string
	for _, kw := range strings.Split(resp.Choices[0].Message.Content, ",") {
		kw = strings.TrimSpace(strings.ToLower(kw))
		if kw != "" {
			keywords = append(keywords, kw)
		}
		if len(keywords) == topN {
			break
		}
	}
	return keywords, nil
}

// OpenAIWeatherDescriber writes a short natural-language weather blurb.
type OpenAIWeatherDescriber struct {
	client *openai.Client
}

func NewOpenAIWeatherDescriber(client *openai.Client) *OpenAIWeatherDescriber {
	return &OpenAIWeatherDescriber{client: client}
}

func (d *OpenAIWeatherDescriber) Describe(ctx context.Context, w *models.Weather) (string, error) {
	prompt := fmt.Sprintf(
		"Weather: %.1f°C, %.0f%% humidity, %s, %.1f m/s wind. Write a short weather description (max 150 chars).",
		w.Temperature, w.Humidity, w.Description, w.WindSpeed,
	)
	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You are a weather describing robot."},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   150,
		Temperature: 0.5,
	})
	if err != nil {
		return "", fmt.Errorf("weather description completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("weather description completion: empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// OpenAIEmbedder generates embeddings for semantic search.
type OpenAIEmbedder struct {
	client *openai.Client
}

func NewOpenAIEmbedder(client *openai.Client) *OpenAIEmbedder {
	return &OpenAIEmbedder{client: client}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: embeddingModel,
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("create embedding: empty response")
	}

	src := resp.Data[0].Embedding
	vec := make([]float64, len(src))
	for i, v := range src {
		vec[i] = float64(v)
	}
	return vec, nil
}
