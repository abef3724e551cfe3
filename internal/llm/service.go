// Package llm wraps an OpenAI-compatible API for the model-backed
// steps: resume field extraction, job-description parsing, text
// embeddings and match explanations. Every call reports its token
// usage so the caller can meter it.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"talentmatch/pkg/httpx"
)

type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGroq   Provider = "groq"
	ProviderNone   Provider = "none"
)

// TokenUsage is what one call consumed, as reported upstream.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type Service struct {
	provider       Provider
	baseURL        string
	apiKey         string
	model          string
	embeddingModel string
	client         *httpx.Client
	log            *zap.Logger
}

func NewService(provider, apiKey, model, embeddingModel string, log *zap.Logger) *Service {
	s := &Service{
		provider:       Provider(provider),
		apiKey:         apiKey,
		model:          model,
		embeddingModel: embeddingModel,
		client:         httpx.NewClient(120 * time.Second),
		log:            log,
	}
	switch s.provider {
	case ProviderGroq:
		s.baseURL = "https://api.groq.com/openai/v1"
	default:
		s.baseURL = "https://api.openai.com/v1"
	}
	return s
}

// Model returns the chat model name, for usage metering.
func (s *Service) Model() string { return s.model }

func (s *Service) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + s.apiKey}
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage TokenUsage `json:"usage"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// completeJSON runs one chat completion that must return a JSON object.
func (s *Service) completeJSON(ctx context.Context, system, prompt string) (string, TokenUsage, error) {
	if s.provider == ProviderNone {
		return "", TokenUsage{}, fmt.Errorf("llm provider not configured")
	}

	body := map[string]any{
		"model": s.model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": prompt},
		},
		"temperature":     0.1,
		"response_format": map[string]string{"type": "json_object"},
	}

	var resp chatResponse
	if err := s.client.PostJSON(ctx, s.baseURL+"/chat/completions", s.headers(), body, &resp); err != nil {
		return "", TokenUsage{}, err
	}
	if resp.Error.Message != "" {
		return "", TokenUsage{}, fmt.Errorf("llm error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", TokenUsage{}, fmt.Errorf("llm returned no choices")
	}
	return stripCodeFence(resp.Choices[0].Message.Content), resp.Usage, nil
}

// Embed produces the query/document vector. Implements search.Embedder.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	if s.provider == ProviderNone {
		return nil, fmt.Errorf("llm provider not configured")
	}

	body := map[string]any{
		"model": s.embeddingModel,
		"input": text,
	}
	var resp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := s.client.PostJSON(ctx, s.baseURL+"/embeddings", s.headers(), body, &resp); err != nil {
		return nil, err
	}
	if resp.Error.Message != "" {
		return nil, fmt.Errorf("embedding error: %s", resp.Error.Message)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding returned no data")
	}
	return resp.Data[0].Embedding, nil
}

// stripCodeFence tolerates models that wrap JSON in markdown fences
// despite the response_format hint.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}

// parseDate accepts the date shapes models actually emit.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "present") || strings.EqualFold(s, "current") {
		return nil
	}
	for _, layout := range []string{"2006-01-02", "2006-01", "2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func datesOf(start, end string) (s, e *time.Time) {
	return parseDate(start), parseDate(end)
}
