package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang-stock-advisor/internal/advisor/config"
	"golang-stock-advisor/pkg/logger"
	"golang-stock-advisor/pkg/ratelimit"
	"golang-stock-advisor/pkg/utils"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// geminiAIRepository is an implementation of LLMRepository that uses the Google Gemini API.
type geminiAIRepository struct {
	cfg            *config.Config
	logger         *logger.Logger
	tokenLimiter   *ratelimit.TokenLimiter
	requestLimiter *rate.Limiter
	genAiClient    *genai.Client
}

// NewGeminiAIRepository creates a new instance of geminiAIRepository.
func NewGeminiAIRepository(cfg *config.Config, log *logger.Logger, genAiClient *genai.Client) (LLMRepository, error) {
	if genAiClient == nil {
		return nil, errors.New("gemini client is required")
	}
	if cfg.Gemini.Model == "" {
		return nil, errors.New("gemini model is required")
	}

	return &geminiAIRepository{
		cfg:            cfg,
		logger:         log,
		requestLimiter: newRequestLimiter(cfg.Gemini.MaxRequestPerMinute),
		tokenLimiter:   ratelimit.NewTokenLimiter(cfg.Gemini.MaxTokenPerMinute),
		genAiClient:    genAiClient,
	}, nil
}

// Generate sends prompt to Gemini and returns the concatenated text parts of the first candidate.
func (r *geminiAIRepository) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, "user"),
	}

	tokenResp, err := r.genAiClient.Models.CountTokens(ctx, r.cfg.Gemini.Model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("failed to count tokens: %w", err)
	}
	totalTokens := int(tokenResp.TotalTokens) + int(r.cfg.Gemini.MaxOutputTokens)

	r.logger.DebugContext(ctx, "Gemini token count",
		logger.IntField("total_tokens", totalTokens),
		logger.IntField("remaining", r.tokenLimiter.GetRemaining()),
	)

	if err := r.tokenLimiter.Wait(ctx, totalTokens); err != nil {
		return "", fmt.Errorf("failed to wait for token limit: %w", err)
	}
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("failed to wait for request limit: %w", err)
	}

	genConfig := &genai.GenerateContentConfig{
		Temperature:      utils.ToPointer(r.cfg.Gemini.Temperature),
		MaxOutputTokens:  r.cfg.Gemini.MaxOutputTokens,
		ResponseMIMEType: "application/json",
	}

	result, err := r.genAiClient.Models.GenerateContent(ctx, r.cfg.Gemini.Model, contents, genConfig)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to send request to Gemini API", logger.ErrorField(err))
		return "", fmt.Errorf("failed to send request to Gemini API: %w", err)
	}

	text, err := extractText(result)
	if err != nil {
		return "", err
	}

	r.logger.DebugContext(ctx, "Gemini response received", logger.IntField("length", len(text)))
	return text, nil
}

func extractText(result *genai.GenerateContentResponse) (string, error) {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", errors.New("no candidates in Gemini response")
	}

	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("empty text in Gemini response")
	}
	return sb.String(), nil
}

// ErrLLMDisabled is returned by every call of a disabled LLM repository.
var ErrLLMDisabled = errors.New("llm backend disabled")

type disabledLLMRepository struct {
	reason string
}

// NewDisabledLLMRepository returns an LLMRepository that fails every call with
// ErrLLMDisabled, so advisor callers fall back to indicator-only output.
func NewDisabledLLMRepository(reason string) LLMRepository {
	return &disabledLLMRepository{reason: reason}
}

func (r *disabledLLMRepository) Generate(context.Context, string) (string, error) {
	return "", fmt.Errorf("%w: %s", ErrLLMDisabled, r.reason)
}
