package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/desertthunder/modulearn/internal/shared"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiService implements [CompletionService] with the Gemini API.
type GeminiService struct {
	client *genai.Client
	model  string
}

// GeminiOptions configures [NewGeminiService]. BaseURL and HTTPClient are for tests and proxies.
type GeminiOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// NewGeminiService creates a Gemini client.
func NewGeminiService(ctx context.Context, opts GeminiOptions) (*GeminiService, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY is not configured", shared.ErrNotConfigured)
	}
	if opts.Model == "" || strings.HasPrefix(opts.Model, "llama") {
		opts.Model = defaultGeminiModel
	}

	cfg := &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiService{client: client, model: opts.Model}, nil
}

func (g *GeminiService) Name() string { return "gemini" }

func (g *GeminiService) Complete(ctx context.Context, p Prompt) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(p.Temperature),
		TopP:        genai.Ptr(p.TopP),
	}
	if p.MaxTokens > 0 {
		config.MaxOutputTokens = int32(p.MaxTokens)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(p.Content), config)
	if err != nil {
		return "", fmt.Errorf("%w: gemini: %w", shared.ErrAPIRequest, err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w from Gemini API", shared.ErrMissingContent)
	}
	return text, nil
}
