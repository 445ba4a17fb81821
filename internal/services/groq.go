package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/desertthunder/modulearn/internal/shared"
)

const (
	defaultGroqBaseURL = "https://api.groq.com/openai/v1"
	defaultGroqModel   = "llama-3.3-70b-versatile"
)

// GroqService implements [CompletionService] over Groq's OpenAI-compatible chat completions API.
type GroqService struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewGroqService creates a Groq client. Empty model and baseURL use the defaults.
func NewGroqService(apiKey, model, baseURL string, client *http.Client) *GroqService {
	if model == "" {
		model = defaultGroqModel
	}
	if baseURL == "" {
		baseURL = defaultGroqBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &GroqService{apiKey: apiKey, model: model, baseURL: strings.TrimRight(baseURL, "/"), httpClient: client}
}

func (g *GroqService) Name() string { return "groq" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	TopP        float32       `json:"top_p"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type chatError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (g *GroqService) Complete(ctx context.Context, p Prompt) (string, error) {
	if g.apiKey == "" {
		return "", fmt.Errorf("%w: GROQ_API_KEY is not configured", shared.ErrNotConfigured)
	}

	payload, err := json.Marshal(chatRequest{
		Model:       g.model,
		Messages:    []chatMessage{{Role: "user", Content: p.Content}},
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
		TopP:        p.TopP,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %w", shared.ErrTimeout, err)
		}
		return "", fmt.Errorf("%w: %w", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr chatError
		json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&apiErr)
		msg := apiErr.Error.Message
		if msg == "" {
			msg = "Unknown error"
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return "", fmt.Errorf("%w: groq: %s", shared.ErrRateLimited, msg)
		}
		return "", fmt.Errorf("%w: Groq API error: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, msg)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: %w", shared.ErrMalformedResponse, err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%w from Groq API", shared.ErrMissingContent)
	}
	return out.Choices[0].Message.Content, nil
}
