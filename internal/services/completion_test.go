package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/modulearn/internal/shared"
)

func TestGroqService(t *testing.T) {
	ctx := context.Background()
	prompt := Prompt{Content: "Explain TCP", Temperature: 0.7, TopP: 0.9, MaxTokens: 2048}

	t.Run("missing key", func(t *testing.T) {
		g := NewGroqService("", "", "", nil)
		_, err := g.Complete(ctx, prompt)
		if !errors.Is(err, shared.ErrNotConfigured) {
			t.Errorf("expected ErrNotConfigured, got %v", err)
		}
		if !strings.Contains(err.Error(), "GROQ_API_KEY is not configured") {
			t.Errorf("unexpected message %v", err)
		}
	})

	t.Run("sends chat request", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/chat/completions" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if r.Header.Get("Authorization") != "Bearer gsk" {
				t.Errorf("missing bearer key")
			}

			var req chatRequest
			json.NewDecoder(r.Body).Decode(&req)
			if req.Model != "llama-3.3-70b-versatile" || req.MaxTokens != 2048 || req.TopP != 0.9 || req.Temperature != 0.7 {
				t.Errorf("unexpected request %+v", req)
			}
			if len(req.Messages) != 1 || req.Messages[0].Role != "user" || req.Messages[0].Content != "Explain TCP" {
				t.Errorf("unexpected messages %+v", req.Messages)
			}

			w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"TCP is..."}}]}`))
		}))
		defer server.Close()

		g := NewGroqService("gsk", "", server.URL, server.Client())
		got, err := g.Complete(ctx, prompt)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "TCP is..." {
			t.Errorf("unexpected completion %q", got)
		}
	})

	t.Run("empty content", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"choices":[]}`))
		}))
		defer server.Close()

		g := NewGroqService("gsk", "", server.URL, server.Client())
		if _, err := g.Complete(ctx, prompt); !errors.Is(err, shared.ErrMissingContent) {
			t.Errorf("expected ErrMissingContent, got %v", err)
		}
	})

	t.Run("api error message", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"message":"model decommissioned"}}`))
		}))
		defer server.Close()

		g := NewGroqService("gsk", "", server.URL, server.Client())
		_, err := g.Complete(ctx, prompt)
		if !errors.Is(err, shared.ErrAPIRequest) || !strings.Contains(err.Error(), "model decommissioned") {
			t.Errorf("expected API error with message, got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		defer server.Close()

		cctx, cancel := context.WithCancel(ctx)
		cancel()

		g := NewGroqService("gsk", "", server.URL, server.Client())
		if _, err := g.Complete(cctx, prompt); err == nil {
			t.Error("expected error for cancelled context")
		}
	})
}

func TestGeminiService(t *testing.T) {
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		if _, err := NewGeminiService(ctx, GeminiOptions{}); !errors.Is(err, shared.ErrNotConfigured) {
			t.Errorf("expected ErrNotConfigured, got %v", err)
		}
	})

	t.Run("generate content", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasSuffix(r.URL.Path, "gemini-2.5-flash:generateContent") {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"title\":\"Go\"}"}]}}]}`))
		}))
		defer server.Close()

		g, err := NewGeminiService(ctx, GeminiOptions{
			APIKey:     "key",
			Model:      "llama-3.3-70b-versatile",
			BaseURL:    server.URL,
			HTTPClient: server.Client(),
		})
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		got, err := g.Complete(ctx, Prompt{Content: "hi", Temperature: 0.7, TopP: 0.9, MaxTokens: 10})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != `{"title":"Go"}` {
			t.Errorf("unexpected completion %q", got)
		}
	})
}
