package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hiqiancheng/PoliPlay/internal/models"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

func TestClient_Chat_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected path /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Unexpected Authorization header: %s", r.Header.Get("Authorization"))
		}

		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
			return
		}
		if req.Model != "test-model" {
			t.Errorf("Unexpected model: %s", req.Model)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != openai.ChatMessageRoleSystem || req.Messages[1].Content != "政策内容" {
			t.Errorf("Unexpected messages: %+v", req.Messages)
		}

		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID:    "chatcmpl-1",
			Model: "test-model",
			Choices: []openai.ChatCompletionChoice{
				{
					Message: openai.ChatCompletionMessage{
						Role:    openai.ChatMessageRoleAssistant,
						Content: `{"comments": []}`,
					},
					FinishReason: openai.FinishReasonStop,
				},
			},
		})
	}))
	defer server.Close()

	client, err := NewClient(Config{
		APIKey:       "test-key",
		BaseURL:      server.URL,
		ModelName:    "test-model",
		SystemPrompt: "only JSON",
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	resp, err := client.Chat(context.Background(), &models.ChatRequest{Query: "政策内容"})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Answer != `{"comments": []}` {
		t.Errorf("Unexpected answer: %q", resp.Answer)
	}
	if resp.Provider != "openrouter" || resp.ModelVersion != "test-model" {
		t.Errorf("Unexpected metadata: %+v", resp)
	}
}

func TestClient_Chat_Retries(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantCalls int32
	}{
		{"server error is retried", http.StatusInternalServerError, 3},
		{"rate limit is retried", http.StatusTooManyRequests, 3},
		{"unauthorized is not retried", http.StatusUnauthorized, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error": {"message": "nope", "type": "error"}}`))
			}))
			defer server.Close()

			client, err := NewClient(Config{
				APIKey:     "k",
				BaseURL:    server.URL,
				MaxRetries: 3,
				RetryDelay: time.Millisecond,
			}, nil)
			if err != nil {
				t.Fatalf("Failed to create client: %v", err)
			}

			if _, err := client.Chat(context.Background(), &models.ChatRequest{Query: "q"}); err == nil {
				t.Fatal("Expected error")
			}
			if got := atomic.LoadInt32(&calls); got != tt.wantCalls {
				t.Errorf("Expected %d calls, got %d", tt.wantCalls, got)
			}
		})
	}
}

func TestClient_Chat_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{ID: "x"})
	}))
	defer server.Close()

	client, _ := NewClient(Config{APIKey: "k", BaseURL: server.URL, MaxRetries: 1}, nil)
	if _, err := client.Chat(context.Background(), &models.ChatRequest{Query: "q"}); err == nil {
		t.Error("Expected error for a response without choices")
	}
}
