package dify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hiqiancheng/PoliPlay/internal/models"

	"go.uber.org/zap"
)

func TestClient_Chat_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat-messages" {
			t.Errorf("Expected path /chat-messages, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer app-key" {
			t.Errorf("Unexpected Authorization header: %s", r.Header.Get("Authorization"))
		}

		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("Failed to decode request: %v", err)
			return
		}
		if body["query"] != "政策标题：测试" {
			t.Errorf("Unexpected query: %v", body["query"])
		}
		if body["response_mode"] != "blocking" {
			t.Errorf("Unexpected response_mode: %v", body["response_mode"])
		}
		if body["user"] != "tester" {
			t.Errorf("Unexpected user: %v", body["user"])
		}
		if _, ok := body["inputs"].(map[string]interface{}); !ok {
			t.Errorf("Expected inputs object, got %v", body["inputs"])
		}

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"event":           "message",
			"conversation_id": "conv-1",
			"mode":            "chat",
			"answer":          "```json\n{}\n```",
		})
	}))
	defer server.Close()

	client, err := NewClient(Config{APIKey: "app-key", BaseURL: server.URL + "/"}, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	resp, err := client.Chat(context.Background(), &models.ChatRequest{Query: "政策标题：测试", User: "tester"})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Answer != "```json\n{}\n```" {
		t.Errorf("Unexpected answer: %q", resp.Answer)
	}
	if resp.ConversationID != "conv-1" || resp.Provider != "dify" {
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
		{"bad request fails at once", http.StatusBadRequest, 1},
		{"unauthorized fails at once", http.StatusUnauthorized, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"code": "invalid_param", "message": "query is required"}`))
			}))
			defer server.Close()

			client, err := NewClient(Config{
				APIKey:     "app-key",
				BaseURL:    server.URL,
				MaxRetries: 3,
				RetryDelay: time.Millisecond,
			}, nil)
			if err != nil {
				t.Fatalf("Failed to create client: %v", err)
			}

			_, err = client.Chat(context.Background(), &models.ChatRequest{Query: "q"})
			if err == nil {
				t.Fatal("Expected error")
			}
			if !strings.Contains(err.Error(), "query is required") {
				t.Errorf("Expected upstream message in error, got %v", err)
			}
			var statusErr *StatusError
			if !errors.As(err, &statusErr) || statusErr.StatusCode != tt.status {
				t.Errorf("Expected StatusError with %d, got %v", tt.status, err)
			}
			if got := atomic.LoadInt32(&calls); got != tt.wantCalls {
				t.Errorf("Expected %d attempts, got %d", tt.wantCalls, got)
			}
		})
	}
}

func TestClient_Chat_EmptyAnswer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"answer": "  "}`))
	}))
	defer server.Close()

	client, _ := NewClient(Config{APIKey: "k", BaseURL: server.URL, MaxRetries: 1}, nil)
	if _, err := client.Chat(context.Background(), &models.ChatRequest{Query: "q"}); err == nil {
		t.Error("Expected error for empty answer")
	}
}

func TestClient_Chat_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client, _ := NewClient(Config{APIKey: "k", BaseURL: server.URL, MaxRetries: 3, RetryDelay: time.Second}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	if _, err := client.Chat(ctx, &models.ChatRequest{Query: "q"}); err == nil {
		t.Fatal("Expected error on timeout")
	}
	if time.Since(start) > 900*time.Millisecond {
		t.Errorf("Chat did not stop at the context deadline")
	}
}

func TestNewClient_RequiresKey(t *testing.T) {
	if _, err := NewClient(Config{}, nil); err == nil {
		t.Error("Expected error without API key")
	}
}
