package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/swarmaid/swarmaid/internal/httpx"
	"github.com/swarmaid/swarmaid/internal/llm"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSendMessage_TextResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("expected Bearer auth, got %q", r.Header.Get("Authorization"))
		}

		var req apiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Model != "gpt-5-chat-latest" {
			t.Errorf("expected default model, got %q", req.Model)
		}
		if req.Temperature != 0.2 {
			t.Errorf("expected temperature 0.2, got %v", req.Temperature)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
			t.Fatalf("unexpected messages: %+v", req.Messages)
		}

		json.NewEncoder(w).Encode(apiResponse{
			Choices: []apiChoice{{
				Message:      apiMessage{Role: "assistant", Content: "Stage depots north of the river."},
				FinishReason: "stop",
			}},
			Usage: apiUsage{PromptTokens: 10, CompletionTokens: 5},
		})
	}))
	defer srv.Close()

	client := NewClient("test-key", "", discardLogger(), WithBaseURL(srv.URL+"/v1"))
	resp, err := client.SendMessage(context.Background(), &llm.Request{
		SystemPrompt: "You are a Logistics Manager.",
		Messages:     []llm.Message{llm.UserMessage("Plan routes")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "Stage depots north of the river." {
		t.Errorf("unexpected content %q", resp.Content)
	}
	if resp.StopReason != "end_turn" {
		t.Errorf("expected end_turn, got %q", resp.StopReason)
	}
	if resp.Usage.InputTokens != 10 || resp.Usage.OutputTokens != 5 {
		t.Errorf("unexpected usage: %+v", resp.Usage)
	}
}

func TestSendMessage_NoSystemPromptNoKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("expected no auth header, got %q", r.Header.Get("Authorization"))
		}
		var req apiRequest
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) != 1 {
			t.Errorf("expected 1 message, got %d", len(req.Messages))
		}
		if req.MaxTokens != 64 {
			t.Errorf("expected max tokens 64, got %d", req.MaxTokens)
		}
		json.NewEncoder(w).Encode(apiResponse{Choices: []apiChoice{{Message: apiMessage{Content: "ok"}, FinishReason: "length"}}})
	}))
	defer srv.Close()

	client := NewClient("", "llama3", discardLogger(), WithBaseURL(srv.URL), WithName("ollama"))
	if client.Name() != "ollama" {
		t.Errorf("name = %q", client.Name())
	}
	resp, err := client.SendMessage(context.Background(), &llm.Request{
		Messages:  []llm.Message{llm.UserMessage("hi")},
		MaxTokens: 64,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StopReason != "max_tokens" {
		t.Errorf("expected max_tokens, got %q", resp.StopReason)
	}
}

func TestSendMessage_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid key"}`))
	}))
	defer srv.Close()

	client := NewClient("bad", "m", discardLogger(), WithBaseURL(srv.URL))
	_, err := client.SendMessage(context.Background(), &llm.Request{Messages: []llm.Message{llm.UserMessage("x")}})
	var se *httpx.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 status error, got %v", err)
	}
}
