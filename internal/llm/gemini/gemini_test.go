package gemini

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/swarmaid/swarmaid/internal/llm"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSendMessage_TextResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("expected x-goog-api-key test-key, got %q", r.Header.Get("x-goog-api-key"))
		}
		if r.URL.Path != "/v1beta/models/gemini-2.0-flash:generateContent" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var req apiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.SystemInstruction == nil || req.SystemInstruction.Parts[0].Text != "You are a Critic Agent." {
			t.Fatalf("unexpected system instruction: %+v", req.SystemInstruction)
		}
		if len(req.Contents) != 1 || req.Contents[0].Role != "user" {
			t.Fatalf("unexpected contents: %+v", req.Contents)
		}
		if req.GenerationConfig.Temperature != 0.2 {
			t.Errorf("expected temperature 0.2, got %v", req.GenerationConfig.Temperature)
		}

		json.NewEncoder(w).Encode(apiResponse{
			Candidates: []apiCandidate{{
				Content:      apiContent{Role: "model", Parts: []apiPart{{Text: "Route B "}, {Text: "crosses a damaged bridge."}}},
				FinishReason: "STOP",
			}},
			UsageMetadata: &apiUsage{PromptTokenCount: 10, CandidatesTokenCount: 5},
		})
	}))
	defer srv.Close()

	client := NewClient("test-key", "", discardLogger(), WithBaseURL(srv.URL))
	resp, err := client.SendMessage(context.Background(), &llm.Request{
		SystemPrompt: "You are a Critic Agent.",
		Messages:     []llm.Message{llm.UserMessage("Audit this plan")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "Route B crosses a damaged bridge." {
		t.Errorf("unexpected content %q", resp.Content)
	}
	if resp.StopReason != "end_turn" {
		t.Errorf("expected end_turn, got %q", resp.StopReason)
	}
	if resp.Usage.InputTokens != 10 || resp.Usage.OutputTokens != 5 {
		t.Errorf("unexpected usage: %+v", resp.Usage)
	}
}

func TestSendMessage_AssistantRoleMapsToModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req apiRequest
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Contents) != 2 || req.Contents[1].Role != "model" {
			t.Errorf("unexpected contents: %+v", req.Contents)
		}
		if req.SystemInstruction != nil {
			t.Error("expected no system instruction")
		}
		json.NewEncoder(w).Encode(apiResponse{})
	}))
	defer srv.Close()

	client := NewClient("k", "gemini-2.0-flash", discardLogger(), WithBaseURL(srv.URL))
	resp, err := client.SendMessage(context.Background(), &llm.Request{
		Messages: []llm.Message{llm.UserMessage("a"), {Role: llm.RoleAssistant, Content: "b"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "" {
		t.Errorf("expected empty content, got %q", resp.Content)
	}
}

func TestSendMessage_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient("k", "gemini-2.0-flash", discardLogger(), WithBaseURL(srv.URL))
	if _, err := client.SendMessage(context.Background(), &llm.Request{Messages: []llm.Message{llm.UserMessage("x")}}); err == nil {
		t.Fatal("expected error")
	}
}
