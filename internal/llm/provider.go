// Package llm defines the provider-agnostic interface for LLM interactions.
package llm

import (
	"context"
	"strings"
)

// DefaultTemperature is the sampling temperature used when a request leaves it unset.
const DefaultTemperature = 0.2

// Provider is the abstraction over any hosted text-generation backend.
type Provider interface {
	// SendMessage sends a conversation to the LLM and returns its response.
	SendMessage(ctx context.Context, req *Request) (*Response, error)
	// Name returns the provider identifier (e.g. "openai").
	Name() string
}

// Request represents a full conversation sent to the LLM.
type Request struct {
	SystemPrompt string
	Messages     []Message
	MaxTokens    int
	Temperature  *float64 // nil = DefaultTemperature
}

// SamplingTemperature returns the request temperature or DefaultTemperature.
func (r *Request) SamplingTemperature() float64 {
	if r.Temperature != nil {
		return *r.Temperature
	}
	return DefaultTemperature
}

// Message is a single text turn in the conversation.
type Message struct {
	Role    Role
	Content string
}

// UserMessage builds a single user turn.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// Role identifies who sent a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Response is what the LLM returns.
type Response struct {
	Content    string
	Usage      Usage
	StopReason string // "end_turn", "max_tokens"
}

// Text returns the trimmed response content.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(r.Content)
}

// Usage tracks token consumption.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Float returns a pointer to v, for optional request fields.
func Float(v float64) *float64 { return &v }
