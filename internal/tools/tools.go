// Package tools defines the tool interface and registry used by the agents.
// Each agent is bound to at most one tool, which is run on the scenario text
// before the model is asked for its answer.
package tools

import (
	"context"
	"sort"
	"sync"
	"unicode/utf8"

	"github.com/swarmaid/swarmaid/internal/geo"
)

// Tool is the interface all agent tools implement.
type Tool interface {
	// Name returns the tool's unique identifier (e.g. "hazard_scan").
	Name() string

	// Description returns a human-readable description.
	Description() string

	// Execute runs the tool on a free-text query, usually the scenario.
	Execute(ctx context.Context, query string) (*Result, error)
}

// Result is the outcome of a tool execution.
type Result struct {
	// Output is either a brief for the model or, when Direct is set, the
	// agent's final answer.
	Output string `json:"output"`

	// Direct skips the model call.
	Direct bool `json:"direct,omitempty"`

	// Features are map features produced as a side effect.
	Features []geo.Feature `json:"features,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`

	// Degraded marks a fallback outcome produced because an upstream was
	// unreachable. Degraded results are never cached.
	Degraded bool `json:"degraded,omitempty"`
}

// Brief returns a result whose output is handed to the model.
func Brief(output string) *Result {
	return &Result{Output: output}
}

// Answer returns a result whose output is the agent's final answer.
func Answer(output string) *Result {
	return &Result{Output: output, Direct: true}
}

// Fallback returns a degraded result. When direct is set the output is the
// agent's final answer.
func Fallback(output string, direct bool) *Result {
	return &Result{Output: output, Direct: direct, Degraded: true}
}

// MaxOutputBytes caps tool output placed into a prompt.
const MaxOutputBytes = 64 << 10

// TruncateOutput caps a string at maxBytes, appending a truncation notice if
// cut. The cut never splits a multi-byte rune.
func TruncateOutput(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	suffix := "\n... [output truncated]"
	cut := maxBytes - len(suffix)
	if maxBytes <= len(suffix) {
		cut, suffix = max(maxBytes, 0), ""
	}
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + suffix
}

// Registry holds available tools keyed by name.
// Safe for concurrent reads; writes should only happen at startup.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates a registry holding the given tools.
func NewRegistry(ts ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range ts {
		r.Register(t)
	}
	return r
}

// Register adds a tool. Panics on duplicate names.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; exists {
		panic("duplicate tool registration: " + t.Name())
	}
	r.tools[t.Name()] = t
}

// Get returns the tool by name, or nil if not found.
func (r *Registry) Get(name string) Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// List returns all registered tool names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
