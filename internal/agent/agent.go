// Package agent binds a language model to a single tool. An agent runs its
// tool on the scenario, hands the tool's brief to the model alongside the
// stage prompt, and returns the model's text.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/swarmaid/swarmaid/internal/llm"
	"github.com/swarmaid/swarmaid/internal/tools"
)

// Task is one unit of work for an agent.
type Task struct {
	// Scenario is the free-text incident description the tool runs on.
	Scenario string
	// Prompt is the stage instruction, including upstream agent output.
	Prompt string
}

// Reply is an agent's answer.
type Reply struct {
	Agent    string
	Text     string
	Direct   bool          // the tool answered; the model was not called
	Tool     *tools.Result // nil when the agent has no tool or the tool failed
	ToolErr  error
	Usage    llm.Usage
	Duration time.Duration
}

// StageError reports an agent whose model call failed.
type StageError struct {
	Agent string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Agent, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Agent is a named pairing of a model with at most one tool.
type Agent struct {
	name         string
	role         string
	goal         string
	backstory    string
	systemPrompt string
	provider     llm.Provider
	tool         tools.Tool
	cache        *ToolCache
	temperature  *float64
	maxTokens    int
	logger       *slog.Logger
}

// Option configures an Agent.
type Option func(*Agent)

// WithTool binds the agent's tool.
func WithTool(t tools.Tool) Option {
	return func(a *Agent) { a.tool = t }
}

// WithProfile sets the persona used to build the system prompt.
func WithProfile(role, goal, backstory string) Option {
	return func(a *Agent) {
		a.role, a.goal, a.backstory = role, goal, backstory
	}
}

// WithSystemPrompt replaces the persona-derived system prompt.
func WithSystemPrompt(p string) Option {
	return func(a *Agent) { a.systemPrompt = p }
}

// WithToolCache shares a tool result cache with the agent.
func WithToolCache(c *ToolCache) Option {
	return func(a *Agent) { a.cache = c }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(a *Agent) { a.temperature = llm.Float(t) }
}

// WithMaxTokens caps the reply length.
func WithMaxTokens(n int) Option {
	return func(a *Agent) { a.maxTokens = n }
}

// WithLogger sets the agent's logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Agent) { a.logger = l }
}

// New creates an agent named name that answers through provider.
func New(name string, provider llm.Provider, opts ...Option) *Agent {
	a := &Agent{
		name:     name,
		provider: provider,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Name returns the agent's display name.
func (a *Agent) Name() string { return a.name }

// Tool returns the bound tool, or nil.
func (a *Agent) Tool() tools.Tool { return a.tool }

// Provider returns the model backend.
func (a *Agent) Provider() llm.Provider { return a.provider }

// SystemPrompt returns the prompt the model is primed with.
func (a *Agent) SystemPrompt() string {
	if a.systemPrompt != "" {
		return a.systemPrompt
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You are the %s", a.name)
	if a.role != "" {
		fmt.Fprintf(&b, ", a %s", a.role)
	}
	b.WriteString(" on a disaster-response team.")
	if a.goal != "" {
		fmt.Fprintf(&b, " Your goal: %s.", a.goal)
	}
	if a.backstory != "" {
		fmt.Fprintf(&b, " Background: %s.", a.backstory)
	}
	b.WriteString(" Answer concisely and practically; ground your answer in the tool findings when they are provided.")
	return b.String()
}

// Run executes the task. Tool failures are folded into the prompt; a model
// failure is returned as a *StageError.
func (a *Agent) Run(ctx context.Context, task Task) (*Reply, error) {
	start := time.Now()
	reply := &Reply{Agent: a.name}

	var toolSection string
	if a.tool != nil {
		res, err := a.runTool(ctx, task.Scenario)
		switch {
		case err != nil:
			reply.ToolErr = err
			toolSection = fmt.Sprintf("Tool error: %v", err)
			a.logger.WarnContext(ctx, "tool failed",
				slog.String("agent", a.name),
				slog.String("tool", a.tool.Name()),
				slog.String("error", err.Error()),
			)
		case res.Direct:
			reply.Tool = res
			reply.Text = res.Output
			reply.Direct = true
			reply.Duration = time.Since(start)
			return reply, nil
		default:
			reply.Tool = res
			toolSection = res.Output
		}
	}

	req := &llm.Request{
		SystemPrompt: a.SystemPrompt(),
		Messages:     []llm.Message{llm.UserMessage(a.userMessage(task.Prompt, toolSection))},
		MaxTokens:    a.maxTokens,
		Temperature:  a.temperature,
	}
	resp, err := a.provider.SendMessage(ctx, req)
	if err != nil {
		return nil, &StageError{Agent: a.name, Err: err}
	}

	reply.Text = resp.Text()
	reply.Usage = resp.Usage
	reply.Duration = time.Since(start)
	a.logger.DebugContext(ctx, "agent replied",
		slog.String("agent", a.name),
		slog.String("provider", a.provider.Name()),
		slog.Int("output_tokens", resp.Usage.OutputTokens),
		slog.Duration("duration", reply.Duration),
	)
	return reply, nil
}

func (a *Agent) userMessage(prompt, toolSection string) string {
	if a.tool == nil {
		return prompt
	}
	return fmt.Sprintf("%s\n\n## Tool: %s\n%s", prompt, a.tool.Name(),
		tools.TruncateOutput(toolSection, tools.MaxOutputBytes))
}

func (a *Agent) runTool(ctx context.Context, query string) (*tools.Result, error) {
	name := a.tool.Name()
	if a.cache != nil {
		if res, ok := a.cache.Get(name, query); ok {
			a.logger.DebugContext(ctx, "tool cache hit", slog.String("tool", name))
			return res, nil
		}
	}
	res, err := a.tool.Execute(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if res == nil {
		return nil, fmt.Errorf("%s: empty result", name)
	}
	// A cancelled or timed-out run may have turned a transport failure into a
	// fallback answer; only complete upstream outcomes are cached.
	if a.cache != nil && ctx.Err() == nil && !res.Degraded {
		a.cache.Set(name, query, res)
	}
	return res, nil
}
