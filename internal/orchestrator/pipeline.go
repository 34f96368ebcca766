package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/swarmaid/swarmaid/internal/agent"
	"github.com/swarmaid/swarmaid/internal/geo"
	"github.com/swarmaid/swarmaid/internal/routing"
)

// RoutePlanner computes corridor features when the logistics stage did not.
type RoutePlanner interface {
	Plan(ctx context.Context, center geo.Point) (*routing.Plan, error)
}

// Pipeline runs stages in order and builds the map overlay.
type Pipeline struct {
	stages      []Stage
	geocoder    geo.Geocoder
	planner     RoutePlanner
	triageLayer bool
	metrics     *PipelineMetrics
	tracer      trace.Tracer
	logger      *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMetrics records run and stage metrics.
func WithMetrics(m *PipelineMetrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithTracer emits a span per run and per stage.
func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) {
		if t != nil {
			p.tracer = t
		}
	}
}

// WithTriageLayer toggles the triage cluster layer of the map.
func WithTriageLayer(enabled bool) Option {
	return func(p *Pipeline) { p.triageLayer = enabled }
}

// WithLogger sets the pipeline logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a pipeline over the given stages. planner may be nil, in which
// case the route layer only carries what the logistics stage produced.
func New(stages []Stage, geocoder geo.Geocoder, planner RoutePlanner, opts ...Option) *Pipeline {
	p := &Pipeline{
		stages:      stages,
		geocoder:    geocoder,
		planner:     planner,
		triageLayer: true,
		tracer:      noop.NewTracerProvider().Tracer("swarmaid/orchestrator"),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Stages returns the configured stage names in run order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name
	}
	return names
}

type runIDKey struct{}

// ContextWithRunID returns a context carrying a caller-chosen run ID, such as
// an HTTP request ID.
func ContextWithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunIDFromContext extracts the run ID from ctx, or "" if not set.
func RunIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(runIDKey{}).(string); ok {
		return v
	}
	return ""
}

// Run executes every stage and assembles the map. It always returns a
// result: stage failures are written into the log and passed downstream
// as that stage's output.
func (p *Pipeline) Run(ctx context.Context, scenario string, observe Observer) *Result {
	runID := RunIDFromContext(ctx)
	if runID == "" {
		runID = uuid.NewString()
		ctx = ContextWithRunID(ctx, runID)
	}
	emit := func(e Event) {
		if observe == nil {
			return
		}
		e.RunID = runID
		e.Time = time.Now().UTC()
		observe(e)
	}

	ctx, span := p.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("swarmaid.run_id", runID),
		attribute.String("swarmaid.scenario", scenario),
	))
	defer span.End()

	start := time.Now()
	p.metrics.runStarted()
	p.logger.InfoContext(ctx, "simulation started",
		slog.String("run_id", runID),
		slog.String("scenario", scenario),
	)

	state := &State{Scenario: scenario}
	for _, stage := range p.stages {
		p.runStage(ctx, stage, state, emit)
	}

	fc := p.BuildMap(ctx, state)
	emit(Event{Type: EventMapDone, Features: len(fc.Features), Triage: state.TriageSummary})

	status := "ok"
	if len(state.Errors) > 0 {
		status = "degraded"
		span.SetStatus(codes.Error, fmt.Sprintf("%d stage(s) failed", len(state.Errors)))
	}
	elapsed := time.Since(start)
	p.metrics.runFinished(status, elapsed.Seconds())
	p.logger.InfoContext(ctx, "simulation finished",
		slog.String("run_id", runID),
		slog.String("status", status),
		slog.Int("features", len(fc.Features)),
		slog.Duration("duration", elapsed),
	)
	emit(Event{Type: EventDone, Elapsed: float64(elapsed.Milliseconds())})

	return &Result{
		RunID:    runID,
		Scenario: scenario,
		Logs:     state.Logs,
		GeoJSON:  fc,
	}
}

func (p *Pipeline) runStage(ctx context.Context, stage Stage, state *State, emit func(Event)) {
	ctx, span := p.tracer.Start(ctx, "pipeline.stage", trace.WithAttributes(
		attribute.String("swarmaid.stage", stage.Name),
	))
	defer span.End()

	emit(Event{Type: EventStageStart, Stage: stage.Name})
	start := time.Now()

	timeout := stage.Timeout
	if timeout <= 0 {
		timeout = DefaultStageTimeout
	}
	sctx, cancel := context.WithTimeout(ctx, timeout)
	reply, err := stage.Agent.Run(sctx, agent.Task{Scenario: state.Scenario, Prompt: stage.Prompt(state)})
	cancel()
	elapsed := time.Since(start)

	if err != nil {
		var se *StageError
		if !errors.As(err, &se) {
			se = &StageError{Agent: stage.Name, Err: err}
		}
		state.Errors = append(state.Errors, se)
		output := "⚠️ Error: " + se.Err.Error()
		state.log(stage.Name, output)
		if stage.Store != nil {
			stage.Store(state, output, nil)
		}

		span.RecordError(se)
		span.SetStatus(codes.Error, se.Error())
		p.metrics.recordStage(stage.Name, "error", elapsed.Seconds())
		p.logger.WarnContext(ctx, "stage failed",
			slog.String("stage", stage.Name),
			slog.String("error", se.Err.Error()),
			slog.Duration("duration", elapsed),
		)
		emit(Event{Type: EventStageError, Stage: stage.Name, Error: output, Elapsed: float64(elapsed.Milliseconds())})
		return
	}

	state.log(stage.Name, reply.Text)
	if stage.Store != nil {
		stage.Store(state, reply.Text, reply)
	}

	status := "ok"
	if reply.Direct {
		status = "direct"
	}
	p.metrics.recordStage(stage.Name, status, elapsed.Seconds())
	p.logger.DebugContext(ctx, "stage completed",
		slog.String("stage", stage.Name),
		slog.String("status", status),
		slog.Duration("duration", elapsed),
	)
	emit(Event{Type: EventStageDone, Stage: stage.Name, Response: reply.Text, Elapsed: float64(elapsed.Milliseconds())})
}

// ErrNoStage is returned by RunStage for an unknown stage name.
var ErrNoStage = errors.New("no such stage")

// RunStage runs a single named stage on a fresh state and returns its text.
// Unlike Run, failures are returned to the caller.
func (p *Pipeline) RunStage(ctx context.Context, name, scenario string) (string, error) {
	for _, stage := range p.stages {
		if stage.Name != name {
			continue
		}
		timeout := stage.Timeout
		if timeout <= 0 {
			timeout = DefaultStageTimeout
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		state := &State{Scenario: scenario}
		reply, err := stage.Agent.Run(ctx, agent.Task{Scenario: scenario, Prompt: stage.Prompt(state)})
		if err != nil {
			return "", err
		}
		return reply.Text, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNoStage, name)
}
