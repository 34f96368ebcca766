package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/swarmaid/swarmaid/internal/agent"
	"github.com/swarmaid/swarmaid/internal/geo"
	"github.com/swarmaid/swarmaid/internal/tools"
)

// Runner is anything that can answer a stage task; *agent.Agent satisfies it.
type Runner interface {
	Name() string
	Run(ctx context.Context, task agent.Task) (*agent.Reply, error)
}

var _ Runner = (*agent.Agent)(nil)

// Stage is one step of the pipeline.
type Stage struct {
	// Name is the log label.
	Name    string
	Agent   Runner
	Prompt  func(*State) string
	Timeout time.Duration
	// Store records the stage output (the reply text, or the rendered error)
	// into the state. reply is nil when the stage failed.
	Store func(s *State, output string, reply *agent.Reply)
}

// DefaultStageTimeout bounds a stage when none is configured.
const DefaultStageTimeout = 120 * time.Second

// DefaultStages wires the four agents into the standard sequence.
func DefaultStages(analyst, medic, logistics, critic Runner, timeout time.Duration) []Stage {
	return []Stage{
		{
			Name:    agent.DataAnalyst,
			Agent:   analyst,
			Timeout: timeout,
			Prompt:  func(s *State) string { return AnalysisPrompt(s.Scenario) },
			Store:   func(s *State, out string, _ *agent.Reply) { s.Analysis = out },
		},
		{
			Name:    agent.MedicCoordinator,
			Agent:   medic,
			Timeout: timeout,
			Prompt:  func(s *State) string { return "Prioritize medical needs based on " + s.Analysis },
			Store:   func(s *State, out string, _ *agent.Reply) { s.Triage = out },
		},
		{
			Name:    agent.LogisticsManager,
			Agent:   logistics,
			Timeout: timeout,
			Prompt: func(s *State) string {
				return fmt.Sprintf("Plan safe supply routes based on %s and %s", s.Analysis, s.Triage)
			},
			Store: storeRoutes,
		},
		{
			Name:    agent.Critic,
			Agent:   critic,
			Timeout: timeout,
			Prompt: func(s *State) string {
				return fmt.Sprintf("Audit this plan: Analysis=%s, Triage=%s, Routes=%s", s.Analysis, s.Triage, s.Routes)
			},
			Store: func(s *State, out string, _ *agent.Reply) { s.Critique = out },
		},
	}
}

// AnalysisPrompt is the Data Analyst's instruction for a scenario.
func AnalysisPrompt(scenario string) string {
	return "Analyze damage zones for: " + scenario
}

// storeRoutes keeps the plan text and, when the route planner ran, the
// corridor features. It also logs the corridor summary, or the planner's
// fallback answer, under "Logistics Manager (GeoJSON)".
func storeRoutes(s *State, out string, reply *agent.Reply) {
	s.Routes = out
	if reply == nil || reply.Tool == nil {
		return
	}
	s.routeTried = true
	if reply.Direct {
		s.RouteSummary = reply.Tool.Output
	} else {
		s.RouteFeatures = reply.Tool.Features
		s.RouteSummary = routeSummary(reply.Tool)
	}
	s.log(agent.LogisticsManager+" (GeoJSON)", s.RouteSummary)
}

func routeSummary(res *tools.Result) string {
	if len(res.Features) == 0 {
		return res.Output
	}
	line := res.Features[0]
	summary := fmt.Sprintf("%s: ~%v km, ~%v min", line.Name(), line.Properties["distance_km"], line.Properties["duration_min"])
	if len(res.Features) >= 3 {
		summary += fmt.Sprintf(" from %s %s to %s %s",
			res.Features[1].Name(), coordText(res.Features[1]),
			res.Features[2].Name(), coordText(res.Features[2]))
	}
	return summary + "."
}

func coordText(f geo.Feature) string {
	return string(f.Geometry.Coordinates)
}
