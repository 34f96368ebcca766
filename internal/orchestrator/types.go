// Package orchestrator runs the disaster-response agents in a fixed sequence
// and assembles the map overlay for a scenario.
package orchestrator

import (
	"time"

	"github.com/swarmaid/swarmaid/internal/agent"
	"github.com/swarmaid/swarmaid/internal/geo"
)

// StageError is the typed failure of a single stage. It is rendered as a
// string only when written into the run log.
type StageError = agent.StageError

// Log is one entry of the run transcript.
type Log struct {
	Agent    string `json:"agent"`
	Response string `json:"response"`
}

// Result is the outcome of a simulation run.
type Result struct {
	RunID    string                `json:"-"`
	Scenario string                `json:"scenario"`
	Logs     []Log                 `json:"logs"`
	GeoJSON  geo.FeatureCollection `json:"geojson"`
}

// State is what stages read and write as the run progresses.
type State struct {
	Scenario string
	Analysis string
	Triage   string
	Routes   string
	Critique string

	// RouteFeatures are the corridor features produced by the logistics
	// stage, if routing succeeded.
	RouteFeatures []geo.Feature
	// RouteSummary is the structured corridor summary, or the fallback
	// guidance when no route could be computed.
	RouteSummary string
	routeTried   bool

	// TriageSummary describes the triage clusters placed on the map, when
	// the triage layer is on.
	TriageSummary string

	Errors []error
	Logs   []Log
}

func (s *State) log(agentName, response string) {
	s.Logs = append(s.Logs, Log{Agent: agentName, Response: response})
}

// EventType names a pipeline milestone.
type EventType string

const (
	EventStageStart EventType = "stage_start"
	EventStageDone  EventType = "stage_done"
	EventStageError EventType = "stage_error"
	EventMapDone    EventType = "map_done"
	EventDone       EventType = "done"
)

// Event is emitted to an Observer as a run progresses.
type Event struct {
	Type     EventType `json:"type"`
	RunID    string    `json:"run_id"`
	Stage    string    `json:"stage,omitempty"`
	Response string    `json:"response,omitempty"`
	Error    string    `json:"error,omitempty"`
	Features int       `json:"features,omitempty"`
	Triage   string    `json:"triage,omitempty"`
	Elapsed  float64   `json:"elapsed_ms,omitempty"`
	Time     time.Time `json:"time"`
}

// Observer receives run events. It is called synchronously from the run
// goroutine and must not block for long.
type Observer func(Event)
