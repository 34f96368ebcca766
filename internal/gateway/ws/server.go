// Package ws implements the WebSocket endpoint that streams a simulation to
// the map frontend. The client sends {"type":"simulate","scenario":"..."};
// the server answers with one "event" message per pipeline event and a
// final "result" message holding the same body GET /simulate returns.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/swarmaid/swarmaid/internal/orchestrator"
	"github.com/swarmaid/swarmaid/internal/protocol"
)

// Subprotocol is offered during the upgrade. Clients may omit it.
const Subprotocol = "swarmaid-v1"

const (
	defaultPingInterval = 30 * time.Second
	writeTimeout        = 10 * time.Second
)

// Simulator runs the agent pipeline with an event observer.
type Simulator interface {
	Run(ctx context.Context, scenario string, observe orchestrator.Observer) *orchestrator.Result
}

// Options configures the server.
type Options struct {
	// AllowedOrigins are full origins such as "http://localhost:3000".
	// Empty means same-origin only.
	AllowedOrigins []string
	PingInterval   time.Duration
}

// Server upgrades HTTP requests and serves simulation streams.
type Server struct {
	sim     Simulator
	opts    Options
	origins []string
	runs    *RunTracker
	logger  *slog.Logger
}

// NewServer creates a WebSocket server driving sim.
func NewServer(sim Simulator, opts Options, logger *slog.Logger) *Server {
	if opts.PingInterval <= 0 {
		opts.PingInterval = defaultPingInterval
	}
	return &Server{
		sim:     sim,
		opts:    opts,
		origins: originPatterns(opts.AllowedOrigins),
		runs:    NewRunTracker(logger),
		logger:  logger,
	}
}

// Runs exposes the run tracker.
func (s *Server) Runs() *RunTracker {
	return s.runs
}

// Handler returns an http.Handler that upgrades connections to WebSocket.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.handleUpgrade)
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{Subprotocol},
		OriginPatterns: s.origins,
	})
	if err != nil {
		s.logger.Warn("websocket accept failed", slog.String("error", err.Error()))
		return
	}
	s.handleConnection(r.Context(), conn)
}

func (s *Server) handleConnection(ctx context.Context, conn *websocket.Conn) {
	connID := uuid.NewString()
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		s.runs.Cancel(connID)
		cancel()
		conn.Close(websocket.StatusNormalClosure, "connection closed")
	}()

	s.logger.Info("websocket client connected", slog.String("conn_id", connID))
	go s.pingLoop(ctx, conn, connID)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure || errors.Is(err, context.Canceled) {
				s.logger.Info("websocket client disconnected", slog.String("conn_id", connID))
			} else {
				s.logger.Warn("websocket connection error",
					slog.String("conn_id", connID),
					slog.String("error", err.Error()),
				)
			}
			return
		}

		var msg protocol.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendError(ctx, conn, "", protocol.CodeBadRequest, "invalid JSON message")
			continue
		}
		s.handleMessage(ctx, conn, connID, msg)
	}
}

func (s *Server) handleMessage(ctx context.Context, conn *websocket.Conn, connID string, msg protocol.ClientMessage) {
	switch msg.Type {
	case protocol.MsgSimulate:
		scenario := strings.TrimSpace(msg.Scenario)
		if scenario == "" {
			s.sendError(ctx, conn, "", protocol.CodeBadRequest, "scenario is required")
			return
		}
		s.startRun(ctx, conn, connID, scenario, msg.RequestID)

	case protocol.MsgCancel:
		if !s.runs.Cancel(connID) {
			s.sendError(ctx, conn, "", protocol.CodeBadRequest, "no run in progress")
		}

	default:
		s.sendError(ctx, conn, "", protocol.CodeBadRequest, "unknown message type "+string(msg.Type))
	}
}

// startRun launches the pipeline on its own goroutine so the read loop can
// still receive cancel and close frames.
func (s *Server) startRun(ctx context.Context, conn *websocket.Conn, connID, scenario, requestID string) {
	runID := requestID
	if runID == "" {
		runID = uuid.NewString()
	}
	runCtx, cancel := context.WithCancel(orchestrator.ContextWithRunID(ctx, runID))
	if !s.runs.Start(connID, runID, scenario, cancel) {
		cancel()
		s.sendError(ctx, conn, runID, protocol.CodeBusy, "run already in progress")
		return
	}

	s.send(ctx, conn, protocol.MsgAccepted, runID, protocol.AcceptedPayload{Scenario: scenario})

	go func() {
		defer cancel()
		res := s.sim.Run(runCtx, scenario, func(e orchestrator.Event) {
			s.send(ctx, conn, protocol.MsgEvent, runID, e)
		})

		if errors.Is(runCtx.Err(), context.Canceled) {
			s.runs.Finish(connID, RunCanceled)
			s.sendError(ctx, conn, runID, protocol.CodeCanceled, "run canceled")
			return
		}
		s.runs.Finish(connID, RunCompleted)
		s.send(ctx, conn, protocol.MsgResult, runID, res)
	}()
}

func (s *Server) pingLoop(ctx context.Context, conn *websocket.Conn, connID string) {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				s.logger.Debug("websocket ping failed",
					slog.String("conn_id", connID),
					slog.String("error", err.Error()),
				)
				return
			}
		}
	}
}

func (s *Server) sendError(ctx context.Context, conn *websocket.Conn, runID, code, message string) {
	s.send(ctx, conn, protocol.MsgError, runID, protocol.ErrorPayload{Code: code, Message: message})
}

func (s *Server) send(ctx context.Context, conn *websocket.Conn, t protocol.MessageType, runID string, payload any) {
	env, err := protocol.NewEnvelope(t, runID, payload)
	if err != nil {
		s.logger.Error("encoding websocket message", slog.String("error", err.Error()))
		return
	}
	if err := s.writeEnvelope(ctx, conn, env); err != nil {
		s.logger.Debug("websocket write failed",
			slog.String("type", string(t)),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Server) writeEnvelope(ctx context.Context, conn *websocket.Conn, env *protocol.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}

// originPatterns converts allowed origins into the host patterns
// websocket.AcceptOptions expects.
func originPatterns(origins []string) []string {
	var out []string
	for _, o := range origins {
		if o == "*" {
			return []string{"*"}
		}
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			out = append(out, o)
			continue
		}
		out = append(out, u.Host)
	}
	return out
}
