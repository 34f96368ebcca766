// Package gateway defines the entry points that expose the simulation
// pipeline and runs them side by side.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// DefaultGracePeriod bounds graceful shutdown in Serve.
const DefaultGracePeriod = 10 * time.Second

// ErrNoGateways is returned by Serve when there is nothing to run.
var ErrNoGateways = errors.New("no gateways enabled in config")

// Gateway is an entry point such as the HTTP API or the MCP server.
type Gateway interface {
	// Start blocks until the gateway exits or ctx is canceled. It returns
	// an error only on failure.
	Start(ctx context.Context) error

	// Stop shuts down gracefully within the deadline carried by ctx.
	Stop(ctx context.Context) error
}

// Serve starts every gateway, waits for ctx to end or the first gateway to
// return, then stops them all in reverse order within grace. The error of a
// gateway that exited on its own is returned.
func Serve(ctx context.Context, gateways []Gateway, grace time.Duration, logger *slog.Logger) error {
	if len(gateways) == 0 {
		return ErrNoGateways
	}
	if grace <= 0 {
		grace = DefaultGracePeriod
	}

	errs := make(chan error, len(gateways))
	for _, gw := range gateways {
		go func(g Gateway) {
			errs <- g.Start(ctx)
		}(gw)
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-errs:
		if runErr != nil {
			logger.Error("gateway exited with error", slog.String("error", runErr.Error()))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	for i := len(gateways) - 1; i >= 0; i-- {
		if err := gateways[i].Stop(shutdownCtx); err != nil {
			logger.Error("stopping gateway", slog.String("error", err.Error()))
		}
	}
	return runErr
}
