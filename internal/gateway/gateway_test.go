package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeGateway blocks in Start until ctx ends or exit is closed.
type fakeGateway struct {
	name    string
	exitErr error
	exit    chan struct{}

	mu      *sync.Mutex
	stopped *[]string
}

func (f *fakeGateway) Start(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return nil
	case <-f.exit:
		return f.exitErr
	}
}

func (f *fakeGateway) Stop(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	*f.stopped = append(*f.stopped, f.name)
	return nil
}

func TestServeStopsInReverseOrderOnCancel(t *testing.T) {
	var mu sync.Mutex
	var stopped []string
	gws := []Gateway{
		&fakeGateway{name: "http", exit: make(chan struct{}), mu: &mu, stopped: &stopped},
		&fakeGateway{name: "mcp", exit: make(chan struct{}), mu: &mu, stopped: &stopped},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, gws, time.Second, discardLogger()) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	if len(stopped) != 2 || stopped[0] != "mcp" || stopped[1] != "http" {
		t.Errorf("stop order = %v", stopped)
	}
}

func TestServeReturnsGatewayError(t *testing.T) {
	var mu sync.Mutex
	var stopped []string
	boom := errors.New("bind: address already in use")
	failing := &fakeGateway{name: "http", exitErr: boom, exit: make(chan struct{}), mu: &mu, stopped: &stopped}
	close(failing.exit)

	err := Serve(context.Background(), []Gateway{failing}, time.Second, discardLogger())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if len(stopped) != 1 {
		t.Errorf("gateway should still be stopped, got %v", stopped)
	}
}

func TestServeRequiresGateways(t *testing.T) {
	if err := Serve(context.Background(), nil, 0, discardLogger()); !errors.Is(err, ErrNoGateways) {
		t.Errorf("err = %v, want ErrNoGateways", err)
	}
}
