package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAddValidates(t *testing.T) {
	s := New(nil, discardLogger())
	noop := func(context.Context) error { return nil }

	tests := []struct {
		name string
		job  Job
		ok   bool
	}{
		{"five field", Job{Name: "a", Spec: "*/10 * * * *", Run: noop}, true},
		{"descriptor", Job{Name: "b", Spec: "@every 15m", Run: noop}, true},
		{"bad spec", Job{Name: "c", Spec: "every tuesday", Run: noop}, false},
		{"no run", Job{Name: "d", Spec: "@hourly"}, false},
		{"duplicate", Job{Name: "a", Spec: "@hourly", Run: noop}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Add(tt.job)
			if (err == nil) != tt.ok {
				t.Errorf("Add() error = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestRunNowRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	s := New(m, discardLogger())

	var calls atomic.Int32
	fail := errors.New("feed down")
	if err := s.Add(Job{Name: "hazard-refresh", Spec: "@every 1h", Run: func(context.Context) error {
		if calls.Add(1) == 2 {
			return fail
		}
		return nil
	}}); err != nil {
		t.Fatal(err)
	}

	if err := s.RunNow(context.Background(), "hazard-refresh"); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := s.RunNow(context.Background(), "hazard-refresh"); !errors.Is(err, fail) {
		t.Fatalf("second run: %v", err)
	}
	if err := s.RunNow(context.Background(), "missing"); !errors.Is(err, ErrUnknownJob) {
		t.Errorf("expected ErrUnknownJob, got %v", err)
	}

	if v := testutil.ToFloat64(m.JobsFired.WithLabelValues("hazard-refresh")); v != 2 {
		t.Errorf("fired = %v", v)
	}
	if v := testutil.ToFloat64(m.JobsFailed.WithLabelValues("hazard-refresh")); v != 1 {
		t.Errorf("failed = %v", v)
	}
}

func TestJobTimeout(t *testing.T) {
	s := New(nil, discardLogger())
	_ = s.Add(Job{Name: "slow", Spec: "@hourly", Timeout: 10 * time.Millisecond, Run: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})
	if err := s.RunNow(context.Background(), "slow"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestStartStop(t *testing.T) {
	s := New(nil, discardLogger())
	stop := s.Start(context.Background())
	stop()
	stop()
}
