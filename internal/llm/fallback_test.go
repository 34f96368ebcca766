package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

type stubProvider struct {
	name  string
	reply string
	err   error
	calls int
}

func (s *stubProvider) SendMessage(_ context.Context, _ *Request) (*Response, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &Response{Content: s.reply}, nil
}

func (s *stubProvider) Name() string { return s.name }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFallbackProvider_FirstSucceeds(t *testing.T) {
	a := &stubProvider{name: "a", reply: "from a"}
	b := &stubProvider{name: "b", reply: "from b"}
	fb := NewFallbackProvider([]Provider{a, b}, discardLogger())

	resp, err := fb.SendMessage(context.Background(), &Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "from a" {
		t.Errorf("content = %q", resp.Content)
	}
	if b.calls != 0 {
		t.Errorf("secondary should not be called, got %d calls", b.calls)
	}
	if fb.Name() != "a+b" {
		t.Errorf("name = %q", fb.Name())
	}
}

func TestFallbackProvider_FallsThrough(t *testing.T) {
	a := &stubProvider{name: "a", err: errors.New("rate limited")}
	b := &stubProvider{name: "b", reply: "from b"}
	fb := NewFallbackProvider([]Provider{a, b}, discardLogger())

	resp, err := fb.SendMessage(context.Background(), &Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "from b" {
		t.Errorf("content = %q", resp.Content)
	}
}

func TestFallbackProvider_AllFail(t *testing.T) {
	cause := errors.New("down")
	fb := NewFallbackProvider([]Provider{
		&stubProvider{name: "a", err: errors.New("nope")},
		&stubProvider{name: "b", err: cause},
	}, discardLogger())

	_, err := fb.SendMessage(context.Background(), &Request{})
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped last error, got %v", err)
	}
}

func TestRequestTemperatureDefault(t *testing.T) {
	if got := (&Request{}).SamplingTemperature(); got != DefaultTemperature {
		t.Errorf("temperature = %v", got)
	}
	if got := (&Request{Temperature: Float(0.7)}).SamplingTemperature(); got != 0.7 {
		t.Errorf("temperature = %v", got)
	}
	if (*Response)(nil).Text() != "" {
		t.Error("nil response text should be empty")
	}
}

func TestFallbackProvider_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := &stubProvider{name: "a", err: context.Canceled}
	b := &stubProvider{name: "b", reply: "late"}
	fb := NewFallbackProvider([]Provider{a, b}, discardLogger())

	if _, err := fb.SendMessage(ctx, &Request{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if b.calls != 0 {
		t.Errorf("secondary called %d times after cancellation", b.calls)
	}
}
