package tweets

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/swarmaid/swarmaid/internal/social"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSearcher struct {
	posts []string
	err   error
	query string
	n     int
}

func (f *fakeSearcher) Search(_ context.Context, query string, n int) ([]string, error) {
	f.query, f.n = query, n
	return f.posts, f.err
}

func TestExecuteWithPosts(t *testing.T) {
	s := &fakeSearcher{posts: []string{"ER full", "need O-neg blood"}}
	res, err := NewTool(s, discardLogger()).Execute(context.Background(), " Izmir earthquake ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.query != "Izmir earthquake disaster medical injuries hospitals damage" || s.n != SampleSize {
		t.Errorf("search called with %q/%d", s.query, s.n)
	}
	want := "Summarize urgent medical needs based on these tweets:\nER full\nneed O-neg blood"
	if res.Output != want || res.Direct {
		t.Errorf("got %q", res.Output)
	}
}

func TestExecuteFallsBackToSamples(t *testing.T) {
	tests := []struct {
		name     string
		searcher social.Searcher
		reason   string
		degraded bool
	}{
		{"no searcher", nil, social.ErrNoCredentials.Error(), false},
		{"search error", &fakeSearcher{err: errors.New("rate limited")}, "rate limited", true},
		{"no results", &fakeSearcher{err: social.ErrNoResults}, social.ErrNoResults.Error(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewTool(tt.searcher, discardLogger()).Execute(context.Background(), "Izmir")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			prefix := "(Twitter API unavailable: " + tt.reason + ") Summarize urgent medical needs based on these sample tweets:\n"
			if !strings.HasPrefix(res.Output, prefix) {
				t.Errorf("got %q", res.Output)
			}
			if !strings.Contains(res.Output, "burn units") {
				t.Error("sample tweets missing from brief")
			}
			if res.Degraded != tt.degraded {
				t.Errorf("degraded = %v, want %v", res.Degraded, tt.degraded)
			}
		})
	}
}
