package hazard

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Source supplies open hazard events.
type Source interface {
	OpenEvents(ctx context.Context) ([]Event, error)
}

// Feed keeps the last successful EONET snapshot. Readers get the snapshot
// while it is younger than maxAge; otherwise the feed refetches, and falls
// back to the stale snapshot if the refetch fails.
type Feed struct {
	src    Source
	maxAge time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu        sync.RWMutex
	events    []Event
	fetchedAt time.Time
}

var _ Source = (*Feed)(nil)

// NewFeed wraps src. A zero maxAge refetches on every read.
func NewFeed(src Source, maxAge time.Duration, logger *slog.Logger) *Feed {
	return &Feed{src: src, maxAge: maxAge, logger: logger, now: time.Now}
}

// OpenEvents returns the current snapshot, refreshing it when stale.
func (f *Feed) OpenEvents(ctx context.Context) ([]Event, error) {
	if events, ok := f.fresh(); ok {
		return events, nil
	}
	if err := f.Refresh(ctx); err != nil {
		f.mu.RLock()
		stale, have := f.events, !f.fetchedAt.IsZero()
		f.mu.RUnlock()
		if have {
			f.logger.WarnContext(ctx, "hazard feed refresh failed, serving stale snapshot",
				slog.String("error", err.Error()),
			)
			return stale, nil
		}
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.events, nil
}

// Refresh fetches a new snapshot from the source.
func (f *Feed) Refresh(ctx context.Context) error {
	events, err := f.src.OpenEvents(ctx)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.events = events
	f.fetchedAt = f.now()
	f.mu.Unlock()
	return nil
}

// FetchedAt returns when the current snapshot was taken. Zero means never.
func (f *Feed) FetchedAt() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.fetchedAt
}

func (f *Feed) fresh() ([]Event, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.fetchedAt.IsZero() {
		return nil, false
	}
	if f.maxAge > 0 && f.now().Sub(f.fetchedAt) < f.maxAge {
		return f.events, true
	}
	return nil, false
}
