package geo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedGeocoder memoizes lookups of an underlying Geocoder in a bounded LRU.
// Misses (ErrNotFound) are remembered too; transport errors are not.
type CachedGeocoder struct {
	next  Geocoder
	cache *lru.Cache[string, cachedPlace]
}

type cachedPlace struct {
	point Point
	found bool
}

var _ Geocoder = (*CachedGeocoder)(nil)

// NewCachedGeocoder wraps next with an LRU memo holding up to size places.
func NewCachedGeocoder(next Geocoder, size int) (*CachedGeocoder, error) {
	c, err := lru.New[string, cachedPlace](size)
	if err != nil {
		return nil, fmt.Errorf("creating geocode cache: %w", err)
	}
	return &CachedGeocoder{next: next, cache: c}, nil
}

// Geocode returns the memoized point for place, consulting next on a miss.
func (c *CachedGeocoder) Geocode(ctx context.Context, place string) (Point, error) {
	key := strings.TrimSpace(place)
	if hit, ok := c.cache.Get(key); ok {
		if !hit.found {
			return Point{}, ErrNotFound
		}
		return hit.point, nil
	}

	p, err := c.next.Geocode(ctx, key)
	switch {
	case err == nil:
		c.cache.Add(key, cachedPlace{point: p, found: true})
	case errors.Is(err, ErrNotFound):
		c.cache.Add(key, cachedPlace{})
	}
	return p, err
}

// Len reports the number of memoized places.
func (c *CachedGeocoder) Len() int {
	return c.cache.Len()
}
