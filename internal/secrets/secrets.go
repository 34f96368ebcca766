// Package secrets resolves credential references in config values.
//
// A config value such as an API key may hold either a literal or a
// reference of the form "<scheme>://<locator>". References are resolved once
// at startup, before any client is built.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a reference cannot be resolved.
var ErrNotFound = errors.New("secret not found")

// Resolver turns a reference into its secret value.
// Implementations must be safe for concurrent use.
type Resolver interface {
	// Scheme is the reference prefix handled, without "://" (e.g. "env").
	Scheme() string
	// Resolve returns the secret for ref, which includes the scheme.
	Resolve(ctx context.Context, ref string) (string, error)
}

// Chain dispatches each reference to the resolver registered for its scheme.
type Chain struct {
	resolvers map[string]Resolver
}

// NewChain creates a chain. Nil resolvers are ignored; a later resolver for
// the same scheme replaces an earlier one.
func NewChain(rs ...Resolver) *Chain {
	c := &Chain{resolvers: make(map[string]Resolver, len(rs))}
	for _, r := range rs {
		if r != nil {
			c.resolvers[r.Scheme()] = r
		}
	}
	return c
}

// Schemes returns the schemes the chain can resolve.
func (c *Chain) Schemes() []string {
	out := make([]string, 0, len(c.resolvers))
	for s := range c.resolvers {
		out = append(out, s)
	}
	return out
}

// IsReference reports whether v looks like a credential reference for a
// scheme the chain knows.
func (c *Chain) IsReference(v string) bool {
	scheme, _, ok := strings.Cut(v, "://")
	if !ok {
		return false
	}
	_, known := c.resolvers[scheme]
	return known
}

// Resolve returns the secret for ref. Values that are not references are
// returned unchanged.
func (c *Chain) Resolve(ctx context.Context, ref string) (string, error) {
	if !c.IsReference(ref) {
		return ref, nil
	}
	scheme, _, _ := strings.Cut(ref, "://")
	return c.resolvers[scheme].Resolve(ctx, ref)
}

// ResolveFields resolves every referenced field in place. Fields are keyed by
// a label used in error messages. All fields are attempted; the returned
// error joins every failure.
func (c *Chain) ResolveFields(ctx context.Context, fields map[string]*string) error {
	var errs []error
	for label, ptr := range fields {
		if ptr == nil || *ptr == "" || !c.IsReference(*ptr) {
			continue
		}
		v, err := c.Resolve(ctx, *ptr)
		if err != nil {
			errs = append(errs, fmt.Errorf("resolving %s: %w", label, err))
			continue
		}
		*ptr = v
	}
	return errors.Join(errs...)
}
