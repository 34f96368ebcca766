package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Env resolves "env://VARIABLE" references.
type Env struct{}

// NewEnv creates an environment variable resolver.
func NewEnv() *Env { return &Env{} }

func (Env) Scheme() string { return "env" }

func (Env) Resolve(_ context.Context, ref string) (string, error) {
	name, ok := strings.CutPrefix(ref, "env://")
	if !ok {
		return "", fmt.Errorf("%w: not an env reference: %q", ErrNotFound, ref)
	}
	if name == "" {
		return "", fmt.Errorf("%w: empty environment variable name", ErrNotFound)
	}
	v := os.Getenv(name)
	if v == "" {
		return "", fmt.Errorf("%w: environment variable %q is not set", ErrNotFound, name)
	}
	return v, nil
}
