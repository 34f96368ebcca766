package secrets

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/swarmaid/swarmaid/internal/httpx"
)

// VaultConfig configures the Vault KV v2 resolver. VAULT_ADDR, VAULT_TOKEN
// and VAULT_NAMESPACE override the matching fields.
type VaultConfig struct {
	Address       string
	Token         string
	Namespace     string
	Timeout       time.Duration // Default: 5s.
	TLSSkipVerify bool
}

// Vault resolves references from HashiCorp Vault KV v2.
//
// Reference format: "vault://secret/data/swarmaid#openai_api_key". The path
// is the full KV v2 API path; the field after "#" is required because API
// keys are single strings.
type Vault struct {
	address   string
	token     string
	namespace string
	client    *http.Client
}

// NewVault creates a Vault resolver.
func NewVault(cfg VaultConfig) (*Vault, error) {
	address := strings.TrimRight(envOr("VAULT_ADDR", cfg.Address), "/")
	if address == "" {
		return nil, errors.New("vault address is required (set secrets.vault.address or VAULT_ADDR)")
	}
	token := envOr("VAULT_TOKEN", cfg.Token)
	if token == "" {
		return nil, errors.New("vault token is required (set secrets.vault.token or VAULT_TOKEN)")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.TLSSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &Vault{
		address:   address,
		token:     token,
		namespace: envOr("VAULT_NAMESPACE", cfg.Namespace),
		client:    &http.Client{Timeout: timeout, Transport: transport},
	}, nil
}

func (v *Vault) Scheme() string { return "vault" }

type kvV2Envelope struct {
	Data struct {
		Data map[string]any `json:"data"`
	} `json:"data"`
}

func (v *Vault) Resolve(ctx context.Context, ref string) (string, error) {
	raw, ok := strings.CutPrefix(ref, "vault://")
	if !ok {
		return "", fmt.Errorf("%w: not a vault reference: %q", ErrNotFound, ref)
	}
	path, field, _ := strings.Cut(raw, "#")
	if path == "" {
		return "", fmt.Errorf("%w: empty vault path", ErrNotFound)
	}
	if field == "" {
		return "", fmt.Errorf("%w: vault reference %q has no #field", ErrNotFound, ref)
	}

	header := http.Header{"X-Vault-Token": []string{v.token}}
	if v.namespace != "" {
		header.Set("X-Vault-Namespace", v.namespace)
	}

	var env kvV2Envelope
	if err := httpx.GetJSON(ctx, v.client, v.address+"/v1/"+path, header, &env); err != nil {
		var se *httpx.StatusError
		if errors.As(err, &se) {
			switch se.StatusCode {
			case http.StatusNotFound:
				return "", fmt.Errorf("%w: vault path %q", ErrNotFound, path)
			case http.StatusForbidden:
				return "", fmt.Errorf("vault access denied for path %q", path)
			}
		}
		return "", fmt.Errorf("vault request for %q: %w", path, err)
	}
	if env.Data.Data == nil {
		return "", fmt.Errorf("%w: vault path %q returned no data", ErrNotFound, path)
	}

	val, ok := env.Data.Data[field]
	if !ok {
		return "", fmt.Errorf("%w: field %q not in vault path %q", ErrNotFound, field, path)
	}
	s, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("vault field %q in path %q is not a string", field, path)
	}
	return s, nil
}

// envOr returns the environment variable key when set and non-empty, else def.
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
