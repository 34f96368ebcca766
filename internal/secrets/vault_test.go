package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// kvV2Response builds a Vault KV v2 JSON response body.
func kvV2Response(data map[string]any) []byte {
	resp := map[string]any{
		"data": map[string]any{
			"data":     data,
			"metadata": map[string]any{"version": 1},
		},
	}
	b, _ := json.Marshal(resp)
	return b
}

func newTestVaultServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

// clearVaultEnv prevents host environment from interfering with tests.
func clearVaultEnv(t *testing.T) {
	t.Helper()
	t.Setenv("VAULT_ADDR", "")
	t.Setenv("VAULT_TOKEN", "")
	t.Setenv("VAULT_NAMESPACE", "")
}

func keysServer(t *testing.T) *httptest.Server {
	return newTestVaultServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Vault-Token") != "test-token" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		switch r.URL.Path {
		case "/v1/secret/data/swarmaid":
			w.Write(kvV2Response(map[string]any{
				"openai_api_key": "sk-test",
				"retries":        3,
			}))
		case "/v1/secret/data/empty":
			w.Write([]byte(`{"data":{}}`))
		default:
			http.NotFound(w, r)
		}
	})
}

func TestVaultResolve(t *testing.T) {
	clearVaultEnv(t)
	srv := keysServer(t)

	v, err := NewVault(VaultConfig{Address: srv.URL + "/", Token: "test-token"})
	if err != nil {
		t.Fatalf("NewVault: %v", err)
	}

	tests := []struct {
		name     string
		ref      string
		want     string
		notFound bool
		wantErr  bool
	}{
		{name: "field", ref: "vault://secret/data/swarmaid#openai_api_key", want: "sk-test"},
		{name: "missing field", ref: "vault://secret/data/swarmaid#gemini", notFound: true},
		{name: "no field selector", ref: "vault://secret/data/swarmaid", notFound: true},
		{name: "non-string field", ref: "vault://secret/data/swarmaid#retries", wantErr: true},
		{name: "unknown path", ref: "vault://secret/data/other#k", notFound: true},
		{name: "no data", ref: "vault://secret/data/empty#k", notFound: true},
		{name: "empty path", ref: "vault://#k", notFound: true},
		{name: "wrong scheme", ref: "env://HOME", notFound: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Resolve(context.Background(), tt.ref)
			switch {
			case tt.notFound:
				if !errors.Is(err, ErrNotFound) {
					t.Fatalf("err = %v, want ErrNotFound", err)
				}
			case tt.wantErr:
				if err == nil || errors.Is(err, ErrNotFound) {
					t.Fatalf("err = %v, want a non-NotFound error", err)
				}
			default:
				if err != nil {
					t.Fatalf("Resolve: %v", err)
				}
				if got != tt.want {
					t.Errorf("got %q, want %q", got, tt.want)
				}
			}
		})
	}
}

func TestVaultForbidden(t *testing.T) {
	clearVaultEnv(t)
	srv := keysServer(t)

	v, err := NewVault(VaultConfig{Address: srv.URL, Token: "wrong"})
	if err != nil {
		t.Fatalf("NewVault: %v", err)
	}
	_, err = v.Resolve(context.Background(), "vault://secret/data/swarmaid#openai_api_key")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("forbidden should not be reported as not found")
	}
}

func TestVaultEnvOverride(t *testing.T) {
	clearVaultEnv(t)
	srv := keysServer(t)
	t.Setenv("VAULT_ADDR", srv.URL)
	t.Setenv("VAULT_TOKEN", "test-token")

	v, err := NewVault(VaultConfig{Address: "http://unused:8200", Token: "unused"})
	if err != nil {
		t.Fatalf("NewVault: %v", err)
	}
	got, err := v.Resolve(context.Background(), "vault://secret/data/swarmaid#openai_api_key")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "sk-test" {
		t.Errorf("got %q", got)
	}
}

func TestVaultNamespaceHeader(t *testing.T) {
	clearVaultEnv(t)
	var gotNS string
	srv := newTestVaultServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotNS = r.Header.Get("X-Vault-Namespace")
		w.Write(kvV2Response(map[string]any{"k": "v"}))
	})

	v, err := NewVault(VaultConfig{Address: srv.URL, Token: "t", Namespace: "team-geo"})
	if err != nil {
		t.Fatalf("NewVault: %v", err)
	}
	if _, err := v.Resolve(context.Background(), "vault://secret/data/x#k"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if gotNS != "team-geo" {
		t.Errorf("namespace header = %q", gotNS)
	}
}

func TestNewVaultRequiresAddressAndToken(t *testing.T) {
	clearVaultEnv(t)
	if _, err := NewVault(VaultConfig{Token: "t"}); err == nil {
		t.Error("expected error without address")
	}
	if _, err := NewVault(VaultConfig{Address: "http://vault:8200"}); err == nil {
		t.Error("expected error without token")
	}
}
