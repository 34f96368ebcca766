package main

import (
	"io"
	"log/slog"
	"testing"

	"github.com/swarmaid/swarmaid/internal/agent"
	"github.com/swarmaid/swarmaid/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProviderNameForAgent(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		agent  string
		want   string
	}{
		{"default", func(c *config.Config) { c.Providers.Default = "openai" }, agent.DataAnalyst, "openai"},
		{"critic on gemini when keyed", func(c *config.Config) {
			c.Providers.Default = "openai"
			c.Providers.Gemini.APIKey = "g"
		}, agent.Critic, "gemini"},
		{"critic on default without gemini key", func(c *config.Config) {
			c.Providers.Default = "openai"
			c.Providers.Gemini.APIKey = ""
		}, agent.Critic, "openai"},
		{"override wins", func(c *config.Config) {
			c.Providers.Default = "openai"
			c.Providers.Gemini.APIKey = "g"
			c.Agents.Providers = map[string]string{agent.Critic: "anthropic"}
		}, agent.Critic, "anthropic"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			ps := newProviderSet(cfg, nil, nil, discardLogger())
			if got := ps.nameFor(tt.agent); got != tt.want {
				t.Errorf("nameFor(%q) = %q, want %q", tt.agent, got, tt.want)
			}
		})
	}
}

func TestBuildProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Providers.Anthropic.Model = "claude-test"
	cfg.Providers.Ollama.Model = "llama3"

	for _, name := range []string{"openai", "gemini", "anthropic", "ollama"} {
		p, err := buildProvider(name, cfg, discardLogger())
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if p.Name() != name {
			t.Errorf("provider name = %q, want %q", p.Name(), name)
		}
	}
	if _, err := buildProvider("mystery", cfg, discardLogger()); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestProviderSetSharesBackends(t *testing.T) {
	cfg := config.Default()
	cfg.Providers.Default = "openai"
	cfg.Providers.OpenAI.APIKey = "k"
	cfg.Providers.Gemini.APIKey = ""
	ps := newProviderSet(cfg, nil, nil, discardLogger())

	a, err := ps.forAgent(agent.DataAnalyst)
	if err != nil {
		t.Fatal(err)
	}
	b, err := ps.forAgent(agent.MedicCoordinator)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("agents on the same backend should share one provider")
	}
	if err := ps.credentialsError(); err != nil {
		t.Errorf("unexpected credentials error: %v", err)
	}

	cfg.Providers.OpenAI.APIKey = ""
	if err := ps.credentialsError(); err == nil {
		t.Error("expected credentials error without an API key")
	}
}

func TestInitSharedWiresPipeline(t *testing.T) {
	cfg := config.Default()
	cfg.Providers.Default = "openai"
	cfg.Hazards.RefreshSchedule = "@every 10m"

	sc, err := initShared(cfg, discardLogger())
	if err != nil {
		t.Fatalf("initShared: %v", err)
	}
	defer sc.Cleanup()

	if got := len(sc.Agents); got != 4 {
		t.Errorf("agents = %d, want 4", got)
	}
	if got := sc.Pipeline.Stages(); len(got) != 4 || got[0] != agent.DataAnalyst || got[3] != agent.Critic {
		t.Errorf("stages = %v", got)
	}
	if got := len(sc.Tools.List()); got != 4 {
		t.Errorf("tools = %d, want 4", got)
	}
	if jobs := sc.Scheduler.Jobs(); len(jobs) != 1 || jobs[0] != hazardRefreshJob {
		t.Errorf("jobs = %v", jobs)
	}
}

func TestResolveCredentials(t *testing.T) {
	t.Setenv("SWARMAID_TEST_ORS", "ors-secret")
	cfg := config.Default()
	cfg.Routing.ORSAPIKey = "env://SWARMAID_TEST_ORS"
	cfg.Social.BearerToken = "literal-token"

	if err := resolveCredentials(cfg, discardLogger()); err != nil {
		t.Fatalf("resolveCredentials: %v", err)
	}
	if cfg.Routing.ORSAPIKey != "ors-secret" {
		t.Errorf("ors key = %q", cfg.Routing.ORSAPIKey)
	}
	if cfg.Social.BearerToken != "literal-token" {
		t.Errorf("literal changed to %q", cfg.Social.BearerToken)
	}

	cfg.Routing.ORSAPIKey = "env://SWARMAID_TEST_UNSET"
	if err := resolveCredentials(cfg, discardLogger()); err == nil {
		t.Error("expected error for an unset env reference")
	}
}
