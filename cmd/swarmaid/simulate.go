package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/swarmaid/swarmaid/internal/orchestrator"
)

var (
	simulateTimeout int
	simulateEvents  bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate <scenario>",
	Short: "Run one simulation locally and print the JSON result",
	Long: `Run the four-agent pipeline on a scenario without starting a server.
The result has the same shape as GET /simulate.

Examples:
  swarmaid simulate "Tokyo earthquake"
  swarmaid simulate "flooding in Dhaka" --events`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().IntVar(&simulateTimeout, "timeout", 600, "timeout in seconds")
	simulateCmd.Flags().BoolVar(&simulateEvents, "events", false, "print pipeline progress to stderr")
}

func runSimulate(_ *cobra.Command, args []string) error {
	scenario := strings.TrimSpace(strings.Join(args, " "))
	if scenario == "" {
		return fmt.Errorf("scenario is required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	sc, err := initShared(cfg, logger)
	if err != nil {
		return err
	}
	defer sc.Cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, time.Duration(simulateTimeout)*time.Second)
	defer cancel()

	var observe orchestrator.Observer
	if simulateEvents {
		observe = func(e orchestrator.Event) {
			fmt.Fprintf(os.Stderr, "[%s] %s\n", e.Type, e.Stage)
			if e.Triage != "" {
				fmt.Fprintf(os.Stderr, "  %s\n", e.Triage)
			}
		}
	}

	res := sc.Pipeline.Run(ctx, scenario, observe)
	logger.Debug("simulation finished",
		slog.String("scenario", scenario),
		slog.Int("logs", len(res.Logs)),
	)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
