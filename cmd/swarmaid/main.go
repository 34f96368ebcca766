// Swarmaid: a multi-agent disaster-response assistant.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "swarmaid",
	Short: "Swarmaid: multi-agent disaster-response assistant.",
	Long: `Swarmaid runs a crew of four agents over a disaster scenario.
A Data Analyst scans open hazards, a Medic Coordinator triages social posts,
a Logistics Manager plans an evacuation route and a Critic audits the plan.
The result is served as agent logs plus a GeoJSON map.`,
	RunE:          runServe, // Default to serve mode.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, simulateCmd, mcpCmd, versionCmd)
	_ = godotenv.Load()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}
