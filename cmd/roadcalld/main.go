package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openroad/roadcall/logger"
)

var rootCmd = &cobra.Command{
	Use:   "roadcalld",
	Short: "roadcall - job monitoring, escalation, and auto-assignment engine",
	Long: `roadcall watches unresolved roadside-repair jobs, escalates them through
admin alerts and customer notices, and automatically offers aged jobs to
ranked contractors.

Available commands:
  serve    - Run the monitoring engine and admin API
  config   - Show or validate the engine configuration

Examples:
  roadcalld serve                      # Run with roadcall.toml from the working tree
  roadcalld serve --config /etc/roadcall.toml
  roadcalld config show                # Print the effective configuration
  roadcalld config validate            # Validate without starting the engine`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("log-json")
		if err := logger.Initialize(jsonOutput); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to roadcall.toml (default: search upward from the working directory)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Emit structured JSON logs instead of console output")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	defer logger.Cleanup()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
