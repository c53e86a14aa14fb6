package commands

import (
	"context"
	"net/http"
	"time"

	"github.com/dyluth/stratux-companion/internal/health"
	"github.com/dyluth/stratux-companion/internal/printer"
	"github.com/spf13/cobra"
)

var healthAddr string

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show the health of a running companion's workers",
	Long: `Query the /healthz endpoint of a running companion and print each
worker's state and last heartbeat. Exits non-zero when any worker is stale.`,
	Args: cobra.NoArgs,
	RunE: runHealth,
}

func init() {
	healthCmd.Flags().StringVar(&healthAddr, "addr", "http://localhost:8080", "Base URL of the companion health server")
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(commandContext(cmd), 5*time.Second)
	defer cancel()

	resp, err := health.Fetch(ctx, &http.Client{}, healthAddr)
	if err != nil {
		return printer.ErrorWithContext(
			"companion is not reachable",
			err.Error(),
			map[string]string{"Address": healthAddr},
			[]string{
				"Check that 'companion run' is running",
				"Check COMPANION_HEALTH_PORT and pass the matching --addr",
			},
		)
	}

	printer.Workers(resp.Workers, time.Now())

	if !resp.Healthy() {
		return printer.Error("companion is unhealthy", resp.Error, nil)
	}
	printer.Success("All %d workers healthy\n", len(resp.Workers))
	return nil
}
