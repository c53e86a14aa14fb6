package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dyluth/stratux-companion/internal/config"
	"github.com/dyluth/stratux-companion/internal/printer"
	"github.com/dyluth/stratux-companion/internal/statusboard"
	"github.com/spf13/cobra"
)

var (
	statusInstance string
	statusRedisURL string
	statusFollow   bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the status a companion mirrors into Redis",
	Long: `Read the latest status snapshot a companion published to Redis: worker
heartbeats, tracked traffic and active alarms.

The companion only publishes when it runs with REDIS_URL set.

Examples:
  # Show the latest snapshot of this host's companion
  companion status

  # Watch another device
  companion status --name=cockpit-pi --redis-url=redis://10.0.0.5:6379 --follow`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVarP(&statusInstance, "name", "n", "", "Instance to read (defaults to COMPANION_INSTANCE)")
	statusCmd.Flags().StringVar(&statusRedisURL, "redis-url", "", "Redis URL (defaults to REDIS_URL)")
	statusCmd.Flags().BoolVar(&statusFollow, "follow", false, "Keep printing snapshots as they are published")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(envFile)
	if err != nil {
		return printer.ErrorWithContext("invalid configuration", err.Error(), map[string]string{"Env file": envFile}, nil)
	}
	if statusInstance == "" {
		statusInstance = cfg.InstanceName
	}
	if statusRedisURL == "" {
		statusRedisURL = cfg.RedisURL
	}
	if statusRedisURL == "" {
		return printer.Error(
			"no Redis URL",
			"The status mirror lives in Redis, but no Redis URL is configured.",
			[]string{"Pass --redis-url", "Set REDIS_URL in the environment or env file"},
		)
	}

	client, err := statusboard.NewClientFromURL(statusRedisURL, statusInstance)
	if err != nil {
		return printer.Error("invalid Redis URL", err.Error(), nil)
	}
	defer client.Close()

	ctx := commandContext(cmd)

	snapshot, err := client.ReadSnapshot(ctx)
	switch {
	case statusboard.IsNotFound(err):
		if !statusFollow {
			return printer.ErrorWithContext(
				"no status published",
				"No recent snapshot was found for this instance.",
				map[string]string{"Instance": statusInstance},
				[]string{"Check that the companion runs with REDIS_URL set", "Pass the right --name"},
			)
		}
		printer.Info("Waiting for '%s' to publish...\n", statusInstance)
	case err != nil:
		return printer.ErrorWithContext(
			"failed to read status",
			err.Error(),
			map[string]string{"Instance": statusInstance, "Redis": statusRedisURL},
			nil,
		)
	default:
		printSnapshot(snapshot, time.Now())
	}

	if !statusFollow {
		return nil
	}
	return followStatus(ctx, client)
}

func followStatus(ctx context.Context, client *statusboard.Client) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sub, err := client.SubscribeSnapshots(ctx)
	if err != nil {
		return printer.Error("failed to subscribe to status updates", err.Error(), nil)
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-sub.Errors():
			if !ok {
				return nil
			}
			printer.Warning("%v\n", err)
		case snapshot, ok := <-sub.Snapshots():
			if !ok {
				return nil
			}
			fmt.Fprintln(printer.Out)
			printSnapshot(snapshot, time.Now())
		}
	}
}

func printSnapshot(s *statusboard.Snapshot, now time.Time) {
	printer.Step("%s, published %s ago\n\n", s.Instance, now.Sub(s.PublishedAt).Round(time.Second))

	printer.Heartbeats(s.Heartbeats, now)

	fmt.Fprintf(printer.Out, "\nTraffic (%d)\n", len(s.Traffic))
	printer.Contacts(s.Traffic)

	fmt.Fprintf(printer.Out, "\nAlarms (%d)\n", len(s.Alarms))
	printer.Contacts(s.Alarms)
}
