package commands

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dyluth/stratux-companion/internal/companion"
	"github.com/dyluth/stratux-companion/internal/config"
	"github.com/dyluth/stratux-companion/internal/health"
	"github.com/dyluth/stratux-companion/internal/logging"
	"github.com/dyluth/stratux-companion/internal/printer"
	"github.com/dyluth/stratux-companion/internal/settings"
	"github.com/dyluth/stratux-companion/internal/statusboard"
	"github.com/spf13/cobra"
)

// ShutdownGrace bounds how long workers get to finish their current tick.
const ShutdownGrace = 5 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the companion and run until interrupted",
	Long: `Start every companion worker: position polling, the traffic feed,
alarm evaluation, the sound queue, hardware monitoring and the display.

When REDIS_URL is set the companion also mirrors its state into Redis for
"companion status". SIGINT or SIGTERM stops all workers after their current
tick; workers still busy after 5 seconds are abandoned.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(envFile)
	if err != nil {
		return printer.ErrorWithContext(
			"invalid configuration",
			err.Error(),
			map[string]string{"Env file": envFile},
			[]string{"Check the COMPANION_* environment variables and the env file"},
		)
	}

	logOpts := logging.Options{Debug: cfg.LogLevel == "debug"}
	if cfg.LogToFile() {
		logOpts.File = cfg.LogFile
	}
	output, err := logging.Setup(logOpts)
	if err != nil {
		return printer.ErrorWithContext(
			"failed to set up logging",
			err.Error(),
			map[string]string{"Log file": cfg.LogFile},
			[]string{
				"Run with sufficient permissions for the log directory",
				fmt.Sprintf("Set COMPANION_LOG_FILE=%s to log to stderr only", config.LogFileNone),
			},
		)
	}
	defer output.Close()

	log.Printf("[INFO] Stratux companion %s starting as instance '%s'", rootCmd.Version, cfg.InstanceName)

	if code := serve(cfg); code != 0 {
		return fmt.Errorf("companion exited with code %d", code)
	}
	return nil
}

// serve runs the engine until a signal arrives and returns an exit code.
func serve(cfg *config.Config) int {
	store := settings.Open(cfg.SettingsFile)

	opts := companion.Options{Config: cfg, Settings: store}

	if cfg.RedisURL != "" {
		client, err := connectStatusboard(cfg)
		if err != nil {
			// the mirror is optional; the device keeps running without it
			log.Printf("[WARN] Status mirror disabled: %v", err)
		} else {
			defer func() {
				log.Printf("[DEBUG] Closing status mirror client...")
				if err := client.Close(); err != nil {
					log.Printf("[ERROR] Error closing status mirror client: %v", err)
				}
			}()
			opts.StatusClient = client
		}
	}

	engine, err := companion.New(opts)
	if err != nil {
		log.Printf("[ERROR] Failed to build companion: %v", err)
		return 1
	}

	var healthServer *health.Server
	if cfg.HealthPort > 0 {
		healthServer = health.NewServer(engine, cfg.HealthPort)
		if err := healthServer.Start(); err != nil {
			log.Printf("[ERROR] Failed to start health server: %v", err)
			return 1
		}
		log.Printf("[INFO] Health server started on :%d", cfg.HealthPort)
	}

	engineCtx, engineCancel := context.WithCancel(context.Background())
	defer engineCancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	engineDone := make(chan error, 1)
	go func() {
		engineDone <- engine.Start(engineCtx)
	}()

	select {
	case sig := <-sigChan:
		log.Printf("[INFO] Received signal: %v", sig)
	case err := <-engineDone:
		if err != nil {
			log.Printf("[ERROR] Engine error: %v", err)
			return 1
		}
		log.Printf("[INFO] Engine exited")
		return 0
	}

	// Graceful shutdown: let every worker finish its current tick first
	log.Printf("[INFO] Initiating graceful shutdown...")
	engine.Shutdown()

	if healthServer != nil {
		healthCtx, healthCancel := context.WithTimeout(context.Background(), ShutdownGrace)
		defer healthCancel()
		if err := healthServer.Shutdown(healthCtx); err != nil {
			log.Printf("[ERROR] Health server shutdown error: %v", err)
		}
	}

	timer := time.NewTimer(ShutdownGrace)
	defer timer.Stop()

	select {
	case err := <-engineDone:
		if err != nil {
			log.Printf("[ERROR] Engine shutdown error: %v", err)
			return 1
		}
	case <-timer.C:
		log.Printf("[ERROR] Engine shutdown timeout - forcing exit")
		return 1
	}

	log.Printf("[INFO] Companion shutdown complete")
	return 0
}

func connectStatusboard(cfg *config.Config) (*statusboard.Client, error) {
	client, err := statusboard.NewClientFromURL(cfg.RedisURL, cfg.InstanceName)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Printf("[INFO] Connected to Redis, mirroring status as '%s'", cfg.InstanceName)
	return client, nil
}
