// Package companion wires the stores and workers of a companion device together.
package companion

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/dyluth/stratux-companion/internal/alarm"
	"github.com/dyluth/stratux-companion/internal/config"
	"github.com/dyluth/stratux-companion/internal/display"
	"github.com/dyluth/stratux-companion/internal/feed"
	"github.com/dyluth/stratux-companion/internal/hardware"
	"github.com/dyluth/stratux-companion/internal/position"
	"github.com/dyluth/stratux-companion/internal/settings"
	"github.com/dyluth/stratux-companion/internal/sound"
	"github.com/dyluth/stratux-companion/internal/statusboard"
	"github.com/dyluth/stratux-companion/internal/traffic"
	"github.com/dyluth/stratux-companion/internal/worker"
	"github.com/dyluth/stratux-companion/pkg/geo"
)

// Options supplies the engine's collaborators. Nil collaborators are built
// from Config: the websocket dialer, the HTTP situation client, the command
// speaker, the hwmon power sensor and a text renderer on the debug log.
type Options struct {
	Config   *config.Config
	Settings *settings.Store

	Dialer      traffic.Dialer
	Situation   position.Source
	Speaker     sound.Speaker
	PowerSensor hardware.PowerSensor
	Probe       hardware.SystemProbe
	Renderer    display.Renderer

	// StatusClient enables the Redis status mirror
	StatusClient *statusboard.Client
}

// Engine owns every store and worker of a running companion.
//
// Workers only communicate through the stores handed to them here; there is
// no other coordination between them. Start runs them all concurrently and
// returns once every worker has exited.
type Engine struct {
	Settings *settings.Store
	Position *position.Tracker
	Traffic  *traffic.Tracker
	Alarms   *alarm.Evaluator
	Sound    *sound.Queue
	Hardware *hardware.Monitor
	Display  *display.Loop

	group *worker.Group
}

// New builds the engine. It does not start any worker.
func New(opts Options) (*Engine, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if opts.Settings == nil {
		return nil, fmt.Errorf("settings store is required")
	}
	cfg := opts.Config
	store := opts.Settings

	if opts.Dialer == nil {
		opts.Dialer = feed.NewDialer()
	}
	if opts.Situation == nil {
		opts.Situation = position.NewHTTPSource(store, &http.Client{})
	}
	if opts.Speaker == nil {
		opts.Speaker = sound.NewCommandSpeaker(cfg.SpeechCommand, cfg.BeepCommand, cfg.SoundDir)
	}
	if opts.PowerSensor == nil {
		opts.PowerSensor = powerSensor(cfg.HwmonDir)
	}
	if opts.Renderer == nil {
		opts.Renderer = display.NewTextRenderer(debugLogWriter{})
	}

	e := &Engine{Settings: store}

	e.Sound = sound.NewQueue(store, opts.Speaker)
	e.Position = position.NewTracker(store, opts.Situation, func(geo.Fix) {
		e.Sound.Beep(sound.BeepSuccess)
	})
	e.Traffic = traffic.NewTracker(store, e.Position, opts.Dialer)
	e.Hardware = hardware.NewMonitor(store, opts.PowerSensor, opts.Probe)

	// a monitor without a sensor never has a battery reading
	var battery alarm.BatterySource
	if opts.PowerSensor != nil {
		battery = e.Hardware
	}
	e.Alarms = alarm.NewEvaluator(store, e.Traffic, e.Sound, battery)

	e.Display = display.NewLoop(display.Sources{
		Settings: store,
		Traffic:  e.Traffic,
		Alarms:   e.Alarms,
		Position: e.Position,
		Hardware: e.Hardware,
	}, opts.Renderer, cfg.FPS)

	e.group = worker.NewGroup(
		worker.New("position", position.DefaultInterval, e.Position),
		worker.New("traffic", traffic.DefaultInterval, e.Traffic),
		worker.New("alarm", alarm.DefaultInterval, e.Alarms),
		worker.New("sound", sound.DefaultInterval, e.Sound),
		worker.New("hardware", hardware.DefaultInterval, e.Hardware),
		worker.New("display", 0, e.Display),
	)

	if opts.StatusClient != nil {
		publisher := statusboard.NewPublisher(opts.StatusClient, e.group, e.Traffic, e.Alarms)
		e.group.Add(worker.New("statusboard", statusboard.DefaultInterval, publisher))
	}

	return e, nil
}

// Start runs every worker and blocks until all of them have exited, either
// after Shutdown or when ctx is cancelled.
func (e *Engine) Start(ctx context.Context) error {
	log.Printf("[INFO] Companion starting with %d workers", len(e.group.Workers()))
	err := e.group.Run(ctx)
	log.Printf("[INFO] All workers exited, shutdown complete")
	return err
}

// Shutdown asks every worker to stop after its current tick.
func (e *Engine) Shutdown() {
	log.Printf("[INFO] Shutdown requested, waiting for workers to finish their current tick")
	e.group.Shutdown()
}

// Statuses reports every worker's health, for the health server.
func (e *Engine) Statuses(now time.Time) []worker.Status {
	return e.group.Statuses(now)
}

// powerSensor resolves COMPANION_HWMON_DIR. A missing sensor is not fatal;
// the status screen and battery alarm simply go without power readings.
func powerSensor(dir string) hardware.PowerSensor {
	switch dir {
	case config.HwmonNone, "":
		return nil
	case config.HwmonAuto:
		found, err := hardware.FindHwmon(hardware.DefaultHwmonRoot, "ina219", "ina226")
		if err != nil {
			log.Printf("[WARN] No power sensor found, battery monitoring disabled: %v", err)
			return nil
		}
		log.Printf("[INFO] Using power sensor at %s", found)
		return hardware.NewHwmonSensor(found)
	default:
		return hardware.NewHwmonSensor(dir)
	}
}

// debugLogWriter sends display frames to the log at debug level.
type debugLogWriter struct{}

func (debugLogWriter) Write(p []byte) (int, error) {
	log.Printf("[DEBUG] Display frame:\n%s", p)
	return len(p), nil
}
