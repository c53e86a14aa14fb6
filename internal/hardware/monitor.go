// Package hardware samples supply power and host metrics for the status
// screen and the low battery alarm.
package hardware

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/dyluth/stratux-companion/internal/settings"
	"github.com/dyluth/stratux-companion/internal/worker"
)

// DefaultInterval is how often the power sensor and system probe are sampled.
const DefaultInterval = 2 * time.Second

// ErrNoPowerSample is returned when no power reading is available yet.
var ErrNoPowerSample = errors.New("no power sample")

// Status is one hardware snapshot. Power fields are only meaningful when HasPower is set.
type Status struct {
	PowerReading
	HasPower       bool      `json:"has_power"`
	BatteryPercent float64   `json:"battery_percent"`
	CPUPercent     float64   `json:"cpu_percent"`
	CPUTempC       float64   `json:"cpu_temp_c"`
	SampledAt      time.Time `json:"sampled_at"`
}

type SettingsSource interface {
	Get() settings.Settings
}

// Monitor is the hardware worker task. It keeps the latest Status.
type Monitor struct {
	settings SettingsSource
	sensor   PowerSensor
	probe    SystemProbe
	now      func() time.Time

	current atomic.Pointer[Status]
}

// NewMonitor creates a monitor. sensor may be nil when no power sensor is fitted.
func NewMonitor(s SettingsSource, sensor PowerSensor, probe SystemProbe) *Monitor {
	if probe == nil {
		probe = HostProbe{}
	}
	return &Monitor{
		settings: s,
		sensor:   sensor,
		probe:    probe,
		now:      time.Now,
	}
}

// Tick samples every source and publishes a new snapshot. A failing source
// leaves its fields zero and fails the tick, but the snapshot is still published.
func (m *Monitor) Tick(ctx context.Context, w *worker.Worker) error {
	status := Status{SampledAt: m.now()}
	var errs []error

	if m.sensor != nil {
		reading, err := m.sensor.Read(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("power sensor: %w", err))
		} else {
			status.PowerReading = reading
			status.HasPower = true
			status.BatteryPercent = ChargePercent(reading.VoltageV, m.settings.Get().BatteryCells)
		}
	}

	if usage, err := m.probe.CPUPercent(ctx); err != nil {
		errs = append(errs, err)
	} else {
		status.CPUPercent = usage
	}

	if temp, err := m.probe.CPUTemperature(ctx); err != nil {
		log.Printf("[DEBUG] %v", err)
	} else {
		status.CPUTempC = temp
	}

	m.current.Store(&status)
	return errors.Join(errs...)
}

// Status returns the latest snapshot, if any.
func (m *Monitor) Status() (Status, bool) {
	s := m.current.Load()
	if s == nil {
		return Status{}, false
	}
	return *s, true
}

// BatteryPercent returns the charge estimate from the latest snapshot.
func (m *Monitor) BatteryPercent() (float64, error) {
	s := m.current.Load()
	if s == nil || !s.HasPower {
		return 0, ErrNoPowerSample
	}
	return s.BatteryPercent, nil
}
