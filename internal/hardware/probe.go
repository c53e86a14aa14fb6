package hardware

import (
	"context"
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
)

// SystemProbe reads host CPU metrics.
type SystemProbe interface {
	CPUPercent(ctx context.Context) (float64, error)
	CPUTemperature(ctx context.Context) (float64, error)
}

// HostProbe reads CPU metrics through gopsutil.
type HostProbe struct{}

// CPUPercent returns utilisation across all cores since the previous call.
func (HostProbe) CPUPercent(ctx context.Context) (float64, error) {
	usage, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return 0, fmt.Errorf("failed to read cpu usage: %w", err)
	}
	if len(usage) == 0 {
		return 0, fmt.Errorf("no cpu usage reported")
	}
	return usage[0], nil
}

// CPUTemperature returns the CPU temperature in degrees Celsius.
func (HostProbe) CPUTemperature(ctx context.Context) (float64, error) {
	temps, err := host.SensorsTemperaturesWithContext(ctx)
	if len(temps) == 0 {
		if err == nil {
			err = fmt.Errorf("no temperature sensors")
		}
		return 0, fmt.Errorf("failed to read cpu temperature: %w", err)
	}

	// partial results come with a warnings error; any cpu sensor will do
	for _, t := range temps {
		if strings.Contains(strings.ToLower(t.SensorKey), "cpu") {
			return t.Temperature, nil
		}
	}
	return temps[0].Temperature, nil
}
