package hardware

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultHwmonRoot is where Linux exposes hwmon devices.
const DefaultHwmonRoot = "/sys/class/hwmon"

// PowerReading is one sample from the supply-side power sensor.
type PowerReading struct {
	VoltageV  float64 `json:"voltage_v"`
	CurrentMA float64 `json:"current_ma"`
	PowerW    float64 `json:"power_w"`
}

// PowerSensor reads the supply voltage, current and power.
type PowerSensor interface {
	Read(ctx context.Context) (PowerReading, error)
}

// HwmonSensor reads an INA219 through the kernel ina2xx hwmon driver.
// Bus voltage is in1_input (mV), current curr1_input (mA) and power
// power1_input (uW).
type HwmonSensor struct {
	dir string
}

// NewHwmonSensor reads from a hwmon device directory such as /sys/class/hwmon/hwmon2.
func NewHwmonSensor(dir string) *HwmonSensor {
	return &HwmonSensor{dir: dir}
}

// FindHwmon returns the first device under root whose driver name is one of names.
func FindHwmon(root string, names ...string) (string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", fmt.Errorf("failed to list %s: %w", root, err)
	}

	for _, e := range entries {
		dir := filepath.Join(root, e.Name())
		data, err := os.ReadFile(filepath.Join(dir, "name"))
		if err != nil {
			continue
		}
		name := strings.TrimSpace(string(data))
		for _, want := range names {
			if name == want {
				return dir, nil
			}
		}
	}
	return "", fmt.Errorf("no hwmon device named %s under %s", strings.Join(names, " or "), root)
}

// Read implements PowerSensor.
func (h *HwmonSensor) Read(ctx context.Context) (PowerReading, error) {
	millivolts, err := h.readInt("in1_input")
	if err != nil {
		return PowerReading{}, err
	}
	milliamps, err := h.readInt("curr1_input")
	if err != nil {
		return PowerReading{}, err
	}
	microwatts, err := h.readInt("power1_input")
	if err != nil {
		return PowerReading{}, err
	}

	return PowerReading{
		VoltageV:  float64(millivolts) / 1000,
		CurrentMA: float64(milliamps),
		PowerW:    float64(microwatts) / 1_000_000,
	}, nil
}

func (h *HwmonSensor) readInt(attr string) (int64, error) {
	path := filepath.Join(h.dir, attr)
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value in %s: %w", path, err)
	}
	return v, nil
}

// ChargePercent estimates the remaining charge of a lithium pack from its
// voltage, treating 3.0 V per cell as empty and 4.2 V as full.
func ChargePercent(voltage float64, cells int) float64 {
	if cells <= 0 {
		return 0
	}

	full := 4.2 * float64(cells)
	span := 1.2 * float64(cells)
	percent := 100 - (full-voltage)/span*100

	return min(max(percent, 0), 100)
}
