package hardware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dyluth/stratux-companion/internal/settings"
	"github.com/dyluth/stratux-companion/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSettings struct{ s settings.Settings }

func (s staticSettings) Get() settings.Settings { return s.s }

type fakeSensor struct {
	reading PowerReading
	err     error
}

func (f *fakeSensor) Read(ctx context.Context) (PowerReading, error) { return f.reading, f.err }

type fakeProbe struct {
	cpu, temp       float64
	cpuErr, tempErr error
}

func (f fakeProbe) CPUPercent(ctx context.Context) (float64, error)     { return f.cpu, f.cpuErr }
func (f fakeProbe) CPUTemperature(ctx context.Context) (float64, error) { return f.temp, f.tempErr }

func tick(t *testing.T, m *Monitor) error {
	t.Helper()
	return m.Tick(context.Background(), worker.New("hardware", DefaultInterval, m))
}

func TestMonitor_NoSampleYet(t *testing.T) {
	m := NewMonitor(staticSettings{settings.Defaults()}, &fakeSensor{}, fakeProbe{})

	_, ok := m.Status()
	assert.False(t, ok)

	_, err := m.BatteryPercent()
	assert.ErrorIs(t, err, ErrNoPowerSample)
}

func TestMonitor_Sample(t *testing.T) {
	sampled := time.Date(2024, 1, 12, 7, 0, 0, 0, time.UTC)
	sensor := &fakeSensor{reading: PowerReading{VoltageV: 10.8, CurrentMA: 500, PowerW: 5.4}}
	m := NewMonitor(staticSettings{settings.Defaults()}, sensor, fakeProbe{cpu: 12.5, temp: 48.3})
	m.now = func() time.Time { return sampled }

	require.NoError(t, tick(t, m))

	status, ok := m.Status()
	require.True(t, ok)
	assert.True(t, status.HasPower)
	assert.Equal(t, 10.8, status.VoltageV)
	assert.Equal(t, 500.0, status.CurrentMA)
	assert.Equal(t, 5.4, status.PowerW)
	assert.InDelta(t, 50, status.BatteryPercent, 0.001)
	assert.Equal(t, 12.5, status.CPUPercent)
	assert.Equal(t, 48.3, status.CPUTempC)
	assert.Equal(t, sampled, status.SampledAt)

	percent, err := m.BatteryPercent()
	require.NoError(t, err)
	assert.InDelta(t, 50, percent, 0.001)
}

func TestMonitor_SensorFailureStillPublishes(t *testing.T) {
	m := NewMonitor(staticSettings{settings.Defaults()}, &fakeSensor{err: errors.New("i2c timeout")}, fakeProbe{cpu: 3})

	err := tick(t, m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "i2c timeout")

	status, ok := m.Status()
	require.True(t, ok)
	assert.False(t, status.HasPower)
	assert.Equal(t, 3.0, status.CPUPercent)

	_, err = m.BatteryPercent()
	assert.ErrorIs(t, err, ErrNoPowerSample)
}

func TestMonitor_WithoutSensor(t *testing.T) {
	m := NewMonitor(staticSettings{settings.Defaults()}, nil, fakeProbe{cpu: 7, tempErr: errors.New("unsupported")})

	require.NoError(t, tick(t, m), "a missing temperature sensor is not a failure")

	status, ok := m.Status()
	require.True(t, ok)
	assert.False(t, status.HasPower)
	assert.Zero(t, status.CPUTempC)
}

func TestMonitor_CPUFailureFailsTick(t *testing.T) {
	m := NewMonitor(staticSettings{settings.Defaults()}, nil, fakeProbe{cpuErr: errors.New("no /proc")})
	assert.Error(t, tick(t, m))
}
