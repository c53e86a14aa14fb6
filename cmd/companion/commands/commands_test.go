package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/stratux-companion/internal/health"
	"github.com/dyluth/stratux-companion/internal/printer"
	"github.com/dyluth/stratux-companion/internal/settings"
	"github.com/dyluth/stratux-companion/internal/statusboard"
	"github.com/dyluth/stratux-companion/internal/traffic"
	"github.com/dyluth/stratux-companion/internal/worker"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// execute runs the root command with args and captures printer output.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	prevOut, prevErr, prevNoColor := printer.Out, printer.Err, color.NoColor
	printer.Out, printer.Err, color.NoColor = &out, &errOut, true
	t.Cleanup(func() { printer.Out, printer.Err, color.NoColor = prevOut, prevErr, prevNoColor })

	// flag values persist between executions of the package-level commands
	resetFlags(rootCmd)
	t.Setenv("COMPANION_INSTANCE", "test-instance")

	rootCmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	err := Execute()
	return out.String(), errOut.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func TestRootCommand_ShowsHelpWhenNoSubcommand(t *testing.T) {
	out, _, err := execute(t)
	require.NoError(t, err)
	assert.Contains(t, out, "Usage:")
	assert.Contains(t, out, "companion")
}

func TestRootCommand_RejectsUnknownFlags(t *testing.T) {
	_, _, err := execute(t, "--unknown-flag", "value")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag")
}

func TestSetVersionInfo(t *testing.T) {
	SetVersionInfo("1.2.3", "abc123", "2025-06-01")
	assert.Equal(t, "1.2.3 (commit: abc123, built: 2025-06-01)", rootCmd.Version)
}

func TestSettingsSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yml")

	out, _, err := execute(t, "settings", "set", "--file", path, "--mute", "--max-distance-m=5000", "--display-rotation=2")
	require.NoError(t, err)
	assert.Contains(t, out, "Settings saved")

	saved, err := settings.Load(path)
	require.NoError(t, err)
	assert.True(t, saved.Mute)
	assert.Equal(t, 5000, saved.MaxDistanceM)
	assert.Equal(t, 2, saved.DisplayRotation)
	// untouched fields keep their defaults
	assert.Equal(t, settings.Defaults().MaxAltitudeM, saved.MaxAltitudeM)
}

func TestSettingsSet_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yml")
	_, _, err := execute(t, "settings", "set", "--file", path, "--max-distance-m=5000")
	require.NoError(t, err)

	_, errOut, err := execute(t, "settings", "set", "--file", path, "--display-rotation=7")
	require.Error(t, err)
	assert.Contains(t, errOut, "display_rotation")

	saved, err := settings.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, saved.DisplayRotation)
	assert.Equal(t, 5000, saved.MaxDistanceM)
}

func TestSettingsSet_NothingToChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yml")
	_, errOut, err := execute(t, "settings", "set", "--file", path)
	require.Error(t, err)
	assert.Contains(t, errOut, "at least one setting")

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSettingsShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yml")
	_, _, err := execute(t, "settings", "set", "--file", path, "--max-altitude-m=750")
	require.NoError(t, err)

	out, _, err := execute(t, "settings", "show", "--file", path)
	require.NoError(t, err)

	var shown settings.Settings
	require.NoError(t, yaml.Unmarshal([]byte(out), &shown))
	assert.Equal(t, 750, shown.MaxAltitudeM)
}

func TestSettingsShow_MissingFileShowsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yml")
	out, _, err := execute(t, "settings", "show", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "traffic_endpoint: ws://192.168.10.1/traffic")

	// show never writes
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func healthServer(t *testing.T, resp health.Response, code int) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestHealth(t *testing.T) {
	now := time.Now()
	workers := []worker.Status{
		{Name: "traffic", Interval: 15 * time.Second, LastHeartbeat: now, Healthy: true},
	}

	t.Run("healthy", func(t *testing.T) {
		addr := healthServer(t, health.Response{Status: "healthy", Workers: workers}, http.StatusOK)
		out, _, err := execute(t, "health", "--addr", addr)
		require.NoError(t, err)
		assert.Contains(t, out, "traffic")
		assert.Contains(t, out, "All 1 workers healthy")
	})

	t.Run("unhealthy", func(t *testing.T) {
		stale := []worker.Status{{Name: "traffic", Interval: 15 * time.Second}}
		addr := healthServer(t, health.Response{Status: "unhealthy", Error: "stale workers: traffic", Workers: stale}, http.StatusServiceUnavailable)
		out, errOut, err := execute(t, "health", "--addr", addr)
		require.Error(t, err)
		assert.Contains(t, out, "stale")
		assert.Contains(t, errOut, "stale workers: traffic")
	})

	t.Run("unreachable", func(t *testing.T) {
		_, errOut, err := execute(t, "health", "--addr", "http://127.0.0.1:1")
		require.Error(t, err)
		assert.Contains(t, errOut, "not reachable")
	})
}

func TestStatus(t *testing.T) {
	mr := miniredis.RunT(t)
	redisURL := "redis://" + mr.Addr()

	t.Run("nothing published", func(t *testing.T) {
		_, errOut, err := execute(t, "status", "--redis-url", redisURL)
		require.Error(t, err)
		assert.Contains(t, errOut, "no status published")
	})

	t.Run("latest snapshot", func(t *testing.T) {
		client, err := statusboard.NewClientFromURL(redisURL, "test-instance")
		require.NoError(t, err)
		defer client.Close()

		snapshot := &statusboard.Snapshot{
			Instance:    "test-instance",
			PublishedAt: time.Now(),
			Heartbeats:  map[string]time.Time{"traffic": time.Now()},
			Traffic:     []traffic.Contact{{ICAO: "A84EF5", Tail: "N6340E", DistanceM: 10459}},
		}
		require.NoError(t, client.WriteSnapshot(context.Background(), snapshot, time.Minute))

		out, _, err := execute(t, "status", "--redis-url", redisURL)
		require.NoError(t, err)
		assert.Contains(t, out, "test-instance")
		assert.Contains(t, out, "N6340E")
		assert.Contains(t, out, "Alarms (0)")
	})

	t.Run("no redis configured", func(t *testing.T) {
		t.Setenv("REDIS_URL", "")
		_, errOut, err := execute(t, "status")
		require.Error(t, err)
		assert.Contains(t, errOut, "no Redis URL")
	})
}
