package commands

import (
	"fmt"

	"github.com/dyluth/stratux-companion/internal/config"
	"github.com/dyluth/stratux-companion/internal/printer"
	"github.com/dyluth/stratux-companion/internal/settings"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

var settingsFile string

// settingsFlags holds the values for "settings set"; only flags the user
// passed are applied.
var settingsFlags struct {
	mute                bool
	trafficEndpoint     string
	situationEndpoint   string
	trackTimeS          int
	maxDistanceM        int
	maxAltitudeM        int
	batteryAlarmPercent int
	batteryCells        int
	displayRotation     int
	defaultLat          float64
	defaultLng          float64
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the device settings",
	Long: `Show or change the device settings file.

The settings file is read once when "companion run" starts; changes made
with "settings set" take effect the next time the companion starts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current settings as YAML",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change one or more settings",
	Long: `Change one or more settings and rewrite the settings file.

Only the flags given are changed. The result is validated before it is
written; an invalid combination leaves the file untouched.

Examples:
  # Silence all announcements
  companion settings set --mute

  # Alarm on traffic within 5 km and 500 m vertically
  companion settings set --max-distance-m=5000 --max-altitude-m=500

  # Point at a different receiver
  companion settings set --traffic-endpoint=ws://192.168.10.1/traffic`,
	Args: cobra.NoArgs,
	RunE: runSettingsSet,
}

func init() {
	settingsCmd.PersistentFlags().StringVarP(&settingsFile, "file", "f", "", "Settings file (defaults to COMPANION_SETTINGS_FILE)")

	f := settingsSetCmd.Flags()
	f.BoolVar(&settingsFlags.mute, "mute", false, "Mute speech announcements")
	f.StringVar(&settingsFlags.trafficEndpoint, "traffic-endpoint", "", "Websocket traffic feed URL")
	f.StringVar(&settingsFlags.situationEndpoint, "situation-endpoint", "", "HTTP situation (own position) URL")
	f.IntVar(&settingsFlags.trackTimeS, "track-time", 0, "Seconds a contact is kept without an update")
	f.IntVar(&settingsFlags.maxDistanceM, "max-distance-m", 0, "Alarm distance limit in meters")
	f.IntVar(&settingsFlags.maxAltitudeM, "max-altitude-m", 0, "Alarm altitude separation limit in meters")
	f.IntVar(&settingsFlags.batteryAlarmPercent, "battery-alarm-percent", 0, "Low battery announcement threshold (0 disables it)")
	f.IntVar(&settingsFlags.batteryCells, "battery-cells", 0, "Number of lithium cells in series")
	f.IntVar(&settingsFlags.displayRotation, "display-rotation", 0, "Display rotation in quarter turns (0-3)")
	f.Float64Var(&settingsFlags.defaultLat, "default-lat", 0, "Latitude used until a GPS fix is acquired")
	f.Float64Var(&settingsFlags.defaultLng, "default-lng", 0, "Longitude used until a GPS fix is acquired")

	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}

// resolveSettingsFile picks --file, then the configured settings file.
func resolveSettingsFile() (string, error) {
	if settingsFile != "" {
		return settingsFile, nil
	}
	cfg, err := config.LoadConfig(envFile)
	if err != nil {
		return "", printer.ErrorWithContext(
			"invalid configuration",
			err.Error(),
			map[string]string{"Env file": envFile},
			[]string{"Pass the settings file explicitly with --file"},
		)
	}
	return cfg.SettingsFile, nil
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	path, err := resolveSettingsFile()
	if err != nil {
		return err
	}

	current, err := settings.Load(path)
	if err != nil {
		printer.Warning("%s is unusable (%v); the companion will start with these defaults:\n\n", path, err)
		defaults := settings.Defaults()
		current = &defaults
	}

	data, err := yaml.Marshal(current)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	fmt.Fprint(printer.Out, string(data))
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	path, err := resolveSettingsFile()
	if err != nil {
		return err
	}

	changed := cmd.Flags().Changed
	given := 0
	cmd.LocalNonPersistentFlags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			given++
		}
	})
	if given == 0 {
		return printer.Error(
			"no settings given",
			"settings set needs at least one setting to change.",
			[]string{"Run 'companion settings set --help' to list the available settings"},
		)
	}

	store := settings.Open(path)
	err = store.Update(func(s *settings.Settings) {
		if changed("mute") {
			s.Mute = settingsFlags.mute
		}
		if changed("traffic-endpoint") {
			s.TrafficEndpoint = settingsFlags.trafficEndpoint
		}
		if changed("situation-endpoint") {
			s.SituationEndpoint = settingsFlags.situationEndpoint
		}
		if changed("track-time") {
			s.TrafficTrackTimeS = settingsFlags.trackTimeS
		}
		if changed("max-distance-m") {
			s.MaxDistanceM = settingsFlags.maxDistanceM
		}
		if changed("max-altitude-m") {
			s.MaxAltitudeM = settingsFlags.maxAltitudeM
		}
		if changed("battery-alarm-percent") {
			s.BatteryAlarmPercent = settingsFlags.batteryAlarmPercent
		}
		if changed("battery-cells") {
			s.BatteryCells = settingsFlags.batteryCells
		}
		if changed("display-rotation") {
			s.DisplayRotation = settingsFlags.displayRotation
		}
		if changed("default-lat") {
			s.DefaultPosition.Lat = settingsFlags.defaultLat
		}
		if changed("default-lng") {
			s.DefaultPosition.Lng = settingsFlags.defaultLng
		}
	})
	if err != nil {
		return printer.ErrorWithContext(
			"failed to update settings",
			err.Error(),
			map[string]string{"Settings file": path},
			[]string{"Check the values passed", "Check that the settings file is writable"},
		)
	}

	printer.Success("Settings saved to %s\n", path)
	return nil
}
