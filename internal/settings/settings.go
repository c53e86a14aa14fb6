package settings

import (
	"fmt"
	"net/url"
	"time"

	"github.com/dyluth/stratux-companion/pkg/geo"
)

// CurrentVersion is the only settings file version this build understands.
const CurrentVersion = "1.0"

// Settings is the device configuration persisted to the settings file.
// Values are treated as immutable once published by a Store.
type Settings struct {
	Version string `yaml:"version"`

	// TrafficEndpoint is the Stratux websocket traffic feed
	TrafficEndpoint string `yaml:"traffic_endpoint"`

	// SituationEndpoint is the Stratux HTTP situation (own position) endpoint
	SituationEndpoint string `yaml:"situation_endpoint"`

	// TrafficTrackTimeS is how long a contact survives without an update
	TrafficTrackTimeS int `yaml:"traffic_track_time_s"`

	Mute bool `yaml:"mute"`

	// DefaultPosition is used until the receiver reports a valid fix
	DefaultPosition geo.Fix `yaml:"default_position"`

	MaxDistanceM int `yaml:"max_distance_m"`
	MaxAltitudeM int `yaml:"max_altitude_m"`

	// BatteryAlarmPercent triggers the low battery announcement (0 disables it)
	BatteryAlarmPercent int `yaml:"battery_alarm_percent"`
	BatteryCells        int `yaml:"battery_cells"`

	// DisplayRotation is the LCD rotation in quarter turns (0-3)
	DisplayRotation int `yaml:"display_rotation"`
}

// Defaults returns the compiled-in settings used when no valid file exists.
func Defaults() Settings {
	return Settings{
		Version:           CurrentVersion,
		TrafficEndpoint:   "ws://192.168.10.1/traffic",
		SituationEndpoint: "http://192.168.10.1/getSituation",
		TrafficTrackTimeS: 30,
		Mute:              false,
		DefaultPosition: geo.Fix{
			Lat: 30.4509056,
			Lng: -97.6827249,
		},
		MaxDistanceM:        10_000,
		MaxAltitudeM:        3_000,
		BatteryAlarmPercent: 20,
		BatteryCells:        3,
		DisplayRotation:     0,
	}
}

// TrackTime returns the contact tracking window as a duration.
func (s Settings) TrackTime() time.Duration {
	return time.Duration(s.TrafficTrackTimeS) * time.Second
}

// Validate performs strict validation on the settings record
func (s *Settings) Validate() error {
	if s.Version != CurrentVersion {
		return fmt.Errorf("unsupported version: %s (expected: %s)", s.Version, CurrentVersion)
	}

	if err := validateURL("traffic_endpoint", s.TrafficEndpoint, "ws", "wss"); err != nil {
		return err
	}
	if err := validateURL("situation_endpoint", s.SituationEndpoint, "http", "https"); err != nil {
		return err
	}

	if s.TrafficTrackTimeS <= 0 {
		return fmt.Errorf("traffic_track_time_s must be > 0, got %d", s.TrafficTrackTimeS)
	}

	if s.DefaultPosition.Lat < -90 || s.DefaultPosition.Lat > 90 {
		return fmt.Errorf("default_position.lat out of range: %f", s.DefaultPosition.Lat)
	}
	if s.DefaultPosition.Lng < -180 || s.DefaultPosition.Lng > 180 {
		return fmt.Errorf("default_position.lng out of range: %f", s.DefaultPosition.Lng)
	}

	if s.MaxDistanceM < 0 {
		return fmt.Errorf("max_distance_m must be >= 0, got %d", s.MaxDistanceM)
	}
	if s.MaxAltitudeM < 0 {
		return fmt.Errorf("max_altitude_m must be >= 0, got %d", s.MaxAltitudeM)
	}

	if s.BatteryAlarmPercent < 0 || s.BatteryAlarmPercent > 100 {
		return fmt.Errorf("battery_alarm_percent must be within 0-100, got %d", s.BatteryAlarmPercent)
	}
	if s.BatteryCells < 1 {
		return fmt.Errorf("battery_cells must be >= 1, got %d", s.BatteryCells)
	}

	if s.DisplayRotation < 0 || s.DisplayRotation > 3 {
		return fmt.Errorf("invalid display_rotation: %d (must be 0, 1, 2 or 3)", s.DisplayRotation)
	}

	return nil
}

func validateURL(field, raw string, schemes ...string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", field, err)
	}
	for _, scheme := range schemes {
		if u.Scheme == scheme {
			if u.Host == "" {
				return fmt.Errorf("invalid %s: missing host in %q", field, raw)
			}
			return nil
		}
	}
	return fmt.Errorf("invalid %s: scheme %q not one of %v", field, u.Scheme, schemes)
}
