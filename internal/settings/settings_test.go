package settings

import (
	"testing"

	"github.com/dyluth/stratux-companion/pkg/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults_AreValid(t *testing.T) {
	s := Defaults()
	require.NoError(t, s.Validate())
	assert.Equal(t, 30, s.TrafficTrackTimeS)
	assert.Equal(t, 10_000, s.MaxDistanceM)
	assert.Equal(t, 3_000, s.MaxAltitudeM)
	assert.True(t, s.DefaultPosition.Valid())
	assert.Equal(t, "30s", s.TrackTime().String())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{"unsupported version", func(s *Settings) { s.Version = "2.0" }, "unsupported version: 2.0"},
		{"missing traffic endpoint", func(s *Settings) { s.TrafficEndpoint = "" }, "traffic_endpoint is required"},
		{"http traffic endpoint", func(s *Settings) { s.TrafficEndpoint = "http://192.168.10.1/traffic" }, "invalid traffic_endpoint"},
		{"traffic endpoint without host", func(s *Settings) { s.TrafficEndpoint = "ws:///traffic" }, "missing host"},
		{"ws situation endpoint", func(s *Settings) { s.SituationEndpoint = "ws://192.168.10.1/getSituation" }, "invalid situation_endpoint"},
		{"zero track time", func(s *Settings) { s.TrafficTrackTimeS = 0 }, "traffic_track_time_s must be > 0"},
		{"latitude out of range", func(s *Settings) { s.DefaultPosition = geo.Fix{Lat: 91, Lng: 1} }, "default_position.lat"},
		{"longitude out of range", func(s *Settings) { s.DefaultPosition = geo.Fix{Lat: 1, Lng: -181} }, "default_position.lng"},
		{"negative distance", func(s *Settings) { s.MaxDistanceM = -1 }, "max_distance_m"},
		{"negative altitude", func(s *Settings) { s.MaxAltitudeM = -1 }, "max_altitude_m"},
		{"battery percent too high", func(s *Settings) { s.BatteryAlarmPercent = 101 }, "battery_alarm_percent"},
		{"no cells", func(s *Settings) { s.BatteryCells = 0 }, "battery_cells"},
		{"bad rotation", func(s *Settings) { s.DisplayRotation = 4 }, "invalid display_rotation: 4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Defaults()
			tt.mutate(&s)
			err := s.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
