package position

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/dyluth/stratux-companion/internal/settings"
	"github.com/dyluth/stratux-companion/pkg/geo"
)

// Situation is the receiver's own-ship report.
type Situation struct {
	Fix                    geo.Fix `json:"fix"`
	Satellites             int     `json:"satellites"`
	AltitudeMSLFt          float64 `json:"altitude_msl_ft"`
	HeightAboveEllipsoidFt float64 `json:"height_above_ellipsoid_ft"`
}

// Source fetches the current situation from the receiver.
type Source interface {
	Situation(ctx context.Context) (Situation, error)
}

// SettingsSource provides the current settings snapshot.
type SettingsSource interface {
	Get() settings.Settings
}

// situationResponse is the subset of the Stratux /getSituation record we use.
type situationResponse struct {
	GPSLatitude             float64 `json:"GPSLatitude"`
	GPSLongitude            float64 `json:"GPSLongitude"`
	GPSSatellites           int     `json:"GPSSatellites"`
	GPSAltitudeMSL          float64 `json:"GPSAltitudeMSL"`
	GPSHeightAboveEllipsoid float64 `json:"GPSHeightAboveEllipsoid"`
}

// HTTPSource polls the Stratux situation endpoint named in the settings.
type HTTPSource struct {
	settings SettingsSource
	client   *http.Client
}

// NewHTTPSource creates a source that reads the endpoint from settings on every request.
// A nil client uses http.DefaultClient; per-request timeouts come from the context.
func NewHTTPSource(s SettingsSource, client *http.Client) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource{settings: s, client: client}
}

// Situation performs one GET against the situation endpoint.
func (h *HTTPSource) Situation(ctx context.Context) (Situation, error) {
	endpoint := h.settings.Get().SituationEndpoint

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Situation{}, fmt.Errorf("failed to build situation request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return Situation{}, fmt.Errorf("failed to fetch situation from %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return Situation{}, fmt.Errorf("situation endpoint returned %s", resp.Status)
	}

	var body situationResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Situation{}, fmt.Errorf("failed to decode situation: %w", err)
	}

	return Situation{
		Fix:                    geo.Fix{Lat: body.GPSLatitude, Lng: body.GPSLongitude},
		Satellites:             body.GPSSatellites,
		AltitudeMSLFt:          body.GPSAltitudeMSL,
		HeightAboveEllipsoidFt: body.GPSHeightAboveEllipsoid,
	}, nil
}
