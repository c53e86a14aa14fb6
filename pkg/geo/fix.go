package geo

import (
	"fmt"
	"math"

	"github.com/tidwall/geodesic"
)

// Fix is a latitude/longitude pair in decimal degrees.
type Fix struct {
	Lat float64 `yaml:"lat" json:"lat"`
	Lng float64 `yaml:"lng" json:"lng"`
}

// Valid reports whether the fix carries real data (neither coordinate is the zero sentinel).
func (f Fix) Valid() bool {
	return f.Lat != 0 && f.Lng != 0
}

// DistanceTo returns the geodesic distance in metres from f to other.
func (f Fix) DistanceTo(other Fix) float64 {
	var s12 float64
	geodesic.WGS84.Inverse(f.Lat, f.Lng, other.Lat, other.Lng, &s12, nil, nil)
	return s12
}

// BearingTo returns the initial true bearing from f to other, normalised to [0, 360).
func (f Fix) BearingTo(other Fix) float64 {
	var azi1 float64
	geodesic.WGS84.Inverse(f.Lat, f.Lng, other.Lat, other.Lng, nil, &azi1, nil)
	return NormalizeBearing(azi1)
}

// NormalizeBearing folds any angle in degrees into [0, 360).
func NormalizeBearing(deg float64) float64 {
	b := math.Mod(deg, 360)
	if b < 0 {
		b += 360
	}
	// math.Mod(-1e-15, 360) + 360 rounds to exactly 360
	if b >= 360 {
		b = 0
	}
	return b
}

func (f Fix) String() string {
	return fmt.Sprintf("%.6f,%.6f", f.Lat, f.Lng)
}
