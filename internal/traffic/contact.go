package traffic

import (
	"fmt"
	"math"
	"time"

	"github.com/dyluth/stratux-companion/pkg/geo"
)

// Sanity ceilings for feed data. Readings above them come from corrupt or
// badly extrapolated reports and are stored as 0 (unknown).
const (
	// MaxAltitudeM is well above the service ceiling of anything we share airspace with
	MaxAltitudeM = 15_000

	// MaxDistanceM is beyond what the receiver can plausibly hear
	MaxDistanceM = 50_000
)

const (
	metersPerFoot = 0.3048
	kmhPerKnot    = 1.852
)

// Contact is the latest known state of one tracked aircraft.
// Zero numeric values mean unknown.
type Contact struct {
	ICAO         string    `json:"icao"`
	Registration string    `json:"registration,omitempty"`
	Tail         string    `json:"tail,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
	ReportedAt   time.Time `json:"reported_at"`
	Fix          geo.Fix   `json:"fix"`
	AltitudeM    int       `json:"altitude_m"`
	DistanceM    int       `json:"distance_m"`
	SpeedKmh     int       `json:"speed_kmh"`
	BearingDeg   int       `json:"bearing_deg"`
}

// Name returns the most human-friendly identifier available.
func (c Contact) Name() string {
	switch {
	case c.Tail != "":
		return c.Tail
	case c.Registration != "":
		return c.Registration
	default:
		return c.ICAO
	}
}

// FormatICAO renders a 24-bit transponder address as six upper-case hex digits.
func FormatICAO(addr uint32) string {
	return fmt.Sprintf("%06X", addr&0xFFFFFF)
}

// NewContact derives a Contact from a decoded report, measured from origin.
// updatedAt is the local receipt time used for eviction.
func NewContact(m Message, origin geo.Fix, updatedAt time.Time) Contact {
	c := Contact{
		ICAO:         FormatICAO(m.IcaoAddr),
		Registration: m.Reg,
		Tail:         m.Tail,
		UpdatedAt:    updatedAt,
		ReportedAt:   m.Timestamp,
		Fix:          geo.Fix{Lat: m.Lat, Lng: m.Lng},
	}

	if m.SpeedValid {
		c.SpeedKmh = int(math.Round(float64(m.Speed) * kmhPerKnot))
	}

	c.AltitudeM = int(float64(m.Alt) * metersPerFoot)
	if c.AltitudeM > MaxAltitudeM {
		c.AltitudeM = 0
	}

	c.DistanceM = int(origin.DistanceTo(c.Fix))
	if c.DistanceM > MaxDistanceM {
		c.DistanceM = 0
	}

	c.BearingDeg = int(origin.BearingTo(c.Fix))

	return c
}
