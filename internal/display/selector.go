package display

import "time"

// DefaultRotation is how long each of the traffic and status screens is shown.
const DefaultRotation = 10 * time.Second

// Selector is the screen selection state machine. Active alarms force the
// alarm screen; otherwise the traffic and status screens alternate.
// It is not safe for concurrent use.
type Selector struct {
	rotation time.Duration

	started   bool
	current   Screen
	changedAt time.Time
}

// NewSelector creates a selector that starts on the traffic screen.
func NewSelector(rotation time.Duration) *Selector {
	if rotation <= 0 {
		rotation = DefaultRotation
	}
	return &Selector{rotation: rotation, current: ScreenTraffic}
}

// Next returns the screen to show at now. While alarms are active the
// rotation is suspended; afterwards the last rotating screen resumes.
func (s *Selector) Next(now time.Time, alarmsActive bool) Screen {
	if !s.started {
		s.started = true
		s.changedAt = now
	}

	if alarmsActive {
		return ScreenAlarm
	}

	if now.Sub(s.changedAt) >= s.rotation {
		if s.current == ScreenTraffic {
			s.current = ScreenStatus
		} else {
			s.current = ScreenTraffic
		}
		s.changedAt = now
	}
	return s.current
}
