// Package display decides what the status screen shows and drives the renderer.
package display

import (
	"github.com/dyluth/stratux-companion/internal/hardware"
	"github.com/dyluth/stratux-companion/internal/position"
	"github.com/dyluth/stratux-companion/internal/traffic"
	"github.com/dyluth/stratux-companion/pkg/geo"
)

// Screen identifies one of the display pages.
type Screen int

const (
	ScreenTraffic Screen = iota
	ScreenAlarm
	ScreenStatus
)

func (s Screen) String() string {
	switch s {
	case ScreenTraffic:
		return "traffic"
	case ScreenAlarm:
		return "alarm"
	case ScreenStatus:
		return "status"
	default:
		return "unknown"
	}
}

// View is the data a screen is allowed to show. The set of views is closed.
type View interface {
	Screen() Screen
	view()
}

// TrafficView lists the contacts currently tracked.
type TrafficView struct {
	Contacts     []traffic.Contact
	MessagesSeen uint64
}

// AlarmView lists the contacts currently alarming.
type AlarmView struct {
	Targets []traffic.Contact
}

// StatusView shows own position and device health.
type StatusView struct {
	Position    geo.Fix
	Fixed       bool
	Situation   position.Situation
	Hardware    hardware.Status
	HasHardware bool
}

func (TrafficView) Screen() Screen { return ScreenTraffic }
func (AlarmView) Screen() Screen   { return ScreenAlarm }
func (StatusView) Screen() Screen  { return ScreenStatus }

func (TrafficView) view() {}
func (AlarmView) view()   {}
func (StatusView) view()  {}

// Frame is everything a renderer needs to draw one frame.
type Frame struct {
	Screen   Screen
	View     View
	Rotation int
}
