package display

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dyluth/stratux-companion/internal/hardware"
	"github.com/dyluth/stratux-companion/internal/position"
	"github.com/dyluth/stratux-companion/internal/settings"
	"github.com/dyluth/stratux-companion/internal/traffic"
	"github.com/dyluth/stratux-companion/internal/worker"
	"github.com/dyluth/stratux-companion/pkg/geo"
)

type SettingsSource interface {
	Get() settings.Settings
}

type TrafficSource interface {
	ClosestTraffic() []traffic.Contact
	MessagesSeen() uint64
}

type AlarmSource interface {
	Targets() []traffic.Contact
}

type PositionSource interface {
	CurrentPosition() geo.Fix
	Fixed() bool
	Situation() (position.Situation, bool)
}

type HardwareSource interface {
	Status() (hardware.Status, bool)
}

// Sources are the stores the display reads from.
type Sources struct {
	Settings SettingsSource
	Traffic  TrafficSource
	Alarms   AlarmSource
	Position PositionSource
	Hardware HardwareSource
}

// Renderer draws a frame on the physical display.
type Renderer interface {
	Render(ctx context.Context, f Frame) error
}

// Loop is the display worker task. It runs with a zero interval and paces
// itself with a Governor, producing one frame per tick.
type Loop struct {
	src      Sources
	renderer Renderer
	selector *Selector
	governor *Governor
	now      func() time.Time

	frames atomic.Uint64
}

// NewLoop creates a display loop rendering fps frames per second.
func NewLoop(src Sources, renderer Renderer, fps int) *Loop {
	return &Loop{
		src:      src,
		renderer: renderer,
		selector: NewSelector(DefaultRotation),
		governor: NewGovernor(fps),
		now:      time.Now,
	}
}

// Tick waits for the next frame slot, then renders the selected screen.
func (l *Loop) Tick(ctx context.Context, w *worker.Worker) error {
	if err := l.governor.Wait(ctx); err != nil {
		return err
	}

	f := l.Frame()
	if err := l.renderer.Render(ctx, f); err != nil {
		return fmt.Errorf("failed to render %s screen: %w", f.Screen, err)
	}
	l.frames.Add(1)
	return nil
}

// Frame selects the screen for the current time and collects its view.
func (l *Loop) Frame() Frame {
	targets := l.src.Alarms.Targets()
	screen := l.selector.Next(l.now(), len(targets) > 0)

	var v View
	switch screen {
	case ScreenAlarm:
		v = AlarmView{Targets: targets}
	case ScreenStatus:
		v = l.statusView()
	default:
		v = TrafficView{
			Contacts:     l.src.Traffic.ClosestTraffic(),
			MessagesSeen: l.src.Traffic.MessagesSeen(),
		}
	}

	return Frame{
		Screen:   screen,
		View:     v,
		Rotation: l.src.Settings.Get().DisplayRotation,
	}
}

func (l *Loop) statusView() StatusView {
	v := StatusView{
		Position: l.src.Position.CurrentPosition(),
		Fixed:    l.src.Position.Fixed(),
	}
	v.Situation, _ = l.src.Position.Situation()
	if l.src.Hardware != nil {
		v.Hardware, v.HasHardware = l.src.Hardware.Status()
	}
	return v
}

// Frames returns the number of frames rendered.
func (l *Loop) Frames() uint64 {
	return l.frames.Load()
}
