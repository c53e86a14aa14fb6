package display

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/dyluth/stratux-companion/internal/traffic"
)

// maxListed is how many contacts fit on the 128x128 panel.
const maxListed = 5

// TextRenderer writes frames as text. Identical consecutive frames are
// written once, so it can stand in for the panel on a headless install.
type TextRenderer struct {
	mu   sync.Mutex
	w    io.Writer
	last string
}

// NewTextRenderer creates a renderer writing to w.
func NewTextRenderer(w io.Writer) *TextRenderer {
	return &TextRenderer{w: w}
}

// Render implements Renderer.
func (r *TextRenderer) Render(ctx context.Context, f Frame) error {
	text := FormatFrame(f)

	r.mu.Lock()
	defer r.mu.Unlock()

	if text == r.last {
		return nil
	}
	r.last = text
	_, err := io.WriteString(r.w, text)
	return err
}

// FormatFrame renders a frame as the lines the panel would show.
func FormatFrame(f Frame) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]\n", f.Screen)

	switch v := f.View.(type) {
	case TrafficView:
		fmt.Fprintf(&b, "%d contacts, %d msgs\n", len(v.Contacts), v.MessagesSeen)
		writeContacts(&b, v.Contacts)
	case AlarmView:
		fmt.Fprintf(&b, "ALARM %d targets\n", len(v.Targets))
		writeContacts(&b, v.Targets)
	case StatusView:
		gps := "no fix"
		if v.Fixed {
			gps = fmt.Sprintf("%d sats", v.Situation.Satellites)
		}
		fmt.Fprintf(&b, "pos %s (%s)\n", v.Position, gps)
		if v.HasHardware {
			h := v.Hardware
			if h.HasPower {
				fmt.Fprintf(&b, "bat %.0f%% %.2fV %.0fmA %.1fW\n", h.BatteryPercent, h.VoltageV, h.CurrentMA, h.PowerW)
			}
			fmt.Fprintf(&b, "cpu %.0f%% %.1fC\n", h.CPUPercent, h.CPUTempC)
		}
	}
	return b.String()
}

func writeContacts(b *strings.Builder, contacts []traffic.Contact) {
	for i, c := range contacts {
		if i == maxListed {
			fmt.Fprintf(b, "+%d more\n", len(contacts)-maxListed)
			return
		}
		fmt.Fprintf(b, "%-8s %5dm %5dm %3d\n", c.Name(), c.DistanceM, c.AltitudeM, c.BearingDeg)
	}
}
