// Package alarm turns nearby traffic and battery readings into spoken warnings.
package alarm

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/dyluth/stratux-companion/internal/settings"
	"github.com/dyluth/stratux-companion/internal/traffic"
	"github.com/dyluth/stratux-companion/internal/worker"
)

const (
	// DefaultInterval is how often traffic is checked against the alarm limits.
	DefaultInterval = 15 * time.Second

	// BatteryThrottle is the minimum gap between low battery announcements.
	BatteryThrottle = 5 * time.Minute

	// SummaryThreshold is the number of targets above which they are announced
	// in a single summary instead of one by one.
	SummaryThreshold = 4
)

type SettingsSource interface {
	Get() settings.Settings
}

// TrafficSource provides contacts sorted nearest first.
type TrafficSource interface {
	ClosestTraffic() []traffic.Contact
}

// Sayer queues text for speech. It must not block.
type Sayer interface {
	Say(text string)
}

// BatterySource reports the remaining battery charge in percent.
type BatterySource interface {
	BatteryPercent() (float64, error)
}

// Evaluator is the alarm worker task. Each tick it recomputes the alarm
// target list from the current traffic picture and announces it.
type Evaluator struct {
	settings SettingsSource
	traffic  TrafficSource
	sound    Sayer
	battery  BatterySource
	throttle *Throttle
	now      func() time.Time

	mu      sync.RWMutex
	targets []traffic.Contact
}

// NewEvaluator creates an evaluator. battery may be nil when no power
// sensor is fitted, in which case the battery alarm is skipped.
func NewEvaluator(s SettingsSource, t TrafficSource, sound Sayer, battery BatterySource) *Evaluator {
	return &Evaluator{
		settings: s,
		traffic:  t,
		sound:    sound,
		battery:  battery,
		throttle: NewThrottle(BatteryThrottle),
		now:      time.Now,
	}
}

// Tick evaluates traffic, then battery.
func (e *Evaluator) Tick(ctx context.Context, w *worker.Worker) error {
	cfg := e.settings.Get()

	e.evaluateTraffic(cfg)
	return e.evaluateBattery(cfg)
}

func (e *Evaluator) evaluateTraffic(cfg settings.Settings) {
	targets := Filter(e.traffic.ClosestTraffic(), cfg.MaxDistanceM, cfg.MaxAltitudeM)

	e.mu.Lock()
	e.targets = targets
	e.mu.Unlock()

	if len(targets) > 0 {
		log.Printf("[DEBUG] %d alarm targets", len(targets))
	}
	for _, text := range Announcements(targets) {
		e.sound.Say(text)
	}
}

func (e *Evaluator) evaluateBattery(cfg settings.Settings) error {
	if e.battery == nil || cfg.BatteryAlarmPercent <= 0 {
		return nil
	}

	percent, err := e.battery.BatteryPercent()
	if err != nil {
		return fmt.Errorf("failed to read battery level: %w", err)
	}

	if percent >= float64(cfg.BatteryAlarmPercent) {
		return nil
	}
	if !e.throttle.Allow(e.now()) {
		return nil
	}

	log.Printf("[WARN] Battery low: %.1f%%", percent)
	e.sound.Say(fmt.Sprintf("Low battery: %d percent", int(percent)))
	return nil
}

// Targets returns a copy of the alarm list computed by the last tick.
func (e *Evaluator) Targets() []traffic.Contact {
	e.mu.RLock()
	defer e.mu.RUnlock()

	targets := make([]traffic.Contact, len(e.targets))
	copy(targets, e.targets)
	return targets
}

// Filter returns the contacts within both limits, nearest first.
func Filter(contacts []traffic.Contact, maxDistanceM, maxAltitudeM int) []traffic.Contact {
	targets := make([]traffic.Contact, 0, len(contacts))
	for _, c := range contacts {
		if c.DistanceM > maxDistanceM || c.AltitudeM > maxAltitudeM {
			continue
		}
		targets = append(targets, c)
	}
	traffic.SortByDistance(targets)
	return targets
}

// Announcements renders the phrases to speak for a target list.
func Announcements(targets []traffic.Contact) []string {
	if len(targets) > SummaryThreshold {
		distances := make([]string, len(targets))
		for i, t := range targets {
			distances[i] = fmt.Sprintf("%d meters", Truncate(t.DistanceM))
		}
		return []string{fmt.Sprintf("%d targets, %s", len(targets), strings.Join(distances, ", "))}
	}

	phrases := make([]string, 0, len(targets))
	for _, t := range targets {
		phrases = append(phrases, fmt.Sprintf("%d meters away, %d meters up, at %d degrees",
			Truncate(t.DistanceM), Truncate(t.AltitudeM), Truncate(t.BearingDeg)))
	}
	return phrases
}
