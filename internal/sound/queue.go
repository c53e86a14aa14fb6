// Package sound serialises speech and beep output through a single worker.
package sound

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/dyluth/stratux-companion/internal/settings"
	"github.com/dyluth/stratux-companion/internal/worker"
	"github.com/google/uuid"
)

const (
	// DefaultInterval is how often the queue is drained.
	DefaultInterval = 500 * time.Millisecond

	// StaleAfter is how old a speech request may get before it is dropped unspoken.
	StaleAfter = 5 * time.Second
)

// Beep is a short audio cue.
type Beep string

const (
	BeepSuccess Beep = "success"
	BeepInfo    Beep = "info"
)

// Request is a queued piece of speech.
type Request struct {
	ID         uuid.UUID
	Text       string
	EnqueuedAt time.Time
}

// Speaker produces audio. Both calls may block until playback ends.
type Speaker interface {
	Speak(ctx context.Context, text string) error
	Play(ctx context.Context, beep Beep) error
}

type SettingsSource interface {
	Get() settings.Settings
}

// Queue holds pending speech and beeps. Producers never block; the worker
// services at most one of each per tick.
type Queue struct {
	settings SettingsSource
	speaker  Speaker
	now      func() time.Time

	mu     sync.Mutex
	speech []Request
	beeps  []Beep
}

// NewQueue creates a queue with a success beep already pending, announcing startup.
func NewQueue(s SettingsSource, speaker Speaker) *Queue {
	q := &Queue{
		settings: s,
		speaker:  speaker,
		now:      time.Now,
	}
	q.Beep(BeepSuccess)
	return q
}

// Say queues text for speech.
func (q *Queue) Say(text string) {
	req := Request{ID: uuid.New(), Text: text, EnqueuedAt: q.now()}

	q.mu.Lock()
	q.speech = append(q.speech, req)
	q.mu.Unlock()

	log.Printf("[DEBUG] Queued speech %s: %s", req.ID, text)
}

// Beep queues a cue.
func (q *Queue) Beep(b Beep) {
	q.mu.Lock()
	q.beeps = append(q.beeps, b)
	q.mu.Unlock()
}

// Pending returns the number of queued speech requests and beeps.
func (q *Queue) Pending() (speech, beeps int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.speech), len(q.beeps)
}

// Tick services one speech request and one beep.
func (q *Queue) Tick(ctx context.Context, w *worker.Worker) error {
	var speakErr, playErr error

	if req, ok := q.popSpeech(); ok {
		speakErr = q.speak(ctx, req)
	}

	if beep, ok := q.popBeep(); ok {
		log.Printf("[DEBUG] Playing beep: %s", beep)
		if err := q.speaker.Play(ctx, beep); err != nil {
			playErr = fmt.Errorf("failed to play %s beep: %w", beep, err)
		}
	}

	return errors.Join(speakErr, playErr)
}

func (q *Queue) speak(ctx context.Context, req Request) error {
	if age := q.now().Sub(req.EnqueuedAt); age > StaleAfter {
		log.Printf("[DEBUG] Dropping stale speech %s (%s old)", req.ID, age.Round(time.Millisecond))
		return nil
	}

	log.Printf("[DEBUG] Speech text: %s", req.Text)
	if q.settings.Get().Mute {
		return nil
	}

	if err := q.speaker.Speak(ctx, req.Text); err != nil {
		return fmt.Errorf("failed to speak %s: %w", req.ID, err)
	}
	return nil
}

func (q *Queue) popSpeech() (Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.speech) == 0 {
		return Request{}, false
	}
	req := q.speech[0]
	q.speech[0] = Request{}
	q.speech = q.speech[1:]
	return req, true
}

func (q *Queue) popBeep() (Beep, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.beeps) == 0 {
		return "", false
	}
	b := q.beeps[0]
	q.beeps = q.beeps[1:]
	return b, true
}
