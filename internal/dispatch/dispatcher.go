// Package dispatch applies admission control to coaching messages: a bounded
// active set, a FIFO backlog, and an adaptive cooldown between displays.
package dispatch

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/prepcoach/internal/domain"
)

// EventKind classifies outbound dispatcher events
type EventKind string

const (
	EventDisplayed EventKind = "displayed"
	EventDismissed EventKind = "dismissed"
	EventExpired   EventKind = "expired"
)

// Event is what the UI boundary consumes
type Event struct {
	Kind    EventKind              `json:"kind"`
	Message domain.CoachingMessage `json:"message"`
}

// Cooldown bands. High stress slows the message cadence down, low engagement
// speeds it up.
const (
	cooldownCalm       = 30 * time.Second
	cooldownStressed   = 45 * time.Second
	cooldownDisengaged = 20 * time.Second

	stressSlowdownThreshold   = 0.6
	engagementSpeedupThreshold = 0.5
)

// DefaultMaxActive is the default active-set capacity
const DefaultMaxActive = 2

const eventBuffer = 64

// Dispatcher is the admission controller for one session's messages. It is
// not safe for concurrent use; the owning session serializes calls.
type Dispatcher struct {
	maxActive int
	active    []domain.CoachingMessage
	backlog   []domain.TutoringAction
	lastShown time.Time
	shown     int

	events chan Event
	closed bool
	logger *slog.Logger
	now    func() time.Time
}

// New creates a dispatcher with the given active-set capacity
func New(maxActive int, logger *slog.Logger) *Dispatcher {
	if maxActive < 1 {
		maxActive = DefaultMaxActive
	}
	return &Dispatcher{
		maxActive: maxActive,
		events:    make(chan Event, eventBuffer),
		logger:    logger,
		now:       time.Now,
	}
}

// Events returns the outbound event stream. The channel is buffered; if the
// consumer falls far enough behind, events are dropped with a warning rather
// than blocking the session loop.
func (d *Dispatcher) Events() <-chan Event {
	return d.events
}

// Cooldown returns the currently applicable gap between displays
func Cooldown(stress, engagement float64) time.Duration {
	switch {
	case stress > stressSlowdownThreshold:
		return cooldownStressed
	case engagement < engagementSpeedupThreshold:
		return cooldownDisengaged
	default:
		return cooldownCalm
	}
}

// Dispatch submits an action for display. If the cooldown has not elapsed or
// the active set is full, the action is queued in arrival order instead.
// Urgent actions skip the cooldown gate and jump the backlog.
func (d *Dispatcher) Dispatch(action domain.TutoringAction, stress, engagement float64) {
	now := d.now()
	urgent := action.Priority == domain.PriorityUrgent

	if len(d.active) >= d.maxActive {
		if urgent {
			d.backlog = append([]domain.TutoringAction{action}, d.backlog...)
		} else {
			d.backlog = append(d.backlog, action)
		}
		d.logger.Debug("message queued", "type", action.Type, "backlog", len(d.backlog))
		return
	}

	cooldown := Cooldown(stress, engagement)
	if !urgent && !d.lastShown.IsZero() && now.Sub(d.lastShown) < cooldown {
		d.backlog = append(d.backlog, action)
		d.logger.Debug("message queued", "type", action.Type, "backlog", len(d.backlog))
		return
	}
	d.admit(action, now)
}

// Dismiss removes an active message and, if room remains, admits the oldest
// backlog entry. Returns false for unknown IDs.
func (d *Dispatcher) Dismiss(id uuid.UUID) bool {
	for i, m := range d.active {
		if m.ID != id {
			continue
		}
		d.active = append(d.active[:i], d.active[i+1:]...)
		d.emit(Event{Kind: EventDismissed, Message: m})
		d.drain()
		return true
	}
	return false
}

// Tick expires overdue messages and drains the backlog into freed capacity.
// Driven by the session's periodic evaluator.
func (d *Dispatcher) Tick() {
	now := d.now()

	kept := d.active[:0]
	for _, m := range d.active {
		if now.Before(m.ExpiresAt) {
			kept = append(kept, m)
			continue
		}
		d.emit(Event{Kind: EventExpired, Message: m})
	}
	d.active = kept

	d.drain()
}

// Active returns the currently displayed messages, oldest first
func (d *Dispatcher) Active() []domain.CoachingMessage {
	out := make([]domain.CoachingMessage, len(d.active))
	copy(out, d.active)
	return out
}

// Pending returns the backlog depth
func (d *Dispatcher) Pending() int {
	return len(d.backlog)
}

// Shown returns the number of messages displayed so far
func (d *Dispatcher) Shown() int {
	return d.shown
}

// Close releases the event stream. Later calls emit nothing; closing twice
// is a safe no-op.
func (d *Dispatcher) Close() {
	if d.closed {
		return
	}
	d.closed = true
	close(d.events)
}

// drain admits backlog entries while capacity allows. Draining into freed
// capacity is exempt from the cooldown gate but still advances lastShown.
func (d *Dispatcher) drain() {
	for len(d.backlog) > 0 && len(d.active) < d.maxActive {
		next := d.backlog[0]
		d.backlog = d.backlog[1:]
		d.admit(next, d.now())
	}
}

func (d *Dispatcher) admit(action domain.TutoringAction, now time.Time) {
	msg := domain.CoachingMessage{
		TutoringAction: action,
		DisplayedAt:    now,
		ExpiresAt:      now.Add(action.Duration),
	}
	d.active = append(d.active, msg)
	d.lastShown = now
	d.shown++
	d.emit(Event{Kind: EventDisplayed, Message: msg})
}

func (d *Dispatcher) emit(ev Event) {
	if d.closed {
		return
	}
	select {
	case d.events <- ev:
	default:
		d.logger.Warn("event consumer behind, dropping event", "kind", ev.Kind, "message_id", ev.Message.ID)
	}
}
