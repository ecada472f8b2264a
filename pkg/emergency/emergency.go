// Package emergency implements the emergency button: a short spoken
// countdown that can be cancelled, then a notification carrying the
// user's location.
package emergency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/voicemap/pkg/geo"
	"github.com/teslashibe/voicemap/pkg/speech"
)

// ErrActive is returned by Start while a countdown is running.
var ErrActive = errors.New("emergency: countdown already active")

// Spoken messages.
const (
	MsgPressed   = "Emergency button pressed. Activating emergency assistance in 3 seconds. Press again to cancel."
	MsgActivated = "Emergency assistance activated. Attempting to contact emergency services and your emergency contacts."
	MsgNotified  = "Emergency services have been notified. Help is on the way. Stay calm and remain in your current location if safe."
	MsgNoFix     = "Unable to get precise location for emergency services."
	MsgCancelled = "Emergency call cancelled."
)

// Speaker queues announcements.
type Speaker interface {
	Speak(text string, priority speech.Priority) <-chan struct{}
}

// Locator provides the user's position. *location.Tracker implements it.
type Locator interface {
	Location() (geo.Location, bool)
	CurrentOnce(ctx context.Context) (geo.Location, error)
}

// Alert is sent to the Notifier when the countdown completes.
type Alert struct {
	ID          string        `json:"id"`
	TriggeredAt time.Time     `json:"triggered_at"`
	Location    *geo.Location `json:"location,omitempty"`
}

// Notifier delivers an emergency alert.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// LogNotifier records alerts in the log. It contacts no one.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With("component", "emergency.notifier")}
}

// Notify logs the alert.
func (n *LogNotifier) Notify(ctx context.Context, alert Alert) error {
	args := []any{"alert_id", alert.ID}
	if alert.Location != nil {
		args = append(args, "location", alert.Location.Coordinates(), "accuracy_m", alert.Location.AccuracyMeters)
	}
	n.logger.Warn("emergency triggered", args...)
	return nil
}

// State is a snapshot of the countdown.
type State struct {
	Active        bool      `json:"active"`
	Remaining     int       `json:"remaining"`
	LastTriggered time.Time `json:"last_triggered,omitempty"`
}

// Config configures a Countdown.
type Config struct {
	// Seconds is the countdown length.
	Seconds int

	// Tick is the countdown interval, one second outside tests.
	Tick time.Duration

	Logger *slog.Logger
}

// DefaultConfig returns a three second countdown.
func DefaultConfig() Config {
	return Config{Seconds: 3, Tick: time.Second}
}

// Countdown runs the emergency sequence.
type Countdown struct {
	out      Speaker
	notifier Notifier
	locator  Locator
	cfg      Config
	logger   *slog.Logger

	mu       sync.Mutex
	state    State
	gen      uint64
	cancel   context.CancelFunc
	onChange []func(State)
}

// NewCountdown creates a countdown.
func NewCountdown(out Speaker, notifier Notifier, locator Locator, cfg Config) *Countdown {
	if cfg.Seconds <= 0 {
		cfg.Seconds = 3
	}
	if cfg.Tick <= 0 {
		cfg.Tick = time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Countdown{
		out:      out,
		notifier: notifier,
		locator:  locator,
		cfg:      cfg,
		logger:   logger.With("component", "emergency.countdown"),
	}
}

// OnChange registers an observer for state changes.
func (c *Countdown) OnChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = append(c.onChange, fn)
}

// State returns the current state.
func (c *Countdown) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Press toggles the button: it starts a countdown, or cancels the one
// running. It reports whether a countdown is now active.
func (c *Countdown) Press(ctx context.Context) bool {
	if c.Cancel() {
		return false
	}
	return c.Start(ctx) == nil
}

// Start begins the countdown. The sequence outlives ctx's cancellation
// and stops only through Cancel.
func (c *Countdown) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Active {
		c.mu.Unlock()
		return ErrActive
	}
	c.gen++
	gen := c.gen
	rctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	c.state.Active = true
	c.state.Remaining = c.cfg.Seconds
	c.out.Speak(MsgPressed, speech.High)
	snap := c.state
	c.mu.Unlock()

	c.logger.Info("countdown started", "seconds", c.cfg.Seconds)
	c.notify(snap)

	go c.run(rctx, cancel, gen)
	return nil
}

// Cancel stops a running countdown and reports whether one was running.
// It has no effect once the alert has been sent.
func (c *Countdown) Cancel() bool {
	c.mu.Lock()
	if !c.state.Active {
		c.mu.Unlock()
		return false
	}
	c.stopLocked()
	c.out.Speak(MsgCancelled, speech.Medium)
	snap := c.state
	c.mu.Unlock()

	c.logger.Info("countdown cancelled")
	c.notify(snap)
	return true
}

// Close stops a running countdown without speaking, so no alert is sent
// after shutdown.
func (c *Countdown) Close() error {
	c.mu.Lock()
	if !c.state.Active {
		c.mu.Unlock()
		return nil
	}
	c.stopLocked()
	snap := c.state
	c.mu.Unlock()

	c.logger.Info("countdown stopped on close")
	c.notify(snap)
	return nil
}

func (c *Countdown) stopLocked() {
	c.gen++
	c.cancel()
	c.cancel = nil
	c.state.Active = false
	c.state.Remaining = 0
}

func (c *Countdown) run(ctx context.Context, cancel context.CancelFunc, gen uint64) {
	defer cancel()

	ticker := time.NewTicker(c.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		c.mu.Lock()
		if gen != c.gen {
			c.mu.Unlock()
			return
		}
		c.state.Remaining--
		if c.state.Remaining > 0 {
			c.out.Speak(strconv.Itoa(c.state.Remaining), speech.High)
			snap := c.state
			c.mu.Unlock()
			c.notify(snap)
			continue
		}
		c.state.Active = false
		c.state.LastTriggered = time.Now()
		c.cancel = nil
		snap := c.state
		c.mu.Unlock()

		c.notify(snap)
		c.trigger(ctx, snap.LastTriggered)
		return
	}
}

// trigger sends the alert and speaks the follow-up messages in order.
func (c *Countdown) trigger(ctx context.Context, at time.Time) {
	c.say(ctx, MsgActivated)

	alert := Alert{ID: uuid.NewString(), TriggeredAt: at}
	if c.locator != nil {
		if loc, ok := c.locator.Location(); ok {
			alert.Location = &loc
		}
	}
	if err := c.notifier.Notify(ctx, alert); err != nil {
		c.logger.Error("notify failed", "alert_id", alert.ID, "error", err)
	}
	c.say(ctx, MsgNotified)

	if c.locator == nil {
		c.say(ctx, MsgNoFix)
		return
	}
	loc, err := c.locator.CurrentOnce(ctx)
	if err != nil {
		c.logger.Warn("emergency location unavailable", "error", err)
		c.say(ctx, MsgNoFix)
		return
	}
	c.logger.Info("emergency location", "location", loc.Coordinates(), "accuracy_m", loc.AccuracyMeters)
	c.say(ctx, LocationMessage(loc))
}

// say speaks at high priority and waits for it to finish.
func (c *Countdown) say(ctx context.Context, text string) {
	select {
	case <-c.out.Speak(text, speech.High):
	case <-ctx.Done():
	}
}

// LocationMessage is the sentence that reads out an emergency fix.
func LocationMessage(loc geo.Location) string {
	return fmt.Sprintf("Emergency location: %.6f, %.6f", loc.Latitude, loc.Longitude)
}

func (c *Countdown) notify(s State) {
	c.mu.Lock()
	observers := slices.Clone(c.onChange)
	c.mu.Unlock()
	for _, fn := range observers {
		fn(s)
	}
}

var _ Notifier = (*LogNotifier)(nil)
