package location

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/teslashibe/voicemap/pkg/geo"
	"github.com/teslashibe/voicemap/pkg/speech"
)

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("location: tracker closed")

// Announcer speaks tracker messages. Speak must not block or call back
// into the tracker.
type Announcer interface {
	Speak(text string, priority speech.Priority) <-chan struct{}
}

// State is a snapshot of the tracker.
type State struct {
	IsTracking bool          `json:"is_tracking"`
	LastError  error         `json:"-"`
	Location   *geo.Location `json:"location,omitempty"`
}

// ErrorText returns the spoken form of LastError, or "" if none.
func (s State) ErrorText() string {
	if s.LastError == nil {
		return ""
	}
	return ErrorMessage(s.LastError)
}

// Tracker owns the current location snapshot. Every asynchronous sample
// carries the generation of the Start that requested it and is dropped
// once Stop has moved the generation on.
type Tracker struct {
	src    Source
	out    Announcer
	logger *slog.Logger
	opts   Options
	now    func() time.Time

	mu        sync.Mutex
	state     State
	gen       uint64
	cancel    context.CancelFunc
	received  int
	closed    bool
	observers []func(State)
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithOptions overrides the device request options.
func WithOptions(opts Options) TrackerOption {
	return func(t *Tracker) { t.opts = opts }
}

// WithClock sets the clock used to stamp snapshots.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) TrackerOption {
	return func(t *Tracker) { t.logger = logger }
}

// NewTracker creates a tracker reading src and speaking through out.
// A nil src means the device has no position capability.
func NewTracker(src Source, out Announcer, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		src:    src,
		out:    out,
		logger: slog.Default(),
		opts:   DefaultOptions(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With("component", "location.tracker")
	return t
}

// OnUpdate registers an observer called with every new state.
func (t *Tracker) OnUpdate(fn func(State)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observers = append(t.observers, fn)
}

// State returns a copy of the current state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// Location returns the current snapshot, if any.
func (t *Tracker) Location() (geo.Location, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.Location == nil {
		return geo.Location{}, false
	}
	return *t.state.Location, true
}

// Start requests an immediate fix and subscribes to updates. It is a
// no-op while tracking.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	if t.state.IsTracking {
		t.mu.Unlock()
		return nil
	}
	if t.src == nil {
		t.state.LastError = ErrNotSupported
		t.out.Speak(ErrorMessage(ErrNotSupported), speech.High)
		snap := t.snapshotLocked()
		t.mu.Unlock()
		t.notify(snap)
		return ErrNotSupported
	}

	t.gen++
	gen := t.gen
	wctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.received = 0
	t.state.IsTracking = true
	t.state.LastError = nil
	snap := t.snapshotLocked()
	t.mu.Unlock()
	t.notify(snap)

	t.logger.Info("tracking started")

	go t.requestOnce(wctx, gen)

	updates, err := t.src.Watch(wctx, t.opts)
	if err != nil {
		t.fail(gen, t.classify(wctx, err))
		return nil
	}
	go t.consume(gen, updates)
	return nil
}

// Stop cancels the subscription. The last location is kept.
func (t *Tracker) Stop() {
	t.mu.Lock()
	if !t.state.IsTracking {
		t.mu.Unlock()
		return
	}
	t.gen++
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.state.IsTracking = false
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.logger.Info("tracking stopped")
	t.notify(snap)
}

// CurrentOnce requests a single fix without touching the tracking state.
func (t *Tracker) CurrentOnce(ctx context.Context) (geo.Location, error) {
	if t.src == nil {
		return geo.Location{}, ErrNotSupported
	}

	cctx, cancel := context.WithTimeout(ctx, t.opts.Timeout)
	defer cancel()

	s, err := t.src.Current(cctx, t.opts)
	if err != nil {
		if ctx.Err() != nil {
			return geo.Location{}, ctx.Err()
		}
		return geo.Location{}, t.classify(cctx, err)
	}
	return t.build(s)
}

// AnnounceCurrent speaks the current location at high priority.
func (t *Tracker) AnnounceCurrent() <-chan struct{} {
	loc, ok := t.Location()
	if !ok {
		return t.out.Speak("Location not available. Please enable location services.", speech.High)
	}
	return t.out.Speak(geo.FormatForSpeech(loc.Latitude, loc.Longitude), speech.High)
}

// Close stops tracking permanently.
func (t *Tracker) Close() error {
	t.Stop()
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	return nil
}

func (t *Tracker) requestOnce(ctx context.Context, gen uint64) {
	cctx, cancel := context.WithTimeout(ctx, t.opts.Timeout)
	defer cancel()

	s, err := t.src.Current(cctx, t.opts)
	if err != nil {
		t.fail(gen, t.classify(cctx, err))
		return
	}
	t.accept(gen, s)
}

func (t *Tracker) consume(gen uint64, updates <-chan Update) {
	for u := range updates {
		if u.Err != nil {
			t.fail(gen, u.Err)
			continue
		}
		t.accept(gen, u.Sample)
	}
}

func (t *Tracker) build(s Sample) (geo.Location, error) {
	loc, err := geo.NewLocation(s.Latitude, s.Longitude, s.Accuracy, t.now().UnixMilli())
	if err != nil {
		return geo.Location{}, fmt.Errorf("%w: %v", ErrPositionUnavailable, err)
	}
	return loc, nil
}

func (t *Tracker) accept(gen uint64, s Sample) {
	loc, err := t.build(s)
	if err != nil {
		t.fail(gen, err)
		return
	}

	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		return
	}
	t.state.Location = &loc
	t.received++
	if t.received > 1 {
		t.out.Speak(loc.Accuracy().UpdateAnnouncement(), speech.Low)
	}
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.logger.Debug("location updated",
		"lat", loc.Latitude,
		"lon", loc.Longitude,
		"accuracy_m", loc.AccuracyMeters,
	)
	t.notify(snap)
}

func (t *Tracker) fail(gen uint64, err error) {
	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		return
	}
	t.state.LastError = err
	t.out.Speak(ErrorMessage(err), speech.High)
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.logger.Warn("location error", "error", err)
	t.notify(snap)
}

// classify maps context expiry to ErrTimeout and leaves other errors as is.
func (t *Tracker) classify(ctx context.Context, err error) error {
	if errors.Is(err, ErrTimeout) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}

func (t *Tracker) snapshotLocked() State {
	s := t.state
	if s.Location != nil {
		loc := *s.Location
		s.Location = &loc
	}
	return s
}

func (t *Tracker) notify(s State) {
	t.mu.Lock()
	observers := slices.Clone(t.observers)
	t.mu.Unlock()
	for _, fn := range observers {
		fn(s)
	}
}
