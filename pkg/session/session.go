package session

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/teslashibe/voicemap/pkg/command"
	"github.com/teslashibe/voicemap/pkg/speech"
)

// Executor resolves and runs a transcript. *command.Interpreter
// implements it.
type Executor interface {
	Execute(ctx context.Context, transcript string, reg command.Registry, last string) command.Resolution
}

// Session is the voice command state machine. It owns the recognizer
// once Initialize succeeds and allows one capture at a time.
type Session struct {
	factory speech.RecognizerFactory
	out     command.Speaker
	exec    Executor
	locale  string
	logger  *slog.Logger
	metrics *MetricsCollector

	mu        sync.Mutex
	state     State
	input     *speech.Input
	registry  command.Registry
	last      string
	gen       uint64
	cancel    context.CancelFunc
	turn      string
	observers []func(Snapshot)
}

// Option configures a Session.
type Option func(*Session)

// WithLocale sets the recognition locale. Default "en-US".
func WithLocale(locale string) Option {
	return func(s *Session) { s.locale = locale }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *MetricsCollector) Option {
	return func(s *Session) { s.metrics = m }
}

// New creates a session. factory is called once, by Initialize. A nil
// factory means the device cannot recognize speech.
func New(factory speech.RecognizerFactory, out command.Speaker, exec Executor, reg command.Registry, opts ...Option) *Session {
	s := &Session{
		factory:  factory,
		out:      out,
		exec:     exec,
		registry: reg,
		locale:   "en-US",
		logger:   slog.Default(),
		metrics:  NewMetricsCollector(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "session.session")
	return s
}

// OnChange registers an observer called after every state change.
func (s *Session) OnChange(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Metrics returns the turn latency collector.
func (s *Session) Metrics() *MetricsCollector {
	return s.metrics
}

// Registry returns the active command registry.
func (s *Session) Registry() command.Registry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry
}

// SetRegistry replaces the command registry. A capture in flight is
// resolved against the new registry.
func (s *Session) SetRegistry(reg command.Registry) {
	s.mu.Lock()
	s.registry = reg
	s.mu.Unlock()
}

// Initialize builds the recognizer. It runs once: later calls are no-ops
// whatever the outcome. On failure the session is Unavailable and the
// returned error wraps ErrUnavailable.
func (s *Session) Initialize(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Uninitialized {
		s.mu.Unlock()
		return nil
	}
	s.state = Initializing
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	var (
		rec speech.Recognizer
		err error
	)
	if s.factory == nil {
		err = speech.ErrNotSupported
	} else {
		rec, err = s.factory()
		if err == nil && rec == nil {
			err = speech.ErrNotSupported
		}
	}

	s.mu.Lock()
	if err != nil {
		s.state = Unavailable
		s.out.Speak(msgUnavailable, speech.High)
	} else {
		s.input = speech.NewInput(rec, s.locale, s.logger)
		s.state = Ready
		s.out.Speak(msgReady, speech.Medium)
	}
	snap = s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	if err != nil {
		s.logger.Warn("voice recognition unavailable", "error", err)
		return errors.Join(ErrUnavailable, err)
	}
	s.logger.Info("voice recognition ready", "locale", s.locale)
	return nil
}

// Reinitialize retries initialization after it failed. It is a no-op in
// any other state.
func (s *Session) Reinitialize(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Unavailable {
		s.mu.Unlock()
		return nil
	}
	s.state = Uninitialized
	s.mu.Unlock()
	return s.Initialize(ctx)
}

// StartListening begins a capture in the background. Before
// initialization it initializes instead and returns ErrNotReady.
func (s *Session) StartListening(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case Uninitialized:
		s.mu.Unlock()
		if err := s.Initialize(ctx); err != nil {
			s.logger.Debug("lazy initialization failed", "error", err)
		}
		return ErrNotReady
	case Initializing:
		s.mu.Unlock()
		return ErrNotReady
	case Listening:
		s.mu.Unlock()
		return ErrAlreadyListening
	case Unavailable:
		s.mu.Unlock()
		return ErrUnavailable
	}

	s.gen++
	gen := s.gen
	cctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.state = Listening
	s.turn = s.metrics.Begin("voice")
	turn := s.turn
	s.out.Speak(msgListening, speech.Low)
	input := s.input
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	go s.capture(cctx, cancel, input, gen, turn)
	return nil
}

// StopListening cancels the capture in flight. Its result is discarded.
// It is a no-op unless Listening.
func (s *Session) StopListening() {
	s.mu.Lock()
	if s.state != Listening {
		s.mu.Unlock()
		return
	}
	s.stopLocked()
	s.out.Speak(msgStopped, speech.Low)
	turn := s.turn
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.metrics.MarkFailed(turn, "stopped")
	s.notify(snap)
}

// Submit runs a typed transcript through the same path as a captured one.
func (s *Session) Submit(ctx context.Context, text string) (command.Resolution, error) {
	transcript := strings.ToLower(strings.TrimSpace(text))
	if transcript == "" {
		return command.Resolution{}, ErrEmptyTranscript
	}

	turn := s.metrics.Begin("typed")
	s.metrics.MarkTranscript(turn, transcript)

	s.mu.Lock()
	prev := s.last
	s.last = transcript
	reg := s.registry
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	res := s.exec.Execute(ctx, transcript, reg, prev)
	s.metrics.MarkResolved(turn, res.Kind.String())
	return res, nil
}

// Close cancels any capture without speaking.
func (s *Session) Close() error {
	s.mu.Lock()
	listening := s.state == Listening
	if listening {
		s.stopLocked()
	}
	turn := s.turn
	s.mu.Unlock()

	if listening {
		s.metrics.MarkFailed(turn, "closed")
	}
	return nil
}

func (s *Session) capture(ctx context.Context, cancel context.CancelFunc, input *speech.Input, gen uint64, turn string) {
	defer cancel()
	transcript, err := input.Capture(ctx)

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.cancel = nil
	s.state = Ready

	if err != nil {
		s.out.Speak(msgError, speech.Medium)
		snap := s.snapshotLocked()
		s.mu.Unlock()

		code := "unknown"
		var recErr *speech.RecognitionError
		if errors.As(err, &recErr) {
			code = recErr.Code
		}
		s.logger.Warn("voice recognition error", "code", code, "error", err)
		s.metrics.MarkFailed(turn, code)
		s.notify(snap)
		return
	}

	prev := s.last
	s.last = transcript
	reg := s.registry
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.metrics.MarkTranscript(turn, transcript)
	s.notify(snap)

	res := s.exec.Execute(ctx, transcript, reg, prev)
	s.metrics.MarkResolved(turn, res.Kind.String())
}

func (s *Session) stopLocked() {
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.input != nil {
		s.input.Stop()
	}
	s.state = Ready
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		State:          s.state,
		IsListening:    s.state == Listening,
		IsInitialized:  s.state == Ready || s.state == Listening,
		LastTranscript: s.last,
	}
}

func (s *Session) notify(snap Snapshot) {
	s.mu.Lock()
	observers := slices.Clone(s.observers)
	s.mu.Unlock()
	for _, fn := range observers {
		fn(snap)
	}
}
