// Package voicemap is the VoiceMap application: it ties location
// tracking, voice commands, hazard reports and emergency assistance to
// one speech channel.
package voicemap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/voicemap/pkg/command"
	"github.com/teslashibe/voicemap/pkg/emergency"
	"github.com/teslashibe/voicemap/pkg/geo"
	"github.com/teslashibe/voicemap/pkg/hazard"
	"github.com/teslashibe/voicemap/pkg/location"
	"github.com/teslashibe/voicemap/pkg/session"
	"github.com/teslashibe/voicemap/pkg/speech"
)

var (
	// ErrUnknownAction is returned by Dispatch for an unbound action.
	ErrUnknownAction = errors.New("voicemap: unknown action")

	// ErrUnknownScreen is returned for an invalid screen name.
	ErrUnknownScreen = errors.New("voicemap: unknown screen")

	// ErrNoLocation is returned when a hazard is reported without a fix.
	ErrNoLocation = errors.New("voicemap: location not available")
)

// Publisher receives application events. *hub.Hub implements it.
type Publisher interface {
	BroadcastJSON(v any) error
}

// Event is one message on the event stream.
type Event struct {
	Type string    `json:"type"`
	Time time.Time `json:"time"`
	Data any       `json:"data"`
}

// Event types.
const (
	EventStatus       = "status"
	EventAnnouncement = "announcement"
	EventLocation     = "location"
	EventVoice        = "voice"
	EventEmergency    = "emergency"
	EventScreen       = "screen"
	EventHazards      = "hazards"
	EventMetrics      = "metrics"
)

// Status is a snapshot of the whole application.
type Status struct {
	Screen        Screen           `json:"screen"`
	Navigating    bool             `json:"navigating"`
	Tracking      location.State   `json:"tracking"`
	LocationError string           `json:"location_error,omitempty"`
	Voice         session.Snapshot `json:"voice"`
	Emergency     emergency.State  `json:"emergency"`
	Hazards       int              `json:"hazards"`
	PendingSpeech int              `json:"pending_speech"`
}

// Options configures an App.
type Options struct {
	// Output is the speech channel. Required.
	Output *speech.Output

	// Hazards persists hazard reports. Required.
	Hazards hazard.Store

	// Source provides positions. Nil means no location capability.
	Source location.Source

	// Recognizers builds the speech recognizer. Nil means voice
	// commands are unavailable.
	Recognizers speech.RecognizerFactory

	// Locale is the recognition locale. Default "en-US".
	Locale string

	Commands  command.Registry
	Notifier  emergency.Notifier
	Navigator Navigator
	Publisher Publisher
	Emergency emergency.Config
	Tracking  []location.TrackerOption
	Logger    *slog.Logger
}

// App is the VoiceMap application orchestrator.
// It owns every component and their lifecycle.
type App struct {
	out       *speech.Output
	tracker   *location.Tracker
	session   *session.Session
	countdown *emergency.Countdown
	hazards   hazard.Store
	navigator Navigator
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time

	mu         sync.Mutex
	screen     Screen
	navigating bool
	runCtx     context.Context
}

// New creates an App. Call Start or Run to bring it up.
func New(opts Options) (*App, error) {
	if opts.Output == nil {
		return nil, errors.New("voicemap: output required")
	}
	if opts.Hazards == nil {
		return nil, errors.New("voicemap: hazard store required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Locale == "" {
		opts.Locale = "en-US"
	}
	if opts.Commands.Len() == 0 {
		opts.Commands = DefaultCommands()
	}
	if opts.Notifier == nil {
		opts.Notifier = emergency.NewLogNotifier(opts.Logger)
	}
	if opts.Navigator == nil {
		opts.Navigator = NewLogNavigator(opts.Logger)
	}
	if opts.Emergency.Seconds == 0 {
		opts.Emergency = emergency.DefaultConfig()
	}
	opts.Emergency.Logger = opts.Logger

	a := &App{
		out:       opts.Output,
		hazards:   opts.Hazards,
		navigator: opts.Navigator,
		publisher: opts.Publisher,
		logger:    opts.Logger.With("component", "voicemap.app"),
		now:       time.Now,
		screen:    ScreenHome,
		runCtx:    context.Background(),
	}

	trackerOpts := append([]location.TrackerOption{location.WithLogger(opts.Logger)}, opts.Tracking...)
	a.tracker = location.NewTracker(opts.Source, a.out, trackerOpts...)

	interp := command.NewInterpreter(a.out, a, opts.Logger)
	a.session = session.New(opts.Recognizers, a.out, interp, opts.Commands,
		session.WithLocale(opts.Locale),
		session.WithLogger(opts.Logger),
	)

	a.countdown = emergency.NewCountdown(a.out, opts.Notifier, a.tracker, opts.Emergency)

	a.out.OnAnnounce(func(an speech.Announcement) { a.publish(EventAnnouncement, an) })
	a.tracker.OnUpdate(func(s location.State) { a.publish(EventLocation, locationEvent(s)) })
	a.session.OnChange(func(s session.Snapshot) { a.publish(EventVoice, s) })
	a.session.Metrics().OnUpdate(func(i session.Interaction) { a.publish(EventMetrics, i) })
	a.countdown.OnChange(func(s emergency.State) { a.publish(EventEmergency, s) })

	return a, nil
}

// Start greets the user, starts location tracking and initializes voice
// commands. ctx bounds the whole application lifetime.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	a.runCtx = ctx
	a.mu.Unlock()

	if err := a.out.SpeakAndWait(ctx, MsgWelcome, speech.High); err != nil {
		return fmt.Errorf("voicemap: welcome: %w", err)
	}

	if err := a.tracker.Start(ctx); err != nil {
		a.logger.Warn("location tracking unavailable", "error", err)
	}

	a.logger.Info("hazards loaded", "count", a.hazards.Count())
	a.publish(EventHazards, a.hazards.List())

	if err := a.session.Initialize(ctx); err != nil {
		a.logger.Warn("voice commands unavailable", "error", err)
	}
	return nil
}

// Run starts the application and blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		return err
	}
	a.logger.Info("voicemap running")
	<-ctx.Done()
	return nil
}

// Close releases every component.
func (a *App) Close() error {
	return closeAll(a.countdown.Close, a.session.Close, a.tracker.Close, a.out.Close)
}

// Dispatch runs an application action. It implements command.Dispatcher.
func (a *App) Dispatch(ctx context.Context, action command.ActionID) error {
	switch action {
	case ActionAnnounceLocation:
		a.tracker.AnnounceCurrent()

	case ActionNavigate:
		a.setScreen(ScreenNavigate, false)
		a.mu.Lock()
		a.navigating = true
		a.mu.Unlock()
		var from *geo.Location
		if loc, ok := a.tracker.Location(); ok {
			from = &loc
		}
		if err := a.navigator.StartNavigation(ctx, from); err != nil {
			a.logger.Warn("navigation failed", "error", err)
		}
		a.out.Speak(MsgNavigation, speech.Medium)

	case ActionReportHazard:
		a.setScreen(ScreenHazards, false)
		a.out.Speak(MsgHazardMode, speech.Medium)

	case ActionEmergency:
		a.setScreen(ScreenEmergency, false)
		a.out.Speak(MsgEmergencyMode, speech.High)

	case ActionHome:
		a.setScreen(ScreenHome, false)
		a.out.Speak(MsgHome, speech.Medium)

	case ActionStartTracking:
		return a.StartTracking()

	case ActionStopTracking:
		a.StopTracking()

	default:
		return fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
	return nil
}

// StartTracking starts location tracking for the application lifetime.
func (a *App) StartTracking() error {
	if err := a.tracker.Start(a.lifetime()); err != nil {
		return err
	}
	a.out.Speak(MsgTrackingStarted, speech.Medium)
	return nil
}

// StopTracking stops location tracking.
func (a *App) StopTracking() {
	a.tracker.Stop()
	a.out.Speak(MsgTrackingStopped, speech.Medium)
}

// AnnounceLocation speaks the current location.
func (a *App) AnnounceLocation() {
	a.tracker.AnnounceCurrent()
}

// Submit runs a typed command.
func (a *App) Submit(ctx context.Context, text string) (command.Resolution, error) {
	return a.session.Submit(ctx, text)
}

// StartListening starts a voice capture.
func (a *App) StartListening(ctx context.Context) error {
	return a.session.StartListening(ctx)
}

// StopListening cancels the voice capture.
func (a *App) StopListening() {
	a.session.StopListening()
}

// Commands returns the active command bindings.
func (a *App) Commands() []command.Binding {
	return a.session.Registry().Bindings()
}

// SetScreen switches screens on direct user request and announces it.
func (a *App) SetScreen(name string) (Screen, error) {
	s, err := ParseScreen(name)
	if err != nil {
		return "", err
	}
	a.setScreen(s, true)
	return s, nil
}

// Hazards returns the reported hazards, oldest first.
func (a *App) Hazards() []hazard.Report {
	return a.hazards.List()
}

// ReportHazard files a hazard at the current location. Without a tracked
// location a one-shot fix is requested.
func (a *App) ReportHazard(ctx context.Context, description, severity string) (hazard.Report, error) {
	sev, err := hazard.ParseSeverity(severity)
	if err != nil {
		return hazard.Report{}, err
	}

	loc, ok := a.tracker.Location()
	if !ok {
		loc, err = a.tracker.CurrentOnce(ctx)
		if err != nil {
			return hazard.Report{}, fmt.Errorf("%w: %v", ErrNoLocation, err)
		}
	}

	r, err := hazard.NewReport(loc, description, sev, a.now())
	if err != nil {
		return hazard.Report{}, err
	}
	if err := a.hazards.Add(r); err != nil {
		return hazard.Report{}, err
	}

	a.logger.Info("hazard reported", "id", r.ID, "severity", r.Severity, "location", loc.Coordinates())
	a.out.Speak(r.Announcement(), speech.Medium)
	a.publish(EventHazards, a.hazards.List())
	return r, nil
}

// DeleteHazard removes a hazard report.
func (a *App) DeleteHazard(id string) error {
	if err := a.hazards.Delete(id); err != nil {
		return err
	}
	a.publish(EventHazards, a.hazards.List())
	return nil
}

// PressEmergency toggles the emergency countdown and reports whether a
// countdown is now running.
func (a *App) PressEmergency(ctx context.Context) bool {
	return a.countdown.Press(ctx)
}

// CancelEmergency cancels a running countdown.
func (a *App) CancelEmergency() bool {
	return a.countdown.Cancel()
}

// Status returns a snapshot of the application.
func (a *App) Status() Status {
	tracking := a.tracker.State()
	a.mu.Lock()
	screen, navigating := a.screen, a.navigating
	a.mu.Unlock()

	return Status{
		Screen:        screen,
		Navigating:    navigating,
		Tracking:      tracking,
		LocationError: tracking.ErrorText(),
		Voice:         a.session.Snapshot(),
		Emergency:     a.countdown.State(),
		Hazards:       a.hazards.Count(),
		PendingSpeech: a.out.Pending(),
	}
}

// Interactions returns recent voice command timings, oldest first.
func (a *App) Interactions() []session.Interaction {
	return a.session.Metrics().History()
}

// ReinitializeVoice retries speech recognition after it was unavailable.
func (a *App) ReinitializeVoice(ctx context.Context) error {
	return a.session.Reinitialize(ctx)
}

func (a *App) setScreen(s Screen, announce bool) {
	a.mu.Lock()
	a.screen = s
	if s != ScreenNavigate {
		a.navigating = false
	}
	a.mu.Unlock()

	if announce {
		a.out.Speak(s.Announcement(), speech.Low)
	}
	a.publish(EventScreen, s)
}

func (a *App) lifetime() context.Context {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.runCtx
}

func (a *App) publish(typ string, data any) {
	if a.publisher == nil {
		return
	}
	if err := a.publisher.BroadcastJSON(Event{Type: typ, Time: a.now(), Data: data}); err != nil {
		a.logger.Debug("publish failed", "type", typ, "error", err)
	}
}

// locationEvent adds the spoken error text, which State does not encode.
func locationEvent(s location.State) map[string]any {
	return map[string]any{
		"is_tracking": s.IsTracking,
		"location":    s.Location,
		"error":       s.ErrorText(),
	}
}

var _ command.Dispatcher = (*App)(nil)
