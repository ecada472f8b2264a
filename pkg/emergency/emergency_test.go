package emergency

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/voicemap/pkg/geo"
	"github.com/teslashibe/voicemap/pkg/speech"
)

type spoken struct {
	text     string
	priority speech.Priority
}

type recordingSpeaker struct {
	mu    sync.Mutex
	calls []spoken
}

func (r *recordingSpeaker) Speak(text string, p speech.Priority) <-chan struct{} {
	r.mu.Lock()
	r.calls = append(r.calls, spoken{text, p})
	r.mu.Unlock()
	done := make(chan struct{})
	close(done)
	return done
}

func (r *recordingSpeaker) texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	for i, c := range r.calls {
		out[i] = c.text
	}
	return out
}

type fakeLocator struct {
	last   *geo.Location
	fix    geo.Location
	fixErr error
}

func (f *fakeLocator) Location() (geo.Location, bool) {
	if f.last == nil {
		return geo.Location{}, false
	}
	return *f.last, true
}

func (f *fakeLocator) CurrentOnce(context.Context) (geo.Location, error) {
	return f.fix, f.fixErr
}

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []Alert
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, a Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, a)
	return n.err
}

func (n *recordingNotifier) all() []Alert {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Alert(nil), n.alerts...)
}

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.Tick = 5 * time.Millisecond
	return cfg
}

func TestCountdown_FullSequence(t *testing.T) {
	last := geo.Location{Latitude: 40.7, Longitude: -74.0, AccuracyMeters: 9}
	loc := &fakeLocator{last: &last, fix: geo.Location{Latitude: 40.7128, Longitude: -74.006}}
	out := &recordingSpeaker{}
	notifier := &recordingNotifier{}
	c := NewCountdown(out, notifier, loc, fastConfig())

	assert.True(t, c.Press(context.Background()))
	assert.True(t, c.State().Active)

	want := []string{
		MsgPressed,
		"2",
		"1",
		MsgActivated,
		MsgNotified,
		"Emergency location: 40.712800, -74.006000",
	}
	require.Eventually(t, func() bool { return len(out.texts()) == len(want) }, time.Second, 5*time.Millisecond)
	assert.Equal(t, want, out.texts())

	for _, call := range out.calls {
		assert.Equal(t, speech.High, call.priority)
	}

	alerts := notifier.all()
	require.Len(t, alerts, 1)
	assert.NotEmpty(t, alerts[0].ID)
	require.NotNil(t, alerts[0].Location)
	assert.Equal(t, 40.7, alerts[0].Location.Latitude)

	state := c.State()
	assert.False(t, state.Active)
	assert.Equal(t, 0, state.Remaining)
	assert.False(t, state.LastTriggered.IsZero())
}

func TestCountdown_PressAgainCancels(t *testing.T) {
	out := &recordingSpeaker{}
	notifier := &recordingNotifier{}
	cfg := DefaultConfig()
	cfg.Tick = 50 * time.Millisecond
	c := NewCountdown(out, notifier, &fakeLocator{}, cfg)

	require.True(t, c.Press(context.Background()))
	assert.False(t, c.Press(context.Background()))

	assert.Never(t, func() bool { return len(notifier.all()) > 0 }, 250*time.Millisecond, 10*time.Millisecond)
	assert.Equal(t, []string{MsgPressed, MsgCancelled}, out.texts())
	assert.Equal(t, speech.Medium, out.calls[1].priority)
	assert.False(t, c.State().Active)
	assert.False(t, c.Cancel(), "nothing left to cancel")
}

func TestCountdown_CloseStopsSilently(t *testing.T) {
	out := &recordingSpeaker{}
	notifier := &recordingNotifier{}
	cfg := DefaultConfig()
	cfg.Tick = 50 * time.Millisecond
	c := NewCountdown(out, notifier, &fakeLocator{}, cfg)

	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Close())

	assert.Never(t, func() bool { return len(notifier.all()) > 0 }, 250*time.Millisecond, 10*time.Millisecond)
	assert.Equal(t, []string{MsgPressed}, out.texts())
	assert.False(t, c.State().Active)
	assert.NoError(t, c.Close())
}

func TestCountdown_StartWhileActive(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tick = time.Hour
	c := NewCountdown(&recordingSpeaker{}, &recordingNotifier{}, nil, cfg)
	t.Cleanup(func() { c.Cancel() })

	require.NoError(t, c.Start(context.Background()))
	assert.ErrorIs(t, c.Start(context.Background()), ErrActive)
	assert.Equal(t, 3, c.State().Remaining)
}

func TestCountdown_OutlivesCallerContext(t *testing.T) {
	out := &recordingSpeaker{}
	notifier := &recordingNotifier{}
	c := NewCountdown(out, notifier, &fakeLocator{fixErr: errors.New("no fix")}, fastConfig())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, c.Start(ctx))
	cancel()

	require.Eventually(t, func() bool { return len(notifier.all()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestCountdown_NoFix(t *testing.T) {
	out := &recordingSpeaker{}
	notifier := &recordingNotifier{err: errors.New("gateway down")}
	c := NewCountdown(out, notifier, &fakeLocator{fixErr: errors.New("timeout")}, fastConfig())

	require.NoError(t, c.Start(context.Background()))
	require.Eventually(t, func() bool {
		texts := out.texts()
		return len(texts) > 0 && texts[len(texts)-1] == MsgNoFix
	}, time.Second, 5*time.Millisecond)

	assert.Contains(t, out.texts(), MsgNotified, "notifier errors do not stop the sequence")
	assert.Nil(t, notifier.all()[0].Location)
}

func TestCountdown_OnChange(t *testing.T) {
	c := NewCountdown(&recordingSpeaker{}, &recordingNotifier{}, nil, fastConfig())

	var mu sync.Mutex
	var remaining []int
	c.OnChange(func(s State) {
		mu.Lock()
		remaining = append(remaining, s.Remaining)
		mu.Unlock()
	})

	require.NoError(t, c.Start(context.Background()))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(remaining) >= 3
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{3, 2, 1}, remaining[:3])
}

func TestLogNotifier(t *testing.T) {
	n := NewLogNotifier(nil)
	loc := geo.Location{Latitude: 1, Longitude: 2}
	assert.NoError(t, n.Notify(context.Background(), Alert{ID: "a", Location: &loc}))
}
