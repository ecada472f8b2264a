package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCollector_Turn(t *testing.T) {
	m := NewMetricsCollector()
	base := time.Unix(1_700_000_000, 0)
	tick := base
	m.now = func() time.Time { return tick }

	updates := make(chan Interaction, 1)
	m.OnUpdate(func(i Interaction) { updates <- i })

	id := m.Begin("voice")
	assert.NotEmpty(t, id)

	tick = base.Add(800 * time.Millisecond)
	m.MarkTranscript(id, "where am i")
	tick = base.Add(900 * time.Millisecond)
	m.MarkResolved(id, "matched")

	_, open := m.Current()
	assert.False(t, open)

	history := m.History()
	require.Len(t, history, 1)
	got := history[0]
	assert.Equal(t, "where am i", got.Transcript)
	assert.Equal(t, 800*time.Millisecond, got.CaptureLatency)
	assert.Equal(t, 100*time.Millisecond, got.ResolveLatency)
	assert.Equal(t, 900*time.Millisecond, got.TotalLatency)

	select {
	case u := <-updates:
		assert.Equal(t, id, u.ID)
	case <-time.After(time.Second):
		t.Fatal("no update")
	}
}

func TestMetricsCollector_OverlappingTurns(t *testing.T) {
	m := NewMetricsCollector()
	voice := m.Begin("voice")
	typed := m.Begin("typed")

	cur, open := m.Current()
	require.True(t, open)
	assert.Equal(t, typed, cur.ID)

	m.MarkResolved(typed, "home")
	cur, open = m.Current()
	require.True(t, open)
	assert.Equal(t, voice, cur.ID)

	m.MarkTranscript(voice, "where am i")
	m.MarkResolved(voice, "matched")

	history := m.History()
	require.Len(t, history, 2)
	assert.Equal(t, "typed", history[0].Source)
	assert.Equal(t, "voice", history[1].Source)
	assert.Equal(t, "where am i", history[1].Transcript)

	_, open = m.Current()
	assert.False(t, open)
}

func TestMetricsCollector_UnknownTurnIgnored(t *testing.T) {
	m := NewMetricsCollector()
	id := m.Begin("voice")
	m.MarkFailed(id, "no-speech")

	m.MarkResolved(id, "matched")
	m.MarkTranscript("nope", "hello")
	require.Len(t, m.History(), 1)
	assert.Equal(t, "failed: no-speech", m.History()[0].Outcome)
}

func TestMetricsCollector_OpenTurnsBounded(t *testing.T) {
	m := NewMetricsCollector()
	first := m.Begin("voice")
	for i := 0; i < maxOpen; i++ {
		m.Begin("voice")
	}
	m.MarkResolved(first, "matched")
	assert.Empty(t, m.History())
}

func TestMetricsCollector_Average(t *testing.T) {
	m := NewMetricsCollector()
	assert.Equal(t, Interaction{}, m.Average())

	base := time.Unix(0, 0)
	tick := base
	m.now = func() time.Time { return tick }

	for _, d := range []time.Duration{100 * time.Millisecond, 300 * time.Millisecond} {
		tick = base
		id := m.Begin("typed")
		tick = base.Add(d)
		m.MarkResolved(id, "help")
	}
	assert.Equal(t, 200*time.Millisecond, m.Average().TotalLatency)
}

func TestMetricsCollector_HistoryBounded(t *testing.T) {
	m := NewMetricsCollector()
	for i := 0; i < maxHistory+5; i++ {
		m.MarkFailed(m.Begin("voice"), "aborted")
	}
	assert.Len(t, m.History(), maxHistory)
}
