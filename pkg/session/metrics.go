package session

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Interaction records the timing of one command turn, from capture start
// (or typed submission) to resolution.
type Interaction struct {
	ID     string `json:"id"`
	Source string `json:"source"` // "voice" or "typed"

	StartedAt    time.Time `json:"started_at"`
	TranscriptAt time.Time `json:"transcript_at,omitempty"`
	ResolvedAt   time.Time `json:"resolved_at,omitempty"`

	Transcript string `json:"transcript,omitempty"`
	Outcome    string `json:"outcome,omitempty"`

	CaptureLatency time.Duration `json:"capture_latency"`
	ResolveLatency time.Duration `json:"resolve_latency"`
	TotalLatency   time.Duration `json:"total_latency"`
}

const (
	maxHistory = 100
	// maxOpen bounds turns that were begun but never finished.
	maxOpen = 16
)

// MetricsCollector collects latency for command turns. Turns are keyed by
// ID, so a typed command during a voice capture records both.
// It is safe for concurrent use.
type MetricsCollector struct {
	mu      sync.Mutex
	now     func() time.Time
	open    map[string]*Interaction
	order   []string
	history []Interaction

	onUpdate func(Interaction)
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		now:     time.Now,
		open:    make(map[string]*Interaction),
		history: make([]Interaction, 0, maxHistory),
	}
}

// OnUpdate sets a callback fired when a turn completes.
func (m *MetricsCollector) OnUpdate(fn func(Interaction)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onUpdate = fn
}

// Begin starts a new turn and returns its ID.
func (m *MetricsCollector) Begin(source string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := &Interaction{
		ID:        uuid.NewString(),
		Source:    source,
		StartedAt: m.now(),
	}
	m.open[i.ID] = i
	m.order = append(m.order, i.ID)
	if len(m.order) > maxOpen {
		delete(m.open, m.order[0])
		m.order = m.order[1:]
	}
	return i.ID
}

// MarkTranscript records when the transcript arrived.
func (m *MetricsCollector) MarkTranscript(id, transcript string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.open[id]
	if !ok {
		return
	}
	c.Transcript = transcript
	c.TranscriptAt = m.now()
	c.CaptureLatency = c.TranscriptAt.Sub(c.StartedAt)
}

// MarkResolved finishes the turn with the resolution outcome.
func (m *MetricsCollector) MarkResolved(id, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.open[id]
	if !ok {
		return
	}
	c.ResolvedAt = m.now()
	c.Outcome = outcome
	if !c.TranscriptAt.IsZero() {
		c.ResolveLatency = c.ResolvedAt.Sub(c.TranscriptAt)
	}
	c.TotalLatency = c.ResolvedAt.Sub(c.StartedAt)
	m.finish(id)
}

// MarkFailed finishes the turn without a transcript.
func (m *MetricsCollector) MarkFailed(id, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.open[id]
	if !ok {
		return
	}
	c.Outcome = "failed: " + reason
	c.TotalLatency = m.now().Sub(c.StartedAt)
	m.finish(id)
}

// Current returns the most recently begun turn still in progress, if any.
func (m *MetricsCollector) Current() (Interaction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.order) == 0 {
		return Interaction{}, false
	}
	return *m.open[m.order[len(m.order)-1]], true
}

// History returns completed turns, oldest first.
func (m *MetricsCollector) History() []Interaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Interaction(nil), m.history...)
}

// Average returns mean latencies over completed turns.
func (m *MetricsCollector) Average() Interaction {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.history) == 0 {
		return Interaction{}
	}

	var avg Interaction
	for _, h := range m.history {
		avg.CaptureLatency += h.CaptureLatency
		avg.ResolveLatency += h.ResolveLatency
		avg.TotalLatency += h.TotalLatency
	}
	n := time.Duration(len(m.history))
	avg.CaptureLatency /= n
	avg.ResolveLatency /= n
	avg.TotalLatency /= n
	return avg
}

// finish archives turn id. Must be called with mu held.
func (m *MetricsCollector) finish(id string) {
	done := *m.open[id]
	delete(m.open, id)
	m.order = slices.DeleteFunc(m.order, func(x string) bool { return x == id })

	m.history = append(m.history, done)
	if len(m.history) > maxHistory {
		m.history = m.history[1:]
	}
	if m.onUpdate != nil {
		go m.onUpdate(done)
	}
}
