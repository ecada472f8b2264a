package audioio

import (
	"context"
	"io"
	"sync"
)

// MockSource replays a fixed list of chunks on every Start, then stays
// open until Stop.
type MockSource struct {
	cfg    Config
	chunks []AudioChunk

	mu      sync.Mutex
	running bool
	closed  bool
	starts  int
	stream  chan AudioChunk
	stopCh  chan struct{}
}

// NewMockSource creates a mock source that emits chunks after Start.
func NewMockSource(cfg Config, chunks ...AudioChunk) *MockSource {
	return &MockSource{cfg: cfg, chunks: chunks}
}

// Start begins replaying chunks.
func (m *MockSource) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return io.ErrClosedPipe
	}
	if m.running {
		return nil
	}

	m.running = true
	m.starts++
	m.stream = make(chan AudioChunk, len(m.chunks))
	m.stopCh = make(chan struct{})
	for _, c := range m.chunks {
		m.stream <- c
	}
	go func(stop chan struct{}) {
		select {
		case <-ctx.Done():
			m.mu.Lock()
			if m.stopCh == stop {
				m.stopLocked()
			}
			m.mu.Unlock()
		case <-stop:
		}
	}(m.stopCh)
	return nil
}

// Stop closes the stream.
func (m *MockSource) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
	return nil
}

func (m *MockSource) stopLocked() {
	if !m.running {
		return
	}
	m.running = false
	close(m.stopCh)
	close(m.stream)
}

// Stream returns the chunk channel of the current capture.
func (m *MockSource) Stream() <-chan AudioChunk {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stream
}

// Running reports whether a capture is active.
func (m *MockSource) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Starts returns how many times Start began a capture.
func (m *MockSource) Starts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts
}

// Config returns the audio configuration.
func (m *MockSource) Config() Config { return m.cfg }

// Name returns "mock".
func (m *MockSource) Name() string { return "mock" }

// Close stops the source; it cannot be restarted.
func (m *MockSource) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return m.Stop()
}

// MockSink records written audio.
type MockSink struct {
	cfg Config

	// FlushFunc replaces the default instant Flush. Use it to simulate
	// playback that takes time.
	FlushFunc func(ctx context.Context) error

	mu      sync.Mutex
	running bool
	closed  bool
	written []AudioChunk
	pending int
	clears  int
}

// NewMockSink creates a new mock audio sink.
func NewMockSink(cfg Config) *MockSink {
	return &MockSink{cfg: cfg}
}

// Start begins accepting audio.
func (m *MockSink) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return io.ErrClosedPipe
	}
	m.running = true
	return nil
}

// Stop halts audio acceptance.
func (m *MockSink) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	return nil
}

// Write records the chunk.
func (m *MockSink) Write(ctx context.Context, chunk AudioChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || !m.running {
		return io.ErrClosedPipe
	}
	m.written = append(m.written, chunk)
	m.pending += len(chunk.Samples)
	return nil
}

// Flush marks queued audio as played.
func (m *MockSink) Flush(ctx context.Context) error {
	if m.FlushFunc != nil {
		if err := m.FlushFunc(ctx); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = 0
	return ctx.Err()
}

// Clear discards queued audio.
func (m *MockSink) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = 0
	m.clears++
	return nil
}

// Written returns a copy of every chunk written so far.
func (m *MockSink) Written() []AudioChunk {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]AudioChunk(nil), m.written...)
}

// Clears returns how many times Clear was called.
func (m *MockSink) Clears() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clears
}

// Config returns the audio configuration.
func (m *MockSink) Config() Config { return m.cfg }

// Name returns "mock".
func (m *MockSink) Name() string { return "mock" }

// Close releases the sink.
func (m *MockSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.running = false
	return nil
}

var (
	_ Source = (*MockSource)(nil)
	_ Sink   = (*MockSink)(nil)
)
