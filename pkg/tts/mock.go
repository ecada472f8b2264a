package tts

import (
	"context"
	"sync"
	"time"
)

// Mock implements Provider for testing.
// All methods can be customized via function fields.
type Mock struct {
	// SynthesizeFunc is called when Synthesize is invoked.
	// If nil, Synthesize fails with ErrProviderUnavailable.
	SynthesizeFunc func(ctx context.Context, req Request) (*AudioResult, error)

	// VoiceList is returned by Voices.
	VoiceList []Voice

	// CloseFunc is called when Close is invoked.
	CloseFunc func() error

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a method invocation for verification.
type MockCall struct {
	Method  string
	Request Request
	Time    time.Time
}

// NewMock creates a mock that returns 20ms of silence per character.
func NewMock() *Mock {
	return &Mock{
		VoiceList: []Voice{
			{ID: "mock-female", Name: "Mock Female", Lang: "en-US"},
			{ID: "mock-male", Name: "Mock Male", Lang: "en-US"},
		},
		SynthesizeFunc: func(ctx context.Context, req Request) (*AudioResult, error) {
			// 20ms at 24kHz PCM16 is 960 bytes
			silence := make([]byte, len(req.Text)*960)
			return &AudioResult{
				Audio:     silence,
				Format:    PCM24,
				Duration:  PCMDuration(len(silence), PCM24.SampleRate),
				CharCount: len(req.Text),
				LatencyMs: 1,
			}, nil
		},
	}
}

// Name implements Provider.
func (m *Mock) Name() string { return "mock" }

// Voices returns VoiceList.
func (m *Mock) Voices() []Voice {
	return append([]Voice(nil), m.VoiceList...)
}

// Synthesize calls SynthesizeFunc and records the call.
func (m *Mock) Synthesize(ctx context.Context, req Request) (*AudioResult, error) {
	m.recordCall("Synthesize", req)
	if m.SynthesizeFunc != nil {
		return m.SynthesizeFunc(ctx, req)
	}
	return nil, WrapError("mock", ErrProviderUnavailable)
}

// Close calls CloseFunc and records the call.
func (m *Mock) Close() error {
	m.recordCall("Close", Request{})
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

func (m *Mock) recordCall(method string, req Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{Method: method, Request: req, Time: time.Now()})
}

// Calls returns all recorded method calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// CallCount returns the number of times a method was called.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// LastCall returns the most recent call, or nil if none.
func (m *Mock) LastCall() *MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	call := m.calls[len(m.calls)-1]
	return &call
}

// Reset clears all recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// WithError returns a mock whose Synthesize always fails with err.
func WithError(err error) *Mock {
	m := NewMock()
	m.SynthesizeFunc = func(ctx context.Context, req Request) (*AudioResult, error) {
		return nil, err
	}
	return m
}

// WithLatency wraps a mock to add artificial latency.
func WithLatency(m *Mock, delay time.Duration) *Mock {
	original := m.SynthesizeFunc
	m.SynthesizeFunc = func(ctx context.Context, req Request) (*AudioResult, error) {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if original != nil {
			return original(ctx, req)
		}
		return nil, WrapError("mock", ErrProviderUnavailable)
	}
	return m
}

var _ Provider = (*Mock)(nil)
