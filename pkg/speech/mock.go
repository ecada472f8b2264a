package speech

import (
	"context"
	"sync"
)

// MockSynthesizer implements Synthesizer for testing.
type MockSynthesizer struct {
	// VoiceList is returned by Voices.
	VoiceList []Voice

	// SpeakFunc is called when Speak is invoked. If nil, Speak returns nil.
	SpeakFunc func(ctx context.Context, u Utterance) error

	mu     sync.Mutex
	spoken []Utterance
}

// NewMockSynthesizer creates a mock that finishes every utterance at once.
func NewMockSynthesizer(voices ...Voice) *MockSynthesizer {
	return &MockSynthesizer{VoiceList: voices}
}

// Voices returns VoiceList.
func (m *MockSynthesizer) Voices() []Voice {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Voice(nil), m.VoiceList...)
}

// Speak records the utterance and calls SpeakFunc.
func (m *MockSynthesizer) Speak(ctx context.Context, u Utterance) error {
	m.mu.Lock()
	m.spoken = append(m.spoken, u)
	fn := m.SpeakFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, u)
	}
	return nil
}

// Spoken returns every utterance passed to Speak.
func (m *MockSynthesizer) Spoken() []Utterance {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Utterance(nil), m.spoken...)
}

// Texts returns the text of every utterance passed to Speak.
func (m *MockSynthesizer) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	texts := make([]string, len(m.spoken))
	for i, u := range m.spoken {
		texts[i] = u.Text
	}
	return texts
}

// Reset clears recorded utterances.
func (m *MockSynthesizer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spoken = nil
}

// MockRecognizer implements Recognizer for testing.
type MockRecognizer struct {
	// RecognizeFunc is called when Recognize is invoked.
	// If nil, Recognize blocks until ctx is done.
	RecognizeFunc func(ctx context.Context, locale string) (string, error)

	mu      sync.Mutex
	calls   int
	locales []string
}

// Recognize records the call and delegates to RecognizeFunc.
func (m *MockRecognizer) Recognize(ctx context.Context, locale string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.locales = append(m.locales, locale)
	fn := m.RecognizeFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, locale)
	}
	<-ctx.Done()
	return "", ctx.Err()
}

// Calls returns how many times Recognize was invoked.
func (m *MockRecognizer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Locales returns the locale passed to each call.
func (m *MockRecognizer) Locales() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.locales...)
}

// Transcript returns a RecognizeFunc that always yields text.
func Transcript(text string) func(context.Context, string) (string, error) {
	return func(context.Context, string) (string, error) {
		return text, nil
	}
}

var (
	_ Synthesizer = (*MockSynthesizer)(nil)
	_ Recognizer  = (*MockRecognizer)(nil)
)
