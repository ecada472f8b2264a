// Package speech is the spoken interface of voicemap: a serial announcer
// with priority preemption on the way out and a cancellable one-shot
// recognizer on the way in.
package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Priority orders announcements. High interrupts everything queued.
type Priority int

const (
	Low Priority = iota
	Medium
	High
)

func (p Priority) String() string {
	switch p {
	case Low:
		return "low"
	case High:
		return "high"
	default:
		return "medium"
	}
}

// MarshalText encodes the priority by name.
func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// ParsePriority parses "low", "medium" or "high".
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(s) {
	case "low":
		return Low, nil
	case "medium", "":
		return Medium, nil
	case "high":
		return High, nil
	default:
		return Medium, fmt.Errorf("speech: unknown priority %q", s)
	}
}

// Voice is one voice offered by a synthesis device. The zero Voice means
// the device default.
type Voice struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	Lang string `json:"lang,omitempty"`
}

// Utterance is one request to a synthesis device.
type Utterance struct {
	Text   string
	Voice  Voice
	Rate   float64
	Pitch  float64
	Volume float64
}

// Fixed delivery parameters for every announcement.
const (
	DefaultRate   = 0.9
	DefaultPitch  = 1.0
	DefaultVolume = 1.0
)

// Synthesizer is a speech output device.
type Synthesizer interface {
	// Voices lists the available voices. It may be empty.
	Voices() []Voice

	// Speak plays the utterance and returns when playback ends.
	// Cancelling ctx must stop playback promptly.
	Speak(ctx context.Context, u Utterance) error
}

// Announcement is a spoken message as seen by observers.
type Announcement struct {
	Text     string    `json:"text"`
	Priority Priority  `json:"priority"`
	At       time.Time `json:"at"`
}

// Recognizer captures a single utterance and returns its transcript.
type Recognizer interface {
	Recognize(ctx context.Context, locale string) (string, error)
}

// RecognizerFactory builds the platform recognizer. It returns
// ErrNotSupported when the capability is absent.
type RecognizerFactory func() (Recognizer, error)

var (
	// ErrNotSupported is returned when speech recognition is unavailable.
	ErrNotSupported = errors.New("speech: recognition not supported")

	// ErrCaptureStopped is returned by Capture after Stop cancelled it.
	ErrCaptureStopped = errors.New("speech: capture stopped")
)

// Recognition error codes reported by recognizers.
const (
	CodeNoSpeech     = "no-speech"
	CodeAudioCapture = "audio-capture"
	CodeNotAllowed   = "not-allowed"
	CodeNetwork      = "network"
	CodeAborted      = "aborted"
	CodeLanguage     = "language-not-supported"
	CodeUnknown      = "unknown"
)

// RecognitionError carries a recognizer error code.
type RecognitionError struct {
	Code string
	Err  error
}

func (e *RecognitionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("speech: recognition error %s: %v", e.Code, e.Err)
	}
	return "speech: recognition error " + e.Code
}

// Unwrap returns the underlying error.
func (e *RecognitionError) Unwrap() error {
	return e.Err
}
