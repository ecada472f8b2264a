// Package session coordinates one-shot voice capture with command
// interpretation.
package session

import (
	"errors"
	"fmt"
)

// State is the voice session lifecycle state.
type State int

const (
	Uninitialized State = iota
	Initializing
	Ready
	Listening
	// Unavailable means the device has no recognition capability. It is
	// left only through Reinitialize.
	Unavailable
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	case Listening:
		return "listening"
	case Unavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

var (
	// ErrNotReady is returned by StartListening before initialization
	// has completed. Initialization has been started; call again.
	ErrNotReady = errors.New("session: not ready")

	// ErrAlreadyListening is returned when a capture is already running.
	ErrAlreadyListening = errors.New("session: already listening")

	// ErrUnavailable is returned when recognition is not available.
	ErrUnavailable = errors.New("session: voice recognition unavailable")

	// ErrEmptyTranscript is returned by Submit for blank text.
	ErrEmptyTranscript = errors.New("session: empty transcript")
)

// Snapshot is a copy of the session state.
type Snapshot struct {
	State          State  `json:"state"`
	IsListening    bool   `json:"is_listening"`
	IsInitialized  bool   `json:"is_initialized"`
	LastTranscript string `json:"last_transcript,omitempty"`
}

// Spoken messages.
const (
	msgReady       = `Voice commands ready. Say "help" for available commands.`
	msgUnavailable = "Voice recognition not available on this device."
	msgListening   = "Listening for command..."
	msgStopped     = "Stopped listening."
	msgError       = "Voice recognition error. Please try again."
)
