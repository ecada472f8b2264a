package stt

// Server message types.
const (
	typeBegin       = "Begin"
	typeTurn        = "Turn"
	typeTermination = "Termination"
	typeError       = "Error"
)

type message struct {
	Type string `json:"type"`

	// Begin
	ID        string `json:"id,omitempty"`
	ExpiresAt int64  `json:"expires_at,omitempty"`

	// Turn
	Transcript      string `json:"transcript,omitempty"`
	EndOfTurn       bool   `json:"end_of_turn,omitempty"`
	TurnIsFormatted bool   `json:"turn_is_formatted,omitempty"`

	// Termination
	AudioDurationSeconds float64 `json:"audio_duration_seconds,omitempty"`

	// Error
	Error string `json:"error,omitempty"`
}

type terminate struct {
	Type string `json:"type"`
}

var terminateMessage = terminate{Type: "Terminate"}
