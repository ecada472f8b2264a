package command

import (
	"fmt"
	"strings"

	"github.com/teslashibe/voicemap/pkg/speech"
)

// Kind says which branch of Resolve produced a Resolution.
type Kind int

const (
	// Matched means a registered binding was selected.
	Matched Kind = iota
	// Help lists the registered phrases.
	Help
	// Repeat reports the previous transcript.
	Repeat
	// Unrecognized means nothing matched.
	Unrecognized
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Matched:
		return "matched"
	case Help:
		return "help"
	case Repeat:
		return "repeat"
	case Unrecognized:
		return "unrecognized"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Resolution is the outcome of resolving one transcript. Reply is always
// set; Action is set only for Matched.
type Resolution struct {
	Kind     Kind            `json:"kind"`
	Action   ActionID        `json:"action,omitempty"`
	Reply    string          `json:"reply"`
	Priority speech.Priority `json:"priority"`
}

// Resolve picks the first binding whose phrase is contained in the
// transcript or contains it. Without a match it falls back to help,
// repeat, then a not-recognized reply. last is the previous transcript,
// "" if there was none.
//
// A bare help request ("help", "what can") always lists the commands,
// even when a registered phrase contains it.
//
// Short phrases match liberally: "home" matches any transcript that
// mentions it, and any one-word transcript that is part of a phrase
// selects that phrase.
func Resolve(transcript string, reg Registry, last string) Resolution {
	if transcript == "help" || transcript == "what can" {
		return help(reg)
	}

	for _, b := range reg.bindings {
		if strings.Contains(transcript, b.Phrase) || strings.Contains(b.Phrase, transcript) {
			return Resolution{
				Kind:     Matched,
				Action:   b.Action,
				Reply:    "Executing: " + b.Description,
				Priority: speech.Medium,
			}
		}
	}

	switch {
	case strings.Contains(transcript, "help") || strings.Contains(transcript, "what can"):
		return help(reg)
	case strings.Contains(transcript, "repeat") || strings.Contains(transcript, "say again"):
		reply := "No previous command to repeat."
		if last != "" {
			reply = "Last command was: " + last
		}
		return Resolution{Kind: Repeat, Reply: reply, Priority: speech.Medium}
	default:
		return Resolution{
			Kind:     Unrecognized,
			Reply:    fmt.Sprintf("Command not recognized: %s. Say \"help\" for available commands.", transcript),
			Priority: speech.Medium,
		}
	}
}

func help(reg Registry) Resolution {
	return Resolution{
		Kind:     Help,
		Reply:    "Available commands: " + strings.Join(reg.Phrases(), ", "),
		Priority: speech.High,
	}
}
