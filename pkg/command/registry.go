// Package command maps spoken transcripts to registered application actions.
package command

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyPhrase is returned when a binding has no trigger phrase.
var ErrEmptyPhrase = errors.New("command: empty trigger phrase")

// ActionID identifies an application action. The interpreter treats it as
// opaque and hands it to a Dispatcher.
type ActionID string

// Binding ties a trigger phrase to an action.
type Binding struct {
	// Phrase is the lower-cased trigger matched against transcripts.
	Phrase string `json:"phrase"`

	// Action is dispatched when the phrase matches.
	Action ActionID `json:"action"`

	// Description is spoken as "Executing: {description}".
	Description string `json:"description"`
}

// Registry is an ordered, immutable set of bindings. Order is the
// tie-break when several phrases match one transcript.
type Registry struct {
	bindings []Binding
}

// NewRegistry builds a registry in the given order. Phrases are trimmed
// and lower-cased.
func NewRegistry(bindings ...Binding) (Registry, error) {
	out := make([]Binding, len(bindings))
	for i, b := range bindings {
		b.Phrase = strings.ToLower(strings.TrimSpace(b.Phrase))
		if b.Phrase == "" {
			return Registry{}, fmt.Errorf("%w (binding %d, action %q)", ErrEmptyPhrase, i, b.Action)
		}
		out[i] = b
	}
	return Registry{bindings: out}, nil
}

// MustRegistry is NewRegistry that panics on error. Use it for static
// command sets.
func MustRegistry(bindings ...Binding) Registry {
	r, err := NewRegistry(bindings...)
	if err != nil {
		panic(err)
	}
	return r
}

// Bindings returns a copy of the bindings in registry order.
func (r Registry) Bindings() []Binding {
	return append([]Binding(nil), r.bindings...)
}

// Phrases returns the trigger phrases in registry order.
func (r Registry) Phrases() []string {
	out := make([]string, len(r.bindings))
	for i, b := range r.bindings {
		out[i] = b.Phrase
	}
	return out
}

// Len returns the number of bindings.
func (r Registry) Len() int {
	return len(r.bindings)
}

// Lookup returns the binding for an action.
func (r Registry) Lookup(action ActionID) (Binding, bool) {
	for _, b := range r.bindings {
		if b.Action == action {
			return b, true
		}
	}
	return Binding{}, false
}
