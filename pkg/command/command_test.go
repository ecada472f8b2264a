package command

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/voicemap/pkg/speech"
)

func testRegistry() Registry {
	return MustRegistry(
		Binding{Phrase: "where am i", Action: "announce", Description: "Announce current location"},
		Binding{Phrase: "navigate", Action: "navigate", Description: "Start navigation mode"},
		Binding{Phrase: "emergency", Action: "emergency", Description: "Activate emergency assistance"},
		Binding{Phrase: "home", Action: "home", Description: "Return to home screen"},
	)
}

func TestNewRegistry(t *testing.T) {
	r, err := NewRegistry(Binding{Phrase: "  Where Am I ", Action: "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"where am i"}, r.Phrases())

	_, err = NewRegistry(Binding{Phrase: "ok", Action: "a"}, Binding{Phrase: " ", Action: "b"})
	assert.ErrorIs(t, err, ErrEmptyPhrase)

	assert.Panics(t, func() { MustRegistry(Binding{}) })
}

func TestRegistry_BindingsIsACopy(t *testing.T) {
	r := testRegistry()
	b := r.Bindings()
	b[0].Phrase = "changed"
	assert.Equal(t, "where am i", r.Bindings()[0].Phrase)

	got, ok := r.Lookup("home")
	require.True(t, ok)
	assert.Equal(t, "home", got.Phrase)
	_, ok = r.Lookup("missing")
	assert.False(t, ok)
}

func TestResolve(t *testing.T) {
	reg := testRegistry()

	tests := []struct {
		name       string
		transcript string
		last       string
		want       Resolution
	}{
		{
			name:       "exact phrase",
			transcript: "where am i",
			want:       Resolution{Kind: Matched, Action: "announce", Reply: "Executing: Announce current location", Priority: speech.Medium},
		},
		{
			name:       "extra words",
			transcript: "please navigate now",
			want:       Resolution{Kind: Matched, Action: "navigate", Reply: "Executing: Start navigation mode", Priority: speech.Medium},
		},
		{
			name:       "shortened phrase",
			transcript: "where",
			want:       Resolution{Kind: Matched, Action: "announce", Reply: "Executing: Announce current location", Priority: speech.Medium},
		},
		{
			name:       "help",
			transcript: "help",
			want:       Resolution{Kind: Help, Reply: "Available commands: where am i, navigate, emergency, home", Priority: speech.High},
		},
		{
			name:       "what can i say",
			transcript: "what can i say",
			want:       Resolution{Kind: Help, Reply: "Available commands: where am i, navigate, emergency, home", Priority: speech.High},
		},
		{
			name:       "repeat without history",
			transcript: "repeat",
			want:       Resolution{Kind: Repeat, Reply: "No previous command to repeat.", Priority: speech.Medium},
		},
		{
			name:       "repeat with history",
			transcript: "repeat",
			last:       "emergency",
			want:       Resolution{Kind: Repeat, Reply: "Last command was: emergency", Priority: speech.Medium},
		},
		{
			name:       "say again",
			transcript: "could you say again",
			last:       "home",
			want:       Resolution{Kind: Repeat, Reply: "Last command was: home", Priority: speech.Medium},
		},
		{
			name:       "unrecognized",
			transcript: "order pizza",
			want:       Resolution{Kind: Unrecognized, Reply: `Command not recognized: order pizza. Say "help" for available commands.`, Priority: speech.Medium},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.transcript, reg, tt.last))
		})
	}
}

func TestResolve_FirstMatchWins(t *testing.T) {
	reg := MustRegistry(
		Binding{Phrase: "navigate", Action: "A", Description: "a"},
		Binding{Phrase: "navigate to store", Action: "B", Description: "b"},
	)

	res := Resolve("navigate to store", reg, "")
	assert.Equal(t, Matched, res.Kind)
	assert.Equal(t, ActionID("A"), res.Action)
}

func TestResolve_HelpNeverDispatches(t *testing.T) {
	reg := MustRegistry(
		Binding{Phrase: "get help", Action: "helpdesk", Description: "Call the help desk"},
		Binding{Phrase: "help", Action: "helper", Description: "Helper"},
	)

	res := Resolve("help", reg, "")
	assert.Equal(t, Help, res.Kind)
	assert.Empty(t, res.Action)
	assert.Equal(t, "Available commands: get help, help", res.Reply)
}

func TestResolve_Deterministic(t *testing.T) {
	reg := testRegistry()
	for _, transcript := range []string{"where am i", "help", "repeat", "xyz", "go home"} {
		first := Resolve(transcript, reg, "navigate")
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, Resolve(transcript, reg, "navigate"))
		}
	}
}

func TestResolve_EmptyRegistry(t *testing.T) {
	var reg Registry
	assert.Equal(t, Unrecognized, Resolve("where am i", reg, "").Kind)
	assert.Equal(t, "Available commands: ", Resolve("help", reg, "").Reply)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "matched", Matched.String())
	assert.Equal(t, "unrecognized", Unrecognized.String())
	assert.Equal(t, "kind(9)", Kind(9).String())
}

type recordingSpeaker struct {
	mu    sync.Mutex
	texts []string
	prios []speech.Priority
}

func (r *recordingSpeaker) Speak(text string, p speech.Priority) <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
	r.prios = append(r.prios, p)
	done := make(chan struct{})
	close(done)
	return done
}

func TestInterpreter_Execute(t *testing.T) {
	out := &recordingSpeaker{}
	var dispatched []ActionID
	interp := NewInterpreter(out, DispatcherFunc(func(_ context.Context, a ActionID) error {
		dispatched = append(dispatched, a)
		return nil
	}), nil)

	res := interp.Execute(context.Background(), "go home", testRegistry(), "")
	assert.Equal(t, Matched, res.Kind)
	assert.Equal(t, []ActionID{"home"}, dispatched)
	assert.Equal(t, []string{"Executing: Return to home screen"}, out.texts)
	assert.Equal(t, []speech.Priority{speech.Medium}, out.prios)

	interp.Execute(context.Background(), "help", testRegistry(), "")
	assert.Len(t, dispatched, 1, "fallbacks do not dispatch")
	assert.Equal(t, speech.High, out.prios[1])
}

func TestInterpreter_DispatchErrorIsLogged(t *testing.T) {
	out := &recordingSpeaker{}
	interp := NewInterpreter(out, DispatcherFunc(func(context.Context, ActionID) error {
		return errors.New("screen unavailable")
	}), nil)

	res := interp.Execute(context.Background(), "navigate", testRegistry(), "")
	assert.Equal(t, ActionID("navigate"), res.Action)
	assert.Equal(t, []string{"Executing: Start navigation mode"}, out.texts, "reply spoken once")
}
