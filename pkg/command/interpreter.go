package command

import (
	"context"
	"log/slog"

	"github.com/teslashibe/voicemap/pkg/speech"
)

// Dispatcher runs application actions.
type Dispatcher interface {
	Dispatch(ctx context.Context, action ActionID) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, action ActionID) error

// Dispatch calls f.
func (f DispatcherFunc) Dispatch(ctx context.Context, action ActionID) error {
	return f(ctx, action)
}

// Speaker queues announcements.
type Speaker interface {
	Speak(text string, priority speech.Priority) <-chan struct{}
}

// Interpreter resolves transcripts, speaks the reply and dispatches the
// matched action.
type Interpreter struct {
	out      Speaker
	dispatch Dispatcher
	logger   *slog.Logger
}

// NewInterpreter creates an interpreter.
func NewInterpreter(out Speaker, dispatch Dispatcher, logger *slog.Logger) *Interpreter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Interpreter{
		out:      out,
		dispatch: dispatch,
		logger:   logger.With("component", "command.interpreter"),
	}
}

// Execute resolves transcript against reg, speaks the reply and, for a
// match, dispatches the action. Dispatch errors are logged only; the
// reply has already been spoken.
func (i *Interpreter) Execute(ctx context.Context, transcript string, reg Registry, last string) Resolution {
	res := Resolve(transcript, reg, last)
	i.logger.Info("command resolved",
		"transcript", transcript,
		"kind", res.Kind.String(),
		"action", res.Action,
	)

	i.out.Speak(res.Reply, res.Priority)

	if res.Kind == Matched && i.dispatch != nil {
		if err := i.dispatch.Dispatch(ctx, res.Action); err != nil {
			i.logger.Error("action failed", "action", res.Action, "error", err)
		}
	}
	return res
}
