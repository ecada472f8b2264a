package speech

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
)

// Input runs one-shot captures on a recognizer. Only the most recent
// capture may deliver a result; Stop cancels it and suppresses its outcome.
type Input struct {
	rec    Recognizer
	locale string
	logger *slog.Logger

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// NewInput creates an input for rec with a fixed locale such as "en-US".
func NewInput(rec Recognizer, locale string, logger *slog.Logger) *Input {
	if logger == nil {
		logger = slog.Default()
	}
	return &Input{
		rec:    rec,
		locale: locale,
		logger: logger.With("component", "speech.input"),
	}
}

// Locale returns the recognition locale.
func (in *Input) Locale() string { return in.locale }

// Capture listens for a single utterance and returns its transcript,
// lower-cased and trimmed. A capture already in flight is cancelled.
func (in *Input) Capture(ctx context.Context) (string, error) {
	if in.rec == nil {
		return "", ErrNotSupported
	}

	in.mu.Lock()
	if in.cancel != nil {
		in.cancel()
	}
	in.gen++
	gen := in.gen
	cctx, cancel := context.WithCancel(ctx)
	in.cancel = cancel
	in.mu.Unlock()
	defer cancel()

	text, err := in.rec.Recognize(cctx, in.locale)

	in.mu.Lock()
	current := in.gen == gen
	if current {
		in.cancel = nil
	}
	in.mu.Unlock()

	if !current {
		return "", ErrCaptureStopped
	}
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		var recErr *RecognitionError
		if errors.As(err, &recErr) || errors.Is(err, ErrNotSupported) {
			return "", err
		}
		return "", &RecognitionError{Code: CodeUnknown, Err: err}
	}

	transcript := strings.ToLower(strings.TrimSpace(text))
	in.logger.Debug("captured transcript", "transcript", transcript)
	return transcript, nil
}

// Stop cancels the capture in flight, if any.
func (in *Input) Stop() {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.cancel == nil {
		return
	}
	in.cancel()
	in.cancel = nil
	in.gen++
}
