package audioio

import (
	"context"
	"io"
)

// Sink plays audio to a speaker or other output device.
type Sink interface {
	// Start prepares the device for playback.
	Start(ctx context.Context) error

	// Stop halts playback. It is safe to call Stop multiple times.
	Stop() error

	// Write queues a chunk for playback.
	Write(ctx context.Context, chunk AudioChunk) error

	// Flush blocks until queued audio has played or ctx is done.
	Flush(ctx context.Context) error

	// Clear discards queued audio immediately.
	Clear() error

	Config() Config

	// Name returns the backend name.
	Name() string

	io.Closer
}
