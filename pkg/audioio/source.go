package audioio

import (
	"context"
	"io"
	"time"
)

// AudioChunk is a block of little-endian PCM16 samples.
type AudioChunk struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// ChunkFromBytes builds a chunk from raw PCM16 bytes.
func ChunkFromBytes(data []byte, sampleRate, channels int) AudioChunk {
	return AudioChunk{
		Samples:    BytesToSamples(data),
		SampleRate: sampleRate,
		Channels:   channels,
	}
}

// Bytes returns the raw PCM16 bytes of the chunk.
func (c AudioChunk) Bytes() []byte {
	return SamplesToBytes(c.Samples)
}

// Duration returns the playback time of the chunk.
func (c AudioChunk) Duration() time.Duration {
	if c.SampleRate == 0 || c.Channels == 0 {
		return 0
	}
	frames := len(c.Samples) / c.Channels
	return time.Duration(frames) * time.Second / time.Duration(c.SampleRate)
}

// Source captures audio from a microphone or other input device.
type Source interface {
	// Start begins capture. Chunks arrive on Stream until Stop.
	Start(ctx context.Context) error

	// Stop halts capture and closes the Stream channel.
	// It is safe to call Stop multiple times.
	Stop() error

	// Stream returns the channel of the current capture.
	Stream() <-chan AudioChunk

	Config() Config

	// Name returns the backend name.
	Name() string

	io.Closer
}
