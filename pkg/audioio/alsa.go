package audioio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"sync"
)

// Commands used by the ALSA backend. Tests may point these elsewhere.
var (
	RecordCommand = "arecord"
	PlayCommand   = "aplay"
)

func alsaArgs(cfg Config) []string {
	args := []string{"-q", "-t", "raw", "-f", "S16_LE",
		"-r", strconv.Itoa(cfg.SampleRate),
		"-c", strconv.Itoa(cfg.Channels),
	}
	if cfg.Device != "" {
		args = append(args, "-D", cfg.Device)
	}
	return args
}

// ALSASource captures raw PCM16 from an arecord child process.
type ALSASource struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	stream  chan AudioChunk
	running bool
	closed  bool
}

// NewALSASource creates a source recording from cfg.Device.
func NewALSASource(cfg Config, logger *slog.Logger) *ALSASource {
	if logger == nil {
		logger = slog.Default()
	}
	return &ALSASource{
		cfg:    cfg,
		logger: logger.With("component", "audioio.alsa_source"),
	}
}

// Start launches arecord. The stream closes when the recorder exits.
func (s *ALSASource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}
	if s.running {
		return nil
	}

	cmd := exec.CommandContext(ctx, RecordCommand, alsaArgs(s.cfg)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("audioio: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("audioio: start %s: %w", RecordCommand, err)
	}

	s.cmd = cmd
	s.running = true
	s.stream = make(chan AudioChunk, 16)
	go s.readLoop(cmd, stdout, s.stream)

	s.logger.Debug("capture started", "device", s.cfg.Device, "sample_rate", s.cfg.SampleRate)
	return nil
}

func (s *ALSASource) readLoop(cmd *exec.Cmd, stdout io.Reader, stream chan AudioChunk) {
	defer close(stream)

	buf := make([]byte, s.cfg.BufferBytes())
	for {
		n, err := io.ReadFull(stdout, buf)
		if n > 0 {
			chunk := ChunkFromBytes(buf[:n], s.cfg.SampleRate, s.cfg.Channels)
			select {
			case stream <- chunk:
			default:
				s.logger.Debug("capture buffer full, dropping chunk")
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				s.logger.Warn("capture read failed", "error", err)
			}
			break
		}
	}

	if err := cmd.Wait(); err != nil {
		s.logger.Debug("recorder exited", "error", err)
	}

	s.mu.Lock()
	if s.cmd == cmd {
		s.cmd = nil
		s.running = false
	}
	s.mu.Unlock()
}

// Stop kills the recorder.
func (s *ALSASource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false
	if s.cmd != nil && s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
	s.cmd = nil
	return nil
}

// Stream returns the chunk channel of the current capture.
func (s *ALSASource) Stream() <-chan AudioChunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream
}

// Config returns the audio configuration.
func (s *ALSASource) Config() Config { return s.cfg }

// Name returns "alsa".
func (s *ALSASource) Name() string { return string(BackendALSA) }

// Close stops capture permanently.
func (s *ALSASource) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.Stop()
}

// ALSASink plays raw PCM16 through an aplay child process. The player
// is started on the first Write after a Flush or Clear.
type ALSASink struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	closed bool
}

// NewALSASink creates a sink playing on cfg.Device.
func NewALSASink(cfg Config, logger *slog.Logger) *ALSASink {
	if logger == nil {
		logger = slog.Default()
	}
	return &ALSASink{
		cfg:    cfg,
		logger: logger.With("component", "audioio.alsa_sink"),
	}
}

// Start checks the sink is usable. The player starts lazily.
func (s *ALSASink) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return io.ErrClosedPipe
	}
	return nil
}

func (s *ALSASink) startPlayerLocked() error {
	cmd := exec.Command(PlayCommand, alsaArgs(s.cfg)...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("audioio: stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("audioio: start %s: %w", PlayCommand, err)
	}
	s.cmd = cmd
	s.stdin = stdin
	return nil
}

// Write sends a chunk to the player, starting it if needed. The chunk
// is written one buffer at a time without holding the lock, so Clear and
// ctx cancellation interrupt it between buffers or mid-write.
func (s *ALSASink) Write(ctx context.Context, chunk AudioChunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return io.ErrClosedPipe
	}
	if s.cmd == nil {
		if err := s.startPlayerLocked(); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	cmd, stdin := s.cmd, s.stdin
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { s.kill(cmd) })
	defer stop()

	samples := chunk.Samples
	if chunk.SampleRate != 0 && chunk.SampleRate != s.cfg.SampleRate {
		samples = Resample(samples, chunk.SampleRate, s.cfg.SampleRate)
	}
	data := SamplesToBytes(samples)

	step := s.cfg.BufferBytes()
	if step <= 0 {
		step = 4096
	}
	for off := 0; off < len(data); off += step {
		if err := ctx.Err(); err != nil {
			s.kill(cmd)
			return err
		}
		if _, err := stdin.Write(data[off:min(off+step, len(data))]); err != nil {
			s.kill(cmd)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("audioio: write to player: %w", err)
		}
	}
	return nil
}

// kill stops cmd if it is still the current player.
func (s *ALSASink) kill(cmd *exec.Cmd) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == cmd {
		s.killLocked()
	}
}

// Flush closes the player input and waits for it to finish playing.
func (s *ALSASink) Flush(ctx context.Context) error {
	s.mu.Lock()
	cmd, stdin := s.cmd, s.stdin
	s.cmd, s.stdin = nil, nil
	s.mu.Unlock()

	if cmd == nil {
		return nil
	}
	stdin.Close()

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			s.logger.Debug("player exited", "error", err)
		}
		return nil
	case <-ctx.Done():
		if cmd.Process != nil {
			cmd.Process.Kill()
		}
		<-done
		return ctx.Err()
	}
}

// Clear kills the player, dropping anything not yet played.
func (s *ALSASink) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.killLocked()
	return nil
}

func (s *ALSASink) killLocked() {
	if s.cmd == nil {
		return
	}
	if s.stdin != nil {
		s.stdin.Close()
	}
	if s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
	s.cmd.Wait()
	s.cmd, s.stdin = nil, nil
}

// Stop is equivalent to Clear.
func (s *ALSASink) Stop() error {
	return s.Clear()
}

// Config returns the audio configuration.
func (s *ALSASink) Config() Config { return s.cfg }

// Name returns "alsa".
func (s *ALSASink) Name() string { return string(BackendALSA) }

// Close kills the player and rejects further writes.
func (s *ALSASink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.killLocked()
	return nil
}

var (
	_ Source = (*ALSASource)(nil)
	_ Sink   = (*ALSASink)(nil)
)
