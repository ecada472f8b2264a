package speech

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
)

// Output is the serial announcer. One worker plays utterances in order;
// a high priority announcement cancels the one playing and drops the queue.
type Output struct {
	synth  Synthesizer
	logger *slog.Logger
	now    func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wake   chan struct{}
	done   chan struct{}

	mu            sync.Mutex
	queue         []*job
	current       *job
	cancelCurrent context.CancelFunc
	closed        bool
	observers     []func(Announcement)
}

type job struct {
	text     string
	priority Priority
	done     chan struct{}
}

// NewOutput starts an announcer speaking on synth.
func NewOutput(synth Synthesizer, logger *slog.Logger) *Output {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	o := &Output{
		synth:  synth,
		logger: logger.With("component", "speech.output"),
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go o.run()
	return o
}

// OnAnnounce registers an observer called for every accepted announcement.
func (o *Output) OnAnnounce(fn func(Announcement)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observers = append(o.observers, fn)
}

// Speak queues text. The returned channel closes when the utterance has
// finished, was cancelled or failed.
func (o *Output) Speak(text string, priority Priority) <-chan struct{} {
	j := &job{text: text, priority: priority, done: make(chan struct{})}

	if strings.TrimSpace(text) == "" {
		close(j.done)
		return j.done
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		close(j.done)
		return j.done
	}

	if priority == High {
		if o.cancelCurrent != nil {
			o.cancelCurrent()
		}
		for _, q := range o.queue {
			close(q.done)
		}
		if len(o.queue) > 0 {
			o.logger.Debug("flushed queued announcements", "count", len(o.queue))
		}
		o.queue = nil
	}
	o.queue = append(o.queue, j)
	observers := slices.Clone(o.observers)
	o.mu.Unlock()

	select {
	case o.wake <- struct{}{}:
	default:
	}

	a := Announcement{Text: text, Priority: priority, At: o.now()}
	for _, fn := range observers {
		fn(a)
	}
	return j.done
}

// SpeakAndWait speaks and blocks until the utterance ends or ctx is done.
func (o *Output) SpeakAndWait(ctx context.Context, text string, priority Priority) error {
	select {
	case <-o.Speak(text, priority):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel stops the utterance in flight and drops the queue.
func (o *Output) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancelCurrent != nil {
		o.cancelCurrent()
	}
	for _, q := range o.queue {
		close(q.done)
	}
	o.queue = nil
}

// Pending returns the number of queued utterances, excluding the one playing.
func (o *Output) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queue)
}

// Close stops the worker and releases every pending completion.
func (o *Output) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		<-o.done
		return nil
	}
	o.closed = true
	o.mu.Unlock()

	o.Cancel()
	o.cancel()
	<-o.done
	return nil
}

func (o *Output) run() {
	defer close(o.done)

	for {
		o.mu.Lock()
		if o.closed {
			o.mu.Unlock()
			return
		}
		if len(o.queue) == 0 {
			o.mu.Unlock()
			select {
			case <-o.wake:
			case <-o.ctx.Done():
			}
			continue
		}

		j := o.queue[0]
		o.queue = o.queue[1:]
		ctx, cancel := context.WithCancel(o.ctx)
		o.current = j
		o.cancelCurrent = cancel
		o.mu.Unlock()

		o.play(ctx, j)
		cancel()

		o.mu.Lock()
		o.current = nil
		o.cancelCurrent = nil
		o.mu.Unlock()
		close(j.done)
	}
}

func (o *Output) play(ctx context.Context, j *job) {
	u := Utterance{
		Text:   j.text,
		Voice:  SelectVoice(o.synth.Voices()),
		Rate:   DefaultRate,
		Pitch:  DefaultPitch,
		Volume: DefaultVolume,
	}

	start := o.now()
	err := o.synth.Speak(ctx, u)
	switch {
	case ctx.Err() != nil:
		o.logger.Debug("announcement interrupted", "text", j.text)
	case err != nil:
		o.logger.Warn("announcement failed", "text", j.text, "error", err)
	default:
		o.logger.Debug("announced",
			"text", j.text,
			"priority", j.priority,
			"voice", u.Voice.Name,
			"ms", o.now().Sub(start).Milliseconds(),
		)
	}
}
