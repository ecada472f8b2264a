package location

import (
	"context"
	"log/slog"
	"sync"
)

// watchBuffer is how many updates a watcher may fall behind before it
// starts missing them.
const watchBuffer = 16

// broadcaster fans updates out to watch subscriptions and one-shot
// waiters, and remembers the last good sample.
type broadcaster struct {
	logger *slog.Logger

	mu sync.Mutex
	// watchers maps each subscription to the updates it has missed.
	watchers map[chan Update]int
	waiters  []chan Update
	last     *Sample
	dropped  int
}

func newBroadcaster(logger *slog.Logger) *broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &broadcaster{logger: logger, watchers: make(map[chan Update]int)}
}

// subscribe returns a channel that receives updates until ctx is done.
func (b *broadcaster) subscribe(ctx context.Context) <-chan Update {
	ch := make(chan Update, watchBuffer)

	b.mu.Lock()
	b.watchers[ch] = 0
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		missed := b.watchers[ch]
		delete(b.watchers, ch)
		close(ch)
		b.mu.Unlock()
		if missed > 0 {
			b.logger.Info("watcher closed", "missed_updates", missed)
		}
	}()
	return ch
}

// publish delivers u without blocking. A watcher whose buffer is full
// misses the update; later updates still arrive in order once it drains.
func (b *broadcaster) publish(u Update) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if u.Err == nil {
		s := u.Sample
		b.last = &s
	}
	for ch, missed := range b.watchers {
		select {
		case ch <- u:
		default:
			if missed == 0 {
				b.logger.Warn("location watcher is falling behind, dropping updates")
			}
			b.watchers[ch] = missed + 1
			b.dropped++
		}
	}
	for _, w := range b.waiters {
		w <- u
	}
	b.waiters = nil
}

// next waits for the next published update.
func (b *broadcaster) next(ctx context.Context) (Update, error) {
	w := make(chan Update, 1)
	b.mu.Lock()
	b.waiters = append(b.waiters, w)
	b.mu.Unlock()

	select {
	case u := <-w:
		return u, nil
	case <-ctx.Done():
		b.mu.Lock()
		for i, x := range b.waiters {
			if x == w {
				b.waiters = append(b.waiters[:i], b.waiters[i+1:]...)
				break
			}
		}
		b.mu.Unlock()
		return Update{}, ctx.Err()
	}
}

func (b *broadcaster) latest() (Sample, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.last == nil {
		return Sample{}, false
	}
	return *b.last, true
}

// droppedCount returns how many watcher deliveries were skipped.
func (b *broadcaster) droppedCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

func (b *broadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.watchers)
}
