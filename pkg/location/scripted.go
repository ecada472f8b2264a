package location

import (
	"context"
	"sync"
	"time"
)

// ScriptedSource is a Source driven by the caller. Tests push updates
// with Emit; demo mode replays a walk with Replay.
type ScriptedSource struct {
	// CurrentFunc overrides Current. By default Current returns the last
	// emitted sample, or ErrPositionUnavailable before the first one.
	CurrentFunc func(ctx context.Context, opts Options) (Sample, error)

	b *broadcaster

	mu           sync.Mutex
	currentCalls int
	watchCalls   int
}

// NewScriptedSource creates an empty scripted source.
func NewScriptedSource() *ScriptedSource {
	return &ScriptedSource{b: newBroadcaster(nil)}
}

// Current implements Source.
func (s *ScriptedSource) Current(ctx context.Context, opts Options) (Sample, error) {
	s.mu.Lock()
	s.currentCalls++
	fn := s.CurrentFunc
	s.mu.Unlock()

	if fn != nil {
		return fn(ctx, opts)
	}
	if last, ok := s.b.latest(); ok {
		return last, nil
	}
	return Sample{}, ErrPositionUnavailable
}

// Watch implements Source. The channel closes when ctx is done.
func (s *ScriptedSource) Watch(ctx context.Context, opts Options) (<-chan Update, error) {
	s.mu.Lock()
	s.watchCalls++
	s.mu.Unlock()
	return s.b.subscribe(ctx), nil
}

// Emit delivers u to every active watcher.
func (s *ScriptedSource) Emit(u Update) {
	s.b.publish(u)
}

// EmitSample is shorthand for Emit with a sample.
func (s *ScriptedSource) EmitSample(lat, lon, accuracy float64) {
	s.Emit(Update{Sample: Sample{Latitude: lat, Longitude: lon, Accuracy: accuracy, Timestamp: time.Now()}})
}

// Watchers returns the number of active subscriptions.
func (s *ScriptedSource) Watchers() int {
	return s.b.count()
}

// CurrentCalls returns how many one-shot requests were made.
func (s *ScriptedSource) CurrentCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentCalls
}

// WatchCalls returns how many subscriptions were opened.
func (s *ScriptedSource) WatchCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watchCalls
}

// Replay emits samples in a loop, one per interval, until ctx is done.
func (s *ScriptedSource) Replay(ctx context.Context, samples []Sample, interval time.Duration) {
	if len(samples) == 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 0; ; i = (i + 1) % len(samples) {
		sample := samples[i]
		sample.Timestamp = time.Now()
		s.Emit(Update{Sample: sample})

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// DemoWalk is a short walk around a city block used in demo mode.
// Accuracy varies so every precision announcement is heard.
func DemoWalk() []Sample {
	return []Sample{
		{Latitude: 40.748440, Longitude: -73.985664, Accuracy: 8},
		{Latitude: 40.748610, Longitude: -73.985420, Accuracy: 12},
		{Latitude: 40.748790, Longitude: -73.985160, Accuracy: 35},
		{Latitude: 40.748960, Longitude: -73.984930, Accuracy: 65},
		{Latitude: 40.748700, Longitude: -73.984550, Accuracy: 9},
		{Latitude: 40.748430, Longitude: -73.984800, Accuracy: 22},
	}
}

var _ Source = (*ScriptedSource)(nil)
