package speech

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/voicemap/pkg/audioio"
	"github.com/teslashibe/voicemap/pkg/tts"
)

func waitClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed")
	}
}

func TestSelectVoice(t *testing.T) {
	femaleUS := Voice{ID: "1", Name: "Samantha Female", Lang: "en-US"}
	maleUS := Voice{ID: "2", Name: "Daniel", Lang: "en-GB"}
	femaleFR := Voice{ID: "3", Name: "Amelie Female", Lang: "fr-FR"}

	tests := []struct {
		name   string
		voices []Voice
		want   Voice
	}{
		{"prefers english female", []Voice{maleUS, femaleFR, femaleUS}, femaleUS},
		{"falls back to any english", []Voice{femaleFR, maleUS}, maleUS},
		{"default when no english", []Voice{femaleFR}, Voice{}},
		{"default when empty", nil, Voice{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectVoice(tt.voices))
		})
	}
}

func TestParsePriority(t *testing.T) {
	p, err := ParsePriority("HIGH")
	require.NoError(t, err)
	assert.Equal(t, High, p)

	p, err = ParsePriority("")
	require.NoError(t, err)
	assert.Equal(t, Medium, p)

	_, err = ParsePriority("urgent")
	assert.Error(t, err)
}

func TestOutput_SpeaksInOrderWithFixedParameters(t *testing.T) {
	synth := NewMockSynthesizer(Voice{ID: "v", Name: "Test Female", Lang: "en-US"})
	out := NewOutput(synth, nil)
	defer out.Close()

	out.Speak("one", Low)
	out.Speak("two", Medium)
	waitClosed(t, out.Speak("three", Low))

	assert.Equal(t, []string{"one", "two", "three"}, synth.Texts())
	for _, u := range synth.Spoken() {
		assert.Equal(t, 0.9, u.Rate)
		assert.Equal(t, 1.0, u.Pitch)
		assert.Equal(t, 1.0, u.Volume)
		assert.Equal(t, "v", u.Voice.ID)
	}
}

func TestOutput_HighPriorityPreempts(t *testing.T) {
	release := make(chan struct{})
	synth := NewMockSynthesizer()
	synth.SpeakFunc = func(ctx context.Context, u Utterance) error {
		if u.Text != "first" {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-release:
			return nil
		}
	}
	out := NewOutput(synth, nil)
	defer out.Close()
	defer close(release)

	first := out.Speak("first", Low)
	require.Eventually(t, func() bool { return len(synth.Texts()) == 1 }, time.Second, 5*time.Millisecond)

	queued := out.Speak("queued", Medium)
	urgent := out.Speak("urgent", High)

	waitClosed(t, first)
	waitClosed(t, queued)
	waitClosed(t, urgent)

	assert.Equal(t, []string{"first", "urgent"}, synth.Texts())
}

func TestOutput_FailureStillCompletes(t *testing.T) {
	synth := NewMockSynthesizer()
	synth.SpeakFunc = func(context.Context, Utterance) error { return errors.New("device busy") }
	out := NewOutput(synth, nil)
	defer out.Close()

	waitClosed(t, out.Speak("hello", Medium))
}

func TestOutput_CloseReleasesPending(t *testing.T) {
	synth := NewMockSynthesizer()
	synth.SpeakFunc = func(ctx context.Context, u Utterance) error {
		<-ctx.Done()
		return ctx.Err()
	}
	out := NewOutput(synth, nil)

	playing := out.Speak("playing", Low)
	queued := out.Speak("queued", Low)
	require.NoError(t, out.Close())

	waitClosed(t, playing)
	waitClosed(t, queued)
	waitClosed(t, out.Speak("after close", High))
	require.NoError(t, out.Close())
}

func TestOutput_OnAnnounce(t *testing.T) {
	out := NewOutput(NewMockSynthesizer(), nil)
	defer out.Close()

	var mu sync.Mutex
	var got []Announcement
	out.OnAnnounce(func(a Announcement) {
		mu.Lock()
		got = append(got, a)
		mu.Unlock()
	})

	waitClosed(t, out.Speak("Stopped listening.", Low))
	waitClosed(t, out.Speak("  ", High))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, "Stopped listening.", got[0].Text)
	assert.Equal(t, Low, got[0].Priority)
}

func TestOutput_SpeakAndWait(t *testing.T) {
	synth := NewMockSynthesizer()
	synth.SpeakFunc = func(ctx context.Context, u Utterance) error {
		<-ctx.Done()
		return ctx.Err()
	}
	out := NewOutput(synth, nil)
	defer out.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, out.SpeakAndWait(ctx, "hello", Medium), context.DeadlineExceeded)
}

func TestInput_Capture(t *testing.T) {
	rec := &MockRecognizer{RecognizeFunc: Transcript("  Where Am I  ")}
	in := NewInput(rec, "en-US", nil)

	got, err := in.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "where am i", got)
	assert.Equal(t, []string{"en-US"}, rec.Locales())
}

func TestInput_Errors(t *testing.T) {
	t.Run("no recognizer", func(t *testing.T) {
		_, err := NewInput(nil, "en-US", nil).Capture(context.Background())
		assert.ErrorIs(t, err, ErrNotSupported)
	})

	t.Run("recognition error passes through", func(t *testing.T) {
		rec := &MockRecognizer{RecognizeFunc: func(context.Context, string) (string, error) {
			return "", &RecognitionError{Code: CodeNoSpeech}
		}}
		_, err := NewInput(rec, "en-US", nil).Capture(context.Background())
		var recErr *RecognitionError
		require.ErrorAs(t, err, &recErr)
		assert.Equal(t, CodeNoSpeech, recErr.Code)
	})

	t.Run("other errors get a code", func(t *testing.T) {
		cause := errors.New("socket closed")
		rec := &MockRecognizer{RecognizeFunc: func(context.Context, string) (string, error) {
			return "", cause
		}}
		_, err := NewInput(rec, "en-US", nil).Capture(context.Background())
		var recErr *RecognitionError
		require.ErrorAs(t, err, &recErr)
		assert.Equal(t, CodeUnknown, recErr.Code)
		assert.ErrorIs(t, err, cause)
	})
}

func TestInput_StopSuppressesResult(t *testing.T) {
	rec := &MockRecognizer{RecognizeFunc: func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		// a late result arriving after cancellation
		return "navigate", nil
	}}
	in := NewInput(rec, "en-US", nil)

	errCh := make(chan error, 1)
	go func() {
		_, err := in.Capture(context.Background())
		errCh <- err
	}()

	require.Eventually(t, func() bool { return rec.Calls() == 1 }, time.Second, 5*time.Millisecond)
	in.Stop()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrCaptureStopped)
	case <-time.After(2 * time.Second):
		t.Fatal("capture did not return")
	}

	in.Stop() // no capture in flight
}

func TestProviderDevice(t *testing.T) {
	provider := tts.NewMock()
	sink := audioio.NewMockSink(audioio.DefaultConfig())
	dev := NewProviderDevice(provider, sink, nil)

	voices := dev.Voices()
	require.Len(t, voices, 2)
	assert.Equal(t, "Mock Female", SelectVoice(voices).Name)

	err := dev.Speak(context.Background(), Utterance{
		Text:   "hi",
		Voice:  voices[0],
		Rate:   DefaultRate,
		Volume: DefaultVolume,
	})
	require.NoError(t, err)

	call := provider.LastCall()
	require.NotNil(t, call)
	assert.Equal(t, "mock-female", call.Request.VoiceID)
	assert.Equal(t, 0.9, call.Request.Speed)

	written := sink.Written()
	require.Len(t, written, 1)
	// 2 chars of 20ms at 24kHz resampled to 16kHz
	assert.Len(t, written[0].Samples, 640)
	assert.Equal(t, 16000, written[0].SampleRate)
}

func TestProviderDevice_CancelClearsSink(t *testing.T) {
	sink := audioio.NewMockSink(audioio.DefaultConfig())
	sink.FlushFunc = func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
	dev := NewProviderDevice(tts.NewMock(), sink, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := dev.Speak(ctx, Utterance{Text: "long announcement"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, sink.Clears())
}

func TestProviderDevice_SynthesisError(t *testing.T) {
	dev := NewProviderDevice(tts.WithError(tts.ErrNoAPIKey), audioio.NewMockSink(audioio.DefaultConfig()), nil)
	err := dev.Speak(context.Background(), Utterance{Text: "hi"})
	assert.ErrorIs(t, err, tts.ErrNoAPIKey)
}
