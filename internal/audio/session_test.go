package audio_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"

	"github.com/edumarques81/stellar-playback/internal/audio"
)

const testRate = beep.SampleRate(44100)

// toneStream is an in-memory StreamSeekCloser producing a constant signal.
type toneStream struct {
	mu     sync.Mutex
	n      int
	pos    int
	failAt int
	err    error
	closed atomic.Bool
}

func (s *toneStream) Stream(samples [][2]float64) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failAt > 0 && s.pos >= s.failAt {
		s.err = errors.New("corrupt frame")
		return 0, false
	}
	if s.pos >= s.n {
		return 0, false
	}
	k := min(len(samples), s.n-s.pos)
	for i := range k {
		samples[i] = [2]float64{0.25, 0.25}
	}
	s.pos += k
	return k, true
}

func (s *toneStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *toneStream) Len() int { return s.n }

func (s *toneStream) Position() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

func (s *toneStream) Seek(p int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p < 0 || p > s.n {
		return errors.New("seek out of range")
	}
	s.pos = p
	return nil
}

func (s *toneStream) Close() error {
	s.closed.Store(true)
	return nil
}

func decoderFor(s *toneStream) audio.DecodeFunc {
	return func(string) (beep.StreamSeekCloser, beep.Format, error) {
		return s, beep.Format{SampleRate: testRate, NumChannels: 2, Precision: 2}, nil
	}
}

type completion struct {
	frame int64
	err   error
}

type recorder struct {
	started   chan struct{}
	completed chan completion
}

func newRecorder() *recorder {
	return &recorder{
		started:   make(chan struct{}, 4),
		completed: make(chan completion, 4),
	}
}

func (r *recorder) SessionStarted() { r.started <- struct{}{} }

func (r *recorder) SessionCompleted(frame int64, err error) {
	r.completed <- completion{frame: frame, err: err}
}

func waitStarted(t *testing.T, r *recorder) {
	t.Helper()
	select {
	case <-r.started:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not start")
	}
}

func TestRendererCompletesNaturally(t *testing.T) {
	out := audio.NewClockedOutput(testRate, 5*time.Millisecond, 20)
	defer out.Close()

	stream := &toneStream{n: audio.SamplesPerFrame * 40}
	r := audio.NewRenderer(out, audio.WithDecoder(decoderFor(stream)))
	rec := newRecorder()

	if _, err := r.Start("tone.mp3", 0, rec); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitStarted(t, rec)

	select {
	case c := <-rec.completed:
		if c.err != nil {
			t.Fatalf("unexpected error: %v", c.err)
		}
		if c.frame != 40 {
			t.Errorf("final frame = %d, want 40", c.frame)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("session did not complete")
	}

	if !stream.closed.Load() {
		t.Error("stream should be closed after completion")
	}
}

func TestRendererStopSuppressesCompletion(t *testing.T) {
	out := audio.NewClockedOutput(testRate, 5*time.Millisecond, 1)
	defer out.Close()

	stream := &toneStream{n: int(testRate) * 60}
	r := audio.NewRenderer(out, audio.WithDecoder(decoderFor(stream)))
	rec := newRecorder()

	s, err := r.Start("long.mp3", 25, rec)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitStarted(t, rec)

	frame := s.Stop()
	if frame < 25 {
		t.Errorf("Stop returned frame %d, want >= 25", frame)
	}
	if !stream.closed.Load() {
		t.Error("stream should be closed when Stop returns")
	}
	if again := s.Stop(); again != frame {
		t.Errorf("second Stop = %d, want %d", again, frame)
	}

	select {
	case c := <-rec.completed:
		t.Fatalf("completion fired after Stop: %+v", c)
	case <-time.After(100 * time.Millisecond):
	}

	deadline := time.Now().Add(time.Second)
	for out.Active() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("stopped session still mixed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRendererSeeksToStartFrame(t *testing.T) {
	out := audio.NewClockedOutput(testRate, 5*time.Millisecond, 1)
	defer out.Close()

	stream := &toneStream{n: audio.SamplesPerFrame * 1000}
	r := audio.NewRenderer(out, audio.WithDecoder(decoderFor(stream)))
	rec := newRecorder()

	s, _ := r.Start("seek.mp3", 500, rec)
	waitStarted(t, rec)
	defer s.Stop()

	if got := s.Frame(); got < 500 {
		t.Errorf("Frame() = %d, want >= 500", got)
	}
}

func TestRendererStartBeyondEndCompletes(t *testing.T) {
	out := audio.NewClockedOutput(testRate, 5*time.Millisecond, 1)
	defer out.Close()

	stream := &toneStream{n: audio.SamplesPerFrame * 10}
	r := audio.NewRenderer(out, audio.WithDecoder(decoderFor(stream)))
	rec := newRecorder()

	r.Start("short.mp3", 50, rec)

	select {
	case c := <-rec.completed:
		if c.err != nil || c.frame != 10 {
			t.Errorf("completion = %+v, want frame 10 without error", c)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("session did not complete")
	}
}

func TestRendererReportsDecodeError(t *testing.T) {
	out := audio.NewClockedOutput(testRate, 5*time.Millisecond, 20)
	defer out.Close()

	stream := &toneStream{n: audio.SamplesPerFrame * 100, failAt: audio.SamplesPerFrame * 10}
	r := audio.NewRenderer(out, audio.WithDecoder(decoderFor(stream)))
	rec := newRecorder()

	r.Start("broken.mp3", 0, rec)

	select {
	case c := <-rec.completed:
		var decErr *audio.DecodeIOError
		if !errors.As(c.err, &decErr) {
			t.Fatalf("expected DecodeIOError, got %v", c.err)
		}
		if decErr.Path != "broken.mp3" {
			t.Errorf("Path = %q", decErr.Path)
		}
		if c.frame < 10 {
			t.Errorf("frame = %d, want >= 10", c.frame)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("session did not report the failure")
	}
}

func TestRendererReportsOpenError(t *testing.T) {
	out := audio.NewClockedOutput(testRate, 5*time.Millisecond, 1)
	defer out.Close()

	openErr := errors.New("no such file")
	r := audio.NewRenderer(out, audio.WithDecoder(func(string) (beep.StreamSeekCloser, beep.Format, error) {
		return nil, beep.Format{}, openErr
	}))
	rec := newRecorder()

	r.Start("missing.mp3", 7, rec)

	select {
	case c := <-rec.completed:
		if !errors.Is(c.err, openErr) {
			t.Errorf("err = %v, want wrapped %v", c.err, openErr)
		}
		if c.frame != 7 {
			t.Errorf("frame = %d, want 7", c.frame)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("open failure not reported")
	}

	select {
	case <-rec.started:
		t.Error("SessionStarted fired for a session that never opened")
	default:
	}
}

func TestRendererVolume(t *testing.T) {
	out := audio.NewClockedOutput(testRate, 5*time.Millisecond, 1)
	defer out.Close()

	r := audio.NewRenderer(out, audio.WithVolume(0.8))
	if got := r.Volume(); got != 0.8 {
		t.Errorf("initial volume = %v, want 0.8", got)
	}

	tests := []struct {
		in   float64
		want float64
	}{
		{0.5, 0.5},
		{1.7, 1},
		{-0.2, 0},
	}
	for _, tt := range tests {
		r.SetVolume(tt.in)
		if got := r.Volume(); got != tt.want {
			t.Errorf("SetVolume(%v): Volume() = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRendererTapCapturesSamples(t *testing.T) {
	out := audio.NewClockedOutput(testRate, 5*time.Millisecond, 20)
	defer out.Close()

	stream := &toneStream{n: audio.SamplesPerFrame * 40}
	r := audio.NewRenderer(out, audio.WithDecoder(decoderFor(stream)), audio.WithTap(audio.NewTap(64)))
	rec := newRecorder()

	r.Start("tone.mp3", 0, rec)
	<-rec.completed

	samples := r.Samples(16)
	if len(samples) != 16 {
		t.Fatalf("len = %d, want 16", len(samples))
	}
	for i, v := range samples {
		if v != 0.25 {
			t.Fatalf("sample %d = %v, want 0.25", i, v)
		}
	}
}
