package track_test

import (
	"errors"
	"math"
	"testing"

	"github.com/edumarques81/stellar-playback/internal/domain/track"
)

func mustTrack(t *testing.T, durationMs, frames int64) *track.Track {
	t.Helper()
	tr, err := track.New("/music/song.mp3", durationMs, frames, track.Metadata{Title: "Song", Artist: "Band"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tr
}

func TestNewRejectsInvalidLength(t *testing.T) {
	tests := []struct {
		name     string
		duration int64
		frames   int64
	}{
		{"zero duration", 0, 100},
		{"zero frames", 1000, 0},
		{"negative", -5, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := track.New("x.mp3", tt.duration, tt.frames, track.Metadata{})
			if !errors.Is(err, track.ErrUnreadableAudio) {
				t.Errorf("expected ErrUnreadableAudio, got %v", err)
			}
		})
	}
}

func TestNewFillsPlaceholders(t *testing.T) {
	tr, err := track.New("x.mp3", 1000, 38, track.Metadata{Album: "LP"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if tr.Title() != track.Placeholder || tr.Artist() != track.Placeholder {
		t.Errorf("expected placeholders, got %q / %q", tr.Title(), tr.Artist())
	}
	if tr.Album() != "LP" {
		t.Errorf("Album = %q", tr.Album())
	}
	if tr.HasCover() {
		t.Error("expected no cover")
	}
}

func TestFrameRateFixedAtConstruction(t *testing.T) {
	tr := mustTrack(t, 261224, 10000)
	want := 10000.0 / 261224.0
	if tr.FrameRatePerMs() != want {
		t.Errorf("FrameRatePerMs = %v, want %v", tr.FrameRatePerMs(), want)
	}
}

func TestFrameTimeInverse(t *testing.T) {
	tr := mustTrack(t, 261224, 10000)
	frameMs := 1 / tr.FrameRatePerMs()

	for ms := int64(0); ms <= tr.DurationMs(); ms += 37 {
		back := tr.ToTime(tr.ToFrame(ms))
		if diff := math.Abs(float64(back - ms)); diff > frameMs {
			t.Fatalf("ToTime(ToFrame(%d)) = %d, off by %.1f ms (> %.1f)", ms, back, diff, frameMs)
		}
	}
}

func TestConversionsMonotonic(t *testing.T) {
	tr := mustTrack(t, 180000, 6891)

	prev := int64(-1)
	for ms := int64(0); ms <= tr.DurationMs(); ms += 11 {
		f := tr.ToFrame(ms)
		if f < prev {
			t.Fatalf("ToFrame not monotonic at %d ms: %d < %d", ms, f, prev)
		}
		prev = f
	}
	if got := tr.ToFrame(tr.DurationMs()); got != tr.FrameCount() {
		t.Errorf("ToFrame(duration) = %d, want %d", got, tr.FrameCount())
	}
	if got := tr.ToTime(tr.FrameCount()); got != tr.DurationMs() {
		t.Errorf("ToTime(frames) = %d, want %d", got, tr.DurationMs())
	}
}

func TestClamp(t *testing.T) {
	tr := mustTrack(t, 1000, 40)

	if got := tr.ClampFrame(-3); got != 0 {
		t.Errorf("ClampFrame(-3) = %d", got)
	}
	if got := tr.ClampFrame(99); got != 40 {
		t.Errorf("ClampFrame(99) = %d", got)
	}
	if got := tr.ClampMillis(5000); got != 1000 {
		t.Errorf("ClampMillis(5000) = %d", got)
	}
}

func TestUnreadableAudioErrorUnwraps(t *testing.T) {
	cause := errors.New("bad header")
	err := error(&track.UnreadableAudioError{Path: "a.mp3", Err: cause})

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to reach the cause")
	}
	if !errors.Is(err, track.ErrUnreadableAudio) {
		t.Error("expected errors.Is to match ErrUnreadableAudio")
	}
	var ue *track.UnreadableAudioError
	if !errors.As(err, &ue) || ue.Path != "a.mp3" {
		t.Errorf("errors.As failed: %v", ue)
	}
}
