// Package track holds the immutable description of one playable audio file.
package track

import (
	"errors"
	"fmt"
	"math"
)

// Placeholder is shown for tags that could not be read.
const Placeholder = "N/A"

// ErrUnreadableAudio is matched by every UnreadableAudioError.
var ErrUnreadableAudio = errors.New("unreadable audio")

// UnreadableAudioError reports a file that could not be opened or decoded.
type UnreadableAudioError struct {
	Path string
	Err  error
}

func (e *UnreadableAudioError) Error() string {
	return fmt.Sprintf("unreadable audio %s: %v", e.Path, e.Err)
}

func (e *UnreadableAudioError) Unwrap() error {
	return e.Err
}

func (e *UnreadableAudioError) Is(target error) bool {
	return target == ErrUnreadableAudio
}

// Metadata is the tag-derived part of a track.
type Metadata struct {
	Title     string
	Artist    string
	Album     string
	Cover     []byte
	CoverMIME string
}

// Track is read-only once built. All time and frame math goes through the
// single rate computed in New.
type Track struct {
	path       string
	durationMs int64
	frames     int64
	rate       float64
	meta       Metadata
}

// New builds a track from its decoded length. Empty title or artist become Placeholder.
func New(path string, durationMs, frames int64, meta Metadata) (*Track, error) {
	if durationMs <= 0 || frames <= 0 {
		return nil, &UnreadableAudioError{
			Path: path,
			Err:  fmt.Errorf("invalid length: %d ms, %d frames", durationMs, frames),
		}
	}
	if meta.Title == "" {
		meta.Title = Placeholder
	}
	if meta.Artist == "" {
		meta.Artist = Placeholder
	}
	return &Track{
		path:       path,
		durationMs: durationMs,
		frames:     frames,
		rate:       float64(frames) / float64(durationMs),
		meta:       meta,
	}, nil
}

func (t *Track) Path() string            { return t.path }
func (t *Track) DurationMs() int64       { return t.durationMs }
func (t *Track) FrameCount() int64       { return t.frames }
func (t *Track) FrameRatePerMs() float64 { return t.rate }
func (t *Track) Title() string           { return t.meta.Title }
func (t *Track) Artist() string          { return t.meta.Artist }
func (t *Track) Album() string           { return t.meta.Album }
func (t *Track) HasCover() bool          { return len(t.meta.Cover) > 0 }

// Cover returns the thumbnail bytes and their MIME type, if any.
func (t *Track) Cover() ([]byte, string) {
	return t.meta.Cover, t.meta.CoverMIME
}

// ToFrame converts a position in milliseconds to a frame index.
func (t *Track) ToFrame(ms int64) int64 {
	return int64(math.Round(float64(ms) * t.rate))
}

// ToTime converts a frame index to a position in milliseconds.
func (t *Track) ToTime(frame int64) int64 {
	return int64(math.Round(float64(frame) / t.rate))
}

// ClampFrame bounds frame to [0, FrameCount].
func (t *Track) ClampFrame(frame int64) int64 {
	return min(max(frame, 0), t.frames)
}

// ClampMillis bounds ms to [0, DurationMs].
func (t *Track) ClampMillis(ms int64) int64 {
	return min(max(ms, 0), t.durationMs)
}

func (t *Track) String() string {
	return fmt.Sprintf("%s - %s", t.meta.Artist, t.meta.Title)
}
