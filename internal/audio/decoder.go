// Package audio wraps the beep decode and output pipeline used for playback.
package audio

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
)

// SamplesPerFrame is the number of PCM samples carried by one MPEG-1 Layer III frame.
const SamplesPerFrame = 1152

// ErrEmptyStream is returned when a file decodes to zero samples.
var ErrEmptyStream = errors.New("audio stream is empty")

// DecodeFunc opens a file and returns a seekable PCM stream.
type DecodeFunc func(path string) (beep.StreamSeekCloser, beep.Format, error)

// DecodeMP3 opens an MP3 file and decodes its header. The returned stream owns the file.
func DecodeMP3(path string) (beep.StreamSeekCloser, beep.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, err
	}
	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return nil, beep.Format{}, fmt.Errorf("decode mp3 header: %w", err)
	}
	return streamer, format, nil
}

// Info describes the decoded layout of a file.
type Info struct {
	Samples    int64 `json:"samples"`
	SampleRate int   `json:"sampleRate"`
	Channels   int   `json:"channels"`
	Frames     int64 `json:"frames"`
	DurationMs int64 `json:"durationMs"`
}

// Probe decodes the header of an MP3 file and reports its length.
func Probe(path string) (Info, error) {
	return ProbeWith(DecodeMP3, path)
}

// ProbeWith is Probe with a custom decoder.
func ProbeWith(decode DecodeFunc, path string) (Info, error) {
	streamer, format, err := decode(path)
	if err != nil {
		return Info{}, err
	}
	defer streamer.Close()

	samples := int64(streamer.Len())
	if samples <= 0 {
		return Info{}, ErrEmptyStream
	}
	return Info{
		Samples:    samples,
		SampleRate: int(format.SampleRate),
		Channels:   format.NumChannels,
		Frames:     SampleToFrame(samples + SamplesPerFrame - 1),
		DurationMs: format.SampleRate.D(int(samples)).Milliseconds(),
	}, nil
}

// FrameToSample converts an MPEG frame index to a sample offset.
func FrameToSample(frame int64) int64 {
	return frame * SamplesPerFrame
}

// SampleToFrame converts a sample offset to the MPEG frame that contains it.
func SampleToFrame(sample int64) int64 {
	return sample / SamplesPerFrame
}

// Duration returns the playing time of the given number of frames at a sample rate.
func Duration(frames int64, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return beep.SampleRate(sampleRate).D(int(FrameToSample(frames)))
}

// DecodeIOError is reported when decoding fails in the middle of a session.
type DecodeIOError struct {
	Path  string
	Frame int64
	Err   error
}

func (e *DecodeIOError) Error() string {
	return fmt.Sprintf("decode %s at frame %d: %v", e.Path, e.Frame, e.Err)
}

func (e *DecodeIOError) Unwrap() error {
	return e.Err
}
