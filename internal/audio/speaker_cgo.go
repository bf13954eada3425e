//go:build (linux && cgo) || windows || darwin

package audio

import (
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// DeviceAvailable reports whether this build can open a sound device.
const DeviceAvailable = true

var (
	speakerOnce sync.Once
	speakerErr  error
)

// SpeakerOutput plays through the system sound device.
type SpeakerOutput struct {
	rate beep.SampleRate
}

// NewSpeakerOutput initializes the speaker once per process.
// Later calls reuse the first sample rate.
func NewSpeakerOutput(rate beep.SampleRate, buffer time.Duration) (*SpeakerOutput, error) {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(rate, rate.N(buffer))
	})
	if speakerErr != nil {
		return nil, speakerErr
	}
	return &SpeakerOutput{rate: rate}, nil
}

func (o *SpeakerOutput) SampleRate() beep.SampleRate { return o.rate }

func (o *SpeakerOutput) Play(s beep.Streamer) { speaker.Play(s) }

func (o *SpeakerOutput) Lock()   { speaker.Lock() }
func (o *SpeakerOutput) Unlock() { speaker.Unlock() }

// Close drops anything still queued on the device.
func (o *SpeakerOutput) Close() error {
	speaker.Clear()
	return nil
}
