//go:build !((linux && cgo) || windows || darwin)

package audio

import (
	"errors"
	"time"

	"github.com/gopxl/beep/v2"
)

// DeviceAvailable reports whether this build can open a sound device.
// The native backends need cgo on linux.
const DeviceAvailable = false

// ErrNoDevice is returned when the build has no sound backend.
var ErrNoDevice = errors.New("audio device support not compiled in")

// SpeakerOutput is a placeholder for builds without a sound backend.
type SpeakerOutput struct {
	rate beep.SampleRate
}

// NewSpeakerOutput always fails in this build. Use ClockedOutput instead.
func NewSpeakerOutput(rate beep.SampleRate, buffer time.Duration) (*SpeakerOutput, error) {
	return nil, ErrNoDevice
}

func (o *SpeakerOutput) SampleRate() beep.SampleRate { return o.rate }
func (o *SpeakerOutput) Play(s beep.Streamer)        {}
func (o *SpeakerOutput) Lock()                       {}
func (o *SpeakerOutput) Unlock()                     {}
func (o *SpeakerOutput) Close() error                { return nil }
