package audio

import (
	"strconv"
	"sync"

	"github.com/gopxl/beep/v2"
	"github.com/rs/zerolog/log"
)

// AudioFormat represents the format of the stream currently being rendered.
type AudioFormat struct {
	SampleRate int  `json:"sampleRate"` // Source sample rate in Hz
	OutputRate int  `json:"outputRate"` // Device sample rate in Hz
	BitDepth   int  `json:"bitDepth"`
	Channels   int  `json:"channels"`
	Resampled  bool `json:"resampled"`
}

// AudioStatus represents the current audio output status.
type AudioStatus struct {
	Locked bool         `json:"locked"` // True while a session holds the output
	Format *AudioFormat `json:"format"` // nil when idle
}

// Controller tracks whether a session holds the output and what it renders.
type Controller struct {
	mu            sync.RWMutex
	isLocked      bool
	currentFormat *AudioFormat
}

// NewController creates a new audio controller.
func NewController() *Controller {
	return &Controller{}
}

// GetStatus returns the current audio status.
func (c *Controller) GetStatus() AudioStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return AudioStatus{
		Locked: c.isLocked,
		Format: c.currentFormat,
	}
}

// OnPlaybackStart marks the output as held by a stream of the given format.
func (c *Controller) OnPlaybackStart(src beep.Format, out beep.SampleRate) {
	format := &AudioFormat{
		SampleRate: int(src.SampleRate),
		OutputRate: int(out),
		BitDepth:   src.Precision * 8,
		Channels:   src.NumChannels,
		Resampled:  src.SampleRate != out,
	}

	c.mu.Lock()
	changed := !c.isLocked || !audioFormatEqual(c.currentFormat, format)
	c.isLocked = true
	c.currentFormat = format
	c.mu.Unlock()

	if changed {
		log.Debug().
			Str("rate", FormatSampleRate(format.SampleRate)).
			Str("depth", FormatBitDepth(format.BitDepth)).
			Bool("resampled", format.Resampled).
			Msg("Audio output acquired")
	}
}

// OnPlaybackStop releases the output.
func (c *Controller) OnPlaybackStop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isLocked = false
	c.currentFormat = nil
}

// FormatSampleRate returns a human-readable sample rate string.
func FormatSampleRate(sampleRate int) string {
	if sampleRate >= 1000 {
		return strconv.FormatFloat(float64(sampleRate)/1000, 'f', -1, 64) + "kHz"
	}
	return strconv.Itoa(sampleRate) + "Hz"
}

// FormatBitDepth returns a human-readable bit depth string.
func FormatBitDepth(bitDepth int) string {
	return strconv.Itoa(bitDepth) + "-bit"
}

func audioFormatEqual(a, b *AudioFormat) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
