package player

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Event is something the engine tells its UI about.
type Event interface {
	Name() string
}

// TrackChanged is published when a different track becomes current.
type TrackChanged struct {
	Track TrackInfo
	Index int // -1 in single-track mode
}

// PositionUpdated is published by the position tracker while playing and after seeks.
type PositionUpdated struct {
	Frame      int64
	Millis     int64
	DurationMs int64
}

// PlaybackStateChanged tells the UI definitively whether audio is playing.
type PlaybackStateChanged struct {
	Status Status
}

// RepeatModeChanged is published on every repeat mode change, including downgrades.
type RepeatModeChanged struct {
	Mode RepeatMode
}

// PlaylistChanged is published when a playlist is loaded, shuffled or cleared.
type PlaylistChanged struct {
	Playlist string
	Length   int
	Cursor   int
}

// ErrorOccurred carries failures that happen off the caller's goroutine.
type ErrorOccurred struct {
	Err error
}

func (TrackChanged) Name() string         { return "track" }
func (PositionUpdated) Name() string      { return "position" }
func (PlaybackStateChanged) Name() string { return "state" }
func (RepeatModeChanged) Name() string    { return "repeat" }
func (PlaylistChanged) Name() string      { return "playlist" }
func (ErrorOccurred) Name() string        { return "error" }

// Sink receives engine events. Publish may be called from any goroutine,
// including the position tracker, and must not call back into the engine
// synchronously.
type Sink interface {
	Publish(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Publish(e Event) { f(e) }

// Fanout forwards every event to all registered sinks in order.
type Fanout struct {
	mu    sync.RWMutex
	sinks []Sink
}

// NewFanout creates a fanout over sinks.
func NewFanout(sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks}
}

// Add registers another sink.
func (f *Fanout) Add(s Sink) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sinks = append(f.sinks, s)
}

func (f *Fanout) Publish(e Event) {
	f.mu.RLock()
	sinks := f.sinks
	f.mu.RUnlock()

	for _, s := range sinks {
		s.Publish(e)
	}
}

// LogSink writes events to the global zerolog logger. Position ticks are
// logged at trace level only.
type LogSink struct{}

func (LogSink) Publish(e Event) {
	switch ev := e.(type) {
	case TrackChanged:
		log.Info().
			Str("title", ev.Track.Title).
			Str("artist", ev.Track.Artist).
			Int("index", ev.Index).
			Msg("Now playing")
	case PositionUpdated:
		log.Trace().Int64("frame", ev.Frame).Int64("ms", ev.Millis).Msg("Position")
	case PlaybackStateChanged:
		log.Info().Str("status", string(ev.Status)).Msg("Playback state")
	case RepeatModeChanged:
		log.Info().Stringer("mode", ev.Mode).Msg("Repeat mode")
	case PlaylistChanged:
		log.Info().Str("playlist", ev.Playlist).Int("tracks", ev.Length).Int("cursor", ev.Cursor).Msg("Playlist")
	case ErrorOccurred:
		log.Error().Err(ev.Err).Msg("Playback error")
	}
}
