// Package player implements the transport state machine that drives playback
// sessions over a single track or a playlist.
package player

import (
	"net/url"

	"github.com/edumarques81/stellar-playback/internal/domain/track"
)

// Status is the coarse transport state.
type Status string

// Status constants for player state
const (
	StatusIdle     Status = "idle"
	StatusPaused   Status = "pause"
	StatusPlaying  Status = "play"
	StatusFinished Status = "finished"
)

// TrackInfo contains display metadata about a track.
type TrackInfo struct {
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Album      string `json:"album"`
	Path       string `json:"path"`
	DurationMs int64  `json:"durationMs"`
	Frames     int64  `json:"frames"`
	HasCover   bool   `json:"hasCover"`
}

// InfoOf describes t. A nil track yields the zero value.
func InfoOf(t *track.Track) TrackInfo {
	if t == nil {
		return TrackInfo{}
	}
	return TrackInfo{
		Title:      t.Title(),
		Artist:     t.Artist(),
		Album:      t.Album(),
		Path:       t.Path(),
		DurationMs: t.DurationMs(),
		Frames:     t.FrameCount(),
		HasCover:   t.HasCover(),
	}
}

// Snapshot is a consistent copy of the engine state.
type Snapshot struct {
	Status Status
	Track  *TrackInfo

	// Playlist fields are zero in single-track mode.
	Playlist       string
	PlaylistLength int
	Cursor         int

	Repeat RepeatMode
	Frame  int64
	Millis int64
	Volume float64
	Error  string
}

// Playing reports whether audio is being rendered.
func (s Snapshot) Playing() bool {
	return s.Status == StatusPlaying
}

// ToJSON returns the snapshot as a map suitable for JSON serialization,
// in the pushState shape Volumio clients expect.
func (s Snapshot) ToJSON() map[string]interface{} {
	m := map[string]interface{}{
		"status":       string(s.Status),
		"position":     s.Cursor,
		"seek":         s.Millis,
		"frame":        s.Frame,
		"playlist":     s.Playlist,
		"playlistSize": s.PlaylistLength,
		"repeat":       s.Repeat != NoRepeat,
		"repeatSingle": s.Repeat == RepeatOne,
		"repeatMode":   s.Repeat.String(),
		"volume":       int(s.Volume*100 + 0.5),
		"title":        "",
		"artist":       "",
		"album":        "",
		"uri":          "",
		"duration":     0,
		"albumart":     "",
		"trackType":    "mp3",
		"service":      "local",
	}
	if s.Track != nil {
		m["title"] = s.Track.Title
		m["artist"] = s.Track.Artist
		m["album"] = s.Track.Album
		m["uri"] = s.Track.Path
		m["duration"] = s.Track.DurationMs / 1000
		if s.Track.HasCover {
			m["albumart"] = "/api/v1/cover?path=" + url.QueryEscape(s.Track.Path)
		}
	}
	if s.Error != "" {
		m["error"] = s.Error
	}
	return m
}
