// Package playlist provides ordered track collections with a play cursor.
package playlist

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/edumarques81/stellar-playback/internal/domain/track"
)

// ErrEmpty is returned when a playlist would have no playable tracks.
var ErrEmpty = errors.New("playlist is empty")

// ErrOutOfRange is returned for cursor positions outside the playlist.
var ErrOutOfRange = errors.New("playlist index out of range")

// Origin records where a playlist came from.
type Origin int

const (
	OriginMemory Origin = iota
	OriginFile
	OriginMPD
)

func (o Origin) String() string {
	switch o {
	case OriginFile:
		return "file"
	case OriginMPD:
		return "mpd"
	default:
		return "memory"
	}
}

// Playlist is a non-empty ordered list of tracks. Duplicates are allowed.
// The cursor always points at a valid index.
type Playlist struct {
	mu     sync.RWMutex
	name   string
	origin Origin
	path   string
	tracks []*track.Track
	cursor int
}

// FromTracks wraps an existing list. The slice is copied.
func FromTracks(name string, tracks []*track.Track) (*Playlist, error) {
	return build(name, OriginMemory, "", tracks)
}

func build(name string, origin Origin, path string, tracks []*track.Track) (*Playlist, error) {
	if len(tracks) == 0 {
		return nil, ErrEmpty
	}
	return &Playlist{
		name:   name,
		origin: origin,
		path:   path,
		tracks: append([]*track.Track(nil), tracks...),
	}, nil
}

func (p *Playlist) Name() string   { return p.name }
func (p *Playlist) Origin() Origin { return p.origin }

// Path is the source file for file playlists and the stored name for MPD ones.
func (p *Playlist) Path() string { return p.path }

func (p *Playlist) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.tracks)
}

func (p *Playlist) Cursor() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cursor
}

// Current returns the track under the cursor.
func (p *Playlist) Current() *track.Track {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tracks[p.cursor]
}

// At returns the track at index i.
func (p *Playlist) At(i int) (*track.Track, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if i < 0 || i >= len(p.tracks) {
		return nil, fmt.Errorf("%w: %d of %d", ErrOutOfRange, i, len(p.tracks))
	}
	return p.tracks[i], nil
}

// SetCursor moves the cursor to i and returns the track there.
func (p *Playlist) SetCursor(i int) (*track.Track, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i < 0 || i >= len(p.tracks) {
		return nil, fmt.Errorf("%w: %d of %d", ErrOutOfRange, i, len(p.tracks))
	}
	p.cursor = i
	return p.tracks[i], nil
}

// Tracks returns a copy of the track list.
func (p *Playlist) Tracks() []*track.Track {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]*track.Track(nil), p.tracks...)
}

// Shuffle permutes the tracks in place with a uniform Fisher-Yates shuffle
// and resets the cursor to the first track.
func (p *Playlist) Shuffle(r *rand.Rand) {
	p.mu.Lock()
	defer p.mu.Unlock()

	shuffle := rand.Shuffle
	if r != nil {
		shuffle = r.Shuffle
	}
	shuffle(len(p.tracks), func(i, j int) {
		p.tracks[i], p.tracks[j] = p.tracks[j], p.tracks[i]
	})
	p.cursor = 0
}
