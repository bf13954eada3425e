package player

import (
	"errors"
	"fmt"

	"github.com/edumarques81/stellar-playback/internal/domain/playlist"
)

var (
	ErrNoTrack       = errors.New("no track loaded")
	ErrEmptyPlaylist = playlist.ErrEmpty
	ErrNoPlaylist    = errors.New("no playlist loaded")
	ErrNotShufflable = errors.New("playlist cannot be shuffled")
	ErrNotPlaying    = errors.New("not currently playing")
	ErrClosed        = errors.New("engine closed")
)

// LoadError reports a track or playlist that could not be loaded. The engine
// state is unchanged when it is returned.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
