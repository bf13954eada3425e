package track

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-playback/internal/audio"
	"github.com/edumarques81/stellar-playback/internal/domain/artwork"
)

// Prober reports the decoded length of a file.
type Prober func(path string) (audio.Info, error)

// ProbeKey identifies one version of a file on disk.
type ProbeKey struct {
	Path    string
	Size    int64
	ModTime int64
}

// ProbeCache stores probe results between runs.
type ProbeCache interface {
	Get(key ProbeKey) (audio.Info, bool)
	Put(key ProbeKey, info audio.Info) error
}

// Loader builds Tracks from paths. Decoding and tag reading fail independently:
// only the former makes a file unloadable.
type Loader struct {
	probe     Prober
	tags      TagReader
	cache     ProbeCache
	coverSize artwork.ThumbnailSize
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithProber replaces the MP3 probe.
func WithProber(p Prober) LoaderOption {
	return func(l *Loader) { l.probe = p }
}

// WithTagReader replaces the tag reader.
func WithTagReader(r TagReader) LoaderOption {
	return func(l *Loader) { l.tags = r }
}

// WithProbeCache enables caching of probe results.
func WithProbeCache(c ProbeCache) LoaderOption {
	return func(l *Loader) { l.cache = c }
}

// WithCoverSize sets the thumbnail bound for embedded art. Zero keeps the original.
func WithCoverSize(size int) LoaderOption {
	return func(l *Loader) { l.coverSize = artwork.ThumbnailSize(size) }
}

// NewLoader creates a loader using the MP3 probe and ID3 tags.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		probe:     audio.Probe,
		tags:      ReadTags,
		coverSize: artwork.ThumbMedium,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load constructs the Track for path.
func (l *Loader) Load(path string) (*Track, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, &UnreadableAudioError{Path: path, Err: err}
	}
	if st.IsDir() {
		return nil, &UnreadableAudioError{Path: path, Err: errors.New("is a directory")}
	}

	key := ProbeKey{Path: path, Size: st.Size(), ModTime: st.ModTime().UnixNano()}
	info, err := l.probeCached(key)
	if err != nil {
		return nil, &UnreadableAudioError{Path: path, Err: err}
	}

	meta, err := l.tags(path)
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("No readable tags, using placeholders")
		meta = Metadata{}
	}
	meta = shrinkCover(path, meta, l.coverSize)

	t, err := New(path, info.DurationMs, info.Frames, meta)
	if err != nil {
		return nil, err
	}
	log.Debug().
		Str("path", filepath.Base(path)).
		Int64("duration_ms", t.DurationMs()).
		Int64("frames", t.FrameCount()).
		Msg("Track loaded")
	return t, nil
}

func (l *Loader) probeCached(key ProbeKey) (audio.Info, error) {
	if l.cache != nil {
		if info, ok := l.cache.Get(key); ok {
			return info, nil
		}
	}

	info, err := l.probe(key.Path)
	if err != nil {
		return audio.Info{}, err
	}

	if l.cache != nil {
		if err := l.cache.Put(key, info); err != nil {
			log.Warn().Err(err).Str("path", key.Path).Msg("Failed to cache probe result")
		}
	}
	return info, nil
}
