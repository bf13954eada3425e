package playlist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/edumarques81/stellar-playback/internal/domain/track"
)

// TrackLoader builds a Track from a path.
type TrackLoader interface {
	Load(path string) (*track.Track, error)
}

// ParsePaths reads one path per line. Blank lines and # comments are skipped;
// relative paths are resolved against baseDir.
func ParsePaths(r io.Reader, baseDir string) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read playlist: %w", err)
	}

	return lo.FilterMap(lines, func(line string, _ int) (string, bool) {
		line = strings.TrimSpace(strings.TrimPrefix(line, "\ufeff"))
		if line == "" || strings.HasPrefix(line, "#") {
			return "", false
		}
		if !filepath.IsAbs(line) && baseDir != "" {
			line = filepath.Join(baseDir, line)
		}
		return filepath.Clean(line), true
	}), nil
}

// LoadFile reads a path-list file and builds the tracks it names.
func LoadFile(path string, loader TrackLoader) (*Playlist, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open playlist: %w", err)
	}
	defer f.Close()

	paths, err := ParsePaths(f, filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return FromPaths(name, OriginFile, path, paths, loader)
}

// FromPaths loads every path, dropping entries that cannot be built.
// ErrEmpty is returned when nothing survives.
func FromPaths(name string, origin Origin, source string, paths []string, loader TrackLoader) (*Playlist, error) {
	tracks := lo.FilterMap(paths, func(p string, _ int) (*track.Track, bool) {
		t, err := loader.Load(p)
		if err != nil {
			log.Warn().Err(err).Str("playlist", name).Str("entry", p).Msg("Skipping playlist entry")
			return nil, false
		}
		return t, true
	})

	pl, err := build(name, origin, source, tracks)
	if errors.Is(err, ErrEmpty) {
		return nil, fmt.Errorf("%s: %w", name, ErrEmpty)
	}
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("playlist", name).
		Str("origin", origin.String()).
		Int("tracks", len(tracks)).
		Int("skipped", len(paths)-len(tracks)).
		Msg("Playlist loaded")
	return pl, nil
}
