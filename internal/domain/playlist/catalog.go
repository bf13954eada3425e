package playlist

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Extensions lists the file suffixes recognised as playlist definitions.
var Extensions = []string{".m3u", ".m3u8", ".txt", ".playlist"}

// ErrNoPlaylistFound is returned when discovery has nothing to offer.
var ErrNoPlaylistFound = errors.New("no other playlist found")

// Catalog lists the playlist files in one directory.
type Catalog struct {
	dir string

	mu      sync.RWMutex
	entries []string
	watcher *fsnotify.Watcher
}

// NewCatalog creates a catalog for dir. Call Refresh or Watch to populate it.
func NewCatalog(dir string) *Catalog {
	return &Catalog{dir: dir}
}

func (c *Catalog) Dir() string { return c.dir }

// IsPlaylistFile reports whether name has a playlist extension.
func IsPlaylistFile(name string) bool {
	return slices.Contains(Extensions, strings.ToLower(filepath.Ext(name)))
}

// Refresh rescans the directory.
func (c *Catalog) Refresh() error {
	dirEntries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("scan playlist dir: %w", err)
	}

	files := lo.FilterMap(dirEntries, func(e os.DirEntry, _ int) (string, bool) {
		if e.IsDir() || !IsPlaylistFile(e.Name()) {
			return "", false
		}
		return filepath.Join(c.dir, e.Name()), true
	})
	slices.Sort(files)

	c.mu.Lock()
	c.entries = files
	c.mu.Unlock()

	log.Debug().Str("dir", c.dir).Int("playlists", len(files)).Msg("Playlist catalog refreshed")
	return nil
}

// Entries returns the known playlist files in lexical order.
func (c *Catalog) Entries() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.entries)
}

// RandomOther picks a playlist file at random, never exclude. Paths are
// compared in absolute form, so a relative directory still excludes a
// playlist loaded by absolute path.
func (c *Catalog) RandomOther(exclude string) (string, error) {
	if exclude != "" {
		exclude = absPath(exclude)
	}
	candidates := lo.Filter(c.Entries(), func(p string, _ int) bool {
		return absPath(p) != exclude
	})
	if len(candidates) == 0 {
		return "", ErrNoPlaylistFound
	}
	return candidates[rand.IntN(len(candidates))], nil
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

// Watch refreshes the catalog whenever a playlist file in the directory
// changes, until ctx is cancelled or Close is called.
func (c *Catalog) Watch(ctx context.Context) error {
	if err := c.Refresh(); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to initialize watcher: %w", err)
	}
	if err := watcher.Add(c.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", c.dir, err)
	}

	c.mu.Lock()
	c.watcher = watcher
	c.mu.Unlock()

	go c.watchLoop(ctx, watcher)
	log.Info().Str("dir", c.dir).Msg("Watching playlist directory")
	return nil
}

func (c *Catalog) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	relevant := fsnotify.Create | fsnotify.Remove | fsnotify.Rename | fsnotify.Write
	for {
		select {
		case <-ctx.Done():
			c.Close()
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&relevant == 0 || !IsPlaylistFile(event.Name) {
				continue
			}
			if err := c.Refresh(); err != nil {
				log.Warn().Err(err).Msg("Playlist catalog refresh failed")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("Playlist watcher error")
		}
	}
}

// Close stops watching. It is safe to call more than once.
func (c *Catalog) Close() error {
	c.mu.Lock()
	w := c.watcher
	c.watcher = nil
	c.mu.Unlock()

	if w == nil {
		return nil
	}
	return w.Close()
}
