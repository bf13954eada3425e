package mpd

import (
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/edumarques81/stellar-playback/internal/domain/playlist"
)

// StoredPlaylist imports an MPD stored playlist. Song URIs are resolved
// against musicDir; stream URLs are skipped since they cannot be decoded
// from disk.
func (c *Client) StoredPlaylist(name, musicDir string, loader playlist.TrackLoader) (*playlist.Playlist, error) {
	files, err := c.PlaylistFiles(name)
	if err != nil {
		return nil, err
	}

	paths := lo.FilterMap(files, func(uri string, _ int) (string, bool) {
		if strings.Contains(uri, "://") {
			log.Debug().Str("playlist", name).Str("uri", uri).Msg("Skipping stream entry")
			return "", false
		}
		return LocalPath(musicDir, uri), true
	})
	return playlist.FromPaths(name, playlist.OriginMPD, name, paths, loader)
}

// LocalPath maps an MPD song URI onto the local filesystem.
func LocalPath(musicDir, uri string) string {
	if filepath.IsAbs(uri) || musicDir == "" {
		return filepath.Clean(uri)
	}
	return filepath.Join(musicDir, filepath.FromSlash(uri))
}

// RelativeURI is the inverse of LocalPath. ok is false for paths outside musicDir.
func RelativeURI(musicDir, path string) (string, bool) {
	if musicDir == "" {
		return "", false
	}
	rel, err := filepath.Rel(musicDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// Importer binds a client to the local music directory so stored playlists
// can be loaded as playlist sources.
type Importer struct {
	client   *Client
	musicDir string
	loader   playlist.TrackLoader
}

// NewImporter creates an importer resolving song URIs against musicDir.
func NewImporter(c *Client, musicDir string, loader playlist.TrackLoader) *Importer {
	return &Importer{client: c, musicDir: musicDir, loader: loader}
}

// ListPlaylists returns the stored playlist names.
func (i *Importer) ListPlaylists() ([]string, error) {
	return i.client.ListPlaylists()
}

// Import loads the stored playlist called name.
func (i *Importer) Import(name string) (*playlist.Playlist, error) {
	return i.client.StoredPlaylist(name, i.musicDir, i.loader)
}

// Watch reports changes to the stored playlist set.
func (i *Importer) Watch() (<-chan string, error) {
	return i.client.Watch("stored_playlist")
}
