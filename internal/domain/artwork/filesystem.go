package artwork

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// folderNames are cover image base names in priority order.
var folderNames = []string{"cover", "folder", "front", "album", "artwork"}

var imageExts = []string{".jpg", ".jpeg", ".png", ".webp"}

// FindFolderArt looks for a cover image in the directory of trackPath and
// then in up to parents directories above it. It returns "" if none is found.
func FindFolderArt(trackPath string, parents int) string {
	dir := filepath.Dir(trackPath)
	for level := 0; level <= parents; level++ {
		if p := searchDir(dir); p != "" {
			log.Debug().Str("track", trackPath).Str("art", p).Int("level", level).Msg("Found folder art")
			return p
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// searchDir prefers well-known names in any letter case and falls back to
// the first image in the directory.
func searchDir(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	images := lo.Filter(entries, func(e os.DirEntry, _ int) bool {
		name := e.Name()
		// "._x.jpg" are macOS resource forks, not images.
		return !e.IsDir() && !strings.HasPrefix(name, "._") &&
			lo.Contains(imageExts, strings.ToLower(filepath.Ext(name)))
	})
	if len(images) == 0 {
		return ""
	}

	for _, want := range folderNames {
		for _, e := range images {
			base := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
			if strings.EqualFold(base, want) {
				return filepath.Join(dir, e.Name())
			}
		}
	}
	return filepath.Join(dir, images[0].Name())
}

// FolderArt returns the folder image for trackPath scaled to size.
func FolderArt(trackPath string, size ThumbnailSize) ([]byte, error) {
	p := FindFolderArt(trackPath, 1)
	if p == "" {
		return nil, ErrNoImage
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read folder art: %w", err)
	}
	return Thumbnail(data, size)
}
