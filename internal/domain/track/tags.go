package track

import (
	"os"

	"github.com/dhowden/tag"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-playback/internal/domain/artwork"
)

// TagReader extracts display metadata from a file.
type TagReader func(path string) (Metadata, error)

// ReadTags reads ID3 (and other dhowden/tag supported) metadata. Embedded
// cover art is returned as-is.
func ReadTags(path string) (Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return Metadata{}, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return Metadata{}, err
	}

	meta := Metadata{
		Title:  m.Title(),
		Artist: m.Artist(),
		Album:  m.Album(),
	}
	if meta.Artist == "" {
		meta.Artist = m.AlbumArtist()
	}
	if pic := m.Picture(); pic != nil && len(pic.Data) > 0 {
		meta.Cover = pic.Data
		meta.CoverMIME = pic.MIMEType
	}
	return meta, nil
}

// shrinkCover replaces the embedded picture with a JPEG thumbnail. The
// picture is dropped if it cannot be decoded.
func shrinkCover(path string, meta Metadata, size artwork.ThumbnailSize) Metadata {
	if len(meta.Cover) == 0 || size <= 0 {
		return meta
	}
	thumb, err := artwork.Thumbnail(meta.Cover, size)
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("Dropping unreadable cover art")
		meta.Cover, meta.CoverMIME = nil, ""
		return meta
	}
	meta.Cover, meta.CoverMIME = thumb, "image/jpeg"
	return meta
}
