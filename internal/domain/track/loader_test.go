package track_test

import (
	"bytes"
	"errors"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/edumarques81/stellar-playback/internal/audio"
	"github.com/edumarques81/stellar-playback/internal/domain/track"
)

type memCache struct {
	mu      sync.Mutex
	entries map[track.ProbeKey]audio.Info
}

func (c *memCache) Get(key track.ProbeKey) (audio.Info, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	info, ok := c.entries[key]
	return info, ok
}

func (c *memCache) Put(key track.ProbeKey, info audio.Info) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = info
	return nil
}

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("ID3"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func fixedProbe(calls *int) track.Prober {
	return func(string) (audio.Info, error) {
		*calls++
		return audio.Info{Frames: 383, DurationMs: 10000, SampleRate: 44100}, nil
	}
}

func TestLoaderLoad(t *testing.T) {
	path := writeFile(t, t.TempDir(), "song.mp3")
	calls := 0
	l := track.NewLoader(
		track.WithProber(fixedProbe(&calls)),
		track.WithTagReader(func(string) (track.Metadata, error) {
			return track.Metadata{Title: "Title", Artist: "Artist"}, nil
		}),
	)

	tr, err := l.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tr.Path() != path || tr.FrameCount() != 383 || tr.DurationMs() != 10000 {
		t.Errorf("unexpected track: %s %d %d", tr.Path(), tr.FrameCount(), tr.DurationMs())
	}
	if tr.Title() != "Title" || tr.Artist() != "Artist" {
		t.Errorf("unexpected tags: %s", tr)
	}
}

func TestLoaderTagFailureIsNotFatal(t *testing.T) {
	path := writeFile(t, t.TempDir(), "untagged.mp3")
	calls := 0
	l := track.NewLoader(
		track.WithProber(fixedProbe(&calls)),
		track.WithTagReader(func(string) (track.Metadata, error) {
			return track.Metadata{}, errors.New("no tags")
		}),
	)

	tr, err := l.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tr.Title() != track.Placeholder || tr.Artist() != track.Placeholder {
		t.Errorf("expected placeholders, got %s", tr)
	}
}

func TestLoaderUnreadable(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.mp3")

	l := track.NewLoader(track.WithProber(func(string) (audio.Info, error) {
		return audio.Info{}, errors.New("not an mp3")
	}))

	tests := []struct {
		name string
		path string
	}{
		{"missing", filepath.Join(dir, "missing.mp3")},
		{"directory", dir},
		{"undecodable", bad},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Load(tt.path)
			if !errors.Is(err, track.ErrUnreadableAudio) {
				t.Errorf("expected ErrUnreadableAudio, got %v", err)
			}
		})
	}
}

func TestLoaderUsesProbeCache(t *testing.T) {
	path := writeFile(t, t.TempDir(), "cached.mp3")
	calls := 0
	cache := &memCache{entries: make(map[track.ProbeKey]audio.Info)}
	l := track.NewLoader(
		track.WithProber(fixedProbe(&calls)),
		track.WithProbeCache(cache),
		track.WithTagReader(func(string) (track.Metadata, error) { return track.Metadata{}, nil }),
	)

	for i := 0; i < 3; i++ {
		if _, err := l.Load(path); err != nil {
			t.Fatalf("Load #%d: %v", i, err)
		}
	}
	if calls != 1 {
		t.Errorf("probe called %d times, want 1", calls)
	}
}

func TestLoaderShrinksCover(t *testing.T) {
	path := writeFile(t, t.TempDir(), "art.mp3")

	img := image.NewRGBA(image.Rect(0, 0, 400, 400))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}

	calls := 0
	l := track.NewLoader(
		track.WithProber(fixedProbe(&calls)),
		track.WithCoverSize(100),
		track.WithTagReader(func(string) (track.Metadata, error) {
			return track.Metadata{Title: "A", Cover: buf.Bytes(), CoverMIME: "image/png"}, nil
		}),
	)

	tr, err := l.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	data, mime := tr.Cover()
	if mime != "image/jpeg" || len(data) == 0 {
		t.Fatalf("expected jpeg thumbnail, got %q (%d bytes)", mime, len(data))
	}
	thumb, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	if thumb.Bounds().Dx() != 100 {
		t.Errorf("thumbnail width = %d, want 100", thumb.Bounds().Dx())
	}
}

func TestReadTagsOnUntaggedFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "plain.mp3")
	if _, err := track.ReadTags(path); err == nil {
		t.Error("expected an error for a file without tags")
	}
}
