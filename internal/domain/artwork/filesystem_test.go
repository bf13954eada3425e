package artwork_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/edumarques81/stellar-playback/internal/domain/artwork"
)

func touch(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFindFolderArt(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		want  string
	}{
		{"cover beats folder", []string{"Album/folder.jpg", "Album/Cover.PNG"}, "Album/Cover.PNG"},
		{"any image as fallback", []string{"Album/scan-01.jpeg"}, "Album/scan-01.jpeg"},
		{"resource forks skipped", []string{"Album/._cover.jpg"}, ""},
		{"parent directory", []string{"folder.webp", "Album/notes.txt"}, "folder.webp"},
		{"nothing", []string{"Album/notes.txt"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			for _, f := range tt.files {
				touch(t, filepath.Join(root, f), []byte("x"))
			}
			touch(t, filepath.Join(root, "Album", "01.mp3"), nil)

			got := artwork.FindFolderArt(filepath.Join(root, "Album", "01.mp3"), 1)
			want := ""
			if tt.want != "" {
				want = filepath.Join(root, tt.want)
			}
			if got != want {
				t.Errorf("FindFolderArt = %q, want %q", got, want)
			}
		})
	}
}

func TestFolderArt(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "cover.png"), encodeTestImage(t, 600, 600))

	data, err := artwork.FolderArt(filepath.Join(root, "01.mp3"), artwork.ThumbSmall)
	if err != nil {
		t.Fatalf("FolderArt: %v", err)
	}
	if artwork.ContentType(data) != "image/jpeg" {
		t.Error("folder art should be re-encoded as JPEG")
	}

	empty := t.TempDir()
	if _, err := artwork.FolderArt(filepath.Join(empty, "01.mp3"), artwork.ThumbSmall); !errors.Is(err, artwork.ErrNoImage) {
		t.Errorf("expected ErrNoImage, got %v", err)
	}
}
