package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/edumarques81/stellar-playback/internal/domain/artwork"
	"github.com/edumarques81/stellar-playback/internal/domain/player"
)

func testAPI() http.Handler {
	png := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	a := &api{
		snapshot: func() player.Snapshot {
			return player.Snapshot{Status: player.StatusPlaying, Millis: 1500, Volume: 0.8}
		},
		cover: func(path string) ([]byte, error) {
			if path == "/music/a.mp3" {
				return png, nil
			}
			return nil, artwork.ErrNoImage
		},
		mpd: func() string { return "disabled" },
	}
	mux := http.NewServeMux()
	a.register(mux)
	return corsMiddleware("*", mux)
}

func TestAPIState(t *testing.T) {
	rec := httptest.NewRecorder()
	testAPI().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/state", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["status"] != "play" || body["seek"] != float64(1500) || body["volume"] != float64(80) {
		t.Errorf("unexpected state %v", body)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("CORS header missing")
	}
}

func TestAPIHealthAndVersion(t *testing.T) {
	h := testAPI()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	var health map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if health["status"] != "ok" || health["player"] != "play" || health["mpd"] != "disabled" {
		t.Errorf("unexpected health %v", health)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/version", nil))
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/json" {
		t.Errorf("version: %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
}

func TestAPICover(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantCode int
		wantType string
	}{
		{"found", "/api/v1/cover?path=%2Fmusic%2Fa.mp3", http.StatusOK, "image/png"},
		{"unknown", "/api/v1/cover?path=%2Fetc%2Fpasswd", http.StatusNotFound, ""},
		{"missing path", "/api/v1/cover", http.StatusBadRequest, ""},
	}
	h := testAPI()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.url, nil))
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantType != "" && rec.Header().Get("Content-Type") != tt.wantType {
				t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
			}
		})
	}
}
