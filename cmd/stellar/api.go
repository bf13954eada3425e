package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-playback/internal/domain/artwork"
	"github.com/edumarques81/stellar-playback/internal/domain/player"
	"github.com/edumarques81/stellar-playback/internal/version"
)

// api serves the REST endpoints next to the Socket.io server.
type api struct {
	snapshot func() player.Snapshot
	cover    func(path string) ([]byte, error)
	mpd      func() string
}

func (a *api) register(mux *http.ServeMux) {
	mux.HandleFunc("/health", a.health)
	mux.HandleFunc("/api/v1/version", a.version)
	mux.HandleFunc("/api/v1/state", a.state)
	mux.HandleFunc("/api/v1/cover", a.coverArt)
}

func (a *api) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"player": string(a.snapshot().Status),
		"mpd":    a.mpd(),
	})
}

func (a *api) version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, version.GetInfo())
}

func (a *api) state(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.snapshot().ToJSON())
}

func (a *api) coverArt(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		http.Error(w, "path parameter required", http.StatusBadRequest)
		return
	}

	data, err := a.cover(path)
	if err != nil {
		if !errors.Is(err, artwork.ErrNoImage) {
			log.Debug().Err(err).Str("path", path).Msg("Cover lookup failed")
		}
		http.Error(w, "album art not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", artwork.ContentType(data))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("Failed to write response")
	}
}
