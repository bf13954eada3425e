package socketio

import (
	"os"

	"github.com/edumarques81/stellar-playback/internal/audio"
	"github.com/edumarques81/stellar-playback/internal/version"
)

// AudioStatusSource reports the output device state.
type AudioStatusSource interface {
	GetStatus() audio.AudioStatus
}

// SystemInfo describes this player to clients.
type SystemInfo struct {
	ID            string             `json:"id"`
	Host          string             `json:"host"`
	Name          string             `json:"name"`
	Type          string             `json:"type"`
	SystemVersion string             `json:"systemversion"`
	BuildDate     string             `json:"builddate"`
	Output        *audio.AudioStatus `json:"output,omitempty"`
}

// GetSystemInfo collects host and build details, plus the output status when
// src is not nil.
func GetSystemInfo(src AudioStatusSource) SystemInfo {
	v := version.GetInfo()
	info := SystemInfo{
		Type:          "audio_player",
		Name:          v.Name,
		SystemVersion: v.Version,
		BuildDate:     v.BuildTime,
	}
	if hostname, err := os.Hostname(); err == nil {
		info.Host = hostname
		info.ID = hostname
	}
	if src != nil {
		st := src.GetStatus()
		info.Output = &st
	}
	return info
}
