package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/edumarques81/stellar-playback/internal/domain/player"
)

type consoleStub struct {
	calls  []string
	volume float64
	seekMs int64
	mode   player.RepeatMode
}

func (c *consoleStub) record(name string) error { c.calls = append(c.calls, name); return nil }

func (c *consoleStub) TogglePause() error { return c.record("toggle") }
func (c *consoleStub) Next() error        { return c.record("next") }
func (c *consoleStub) Previous() error    { return c.record("previous") }
func (c *consoleStub) Shuffle() error     { return player.ErrNotShufflable }
func (c *consoleStub) Replay() error      { return c.record("replay") }
func (c *consoleStub) CycleRepeatMode() player.RepeatMode {
	c.mode = c.mode.Next()
	return c.mode
}
func (c *consoleStub) SeekToMillis(ms int64) error { c.seekMs = ms; return c.record("seek") }
func (c *consoleStub) SetVolume(v float64)         { c.volume = min(max(v, 0), 1) }
func (c *consoleStub) Snapshot() player.Snapshot   { return player.Snapshot{Volume: c.volume} }

func TestRunConsoleCommand(t *testing.T) {
	e := &consoleStub{volume: 0.5}
	var out bytes.Buffer

	for _, line := range []string{"p", "n", "b", "z", "", "  "} {
		if quit, err := runConsoleCommand(e, line, &out); quit || err != nil {
			t.Fatalf("%q: quit=%v err=%v", line, quit, err)
		}
	}
	if got := strings.Join(e.calls, ","); got != "toggle,next,previous,replay" {
		t.Errorf("calls = %s", got)
	}

	if _, err := runConsoleCommand(e, "seek 12.5", &out); err != nil || e.seekMs != 12500 {
		t.Errorf("seek: err=%v ms=%d", err, e.seekMs)
	}
	if _, err := runConsoleCommand(e, "+", &out); err != nil || e.volume < 0.59 || e.volume > 0.61 {
		t.Errorf("volume up: err=%v v=%v", err, e.volume)
	}
	runConsoleCommand(e, "r", &out)
	if !strings.Contains(out.String(), "repeat: all") {
		t.Errorf("output = %q", out.String())
	}

	if _, err := runConsoleCommand(e, "s", &out); !errors.Is(err, player.ErrNotShufflable) {
		t.Errorf("shuffle error = %v", err)
	}
	for _, bad := range []string{"seek", "seek abc", "x"} {
		if _, err := runConsoleCommand(e, bad, &out); err == nil {
			t.Errorf("%q should fail", bad)
		}
	}
	if quit, _ := runConsoleCommand(e, "q", &out); !quit {
		t.Error("q should quit")
	}
}

func TestFormatMillis(t *testing.T) {
	tests := map[int64]string{0: "0:00", 61000: "1:01", 3599999: "59:59"}
	for ms, want := range tests {
		if got := formatMillis(ms); got != want {
			t.Errorf("formatMillis(%d) = %q, want %q", ms, got, want)
		}
	}
}
