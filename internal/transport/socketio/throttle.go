package socketio

import (
	"sync"
	"time"

	"github.com/edumarques81/stellar-playback/internal/domain/player"
)

// BroadcastThrottle collapses engine events into at most one state broadcast
// and one position broadcast per window. The position tracker ticks every few
// milliseconds; clients only need the latest value.
type BroadcastThrottle struct {
	window           time.Duration
	stateCallback    func()
	positionCallback func(player.PositionUpdated)

	mu           sync.Mutex
	pendingState bool
	pendingPos   *player.PositionUpdated
	timer        *time.Timer
	stopped      bool
}

// NewBroadcastThrottle creates a throttle with the given window.
// stateCallback runs after state-bearing events, positionCallback with the
// most recent position seen in the window.
func NewBroadcastThrottle(window time.Duration, stateCallback func(), positionCallback func(player.PositionUpdated)) *BroadcastThrottle {
	return &BroadcastThrottle{
		window:           window,
		stateCallback:    stateCallback,
		positionCallback: positionCallback,
	}
}

// Trigger records an engine event. Unlike a debounce, the window is not
// extended by later events, so a steady stream still flushes once per window.
func (d *BroadcastThrottle) Trigger(ev player.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	switch e := ev.(type) {
	case player.PositionUpdated:
		d.pendingPos = &e
	case player.TrackChanged, player.PlaybackStateChanged, player.RepeatModeChanged, player.PlaylistChanged:
		d.pendingState = true
	default:
		return
	}

	if d.timer == nil {
		d.timer = time.AfterFunc(d.window, d.flush)
	}
}

func (d *BroadcastThrottle) flush() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	doState := d.pendingState
	pos := d.pendingPos
	d.pendingState = false
	d.pendingPos = nil
	d.timer = nil
	d.mu.Unlock()

	if doState && d.stateCallback != nil {
		d.stateCallback()
	}
	if pos != nil && d.positionCallback != nil {
		d.positionCallback(*pos)
	}
}

// Stop prevents any further callbacks from firing.
func (d *BroadcastThrottle) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pendingState = false
	d.pendingPos = nil
}
