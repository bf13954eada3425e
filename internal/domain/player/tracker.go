package player

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// trackerRun describes one playing period for the position tracker.
type trackerRun struct {
	started    time.Time
	offsetMs   int64
	rate       float64
	frames     int64
	durationMs int64
	// tick receives each in-range position. Returning false ends the run.
	tick func(frame, ms int64) bool
}

// positionTracker derives the playback position from the wall clock and
// reports it on a fixed cadence. At most one run is alive at a time.
type positionTracker struct {
	interval time.Duration
	grace    time.Duration
	now      func() time.Time

	mu     sync.Mutex
	cancel chan struct{}
	done   chan struct{}

	alive atomic.Int32
}

func newPositionTracker(interval, grace time.Duration, now func() time.Time) *positionTracker {
	return &positionTracker{
		interval: interval,
		grace:    grace,
		now:      now,
	}
}

// start ends any current run before beginning r.
func (p *positionTracker) start(r trackerRun) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
	cancel := make(chan struct{})
	done := make(chan struct{})
	p.cancel, p.done = cancel, done

	p.alive.Add(1)
	go p.run(r, cancel, done)
}

func (p *positionTracker) stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *positionTracker) stopLocked() {
	if p.cancel == nil {
		return
	}
	close(p.cancel)
	select {
	case <-p.done:
	case <-time.After(p.grace):
		log.Warn().Dur("grace", p.grace).Msg("Position tracker did not exit in time")
	}
	p.cancel, p.done = nil, nil
}

// running reports how many tracker goroutines are alive.
func (p *positionTracker) running() int {
	return int(p.alive.Load())
}

func (p *positionTracker) run(r trackerRun, cancel, done chan struct{}) {
	defer close(done)
	defer p.alive.Add(-1)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-cancel:
			return
		case <-ticker.C:
		}

		elapsed := p.now().Sub(r.started).Milliseconds() + r.offsetMs
		frame := int64(math.Round(float64(elapsed) * r.rate))
		if elapsed < 0 || elapsed > r.durationMs || frame > r.frames {
			continue
		}
		if !r.tick(frame, elapsed) {
			return
		}
	}
}
