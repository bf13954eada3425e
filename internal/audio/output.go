package audio

import (
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
)

// Output is a sink that pulls samples from the streamers handed to Play.
// Lock and Unlock guard any streamer state that the output reads concurrently.
type Output interface {
	SampleRate() beep.SampleRate
	Play(s beep.Streamer)
	Lock()
	Unlock()
}

// ClockedOutput drains its streamers in real time without a sound device.
// A speed above 1 consumes audio faster than the wall clock.
type ClockedOutput struct {
	rate   beep.SampleRate
	period time.Duration
	speed  float64

	mu    sync.Mutex
	mixer beep.Mixer
	buf   [][2]float64

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewClockedOutput starts a headless output that mixes every period.
func NewClockedOutput(rate beep.SampleRate, period time.Duration, speed float64) *ClockedOutput {
	if period <= 0 {
		period = 10 * time.Millisecond
	}
	if speed <= 0 {
		speed = 1
	}
	n := int(float64(rate.N(period)) * speed)
	if n < 1 {
		n = 1
	}
	o := &ClockedOutput{
		rate:   rate,
		period: period,
		speed:  speed,
		buf:    make([][2]float64, n),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go o.run()
	return o
}

func (o *ClockedOutput) run() {
	defer close(o.done)
	ticker := time.NewTicker(o.period)
	defer ticker.Stop()

	for {
		select {
		case <-o.stop:
			return
		case <-ticker.C:
			o.mu.Lock()
			o.mixer.Stream(o.buf)
			o.mu.Unlock()
		}
	}
}

func (o *ClockedOutput) SampleRate() beep.SampleRate { return o.rate }

func (o *ClockedOutput) Play(s beep.Streamer) {
	o.mu.Lock()
	o.mixer.Add(s)
	o.mu.Unlock()
}

func (o *ClockedOutput) Lock()   { o.mu.Lock() }
func (o *ClockedOutput) Unlock() { o.mu.Unlock() }

// Active returns the number of streamers still being mixed.
func (o *ClockedOutput) Active() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mixer.Len()
}

// Close stops the mixing loop. Streamers still queued are dropped.
func (o *ClockedOutput) Close() error {
	o.once.Do(func() {
		close(o.stop)
		<-o.done
		o.mu.Lock()
		o.mixer.Clear()
		o.mu.Unlock()
	})
	return nil
}
