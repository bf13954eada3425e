package audio

import (
	"sync"

	"github.com/gopxl/beep/v2"
)

// Tap keeps the most recently rendered samples as a mono mix for visualizers.
// One Tap outlives many sessions; each session wraps its stream with Wrap.
type Tap struct {
	mu   sync.Mutex
	buf  []float64
	pos  int
	size int
}

// NewTap allocates a ring of size samples.
func NewTap(size int) *Tap {
	if size < 1 {
		size = 1
	}
	return &Tap{
		buf:  make([]float64, size),
		size: size,
	}
}

// Wrap returns a streamer that passes s through while recording it.
func (t *Tap) Wrap(s beep.Streamer) beep.Streamer {
	return &tapStreamer{s: s, t: t}
}

func (t *Tap) record(samples [][2]float64) {
	t.mu.Lock()
	for i := range samples {
		t.buf[t.pos] = (samples[i][0] + samples[i][1]) / 2
		t.pos = (t.pos + 1) % t.size
	}
	t.mu.Unlock()
}

// Samples returns the last n samples in chronological order.
func (t *Tap) Samples(n int) []float64 {
	if n > t.size {
		n = t.size
	}
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	t.mu.Lock()
	start := (t.pos - n + t.size) % t.size
	for i := range n {
		out[i] = t.buf[(start+i)%t.size]
	}
	t.mu.Unlock()
	return out
}

type tapStreamer struct {
	s beep.Streamer
	t *Tap
}

func (ts *tapStreamer) Stream(samples [][2]float64) (int, bool) {
	n, ok := ts.s.Stream(samples)
	ts.t.record(samples[:n])
	return n, ok
}

func (ts *tapStreamer) Err() error {
	return ts.s.Err()
}
