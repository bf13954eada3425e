package audio

import (
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

const (
	defaultGrace     = 500 * time.Millisecond
	resampleQuality  = 4
	defaultTapWindow = 2048
)

// Handler receives the lifecycle signals of one session.
// SessionCompleted is called at most once and never after Stop has been called.
type Handler interface {
	SessionStarted()
	SessionCompleted(finalFrame int64, err error)
}

// Session is a running decode of one file.
type Session interface {
	// Stop halts output and releases the file. It returns the frame reached.
	Stop() int64
	// Frame reports the frame currently being decoded.
	Frame() int64
}

// Renderer starts sessions against a shared output and owns the volume control.
type Renderer struct {
	out        Output
	decode     DecodeFunc
	grace      time.Duration
	tap        *Tap
	controller *Controller

	mu     sync.Mutex
	volume float64
	active *session
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithDecoder replaces the MP3 decoder.
func WithDecoder(d DecodeFunc) Option {
	return func(r *Renderer) { r.decode = d }
}

// WithGrace bounds how long Stop waits for the decode worker to exit.
func WithGrace(d time.Duration) Option {
	return func(r *Renderer) { r.grace = d }
}

// WithTap records rendered samples into t.
func WithTap(t *Tap) Option {
	return func(r *Renderer) { r.tap = t }
}

// WithController reports output acquisition to c.
func WithController(c *Controller) Option {
	return func(r *Renderer) { r.controller = c }
}

// WithVolume sets the initial volume in [0, 1].
func WithVolume(v float64) Option {
	return func(r *Renderer) { r.volume = lo.Clamp(v, 0, 1) }
}

// NewRenderer creates a renderer that plays into out.
func NewRenderer(out Output, opts ...Option) *Renderer {
	r := &Renderer{
		out:    out,
		decode: DecodeMP3,
		grace:  defaultGrace,
		volume: 1,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.tap == nil {
		r.tap = NewTap(defaultTapWindow)
	}
	return r
}

// Start decodes path from fromFrame on a dedicated goroutine and returns at once.
func (r *Renderer) Start(path string, fromFrame int64, h Handler) (Session, error) {
	if fromFrame < 0 {
		fromFrame = 0
	}
	s := &session{
		r:      r,
		path:   path,
		from:   fromFrame,
		h:      h,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go s.run()
	return s, nil
}

// SetVolume sets the gain of the current and all later sessions.
func (r *Renderer) SetVolume(v float64) {
	v = lo.Clamp(v, 0, 1)
	r.mu.Lock()
	r.volume = v
	active := r.active
	r.mu.Unlock()

	if active == nil {
		return
	}
	vol := active.volumeEffect()
	if vol == nil {
		return
	}
	r.out.Lock()
	applyVolume(vol, v)
	r.out.Unlock()
}

// Volume returns the current volume in [0, 1].
func (r *Renderer) Volume() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.volume
}

// Samples returns the most recent n rendered samples.
func (r *Renderer) Samples(n int) []float64 {
	return r.tap.Samples(n)
}

func (r *Renderer) setActive(s *session) {
	r.mu.Lock()
	r.active = s
	r.mu.Unlock()
}

func (r *Renderer) clearActive(s *session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != s {
		return false
	}
	r.active = nil
	return true
}

// applyVolume maps a linear level onto the exponential beep volume.
func applyVolume(vol *effects.Volume, v float64) {
	if v <= 0 {
		vol.Silent = true
		return
	}
	vol.Silent = false
	vol.Volume = math.Log2(v)
}

type session struct {
	r    *Renderer
	path string
	from int64
	h    Handler

	stopCh chan struct{}
	done   chan struct{}

	mu        sync.Mutex
	stopped   bool
	released  bool
	completed bool
	stream    beep.StreamSeekCloser
	ctrl      *beep.Ctrl
	vol       *effects.Volume
	final     int64
	err       error
}

func (s *session) run() {
	defer close(s.done)

	stream, format, err := s.r.decode(s.path)
	if err != nil {
		s.complete(s.from, err)
		return
	}

	start := FrameToSample(s.from)
	if total := int64(stream.Len()); start > total {
		start = total
	}
	if err := stream.Seek(int(start)); err != nil {
		stream.Close()
		s.complete(s.from, err)
		return
	}

	var src beep.Streamer = stream
	if rate := s.r.out.SampleRate(); format.SampleRate != rate {
		src = beep.Resample(resampleQuality, format.SampleRate, rate, stream)
	}
	vol := &effects.Volume{Streamer: src, Base: 2}
	applyVolume(vol, s.r.Volume())
	ctrl := &beep.Ctrl{Streamer: vol}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		stream.Close()
		return
	}
	s.stream, s.ctrl, s.vol = stream, ctrl, vol
	s.mu.Unlock()

	eof := make(chan struct{})
	s.r.setActive(s)
	if s.r.controller != nil {
		s.r.controller.OnPlaybackStart(format, s.r.out.SampleRate())
	}
	s.r.out.Play(beep.Seq(s.r.tap.Wrap(ctrl), beep.Callback(func() { close(eof) })))

	log.Debug().Str("path", s.path).Int64("from", s.from).Msg("Session started")
	if !s.isStopped() {
		s.h.SessionStarted()
	}

	select {
	case <-s.stopCh:
		return
	case <-eof:
	}

	frame, streamErr := s.release()
	s.complete(frame, streamErr)
}

// complete dispatches the completion signal unless Stop got there first.
func (s *session) complete(frame int64, err error) {
	s.mu.Lock()
	if s.stopped || s.completed {
		s.mu.Unlock()
		return
	}
	s.completed = true
	s.mu.Unlock()

	if err != nil {
		err = &DecodeIOError{Path: s.path, Frame: frame, Err: err}
		log.Warn().Err(err).Msg("Session aborted")
	} else {
		log.Debug().Str("path", s.path).Int64("frame", frame).Msg("Session completed")
	}
	go s.h.SessionCompleted(frame, err)
}

// release detaches the stream from the output and closes it. Safe to call twice.
func (s *session) release() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return s.final, s.err
	}
	s.released = true
	if s.stream == nil {
		s.final = s.from
		return s.final, nil
	}

	s.r.out.Lock()
	s.ctrl.Streamer = nil
	pos := s.stream.Position()
	s.r.out.Unlock()

	s.err = s.stream.Err()
	if err := s.stream.Close(); err != nil {
		log.Debug().Err(err).Str("path", s.path).Msg("Close stream")
	}
	s.final = SampleToFrame(int64(pos))
	if s.r.clearActive(s) && s.r.controller != nil {
		s.r.controller.OnPlaybackStop()
	}
	return s.final, s.err
}

func (s *session) Stop() int64 {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		close(s.stopCh)
	}
	s.mu.Unlock()

	frame, _ := s.release()

	select {
	case <-s.done:
	case <-time.After(s.r.grace):
		log.Warn().Str("path", s.path).Dur("grace", s.r.grace).Msg("Decode worker did not exit in time, abandoning it")
	}
	return frame
}

func (s *session) Frame() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return s.final
	}
	if s.stream == nil {
		return s.from
	}
	s.r.out.Lock()
	pos := s.stream.Position()
	s.r.out.Unlock()
	return SampleToFrame(int64(pos))
}

func (s *session) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func (s *session) volumeEffect() *effects.Volume {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vol
}
