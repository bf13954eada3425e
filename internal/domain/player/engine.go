package player

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/edumarques81/stellar-playback/internal/audio"
	"github.com/edumarques81/stellar-playback/internal/domain/playlist"
	"github.com/edumarques81/stellar-playback/internal/domain/track"
)

const (
	DefaultTrackerInterval = 10 * time.Millisecond
	DefaultStopGrace       = 500 * time.Millisecond
	DefaultReplayWindow    = 5 * time.Second
)

// Renderer starts playback sessions and owns the output volume.
type Renderer interface {
	Start(path string, fromFrame int64, h audio.Handler) (audio.Session, error)
	SetVolume(v float64)
	Volume() float64
}

// Discoverer finds another playlist file to continue with.
type Discoverer interface {
	RandomOther(exclude string) (string, error)
}

// Cause records which user transition is in flight, so that the completion
// of the session it replaced is not treated as a natural end.
type Cause int

const (
	CauseNone Cause = iota
	CauseUserNext
	CauseUserPrev
	CauseUserShuffle
	CauseUserReplay
)

func (c Cause) String() string {
	switch c {
	case CauseUserNext:
		return "next"
	case CauseUserPrev:
		return "previous"
	case CauseUserShuffle:
		return "shuffle"
	case CauseUserReplay:
		return "replay"
	default:
		return "none"
	}
}

// checkpoint is the position playback resumes from. Frame is always
// derived from Millis (or the reverse) through the current track's rate.
type checkpoint struct {
	Frame  int64
	Millis int64
}

func checkpointAt(t *track.Track, frame int64) checkpoint {
	f := t.ClampFrame(frame)
	return checkpoint{Frame: f, Millis: t.ToTime(f)}
}

// Engine is the transport state machine. Public operations are serialized
// by opMu; mu guards the state read by the tracker and session callbacks.
// Neither lock is held while publishing events.
type Engine struct {
	opMu sync.Mutex
	mu   sync.Mutex

	renderer     Renderer
	loader       playlist.TrackLoader
	sink         Sink
	discover     Discoverer
	tracker      *positionTracker
	replayWindow time.Duration
	autoContinue bool
	rng          *rand.Rand
	now          func() time.Time

	interval time.Duration
	grace    time.Duration

	current   *track.Track
	list      *playlist.Playlist
	repeat    RepeatMode
	cause     Cause
	status    Status
	cp        checkpoint
	session   audio.Session
	sessionID string
	lastErr   error
	closed    bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithSink sets the receiver of engine events.
func WithSink(s Sink) Option {
	return func(e *Engine) { e.sink = s }
}

// WithDiscoverer enables moving on to another playlist at the end of the current one.
func WithDiscoverer(d Discoverer) Option {
	return func(e *Engine) { e.discover = d }
}

// WithAutoContinue also applies discovery when the last track ends on its own.
func WithAutoContinue(on bool) Option {
	return func(e *Engine) { e.autoContinue = on }
}

func WithTrackerInterval(d time.Duration) Option {
	return func(e *Engine) { e.interval = d }
}

func WithStopGrace(d time.Duration) Option {
	return func(e *Engine) { e.grace = d }
}

func WithReplayWindow(d time.Duration) Option {
	return func(e *Engine) { e.replayWindow = d }
}

// WithRand sets the source used for shuffling.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// WithClock replaces time.Now for the position tracker.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an idle engine.
func NewEngine(r Renderer, loader playlist.TrackLoader, opts ...Option) *Engine {
	e := &Engine{
		renderer:     r,
		loader:       loader,
		sink:         SinkFunc(func(Event) {}),
		replayWindow: DefaultReplayWindow,
		interval:     DefaultTrackerInterval,
		grace:        DefaultStopGrace,
		now:          time.Now,
		status:       StatusIdle,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.tracker = newPositionTracker(e.interval, e.grace, e.now)
	return e
}

// LoadSong loads a single track from path and starts playing it.
// On failure the engine keeps its previous state.
func (e *Engine) LoadSong(path string) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	if err := e.checkOpen(); err != nil {
		return err
	}
	t, err := e.loader.Load(path)
	if err != nil {
		return &LoadError{Path: path, Err: err}
	}
	return e.loadTrackLocked(t)
}

// LoadTrack switches to single-track mode on t and starts playing it.
func (e *Engine) LoadTrack(t *track.Track) error {
	if t == nil {
		return ErrNoTrack
	}
	e.opMu.Lock()
	defer e.opMu.Unlock()

	if err := e.checkOpen(); err != nil {
		return err
	}
	return e.loadTrackLocked(t)
}

// LoadPlaylist reads a path-list file and plays it from the first track.
// An empty result is reported and leaves the engine untouched.
func (e *Engine) LoadPlaylist(path string) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	if err := e.checkOpen(); err != nil {
		return err
	}
	pl, err := playlist.LoadFile(path, e.loader)
	if err != nil {
		if errors.Is(err, ErrEmptyPlaylist) {
			log.Warn().Str("path", path).Msg("Playlist has no playable tracks")
			return err
		}
		return &LoadError{Path: path, Err: err}
	}
	return e.loadPlaylistLocked(pl)
}

// LoadPlaylistSource activates an already built playlist.
func (e *Engine) LoadPlaylistSource(pl *playlist.Playlist) error {
	if pl == nil {
		return ErrNoPlaylist
	}
	if pl.Len() == 0 {
		return ErrEmptyPlaylist
	}
	e.opMu.Lock()
	defer e.opMu.Unlock()

	if err := e.checkOpen(); err != nil {
		return err
	}
	return e.loadPlaylistLocked(pl)
}

// Play resumes from the checkpoint. A finished track restarts from the top.
func (e *Engine) Play() error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	if err := e.checkOpen(); err != nil {
		return err
	}
	return e.playLocked()
}

// Pause stops the session and keeps its last frame as the checkpoint.
func (e *Engine) Pause() error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	if err := e.checkOpen(); err != nil {
		return err
	}
	return e.pauseLocked()
}

// TogglePause pauses while playing and plays otherwise.
func (e *Engine) TogglePause() error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	if err := e.checkOpen(); err != nil {
		return err
	}
	e.mu.Lock()
	playing := e.status == StatusPlaying
	e.mu.Unlock()

	if playing {
		return e.pauseLocked()
	}
	return e.playLocked()
}

// SeekTo moves the checkpoint to frame, restarting playback there if playing.
func (e *Engine) SeekTo(frame int64) error {
	return e.seek(func(t *track.Track) checkpoint {
		return checkpointAt(t, frame)
	})
}

// SeekToMillis is SeekTo for a position in milliseconds.
func (e *Engine) SeekToMillis(ms int64) error {
	return e.seek(func(t *track.Track) checkpoint {
		ms := t.ClampMillis(ms)
		return checkpoint{Frame: t.ToFrame(ms), Millis: ms}
	})
}

func (e *Engine) seek(target func(*track.Track) checkpoint) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	if err := e.checkOpen(); err != nil {
		return err
	}

	e.mu.Lock()
	t := e.current
	playing := e.status == StatusPlaying
	e.mu.Unlock()
	if t == nil {
		return ErrNoTrack
	}

	if playing {
		e.stopPlayback()
	}

	e.mu.Lock()
	e.cp = target(t)
	cp := e.cp
	if e.status == StatusFinished {
		e.status = StatusPaused
	}
	status := e.status
	e.mu.Unlock()

	log.Debug().Int64("frame", cp.Frame).Int64("ms", cp.Millis).Msg("Seek")
	e.emit(PositionUpdated{Frame: cp.Frame, Millis: cp.Millis, DurationMs: t.DurationMs()})
	if !playing {
		e.emit(PlaybackStateChanged{Status: status})
		return nil
	}
	return e.playCurrentLocked()
}

// Next moves forward one track according to the repeat mode.
func (e *Engine) Next() error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	if err := e.checkOpen(); err != nil {
		return err
	}

	e.mu.Lock()
	t, list, mode := e.current, e.list, e.repeat
	if t == nil {
		e.mu.Unlock()
		return ErrNoTrack
	}

	if list == nil {
		if mode == NoRepeat {
			e.mu.Unlock()
			log.Debug().Msg("Next ignored: single track without repeat")
			return nil
		}
		// RepeatOne acts as RepeatAll here without changing the stored mode.
		e.cause = CauseUserNext
		e.cp = checkpoint{}
		e.mu.Unlock()
		return e.restartCurrentLocked()
	}

	idx, n := list.Cursor(), list.Len()
	if idx == n-1 && mode == NoRepeat {
		e.mu.Unlock()
		if ok, err := e.continueWithOtherLocked(CauseUserNext); ok || err != nil {
			return err
		}
		e.stopPlayback()
		e.mu.Lock()
		e.finish()
		e.mu.Unlock()
		e.emit(PlaybackStateChanged{Status: StatusFinished})
		return nil
	}
	e.cause = CauseUserNext
	e.mu.Unlock()

	return e.moveToLocked((idx + 1) % n)
}

// Previous moves back one track. At the first track it wraps under repeat
// and restarts the current track otherwise.
func (e *Engine) Previous() error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	if err := e.checkOpen(); err != nil {
		return err
	}

	e.mu.Lock()
	t, list, mode := e.current, e.list, e.repeat
	if t == nil {
		e.mu.Unlock()
		return ErrNoTrack
	}

	if list == nil {
		if mode == NoRepeat {
			e.mu.Unlock()
			log.Debug().Msg("Previous ignored: single track without repeat")
			return nil
		}
		e.cause = CauseUserPrev
		e.cp = checkpoint{}
		e.mu.Unlock()
		return e.restartCurrentLocked()
	}

	idx, n := list.Cursor(), list.Len()
	target := idx - 1
	if idx == 0 {
		if mode == NoRepeat {
			target = 0
		} else {
			target = n - 1
		}
	}
	e.cause = CauseUserPrev
	e.mu.Unlock()

	return e.moveToLocked(target)
}

// Replay jumps back by the replay window (five seconds by default), never
// before the start of the track, and plays from there.
func (e *Engine) Replay() error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	if err := e.checkOpen(); err != nil {
		return err
	}

	e.mu.Lock()
	t := e.current
	if t == nil {
		e.mu.Unlock()
		return ErrNoTrack
	}
	ms := max(0, e.cp.Millis-e.replayWindow.Milliseconds())
	e.cp = checkpoint{Frame: t.ToFrame(ms), Millis: ms}
	e.cause = CauseUserReplay
	cp := e.cp
	e.mu.Unlock()

	e.stopPlayback()
	e.emit(PositionUpdated{Frame: cp.Frame, Millis: cp.Millis, DurationMs: t.DurationMs()})
	return e.playCurrentLocked()
}

// Shuffle permutes the playlist and plays its new first track.
func (e *Engine) Shuffle() error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	if err := e.checkOpen(); err != nil {
		return err
	}

	e.mu.Lock()
	list := e.list
	if list == nil {
		e.mu.Unlock()
		return fmt.Errorf("%w: %w", ErrNotShufflable, ErrNoPlaylist)
	}
	if list.Len() <= 1 {
		e.mu.Unlock()
		return ErrNotShufflable
	}
	e.cause = CauseUserShuffle
	e.mu.Unlock()

	e.stopPlayback()
	list.Shuffle(e.rng)

	e.mu.Lock()
	e.current = list.Current()
	e.cp = checkpoint{}
	t := e.current
	e.mu.Unlock()

	log.Info().Str("playlist", list.Name()).Msg("Playlist shuffled")
	e.emit(
		PlaylistChanged{Playlist: list.Name(), Length: list.Len(), Cursor: 0},
		TrackChanged{Track: InfoOf(t), Index: 0},
	)
	return e.playCurrentLocked()
}

// CycleRepeatMode rotates NoRepeat, RepeatAll, RepeatOne and returns the new mode.
func (e *Engine) CycleRepeatMode() RepeatMode {
	e.mu.Lock()
	e.repeat = e.repeat.Next()
	mode := e.repeat
	e.mu.Unlock()

	e.emit(RepeatModeChanged{Mode: mode})
	return mode
}

// SetRepeatMode sets the repeat mode directly.
func (e *Engine) SetRepeatMode(mode RepeatMode) {
	e.mu.Lock()
	changed := e.repeat != mode
	e.repeat = mode
	e.mu.Unlock()

	if changed {
		e.emit(RepeatModeChanged{Mode: mode})
	}
}

func (e *Engine) RepeatMode() RepeatMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.repeat
}

// SetVolume sets the output volume in [0, 1].
func (e *Engine) SetVolume(v float64) {
	v = lo.Clamp(v, 0, 1)
	e.renderer.SetVolume(v)
	log.Debug().Float64("volume", v).Msg("Volume set")
}

// Current returns the current track, or nil when idle.
func (e *Engine) Current() *track.Track {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Playlist returns the active playlist, or nil in single-track mode.
func (e *Engine) Playlist() *playlist.Playlist {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.list
}

// Snapshot returns a consistent copy of the engine state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	snap := Snapshot{
		Status: e.status,
		Repeat: e.repeat,
		Frame:  e.cp.Frame,
		Millis: e.cp.Millis,
	}
	if e.current != nil {
		info := InfoOf(e.current)
		snap.Track = &info
	}
	if e.list != nil {
		snap.Playlist = e.list.Name()
		snap.PlaylistLength = e.list.Len()
		snap.Cursor = e.list.Cursor()
	}
	if e.lastErr != nil {
		snap.Error = e.lastErr.Error()
	}
	e.mu.Unlock()

	snap.Volume = e.renderer.Volume()
	return snap
}

// Close stops playback. Every later operation returns ErrClosed.
func (e *Engine) Close() error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	e.stopPlayback()
	log.Debug().Msg("Engine closed")
	return nil
}

func (e *Engine) checkOpen() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	return nil
}

// Methods below with the Locked suffix expect opMu to be held.

func (e *Engine) loadTrackLocked(t *track.Track) error {
	e.stopPlayback()

	e.mu.Lock()
	hadList := e.list != nil
	e.list = nil
	e.current = t
	e.cp = checkpoint{}
	e.status = StatusPaused
	events := e.downgradeRepeat()
	e.mu.Unlock()

	if hadList {
		events = append(events, PlaylistChanged{})
	}
	events = append(events, TrackChanged{Track: InfoOf(t), Index: -1})
	e.emit(events...)

	log.Info().Str("path", t.Path()).Msg("Song loaded")
	return e.playCurrentLocked()
}

func (e *Engine) loadPlaylistLocked(pl *playlist.Playlist) error {
	first, err := pl.SetCursor(0)
	if err != nil {
		return err
	}
	e.stopPlayback()

	e.mu.Lock()
	e.list = pl
	e.current = first
	e.cp = checkpoint{}
	e.status = StatusPaused
	events := e.downgradeRepeat()
	e.mu.Unlock()

	events = append(events,
		PlaylistChanged{Playlist: pl.Name(), Length: pl.Len(), Cursor: 0},
		TrackChanged{Track: InfoOf(first), Index: 0},
	)
	e.emit(events...)

	log.Info().Str("playlist", pl.Name()).Int("tracks", pl.Len()).Msg("Playlist loaded")
	return e.playCurrentLocked()
}

// downgradeRepeat turns RepeatOne into RepeatAll on explicit loads. mu must be held.
func (e *Engine) downgradeRepeat() []Event {
	if e.repeat != RepeatOne {
		return nil
	}
	e.repeat = RepeatAll
	log.Debug().Msg("Repeat one downgraded to repeat all on load")
	return []Event{RepeatModeChanged{Mode: RepeatAll}}
}

func (e *Engine) playLocked() error {
	e.mu.Lock()
	if e.current == nil {
		e.mu.Unlock()
		return ErrNoTrack
	}
	switch e.status {
	case StatusPlaying:
		e.mu.Unlock()
		return nil
	case StatusFinished:
		e.cp = checkpoint{}
	}
	e.mu.Unlock()

	return e.playCurrentLocked()
}

func (e *Engine) pauseLocked() error {
	e.mu.Lock()
	if e.status != StatusPlaying || e.session == nil {
		status := e.status
		e.mu.Unlock()
		log.Debug().Str("status", string(status)).Msg("Pause ignored: no active session")
		return ErrNotPlaying
	}
	e.status = StatusPaused
	t := e.current
	e.mu.Unlock()

	frame, _ := e.stopPlayback()

	e.mu.Lock()
	e.cp = checkpointAt(t, frame)
	cp := e.cp
	e.mu.Unlock()

	log.Info().Int64("frame", cp.Frame).Int64("ms", cp.Millis).Msg("Paused")
	e.emit(
		PlaybackStateChanged{Status: StatusPaused},
		PositionUpdated{Frame: cp.Frame, Millis: cp.Millis, DurationMs: t.DurationMs()},
	)
	return nil
}

// stopPlayback tears down the tracker and session without touching the
// checkpoint. It returns the frame the session reached, if there was one.
func (e *Engine) stopPlayback() (int64, bool) {
	e.tracker.stop()

	e.mu.Lock()
	s := e.session
	e.session = nil
	e.mu.Unlock()

	if s == nil {
		return 0, false
	}
	return s.Stop(), true
}

func (e *Engine) restartCurrentLocked() error {
	e.stopPlayback()
	return e.playCurrentLocked()
}

// moveToLocked makes playlist index i current and plays it from the start.
func (e *Engine) moveToLocked(i int) error {
	e.stopPlayback()

	e.mu.Lock()
	list := e.list
	if list == nil {
		e.cause = CauseNone
		e.mu.Unlock()
		return ErrNoPlaylist
	}
	t, err := list.SetCursor(i)
	if err != nil {
		e.cause = CauseNone
		e.mu.Unlock()
		return err
	}
	e.current = t
	e.cp = checkpoint{}
	e.mu.Unlock()

	e.emit(TrackChanged{Track: InfoOf(t), Index: i})
	return e.playCurrentLocked()
}

// continueWithOtherLocked loads a different playlist from the discoverer.
// It reports false, leaving the state alone, when there is none.
func (e *Engine) continueWithOtherLocked(cause Cause) (bool, error) {
	if e.discover == nil {
		log.Debug().Msg("End of playlist and no playlist discovery configured")
		return false, nil
	}

	e.mu.Lock()
	exclude := ""
	if e.list != nil && e.list.Origin() == playlist.OriginFile {
		exclude = e.list.Path()
	}
	e.mu.Unlock()

	path, err := e.discover.RandomOther(exclude)
	if err != nil {
		log.Info().Err(err).Msg("End of playlist, nothing to continue with")
		return false, nil
	}
	pl, err := playlist.LoadFile(path, e.loader)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Discovered playlist could not be loaded")
		return false, nil
	}

	if cause != CauseNone {
		e.mu.Lock()
		e.cause = cause
		e.mu.Unlock()
	}
	log.Info().Str("path", path).Msg("Continuing with discovered playlist")
	return true, e.loadPlaylistLocked(pl)
}

// playCurrentLocked starts a session for the current track at the checkpoint.
func (e *Engine) playCurrentLocked() error {
	e.mu.Lock()
	t := e.current
	if t == nil {
		e.mu.Unlock()
		return ErrNoTrack
	}
	from := e.cp.Frame
	id := uuid.NewString()
	e.sessionID = id
	e.status = StatusPlaying
	e.lastErr = nil
	e.mu.Unlock()

	s, err := e.renderer.Start(t.Path(), from, &sessionHandler{e: e, id: id})
	if err != nil {
		err = fmt.Errorf("start playback: %w", err)
		e.mu.Lock()
		e.status = StatusPaused
		e.cause = CauseNone
		e.lastErr = err
		e.mu.Unlock()
		e.emit(PlaybackStateChanged{Status: StatusPaused}, ErrorOccurred{Err: err})
		return err
	}

	e.mu.Lock()
	e.session = s
	e.mu.Unlock()

	log.Debug().Str("session", id).Str("path", t.Path()).Int64("from", from).Msg("Playback started")
	e.emit(PlaybackStateChanged{Status: StatusPlaying})
	return nil
}

// onSessionStarted clears the transition cause and starts the tracker.
func (e *Engine) onSessionStarted(id string) {
	e.mu.Lock()
	if e.closed || id != e.sessionID || e.status != StatusPlaying || e.current == nil {
		e.mu.Unlock()
		return
	}
	e.cause = CauseNone
	t := e.current
	run := trackerRun{
		started:    e.now(),
		offsetMs:   e.cp.Millis,
		rate:       t.FrameRatePerMs(),
		frames:     t.FrameCount(),
		durationMs: t.DurationMs(),
		tick:       e.trackerTick(id, t),
	}
	e.mu.Unlock()

	e.tracker.start(run)
}

func (e *Engine) trackerTick(id string, t *track.Track) func(frame, ms int64) bool {
	return func(frame, ms int64) bool {
		e.mu.Lock()
		if id != e.sessionID || e.status != StatusPlaying || e.cause != CauseNone {
			e.mu.Unlock()
			return false
		}
		e.cp = checkpoint{Frame: frame, Millis: ms}
		e.mu.Unlock()

		e.emit(PositionUpdated{Frame: frame, Millis: ms, DurationMs: t.DurationMs()})
		return true
	}
}

// onSessionCompleted handles the end of a session that was not stopped.
func (e *Engine) onSessionCompleted(id string, frame int64, err error) {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	if e.closed || id != e.sessionID {
		e.mu.Unlock()
		log.Debug().Str("session", id).Msg("Ignoring completion of a replaced session")
		return
	}
	t := e.current

	// A pause raced with the end of the stream: keep the frame and stay paused.
	if e.status == StatusPaused {
		e.cp = checkpointAt(t, frame)
		e.mu.Unlock()
		return
	}
	// The current session failing before it started still owns the pending
	// cause. Report the failure instead of leaving the engine playing.
	if e.cause != CauseNone && err != nil {
		e.cause = CauseNone
	}
	if e.cause != CauseNone {
		cause := e.cause
		e.mu.Unlock()
		log.Debug().Stringer("cause", cause).Msg("Completion belongs to a user transition")
		return
	}
	if e.status != StatusPlaying {
		e.mu.Unlock()
		return
	}
	e.session = nil

	if err != nil {
		e.status = StatusPaused
		e.lastErr = err
		e.cp = checkpointAt(t, frame)
		e.mu.Unlock()

		e.tracker.stop()
		log.Error().Err(err).Str("path", t.Path()).Msg("Playback aborted")
		e.emit(PlaybackStateChanged{Status: StatusPaused}, ErrorOccurred{Err: err})
		return
	}
	e.mu.Unlock()

	e.tracker.stop()
	if err := e.advanceLocked(); err != nil {
		log.Error().Err(err).Msg("Failed to continue playback")
	}
}

// advanceLocked applies the repeat policy after a natural end of track.
func (e *Engine) advanceLocked() error {
	e.mu.Lock()
	list, mode := e.list, e.repeat

	if list == nil {
		if mode == NoRepeat {
			e.finish()
			e.mu.Unlock()
			e.emit(PlaybackStateChanged{Status: StatusFinished})
			return nil
		}
		e.cp = checkpoint{}
		e.mu.Unlock()
		log.Debug().Msg("Repeating track")
		return e.playCurrentLocked()
	}

	idx, n := list.Cursor(), list.Len()
	var target int
	switch {
	case mode == RepeatOne:
		target = idx
	case idx < n-1:
		target = idx + 1
	case mode == RepeatAll:
		target = 0
	default:
		e.mu.Unlock()
		if e.autoContinue {
			if ok, err := e.continueWithOtherLocked(CauseNone); ok || err != nil {
				return err
			}
		}
		e.mu.Lock()
		e.finish()
		e.mu.Unlock()
		e.emit(PlaybackStateChanged{Status: StatusFinished})
		return nil
	}
	e.mu.Unlock()

	return e.moveToLocked(target)
}

// finish parks the engine at the end of the current track. mu must be held.
func (e *Engine) finish() {
	e.status = StatusFinished
	e.session = nil
	if e.current != nil {
		e.cp = checkpoint{Frame: e.current.FrameCount(), Millis: e.current.DurationMs()}
	}
	log.Info().Msg("Playback finished")
}

func (e *Engine) emit(events ...Event) {
	for _, ev := range events {
		e.sink.Publish(ev)
	}
}

type sessionHandler struct {
	e  *Engine
	id string
}

func (h *sessionHandler) SessionStarted() {
	h.e.onSessionStarted(h.id)
}

func (h *sessionHandler) SessionCompleted(frame int64, err error) {
	h.e.onSessionCompleted(h.id, frame, err)
}
