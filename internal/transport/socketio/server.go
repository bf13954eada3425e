// Package socketio provides the Socket.io server clients use to control
// playback and follow its state.
package socketio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zishang520/socket.io/servers/socket/v3"
	"github.com/zishang520/socket.io/v3/pkg/types"

	"github.com/edumarques81/stellar-playback/internal/domain/player"
	"github.com/edumarques81/stellar-playback/internal/domain/playlist"
)

const (
	DefaultPositionThrottle = 250 * time.Millisecond
	DefaultSampleCount      = 512
)

// Engine is the playback surface clients drive.
type Engine interface {
	Play() error
	Pause() error
	TogglePause() error
	Next() error
	Previous() error
	Replay() error
	Shuffle() error
	SeekToMillis(ms int64) error
	CycleRepeatMode() player.RepeatMode
	SetRepeatMode(mode player.RepeatMode)
	SetVolume(v float64)
	LoadSong(path string) error
	LoadPlaylist(path string) error
	LoadPlaylistSource(pl *playlist.Playlist) error
	Snapshot() player.Snapshot
}

// StoredPlaylists imports playlists kept by an MPD server.
type StoredPlaylists interface {
	ListPlaylists() ([]string, error)
	Import(name string) (*playlist.Playlist, error)
	Watch() (<-chan string, error)
}

// PlaylistFiles lists playlist files on disk.
type PlaylistFiles interface {
	Entries() []string
}

// SampleSource returns the most recently rendered mono samples.
type SampleSource interface {
	Samples(n int) []float64
}

// Options configures optional server features.
type Options struct {
	MaxExternalClients int
	PositionThrottle   time.Duration
	Stored             StoredPlaylists
	Files              PlaylistFiles
	Samples            SampleSource
	Audio              AudioStatusSource
}

// Server handles Socket.io connections and events. It is also a player.Sink
// that pushes engine events to every client.
type Server struct {
	io       *socket.Server
	engine   Engine
	opts     Options
	limiter  *ConnectionLimiter
	throttle *BroadcastThrottle
	mu       sync.RWMutex
	clients  map[string]*socket.Socket
}

// NewServer creates a new Socket.io server.
func NewServer(engine Engine, opts Options) (*Server, error) {
	if engine == nil {
		return nil, errors.New("socketio: nil engine")
	}
	if opts.PositionThrottle <= 0 {
		opts.PositionThrottle = DefaultPositionThrottle
	}

	sio := socket.DefaultServerOptions()
	sio.SetPingTimeout(20 * time.Second)
	sio.SetPingInterval(25 * time.Second)
	sio.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: true,
	})

	s := &Server{
		io:      socket.NewServer(nil, sio),
		engine:  engine,
		opts:    opts,
		limiter: NewConnectionLimiter(opts.MaxExternalClients),
		clients: make(map[string]*socket.Socket),
	}
	s.throttle = NewBroadcastThrottle(opts.PositionThrottle, s.BroadcastState, s.broadcastPosition)

	s.setupHandlers()
	return s, nil
}

// Publish implements player.Sink. Track changes and errors go out at once;
// state and position are throttled.
func (s *Server) Publish(ev player.Event) {
	switch e := ev.(type) {
	case player.TrackChanged:
		s.io.Emit("pushTrack", trackPayload(e))
	case player.ErrorOccurred:
		s.io.Emit("pushError", errorPayload(e.Err))
	}
	s.throttle.Trigger(ev)
}

func (s *Server) setupHandlers() {
	s.io.On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)
		clientID := string(client.Id())
		addr := client.Handshake().Address

		log.Info().Str("id", clientID).Str("addr", addr).Msg("Client connected")

		s.mu.Lock()
		s.clients[clientID] = client
		s.mu.Unlock()

		if _, evicted := s.limiter.TryAdd(clientID, addr); evicted != "" {
			s.evict(evicted)
		}

		go func() {
			time.Sleep(100 * time.Millisecond)
			s.pushState(client)
		}()

		client.On("disconnect", func(args ...any) {
			reason := ""
			if len(args) > 0 {
				if r, ok := args[0].(string); ok {
					reason = r
				}
			}
			log.Info().Str("id", clientID).Str("reason", reason).Msg("Client disconnected")

			s.limiter.Remove(clientID)
			s.mu.Lock()
			delete(s.clients, clientID)
			s.mu.Unlock()
		})

		s.registerCommands(client, clientID)
	})
}

func (s *Server) registerCommands(client *socket.Socket, clientID string) {
	simple := map[string]func() error{
		"play":    s.engine.Play,
		"pause":   s.engine.Pause,
		"toggle":  s.engine.TogglePause,
		"next":    s.engine.Next,
		"prev":    s.engine.Previous,
		"replay":  s.engine.Replay,
		"shuffle": s.engine.Shuffle,
	}
	for name, op := range simple {
		client.On(name, func(args ...any) {
			log.Debug().Str("id", clientID).Msg(name)
			s.run(client, name, op)
		})
	}

	client.On("getState", func(args ...any) {
		s.pushState(client)
	})

	client.On("seek", func(args ...any) {
		sec, ok := argNumber(args, "value")
		if !ok {
			s.reject(client, "seek", "expected a position in seconds")
			return
		}
		s.run(client, "seek", func() error {
			return s.engine.SeekToMillis(int64(sec * 1000))
		})
	})

	client.On("repeat", func(args ...any) {
		mode, ok := argString(args, "value")
		if !ok {
			s.engine.CycleRepeatMode()
			return
		}
		s.run(client, "repeat", func() error {
			m, err := player.ParseRepeatMode(mode)
			if err != nil {
				return err
			}
			s.engine.SetRepeatMode(m)
			return nil
		})
	})

	// Volumio clients send booleans.
	client.On("setRepeat", func(args ...any) {
		m, _ := firstMap(args)
		repeat, _ := m["value"].(bool)
		single, _ := m["repeatSingle"].(bool)
		switch {
		case repeat && single:
			s.engine.SetRepeatMode(player.RepeatOne)
		case repeat:
			s.engine.SetRepeatMode(player.RepeatAll)
		default:
			s.engine.SetRepeatMode(player.NoRepeat)
		}
	})

	client.On("volume", func(args ...any) {
		vol, ok := argNumber(args, "value")
		if !ok {
			s.reject(client, "volume", "expected a volume between 0 and 100")
			return
		}
		s.engine.SetVolume(vol / 100)
		s.BroadcastState()
	})

	client.On("loadSong", func(args ...any) {
		path, ok := argString(args, "path")
		if !ok {
			s.reject(client, "loadSong", "missing path")
			return
		}
		s.run(client, "loadSong", func() error { return s.engine.LoadSong(path) })
	})

	client.On("loadPlaylist", func(args ...any) {
		path, ok := argString(args, "path")
		if !ok {
			s.reject(client, "loadPlaylist", "missing path")
			return
		}
		s.run(client, "loadPlaylist", func() error { return s.engine.LoadPlaylist(path) })
	})

	client.On("loadMpdPlaylist", func(args ...any) {
		name, ok := argString(args, "name")
		if !ok {
			s.reject(client, "loadMpdPlaylist", "missing name")
			return
		}
		s.run(client, "loadMpdPlaylist", func() error { return s.loadStored(name) })
	})

	client.On("getDeviceInfo", func(args ...any) {
		client.Emit("pushDeviceInfo", GetSystemInfo(s.opts.Audio))
	})

	client.On("getPlaylists", func(args ...any) {
		client.Emit("pushPlaylists", s.playlistsPayload())
	})

	client.On("getSamples", func(args ...any) {
		n := DefaultSampleCount
		if v, ok := argNumber(args, "count"); ok && v > 0 {
			n = int(v)
		}
		var samples []float64
		if s.opts.Samples != nil {
			samples = s.opts.Samples.Samples(n)
		}
		client.Emit("pushSamples", samples)
	})
}

func (s *Server) loadStored(name string) error {
	if s.opts.Stored == nil {
		return errors.New("MPD playlists are not configured")
	}
	pl, err := s.opts.Stored.Import(name)
	if err != nil {
		return fmt.Errorf("import %s: %w", name, err)
	}
	return s.engine.LoadPlaylistSource(pl)
}

// run executes a client command and reports failures back to that client.
func (s *Server) run(client *socket.Socket, name string, op func() error) {
	if err := op(); err != nil {
		log.Warn().Err(err).Str("command", name).Msg("Command failed")
		client.Emit("pushError", errorPayload(err))
	}
}

func (s *Server) reject(client *socket.Socket, name, msg string) {
	log.Debug().Str("command", name).Msg(msg)
	client.Emit("pushError", map[string]interface{}{"command": name, "message": msg})
}

func (s *Server) evict(clientID string) {
	s.mu.RLock()
	old := s.clients[clientID]
	s.mu.RUnlock()
	if old == nil {
		return
	}
	log.Info().Str("id", clientID).Msg("Evicting oldest remote client")
	old.Emit("pushError", map[string]interface{}{"message": "replaced by a newer remote client"})
	old.Disconnect(true)
}

func (s *Server) pushState(client *socket.Socket) {
	client.Emit("pushState", s.engine.Snapshot().ToJSON())
}

// BroadcastState sends the engine state to all connected clients.
func (s *Server) BroadcastState() {
	state := s.engine.Snapshot().ToJSON()
	s.io.Emit("pushState", state)

	if log.Debug().Enabled() {
		data, _ := json.Marshal(state)
		log.Debug().RawJSON("state", data).Int("clients", s.ClientCount()).Msg("Broadcast state")
	}
}

func (s *Server) broadcastPosition(p player.PositionUpdated) {
	s.io.Emit("pushPosition", map[string]interface{}{
		"seek":     p.Millis,
		"frame":    p.Frame,
		"duration": p.DurationMs,
	})
}

// BroadcastPlaylists sends the known playlists to all clients.
func (s *Server) BroadcastPlaylists() {
	s.io.Emit("pushPlaylists", s.playlistsPayload())
}

func (s *Server) playlistsPayload() map[string]interface{} {
	files := []string{}
	if s.opts.Files != nil {
		files = s.opts.Files.Entries()
	}
	stored := []string{}
	if s.opts.Stored != nil {
		names, err := s.opts.Stored.ListPlaylists()
		if err != nil {
			log.Warn().Err(err).Msg("Failed to list MPD playlists")
		} else {
			stored = names
		}
	}
	return map[string]interface{}{"files": files, "mpd": stored}
}

// StartMPDWatcher pushes the playlist list whenever MPD's stored playlists change.
func (s *Server) StartMPDWatcher(ctx context.Context) error {
	if s.opts.Stored == nil {
		return errors.New("MPD playlists are not configured")
	}
	events, err := s.opts.Stored.Watch()
	if err != nil {
		return err
	}

	go func() {
		log.Info().Msg("MPD playlist watcher started")
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("MPD playlist watcher stopped")
				return
			case subsystem, ok := <-events:
				if !ok {
					log.Warn().Msg("MPD watcher channel closed")
					return
				}
				log.Debug().Str("subsystem", subsystem).Msg("MPD subsystem changed")
				s.BroadcastPlaylists()
			}
		}
	}()

	return nil
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// ServeHTTP implements http.Handler for the Socket.io server.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.io.ServeHandler(nil).ServeHTTP(w, r)
}

// Close stops broadcasts and closes the Socket.io server.
func (s *Server) Close() error {
	s.throttle.Stop()
	s.io.Close(nil)
	return nil
}

func trackPayload(e player.TrackChanged) map[string]interface{} {
	return map[string]interface{}{
		"title":    e.Track.Title,
		"artist":   e.Track.Artist,
		"album":    e.Track.Album,
		"uri":      e.Track.Path,
		"duration": e.Track.DurationMs,
		"position": e.Index,
	}
}

func errorPayload(err error) map[string]interface{} {
	return map[string]interface{}{"message": err.Error()}
}
