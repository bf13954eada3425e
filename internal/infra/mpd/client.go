// Package mpd reads stored playlists and cover art from an MPD server.
package mpd

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/fhs/gompd/v2/mpd"
	"github.com/rs/zerolog/log"
)

// ErrNotConnected is returned by calls that need an open connection.
var ErrNotConnected = errors.New("not connected")

// watchRetry is the pause after a watcher error before events are read again.
const watchRetry = time.Second

// Client is a lazily dialled MPD connection. Calls that fail on a dropped
// connection are retried once on a fresh one.
type Client struct {
	addr     string
	password string

	mu      sync.Mutex
	conn    *mpd.Client
	watcher *mpd.Watcher
}

// NewClient returns a client for host:port. Nothing is dialled until first use.
func NewClient(host string, port int, password string) *Client {
	return &Client{
		addr:     net.JoinHostPort(host, strconv.Itoa(port)),
		password: password,
	}
}

// Connect dials the server unless a connection is already open.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.connLocked()
	return err
}

func (c *Client) connLocked() (*mpd.Client, error) {
	if c.conn != nil {
		return c.conn, nil
	}
	conn, err := mpd.DialAuthenticated("tcp", c.addr, c.password)
	if err != nil {
		return nil, fmt.Errorf("mpd %s: %w", c.addr, err)
	}
	log.Info().Str("addr", c.addr).Msg("Connected to MPD")
	c.conn = conn
	return conn, nil
}

func (c *Client) dropLocked() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// do runs fn on the shared connection, redialling once if the connection
// turns out to be gone.
func (c *Client) do(fn func(*mpd.Client) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for attempt := 0; ; attempt++ {
		conn, err := c.connLocked()
		if err != nil {
			return err
		}
		err = fn(conn)
		if err == nil || attempt > 0 || !connectionLost(err) {
			return err
		}
		log.Warn().Err(err).Str("addr", c.addr).Msg("MPD connection lost, redialling")
		c.dropLocked()
	}
}

// connectionLost reports transport failures. MPD protocol errors (ACK
// replies) are not retried.
func connectionLost(err error) bool {
	var netErr net.Error
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) || errors.As(err, &netErr)
}

// Ping checks an already open connection. It never dials.
func (c *Client) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	return c.conn.Ping()
}

// Close closes the connection and any watcher.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.watcher != nil {
		c.watcher.Close()
		c.watcher = nil
	}
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// attrValues collects one key from each entry of a listing.
func attrValues(attrs []mpd.Attrs, key string) []string {
	out := make([]string, 0, len(attrs))
	for _, a := range attrs {
		if v := a[key]; v != "" {
			out = append(out, v)
		}
	}
	return out
}

// ListPlaylists returns the names of the stored playlists.
func (c *Client) ListPlaylists() ([]string, error) {
	var names []string
	err := c.do(func(conn *mpd.Client) error {
		attrs, err := conn.ListPlaylists()
		if err != nil {
			return fmt.Errorf("list playlists: %w", err)
		}
		names = attrValues(attrs, "playlist")
		return nil
	})
	return names, err
}

// PlaylistFiles returns the song URIs of a stored playlist in order.
func (c *Client) PlaylistFiles(name string) ([]string, error) {
	var files []string
	err := c.do(func(conn *mpd.Client) error {
		attrs, err := conn.PlaylistContents(name)
		if err != nil {
			return fmt.Errorf("read playlist %q: %w", name, err)
		}
		files = attrValues(attrs, "file")
		return nil
	})
	return files, err
}

// ReadPicture returns the picture embedded in the song at uri.
func (c *Client) ReadPicture(uri string) ([]byte, error) {
	var data []byte
	err := c.do(func(conn *mpd.Client) (err error) {
		data, err = conn.ReadPicture(uri)
		return err
	})
	return data, err
}

// AlbumArt returns the cover file MPD finds next to the song at uri.
func (c *Client) AlbumArt(uri string) ([]byte, error) {
	var data []byte
	err := c.do(func(conn *mpd.Client) (err error) {
		data, err = conn.AlbumArt(uri)
		return err
	})
	return data, err
}

// Watch reports changed subsystem names on the returned channel until Close.
// Watcher errors are logged and reading resumes after a short pause.
func (c *Client) Watch(subsystems ...string) (<-chan string, error) {
	w, err := mpd.NewWatcher("tcp", c.addr, c.password, subsystems...)
	if err != nil {
		return nil, fmt.Errorf("mpd watcher: %w", err)
	}

	c.mu.Lock()
	if c.watcher != nil {
		c.watcher.Close()
	}
	c.watcher = w
	c.mu.Unlock()

	changes := make(chan string, 10)
	go func() {
		defer close(changes)
		events, errs := w.Event, w.Error
		for events != nil {
			select {
			case name, ok := <-events:
				if !ok {
					events = nil
					continue
				}
				changes <- name
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				log.Error().Err(err).Strs("subsystems", subsystems).Msg("MPD watcher error")
				time.Sleep(watchRetry)
			}
		}
	}()
	return changes, nil
}
