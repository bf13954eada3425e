package mpd_test

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/edumarques81/stellar-playback/internal/domain/playlist"
	"github.com/edumarques81/stellar-playback/internal/domain/track"
	"github.com/edumarques81/stellar-playback/internal/infra/mpd"
)

// fakeMPD speaks just enough of the MPD protocol for stored playlist reads.
type fakeMPD struct {
	ln        net.Listener
	playlists map[string][]string
	// hangup closes each connection after its first answered command.
	hangup bool
}

func startFakeMPD(t *testing.T, playlists map[string][]string, opts ...func(*fakeMPD)) (*fakeMPD, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	f := &fakeMPD{ln: ln, playlists: playlists}
	for _, opt := range opts {
		opt(f)
	}
	go f.serve()
	t.Cleanup(func() { ln.Close() })
	return f, ln.Addr().(*net.TCPAddr).Port
}

func (f *fakeMPD) serve() {
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		go f.handle(conn)
	}
}

func (f *fakeMPD) handle(conn net.Conn) {
	defer conn.Close()
	w := bufio.NewWriter(conn)
	fmt.Fprint(w, "OK MPD 0.23.5\n")
	w.Flush()

	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
		arg = strings.Trim(arg, `"`)

		switch cmd {
		case "ping", "password":
			fmt.Fprint(w, "OK\n")
		case "listplaylists":
			for name := range f.playlists {
				fmt.Fprintf(w, "playlist: %s\nLast-Modified: 2024-01-01T00:00:00Z\n", name)
			}
			fmt.Fprint(w, "OK\n")
		case "listplaylistinfo":
			files, ok := f.playlists[arg]
			if !ok {
				fmt.Fprintf(w, "ACK [50@0] {%s} No such playlist\n", cmd)
				break
			}
			for _, file := range files {
				fmt.Fprintf(w, "file: %s\nTime: 180\n", file)
			}
			fmt.Fprint(w, "OK\n")
		case "close":
			w.Flush()
			return
		default:
			fmt.Fprintf(w, "ACK [5@0] {%s} unknown command\n", cmd)
		}
		w.Flush()
		if f.hangup && cmd != "password" {
			return
		}
	}
}

type pathLoader struct{}

func (pathLoader) Load(path string) (*track.Track, error) {
	if strings.HasSuffix(path, ".flac") {
		return nil, &track.UnreadableAudioError{Path: path, Err: errors.New("not mp3")}
	}
	return track.New(path, 1000, 38, track.Metadata{})
}

func TestNewClient(t *testing.T) {
	if mpd.NewClient("localhost", 6600, "") == nil {
		t.Error("NewClient should return a non-nil client")
	}
}

func TestClientConnectFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	client := mpd.NewClient("127.0.0.1", port, "")
	if err := client.Connect(); err == nil {
		t.Error("Connect should fail for non-existent server")
		client.Close()
	}
}

func TestClientPingWithoutConnect(t *testing.T) {
	client := mpd.NewClient("localhost", 6600, "")
	if err := client.Ping(); !errors.Is(err, mpd.ErrNotConnected) {
		t.Errorf("Ping = %v, want ErrNotConnected", err)
	}
}

func TestClientListPlaylists(t *testing.T) {
	_, port := startFakeMPD(t, map[string][]string{"Evening": {"a.mp3"}})

	client := mpd.NewClient("127.0.0.1", port, "secret")
	if err := client.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer client.Close()

	if err := client.Ping(); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	names, err := client.ListPlaylists()
	if err != nil {
		t.Fatalf("ListPlaylists: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"Evening"}) {
		t.Errorf("ListPlaylists = %v", names)
	}
}

func TestClientRedialsAfterHangup(t *testing.T) {
	_, port := startFakeMPD(t, map[string][]string{"Evening": {"a.mp3"}}, func(f *fakeMPD) { f.hangup = true })

	client := mpd.NewClient("127.0.0.1", port, "")
	defer client.Close()

	for i := 0; i < 3; i++ {
		names, err := client.ListPlaylists()
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if len(names) != 1 {
			t.Fatalf("call %d: ListPlaylists = %v", i, names)
		}
	}
}

func TestClientStoredPlaylist(t *testing.T) {
	_, port := startFakeMPD(t, map[string][]string{
		"Evening": {"Artist/Album/01.mp3", "http://radio.example/stream", "Artist/Album/02.flac", "Artist/Album/03.mp3"},
	})

	client := mpd.NewClient("127.0.0.1", port, "")
	defer client.Close()

	p, err := client.StoredPlaylist("Evening", "/srv/music", pathLoader{})
	if err != nil {
		t.Fatalf("StoredPlaylist: %v", err)
	}
	if p.Origin() != playlist.OriginMPD || p.Name() != "Evening" {
		t.Errorf("unexpected playlist %q (%v)", p.Name(), p.Origin())
	}

	var got []string
	for _, tr := range p.Tracks() {
		got = append(got, tr.Path())
	}
	want := []string{
		filepath.Join("/srv/music", "Artist", "Album", "01.mp3"),
		filepath.Join("/srv/music", "Artist", "Album", "03.mp3"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("tracks = %v, want %v", got, want)
	}
}

func TestClientStoredPlaylistMissing(t *testing.T) {
	_, port := startFakeMPD(t, map[string][]string{})

	client := mpd.NewClient("127.0.0.1", port, "")
	defer client.Close()

	if _, err := client.StoredPlaylist("Nope", "/srv/music", pathLoader{}); err == nil {
		t.Error("expected error for unknown playlist")
	}
}

func TestLocalPathAndRelativeURI(t *testing.T) {
	if got := mpd.LocalPath("/srv/music", "a/b.mp3"); got != filepath.Join("/srv/music", "a", "b.mp3") {
		t.Errorf("LocalPath = %q", got)
	}
	if got := mpd.LocalPath("/srv/music", "/abs/b.mp3"); got != "/abs/b.mp3" {
		t.Errorf("LocalPath absolute = %q", got)
	}

	tests := []struct {
		path   string
		want   string
		wantOK bool
	}{
		{"/srv/music/a/b.mp3", "a/b.mp3", true},
		{"/elsewhere/b.mp3", "", false},
	}
	for _, tt := range tests {
		got, ok := mpd.RelativeURI("/srv/music", tt.path)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("RelativeURI(%q) = %q, %v", tt.path, got, ok)
		}
	}
	if _, ok := mpd.RelativeURI("", "/srv/music/a.mp3"); ok {
		t.Error("RelativeURI without music dir should fail")
	}
}

func TestImporter(t *testing.T) {
	_, port := startFakeMPD(t, map[string][]string{
		"Morning": {"x/1.mp3"},
	})

	client := mpd.NewClient("127.0.0.1", port, "")
	defer client.Close()
	imp := mpd.NewImporter(client, "/srv/music", pathLoader{})

	names, err := imp.ListPlaylists()
	if err != nil || len(names) != 1 || names[0] != "Morning" {
		t.Fatalf("ListPlaylists = %v, %v", names, err)
	}
	p, err := imp.Import("Morning")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if p.Len() != 1 || p.Current().Path() != filepath.Join("/srv/music", "x", "1.mp3") {
		t.Errorf("unexpected import %v", p.Tracks())
	}
}
