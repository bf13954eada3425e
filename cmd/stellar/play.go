package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/edumarques81/stellar-playback/internal/domain/player"
	"github.com/edumarques81/stellar-playback/internal/domain/playlist"
)

const volumeStep = 0.1

var playCmd = &cobra.Command{
	Use:   "play <file|playlist>",
	Short: "Play an MP3 file or a playlist in the terminal",
	Long: `Play an MP3 file or a playlist file and read commands from stdin:

  p          play/pause
  n          next track
  b          previous track
  s          shuffle the playlist
  r          cycle repeat mode (off, all, one)
  z          jump back five seconds
  + / -      volume up / down
  seek <sec> jump to a position
  q          quit`,
	Args: cobra.ExactArgs(1),
	RunE: runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := buildStack(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	out := cmd.OutOrStdout()
	finished := make(chan struct{}, 1)
	st.fanout.Add(player.SinkFunc(func(ev player.Event) {
		printEvent(out, ev)
		if s, ok := ev.(player.PlaybackStateChanged); ok && s.Status == player.StatusFinished {
			select {
			case finished <- struct{}{}:
			default:
			}
		}
	}))

	target := args[0]
	if playlist.IsPlaylistFile(target) {
		err = st.engine.LoadPlaylist(target)
	} else {
		err = st.engine.LoadSong(target)
	}
	if err != nil {
		return err
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-finished:
			fmt.Fprintln(out, "finished (p to play again, q to quit)")
		case line, ok := <-lines:
			if !ok {
				// No console: keep playing until interrupted.
				<-ctx.Done()
				return nil
			}
			quit, err := runConsoleCommand(st.engine, line, out)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
			if quit {
				return nil
			}
		}
	}
}

// consoleEngine is the part of the engine the console drives.
type consoleEngine interface {
	TogglePause() error
	Next() error
	Previous() error
	Shuffle() error
	Replay() error
	CycleRepeatMode() player.RepeatMode
	SeekToMillis(ms int64) error
	SetVolume(v float64)
	Snapshot() player.Snapshot
}

func runConsoleCommand(e consoleEngine, line string, out io.Writer) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	switch fields[0] {
	case "p":
		return false, e.TogglePause()
	case "n":
		return false, e.Next()
	case "b":
		return false, e.Previous()
	case "s":
		return false, e.Shuffle()
	case "z":
		return false, e.Replay()
	case "r":
		fmt.Fprintf(out, "repeat: %s\n", e.CycleRepeatMode())
	case "+", "-":
		v := e.Snapshot().Volume
		if fields[0] == "+" {
			v += volumeStep
		} else {
			v -= volumeStep
		}
		e.SetVolume(v)
		fmt.Fprintf(out, "volume: %.0f%%\n", e.Snapshot().Volume*100)
	case "seek":
		if len(fields) != 2 {
			return false, fmt.Errorf("usage: seek <seconds>")
		}
		sec, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return false, fmt.Errorf("invalid position %q", fields[1])
		}
		return false, e.SeekToMillis(int64(sec * 1000))
	case "q", "quit":
		return true, nil
	default:
		return false, fmt.Errorf("unknown command %q", fields[0])
	}
	return false, nil
}

func printEvent(out io.Writer, ev player.Event) {
	switch e := ev.(type) {
	case player.TrackChanged:
		fmt.Fprintf(out, "▶ %s - %s (%s)\n", e.Track.Artist, e.Track.Title, formatMillis(e.Track.DurationMs))
	case player.PlaybackStateChanged:
		fmt.Fprintf(out, "[%s]\n", e.Status)
	case player.ErrorOccurred:
		fmt.Fprintf(out, "error: %v\n", e.Err)
	}
}

func formatMillis(ms int64) string {
	sec := ms / 1000
	return fmt.Sprintf("%d:%02d", sec/60, sec%60)
}
