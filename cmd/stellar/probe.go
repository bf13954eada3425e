package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/edumarques81/stellar-playback/internal/domain/player"
	"github.com/edumarques81/stellar-playback/internal/domain/track"
)

var probeCmd = &cobra.Command{
	Use:   "probe <file>...",
	Short: "Print track metadata and length",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

// runProbe reports every readable file and joins the errors of the rest.
func runProbe(cmd *cobra.Command, args []string) error {
	loader := track.NewLoader(track.WithCoverSize(cfg.Library.CoverSize))

	var (
		infos []player.TrackInfo
		errs  []error
	)
	for _, path := range args {
		t, err := loader.Load(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		infos = append(infos, player.InfoOf(t))
	}

	out := cmd.OutOrStdout()
	if jsonOut {
		data, _ := json.MarshalIndent(infos, "", "  ")
		fmt.Fprintln(out, string(data))
	} else if len(infos) > 0 {
		renderTrackTable(out, infos)
	}
	return errors.Join(errs...)
}

func renderTrackTable(w io.Writer, infos []player.TrackInfo) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"File", "Title", "Artist", "Album", "Length", "Frames", "Cover"})

	var total int64
	for _, info := range infos {
		cover := ""
		if info.HasCover {
			cover = "yes"
		}
		t.AppendRow(table.Row{
			filepath.Base(info.Path), info.Title, info.Artist, info.Album,
			formatMillis(info.DurationMs), info.Frames, cover,
		})
		total += info.DurationMs
	}
	if len(infos) > 1 {
		t.AppendFooter(table.Row{fmt.Sprintf("%d tracks", len(infos)), "", "", "", formatMillis(total), "", ""})
	}
	t.Render()
}
