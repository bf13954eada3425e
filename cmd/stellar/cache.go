package main

import (
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/edumarques81/stellar-playback/internal/infra/cache"
)

var pruneCache bool

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Show probe cache statistics",
	RunE:  runCache,
}

func init() {
	cacheCmd.Flags().BoolVar(&pruneCache, "prune", false, "drop entries for files that no longer exist")
	rootCmd.AddCommand(cacheCmd)
}

func runCache(cmd *cobra.Command, args []string) error {
	db := cache.NewDB(cfg.Cache.Path)
	if err := db.Open(); err != nil {
		return err
	}
	defer db.Close()

	out := cmd.OutOrStdout()
	if pruneCache {
		n, err := db.Prune()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "pruned %d entries\n", n)
	}

	stats, err := db.GetStats()
	if err != nil {
		return err
	}
	if jsonOut {
		data, _ := json.MarshalIndent(stats, "", "  ")
		fmt.Fprintln(out, string(data))
		return nil
	}
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendRows([]table.Row{
		{"Path", db.Path()},
		{"Entries", stats.ProbeCount},
		{"Schema", stats.SchemaVersion},
	})
	if !stats.LastUpdated.IsZero() {
		t.AppendRow(table.Row{"Updated", stats.LastUpdated.Format("2006-01-02 15:04:05")})
	}
	t.Render()
	return nil
}
