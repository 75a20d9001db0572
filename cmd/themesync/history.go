package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/themesync/internal/config"
	"github.com/unkn0wn-root/themesync/internal/history"
)

const keyLimit = "limit"

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded sync runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := history.NewStore(config.HistoryPath(), historyCap)
			if err := store.Load(); err != nil {
				return err
			}
			limit := a.v.GetInt(keyLimit)
			if path := a.v.GetString(keyConfig); path != "" {
				return printHistory(a.out, limitEntries(store.ByConfig(path), limit))
			}
			return printHistory(a.out, store.Recent(limit))
		},
	}
	cmd.Flags().IntP(keyLimit, "n", 20, "number of runs to show (0 for all)")
	cmd.Flags().StringP(keyConfig, "c", "", "only show runs against this config file")
	return cmd
}

func printHistory(w io.Writer, entries []history.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "no runs recorded")
		return err
	}

	width := 0
	for _, e := range entries {
		if n := runewidth.StringWidth(e.ConfigPath); n > width {
			width = n
		}
	}

	var b strings.Builder
	for _, e := range entries {
		id := e.ID
		if len(id) > 8 {
			id = id[:8]
		}
		mode := ""
		switch {
		case e.Error != "":
			mode = " failed: " + e.Error
		case !e.Changed():
			mode = " (up to date)"
		}
		if e.DryRun {
			mode += " (dry run)"
		}
		slow := ""
		if st, ok := history.Slowest(e.Stages); ok {
			slow = fmt.Sprintf(" slowest=%s", st.Name)
		}
		fmt.Fprintf(
			&b,
			"%s  %s  %s  +%d ~%d  %s%s%s\n",
			id,
			e.ExecutedAt.Local().Format(time.DateTime),
			runewidth.FillRight(e.ConfigPath, width),
			e.Added,
			e.Updated,
			e.Duration.Round(time.Millisecond),
			slow,
			mode,
		)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func limitEntries(entries []history.Entry, limit int) []history.Entry {
	if limit > 0 && len(entries) > limit {
		return entries[:limit]
	}
	return entries
}
