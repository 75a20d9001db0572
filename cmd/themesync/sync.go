package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/MakeNowJust/heredoc"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/themesync/internal/config"
	"github.com/unkn0wn-root/themesync/internal/history"
	"github.com/unkn0wn-root/themesync/internal/logging"
	"github.com/unkn0wn-root/themesync/internal/pipeline"
	"github.com/unkn0wn-root/themesync/internal/source"
)

const (
	keyConfig        = "config"
	keyPaletteURL    = "palette-url"
	keyHighlightsURL = "highlights-url"
	keyDryRun        = "dry-run"
	keyNoHistory     = "no-history"
	keyTimeout       = "timeout"

	defaultConfigPath = "src/default_config.json"
	historyCap        = 200
)

func newSyncCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch the onedark sources and update the theme section",
		Long: heredoc.Doc(`
			Fetch palette.lua and highlights.lua, derive the theme entries and
			merge them into the config file. Keys already in the theme section
			that the sources do not mention are kept.

			Sources may be http(s) URLs, file:// URLs or local paths.
		`),
		Example: heredoc.Doc(`
			themesync sync
			themesync sync --config config.yaml --dry-run
			THEMESYNC_PALETTE_URL=./palette.lua themesync sync
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd.Context(), a)
		},
	}

	flags := cmd.Flags()
	flags.StringP(keyConfig, "c", defaultConfigPath, "config file to update (.json, .toml, .yaml)")
	flags.String(keyPaletteURL, source.DefaultPaletteURL, "palette.lua location")
	flags.String(keyHighlightsURL, source.DefaultHighlightsURL, "highlights.lua location")
	flags.Bool(keyDryRun, false, "print a diff instead of writing")
	flags.Bool(keyNoHistory, false, "do not record this run")
	flags.Duration(keyTimeout, source.DefaultTimeout, "timeout for fetching sources")
	return cmd
}

func runSync(ctx context.Context, a *app) error {
	timeout := a.v.GetDuration(keyTimeout)
	if timeout <= 0 {
		timeout = source.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tel, err := a.telemetry()
	if err != nil {
		a.log.Warn().Err(err).Msg("telemetry disabled")
		tel = nil
	}
	if tel != nil {
		defer func() {
			if err := tel.Shutdown(context.Background()); err != nil {
				a.log.Warn().Err(err).Msg("telemetry shutdown")
			}
		}()
	}

	runID := uuid.NewString()
	opts := []source.Option{
		source.WithUserAgent("themesync/" + version),
		source.WithLogger(logging.Component("source")),
		source.WithRunID(runID),
	}
	if tel != nil {
		opts = append(opts, source.WithTelemetry(tel))
	}
	client, err := source.NewClient(a.http(timeout), opts...)
	if err != nil {
		return err
	}

	var store *history.Store
	if !a.v.GetBool(keyNoHistory) {
		store = history.NewStore(config.HistoryPath(), historyCap)
	}

	res, err := pipeline.Run(ctx, pipeline.Options{
		RunID:         runID,
		ConfigPath:    a.v.GetString(keyConfig),
		PaletteURL:    a.v.GetString(keyPaletteURL),
		HighlightsURL: a.v.GetString(keyHighlightsURL),
		DryRun:        a.v.GetBool(keyDryRun),
		Fetcher:       client,
		History:       store,
		Telemetry:     tel,
		Logger:        logging.Component("pipeline"),
	})
	if err != nil {
		return err
	}
	return printSummary(a.out, res)
}

var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	updatedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	mutedStyle   = lipgloss.NewStyle().Faint(true)
)

func printSummary(w io.Writer, res pipeline.Result) error {
	var b strings.Builder
	switch {
	case res.DryRun:
		b.WriteString(headingStyle.Render("Dry run for " + res.ConfigPath))
	case res.Written:
		b.WriteString(headingStyle.Render("Updated " + res.ConfigPath))
	default:
		b.WriteString(headingStyle.Render(res.ConfigPath + " is up to date"))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "  base colors:      %d\n", res.BaseColors)
	fmt.Fprintf(&b, "  highlight groups: %d\n", res.HighlightGroups)
	fmt.Fprintf(
		&b,
		"  %s  %s  %s\n",
		addedStyle.Render(fmt.Sprintf("added %d", res.Stats.Added)),
		updatedStyle.Render(fmt.Sprintf("updated %d", res.Stats.Updated)),
		mutedStyle.Render(fmt.Sprintf("unchanged %d", res.Stats.Unchanged)),
	)
	if res.DryRun {
		b.WriteString("\n")
		if res.Diff == "" {
			b.WriteString(mutedStyle.Render("no changes"))
			b.WriteString("\n")
		} else {
			b.WriteString(res.Diff)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
