// Package pipeline runs one theme synchronisation: fetch both sources,
// extract and parse them, overlay the result on the destination config and
// persist it.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/aymanbagabas/go-udiff"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/unkn0wn-root/themesync/internal/config"
	"github.com/unkn0wn-root/themesync/internal/errdef"
	"github.com/unkn0wn-root/themesync/internal/highlight"
	"github.com/unkn0wn-root/themesync/internal/history"
	"github.com/unkn0wn-root/themesync/internal/palette"
	"github.com/unkn0wn-root/themesync/internal/source"
	"github.com/unkn0wn-root/themesync/internal/telemetry"
	"github.com/unkn0wn-root/themesync/internal/theme"
)

type Fetcher interface {
	Fetch(ctx context.Context, location string) (source.Document, error)
}

type Options struct {
	RunID         string
	ConfigPath    string
	PaletteURL    string
	HighlightsURL string
	DryRun        bool

	Fetcher   Fetcher
	History   *history.Store
	Telemetry telemetry.Instrumenter
	Logger    zerolog.Logger
	Now       func() time.Time
}

type Result struct {
	RunID           string
	ConfigPath      string
	BaseColors      int
	HighlightGroups int
	Theme           theme.Mapping
	Stats           config.MergeStats
	Written         bool
	DryRun          bool
	Diff            string
	Duration        time.Duration
	Stages          []history.StageTiming
}

var errNoFetcher = errors.New("pipeline: fetcher is required")

// Run executes the stages strictly in order. Nothing is written unless every
// stage before persist succeeded. Failed runs are still recorded in history.
func Run(ctx context.Context, opts Options) (Result, error) {
	opts = withDefaults(opts)
	res := Result{RunID: opts.RunID, ConfigPath: opts.ConfigPath, DryRun: opts.DryRun}
	if opts.Fetcher == nil {
		return res, errNoFetcher
	}

	log := opts.Logger.With().Str("run", opts.RunID).Logger()
	clock := history.NewStageClock(opts.Now)
	started := opts.Now()

	ctx, runSpan := opts.Telemetry.Start(ctx, telemetry.StageStart{
		Stage:    telemetry.StageRun,
		RunID:    opts.RunID,
		Location: opts.ConfigPath,
	})

	r := runner{opts: opts, log: log, clock: clock}
	runErr := r.run(ctx, &res)

	res.Stages = clock.Stages()
	res.Duration = opts.Now().Sub(started)
	runSpan.End(telemetry.StageResult{Err: runErr, Entries: res.Theme.Len()})

	if runErr != nil {
		log.Error().Err(runErr).Str("code", string(errdef.CodeOf(runErr))).Msg("sync failed")
	} else {
		log.Info().
			Int("base_colors", res.BaseColors).
			Int("highlight_groups", res.HighlightGroups).
			Int("added", res.Stats.Added).
			Int("updated", res.Stats.Updated).
			Bool("written", res.Written).
			Dur("took", res.Duration).
			Msg("sync complete")
	}

	if opts.History != nil {
		entry := historyEntry(opts, res, r.sums, started)
		if runErr != nil {
			entry.Error = runErr.Error()
		}
		if err := opts.History.Append(entry); err != nil {
			log.Warn().Err(err).Msg("record history")
		}
	}
	return res, runErr
}

type runner struct {
	opts  Options
	log   zerolog.Logger
	clock *history.StageClock
	sums  [2]string
}

func (r *runner) run(ctx context.Context, res *Result) error {
	paletteDoc, err := r.fetch(ctx, r.opts.PaletteURL)
	if err != nil {
		return err
	}
	r.sums[0] = paletteDoc.SHA256

	highlightDoc, err := r.fetch(ctx, r.opts.HighlightsURL)
	if err != nil {
		return err
	}
	r.sums[1] = highlightDoc.SHA256

	var base theme.Mapping
	err = r.stage(ctx, telemetry.StageExtract, r.opts.PaletteURL, func() (int, error) {
		pal, err := palette.Extract(paletteDoc.Text)
		if err != nil {
			return 0, err
		}
		base = pal.Mapping()
		return base.Len(), nil
	})
	if err != nil {
		return err
	}
	res.BaseColors = base.Len()

	var groups theme.Mapping
	err = r.stage(ctx, telemetry.StageParse, r.opts.HighlightsURL, func() (int, error) {
		m, err := highlight.Parse(highlightDoc.Text)
		if err != nil {
			return 0, err
		}
		groups = m
		return groups.Len(), nil
	})
	if err != nil {
		return err
	}
	res.HighlightGroups = groups.Len()
	res.Theme = theme.Merge(base, groups)

	var doc *config.Document
	err = r.stage(ctx, telemetry.StageMerge, r.opts.ConfigPath, func() (int, error) {
		loaded, err := config.Load(r.opts.ConfigPath)
		if err != nil {
			return 0, err
		}
		stats, err := loaded.MergeTheme(res.Theme)
		if err != nil {
			return 0, err
		}
		doc = loaded
		res.Stats = stats
		return stats.Added + stats.Updated, nil
	})
	if err != nil {
		return err
	}

	if r.opts.DryRun {
		return r.stage(ctx, telemetry.StagePersist, r.opts.ConfigPath, func() (int, error) {
			out, err := doc.Encode()
			if err != nil {
				return 0, err
			}
			res.Diff = Diff(r.opts.ConfigPath, doc.Original(), out)
			return 0, nil
		})
	}
	if !res.Stats.Changed() {
		r.log.Debug().Str("config", r.opts.ConfigPath).Msg("theme already up to date")
		return nil
	}
	return r.stage(ctx, telemetry.StagePersist, r.opts.ConfigPath, func() (int, error) {
		if err := doc.Save(); err != nil {
			return 0, err
		}
		res.Written = true
		return 0, nil
	})
}

func (r *runner) fetch(ctx context.Context, location string) (source.Document, error) {
	stop := r.clock.Track(string(telemetry.StageFetch))
	doc, err := r.opts.Fetcher.Fetch(ctx, location)
	stop(err)
	return doc, err
}

func (r *runner) stage(ctx context.Context, stage telemetry.Stage, location string, fn func() (int, error)) error {
	_, span := r.opts.Telemetry.Start(ctx, telemetry.StageStart{
		Stage:    stage,
		RunID:    r.opts.RunID,
		Location: location,
	})
	stop := r.clock.Track(string(stage))
	n, err := fn()
	stop(err)
	span.End(telemetry.StageResult{Err: err, Entries: n})
	if err == nil {
		r.log.Debug().Str("stage", string(stage)).Int("entries", n).Msg("stage done")
	}
	return err
}

// Diff renders a unified diff between the file on disk and the merged output.
// Identical inputs yield an empty string.
func Diff(path string, before, after []byte) string {
	return udiff.Unified(path, path+" (synced)", string(before), string(after))
}

func withDefaults(opts Options) Options {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Telemetry == nil {
		opts.Telemetry = telemetry.Noop()
	}
	if opts.PaletteURL == "" {
		opts.PaletteURL = source.DefaultPaletteURL
	}
	if opts.HighlightsURL == "" {
		opts.HighlightsURL = source.DefaultHighlightsURL
	}
	return opts
}

func historyEntry(opts Options, res Result, sums [2]string, started time.Time) history.Entry {
	return history.Entry{
		ID:              res.RunID,
		ExecutedAt:      started,
		ConfigPath:      opts.ConfigPath,
		PaletteURL:      opts.PaletteURL,
		HighlightsURL:   opts.HighlightsURL,
		PaletteSHA256:   sums[0],
		HighlightSHA256: sums[1],
		BaseColors:      res.BaseColors,
		HighlightGroups: res.HighlightGroups,
		Added:           res.Stats.Added,
		Updated:         res.Stats.Updated,
		Unchanged:       res.Stats.Unchanged,
		DryRun:          res.DryRun,
		Duration:        res.Duration,
		Stages:          res.Stages,
	}
}
