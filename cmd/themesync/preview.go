package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/themesync/internal/config"
	"github.com/unkn0wn-root/themesync/internal/errdef"
	"github.com/unkn0wn-root/themesync/internal/preview"
	"github.com/unkn0wn-root/themesync/internal/watcher"
)

const (
	keySample   = "sample"
	keyWatch    = "watch"
	keyInterval = "interval"
)

func newPreviewCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Render the current theme section in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !a.v.GetBool(keyWatch) {
				return runPreview(a)
			}
			return watchPreview(cmd.Context(), a)
		},
	}
	cmd.Flags().StringP(keyConfig, "c", defaultConfigPath, "config file to read")
	cmd.Flags().String(keySample, "", "file to highlight instead of the built-in Lua sample")
	cmd.Flags().BoolP(keyWatch, "w", false, "re-render whenever the config or sample file changes")
	cmd.Flags().Duration(keyInterval, time.Second, "poll interval for --watch")
	return cmd
}

// watchPreview renders once, then again after every change until ctx ends.
// Render failures are reported and the watch continues.
func watchPreview(ctx context.Context, a *app) error {
	w := watcher.New(watcher.Options{Interval: a.v.GetDuration(keyInterval)})
	w.Track(a.v.GetString(keyConfig))
	if sample := a.v.GetString(keySample); sample != "" {
		w.Track(sample)
	}
	go w.Run(ctx)

	render := func() {
		if err := runPreview(a); err != nil {
			fmt.Fprintf(a.errOut, "preview: %v\n", err)
		}
	}
	render()
	for evt := range w.Events() {
		a.log.Info().Str("path", evt.Path).Stringer("kind", evt.Kind).Msg("file changed")
		if evt.Kind == watcher.EventMissing {
			continue
		}
		fmt.Fprintln(a.out)
		render()
	}
	return nil
}

func runPreview(a *app) error {
	doc, err := config.Load(a.v.GetString(keyConfig))
	if err != nil {
		return err
	}
	m, err := doc.Theme()
	if err != nil {
		return err
	}

	code := preview.DefaultSample
	if path := a.v.GetString(keySample); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return errdef.Wrap(errdef.CodeFilesystem, err, "read sample %q", path)
		}
		code = string(data)
	}

	profile := termenv.NewOutput(a.out).EnvColorProfile()
	r := preview.NewRenderer(a.out, profile)

	swatches, err := r.Swatches(m)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprint(a.out, swatches, "\n"); err != nil {
		return err
	}
	return r.Sample(a.out, m, code)
}
