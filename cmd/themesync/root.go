package main

import (
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/MakeNowJust/heredoc"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/unkn0wn-root/themesync/internal/logging"
	"github.com/unkn0wn-root/themesync/internal/telemetry"
)

const envPrefix = "THEMESYNC"

const (
	keyLogLevel  = "log-level"
	keyLogFormat = "log-format"
)

// app carries what the commands share. Tests swap the writers and the
// environment lookup.
type app struct {
	v      *viper.Viper
	out    io.Writer
	errOut io.Writer
	getenv func(string) string
	http   func(timeout time.Duration) *http.Client
	log    zerolog.Logger
}

func newApp(out, errOut io.Writer) *app {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return &app{
		v:      v,
		out:    out,
		errOut: errOut,
		getenv: os.Getenv,
		http: func(timeout time.Duration) *http.Client {
			return &http.Client{Timeout: timeout}
		},
		log: zerolog.Nop(),
	}
}

func (a *app) telemetry() (telemetry.Instrumenter, error) {
	cfg := telemetry.ConfigFromEnv(a.getenv)
	cfg.Version = version
	return telemetry.New(cfg)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "themesync",
		Short: "Sync the theme section of a lirstings config from onedark.nvim",
		Long: heredoc.Doc(`
			themesync reads the light palette and the treesitter highlight groups
			published by onedark.nvim and writes them into the "theme" section of
			a configuration file. Every other section is left as it is.
		`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			logging.Init(logging.Options{
				Level:  a.v.GetString(keyLogLevel),
				Format: logging.Format(a.v.GetString(keyLogFormat)),
				Out:    a.errOut,
			})
			a.log = logging.Component("cli")
			return nil
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	root.PersistentFlags().String(keyLogLevel, "warn", "log level (trace, debug, info, warn, error)")
	root.PersistentFlags().String(keyLogFormat, string(logging.FormatConsole), "log format (console or json)")

	root.AddCommand(
		newSyncCmd(a),
		newPreviewCmd(a),
		newHistoryCmd(a),
		newVersionCmd(a),
	)
	return root
}
