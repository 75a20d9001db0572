package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MakeNowJust/heredoc"
	"github.com/charmbracelet/x/ansi"

	"github.com/unkn0wn-root/themesync/internal/config"
	"github.com/unkn0wn-root/themesync/internal/errdef"
	"github.com/unkn0wn-root/themesync/internal/history"
	"github.com/unkn0wn-root/themesync/internal/pipeline"
)

var paletteText = heredoc.Doc(`
	local c = {
		light = {
			fg = "#383a42",
			grey = "#a0a1a7",
		},
	}
`)

var highlightsText = heredoc.Doc(`
	hl.treesitter = {
		["@comment"] = {fg = c.Grey, fmt = cfg.code_style.comments},
		["@variable"] = colors.Fg,
	}
`)

type fixture struct {
	dir        string
	config     string
	palette    string
	highlights string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		dir:        dir,
		config:     filepath.Join(dir, "default_config.json"),
		palette:    filepath.Join(dir, "palette.lua"),
		highlights: filepath.Join(dir, "highlights.lua"),
	}
	files := map[string]string{
		f.config:     "{\n  \"theme\": {}\n}\n",
		f.palette:    paletteText,
		f.highlights: highlightsText,
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	t.Setenv("THEMESYNC_CONFIG_DIR", filepath.Join(dir, "state"))
	return f
}

func execute(t *testing.T, env map[string]string, args ...string) (string, error) {
	t.Helper()
	for k, v := range env {
		t.Setenv(k, v)
	}
	var out, errOut bytes.Buffer
	a := newApp(&out, &errOut)
	a.getenv = func(string) string { return "" }
	root := newRootCmd(a)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return ansi.Strip(out.String()), err
}

func TestSyncCommandWritesThemeAndHistory(t *testing.T) {
	f := newFixture(t)

	out, err := execute(t, nil,
		"sync",
		"--config", f.config,
		"--palette-url", f.palette,
		"--highlights-url", "file://"+filepath.ToSlash(f.highlights),
	)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !strings.Contains(out, "Updated "+f.config) {
		t.Fatalf("unexpected summary:\n%s", out)
	}
	if !strings.Contains(out, "added 4") {
		t.Fatalf("expected 4 added keys in summary:\n%s", out)
	}

	data, err := os.ReadFile(f.config)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	for _, want := range []string{`"fg": "#383a42"`, `"variable": "$fg"`, `"link": "grey"`} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("expected %s in config:\n%s", want, data)
		}
	}

	store := history.NewStore(config.HistoryPath(), 10)
	if err := store.Load(); err != nil {
		t.Fatalf("load history: %v", err)
	}
	if got := store.ByConfig(f.config); len(got) != 1 || got[0].Added != 4 {
		t.Fatalf("expected one recorded run, got %+v", got)
	}

	out, err = execute(t, nil, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, f.config) || !strings.Contains(out, "+4 ~0") {
		t.Fatalf("unexpected history output:\n%s", out)
	}

	out, err = execute(t, nil, "history", "--config", filepath.Join(f.dir, "other.json"))
	if err != nil {
		t.Fatalf("history --config: %v", err)
	}
	if out != "no runs recorded\n" {
		t.Fatalf("expected no runs for another config, got:\n%s", out)
	}
}

func TestHistoryRecordsFailedSync(t *testing.T) {
	f := newFixture(t)
	bad := filepath.Join(f.dir, "bad.lua")
	if err := os.WriteFile(bad, []byte(`["@tag"] = colors.Teal,`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := execute(t, nil,
		"sync",
		"--config", f.config,
		"--palette-url", f.palette,
		"--highlights-url", bad,
	); err == nil {
		t.Fatalf("expected sync to fail")
	}

	out, err := execute(t, nil, "history", "-c", f.config)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "failed: ") || !strings.Contains(out, `"Teal"`) {
		t.Fatalf("expected failed run in history:\n%s", out)
	}
}

func TestSyncCommandReadsEnvironment(t *testing.T) {
	f := newFixture(t)

	out, err := execute(t, map[string]string{
		"THEMESYNC_CONFIG":         f.config,
		"THEMESYNC_PALETTE_URL":    f.palette,
		"THEMESYNC_HIGHLIGHTS_URL": f.highlights,
		"THEMESYNC_DRY_RUN":        "true",
		"THEMESYNC_NO_HISTORY":     "true",
	}, "sync")
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !strings.Contains(out, "Dry run for "+f.config) || !strings.Contains(out, `+    "fg": "#383a42",`) {
		t.Fatalf("expected dry-run diff:\n%s", out)
	}

	data, err := os.ReadFile(f.config)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if string(data) != "{\n  \"theme\": {}\n}\n" {
		t.Fatalf("dry run modified config:\n%s", data)
	}
	if _, err := os.Stat(config.HistoryPath()); !os.IsNotExist(err) {
		t.Fatalf("expected no history file, stat err=%v", err)
	}
}

func TestSyncCommandUnknownColor(t *testing.T) {
	f := newFixture(t)
	bad := filepath.Join(f.dir, "bad.lua")
	if err := os.WriteFile(bad, []byte(`["@tag"] = colors.Teal,`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := execute(t, nil,
		"sync", "--no-history",
		"--config", f.config,
		"--palette-url", f.palette,
		"--highlights-url", bad,
	)
	if errdef.CodeOf(err) != errdef.CodeUnknownColor {
		t.Fatalf("expected unknown color error, got %v", err)
	}
}

func TestPreviewCommand(t *testing.T) {
	f := newFixture(t)
	if _, err := execute(t, nil,
		"sync", "--no-history",
		"--config", f.config,
		"--palette-url", f.palette,
		"--highlights-url", f.highlights,
	); err != nil {
		t.Fatalf("sync: %v", err)
	}

	out, err := execute(t, nil, "preview", "--config", f.config)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	for _, want := range []string{"comment", "#a0a1a7", "function M.setup(opts)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in preview:\n%s", want, out)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, nil, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "themesync dev\n") || !strings.Contains(out, "sha256:") {
		t.Fatalf("unexpected version output:\n%s", out)
	}
}

func TestPrintHistoryEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := printHistory(&buf, nil); err != nil {
		t.Fatalf("printHistory: %v", err)
	}
	if buf.String() != "no runs recorded\n" {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestPrintHistoryMarksStatus(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	entries := []history.Entry{
		{ID: "11111111-aaaa", ExecutedAt: at, ConfigPath: "a.json", Added: 2},
		{ID: "22222222-bbbb", ExecutedAt: at, ConfigPath: "a.json", Unchanged: 5, DryRun: true},
		{ID: "33333333-cccc", ExecutedAt: at, ConfigPath: "b.json", Error: "boom"},
	}
	var buf bytes.Buffer
	if err := printHistory(&buf, entries); err != nil {
		t.Fatalf("printHistory: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %q", buf.String())
	}
	if strings.Contains(lines[0], "up to date") || !strings.HasPrefix(lines[0], "11111111 ") {
		t.Fatalf("unexpected changed line %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], "(up to date) (dry run)") {
		t.Fatalf("unexpected unchanged line %q", lines[1])
	}
	if !strings.HasSuffix(lines[2], "failed: boom") {
		t.Fatalf("unexpected failed line %q", lines[2])
	}
}

func TestPrintSummaryUpToDate(t *testing.T) {
	var buf bytes.Buffer
	res := pipeline.Result{ConfigPath: "cfg.json", BaseColors: 2, Duration: time.Second}
	if err := printSummary(&buf, res); err != nil {
		t.Fatalf("printSummary: %v", err)
	}
	if !strings.Contains(ansi.Strip(buf.String()), "cfg.json is up to date") {
		t.Fatalf("unexpected summary %q", buf.String())
	}
}

func TestPreviewWatchStopsWithContext(t *testing.T) {
	f := newFixture(t)
	if err := os.WriteFile(f.config, []byte("{\n  \"theme\": {\"fg\": \"#383a42\"}\n}\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	var out, errOut bytes.Buffer
	a := newApp(&out, &errOut)
	a.getenv = func(string) string { return "" }
	root := newRootCmd(a)
	root.SetArgs([]string{"preview", "--watch", "--interval", "5ms", "--config", f.config})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := root.ExecuteContext(ctx); err != nil {
		t.Fatalf("preview --watch: %v", err)
	}
	if !strings.Contains(ansi.Strip(out.String()), "#383a42") {
		t.Fatalf("expected initial render:\n%s", out.String())
	}
}
