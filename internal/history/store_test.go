package history

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/unkn0wn-root/themesync/internal/errdef"
)

func TestStoreByConfigFiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.json")
	store := NewStore(path, 10)

	cfgA := filepath.Join(dir, "a.json")
	cfgB := filepath.Join(dir, "b.json")

	t1 := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(2 * time.Minute)

	if err := store.Append(Entry{ID: "1", ExecutedAt: t1, ConfigPath: cfgA}); err != nil {
		t.Fatalf("append entry 1: %v", err)
	}
	if err := store.Append(Entry{ID: "2", ExecutedAt: t2, ConfigPath: cfgA}); err != nil {
		t.Fatalf("append entry 2: %v", err)
	}
	if err := store.Append(Entry{ID: "3", ExecutedAt: t1, ConfigPath: cfgB}); err != nil {
		t.Fatalf("append entry 3: %v", err)
	}

	got := store.ByConfig(filepath.Join(dir, ".", "a.json"))
	if len(got) != 2 {
		t.Fatalf("expected 2 entries for config A, got %d", len(got))
	}
	if got[0].ID != "2" || got[1].ID != "1" {
		t.Fatalf("expected newest-first order, got %q then %q", got[0].ID, got[1].ID)
	}

	if len(store.ByConfig("")) != 0 {
		t.Fatalf("expected empty result for blank path")
	}
}

func TestStoreCapsAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.json")
	store := NewStore(path, 2)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		entry := Entry{
			ID:         string(rune('a' + i)),
			ExecutedAt: base.Add(time.Duration(i) * time.Minute),
			Added:      i,
		}
		if err := store.Append(entry); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	reloaded := NewStore(path, 2)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	entries := reloaded.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected cap of 2 entries, got %d", len(entries))
	}
	if entries[0].ID != "c" || entries[1].ID != "b" {
		t.Fatalf("unexpected order after reload: %q, %q", entries[0].ID, entries[1].ID)
	}
	if !entries[0].Changed() || !entries[1].Changed() {
		t.Fatalf("expected both retained entries to report changes")
	}
	if got := reloaded.Recent(1); len(got) != 1 || got[0].ID != "c" {
		t.Fatalf("unexpected recent entries %+v", got)
	}
	if _, err := os.Stat(path + ".tmp"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected temp file to be renamed away, stat err=%v", err)
	}
}

func TestStoreLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	err := NewStore(path, 10).Load()
	if errdef.CodeOf(err) != errdef.CodeHistory {
		t.Fatalf("expected history error, got %v", err)
	}
}

func TestStageClock(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewStageClock(func() time.Time { return now })

	stop := clock.Track("fetch")
	now = now.Add(300 * time.Millisecond)
	stop(nil)

	stop = clock.Track("parse")
	now = now.Add(20 * time.Millisecond)
	stop(errors.New("unknown color name"))

	stages := clock.Stages()
	if len(stages) != 2 {
		t.Fatalf("expected 2 stages, got %d", len(stages))
	}
	if stages[1].Error != "unknown color name" {
		t.Fatalf("expected stage error to be recorded, got %q", stages[1].Error)
	}
	if stages[0].Duration != 300*time.Millisecond || stages[1].Duration != 20*time.Millisecond {
		t.Fatalf("unexpected durations %+v", stages)
	}
	slow, ok := Slowest(stages)
	if !ok || slow.Name != "fetch" {
		t.Fatalf("expected fetch to be slowest, got %+v", slow)
	}
	if _, ok := Slowest(nil); ok {
		t.Fatalf("expected no slowest stage for empty input")
	}
}
