package history

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/unkn0wn-root/themesync/internal/errdef"
)

type Entry struct {
	ID              string        `json:"id"`
	ExecutedAt      time.Time     `json:"executedAt"`
	ConfigPath      string        `json:"configPath"`
	PaletteURL      string        `json:"paletteUrl"`
	HighlightsURL   string        `json:"highlightsUrl"`
	PaletteSHA256   string        `json:"paletteSha256,omitempty"`
	HighlightSHA256 string        `json:"highlightSha256,omitempty"`
	BaseColors      int           `json:"baseColors"`
	HighlightGroups int           `json:"highlightGroups"`
	Added           int           `json:"added"`
	Updated         int           `json:"updated"`
	Unchanged       int           `json:"unchanged"`
	DryRun          bool          `json:"dryRun,omitempty"`
	Duration        time.Duration `json:"duration"`
	Stages          []StageTiming `json:"stages,omitempty"`
	Error           string        `json:"error,omitempty"`
}

// Changed reports whether the run altered (or would alter) the theme.
func (e Entry) Changed() bool {
	return e.Added > 0 || e.Updated > 0
}

type Store struct {
	path       string
	maxEntries int
	entries    []Entry
	mu         sync.RWMutex
	loaded     bool
}

func NewStore(path string, maxEntries int) *Store {
	if maxEntries <= 0 {
		maxEntries = 200
	}
	return &Store{path: path, maxEntries: maxEntries}
}

func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLoadedLocked()
}

func (s *Store) Append(entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoadedLocked(); err != nil {
		return err
	}

	s.entries = append([]Entry{entry}, s.entries...)
	s.sortEntriesLocked()
	if len(s.entries) > s.maxEntries {
		s.entries = s.entries[:s.maxEntries]
	}

	return s.persist()
}

func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	copies := make([]Entry, len(s.entries))
	copy(copies, s.entries)
	return copies
}

// Recent returns at most limit entries, newest first. A non-positive limit
// returns everything.
func (s *Store) Recent(limit int) []Entry {
	all := s.Entries()
	if limit > 0 && len(all) > limit {
		return all[:limit]
	}
	return all
}

func (s *Store) ByConfig(path string) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil
	}
	cleaned := filepath.Clean(trimmed)

	var matched []Entry
	for _, entry := range s.entries {
		if entry.ConfigPath == "" {
			continue
		}
		if filepath.Clean(entry.ConfigPath) == cleaned {
			matched = append(matched, entry)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return newerFirst(matched[i], matched[j])
	})
	return matched
}

func (s *Store) persist() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "create history dir")
	}

	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return errdef.Wrap(errdef.CodeHistory, err, "encode history")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "write history tmp")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "replace history file")
	}

	return nil
}

func (s *Store) sortEntriesLocked() {
	if len(s.entries) < 2 {
		return
	}

	sort.SliceStable(s.entries, func(i, j int) bool {
		return newerFirst(s.entries[i], s.entries[j])
	})
}

func (s *Store) ensureLoadedLocked() error {
	if s.loaded {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.entries = []Entry{}
			s.loaded = true
			return nil
		}
		return errdef.Wrap(errdef.CodeHistory, err, "read history")
	}

	if len(data) == 0 {
		s.entries = []Entry{}
		s.loaded = true
		return nil
	}

	if err := json.Unmarshal(data, &s.entries); err != nil {
		return errdef.Wrap(errdef.CodeHistory, err, "parse history")
	}

	s.sortEntriesLocked()
	s.loaded = true
	return nil
}

func newerFirst(a, b Entry) bool {
	ai := a.ExecutedAt
	bi := b.ExecutedAt
	switch {
	case ai.IsZero() && bi.IsZero():
		return compareIDsDesc(a.ID, b.ID)
	case ai.IsZero():
		return false
	case bi.IsZero():
		return true
	case ai.Equal(bi):
		return compareIDsDesc(a.ID, b.ID)
	default:
		return ai.After(bi)
	}
}

func compareIDsDesc(a, b string) bool {
	ai, errA := strconv.ParseInt(a, 10, 64)
	bi, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		return ai > bi
	}
	return a > b
}
