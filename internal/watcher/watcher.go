// Package watcher polls local files and reports content changes. It backs
// the preview command's watch mode.
package watcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type EventKind int

const (
	EventChanged EventKind = iota
	EventMissing
)

func (k EventKind) String() string {
	if k == EventMissing {
		return "missing"
	}
	return "changed"
}

type Fingerprint struct {
	Mod  time.Time
	Size int64
	Hash string
}

type Event struct {
	Path string
	Kind EventKind
	Prev Fingerprint
	Curr Fingerprint
}

type Options struct {
	Interval time.Duration
	Buffer   int
}

type entry struct {
	fp      Fingerprint
	missing bool
}

type Watcher struct {
	mu       sync.Mutex
	entries  map[string]*entry
	out      chan Event
	interval time.Duration
}

const (
	defaultInterval = time.Second
	defaultBuffer   = 16
	hashPrefix      = "sha256:"
)

func New(opts Options) *Watcher {
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	buf := opts.Buffer
	if buf <= 0 {
		buf = defaultBuffer
	}
	return &Watcher{
		entries:  make(map[string]*entry),
		out:      make(chan Event, buf),
		interval: interval,
	}
}

func (w *Watcher) Events() <-chan Event {
	return w.out
}

// Track records the current state of path. A file that does not exist yet is
// tracked as missing and reported once it appears.
func (w *Watcher) Track(path string) {
	clean, ok := cleanPath(path)
	if !ok {
		return
	}
	e := &entry{}
	if fp, err := fingerprint(clean); err == nil {
		e.fp = fp
	} else {
		e.missing = true
	}

	w.mu.Lock()
	w.entries[clean] = e
	w.mu.Unlock()
}

// Run scans on every tick until ctx is done, then closes the event channel.
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.out)
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.deliver(w.Scan())
		}
	}
}

// deliver never blocks the scan loop. Events that do not fit in the buffer
// are dropped and counted.
func (w *Watcher) deliver(events []Event) (dropped int) {
	for _, evt := range events {
		select {
		case w.out <- evt:
		default:
			dropped++
		}
	}
	return dropped
}

// Scan checks every tracked file once and returns what changed since the
// previous scan.
func (w *Watcher) Scan() []Event {
	w.mu.Lock()
	defer w.mu.Unlock()

	var events []Event
	for path, e := range w.entries {
		if evt, ok := check(path, e); ok {
			events = append(events, evt)
		}
	}
	return events
}

func check(path string, e *entry) (Event, bool) {
	info, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) || e.missing {
			return Event{}, false
		}
		e.missing = true
		return Event{Path: path, Kind: EventMissing, Prev: e.fp}, true
	}

	if !e.missing && info.ModTime().Equal(e.fp.Mod) && info.Size() == e.fp.Size {
		return Event{}, false
	}

	next, err := fingerprint(path)
	if err != nil {
		if e.missing {
			return Event{}, false
		}
		e.missing = true
		return Event{Path: path, Kind: EventMissing, Prev: e.fp}, true
	}

	prev := e.fp
	wasMissing := e.missing
	e.fp = next
	e.missing = false
	// Editors that rewrite a file with the same bytes only bump the modtime.
	if !wasMissing && next.Hash == prev.Hash {
		return Event{}, false
	}
	return Event{Path: path, Kind: EventChanged, Prev: prev, Curr: next}, true
}

func cleanPath(path string) (string, bool) {
	if path == "" {
		return "", false
	}
	clean := filepath.Clean(path)
	if clean == "." {
		return "", false
	}
	return clean, true
}

func fingerprint(path string) (Fingerprint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fingerprint{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return Fingerprint{}, err
	}
	sum := sha256.Sum256(data)
	return Fingerprint{
		Mod:  info.ModTime(),
		Size: int64(len(data)),
		Hash: hashPrefix + hex.EncodeToString(sum[:]),
	}, nil
}
