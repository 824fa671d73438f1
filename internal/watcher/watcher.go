// Package watcher observes a local drop folder so media copied into it can
// be uploaded without touching the API.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
)

type Watcher interface {
	Watch(ctx context.Context, path string) error
	Stop() error
	OnChange(callback func(path string, event EventType))
}

// DefaultScanInterval is how often the drop folder is re-scanned.
const DefaultScanInterval = 5 * time.Second

type event struct {
	path string
	typ  EventType
}

type fileState struct {
	size    int64
	modTime time.Time
	stable  int
	fired   bool
}

// settleScans is how many consecutive scans a file's size and mtime must
// hold still before a create event fires. Copies in progress keep changing
// between scans.
const settleScans = 2

// PollWatcher scans a directory on an interval. There is no portable
// fs-notification in the stdlib and the agent only watches one shallow
// folder, so polling is enough.
type PollWatcher struct {
	logger   *slog.Logger
	interval time.Duration

	mu       sync.Mutex
	known    map[string]*fileState
	callback func(path string, event EventType)

	cancel context.CancelFunc
	done   chan struct{}
}

func NewPollWatcher(logger *slog.Logger, interval time.Duration) *PollWatcher {
	if interval <= 0 {
		interval = DefaultScanInterval
	}
	return &PollWatcher{
		logger:   logger.With("component", "watcher"),
		interval: interval,
		known:    make(map[string]*fileState),
	}
}

func (w *PollWatcher) OnChange(callback func(path string, event EventType)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callback = callback
}

// Watch starts scanning path until ctx is cancelled or Stop is called.
// Files already present at startup are treated as settled and never fire.
func (w *PollWatcher) Watch(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &os.PathError{Op: "watch", Path: path, Err: os.ErrInvalid}
	}

	// Seed the table so pre-existing files are never re-uploaded.
	w.scan(path, true)

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})

	go func() {
		defer close(w.done)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		w.logger.Info("watching drop folder", "path", path)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.scan(path, false)
			}
		}
	}()
	return nil
}

func (w *PollWatcher) Stop() error {
	if w.cancel != nil {
		w.cancel()
		<-w.done
	}
	return nil
}

// IsMediaFile reports whether the watcher considers path an uploadable
// media file.
func IsMediaFile(path string) bool {
	return mediaExtensions[strings.ToLower(filepath.Ext(path))]
}

var mediaExtensions = map[string]bool{
	".mp3": true, ".wav": true, ".m4a": true, ".ogg": true, ".flac": true,
	".mp4": true, ".mov": true, ".mkv": true, ".webm": true, ".avi": true,
}

func (w *PollWatcher) scan(dir string, seed bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		w.logger.Warn("drop folder scan failed", "error", err)
		return
	}

	present := make(map[string]bool, len(entries))

	w.mu.Lock()
	callback := w.callback
	var events []event

	for _, entry := range entries {
		if entry.IsDir() || !IsMediaFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		present[path] = true

		state, ok := w.known[path]
		if !ok {
			w.known[path] = &fileState{size: info.Size(), modTime: info.ModTime(), fired: seed}
			continue
		}

		if state.size != info.Size() || !state.modTime.Equal(info.ModTime()) {
			alreadyFired := state.fired
			state.size = info.Size()
			state.modTime = info.ModTime()
			state.stable = 0
			if alreadyFired {
				events = append(events, event{path, EventModify})
			}
			continue
		}

		if !state.fired {
			state.stable++
			if state.stable >= settleScans {
				state.fired = true
				events = append(events, event{path, EventCreate})
			}
		}
	}

	for path := range w.known {
		if !present[path] {
			delete(w.known, path)
			events = append(events, event{path, EventDelete})
		}
	}
	w.mu.Unlock()

	if callback == nil {
		return
	}
	for _, ev := range events {
		callback(ev.path, ev.typ)
	}
}
