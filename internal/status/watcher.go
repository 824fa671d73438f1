// Package status polls the backend for media processing status until a
// terminal state is reached. Each watched media identifier gets its own
// polling stream with at most one request in flight; after every resolution
// the next step (re-poll after the fixed delay, or stop) is decided from the
// response and armed as a single-shot timer.
package status

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/scribesearch/scribe-agent/internal/backend"
)

// DefaultInterval is the fixed delay between polls of one media identifier.
const DefaultInterval = 2 * time.Second

// Fetcher fetches one status snapshot. Satisfied by backend.QueryClient.
type Fetcher interface {
	GetMediaStatus(ctx context.Context, mediaID string) (*backend.MediaStatusSnapshot, error)
}

// Snapshot is the caller-visible state of one polling stream. Status holds
// the last resolved value and is retained while a newer poll is pending;
// Loading is true until the first resolution; Fetching is true during any
// in-flight poll; Err carries the most recent fetch failure, cleared by the
// next successful poll.
type Snapshot struct {
	Status   *backend.MediaStatusSnapshot
	Loading  bool
	Fetching bool
	Err      error
}

// Watcher is one polling stream for a single media identifier.
type Watcher struct {
	mediaID    string
	fetcher    Fetcher
	interval   time.Duration
	logger     *slog.Logger
	onComplete func()
	onUpdate   func(Snapshot)

	mu        sync.Mutex
	snap      Snapshot
	completed bool

	cancel context.CancelFunc
	done   chan struct{}
}

func newWatcher(mediaID string, fetcher Fetcher, interval time.Duration, logger *slog.Logger, onComplete func(), onUpdate func(Snapshot)) *Watcher {
	return &Watcher{
		mediaID:    mediaID,
		fetcher:    fetcher,
		interval:   interval,
		logger:     logger,
		onComplete: onComplete,
		onUpdate:   onUpdate,
		snap:       Snapshot{Loading: true},
		done:       make(chan struct{}),
	}
}

func (w *Watcher) start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	w.cancel = cancel
	go w.run(ctx)
}

// Stop cancels the stream. An in-flight poll may still complete on the
// backend but its response is dropped before being applied.
func (w *Watcher) Stop() {
	w.cancel()
	<-w.done
}

// Snapshot returns the current stream state.
func (w *Watcher) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snap
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)

	for {
		w.setFetching(true)

		snap, err := w.fetcher.GetMediaStatus(ctx, w.mediaID)

		// A cancelled watcher must not apply a late response.
		if ctx.Err() != nil {
			return
		}

		if w.apply(snap, err) {
			return
		}

		timer := time.NewTimer(w.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (w *Watcher) setFetching(fetching bool) {
	w.mu.Lock()
	w.snap.Fetching = fetching
	snap := w.snap
	onUpdate := w.onUpdate
	w.mu.Unlock()

	if onUpdate != nil {
		onUpdate(snap)
	}
}

// apply records one resolution and reports whether polling should stop.
func (w *Watcher) apply(snap *backend.MediaStatusSnapshot, err error) bool {
	w.mu.Lock()

	w.snap.Fetching = false

	if err != nil {
		// A failed fetch still counts as a resolution, so the initial
		// loading phase ends here. The previous value stays visible and
		// the next tick retries.
		w.snap.Err = err
		w.snap.Loading = false
		stale := w.snap
		onUpdate := w.onUpdate
		w.mu.Unlock()

		w.logger.Warn("status poll failed", "media_id", w.mediaID, "error", err)
		if onUpdate != nil {
			onUpdate(stale)
		}
		return false
	}

	w.snap.Status = snap
	w.snap.Loading = false
	w.snap.Err = nil

	terminal := snap != nil && snap.Status.IsTerminal()
	fireComplete := terminal && snap.Status == backend.StatusCompleted && !w.completed
	if fireComplete {
		w.completed = true
	}

	current := w.snap
	onUpdate := w.onUpdate
	onComplete := w.onComplete
	w.mu.Unlock()

	if onUpdate != nil {
		onUpdate(current)
	}

	if terminal {
		w.logger.Info("media reached terminal status",
			"media_id", w.mediaID,
			"status", snap.Status,
		)
		if fireComplete && onComplete != nil {
			onComplete()
		}
		return true
	}

	// Absent status means still pending; keep polling either way.
	return false
}
