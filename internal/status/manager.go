package status

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrMediaIDRequired is returned when a watch is requested for an empty
// identifier.
var ErrMediaIDRequired = errors.New("media id required")

// Event is published to subscribers after every resolution of any stream.
type Event struct {
	MediaID  string
	Snapshot Snapshot
}

// Manager owns the polling streams, one per media identifier. Streams are
// fully independent; the only shared state is the watcher table itself.
type Manager struct {
	fetcher  Fetcher
	interval time.Duration
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	watchers map[string]*Watcher
	subs     []func(Event)
}

func NewManager(fetcher Fetcher, interval time.Duration, logger *slog.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		fetcher:  fetcher,
		interval: interval,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		watchers: make(map[string]*Watcher),
	}
}

// Subscribe registers fn for status events from all streams. Intended to be
// called during wiring, before any watch starts.
func (m *Manager) Subscribe(fn func(Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
}

// Watch starts a polling stream for mediaID with an immediate first fetch.
// Watching an already-watched identifier is a no-op returning the existing
// stream; onComplete fires at most once per stream, on Completed only.
func (m *Manager) Watch(mediaID string, onComplete func()) (*Watcher, error) {
	if mediaID == "" {
		return nil, ErrMediaIDRequired
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if w, ok := m.watchers[mediaID]; ok {
		return w, nil
	}

	w := newWatcher(mediaID, m.fetcher, m.interval, m.logger, onComplete, func(snap Snapshot) {
		m.publish(Event{MediaID: mediaID, Snapshot: snap})
	})
	m.watchers[mediaID] = w
	w.start(m.ctx)

	m.logger.Info("watching media status", "media_id", mediaID)
	return w, nil
}

func (m *Manager) publish(ev Event) {
	m.mu.Lock()
	subs := make([]func(Event), len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}

// Snapshot returns the last known state for mediaID. A stream that has
// reached a terminal status stays readable until Unwatch.
func (m *Manager) Snapshot(mediaID string) (Snapshot, bool) {
	m.mu.Lock()
	w, ok := m.watchers[mediaID]
	m.mu.Unlock()

	if !ok {
		return Snapshot{}, false
	}
	return w.Snapshot(), true
}

// Unwatch cancels and forgets the stream for mediaID.
func (m *Manager) Unwatch(mediaID string) {
	m.mu.Lock()
	w, ok := m.watchers[mediaID]
	delete(m.watchers, mediaID)
	m.mu.Unlock()

	if ok {
		w.Stop()
		m.logger.Info("stopped watching media status", "media_id", mediaID)
	}
}

// Count reports the number of known streams, including finished ones.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.watchers)
}

// StopAll cancels every stream and waits for their goroutines to exit.
func (m *Manager) StopAll() {
	m.cancel()

	m.mu.Lock()
	watchers := make([]*Watcher, 0, len(m.watchers))
	for _, w := range m.watchers {
		watchers = append(watchers, w)
	}
	m.watchers = make(map[string]*Watcher)
	m.mu.Unlock()

	for _, w := range watchers {
		<-w.done
	}
}
