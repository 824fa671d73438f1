package status

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/scribesearch/scribe-agent/internal/backend"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type step struct {
	snap *backend.MediaStatusSnapshot
	err  error
}

// fakeFetcher replays a scripted sequence of resolutions. The last step
// repeats if polling continues past the script.
type fakeFetcher struct {
	mu    sync.Mutex
	steps []step
	calls []time.Time
}

func snapOf(status backend.MediaStatus) *backend.MediaStatusSnapshot {
	return &backend.MediaStatusSnapshot{MediaID: "abc123", Status: status}
}

func (f *fakeFetcher) GetMediaStatus(ctx context.Context, mediaID string) (*backend.MediaStatusSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := len(f.calls)
	f.calls = append(f.calls, time.Now())
	if i >= len(f.steps) {
		i = len(f.steps) - 1
	}
	return f.steps[i].snap, f.steps[i].err
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached before timeout")
}

func TestWatcher_PollsUntilCompleted_CallbackOnce(t *testing.T) {
	fetcher := &fakeFetcher{steps: []step{
		{snap: snapOf(backend.StatusUploaded)},
		{snap: snapOf(backend.StatusTranscriptionProcessing)},
		{snap: snapOf(backend.StatusCompleted)},
	}}

	var completions atomic.Int32
	m := NewManager(fetcher, 10*time.Millisecond, testLogger())
	defer m.StopAll()

	w, err := m.Watch("abc123", func() { completions.Add(1) })
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	select {
	case <-w.done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop after terminal status")
	}

	if got := fetcher.callCount(); got != 3 {
		t.Errorf("fetch count = %d, want 3", got)
	}
	if got := completions.Load(); got != 1 {
		t.Errorf("completion callbacks = %d, want exactly 1", got)
	}

	// No further poll may be issued after the terminal resolution.
	time.Sleep(50 * time.Millisecond)
	if got := fetcher.callCount(); got != 3 {
		t.Errorf("fetch count after terminal = %d, want 3", got)
	}

	snap := w.Snapshot()
	if snap.Status == nil || snap.Status.Status != backend.StatusCompleted {
		t.Errorf("final snapshot = %+v", snap)
	}
	if snap.Loading || snap.Fetching {
		t.Errorf("final snapshot should be settled, got %+v", snap)
	}
}

func TestWatcher_PollsAreSpacedByInterval(t *testing.T) {
	interval := 30 * time.Millisecond
	fetcher := &fakeFetcher{steps: []step{
		{snap: snapOf(backend.StatusUploaded)},
		{snap: snapOf(backend.StatusTranscriptionProcessing)},
		{snap: snapOf(backend.StatusCompleted)},
	}}

	m := NewManager(fetcher, interval, testLogger())
	defer m.StopAll()

	w, err := m.Watch("abc123", nil)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	<-w.done

	fetcher.mu.Lock()
	calls := append([]time.Time(nil), fetcher.calls...)
	fetcher.mu.Unlock()

	if len(calls) != 3 {
		t.Fatalf("fetch count = %d, want 3", len(calls))
	}
	for i := 1; i < len(calls); i++ {
		if gap := calls[i].Sub(calls[i-1]); gap < interval {
			t.Errorf("gap between poll %d and %d = %v, want >= %v", i-1, i, gap, interval)
		}
	}
}

func TestWatcher_Failed_NoCallback_NoFurtherPoll(t *testing.T) {
	fetcher := &fakeFetcher{steps: []step{
		{snap: snapOf(backend.StatusUploaded)},
		{snap: snapOf(backend.StatusFailed)},
	}}

	var completions atomic.Int32
	m := NewManager(fetcher, 10*time.Millisecond, testLogger())
	defer m.StopAll()

	w, err := m.Watch("abc123", func() { completions.Add(1) })
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	<-w.done

	if got := completions.Load(); got != 0 {
		t.Errorf("completion callbacks = %d, want 0 for Failed", got)
	}

	time.Sleep(50 * time.Millisecond)
	if got := fetcher.callCount(); got != 2 {
		t.Errorf("fetch count = %d, want 2", got)
	}
}

func TestWatcher_AbsentStatusKeepsPolling(t *testing.T) {
	fetcher := &fakeFetcher{steps: []step{
		{snap: &backend.MediaStatusSnapshot{MediaID: "abc123"}},
		{snap: nil},
		{snap: snapOf(backend.StatusCompleted)},
	}}

	m := NewManager(fetcher, 10*time.Millisecond, testLogger())
	defer m.StopAll()

	w, err := m.Watch("abc123", nil)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	<-w.done

	if got := fetcher.callCount(); got != 3 {
		t.Errorf("fetch count = %d, want 3 (absent status must re-poll)", got)
	}
}

func TestWatcher_FetchErrorRetainsStaleValueAndRetries(t *testing.T) {
	fetchErr := errors.New("connection refused")
	fetcher := &fakeFetcher{steps: []step{
		{snap: snapOf(backend.StatusUploaded)},
		{err: fetchErr},
		{snap: snapOf(backend.StatusCompleted)},
	}}

	var mu sync.Mutex
	var events []Snapshot

	m := NewManager(fetcher, 10*time.Millisecond, testLogger())
	defer m.StopAll()
	m.Subscribe(func(ev Event) {
		mu.Lock()
		events = append(events, ev.Snapshot)
		mu.Unlock()
	})

	w, err := m.Watch("abc123", nil)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	<-w.done

	if got := fetcher.callCount(); got != 3 {
		t.Fatalf("fetch count = %d, want 3 (failed poll must be retried)", got)
	}

	mu.Lock()
	defer mu.Unlock()
	sawStaleWithErr := false
	for _, s := range events {
		if s.Err != nil {
			if s.Status == nil || s.Status.Status != backend.StatusUploaded {
				t.Errorf("error snapshot lost the stale value: %+v", s)
			}
			if s.Loading {
				t.Error("error after a resolved value must not revert to loading")
			}
			sawStaleWithErr = true
		}
	}
	if !sawStaleWithErr {
		t.Error("expected an event carrying the fetch error")
	}
}

func TestWatcher_FirstFetchErrorEndsLoading(t *testing.T) {
	fetcher := &fakeFetcher{steps: []step{
		{err: errors.New("connection refused")},
		{snap: snapOf(backend.StatusCompleted)},
	}}

	m := NewManager(fetcher, 100*time.Millisecond, testLogger())
	defer m.StopAll()

	w, err := m.Watch("abc123", nil)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	// A rejected first fetch is still a resolution.
	waitFor(t, time.Second, func() bool { return w.Snapshot().Err != nil })
	snap := w.Snapshot()
	if snap.Loading {
		t.Errorf("loading after first resolution = true, want false: %+v", snap)
	}
	if snap.Status != nil {
		t.Errorf("no value has resolved yet, got %+v", snap.Status)
	}

	<-w.done
}

func TestWatcher_LoadingUntilFirstResolution(t *testing.T) {
	release := make(chan struct{})
	fetcher := &blockingFetcher{release: release}

	m := NewManager(fetcher, 10*time.Millisecond, testLogger())
	defer m.StopAll()

	w, err := m.Watch("abc123", nil)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	waitFor(t, time.Second, func() bool { return w.Snapshot().Fetching })
	snap := w.Snapshot()
	if !snap.Loading || snap.Status != nil {
		t.Errorf("pre-resolution snapshot = %+v, want loading with no value", snap)
	}

	close(release)
	<-w.done
}

// blockingFetcher parks until released, then resolves Completed. Cancellation
// unblocks it with the context error.
type blockingFetcher struct {
	release chan struct{}
	calls   atomic.Int32
}

func (f *blockingFetcher) GetMediaStatus(ctx context.Context, mediaID string) (*backend.MediaStatusSnapshot, error) {
	f.calls.Add(1)
	select {
	case <-f.release:
		return snapOf(backend.StatusCompleted), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestManager_Unwatch_DropsInFlightResponse(t *testing.T) {
	release := make(chan struct{})
	fetcher := &blockingFetcher{release: release}

	var events atomic.Int32
	m := NewManager(fetcher, 10*time.Millisecond, testLogger())
	defer m.StopAll()
	m.Subscribe(func(ev Event) {
		if ev.Snapshot.Status != nil {
			events.Add(1)
		}
	})

	if _, err := m.Watch("abc123", nil); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	waitFor(t, time.Second, func() bool { return fetcher.calls.Load() == 1 })

	m.Unwatch("abc123")
	close(release)

	time.Sleep(30 * time.Millisecond)
	if got := events.Load(); got != 0 {
		t.Errorf("resolved events after unwatch = %d, want 0", got)
	}
	if _, ok := m.Snapshot("abc123"); ok {
		t.Error("snapshot should be gone after unwatch")
	}
}

func TestManager_Watch_EmptyID(t *testing.T) {
	m := NewManager(&fakeFetcher{steps: []step{{snap: snapOf(backend.StatusCompleted)}}}, time.Millisecond, testLogger())
	defer m.StopAll()

	if _, err := m.Watch("", nil); !errors.Is(err, ErrMediaIDRequired) {
		t.Errorf("Watch(\"\") error = %v, want ErrMediaIDRequired", err)
	}
}

func TestManager_Watch_Idempotent(t *testing.T) {
	fetcher := &fakeFetcher{steps: []step{
		{snap: snapOf(backend.StatusUploaded)},
		{snap: snapOf(backend.StatusCompleted)},
	}}

	m := NewManager(fetcher, 10*time.Millisecond, testLogger())
	defer m.StopAll()

	w1, err := m.Watch("abc123", nil)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	w2, err := m.Watch("abc123", nil)
	if err != nil {
		t.Fatalf("second Watch() error = %v", err)
	}
	if w1 != w2 {
		t.Error("watching the same id twice must reuse the stream")
	}
	if m.Count() != 1 {
		t.Errorf("Count() = %d, want 1", m.Count())
	}

	<-w1.done
	if got := fetcher.callCount(); got != 2 {
		t.Errorf("fetch count = %d, want 2 (no duplicate stream)", got)
	}
}
