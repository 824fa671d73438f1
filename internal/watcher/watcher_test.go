package watcher

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []event
}

func (r *eventRecorder) record(path string, typ EventType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{path, typ})
}

func (r *eventRecorder) snapshot() []event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]event, len(r.events))
	copy(out, r.events)
	return out
}

func testWatcher(t *testing.T) (*PollWatcher, *eventRecorder, string) {
	t.Helper()
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := NewPollWatcher(logger, 10*time.Millisecond)

	rec := &eventRecorder{}
	w.OnChange(rec.record)
	return w, rec, dir
}

func waitForEvent(t *testing.T, rec *eventRecorder, path string, typ EventType) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, ev := range rec.snapshot() {
			if ev.path == path && ev.typ == typ {
				return
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("event (%s, %d) never fired; got %+v", path, typ, rec.snapshot())
}

func TestPollWatcher_NewFileFiresAfterSettling(t *testing.T) {
	w, rec, dir := testWatcher(t)

	if err := w.Watch(context.Background(), dir); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "standup.mp3")
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	waitForEvent(t, rec, path, EventCreate)
}

func TestPollWatcher_PreexistingFilesNeverFire(t *testing.T) {
	w, rec, dir := testWatcher(t)

	path := filepath.Join(dir, "old.mp4")
	if err := os.WriteFile(path, []byte("video"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if err := w.Watch(context.Background(), dir); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Stop()

	time.Sleep(100 * time.Millisecond)
	for _, ev := range rec.snapshot() {
		if ev.typ == EventCreate {
			t.Fatalf("pre-existing file fired a create event: %+v", ev)
		}
	}
}

func TestPollWatcher_IgnoresNonMediaFiles(t *testing.T) {
	w, rec, dir := testWatcher(t)

	if err := w.Watch(context.Background(), dir); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if evs := rec.snapshot(); len(evs) != 0 {
		t.Fatalf("non-media file produced events: %+v", evs)
	}
}

func TestPollWatcher_DeleteFires(t *testing.T) {
	w, rec, dir := testWatcher(t)

	path := filepath.Join(dir, "clip.wav")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if err := w.Watch(context.Background(), dir); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Stop()

	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	waitForEvent(t, rec, path, EventDelete)
}

func TestPollWatcher_RejectsNonDirectory(t *testing.T) {
	w, _, dir := testWatcher(t)

	path := filepath.Join(dir, "file.mp3")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if err := w.Watch(context.Background(), path); err == nil {
		t.Fatal("expected error watching a plain file")
	}
}

func TestIsMediaFile(t *testing.T) {
	cases := map[string]bool{
		"a.mp3":  true,
		"b.MP4":  true,
		"c.txt":  false,
		"d.flac": true,
		"noext":  false,
	}
	for name, want := range cases {
		if got := IsMediaFile(name); got != want {
			t.Errorf("IsMediaFile(%q) = %v, want %v", name, got, want)
		}
	}
}
