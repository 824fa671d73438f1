package cache

import (
	"testing"
	"time"
)

func TestStore_SetGet(t *testing.T) {
	s := New()

	s.Set("media/list", []string{"a", "b"}, 0)

	v, ok := s.Get("media/list")
	if !ok {
		t.Fatal("expected cache hit")
	}
	items, ok := v.([]string)
	if !ok || len(items) != 2 {
		t.Errorf("value = %#v", v)
	}
}

func TestStore_Get_Miss(t *testing.T) {
	s := New()
	if _, ok := s.Get("nope"); ok {
		t.Error("expected miss for absent key")
	}
}

func TestStore_TTLExpiry(t *testing.T) {
	s := New()
	current := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return current }

	s.Set("knowledge/search/q1", "answer", 5*time.Minute)

	if _, ok := s.Get("knowledge/search/q1"); !ok {
		t.Fatal("expected hit before expiry")
	}

	current = current.Add(5*time.Minute + time.Second)
	if _, ok := s.Get("knowledge/search/q1"); ok {
		t.Error("expected miss after expiry")
	}
}

func TestStore_InvalidatePrefix(t *testing.T) {
	s := New()
	s.Set("media/list", 1, 0)
	s.Set("media/transcribed?page=1&pageSize=10", 2, 0)
	s.Set("knowledge/search/q1", 3, 0)

	s.InvalidatePrefix("media/")

	if _, ok := s.Get("media/list"); ok {
		t.Error("media/list should be invalidated")
	}
	if _, ok := s.Get("media/transcribed?page=1&pageSize=10"); ok {
		t.Error("transcribed page should be invalidated")
	}
	if _, ok := s.Get("knowledge/search/q1"); !ok {
		t.Error("search entry should survive a media invalidation")
	}
}

func TestStore_Invalidate_ExactKey(t *testing.T) {
	s := New()
	s.Set("media/list", 1, 0)
	s.Set("media/listing", 2, 0)

	s.Invalidate("media/list")

	if _, ok := s.Get("media/list"); ok {
		t.Error("exact key should be removed")
	}
	if _, ok := s.Get("media/listing"); !ok {
		t.Error("other keys should remain")
	}
}

func TestKey_ParamsAreOrderIndependent(t *testing.T) {
	a := Key([]string{"media", "transcribed"}, map[string]string{"page": "1", "pageSize": "10"})
	b := Key([]string{"media", "transcribed"}, map[string]string{"pageSize": "10", "page": "1"})

	if a != b {
		t.Errorf("keys differ: %q vs %q", a, b)
	}
	if a != "media/transcribed?page=1&pageSize=10" {
		t.Errorf("key = %q", a)
	}
}

func TestKey_DistinctParamsDistinctKeys(t *testing.T) {
	a := Key([]string{"media", "transcribed"}, map[string]string{"page": "1", "pageSize": "10"})
	b := Key([]string{"media", "transcribed"}, map[string]string{"page": "2", "pageSize": "10"})

	if a == b {
		t.Error("different parameter sets must produce different keys")
	}
}
