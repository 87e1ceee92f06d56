package cache

import (
	"strings"
	"testing"
	"time"
)

func TestRequestKey(t *testing.T) {
	type params struct {
		Wells []int `json:"wells"`
		Seed  int64 `json:"seed"`
	}

	t.Run("stable", func(t *testing.T) {
		k1, err := RequestKey("plate", params{Wells: []int{1, 2}, Seed: 3})
		if err != nil {
			t.Fatalf("RequestKey: %v", err)
		}
		k2, _ := RequestKey("plate", params{Wells: []int{1, 2}, Seed: 3})
		if k1 != k2 {
			t.Fatalf("expected stable key, got %q vs %q", k1, k2)
		}
		if !strings.HasPrefix(k1, "plate:") {
			t.Fatalf("expected kind prefix, got %q", k1)
		}
	})

	t.Run("paramsMatter", func(t *testing.T) {
		k1, _ := RequestKey("plate", params{Wells: []int{1, 2}, Seed: 3})
		k2, _ := RequestKey("plate", params{Wells: []int{2, 1}, Seed: 3})
		if k1 == k2 {
			t.Fatalf("expected different keys for different visiting input")
		}
	})

	t.Run("kindMatters", func(t *testing.T) {
		k1, _ := RequestKey("plate", params{})
		k2, _ := RequestKey("tiling", params{})
		if k1 == k2 {
			t.Fatalf("expected different keys for different kinds")
		}
	})

	t.Run("unmarshalable", func(t *testing.T) {
		if _, err := RequestKey("bad", func() {}); err == nil {
			t.Fatalf("expected error")
		}
	})
}

func TestManager(t *testing.T) {
	m, err := NewManager(Config{PreviewSizeMB: 8, PreviewTTL: time.Minute, DocumentCacheSize: 2})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer m.Close()

	if _, ok := m.GetPreview("missing"); ok {
		t.Fatalf("expected miss")
	}
	if err := m.SetPreview("p", []byte("png")); err != nil {
		t.Fatalf("SetPreview: %v", err)
	}
	if got, ok := m.GetPreview("p"); !ok || string(got) != "png" {
		t.Fatalf("GetPreview = %q, %v", got, ok)
	}

	m.SetDocument("a", []byte("1"))
	m.SetDocument("b", []byte("2"))
	m.SetDocument("c", []byte("3"))
	if _, ok := m.GetDocument("a"); ok {
		t.Fatalf("expected oldest document to be evicted")
	}
	if got, ok := m.GetDocument("c"); !ok || string(got) != "3" {
		t.Fatalf("GetDocument = %q, %v", got, ok)
	}

	stats := m.Stats()
	if stats["document_cache_len"] != 2 {
		t.Fatalf("unexpected stats: %v", stats)
	}
}
