// Package cache provides caching for rendered previews and serialized point lists.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Config contains cache configuration.
type Config struct {
	PreviewSizeMB     int
	PreviewTTL        time.Duration
	DocumentCacheSize int
}

// Manager manages preview and document caches.
type Manager struct {
	previewCache  *bigcache.BigCache
	documentCache *lru.Cache[string, []byte]
}

// NewManager creates a new cache manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.PreviewTTL <= 0 {
		cfg.PreviewTTL = 10 * time.Minute
	}
	if cfg.DocumentCacheSize <= 0 {
		cfg.DocumentCacheSize = 256
	}

	previewConfig := bigcache.Config{
		Shards:             16,
		LifeWindow:         cfg.PreviewTTL,
		CleanWindow:        cfg.PreviewTTL / 2,
		MaxEntriesInWindow: 1024,
		MaxEntrySize:       64 * 1024,
		HardMaxCacheSize:   cfg.PreviewSizeMB,
		Verbose:            false,
	}

	previewCache, err := bigcache.New(context.Background(), previewConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create preview cache: %w", err)
	}

	documentCache, err := lru.New[string, []byte](cfg.DocumentCacheSize)
	if err != nil {
		previewCache.Close()
		return nil, fmt.Errorf("failed to create document cache: %w", err)
	}

	return &Manager{
		previewCache:  previewCache,
		documentCache: documentCache,
	}, nil
}

// GetPreview retrieves a rendered PNG.
func (m *Manager) GetPreview(key string) ([]byte, bool) {
	data, err := m.previewCache.Get(key)
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetPreview stores a rendered PNG.
func (m *Manager) SetPreview(key string, data []byte) error {
	return m.previewCache.Set(key, data)
}

// GetDocument retrieves a serialized point list.
func (m *Manager) GetDocument(key string) ([]byte, bool) {
	return m.documentCache.Get(key)
}

// SetDocument stores a serialized point list.
func (m *Manager) SetDocument(key string, data []byte) {
	m.documentCache.Add(key, data)
}

// RemoveDocument drops a serialized point list.
func (m *Manager) RemoveDocument(key string) {
	m.documentCache.Remove(key)
}

// RequestKey derives a cache key from a request kind and its parameters.
// Parameters are hashed through their JSON form, so struct field order is
// what makes keys stable.
func RequestKey(kind string, params any) (string, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("failed to hash %s request: %w", kind, err)
	}
	h := sha256.New()
	h.Write([]byte(kind))
	h.Write([]byte{0})
	h.Write(raw)
	return kind + ":" + hex.EncodeToString(h.Sum(nil))[:32], nil
}

// Stats returns cache statistics.
func (m *Manager) Stats() map[string]interface{} {
	st := m.previewCache.Stats()
	return map[string]interface{}{
		"preview_cache_len":    m.previewCache.Len(),
		"preview_cache_cap":    m.previewCache.Capacity(),
		"preview_cache_hits":   st.Hits,
		"preview_cache_misses": st.Misses,
		"document_cache_len":   m.documentCache.Len(),
	}
}

// Close closes the cache manager.
func (m *Manager) Close() error {
	return m.previewCache.Close()
}
