package api

import (
	"log"
	"sync"
	"time"

	"github.com/joaomamede/lowCostHCA/internal/runstore"
)

// RunManagerConfig contains configuration for the run manager.
type RunManagerConfig struct {
	SQLitePath    string // Path to SQLite database
	RetentionDays int    // Days to keep saved runs (default 30)
	CleanupPeriod time.Duration
}

// RunManager owns the run history store and expires old runs.
type RunManager struct {
	cfg      RunManagerConfig
	store    *runstore.Store
	wg       sync.WaitGroup
	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRunManager opens the run history store.
func NewRunManager(cfg RunManagerConfig) (*RunManager, error) {
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 30
	}
	if cfg.CleanupPeriod <= 0 {
		cfg.CleanupPeriod = 1 * time.Hour
	}

	store, err := runstore.NewStore(cfg.SQLitePath)
	if err != nil {
		return nil, err
	}

	return &RunManager{
		cfg:    cfg,
		store:  store,
		stopCh: make(chan struct{}),
	}, nil
}

// Store returns the underlying store for direct access.
func (rm *RunManager) Store() *runstore.Store {
	return rm.store
}

// Start expires stale runs left from earlier sessions and starts the
// cleanup ticker.
func (rm *RunManager) Start() {
	rm.cleanup()

	rm.wg.Add(1)
	go rm.cleaner()
}

// Stop stops the cleaner and closes the store.
func (rm *RunManager) Stop() {
	rm.stopOnce.Do(func() {
		close(rm.stopCh)
		rm.wg.Wait()
		rm.store.Close()
	})
}

func (rm *RunManager) cleaner() {
	defer rm.wg.Done()
	ticker := time.NewTicker(rm.cfg.CleanupPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-rm.stopCh:
			return
		case <-ticker.C:
			rm.cleanup()
		}
	}
}

func (rm *RunManager) cleanup() {
	deleted, err := rm.store.DeleteExpired(rm.cfg.RetentionDays)
	if err != nil {
		log.Printf("[RunManager] cleanup error: %v", err)
	} else if deleted > 0 {
		log.Printf("[RunManager] cleaned up %d expired runs", deleted)
	}
}
