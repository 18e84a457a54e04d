package genstore

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

type localEntry struct {
	gen       uint64
	updatedAt time.Time
}

// Local keeps generations in-process.
//
// Pruning a name resets it to 0. That is safe only while no cached entry
// stamped with the old generation can outlive the retention window, so keep
// retention well above the longest cache TTL.
type Local struct {
	mu   sync.RWMutex
	gens map[string]localEntry
	clk  clock.Clock

	ticker *clock.Ticker
	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

var _ GenStore = (*Local)(nil)

// NewLocal returns an in-process store. When both cleanupInterval and
// retention are positive a background loop prunes idle names.
// A nil clk means wall-clock time.
func NewLocal(cleanupInterval, retention time.Duration, clk clock.Clock) *Local {
	if clk == nil {
		clk = clock.New()
	}
	s := &Local{gens: make(map[string]localEntry), clk: clk}
	if cleanupInterval > 0 && retention > 0 {
		s.ticker = clk.Ticker(cleanupInterval)
		s.stopCh = make(chan struct{})
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				select {
				case <-s.ticker.C:
					s.Cleanup(retention)
				case <-s.stopCh:
					return
				}
			}
		}()
	}
	return s
}

func (s *Local) Snapshot(_ context.Context, name string) (uint64, error) {
	s.mu.RLock()
	e := s.gens[name]
	s.mu.RUnlock()
	return e.gen, nil
}

// SnapshotMany reads every name under one read lock.
func (s *Local) SnapshotMany(_ context.Context, names []string) (map[string]uint64, error) {
	out := make(map[string]uint64, len(names))
	s.mu.RLock()
	for _, n := range names {
		out[n] = s.gens[n].gen
	}
	s.mu.RUnlock()
	return out, nil
}

func (s *Local) Bump(_ context.Context, name string) (uint64, error) {
	now := s.clk.Now()
	s.mu.Lock()
	e := s.gens[name]
	e.gen++
	e.updatedAt = now
	s.gens[name] = e
	s.mu.Unlock()
	return e.gen, nil
}

func (s *Local) Cleanup(retention time.Duration) {
	if retention <= 0 {
		return
	}
	cutoff := s.clk.Now().Add(-retention)

	s.mu.Lock()
	for k, e := range s.gens {
		if e.updatedAt.Before(cutoff) {
			delete(s.gens, k)
		}
	}
	s.mu.Unlock()
}

// Len reports how many names are tracked.
func (s *Local) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.gens)
}

func (s *Local) Close(_ context.Context) error {
	s.once.Do(func() {
		if s.stopCh != nil {
			s.ticker.Stop()
			close(s.stopCh)
			s.wg.Wait()
		}
	})
	return nil
}
