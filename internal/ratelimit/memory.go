package ratelimit

import (
	"context"
	"sync"
	"time"
)

const sweepInterval = 5 * time.Minute

type window struct {
	count   int64
	resetAt time.Time
}

// MemoryStore keeps counters in process. Expired windows are swept periodically
// until Close is called.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

func NewMemoryStore() *MemoryStore {
	s := newMemoryStore(time.Now)
	go s.sweepLoop(sweepInterval)
	return s
}

func newMemoryStore(now func() time.Time) *MemoryStore {
	return &MemoryStore{windows: map[string]*window{}, now: now, stop: make(chan struct{})}
}

func (s *MemoryStore) Incr(_ context.Context, key string, ttl time.Duration) (int64, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	w, ok := s.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(ttl)}
		s.windows[key] = w
	}
	w.count++
	return w.count, w.resetAt, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (int64, time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.windows[key]
	if !ok || !s.now().Before(w.resetAt) {
		return 0, time.Time{}, false, nil
	}
	return w.count, w.resetAt, true, nil
}

func (s *MemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.windows, key)
	s.mu.Unlock()
	return nil
}

// Sweep drops expired windows and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for k, w := range s.windows {
		if !now.Before(w.resetAt) {
			delete(s.windows, k)
			n++
		}
	}
	return n
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}

func (s *MemoryStore) sweepLoop(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-t.C:
			s.Sweep()
		}
	}
}
