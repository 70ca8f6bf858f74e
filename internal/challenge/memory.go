package challenge

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend is a mutex-guarded in-memory challenge table with a periodic
// sweep removing expired entries, including those abandoned mid-flow.
type MemoryBackend struct {
	mu         sync.RWMutex
	challenges map[string]*Challenge
	stop       chan struct{}
	stopOnce   sync.Once
}

// NewMemoryBackend creates the backend and starts its sweep goroutine.
func NewMemoryBackend() *MemoryBackend {
	b := &MemoryBackend{
		challenges: make(map[string]*Challenge),
		stop:       make(chan struct{}),
	}
	go b.sweepLoop()
	return b
}

func (b *MemoryBackend) Put(_ context.Context, ch *Challenge, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.challenges[ch.ID] = ch
	return nil
}

func (b *MemoryBackend) Get(_ context.Context, id string) (*Challenge, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ch, ok := b.challenges[id]
	if !ok {
		return nil, ErrNotFound
	}
	return ch, nil
}

// Close stops the sweep goroutine.
func (b *MemoryBackend) Close() error {
	b.stopOnce.Do(func() { close(b.stop) })
	return nil
}

func (b *MemoryBackend) sweepLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
			b.sweep(time.Now())
		}
	}
}

func (b *MemoryBackend) sweep(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.challenges {
		if now.After(ch.ExpiresAt) {
			delete(b.challenges, id)
		}
	}
}
