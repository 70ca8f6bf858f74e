package token

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend is a mutex-guarded in-memory token table. Expiry is enforced
// lazily on read by the registry; the periodic sweep bounds memory.
type MemoryBackend struct {
	mu       sync.RWMutex
	tokens   map[string]*Token
	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemoryBackend creates the backend and starts its sweep goroutine.
func NewMemoryBackend() *MemoryBackend {
	b := &MemoryBackend{
		tokens: make(map[string]*Token),
		stop:   make(chan struct{}),
	}
	go b.sweepLoop()
	return b
}

func (b *MemoryBackend) Put(_ context.Context, key string, tok *Token, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens[key] = tok
	return nil
}

func (b *MemoryBackend) Get(_ context.Context, key string) (*Token, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	tok, ok := b.tokens[key]
	if !ok {
		return nil, ErrNotFound
	}
	return tok, nil
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
			b.sweep(time.Now().Unix())
		}
	}
}

func (b *MemoryBackend) sweep(now int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for key, tok := range b.tokens {
		if now >= tok.ExpiresAt {
			delete(b.tokens, key)
		}
	}
}
