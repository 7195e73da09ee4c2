package service

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/rolegate/portal-client/internal/core/domain"
	"github.com/rolegate/portal-client/internal/core/ports"
)

// MemoryPending is a process-local PendingRegistry.
type MemoryPending struct {
	mu   sync.Mutex
	held map[string]struct{}
}

var _ ports.PendingRegistry = (*MemoryPending)(nil)

func NewMemoryPending() *MemoryPending {
	return &MemoryPending{held: make(map[string]struct{})}
}

func (p *MemoryPending) Acquire(_ context.Context, key string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.held[key]; ok {
		return false, nil
	}
	p.held[key] = struct{}{}
	return true, nil
}

func (p *MemoryPending) Release(_ context.Context, key string) error {
	p.mu.Lock()
	delete(p.held, key)
	p.mu.Unlock()
	return nil
}

// Held reports whether key is currently marked.
func (p *MemoryPending) Held(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.held[key]
	return ok
}

// markPending acquires key or returns domain.ErrPending. When the registry
// itself fails the action proceeds unguarded.
func markPending(ctx context.Context, reg ports.PendingRegistry, key string, log zerolog.Logger) (func(), error) {
	ok, err := reg.Acquire(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("pending registry unavailable, proceeding")
		return func() {}, nil
	}
	if !ok {
		return nil, domain.ErrPending
	}
	return func() {
		if err := reg.Release(context.WithoutCancel(ctx), key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("release pending marker")
		}
	}, nil
}
