package identity

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu    sync.RWMutex
	roles map[Principal]Role
}

// NewMemoryRepository builds an in-memory role store for development and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{roles: make(map[Principal]Role)}
}

func (r *memoryRepository) Role(_ context.Context, p Principal) (Role, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	role, ok := r.roles[p]
	return role, ok, nil
}

func (r *memoryRepository) SetRole(_ context.Context, p Principal, role Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roles[p] = role
	return nil
}
