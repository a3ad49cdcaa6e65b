package profile

import (
	"context"
	"sync"

	"github.com/rig-store/rig_ledger/internal/identity"
)

type memoryRepository struct {
	mu      sync.RWMutex
	storage map[identity.Principal]Profile
}

// NewMemoryRepository constructs an in-memory repository for development and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[identity.Principal]Profile)}
}

func (r *memoryRepository) Get(_ context.Context, owner identity.Principal) (Profile, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.storage[owner]
	return p, ok, nil
}

func (r *memoryRepository) Save(_ context.Context, owner identity.Principal, p Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.storage[owner] = p
	return nil
}
