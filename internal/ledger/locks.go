package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rig-store/rig_ledger/internal/identity"
)

// keyedLocks hands out one mutex per key. Multi-key acquisitions always take
// keys in sorted order, so two postings crossing the same pair of balances
// cannot deadlock.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]*keyLock)}
}

func balanceKey(p identity.Principal) string { return "balance:" + p.String() }
func depositKey(id string) string          { return "deposit:" + id }

// acquire blocks until every key is held or ctx is done. The returned
// function releases all of them.
func (k *keyedLocks) acquire(ctx context.Context, keys ...string) (func(), error) {
	keys = sortedUnique(keys)
	entries := k.ref(keys)

	for i, e := range entries {
		select {
		case e.ch <- struct{}{}:
		case <-ctx.Done():
			for _, held := range entries[:i] {
				<-held.ch
			}
			k.unref(keys)
			return nil, fmt.Errorf("%w: %v", ErrLockTimeout, ctx.Err())
		}
	}

	return func() {
		for i := len(entries) - 1; i >= 0; i-- {
			<-entries[i].ch
		}
		k.unref(keys)
	}, nil
}

func (k *keyedLocks) ref(keys []string) []*keyLock {
	k.mu.Lock()
	defer k.mu.Unlock()
	entries := make([]*keyLock, len(keys))
	for i, key := range keys {
		e, ok := k.locks[key]
		if !ok {
			e = &keyLock{ch: make(chan struct{}, 1)}
			k.locks[key] = e
		}
		e.refs++
		entries[i] = e
	}
	return entries
}

func (k *keyedLocks) unref(keys []string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, key := range keys {
		e := k.locks[key]
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
	}
}

// size reports how many keys are currently tracked.
func (k *keyedLocks) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

func sortedUnique(keys []string) []string {
	out := append([]string(nil), keys...)
	sort.Strings(out)
	n := 0
	for i, key := range out {
		if i > 0 && key == out[n-1] {
			continue
		}
		out[n] = key
		n++
	}
	return out[:n]
}
