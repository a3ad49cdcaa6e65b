package ledger

import "github.com/rig-store/rig_ledger/internal/identity"

// SeedBalance is a test helper that sets a balance directly when using the
// in-memory ledger. Nothing is appended to the transaction log.
func SeedBalance(l Ledger, owner identity.Principal, amount int64) {
	if mem, ok := l.(*inMemoryLedger); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.balances[owner] = amount
	}
}
