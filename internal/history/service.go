package history

import (
	"context"

	"github.com/rig-store/rig_ledger/internal/identity"
	"github.com/rig-store/rig_ledger/internal/ledger"
)

// Service answers transaction log queries.
type Service struct {
	ids    *identity.Service
	ledger ledger.Ledger
}

// NewService builds a history service.
func NewService(ids *identity.Service, ledgerBackend ledger.Ledger) *Service {
	return &Service{ids: ids, ledger: ledgerBackend}
}

// For returns the transactions owner took part in, oldest first. Callers may
// read their own history; admins may read anyone's.
func (s *Service) For(ctx context.Context, caller, owner identity.Principal) ([]ledger.Transaction, error) {
	if err := s.ids.RequireSelfOrAdmin(ctx, caller, owner); err != nil {
		return nil, err
	}
	return s.ledger.TransactionsFor(ctx, owner)
}

// All returns the full log in creation order. Admin only.
func (s *Service) All(ctx context.Context, caller identity.Principal) ([]ledger.Transaction, error) {
	if err := s.ids.RequireAdmin(ctx, caller); err != nil {
		return nil, err
	}
	return s.ledger.Transactions(ctx)
}
