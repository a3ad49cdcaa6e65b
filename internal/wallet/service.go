package wallet

import (
	"context"
	"time"

	"github.com/rig-store/rig_ledger/internal/identity"
	"github.com/rig-store/rig_ledger/internal/ledger"
)

// Balance is a point-in-time view of a principal's funds.
type Balance struct {
	Owner  identity.Principal `json:"principal"`
	Amount int64              `json:"balance"`
	AsOf   time.Time          `json:"timestamp"`
}

// Service exposes balance queries backed by the ledger.
type Service struct {
	ids    *identity.Service
	ledger ledger.Ledger
}

// NewService builds a wallet service instance.
func NewService(ids *identity.Service, ledger ledger.Ledger) *Service {
	return &Service{ids: ids, ledger: ledger}
}

// Own returns the caller's balance. Principals that never received funds
// hold zero.
func (s *Service) Own(ctx context.Context, caller identity.Principal) (Balance, error) {
	if err := identity.RequireAuthenticated(caller); err != nil {
		return Balance{}, err
	}
	return s.balance(ctx, caller)
}

// Of returns owner's balance to owner itself or to an admin.
func (s *Service) Of(ctx context.Context, caller, owner identity.Principal) (Balance, error) {
	if err := s.ids.RequireSelfOrAdmin(ctx, caller, owner); err != nil {
		return Balance{}, err
	}
	return s.balance(ctx, owner)
}

func (s *Service) balance(ctx context.Context, owner identity.Principal) (Balance, error) {
	amount, err := s.ledger.Balance(ctx, owner)
	if err != nil {
		return Balance{}, err
	}
	return Balance{Owner: owner, Amount: amount, AsOf: time.Now().UTC()}, nil
}
