package funding

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rig-store/rig_ledger/internal/identity"
	"github.com/rig-store/rig_ledger/internal/ledger"
	"github.com/rig-store/rig_ledger/internal/notification"
)

// Service runs the deposit approval workflow: users file requests for
// off-ledger payments, admins approve (crediting the user) or reject them.
type Service struct {
	ids      *identity.Service
	ledger   ledger.Ledger
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewService builds the deposit workflow service.
func NewService(ids *identity.Service, ledgerBackend ledger.Ledger, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{ids: ids, ledger: ledgerBackend, notifier: notifier, logger: logger}
}

// Create files a pending deposit request for the caller. The balance is
// untouched until an admin approves it.
func (s *Service) Create(ctx context.Context, caller identity.Principal, amount int64) (ledger.DepositRequest, error) {
	if err := identity.RequireAuthenticated(caller); err != nil {
		return ledger.DepositRequest{}, err
	}
	if amount <= 0 {
		return ledger.DepositRequest{}, ledger.ErrInvalidAmount
	}
	req, err := s.ledger.CreateDeposit(ctx, caller, amount)
	if err != nil {
		return ledger.DepositRequest{}, err
	}
	s.logger.Info("deposit requested",
		slog.String("deposit_id", req.ID),
		slog.String("principal", caller.String()),
		slog.Int64("amount", amount),
	)
	return req, nil
}

// List returns every deposit request in creation order. Admin only.
func (s *Service) List(ctx context.Context, caller identity.Principal) ([]ledger.DepositRequest, error) {
	if err := s.ids.RequireAdmin(ctx, caller); err != nil {
		return nil, err
	}
	return s.ledger.Deposits(ctx)
}

// Mine returns the caller's own deposit requests in creation order.
func (s *Service) Mine(ctx context.Context, caller identity.Principal) ([]ledger.DepositRequest, error) {
	if err := identity.RequireAuthenticated(caller); err != nil {
		return nil, err
	}
	return s.ledger.DepositsFor(ctx, caller)
}

// Approve settles a pending request: the user is credited and a completed
// deposit transaction is logged in the same atomic step.
func (s *Service) Approve(ctx context.Context, caller identity.Principal, id string) (ledger.SettlementResult, error) {
	if err := s.ids.RequireAdmin(ctx, caller); err != nil {
		return ledger.SettlementResult{}, err
	}
	res, err := s.ledger.ApproveDeposit(ctx, id)
	if err != nil {
		return ledger.SettlementResult{}, err
	}

	s.logger.Info("deposit approved",
		slog.String("deposit_id", id),
		slog.String("admin", caller.String()),
		slog.String("transaction_id", res.Transaction.ID),
		slog.Int64("amount", res.Request.Amount),
	)
	s.notify(ctx, notification.Message{
		Kind:        notification.KindDepositCompleted,
		Destination: res.Request.User.String(),
		Body:        fmt.Sprintf("Your deposit of %d was approved", res.Request.Amount),
		Payload:     res.Transaction,
	})
	return res, nil
}

// Reject closes a pending request without any balance effect. The reason is
// kept on the logged transaction.
func (s *Service) Reject(ctx context.Context, caller identity.Principal, id, reason string) (ledger.SettlementResult, error) {
	if err := s.ids.RequireAdmin(ctx, caller); err != nil {
		return ledger.SettlementResult{}, err
	}
	res, err := s.ledger.RejectDeposit(ctx, id, reason)
	if err != nil {
		return ledger.SettlementResult{}, err
	}

	s.logger.Info("deposit rejected",
		slog.String("deposit_id", id),
		slog.String("admin", caller.String()),
		slog.String("reason", reason),
	)
	s.notify(ctx, notification.Message{
		Kind:        notification.KindDepositRejected,
		Destination: res.Request.User.String(),
		Body:        fmt.Sprintf("Your deposit of %d was rejected: %s", res.Request.Amount, reason),
		Payload:     res.Transaction,
	})
	return res, nil
}

// notify never fails the caller: the ledger has already committed.
func (s *Service) notify(ctx context.Context, msg notification.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.Warn("notification failed", slog.String("kind", msg.Kind), slog.Any("error", err))
	}
}
