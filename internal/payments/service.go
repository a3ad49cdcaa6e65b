package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rig-store/rig_ledger/internal/identity"
	"github.com/rig-store/rig_ledger/internal/ledger"
	"github.com/rig-store/rig_ledger/internal/notification"
)

var (
	// ErrSelfTransfer rejects transfers whose recipient is the caller.
	ErrSelfTransfer = errors.New("cannot transfer to yourself")
	// ErrInvalidRecipient rejects the anonymous and system principals as recipients.
	ErrInvalidRecipient = errors.New("recipient cannot hold funds")
)

// Service moves funds between principals.
type Service struct {
	ledger   ledger.Ledger
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewService constructs a payment service.
func NewService(ledger ledger.Ledger, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{ledger: ledger, notifier: notifier, logger: logger}
}

// TransferInput captures the data needed to move funds from the caller.
type TransferInput struct {
	Caller    identity.Principal
	Recipient identity.Principal
	Amount    int64
}

// Transfer debits the caller and credits the recipient as one atomic
// posting, logging an autoCompleted internalTransfer transaction.
func (s *Service) Transfer(ctx context.Context, input TransferInput) (ledger.TransferResult, error) {
	if err := identity.RequireAuthenticated(input.Caller); err != nil {
		return ledger.TransferResult{}, err
	}
	if input.Amount <= 0 {
		return ledger.TransferResult{}, ledger.ErrInvalidAmount
	}
	if input.Recipient.IsAnonymous() || input.Recipient == identity.System {
		return ledger.TransferResult{}, ErrInvalidRecipient
	}
	if input.Recipient == input.Caller {
		return ledger.TransferResult{}, ErrSelfTransfer
	}

	res, err := s.ledger.Transfer(ctx, input.Caller, input.Recipient, input.Amount)
	if err != nil {
		return ledger.TransferResult{}, err
	}

	s.logger.Info("transfer completed",
		slog.String("transaction_id", res.Transaction.ID),
		slog.String("from", input.Caller.String()),
		slog.String("to", input.Recipient.String()),
		slog.Int64("amount", input.Amount),
	)

	if s.notifier != nil {
		err := s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindTransferCompleted,
			Destination: input.Recipient.String(),
			Body:        fmt.Sprintf("You received %d from %s", input.Amount, input.Caller),
			Payload:     res.Transaction,
		})
		if err != nil {
			s.logger.Warn("notification failed", slog.String("transaction_id", res.Transaction.ID), slog.Any("error", err))
		}
	}

	return res, nil
}
