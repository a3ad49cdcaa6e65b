package notification

import (
	"context"
	"log/slog"
)

const (
	// KindDepositCompleted is emitted after an approved deposit is credited.
	KindDepositCompleted = "transaction.deposit.completed"
	// KindDepositRejected is emitted after an admin rejects a deposit request.
	KindDepositRejected = "transaction.deposit.rejected"
	// KindTransferCompleted is emitted after an internal transfer settles.
	KindTransferCompleted = "transaction.internalTransfer.autoCompleted"
)

// Message describes a notification payload. Kind doubles as the routing key
// on the broker.
type Message struct {
	Kind        string `json:"kind"`
	Destination string `json:"destination"`
	Body        string `json:"body"`
	Payload     any    `json:"payload,omitempty"`
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the logger. It is the fallback when
// no broker is configured.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "kind", message.Kind, "destination", message.Destination, "body", message.Body)
	return nil
}
