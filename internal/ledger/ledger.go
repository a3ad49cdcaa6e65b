package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/rig-store/rig_ledger/internal/identity"
)

var (
	// ErrInsufficientFunds occurs when the source balance cannot cover a debit.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidAmount reports a non-positive amount, or one that would
	// overflow the destination balance.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrNotFound indicates the referenced deposit request does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState indicates the entity is not in the lifecycle state the
	// operation requires, e.g. approving an already approved request.
	ErrInvalidState = errors.New("invalid state")

	// ErrSameAccount rejects postings whose source and destination coincide.
	ErrSameAccount = errors.New("source and destination must differ")

	// ErrLockTimeout is returned when a balance or request lock could not be
	// acquired within the configured wait.
	ErrLockTimeout = errors.New("ledger busy, lock wait exceeded")
)

// DefaultLockTimeout bounds how long an operation waits for its locks.
const DefaultLockTimeout = 2 * time.Second

// TransactionType classifies a balance-affecting event.
type TransactionType string

const (
	TypeDeposit          TransactionType = "deposit"
	TypeInternalTransfer TransactionType = "internalTransfer"
	TypePurchase         TransactionType = "purchase"
)

// Transaction is an append-only log entry. Everything but Status is
// immutable once appended. Sequence reflects creation order.
type Transaction struct {
	ID        string             `json:"id"`
	Sequence  int64              `json:"sequence"`
	From      identity.Principal `json:"from"`
	To        identity.Principal `json:"to"`
	Amount    int64              `json:"amount"`
	Type      TransactionType    `json:"transactionType"`
	Status    TransactionStatus  `json:"status"`
	Timestamp time.Time          `json:"timestamp"`
}

// Involves reports whether p is either side of the transaction.
func (t Transaction) Involves(p identity.Principal) bool {
	return t.From == p || t.To == p
}

// DepositStatus is the lifecycle state of a deposit request.
type DepositStatus string

const (
	DepositPending  DepositStatus = "pending"
	DepositApproved DepositStatus = "approved"
	DepositRejected DepositStatus = "rejected"
)

// DepositRequest is a user's claim of an off-ledger payment awaiting admin review.
type DepositRequest struct {
	ID        string             `json:"id"`
	User      identity.Principal `json:"user"`
	Amount    int64              `json:"amount"`
	Timestamp time.Time          `json:"timestamp"`
	Status    DepositStatus      `json:"status"`
}

// TransferResult captures the outcome of a wallet-to-wallet posting.
type TransferResult struct {
	Transaction Transaction
	FromBalance int64
	ToBalance   int64
}

// SettlementResult captures the outcome of approving or rejecting a deposit.
type SettlementResult struct {
	Request     DepositRequest
	Transaction Transaction
	Balance     int64
}

// AuditReport summarises ledger-wide invariants.
type AuditReport struct {
	Accounts         int
	Transactions     int
	TotalBalance     int64
	TotalDeposited   int64
	NegativeBalances int
	PendingDeposits  int
}

// Balanced reports whether every unit held was deposited and no balance is negative.
func (r AuditReport) Balanced() bool {
	return r.TotalBalance == r.TotalDeposited && r.NegativeBalances == 0
}

// Ledger is implemented by the storage backends. Every mutating method is a
// single atomic unit: it either applies all of its effects, including the
// transaction log append, or none of them.
type Ledger interface {
	Balance(ctx context.Context, owner identity.Principal) (int64, error)

	CreateDeposit(ctx context.Context, user identity.Principal, amount int64) (DepositRequest, error)
	Deposit(ctx context.Context, id string) (DepositRequest, error)
	Deposits(ctx context.Context) ([]DepositRequest, error)
	DepositsFor(ctx context.Context, user identity.Principal) ([]DepositRequest, error)
	ApproveDeposit(ctx context.Context, id string) (SettlementResult, error)
	RejectDeposit(ctx context.Context, id, reason string) (SettlementResult, error)

	Transfer(ctx context.Context, from, to identity.Principal, amount int64) (TransferResult, error)

	Transactions(ctx context.Context) ([]Transaction, error)
	TransactionsFor(ctx context.Context, owner identity.Principal) ([]Transaction, error)

	Audit(ctx context.Context) (AuditReport, error)
}

// Option configures a ledger backend.
type Option func(*options)

type options struct {
	lockTimeout time.Duration
	now         func() time.Time
}

// WithLockTimeout bounds lock acquisition for every mutation.
func WithLockTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.lockTimeout = d
		}
	}
}

// WithClock overrides the time source used to stamp requests and transactions.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		lockTimeout: DefaultLockTimeout,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
