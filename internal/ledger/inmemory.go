package ledger

import (
	"context"
	"math"
	"sync"

	"github.com/google/uuid"

	"github.com/rig-store/rig_ledger/internal/identity"
)

// inMemoryLedger keeps all state in process memory. Per-key locks serialise
// read-validate-write on a balance or deposit request; mu only guards map
// and slice access, and every commit (balance writes plus the log append)
// happens inside one mu critical section so readers never see half of it.
type inMemoryLedger struct {
	opts  options
	locks *keyedLocks

	mu           sync.RWMutex
	balances     map[identity.Principal]int64
	deposits     map[string]DepositRequest
	depositOrder []string
	transactions []Transaction
}

// NewInMemory creates a concurrency-safe in-memory ledger used in development and tests.
func NewInMemory(opts ...Option) Ledger {
	return &inMemoryLedger{
		opts:     buildOptions(opts),
		locks:    newKeyedLocks(),
		balances: make(map[identity.Principal]int64),
		deposits: make(map[string]DepositRequest),
	}
}

func (l *inMemoryLedger) lock(ctx context.Context, keys ...string) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, l.opts.lockTimeout)
	defer cancel()
	return l.locks.acquire(ctx, keys...)
}

func (l *inMemoryLedger) Balance(_ context.Context, owner identity.Principal) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[owner], nil
}

func (l *inMemoryLedger) CreateDeposit(_ context.Context, user identity.Principal, amount int64) (DepositRequest, error) {
	if amount <= 0 {
		return DepositRequest{}, ErrInvalidAmount
	}
	req := DepositRequest{
		ID:        uuid.NewString(),
		User:      user,
		Amount:    amount,
		Timestamp: l.opts.now(),
		Status:    DepositPending,
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.deposits[req.ID] = req
	l.depositOrder = append(l.depositOrder, req.ID)
	return req, nil
}

func (l *inMemoryLedger) Deposit(_ context.Context, id string) (DepositRequest, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	req, ok := l.deposits[id]
	if !ok {
		return DepositRequest{}, ErrNotFound
	}
	return req, nil
}

func (l *inMemoryLedger) Deposits(_ context.Context) ([]DepositRequest, error) {
	return l.filterDeposits(func(DepositRequest) bool { return true }), nil
}

func (l *inMemoryLedger) DepositsFor(_ context.Context, user identity.Principal) ([]DepositRequest, error) {
	return l.filterDeposits(func(r DepositRequest) bool { return r.User == user }), nil
}

func (l *inMemoryLedger) filterDeposits(keep func(DepositRequest) bool) []DepositRequest {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]DepositRequest, 0, len(l.depositOrder))
	for _, id := range l.depositOrder {
		if req := l.deposits[id]; keep(req) {
			out = append(out, req)
		}
	}
	return out
}

func (l *inMemoryLedger) ApproveDeposit(ctx context.Context, id string) (SettlementResult, error) {
	return l.settle(ctx, id, true, "")
}

func (l *inMemoryLedger) RejectDeposit(ctx context.Context, id, reason string) (SettlementResult, error) {
	return l.settle(ctx, id, false, reason)
}

func (l *inMemoryLedger) settle(ctx context.Context, id string, approve bool, reason string) (SettlementResult, error) {
	// User is immutable, so it is safe to read before locking.
	req, err := l.Deposit(ctx, id)
	if err != nil {
		return SettlementResult{}, err
	}

	release, err := l.lock(ctx, depositKey(id), balanceKey(req.User))
	if err != nil {
		return SettlementResult{}, err
	}
	defer release()

	l.mu.RLock()
	req = l.deposits[id]
	balance := l.balances[req.User]
	l.mu.RUnlock()

	if req.Status != DepositPending {
		return SettlementResult{}, ErrInvalidState
	}

	tx := Transaction{
		From:   identity.System,
		To:     req.User,
		Amount: req.Amount,
		Type:   TypeDeposit,
	}
	if approve {
		if balance, err = credit(balance, req.Amount); err != nil {
			return SettlementResult{}, err
		}
		req.Status = DepositApproved
		tx.Status = Status(StatusCompleted)
	} else {
		req.Status = DepositRejected
		tx.Status = Rejected(reason)
	}

	l.mu.Lock()
	if approve {
		l.balances[req.User] = balance
	}
	// Key by the stored id: assigning through a caller's string would make
	// the map retain it, and request-scoped strings get overwritten.
	l.deposits[req.ID] = req
	tx = l.appendLocked(tx)
	l.mu.Unlock()

	return SettlementResult{Request: req, Transaction: tx, Balance: balance}, nil
}

func (l *inMemoryLedger) Transfer(ctx context.Context, from, to identity.Principal, amount int64) (TransferResult, error) {
	if amount <= 0 {
		return TransferResult{}, ErrInvalidAmount
	}
	if from == to {
		return TransferResult{}, ErrSameAccount
	}

	release, err := l.lock(ctx, balanceKey(from), balanceKey(to))
	if err != nil {
		return TransferResult{}, err
	}
	defer release()

	l.mu.RLock()
	fromBalance := l.balances[from]
	toBalance := l.balances[to]
	l.mu.RUnlock()

	if fromBalance, err = debit(fromBalance, amount); err != nil {
		return TransferResult{}, err
	}
	if toBalance, err = credit(toBalance, amount); err != nil {
		return TransferResult{}, err
	}

	l.mu.Lock()
	l.balances[from] = fromBalance
	l.balances[to] = toBalance
	tx := l.appendLocked(Transaction{
		From:   from,
		To:     to,
		Amount: amount,
		Type:   TypeInternalTransfer,
		Status: Status(StatusAutoCompleted),
	})
	l.mu.Unlock()

	return TransferResult{Transaction: tx, FromBalance: fromBalance, ToBalance: toBalance}, nil
}

// appendLocked stamps and appends tx to the log. Callers hold mu.
func (l *inMemoryLedger) appendLocked(tx Transaction) Transaction {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = l.opts.now()
	}
	tx.Sequence = int64(len(l.transactions)) + 1
	l.transactions = append(l.transactions, tx)
	return tx
}

func (l *inMemoryLedger) Transactions(_ context.Context) ([]Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Transaction, len(l.transactions))
	copy(out, l.transactions)
	return out, nil
}

func (l *inMemoryLedger) TransactionsFor(_ context.Context, owner identity.Principal) ([]Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Transaction, 0)
	for _, tx := range l.transactions {
		if tx.Involves(owner) {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (l *inMemoryLedger) Audit(_ context.Context) (AuditReport, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	report := AuditReport{Accounts: len(l.balances), Transactions: len(l.transactions)}
	for _, balance := range l.balances {
		report.TotalBalance += balance
		if balance < 0 {
			report.NegativeBalances++
		}
	}
	for _, tx := range l.transactions {
		if tx.Type == TypeDeposit && tx.Status.Kind == StatusCompleted {
			report.TotalDeposited += tx.Amount
		}
	}
	for _, req := range l.deposits {
		if req.Status == DepositPending {
			report.PendingDeposits++
		}
	}
	return report, nil
}

func credit(balance, amount int64) (int64, error) {
	if amount <= 0 || balance > math.MaxInt64-amount {
		return balance, ErrInvalidAmount
	}
	return balance + amount, nil
}

func debit(balance, amount int64) (int64, error) {
	if amount <= 0 {
		return balance, ErrInvalidAmount
	}
	if amount > balance {
		return balance, ErrInsufficientFunds
	}
	return balance - amount, nil
}
