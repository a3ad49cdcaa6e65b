package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rig-store/rig_ledger/internal/identity"
)

const pgLockNotAvailable = "55P03"

// PostgresLedger persists balances, deposit requests and the transaction log
// in PostgreSQL. Each mutation runs in one database transaction and locks
// balance rows in principal order.
type PostgresLedger struct {
	db   *pgxpool.Pool
	opts options
}

// NewPostgresLedger constructs a Postgres-backed ledger implementation.
func NewPostgresLedger(db *pgxpool.Pool, opts ...Option) *PostgresLedger {
	return &PostgresLedger{db: db, opts: buildOptions(opts)}
}

// Balance returns the stored balance, or zero for a principal never credited.
func (l *PostgresLedger) Balance(ctx context.Context, owner identity.Principal) (int64, error) {
	var balance int64
	err := l.db.QueryRow(ctx, `SELECT amount FROM balances WHERE principal = $1`, owner.String()).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return balance, nil
}

// CreateDeposit stores a new pending deposit request.
func (l *PostgresLedger) CreateDeposit(ctx context.Context, user identity.Principal, amount int64) (DepositRequest, error) {
	if amount <= 0 {
		return DepositRequest{}, ErrInvalidAmount
	}
	id := uuid.New()
	req := DepositRequest{
		ID:        id.String(),
		User:      user,
		Amount:    amount,
		Timestamp: l.opts.now(),
		Status:    DepositPending,
	}
	_, err := l.db.Exec(ctx, `INSERT INTO deposit_requests (id, principal, amount, status, created_at)
        VALUES ($1, $2, $3, $4, $5)`, id, user.String(), amount, string(req.Status), req.Timestamp)
	if err != nil {
		return DepositRequest{}, err
	}
	return req, nil
}

const depositColumns = `id, principal, amount, status, created_at`

// Deposit fetches a deposit request by identifier.
func (l *PostgresLedger) Deposit(ctx context.Context, id string) (DepositRequest, error) {
	depositID, err := uuid.Parse(id)
	if err != nil {
		return DepositRequest{}, ErrNotFound
	}
	row := l.db.QueryRow(ctx, `SELECT `+depositColumns+` FROM deposit_requests WHERE id = $1`, depositID)
	req, err := scanDeposit(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return DepositRequest{}, ErrNotFound
	}
	return req, err
}

// Deposits lists every deposit request in creation order.
func (l *PostgresLedger) Deposits(ctx context.Context) ([]DepositRequest, error) {
	rows, err := l.db.Query(ctx, `SELECT `+depositColumns+` FROM deposit_requests ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	return collectDeposits(rows)
}

// DepositsFor lists the deposit requests created by user in creation order.
func (l *PostgresLedger) DepositsFor(ctx context.Context, user identity.Principal) ([]DepositRequest, error) {
	rows, err := l.db.Query(ctx, `SELECT `+depositColumns+` FROM deposit_requests
        WHERE principal = $1 ORDER BY seq`, user.String())
	if err != nil {
		return nil, err
	}
	return collectDeposits(rows)
}

// ApproveDeposit marks a pending request approved, credits its user and logs
// a completed deposit transaction in one database transaction.
func (l *PostgresLedger) ApproveDeposit(ctx context.Context, id string) (SettlementResult, error) {
	return l.settle(ctx, id, true, "")
}

// RejectDeposit marks a pending request rejected and logs a rejected deposit
// transaction. Balances are untouched.
func (l *PostgresLedger) RejectDeposit(ctx context.Context, id, reason string) (SettlementResult, error) {
	return l.settle(ctx, id, false, reason)
}

func (l *PostgresLedger) settle(ctx context.Context, id string, approve bool, reason string) (SettlementResult, error) {
	depositID, err := uuid.Parse(id)
	if err != nil {
		return SettlementResult{}, ErrNotFound
	}

	tx, err := l.begin(ctx)
	if err != nil {
		return SettlementResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	row := tx.QueryRow(ctx, `SELECT `+depositColumns+` FROM deposit_requests WHERE id = $1 FOR UPDATE`, depositID)
	req, err := scanDeposit(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SettlementResult{}, ErrNotFound
		}
		return SettlementResult{}, mapLockErr(err)
	}
	if req.Status != DepositPending {
		return SettlementResult{}, ErrInvalidState
	}

	entry := Transaction{From: identity.System, To: req.User, Amount: req.Amount, Type: TypeDeposit}
	var balance int64
	if approve {
		if err := ensureBalances(ctx, tx, req.User); err != nil {
			return SettlementResult{}, err
		}
		current, err := lockBalance(ctx, tx, req.User)
		if err != nil {
			return SettlementResult{}, err
		}
		if balance, err = credit(current, req.Amount); err != nil {
			return SettlementResult{}, err
		}
		if err := writeBalance(ctx, tx, req.User, balance); err != nil {
			return SettlementResult{}, err
		}
		req.Status = DepositApproved
		entry.Status = Status(StatusCompleted)
	} else {
		if err := tx.QueryRow(ctx, `SELECT COALESCE((SELECT amount FROM balances WHERE principal = $1), 0)`,
			req.User.String()).Scan(&balance); err != nil {
			return SettlementResult{}, err
		}
		req.Status = DepositRejected
		entry.Status = Rejected(reason)
	}

	if _, err := tx.Exec(ctx, `UPDATE deposit_requests SET status = $1 WHERE id = $2`, string(req.Status), depositID); err != nil {
		return SettlementResult{}, err
	}
	if entry, err = l.appendTx(ctx, tx, entry); err != nil {
		return SettlementResult{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return SettlementResult{}, err
	}

	return SettlementResult{Request: req, Transaction: entry, Balance: balance}, nil
}

// Transfer debits from and credits to, logging an auto-completed internal
// transfer. Insufficient funds roll the whole transaction back.
func (l *PostgresLedger) Transfer(ctx context.Context, from, to identity.Principal, amount int64) (TransferResult, error) {
	if amount <= 0 {
		return TransferResult{}, ErrInvalidAmount
	}
	if from == to {
		return TransferResult{}, ErrSameAccount
	}

	tx, err := l.begin(ctx)
	if err != nil {
		return TransferResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := ensureBalances(ctx, tx, from, to); err != nil {
		return TransferResult{}, err
	}

	// Lock both rows in principal order.
	ordered := []identity.Principal{from, to}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })
	balances := make(map[identity.Principal]int64, 2)
	for _, p := range ordered {
		b, err := lockBalance(ctx, tx, p)
		if err != nil {
			return TransferResult{}, err
		}
		balances[p] = b
	}

	fromBalance, err := debit(balances[from], amount)
	if err != nil {
		return TransferResult{}, err
	}
	toBalance, err := credit(balances[to], amount)
	if err != nil {
		return TransferResult{}, err
	}
	if err := writeBalance(ctx, tx, from, fromBalance); err != nil {
		return TransferResult{}, err
	}
	if err := writeBalance(ctx, tx, to, toBalance); err != nil {
		return TransferResult{}, err
	}

	entry, err := l.appendTx(ctx, tx, Transaction{
		From:   from,
		To:     to,
		Amount: amount,
		Type:   TypeInternalTransfer,
		Status: Status(StatusAutoCompleted),
	})
	if err != nil {
		return TransferResult{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return TransferResult{}, err
	}

	return TransferResult{Transaction: entry, FromBalance: fromBalance, ToBalance: toBalance}, nil
}

const transactionColumns = `id, seq, from_principal, to_principal, amount, kind, status, reason, created_at`

// Transactions returns the full log in creation order.
func (l *PostgresLedger) Transactions(ctx context.Context) ([]Transaction, error) {
	rows, err := l.db.Query(ctx, `SELECT `+transactionColumns+` FROM transactions ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

// TransactionsFor returns the entries where owner is either side, in creation order.
func (l *PostgresLedger) TransactionsFor(ctx context.Context, owner identity.Principal) ([]Transaction, error) {
	rows, err := l.db.Query(ctx, `SELECT `+transactionColumns+` FROM transactions
        WHERE from_principal = $1 OR to_principal = $1 ORDER BY seq`, owner.String())
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

// Audit computes ledger-wide totals in a single repeatable-read snapshot.
func (l *PostgresLedger) Audit(ctx context.Context) (AuditReport, error) {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return AuditReport{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var report AuditReport
	if err := tx.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(amount), 0)::BIGINT, COUNT(*) FILTER (WHERE amount < 0)
        FROM balances`).Scan(&report.Accounts, &report.TotalBalance, &report.NegativeBalances); err != nil {
		return AuditReport{}, err
	}
	if err := tx.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(amount) FILTER (WHERE kind = $1 AND status = $2), 0)::BIGINT
        FROM transactions`, string(TypeDeposit), string(StatusCompleted)).Scan(&report.Transactions, &report.TotalDeposited); err != nil {
		return AuditReport{}, err
	}
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM deposit_requests WHERE status = $1`,
		string(DepositPending)).Scan(&report.PendingDeposits); err != nil {
		return AuditReport{}, err
	}
	return report, tx.Commit(ctx)
}

func (l *PostgresLedger) begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	ms := l.opts.lockTimeout.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	// SET does not accept bind parameters; ms is an integer.
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", ms)); err != nil {
		tx.Rollback(ctx) // nolint:errcheck
		return nil, err
	}
	return tx, nil
}

func (l *PostgresLedger) appendTx(ctx context.Context, tx pgx.Tx, entry Transaction) (Transaction, error) {
	id := uuid.New()
	if entry.ID != "" {
		parsed, err := uuid.Parse(entry.ID)
		if err != nil {
			return Transaction{}, fmt.Errorf("transaction id: %w", err)
		}
		id = parsed
	}
	entry.ID = id.String()
	if entry.Timestamp.IsZero() {
		entry.Timestamp = l.opts.now()
	}
	var reason *string
	if entry.Status.Kind == StatusRejected {
		reason = &entry.Status.Reason
	}
	err := tx.QueryRow(ctx, `INSERT INTO transactions (id, from_principal, to_principal, amount, kind, status, reason, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING seq`,
		id, entry.From.String(), entry.To.String(), entry.Amount, string(entry.Type),
		string(entry.Status.Kind), reason, entry.Timestamp).Scan(&entry.Sequence)
	if err != nil {
		return Transaction{}, err
	}
	return entry, nil
}

func ensureBalances(ctx context.Context, tx pgx.Tx, owners ...identity.Principal) error {
	sorted := append([]identity.Principal(nil), owners...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for _, p := range sorted {
		if _, err := tx.Exec(ctx, `INSERT INTO balances (principal, amount) VALUES ($1, 0)
            ON CONFLICT (principal) DO NOTHING`, p.String()); err != nil {
			return mapLockErr(err)
		}
	}
	return nil
}

func lockBalance(ctx context.Context, tx pgx.Tx, p identity.Principal) (int64, error) {
	var balance int64
	if err := tx.QueryRow(ctx, `SELECT amount FROM balances WHERE principal = $1 FOR UPDATE`, p.String()).Scan(&balance); err != nil {
		return 0, mapLockErr(err)
	}
	return balance, nil
}

func writeBalance(ctx context.Context, tx pgx.Tx, p identity.Principal, amount int64) error {
	if amount < 0 {
		return ErrInsufficientFunds
	}
	_, err := tx.Exec(ctx, `UPDATE balances SET amount = $1 WHERE principal = $2`, amount, p.String())
	return err
}

func mapLockErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgLockNotAvailable {
		return fmt.Errorf("%w: %s", ErrLockTimeout, pgErr.Message)
	}
	return err
}

func scanDeposit(row pgx.Row) (DepositRequest, error) {
	var (
		req       DepositRequest
		id        uuid.UUID
		principal string
		status    string
		createdAt time.Time
	)
	if err := row.Scan(&id, &principal, &req.Amount, &status, &createdAt); err != nil {
		return DepositRequest{}, err
	}
	req.ID = id.String()
	req.User = identity.Principal(principal)
	req.Status = DepositStatus(status)
	req.Timestamp = createdAt.UTC()
	return req, nil
}

func collectDeposits(rows pgx.Rows) ([]DepositRequest, error) {
	defer rows.Close()
	out := make([]DepositRequest, 0)
	for rows.Next() {
		req, err := scanDeposit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func collectTransactions(rows pgx.Rows) ([]Transaction, error) {
	defer rows.Close()
	out := make([]Transaction, 0)
	for rows.Next() {
		var (
			entry     Transaction
			id        uuid.UUID
			from, to  string
			kind      string
			status    string
			reason    *string
			createdAt time.Time
		)
		if err := rows.Scan(&id, &entry.Sequence, &from, &to, &entry.Amount, &kind, &status, &reason, &createdAt); err != nil {
			return nil, err
		}
		entry.ID = id.String()
		entry.From = identity.Principal(from)
		entry.To = identity.Principal(to)
		entry.Type = TransactionType(kind)
		entry.Status = Status(StatusKind(status))
		if reason != nil {
			entry.Status.Reason = *reason
		}
		entry.Timestamp = createdAt.UTC()
		out = append(out, entry)
	}
	return out, rows.Err()
}

var _ Ledger = (*PostgresLedger)(nil)
