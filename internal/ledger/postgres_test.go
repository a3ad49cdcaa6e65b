package ledger

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rig-store/rig_ledger/internal/infra"
)

// newPostgresLedger connects to TEST_DATABASE_URL and wipes the ledger
// tables. The database is truncated, so never point it at real data.
func newPostgresLedger(t *testing.T, opts ...Option) (*PostgresLedger, *pgxpool.Pool) {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := infra.NewPostgresPool(ctx, url, "ledger-test")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := infra.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE roles, profiles, balances, deposit_requests, transactions RESTART IDENTITY`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return NewPostgresLedger(pool, opts...), pool
}

func fund(t *testing.T, l Ledger, amount int64) {
	t.Helper()
	ctx := context.Background()
	req, err := l.CreateDeposit(ctx, alice, amount)
	if err != nil {
		t.Fatalf("create deposit: %v", err)
	}
	if _, err := l.ApproveDeposit(ctx, req.ID); err != nil {
		t.Fatalf("approve deposit: %v", err)
	}
}

func TestPostgresLedger_SettleOnce(t *testing.T) {
	l, _ := newPostgresLedger(t)
	ctx := context.Background()

	req, err := l.CreateDeposit(ctx, alice, 300)
	if err != nil {
		t.Fatalf("create deposit: %v", err)
	}
	if _, err := l.RejectDeposit(ctx, req.ID, "unknown sender"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := l.ApproveDeposit(ctx, req.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if balance, _ := l.Balance(ctx, alice); balance != 0 {
		t.Fatalf("rejected deposit must not credit, got %d", balance)
	}
	if _, err := l.ApproveDeposit(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}
	if _, err := l.ApproveDeposit(ctx, "not-a-uuid"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for malformed id, got %v", err)
	}

	txs, err := l.Transactions(ctx)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(txs) != 1 || txs[0].Status.Kind != StatusRejected || txs[0].Status.Reason != "unknown sender" {
		t.Fatalf("unexpected log %+v", txs)
	}
}

func TestPostgresLedger_InsufficientFundsRollsBack(t *testing.T) {
	l, _ := newPostgresLedger(t)
	ctx := context.Background()
	fund(t, l, 100)

	if _, err := l.Transfer(ctx, alice, bob, 101); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if balance, _ := l.Balance(ctx, alice); balance != 100 {
		t.Fatalf("expected alice untouched at 100, got %d", balance)
	}
	if balance, _ := l.Balance(ctx, bob); balance != 0 {
		t.Fatalf("expected bob untouched at 0, got %d", balance)
	}
	if txs, _ := l.Transactions(ctx); len(txs) != 1 {
		t.Fatalf("failed transfer must not be logged, got %d entries", len(txs))
	}

	if _, err := l.Transfer(ctx, alice, bob, 100); err != nil {
		t.Fatalf("exact balance transfer: %v", err)
	}
	if balance, _ := l.Balance(ctx, alice); balance != 0 {
		t.Fatalf("expected alice at 0, got %d", balance)
	}
}

func TestPostgresLedger_CrossingTransfers(t *testing.T) {
	l, _ := newPostgresLedger(t, WithLockTimeout(5*time.Second))
	ctx := context.Background()
	fund(t, l, 1_000)
	if _, err := l.Transfer(ctx, alice, bob, 500); err != nil {
		t.Fatalf("seed bob: %v", err)
	}

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, 2*workers)
	for i := 0; i < workers; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := l.Transfer(ctx, alice, bob, 7); err != nil && !errors.Is(err, ErrInsufficientFunds) {
				errs <- err
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := l.Transfer(ctx, bob, alice, 5); err != nil && !errors.Is(err, ErrInsufficientFunds) {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("crossing transfer failed: %v", err)
	}

	a, _ := l.Balance(ctx, alice)
	b, _ := l.Balance(ctx, bob)
	if a+b != 1_000 || a < 0 || b < 0 {
		t.Fatalf("balances not conserved: alice=%d bob=%d", a, b)
	}
	report, err := l.Audit(ctx)
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if report.TotalBalance != report.TotalDeposited {
		t.Fatalf("audit out of balance %+v", report)
	}
}

func TestPostgresLedger_LockTimeout(t *testing.T) {
	l, pool := newPostgresLedger(t, WithLockTimeout(100*time.Millisecond))
	ctx := context.Background()
	fund(t, l, 50)

	holder, err := pool.Begin(ctx)
	if err != nil {
		t.Fatalf("begin holder: %v", err)
	}
	defer holder.Rollback(ctx) // nolint:errcheck
	if _, err := holder.Exec(ctx, `SELECT amount FROM balances WHERE principal = $1 FOR UPDATE`, alice.String()); err != nil {
		t.Fatalf("lock row: %v", err)
	}

	if _, err := l.Transfer(ctx, alice, bob, 10); !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("expected ErrLockTimeout, got %v", err)
	}
	if err := holder.Rollback(ctx); err != nil {
		t.Fatalf("release holder: %v", err)
	}

	if balance, _ := l.Balance(ctx, alice); balance != 50 {
		t.Fatalf("timed out transfer must not debit, got %d", balance)
	}
	if txs, _ := l.Transactions(ctx); len(txs) != 1 {
		t.Fatalf("timed out transfer must not be logged, got %d entries", len(txs))
	}
	if _, err := l.Transfer(ctx, alice, bob, 10); err != nil {
		t.Fatalf("transfer after release: %v", err)
	}
}
