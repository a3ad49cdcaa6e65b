package funding

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rig-store/rig_ledger/internal/identity"
	"github.com/rig-store/rig_ledger/internal/ledger"
	"github.com/rig-store/rig_ledger/internal/logging"
	"github.com/rig-store/rig_ledger/internal/notification"
)

type recordingNotifier struct {
	mu       sync.Mutex
	messages []notification.Message
	err      error
}

func (r *recordingNotifier) Send(_ context.Context, msg notification.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return r.err
}

var (
	admin = identity.TestPrincipal("admin")
	alice = identity.TestPrincipal("alice")
)

func newTestService(t *testing.T) (*Service, ledger.Ledger, *recordingNotifier) {
	t.Helper()
	ids := identity.NewService(identity.NewMemoryRepository(), logging.Discard())
	if err := ids.Bootstrap(context.Background(), []string{admin.String()}); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	led := ledger.NewInMemory()
	notifier := &recordingNotifier{}
	return NewService(ids, led, notifier, logging.Discard()), led, notifier
}

func TestServiceCreateListsPendingRequest(t *testing.T) {
	svc, led, _ := newTestService(t)
	ctx := context.Background()

	req, err := svc.Create(ctx, alice, 1_000)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	all, err := svc.List(ctx, admin)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 || all[0].ID != req.ID || all[0].Status != ledger.DepositPending || all[0].Amount != 1_000 {
		t.Fatalf("unexpected deposits %+v", all)
	}
	if balance, _ := led.Balance(ctx, alice); balance != 0 {
		t.Fatalf("request must not credit, got %d", balance)
	}

	mine, err := svc.Mine(ctx, alice)
	if err != nil || len(mine) != 1 {
		t.Fatalf("expected one own request, got %d (%v)", len(mine), err)
	}
}

func TestServiceCreateValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, identity.Anonymous, 10); !errors.Is(err, identity.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.Create(ctx, alice, 0); !errors.Is(err, ledger.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := svc.List(ctx, alice); !errors.Is(err, identity.ErrUnauthorized) {
		t.Fatalf("non-admin list: expected ErrUnauthorized, got %v", err)
	}
}

func TestServiceApprove(t *testing.T) {
	svc, led, notifier := newTestService(t)
	ctx := context.Background()
	req, _ := svc.Create(ctx, alice, 750)

	if _, err := svc.Approve(ctx, alice, req.ID); !errors.Is(err, identity.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for self approval, got %v", err)
	}

	res, err := svc.Approve(ctx, admin, req.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if res.Balance != 750 {
		t.Fatalf("expected balance 750, got %d", res.Balance)
	}

	txs, _ := led.TransactionsFor(ctx, alice)
	if len(txs) != 1 || txs[0].Type != ledger.TypeDeposit || txs[0].Status.Kind != ledger.StatusCompleted || txs[0].Amount != 750 {
		t.Fatalf("unexpected transactions %+v", txs)
	}

	if _, err := svc.Approve(ctx, admin, req.ID); !errors.Is(err, ledger.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if _, err := svc.Approve(ctx, admin, "missing"); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if len(notifier.messages) != 1 || notifier.messages[0].Kind != notification.KindDepositCompleted {
		t.Fatalf("expected one completion event, got %+v", notifier.messages)
	}
}

func TestServiceReject(t *testing.T) {
	svc, led, notifier := newTestService(t)
	ctx := context.Background()
	req, _ := svc.Create(ctx, alice, 300)

	res, err := svc.Reject(ctx, admin, req.ID, "payment not received")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if res.Transaction.Status != ledger.Rejected("payment not received") {
		t.Fatalf("unexpected status %v", res.Transaction.Status)
	}
	if balance, _ := led.Balance(ctx, alice); balance != 0 {
		t.Fatalf("rejection must not credit, got %d", balance)
	}
	if _, err := svc.Approve(ctx, admin, req.ID); !errors.Is(err, ledger.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState after rejection, got %v", err)
	}
	if len(notifier.messages) != 1 || notifier.messages[0].Kind != notification.KindDepositRejected {
		t.Fatalf("expected one rejection event, got %+v", notifier.messages)
	}
}

func TestServiceApproveSurvivesNotifierFailure(t *testing.T) {
	svc, led, notifier := newTestService(t)
	notifier.err = errors.New("broker down")
	ctx := context.Background()
	req, _ := svc.Create(ctx, alice, 20)

	if _, err := svc.Approve(ctx, admin, req.ID); err != nil {
		t.Fatalf("approve must not fail on notifier error: %v", err)
	}
	if balance, _ := led.Balance(ctx, alice); balance != 20 {
		t.Fatalf("expected balance 20, got %d", balance)
	}
}
