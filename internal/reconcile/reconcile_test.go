package reconcile

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rig-store/rig_ledger/internal/identity"
	"github.com/rig-store/rig_ledger/internal/ledger"
	"github.com/rig-store/rig_ledger/internal/logging"
)

func TestJobRunBalanced(t *testing.T) {
	ctx := context.Background()
	led := ledger.NewInMemory()
	alice := identity.TestPrincipal("alice")
	req, _ := led.CreateDeposit(ctx, alice, 500)
	if _, err := led.ApproveDeposit(ctx, req.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	led.Transfer(ctx, alice, identity.TestPrincipal("bob"), 200)

	report, ok := New(led, logging.Discard()).Run(ctx)
	if !ok {
		t.Fatalf("expected balanced ledger, got %+v", report)
	}
	if report.TotalBalance != 500 || report.Transactions != 2 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestJobRunDetectsDrift(t *testing.T) {
	led := ledger.NewInMemory()
	// Funds that no deposit accounts for.
	ledger.SeedBalance(led, identity.TestPrincipal("alice"), 10)

	var buf bytes.Buffer
	job := New(led, logging.NewWithWriter(&buf, "info", "test"))
	if _, ok := job.Run(context.Background()); ok {
		t.Fatalf("expected drift to be reported")
	}
	if !strings.Contains(buf.String(), "ledger out of balance") {
		t.Fatalf("expected error log, got %s", buf.String())
	}
}

func TestJobStartRejectsBadSchedule(t *testing.T) {
	job := New(ledger.NewInMemory(), logging.Discard())
	if err := job.Start("not a schedule"); err == nil {
		t.Fatalf("expected schedule parse error")
	}
	if err := job.Start("@every 1h"); err != nil {
		t.Fatalf("start: %v", err)
	}
	<-job.Stop().Done()
}
