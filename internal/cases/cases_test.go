package cases

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/neuroaml/neuroaml/internal/domain"
)

const tenant = "tenant-001"

func TestCreateCase_Idempotent(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	first := m.CreateCase(ctx, tenant, "acct-a", domain.RiskHigh)
	second := m.CreateCase(ctx, tenant, "acct-a", domain.RiskMedium)

	if first.CaseID != second.CaseID {
		t.Errorf("open case must be returned, not duplicated: %s vs %s", first.CaseID, second.CaseID)
	}
	if first.Status != domain.CaseOpen {
		t.Errorf("new case must be OPEN, got %s", first.Status)
	}
	// The existing case keeps its original risk snapshot.
	if second.RiskLevel != domain.RiskHigh {
		t.Errorf("existing case risk snapshot must be preserved, got %s", second.RiskLevel)
	}
	if len(m.Cases(tenant)) != 1 {
		t.Errorf("expected exactly 1 case, got %d", len(m.Cases(tenant)))
	}
}

func TestCreateCase_NewCaseAfterClose(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	first := m.CreateCase(ctx, tenant, "acct-a", domain.RiskHigh)
	m.UpdateStatus(ctx, tenant, first.CaseID, domain.CaseClosed, "resolved")

	second := m.CreateCase(ctx, tenant, "acct-a", domain.RiskMedium)
	if second.CaseID == first.CaseID {
		t.Error("a closed case must not block a new case for the account")
	}
	if second.Status != domain.CaseOpen {
		t.Errorf("reopened account gets a fresh OPEN case, got %s", second.Status)
	}
}

func TestUpdateStatus_RecordsActionsAndAudit(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	c := m.CreateCase(ctx, tenant, "acct-a", domain.RiskHigh)
	m.UpdateStatus(ctx, tenant, c.CaseID, domain.CaseUnderReview, "analyst assigned")
	m.UpdateStatus(ctx, tenant, c.CaseID, domain.CaseEscalated, "pattern confirmed")
	m.UpdateStatus(ctx, tenant, c.CaseID, domain.CaseClosed, "")

	got := m.GetCase(tenant, c.CaseID)
	if got.Status != domain.CaseClosed {
		t.Errorf("expected CLOSED, got %s", got.Status)
	}
	if len(got.Actions) != 3 {
		t.Fatalf("expected 3 actions, got %d", len(got.Actions))
	}
	wantOrder := []domain.CaseStatus{domain.CaseUnderReview, domain.CaseEscalated, domain.CaseClosed}
	for i, action := range got.Actions {
		if action.Status != wantOrder[i] {
			t.Errorf("action %d: expected %s, got %s", i, wantOrder[i], action.Status)
		}
	}

	trail := m.AuditTrail(tenant, c.CaseID)
	if len(trail) != 4 {
		t.Fatalf("expected 4 audit entries (create + 3 updates), got %d", len(trail))
	}
	if !strings.Contains(trail[0].Message, "Case created") {
		t.Errorf("first entry must record creation, got %q", trail[0].Message)
	}
	created := 0
	for i, entry := range trail {
		if strings.Contains(entry.Message, "Case created") {
			created++
		}
		if i > 0 && entry.Time.Before(trail[i-1].Time) {
			t.Error("audit trail times must be non-decreasing")
		}
	}
	if created != 1 {
		t.Errorf("expected exactly one creation entry, got %d", created)
	}
	if !strings.Contains(trail[1].Message, string(domain.CaseUnderReview)) {
		t.Errorf("second entry must record the first status change, got %q", trail[1].Message)
	}
	if !strings.Contains(trail[1].Message, "analyst assigned") {
		t.Errorf("update note must appear in the audit message, got %q", trail[1].Message)
	}
}

func TestUpdateStatus_UnknownCaseIsNoOp(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	m.UpdateStatus(ctx, tenant, "CASE-DOESNOTEXIST", domain.CaseEscalated, "")

	if len(m.Cases(tenant)) != 0 {
		t.Error("no case should materialize")
	}
	if len(m.AuditTrail(tenant, "")) != 0 {
		t.Error("no audit entry should be appended for an unknown case")
	}
}

func TestUpdateStatus_ArbitraryTransitions(t *testing.T) {
	// The state machine is unconstrained: CLOSED straight from OPEN,
	// and back out of CLOSED by explicit operator action.
	m := NewManager()
	ctx := context.Background()

	c := m.CreateCase(ctx, tenant, "acct-a", domain.RiskMedium)
	m.UpdateStatus(ctx, tenant, c.CaseID, domain.CaseClosed, "fast close")
	m.UpdateStatus(ctx, tenant, c.CaseID, domain.CaseEscalated, "reopened by QA")

	got := m.GetCase(tenant, c.CaseID)
	if got.Status != domain.CaseEscalated {
		t.Errorf("expected ESCALATED, got %s", got.Status)
	}
}

func TestAuditTrail_GlobalAndFiltered(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	a := m.CreateCase(ctx, tenant, "acct-a", domain.RiskHigh)
	b := m.CreateCase(ctx, tenant, "acct-b", domain.RiskMedium)
	m.UpdateStatus(ctx, tenant, a.CaseID, domain.CaseUnderReview, "")

	full := m.AuditTrail(tenant, "")
	if len(full) != 3 {
		t.Fatalf("expected 3 entries in the global log, got %d", len(full))
	}
	// Insertion order: a created, b created, a updated.
	if full[0].CaseID != a.CaseID || full[1].CaseID != b.CaseID || full[2].CaseID != a.CaseID {
		t.Errorf("global log out of order: %v", []string{full[0].CaseID, full[1].CaseID, full[2].CaseID})
	}

	onlyB := m.AuditTrail(tenant, b.CaseID)
	if len(onlyB) != 1 || onlyB[0].CaseID != b.CaseID {
		t.Errorf("filtered trail wrong: %+v", onlyB)
	}
}

func TestCreateCase_ConcurrentSingleWinner(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	const callers = 32
	ids := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = m.CreateCase(ctx, tenant, "acct-a", domain.RiskHigh).CaseID
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("concurrent creates produced distinct cases: %s vs %s", ids[0], ids[i])
		}
	}
	if got := len(m.Cases(tenant)); got != 1 {
		t.Errorf("expected 1 case, got %d", got)
	}
	trail := m.AuditTrail(tenant, "")
	if len(trail) != 1 {
		t.Errorf("expected a single creation audit entry, got %d", len(trail))
	}
}

func TestManager_TenantIsolation(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	c := m.CreateCase(ctx, "tenant-a", "acct-a", domain.RiskHigh)

	if m.GetCase("tenant-b", c.CaseID) != nil {
		t.Error("case must not be visible to another tenant")
	}
	if len(m.Cases("tenant-b")) != 0 {
		t.Error("case list must be tenant scoped")
	}
	if len(m.AuditTrail("tenant-b", "")) != 0 {
		t.Error("audit trail must be tenant scoped")
	}

	// Cross-tenant update is ignored.
	m.UpdateStatus(ctx, "tenant-b", c.CaseID, domain.CaseClosed, "")
	if got := m.GetCase("tenant-a", c.CaseID); got.Status != domain.CaseOpen {
		t.Errorf("cross-tenant update must be a no-op, got %s", got.Status)
	}
}

func TestManager_Clock(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	m := NewManager(WithClock(func() time.Time { return fixed }))

	c := m.CreateCase(context.Background(), tenant, "acct-a", domain.RiskHigh)
	if !c.CreatedAt.Equal(fixed) {
		t.Errorf("expected %v, got %v", fixed, c.CreatedAt)
	}
}
