// Package cases manages investigative case lifecycles and the global
// append-only audit trail.
package cases

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/neuroaml/neuroaml/internal/domain"
)

// Manager owns the only long-lived mutable state in the engine: the
// case map and the audit log. A single mutex guards both so that the
// duplicate-check-then-insert of CreateCase and every audit append are
// atomic; the audit log order always matches the serialization order
// of the mutations that produced each entry.
//
// The optional repository is a best-effort write-through: persistence
// failures are logged, never surfaced, so a flaky store cannot break
// the in-memory invariants.
type Manager struct {
	mu    sync.Mutex
	cases map[string]*domain.Case // by case ID
	audit []domain.AuditEntry

	repo domain.Repository
	now  func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithRepository enables write-through persistence of cases and audit
// entries.
func WithRepository(repo domain.Repository) Option {
	return func(m *Manager) { m.repo = repo }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates an empty case manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		cases: make(map[string]*domain.Case),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// newCaseID allocates a short human-quotable case id.
func newCaseID() string {
	hex := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
	return "CASE-" + hex[:8]
}

// CreateCase opens a case for the account, or returns the existing
// non-CLOSED case if one exists. At most one non-CLOSED case per
// account can exist; CLOSED cases do not count against that limit, so
// an account can be re-opened after closure under a fresh case id.
func (m *Manager) CreateCase(ctx context.Context, tenantID, account string, riskLevel domain.RiskLevel) *domain.Case {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.cases {
		if c.TenantID == tenantID && c.Account == account && c.Status != domain.CaseClosed {
			return cloneCase(c)
		}
	}

	now := m.now()
	c := &domain.Case{
		CaseID:    newCaseID(),
		TenantID:  tenantID,
		Account:   account,
		Status:    domain.CaseOpen,
		RiskLevel: riskLevel,
		CreatedAt: now,
	}
	m.cases[c.CaseID] = c
	m.appendAuditLocked(ctx, tenantID, c.CaseID,
		"Case created for "+account+" with risk level "+string(riskLevel))
	m.persistCaseLocked(ctx, tenantID, c)

	slog.Info("case created",
		"case_id", c.CaseID,
		"tenant_id", tenantID,
		"account", account,
		"risk_level", riskLevel,
	)
	return cloneCase(c)
}

// UpdateStatus sets a case's status and records the action and a
// matching audit entry. Any status may be set from any other; the
// state machine is deliberately unconstrained, operators own the
// workflow. An unknown case id is a logged no-op, not an error.
func (m *Manager) UpdateStatus(ctx context.Context, tenantID, caseID string, status domain.CaseStatus, note string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.cases[caseID]
	if !ok || c.TenantID != tenantID {
		slog.Debug("status update for unknown case ignored",
			"case_id", caseID,
			"tenant_id", tenantID,
		)
		return
	}

	now := m.now()
	c.Status = status
	c.Actions = append(c.Actions, domain.CaseAction{
		Time:   now,
		Status: status,
		Note:   note,
	})

	msg := "Status changed to " + string(status)
	if note != "" {
		msg += ". " + note
	}
	m.appendAuditLocked(ctx, tenantID, caseID, msg)
	m.persistCaseLocked(ctx, tenantID, c)

	slog.Info("case status updated",
		"case_id", caseID,
		"tenant_id", tenantID,
		"status", status,
	)
}

// GetCase returns a case by id, or nil when unknown.
func (m *Manager) GetCase(tenantID, caseID string) *domain.Case {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.cases[caseID]
	if !ok || c.TenantID != tenantID {
		return nil
	}
	return cloneCase(c)
}

// Cases returns all cases for a tenant, oldest first.
func (m *Manager) Cases(tenantID string) []*domain.Case {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*domain.Case, 0, len(m.cases))
	for _, c := range m.cases {
		if c.TenantID == tenantID {
			out = append(out, cloneCase(c))
		}
	}
	sortCases(out)
	return out
}

// AuditTrail returns the audit log in insertion order, optionally
// filtered to one case id (empty id means the full log).
func (m *Manager) AuditTrail(tenantID, caseID string) []domain.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.AuditEntry, 0, len(m.audit))
	for _, entry := range m.audit {
		if caseID != "" && entry.CaseID != caseID {
			continue
		}
		if c, ok := m.cases[entry.CaseID]; !ok || c.TenantID != tenantID {
			continue
		}
		out = append(out, entry)
	}
	return out
}

// appendAuditLocked appends to the audit log; callers hold m.mu.
func (m *Manager) appendAuditLocked(ctx context.Context, tenantID, caseID, message string) {
	entry := domain.AuditEntry{
		Time:    m.now(),
		CaseID:  caseID,
		Message: message,
	}
	m.audit = append(m.audit, entry)

	if m.repo != nil {
		if err := m.repo.AppendAudit(ctx, tenantID, &entry); err != nil {
			slog.Error("failed to persist audit entry",
				"case_id", caseID,
				"error", err,
			)
		}
	}
}

// persistCaseLocked writes a case through to the repository; callers
// hold m.mu.
func (m *Manager) persistCaseLocked(ctx context.Context, tenantID string, c *domain.Case) {
	if m.repo == nil {
		return
	}
	if err := m.repo.SaveCase(ctx, tenantID, c); err != nil {
		slog.Error("failed to persist case",
			"case_id", c.CaseID,
			"error", err,
		)
	}
}

func cloneCase(c *domain.Case) *domain.Case {
	clone := *c
	clone.Actions = make([]domain.CaseAction, len(c.Actions))
	copy(clone.Actions, c.Actions)
	return &clone
}

func sortCases(cs []*domain.Case) {
	// Oldest first; case id breaks ties from a shared clock.
	for i := 1; i < len(cs); i++ {
		for j := i; j > 0; j-- {
			a, b := cs[j-1], cs[j]
			if a.CreatedAt.Before(b.CreatedAt) || (a.CreatedAt.Equal(b.CreatedAt) && a.CaseID <= b.CaseID) {
				break
			}
			cs[j-1], cs[j] = b, a
		}
	}
}
