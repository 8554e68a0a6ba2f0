package domain

import "time"

// CaseStatus is the investigation state of a case. Transitions are not
// restricted to a fixed order: an operator may set any status from any
// other. CLOSED only ends the open-case uniqueness window; a new case
// may be opened for the same account afterwards.
type CaseStatus string

const (
	CaseOpen        CaseStatus = "OPEN"
	CaseUnderReview CaseStatus = "UNDER_REVIEW"
	CaseEscalated   CaseStatus = "ESCALATED"
	CaseClosed      CaseStatus = "CLOSED"
)

// ValidCaseStatus reports whether s is one of the known statuses.
func ValidCaseStatus(s CaseStatus) bool {
	switch s {
	case CaseOpen, CaseUnderReview, CaseEscalated, CaseClosed:
		return true
	}
	return false
}

// CaseAction is one operator action recorded on a case, in call order.
type CaseAction struct {
	Time   time.Time  `json:"time"`
	Status CaseStatus `json:"status"`
	Note   string     `json:"note,omitempty"`
}

// Case is an investigative case for one account. At most one non-CLOSED
// case exists per account at any time.
type Case struct {
	CaseID    string       `json:"caseId"`
	TenantID  string       `json:"tenantId,omitempty"`
	Account   string       `json:"account"`
	Status    CaseStatus   `json:"status"`
	RiskLevel RiskLevel    `json:"riskLevel"`
	CreatedAt time.Time    `json:"createdAt"`
	Actions   []CaseAction `json:"actions"`
}

// AuditEntry is one line of the global append-only audit log. Entries
// are never deleted or reordered; their order matches the serialization
// order of the mutations that produced them.
type AuditEntry struct {
	Time    time.Time `json:"time"`
	CaseID  string    `json:"caseId"`
	Message string    `json:"message"`
}
