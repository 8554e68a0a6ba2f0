package domain

import "context"

// Signal is a per-account binary detection flag.
type Signal string

const (
	SignalLow  Signal = "LOW"
	SignalHigh Signal = "HIGH"
)

// RiskLevel is the three-level fused classification.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// BehaviorProfile is the per-account statistical summary of sent transactions.
// Accounts that never send are absent from the profile map.
type BehaviorProfile struct {
	TransactionCount int     `json:"transactionCount"`
	AverageAmount    float64 `json:"averageAmount"`
	MaxAmount        float64 `json:"maxAmount"`
	MinAmount        float64 `json:"minAmount"`
}

// RiskAssessment is the fused per-account verdict.
// Score is the sum of fixed weighted signal indicators, so it is
// monotonically non-decreasing in the number of HIGH signals.
type RiskAssessment struct {
	Account   string    `json:"account"`
	RiskScore float64   `json:"riskScore"`
	FinalRisk RiskLevel `json:"finalRisk"`
}

// RiskHistorySample is one point in an account's append-only score history.
// Insertion order is chronological order; samples are never reordered.
type RiskHistorySample struct {
	Timestamp int64   `json:"timestamp"` // unix seconds
	Score     float64 `json:"score"`
}

// Forecast is the short-horizon risk projection for one account.
// Score is nil when there is not enough history.
type Forecast struct {
	Score          *float64 `json:"forecastScore"`
	Level          string   `json:"forecastLevel"`
	Interpretation string   `json:"interpretation"`
}

// ForecastInsufficient is the sentinel level for accounts with <2 samples.
const ForecastInsufficient = "INSUFFICIENT DATA"

// TypologyFinding names a laundering pattern matched for an account.
type TypologyFinding struct {
	Type          string `json:"type"`
	Justification string `json:"justification"`
}

// RiskLookup exposes the continuously updated live risk estimate per
// account (risk drift). It is owned by the drift service, not by the
// per-run detectors, and is distinct from the static RiskAssessment.
type RiskLookup interface {
	// CurrentRisk returns the live risk in [0,1]; 0 for unknown accounts.
	CurrentRisk(ctx context.Context, tenantID, account string) (float64, error)
}

// AccountReport bundles the per-account pipeline outputs returned to callers.
type AccountReport struct {
	Assessment  RiskAssessment    `json:"assessment"`
	Explanation string            `json:"explanation"`
	Typologies  []TypologyFinding `json:"typologies,omitempty"`
	Signals     SignalSet         `json:"signals"`
}

// SignalSet holds the three detector flags for one account.
type SignalSet struct {
	Behavioral Signal `json:"behavioral"`
	Graph      Signal `json:"graph"`
	Temporal   Signal `json:"temporal"`
}
