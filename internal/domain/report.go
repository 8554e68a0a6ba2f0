package domain

// SARReport is the structured Suspicious Activity Report payload the
// engine assembles for a case. An external formatter turns it into a
// downloadable document; the serialization format is not this module's
// concern.
type SARReport struct {
	ReportType        string            `json:"reportType"`
	GeneratedAt       string            `json:"generatedAt"`
	CaseID            string            `json:"caseId"`
	SubjectAccount    string            `json:"subjectAccount"`
	RiskLevel         RiskLevel         `json:"riskLevel"`
	CaseStatus        CaseStatus        `json:"caseStatus"`
	Summary           string            `json:"summary"`
	Evidence          []string          `json:"evidence"`
	FraudTypologies   []TypologyFinding `json:"fraudTypologies"`
	RiskForecast      Forecast          `json:"riskForecast"`
	ComplianceMapping []string          `json:"complianceMapping"`
	RecommendedAction string            `json:"recommendedAction"`
}
