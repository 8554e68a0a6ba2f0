// Package sar assembles Suspicious Activity Report payloads for cases.
// The payload is a structured record; rendering it into a regulator
// document is an external formatting concern.
package sar

import (
	"time"

	"github.com/neuroaml/neuroaml/internal/domain"
)

const reportType = "Suspicious Activity Report (SAR)"

const summary = "Suspicious financial activity detected through " +
	"behavioral, network, and temporal analysis."

const (
	actionHighRisk = "Immediate regulatory review and enhanced monitoring"
	actionDefault  = "Continued monitoring and due diligence"
)

// Assemble builds the SAR payload for a case from the evidence the
// pipeline produced for the subject account.
func Assemble(c *domain.Case, evidence []string, typologies []domain.TypologyFinding, fc domain.Forecast, now time.Time) *domain.SARReport {
	action := actionDefault
	if c.RiskLevel == domain.RiskHigh {
		action = actionHighRisk
	}

	return &domain.SARReport{
		ReportType:        reportType,
		GeneratedAt:       now.UTC().Format("2006-01-02 15:04:05"),
		CaseID:            c.CaseID,
		SubjectAccount:    c.Account,
		RiskLevel:         c.RiskLevel,
		CaseStatus:        c.Status,
		Summary:           summary,
		Evidence:          evidence,
		FraudTypologies:   typologies,
		RiskForecast:      fc,
		ComplianceMapping: ComplianceMapping(c.RiskLevel),
		RecommendedAction: action,
	}
}

// ComplianceMapping maps a risk level to the AML and FATF rule text
// cited in the report.
func ComplianceMapping(level domain.RiskLevel) []string {
	switch level {
	case domain.RiskHigh:
		return []string{
			"FATF Recommendation 10 - Customer Due Diligence failure",
			"FATF Recommendation 11 - Suspicious transaction patterns detected",
			"AML Typology: Layering / Mule Network behavior identified",
			"Regulatory Action: Immediate escalation & SAR filing recommended",
		}
	case domain.RiskMedium:
		return []string{
			"FATF Recommendation 20 - Early suspicious activity indicators",
			"AML Typology: Emerging abnormal transaction behavior",
			"Regulatory Action: Enhanced Due Diligence (EDD) advised",
		}
	default:
		return []string{
			"No immediate AML compliance violations detected",
			"Account remains under standard regulatory monitoring",
		}
	}
}
