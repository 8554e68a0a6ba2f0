package sar

import (
	"strings"
	"testing"
	"time"

	"github.com/neuroaml/neuroaml/internal/domain"
)

func TestAssembleHighRiskCase(t *testing.T) {
	c := &domain.Case{
		CaseID:    "CASE-1A2B3C4D",
		TenantID:  "default",
		Account:   "ACC-9",
		Status:    domain.CaseEscalated,
		RiskLevel: domain.RiskHigh,
	}
	score := 0.85
	fc := domain.Forecast{Score: &score, Level: "HIGH", Interpretation: "Risk is projected to remain high"}
	typ := []domain.TypologyFinding{{Type: "Money Mule Network", Justification: "Connected to 2 or more high-risk accounts."}}
	evidence := []string{"Unusual transaction volume or amount detected."}

	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	rep := Assemble(c, evidence, typ, fc, now)

	if rep.ReportType != "Suspicious Activity Report (SAR)" {
		t.Fatalf("report type = %q", rep.ReportType)
	}
	if rep.GeneratedAt != "2026-03-14 09:30:00" {
		t.Fatalf("generated at = %q", rep.GeneratedAt)
	}
	if rep.CaseID != c.CaseID || rep.SubjectAccount != "ACC-9" {
		t.Fatalf("subject fields wrong: %+v", rep)
	}
	if rep.CaseStatus != domain.CaseEscalated {
		t.Fatalf("case status = %q", rep.CaseStatus)
	}
	if rep.RecommendedAction != "Immediate regulatory review and enhanced monitoring" {
		t.Fatalf("recommended action = %q", rep.RecommendedAction)
	}
	if len(rep.ComplianceMapping) != 4 {
		t.Fatalf("high risk mapping has %d entries, want 4", len(rep.ComplianceMapping))
	}
	if !strings.Contains(rep.ComplianceMapping[0], "Recommendation 10") {
		t.Fatalf("first mapping entry = %q", rep.ComplianceMapping[0])
	}
	if len(rep.Evidence) != 1 || len(rep.FraudTypologies) != 1 {
		t.Fatalf("evidence/typologies not carried: %+v", rep)
	}
}

func TestAssembleNonHighAction(t *testing.T) {
	for _, level := range []domain.RiskLevel{domain.RiskLow, domain.RiskMedium} {
		c := &domain.Case{CaseID: "CASE-00000000", Account: "A", Status: domain.CaseOpen, RiskLevel: level}
		rep := Assemble(c, nil, nil, domain.Forecast{}, time.Now())
		if rep.RecommendedAction != "Continued monitoring and due diligence" {
			t.Fatalf("level %s: action = %q", level, rep.RecommendedAction)
		}
	}
}

func TestComplianceMappingPerLevel(t *testing.T) {
	tests := []struct {
		level domain.RiskLevel
		want  int
		first string
	}{
		{domain.RiskHigh, 4, "FATF Recommendation 10 - Customer Due Diligence failure"},
		{domain.RiskMedium, 3, "FATF Recommendation 20 - Early suspicious activity indicators"},
		{domain.RiskLow, 2, "No immediate AML compliance violations detected"},
	}
	for _, tc := range tests {
		t.Run(string(tc.level), func(t *testing.T) {
			got := ComplianceMapping(tc.level)
			if len(got) != tc.want {
				t.Fatalf("len = %d, want %d", len(got), tc.want)
			}
			if got[0] != tc.first {
				t.Fatalf("first = %q, want %q", got[0], tc.first)
			}
		})
	}
}

func TestAssembleNormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, loc)
	c := &domain.Case{CaseID: "CASE-FFFFFFFF", Account: "A", Status: domain.CaseOpen, RiskLevel: domain.RiskLow}
	rep := Assemble(c, nil, nil, domain.Forecast{}, now)
	if rep.GeneratedAt != "2026-01-01 10:00:00" {
		t.Fatalf("generated at = %q", rep.GeneratedAt)
	}
}
