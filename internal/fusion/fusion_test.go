package fusion

import (
	"testing"

	"github.com/neuroaml/neuroaml/internal/domain"
)

func sig(high bool) domain.Signal {
	if high {
		return domain.SignalHigh
	}
	return domain.SignalLow
}

func TestFuse_AllCombinations(t *testing.T) {
	// All 8 indicator combinations with their exact scores and labels.
	tests := []struct {
		b, g, tp  bool
		wantScore float64
		wantLevel domain.RiskLevel
	}{
		{false, false, false, 0.0, domain.RiskLow},
		{true, false, false, 0.4, domain.RiskMedium},
		{false, true, false, 0.3, domain.RiskMedium},
		{false, false, true, 0.3, domain.RiskMedium},
		{true, true, false, 0.7, domain.RiskHigh},
		{true, false, true, 0.7, domain.RiskHigh},
		{false, true, true, 0.6, domain.RiskHigh},
		{true, true, true, 1.0, domain.RiskHigh},
	}

	for _, tt := range tests {
		behavioral := map[string]domain.Signal{"acct-a": sig(tt.b)}
		graphSigs := map[string]domain.Signal{"acct-a": sig(tt.g)}
		temporalSigs := map[string]domain.Signal{"acct-a": sig(tt.tp)}

		got := Fuse(behavioral, graphSigs, temporalSigs)["acct-a"]
		if got.RiskScore != tt.wantScore {
			t.Errorf("b=%v g=%v t=%v: expected score %v, got %v",
				tt.b, tt.g, tt.tp, tt.wantScore, got.RiskScore)
		}
		if got.FinalRisk != tt.wantLevel {
			t.Errorf("b=%v g=%v t=%v: expected %s, got %s",
				tt.b, tt.g, tt.tp, tt.wantLevel, got.FinalRisk)
		}
	}
}

func TestFuse_MissingSignalTreatedAsLow(t *testing.T) {
	// acct-a appears only in the graph map; the other signals default LOW.
	assessments := Fuse(
		map[string]domain.Signal{},
		map[string]domain.Signal{"acct-a": domain.SignalHigh},
		nil,
	)

	a, ok := assessments["acct-a"]
	if !ok {
		t.Fatal("account in any signal map must be assessed")
	}
	if a.RiskScore != 0.3 || a.FinalRisk != domain.RiskMedium {
		t.Errorf("expected 0.3/MEDIUM, got %v/%s", a.RiskScore, a.FinalRisk)
	}
}

func TestFuse_UnionOfAccounts(t *testing.T) {
	assessments := Fuse(
		map[string]domain.Signal{"acct-a": domain.SignalLow},
		map[string]domain.Signal{"acct-b": domain.SignalLow},
		map[string]domain.Signal{"acct-c": domain.SignalLow},
	)

	if len(assessments) != 3 {
		t.Fatalf("expected 3 assessments, got %d", len(assessments))
	}
	for account, a := range assessments {
		if a.RiskScore != 0.0 || a.FinalRisk != domain.RiskLow {
			t.Errorf("%s: zero HIGH signals must give 0.0/LOW, got %v/%s",
				account, a.RiskScore, a.FinalRisk)
		}
	}
}
