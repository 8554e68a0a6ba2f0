// Package fusion combines the three detection signals into a single
// numeric risk score and a three-level classification.
package fusion

import (
	"math"

	"github.com/neuroaml/neuroaml/internal/domain"
)

// Fixed fusion weights and thresholds. These are design constants; the
// three weights sum to 1.0 when every signal fires.
const (
	WeightBehavioral = 0.4
	WeightGraph      = 0.3
	WeightTemporal   = 0.3

	ThresholdHigh   = 0.6
	ThresholdMedium = 0.3
)

// Fuse scores every account appearing in any of the three signal maps.
// An account missing from a map is treated as LOW for that signal.
func Fuse(behavioral, graphSigs, temporalSigs map[string]domain.Signal) map[string]domain.RiskAssessment {
	accounts := make(map[string]struct{})
	for a := range behavioral {
		accounts[a] = struct{}{}
	}
	for a := range graphSigs {
		accounts[a] = struct{}{}
	}
	for a := range temporalSigs {
		accounts[a] = struct{}{}
	}

	assessments := make(map[string]domain.RiskAssessment, len(accounts))
	for account := range accounts {
		score := 0.0
		if behavioral[account] == domain.SignalHigh {
			score += WeightBehavioral
		}
		if graphSigs[account] == domain.SignalHigh {
			score += WeightGraph
		}
		if temporalSigs[account] == domain.SignalHigh {
			score += WeightTemporal
		}
		score = math.Round(score*100) / 100

		assessments[account] = domain.RiskAssessment{
			Account:   account,
			RiskScore: score,
			FinalRisk: Level(score),
		}
	}
	return assessments
}

// Level maps a fused score to its three-level label.
func Level(score float64) domain.RiskLevel {
	switch {
	case score >= ThresholdHigh:
		return domain.RiskHigh
	case score >= ThresholdMedium:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}
