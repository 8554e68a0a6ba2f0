// Package explain turns fired signals into a human-readable rationale.
package explain

import (
	"strings"

	"github.com/neuroaml/neuroaml/internal/domain"
)

// Fixed clause texts, one per signal, concatenated in detector order.
const (
	ClauseBehavioral = "The account shows abnormal transaction behavior compared to typical users."
	ClauseGraph      = "The account is part of a suspicious transaction network indicating possible money mule activity."
	ClauseTemporal   = "The account shows a sudden escalation in transaction amounts over a short time period."
	ClauseOverall    = "Based on combined behavioral, network, and temporal indicators, this account is classified as high risk."
	ClauseNormal     = "The account shows normal behavior with no significant risk indicators."
)

const clauseSeparator = " "

// Generate emits one clause per fired signal in the order behavioral,
// graph, temporal, then the overall clause when the fused label is HIGH.
// With nothing fired and a non-HIGH label it emits the normal-behavior
// clause. Pure function: no randomness, no side effects.
func Generate(account string, behavioral, graphSigs, temporalSigs map[string]domain.Signal, assessment domain.RiskAssessment) string {
	var clauses []string

	if behavioral[account] == domain.SignalHigh {
		clauses = append(clauses, ClauseBehavioral)
	}
	if graphSigs[account] == domain.SignalHigh {
		clauses = append(clauses, ClauseGraph)
	}
	if temporalSigs[account] == domain.SignalHigh {
		clauses = append(clauses, ClauseTemporal)
	}
	if assessment.FinalRisk == domain.RiskHigh {
		clauses = append(clauses, ClauseOverall)
	}

	if len(clauses) == 0 {
		return ClauseNormal
	}
	return strings.Join(clauses, clauseSeparator)
}
