// Package forecast extrapolates a short-horizon future risk score from
// an account's score history.
package forecast

import (
	"math"

	"github.com/neuroaml/neuroaml/internal/domain"
)

// DefaultHorizon is the number of future cycles projected when the
// caller does not specify one.
const DefaultHorizon = 3

// Forecast-level thresholds. These intentionally differ from the fusion
// thresholds: a projection of 0.35 already warrants monitoring.
const (
	levelHigh   = 0.7
	levelMedium = 0.35
)

// maxSamples bounds the velocity window to the most recent history.
const maxSamples = 5

// Canned interpretations per forecast level.
const (
	InterpretHigh = "Account is likely to escalate to HIGH risk soon " +
		"if current behavior persists."
	InterpretMedium = "Account shows rising risk trend and may require " +
		"pre-emptive monitoring."
	InterpretLow = "Risk trajectory appears stable with no immediate " +
		"escalation expected."
	InterpretInsufficient = "Not enough historical data to forecast risk."
)

// Project forecasts the account's risk score horizon cycles ahead. The
// velocity is the mean of consecutive deltas over the last maxSamples
// samples; the projection is capped at 1.0 and rounded to 3 decimals.
// No lower clamp is applied: a steeply falling history can project
// below zero, which callers should read as "risk dissipating". With
// fewer than 2 samples the result carries a nil score and the
// INSUFFICIENT DATA level.
func Project(history []domain.RiskHistorySample, horizon int) domain.Forecast {
	if horizon <= 0 {
		horizon = DefaultHorizon
	}

	if len(history) < 2 {
		return domain.Forecast{
			Score:          nil,
			Level:          domain.ForecastInsufficient,
			Interpretation: InterpretInsufficient,
		}
	}

	samples := history
	if len(samples) > maxSamples {
		samples = samples[len(samples)-maxSamples:]
	}

	var velocity float64
	for i := 1; i < len(samples); i++ {
		velocity += samples[i].Score - samples[i-1].Score
	}
	velocity /= float64(len(samples) - 1)

	current := samples[len(samples)-1].Score
	projected := math.Min(current+velocity*float64(horizon), 1.0)
	projected = math.Round(projected*1000) / 1000

	level, interpretation := interpret(projected)
	return domain.Forecast{
		Score:          &projected,
		Level:          level,
		Interpretation: interpretation,
	}
}

func interpret(score float64) (string, string) {
	switch {
	case score >= levelHigh:
		return string(domain.RiskHigh), InterpretHigh
	case score >= levelMedium:
		return string(domain.RiskMedium), InterpretMedium
	default:
		return string(domain.RiskLow), InterpretLow
	}
}
