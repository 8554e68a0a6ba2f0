// Package drift owns the live per-account risk estimates and the
// append-only risk score history. The live value drifts upward each
// monitoring cycle independently of the per-run fused assessment; the
// typology classifier reads it through domain.RiskLookup.
package drift

import (
	"context"
	"fmt"
	"math"

	"github.com/neuroaml/neuroaml/internal/domain"
)

// escalationKnee: accounts at or above this live risk drift with the
// escalated step, mirroring how attention concentrates on accounts
// already under suspicion.
const escalationKnee = 0.6

// Store holds live risk values and score histories. Implementations
// must serialize mutations so concurrent cycles never lose updates.
type Store interface {
	domain.RiskLookup

	// SetRisk pins an account's live risk, seeding or overriding drift.
	SetRisk(ctx context.Context, tenantID, account string, risk float64) error

	// Advance moves the account's live risk one cycle forward. Unknown
	// accounts are seeded with base first. Returns the new value.
	Advance(ctx context.Context, tenantID, account string, base float64) (float64, error)

	// AppendHistory appends one sample to the account's history.
	// Samples are never mutated or reordered after append.
	AppendHistory(ctx context.Context, tenantID, account string, sample domain.RiskHistorySample) error

	// History returns the account's samples in insertion order.
	History(ctx context.Context, tenantID, account string) ([]domain.RiskHistorySample, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// New creates a drift store based on configuration.
func New(cfg domain.DriftConfig) (Store, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStore(cfg), nil
	case "redis":
		return NewRedisStore(cfg)
	default:
		return nil, fmt.Errorf("unsupported drift store type: %s", cfg.Type)
	}
}

// step returns the drift increment for the current risk level.
func step(cfg domain.DriftConfig, current float64) float64 {
	if current >= escalationKnee && cfg.EscalatedStep > 0 {
		return cfg.EscalatedStep
	}
	return cfg.Step
}

// advance computes the next live risk from the current one.
func advance(cfg domain.DriftConfig, current float64) float64 {
	next := math.Min(current+step(cfg, current), 1.0)
	return math.Round(next*1000) / 1000
}
