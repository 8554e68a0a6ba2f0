// Package pipeline runs the full risk analysis over a transaction
// batch: behavior profiling, the three detectors, fusion, explanation,
// typology classification and risk drift bookkeeping.
package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"time"

	"github.com/neuroaml/neuroaml/internal/domain"
	"github.com/neuroaml/neuroaml/internal/drift"
	"github.com/neuroaml/neuroaml/internal/explain"
	"github.com/neuroaml/neuroaml/internal/fusion"
	"github.com/neuroaml/neuroaml/internal/graph"
	"github.com/neuroaml/neuroaml/internal/outlier"
	"github.com/neuroaml/neuroaml/internal/profile"
	"github.com/neuroaml/neuroaml/internal/temporal"
	"github.com/neuroaml/neuroaml/internal/typology"
)

// Pipeline wires the per-batch analysis stages together. The repository
// and event bus are optional; persistence and publishing are best
// effort and never fail a run.
type Pipeline struct {
	classifier outlier.Classifier
	typologies *typology.Classifier
	drift      drift.Store

	repo domain.Repository
	bus  domain.EventBus
	now  func() time.Time
}

// Option configures optional pipeline collaborators.
type Option func(*Pipeline)

// WithRepository enables write-through of transactions and assessments.
func WithRepository(repo domain.Repository) Option {
	return func(p *Pipeline) { p.repo = repo }
}

// WithBus enables publishing of risk decisions and alerts.
func WithBus(bus domain.EventBus) Option {
	return func(p *Pipeline) { p.bus = bus }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a pipeline. The classifier scores behavior profiles, the
// typology classifier names laundering patterns, and the drift store
// carries live risk and score history across runs.
func New(classifier outlier.Classifier, typologies *typology.Classifier, driftStore drift.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		classifier: classifier,
		typologies: typologies,
		drift:      driftStore,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Result is the outcome of one pipeline run over a batch.
type Result struct {
	TenantID         string                 `json:"tenantId"`
	TransactionCount int                    `json:"transactionCount"`
	AccountCount     int                    `json:"accountCount"`
	Reports          []domain.AccountReport `json:"reports"`
	HighRiskAccounts []string               `json:"highRiskAccounts"`
	DurationMS       int64                  `json:"durationMs"`
}

// Run validates the batch, executes the detectors, fuses their signals
// and produces one report per account seen in the batch. Reports are
// ordered by account for stable output.
func (p *Pipeline) Run(ctx context.Context, tenantID string, txs []domain.Transaction) (*Result, error) {
	start := p.now()

	if err := domain.ValidateBatch(txs); err != nil {
		return nil, err
	}

	profiles := profile.Build(txs)
	behavioral := outlier.Detect(profiles, p.classifier)

	g := graph.Build(txs)
	graphSigs := graph.Detect(g)

	temporalSigs := temporal.Detect(txs)

	assessments := fusion.Fuse(behavioral, graphSigs, temporalSigs)

	accounts := make([]string, 0, len(assessments))
	for account := range assessments {
		accounts = append(accounts, account)
	}
	sort.Strings(accounts)

	result := &Result{
		TenantID:         tenantID,
		TransactionCount: len(txs),
		AccountCount:     len(accounts),
		Reports:          make([]domain.AccountReport, 0, len(accounts)),
	}

	// Seed live risk before classification so typology rules that read
	// neighbor risk see this run's scores, not last run's.
	for _, account := range accounts {
		a := assessments[account]
		if err := p.drift.SetRisk(ctx, tenantID, account, a.RiskScore); err != nil {
			slog.Error("failed to seed live risk",
				"tenant_id", tenantID,
				"account", account,
				"error", err,
			)
		}
	}

	ts := p.now().Unix()
	for _, account := range accounts {
		a := assessments[account]

		report := domain.AccountReport{
			Assessment:  a,
			Explanation: explain.Generate(account, behavioral, graphSigs, temporalSigs, a),
			Signals: domain.SignalSet{
				Behavioral: signalOrLow(behavioral, account),
				Graph:      signalOrLow(graphSigs, account),
				Temporal:   signalOrLow(temporalSigs, account),
			},
		}

		findings, err := p.typologies.Classify(ctx, tenantID, account, a.RiskScore, g)
		if err != nil {
			slog.Error("typology classification failed",
				"tenant_id", tenantID,
				"account", account,
				"error", err,
			)
		} else {
			report.Typologies = findings
		}

		sample := domain.RiskHistorySample{Timestamp: ts, Score: a.RiskScore}
		if err := p.drift.AppendHistory(ctx, tenantID, account, sample); err != nil {
			slog.Error("failed to append risk history",
				"tenant_id", tenantID,
				"account", account,
				"error", err,
			)
		}

		if a.FinalRisk == domain.RiskHigh {
			result.HighRiskAccounts = append(result.HighRiskAccounts, account)
		}
		result.Reports = append(result.Reports, report)
	}

	p.persist(ctx, tenantID, txs, result)
	p.publish(ctx, tenantID, result)

	result.DurationMS = p.now().Sub(start).Milliseconds()

	slog.Info("batch processed",
		"tenant_id", tenantID,
		"transactions", result.TransactionCount,
		"accounts", result.AccountCount,
		"high_risk", len(result.HighRiskAccounts),
		"duration_ms", result.DurationMS,
	)

	return result, nil
}

// Advance moves every account's live risk one monitoring cycle forward
// and records the new value in the score history. Called between runs
// by the drift service, not by Run itself.
func (p *Pipeline) Advance(ctx context.Context, tenantID string, accounts []string) {
	ts := p.now().Unix()
	for _, account := range accounts {
		next, err := p.drift.Advance(ctx, tenantID, account, 0)
		if err != nil {
			slog.Error("failed to advance live risk",
				"tenant_id", tenantID,
				"account", account,
				"error", err,
			)
			continue
		}
		sample := domain.RiskHistorySample{Timestamp: ts, Score: next}
		if err := p.drift.AppendHistory(ctx, tenantID, account, sample); err != nil {
			slog.Error("failed to append risk history",
				"tenant_id", tenantID,
				"account", account,
				"error", err,
			)
		}
	}
}

func (p *Pipeline) persist(ctx context.Context, tenantID string, txs []domain.Transaction, result *Result) {
	if p.repo == nil {
		return
	}
	for i := range txs {
		if err := p.repo.SaveTransaction(ctx, tenantID, &txs[i]); err != nil {
			slog.Error("failed to save transaction",
				"tx_id", txs[i].ID,
				"error", err,
			)
		}
	}
	for i := range result.Reports {
		a := result.Reports[i].Assessment
		if err := p.repo.SaveAssessment(ctx, tenantID, &a); err != nil {
			slog.Error("failed to save assessment",
				"account", a.Account,
				"error", err,
			)
		}
	}
}

func (p *Pipeline) publish(ctx context.Context, tenantID string, result *Result) {
	if p.bus == nil {
		return
	}
	for i := range result.Reports {
		payload, err := json.Marshal(result.Reports[i])
		if err != nil {
			continue
		}
		if err := p.bus.Publish(ctx, tenantID, domain.TopicRiskDecision, payload); err != nil {
			slog.Error("failed to publish decision",
				"account", result.Reports[i].Assessment.Account,
				"error", err,
			)
		}
		if result.Reports[i].Assessment.FinalRisk == domain.RiskHigh {
			if err := p.bus.Publish(ctx, tenantID, domain.TopicRiskAlert, payload); err != nil {
				slog.Error("failed to publish alert",
					"account", result.Reports[i].Assessment.Account,
					"error", err,
				)
			}
		}
	}
}

func signalOrLow(sigs map[string]domain.Signal, account string) domain.Signal {
	if s, ok := sigs[account]; ok {
		return s
	}
	return domain.SignalLow
}
