// Package worker provides async batch processing for the Pro tier.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/neuroaml/neuroaml/internal/cases"
	"github.com/neuroaml/neuroaml/internal/domain"
	"github.com/neuroaml/neuroaml/internal/pipeline"
)

// Worker processes transaction batches asynchronously from the EventBus.
// For every HIGH risk account in a batch it opens an investigative case.
type Worker struct {
	bus      domain.EventBus
	pipeline *pipeline.Pipeline
	cases    *cases.Manager

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// TenantIDs is the list of tenants to process (empty = all via a global subscription)
	TenantIDs []string
}

// NewWorker creates a new async worker.
func NewWorker(bus domain.EventBus, p *pipeline.Pipeline, caseManager *cases.Manager) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:      bus,
		pipeline: p,
		cases:    caseManager,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins processing batches for the given tenants.
func (w *Worker) Start(cfg Config) error {
	if len(cfg.TenantIDs) == 0 {
		return w.startGlobalWorker()
	}

	for _, tenantID := range cfg.TenantIDs {
		if err := w.startTenantWorker(tenantID); err != nil {
			slog.Error("failed to start worker for tenant",
				"tenant_id", tenantID,
				"error", err,
			)
			continue
		}
	}

	slog.Info("workers started",
		"tenant_count", len(cfg.TenantIDs),
	)

	return nil
}

// startGlobalWorker starts a worker that processes all tenants (for testing/dev).
func (w *Worker) startGlobalWorker() error {
	sub, err := w.bus.Subscribe(w.ctx, "_global", domain.TopicBatchIngested, w.handleMessage)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("global worker started")
	return nil
}

// startTenantWorker starts a worker for a specific tenant.
func (w *Worker) startTenantWorker(tenantID string) error {
	sub, err := w.bus.Subscribe(w.ctx, tenantID, domain.TopicBatchIngested, func(ctx context.Context, msg *domain.Message) error {
		return w.processBatch(ctx, tenantID, msg)
	})
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("tenant worker started",
		"tenant_id", tenantID,
		"topic", domain.TopicBatchIngested,
	)

	return nil
}

// handleMessage handles messages from the global subscription.
func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	return w.processBatch(ctx, msg.TenantID, msg)
}

// BatchMessage is the message payload for batch processing.
type BatchMessage struct {
	BatchID      string               `json:"batchId"`
	TenantID     string               `json:"tenantId"`
	TraceID      string               `json:"traceId"`
	Transactions []domain.Transaction `json:"transactions"`
}

// CaseEvent is published whenever the worker opens a case.
type CaseEvent struct {
	CaseID    string           `json:"caseId"`
	Account   string           `json:"account"`
	RiskLevel domain.RiskLevel `json:"riskLevel"`
	BatchID   string           `json:"batchId,omitempty"`
}

// processBatch runs a batch through the pipeline and opens cases for
// high risk accounts.
func (w *Worker) processBatch(ctx context.Context, tenantID string, msg *domain.Message) error {
	start := time.Now()

	var batch BatchMessage
	if err := json.Unmarshal(msg.Payload, &batch); err != nil {
		slog.Error("failed to parse batch message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	// Use message tenant if provided
	if batch.TenantID != "" {
		tenantID = batch.TenantID
	}

	traceID := batch.TraceID
	if traceID == "" {
		traceID = msg.ID
	}

	slog.Debug("processing batch",
		"batch_id", batch.BatchID,
		"tenant_id", tenantID,
		"trace_id", traceID,
		"transactions", len(batch.Transactions),
	)

	result, err := w.pipeline.Run(ctx, tenantID, batch.Transactions)
	if err != nil {
		slog.Error("pipeline run failed",
			"batch_id", batch.BatchID,
			"tenant_id", tenantID,
			"error", err,
		)
		return err
	}

	for _, account := range result.HighRiskAccounts {
		c := w.cases.CreateCase(ctx, tenantID, account, domain.RiskHigh)

		event, _ := json.Marshal(CaseEvent{
			CaseID:    c.CaseID,
			Account:   account,
			RiskLevel: c.RiskLevel,
			BatchID:   batch.BatchID,
		})
		if err := w.bus.Publish(ctx, tenantID, domain.TopicCaseEvent, event); err != nil {
			slog.Error("failed to publish case event",
				"case_id", c.CaseID,
				"error", err,
			)
		}
	}

	slog.Info("batch processed",
		"batch_id", batch.BatchID,
		"tenant_id", tenantID,
		"accounts", result.AccountCount,
		"cases_opened", len(result.HighRiskAccounts),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// Stop gracefully stops all workers.
func (w *Worker) Stop() error {
	w.cancel()

	// Unsubscribe all
	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("workers stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
