package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/neuroaml/neuroaml/internal/cases"
	"github.com/neuroaml/neuroaml/internal/domain"
	"github.com/neuroaml/neuroaml/internal/drift"
	"github.com/neuroaml/neuroaml/internal/forecast"
	"github.com/neuroaml/neuroaml/internal/pipeline"
	"github.com/neuroaml/neuroaml/internal/sar"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo     domain.Repository
	drift    drift.Store
	bus      domain.EventBus
	pipeline *pipeline.Pipeline
	cases    *cases.Manager
	version  string

	// Latest per-account reports by tenant, refreshed on each run.
	mu          sync.RWMutex
	lastReports map[string][]domain.AccountReport
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, driftStore drift.Store, bus domain.EventBus, p *pipeline.Pipeline, caseManager *cases.Manager, version string) *Handler {
	return &Handler{
		repo:        repo,
		drift:       driftStore,
		bus:         bus,
		pipeline:    p,
		cases:       caseManager,
		version:     version,
		lastReports: make(map[string][]domain.AccountReport),
	}
}

// BatchRequest is the request body for POST /pipeline/run.
type BatchRequest struct {
	BatchID      string               `json:"batchId,omitempty"`
	Transactions []domain.Transaction `json:"transactions"`
}

// RunResponse is the response for POST /pipeline/run.
type RunResponse struct {
	BatchID          string                 `json:"batchId,omitempty"`
	TransactionCount int                    `json:"transactionCount"`
	AccountCount     int                    `json:"accountCount"`
	Reports          []domain.AccountReport `json:"reports"`
	OpenedCases      []*domain.Case         `json:"openedCases,omitempty"`
	DurationMS       int64                  `json:"durationMs"`
}

// RunPipeline handles POST /pipeline/run requests: runs the full
// analysis synchronously and opens cases for high risk accounts.
func (h *Handler) RunPipeline(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if len(req.Transactions) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "transactions are required",
		})
		return
	}

	result, err := h.pipeline.Run(ctx, tenantID, req.Transactions)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": verr.Error(),
			})
			return
		}
		slog.Error("pipeline run failed", "tenant_id", tenantID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "pipeline run failed",
		})
		return
	}

	h.mu.Lock()
	h.lastReports[tenantID] = result.Reports
	h.mu.Unlock()

	var opened []*domain.Case
	for _, account := range result.HighRiskAccounts {
		opened = append(opened, h.cases.CreateCase(ctx, tenantID, account, domain.RiskHigh))
	}

	writeJSON(w, http.StatusOK, RunResponse{
		BatchID:          req.BatchID,
		TransactionCount: result.TransactionCount,
		AccountCount:     result.AccountCount,
		Reports:          result.Reports,
		OpenedCases:      opened,
		DurationMS:       result.DurationMS,
	})
}

// GetRisk handles GET /risk: the latest per-account reports for the tenant.
func (h *Handler) GetRisk(w http.ResponseWriter, r *http.Request) {
	tenantID := GetTenantID(r.Context())

	h.mu.RLock()
	reports := h.lastReports[tenantID]
	h.mu.RUnlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reports": reports,
		"count":   len(reports),
	})
}

// GetForecast handles GET /risk/{account}/forecast requests.
func (h *Handler) GetForecast(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	account := chi.URLParam(r, "account")

	horizon := forecast.DefaultHorizon
	if v := r.URL.Query().Get("horizon"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "horizon must be a positive integer",
			})
			return
		}
		horizon = n
	}

	history, err := h.drift.History(ctx, tenantID, account)
	if err != nil {
		slog.Error("failed to load risk history", "account", account, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load risk history",
		})
		return
	}

	fc := forecast.Project(history, horizon)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"account":  account,
		"horizon":  horizon,
		"samples":  len(history),
		"forecast": fc,
	})
}

// CreateCaseRequest is the request body for POST /cases.
type CreateCaseRequest struct {
	Account   string           `json:"account"`
	RiskLevel domain.RiskLevel `json:"riskLevel"`
}

// CreateCase handles POST /cases requests. An existing non-CLOSED case
// for the account is returned instead of opening a duplicate.
func (h *Handler) CreateCase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var req CreateCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.Account == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "account is required",
		})
		return
	}
	switch req.RiskLevel {
	case domain.RiskLow, domain.RiskMedium, domain.RiskHigh:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "riskLevel must be LOW, MEDIUM or HIGH",
		})
		return
	}

	c := h.cases.CreateCase(ctx, tenantID, req.Account, req.RiskLevel)
	writeJSON(w, http.StatusCreated, c)
}

// ListCases handles GET /cases requests.
func (h *Handler) ListCases(w http.ResponseWriter, r *http.Request) {
	tenantID := GetTenantID(r.Context())

	cs := h.cases.Cases(tenantID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cases": cs,
		"count": len(cs),
	})
}

// GetCase handles GET /cases/{id} requests.
func (h *Handler) GetCase(w http.ResponseWriter, r *http.Request) {
	tenantID := GetTenantID(r.Context())
	caseID := chi.URLParam(r, "id")

	c := h.cases.GetCase(tenantID, caseID)
	if c == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "case not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, c)
}

// UpdateStatusRequest is the request body for POST /cases/{id}/status.
type UpdateStatusRequest struct {
	Status domain.CaseStatus `json:"status"`
	Note   string            `json:"note,omitempty"`
}

// UpdateCaseStatus handles POST /cases/{id}/status requests.
func (h *Handler) UpdateCaseStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	caseID := chi.URLParam(r, "id")

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if !domain.ValidCaseStatus(req.Status) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "status must be OPEN, UNDER_REVIEW, ESCALATED or CLOSED",
		})
		return
	}

	if h.cases.GetCase(tenantID, caseID) == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "case not found",
		})
		return
	}

	h.cases.UpdateStatus(ctx, tenantID, caseID, req.Status, req.Note)

	writeJSON(w, http.StatusOK, h.cases.GetCase(tenantID, caseID))
}

// GetAudit handles GET /audit requests, optionally filtered by caseId.
func (h *Handler) GetAudit(w http.ResponseWriter, r *http.Request) {
	tenantID := GetTenantID(r.Context())
	caseID := r.URL.Query().Get("caseId")

	trail := h.cases.AuditTrail(tenantID, caseID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": trail,
		"count":   len(trail),
	})
}

// GetSAR handles GET /cases/{id}/sar requests: assembles the structured
// Suspicious Activity Report payload for the case.
func (h *Handler) GetSAR(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	caseID := chi.URLParam(r, "id")

	c := h.cases.GetCase(tenantID, caseID)
	if c == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "case not found",
		})
		return
	}

	var evidence []string
	var typologies []domain.TypologyFinding
	h.mu.RLock()
	for _, report := range h.lastReports[tenantID] {
		if report.Assessment.Account == c.Account {
			evidence = append(evidence, report.Explanation)
			typologies = report.Typologies
			break
		}
	}
	h.mu.RUnlock()

	history, err := h.drift.History(ctx, tenantID, c.Account)
	if err != nil {
		slog.Error("failed to load risk history", "account", c.Account, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load risk history",
		})
		return
	}
	fc := forecast.Project(history, forecast.DefaultHorizon)

	report := sar.Assemble(c, evidence, typologies, fc, time.Now())
	writeJSON(w, http.StatusOK, report)
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	// Check repository health
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	// Check drift store health
	if h.drift != nil {
		if err := h.drift.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	// Check bus health
	if h.bus != nil {
		if err := h.bus.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
