//go:build integration
// +build integration

// Package integration provides end-to-end tests for a running NeuroAML instance.
//
// These tests drive the COMPLETE service surface over HTTP:
//
//	Batch → Pipeline Run → Risk Reports → Case → SAR
//
// Run with: go test -tags=integration -v ./tests/integration/...
//
// The suite expects a server started with default configuration. Point it at
// a different instance with NEUROAML_TEST_URL. Every request carries
// X-Tenant-ID, and each scenario uses its own accounts so runs do not
// interfere with each other through the drift store.
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"
)

// TestConfig holds test environment configuration
type TestConfig struct {
	BaseURL  string
	TenantID string
}

func getTestConfig() TestConfig {
	baseURL := os.Getenv("NEUROAML_TEST_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return TestConfig{
		BaseURL:  baseURL,
		TenantID: "test-tenant",
	}
}

// ============================================================================
// API Request/Response Types (matching NeuroAML's API contract)
// ============================================================================

type Transaction struct {
	ID        string  `json:"id"`
	Sender    string  `json:"sender"`
	Receiver  string  `json:"receiver"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency,omitempty"`
	Timestamp string  `json:"timestamp"`
}

type BatchRequest struct {
	BatchID      string        `json:"batchId,omitempty"`
	Transactions []Transaction `json:"transactions"`
}

type Signal struct {
	Score float64 `json:"score"`
	Level string  `json:"level"`
}

type AccountReport struct {
	Assessment struct {
		Account   string  `json:"account"`
		RiskScore float64 `json:"riskScore"`
		FinalRisk string  `json:"finalRisk"`
	} `json:"assessment"`
	Explanation string `json:"explanation"`
	Typologies  []struct {
		Type          string `json:"type"`
		Justification string `json:"justification"`
	} `json:"typologies"`
	Signals struct {
		Behavioral Signal `json:"behavioral"`
		Graph      Signal `json:"graph"`
		Temporal   Signal `json:"temporal"`
	} `json:"signals"`
}

type Case struct {
	CaseID    string `json:"caseId"`
	Account   string `json:"account"`
	Status    string `json:"status"`
	RiskLevel string `json:"riskLevel"`
}

type RunResponse struct {
	BatchID          string          `json:"batchId"`
	TransactionCount int             `json:"transactionCount"`
	AccountCount     int             `json:"accountCount"`
	Reports          []AccountReport `json:"reports"`
	OpenedCases      []Case          `json:"openedCases"`
	DurationMS       int64           `json:"durationMs"`
}

type ForecastResponse struct {
	Account  string `json:"account"`
	Forecast struct {
		Score          *float64 `json:"forecastScore"`
		Level          string   `json:"forecastLevel"`
		Interpretation string   `json:"interpretation"`
	} `json:"forecast"`
}

type SARResponse struct {
	ReportType        string   `json:"reportType"`
	CaseID            string   `json:"caseId"`
	SubjectAccount    string   `json:"subjectAccount"`
	RiskLevel         string   `json:"riskLevel"`
	Summary           string   `json:"summary"`
	Evidence          []string `json:"evidence"`
	ComplianceMapping []string `json:"complianceMapping"`
	RecommendedAction string   `json:"recommendedAction"`
}

// ============================================================================
// Test Helper Functions
// ============================================================================

func doJSON(t *testing.T, config TestConfig, method, path string, payload any, out any) int {
	t.Helper()

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("Failed to marshal request: %v", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, config.BaseURL+path, body)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", config.TenantID)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response: %v", err)
	}

	if out != nil && resp.StatusCode < 300 {
		if err := json.Unmarshal(respBody, out); err != nil {
			t.Fatalf("Failed to unmarshal response: %v (body: %s)", err, string(respBody))
		}
	}
	return resp.StatusCode
}

func runBatch(t *testing.T, config TestConfig, batch BatchRequest) RunResponse {
	t.Helper()

	var result RunResponse
	status := doJSON(t, config, "POST", "/pipeline/run", batch, &result)
	if status != http.StatusOK {
		t.Fatalf("Expected status 200 from /pipeline/run, got %d", status)
	}
	return result
}

// muleBatch builds a fan-out pattern around a single hub account. The hub
// sends escalating amounts to distinct receivers while unrelated leaf pairs
// dilute everyone else's centrality, so only the hub should score HIGH.
func muleBatch(prefix string) BatchRequest {
	base := time.Now().UTC().Add(-time.Hour)
	hub := prefix + "-hub"
	txs := []Transaction{
		{ID: prefix + "-t1", Sender: hub, Receiver: prefix + "-r1", Amount: 100, Currency: "USD", Timestamp: base.Format(time.RFC3339)},
		{ID: prefix + "-t2", Sender: hub, Receiver: prefix + "-r2", Amount: 100, Currency: "USD", Timestamp: base.Add(5 * time.Minute).Format(time.RFC3339)},
		{ID: prefix + "-t3", Sender: hub, Receiver: prefix + "-r3", Amount: 500, Currency: "USD", Timestamp: base.Add(10 * time.Minute).Format(time.RFC3339)},
		{ID: prefix + "-t4", Sender: hub, Receiver: prefix + "-r4", Amount: 500, Currency: "USD", Timestamp: base.Add(15 * time.Minute).Format(time.RFC3339)},
		{ID: prefix + "-t5", Sender: prefix + "-a", Receiver: prefix + "-b", Amount: 40, Currency: "USD", Timestamp: base.Add(20 * time.Minute).Format(time.RFC3339)},
	}
	return BatchRequest{BatchID: prefix + "-batch", Transactions: txs}
}

func findReport(reports []AccountReport, account string) *AccountReport {
	for i := range reports {
		if reports[i].Assessment.Account == account {
			return &reports[i]
		}
	}
	return nil
}

// ============================================================================
// SCENARIO 1: Mule Fan-Out (High Risk, Case Opened)
// ============================================================================

func TestMuleFanOut_HighRiskAndCase(t *testing.T) {
	/*
	   SCENARIO: One account fans out escalating transfers to four receivers.

	   EXPECTED BEHAVIOR:
	   - Graph signal fires for the hub (centrality well above 0.2)
	   - Temporal signal fires (late transfers average far above early ones)
	   - Fused score lands at or above 0.6 so the hub is HIGH
	   - A case is opened automatically for the hub
	   - Quiet leaf accounts stay LOW and open no cases
	*/
	config := getTestConfig()

	result := runBatch(t, config, muleBatch("mule"))

	if result.TransactionCount != 5 {
		t.Errorf("Expected 5 transactions processed, got %d", result.TransactionCount)
	}
	if result.AccountCount != 7 {
		t.Errorf("Expected 7 distinct accounts, got %d", result.AccountCount)
	}

	hub := findReport(result.Reports, "mule-hub")
	if hub == nil {
		t.Fatal("No report for mule-hub")
	}
	if hub.Assessment.FinalRisk != "HIGH" {
		t.Errorf("Expected HIGH risk for mule-hub, got %s (score %.3f)",
			hub.Assessment.FinalRisk, hub.Assessment.RiskScore)
	}
	if hub.Explanation == "" {
		t.Error("Expected a narrative explanation for the hub account")
	}
	if len(hub.Typologies) == 0 {
		t.Error("Expected at least one typology finding for the hub account")
	}

	leaf := findReport(result.Reports, "mule-r1")
	if leaf == nil {
		t.Fatal("No report for mule-r1")
	}
	if leaf.Assessment.FinalRisk == "HIGH" {
		t.Errorf("Leaf receiver should not be HIGH, got score %.3f", leaf.Assessment.RiskScore)
	}

	opened := false
	for _, c := range result.OpenedCases {
		if c.Account == "mule-hub" {
			opened = true
			if c.Status != "OPEN" {
				t.Errorf("Expected new case to be OPEN, got %s", c.Status)
			}
			if c.RiskLevel != "HIGH" {
				t.Errorf("Expected HIGH case risk level, got %s", c.RiskLevel)
			}
		}
	}
	if !opened {
		t.Error("Expected an auto-opened case for mule-hub")
	}

	t.Logf("✓ Mule fan-out flagged: score=%.3f, typologies=%d, cases=%d",
		hub.Assessment.RiskScore, len(hub.Typologies), len(result.OpenedCases))
}

// ============================================================================
// SCENARIO 2: Case Lifecycle and SAR Assembly
// ============================================================================

func TestCaseLifecycle_SAR(t *testing.T) {
	/*
	   SCENARIO: Run a high-risk batch, escalate the opened case, then pull
	   the SAR document for it.

	   EXPECTED BEHAVIOR:
	   - Status transition OPEN → ESCALATED is accepted and audited
	   - GET /cases/{id}/sar returns a filled report with evidence,
	     compliance mapping, and an immediate-review action for HIGH risk
	*/
	config := getTestConfig()

	result := runBatch(t, config, muleBatch("sarcase"))

	var caseID string
	for _, c := range result.OpenedCases {
		if c.Account == "sarcase-hub" {
			caseID = c.CaseID
		}
	}
	if caseID == "" {
		t.Fatal("No case opened for sarcase-hub")
	}

	var updated Case
	status := doJSON(t, config, "POST", "/cases/"+caseID+"/status",
		map[string]string{"status": "ESCALATED", "note": "confirmed mule pattern"}, &updated)
	if status != http.StatusOK {
		t.Fatalf("Expected 200 escalating case, got %d", status)
	}
	if updated.Status != "ESCALATED" {
		t.Errorf("Expected ESCALATED status, got %s", updated.Status)
	}

	var sar SARResponse
	status = doJSON(t, config, "GET", "/cases/"+caseID+"/sar", nil, &sar)
	if status != http.StatusOK {
		t.Fatalf("Expected 200 from SAR endpoint, got %d", status)
	}

	if sar.ReportType != "Suspicious Activity Report (SAR)" {
		t.Errorf("Unexpected report type: %s", sar.ReportType)
	}
	if sar.SubjectAccount != "sarcase-hub" {
		t.Errorf("Expected subject sarcase-hub, got %s", sar.SubjectAccount)
	}
	if len(sar.Evidence) == 0 {
		t.Error("Expected SAR evidence from the latest pipeline run")
	}
	if len(sar.ComplianceMapping) != 4 {
		t.Errorf("Expected 4 compliance references for HIGH risk, got %d", len(sar.ComplianceMapping))
	}
	if sar.RecommendedAction != "Immediate regulatory review and enhanced monitoring" {
		t.Errorf("Unexpected recommended action: %s", sar.RecommendedAction)
	}

	t.Logf("✓ SAR assembled for case %s: %d evidence items", caseID, len(sar.Evidence))
}

// ============================================================================
// SCENARIO 3: Risk Forecast Across Repeated Runs
// ============================================================================

func TestForecast_RequiresHistory(t *testing.T) {
	/*
	   SCENARIO: A single run leaves one history sample, which is not enough
	   to project a trajectory. A second run makes the forecast available.
	*/
	config := getTestConfig()

	prefix := fmt.Sprintf("fcast%d", time.Now().UnixNano()%100000)
	runBatch(t, config, muleBatch(prefix))

	var first ForecastResponse
	status := doJSON(t, config, "GET", "/risk/"+prefix+"-hub/forecast", nil, &first)
	if status != http.StatusOK {
		t.Fatalf("Expected 200 from forecast endpoint, got %d", status)
	}
	if first.Forecast.Score != nil {
		t.Errorf("Expected no score with a single sample, got %.3f", *first.Forecast.Score)
	}
	if first.Forecast.Level != "INSUFFICIENT DATA" {
		t.Errorf("Expected INSUFFICIENT DATA level, got %s", first.Forecast.Level)
	}

	runBatch(t, config, muleBatch(prefix))

	var second ForecastResponse
	status = doJSON(t, config, "GET", "/risk/"+prefix+"-hub/forecast?horizon=3", nil, &second)
	if status != http.StatusOK {
		t.Fatalf("Expected 200 from forecast endpoint, got %d", status)
	}
	if second.Forecast.Score == nil {
		t.Fatal("Expected a projected score after two runs")
	}
	if *second.Forecast.Score < 0 || *second.Forecast.Score > 1 {
		t.Errorf("Forecast score out of range: %.3f", *second.Forecast.Score)
	}

	t.Logf("✓ Forecast after two runs: score=%.3f level=%s", *second.Forecast.Score, second.Forecast.Level)
}

// ============================================================================
// SCENARIO 4: Input Validation
// ============================================================================

func TestBatchValidation_Errors(t *testing.T) {
	config := getTestConfig()

	cases := []struct {
		name  string
		batch BatchRequest
	}{
		{
			name:  "empty batch",
			batch: BatchRequest{BatchID: "empty"},
		},
		{
			name: "negative amount",
			batch: BatchRequest{Transactions: []Transaction{
				{ID: "bad-1", Sender: "a", Receiver: "b", Amount: -50, Timestamp: time.Now().UTC().Format(time.RFC3339)},
			}},
		},
		{
			name: "missing sender",
			batch: BatchRequest{Transactions: []Transaction{
				{ID: "bad-2", Receiver: "b", Amount: 50, Timestamp: time.Now().UTC().Format(time.RFC3339)},
			}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status := doJSON(t, config, "POST", "/pipeline/run", tc.batch, nil)
			if status != http.StatusBadRequest {
				t.Errorf("Expected 400 for %s, got %d", tc.name, status)
			}
		})
	}
}

func TestMissingTenantHeader_Error(t *testing.T) {
	config := getTestConfig()

	body, _ := json.Marshal(muleBatch("notenant"))
	req, _ := http.NewRequest("POST", config.BaseURL+"/pipeline/run", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	// NO X-Tenant-ID header!

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing tenant header, got %d", resp.StatusCode)
	}
}

// ============================================================================
// SCENARIO 5: Tenant Isolation
// ============================================================================

func TestTenantIsolation_Cases(t *testing.T) {
	/*
	   SCENARIO: Cases opened under one tenant must not be visible to another.
	*/
	config := getTestConfig()

	result := runBatch(t, config, muleBatch(fmt.Sprintf("iso%d", time.Now().UnixNano()%100000)))
	if len(result.OpenedCases) == 0 {
		t.Fatal("Expected at least one opened case")
	}
	caseID := result.OpenedCases[0].CaseID

	other := config
	other.TenantID = "test-tenant-other"

	status := doJSON(t, other, "GET", "/cases/"+caseID, nil, nil)
	if status != http.StatusNotFound {
		t.Errorf("Expected 404 fetching another tenant's case, got %d", status)
	}
}

// ============================================================================
// SCENARIO 6: Health
// ============================================================================

func TestHealth(t *testing.T) {
	config := getTestConfig()

	req, _ := http.NewRequest("GET", config.BaseURL+"/health", nil)
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 from /health, got %d", resp.StatusCode)
	}
}
