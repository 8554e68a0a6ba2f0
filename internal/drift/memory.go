package drift

import (
	"context"
	"fmt"
	"sync"

	"github.com/neuroaml/neuroaml/internal/domain"
)

// MemoryStore is the Community tier drift store: a mutex-guarded map
// living for the process lifetime.
type MemoryStore struct {
	mu      sync.Mutex
	cfg     domain.DriftConfig
	risk    map[string]float64
	history map[string][]domain.RiskHistorySample
}

// NewMemoryStore creates an in-memory drift store.
func NewMemoryStore(cfg domain.DriftConfig) *MemoryStore {
	return &MemoryStore{
		cfg:     cfg,
		risk:    make(map[string]float64),
		history: make(map[string][]domain.RiskHistorySample),
	}
}

func (s *MemoryStore) key(tenantID, account string) string {
	return tenantID + ":" + account
}

// CurrentRisk implements domain.RiskLookup. Unknown accounts are 0.
func (s *MemoryStore) CurrentRisk(ctx context.Context, tenantID, account string) (float64, error) {
	if tenantID == "" {
		return 0, fmt.Errorf("tenantID is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.risk[s.key(tenantID, account)], nil
}

// SetRisk pins an account's live risk.
func (s *MemoryStore) SetRisk(ctx context.Context, tenantID, account string, risk float64) error {
	if tenantID == "" {
		return fmt.Errorf("tenantID is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.risk[s.key(tenantID, account)] = risk
	return nil
}

// Advance drifts the account's live risk one cycle forward.
func (s *MemoryStore) Advance(ctx context.Context, tenantID, account string, base float64) (float64, error) {
	if tenantID == "" {
		return 0, fmt.Errorf("tenantID is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.key(tenantID, account)
	current, ok := s.risk[key]
	if !ok {
		current = base
	}
	next := advance(s.cfg, current)
	s.risk[key] = next
	return next, nil
}

// AppendHistory appends a sample to the account's history.
func (s *MemoryStore) AppendHistory(ctx context.Context, tenantID, account string, sample domain.RiskHistorySample) error {
	if tenantID == "" {
		return fmt.Errorf("tenantID is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := s.key(tenantID, account)
	s.history[key] = append(s.history[key], sample)
	return nil
}

// History returns the account's samples in insertion order.
func (s *MemoryStore) History(ctx context.Context, tenantID, account string) ([]domain.RiskHistorySample, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenantID is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.key(tenantID, account)
	samples := make([]domain.RiskHistorySample, len(s.history[key]))
	copy(samples, s.history[key])
	return samples, nil
}

// Ping checks store health.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close clears the store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.risk = make(map[string]float64)
	s.history = make(map[string][]domain.RiskHistorySample)
	return nil
}
