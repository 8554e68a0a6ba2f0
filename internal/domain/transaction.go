// Package domain defines the core types and interfaces for NeuroAML.
package domain

import (
	"fmt"
	"time"
)

// Transaction is an immutable transfer record supplied by ingestion.
// The engine treats it as read-only input.
type Transaction struct {
	ID       string `json:"id"`
	TenantID string `json:"tenantId,omitempty"`

	// Parties
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`

	// Financial details
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency,omitempty"`

	// Temporal
	Timestamp time.Time `json:"timestamp"`

	// Optional metadata
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// ValidationError reports a malformed transaction field. Ingestion fails
// fast on the first malformed record rather than silently coercing it,
// so a bad feed cannot produce silently wrong risk scores.
type ValidationError struct {
	TxID  string
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.TxID == "" {
		return fmt.Sprintf("invalid transaction: %s: %s", e.Field, e.Msg)
	}
	return fmt.Sprintf("invalid transaction %s: %s: %s", e.TxID, e.Field, e.Msg)
}

// Validate checks the required fields of a single transaction.
func (t *Transaction) Validate() error {
	if t.ID == "" {
		return &ValidationError{Field: "id", Msg: "is required"}
	}
	if t.Sender == "" {
		return &ValidationError{TxID: t.ID, Field: "sender", Msg: "is required"}
	}
	if t.Receiver == "" {
		return &ValidationError{TxID: t.ID, Field: "receiver", Msg: "is required"}
	}
	if t.Amount <= 0 {
		return &ValidationError{TxID: t.ID, Field: "amount", Msg: "must be positive"}
	}
	if t.Timestamp.IsZero() {
		return &ValidationError{TxID: t.ID, Field: "timestamp", Msg: "is required"}
	}
	return nil
}

// ValidateBatch validates an ordered batch and returns the first error found.
func ValidateBatch(txs []Transaction) error {
	for i := range txs {
		if err := txs[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}
