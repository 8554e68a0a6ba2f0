package domain

import (
	"context"
	"time"
)

// Repository defines the interface for durable persistence. Cases and
// the audit log live in memory for the process lifetime; the repository
// is the optional write-through store behind them. All methods require
// tenantID for strict multi-tenancy isolation.
type Repository interface {
	// Transaction batches submitted to the pipeline
	SaveTransaction(ctx context.Context, tenantID string, tx *Transaction) error
	GetTransaction(ctx context.Context, tenantID string, txID string) (*Transaction, error)
	GetTransactionsByAccount(ctx context.Context, tenantID string, account string, since time.Time) ([]*Transaction, error)

	// Fused per-run assessments
	SaveAssessment(ctx context.Context, tenantID string, a *RiskAssessment) error
	ListAssessments(ctx context.Context, tenantID string, account string) ([]*RiskAssessment, error)

	// Case store write-through
	SaveCase(ctx context.Context, tenantID string, c *Case) error
	GetCase(ctx context.Context, tenantID string, caseID string) (*Case, error)
	ListCases(ctx context.Context, tenantID string) ([]*Case, error)

	// Audit log write-through
	AppendAudit(ctx context.Context, tenantID string, entry *AuditEntry) error
	ListAudit(ctx context.Context, tenantID string, caseID string) ([]*AuditEntry, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
