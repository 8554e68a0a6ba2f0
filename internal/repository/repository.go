// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/neuroaml/neuroaml/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveTransaction stores a transaction with tenant isolation. Resubmitted
// batches overwrite rather than duplicate.
func (r *SQLRepository) SaveTransaction(ctx context.Context, tenantID string, tx *domain.Transaction) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	metadata, _ := json.Marshal(tx.Metadata)

	query := `
		INSERT INTO transactions (
			id, tenant_id, sender, receiver, amount, currency,
			timestamp, created_at, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, tenant_id) DO UPDATE SET
			sender = excluded.sender,
			receiver = excluded.receiver,
			amount = excluded.amount,
			currency = excluded.currency,
			timestamp = excluded.timestamp,
			metadata = excluded.metadata
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		tx.ID, tenantID, tx.Sender, tx.Receiver,
		tx.Amount, tx.Currency,
		tx.Timestamp, time.Now().UTC(),
		string(metadata),
	)
	return err
}

// GetTransaction retrieves a transaction by ID with tenant isolation.
func (r *SQLRepository) GetTransaction(ctx context.Context, tenantID string, txID string) (*domain.Transaction, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, sender, receiver, amount, currency, timestamp, metadata
		FROM transactions
		WHERE tenant_id = ? AND id = ?
	`

	var tx domain.Transaction
	var metadata string

	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, txID).Scan(
		&tx.ID, &tx.TenantID, &tx.Sender, &tx.Receiver,
		&tx.Amount, &tx.Currency, &tx.Timestamp,
		&metadata,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if metadata != "" {
		json.Unmarshal([]byte(metadata), &tx.Metadata)
	}

	return &tx, nil
}

// GetTransactionsByAccount retrieves transactions where the account is
// either party, with tenant isolation.
func (r *SQLRepository) GetTransactionsByAccount(ctx context.Context, tenantID string, account string, since time.Time) ([]*domain.Transaction, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, sender, receiver, amount, currency, timestamp, metadata
		FROM transactions
		WHERE tenant_id = ?
		  AND (sender = ? OR receiver = ?)
		  AND timestamp >= ?
		ORDER BY timestamp DESC
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, account, account, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []*domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		var metadata string

		if err := rows.Scan(
			&tx.ID, &tx.TenantID, &tx.Sender, &tx.Receiver,
			&tx.Amount, &tx.Currency, &tx.Timestamp,
			&metadata,
		); err != nil {
			return nil, err
		}

		if metadata != "" {
			json.Unmarshal([]byte(metadata), &tx.Metadata)
		}

		transactions = append(transactions, &tx)
	}

	return transactions, rows.Err()
}

// SaveAssessment stores one fused per-run verdict. Each run appends a
// new row so assessment history per account is queryable.
func (r *SQLRepository) SaveAssessment(ctx context.Context, tenantID string, a *domain.RiskAssessment) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO assessments (
			id, tenant_id, account, risk_score, final_risk, created_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		uuid.NewString(), tenantID, a.Account,
		a.RiskScore, string(a.FinalRisk), time.Now().UTC(),
	)
	return err
}

// ListAssessments retrieves assessments with tenant isolation, newest
// first. An empty account lists across all accounts.
func (r *SQLRepository) ListAssessments(ctx context.Context, tenantID string, account string) ([]*domain.RiskAssessment, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT account, risk_score, final_risk
		FROM assessments
		WHERE tenant_id = ? AND (? = '' OR account = ?)
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, account, account)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assessments []*domain.RiskAssessment
	for rows.Next() {
		var a domain.RiskAssessment
		var level string

		if err := rows.Scan(&a.Account, &a.RiskScore, &level); err != nil {
			return nil, err
		}
		a.FinalRisk = domain.RiskLevel(level)
		assessments = append(assessments, &a)
	}

	return assessments, rows.Err()
}

// SaveCase stores a case with tenant isolation. Status updates rewrite
// the row; the action trail rides along as JSON.
func (r *SQLRepository) SaveCase(ctx context.Context, tenantID string, c *domain.Case) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	actions, _ := json.Marshal(c.Actions)

	query := `
		INSERT INTO cases (
			id, tenant_id, account, status, risk_level, created_at, actions
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, tenant_id) DO UPDATE SET
			status = excluded.status,
			risk_level = excluded.risk_level,
			actions = excluded.actions
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		c.CaseID, tenantID, c.Account,
		string(c.Status), string(c.RiskLevel),
		c.CreatedAt, string(actions),
	)
	return err
}

// GetCase retrieves a case by ID with tenant isolation.
func (r *SQLRepository) GetCase(ctx context.Context, tenantID string, caseID string) (*domain.Case, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, account, status, risk_level, created_at, actions
		FROM cases
		WHERE tenant_id = ? AND id = ?
	`

	var c domain.Case
	var status, level, actions string

	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, caseID).Scan(
		&c.CaseID, &c.TenantID, &c.Account, &status, &level, &c.CreatedAt, &actions,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	c.Status = domain.CaseStatus(status)
	c.RiskLevel = domain.RiskLevel(level)
	if err := json.Unmarshal([]byte(actions), &c.Actions); err != nil {
		return nil, fmt.Errorf("failed to parse case actions: %w", err)
	}

	return &c, nil
}

// ListCases retrieves all cases for a tenant, oldest first.
func (r *SQLRepository) ListCases(ctx context.Context, tenantID string) ([]*domain.Case, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, account, status, risk_level, created_at, actions
		FROM cases
		WHERE tenant_id = ?
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cases []*domain.Case
	for rows.Next() {
		var c domain.Case
		var status, level, actions string

		if err := rows.Scan(
			&c.CaseID, &c.TenantID, &c.Account, &status, &level, &c.CreatedAt, &actions,
		); err != nil {
			return nil, err
		}

		c.Status = domain.CaseStatus(status)
		c.RiskLevel = domain.RiskLevel(level)
		if err := json.Unmarshal([]byte(actions), &c.Actions); err != nil {
			return nil, fmt.Errorf("failed to parse actions for case %s: %w", c.CaseID, err)
		}
		cases = append(cases, &c)
	}

	return cases, rows.Err()
}

// AppendAudit stores one audit log line with tenant isolation. The log
// is append-only; there is no update or delete path.
func (r *SQLRepository) AppendAudit(ctx context.Context, tenantID string, entry *domain.AuditEntry) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO audit_entries (
			id, tenant_id, case_id, time, message
		) VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		uuid.NewString(), tenantID, entry.CaseID, entry.Time, entry.Message,
	)
	return err
}

// ListAudit retrieves audit entries in insertion order with tenant
// isolation. An empty caseID lists the whole trail.
func (r *SQLRepository) ListAudit(ctx context.Context, tenantID string, caseID string) ([]*domain.AuditEntry, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT case_id, time, message
		FROM audit_entries
		WHERE tenant_id = ? AND (? = '' OR case_id = ?)
		ORDER BY time
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, caseID, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		if err := rows.Scan(&e.CaseID, &e.Time, &e.Message); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}

	return entries, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
