// Package records persists CERFA generation records and reads the contracts
// they are generated from.
package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/a3tai/mcp-cerfa/internal/config"
)

var (
	ErrRecordNotFound   = errors.New("generation record not found")
	ErrContractNotFound = errors.New("contract not found")
)

// PersistenceError is returned when a database write or read fails.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// GenerationRecord is one successful CERFA generation. Rows are never updated
// or deleted.
type GenerationRecord struct {
	ID                  uuid.UUID `json:"id"`
	TenantID            string    `json:"tenantId"`
	ContractID          string    `json:"contractId"`
	UserID              string    `json:"userId"`
	FormVersion         string    `json:"formVersion"`
	ObjectPath          string    `json:"objectPath"`
	StorageURL          string    `json:"storageUrl"`
	FieldMappingVersion string    `json:"fieldMappingVersion"`
	GeneratedAt         time.Time `json:"generatedAt"`
}

// NewGenerationRecord holds the caller-supplied columns of a record.
type NewGenerationRecord struct {
	TenantID            string
	ContractID          string
	UserID              string
	FormVersion         string
	ObjectPath          string
	StorageURL          string
	FieldMappingVersion string
}

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpen)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return db, nil
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const recordColumns = `id, tenant_id, contract_id, user_id, form_version, object_path, storage_url, field_mapping_version, generated_at`

// Create inserts a record; the database assigns generated_at.
func (r *Repository) Create(ctx context.Context, in NewGenerationRecord) (*GenerationRecord, error) {
	rec := &GenerationRecord{
		ID:                  uuid.New(),
		TenantID:            in.TenantID,
		ContractID:          in.ContractID,
		UserID:              in.UserID,
		FormVersion:         in.FormVersion,
		ObjectPath:          in.ObjectPath,
		StorageURL:          in.StorageURL,
		FieldMappingVersion: in.FieldMappingVersion,
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO cerfa_pdfs (
			id, tenant_id, contract_id, user_id, form_version,
			object_path, storage_url, field_mapping_version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING generated_at`,
		rec.ID,
		rec.TenantID,
		rec.ContractID,
		rec.UserID,
		rec.FormVersion,
		rec.ObjectPath,
		rec.StorageURL,
		rec.FieldMappingVersion,
	).Scan(&rec.GeneratedAt)
	if err != nil {
		return nil, &PersistenceError{Op: "create generation record", Err: err}
	}
	return rec, nil
}

// ListByContract returns a contract's records, newest first.
func (r *Repository) ListByContract(ctx context.Context, contractID string) ([]GenerationRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM cerfa_pdfs
		WHERE contract_id = $1
		ORDER BY generated_at DESC, id DESC`, contractID)
	if err != nil {
		return nil, &PersistenceError{Op: "list generation records", Err: err}
	}
	defer rows.Close()

	records := []GenerationRecord{}
	for rows.Next() {
		var rec GenerationRecord
		if err := scanRecord(rows, &rec); err != nil {
			return nil, &PersistenceError{Op: "list generation records", Err: err}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "list generation records", Err: err}
	}
	return records, nil
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*GenerationRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM cerfa_pdfs WHERE id = $1`, id)

	var rec GenerationRecord
	if err := scanRecord(row, &rec); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
		}
		return nil, &PersistenceError{Op: "get generation record", Err: err}
	}
	return &rec, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner, rec *GenerationRecord) error {
	return s.Scan(
		&rec.ID,
		&rec.TenantID,
		&rec.ContractID,
		&rec.UserID,
		&rec.FormVersion,
		&rec.ObjectPath,
		&rec.StorageURL,
		&rec.FieldMappingVersion,
		&rec.GeneratedAt,
	)
}
