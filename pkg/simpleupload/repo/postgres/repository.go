// Package postgres implements simpleupload.Repository on PostgreSQL.
//
// Expected schema:
//
//	CREATE TABLE upload_file (
//	    id            UUID PRIMARY KEY,
//	    storage_key   TEXT NOT NULL UNIQUE,
//	    original_name TEXT NOT NULL DEFAULT '',
//	    content_type  TEXT NOT NULL DEFAULT '',
//	    size          BIGINT NOT NULL DEFAULT 0,
//	    status        TEXT NOT NULL,
//	    created_at    TIMESTAMPTZ NOT NULL,
//	    updated_at    TIMESTAMPTZ NOT NULL
//	);
//
//	CREATE TABLE upload_derivative (
//	    id                     UUID PRIMARY KEY,
//	    original_storage_key   TEXT NOT NULL,
//	    derivative_storage_key TEXT NOT NULL,
//	    status                 TEXT NOT NULL,
//	    error                  TEXT NOT NULL DEFAULT '',
//	    created_at             TIMESTAMPTZ NOT NULL,
//	    updated_at             TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX upload_derivative_original_key_idx
//	    ON upload_derivative (original_storage_key);
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-upload/pkg/simpleupload"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements simpleupload.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) simpleupload.Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) simpleupload.Repository {
	return &Repository{db: pool}
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if strings.Contains(pgErr.ConstraintName, "storage_key") {
				return fmt.Errorf("storage key already exists")
			}
			return fmt.Errorf("duplicate entry")
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

// File record operations

func (r *Repository) CreateFile(ctx context.Context, file *simpleupload.FileRecord) error {
	query := `
		INSERT INTO upload_file (
			id, storage_key, original_name, content_type, size,
			status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, query,
		file.ID, file.StorageKey, file.OriginalName, file.ContentType,
		file.Size, file.Status, file.CreatedAt, file.UpdatedAt)

	if err != nil {
		return r.handlePostgresError("create file", err)
	}

	return nil
}

func (r *Repository) GetFile(ctx context.Context, id uuid.UUID) (*simpleupload.FileRecord, error) {
	query := `
        SELECT id, storage_key, original_name, content_type, size,
               status, created_at, updated_at
        FROM upload_file WHERE id = $1`

	var file simpleupload.FileRecord
	err := r.db.QueryRow(ctx, query, id).Scan(
		&file.ID, &file.StorageKey, &file.OriginalName, &file.ContentType,
		&file.Size, &file.Status, &file.CreatedAt, &file.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simpleupload.ErrFileNotFound
		}
		return nil, r.handlePostgresError("get file", err)
	}

	return &file, nil
}

func (r *Repository) UpdateFile(ctx context.Context, file *simpleupload.FileRecord) error {
	query := `
		UPDATE upload_file SET
			original_name = $2, content_type = $3, size = $4,
			status = $5, updated_at = $6
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		file.ID, file.OriginalName, file.ContentType, file.Size,
		file.Status, file.UpdatedAt)

	if err != nil {
		return r.handlePostgresError("update file", err)
	}
	if tag.RowsAffected() == 0 {
		return simpleupload.ErrFileNotFound
	}

	return nil
}

// Derivative record operations

func (r *Repository) CreateDerivative(ctx context.Context, derivative *simpleupload.DerivativeRecord) error {
	query := `
		INSERT INTO upload_derivative (
			id, original_storage_key, derivative_storage_key,
			status, error, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		derivative.ID, derivative.OriginalStorageKey, derivative.DerivativeStorageKey,
		derivative.Status, derivative.Error, derivative.CreatedAt, derivative.UpdatedAt)

	if err != nil {
		return r.handlePostgresError("create derivative", err)
	}

	return nil
}

func (r *Repository) GetDerivative(ctx context.Context, id uuid.UUID) (*simpleupload.DerivativeRecord, error) {
	query := `
        SELECT id, original_storage_key, derivative_storage_key,
               status, error, created_at, updated_at
        FROM upload_derivative WHERE id = $1`

	var derivative simpleupload.DerivativeRecord
	err := r.db.QueryRow(ctx, query, id).Scan(
		&derivative.ID, &derivative.OriginalStorageKey, &derivative.DerivativeStorageKey,
		&derivative.Status, &derivative.Error, &derivative.CreatedAt, &derivative.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simpleupload.ErrDerivativeNotFound
		}
		return nil, r.handlePostgresError("get derivative", err)
	}

	return &derivative, nil
}

func (r *Repository) UpdateDerivative(ctx context.Context, derivative *simpleupload.DerivativeRecord) error {
	query := `
		UPDATE upload_derivative SET
			status = $2, error = $3, updated_at = $4
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		derivative.ID, derivative.Status, derivative.Error, derivative.UpdatedAt)

	if err != nil {
		return r.handlePostgresError("update derivative", err)
	}
	if tag.RowsAffected() == 0 {
		return simpleupload.ErrDerivativeNotFound
	}

	return nil
}

func (r *Repository) ListDerivativesByOriginalKey(ctx context.Context, originalStorageKey string) ([]*simpleupload.DerivativeRecord, error) {
	query := `
        SELECT id, original_storage_key, derivative_storage_key,
               status, error, created_at, updated_at
        FROM upload_derivative WHERE original_storage_key = $1
        ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, originalStorageKey)
	if err != nil {
		return nil, r.handlePostgresError("list derivatives", err)
	}
	defer rows.Close()

	var derivatives []*simpleupload.DerivativeRecord
	for rows.Next() {
		var derivative simpleupload.DerivativeRecord
		if err := rows.Scan(
			&derivative.ID, &derivative.OriginalStorageKey, &derivative.DerivativeStorageKey,
			&derivative.Status, &derivative.Error, &derivative.CreatedAt, &derivative.UpdatedAt); err != nil {
			return nil, err
		}
		derivatives = append(derivatives, &derivative)
	}

	return derivatives, nil
}
