package collectors

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yair/encore/pkg/domain"
)

const (
	defaultListLimit = 20
	maxListLimit     = 500
)

// QueryRepository stores the query history in sqlite.
type QueryRepository struct {
	db *sql.DB
}

func NewQueryRepository(db *sql.DB) (*QueryRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	repo := &QueryRepository{db: db}
	if err := repo.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return repo, nil
}

func (r *QueryRepository) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS queries (
		id TEXT PRIMARY KEY,
		operation_name TEXT,
		query TEXT NOT NULL,
		transport TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		error_count INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_queries_created_at ON queries(created_at);
	`

	_, err := r.db.Exec(query)
	return err
}

// Record inserts record, assigning an id and timestamp when missing.
func (r *QueryRepository) Record(ctx context.Context, record *domain.QueryRecord) error {
	if record == nil {
		return fmt.Errorf("query record cannot be nil")
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	query := `
	INSERT INTO queries (id, operation_name, query, transport, duration_ms, error_count, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.OperationName,
		record.Query,
		record.Transport,
		record.Duration.Milliseconds(),
		record.ErrorCount,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record query: %w", err)
	}

	return nil
}

// List returns the most recent queries first.
func (r *QueryRepository) List(ctx context.Context, limit int) ([]domain.QueryRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	sqlQuery := `
	SELECT id, operation_name, query, transport, duration_ms, error_count, created_at
	FROM queries
	ORDER BY created_at DESC
	LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, sqlQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list queries: %w", err)
	}
	defer rows.Close()

	var records []domain.QueryRecord
	for rows.Next() {
		var record domain.QueryRecord
		var operationName sql.NullString
		var durationMS int64

		err := rows.Scan(
			&record.ID,
			&operationName,
			&record.Query,
			&record.Transport,
			&durationMS,
			&record.ErrorCount,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan query: %w", err)
		}

		record.OperationName = operationName.String
		record.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, record)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return records, nil
}
