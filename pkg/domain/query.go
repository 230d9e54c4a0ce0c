package domain

import (
	"context"
	"time"
)

// QueryRecord is one executed GraphQL operation. Only the request shape and
// outcome are kept, never provider data.
type QueryRecord struct {
	ID            string        `json:"id"`
	OperationName string        `json:"operation_name,omitempty"`
	Query         string        `json:"query"`
	Transport     string        `json:"transport"`
	Duration      time.Duration `json:"duration"`
	ErrorCount    int           `json:"error_count"`
	CreatedAt     time.Time     `json:"created_at"`
}

type QueryLog interface {
	Record(ctx context.Context, record *QueryRecord) error
	List(ctx context.Context, limit int) ([]QueryRecord, error)
}
