// internal/repository/interfaces.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"gcu-service/internal/model"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("record not found")

// OperationRepository defines operation history access
type OperationRepository interface {
	Create(ctx context.Context, operation *model.Operation) error
	Update(ctx context.Context, operation *model.Operation) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Operation, error)
	List(ctx context.Context, filter *OperationFilter) ([]*model.Operation, int, error)
	GetOperationStats(ctx context.Context, since *time.Time) (*OperationStats, error)
	DeleteOldOperations(ctx context.Context, olderThan time.Time) (int64, error)
}

// SnapshotRepository defines settings snapshot access
type SnapshotRepository interface {
	Create(ctx context.Context, snapshot *model.SettingsSnapshot) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.SettingsSnapshot, error)
	List(ctx context.Context, limit, offset int) ([]*model.SettingsSnapshot, int, error)
	Latest(ctx context.Context, source model.SnapshotSource) (*model.SettingsSnapshot, error)
}

// OperationFilter represents operation listing filters
type OperationFilter struct {
	OperationType *model.OperationType   `json:"operation_type,omitempty"`
	Status        *model.OperationStatus `json:"status,omitempty"`
	StartDate     *time.Time             `json:"start_date,omitempty"`
	EndDate       *time.Time             `json:"end_date,omitempty"`
	Page          int                    `json:"page"`
	PerPage       int                    `json:"per_page"`
}

// Normalize clamps paging to sane values
func (f *OperationFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 || f.PerPage > 500 {
		f.PerPage = 50
	}
}

// OperationStats represents operation statistics
type OperationStats struct {
	TotalOperations int                           `json:"total_operations"`
	SuccessfulOps   int                           `json:"successful_operations"`
	FailedOps       int                           `json:"failed_operations"`
	AvgDurationMs   float64                       `json:"average_duration_ms"`
	ByStatus        map[model.OperationStatus]int `json:"by_status"`
}
