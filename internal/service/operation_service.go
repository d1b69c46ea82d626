// internal/service/operation_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gcu-service/internal/model"
	"gcu-service/internal/repository"
	"gcu-service/internal/utils"
)

// ErrHistoryDisabled is returned when no database is configured
var ErrHistoryDisabled = errors.New("operation history is disabled")

// OperationService exposes the recorded operation and snapshot history
type OperationService struct {
	operationRepo repository.OperationRepository
	snapshotRepo  repository.SnapshotRepository
	logger        *utils.ServiceLogger
}

// NewOperationService creates a new operation service instance
func NewOperationService(
	operationRepo repository.OperationRepository,
	snapshotRepo repository.SnapshotRepository,
	logger *zap.Logger,
) *OperationService {
	return &OperationService{
		operationRepo: operationRepo,
		snapshotRepo:  snapshotRepo,
		logger:        utils.NewServiceLogger(logger, "operation-service"),
	}
}

// Enabled reports whether history is recorded
func (os *OperationService) Enabled() bool {
	return os.operationRepo != nil && os.snapshotRepo != nil
}

// GetOperation retrieves operation details
func (os *OperationService) GetOperation(ctx context.Context, operationID uuid.UUID) (*model.Operation, error) {
	if os.operationRepo == nil {
		return nil, ErrHistoryDisabled
	}
	operation, err := os.operationRepo.GetByID(ctx, operationID)
	if err != nil {
		return nil, fmt.Errorf("operation not found: %w", err)
	}
	return operation, nil
}

// ListOperations lists operations with filtering
func (os *OperationService) ListOperations(ctx context.Context, filter *OperationFilter) ([]*model.Operation, *PaginationResult, error) {
	if os.operationRepo == nil {
		return nil, nil, ErrHistoryDisabled
	}

	repoFilter := filter.toRepoFilter()
	repoFilter.Normalize()

	operations, total, err := os.operationRepo.List(ctx, repoFilter)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list operations: %w", err)
	}

	return operations, newPagination(total, repoFilter.Page, repoFilter.PerPage), nil
}

// GetOperationStats summarizes operations since the given time
func (os *OperationService) GetOperationStats(ctx context.Context, since *time.Time) (*repository.OperationStats, error) {
	if os.operationRepo == nil {
		return nil, ErrHistoryDisabled
	}
	stats, err := os.operationRepo.GetOperationStats(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get operation stats: %w", err)
	}
	return stats, nil
}

// CleanupOperations deletes operations older than the retention period
func (os *OperationService) CleanupOperations(ctx context.Context, retention time.Duration) (int64, error) {
	if os.operationRepo == nil {
		return 0, ErrHistoryDisabled
	}

	deleted, err := os.operationRepo.DeleteOldOperations(ctx, time.Now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("failed to clean up operations: %w", err)
	}

	if deleted > 0 {
		os.logger.Info("Old operations deleted",
			zap.Int64("deleted", deleted),
			zap.Duration("retention", retention),
		)
	}
	return deleted, nil
}

// GetSnapshot retrieves a settings snapshot
func (os *OperationService) GetSnapshot(ctx context.Context, id uuid.UUID) (*model.SettingsSnapshot, error) {
	if os.snapshotRepo == nil {
		return nil, ErrHistoryDisabled
	}
	snapshot, err := os.snapshotRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("snapshot not found: %w", err)
	}
	return snapshot, nil
}

// ListSnapshots lists settings snapshots newest first
func (os *OperationService) ListSnapshots(ctx context.Context, page, perPage int) ([]*model.SettingsSnapshot, *PaginationResult, error) {
	if os.snapshotRepo == nil {
		return nil, nil, ErrHistoryDisabled
	}

	paging := repository.OperationFilter{Page: page, PerPage: perPage}
	paging.Normalize()

	snapshots, total, err := os.snapshotRepo.List(ctx, paging.PerPage, (paging.Page-1)*paging.PerPage)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	return snapshots, newPagination(total, paging.Page, paging.PerPage), nil
}

func newPagination(total, page, perPage int) *PaginationResult {
	return &PaginationResult{
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: (total + perPage - 1) / perPage,
	}
}

// DTOs for Operation Service

// OperationFilter represents operation listing filters
type OperationFilter struct {
	OperationType *model.OperationType   `json:"operation_type,omitempty"`
	Status        *model.OperationStatus `json:"status,omitempty"`
	StartDate     *time.Time             `json:"start_date,omitempty"`
	EndDate       *time.Time             `json:"end_date,omitempty"`
	Page          int                    `json:"page"`
	PerPage       int                    `json:"per_page"`
}

// toRepoFilter converts to repository filter
func (of *OperationFilter) toRepoFilter() *repository.OperationFilter {
	return &repository.OperationFilter{
		OperationType: of.OperationType,
		Status:        of.Status,
		StartDate:     of.StartDate,
		EndDate:       of.EndDate,
		Page:          of.Page,
		PerPage:       of.PerPage,
	}
}

// PaginationResult represents pagination information
type PaginationResult struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalPages int `json:"total_pages"`
}
