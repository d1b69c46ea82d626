// internal/repository/operation_repository.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gcu-service/internal/database"
	"gcu-service/internal/model"
)

const operationColumns = `id, operation_type, status, request, result, error_kind,
			   error_message, started_at, completed_at, duration_ms, request_id`

// operationRepository implements OperationRepository on PostgreSQL
type operationRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewOperationRepository creates a new operation repository
func NewOperationRepository(db *database.DB, logger *zap.Logger) OperationRepository {
	return &operationRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new operation
func (r *operationRepository) Create(ctx context.Context, operation *model.Operation) error {
	query := `
		INSERT INTO gcu_operations (
			id, operation_type, status, request, result, error_kind,
			error_message, started_at, completed_at, duration_ms, request_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		operation.ID, operation.OperationType, operation.Status,
		operation.Request, operation.Result, operation.ErrorKind,
		operation.ErrorMessage, operation.StartedAt, operation.CompletedAt,
		operation.DurationMs, operation.RequestID,
	)
	if err != nil {
		r.logger.Error("Failed to create operation", zap.Error(err))
		return fmt.Errorf("failed to create operation: %w", err)
	}

	return nil
}

// Update stores the outcome of an operation
func (r *operationRepository) Update(ctx context.Context, operation *model.Operation) error {
	query := `
		UPDATE gcu_operations SET
			status = $2, result = $3, error_kind = $4, error_message = $5,
			completed_at = $6, duration_ms = $7
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		operation.ID, operation.Status, operation.Result, operation.ErrorKind,
		operation.ErrorMessage, operation.CompletedAt, operation.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("failed to update operation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("operation %s: %w", operation.ID, ErrNotFound)
	}

	return nil
}

// GetByID retrieves an operation by ID
func (r *operationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Operation, error) {
	query := `SELECT ` + operationColumns + ` FROM gcu_operations WHERE id = $1`

	operation, err := scanOperation(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("operation %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get operation: %w", err)
	}

	return operation, nil
}

// List retrieves operations with filtering and pagination, newest first
func (r *operationRepository) List(ctx context.Context, filter *OperationFilter) ([]*model.Operation, int, error) {
	filter.Normalize()

	whereConditions := []string{}
	args := []interface{}{}
	argIndex := 1

	if filter.OperationType != nil {
		whereConditions = append(whereConditions, fmt.Sprintf("operation_type = $%d", argIndex))
		args = append(args, *filter.OperationType)
		argIndex++
	}

	if filter.Status != nil {
		whereConditions = append(whereConditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	if filter.StartDate != nil {
		whereConditions = append(whereConditions, fmt.Sprintf("started_at >= $%d", argIndex))
		args = append(args, *filter.StartDate)
		argIndex++
	}

	if filter.EndDate != nil {
		whereConditions = append(whereConditions, fmt.Sprintf("started_at <= $%d", argIndex))
		args = append(args, *filter.EndDate)
		argIndex++
	}

	whereClause := ""
	if len(whereConditions) > 0 {
		whereClause = " WHERE " + strings.Join(whereConditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM gcu_operations" + whereClause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count operations: %w", err)
	}

	offset := (filter.Page - 1) * filter.PerPage
	query := fmt.Sprintf(`SELECT %s FROM gcu_operations%s ORDER BY started_at DESC LIMIT $%d OFFSET $%d`,
		operationColumns, whereClause, argIndex, argIndex+1)
	args = append(args, filter.PerPage, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list operations: %w", err)
	}
	defer rows.Close()

	operations := []*model.Operation{}
	for rows.Next() {
		operation, err := scanOperation(rows)
		if err != nil {
			r.logger.Error("Failed to scan operation row", zap.Error(err))
			continue
		}
		operations = append(operations, operation)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate operations: %w", err)
	}

	return operations, total, nil
}

// GetOperationStats aggregates operations by status
func (r *operationRepository) GetOperationStats(ctx context.Context, since *time.Time) (*OperationStats, error) {
	query := `SELECT status, COUNT(*), COALESCE(AVG(duration_ms), 0) FROM gcu_operations`
	args := []interface{}{}
	if since != nil {
		query += ` WHERE started_at >= $1`
		args = append(args, *since)
	}
	query += ` GROUP BY status`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get operation stats: %w", err)
	}
	defer rows.Close()

	stats := &OperationStats{ByStatus: make(map[model.OperationStatus]int)}
	var weighted float64
	for rows.Next() {
		var (
			status model.OperationStatus
			count  int
			avg    float64
		)
		if err := rows.Scan(&status, &count, &avg); err != nil {
			return nil, fmt.Errorf("failed to scan operation stats: %w", err)
		}
		stats.ByStatus[status] = count
		stats.TotalOperations += count
		weighted += avg * float64(count)
		switch status {
		case model.OperationStatusSuccess:
			stats.SuccessfulOps += count
		case model.OperationStatusFailed, model.OperationStatusTimeout:
			stats.FailedOps += count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate operation stats: %w", err)
	}
	if stats.TotalOperations > 0 {
		stats.AvgDurationMs = weighted / float64(stats.TotalOperations)
	}

	return stats, nil
}

// DeleteOldOperations removes operations started before olderThan
func (r *operationRepository) DeleteOldOperations(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM gcu_operations WHERE started_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old operations: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	r.logger.Info("Old operations deleted", zap.Int64("count", deleted))
	return deleted, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOperation(row rowScanner) (*model.Operation, error) {
	operation := &model.Operation{}
	err := row.Scan(
		&operation.ID, &operation.OperationType, &operation.Status,
		&operation.Request, &operation.Result, &operation.ErrorKind,
		&operation.ErrorMessage, &operation.StartedAt, &operation.CompletedAt,
		&operation.DurationMs, &operation.RequestID,
	)
	if err != nil {
		return nil, err
	}
	return operation, nil
}
