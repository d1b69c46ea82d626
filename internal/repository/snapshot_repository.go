// internal/repository/snapshot_repository.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gcu-service/internal/database"
	"gcu-service/internal/model"
)

const snapshotColumns = `id, operation_id, source, settings, created_at`

// snapshotRepository implements SnapshotRepository on PostgreSQL
type snapshotRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *database.DB, logger *zap.Logger) SnapshotRepository {
	return &snapshotRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a snapshot
func (r *snapshotRepository) Create(ctx context.Context, snapshot *model.SettingsSnapshot) error {
	query := `
		INSERT INTO settings_snapshots (id, operation_id, source, settings, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		snapshot.ID, snapshot.OperationID, snapshot.Source,
		snapshot.Settings, snapshot.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create settings snapshot", zap.Error(err))
		return fmt.Errorf("failed to create snapshot: %w", err)
	}

	return nil
}

// GetByID retrieves a snapshot by ID
func (r *snapshotRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.SettingsSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM settings_snapshots WHERE id = $1`

	snapshot, err := scanSnapshot(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("snapshot %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return snapshot, nil
}

// List retrieves snapshots newest first
func (r *snapshotRepository) List(ctx context.Context, limit, offset int) ([]*model.SettingsSnapshot, int, error) {
	if limit < 1 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM settings_snapshots`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count snapshots: %w", err)
	}

	query := `SELECT ` + snapshotColumns + ` FROM settings_snapshots ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := []*model.SettingsSnapshot{}
	for rows.Next() {
		snapshot, err := scanSnapshot(rows)
		if err != nil {
			r.logger.Error("Failed to scan snapshot row", zap.Error(err))
			continue
		}
		snapshots = append(snapshots, snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate snapshots: %w", err)
	}

	return snapshots, total, nil
}

// Latest returns the newest snapshot of a source
func (r *snapshotRepository) Latest(ctx context.Context, source model.SnapshotSource) (*model.SettingsSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM settings_snapshots WHERE source = $1 ORDER BY created_at DESC LIMIT 1`

	snapshot, err := scanSnapshot(r.db.QueryRowContext(ctx, query, source))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s snapshot: %w", source, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}
	return snapshot, nil
}

func scanSnapshot(row rowScanner) (*model.SettingsSnapshot, error) {
	snapshot := &model.SettingsSnapshot{}
	err := row.Scan(
		&snapshot.ID, &snapshot.OperationID, &snapshot.Source,
		&snapshot.Settings, &snapshot.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}
