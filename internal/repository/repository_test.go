package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gcu-service/internal/database"
	"gcu-service/internal/model"
)

func newMockDB(t *testing.T) (*database.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return database.Wrap(sqlDB, zap.NewNop()), mock
}

var operationRowColumns = []string{
	"id", "operation_type", "status", "request", "result", "error_kind",
	"error_message", "started_at", "completed_at", "duration_ms", "request_id",
}

func TestOperationRepositoryCreateAndUpdate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOperationRepository(db, zap.NewNop())
	ctx := context.Background()

	op := model.NewOperation(model.OperationTypeReadRegister, model.JSONObject{"address": 20})

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO gcu_operations")).
		WithArgs(op.ID, op.OperationType, model.OperationStatusProcessing,
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Create(ctx, op))

	op.Complete(model.JSONObject{"value": 42}, "", nil)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE gcu_operations SET")).
		WithArgs(op.ID, model.OperationStatusSuccess, sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Update(ctx, op))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE gcu_operations SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Update(ctx, op), ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOperationRepositoryGetByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOperationRepository(db, zap.NewNop())
	ctx := context.Background()

	id := uuid.New()
	started := time.Now().Add(-time.Second)
	mock.ExpectQuery(regexp.QuoteMeta("FROM gcu_operations WHERE id = $1")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(operationRowColumns).AddRow(
			id.String(), "VERSION", "SUCCESS", nil, []byte(`{"version":"GCU-1.2"}`), nil,
			nil, started, time.Now(), int64(12), "req-1",
		))

	op, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.OperationTypeVersion, op.OperationType)
	assert.Equal(t, "GCU-1.2", op.Result["version"])
	require.NotNil(t, op.DurationMs)
	assert.Equal(t, 12, *op.DurationMs)
	require.NotNil(t, op.RequestID)
	assert.Equal(t, "req-1", *op.RequestID)

	mock.ExpectQuery(regexp.QuoteMeta("FROM gcu_operations WHERE id = $1")).
		WillReturnRows(sqlmock.NewRows(operationRowColumns))
	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOperationRepositoryList(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOperationRepository(db, zap.NewNop())

	status := model.OperationStatusFailed
	filter := &OperationFilter{Status: &status, Page: 2, PerPage: 10}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM gcu_operations WHERE status = $1")).
		WithArgs(status).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(11)))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY started_at DESC LIMIT $2 OFFSET $3")).
		WithArgs(status, 10, 10).
		WillReturnRows(sqlmock.NewRows(operationRowColumns).AddRow(
			uuid.New().String(), "PRESSURE", "FAILED", nil, nil, "io",
			"io error during write: broken", time.Now(), time.Now(), int64(3), nil,
		))

	ops, total, err := repo.List(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, 11, total)
	require.Len(t, ops, 1)
	require.NotNil(t, ops[0].ErrorKind)
	assert.Equal(t, "io", *ops[0].ErrorKind)
	assert.Nil(t, ops[0].RequestID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOperationRepositoryStats(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOperationRepository(db, zap.NewNop())

	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY status")).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count", "avg"}).
			AddRow("SUCCESS", int64(3), 10.0).
			AddRow("TIMEOUT", int64(1), 50.0))

	stats, err := repo.GetOperationStats(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalOperations)
	assert.Equal(t, 3, stats.SuccessfulOps)
	assert.Equal(t, 1, stats.FailedOps)
	assert.InDelta(t, 20.0, stats.AvgDurationMs, 0.001)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM gcu_operations")).
		WillReturnResult(sqlmock.NewResult(0, 7))
	deleted, err := repo.DeleteOldOperations(context.Background(), time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 7, deleted)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotRepository(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSnapshotRepository(db, zap.NewNop())
	ctx := context.Background()

	opID := uuid.New()
	snapshot := model.NewSettingsSnapshot(model.SnapshotSourceDevice, []model.Setting{
		model.NewSetting(1, [9]uint16{1, 2, 3, 4, 5, 6, 7, 8, 9}),
	}, &opID)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO settings_snapshots")).
		WithArgs(snapshot.ID, snapshot.OperationID, snapshot.Source, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Create(ctx, snapshot))

	columns := []string{"id", "operation_id", "source", "settings", "created_at"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM settings_snapshots WHERE source = $1")).
		WithArgs(model.SnapshotSourceDevice).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			snapshot.ID.String(), nil, "DEVICE_READ",
			[]byte(`[{"power_level":1,"high_pressure":1,"volts":9}]`), time.Now(),
		))

	latest, err := repo.Latest(ctx, model.SnapshotSourceDevice)
	require.NoError(t, err)
	assert.Nil(t, latest.OperationID)
	require.Len(t, latest.Settings, 1)
	assert.EqualValues(t, 9, latest.Settings[0].Volts)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM settings_snapshots")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC LIMIT $1 OFFSET $2")).
		WithArgs(50, 0).
		WillReturnRows(sqlmock.NewRows(columns))
	list, total, err := repo.List(ctx, 0, -1)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)

	mock.ExpectQuery(regexp.QuoteMeta("FROM settings_snapshots WHERE id = $1")).
		WillReturnError(errors.New("connection reset"))
	_, err = repo.GetByID(ctx, uuid.New())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
