package database

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEmbeddedMigrations(t *testing.T) {
	src, err := iofs.New(migrationsFS, "migrations")
	require.NoError(t, err)
	defer src.Close()

	first, err := src.First()
	require.NoError(t, err)
	assert.EqualValues(t, 1, first)

	next, err := src.Next(first)
	require.NoError(t, err)
	assert.EqualValues(t, 2, next)

	r, _, err := src.ReadUp(next)
	require.NoError(t, err)
	body, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Contains(t, string(body), "settings_snapshots")

	r, _, err = src.ReadDown(first)
	require.NoError(t, err)
	body, err = io.ReadAll(r)
	require.NoError(t, err)
	assert.Contains(t, string(body), "DROP TABLE IF EXISTS gcu_operations")
}

func TestHealthCheck(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	db := Wrap(sqlDB, zap.NewNop())

	mock.ExpectPing()
	assert.NoError(t, db.HealthCheck(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("down"))
	assert.Error(t, db.HealthCheck(context.Background()))

	assert.Contains(t, db.GetStats(), "open_connections")

	mock.ExpectClose()
	require.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}
