// internal/model/snapshot.go
package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SnapshotSource tells where a snapshot's settings came from
type SnapshotSource string

const (
	SnapshotSourceDevice SnapshotSource = "DEVICE_READ"
	SnapshotSourceWrite  SnapshotSource = "DEVICE_WRITE"
)

// SettingList is a JSONB-backed list of settings
type SettingList []Setting

// Scan implements sql.Scanner
func (l *SettingList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("unsupported JSONB source type %T", value)
	}
	return json.Unmarshal(bytes, l)
}

// Value implements driver.Valuer
func (l SettingList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// SettingsSnapshot is a persisted copy of the staging collection
type SettingsSnapshot struct {
	ID          uuid.UUID      `json:"id" db:"id"`
	OperationID *uuid.UUID     `json:"operation_id,omitempty" db:"operation_id"`
	Source      SnapshotSource `json:"source" db:"source"`
	Settings    SettingList    `json:"settings" db:"settings"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
}

// NewSettingsSnapshot copies settings into a new snapshot
func NewSettingsSnapshot(source SnapshotSource, settings []Setting, operationID *uuid.UUID) *SettingsSnapshot {
	copied := make(SettingList, len(settings))
	copy(copied, settings)
	return &SettingsSnapshot{
		ID:          uuid.New(),
		OperationID: operationID,
		Source:      source,
		Settings:    copied,
		CreatedAt:   time.Now(),
	}
}
