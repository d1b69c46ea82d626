// internal/model/device.go
package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// DeviceStatus represents the connection state of the GCU
type DeviceStatus string

const (
	DeviceStatusDisconnected DeviceStatus = "DISCONNECTED"
	DeviceStatusConnected    DeviceStatus = "CONNECTED"
	DeviceStatusError        DeviceStatus = "ERROR"
)

// JSONObject type for PostgreSQL JSONB objects
type JSONObject map[string]interface{}

// Scan implements sql.Scanner
func (j *JSONObject) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("unsupported JSONB source type %T", value)
	}
	return json.Unmarshal(bytes, j)
}

// Value implements driver.Valuer
func (j JSONObject) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// DeviceInfo describes the attached GCU
type DeviceInfo struct {
	Port            string       `json:"port"`
	Simulated       bool         `json:"simulated"`
	Status          DeviceStatus `json:"status"`
	FirmwareVersion *string      `json:"firmware_version,omitempty"`
	ConnectedAt     *time.Time   `json:"connected_at,omitempty"`
	LastOperation   *time.Time   `json:"last_operation,omitempty"`
	LastError       *string      `json:"last_error,omitempty"`
	StagedSettings  int          `json:"staged_settings"`
}

// IsConnected checks if the device enable line is asserted
func (d *DeviceInfo) IsConnected() bool {
	return d.Status == DeviceStatusConnected
}
