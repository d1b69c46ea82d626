// internal/model/operation.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// OperationType represents the type of GCU operation
type OperationType string

const (
	OperationTypeConnect       OperationType = "CONNECT"
	OperationTypeDisconnect    OperationType = "DISCONNECT"
	OperationTypeVersion       OperationType = "VERSION"
	OperationTypePressure      OperationType = "PRESSURE"
	OperationTypePulseDuration OperationType = "PULSE_DURATION"
	OperationTypeReadRegister  OperationType = "READ_REGISTER"
	OperationTypeWriteRegister OperationType = "WRITE_REGISTER"
	OperationTypeReadSettings  OperationType = "READ_SETTINGS"
	OperationTypeWriteSettings OperationType = "WRITE_SETTINGS"
)

// OperationStatus represents the status of an operation
type OperationStatus string

const (
	OperationStatusProcessing OperationStatus = "PROCESSING"
	OperationStatusSuccess    OperationStatus = "SUCCESS"
	OperationStatusFailed     OperationStatus = "FAILED"
	OperationStatusTimeout    OperationStatus = "TIMEOUT"
)

// Operation is one typed operation issued to the GCU
type Operation struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	OperationType OperationType   `json:"operation_type" db:"operation_type"`
	Status        OperationStatus `json:"status" db:"status"`
	Request       JSONObject      `json:"request,omitempty" db:"request"`
	Result        JSONObject      `json:"result,omitempty" db:"result"`
	ErrorKind     *string         `json:"error_kind,omitempty" db:"error_kind"`
	ErrorMessage  *string         `json:"error_message,omitempty" db:"error_message"`
	StartedAt     time.Time       `json:"started_at" db:"started_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
	DurationMs    *int            `json:"duration_ms,omitempty" db:"duration_ms"`
	RequestID     *string         `json:"request_id,omitempty" db:"request_id"`
}

// NewOperation creates a processing operation record
func NewOperation(opType OperationType, request JSONObject) *Operation {
	return &Operation{
		ID:            uuid.New(),
		OperationType: opType,
		Status:        OperationStatusProcessing,
		Request:       request,
		StartedAt:     time.Now(),
	}
}

// Complete marks the operation finished, failed when err is non-nil
func (op *Operation) Complete(result JSONObject, errKind string, err error) {
	completedAt := time.Now()
	durationMs := int(completedAt.Sub(op.StartedAt).Milliseconds())
	op.CompletedAt = &completedAt
	op.DurationMs = &durationMs
	op.Result = result

	if err == nil {
		op.Status = OperationStatusSuccess
		return
	}
	op.Status = OperationStatusFailed
	if errKind == "timeout" {
		op.Status = OperationStatusTimeout
	}
	msg := err.Error()
	op.ErrorMessage = &msg
	op.ErrorKind = &errKind
}

// IsCompleted checks if operation is completed
func (op *Operation) IsCompleted() bool {
	return op.Status != OperationStatusProcessing
}
