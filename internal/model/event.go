// internal/model/event.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

const (
	EventDeviceConnected    EventType = "DEVICE_CONNECTED"
	EventDeviceDisconnected EventType = "DEVICE_DISCONNECTED"
	EventOperationCompleted EventType = "OPERATION_COMPLETED"
	EventOperationFailed    EventType = "OPERATION_FAILED"
	EventTelemetry          EventType = "TELEMETRY"
)

// Event represents an event in the system
type Event struct {
	ID        uuid.UUID  `json:"id"`
	Type      EventType  `json:"type"`
	Source    string     `json:"source"`
	Data      JSONObject `json:"data"`
	Timestamp time.Time  `json:"timestamp"`
}

// NewEvent creates an event stamped with a fresh id and the current time
func NewEvent(eventType EventType, source string, data JSONObject) Event {
	return Event{
		ID:        uuid.New(),
		Type:      eventType,
		Source:    source,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// TelemetrySample is one poll of the live readings
type TelemetrySample struct {
	Pressure      uint16    `json:"pressure"`
	PulseDuration uint16    `json:"pulse_duration"`
	SampledAt     time.Time `json:"sampled_at"`
}
