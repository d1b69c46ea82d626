// internal/service/gcu_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"gcu-service/internal/config"
	"gcu-service/internal/events"
	"gcu-service/internal/gcu"
	"gcu-service/internal/model"
	"gcu-service/internal/protocol"
	"gcu-service/internal/repository"
	"gcu-service/internal/utils"
)

// ErrNotConnected is returned for device operations before Connect
var ErrNotConnected = errors.New("device not connected")

type requestIDKey struct{}

// WithRequestID attaches an API request id to ctx for operation records
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func requestIDFromContext(ctx context.Context) *string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return &id
	}
	return nil
}

// GCUService handles GCU business logic
type GCUService struct {
	mu sync.Mutex

	client        *gcu.Client
	operationRepo repository.OperationRepository
	snapshotRepo  repository.SnapshotRepository
	publisher     events.Publisher
	config        *config.Config
	logger        *utils.ServiceLogger
	deviceLogger  *utils.DeviceLogger

	connected     bool
	connectedAt   *time.Time
	firmware      *string
	lastOperation *time.Time
	lastError     *string
}

// NewGCUService creates a new GCU service. The repositories and publisher
// may be nil, in which case history and events are not recorded.
func NewGCUService(
	client *gcu.Client,
	operationRepo repository.OperationRepository,
	snapshotRepo repository.SnapshotRepository,
	publisher events.Publisher,
	cfg *config.Config,
	logger *zap.Logger,
) *GCUService {
	return &GCUService{
		client:        client,
		operationRepo: operationRepo,
		snapshotRepo:  snapshotRepo,
		publisher:     publisher,
		config:        cfg,
		logger:        utils.NewServiceLogger(logger, "gcu-service"),
		deviceLogger:  utils.NewDeviceLogger(logger, client.Link().Name(), cfg.Serial.Simulate),
	}
}

// Connect powers up the device
func (s *GCUService) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return nil
	}

	_, err := s.run(ctx, model.OperationTypeConnect, nil, func(ctx context.Context, _ *model.Operation) (model.JSONObject, error) {
		if err := s.client.Connect(ctx); err != nil {
			return nil, err
		}
		now := time.Now()
		s.connected = true
		s.connectedAt = &now
		return model.JSONObject{"port": s.client.Link().Name()}, nil
	})
	s.deviceLogger.LogConnection("connect", err)
	if err != nil {
		return err
	}

	s.publish(model.EventDeviceConnected, model.JSONObject{"port": s.client.Link().Name()})
	return nil
}

// Disconnect releases the device. Disconnecting an idle device is a no-op.
func (s *GCUService) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil
	}

	_, err := s.run(ctx, model.OperationTypeDisconnect, nil, func(ctx context.Context, _ *model.Operation) (model.JSONObject, error) {
		err := s.client.Disconnect(ctx)
		// The enable line is low even when the quit exchange failed
		s.connected = false
		s.connectedAt = nil
		return nil, err
	})
	s.deviceLogger.LogConnection("disconnect", err)

	s.publish(model.EventDeviceDisconnected, model.JSONObject{"port": s.client.Link().Name()})
	return err
}

// IsConnected reports whether the device is powered up
func (s *GCUService) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Status returns the current device state
func (s *GCUService) Status() *model.DeviceInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := &model.DeviceInfo{
		Port:            s.client.Link().Name(),
		Simulated:       s.config.Serial.Simulate,
		Status:          model.DeviceStatusDisconnected,
		FirmwareVersion: s.firmware,
		ConnectedAt:     s.connectedAt,
		LastOperation:   s.lastOperation,
		LastError:       s.lastError,
		StagedSettings:  len(s.client.Settings()),
	}
	if s.connected {
		info.Status = model.DeviceStatusConnected
		if s.lastError != nil {
			info.Status = model.DeviceStatusError
		}
	}
	return info
}

// Version queries the firmware version
func (s *GCUService) Version(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var version string
	_, err := s.runConnected(ctx, model.OperationTypeVersion, nil, func(ctx context.Context, _ *model.Operation) (model.JSONObject, error) {
		v, err := s.client.Version(ctx)
		if err != nil {
			return nil, err
		}
		version = v
		s.firmware = &v
		return model.JSONObject{"version": v}, nil
	})
	return version, err
}

// Pressure reads the live pressure
func (s *GCUService) Pressure(ctx context.Context) (uint16, error) {
	return s.readValue(ctx, model.OperationTypePressure, "pressure", s.client.Pressure)
}

// PulseDuration reads the live pulse duration
func (s *GCUService) PulseDuration(ctx context.Context) (uint16, error) {
	return s.readValue(ctx, model.OperationTypePulseDuration, "pulse_duration", s.client.PulseDuration)
}

// ReadRegister reads one register
func (s *GCUService) ReadRegister(ctx context.Context, address uint8) (uint16, error) {
	read := func(ctx context.Context) (uint16, error) {
		return s.client.ReadWord(ctx, address)
	}
	return s.readValue(ctx, model.OperationTypeReadRegister, "value", read, model.JSONObject{"address": address})
}

// WriteRegister writes one register
func (s *GCUService) WriteRegister(ctx context.Context, address uint8, value uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	request := model.JSONObject{"address": address, "value": value}
	_, err := s.runConnected(ctx, model.OperationTypeWriteRegister, request, func(ctx context.Context, _ *model.Operation) (model.JSONObject, error) {
		return nil, s.client.WriteWord(ctx, address, value)
	})
	return err
}

// ReadSettings reads every power level into the staging buffer and
// snapshots the result. A failed read leaves the partial collection staged.
func (s *GCUService) ReadSettings(ctx context.Context) ([]model.Setting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var settings []model.Setting
	_, err := s.runConnected(ctx, model.OperationTypeReadSettings, nil, func(ctx context.Context, op *model.Operation) (model.JSONObject, error) {
		err := s.client.ReadSettings(ctx)
		settings = s.client.Settings()
		if err != nil {
			return model.JSONObject{"levels_read": len(settings)}, err
		}
		s.saveSnapshot(ctx, model.SnapshotSourceDevice, settings, op)
		return model.JSONObject{"levels_read": len(settings)}, nil
	})
	return settings, err
}

// StagedSettings returns a copy of the staging buffer
func (s *GCUService) StagedSettings() []model.Setting {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client.Settings()
}

// ExportSettings writes the staging buffer as CSV
func (s *GCUService) ExportSettings(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client.SaveSettings(w)
}

// WriteSettings stages settings and writes every one of them to the device.
// The staged collection is snapshotted before the first register write.
func (s *GCUService) WriteSettings(ctx context.Context, settings []model.Setting) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	request := model.JSONObject{"levels": len(settings)}
	_, err := s.runConnected(ctx, model.OperationTypeWriteSettings, request, func(ctx context.Context, op *model.Operation) (model.JSONObject, error) {
		if err := s.client.ValidateSettings(settings); err != nil {
			return nil, err
		}
		s.client.SetSettings(settings)
		s.saveSnapshot(ctx, model.SnapshotSourceWrite, settings, op)
		if err := s.client.WriteAllSettings(ctx); err != nil {
			return nil, err
		}
		return model.JSONObject{"levels_written": len(settings)}, nil
	})
	return err
}

// ImportSettings decodes CSV settings and writes them to the device
func (s *GCUService) ImportSettings(ctx context.Context, r io.Reader) ([]model.Setting, error) {
	settings, err := gcu.DecodeSettings(r)
	if err != nil {
		return nil, err
	}
	return settings, s.WriteSettings(ctx, settings)
}

// SaveSettingsFile writes the staging buffer to a CSV file
func (s *GCUService) SaveSettingsFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client.SaveSettingsFile(path)
}

// WriteSettingsFile loads a CSV file and writes its settings to the device
func (s *GCUService) WriteSettingsFile(ctx context.Context, path string) ([]model.Setting, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &gcu.PersistenceError{Path: path, Err: err}
	}
	defer f.Close()

	settings, err := s.ImportSettings(ctx, f)
	var persErr *gcu.PersistenceError
	if errors.As(err, &persErr) && persErr.Path == "" {
		persErr.Path = path
	}
	return settings, err
}

// Sample reads the live values without recording an operation
func (s *GCUService) Sample(ctx context.Context) (*model.TelemetrySample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil, ErrNotConnected
	}

	pressure, err := s.client.Pressure(ctx)
	if err != nil {
		return nil, err
	}
	pulse, err := s.client.PulseDuration(ctx)
	if err != nil {
		return nil, err
	}

	s.deviceLogger.LogTelemetry(pressure, pulse)
	return &model.TelemetrySample{
		Pressure:      pressure,
		PulseDuration: pulse,
		SampledAt:     time.Now(),
	}, nil
}

// LinkStats returns the link diagnostics
func (s *GCUService) LinkStats() (open bool, stats protocol.ProtocolStats) {
	link := s.client.Link()
	return link.IsOpen(), link.Stats()
}

// Close disconnects the device and closes the link
func (s *GCUService) Close(ctx context.Context) error {
	if err := s.Disconnect(ctx); err != nil {
		s.logger.Warn("Disconnect on close failed", zap.Error(err))
	}
	return s.client.Link().Close()
}

// Helper methods

type operationFunc func(ctx context.Context, op *model.Operation) (model.JSONObject, error)

func (s *GCUService) readValue(
	ctx context.Context,
	opType model.OperationType,
	key string,
	read func(context.Context) (uint16, error),
	request ...model.JSONObject,
) (uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var req model.JSONObject
	if len(request) > 0 {
		req = request[0]
	}

	var value uint16
	_, err := s.runConnected(ctx, opType, req, func(ctx context.Context, _ *model.Operation) (model.JSONObject, error) {
		v, err := read(ctx)
		if err != nil {
			return nil, err
		}
		value = v
		return model.JSONObject{key: v}, nil
	})
	return value, err
}

// runConnected runs fn when the device is connected. Caller holds s.mu.
func (s *GCUService) runConnected(ctx context.Context, opType model.OperationType, request model.JSONObject, fn operationFunc) (*model.Operation, error) {
	if !s.connected {
		return nil, ErrNotConnected
	}
	return s.run(ctx, opType, request, fn)
}

// run executes fn as a recorded operation. Caller holds s.mu.
func (s *GCUService) run(ctx context.Context, opType model.OperationType, request model.JSONObject, fn operationFunc) (*model.Operation, error) {
	op := model.NewOperation(opType, request)
	op.RequestID = requestIDFromContext(ctx)

	if s.operationRepo != nil {
		if err := s.operationRepo.Create(ctx, op); err != nil {
			s.logger.Error("Failed to create operation record", zap.Error(err))
		}
	}

	logger := s.logger.Logger
	if op.RequestID != nil {
		logger = utils.LoggerWithRequestID(logger, *op.RequestID)
	}
	opLogger := utils.NewOperationLogger(logger, string(opType), op.ID.String())
	opLogger.Start()

	result, err := fn(ctx, op)
	kind := gcu.ErrorKind(err)
	op.Complete(result, kind, err)

	now := time.Now()
	s.lastOperation = &now
	if err != nil {
		msg := err.Error()
		s.lastError = &msg
		opLogger.Error(err, zap.String("error_kind", kind))
	} else {
		s.lastError = nil
		opLogger.Success()
	}

	if s.operationRepo != nil {
		if uerr := s.operationRepo.Update(context.WithoutCancel(ctx), op); uerr != nil {
			s.logger.Error("Failed to update operation record", zap.Error(uerr))
		}
	}

	s.publishOperation(op)
	if err != nil {
		return op, fmt.Errorf("%s failed: %w", opType, err)
	}
	return op, nil
}

func (s *GCUService) saveSnapshot(ctx context.Context, source model.SnapshotSource, settings []model.Setting, op *model.Operation) {
	if s.snapshotRepo == nil {
		return
	}
	snapshot := model.NewSettingsSnapshot(source, settings, &op.ID)
	if err := s.snapshotRepo.Create(ctx, snapshot); err != nil {
		s.logger.Error("Failed to store settings snapshot",
			zap.String("source", string(source)),
			zap.Error(err),
		)
	}
}

func (s *GCUService) publishOperation(op *model.Operation) {
	data := model.JSONObject{
		"operation_id":   op.ID.String(),
		"operation_type": string(op.OperationType),
		"status":         string(op.Status),
	}
	if op.DurationMs != nil {
		data["duration_ms"] = *op.DurationMs
	}
	if op.ErrorKind != nil {
		data["error_kind"] = *op.ErrorKind
		data["error"] = *op.ErrorMessage
		s.publish(model.EventOperationFailed, data)
		return
	}
	s.publish(model.EventOperationCompleted, data)
}

// PublishTelemetry publishes a telemetry sample as an event
func (s *GCUService) PublishTelemetry(sample *model.TelemetrySample) {
	s.publish(model.EventTelemetry, model.JSONObject{
		"pressure":       sample.Pressure,
		"pulse_duration": sample.PulseDuration,
		"sampled_at":     sample.SampledAt,
	})
}

func (s *GCUService) publish(eventType model.EventType, data model.JSONObject) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(model.NewEvent(eventType, "gcu-service", data))
}
