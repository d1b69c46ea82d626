// internal/protocol/factory/factory.go
package factory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"gcu-service/internal/config"
	"gcu-service/internal/gcu"
	"gcu-service/internal/protocol"
	"gcu-service/internal/protocol/serial"
	"gcu-service/internal/protocol/tcp"
	"gcu-service/internal/simulator"
)

const tcpScheme = "tcp://"

// LinkType names the transport behind a link
type LinkType string

const (
	LinkTypeSerial    LinkType = "serial"
	LinkTypeTCP       LinkType = "tcp"
	LinkTypeSimulator LinkType = "simulator"
)

// ResolveLinkType picks the transport for a serial configuration
func ResolveLinkType(cfg *config.SerialConfig) LinkType {
	switch {
	case cfg.Simulate:
		return LinkTypeSimulator
	case strings.HasPrefix(cfg.Port, tcpScheme):
		return LinkTypeTCP
	default:
		return LinkTypeSerial
	}
}

// CreateLink creates an unopened link for the configured port
func CreateLink(cfg *config.SerialConfig, logger *zap.Logger) (protocol.Link, error) {
	switch ResolveLinkType(cfg) {
	case LinkTypeSimulator:
		logger.Info("Creating simulated GCU link")
		return simulator.NewDevice(simulator.DefaultConfig(), logger), nil
	case LinkTypeTCP:
		return createTCPLink(cfg, logger)
	default:
		return createSerialLink(cfg, logger)
	}
}

// createSerialLink creates an OS serial port link
func createSerialLink(cfg *config.SerialConfig, logger *zap.Logger) (protocol.Link, error) {
	logger.Info("Creating serial link",
		zap.String("port", cfg.Port),
		zap.Int("baud_rate", cfg.BaudRate),
	)

	return serial.NewConnection(&serial.Config{
		Port:        cfg.Port,
		Line:        cfg.Line(),
		ReadTimeout: cfg.ReadTimeout,
	}, logger)
}

// createTCPLink creates a serial-over-TCP bridge link
func createTCPLink(cfg *config.SerialConfig, logger *zap.Logger) (protocol.Link, error) {
	address := strings.TrimPrefix(cfg.Port, tcpScheme)

	logger.Info("Creating TCP bridge link", zap.String("address", address))

	return tcp.NewConnection(&tcp.Config{
		Address:      address,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: 5 * time.Second,
		KeepAlive:    true,
	}, logger)
}

// ClientOptions builds protocol client options from configuration
func ClientOptions(cfg *config.Config) gcu.Options {
	return gcu.Options{
		Line:           cfg.Serial.Line(),
		ReadTimeout:    cfg.Serial.ReadTimeout,
		SettleDelay:    cfg.GCU.SettleDelay,
		PowerUpDelay:   cfg.GCU.PowerUpDelay,
		CommandTimeout: cfg.GCU.CommandTimeout,
		MaxLineLength:  cfg.GCU.MaxLineLength,
		PowerLevels:    cfg.GCU.PowerLevels,
	}
}

// OpenClient creates and opens the configured link and wraps it in a client.
// The link is closed again if the client cannot be built.
func OpenClient(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*gcu.Client, error) {
	link, err := CreateLink(&cfg.Serial, logger)
	if err != nil {
		return nil, &gcu.IOError{Op: "create link", Err: err}
	}
	if err := link.Open(ctx); err != nil {
		return nil, &gcu.IOError{Op: "open", Err: err}
	}

	client, err := gcu.NewClient(link, ClientOptions(cfg), logger)
	if err != nil {
		link.Close()
		return nil, fmt.Errorf("failed to create GCU client: %w", err)
	}
	return client, nil
}
