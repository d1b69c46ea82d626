// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"gcu-service/internal/config"
	"gcu-service/internal/database"
	"gcu-service/internal/events"
	"gcu-service/internal/gcu"
	"gcu-service/internal/protocol/factory"
	"gcu-service/internal/repository"
	"gcu-service/internal/routes"
	"gcu-service/internal/service"
	"gcu-service/internal/telemetry"
	"gcu-service/internal/utils"
)

// Application represents the main application
type Application struct {
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
	database *database.DB

	ctx    context.Context
	cancel context.CancelFunc

	// Device
	client *gcu.Client
	bus    *events.EventBus
	mqtt   *telemetry.MQTTPublisher

	// Services
	gcuService       *service.GCUService
	operationService *service.OperationService

	// Repositories
	operationRepo repository.OperationRepository
	snapshotRepo  repository.SnapshotRepository

	router *routes.Router
}

// @title GCU Service API
// @version 1.0.0
// @description Control service for a GCU attached to a serial line

// @contact.name GCU Service API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8084
// @BasePath /
func main() {
	flags := pflag.NewFlagSet("gcu-server", pflag.ExitOnError)
	configPath := flags.String("config", "", "path to configuration file")
	flags.StringP("port", "p", "", "serial device, or tcp://host:port for a network bridge")
	flags.Bool("simulate", false, "use the in-memory device simulator")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.Parse(os.Args[1:])

	// Initialize application
	app, err := NewApplication(*configPath, flags)
	if err != nil {
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	// Start the application
	if err := app.Start(); err != nil {
		app.logger.Fatal("Failed to start application", zap.Error(err))
	}
}

// NewApplication creates a new application instance
func NewApplication(configPath string, flags *pflag.FlagSet) (*Application, error) {
	// Load configuration
	cfg, err := config.Load(configPath, flags)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	serviceLogger := utils.NewServiceLogger(logger, "gcu-service")
	serviceLogger.LogServiceStart(cfg.App.Version, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	app := &Application{
		config: cfg,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}

	// Initialize components
	if err := app.initializeDatabase(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	app.initializeRepositories()

	if err := app.initializeDevice(); err != nil {
		app.closeDatabase()
		cancel()
		return nil, fmt.Errorf("failed to initialize device: %w", err)
	}

	app.initializeServices()

	if err := app.initializeTelemetry(); err != nil {
		app.gcuService.Close(context.Background())
		app.closeDatabase()
		cancel()
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	app.initializeServer()

	return app, nil
}

// initializeDatabase sets up database connection and runs migrations.
// History is disabled when no database is configured.
func (app *Application) initializeDatabase() error {
	if !app.config.Database.Enabled {
		app.logger.Info("Database disabled, operation history will not be recorded")
		return nil
	}

	ctx, cancel := context.WithTimeout(app.ctx, 30*time.Second)
	defer cancel()

	db, err := database.NewConnection(ctx, app.config, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create database connection: %w", err)
	}
	app.database = db

	migrator := database.NewMigrator(db, app.logger)
	if err := migrator.Up(ctx); err != nil {
		db.Close()
		app.database = nil
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	app.logger.Info("Database initialized successfully")
	return nil
}

// initializeRepositories creates repository instances
func (app *Application) initializeRepositories() {
	if app.database == nil {
		return
	}

	app.operationRepo = repository.NewOperationRepository(app.database, app.logger)
	app.snapshotRepo = repository.NewSnapshotRepository(app.database, app.logger)

	app.logger.Info("Repositories initialized successfully")
}

// initializeDevice opens the link, builds the protocol client and starts the event bus
func (app *Application) initializeDevice() error {
	ctx, cancel := context.WithTimeout(app.ctx, 30*time.Second)
	defer cancel()

	client, err := factory.OpenClient(ctx, app.config, app.logger)
	if err != nil {
		return err
	}
	app.client = client

	app.bus = events.NewEventBus(app.logger)
	go app.bus.Start(app.ctx)

	app.logger.Info("Device link opened",
		zap.String("link", client.Link().Name()),
		zap.String("link_type", string(factory.ResolveLinkType(&app.config.Serial))),
	)
	return nil
}

// initializeServices creates service instances
func (app *Application) initializeServices() {
	app.gcuService = service.NewGCUService(
		app.client,
		app.operationRepo,
		app.snapshotRepo,
		app.bus,
		app.config,
		app.logger,
	)

	app.operationService = service.NewOperationService(
		app.operationRepo,
		app.snapshotRepo,
		app.logger,
	)

	app.logger.Info("Services initialized successfully")
}

// initializeTelemetry connects the MQTT publisher when it is enabled
func (app *Application) initializeTelemetry() error {
	if !app.config.Telemetry.MQTT.Enabled {
		return nil
	}

	publisher, err := telemetry.NewMQTTPublisher(app.config.Telemetry.MQTT, app.logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(app.ctx, 30*time.Second)
	defer cancel()
	if err := publisher.Connect(ctx); err != nil {
		return err
	}

	app.mqtt = publisher
	return nil
}

// initializeServer sets up HTTP server and routes
func (app *Application) initializeServer() {
	app.router = routes.NewRouter(
		app.config,
		app.logger,
		app.database,
		app.gcuService,
		app.operationService,
		app.bus,
	)

	router := app.router.SetupRouter()

	app.server = &http.Server{
		Addr:         app.config.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		IdleTimeout:  app.config.Server.IdleTimeout,
	}

	app.logger.Info("HTTP server initialized", zap.String("address", app.config.GetServerAddr()))
}

// startBackgroundServices starts background services
func (app *Application) startBackgroundServices() {
	app.router.StartStreaming(app.ctx)

	if app.config.GCU.AutoConnect {
		go app.autoConnect()
	}

	if app.config.Telemetry.Enabled {
		poller := telemetry.NewPoller(app.gcuService, app.config.Telemetry.Interval, app.logger)
		go poller.Run(app.ctx)
	}

	if app.mqtt != nil {
		ch, _ := app.bus.Subscribe()
		go app.mqtt.Run(app.ctx, ch)
	}

	if app.operationService.Enabled() {
		go app.startCleanupService()
	}

	app.logger.Info("Background services started")
}

// autoConnect powers up the device at startup
func (app *Application) autoConnect() {
	if err := app.gcuService.Connect(app.ctx); err != nil {
		app.logger.Error("Auto connect failed", zap.Error(err))
	}
}

// startCleanupService deletes operation history past the retention period
func (app *Application) startCleanupService() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	app.logger.Info("Cleanup service started", zap.Duration("retention", app.config.Database.Retention))

	for {
		select {
		case <-app.ctx.Done():
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(app.ctx, 10*time.Minute)
			if _, err := app.operationService.CleanupOperations(ctx, app.config.Database.Retention); err != nil {
				app.logger.Error("Failed to cleanup old operations", zap.Error(err))
			}
			cancel()
		}
	}
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown
func (app *Application) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	app.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	app.shutdown()
}

// shutdown performs graceful shutdown
func (app *Application) shutdown() {
	serviceLogger := utils.NewServiceLogger(app.logger, "gcu-service")
	serviceLogger.LogServiceStop("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		app.logger.Info("HTTP server stopped")
	}

	// Power the device down before the link goes away
	if err := app.gcuService.Close(ctx); err != nil {
		app.logger.Error("Device close error", zap.Error(err))
	} else {
		app.logger.Info("Device link closed")
	}

	app.cancel()

	if app.mqtt != nil {
		app.mqtt.Close()
	}

	app.closeDatabase()

	if err := utils.CloseLogger(app.logger); err != nil {
		fmt.Printf("Logger close error: %v\n", err)
	}
}

func (app *Application) closeDatabase() {
	if app.database == nil {
		return
	}
	if err := app.database.Close(); err != nil {
		app.logger.Error("Database close error", zap.Error(err))
	} else {
		app.logger.Info("Database connection closed")
	}
}

// Start runs the HTTP server and background services until a shutdown signal
func (app *Application) Start() error {
	go func() {
		app.logger.Info("Starting HTTP server", zap.String("address", app.server.Addr))

		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	app.startBackgroundServices()

	app.waitForShutdown()

	return nil
}
