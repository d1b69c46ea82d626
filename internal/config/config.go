// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"gcu-service/internal/protocol"
)

// Config represents the application configuration
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Serial    SerialConfig    `mapstructure:"serial"`
	GCU       GCUConfig       `mapstructure:"gcu"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Security  SecurityConfig  `mapstructure:"security"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig represents application metadata
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// SerialConfig represents the device line
type SerialConfig struct {
	Port        string        `mapstructure:"port"`
	Simulate    bool          `mapstructure:"simulate"`
	BaudRate    int           `mapstructure:"baud_rate"`
	DataBits    int           `mapstructure:"data_bits"`
	StopBits    int           `mapstructure:"stop_bits"`
	Parity      string        `mapstructure:"parity"`
	FlowControl string        `mapstructure:"flow_control"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

// GCUConfig represents protocol timings
type GCUConfig struct {
	SettleDelay    time.Duration `mapstructure:"settle_delay"`
	PowerUpDelay   time.Duration `mapstructure:"power_up_delay"`
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
	MaxLineLength  int           `mapstructure:"max_line_length"`
	PowerLevels    int           `mapstructure:"power_levels"`
	AutoConnect    bool          `mapstructure:"auto_connect"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	User         string        `mapstructure:"user"`
	Password     string        `mapstructure:"password"`
	DBName       string        `mapstructure:"dbname"`
	SSLMode      string        `mapstructure:"sslmode"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	MaxLifetime  time.Duration `mapstructure:"max_lifetime"`
	Retention    time.Duration `mapstructure:"retention"`
}

// SecurityConfig represents security configuration
type SecurityConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// TelemetryConfig represents live value polling and fan-out
type TelemetryConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
	MQTT     MQTTConfig    `mapstructure:"mqtt"`
}

// MQTTConfig represents the MQTT publisher
type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	BrokerURL   string `mapstructure:"broker_url"`
	ClientID    string `mapstructure:"client_id"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	QoS         byte   `mapstructure:"qos"`
	Retain      bool   `mapstructure:"retain"`
}

// flagKeys maps command line flags onto configuration keys
var flagKeys = map[string]string{
	"port":      "serial.port",
	"simulate":  "serial.simulate",
	"log-level": "logging.level",
}

// Load loads configuration from an optional file, GCU_ environment
// variables and the given flags. An empty path searches ./config.yaml.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	// Environment variable support
	v.SetEnvPrefix("GCU")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("error binding flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "gcu-service")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)

	// Serial defaults
	v.SetDefault("serial.port", "")
	v.SetDefault("serial.simulate", false)
	v.SetDefault("serial.baud_rate", 9600)
	v.SetDefault("serial.data_bits", 8)
	v.SetDefault("serial.stop_bits", 1)
	v.SetDefault("serial.parity", "none")
	v.SetDefault("serial.flow_control", "none")
	v.SetDefault("serial.read_timeout", "1s")

	// Protocol defaults
	v.SetDefault("gcu.settle_delay", "200ms")
	v.SetDefault("gcu.power_up_delay", "500ms")
	v.SetDefault("gcu.command_timeout", "10s")
	v.SetDefault("gcu.max_line_length", 128)
	v.SetDefault("gcu.power_levels", 3)
	v.SetDefault("gcu.auto_connect", false)

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8084")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "gcu_service")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.max_lifetime", "5m")
	v.SetDefault("database.retention", "720h")

	// Security defaults
	v.SetDefault("security.allowed_origins", []string{})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", true)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.interval", "5s")
	v.SetDefault("telemetry.mqtt.enabled", false)
	v.SetDefault("telemetry.mqtt.broker_url", "tcp://localhost:1883")
	v.SetDefault("telemetry.mqtt.client_id", "")
	v.SetDefault("telemetry.mqtt.topic_prefix", "gcu")
	v.SetDefault("telemetry.mqtt.qos", 0)
	v.SetDefault("telemetry.mqtt.retain", false)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Serial.Port == "" && !config.Serial.Simulate {
		return fmt.Errorf("serial.port is required unless serial.simulate is set")
	}
	if err := config.Serial.Line().Validate(); err != nil {
		return fmt.Errorf("serial: %w", err)
	}
	if config.Serial.ReadTimeout <= 0 {
		return fmt.Errorf("serial.read_timeout must be positive")
	}
	if config.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	if config.GCU.PowerLevels < 1 || config.GCU.PowerLevels > 4 {
		return fmt.Errorf("gcu.power_levels must be between 1 and 4")
	}
	if config.GCU.MaxLineLength < 0 {
		return fmt.Errorf("gcu.max_line_length must not be negative")
	}
	if config.Database.Enabled && config.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if config.Database.Enabled && config.Database.Retention <= 0 {
		return fmt.Errorf("database.retention must be positive")
	}
	if config.Telemetry.Enabled && config.Telemetry.Interval <= 0 {
		return fmt.Errorf("telemetry.interval must be positive")
	}
	if config.Telemetry.MQTT.Enabled && config.Telemetry.MQTT.BrokerURL == "" {
		return fmt.Errorf("telemetry.mqtt.broker_url is required")
	}
	if config.Telemetry.MQTT.QoS > 2 {
		return fmt.Errorf("telemetry.mqtt.qos must be 0, 1 or 2")
	}

	// Validate environment
	validEnvs := []string{"development", "staging", "production", "test"}
	if !contains(validEnvs, config.App.Environment) {
		return fmt.Errorf("app.environment must be one of: %v", validEnvs)
	}

	// Validate logging level
	validLevels := []string{"debug", "info", "warn", "error", "fatal"}
	if !contains(validLevels, config.Logging.Level) {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}

	return nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// Line returns the framing of the serial line
func (s SerialConfig) Line() protocol.LineSettings {
	return protocol.LineSettings{
		BaudRate:    s.BaudRate,
		DataBits:    s.DataBits,
		StopBits:    s.StopBits,
		Parity:      s.Parity,
		FlowControl: s.FlowControl,
	}
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User,
		c.Database.Password, c.Database.DBName, c.Database.SSLMode)
}

// GetServerAddr returns the server address
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// IsProduction checks if the environment is production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDebugEnabled checks if debug mode is enabled
func (c *Config) IsDebugEnabled() bool {
	return c.App.Debug || c.App.Environment == "development"
}
