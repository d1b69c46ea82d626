package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "serial:\n  port: /dev/ttyUSB0\n")

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyUSB0", cfg.Serial.Port)
	assert.Equal(t, 9600, cfg.Serial.BaudRate)
	assert.Equal(t, time.Second, cfg.Serial.ReadTimeout)
	assert.Equal(t, 200*time.Millisecond, cfg.GCU.SettleDelay)
	assert.Equal(t, 500*time.Millisecond, cfg.GCU.PowerUpDelay)
	assert.Equal(t, 10*time.Second, cfg.GCU.CommandTimeout)
	assert.Equal(t, 128, cfg.GCU.MaxLineLength)
	assert.Equal(t, 3, cfg.GCU.PowerLevels)
	assert.Equal(t, "0.0.0.0:8084", cfg.GetServerAddr())
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, 720*time.Hour, cfg.Database.Retention)
	assert.Equal(t, "gcu", cfg.Telemetry.MQTT.TopicPrefix)

	line := cfg.Serial.Line()
	assert.Equal(t, 8, line.DataBits)
	assert.Equal(t, "none", line.Parity)
}

func TestLoadEnvironmentAndFlags(t *testing.T) {
	t.Setenv("GCU_SERIAL_PORT", "/dev/ttyS1")
	t.Setenv("GCU_GCU_POWER_LEVELS", "4")

	cfg, err := Load(writeConfig(t, "logging:\n  level: warn\n"), nil)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyS1", cfg.Serial.Port)
	assert.Equal(t, 4, cfg.GCU.PowerLevels)
	assert.Equal(t, "warn", cfg.Logging.Level)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringP("port", "p", "", "")
	flags.Bool("simulate", false, "")
	flags.String("log-level", "", "")
	require.NoError(t, flags.Parse([]string{"-p", "/dev/ttyACM0", "--log-level", "debug"}))

	cfg, err = Load(writeConfig(t, "logging:\n  level: warn\n"), flags)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing port", "app:\n  name: gcu\n"},
		{"bad parity", "serial:\n  port: x\n  parity: sometimes\n"},
		{"too many levels", "serial:\n  port: x\ngcu:\n  power_levels: 5\n"},
		{"bad level", "serial:\n  port: x\nlogging:\n  level: loud\n"},
		{"bad environment", "serial:\n  port: x\napp:\n  environment: moon\n"},
		{"mqtt without broker", "serial:\n  simulate: true\ntelemetry:\n  mqtt:\n    enabled: true\n    broker_url: \"\"\n"},
		{"zero retention", "serial:\n  port: x\ndatabase:\n  enabled: true\n  retention: 0s\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body), nil)
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestLoadSimulateWithoutPort(t *testing.T) {
	cfg, err := Load(writeConfig(t, "serial:\n  simulate: true\n"), nil)
	require.NoError(t, err)
	assert.True(t, cfg.Serial.Simulate)
	assert.Contains(t, cfg.GetDatabaseDSN(), "dbname=gcu_service")
}
