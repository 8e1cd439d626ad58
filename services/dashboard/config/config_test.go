package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig(t *testing.T) {
	t.Parallel()

	testString := `
ListenAddress = "127.0.0.1:9090"
Timezone = "Asia/Singapore"
StalenessCutoff = "PT5M"
RefreshIntervalInSeconds = 15
InclusiveDateEnd = false

[Store]
Type = "badger"
Path = "db/badger"
CompressionLevel = 3

[Readings]
Mode = "snapshot"
HistoryCollection = "iot_gateway_data"
SnapshotCollection = "iot_gateway_reading"
SnapshotDocument = ""
TimestampField = "ts"
SensorIDField = "sensorID"

[Collections]
Thresholds = "sensor_configurations"
Users = "users"

[[Metrics]]
Prefix = "Temp"
Label = "Temperature"
Unit = "C"

[[Metrics]]
Prefix = "Humidity"
Label = "Humidity"
Unit = "%"
`

	cfg, err := ParseConfig([]byte(testString))
	require.Nil(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.ListenAddress)
	assert.Equal(t, 5*time.Minute, cfg.StalenessCutoff.Duration())
	assert.Equal(t, 15*time.Second, cfg.RefreshInterval())
	assert.False(t, cfg.InclusiveDateEnd)
	assert.Equal(t, 24*time.Hour, cfg.SessionLifetime.Duration())
	assert.Equal(t, StoreConfig{Type: StoreTypeBadger, Path: "db/badger", CompressionLevel: 3}, cfg.Store)
	assert.Equal(t, ReadingsModeSnapshot, cfg.Readings.Mode)
	assert.Equal(t, "ts", cfg.Readings.TimestampField)
	assert.Equal(t, "iot_gateway_data", cfg.Readings.HistoryCollection)
	assert.Equal(t, "iot_gateway_reading", cfg.Readings.SnapshotCollection)
	assert.Empty(t, cfg.Readings.SnapshotDocument)
	assert.Equal(t, []MetricConfig{
		{Prefix: "Temp", Label: "Temperature", Unit: "C"},
		{Prefix: "Humidity", Label: "Humidity", Unit: "%"},
	}, cfg.Metrics)

	loc, err := cfg.Location()
	require.Nil(t, err)
	assert.Equal(t, "Asia/Singapore", loc.String())
}

func TestConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := ParseConfig([]byte(`ListenAddress = "0.0.0.0:0"`))
	require.Nil(t, err)

	assert.Equal(t, 10*time.Minute, cfg.StalenessCutoff.Duration())
	assert.Equal(t, 30*time.Second, cfg.RefreshInterval())
	assert.True(t, cfg.InclusiveDateEnd)
	assert.Equal(t, StoreTypeSQLite, cfg.Store.Type)
	assert.Equal(t, ReadingsModeHistory, cfg.Readings.Mode)
	assert.Equal(t, "iot_gateway_data", cfg.Readings.HistoryCollection)
	assert.Equal(t, "iot_gateway_reading", cfg.Readings.SnapshotCollection)
	assert.Len(t, cfg.Metrics, 3)
}

func TestConfig_Invalid(t *testing.T) {
	t.Parallel()

	t.Run("bad duration should error", func(t *testing.T) {
		_, err := ParseConfig([]byte(`StalenessCutoff = "ten minutes"`))
		assert.Error(t, err)
	})
	t.Run("bad timezone should error", func(t *testing.T) {
		_, err := ParseConfig([]byte(`Timezone = "Mars/Olympus"`))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid timezone")
	})
	t.Run("unknown store should error", func(t *testing.T) {
		_, err := ParseConfig([]byte("[Store]\nType = \"mongo\""))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unknown store type")
	})
	t.Run("unknown readings mode should error", func(t *testing.T) {
		_, err := ParseConfig([]byte("[Readings]\nMode = \"stream\""))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unknown readings mode")
	})
	t.Run("empty history collection should error", func(t *testing.T) {
		_, err := ParseConfig([]byte("[Readings]\nHistoryCollection = \"\""))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "empty readings history collection")
	})
	t.Run("snapshot mode without snapshot collection should error", func(t *testing.T) {
		_, err := ParseConfig([]byte("[Readings]\nMode = \"snapshot\"\nSnapshotCollection = \"\""))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "empty readings snapshot collection")
	})
	t.Run("duplicated metric should error", func(t *testing.T) {
		_, err := ParseConfig([]byte("[[Metrics]]\nPrefix = \"Temp\"\n[[Metrics]]\nPrefix = \"Temp\""))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "duplicated metric prefix")
	})
	t.Run("zero refresh interval should error", func(t *testing.T) {
		_, err := ParseConfig([]byte(`RefreshIntervalInSeconds = 0`))
		assert.Error(t, err)
	})
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	t.Run("missing file should error", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read config file")
	})
	t.Run("should load the written file", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.ListenAddress = "127.0.0.1:1234"
		data, err := toml.Marshal(cfg)
		require.Nil(t, err)

		path := filepath.Join(t.TempDir(), "config.toml")
		require.Nil(t, os.WriteFile(path, data, 0o600))

		loaded, err := LoadConfig(path)
		require.Nil(t, err)
		assert.Equal(t, cfg, *loaded)
	})
}
