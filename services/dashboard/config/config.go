package config

import (
	"errors"
	"fmt"
	"os"
	"time"
	_ "time/tzdata" // IANA zones on hosts without zoneinfo

	"github.com/pelletier/go-toml/v2"
	"github.com/sosodev/duration"
)

const (
	// ReadingsModeHistory scans an append-only collection, one document per polling cycle
	ReadingsModeHistory = "history"
	// ReadingsModeSnapshot reads a rolling current-state document (or collection of per-sensor rows)
	ReadingsModeSnapshot = "snapshot"

	// StoreTypeSQLite selects the sqlite document store
	StoreTypeSQLite = "sqlite"
	// StoreTypeBadger selects the badger document store
	StoreTypeBadger = "badger"
)

// ISODuration is a time.Duration written in ISO 8601 form (PT10M) in the config file
type ISODuration time.Duration

// UnmarshalText decodes an ISO 8601 duration
func (d *ISODuration) UnmarshalText(b []byte) error {
	parsed, err := duration.Parse(string(b))
	if err != nil {
		return fmt.Errorf("invalid ISO 8601 duration %q: %w", string(b), err)
	}
	*d = ISODuration(parsed.ToTimeDuration())
	return nil
}

// MarshalText encodes the duration in ISO 8601 form
func (d ISODuration) MarshalText() ([]byte, error) {
	return []byte(duration.Format(time.Duration(d))), nil
}

// Duration returns the native duration
func (d ISODuration) Duration() time.Duration {
	return time.Duration(d)
}

// MetricConfig registers one metric prefix used in document field names
type MetricConfig struct {
	Prefix string `toml:"Prefix"`
	Label  string `toml:"Label"`
	Unit   string `toml:"Unit"`
}

// StoreConfig selects and configures the document store
type StoreConfig struct {
	Type             string `toml:"Type"`
	Path             string `toml:"Path"`
	CompressionLevel int    `toml:"CompressionLevel"`
}

// ReadingsConfig describes where the gateway writes readings and how they are shaped
type ReadingsConfig struct {
	Mode string `toml:"Mode"`
	// HistoryCollection is the append-only collection behind history queries and exports, in every mode
	HistoryCollection string `toml:"HistoryCollection"`
	// SnapshotCollection holds the rolling current-state document(s) read by the live view in snapshot mode
	SnapshotCollection string `toml:"SnapshotCollection"`
	SnapshotDocument   string `toml:"SnapshotDocument"`
	TimestampField     string `toml:"TimestampField"`
	SensorIDField      string `toml:"SensorIDField"`
}

// CollectionsConfig names the collections owned by the dashboard
type CollectionsConfig struct {
	Thresholds string `toml:"Thresholds"`
	Users      string `toml:"Users"`
}

// Config maps to the config.toml file for the dashboard service
type Config struct {
	ListenAddress            string            `toml:"ListenAddress"`
	StaticDir                string            `toml:"StaticDir"`
	Timezone                 string            `toml:"Timezone"`
	StalenessCutoff          ISODuration       `toml:"StalenessCutoff"`
	RefreshIntervalInSeconds uint32            `toml:"RefreshIntervalInSeconds"`
	InclusiveDateEnd         bool              `toml:"InclusiveDateEnd"`
	SessionLifetime          ISODuration       `toml:"SessionLifetime"`
	Store                    StoreConfig       `toml:"Store"`
	Readings                 ReadingsConfig    `toml:"Readings"`
	Collections              CollectionsConfig `toml:"Collections"`
	Metrics                  []MetricConfig    `toml:"Metrics"`
}

// DefaultConfig returns the configuration used for every field the file leaves out
func DefaultConfig() Config {
	return Config{
		ListenAddress:            "0.0.0.0:8080",
		Timezone:                 "UTC",
		StalenessCutoff:          ISODuration(10 * time.Minute),
		RefreshIntervalInSeconds: 30,
		InclusiveDateEnd:         true,
		SessionLifetime:          ISODuration(24 * time.Hour),
		Store: StoreConfig{
			Type:             StoreTypeSQLite,
			Path:             "db/documents.db",
			CompressionLevel: 2,
		},
		Readings: ReadingsConfig{
			Mode:               ReadingsModeHistory,
			HistoryCollection:  "iot_gateway_data",
			SnapshotCollection: "iot_gateway_reading",
			SnapshotDocument:   "current",
			TimestampField:     "timestamp",
			SensorIDField:      "sensorID",
		},
		Collections: CollectionsConfig{
			Thresholds: "sensor_configurations",
			Users:      "users",
		},
		Metrics: []MetricConfig{
			{Prefix: "Temp", Label: "Temperature", Unit: "°C"},
			{Prefix: "Pressure", Label: "Pressure", Unit: "bar"},
			{Prefix: "FlowRate", Label: "Flow rate", Unit: "m³/h"},
		},
	}
}

// LoadConfig parses a TOML file into the Config struct, on top of the defaults
func LoadConfig(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", filepath, err)
	}

	return ParseConfig(data)
}

// ParseConfig decodes TOML contents on top of the defaults and validates the result
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	err := toml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the configuration for values the service cannot run with
func (cfg *Config) Validate() error {
	_, err := cfg.Location()
	if err != nil {
		return err
	}
	if cfg.StalenessCutoff <= 0 {
		return errors.New("StalenessCutoff must be positive")
	}
	if cfg.RefreshIntervalInSeconds == 0 {
		return errors.New("RefreshIntervalInSeconds must be positive")
	}

	switch cfg.Store.Type {
	case StoreTypeSQLite, StoreTypeBadger:
	default:
		return fmt.Errorf("unknown store type %q", cfg.Store.Type)
	}

	switch cfg.Readings.Mode {
	case ReadingsModeHistory, ReadingsModeSnapshot:
	default:
		return fmt.Errorf("unknown readings mode %q", cfg.Readings.Mode)
	}
	if len(cfg.Readings.HistoryCollection) == 0 {
		return errors.New("empty readings history collection")
	}
	if cfg.Readings.Mode == ReadingsModeSnapshot && len(cfg.Readings.SnapshotCollection) == 0 {
		return errors.New("empty readings snapshot collection")
	}
	if len(cfg.Readings.TimestampField) == 0 {
		return errors.New("empty readings timestamp field")
	}
	if len(cfg.Collections.Thresholds) == 0 || len(cfg.Collections.Users) == 0 {
		return errors.New("empty thresholds or users collection")
	}

	if len(cfg.Metrics) == 0 {
		return errors.New("no metrics configured")
	}
	seen := make(map[string]struct{}, len(cfg.Metrics))
	for _, m := range cfg.Metrics {
		if len(m.Prefix) == 0 {
			return errors.New("empty metric prefix")
		}
		if _, found := seen[m.Prefix]; found {
			return fmt.Errorf("duplicated metric prefix %q", m.Prefix)
		}
		seen[m.Prefix] = struct{}{}
	}

	return nil
}

// Location resolves the canonical timezone
func (cfg *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}

	return loc, nil
}

// RefreshInterval returns the live view refresh period
func (cfg *Config) RefreshInterval() time.Duration {
	return time.Duration(cfg.RefreshIntervalInSeconds) * time.Second
}
