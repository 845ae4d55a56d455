package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// FileConfig mirrors Config but uses strings for durations to make TOML and
// YAML friendly.
type FileConfig struct {
	InfluxHost       string   `toml:"influx_host" yaml:"influx_host"`
	InfluxToken      string   `toml:"influx_token" yaml:"influx_token"`
	InfluxAuthScheme string   `toml:"influx_auth_scheme" yaml:"influx_auth_scheme"`
	InfluxDatabase   string   `toml:"influx_database" yaml:"influx_database"`
	InfluxOrg        string   `toml:"influx_org" yaml:"influx_org"`
	InfluxBucket     string   `toml:"influx_bucket" yaml:"influx_bucket"`
	InfluxPath       string   `toml:"influx_path" yaml:"influx_path"`
	InfluxGzip       *bool    `toml:"influx_gzip" yaml:"influx_gzip"`
	Measurement      string   `toml:"measurement" yaml:"measurement"`
	Source           string   `toml:"source" yaml:"source"`
	MQTTBroker       string   `toml:"mqtt_broker" yaml:"mqtt_broker"`
	MQTTPort         int      `toml:"mqtt_port" yaml:"mqtt_port"`
	MQTTUser         string   `toml:"mqtt_user" yaml:"mqtt_user"`
	MQTTPassword     string   `toml:"mqtt_password" yaml:"mqtt_password"`
	MQTTClientID     string   `toml:"mqtt_client_id" yaml:"mqtt_client_id"`
	NATSURL          string   `toml:"nats_url" yaml:"nats_url"`
	Topics           []string `toml:"topics" yaml:"topics"`
	BufferAmount     int      `toml:"buffer_amount" yaml:"buffer_amount"`
	BufferAge        string   `toml:"buffer_age" yaml:"buffer_age"`
	HTTPTimeout      string   `toml:"http_timeout" yaml:"http_timeout"`
	TickInterval     string   `toml:"tick_interval" yaml:"tick_interval"`
	DrainTimeout     string   `toml:"drain_timeout" yaml:"drain_timeout"`
	MetricsAddr      string   `toml:"metrics_addr" yaml:"metrics_addr"`
	LogJSON          *bool    `toml:"log_json" yaml:"log_json"`
	Verbose          *bool    `toml:"verbose" yaml:"verbose"`
}

// LoadFileConfig reads and parses a config file. Files ending in .yaml or
// .yml are read as YAML, everything else as TOML.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml %s: %w", path, err)
		}
	default:
		if err := toml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse toml %s: %w", path, err)
		}
	}
	return fc, nil
}

// BufferLimits returns the buffer thresholds set in the file. Unset values
// are zero.
func (fc FileConfig) BufferLimits() (int, time.Duration, error) {
	var age time.Duration
	if fc.BufferAge != "" {
		d, err := parseDuration(fc.BufferAge)
		if err != nil {
			return 0, 0, fmt.Errorf("parse buffer_age: %w", err)
		}
		age = d
	}
	return fc.BufferAmount, age, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.topicflux/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".topicflux", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("influx-host", fc.InfluxHost, &cfg.InfluxHost)
	s.setString("influx-token", fc.InfluxToken, &cfg.InfluxToken)
	s.setString("influx-auth-scheme", fc.InfluxAuthScheme, &cfg.InfluxAuthScheme)
	s.setString("influx-database", fc.InfluxDatabase, &cfg.InfluxDatabase)
	s.setString("influx-org", fc.InfluxOrg, &cfg.InfluxOrg)
	s.setString("influx-bucket", fc.InfluxBucket, &cfg.InfluxBucket)
	s.setString("influx-path", fc.InfluxPath, &cfg.InfluxPath)
	s.setBool("influx-gzip", fc.InfluxGzip, &cfg.InfluxGzip)
	s.setString("measurement", fc.Measurement, &cfg.Measurement)

	s.setString("source", fc.Source, &cfg.Source)
	s.setString("mqtt-broker", fc.MQTTBroker, &cfg.MQTTBroker)
	s.setInt("mqtt-port", fc.MQTTPort, &cfg.MQTTPort)
	s.setString("mqtt-user", fc.MQTTUser, &cfg.MQTTUser)
	s.setString("mqtt-password", fc.MQTTPassword, &cfg.MQTTPassword)
	s.setString("mqtt-client-id", fc.MQTTClientID, &cfg.MQTTClientID)
	s.setString("nats-url", fc.NATSURL, &cfg.NATSURL)
	s.setStrings("topics", fc.Topics, &cfg.Topics)

	s.setInt("buffer-amount", fc.BufferAmount, &cfg.BufferAmount)
	if err := s.setDuration("buffer-age", fc.BufferAge, &cfg.BufferAge); err != nil {
		return err
	}
	if err := s.setDuration("timeout", fc.HTTPTimeout, &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("tick", fc.TickInterval, &cfg.TickInterval); err != nil {
		return err
	}
	if err := s.setDuration("drain-timeout", fc.DrainTimeout, &cfg.DrainTimeout); err != nil {
		return err
	}

	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)
	s.setBool("log-json", fc.LogJSON, &cfg.LogJSON)
	s.setBool("verbose", fc.Verbose, &cfg.Verbose)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
