package cliconfig

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/topicflux/internal/domain"
)

// Defaults for the command line.
const (
	DefaultInfluxHost   = "http://localhost:8086/"
	DefaultMeasurement  = "measurement"
	DefaultSource       = SourceMQTT
	DefaultMQTTBroker   = "localhost"
	DefaultMQTTPort     = 1883
	DefaultNATSURL      = "nats://127.0.0.1:4222"
	DefaultTopic        = "#"
	DefaultBufferAmount = 1000
	DefaultBufferAge    = 28200 * time.Millisecond
	DefaultHTTPTimeout  = time.Second
	DefaultTickInterval = 50 * time.Millisecond
	DefaultDrainTimeout = 10 * time.Second
)

// Source kinds.
const (
	SourceMQTT = "mqtt"
	SourceNATS = "nats"
)

// Config holds CLI configuration for topicflux.
type Config struct {
	InfluxHost       string
	InfluxToken      string
	InfluxAuthScheme string
	InfluxDatabase   string
	InfluxOrg        string
	InfluxBucket     string
	InfluxPath       string
	InfluxGzip       bool

	Measurement string

	Source       string
	MQTTBroker   string
	MQTTPort     int
	MQTTUser     string
	MQTTPassword string
	MQTTClientID string
	NATSURL      string
	Topics       []string

	BufferAmount int
	BufferAge    time.Duration
	HTTPTimeout  time.Duration
	TickInterval time.Duration
	DrainTimeout time.Duration

	MetricsAddr string
	LogJSON     bool
	Verbose     bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		InfluxHost:   DefaultInfluxHost,
		Measurement:  DefaultMeasurement,
		Source:       DefaultSource,
		MQTTBroker:   DefaultMQTTBroker,
		MQTTPort:     DefaultMQTTPort,
		NATSURL:      DefaultNATSURL,
		BufferAmount: DefaultBufferAmount,
		BufferAge:    DefaultBufferAge,
		HTTPTimeout:  DefaultHTTPTimeout,
		TickInterval: DefaultTickInterval,
		DrainTimeout: DefaultDrainTimeout,
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.InfluxHost == "" {
		return invalid("influx-host is required")
	}

	switch {
	case c.InfluxDatabase != "" && (c.InfluxOrg != "" || c.InfluxBucket != ""):
		return invalid("influx-database conflicts with influx-org/influx-bucket")
	case (c.InfluxOrg == "") != (c.InfluxBucket == ""):
		return invalid("influx-org and influx-bucket must be given together")
	case c.InfluxPath != "" && (c.InfluxDatabase != "" || c.InfluxOrg != ""):
		return invalid("influx-path cannot be combined with influx-database or influx-org")
	case c.InfluxDatabase == "" && c.InfluxOrg == "" && c.InfluxPath == "":
		return invalid("one of influx-database, influx-org/influx-bucket or influx-path is required")
	}

	if c.Measurement == "" {
		c.Measurement = DefaultMeasurement
	}

	c.Source = strings.ToLower(c.Source)
	switch c.Source {
	case "":
		c.Source = DefaultSource
	case SourceMQTT, SourceNATS:
	default:
		return invalid(fmt.Sprintf("unknown source %q (want %s or %s)", c.Source, SourceMQTT, SourceNATS))
	}

	if (c.MQTTUser == "") != (c.MQTTPassword == "") {
		return invalid("mqtt-user and mqtt-password must be given together")
	}
	if c.MQTTPort <= 0 || c.MQTTPort > 65535 {
		return invalid(fmt.Sprintf("mqtt-port %d out of range", c.MQTTPort))
	}

	if len(c.Topics) == 0 {
		c.Topics = []string{DefaultTopic}
	}

	if c.BufferAmount <= 0 {
		return invalid("buffer-amount must be positive")
	}
	if c.BufferAge <= 0 {
		return invalid("buffer-age must be positive")
	}
	if c.HTTPTimeout <= 0 {
		return invalid("timeout must be positive")
	}
	if c.TickInterval <= 0 {
		return invalid("tick must be positive")
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = DefaultDrainTimeout
	}
	return nil
}

// Redacted returns a copy safe for logging.
func (c Config) Redacted() Config {
	if c.InfluxToken != "" {
		c.InfluxToken = "*****"
	}
	if c.MQTTPassword != "" {
		c.MQTTPassword = "*****"
	}
	return c
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, msg)
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setStrings sets a list if not empty and flag not changed.
func (s *configSetter) setStrings(flag string, value []string, dst *[]string) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	*dst = append([]string(nil), value...)
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
// A bare number is read as seconds, so "28.2" and "28.2s" are the same.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := parseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}

// setListFromString splits a comma separated list.
func (s *configSetter) setListFromString(flag, value string, dst *[]string) {
	if value == "" || s.changed[flag] {
		return
	}
	var out []string
	for _, p := range strings.Split(value, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	s.setStrings(flag, out, dst)
}

func parseDuration(value string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("negative duration %q", value)
		}
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(value)
}
