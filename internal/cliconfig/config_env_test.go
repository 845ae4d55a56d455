package cliconfig

import (
	"reflect"
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies influx and buffer vars",
			envVars: map[string]string{
				"TOPICFLUX_INFLUX_HOST":     "http://influx:8086",
				"TOPICFLUX_INFLUX_DATABASE": "telemetry",
				"TOPICFLUX_BUFFER_AMOUNT":   "50",
				"TOPICFLUX_BUFFER_AGE":      "2.5",
				"TOPICFLUX_INFLUX_GZIP":     "true",
			},
			changed: map[string]bool{},
			expected: Config{
				InfluxHost:     "http://influx:8086",
				InfluxDatabase: "telemetry",
				BufferAmount:   50,
				BufferAge:      2500 * time.Millisecond,
				InfluxGzip:     true,
			},
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				"TOPICFLUX_MQTT_BROKER": "env-broker",
				"TOPICFLUX_MQTT_PORT":   "8883",
			},
			changed: map[string]bool{"mqtt-broker": true},
			initial: Config{MQTTBroker: "flag-broker"},
			expected: Config{
				MQTTBroker: "flag-broker",
				MQTTPort:   8883,
			},
		},
		{
			name:     "returns error for invalid duration",
			envVars:  map[string]string{"TOPICFLUX_TICK_INTERVAL": "not-a-duration"},
			changed:  map[string]bool{},
			expected: Config{},
			wantErr:  true,
		},
		{
			name:     "returns error for invalid int",
			envVars:  map[string]string{"TOPICFLUX_MQTT_PORT": "not-a-number"},
			changed:  map[string]bool{},
			expected: Config{},
			wantErr:  true,
		},
		{
			name:     "handles bool '1' as true",
			envVars:  map[string]string{"TOPICFLUX_VERBOSE": "1"},
			changed:  map[string]bool{},
			expected: Config{Verbose: true},
		},
		{
			name:     "handles bool 'false' as false",
			envVars:  map[string]string{"TOPICFLUX_LOG_JSON": "false"},
			changed:  map[string]bool{},
			initial:  Config{LogJSON: true},
			expected: Config{LogJSON: false},
		},
		{
			name:     "splits topic list",
			envVars:  map[string]string{"TOPICFLUX_TOPICS": "home/#, office/+/temp ,,"},
			changed:  map[string]bool{},
			expected: Config{Topics: []string{"home/#", "office/+/temp"}},
		},
		{
			name: "handles all field types correctly",
			envVars: map[string]string{
				"TOPICFLUX_INFLUX_HOST":        "https://influx.example.com",
				"TOPICFLUX_INFLUX_TOKEN":       "tok",
				"TOPICFLUX_INFLUX_AUTH_SCHEME": "Bearer",
				"TOPICFLUX_INFLUX_ORG":         "acme",
				"TOPICFLUX_INFLUX_BUCKET":      "sensors",
				"TOPICFLUX_MEASUREMENT":        "mqtt",
				"TOPICFLUX_SOURCE":             "nats",
				"TOPICFLUX_MQTT_USER":          "bob",
				"TOPICFLUX_MQTT_PASSWORD":      "secret",
				"TOPICFLUX_MQTT_CLIENT_ID":     "me",
				"TOPICFLUX_NATS_URL":           "nats://bus:4222",
				"TOPICFLUX_HTTP_TIMEOUT":       "3s",
				"TOPICFLUX_DRAIN_TIMEOUT":      "20s",
				"TOPICFLUX_METRICS_ADDR":       ":9100",
			},
			changed: map[string]bool{},
			expected: Config{
				InfluxHost:       "https://influx.example.com",
				InfluxToken:      "tok",
				InfluxAuthScheme: "Bearer",
				InfluxOrg:        "acme",
				InfluxBucket:     "sensors",
				Measurement:      "mqtt",
				Source:           "nats",
				MQTTUser:         "bob",
				MQTTPassword:     "secret",
				MQTTClientID:     "me",
				NATSURL:          "nats://bus:4222",
				HTTPTimeout:      3 * time.Second,
				DrainTimeout:     20 * time.Second,
				MetricsAddr:      ":9100",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)

			if tt.wantErr {
				if err == nil {
					t.Error("ApplyEnvConfig() expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyEnvConfig() unexpected error: %v", err)
			}
			if !reflect.DeepEqual(cfg, tt.expected) {
				t.Errorf("ApplyEnvConfig() = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

// Integration test: precedence order (CLI > Env > File)
func TestConfigPrecedence(t *testing.T) {
	trueVal := true

	fileConf := FileConfig{
		InfluxHost:     "http://file:8086",
		InfluxDatabase: "file-db",
		Measurement:    "file",
		InfluxGzip:     &trueVal,
	}

	t.Setenv("TOPICFLUX_INFLUX_HOST", "http://env:8086")
	t.Setenv("TOPICFLUX_INFLUX_DATABASE", "env-db")
	t.Setenv("TOPICFLUX_MQTT_BROKER", "env-broker")

	changed := map[string]bool{
		"influx-host": true,
	}

	cfg := Config{
		InfluxHost: "http://cli:8086",
	}

	if err := ApplyFileConfig(&cfg, fileConf, changed); err != nil {
		t.Fatalf("ApplyFileConfig failed: %v", err)
	}
	if err := ApplyEnvConfig(&cfg, changed); err != nil {
		t.Fatalf("ApplyEnvConfig failed: %v", err)
	}

	if cfg.InfluxHost != "http://cli:8086" {
		t.Errorf("InfluxHost = %v, want http://cli:8086 (CLI should win)", cfg.InfluxHost)
	}
	if cfg.InfluxDatabase != "env-db" {
		t.Errorf("InfluxDatabase = %v, want env-db (env should override file)", cfg.InfluxDatabase)
	}
	if cfg.MQTTBroker != "env-broker" {
		t.Errorf("MQTTBroker = %v, want env-broker (env should set)", cfg.MQTTBroker)
	}
	if cfg.Measurement != "file" {
		t.Errorf("Measurement = %v, want file (file should set)", cfg.Measurement)
	}
	if !cfg.InfluxGzip {
		t.Errorf("InfluxGzip = false, want true (file should set)")
	}
}
