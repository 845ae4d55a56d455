package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (TOPICFLUX_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("influx-host", os.Getenv("TOPICFLUX_INFLUX_HOST"), &cfg.InfluxHost)
	s.setString("influx-token", os.Getenv("TOPICFLUX_INFLUX_TOKEN"), &cfg.InfluxToken)
	s.setString("influx-auth-scheme", os.Getenv("TOPICFLUX_INFLUX_AUTH_SCHEME"), &cfg.InfluxAuthScheme)
	s.setString("influx-database", os.Getenv("TOPICFLUX_INFLUX_DATABASE"), &cfg.InfluxDatabase)
	s.setString("influx-org", os.Getenv("TOPICFLUX_INFLUX_ORG"), &cfg.InfluxOrg)
	s.setString("influx-bucket", os.Getenv("TOPICFLUX_INFLUX_BUCKET"), &cfg.InfluxBucket)
	s.setString("influx-path", os.Getenv("TOPICFLUX_INFLUX_PATH"), &cfg.InfluxPath)
	s.setBoolFromString("influx-gzip", os.Getenv("TOPICFLUX_INFLUX_GZIP"), &cfg.InfluxGzip)
	s.setString("measurement", os.Getenv("TOPICFLUX_MEASUREMENT"), &cfg.Measurement)

	s.setString("source", os.Getenv("TOPICFLUX_SOURCE"), &cfg.Source)
	s.setString("mqtt-broker", os.Getenv("TOPICFLUX_MQTT_BROKER"), &cfg.MQTTBroker)
	if err := s.setIntFromString("mqtt-port", os.Getenv("TOPICFLUX_MQTT_PORT"), &cfg.MQTTPort); err != nil {
		return err
	}
	s.setString("mqtt-user", os.Getenv("TOPICFLUX_MQTT_USER"), &cfg.MQTTUser)
	s.setString("mqtt-password", os.Getenv("TOPICFLUX_MQTT_PASSWORD"), &cfg.MQTTPassword)
	s.setString("mqtt-client-id", os.Getenv("TOPICFLUX_MQTT_CLIENT_ID"), &cfg.MQTTClientID)
	s.setString("nats-url", os.Getenv("TOPICFLUX_NATS_URL"), &cfg.NATSURL)
	s.setListFromString("topics", os.Getenv("TOPICFLUX_TOPICS"), &cfg.Topics)

	if err := s.setIntFromString("buffer-amount", os.Getenv("TOPICFLUX_BUFFER_AMOUNT"), &cfg.BufferAmount); err != nil {
		return err
	}
	if err := s.setDuration("buffer-age", os.Getenv("TOPICFLUX_BUFFER_AGE"), &cfg.BufferAge); err != nil {
		return err
	}
	if err := s.setDuration("timeout", os.Getenv("TOPICFLUX_HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("tick", os.Getenv("TOPICFLUX_TICK_INTERVAL"), &cfg.TickInterval); err != nil {
		return err
	}
	if err := s.setDuration("drain-timeout", os.Getenv("TOPICFLUX_DRAIN_TIMEOUT"), &cfg.DrainTimeout); err != nil {
		return err
	}

	s.setString("metrics-addr", os.Getenv("TOPICFLUX_METRICS_ADDR"), &cfg.MetricsAddr)
	s.setBoolFromString("log-json", os.Getenv("TOPICFLUX_LOG_JSON"), &cfg.LogJSON)
	s.setBoolFromString("verbose", os.Getenv("TOPICFLUX_VERBOSE"), &cfg.Verbose)

	return nil
}
