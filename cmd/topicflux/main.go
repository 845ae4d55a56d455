package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/topicflux/internal/cliconfig"
	tflog "github.com/bft-labs/topicflux/pkg/log"
	"github.com/bft-labs/topicflux/pkg/topicflux"
	"github.com/bft-labs/topicflux/plugins/configwatcher"
)

const helpDescription = `
Forward numeric values from MQTT or NATS messages to InfluxDB.

Payloads need no schema. JSON, MessagePack, CBOR and plain text ("21.5 °C",
"on") are understood; every number found becomes one line-protocol point
tagged with the topic segments and its key path inside the payload.

Lines are batched by count and age and retried with backoff when the
database is unavailable. On SIGINT/SIGTERM pending lines are written once
more; if that fails the exit status is 1.
`

var exampleUsage = strings.TrimSpace(`
  topicflux --influx-database telemetry 'home/#'
  topicflux --influx-org acme --influx-bucket sensors --influx-token $TOKEN 'plant/+/temp'
  topicflux --source nats --nats-url nats://bus:4222 --influx-database telemetry 'factory/#'
  topicflux --config $HOME/.topicflux/config.yaml --metrics-addr :9273
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return topicflux.Version
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	log := cliconfig.Logger(false, false)

	root := &cobra.Command{
		Use:          "topicflux [flags] [topic...]",
		Short:        "Forward numeric values from MQTT or NATS messages to InfluxDB",
		Long:         strings.TrimSpace(helpDescription),
		Example:      exampleUsage,
		Version:      fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })
			if len(args) > 0 {
				cfg.Topics = args
				changed["topics"] = true
			}

			watch := false
			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
				watch = true
			}

			// Environment overrides the file; flags override both.
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			log = cliconfig.Logger(cfg.Verbose, cfg.LogJSON)
			log.Info().Interface("config", cfg.Redacted()).Msg("configuration")

			return run(cmd.Context(), cfg, cfgFile, watch, log)
		},
	}

	f := root.Flags()
	f.StringVar(&cfgPath, "config", "", "path to config file, .toml or .yaml (default: $HOME/.topicflux/config.toml)")

	f.StringVar(&cfg.InfluxHost, "influx-host", cfg.InfluxHost, "InfluxDB base URL")
	f.StringVar(&cfg.InfluxToken, "influx-token", cfg.InfluxToken, "token sent in the Authorization header")
	f.StringVar(&cfg.InfluxAuthScheme, "influx-auth-scheme", cfg.InfluxAuthScheme, "Authorization scheme for the token (default Token)")
	f.StringVar(&cfg.InfluxDatabase, "influx-database", cfg.InfluxDatabase, "InfluxDB 1.x database (/write?db=)")
	f.StringVar(&cfg.InfluxOrg, "influx-org", cfg.InfluxOrg, "InfluxDB 2.x organization")
	f.StringVar(&cfg.InfluxBucket, "influx-bucket", cfg.InfluxBucket, "InfluxDB 2.x bucket")
	f.StringVar(&cfg.InfluxPath, "influx-path", cfg.InfluxPath, "custom write path, used as is")
	f.BoolVar(&cfg.InfluxGzip, "influx-gzip", cfg.InfluxGzip, "gzip request bodies")
	f.StringVar(&cfg.Measurement, "measurement", cfg.Measurement, "measurement name of every line")

	f.StringVar(&cfg.Source, "source", cfg.Source, "message bus: mqtt or nats")
	f.StringVar(&cfg.MQTTBroker, "mqtt-broker", cfg.MQTTBroker, "MQTT broker host or URL")
	f.IntVar(&cfg.MQTTPort, "mqtt-port", cfg.MQTTPort, "MQTT broker port")
	f.StringVar(&cfg.MQTTUser, "mqtt-user", cfg.MQTTUser, "MQTT username")
	f.StringVar(&cfg.MQTTPassword, "mqtt-password", cfg.MQTTPassword, "MQTT password")
	f.StringVar(&cfg.MQTTClientID, "mqtt-client-id", cfg.MQTTClientID, "MQTT client id (default topicflux-<random>)")
	f.StringVar(&cfg.NATSURL, "nats-url", cfg.NATSURL, "NATS server URL")

	f.IntVar(&cfg.BufferAmount, "buffer-amount", cfg.BufferAmount, "flush when this many lines are pending")
	f.DurationVar(&cfg.BufferAge, "buffer-age", cfg.BufferAge, "flush when the last flush is older than this")
	f.DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "HTTP timeout per write")
	f.DurationVar(&cfg.TickInterval, "tick", cfg.TickInterval, "how often flush thresholds are checked")
	f.DurationVar(&cfg.DrainTimeout, "drain-timeout", cfg.DrainTimeout, "time allowed for the final write on shutdown")
	if err := f.MarkHidden("tick"); err != nil {
		log.Info().Err(err).Msg("failed to hide tick flag")
	}

	f.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address (e.g. :9273)")
	f.BoolVar(&cfg.LogJSON, "log-json", cfg.LogJSON, "log JSON instead of console output")
	f.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "debug logging")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		log.Error().Err(err).Msg("topicflux")
		os.Exit(1)
	}
}

// run starts the bridge and blocks until ctx is canceled or the source
// closes. The returned error is the final drain error, if any.
func run(ctx context.Context, cfg cliconfig.Config, cfgFile string, watch bool, log zerolog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opts := []topicflux.Option{
		topicflux.WithLogger(tflog.NewZerolog(log)),
		topicflux.WithMetrics(reg),
		sourceOption(cfg),
	}
	if watch {
		opts = append(opts, configwatcher.WithConfigWatcher(configwatcher.Config{Path: cfgFile}))
	}

	b, err := topicflux.New(topicflux.Config{
		InfluxURL:    cfg.InfluxHost,
		Database:     cfg.InfluxDatabase,
		Org:          cfg.InfluxOrg,
		Bucket:       cfg.InfluxBucket,
		Path:         cfg.InfluxPath,
		Token:        cfg.InfluxToken,
		AuthScheme:   cfg.InfluxAuthScheme,
		Gzip:         cfg.InfluxGzip,
		Measurement:  cfg.Measurement,
		BufferAmount: cfg.BufferAmount,
		BufferAge:    cfg.BufferAge,
		TickInterval: cfg.TickInterval,
		DrainTimeout: cfg.DrainTimeout,
		HTTPTimeout:  cfg.HTTPTimeout,
	}, opts...)
	if err != nil {
		return fmt.Errorf("create bridge: %w", err)
	}
	defer b.Close()

	if err := b.Probe(ctx); err != nil {
		return err
	}

	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		metricsSrv = serveMetrics(cfg.MetricsAddr, reg, log)
	}

	// The bridge gets its own context: shutdown goes through Stop so the
	// final drain runs.
	if err := b.Start(context.Background()); err != nil {
		return fmt.Errorf("start bridge: %w", err)
	}

	select {
	case <-ctx.Done():
		log.Info().Msg("received signal, stopping...")
	case <-b.Done():
	}

	stopErr := b.Stop()
	if errors.Is(stopErr, topicflux.ErrNotRunning) {
		// The bridge ended on its own.
		stopErr = b.Err()
	}

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = metricsSrv.Shutdown(shutdownCtx)
		cancel()
	}
	return stopErr
}

func sourceOption(cfg cliconfig.Config) topicflux.Option {
	if cfg.Source == cliconfig.SourceNATS {
		return topicflux.WithNATS(topicflux.NATSConfig{
			URL:    cfg.NATSURL,
			Topics: cfg.Topics,
		})
	}
	return topicflux.WithMQTT(topicflux.MQTTConfig{
		Broker:   cfg.MQTTBroker,
		Port:     cfg.MQTTPort,
		Username: cfg.MQTTUser,
		Password: cfg.MQTTPassword,
		ClientID: cfg.MQTTClientID,
		Topics:   cfg.Topics,
	})
}

func serveMetrics(addr string, reg *prometheus.Registry, log zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info().Str("addr", addr).Msg("serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server")
		}
	}()
	return srv
}
