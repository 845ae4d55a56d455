package topicflux

import (
	"fmt"
	"time"

	httpAdapter "github.com/bft-labs/topicflux/internal/adapters/http"
	"github.com/bft-labs/topicflux/internal/app"
	"github.com/bft-labs/topicflux/internal/domain"
	"github.com/bft-labs/topicflux/internal/lineproto"
)

// Defaults applied by Config.SetDefaults.
const (
	DefaultInfluxURL    = "http://localhost:8086/"
	DefaultBufferAmount = app.DefaultMaxAmount
	DefaultBufferAge    = app.DefaultMaxAge
	DefaultTickInterval = app.DefaultTickInterval
	DefaultDrainTimeout = app.DefaultDrainTimeout
	DefaultHTTPTimeout  = time.Second
)

// Config describes where lines are written and how they are batched.
//
// Exactly one target must be set: Database (InfluxDB 1.x), Org with Bucket
// (InfluxDB 2.x) or Path (any endpoint accepting line protocol).
type Config struct {
	// InfluxURL is the base URL of the server.
	InfluxURL string

	Database string
	Org      string
	Bucket   string
	Path     string

	// Token is sent as "<AuthScheme> <Token>". AuthScheme defaults to "Token".
	Token      string
	AuthScheme string

	// Gzip compresses request bodies.
	Gzip bool

	// Measurement names the series. Defaults to "measurement".
	Measurement string

	// BufferAmount flushes once this many lines are pending.
	BufferAmount int
	// BufferAge flushes once the last flush is older than this.
	BufferAge time.Duration

	TickInterval time.Duration
	DrainTimeout time.Duration
	HTTPTimeout  time.Duration
}

// SetDefaults fills zero fields with defaults.
func (c *Config) SetDefaults() {
	if c.InfluxURL == "" {
		c.InfluxURL = DefaultInfluxURL
	}
	if c.Measurement == "" {
		c.Measurement = lineproto.DefaultMeasurement
	}
	if c.BufferAmount == 0 {
		c.BufferAmount = DefaultBufferAmount
	}
	if c.BufferAge == 0 {
		c.BufferAge = DefaultBufferAge
	}
	if c.TickInterval == 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.DrainTimeout == 0 {
		c.DrainTimeout = DefaultDrainTimeout
	}
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = DefaultHTTPTimeout
	}
}

// Validate checks the configuration. Errors wrap ErrInvalidConfig.
func (c Config) Validate() error {
	if err := c.target().Validate(); err != nil {
		return err
	}
	if err := c.Limits().validate(); err != nil {
		return err
	}
	if c.TickInterval < 0 || c.DrainTimeout < 0 || c.HTTPTimeout < 0 {
		return fmt.Errorf("%w: negative interval", domain.ErrInvalidConfig)
	}
	return nil
}

// Limits returns the buffer thresholds of the configuration.
func (c Config) Limits() Limits {
	return Limits{MaxAmount: c.BufferAmount, MaxAge: c.BufferAge}
}

func (c Config) target() httpAdapter.Target {
	return httpAdapter.Target{
		BaseURL:  c.InfluxURL,
		Database: c.Database,
		Org:      c.Org,
		Bucket:   c.Bucket,
		Path:     c.Path,
	}
}

// Limits are the buffer flush thresholds. They can be changed while running
// with Bridge.SetLimits.
type Limits struct {
	MaxAmount int
	MaxAge    time.Duration
}

func (l Limits) validate() error {
	if l.MaxAmount <= 0 {
		return fmt.Errorf("%w: buffer amount must be positive", domain.ErrInvalidConfig)
	}
	if l.MaxAge <= 0 {
		return fmt.Errorf("%w: buffer age must be positive", domain.ErrInvalidConfig)
	}
	return nil
}
