package topicflux

import (
	"context"
	"fmt"
)

// Plugin extends a Bridge with optional behavior. Plugins are initialized by
// Start in registration order and shut down by Stop in reverse order.
type Plugin interface {
	Name() string
	Initialize(ctx context.Context, cfg PluginConfig) error
	Shutdown(ctx context.Context) error
}

// PluginConfig is handed to plugins on Initialize.
type PluginConfig struct {
	Logger Logger
	// Limits reads and updates the buffer thresholds of the running bridge.
	Limits LimitsController
}

// LimitsController is implemented by *Bridge.
type LimitsController interface {
	Limits() Limits
	SetLimits(Limits) error
}

// BasePlugin implements Plugin with no-ops.
type BasePlugin struct{}

func (BasePlugin) Name() string                                   { return "base" }
func (BasePlugin) Initialize(context.Context, PluginConfig) error { return nil }
func (BasePlugin) Shutdown(context.Context) error                 { return nil }

// initializePlugin converts a panic in p into an error.
func initializePlugin(ctx context.Context, p Plugin, cfg PluginConfig) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("plugin %s panicked: %v", p.Name(), r)
		}
	}()
	return p.Initialize(ctx, cfg)
}

func shutdownPlugin(ctx context.Context, p Plugin) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("plugin %s panicked: %v", p.Name(), r)
		}
	}()
	return p.Shutdown(ctx)
}
