package configwatcher

import "github.com/bft-labs/topicflux/pkg/topicflux"

// WithConfigWatcher returns a topicflux Option that reloads buffer limits
// from the config file while the bridge runs.
//
// Usage:
//
//	b, err := topicflux.New(cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{
//	        Path: "/etc/topicflux/config.toml",
//	    }),
//	)
func WithConfigWatcher(cfg Config) topicflux.Option {
	return topicflux.WithPlugin(New(cfg))
}

// WithDefaultConfigWatcher watches ~/.topicflux/config.toml.
func WithDefaultConfigWatcher() topicflux.Option {
	return WithConfigWatcher(DefaultConfig())
}
