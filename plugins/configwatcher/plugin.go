// Package configwatcher reloads buffer thresholds of a running topicflux
// bridge when its config file changes.
package configwatcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/topicflux/internal/cliconfig"
	"github.com/bft-labs/topicflux/internal/ports"
	"github.com/bft-labs/topicflux/pkg/topicflux"
)

// Plugin watches one config file and applies buffer_amount and buffer_age
// to the bridge whenever the file is written.
type Plugin struct {
	mu sync.Mutex

	path          string
	debounceDelay time.Duration

	logger   topicflux.Logger
	limits   topicflux.LimitsController
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
}

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// Path is the TOML or YAML config file to watch.
	Path string

	// DebounceDelay is the delay to wait after a file change before reloading.
	// Default: 100 milliseconds
	DebounceDelay time.Duration
}

// DefaultConfig watches the default config file.
func DefaultConfig() Config {
	return Config{
		Path:          cliconfig.DefaultConfigPath(),
		DebounceDelay: 100 * time.Millisecond,
	}
}

// New creates a new config watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	return &Plugin{
		path:          cfg.Path,
		debounceDelay: cfg.DebounceDelay,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Initialize starts watching the config file.
func (p *Plugin) Initialize(ctx context.Context, cfg topicflux.PluginConfig) error {
	p.mu.Lock()
	p.logger = cfg.Logger
	p.limits = cfg.Limits
	p.mu.Unlock()

	if p.path == "" || p.limits == nil {
		p.logger.Warn("config watcher disabled: no config file")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Editors often replace the file, so the directory is watched.
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		_ = watcher.Close()
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("config watcher started", ports.String("path", p.path))

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)

	return nil
}

// Shutdown stops the config watcher.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.mu.Lock()
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()
	return nil
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			p.debounceReload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("config watcher error", ports.Err(err))
		}
	}
}

func (p *Plugin) debounceReload(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		p.reload()
	})
}

// reload applies the thresholds found in the file. Values missing from the
// file keep their current setting.
func (p *Plugin) reload() {
	fc, err := cliconfig.LoadFileConfig(p.path)
	if err != nil {
		p.logger.Warn("config reload failed", ports.String("path", p.path), ports.Err(err))
		return
	}
	amount, age, err := fc.BufferLimits()
	if err != nil {
		p.logger.Warn("config reload failed", ports.String("path", p.path), ports.Err(err))
		return
	}

	current := p.limits.Limits()
	next := current
	if amount > 0 {
		next.MaxAmount = amount
	}
	if age > 0 {
		next.MaxAge = age
	}
	if next == current {
		p.logger.Debug("config reloaded, buffer limits unchanged")
		return
	}
	if err := p.limits.SetLimits(next); err != nil {
		p.logger.Warn("config reload rejected", ports.Err(err))
	}
}

var _ topicflux.Plugin = (*Plugin)(nil)
