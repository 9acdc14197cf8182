// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Typed socket configuration loaded from TOML, plus a thread-safe store with
// hot-reload propagation.

package control

import (
	"os"
	"slices"
	"sync"
	"time"

	"github.com/momentics/hiosock/api"
	"github.com/momentics/hiosock/resolve"
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// DefaultBufferSize is the largest chunk a stream hands to a single send or
// receive call.
const DefaultBufferSize = 65535

// Config holds tunables shared by the streams, resolver and CLI.
type Config struct {
	ConnectTimeoutMillis int    `toml:"connect_timeout_ms"`
	Backlog              int    `toml:"backlog"`
	BufferSize           int    `toml:"buffer_size"`
	Nameserver           string `toml:"nameserver"`
	LogLevel             string `toml:"log_level"`
	MetricsAddr          string `toml:"metrics_addr"`
	ListenAddr           string `toml:"listen_addr"`
	ListenPort           int    `toml:"listen_port"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		ConnectTimeoutMillis: 1000,
		Backlog:              50,
		BufferSize:           DefaultBufferSize,
		LogLevel:             "info",
		ListenAddr:           "0.0.0.0",
	}
}

// ConnectTimeout returns the configured connect timeout as a duration.
func (c Config) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutMillis) * time.Millisecond
}

// ListenEndpoint parses ListenAddr/ListenPort.
func (c Config) ListenEndpoint() (api.Endpoint, error) {
	addr, err := api.ParseAddr(c.ListenAddr)
	if err != nil {
		return api.Endpoint{}, errors.Wrap(err, "listen_addr")
	}
	return api.Endpoint{Addr: addr, Port: uint16(c.ListenPort)}, nil
}

// Validate rejects values no socket call can honor.
func (c Config) Validate() error {
	if c.ConnectTimeoutMillis < 0 {
		return errors.Wrapf(api.ErrInvalidArgument, "connect_timeout_ms must not be negative, got %d", c.ConnectTimeoutMillis)
	}
	if c.Backlog < 0 {
		return errors.Wrapf(api.ErrInvalidArgument, "backlog must not be negative, got %d", c.Backlog)
	}
	if c.BufferSize <= 0 {
		return errors.Wrapf(api.ErrInvalidArgument, "buffer_size must be positive, got %d", c.BufferSize)
	}
	if c.ListenPort < 0 || c.ListenPort > 65535 {
		return errors.Wrapf(api.ErrInvalidArgument, "listen_port must be within 0..65535, got %d", c.ListenPort)
	}
	if _, err := c.ListenEndpoint(); err != nil {
		return err
	}
	if c.Nameserver != "" {
		if _, err := resolve.ParseNameserver(c.Nameserver); err != nil {
			return err
		}
	}
	return nil
}

// ParseConfig decodes TOML over the defaults and validates the result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and parses a TOML file. An empty path yields defaults.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// ConfigStore holds the live configuration with listener support.
type ConfigStore struct {
	mu        sync.RWMutex
	config    Config
	listeners []func(Config)
}

// NewConfigStore initializes a store with cfg.
func NewConfigStore(cfg Config) *ConfigStore {
	return &ConfigStore{config: cfg}
}

// Get returns the current snapshot.
func (cs *ConfigStore) Get() Config {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.config
}

// Set validates and swaps in a new configuration, then notifies listeners
// synchronously in registration order.
func (cs *ConfigStore) Set(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	cs.mu.Lock()
	cs.config = cfg
	listeners := slices.Clone(cs.listeners)
	cs.mu.Unlock()
	for _, fn := range listeners {
		fn(cfg)
	}
	return nil
}

// Reload re-reads path and applies it.
func (cs *ConfigStore) Reload(path string) error {
	cfg, err := LoadConfig(path)
	if err != nil {
		return err
	}
	return cs.Set(cfg)
}

// OnReload registers a listener hook called on config changes.
func (cs *ConfigStore) OnReload(fn func(Config)) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}
