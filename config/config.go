// Package config loads keysig CLI and daemon settings through viper: built-in
// defaults, then an optional config file, then KEYSIG_* environment
// variables (KEYSIG_NODE_TARGET overrides node.target).
package config

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"google.golang.org/grpc"

	"xdao.co/keysig/grpcnode"
	"xdao.co/keysig/internal/logging"
	"xdao.co/keysig/storage"
	"xdao.co/keysig/storage/casregistry"
	"xdao.co/keysig/storage/localfs"

	_ "xdao.co/keysig/storage/badgercas"
	_ "xdao.co/keysig/storage/ipfs"
)

const (
	EnvPrefix = "KEYSIG"

	BackendLocalFS    = "localfs"
	BackendBadger     = "badger"
	BackendIPFS       = "ipfs"
	BackendReplicated = "replicated"

	defaultTarget      = "localhost:50211"
	defaultDialTimeout = 5 * time.Second
	defaultStoreDir    = ".keysig/store"
	defaultListen      = ":50211"
)

type Config struct {
	Node    NodeConfig    `mapstructure:"node"`
	Store   StoreConfig   `mapstructure:"store"`
	Log     LogConfig     `mapstructure:"log"`
	Seeds   SeedsConfig   `mapstructure:"seeds"`
	Lookupd LookupdConfig `mapstructure:"lookupd"`
}

type NodeConfig struct {
	Target      string        `mapstructure:"target"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxMsgBytes int           `mapstructure:"max_msg_bytes"`
}

type StoreConfig struct {
	// Backend is a registered backend name (localfs, badger, ipfs) or
	// replicated, which writes to localfs and badger under Dir/<name>.
	Backend string `mapstructure:"backend"`
	Dir     string `mapstructure:"dir"`
	// Mirrors are read-only localfs directories consulted after the primary.
	Mirrors []string `mapstructure:"mirrors"`
	Hydrate bool     `mapstructure:"hydrate"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type SeedsConfig struct {
	Dir string `mapstructure:"dir"`
}

type LookupdConfig struct {
	Listen      string `mapstructure:"listen"`
	Directory   string `mapstructure:"directory"`
	Cost        uint64 `mapstructure:"cost"`
	MaxInFlight int    `mapstructure:"max_in_flight"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("node.target", defaultTarget)
	v.SetDefault("node.dial_timeout", defaultDialTimeout)
	v.SetDefault("node.timeout", time.Duration(0))
	v.SetDefault("node.max_msg_bytes", 0)

	v.SetDefault("store.backend", BackendLocalFS)
	v.SetDefault("store.dir", defaultStoreDir)
	v.SetDefault("store.mirrors", []string{})
	v.SetDefault("store.hydrate", false)

	v.SetDefault("log.level", zerolog.InfoLevel.String())
	v.SetDefault("log.format", logging.FormatText)

	v.SetDefault("seeds.dir", "")

	v.SetDefault("lookupd.listen", defaultListen)
	v.SetDefault("lookupd.directory", "")
	v.SetDefault("lookupd.cost", 0)
	v.SetDefault("lookupd.max_in_flight", 0)
}

// New returns a viper instance with defaults and environment binding but no file.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// Load reads path (yaml, json or toml by extension) when non-empty and
// returns the validated result.
func Load(path string) (*Config, error) {
	v := New()
	if err := ReadFile(v, path); err != nil {
		return nil, err
	}
	return Decode(v)
}

// ReadFile merges the config file at path into v. An empty path is a no-op.
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("viper read config: %w", err)
	}
	return nil
}

// Decode unmarshals and validates the settings held by v.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	backends := append(casregistry.Names(), BackendReplicated)
	if !slices.Contains(backends, c.Store.Backend) {
		return fmt.Errorf("invalid store.backend %q. Must be one of: %s", c.Store.Backend, strings.Join(backends, ", "))
	}
	if c.Store.Dir == "" {
		return errors.New("store.dir is required")
	}
	formats := []string{logging.FormatText, logging.FormatJSON}
	if !slices.Contains(formats, strings.ToLower(c.Log.Format)) {
		return fmt.Errorf("invalid log.format %q. Must be one of: %s", c.Log.Format, strings.Join(formats, ", "))
	}
	if c.Node.DialTimeout < 0 || c.Node.Timeout < 0 {
		return errors.New("node timeouts must not be negative")
	}
	if c.Node.MaxMsgBytes < 0 {
		return errors.New("node.max_msg_bytes must not be negative")
	}
	if c.Lookupd.MaxInFlight < 0 {
		return errors.New("lookupd.max_in_flight must not be negative")
	}
	return nil
}

// Logger builds the logger described by c.
func (c LogConfig) Logger(out io.Writer) (zerolog.Logger, error) {
	return logging.New(logging.Options{Level: c.Level, Format: c.Format, Out: out})
}

// Dial connects to the configured node.
func (c NodeConfig) Dial(extra ...grpc.DialOption) (*grpcnode.Client, error) {
	client, err := grpcnode.Dial(c.Target, grpcnode.DialOptions{
		Timeout:     c.DialTimeout,
		MaxMsgBytes: c.MaxMsgBytes,
		Extra:       extra,
	})
	if err != nil {
		return nil, err
	}
	client.Timeout = c.Timeout
	return client, nil
}

// Open opens the configured store. Mirrors, if any, are wrapped around the
// primary as a storage.MultiCAS.
func (c StoreConfig) Open() (storage.CAS, func() error, error) {
	var (
		primary storage.CAS
		closeFn func() error
		err     error
	)
	if c.Backend == BackendReplicated {
		primary, closeFn, err = casregistry.OpenReplicated([]string{BackendLocalFS, BackendBadger}, c.Dir)
	} else {
		primary, closeFn, err = casregistry.Open(c.Backend, c.Dir)
	}
	if err != nil {
		return nil, nil, err
	}
	if len(c.Mirrors) == 0 {
		return primary, closeFn, nil
	}

	m := storage.MultiCAS{Primary: primary, Hydrate: c.Hydrate}
	for _, dir := range c.Mirrors {
		mirror, err := localfs.New(dir)
		if err != nil {
			_ = closeFn()
			return nil, nil, err
		}
		m.Mirrors = append(m.Mirrors, mirror)
	}
	return m, closeFn, nil
}
