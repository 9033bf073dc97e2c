// Package config loads the runtime's static configuration from a YAML file:
// HTTP bind address, store backend selection, queue capacities, and the
// extended-card policy, following the example pack's config.Load /
// DefaultConfig / Validate convention (see AltairaLabs-PromptKit's
// pkg/config package).
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/a2a-labs/agent-runtime/internal/a2a/orchestrator"
	"gopkg.in/yaml.v3"
)

// StoreBackend selects which eventlog.Store implementation cmd/a2aserver
// wires up.
type StoreBackend string

const (
	StoreBackendMemory StoreBackend = "memory"
	StoreBackendRedis  StoreBackend = "redis"
	StoreBackendMongo  StoreBackend = "mongo"
)

// Config is the top-level runtime configuration.
type Config struct {
	// ListenAddr is the HTTP bind address, e.g. ":8080".
	ListenAddr string `yaml:"listen_addr"`

	// Store selects the event log backend.
	Store StoreConfig `yaml:"store"`

	// Orchestrator tunes the orchestrator.Config the server constructs.
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`

	// Pulse optionally enables the out-of-process pub/sub republisher
	// (SPEC_FULL.md §4.7). Nil/zero-value disables it.
	Pulse *PulseConfig `yaml:"pulse,omitempty"`

	// Card points at the agent card file served at /v1/card and the
	// extended-card policy.
	Card CardConfig `yaml:"card"`
}

// StoreConfig selects and configures the event log backend.
type StoreConfig struct {
	Backend StoreBackend `yaml:"backend"`
	// Redis is used when Backend == StoreBackendRedis.
	Redis RedisConfig `yaml:"redis,omitempty"`
	// Mongo is used when Backend == StoreBackendMongo.
	Mongo MongoConfig `yaml:"mongo,omitempty"`
}

// RedisConfig addresses a Redis instance backing redisstore.Store.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db"`
}

// MongoConfig addresses a MongoDB deployment backing mongostore.Store.
type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// PulseConfig configures the pulsesink republisher, which itself requires a
// Redis connection (goa.design/pulse streams are Redis-backed).
type PulseConfig struct {
	Enabled      bool   `yaml:"enabled"`
	RedisAddr    string `yaml:"redis_addr"`
	StreamMaxLen int    `yaml:"stream_max_len,omitempty"`
}

// CardConfig points at the static agent card and the authenticated
// extended-card policy, spec.md §6/SPEC_FULL.md §4.8.
type CardConfig struct {
	// File is the path to a JSON document holding the public card under
	// "base" (a protocol.AgentCard) and the extended card's extra skills
	// under "extendedSkills"; YAML is not accepted. Empty disables the card
	// entirely.
	File string `yaml:"file,omitempty"`
	// ExtendedCardEnabled gates agent/getAuthenticatedExtendedCard; false
	// answers ExtendedAgentCardNotConfigured regardless of File.
	ExtendedCardEnabled bool `yaml:"extended_card_enabled"`
}

// OrchestratorConfig carries the orchestrator tunables in YAML-friendly form.
// ToOrchestratorConfig passes QueueCapacity, AutoAppendHistory and
// AutoPersistEvents on to orchestrator.Config; RequestTimeout has no
// counterpart there and is not passed on.
type OrchestratorConfig struct {
	QueueCapacity     int           `yaml:"queue_capacity"`
	AutoAppendHistory *bool         `yaml:"auto_append_history,omitempty"`
	AutoPersistEvents *bool         `yaml:"auto_persist_events,omitempty"`
	RequestTimeout    time.Duration `yaml:"request_timeout,omitempty"`
}

// DefaultConfig returns the configuration spec.md §4.3/§9 describes: an
// in-memory store, default orchestrator tunables, Pulse disabled, and no
// card configured.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr: ":8080",
		Store:      StoreConfig{Backend: StoreBackendMemory},
		Orchestrator: OrchestratorConfig{
			QueueCapacity:  16,
			RequestTimeout: 30 * time.Second,
		},
	}
}

// Load reads and parses filename, overlaying it onto DefaultConfig, then
// validates the result.
func Load(filename string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Validate checks structural invariants Load can't catch via the YAML tags
// alone.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr must not be empty")
	}
	switch c.Store.Backend {
	case StoreBackendMemory:
	case StoreBackendRedis:
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("store.redis.addr is required when store.backend is %q", StoreBackendRedis)
		}
	case StoreBackendMongo:
		if c.Store.Mongo.URI == "" || c.Store.Mongo.Database == "" {
			return fmt.Errorf("store.mongo.uri and store.mongo.database are required when store.backend is %q", StoreBackendMongo)
		}
	default:
		return fmt.Errorf("unknown store.backend %q", c.Store.Backend)
	}
	if c.Orchestrator.QueueCapacity < 0 {
		return fmt.Errorf("orchestrator.queue_capacity must not be negative")
	}
	if c.Pulse != nil && c.Pulse.Enabled && c.Pulse.RedisAddr == "" {
		return fmt.Errorf("pulse.redis_addr is required when pulse.enabled is true")
	}
	return nil
}

// autoAppendHistory returns the configured value, defaulting to true when
// unset, matching orchestrator.DefaultConfig.
func (o OrchestratorConfig) autoAppendHistory() bool {
	if o.AutoAppendHistory == nil {
		return true
	}
	return *o.AutoAppendHistory
}

// autoPersistEvents returns the configured value, defaulting to true when
// unset, matching orchestrator.DefaultConfig.
func (o OrchestratorConfig) autoPersistEvents() bool {
	if o.AutoPersistEvents == nil {
		return true
	}
	return *o.AutoPersistEvents
}

// ToOrchestratorConfig converts the YAML-friendly shape into the
// orchestrator.Config the runtime actually wires up.
func (o OrchestratorConfig) ToOrchestratorConfig() orchestrator.Config {
	return orchestrator.Config{
		QueueCapacity:     o.QueueCapacity,
		AutoAppendHistory: o.autoAppendHistory(),
		AutoPersistEvents: o.autoPersistEvents(),
	}
}
