// Package config holds the typed service configuration loaded through viper.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const EnvPrefix = "OOF"

type NodeConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type StreamConfig struct {
	URL            string        `mapstructure:"url"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
}

type ProverConfig struct {
	URL             string        `mapstructure:"url"`
	MaxConcurrency  int           `mapstructure:"max_concurrency"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type BusConfig struct {
	Buffer int `mapstructure:"buffer"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type OutputConfig struct {
	PostgresURL string `mapstructure:"postgres_url"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// ContractsConfig names the tracked contracts on chain.
type ContractsConfig struct {
	TicketApp         string   `mapstructure:"ticket_app"`
	Hyllar            string   `mapstructure:"hyllar"`
	Hydentity         string   `mapstructure:"hydentity"`
	HydentityPassword string   `mapstructure:"hydentity_password"`
	TicketPrice       uint64   `mapstructure:"ticket_price"`
	ProveHistorical   []string `mapstructure:"prove_historical"`
}

type Config struct {
	ChainID     uint64          `mapstructure:"chain_id"`
	StartHeight uint64          `mapstructure:"start_height"`
	Node        NodeConfig      `mapstructure:"node"`
	Stream      StreamConfig    `mapstructure:"stream"`
	Prover      ProverConfig    `mapstructure:"prover"`
	Bus         BusConfig       `mapstructure:"bus"`
	Metrics     MetricsConfig   `mapstructure:"metrics"`
	Output      OutputConfig    `mapstructure:"output"`
	Log         LogConfig       `mapstructure:"log"`
	Contracts   ContractsConfig `mapstructure:"contracts"`
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("chain_id", 0)
	v.SetDefault("start_height", 0)
	v.SetDefault("node.url", "http://localhost:4321")
	v.SetDefault("node.timeout", 10*time.Second)
	v.SetDefault("stream.url", "ws://localhost:8080/ws")
	v.SetDefault("stream.reconnect_delay", time.Second)
	v.SetDefault("prover.url", "http://localhost:9000")
	v.SetDefault("prover.max_concurrency", 4)
	v.SetDefault("prover.shutdown_timeout", 30*time.Second)
	v.SetDefault("bus.buffer", 256)
	v.SetDefault("metrics.addr", "")
	v.SetDefault("output.postgres_url", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")
	v.SetDefault("contracts.ticket_app", "ticket_app")
	v.SetDefault("contracts.hyllar", "hyllar")
	v.SetDefault("contracts.hydentity", "hydentity")
	v.SetDefault("contracts.hydentity_password", "password")
	v.SetDefault("contracts.ticket_price", 15)
	v.SetDefault("contracts.prove_historical", []string{})
}

// BindEnv makes every key readable from OOF_-prefixed environment variables.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := validateURL("node.url", c.Node.URL, "http", "https"); err != nil {
		return err
	}
	if err := validateURL("prover.url", c.Prover.URL, "http", "https"); err != nil {
		return err
	}
	if c.Prover.MaxConcurrency <= 0 {
		return fmt.Errorf("prover.max_concurrency must be positive, got %d", c.Prover.MaxConcurrency)
	}
	if c.Prover.ShutdownTimeout <= 0 {
		return fmt.Errorf("prover.shutdown_timeout must be positive, got %s", c.Prover.ShutdownTimeout)
	}
	if c.Bus.Buffer < 0 {
		return fmt.Errorf("bus.buffer must not be negative, got %d", c.Bus.Buffer)
	}

	seen := make(map[string]string)
	for _, kv := range [][2]string{
		{"contracts.ticket_app", c.Contracts.TicketApp},
		{"contracts.hyllar", c.Contracts.Hyllar},
		{"contracts.hydentity", c.Contracts.Hydentity},
	} {
		key, name := kv[0], kv[1]
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%s must not be empty", key)
		}
		if other, ok := seen[name]; ok {
			return fmt.Errorf("contract name %q is used by both %s and %s", name, other, key)
		}
		seen[name] = key
	}
	for _, name := range c.Contracts.ProveHistorical {
		if _, ok := seen[name]; !ok {
			return fmt.Errorf("contracts.prove_historical names unknown contract %q", name)
		}
	}
	return nil
}

// ValidateStream checks the settings only the live follower needs.
func (c Config) ValidateStream() error {
	return validateURL("stream.url", c.Stream.URL, "ws", "wss")
}

func validateURL(key, raw string, schemes ...string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%s must not be empty", key)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return errors.WithMessagef(err, "%s is not a valid URL", key)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("%s must use one of %v, got %q", key, schemes, u.Scheme)
}
