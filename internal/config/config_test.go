package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaults(t *testing.T) Config {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	cfg, err := Load(v)
	require.NoError(t, err)
	return cfg
}

func TestLoadDefaults(t *testing.T) {
	cfg := defaults(t)
	assert.Equal(t, "http://localhost:4321", cfg.Node.URL)
	assert.Equal(t, 10*time.Second, cfg.Node.Timeout)
	assert.Equal(t, 4, cfg.Prover.MaxConcurrency)
	assert.Equal(t, 256, cfg.Bus.Buffer)
	assert.Equal(t, "hyllar", cfg.Contracts.Hyllar)
	assert.Empty(t, cfg.Contracts.ProveHistorical)
	assert.NoError(t, cfg.ValidateStream())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("OOF_START_HEIGHT", "42")
	t.Setenv("OOF_PROVER_MAX_CONCURRENCY", "8")
	t.Setenv("OOF_NODE_TIMEOUT", "3s")

	v := viper.New()
	SetDefaults(v)
	BindEnv(v)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, uint64(42), cfg.StartHeight)
	assert.Equal(t, 8, cfg.Prover.MaxConcurrency)
	assert.Equal(t, 3*time.Second, cfg.Node.Timeout)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "empty node url",
			mutate:  func(c *Config) { c.Node.URL = "" },
			wantErr: "node.url must not be empty",
		},
		{
			name:    "prover url scheme",
			mutate:  func(c *Config) { c.Prover.URL = "ftp://prover" },
			wantErr: `prover.url must use one of [http https], got "ftp"`,
		},
		{
			name:    "zero concurrency",
			mutate:  func(c *Config) { c.Prover.MaxConcurrency = 0 },
			wantErr: "prover.max_concurrency must be positive, got 0",
		},
		{
			name:    "zero shutdown timeout",
			mutate:  func(c *Config) { c.Prover.ShutdownTimeout = 0 },
			wantErr: "prover.shutdown_timeout must be positive, got 0s",
		},
		{
			name:    "negative bus buffer",
			mutate:  func(c *Config) { c.Bus.Buffer = -1 },
			wantErr: "bus.buffer must not be negative, got -1",
		},
		{
			name:    "empty contract name",
			mutate:  func(c *Config) { c.Contracts.Hydentity = " " },
			wantErr: "contracts.hydentity must not be empty",
		},
		{
			name:    "duplicate contract name",
			mutate:  func(c *Config) { c.Contracts.Hyllar = "ticket_app" },
			wantErr: `contract name "ticket_app" is used by both contracts.ticket_app and contracts.hyllar`,
		},
		{
			name:    "unknown historical contract",
			mutate:  func(c *Config) { c.Contracts.ProveHistorical = []string{"hyllar", "nope"} },
			wantErr: `contracts.prove_historical names unknown contract "nope"`,
		},
		{
			name:   "historical opt in",
			mutate: func(c *Config) { c.Contracts.ProveHistorical = []string{"hyllar"} },
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaults(t)
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tc.wantErr)
		})
	}
}

func TestValidateStream(t *testing.T) {
	cfg := defaults(t)
	cfg.Stream.URL = "http://localhost:8080/ws"
	assert.EqualError(t, cfg.ValidateStream(), `stream.url must use one of [ws wss], got "http"`)
}
