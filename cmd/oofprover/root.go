package oofprover

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hyle-oof/oofprover/internal/config"
	"github.com/hyle-oof/oofprover/internal/logging"
)

// app carries the configuration shared by every subcommand.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     config.Config
}

// flag name -> config key
var persistentFlagKeys = map[string]string{
	"chain-id":           "chain_id",
	"start-height":       "start_height",
	"node-url":           "node.url",
	"node-timeout":       "node.timeout",
	"prover-url":         "prover.url",
	"max-concurrency":    "prover.max_concurrency",
	"shutdown-timeout":   "prover.shutdown_timeout",
	"postgres-url":       "output.postgres_url",
	"log-level":          "log.level",
	"log-format":         "log.format",
	"log-file":           "log.file",
	"prove-historical":   "contracts.prove_historical",
	"hydentity-password": "contracts.hydentity_password",
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	config.SetDefaults(a.v)

	rootCmd := &cobra.Command{
		Use:           "oofprover",
		Short:         "Mirror tracked contracts from finalized blocks and prove their blobs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "Path to a config file (yaml, toml or json)")
	pf.Uint64("chain-id", 0, "Chain id placed in every transaction context")
	pf.Uint64("start-height", 0, "First block height whose blobs are proven")
	pf.String("node-url", "http://localhost:4321", "Node REST API base URL")
	pf.Duration("node-timeout", 0, "Timeout of node API requests")
	pf.String("prover-url", "http://localhost:9000", "Prover service base URL")
	pf.Int("max-concurrency", 4, "Maximum number of proofs generated at once")
	pf.Duration("shutdown-timeout", 0, "How long to wait for in-flight proofs on shutdown")
	pf.String("postgres-url", "", "PostgreSQL connection string of the journal (disabled when empty)")
	pf.String("log-level", "info", "Log level (debug, info, warn, error)")
	pf.String("log-format", "json", "Log format (json or text)")
	pf.String("log-file", "", "Write logs to a rotated file instead of stdout")
	pf.StringSlice("prove-historical", nil, "Contracts whose blobs below the start height are still proven")
	pf.String("hydentity-password", "", "Password handed to the identity contract as private input")

	for flag, key := range persistentFlagKeys {
		if err := a.v.BindPFlag(key, pf.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", flag, err))
		}
	}

	rootCmd.AddCommand(
		newStartCmd(a),
		newReplayCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

func (a *app) load() error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	config.BindEnv(a.v)

	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	if _, err := logging.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Log.File); err != nil {
		return err
	}
	a.cfg = cfg
	if used := a.v.ConfigFileUsed(); used != "" {
		slog.Debug("Loaded config file", "path", used)
	}
	return nil
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}
