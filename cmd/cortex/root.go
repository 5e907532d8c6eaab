package main

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// envPrefix prefixes every environment override, e.g. CORTEX_LOG_LEVEL.
const envPrefix = "CORTEX"

// newRootCmd builds the command tree. Flags, CORTEX_* environment
// variables and an optional config file all land in one viper instance;
// flags win over the environment, which wins over the file.
func newRootCmd() *cobra.Command {
	conf := viper.New()
	conf.SetEnvPrefix(envPrefix)
	conf.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	conf.AutomaticEnv()

	root := &cobra.Command{
		Use:   "cortex",
		Short: "Project source activity onto cortical meshes",
		Long: `
cortex evaluates scene scripts that load brain meshes, define point sources
and project their activity or density onto the mesh surface as per-vertex
colors.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := conf.GetString("config")
			if cfg == "" {
				return nil
			}
			conf.SetConfigFile(cfg)
			return errors.Wrap(conf.ReadInConfig(), "reading config")
		},
	}
	root.PersistentFlags().String("config", "",
		"Configuration file. Overridden by environment variables and flags.")
	root.PersistentFlags().String("log-level", "warn",
		"Log level, one of [debug, info, warn, error].")
	root.PersistentFlags().String("log-format", "console",
		"Log encoding, one of [console, json].")
	if err := conf.BindPFlags(root.PersistentFlags()); err != nil {
		panic(err)
	}

	root.AddCommand(newRunCmd(conf), newTemplatesCmd(), newPalettesCmd())
	return root
}

// newLogger builds the process logger from the resolved configuration.
func newLogger(conf *viper.Viper) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(conf.GetString("log-level"))
	if err != nil {
		return nil, errors.Wrap(err, "log-level")
	}
	cfg := zap.NewProductionConfig()
	switch format := conf.GetString("log-format"); format {
	case "json":
	case "console":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, errors.Errorf("log-format: unknown encoding %q", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg.Build()
}
