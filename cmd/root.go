// Package cmd wires the capture → profile → replay pipeline into a CLI. The
// commands are thin glue; all behavior lives in internal packages.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ultradaoto/ProxMox-Social-sub001/internal/config"
	"github.com/ultradaoto/ProxMox-Social-sub001/internal/observability"
	"github.com/ultradaoto/ProxMox-Social-sub001/internal/storage"
)

var (
	cfgFile string
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:   "social",
	Short: "Capture, profile, and replay human input behavior.",
	Long: `social records an operator's raw pointer and keystroke events,
distills them into a statistical behavioral profile, and replays recorded or
synthesized action sequences with the profile's timing and motion
characteristics.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initializeConfig(); err != nil {
			return err
		}
		cfg = config.Default()
		if err := viper.Unmarshal(&cfg); err != nil {
			observability.InitializeLogger(config.Default().Logger)
			return fmt.Errorf("failed to unmarshal config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			observability.InitializeLogger(cfg.Logger)
			return err
		}
		observability.InitializeLogger(cfg.Logger)
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	defer observability.Sync()
	if err := rootCmd.Execute(); err != nil {
		observability.GetLogger().Error("command failed", zap.Error(err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

func initializeConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("SOCIAL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// openBlobStore builds the configured persistence backend.
func openBlobStore(ctx context.Context) (storage.BlobStore, func(), error) {
	log := observability.GetLogger()
	switch cfg.Storage.Backend {
	case "postgres":
		pool, err := newPgxPool(ctx, cfg.Storage.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		store, err := storage.NewPostgresStore(ctx, pool, log)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil
	default:
		store, err := storage.NewFileStore(cfg.Storage.Dir)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}
}
