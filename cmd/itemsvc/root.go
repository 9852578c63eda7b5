package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	Version = "0.3.0"
)

var (
	// cfg and logger are filled by the root command before any subcommand runs.
	cfg    settings
	logger *slog.Logger

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "itemsvc",
		Short: "item CRUD service",
		Long: fmt.Sprintf(`itemsvc (v%s)

A CRUD service for client-keyed items stored in DynamoDB, served from
AWS Lambda behind API Gateway or locally over HTTP. Every flag can also be
set via the environment, e.g. DYNAMODB_TABLE=items or LOG_LEVEL=debug.`, Version),
		SilenceUsage:      true,
		PersistentPreRunE: processConfig,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of itemsvc",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "itemsvc v%s\n", Version)
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(lambdaCmd)
	rootCmd.AddCommand(streamCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)

	setupFlags(rootCmd)
}

// processConfig binds the flags to viper and resolves the settings and logger.
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	var err error
	if cfg, err = loadSettings(viper.GetViper()); err != nil {
		return err
	}
	logger = newLogger(cfg, cmd.ErrOrStderr())
	slog.SetDefault(logger)
	return nil
}

// initConfig loads .env files and enables environment lookup.
func initConfig() {
	loadEnvFiles()
	configureEnv(viper.GetViper())
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
