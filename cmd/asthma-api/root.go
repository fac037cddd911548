package main

import (
	"github.com/spf13/cobra"

	"github.com/kbukum/asthma-api/app"
	"github.com/kbukum/asthma-api/config"
	"github.com/kbukum/asthma-api/version"
)

// Global flags available to all subcommands.
var (
	configFile string
	envFile    string
)

// NewRootCmd creates the root command. Without a subcommand it serves.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           app.ServiceName,
		Short:         "Authentication and profile API for the asthma companion app",
		Version:       version.Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&envFile, "env", "", ".env file path")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewSeedTestUserCmd())

	return cmd
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API. Configuration comes from config.yml, the .env file
and the environment, in increasing order of precedence.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	return svc.Run(cmd.Context())
}

func loadConfig() (*app.Config, error) {
	cfg := &app.Config{}
	var opts []config.LoaderOption
	if configFile != "" {
		opts = append(opts, config.WithConfigFile(configFile))
	}
	if envFile != "" {
		opts = append(opts, config.WithEnvFile(envFile))
	}
	if err := config.LoadConfig(app.ServiceName, cfg, opts...); err != nil {
		return nil, err
	}
	if cfg.Version == "" {
		cfg.Version = version.Version
	}
	return cfg, nil
}
