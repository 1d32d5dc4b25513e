package main

import (
	"fmt"
	"os"

	"github.com/mohammadpnp/theme-setup/internal/bootstrap"
	"github.com/mohammadpnp/theme-setup/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	driverName string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "setupctl",
	Short:         "Import theme demo content outside the setup wizard",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: $THEME_SETUP_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&driverName, "driver", "", "Database driver override (postgres|sqlite)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if driverName != "" {
		cfg.Database.Driver = driverName
	}
	return cfg, nil
}

// openApp builds the full component graph for commands that touch the site.
func openApp(cmd *cobra.Command) (*bootstrap.App, *zap.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger()
	if err != nil {
		return nil, nil, err
	}
	app, err := bootstrap.NewApp(cmd.Context(), cfg, nil, logger)
	if err != nil {
		return nil, nil, err
	}
	return app, logger, nil
}
