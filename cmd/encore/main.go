package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yair/encore/pkg/config"
	"github.com/yair/encore/pkg/logging"
)

var (
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "encore",
	Short: "encore - GraphQL over music catalogs, lyrics, concerts and weather",
	Long: `encore serves one GraphQL schema stitched together from several public
providers: iTunes for artists and songs, lyrics.ovh for lyrics, Bandsintown
for upcoming events and MetaWeather for the forecast on the day of a show.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Log.Level = "debug"
		}

		logger, err = logging.New(cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = "config.json"
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfig, "Config file (JSON or YAML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd, queryCmd, schemaCmd, historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
