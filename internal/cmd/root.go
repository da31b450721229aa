package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"geomarket/internal/config"
	"geomarket/internal/logging"
)

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "geomarket",
	Short: "Geo-aware marketplace backend",
	Long: `geomarket serves the marketplace HTTP API: merchants, categories, products,
per-merchant inventory, atomic order placement and cached nearby search.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		logging.InitLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default: ./config.yaml, ./deploy/config.yaml)")
}

// Execute запускает корневую команду
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
