package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/gridfinder/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "gridfinder",
	Short: "Find the nearest high-scoring grid centers",
	Long:  "Loads a scored grid dataset, filters it by score and ranks the nearest centers to a clicked or searched location.",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		if src, _ := cmd.Flags().GetString("source"); src != "" {
			c.Dataset.Source = src
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("source", "", "dataset path or URL (default from config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
