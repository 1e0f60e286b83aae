package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/school-tracker/internal/config"
)

var (
	cfg     *config.Config
	cfgFile string
	verbose int
)

var rootCmd = &cobra.Command{
	Use:   "school-tracker",
	Short: "Map ranked schools and their nearest metro stations",
	Long:  "Parses a school rating, resolves each school through the search API (with an on-disk cache), assigns the nearest station and renders a colour-coded map.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if verbose > 0 {
			c.Log.Level = "debug"
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config.yaml if present)")
	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "print diagnostic info (repeatable)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
