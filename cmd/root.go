package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"airbnb-vacancy/config"
	"airbnb-vacancy/utils"
)

var (
	market  string
	verbose bool

	cfg    *config.Config
	logger *utils.Logger
)

var rootCmd = &cobra.Command{
	Use:   "airbnb-vacancy",
	Short: "Vacancy and stale-listing analysis for Inside Airbnb markets",
	Long: `airbnb-vacancy loads the listings, calendar and reviews of one market,
infers stay lengths from review text, and derives per-listing vacancy and
stale-listing flags.

Expensive stages are cached under CACHE_DIR. Cached entries are never
invalidated automatically; run "airbnb-vacancy cache clear" after upgrading.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		cfg = config.Load()
		if cmd.Flags().Changed("market") {
			cfg.Market = market
		}
		if verbose {
			cfg.Verbose = true
		}
		logger = utils.NewLogger(cfg.Verbose)
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&market, "market", "m", "", "market to analyse (overrides MARKET)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
