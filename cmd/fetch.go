package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"airbnb-vacancy/scraper/insideairbnb"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the market's dataset from Inside Airbnb",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return insideairbnb.New(cfg, logger).Fetch(ctx, cfg.Market, cfg.MarketDir())
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}
