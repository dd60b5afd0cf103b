package cmd

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"airbnb-vacancy/cache"
	"airbnb-vacancy/services"
)

var allMarkets bool

// cachedStages are the stages that memoize their output.
var cachedStages = []string{services.StageReviewNormalization, services.StageStayDuration}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear cached stage results",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached stage results",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := cache.NewFileStore(cfg.CacheDir)
		if err != nil {
			return err
		}
		entries, err := store.Entries()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Printf("  No cached entries in %s\n", store.Dir())
			return nil
		}
		for _, e := range entries {
			fmt.Printf("  %-40s %10s  %s\n", e.Key, humanize.Bytes(uint64(e.Size)), humanize.Time(e.ModTime))
		}
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove cached stage results for the market (or all markets)",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := cache.NewFileStore(cfg.CacheDir)
		if err != nil {
			return err
		}
		var (
			removed int
			scope   string
		)
		if allMarkets {
			removed, err = store.Clear("")
			scope = "all markets"
		} else {
			keys := cache.MarketKeys(cfg.Market, cachedStages...)
			removed, err = store.Delete(keys...)
			scope = strings.Join(keys, ", ")
		}
		if err != nil {
			return err
		}
		logger.Info("[cache] Removed %d entries (%s)", removed, scope)
		return nil
	},
}

func init() {
	cacheClearCmd.Flags().BoolVar(&allMarkets, "all", false, "clear every market")
	cacheCmd.AddCommand(cacheListCmd, cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
