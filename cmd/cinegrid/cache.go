package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kwanpak/cinegrid/internal/app"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and administer the schedule cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print entry counts per cache tier",
	RunE: withApp(func(a *app.App, cmd *cobra.Command, args []string) error {
		stats := a.Store.Stats()
		fmt.Printf("memory entries: %d\nfile entries:   %d\n", stats.MemoryCount, stats.FileCount)
		return nil
	}),
}

var cacheCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Evict expired entries from both tiers",
	RunE: withApp(func(a *app.App, cmd *cobra.Command, args []string) error {
		a.Store.Cleanup()
		fmt.Println("expired cache entries removed")
		return nil
	}),
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty both cache tiers unconditionally",
	RunE: withApp(func(a *app.App, cmd *cobra.Command, args []string) error {
		a.Store.Clear()
		fmt.Println("cache cleared")
		return nil
	}),
}

var cacheDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete one (type, date) cache entry",
	RunE: withApp(func(a *app.App, cmd *cobra.Command, args []string) error {
		typ, _ := cmd.Flags().GetString("type")
		date, _ := cmd.Flags().GetString("date")
		if typ == "" || date == "" {
			return fmt.Errorf("both --type and --date are required")
		}
		a.Store.Delete(typ, date, nil)
		fmt.Printf("deleted %s (%s)\n", typ, date)
		return nil
	}),
}

// withApp wraps a command body with application setup and teardown.
func withApp(run func(*app.App, *cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		application, err := app.New(viper.GetString("log_level"))
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}
		defer application.Close()
		return run(application, cmd, args)
	}
}

func init() {
	cacheDeleteCmd.Flags().String("type", "", "cache type (boxoffice, art_cinemas, kofa_api, integrated)")
	cacheDeleteCmd.Flags().String("date", "", "date (YYYY-MM-DD)")

	cacheCmd.AddCommand(cacheStatsCmd, cacheCleanupCmd, cacheClearCmd, cacheDeleteCmd)
	rootCmd.AddCommand(cacheCmd)
}
