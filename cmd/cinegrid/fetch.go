package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kwanpak/cinegrid/internal/app"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch the merged art-house schedule for a date",
	Long: `Fetch builds the merged schedule for one date:
1. Fetches yesterday's box-office top-5 as the exclude-list
2. Queries every catalog theater's schedule in parallel batches
3. Queries the KMDB film-archive program
4. Merges, sorts and caches the result

Results are printed one screening per line, ordered by start time.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		target := time.Now()
		if dateStr, _ := cmd.Flags().GetString("date"); dateStr != "" {
			parsed, err := time.ParseInLocation("2006-01-02", dateStr, time.Local)
			if err != nil {
				return fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", dateStr, err)
			}
			target = parsed
		}
		force, _ := cmd.Flags().GetBool("force")

		application, err := app.New(viper.GetString("log_level"))
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}
		defer application.Close()

		screenings, err := application.Fetch(context.Background(), target, force)
		if err != nil {
			return fmt.Errorf("fetch failed: %w", err)
		}

		for _, sc := range screenings {
			fmt.Printf("%s | %-30s | %s (%s)\n", sc.Time, sc.Title, sc.Theater, sc.Area)
		}
		fmt.Printf("\n%d screenings on %s\n", len(screenings), target.Format("2006-01-02"))

		return nil
	},
}

func init() {
	fetchCmd.Flags().String("date", "", "target date (YYYY-MM-DD, default today)")
	fetchCmd.Flags().Bool("force", false, "bypass the cache read (still writes through)")
	rootCmd.AddCommand(fetchCmd)
}
