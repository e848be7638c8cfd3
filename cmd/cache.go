/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/valpere/phrasecheck/internal/rediscache"
)

var (
	cacheExpiredOnly bool
	cacheRedis       bool
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the search result cache",
	Long:  `List, inspect, and clear the SQLite search result cache.`,
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all cached searches",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		entries, err := db.ListSearches(context.Background())
		if err != nil {
			return fmt.Errorf("failed to list entries: %w", err)
		}

		if len(entries) == 0 {
			fmt.Println("No cached searches.")
			return nil
		}

		now := time.Now()
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "HITS\tUSED\tLAST USED\tEXPIRED\tKEY")
		for _, e := range entries {
			key := []rune(e.Key)
			if len(key) > 60 {
				key = append(key[:57], []rune("...")...)
			}
			fmt.Fprintf(w, "%d\t%d\t%s\t%v\t%s\n",
				e.HitCount, e.UsageCount, e.LastUsed.Format("2006-01-02 15:04"),
				e.Expired(now), string(key))
		}
		return w.Flush()
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show search cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.SearchStats(context.Background())
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}

		fmt.Printf("Total entries:   %d\n", stats.TotalEntries)
		fmt.Printf("Expired entries: %d\n", stats.ExpiredEntries)
		fmt.Printf("Cached hits:     %d\n", stats.TotalHits)
		fmt.Printf("Total usage:     %d\n", stats.TotalUsage)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove cached searches",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		if cacheRedis {
			rdb, err := rediscache.Dial(ctx, cfg.Redis)
			if err != nil {
				return err
			}
			defer rdb.Close()

			n, err := rediscache.New(rdb, cfg.Redis.Prefix).Clear(ctx)
			if err != nil {
				return fmt.Errorf("failed to clear redis cache: %w", err)
			}
			fmt.Printf("Cleared %d entries from the redis search cache.\n", n)
			return nil
		}

		db, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := db.ClearSearches(ctx, cacheExpiredOnly)
		if err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		fmt.Printf("Cleared %d entries from the search cache.\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)

	cacheClearCmd.Flags().BoolVar(&cacheExpiredOnly, "expired", false, "Only remove expired entries")
	cacheClearCmd.Flags().BoolVar(&cacheRedis, "redis", false, "Clear the redis cache instead of the SQLite one")

	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
