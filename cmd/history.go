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

	"github.com/spf13/cobra"

	"github.com/valpere/phrasecheck/internal/store"
)

var (
	historyLimit     int
	historyFormat    string
	historyThreshold float64
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse stored check reports",
	Long:  `List, show, find and delete reports saved by "check".`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored reports, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		reports, err := db.ListReports(context.Background(), historyLimit)
		if err != nil {
			return fmt.Errorf("failed to list reports: %w", err)
		}

		if len(reports) == 0 {
			fmt.Println("No stored reports.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCREATED\tSOURCE\tTARGET\tENGINES\tPHRASES\tMEANINGFUL\tTEXT")
		for _, r := range reports {
			printSummary(w, r)
		}
		return w.Flush()
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a stored report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		rep, err := db.GetReport(context.Background(), args[0])
		if err != nil {
			return err
		}
		return writeReport("", historyFormat, rep)
	},
}

var historyFindCmd = &cobra.Command{
	Use:   "find [file]",
	Short: "Find the stored report whose input is most similar to a text",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readInput(cmd, args)
		if err != nil {
			return err
		}

		db, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		r, found, err := db.FindSimilarReport(context.Background(), string(raw), cfg.Translate.Target, historyThreshold)
		if err != nil {
			return fmt.Errorf("failed to search reports: %w", err)
		}
		if !found {
			fmt.Println("No similar report.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		printSummary(w, *r)
		return w.Flush()
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored report by ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.DeleteReport(context.Background(), args[0]); err != nil {
			return fmt.Errorf("failed to delete report: %w", err)
		}
		fmt.Printf("Deleted report: %s\n", args[0])
		return nil
	},
}

func printSummary(w *tabwriter.Writer, r store.ReportSummary) {
	snippet := []rune(r.SourceText)
	if len(snippet) > 40 {
		snippet = append(snippet[:37], []rune("...")...)
	}
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\t%d\t%d\t%s\n",
		r.ID, r.CreatedAt.Format("2006-01-02 15:04"), r.SourceLang, r.TargetLang,
		r.Engines-r.Failed, r.Engines, r.Phrases, r.Meaningful, string(snippet))
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of reports (0 = all)")
	historyShowCmd.Flags().StringVarP(&historyFormat, "format", "f", "xml", "Output format: xml or json")
	historyFindCmd.Flags().Float64Var(&historyThreshold, "threshold", 0.9, "Minimum similarity (0-1) of the input texts")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyFindCmd)
	historyCmd.AddCommand(historyDeleteCmd)
}
