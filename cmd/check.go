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
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/valpere/phrasecheck/internal/markdown"
	"github.com/valpere/phrasecheck/internal/report"
	"github.com/valpere/phrasecheck/internal/store"
)

var (
	checkOutput   string
	checkMarkdown bool
	checkNoStore  bool
)

var checkCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Translate a text and check every translated phrase",
	Long: `Translate a text with every configured service, parse the translations
and judge each candidate phrase against web search results.

The input is read from the given file or from stdin. The report is written
as XML (with an xml-stylesheet reference to translation.xsl) or JSON, to
--output or stdout.

Available services:
  - google      Google Cloud Translation (credentials or API key)
  - microsoft   Microsoft Translator v3 (key and region)
  - yandex      Yandex Cloud Translate (API key and folder ID)
  - mymemory    MyMemory (free, 500 bytes per request)
  - systran     Systran Translate (requires API key)
  - ollama      Ollama LLM (self-hosted)

Use multiple services: --services google,microsoft,yandex`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readInput(cmd, args)
		if err != nil {
			return err
		}
		text := string(raw)
		if checkMarkdown {
			text = markdown.ToPlainText(raw)
		}
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("input text is empty")
		}

		format := outputFormat(checkOutput, cfg.Report.Format)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var db *store.Store
		if !checkNoStore || cfg.Search.Cache == "sqlite" {
			db, err = openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
		}

		orch, det, err := buildOrchestrator(ctx, cfg, logger)
		if err != nil {
			return err
		}
		builder, cleanup, err := buildBuilder(ctx, cfg, orch, det, db, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		fmt.Fprintf(os.Stderr, "Checking %d characters with %s...\n",
			len([]rune(text)), strings.Join(orch.Services(), ", "))

		rep, err := builder.Build(ctx, report.Request{
			Text:       text,
			SourceLang: cfg.Translate.Source,
			TargetLang: cfg.Translate.Target,
		})
		if err != nil {
			return fmt.Errorf("check failed: %w", err)
		}

		if db != nil && !checkNoStore {
			if err := db.SaveReport(ctx, rep); err != nil {
				logger.Warn("failed to store report", zap.String("report_id", rep.ID), zap.Error(err))
			}
		}

		if err := writeReport(checkOutput, format, rep); err != nil {
			return err
		}

		st := rep.Stats()
		fmt.Fprintf(os.Stderr, "Report %s: %d/%d services, %d sentences, %d phrases, %d meaningful, %d errors\n",
			rep.ID, st.Engines-st.Failed, st.Engines, st.Sentences, st.Phrases, st.Meaningful, st.Errors)
		if st.Engines > 0 && st.Failed == st.Engines {
			return fmt.Errorf("all translation services failed")
		}
		return nil
	},
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	return data, nil
}

// outputFormat picks the report format from the output file extension,
// falling back to fallback.
func outputFormat(output, fallback string) string {
	switch strings.ToLower(filepath.Ext(output)) {
	case ".xml":
		return "xml"
	case ".json":
		return "json"
	default:
		return fallback
	}
}

func writeReport(output, format string, rep *report.Report) error {
	write := report.WriteXML
	if format == "json" {
		write = report.WriteJSON
	}

	if output == "" || output == "-" {
		return write(os.Stdout, rep)
	}

	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := write(f, rep); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVarP(&checkOutput, "output", "o", "", "Report file; the extension (.xml, .json) selects the format")
	checkCmd.Flags().StringP("format", "f", "xml", "Report format when not implied by --output: xml or json")
	checkCmd.Flags().BoolVar(&checkMarkdown, "markdown", false, "Treat the input as Markdown and check its plain text")
	checkCmd.Flags().BoolVar(&checkNoStore, "no-store", false, "Do not save the report in the history database")

	checkCmd.Flags().StringP("source", "s", "auto", "Source language code")
	checkCmd.Flags().StringP("target", "t", "en", "Target language code")
	checkCmd.Flags().StringSlice("services", []string{"google", "microsoft", "yandex"}, "Translation services to use (comma-separated)")
	checkCmd.Flags().Bool("refine", false, "Ask an Ollama model to reword phrases that are not meaningful")
	checkCmd.Flags().Bool("allow-pdf", false, "Extract sentences from PDF search results")
	checkCmd.Flags().Int("considerable-results", 5, "Number of unquoted search results to examine per phrase")
	checkCmd.Flags().Float64("meaningfulness-threshold", 0.75, "Similarity at which a phrase counts as meaningful")
	checkCmd.Flags().Float64("suggestion-threshold", 0.1, "Minimum similarity of a web sentence to be suggested")
	checkCmd.Flags().Int("concurrency", 1, "Phrases of one sentence judged in parallel")
	checkCmd.Flags().Bool("preflight", true, "Check the services first and skip unreachable ones")
	addPhraseFlags(checkCmd)

	bindFlag(checkCmd, "report.format", "format")
	bindFlag(checkCmd, "translate.source", "source")
	bindFlag(checkCmd, "translate.target", "target")
	bindFlag(checkCmd, "translate.services", "services")
	bindFlag(checkCmd, "refine.enabled", "refine")
	bindFlag(checkCmd, "evidence.allow_pdf", "allow-pdf")
	bindFlag(checkCmd, "judge.considerable_results", "considerable-results")
	bindFlag(checkCmd, "judge.meaningfulness_threshold", "meaningfulness-threshold")
	bindFlag(checkCmd, "judge.suggestion_threshold", "suggestion-threshold")
	bindFlag(checkCmd, "report.concurrency", "concurrency")
	bindFlag(checkCmd, "translate.preflight", "preflight")
}
