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
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/phrasecheck/internal/markdown"
	"github.com/valpere/phrasecheck/internal/phrase"
)

var (
	phrasesMarkdown bool
	phrasesTrees    bool
)

var phrasesCmd = &cobra.Command{
	Use:   "phrases [file]",
	Short: "List the candidate phrases of a text without searching",
	Long: `Parse a text (already in the target language) and print, for each
sentence, the word-count bounds and the candidate phrases that "check" would
judge, deepest first. Useful for tuning the phrase.* settings.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readInput(cmd, args)
		if err != nil {
			return err
		}
		text := string(raw)
		if phrasesMarkdown {
			text = markdown.ToPlainText(raw)
		}

		trees, err := buildParser(cfg, logger).Parse(cmd.Context(), text)
		if err != nil {
			return fmt.Errorf("failed to parse text: %w", err)
		}

		ex := phrase.NewExtractor(cfg.Phrase)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for i, tree := range trees {
			fmt.Fprintf(w, "SENTENCE %d\t%d words\t%s\n", i+1, tree.WordCount(), tree.Text())
			bounds, ok := ex.Bounds(tree)
			if !ok {
				fmt.Fprintln(w, "\tno candidates (empty bounds)\t")
				continue
			}
			fmt.Fprintf(w, "\tbounds [%d, %d]\t\n", bounds.Min, bounds.Max)
			for c := range ex.Candidates(tree) {
				label := c.Node.Label
				if phrasesTrees {
					label = c.Node.String()
				}
				fmt.Fprintf(w, "\t%d\t%s\t%s\n", c.Words, strings.TrimSpace(label), c.Text)
			}
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(phrasesCmd)

	phrasesCmd.Flags().BoolVar(&phrasesMarkdown, "markdown", false, "Treat the input as Markdown")
	phrasesCmd.Flags().BoolVar(&phrasesTrees, "trees", false, "Print the bracketed tree of each candidate instead of its label")
	addPhraseFlags(phrasesCmd)
}

// addPhraseFlags adds the word-count policy flags shared by check and
// phrases.
func addPhraseFlags(cmd *cobra.Command) {
	cmd.Flags().Int("min-words", 5, "Minimum words in a phrase")
	cmd.Flags().Int("max-words", 0, "Maximum words in a phrase (0 = unbounded)")
	cmd.Flags().Float64("min-relative-words", 0, "Minimum phrase length as a fraction of the sentence")
	cmd.Flags().Float64("max-relative-words", 1, "Maximum phrase length as a fraction of the sentence")

	bindFlag(cmd, "phrase.min_words", "min-words")
	bindFlag(cmd, "phrase.max_words", "max-words")
	bindFlag(cmd, "phrase.min_relative_words", "min-relative-words")
	bindFlag(cmd, "phrase.max_relative_words", "max-relative-words")
}
