// Package segment splits plain text extracted from web pages into sentences
// that can be scored against a candidate phrase. Paragraph breaks always end
// a sentence; within a paragraph, sentence-ending punctuation followed by
// whitespace does. Runs of text with no punctuation are cut at word
// boundaries so that no sentence exceeds a configurable length.
package segment

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultMaxSentenceChars caps the length of a single sentence in runes.
	DefaultMaxSentenceChars = 400
)

// Options filter the sentences returned by Sentences.
type Options struct {
	// MinWords drops sentences with fewer words. 0 keeps everything.
	MinWords int
	// MaxChars cuts longer sentences at word boundaries. ≤ 0 uses DefaultMaxSentenceChars.
	MaxChars int
	// Limit caps the number of sentences returned. 0 is unlimited.
	Limit int
}

// Sentences splits text into whitespace-normalized, NFC-normalized sentences
// in document order.
func Sentences(text string, opts Options) []string {
	maxChars := opts.MaxChars
	if maxChars <= 0 {
		maxChars = DefaultMaxSentenceChars
	}

	var out []string
	for _, para := range paragraphs(text) {
		for _, s := range splitSentences(para) {
			for _, piece := range Chunk(s, maxChars) {
				piece = normalize(piece)
				if piece == "" || len(strings.Fields(piece)) < opts.MinWords {
					continue
				}
				out = append(out, piece)
				if opts.Limit > 0 && len(out) >= opts.Limit {
					return out
				}
			}
		}
	}
	return out
}

func normalize(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}

// paragraphs splits on blank lines (\n\n, with optional \r and spaces).
func paragraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var paras []string
	var cur []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			if len(cur) > 0 {
				paras = append(paras, strings.Join(cur, " "))
				cur = cur[:0]
			}
			continue
		}
		cur = append(cur, line)
	}
	if len(cur) > 0 {
		paras = append(paras, strings.Join(cur, " "))
	}
	return paras
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '…'
}

// splitSentences cuts after sentence-ending punctuation (and any closing
// quotes or brackets that follow it) when whitespace comes next.
func splitSentences(para string) []string {
	runes := []rune(para)
	var out []string
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isSentenceEnd(runes[i]) {
			continue
		}
		end := i + 1
		for end < len(runes) && strings.ContainsRune(`"'»”’)]`, runes[end]) {
			end++
		}
		if end < len(runes) && !unicode.IsSpace(runes[end]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			out = append(out, s)
		}
		start = end
		i = end - 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

// Chunk splits text into pieces each no longer than maxChars unicode code
// points, preferring whitespace boundaries and cutting hard only when a
// single word is longer than maxChars. If maxChars ≤ 0 the whole text is
// returned.
func Chunk(text string, maxChars int) []string {
	if maxChars <= 0 || len([]rune(text)) <= maxChars {
		return []string{text}
	}

	var chunks []string
	remaining := text

	for len([]rune(remaining)) > maxChars {
		split := findSplit(remaining, maxChars)
		chunk := strings.TrimSpace(remaining[:split])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		remaining = strings.TrimSpace(remaining[split:])
	}

	if strings.TrimSpace(remaining) != "" {
		chunks = append(chunks, strings.TrimSpace(remaining))
	}

	return chunks
}

// findSplit returns the byte index within text at which to split, aiming for
// at most maxChars runes.
func findSplit(text string, maxChars int) int {
	runes := []rune(text)
	if len(runes) <= maxChars {
		return len(text)
	}
	candidate := runes[:maxChars]

	for i := len(candidate) - 1; i > 0; i-- {
		if unicode.IsSpace(candidate[i]) {
			return len(string(candidate[:i]))
		}
	}

	// Hard cut.
	return len(string(candidate))
}
