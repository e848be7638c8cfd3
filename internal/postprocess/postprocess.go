// Package postprocess normalizes text coming back from external services
// before it is scored or reported.
//
// CleanSnippet handles search-engine titles and abstracts, which carry <b>
// highlighting and HTML entities. Clean handles LLM output from the Ollama
// translator and the phrase refiner.
package postprocess

import (
	"html"
	"regexp"
	"strings"
)

// --- Search snippets ---

var (
	boldTagRe  = regexp.MustCompile(`(?i)</?b>`)
	multiSpace = regexp.MustCompile(`[ \t\x{00A0}]{2,}`)
)

// CleanSnippet replaces <b> and </b> with spaces, decodes HTML entities,
// collapses runs of spaces and trims the result.
func CleanSnippet(text string) string {
	text = boldTagRe.ReplaceAllString(text, " ")
	text = html.UnescapeString(text)
	text = multiSpace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// --- LLM output ---

// Clean removes LLM artifacts from text in three phases and returns the
// trimmed result:
//  1. Thinking / reasoning block removal
//  2. Instruction echo removal (prompt leakage)
//  3. Quote wrapping removal
func Clean(text string) string {
	text = removeThinkingBlocks(text)
	text = removeInstructionEchoes(text)
	text = removeQuoteWrapping(text)
	return strings.TrimSpace(text)
}

// Go's RE2 engine has no backreferences, so each tag pair is listed.
var thinkingBlockRe = regexp.MustCompile(
	`(?is)<thinking>.*?</thinking>|<think>.*?</think>|<reasoning>.*?</reasoning>`,
)

// An opened thinking tag with no closing tag: the model was cut off.
var truncatedThinkingRe = regexp.MustCompile(
	`(?is)(?:<thinking>|<think>|<reasoning>).*$`,
)

func removeThinkingBlocks(text string) string {
	text = thinkingBlockRe.ReplaceAllString(text, "")
	text = truncatedThinkingRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// echoPatterns are anchored to the start and require a colon.
var echoPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(?:certainly|sure|of course)[,.!]?\s*`),
	regexp.MustCompile(`(?i)^here(?:'s| is)(?: the| an| your)? (?:improved |corrected |rewritten |translated )?(?:phrase|translation|text|version)\s*:`),
	regexp.MustCompile(`(?i)^(?:the )?(?:improved |corrected |rewritten )?(?:phrase|translation)\s*:`),
}

func removeInstructionEchoes(text string) string {
	// The politeness prefix only counts when an echo follows it.
	if loc := echoPatterns[0].FindStringIndex(text); loc != nil {
		rest := text[loc[1]:]
		if echoPatterns[1].MatchString(rest) {
			text = rest
		}
	}
	for _, re := range echoPatterns[1:] {
		if loc := re.FindStringIndex(text); loc != nil {
			text = strings.TrimSpace(text[loc[1]:])
		}
	}
	return text
}

// removeQuoteWrapping strips one matching pair of outer quotes:
//
//	"…"  '…'  «…»  “…”  ‘…’
func removeQuoteWrapping(text string) string {
	runes := []rune(text)
	n := len(runes)
	if n < 2 {
		return text
	}
	first, last := runes[0], runes[n-1]
	if (first == '"' && last == '"') ||
		(first == '\'' && last == '\'') ||
		(first == '«' && last == '»') ||
		(first == '“' && last == '”') ||
		(first == '‘' && last == '’') {
		return strings.TrimSpace(string(runes[1 : n-1]))
	}
	return text
}
