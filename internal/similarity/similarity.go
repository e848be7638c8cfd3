// Package similarity scores how much syntactic structure two text spans
// share.
//
// Both spans are parsed and broken into phrase chunks (NP, VP, PP, ADJP,
// ADVP). Every chunk of the first span is generalized against each chunk of
// the same type in the second span; the best pair score per chunk is summed.
// Generalization is a weighted longest common subsequence over (POS, word)
// tokens: an exact word match earns a weight by part of speech, a match on
// part of speech alone earns a small constant.
//
// Scores are not normalized. Because a POS-only match never outweighs a word
// match, Similarity(a, b) never exceeds Similarity(a, a), so the self-score
// is a natural denominator.
package similarity

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/patrickmn/go-cache"
	"golang.org/x/text/unicode/norm"

	"github.com/valpere/phrasecheck/internal/parser"
	"github.com/valpere/phrasecheck/internal/syntax"
)

// Scorer computes a non-negative structural similarity between two spans.
type Scorer interface {
	Similarity(ctx context.Context, a, b string) (float64, error)
}

// Token is a tagged, lower-cased word.
type Token struct {
	POS  string
	Word string
}

// Chunk is the token sequence of one phrase node.
type Chunk struct {
	Label  string
	Tokens []Token
}

var chunkLabels = map[string]bool{
	"NP":   true,
	"VP":   true,
	"PP":   true,
	"ADJP": true,
	"ADVP": true,
}

const posOnlyWeight = 0.1

// wordWeight is the score of an exact word match for a POS class.
func wordWeight(pos string) float64 {
	switch posClass(pos) {
	case "NN", "VB":
		return 1.0
	case "JJ":
		return 0.8
	case "RB", "CD":
		return 0.6
	default:
		return 0.3
	}
}

func posClass(pos string) string {
	if len(pos) > 2 {
		return pos[:2]
	}
	return pos
}

// baseLabel strips function tags and indices: NP-SBJ-1 -> NP.
func baseLabel(label string) string {
	if i := strings.IndexAny(label, "-="); i > 0 {
		return label[:i]
	}
	return label
}

// Chunks extracts the phrase chunks of a tree in pre-order. Punctuation
// tokens are dropped.
func Chunks(tree *syntax.Tree) []Chunk {
	var chunks []Chunk
	for _, node := range tree.PreOrder() {
		if node.IsLeaf() || node.IsPreterminal() {
			continue
		}
		label := baseLabel(node.Label)
		if !chunkLabels[label] {
			continue
		}
		var tokens []Token
		for _, tw := range node.TaggedYield() {
			r := []rune(tw.Tag)
			if len(r) == 0 || !unicode.IsLetter(r[0]) {
				continue
			}
			tokens = append(tokens, Token{POS: tw.Tag, Word: strings.ToLower(tw.Word)})
		}
		if len(tokens) > 0 {
			chunks = append(chunks, Chunk{Label: label, Tokens: tokens})
		}
	}
	return chunks
}

// Generalize returns the weighted LCS score of two token sequences.
func Generalize(a, b []Token) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]float64, len(b)+1)
	cur := make([]float64, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			best := max(prev[j], cur[j-1])
			ta, tb := a[i-1], b[j-1]
			if posClass(ta.POS) == posClass(tb.POS) {
				w := posOnlyWeight
				if ta.Word == tb.Word {
					w = wordWeight(ta.POS)
				}
				best = max(best, prev[j-1]+w)
			}
			cur[j] = best
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// Score sums, for each chunk in a, the best generalization against a chunk
// of the same label in b.
func Score(a, b []Chunk) float64 {
	byLabel := make(map[string][]Chunk)
	for _, c := range b {
		byLabel[c.Label] = append(byLabel[c.Label], c)
	}
	var total float64
	for _, ca := range a {
		var best float64
		for _, cb := range byLabel[ca.Label] {
			best = max(best, Generalize(ca.Tokens, cb.Tokens))
		}
		total += best
	}
	return total
}

// TreeScorer parses both spans with a Parser and scores their chunks.
// Parses are memoized by normalized text.
type TreeScorer struct {
	parser parser.Parser
	memo   *cache.Cache
}

// NewTreeScorer memoizes parses for ttl. A zero ttl keeps them for the life
// of the scorer.
func NewTreeScorer(p parser.Parser, ttl time.Duration) *TreeScorer {
	expiration, cleanup := ttl, 2*ttl
	if ttl <= 0 {
		expiration, cleanup = cache.NoExpiration, 0
	}
	return &TreeScorer{
		parser: p,
		memo:   cache.New(expiration, cleanup),
	}
}

func (s *TreeScorer) Similarity(ctx context.Context, a, b string) (float64, error) {
	ca, err := s.chunks(ctx, a)
	if err != nil {
		return 0, err
	}
	cb, err := s.chunks(ctx, b)
	if err != nil {
		return 0, err
	}
	return Score(ca, cb), nil
}

func (s *TreeScorer) chunks(ctx context.Context, text string) ([]Chunk, error) {
	key := norm.NFC.String(strings.Join(strings.Fields(text), " "))
	if v, ok := s.memo.Get(key); ok {
		return v.([]Chunk), nil
	}

	trees, err := s.parser.Parse(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %q: %w", truncateText(key, 60), err)
	}
	var chunks []Chunk
	for _, t := range trees {
		chunks = append(chunks, Chunks(t)...)
	}
	s.memo.Set(key, chunks, cache.DefaultExpiration)
	return chunks, nil
}

func truncateText(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
