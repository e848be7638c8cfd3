// Package phrase derives the sub-phrases of a parsed sentence that are worth
// testing for meaningfulness.
//
// Candidates come from phrasal nodes of the sentence's syntax tree whose word
// count falls inside bounds derived from absolute and sentence-relative
// limits. They are produced deepest first, so a caller that stops at the
// first meaningful phrase sees specific phrases before the phrases that
// enclose them.
package phrase

import (
	"iter"
	"math"
	"slices"

	"github.com/valpere/phrasecheck/internal/syntax"
)

// Config bounds the size of a candidate phrase.
type Config struct {
	// MinWords is the absolute lower bound on a phrase's word count.
	MinWords int `mapstructure:"min_words" json:"min_words" validate:"min=0"`
	// MaxWords is the absolute upper bound; 0 means unbounded.
	MaxWords int `mapstructure:"max_words" json:"max_words" validate:"min=0"`
	// MinRelativeWords is the lower bound as a fraction of the sentence's word count.
	MinRelativeWords float64 `mapstructure:"min_relative_words" json:"min_relative_words" validate:"min=0,max=1"`
	// MaxRelativeWords is the upper bound as a fraction of the sentence's word count.
	MaxRelativeWords float64 `mapstructure:"max_relative_words" json:"max_relative_words" validate:"min=0,max=1,gtefield=MinRelativeWords"`
}

// DefaultConfig returns the bounds used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		MinWords:         5,
		MaxWords:         0,
		MinRelativeWords: 0.0,
		MaxRelativeWords: 1.0,
	}
}

// Bounds is a closed word-count interval.
type Bounds struct {
	Min int
	Max int
}

// Contains reports whether n lies in [b.Min, b.Max].
func (b Bounds) Contains(n int) bool {
	return n >= b.Min && n <= b.Max
}

// ComputeBounds returns the word-count interval for a sentence of
// sentenceWords words. ok is false when the interval is empty, in which case
// no phrase of that sentence qualifies.
func ComputeBounds(sentenceWords int, cfg Config) (b Bounds, ok bool) {
	maxWords := cfg.MaxWords
	if maxWords <= 0 {
		maxWords = math.MaxInt
	}
	b.Min = max(int(math.Ceil(float64(sentenceWords)*cfg.MinRelativeWords)), cfg.MinWords)
	b.Max = min(int(math.Floor(float64(sentenceWords)*cfg.MaxRelativeWords)), maxWords)
	if b.Min > b.Max {
		return Bounds{}, false
	}
	return b, true
}

// Candidate is a phrase selected for meaningfulness testing.
type Candidate struct {
	Node  *syntax.Tree
	Text  string
	Words int
}

// Extractor enumerates candidates from sentence trees.
type Extractor struct {
	cfg Config
}

// NewExtractor returns an Extractor using cfg.
func NewExtractor(cfg Config) *Extractor {
	return &Extractor{cfg: cfg}
}

// Config returns the bounds configuration of e.
func (e *Extractor) Config() Config {
	return e.cfg
}

// Bounds returns the interval applied to sentence.
func (e *Extractor) Bounds(sentence *syntax.Tree) (Bounds, bool) {
	return ComputeBounds(sentence.WordCount(), e.cfg)
}

// Candidates returns the qualifying phrases of sentence, descendants before
// ancestors. The sequence is evaluated on each iteration and may be ranged
// over any number of times.
func (e *Extractor) Candidates(sentence *syntax.Tree) iter.Seq[Candidate] {
	return func(yield func(Candidate) bool) {
		bounds, ok := e.Bounds(sentence)
		if !ok {
			return
		}
		var found []Candidate
		for _, node := range sentence.PhrasalNodes() {
			words := node.WordCount()
			if !bounds.Contains(words) {
				continue
			}
			found = append(found, Candidate{Node: node, Text: node.Text(), Words: words})
		}
		// Pre-order puts every ancestor before its descendants; reversing
		// yields the deepest phrases first.
		slices.Reverse(found)
		for _, c := range found {
			if !yield(c) {
				return
			}
		}
	}
}

// Collect returns all candidates of sentence as a slice.
func (e *Extractor) Collect(sentence *syntax.Tree) []Candidate {
	return slices.Collect(e.Candidates(sentence))
}
