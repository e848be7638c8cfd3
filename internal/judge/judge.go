// Package judge decides whether a translated phrase is meaningful by looking
// for web sentences that are structurally similar to it.
//
// A phrase found verbatim by an exact-phrase search is meaningful outright.
// Otherwise the pages behind an unquoted search are split into sentences and
// each is scored against the phrase relative to the phrase's self-similarity.
// The first sentence above the meaningfulness threshold is proof on its own;
// sentences above the suggestion threshold are kept as suggestions.
package judge

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/valpere/phrasecheck/internal/postprocess"
	"github.com/valpere/phrasecheck/internal/search"
	"github.com/valpere/phrasecheck/internal/similarity"
)

var (
	ErrEmptyPhrase         = errors.New("empty phrase")
	ErrDegenerateSelfScore = errors.New("phrase self-similarity is not positive")
)

// Config holds the judgment thresholds. It is passed by value and never
// mutated after construction.
type Config struct {
	MeaningfulnessThreshold float64 `mapstructure:"meaningfulness_threshold" json:"meaningfulness_threshold" validate:"gte=0"`
	SuggestionThreshold     float64 `mapstructure:"suggestion_threshold" json:"suggestion_threshold" validate:"gte=0,ltefield=MeaningfulnessThreshold"`
	ConsiderableResults     int     `mapstructure:"considerable_results" json:"considerable_results" validate:"min=1"`
}

func DefaultConfig() Config {
	return Config{
		MeaningfulnessThreshold: 0.75,
		SuggestionThreshold:     0.1,
		ConsiderableResults:     5,
	}
}

// Suggestions maps a corroborating sentence to its relative score.
type Suggestions map[string]float64

// Suggestion is one entry of a Suggestions set.
type Suggestion struct {
	Text  string  `json:"text"`
	Score float64 `json:"relative_score"`
}

// Sorted returns the entries by descending score, ties broken by text.
func (s Suggestions) Sorted() []Suggestion {
	out := make([]Suggestion, 0, len(s))
	for text, score := range s {
		out = append(out, Suggestion{Text: text, Score: score})
	}
	slices.SortFunc(out, func(a, b Suggestion) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return strings.Compare(a.Text, b.Text)
	})
	return out
}

// Max returns the highest score, or 0 for an empty set.
func (s Suggestions) Max() float64 {
	var best float64
	for _, score := range s {
		best = max(best, score)
	}
	return best
}

// Verdict is the outcome of Evaluate.
type Verdict struct {
	Suggestions Suggestions
	// Score is the representative score: the maximum relative score.
	Score      float64
	Meaningful bool
}

// SentenceSource yields the candidate sentences of one search hit. An
// *evidence.Gatherer satisfies it.
type SentenceSource interface {
	Sentences(ctx context.Context, hit search.Hit) []string
}

type Judge struct {
	cfg      Config
	searcher search.Client
	evidence SentenceSource
	scorer   similarity.Scorer
	log      *zap.Logger
}

func New(cfg Config, searcher search.Client, evidence SentenceSource, scorer similarity.Scorer, log *zap.Logger) *Judge {
	if log == nil {
		log = zap.NewNop()
	}
	return &Judge{
		cfg:      cfg,
		searcher: searcher,
		evidence: evidence,
		scorer:   scorer,
		log:      log,
	}
}

func (j *Judge) Config() Config {
	return j.cfg
}

// Judge returns the suggestion set for phrase. The set may be empty. When
// ctx is cancelled the result is nil together with the context error.
func (j *Judge) Judge(ctx context.Context, phrase string) (Suggestions, error) {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return nil, ErrEmptyPhrase
	}
	log := j.log.With(zap.String("phrase", phrase))

	quoted, err := j.searcher.Search(ctx, search.Quote(phrase), 1)
	if err != nil {
		return nil, fmt.Errorf("exact search: %w", err)
	}
	if len(quoted) > 0 {
		log.Debug("phrase found verbatim", zap.String("url", quoted[0].URL))
		return Suggestions{postprocess.CleanSnippet(quoted[0].Abstract): 1.0}, nil
	}

	selfScore, err := j.scorer.Similarity(ctx, phrase, phrase)
	if err != nil {
		return nil, fmt.Errorf("self-similarity: %w", err)
	}
	if selfScore <= 0 || math.IsNaN(selfScore) || math.IsInf(selfScore, 0) {
		return nil, fmt.Errorf("%w: %v", ErrDegenerateSelfScore, selfScore)
	}

	hits, err := j.searcher.Search(ctx, phrase, j.cfg.ConsiderableResults)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if len(hits) > j.cfg.ConsiderableResults {
		hits = hits[:j.cfg.ConsiderableResults]
	}

	suggestions := make(Suggestions)
	for _, hit := range hits {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, sentence := range j.evidence.Sentences(ctx, hit) {
			score, err := j.scorer.Similarity(ctx, phrase, sentence)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				log.Debug("skipping unscorable sentence", zap.String("url", hit.URL), zap.Error(err))
				continue
			}
			relative := score / selfScore
			switch {
			case relative > j.cfg.MeaningfulnessThreshold:
				log.Debug("phrase is meaningful",
					zap.String("url", hit.URL),
					zap.Float64("relative_score", relative))
				return Suggestions{sentence: relative}, nil
			case relative > j.cfg.SuggestionThreshold:
				suggestions[sentence] = relative
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.Debug("phrase judged", zap.Int("hits", len(hits)), zap.Int("suggestions", len(suggestions)))
	return suggestions, nil
}

// Evaluate runs Judge and derives the representative score and the
// meaningful flag.
func (j *Judge) Evaluate(ctx context.Context, phrase string) (Verdict, error) {
	suggestions, err := j.Judge(ctx, phrase)
	if err != nil {
		return Verdict{}, err
	}
	score := suggestions.Max()
	return Verdict{
		Suggestions: suggestions,
		Score:       score,
		Meaningful:  score > j.cfg.MeaningfulnessThreshold,
	}, nil
}
