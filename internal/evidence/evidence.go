// Package evidence turns search hits into candidate sentences that may
// corroborate a translated phrase.
//
// A hit is expanded by fetching its page and segmenting the visible text.
// Pages the expander cannot read (PDF when disabled, images, archives, ...)
// come back as Unsupported rather than as an error, so callers can branch on
// the result. Network and parse failures are errors; the Gatherer logs both
// outcomes and carries on with zero sentences for that hit.
package evidence

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/valpere/phrasecheck/internal/postprocess"
	"github.com/valpere/phrasecheck/internal/search"
)

// ErrFetch wraps failures to retrieve a page.
var ErrFetch = errors.New("fetch failed")

// Status tells whether a page could be segmented.
type Status int

const (
	Segmented Status = iota
	Unsupported
)

func (s Status) String() string {
	switch s {
	case Segmented:
		return "segmented"
	case Unsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// Expansion is the outcome of expanding one hit.
type Expansion struct {
	Status    Status
	Sentences []string
	// MediaType is the detected type of the page body, when known.
	MediaType string
	// Reason explains an Unsupported status.
	Reason string
}

// Expander materializes the page behind a search hit into sentences.
type Expander interface {
	Expand(ctx context.Context, hit search.Hit) (Expansion, error)
}

// Gatherer produces the candidate sentences of a hit: the sentences of its
// page followed by its cleaned title and abstract.
type Gatherer struct {
	expander Expander
	log      *zap.Logger
}

func NewGatherer(expander Expander, log *zap.Logger) *Gatherer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gatherer{expander: expander, log: log}
}

// Sentences returns the candidate sentences for hit, or nil when the page
// could not be expanded.
func (g *Gatherer) Sentences(ctx context.Context, hit search.Hit) []string {
	exp, err := g.expander.Expand(ctx, hit)
	if err != nil {
		g.log.Warn("failed to expand search hit", zap.String("url", hit.URL), zap.Error(err))
		return nil
	}
	if exp.Status == Unsupported {
		g.log.Debug("skipping unsupported search hit",
			zap.String("url", hit.URL),
			zap.String("media_type", exp.MediaType),
			zap.String("reason", exp.Reason))
		return nil
	}

	sentences := make([]string, 0, len(exp.Sentences)+2)
	sentences = append(sentences, exp.Sentences...)
	for _, s := range []string{hit.Title, hit.Abstract} {
		if s = postprocess.CleanSnippet(s); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}
