package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/valpere/phrasecheck/internal/detector"
	"github.com/valpere/phrasecheck/internal/judge"
	"github.com/valpere/phrasecheck/internal/orchestrator"
	"github.com/valpere/phrasecheck/internal/parser"
	"github.com/valpere/phrasecheck/internal/phrase"
	"github.com/valpere/phrasecheck/internal/refiner"
	"github.com/valpere/phrasecheck/internal/syntax"
	"github.com/valpere/phrasecheck/internal/translator"
)

// Translator produces one outcome per provider. *orchestrator.Orchestrator
// satisfies it.
type Translator interface {
	Execute(ctx context.Context, cfg translator.ServiceConfig, req translator.TranslateRequest) *orchestrator.OrchestratorResult
}

// PhraseJudge evaluates one phrase. *judge.Judge satisfies it.
type PhraseJudge interface {
	Evaluate(ctx context.Context, phrase string) (judge.Verdict, error)
}

type Request struct {
	ID         string
	Text       string
	SourceLang string
	TargetLang string
}

type Options struct {
	// Concurrency bounds parallel phrase judgments within one sentence.
	Concurrency   int `mapstructure:"concurrency" json:"concurrency" validate:"min=0"`
	ServiceConfig translator.ServiceConfig
}

type Builder struct {
	translator Translator
	parser     parser.Parser
	extractor  *phrase.Extractor
	judge      PhraseJudge
	refiner    refiner.Refiner
	detector   *detector.Detector
	opts       Options
	log        *zap.Logger
}

func NewBuilder(tr Translator, p parser.Parser, ex *phrase.Extractor, j PhraseJudge, opts Options, log *zap.Logger) *Builder {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{
		translator: tr,
		parser:     p,
		extractor:  ex,
		judge:      j,
		opts:       opts,
		log:        log,
	}
}

// WithRefiner proposes improved wordings for phrases that are not meaningful.
func (b *Builder) WithRefiner(r refiner.Refiner) *Builder {
	b.refiner = r
	return b
}

// WithDetector fills in the source language of requests that leave it to
// auto-detection.
func (b *Builder) WithDetector(d *detector.Detector) *Builder {
	b.detector = d
	return b
}

// Build translates, parses, extracts and judges req.Text. Provider, parse
// and phrase failures are recorded in the report; only a cancelled context
// aborts the build.
func (b *Builder) Build(ctx context.Context, req Request) (*Report, error) {
	rep := &Report{
		ID:           req.ID,
		CreatedAt:    time.Now().UTC(),
		SourceLang:   req.SourceLang,
		TargetLang:   req.TargetLang,
		OriginalText: req.Text,
	}
	if rep.ID == "" {
		rep.ID = uuid.NewString()
	}
	if (rep.SourceLang == "" || rep.SourceLang == "auto") && b.detector != nil {
		if code, ok := b.detector.DetectISO(req.Text); ok {
			rep.SourceLang = code
		}
	}
	log := b.log.With(zap.String("report_id", rep.ID))

	result := b.translator.Execute(ctx, b.opts.ServiceConfig, translator.TranslateRequest{
		Text:       req.Text,
		SourceLang: rep.SourceLang,
		TargetLang: req.TargetLang,
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lang := languageName(req.TargetLang)
	for _, oc := range result.Outcomes {
		tr, err := b.translation(ctx, oc, lang, log)
		if err != nil {
			return nil, err
		}
		rep.Translations = append(rep.Translations, tr)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	st := rep.Stats()
	log.Info("report built",
		zap.Int("engines", st.Engines),
		zap.Int("failed", st.Failed),
		zap.Int("sentences", st.Sentences),
		zap.Int("phrases", st.Phrases),
		zap.Int("meaningful", st.Meaningful))
	return rep, nil
}

func (b *Builder) translation(ctx context.Context, oc orchestrator.Outcome, lang string, log *zap.Logger) (Translation, error) {
	tr := Translation{Engine: oc.Service}
	if !oc.OK() {
		tr.Error = oc.Err.Error()
		log.Warn("translation failed", zap.String("engine", oc.Service), zap.Error(oc.Err))
		return tr, nil
	}
	tr.Text = oc.Result.TranslatedText

	trees, err := b.parser.Parse(ctx, tr.Text)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return tr, ctxErr
		}
		tr.Error = fmt.Sprintf("parse: %v", err)
		log.Warn("failed to parse translation", zap.String("engine", oc.Service), zap.Error(err))
		return tr, nil
	}

	for _, tree := range trees {
		s, err := b.sentence(ctx, tree, lang, log.With(zap.String("engine", oc.Service)))
		if err != nil {
			return tr, err
		}
		tr.Sentences = append(tr.Sentences, s)
	}
	return tr, nil
}

func (b *Builder) sentence(ctx context.Context, tree *syntax.Tree, lang string, log *zap.Logger) (Sentence, error) {
	s := Sentence{
		Words: tree.WordCount(),
		Text:  tree.Text(),
		Penn:  tree.PennString(),
	}

	candidates := b.extractor.Collect(tree)
	phrases := make([]Phrase, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Concurrency)
	for i, c := range candidates {
		g.Go(func() error {
			p, err := b.phrase(gctx, c, lang, log)
			if err != nil {
				return err
			}
			phrases[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return s, err
	}

	s.Phrases = phrases
	return s, nil
}

func (b *Builder) phrase(ctx context.Context, c phrase.Candidate, lang string, log *zap.Logger) (Phrase, error) {
	p := Phrase{
		Words: c.Words,
		Text:  c.Text,
		Penn:  c.Node.PennString(),
	}
	if err := ctx.Err(); err != nil {
		return p, err
	}

	v, err := b.judge.Evaluate(ctx, c.Text)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return p, ctxErr
		}
		p.Error = err.Error()
		log.Warn("failed to judge phrase", zap.String("phrase", c.Text), zap.Error(err))
		return p, nil
	}

	p.Meaningful = Flag(v.Meaningful)
	p.Score = v.Score
	p.Suggestions = suggestionsFrom(v.Suggestions)

	if b.refiner != nil && !v.Meaningful && len(p.Suggestions) > 0 {
		texts := make([]string, len(p.Suggestions))
		for i, s := range p.Suggestions {
			texts[i] = s.Text
		}
		improved, err := b.refiner.Refine(ctx, lang, c.Text, texts)
		if err != nil {
			log.Warn("failed to refine phrase", zap.String("phrase", c.Text), zap.Error(err))
		} else if !strings.EqualFold(strings.TrimSpace(improved), c.Text) {
			p.Improved = improved
		}
	}
	return p, nil
}

// languageName turns a language code into its English name for prompts.
func languageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return code
}
