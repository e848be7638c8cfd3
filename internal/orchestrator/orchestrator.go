// Package orchestrator fans a translation request out to every configured
// provider in parallel, with a per-call timeout and bounded retries.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/valpere/phrasecheck/internal/translator"
	"github.com/valpere/phrasecheck/internal/validator"
)

// ErrNoServices is returned by Preflight when no service is reachable.
var ErrNoServices = errors.New("no translation service is available")

const (
	defaultTimeout     = 30 * time.Second
	defaultMaxAttempts = 3
	defaultRetryDelay  = 500 * time.Millisecond
)

type OrchestratorConfig struct {
	Timeout     time.Duration `mapstructure:"timeout" json:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts" json:"max_attempts" validate:"min=0"`
	RetryDelay  time.Duration `mapstructure:"retry_delay" json:"retry_delay"`
	// SkipValidation disables the target-language check of results.
	SkipValidation bool `mapstructure:"skip_validation" json:"skip_validation"`
	// Validator replaces the default all-languages validator.
	Validator *validator.Validator `mapstructure:"-" json:"-"`
	Logger    *zap.Logger          `mapstructure:"-" json:"-"`
}

// Outcome is the final state of one provider after all attempts.
type Outcome struct {
	Service  string
	Result   *translator.ServiceResult
	Err      error
	Attempts int
}

// OK reports whether the provider produced a translation.
func (o Outcome) OK() bool {
	return o.Err == nil && o.Result != nil
}

type OrchestratorResult struct {
	// Outcomes has one entry per service, in service order.
	Outcomes  []Outcome
	Succeeded int
	Failed    int
}

type Orchestrator struct {
	services  []translator.TranslationService
	config    OrchestratorConfig
	validator *validator.Validator
	log       *zap.Logger
}

func New(services []translator.TranslationService, config OrchestratorConfig) *Orchestrator {
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaultMaxAttempts
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = defaultRetryDelay
	}

	o := &Orchestrator{
		services: services,
		config:   config,
		log:      config.Logger,
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	if !config.SkipValidation {
		o.validator = config.Validator
		if o.validator == nil {
			o.validator = validator.New()
		}
	}
	return o
}

// Services returns the names of the configured providers in order.
func (o *Orchestrator) Services() []string {
	names := make([]string, len(o.services))
	for i, svc := range o.services {
		names[i] = svc.Name()
	}
	return names
}

// Execute translates req with every service concurrently and waits for all
// of them.
func (o *Orchestrator) Execute(ctx context.Context, cfg translator.ServiceConfig, req translator.TranslateRequest) *OrchestratorResult {
	outcomes := make([]Outcome, len(o.services))

	var wg sync.WaitGroup
	for i, svc := range o.services {
		wg.Add(1)
		go func(index int, service translator.TranslationService) {
			defer wg.Done()
			outcomes[index] = o.translateWithRetry(ctx, service, cfg, req)
		}(i, svc)
	}
	wg.Wait()

	result := &OrchestratorResult{Outcomes: outcomes}
	for _, oc := range outcomes {
		if oc.OK() {
			result.Succeeded++
		} else {
			result.Failed++
		}
	}
	return result
}

func (o *Orchestrator) translateWithRetry(ctx context.Context, service translator.TranslationService, cfg translator.ServiceConfig, req translator.TranslateRequest) Outcome {
	name := service.Name()
	log := o.log.With(zap.String("service", name))
	outcome := Outcome{Service: name}

	for attempt := 1; attempt <= o.config.MaxAttempts; attempt++ {
		outcome.Attempts = attempt
		res, err := o.attempt(ctx, service, cfg, req)
		outcome.Result, outcome.Err = res, err

		if err == nil {
			if o.validator == nil {
				return outcome
			}
			valid, verr := o.validator.IsValid(res.TranslatedText, req.TargetLang)
			if valid {
				return outcome
			}
			if attempt == o.config.MaxAttempts {
				log.Warn("accepting translation that failed validation", zap.Error(verr))
				if res.Metadata == nil {
					res.Metadata = map[string]string{}
				}
				res.Metadata["validation_warning"] = verr.Error()
				return outcome
			}
			log.Info("translation failed validation, retrying", zap.Int("attempt", attempt), zap.Error(verr))
			outcome.Result, outcome.Err = nil, verr
		} else {
			if errors.Is(err, translator.ErrTextTooLarge) || ctx.Err() != nil {
				return outcome
			}
			log.Info("translation attempt failed", zap.Int("attempt", attempt), zap.Error(err))
		}

		if attempt < o.config.MaxAttempts {
			select {
			case <-ctx.Done():
				outcome.Result, outcome.Err = nil, ctx.Err()
				return outcome
			case <-time.After(o.config.RetryDelay):
			}
		}
	}
	return outcome
}

// attempt runs one call under the per-call timeout and folds a result-level
// error into the returned error.
func (o *Orchestrator) attempt(ctx context.Context, service translator.TranslationService, cfg translator.ServiceConfig, req translator.TranslateRequest) (*translator.ServiceResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	res, err := service.Translate(callCtx, cfg, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", service.Name(), err)
	}
	if res == nil {
		return nil, fmt.Errorf("%s: no result", service.Name())
	}
	if res.Error != "" {
		return nil, fmt.Errorf("%s: %s", res.ServiceName, res.Error)
	}
	return res, nil
}

// ServiceStatus is the reachability of one provider.
type ServiceStatus struct {
	Service   string
	Err       error
	Languages []string
	// LanguagesErr is set when the provider could not list its languages.
	LanguagesErr error
}

func (s ServiceStatus) Available() bool {
	return s.Err == nil
}

// Supports reports whether lang is among the listed languages. Region
// subtags are ignored; an empty list supports everything.
func (s ServiceStatus) Supports(lang string) bool {
	if len(s.Languages) == 0 || lang == "" || lang == "auto" {
		return true
	}
	base := baseLanguage(lang)
	for _, l := range s.Languages {
		if baseLanguage(l) == base {
			return true
		}
	}
	return false
}

func baseLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	return lang
}

// Availability asks every service, in parallel and under the per-call timeout,
// whether it is reachable and which languages it supports. Statuses are in
// service order.
func (o *Orchestrator) Availability(ctx context.Context) []ServiceStatus {
	statuses := make([]ServiceStatus, len(o.services))

	var wg sync.WaitGroup
	for i, svc := range o.services {
		wg.Add(1)
		go func(index int, service translator.TranslationService) {
			defer wg.Done()
			callCtx, cancel := context.WithTimeout(ctx, o.config.Timeout)
			defer cancel()

			st := ServiceStatus{Service: service.Name()}
			st.Err = service.IsAvailable(callCtx)
			if st.Err == nil {
				st.Languages, st.LanguagesErr = service.SupportedLanguages(callCtx)
			}
			statuses[index] = st
		}(i, svc)
	}
	wg.Wait()
	return statuses
}

// Preflight checks every service and drops the unreachable ones. It fails
// with ErrNoServices when none is left. Services that do not list target
// are kept with a warning.
func (o *Orchestrator) Preflight(ctx context.Context, target string) error {
	statuses := o.Availability(ctx)

	kept := make([]translator.TranslationService, 0, len(o.services))
	for i, st := range statuses {
		if !st.Available() {
			o.log.Warn("dropping unavailable service", zap.String("service", st.Service), zap.Error(st.Err))
			continue
		}
		if !st.Supports(target) {
			o.log.Warn("service does not list the target language", zap.String("service", st.Service), zap.String("target", target))
		}
		kept = append(kept, o.services[i])
	}
	o.services = kept

	if len(o.services) == 0 {
		return ErrNoServices
	}
	return nil
}
