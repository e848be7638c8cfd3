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
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/valpere/phrasecheck/internal/config"
	"github.com/valpere/phrasecheck/internal/detector"
	"github.com/valpere/phrasecheck/internal/evidence"
	"github.com/valpere/phrasecheck/internal/judge"
	"github.com/valpere/phrasecheck/internal/orchestrator"
	"github.com/valpere/phrasecheck/internal/parser"
	"github.com/valpere/phrasecheck/internal/phrase"
	"github.com/valpere/phrasecheck/internal/rediscache"
	"github.com/valpere/phrasecheck/internal/refiner"
	"github.com/valpere/phrasecheck/internal/report"
	"github.com/valpere/phrasecheck/internal/search"
	"github.com/valpere/phrasecheck/internal/similarity"
	"github.com/valpere/phrasecheck/internal/store"
	"github.com/valpere/phrasecheck/internal/translator"
	"github.com/valpere/phrasecheck/internal/validator"
)

// buildServices constructs the list of translation services named in the
// configuration.
func buildServices(c *config.Config) ([]translator.TranslationService, error) {
	p := c.Providers
	var list []translator.TranslationService

	for _, name := range c.Translate.Services {
		switch name {
		case "google":
			list = append(list, translator.NewGoogleService())
		case "microsoft":
			list = append(list, translator.NewMicrosoftService(p.Microsoft.Key, p.Microsoft.Region))
		case "yandex":
			list = append(list, translator.NewYandexService(p.Yandex.Key, p.Yandex.FolderID))
		case "systran":
			list = append(list, translator.NewSystranService(p.Systran.Key))
		case "mymemory":
			list = append(list, translator.NewMyMemoryService(p.MyMemory.Email))
		case "ollama":
			list = append(list, translator.NewOllamaTranslator(p.Ollama.URL, p.Ollama.Models))
		default:
			fmt.Fprintf(os.Stderr, "Unknown service: %s, skipping\n", name)
		}
	}

	if len(list) == 0 {
		return nil, fmt.Errorf("no valid services configured")
	}
	return list, nil
}

// serviceConfig carries the per-call settings shared by every provider.
func serviceConfig(c *config.Config) translator.ServiceConfig {
	return translator.ServiceConfig{
		Credentials: c.Providers.Google.Credentials,
		APIKey:      c.Providers.Google.APIKey,
		Timeout:     c.Translate.Timeout,
	}
}

// buildSearch returns the configured engine behind a rate limiter and, when
// enabled, a response cache. db may be nil when the SQLite cache is off.
func buildSearch(ctx context.Context, c *config.Config, db *store.Store, log *zap.Logger) (search.Client, func(), error) {
	var engine search.Client
	switch c.Search.Engine {
	case "searxng":
		engine = search.NewSearxClient(c.Search.SearxURL, c.Search.Language)
	default:
		engine = search.NewBingClient(c.Search.BingKey, c.Search.BingEndpoint, c.Search.Market)
	}
	var client search.Client = search.NewLimitedClient(engine, c.Search.Rate)

	cleanup := func() {}
	switch c.Search.Cache {
	case "sqlite":
		if db != nil {
			client = search.NewCachedClient(client, db, c.Search.CacheTTL, log)
		}
	case "redis":
		rdb, err := rediscache.Dial(ctx, c.Redis)
		if err != nil {
			return nil, nil, err
		}
		client = search.NewCachedClient(client, rediscache.New(rdb, c.Redis.Prefix), c.Search.CacheTTL, log)
		cleanup = func() { _ = rdb.Close() }
	}

	log.Debug("search configured",
		zap.String("engine", engine.Name()),
		zap.String("cache", c.Search.Cache),
		zap.Float64("rate", c.Search.Rate))
	return client, cleanup, nil
}

func buildParser(c *config.Config, log *zap.Logger) parser.Parser {
	return parser.NewCoreNLPParser(c.Parser, log)
}

// buildOrchestrator constructs the configured providers behind the
// orchestrator. With translate.preflight set, unreachable providers are
// dropped first.
func buildOrchestrator(ctx context.Context, c *config.Config, log *zap.Logger) (*orchestrator.Orchestrator, *detector.Detector, error) {
	services, err := buildServices(c)
	if err != nil {
		return nil, nil, err
	}

	det := detector.NewForTranslation(c.Translate.Source, c.Translate.Target)
	orch := orchestrator.New(services, orchestrator.OrchestratorConfig{
		Timeout:        c.Translate.Timeout,
		MaxAttempts:    c.Translate.MaxAttempts,
		RetryDelay:     c.Translate.RetryDelay,
		SkipValidation: c.Translate.SkipValidation,
		Validator:      validator.NewWithDetector(det),
		Logger:         log,
	})

	if c.Translate.Preflight {
		if err := orch.Preflight(ctx, c.Translate.Target); err != nil {
			return nil, nil, err
		}
	}
	return orch, det, nil
}

// buildBuilder wires the checking pipeline around orch. The returned
// cleanup releases network clients; db may be nil.
func buildBuilder(ctx context.Context, c *config.Config, orch *orchestrator.Orchestrator, det *detector.Detector, db *store.Store, log *zap.Logger) (*report.Builder, func(), error) {
	searcher, cleanup, err := buildSearch(ctx, c, db, log)
	if err != nil {
		return nil, nil, err
	}

	p := buildParser(c, log)
	gatherer := evidence.NewGatherer(evidence.NewPageExpander(c.Evidence, log), log)
	scorer := similarity.NewTreeScorer(p, c.Similarity.CacheTTL)
	j := judge.New(c.Judge, searcher, gatherer, scorer, log)

	b := report.NewBuilder(orch, p, phrase.NewExtractor(c.Phrase), j, report.Options{
		Concurrency:   c.Report.Concurrency,
		ServiceConfig: serviceConfig(c),
	}, log).WithDetector(det)

	if c.Refine.Enabled {
		b = b.WithRefiner(refiner.NewOllamaRefiner(c.Refine.Model, c.Refine.URL))
	}
	return b, cleanup, nil
}

// openStore opens the SQLite database named by db.path.
func openStore(c *config.Config) (*store.Store, error) {
	db, err := store.New(c.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}
