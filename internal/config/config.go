// Package config assembles the run configuration from defaults, an optional
// config file, PHRASECHECK_* environment variables and bound CLI flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/valpere/phrasecheck/internal/evidence"
	"github.com/valpere/phrasecheck/internal/judge"
	"github.com/valpere/phrasecheck/internal/parser"
	"github.com/valpere/phrasecheck/internal/phrase"
	"github.com/valpere/phrasecheck/internal/rediscache"
)

// EnvPrefix prefixes every environment override, e.g. PHRASECHECK_JUDGE_CONSIDERABLE_RESULTS.
const EnvPrefix = "PHRASECHECK"

type Config struct {
	Phrase     phrase.Config     `mapstructure:"phrase"`
	Judge      judge.Config      `mapstructure:"judge"`
	Search     SearchConfig      `mapstructure:"search"`
	Redis      rediscache.Config `mapstructure:"redis"`
	Parser     parser.Config     `mapstructure:"parser"`
	Evidence   evidence.Config   `mapstructure:"evidence"`
	Similarity SimilarityConfig  `mapstructure:"similarity"`
	Translate  TranslateConfig   `mapstructure:"translate"`
	Providers  ProvidersConfig   `mapstructure:"providers"`
	Refine     RefineConfig      `mapstructure:"refine"`
	Report     ReportConfig      `mapstructure:"report"`
	DB         DBConfig          `mapstructure:"db"`
	Log        LogConfig         `mapstructure:"log"`
}

type SearchConfig struct {
	Engine       string        `mapstructure:"engine" validate:"oneof=bing searxng"`
	BingKey      string        `mapstructure:"bing_key"`
	BingEndpoint string        `mapstructure:"bing_endpoint" validate:"omitempty,url"`
	Market       string        `mapstructure:"market"`
	SearxURL     string        `mapstructure:"searx_url" validate:"omitempty,url"`
	Language     string        `mapstructure:"language"`
	Rate         float64       `mapstructure:"rate" validate:"min=0"`
	Cache        string        `mapstructure:"cache" validate:"oneof=none sqlite redis"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl" validate:"min=0"`
}

type SimilarityConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl" validate:"min=0"`
}

type TranslateConfig struct {
	Services       []string      `mapstructure:"services" validate:"min=1,dive,oneof=google microsoft yandex mymemory systran ollama"`
	Source         string        `mapstructure:"source" validate:"required"`
	Target         string        `mapstructure:"target" validate:"required"`
	Timeout        time.Duration `mapstructure:"timeout" validate:"min=0"`
	MaxAttempts    int           `mapstructure:"max_attempts" validate:"min=1,max=10"`
	RetryDelay     time.Duration `mapstructure:"retry_delay" validate:"min=0"`
	SkipValidation bool          `mapstructure:"skip_validation"`
	// Preflight checks every service before translating and drops the
	// unreachable ones.
	Preflight bool `mapstructure:"preflight"`
}

type ProvidersConfig struct {
	Google    GoogleConfig    `mapstructure:"google"`
	Microsoft MicrosoftConfig `mapstructure:"microsoft"`
	Yandex    YandexConfig    `mapstructure:"yandex"`
	MyMemory  MyMemoryConfig  `mapstructure:"mymemory"`
	Systran   SystranConfig   `mapstructure:"systran"`
	Ollama    OllamaConfig    `mapstructure:"ollama"`
}

type GoogleConfig struct {
	Credentials string `mapstructure:"credentials"`
	APIKey      string `mapstructure:"api_key"`
}

type MicrosoftConfig struct {
	Key    string `mapstructure:"key"`
	Region string `mapstructure:"region"`
}

type YandexConfig struct {
	Key      string `mapstructure:"key"`
	FolderID string `mapstructure:"folder_id"`
}

type MyMemoryConfig struct {
	Email string `mapstructure:"email" validate:"omitempty,email"`
}

type SystranConfig struct {
	Key string `mapstructure:"key"`
}

type OllamaConfig struct {
	URL    string   `mapstructure:"url" validate:"omitempty,url"`
	Models []string `mapstructure:"models"`
}

type RefineConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Model   string `mapstructure:"model" validate:"required_if=Enabled true"`
	URL     string `mapstructure:"url" validate:"omitempty,url"`
}

type ReportConfig struct {
	Concurrency int    `mapstructure:"concurrency" validate:"min=1,max=64"`
	Format      string `mapstructure:"format" validate:"oneof=xml json"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level       string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Development bool   `mapstructure:"development"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	pc := phrase.DefaultConfig()
	v.SetDefault("phrase.min_words", pc.MinWords)
	v.SetDefault("phrase.max_words", pc.MaxWords)
	v.SetDefault("phrase.min_relative_words", pc.MinRelativeWords)
	v.SetDefault("phrase.max_relative_words", pc.MaxRelativeWords)

	jc := judge.DefaultConfig()
	v.SetDefault("judge.meaningfulness_threshold", jc.MeaningfulnessThreshold)
	v.SetDefault("judge.suggestion_threshold", jc.SuggestionThreshold)
	v.SetDefault("judge.considerable_results", jc.ConsiderableResults)

	v.SetDefault("search.engine", "bing")
	v.SetDefault("search.bing_key", "")
	v.SetDefault("search.bing_endpoint", "")
	v.SetDefault("search.market", "en-US")
	v.SetDefault("search.searx_url", "")
	v.SetDefault("search.language", "en")
	v.SetDefault("search.rate", 3.0)
	v.SetDefault("search.cache", "sqlite")
	v.SetDefault("search.cache_ttl", 7*24*time.Hour)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", rediscache.DefaultPrefix)

	prc := parser.DefaultConfig()
	v.SetDefault("parser.url", prc.URL)
	v.SetDefault("parser.timeout", prc.Timeout)

	ec := evidence.DefaultConfig()
	v.SetDefault("evidence.timeout", ec.Timeout)
	v.SetDefault("evidence.max_page_bytes", ec.MaxPageBytes)
	v.SetDefault("evidence.max_sentences", ec.MaxSentences)
	v.SetDefault("evidence.min_words", ec.MinWords)
	v.SetDefault("evidence.allow_pdf", ec.AllowPDF)
	v.SetDefault("evidence.user_agent", ec.UserAgent)

	v.SetDefault("similarity.cache_ttl", time.Hour)

	v.SetDefault("translate.services", []string{"google", "microsoft", "yandex"})
	v.SetDefault("translate.source", "auto")
	v.SetDefault("translate.target", "en")
	v.SetDefault("translate.timeout", 30*time.Second)
	v.SetDefault("translate.max_attempts", 3)
	v.SetDefault("translate.retry_delay", 500*time.Millisecond)
	v.SetDefault("translate.skip_validation", false)
	v.SetDefault("translate.preflight", true)

	// Secrets default to empty so that environment overrides reach Unmarshal.
	v.SetDefault("providers.google.credentials", "")
	v.SetDefault("providers.google.api_key", "")
	v.SetDefault("providers.microsoft.key", "")
	v.SetDefault("providers.microsoft.region", "")
	v.SetDefault("providers.yandex.key", "")
	v.SetDefault("providers.yandex.folder_id", "")
	v.SetDefault("providers.mymemory.email", "")
	v.SetDefault("providers.systran.key", "")
	v.SetDefault("providers.ollama.url", "http://localhost:11434")
	v.SetDefault("providers.ollama.models", []string{"llama3.1:8b", "mistral:7b"})

	v.SetDefault("refine.enabled", false)
	v.SetDefault("refine.model", "llama3.1:8b")
	v.SetDefault("refine.url", "http://localhost:11434")

	v.SetDefault("report.concurrency", 1)
	v.SetDefault("report.format", "xml")

	v.SetDefault("db.path", "phrasecheck.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Load reads the optional config file into v, applies environment
// overrides and returns the validated configuration. An empty file skips
// the file.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validation failed: %w", err)
		}
		msgs := make([]string, 0, len(verrs))
		for _, e := range verrs {
			msgs = append(msgs, fmt.Sprintf("Field: %s, Tag: %s, Param: %s", e.Namespace(), e.Tag(), e.Param()))
		}
		return fmt.Errorf("validation failed: %s", strings.Join(msgs, "; "))
	}
	return nil
}
