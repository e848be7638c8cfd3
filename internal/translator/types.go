// Package translator defines the translation-provider capability and its
// implementations. Providers are constructed once and shared; each call
// carries its own ServiceConfig and request.
package translator

import (
	"context"
	"errors"
	"time"
)

// ErrTextTooLarge is returned before any network call when the input exceeds
// a provider's size limit.
var ErrTextTooLarge = errors.New("text too large")

type ServiceConfig struct {
	Credentials string        `mapstructure:"credentials" json:"credentials"`
	APIKey      string        `mapstructure:"api_key" json:"api_key"`
	Model       string        `mapstructure:"model" json:"model"`
	BaseURL     string        `mapstructure:"base_url" json:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout" json:"timeout"`
	ProjectID   string        `mapstructure:"project_id" json:"project_id"`
	Region      string        `mapstructure:"region" json:"region"`
	FolderID    string        `mapstructure:"folder_id" json:"folder_id"`
}

type TranslateRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

type ServiceResult struct {
	ServiceName    string            `json:"service_name"`
	TranslatedText string            `json:"translated_text"`
	Confidence     float64           `json:"confidence"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	Latency        time.Duration     `json:"latency"`
	Error          string            `json:"error,omitempty"`
}

type TranslationService interface {
	Name() string
	Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error)
	IsAvailable(ctx context.Context) error
	SupportedLanguages(ctx context.Context) ([]string, error)
}

func isAuto(lang string) bool {
	return lang == "" || lang == "auto"
}
