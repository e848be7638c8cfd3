package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const yandexURL = "https://translate.api.cloud.yandex.net/translate/v2/translate"

// YandexService calls the Yandex Cloud Translate v2 REST API.
type YandexService struct {
	apiKey   string
	folderID string
	baseURL  string
	client   *http.Client
}

func NewYandexService(apiKey, folderID string) *YandexService {
	return &YandexService{
		apiKey:   apiKey,
		folderID: folderID,
		baseURL:  yandexURL,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *YandexService) Name() string {
	return "yandex"
}

type yandexRequest struct {
	FolderID           string   `json:"folderId,omitempty"`
	Texts              []string `json:"texts"`
	SourceLanguageCode string   `json:"sourceLanguageCode,omitempty"`
	TargetLanguageCode string   `json:"targetLanguageCode"`
	Format             string   `json:"format"`
}

func (s *YandexService) Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	if err := checkChars(s.Name(), req.Text, YandexMaxChars); err != nil {
		result.Error = err.Error()
		return result, err
	}

	apiKey := s.apiKey
	if apiKey == "" {
		apiKey = cfg.APIKey
	}
	if apiKey == "" {
		result.Error = "Yandex API key required"
		return result, fmt.Errorf("Yandex API key required")
	}
	folderID := s.folderID
	if folderID == "" {
		folderID = cfg.FolderID
	}
	endpoint := s.baseURL
	if cfg.BaseURL != "" {
		endpoint = cfg.BaseURL
	}

	body := yandexRequest{
		FolderID:           folderID,
		Texts:              []string{req.Text},
		TargetLanguageCode: req.TargetLang,
		Format:             "PLAIN_TEXT",
	}
	if !isAuto(req.SourceLang) {
		body.SourceLanguageCode = req.SourceLang
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		result.Error = fmt.Sprintf("failed to marshal request: %v", err)
		return result, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		result.Error = fmt.Sprintf("failed to create request: %v", err)
		return result, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Api-Key "+apiKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		result.Error = fmt.Sprintf("request failed: %v", err)
		return result, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		result.Error = fmt.Sprintf("API returned status %d: %s", resp.StatusCode, apiErr.Message)
		return result, fmt.Errorf("API returned status %d: %s", resp.StatusCode, apiErr.Message)
	}

	var yResp struct {
		Translations []struct {
			Text                 string `json:"text"`
			DetectedLanguageCode string `json:"detectedLanguageCode"`
		} `json:"translations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&yResp); err != nil {
		result.Error = fmt.Sprintf("failed to decode response: %v", err)
		return result, err
	}

	if len(yResp.Translations) == 0 {
		result.Error = "no translation returned"
		return result, fmt.Errorf("no translation returned")
	}

	result.TranslatedText = yResp.Translations[0].Text
	result.Confidence = 1.0
	if dl := yResp.Translations[0].DetectedLanguageCode; dl != "" {
		result.Metadata = map[string]string{"detected_source": dl}
	}

	return result, nil
}

func (s *YandexService) IsAvailable(ctx context.Context) error {
	if s.apiKey == "" {
		return fmt.Errorf("Yandex API key not configured")
	}
	return nil
}

func (s *YandexService) SupportedLanguages(ctx context.Context) ([]string, error) {
	return []string{"en", "ru", "uk", "be", "kk", "tr", "de", "fr", "es", "it", "pl", "zh"}, nil
}
