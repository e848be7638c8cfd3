package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const microsoftURL = "https://api.cognitive.microsofttranslator.com"

// MicrosoftService calls the Azure AI Translator v3 REST API.
type MicrosoftService struct {
	apiKey  string
	region  string
	baseURL string
	client  *http.Client
}

func NewMicrosoftService(apiKey, region string) *MicrosoftService {
	return &MicrosoftService{
		apiKey:  apiKey,
		region:  region,
		baseURL: microsoftURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *MicrosoftService) Name() string {
	return "microsoft"
}

func (s *MicrosoftService) Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	if err := checkChars(s.Name(), req.Text, MicrosoftMaxChars); err != nil {
		result.Error = err.Error()
		return result, err
	}

	apiKey := s.apiKey
	if apiKey == "" {
		apiKey = cfg.APIKey
	}
	if apiKey == "" {
		result.Error = "Microsoft Translator key required"
		return result, fmt.Errorf("Microsoft Translator key required")
	}
	region := s.region
	if region == "" {
		region = cfg.Region
	}
	base := s.baseURL
	if cfg.BaseURL != "" {
		base = cfg.BaseURL
	}

	params := url.Values{}
	params.Set("api-version", "3.0")
	params.Set("to", req.TargetLang)
	if !isAuto(req.SourceLang) {
		params.Set("from", req.SourceLang)
	}

	jsonData, err := json.Marshal([]map[string]string{{"Text": req.Text}})
	if err != nil {
		result.Error = fmt.Sprintf("failed to marshal request: %v", err)
		return result, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/translate?"+params.Encode(), bytes.NewBuffer(jsonData))
	if err != nil {
		result.Error = fmt.Sprintf("failed to create request: %v", err)
		return result, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", apiKey)
	if region != "" {
		httpReq.Header.Set("Ocp-Apim-Subscription-Region", region)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		result.Error = fmt.Sprintf("request failed: %v", err)
		return result, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error struct {
				Code    int    `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		result.Error = fmt.Sprintf("API returned status %d: %s", resp.StatusCode, apiErr.Error.Message)
		return result, fmt.Errorf("API returned status %d: %s", resp.StatusCode, apiErr.Error.Message)
	}

	var msResp []struct {
		DetectedLanguage *struct {
			Language string  `json:"language"`
			Score    float64 `json:"score"`
		} `json:"detectedLanguage"`
		Translations []struct {
			Text string `json:"text"`
			To   string `json:"to"`
		} `json:"translations"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&msResp); err != nil {
		result.Error = fmt.Sprintf("failed to decode response: %v", err)
		return result, err
	}

	if len(msResp) == 0 || len(msResp[0].Translations) == 0 {
		result.Error = "no translation returned"
		return result, fmt.Errorf("no translation returned")
	}

	result.TranslatedText = msResp[0].Translations[0].Text
	result.Confidence = 1.0
	if dl := msResp[0].DetectedLanguage; dl != nil {
		result.Metadata = map[string]string{"detected_source": dl.Language}
	}

	return result, nil
}

func (s *MicrosoftService) IsAvailable(ctx context.Context) error {
	if s.apiKey == "" {
		return fmt.Errorf("Microsoft Translator key not configured")
	}
	return nil
}

func (s *MicrosoftService) SupportedLanguages(ctx context.Context) ([]string, error) {
	return []string{
		"en", "es", "fr", "de", "it", "pt", "ru", "ja", "ko", "zh-Hans",
		"ar", "nl", "pl", "tr", "sv", "da", "nb", "fi", "el", "he", "uk",
	}, nil
}
