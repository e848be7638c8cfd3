package translator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMyMemoryService_IsAvailable(t *testing.T) {
	svc := NewMyMemoryService("test@example.com")

	err := svc.IsAvailable(context.Background())
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestMyMemoryService_SupportedLanguages(t *testing.T) {
	svc := NewMyMemoryService("")

	langs, err := svc.SupportedLanguages(context.Background())
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if len(langs) == 0 {
		t.Error("expected non-empty language list")
	}
}

func TestMyMemoryService_Name(t *testing.T) {
	svc := NewMyMemoryService("")

	if svc.Name() != "mymemory" {
		t.Errorf("expected 'mymemory', got %q", svc.Name())
	}
}

func TestMyMemoryService_Translate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if got := r.URL.Query().Get("langpair"); got != "de|en" {
			t.Errorf("expected langpair de|en, got %q", got)
		}
		if got := r.URL.Query().Get("de"); got != "me@example.com" {
			t.Errorf("expected email parameter, got %q", got)
		}
		w.Write([]byte(`{"responseData":{"translatedText":"Good morning","match":1.4},"responseStatus":200}`))
	}))
	defer server.Close()

	svc := NewMyMemoryService("me@example.com")
	svc.baseURL = server.URL

	result, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{
		Text:       "Guten Morgen",
		SourceLang: "de",
		TargetLang: "en",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TranslatedText != "Good morning" {
		t.Errorf("expected 'Good morning', got %q", result.TranslatedText)
	}
	if result.Confidence != 1 {
		t.Errorf("expected confidence clamped to 1, got %v", result.Confidence)
	}
}

func TestMyMemoryService_Translate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"responseStatus":403,"responseDetails":"INVALID LANGUAGE PAIR"}`))
	}))
	defer server.Close()

	svc := NewMyMemoryService("")
	svc.baseURL = server.URL

	result, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{Text: "x", TargetLang: "xx"})
	if err == nil {
		t.Error("expected error for API error status")
	}
	if !strings.Contains(result.Error, "INVALID LANGUAGE PAIR") {
		t.Errorf("expected API details in result error, got %q", result.Error)
	}
}

func TestSizeLimits(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	mymemory := NewMyMemoryService("")
	mymemory.baseURL = server.URL
	microsoft := NewMicrosoftService("key", "")
	microsoft.baseURL = server.URL
	yandex := NewYandexService("key", "folder")
	yandex.baseURL = server.URL

	tests := []struct {
		name string
		svc  TranslationService
		text string
	}{
		{name: "google", svc: NewGoogleService(), text: strings.Repeat("a", GoogleMaxBytes+1)},
		{name: "google multibyte", svc: NewGoogleService(), text: strings.Repeat("ї", GoogleMaxBytes/2+1)},
		{name: "mymemory", svc: mymemory, text: strings.Repeat("a", MyMemoryMaxBytes+1)},
		{name: "microsoft", svc: microsoft, text: strings.Repeat("a", MicrosoftMaxChars+1)},
		{name: "yandex", svc: yandex, text: strings.Repeat("я", YandexMaxChars+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{
				Text:       tt.text,
				TargetLang: "en",
			})
			if !errors.Is(err, ErrTextTooLarge) {
				t.Errorf("expected ErrTextTooLarge, got %v", err)
			}
			if result == nil || result.Error == "" {
				t.Error("expected error message in result")
			}
		})
	}

	if calls != 0 {
		t.Errorf("expected no network calls for oversize input, got %d", calls)
	}
}

func TestYandexService_WithinLimitMultibyte(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"translations":[{"text":"ok"}]}`))
	}))
	defer server.Close()

	svc := NewYandexService("key", "folder")
	svc.baseURL = server.URL

	// Yandex counts characters, not bytes.
	_, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{
		Text:       strings.Repeat("я", YandexMaxChars),
		TargetLang: "en",
	})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSystranService_Translate_NoAPIKey(t *testing.T) {
	svc := NewSystranService("")

	result, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{
		Text:       "Hello",
		SourceLang: "en",
		TargetLang: "fr",
	})

	if err == nil {
		t.Error("expected error when no API key")
	}
	if result == nil {
		t.Fatal("expected non-nil result")
	}
	if result.Error == "" {
		t.Error("expected error message in result")
	}
}

func TestSystranService_Translate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("Forbidden"))
	}))
	defer server.Close()

	svc := &SystranService{
		apiKey:  "test-key",
		baseURL: server.URL,
		client:  server.Client(),
	}

	result, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{
		Text:       "Hello",
		SourceLang: "en",
		TargetLang: "fr",
	})

	if err == nil {
		t.Error("expected error for non-OK status")
	}
	if result == nil {
		t.Fatal("expected non-nil result")
	}
}

func TestSystranService_Translate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-RapidAPI-Key") != "test-key" {
			t.Errorf("expected API key header, got %q", r.Header.Get("X-RapidAPI-Key"))
		}
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		if req["source"] != "auto" {
			t.Errorf("expected source 'auto', got %v", req["source"])
		}
		w.Write([]byte(`{"outputs":[{"output":"Bonjour"}]}`))
	}))
	defer server.Close()

	svc := &SystranService{apiKey: "test-key", baseURL: server.URL, client: server.Client()}

	result, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{Text: "Hello", TargetLang: "fr"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TranslatedText != "Bonjour" {
		t.Errorf("expected 'Bonjour', got %q", result.TranslatedText)
	}
}

func TestSystranService_IsAvailable_NoAPIKey(t *testing.T) {
	svc := NewSystranService("")

	err := svc.IsAvailable(context.Background())
	if err == nil {
		t.Error("expected error when no API key")
	}
}

func TestSystranService_IsAvailable_WithAPIKey(t *testing.T) {
	svc := NewSystranService("test-key")

	err := svc.IsAvailable(context.Background())
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSystranService_Name(t *testing.T) {
	svc := NewSystranService("test-key")

	if svc.Name() != "systran" {
		t.Errorf("expected 'systran', got %q", svc.Name())
	}
}

func TestMicrosoftService_Translate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/translate" {
			t.Errorf("expected /translate, got %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("api-version") != "3.0" || q.Get("to") != "en" {
			t.Errorf("unexpected query %v", q)
		}
		if q.Has("from") {
			t.Error("expected no 'from' parameter for auto source")
		}
		if r.Header.Get("Ocp-Apim-Subscription-Key") != "key" {
			t.Error("expected subscription key header")
		}
		if r.Header.Get("Ocp-Apim-Subscription-Region") != "westeurope" {
			t.Error("expected region header")
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `[{"Text":"Hallo Welt"}]` {
			t.Errorf("unexpected body %s", body)
		}
		w.Write([]byte(`[{"detectedLanguage":{"language":"de","score":1.0},"translations":[{"text":"Hello world","to":"en"}]}]`))
	}))
	defer server.Close()

	svc := NewMicrosoftService("key", "westeurope")
	svc.baseURL = server.URL

	result, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{
		Text:       "Hallo Welt",
		SourceLang: "auto",
		TargetLang: "en",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TranslatedText != "Hello world" {
		t.Errorf("expected 'Hello world', got %q", result.TranslatedText)
	}
	if result.Metadata["detected_source"] != "de" {
		t.Errorf("expected detected source in metadata, got %v", result.Metadata)
	}
}

func TestMicrosoftService_Translate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"code":401000,"message":"invalid credentials"}}`))
	}))
	defer server.Close()

	svc := NewMicrosoftService("key", "")
	svc.baseURL = server.URL

	result, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{Text: "x", TargetLang: "en"})
	if err == nil {
		t.Fatal("expected error for non-OK status")
	}
	if !strings.Contains(result.Error, "invalid credentials") {
		t.Errorf("expected API message in result error, got %q", result.Error)
	}
}

func TestMicrosoftService_NoKey(t *testing.T) {
	svc := NewMicrosoftService("", "")
	if _, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{Text: "x", TargetLang: "en"}); err == nil {
		t.Error("expected error when no key")
	}
	if err := svc.IsAvailable(context.Background()); err == nil {
		t.Error("expected IsAvailable error when no key")
	}
}

func TestYandexService_Translate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Api-Key key" {
			t.Errorf("unexpected Authorization header %q", r.Header.Get("Authorization"))
		}
		var req yandexRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.FolderID != "folder" || req.SourceLanguageCode != "ru" || req.TargetLanguageCode != "en" {
			t.Errorf("unexpected request %+v", req)
		}
		w.Write([]byte(`{"translations":[{"text":"Hello world"}]}`))
	}))
	defer server.Close()

	svc := NewYandexService("key", "folder")
	svc.baseURL = server.URL

	result, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{
		Text:       "Привет мир",
		SourceLang: "ru",
		TargetLang: "en",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TranslatedText != "Hello world" {
		t.Errorf("expected 'Hello world', got %q", result.TranslatedText)
	}
}

func TestYandexService_Translate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":3,"message":"unsupported target_language_code"}`))
	}))
	defer server.Close()

	svc := NewYandexService("key", "")
	svc.baseURL = server.URL

	result, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{Text: "x", TargetLang: "zz"})
	if err == nil {
		t.Fatal("expected error for non-OK status")
	}
	if !strings.Contains(result.Error, "unsupported target_language_code") {
		t.Errorf("expected API message in result error, got %q", result.Error)
	}
}

func TestOllamaTranslator_Translate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"response": "Here is the translation: \"Good morning.\"",
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	svc := &OllamaTranslator{
		baseURL: server.URL,
		models:  []string{"llama3.2"},
		client:  server.Client(),
	}

	result, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{
		Text:       "Доброго ранку.",
		SourceLang: "uk",
		TargetLang: "en",
	})

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if result == nil {
		t.Fatal("expected non-nil result")
	}
	if result.TranslatedText != "Good morning." {
		t.Errorf("expected 'Good morning.', got %q", result.TranslatedText)
	}
	if result.Metadata["model"] != "llama3.2" {
		t.Errorf("expected model in metadata, got %v", result.Metadata)
	}
}

func TestOllamaTranslator_Translate_AutoSourceLang(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		prompt := req["prompt"].(string)
		if !strings.Contains(prompt, "detected source language") {
			t.Errorf("expected auto-detect wording in prompt, got %q", prompt)
		}
		resp := map[string]any{"response": "Hello"}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	svc := &OllamaTranslator{
		baseURL: server.URL,
		models:  []string{"llama3.2"},
		client:  server.Client(),
	}

	_, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{
		Text:       "Привіт",
		SourceLang: "auto",
		TargetLang: "en",
	})

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestOllamaTranslator_Translate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := &OllamaTranslator{
		baseURL: server.URL,
		models:  []string{"llama3.2"},
		client:  server.Client(),
	}

	result, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{
		Text:       "Hello",
		SourceLang: "en",
		TargetLang: "uk",
	})

	if err == nil {
		t.Error("expected error for non-OK status")
	}
	if result == nil {
		t.Fatal("expected non-nil result")
	}
}

func TestOllamaTranslator_Translate_EmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":"<think>nothing to say</think>"}`))
	}))
	defer server.Close()

	svc := &OllamaTranslator{baseURL: server.URL, models: []string{"llama3.2"}, client: server.Client()}

	if _, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{Text: "x", TargetLang: "en"}); err == nil {
		t.Error("expected error for empty cleaned response")
	}
}

func TestOllamaTranslator_IsAvailable_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc := &OllamaTranslator{
		baseURL: server.URL,
		client:  server.Client(),
	}

	err := svc.IsAvailable(context.Background())
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestOllamaTranslator_IsAvailable_NotRunning(t *testing.T) {
	svc := &OllamaTranslator{
		baseURL: "http://localhost:19999",
		client:  &http.Client{Timeout: 100 * time.Millisecond},
	}

	err := svc.IsAvailable(context.Background())
	if err == nil {
		t.Error("expected error when Ollama not available")
	}
}

func TestOllamaTranslator_Name(t *testing.T) {
	svc := NewOllamaTranslator("", nil)

	if svc.Name() != "ollama" {
		t.Errorf("expected 'ollama', got %q", svc.Name())
	}
}
