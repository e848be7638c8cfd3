package refiner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOllamaRefiner_New(t *testing.T) {
	refiner := NewOllamaRefiner("llama3.2", "http://localhost:11434/")

	if refiner == nil {
		t.Fatal("expected non-nil refiner")
	}
	if refiner.model != "llama3.2" {
		t.Errorf("expected model 'llama3.2', got %q", refiner.model)
	}
	if refiner.baseURL != "http://localhost:11434" {
		t.Errorf("expected baseURL 'http://localhost:11434', got %q", refiner.baseURL)
	}
	if refiner.client == nil {
		t.Error("expected non-nil HTTP client")
	}
}

func TestOllamaRefiner_Refine_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("expected /api/generate, got %s", r.URL.Path)
		}
		var req ollamaRequest
		json.NewDecoder(r.Body).Decode(&req)

		if req.Model != "llama3.2" {
			t.Errorf("expected model 'llama3.2', got %q", req.Model)
		}
		if req.Stream {
			t.Error("expected stream=false")
		}
		if !strings.Contains(req.Prompt, "the holder of old music rights") {
			t.Error("expected suggestion in prompt")
		}

		resp := ollamaResponse{
			Response: "Here is the rewritten phrase: \"the owner of the old music rights\"",
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	refiner := NewOllamaRefiner("llama3.2", server.URL)

	result, err := refiner.Refine(context.Background(), "en", "the proprietor of old music rights",
		[]string{"the holder of old music rights"})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if result != "the owner of the old music rights" {
		t.Errorf("expected cleaned refinement, got %q", result)
	}
}

func TestOllamaRefiner_Refine_ReturnsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaResponse{Response: ""})
	}))
	defer server.Close()

	refiner := NewOllamaRefiner("llama3.2", server.URL)

	result, err := refiner.Refine(context.Background(), "en", "original phrase", nil)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if result != "original phrase" {
		t.Errorf("expected original phrase when response empty, got %q", result)
	}
}

func TestOllamaRefiner_Refine_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	refiner := NewOllamaRefiner("llama3.2", server.URL)

	if _, err := refiner.Refine(context.Background(), "en", "phrase", nil); err == nil {
		t.Error("expected error for non-OK status")
	}
}

func TestOllamaRefiner_Refine_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	refiner := NewOllamaRefiner("llama3.2", server.URL)

	if _, err := refiner.Refine(context.Background(), "en", "phrase", nil); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestBuildRefinementPrompt(t *testing.T) {
	suggestions := []string{"one", "two", "three", "four", "five", "six"}
	prompt := buildRefinementPrompt("en", "some phrase", suggestions)

	if !strings.Contains(prompt, "some phrase") {
		t.Error("expected phrase in prompt")
	}
	if !strings.Contains(prompt, "- five") {
		t.Error("expected fifth suggestion in prompt")
	}
	if strings.Contains(prompt, "- six") {
		t.Error("expected suggestions capped at five")
	}

	bare := buildRefinementPrompt("en", "some phrase", nil)
	if strings.Contains(bare, "SIMILAR STRUCTURE") {
		t.Error("expected no suggestion section without suggestions")
	}
}

func TestRefinerInterface(t *testing.T) {
	var _ Refiner = (*OllamaRefiner)(nil)
}
