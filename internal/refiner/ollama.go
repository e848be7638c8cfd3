package refiner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/valpere/phrasecheck/internal/postprocess"
)

// maxPromptSuggestions caps how many suggestions are shown to the model.
const maxPromptSuggestions = 5

// OllamaRefiner uses a local Ollama model as a copy editor.
type OllamaRefiner struct {
	model   string
	baseURL string
	client  *http.Client
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Response string `json:"response"`
}

// NewOllamaRefiner creates a refiner backed by a local Ollama model.
func NewOllamaRefiner(model, baseURL string) *OllamaRefiner {
	return &OllamaRefiner{
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// Refine asks the model for a natural rewording of phrase. An empty answer
// leaves the phrase unchanged.
func (r *OllamaRefiner) Refine(ctx context.Context, lang, phrase string, suggestions []string) (string, error) {
	reqBody := ollamaRequest{
		Model:  r.model,
		Prompt: buildRefinementPrompt(lang, phrase, suggestions),
		Stream: false,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal refinement request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/api/generate", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create refinement request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("refinement request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("refiner returned status %d", resp.StatusCode)
	}

	var ollamaResp ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return "", fmt.Errorf("failed to decode refinement response: %w", err)
	}

	refined := postprocess.Clean(ollamaResp.Response)
	if refined == "" {
		return phrase, nil
	}
	return refined, nil
}

func buildRefinementPrompt(lang, phrase string, suggestions []string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are a careful %s copy editor.\n\n", lang)
	sb.WriteString("The phrase below comes from a machine translation and may sound unnatural.\n")
	fmt.Fprintf(&sb, "Rewrite it so that a native %s speaker would write it, keeping its meaning.\n\n", lang)
	fmt.Fprintf(&sb, "PHRASE:\n%s\n", phrase)

	if len(suggestions) > 0 {
		sb.WriteString("\nSENTENCES FROM THE WEB WITH A SIMILAR STRUCTURE (best first):\n")
		for i, s := range suggestions {
			if i == maxPromptSuggestions {
				break
			}
			fmt.Fprintf(&sb, "- %s\n", s)
		}
	}

	sb.WriteString("\nIf the phrase is already natural, return it unchanged.\n")
	fmt.Fprintf(&sb, "Output ONLY the rewritten phrase in %s. Do not include any explanation.", lang)
	return sb.String()
}
