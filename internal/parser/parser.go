// Package parser obtains Penn Treebank constituency trees for English text
// from a Stanford CoreNLP server.
package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/valpere/phrasecheck/internal/syntax"
)

// ErrNoSentences is returned when the server produced no parse for non-empty text.
var ErrNoSentences = errors.New("parser returned no sentences")

// Parser turns text into one constituency tree per sentence.
type Parser interface {
	Parse(ctx context.Context, text string) ([]*syntax.Tree, error)
}

type Config struct {
	URL     string        `mapstructure:"url" json:"url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout" json:"timeout" validate:"min=0"`
}

func DefaultConfig() Config {
	return Config{
		URL:     "http://localhost:9000",
		Timeout: 60 * time.Second,
	}
}

// CoreNLPParser talks to the CoreNLP HTTP server.
type CoreNLPParser struct {
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

func NewCoreNLPParser(cfg Config, log *zap.Logger) *CoreNLPParser {
	if log == nil {
		log = zap.NewNop()
	}
	return &CoreNLPParser{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
		log:     log,
	}
}

const annotatorProperties = `{"annotators":"tokenize,ssplit,pos,parse","outputFormat":"json","tokenize.language":"en"}`

type coreNLPResponse struct {
	Sentences []struct {
		Index int    `json:"index"`
		Parse string `json:"parse"`
	} `json:"sentences"`
}

// Parse returns a tree per sentence detected in text. Empty text yields no trees.
func (p *CoreNLPParser) Parse(ctx context.Context, text string) ([]*syntax.Tree, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	endpoint := p.baseURL + "/?properties=" + url.QueryEscape(annotatorProperties)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBufferString(text))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("corenlp request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("corenlp error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result coreNLPResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode corenlp response: %w", err)
	}
	if len(result.Sentences) == 0 {
		return nil, ErrNoSentences
	}

	trees := make([]*syntax.Tree, 0, len(result.Sentences))
	for _, s := range result.Sentences {
		tree, err := syntax.ParsePenn(s.Parse)
		if err != nil {
			return nil, fmt.Errorf("sentence %d: %w", s.Index, err)
		}
		trees = append(trees, tree)
	}

	p.log.Debug("parsed text", zap.Int("sentences", len(trees)), zap.Int("chars", len(text)))
	return trees, nil
}
