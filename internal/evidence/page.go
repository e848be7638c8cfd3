package evidence

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"

	"github.com/valpere/phrasecheck/internal/search"
	"github.com/valpere/phrasecheck/internal/segment"
)

// Config controls page fetching and segmentation.
type Config struct {
	Timeout      time.Duration `mapstructure:"timeout" json:"timeout" validate:"min=0"`
	MaxPageBytes int64         `mapstructure:"max_page_bytes" json:"max_page_bytes" validate:"min=1024"`
	MaxSentences int           `mapstructure:"max_sentences" json:"max_sentences" validate:"min=0"`
	MinWords     int           `mapstructure:"min_words" json:"min_words" validate:"min=0"`
	AllowPDF     bool          `mapstructure:"allow_pdf" json:"allow_pdf"`
	UserAgent    string        `mapstructure:"user_agent" json:"user_agent"`
}

func DefaultConfig() Config {
	return Config{
		Timeout:      15 * time.Second,
		MaxPageBytes: 2 << 20,
		MaxSentences: 200,
		MinWords:     3,
		AllowPDF:     false,
		UserAgent:    "Mozilla/5.0 (compatible; phrasecheck/0.1)",
	}
}

// PageExpander fetches pages over HTTP and segments HTML, plain text and,
// when enabled, PDF documents.
type PageExpander struct {
	cfg    Config
	client *http.Client
	log    *zap.Logger
}

func NewPageExpander(cfg Config, log *zap.Logger) *PageExpander {
	if log == nil {
		log = zap.NewNop()
	}
	return &PageExpander{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log,
	}
}

func (e *PageExpander) Expand(ctx context.Context, hit search.Hit) (Expansion, error) {
	u, err := url.Parse(hit.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return Expansion{Status: Unsupported, Reason: "not an http(s) URL"}, nil
	}
	if strings.HasSuffix(strings.ToLower(u.Path), ".pdf") && !e.cfg.AllowPDF {
		return Expansion{Status: Unsupported, MediaType: "application/pdf", Reason: "pdf documents are disabled"}, nil
	}

	body, header, err := e.fetch(ctx, hit.URL)
	if err != nil {
		return Expansion{}, err
	}

	mtype := mimetype.Detect(body)
	exp := Expansion{Status: Segmented, MediaType: mtype.String()}
	opts := segment.Options{MinWords: e.cfg.MinWords, Limit: e.cfg.MaxSentences}

	switch {
	case mtype.Is("text/html") || mtype.Is("application/xhtml+xml"):
		text, err := htmlText(body, header.Get("Content-Type"))
		if err != nil {
			return Expansion{}, fmt.Errorf("failed to parse html from %s: %w", hit.URL, err)
		}
		exp.Sentences = segment.Sentences(text, opts)
	case mtype.Is("application/pdf"):
		if !e.cfg.AllowPDF {
			return Expansion{Status: Unsupported, MediaType: mtype.String(), Reason: "pdf documents are disabled"}, nil
		}
		text, err := pdfText(body)
		if err != nil {
			return Expansion{}, fmt.Errorf("failed to read pdf from %s: %w", hit.URL, err)
		}
		exp.Sentences = segment.Sentences(text, opts)
	case mtype.Is("text/plain"):
		exp.Sentences = segment.Sentences(string(body), opts)
	default:
		return Expansion{Status: Unsupported, MediaType: mtype.String(), Reason: "unsupported media type"}, nil
	}

	e.log.Debug("expanded search hit",
		zap.String("url", hit.URL),
		zap.String("media_type", exp.MediaType),
		zap.Int("sentences", len(exp.Sentences)))
	return exp, nil
}

func (e *PageExpander) fetch(ctx context.Context, pageURL string) ([]byte, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	if e.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", e.cfg.UserAgent)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("%w: %s returned status %d", ErrFetch, pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.cfg.MaxPageBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: reading %s: %v", ErrFetch, pageURL, err)
	}
	return body, resp.Header, nil
}

var skipElements = map[atom.Atom]bool{
	atom.Head:     true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Svg:      true,
	atom.Iframe:   true,
	atom.Nav:      true,
}

var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Li: true, atom.Ul: true, atom.Ol: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Table: true, atom.Tr: true, atom.Td: true, atom.Th: true,
	atom.Section: true, atom.Article: true, atom.Header: true, atom.Footer: true, atom.Main: true, atom.Aside: true,
	atom.Blockquote: true, atom.Pre: true, atom.Dd: true, atom.Dt: true, atom.Figcaption: true,
}

// htmlText returns the visible text of an HTML document with block
// elements separated by blank lines.
func htmlText(body []byte, contentType string) (string, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return "", err
	}
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
			return
		case html.CommentNode:
			return
		case html.ElementNode:
			if skipElements[n.DataAtom] {
				return
			}
		}
		block := n.Type == html.ElementNode && blockElements[n.DataAtom]
		if block {
			sb.WriteString("\n\n")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			sb.WriteString("\n\n")
		}
	}
	walk(doc)
	return sb.String(), nil
}

func pdfText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}
