// Package markdown turns Markdown input into the plain text that is sent to
// the translators.
package markdown

import (
	"bytes"
	"strings"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func ToHTML(md []byte) string {
	opts := mdhtml.RendererOptions{
		Flags: mdhtml.CommonFlags,
	}
	renderer := mdhtml.NewRenderer(opts)
	ext := parser.CommonExtensions | parser.Attributes
	p := parser.NewWithExtensions(ext)
	doc := p.Parse(md)
	return string(markdown.Render(doc, renderer))
}

// ToPlainText renders md and keeps its visible prose. Block elements are
// separated by blank lines; code blocks are dropped.
func ToPlainText(md []byte) string {
	return StripHTMLTags(ToHTML(md))
}

// StripHTMLTags returns the text content of htmlContent with entities
// decoded.
func StripHTMLTags(htmlContent string) string {
	var buf bytes.Buffer
	z := html.NewTokenizer(strings.NewReader(htmlContent))
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return tidy(buf.String())
		case html.TextToken:
			if skip == 0 {
				buf.Write(z.Text())
			}
		case html.StartTagToken:
			name, _ := z.TagName()
			switch a := atom.Lookup(name); {
			case a == atom.Pre || a == atom.Script || a == atom.Style:
				skip++
			case a == atom.Br:
				buf.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch a := atom.Lookup(name); a {
			case atom.Pre, atom.Script, atom.Style:
				if skip > 0 {
					skip--
				}
				buf.WriteString("\n\n")
			case atom.P, atom.Li, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
				atom.Blockquote, atom.Td, atom.Th, atom.Dd, atom.Dt:
				buf.WriteString("\n\n")
			}
		case html.SelfClosingTagToken:
			name, _ := z.TagName()
			if atom.Lookup(name) == atom.Br {
				buf.WriteByte('\n')
			}
		}
	}
}

// tidy collapses runs of spaces within lines and of blank lines between
// blocks.
func tidy(s string) string {
	var blocks []string
	for _, block := range strings.Split(s, "\n\n") {
		var lines []string
		for _, line := range strings.Split(block, "\n") {
			if line = strings.Join(strings.Fields(line), " "); line != "" {
				lines = append(lines, line)
			}
		}
		if len(lines) > 0 {
			blocks = append(blocks, strings.Join(lines, "\n"))
		}
	}
	return strings.Join(blocks, "\n\n")
}
