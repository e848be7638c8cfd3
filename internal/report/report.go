// Package report builds and serializes the meaningfulness report of one
// input text: Provider → Sentence → Phrase → suggestions.
package report

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"time"

	"github.com/valpere/phrasecheck/internal/judge"
)

// Stylesheet is referenced by the xml-stylesheet processing instruction.
const Stylesheet = "translation.xsl"

type Report struct {
	XMLName      xml.Name      `xml:"text-translation" json:"-"`
	ID           string        `xml:"id,attr" json:"id"`
	CreatedAt    time.Time     `xml:"created,attr" json:"created_at"`
	SourceLang   string        `xml:"source-lang,attr,omitempty" json:"source_lang,omitempty"`
	TargetLang   string        `xml:"target-lang,attr" json:"target_lang"`
	OriginalText string        `xml:"original-text" json:"original_text"`
	Translations []Translation `xml:"translation" json:"translations"`
}

type Translation struct {
	Engine    string     `xml:"engine,attr" json:"engine"`
	Error     string     `xml:"error,attr,omitempty" json:"error,omitempty"`
	Text      string     `xml:"translated-text,omitempty" json:"translated_text,omitempty"`
	Sentences []Sentence `xml:"sentence" json:"sentences,omitempty"`
}

type Sentence struct {
	Words   int      `xml:"words,attr" json:"words"`
	Text    string   `xml:"translated-sentence" json:"translated_sentence"`
	Penn    string   `xml:"sentence-penn-string" json:"sentence_penn_string"`
	Phrases []Phrase `xml:"phrase" json:"phrases,omitempty"`
}

type Phrase struct {
	Meaningful  Flag         `xml:"meaningful,attr" json:"meaningful"`
	Score       float64      `xml:"score,attr" json:"score"`
	Words       int          `xml:"words,attr" json:"words"`
	Error       string       `xml:"error,attr,omitempty" json:"error,omitempty"`
	Text        string       `xml:"translated-phrase" json:"translated_phrase"`
	Penn        string       `xml:"phrase-penn-string" json:"phrase_penn_string"`
	Improved    string       `xml:"improved-phrase,omitempty" json:"improved_phrase,omitempty"`
	Suggestions []Suggestion `xml:"suggestion" json:"suggestions,omitempty"`
}

type Suggestion struct {
	Score float64 `xml:"relative-score,attr" json:"relative_score"`
	Text  string  `xml:",chardata" json:"text"`
}

// Flag is a boolean written as "1" or "0" in XML attributes.
type Flag bool

func (f Flag) MarshalXMLAttr(name xml.Name) (xml.Attr, error) {
	v := "0"
	if f {
		v = "1"
	}
	return xml.Attr{Name: name, Value: v}, nil
}

func (f *Flag) UnmarshalXMLAttr(attr xml.Attr) error {
	*f = attr.Value == "1" || attr.Value == "true"
	return nil
}

func suggestionsFrom(s judge.Suggestions) []Suggestion {
	sorted := s.Sorted()
	out := make([]Suggestion, len(sorted))
	for i, e := range sorted {
		out[i] = Suggestion{Score: e.Score, Text: e.Text}
	}
	return out
}

// Stats summarizes a report.
type Stats struct {
	Engines    int `json:"engines"`
	Failed     int `json:"failed"`
	Sentences  int `json:"sentences"`
	Phrases    int `json:"phrases"`
	Meaningful int `json:"meaningful"`
	Errors     int `json:"errors"`
}

func (r *Report) Stats() Stats {
	var st Stats
	for _, tr := range r.Translations {
		st.Engines++
		if tr.Error != "" {
			st.Failed++
		}
		for _, s := range tr.Sentences {
			st.Sentences++
			for _, p := range s.Phrases {
				st.Phrases++
				if p.Meaningful {
					st.Meaningful++
				}
				if p.Error != "" {
					st.Errors++
				}
			}
		}
	}
	return st
}

// WriteXML writes r as an indented XML document preceded by the XML header
// and the xml-stylesheet processing instruction.
func WriteXML(w io.Writer, r *Report) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "<?xml-stylesheet type=\"text/xsl\" href=%q?>\n", Stylesheet); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// ReadJSON decodes a report written by WriteJSON.
func ReadJSON(r io.Reader) (*Report, error) {
	var rep Report
	if err := json.NewDecoder(r).Decode(&rep); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &rep, nil
}
