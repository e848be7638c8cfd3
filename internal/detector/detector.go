// Package detector identifies the language of a text with lingua-go. It is
// used to fill in the source language of an input when none was given and
// by the validator to check translation output.
package detector

import (
	"fmt"
	"strings"

	lingua "github.com/pemistahl/lingua-go"
)

type Detector struct {
	detector lingua.LanguageDetector
}

// New builds a detector over every language lingua knows. Building it loads
// all language models, so create it once and share it.
func New() *Detector {
	detector := lingua.NewLanguageDetectorBuilder().
		FromAllLanguages().
		Build()

	return &Detector{detector: detector}
}

// NewForLanguages builds a detector restricted to the given ISO 639-1 codes.
// At least two known codes are required.
func NewForLanguages(codes []string) (*Detector, error) {
	var isoCodes []lingua.IsoCode639_1
	for _, code := range codes {
		iso := lingua.GetIsoCode639_1FromValue(strings.ToUpper(strings.TrimSpace(code)))
		if iso == lingua.UnknownIsoCode639_1 {
			return nil, fmt.Errorf("unknown language code %q", code)
		}
		isoCodes = append(isoCodes, iso)
	}
	if len(isoCodes) < 2 {
		return nil, fmt.Errorf("at least two languages are required, got %d", len(isoCodes))
	}

	detector := lingua.NewLanguageDetectorBuilder().
		FromIsoCodes639_1(isoCodes...).
		Build()

	return &Detector{detector: detector}, nil
}

// NewForTranslation builds the detector for one translation direction. A
// known source and target restrict it to that pair, which makes it faster
// and steadier on short sentences, and text left untranslated is still told
// apart from the target. An automatic or unknown source, or a pair that
// collapses to one language, falls back to New.
func NewForTranslation(source, target string) *Detector {
	source, target = baseCode(source), baseCode(target)
	if source == "" || source == "auto" || source == target {
		return New()
	}
	d, err := NewForLanguages([]string{source, target})
	if err != nil {
		return New()
	}
	return d
}

func baseCode(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	return code
}

func (d *Detector) Detect(text string) (lingua.Language, bool) {
	if strings.TrimSpace(text) == "" {
		return lingua.Unknown, false
	}
	return d.detector.DetectLanguageOf(text)
}

// DetectISO returns the lower-case ISO 639-1 code of the language of text.
func (d *Detector) DetectISO(text string) (string, bool) {
	lang, ok := d.Detect(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(lang.IsoCode639_1().String()), true
}
