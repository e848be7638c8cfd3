// Package validator checks that a translation result is in the expected target language.
package validator

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"github.com/valpere/phrasecheck/internal/detector"
)

// ErrWrongLanguage is returned when the detected language differs from the target.
var ErrWrongLanguage = errors.New("translation is in the wrong language")

// minValidationLength is the minimum rune count required to attempt language detection.
// Shorter texts produce unreliable results and are accepted without validation.
const minValidationLength = 20

// Validator checks that a translation result is written in the expected target language.
// The underlying language detector is expensive to build; reuse the instance.
type Validator struct {
	det *detector.Detector
}

// New creates a Validator backed by a detector over all languages.
func New() *Validator {
	return &Validator{det: detector.New()}
}

// NewWithDetector shares an existing detector.
func NewWithDetector(det *detector.Detector) *Validator {
	return &Validator{det: det}
}

// IsValid returns true when translatedText appears to be written in targetLang.
//
// Short texts (fewer than minValidationLength runes) and texts whose language
// cannot be determined pass without error. Region and script subtags of
// targetLang are ignored ("en-GB" matches English).
func (v *Validator) IsValid(translatedText, targetLang string) (bool, error) {
	if targetLang == "" {
		return true, nil
	}

	text := strings.TrimSpace(translatedText)
	if text == "" {
		return false, fmt.Errorf("translation is empty")
	}

	if len([]rune(text)) < minValidationLength {
		return true, nil
	}

	detected, ok := v.det.DetectISO(text)
	if !ok {
		return true, nil
	}

	want := baseLanguage(targetLang)
	if !strings.EqualFold(detected, want) {
		return false, fmt.Errorf("%w: expected %s but detected %s", ErrWrongLanguage, want, detected)
	}

	return true, nil
}

func baseLanguage(tag string) string {
	t, err := language.Parse(tag)
	if err != nil {
		return tag
	}
	base, _ := t.Base()
	return base.String()
}
