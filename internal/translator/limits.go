package translator

import (
	"fmt"
	"unicode/utf8"
)

// Input size limits per provider.
const (
	GoogleMaxBytes    = 10240
	YandexMaxChars    = 10000
	MicrosoftMaxChars = 50000
	MyMemoryMaxBytes  = 500
)

func checkBytes(service, text string, limit int) error {
	if n := len(text); n > limit {
		return fmt.Errorf("%s: %w: %d bytes exceeds limit of %d", service, ErrTextTooLarge, n, limit)
	}
	return nil
}

func checkChars(service, text string, limit int) error {
	if n := utf8.RuneCountInString(text); n > limit {
		return fmt.Errorf("%s: %w: %d characters exceeds limit of %d", service, ErrTextTooLarge, n, limit)
	}
	return nil
}
