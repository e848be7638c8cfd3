// Package refiner proposes an improved wording for a phrase that was not
// found to be meaningful, using the corroborating sentences gathered for it.
package refiner

import "context"

// Refiner rewrites phrase in lang, guided by suggestions ordered best first.
type Refiner interface {
	Refine(ctx context.Context, lang, phrase string, suggestions []string) (string, error)
}
