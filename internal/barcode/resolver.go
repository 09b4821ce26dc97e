// Package barcode matches scanned codes against the product catalog.
package barcode

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"beerzone-pos/internal/model"
)

// Stage identifies which matching strategy produced a result.
type Stage int

const (
	StageNone Stage = iota
	StageExact
	StageCaseInsensitive
	StageDenoised
	StageSubstring
)

// minSubstringLen guards the substring stage against trivial short-code collisions.
const minSubstringLen = 3

func (s Stage) String() string {
	switch s {
	case StageExact:
		return "exact"
	case StageCaseInsensitive:
		return "case-insensitive"
	case StageDenoised:
		return "denoised"
	case StageSubstring:
		return "substring"
	}
	return "none"
}

// Normalize trims whitespace around a scanned code.
func Normalize(code string) string {
	return strings.TrimSpace(code)
}

// Denoise lower-cases s and strips everything that is not a letter or digit.
func Denoise(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Resolve finds the product for code. Stages run most specific first and the
// first match wins; within a stage catalog order decides. An empty code yields
// model.ErrEmptyCode, no match yields model.ErrBarcodeNotFound.
func Resolve(code string, catalog []model.Product) (model.Product, error) {
	p, _, err := ResolveStage(code, catalog)
	return p, err
}

// ResolveStage is Resolve but also reports the stage that matched.
func ResolveStage(code string, catalog []model.Product) (model.Product, Stage, error) {
	code = Normalize(code)
	if code == "" {
		return model.Product{}, StageNone, model.ErrEmptyCode
	}

	for _, p := range catalog {
		if p.Barcode == code {
			return p, StageExact, nil
		}
	}

	lower := strings.ToLower(code)
	for _, p := range catalog {
		if p.Barcode != "" && strings.ToLower(p.Barcode) == lower {
			return p, StageCaseInsensitive, nil
		}
	}

	clean := Denoise(code)
	if clean != "" {
		for _, p := range catalog {
			if Denoise(p.Barcode) == clean {
				return p, StageDenoised, nil
			}
		}
	}

	// Known false-positive risk: unrelated codes longer than three characters
	// can contain one another.
	if utf8.RuneCountInString(code) > minSubstringLen {
		for _, p := range catalog {
			if utf8.RuneCountInString(p.Barcode) <= minSubstringLen {
				continue
			}
			if strings.Contains(p.Barcode, code) || strings.Contains(code, p.Barcode) {
				return p, StageSubstring, nil
			}
		}
	}

	return model.Product{}, StageNone, model.ErrBarcodeNotFound
}
