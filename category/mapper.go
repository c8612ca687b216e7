package category

import (
	"strings"
	"unicode"
)

// Mapper resolves a free-text detector label to a Category. It is total:
// every string, including empty and unrecognized input, maps to exactly one
// category, with Other as the default. Pure and deterministic, so fixed
// input/output pairs can be enumerated in tests.
type Mapper struct{}

func NewMapper() *Mapper {
	return &Mapper{}
}

// Map resolves label in four passes: exact normalized match, substring
// containment in either direction, whole-word match for keywords longer than
// three characters, then Other. Categories are checked in a fixed order so
// ties resolve deterministically.
func (m *Mapper) Map(label string) Category {
	norm := normalize(label)
	if norm == "" {
		return Other
	}

	for _, c := range All {
		for _, kw := range keywords[c] {
			if norm == kw {
				return c
			}
		}
	}

	for _, c := range All {
		for _, kw := range keywords[c] {
			if strings.Contains(norm, kw) || strings.Contains(kw, norm) {
				return c
			}
		}
	}

	words := splitWords(norm)
	for _, c := range All {
		for _, kw := range keywords[c] {
			if len(kw) <= 3 {
				continue
			}
			for _, w := range words {
				if w == kw {
					return c
				}
			}
		}
	}

	return Other
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
