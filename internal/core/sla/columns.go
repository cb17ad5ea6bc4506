package sla

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/kirillkom/legal-sla-monitor/internal/core/domain"
)

// NormalizeColumn maps raw header text to the canonical key space:
// accent-free, uppercase, underscore separated. It is idempotent.
func NormalizeColumn(header string) string {
	upper := strings.ToUpper(stripDiacritics(header))

	var b strings.Builder
	b.Grow(len(upper))
	lastUnderscore := true
	for _, r := range upper {
		switch {
		case r == '_' || r == '-' || unicode.IsSpace(r):
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastUnderscore = false
		}
	}
	return strings.TrimRight(b.String(), "_")
}

// NormalizeColumns normalizes each header independently. Collisions are left
// to the caller.
func NormalizeColumns(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = NormalizeColumn(h)
	}
	return out
}

// CanonicalValue is the comparison form for cell values used as keys
// (stage, sub-stage): accent-free, uppercase, single-spaced.
func CanonicalValue(value string) string {
	return strings.Join(strings.Fields(strings.ToUpper(stripDiacritics(value))), " ")
}

func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// ColumnSpec declares the headers accepted for one semantic field.
type ColumnSpec struct {
	Field    Field
	Aliases  []string
	Required bool
}

// ResolveColumns maps each spec to the index of its header in normalized.
// Exact alias matches are assigned first; remaining fields then take the
// first unclaimed header containing one of their aliases. A required field
// left unresolved is a structural error.
func ResolveColumns(table string, normalized []string, specs []ColumnSpec) (map[Field]int, error) {
	resolved := make(map[Field]int, len(specs))
	claimed := make(map[int]bool, len(specs))

	for _, spec := range specs {
		for _, alias := range spec.Aliases {
			key := NormalizeColumn(alias)
			idx := indexOf(normalized, key, claimed)
			if idx >= 0 {
				resolved[spec.Field] = idx
				claimed[idx] = true
				break
			}
		}
	}

	for _, spec := range specs {
		if _, ok := resolved[spec.Field]; ok {
			continue
		}
		if idx := firstContaining(normalized, spec.Aliases, claimed); idx >= 0 {
			resolved[spec.Field] = idx
			claimed[idx] = true
		}
	}

	for _, spec := range specs {
		if _, ok := resolved[spec.Field]; ok || !spec.Required {
			continue
		}
		return nil, &domain.MissingColumnError{Table: table, Field: string(spec.Field), Aliases: spec.Aliases}
	}
	return resolved, nil
}

func indexOf(headers []string, key string, claimed map[int]bool) int {
	for i, h := range headers {
		if h == key && !claimed[i] {
			return i
		}
	}
	return -1
}

func firstContaining(headers []string, aliases []string, claimed map[int]bool) int {
	for i, h := range headers {
		if claimed[i] || h == "" {
			continue
		}
		for _, alias := range aliases {
			if key := NormalizeColumn(alias); key != "" && strings.Contains(h, key) {
				return i
			}
		}
	}
	return -1
}

// uniqueHeaders suffixes repeated keys (_2, _3, ...) so every column stays addressable.
func uniqueHeaders(headers []string) []string {
	seen := make(map[string]int, len(headers))
	out := make([]string, len(headers))
	for i, h := range headers {
		if h == "" {
			h = "COLUMNA"
		}
		seen[h]++
		if n := seen[h]; n > 1 {
			out[i] = h + "_" + strconv.Itoa(n)
			continue
		}
		out[i] = h
	}
	return out
}
