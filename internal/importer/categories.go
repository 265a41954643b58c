package importer

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// Category is an existing ledger category, fetched once per import run.
type Category struct {
	ID   string
	Name string
}

// MatchCategory resolves a source category text against the ledger's
// categories. Both sides are trimmed and lowercased; a match is accepted when
// either string contains the other, first match wins. Returns nil when no
// category matches.
func MatchCategory(source string, categories []Category) *Category {
	src := strings.ToLower(strings.TrimSpace(source))
	if src == "" {
		return nil
	}
	for i := range categories {
		name := strings.ToLower(strings.TrimSpace(categories[i].Name))
		if name == "" {
			continue
		}
		if strings.Contains(name, src) || strings.Contains(src, name) {
			return &categories[i]
		}
	}
	return nil
}

// SuggestCategory proposes the closest ledger category for a source text that
// matched nothing, using edit distance on the normalized names. Used by the
// review step; never applied automatically. Returns nil when no category is
// within maxDistance.
func SuggestCategory(source string, categories []Category, maxDistance int) *Category {
	src := strings.ToLower(strings.TrimSpace(source))
	if src == "" {
		return nil
	}
	var best *Category
	bestDist := maxDistance + 1
	for i := range categories {
		name := strings.ToLower(strings.TrimSpace(categories[i].Name))
		if name == "" {
			continue
		}
		if d := levenshtein.ComputeDistance(src, name); d < bestDist {
			bestDist = d
			best = &categories[i]
		}
	}
	return best
}
