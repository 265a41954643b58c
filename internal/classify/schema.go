package classify

import (
	"errors"
	"strconv"
	"strings"

	"github.com/ledgerline/importer/internal/partialjson"
)

// CategoryHardToTell is assigned when classification completes for a row but
// the response carries no usable category. Never left empty once a row's
// classification finishes.
const CategoryHardToTell = "HTT"

// assignment is one {id, category} pair from the response, correlated to a
// transaction by sequence ID.
type assignment struct {
	ID       int
	Category string
}

var errBadSchema = errors.New("expected {\"transactions\": [{\"id\", \"category\"}, ...]}")

// stripFences removes a surrounding Markdown code fence, which models emit
// despite instructions not to.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if idx := strings.Index(s, "\n"); idx != -1 {
		s = s[idx+1:]
	} else {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// decodeAssignments extracts resolvable {id, category} pairs from a
// (possibly partial) parsed response value. ok is false when the value does
// not expose the transactions array at all; with a truncated stream that is
// routine, not an error.
func decodeAssignments(v any) (pairs []assignment, ok bool) {
	obj, isMap := v.(map[string]any)
	if !isMap {
		return nil, false
	}
	list, isList := obj["transactions"].([]any)
	if !isList {
		return nil, false
	}
	for _, item := range list {
		entry, isEntry := item.(map[string]any)
		if !isEntry {
			continue
		}
		id, idOK := coerceID(firstOf(entry, "id", "Id"))
		if !idOK {
			continue
		}
		category, _ := firstOf(entry, "category", "cat").(string)
		pairs = append(pairs, assignment{ID: id, Category: strings.TrimSpace(category)})
	}
	return pairs, true
}

// parseAccumulated runs the tolerant parser over accumulated stream text and
// decodes whatever assignments are resolvable.
func parseAccumulated(content string) ([]assignment, bool) {
	v, err := partialjson.Parse(stripFences(content))
	if err != nil {
		return nil, false
	}
	return decodeAssignments(v)
}

func firstOf(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, found := m[k]; found {
			return v
		}
	}
	return nil
}

// coerceID accepts response ids as numbers or numeric strings.
func coerceID(v any) (int, bool) {
	switch val := v.(type) {
	case float64:
		return int(val), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
