package importer

import (
	"time"

	"github.com/shopspring/decimal"
)

// DedupKey derives the stable identity of a transaction: two transactions
// with equal date, amount, and description are the same real-world event.
func (t *CanonicalTransaction) DedupKey() string {
	return FormatDedupKey(t.Date, t.Amount, t.Description)
}

// FormatDedupKey builds a dedup key from the identity triple. The exact same
// rendering is used for candidate transactions and for records already in the
// store, so keys compare across both. The instant is formatted in UTC and the
// amount at fixed two-decimal scale, keeping equal values with different
// textual scale ("1250", "1250.00") on the same key.
func FormatDedupKey(date time.Time, amount decimal.Decimal, description string) string {
	return date.UTC().Format(time.RFC3339) + "-" + amount.StringFixed(2) + "-" + description
}

// KeySet is a set of dedup keys.
type KeySet map[string]struct{}

// NewKeySet builds an empty set sized for n entries.
func NewKeySet(n int) KeySet {
	return make(KeySet, n)
}

// Add inserts a key.
func (s KeySet) Add(key string) {
	s[key] = struct{}{}
}

// Contains reports whether the key is present.
func (s KeySet) Contains(key string) bool {
	_, ok := s[key]
	return ok
}

// Dedupe filters candidates against the existing-transaction key set and
// against earlier candidates in the same batch (first occurrence wins).
// Pure: survivors are returned unmodified and the existing set is not
// mutated. Runs in O(existing + candidates).
func Dedupe(existing KeySet, candidates []*CanonicalTransaction) (kept []*CanonicalTransaction, duplicates int) {
	seen := NewKeySet(len(candidates))
	kept = make([]*CanonicalTransaction, 0, len(candidates))
	for _, tx := range candidates {
		key := tx.DedupKey()
		if existing.Contains(key) || seen.Contains(key) {
			duplicates++
			continue
		}
		seen.Add(key)
		kept = append(kept, tx)
	}
	return kept, duplicates
}
