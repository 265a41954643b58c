package importer

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoTransactionData is returned when a file yields no transactions at all:
// either no data start could be located, or every candidate row was dropped.
// Surfaced to the user verbatim with remediation guidance.
var ErrNoTransactionData = errors.New("no transaction data found; ensure the file contains transaction records")

// ParseOptions tune per-run parsing behavior.
type ParseOptions struct {
	// Policy decides the fate of rows with unrecognized direction markers on
	// profiles that do not require one. Zero value falls back to
	// DirectionDefaultIncome.
	Policy DirectionPolicy
}

// ParseExport maps decoded export text to canonical transactions using the
// given platform profile. Pure function of its inputs: no side effects.
//
// Data location, in order: header keyword scan, date-pattern scan, the
// profile's fixed fallback offset. Individual malformed rows (too few fields,
// unparseable amount or date, unrecognized direction marker where required)
// are silently dropped.
func ParseExport(p *PlatformProfile, text string, categories []Category, opts ParseOptions) ([]*CanonicalTransaction, error) {
	policy := opts.Policy
	if policy == "" {
		policy = DirectionDefaultIncome
	}

	lines := strings.Split(text, "\n")
	start := dataStart(p, lines)

	var txs []*CanonicalTransaction
	for i := start; i < len(lines); i++ {
		line := strings.TrimSpace(strings.TrimRight(lines[i], "\r"))
		if line == "" {
			continue
		}
		tx := mapRow(p, tokenizeLine(line), categories, policy)
		if tx == nil {
			continue
		}
		// Line offset from the data start, 1-based; stable for the lifetime
		// of the run so classification responses can be correlated.
		tx.SequenceID = i - start + 1
		txs = append(txs, tx)
	}

	if len(txs) == 0 {
		return nil, fmt.Errorf("%s export: %w", p.Name, ErrNoTransactionData)
	}
	return txs, nil
}

// dataStart locates the first data line. Header keywords win; then the
// profile's date pattern (inclusive); then the fixed degraded-mode offset.
func dataStart(p *PlatformProfile, lines []string) int {
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if !strings.Contains(line, p.RequiredKeyword) {
			continue
		}
		for _, kw := range p.AnyKeywords {
			if strings.Contains(line, kw) {
				return i + 1
			}
		}
	}
	for i, raw := range lines {
		if p.DataPattern.MatchString(strings.TrimSpace(raw)) {
			return i
		}
	}
	return p.FallbackOffset
}

// mapRow converts one tokenized row to a canonical transaction, or nil when
// the row must be dropped.
func mapRow(p *PlatformProfile, fields []string, categories []Category, policy DirectionPolicy) *CanonicalTransaction {
	if len(fields) < p.MinFields {
		return nil
	}

	var layout *Layout
	for i := range p.Layouts {
		if len(fields) >= p.Layouts[i].MinFields {
			layout = &p.Layouts[i]
			break
		}
	}
	if layout == nil {
		return nil
	}

	direction := fields[layout.Direction]
	txType, ok := classifyDirection(p, direction, policy)
	if !ok {
		return nil
	}

	amount, err := parseAmount(fields[layout.Amount])
	if err != nil {
		return nil
	}

	date, err := parseDate(p.DateLayout, fields[layout.DateTime])
	if err != nil {
		return nil
	}

	sourceCategory := fields[layout.Category]
	counterparty := fields[layout.Counterparty]

	description := fields[layout.Description]
	if description == "" {
		description = DefaultDescription
	}

	paymentMethod := fields[layout.PaymentMethod]
	if paymentMethod == "" {
		paymentMethod = "Unknown"
	}

	notes := ""
	if counterparty != "" {
		notes = "Counterparty: " + counterparty
	}

	original := map[string]string{
		"category":     sourceCategory,
		"counterparty": counterparty,
		"direction":    direction,
		"status":       fields[layout.Status],
	}
	if layout.Account >= 0 {
		original["account"] = fields[layout.Account]
	}

	tx := &CanonicalTransaction{
		Date:          date,
		Type:          txType,
		Amount:        amount,
		Description:   description,
		Counterparty:  counterparty,
		Notes:         notes,
		PaymentMethod: paymentMethod,
		Platform:      p.ID,
		CategoryName:  sourceCategory,
		OriginalData:  original,
	}
	if matched := MatchCategory(sourceCategory, categories); matched != nil {
		tx.CategoryID = matched.ID
		tx.CategoryName = matched.Name
	}
	return tx
}
