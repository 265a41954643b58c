package importer

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// amountJunk matches everything that is not a digit, decimal point, or sign.
// Currency symbols and thousand separators are stripped before parsing.
var amountJunk = regexp.MustCompile(`[^0-9.\-]`)

// parseAmount normalizes a raw amount field like "¥1,250.00" to a positive
// decimal. The sign of the source value is discarded; direction is carried by
// the transaction type.
func parseAmount(raw string) (decimal.Decimal, error) {
	cleaned := amountJunk.ReplaceAllString(raw, "")
	if cleaned == "" || cleaned == "-" {
		return decimal.Decimal{}, fmt.Errorf("amount %q has no numeric content", raw)
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("amount %q: %w", raw, err)
	}
	if d.IsZero() {
		return decimal.Decimal{}, fmt.Errorf("amount %q is zero", raw)
	}
	return d.Abs(), nil
}

// parseDate parses the platform's native date/time text as-is, in the local
// zone. No timezone normalization is performed; a parse failure drops the row
// rather than silently becoming "now".
func parseDate(layout, raw string) (time.Time, error) {
	t, err := time.ParseInLocation(layout, strings.TrimSpace(raw), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: %w", raw, err)
	}
	return t, nil
}

// classifyDirection maps a direction marker to a transaction type. The second
// return is false when the row must be dropped: either the profile requires a
// recognized marker, or the policy rejects unrecognized ones.
func classifyDirection(p *PlatformProfile, marker string, policy DirectionPolicy) (TransactionType, bool) {
	switch marker {
	case p.ExpenseMarker:
		return TypeExpense, true
	case p.IncomeMarker:
		return TypeIncome, true
	}
	if p.RequireMarker || policy == DirectionReject {
		return "", false
	}
	return TypeIncome, true
}
