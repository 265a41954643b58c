package importer

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a transaction's direction.
type TransactionType string

const (
	TypeExpense TransactionType = "expense"
	TypeIncome  TransactionType = "income"
)

// DirectionPolicy decides what happens to rows whose direction marker is not
// one of the two recognized markers on profiles that do not require a marker.
type DirectionPolicy string

const (
	// DirectionDefaultIncome treats any unrecognized marker as income. This
	// matches the behavior of the shipped importer.
	DirectionDefaultIncome DirectionPolicy = "default-income"

	// DirectionReject drops rows with unrecognized markers.
	DirectionReject DirectionPolicy = "reject"
)

// DefaultDescription is used when a source row carries no description text.
const DefaultDescription = "Unknown Transaction"

// CanonicalTransaction is the pipeline's platform-independent unit of work.
// Instances are created per import run, may be enriched by classification and
// review, and are treated as immutable once handed to Commit.
type CanonicalTransaction struct {
	// SequenceID is monotonic within one import run and correlates a
	// transaction with streamed classification responses. It is not a
	// persistent identifier.
	SequenceID int

	Date        time.Time
	Type        TransactionType
	Amount      decimal.Decimal // always > 0; sign lives in Type
	Description string

	Counterparty  string
	Notes         string
	PaymentMethod string
	Platform      string

	// CategoryID/CategoryName are resolved against the ledger's existing
	// categories by containment match. CategoryID is empty when no ledger
	// category matched, in which case CategoryName keeps the raw source text.
	CategoryID   string
	CategoryName string

	// LLMCategory is set only by the classification client and stays
	// distinct from CategoryName until the run reconciles them at commit.
	LLMCategory string

	// OriginalData retains source-specific fields for audit. Opaque,
	// non-authoritative.
	OriginalData map[string]string
}

// ImportBatchResult is the aggregate outcome of one import run.
// Imported + Skipped == Total always holds, including under partial failure.
type ImportBatchResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Total    int `json:"total"`
}
