// Package store is the boundary to the document database. The import
// pipeline touches it only through query-all reads and size-limited atomic
// batch writes; everything else about the database (replication,
// consistency) is out of scope.
package store

import (
	"context"
	"time"
)

// TransactionDoc is the persisted shape of one transaction document in a
// ledger's transactions collection.
type TransactionDoc struct {
	ID              string            `firestore:"-"`
	Date            time.Time         `firestore:"date"`
	Type            string            `firestore:"type"`
	Amount          float64           `firestore:"amount"`
	Description     string            `firestore:"description"`
	Notes           string            `firestore:"notes"`
	CategoryID      string            `firestore:"categoryId"`
	CategoryName    string            `firestore:"categoryName"`
	PaymentMethod   string            `firestore:"paymentMethod"`
	IncludeInBudget bool              `firestore:"includeInBudget"`
	Platform        string            `firestore:"platform"`
	OriginalData    map[string]string `firestore:"originalData"`
	CreatedAt       time.Time         `firestore:"createdAt"`
	CreatedBy       string            `firestore:"createdBy"`
	PaidBy          string            `firestore:"paidBy"`
}

// CategoryDoc is one category document in a ledger's categories collection.
type CategoryDoc struct {
	ID   string `firestore:"-"`
	Name string `firestore:"name"`
}

// Store exposes the document-store primitives the import pipeline needs.
type Store interface {
	// ListTransactions returns every transaction document in the ledger.
	// Fetched once per import run for duplicate detection.
	ListTransactions(ctx context.Context, ledgerID string) ([]TransactionDoc, error)

	// ListCategories returns every category document in the ledger.
	ListCategories(ctx context.Context, ledgerID string) ([]CategoryDoc, error)

	// CommitTransactions writes the documents in one atomic batch. Callers
	// must keep len(docs) <= MaxBatchSize. All-or-nothing: on error, none of
	// the documents were written.
	CommitTransactions(ctx context.Context, ledgerID string, docs []TransactionDoc) error

	// MaxBatchSize is the store's atomic-batch operation limit.
	MaxBatchSize() int
}
