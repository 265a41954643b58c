package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/importer/internal/store"
)

// ErrCommitFailed is returned when every attempted commit group failed and
// nothing was imported.
var ErrCommitFailed = errors.New("every commit group failed")

// Commit partitions the final transaction list into store-sized groups and
// writes each group atomically. Before writing, the live store is re-read for
// a second duplicate check, narrowing the window in which a concurrent import
// could slip the same records in. Progress is reported after each group as
// groupsDone/groupsTotal, so the reported sequence is monotonic and ends at 1.
//
// One failing group does not abort the run: its transactions are counted as
// skipped and the loop continues. Groups commit strictly sequentially.
func Commit(ctx context.Context, st store.Store, ledgerID, userID string, txs []*CanonicalTransaction, onProgress func(float64), log zerolog.Logger) (ImportBatchResult, error) {
	report := func(f float64) {
		if onProgress != nil {
			onProgress(f)
		}
	}

	if len(txs) == 0 {
		report(1)
		return ImportBatchResult{}, nil
	}

	existingDocs, err := st.ListTransactions(ctx, ledgerID)
	if err != nil {
		return ImportBatchResult{}, fmt.Errorf("Commit: fetch existing transactions: %w", err)
	}
	existing := NewKeySet(len(existingDocs))
	for _, d := range existingDocs {
		existing.Add(FormatDedupKey(d.Date, decimal.NewFromFloat(d.Amount), d.Description))
	}

	size := st.MaxBatchSize()
	groupsTotal := (len(txs) + size - 1) / size

	var result ImportBatchResult
	result.Total = len(txs)

	var attempted, failed int
	for gi := 0; gi < groupsTotal; gi++ {
		group := txs[gi*size : min((gi+1)*size, len(txs))]

		docs := make([]store.TransactionDoc, 0, len(group))
		groupDups := 0
		for _, tx := range group {
			key := tx.DedupKey()
			if existing.Contains(key) {
				groupDups++
				continue
			}
			existing.Add(key)
			docs = append(docs, toDoc(tx, userID))
		}

		if len(docs) == 0 {
			result.Skipped += groupDups
			report(float64(gi+1) / float64(groupsTotal))
			continue
		}

		attempted++
		if err := st.CommitTransactions(ctx, ledgerID, docs); err != nil {
			// The whole group is counted as skipped; no partial
			// within-group success is assumed.
			failed++
			result.Skipped += len(docs) + groupDups
			log.Error().Err(err).
				Int("group", gi+1).
				Int("size", len(docs)).
				Msg("Commit group failed")
		} else {
			result.Imported += len(docs)
			result.Skipped += groupDups
		}
		report(float64(gi+1) / float64(groupsTotal))
	}

	if attempted > 0 && failed == attempted {
		return result, ErrCommitFailed
	}
	return result, nil
}

// toDoc maps a canonical transaction to its persisted document shape.
func toDoc(tx *CanonicalTransaction, userID string) store.TransactionDoc {
	return store.TransactionDoc{
		Date:            tx.Date,
		Type:            string(tx.Type),
		Amount:          tx.Amount.InexactFloat64(),
		Description:     tx.Description,
		Notes:           tx.Notes,
		CategoryID:      tx.CategoryID,
		CategoryName:    tx.CategoryName,
		PaymentMethod:   tx.PaymentMethod,
		IncludeInBudget: true,
		Platform:        tx.Platform,
		OriginalData:    tx.OriginalData,
		CreatedAt:       time.Now(),
		CreatedBy:       userID,
		PaidBy:          userID,
	}
}
