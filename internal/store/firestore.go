package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
)

// firestoreBatchLimit is the documented maximum number of operations in one
// Firestore WriteBatch.
const firestoreBatchLimit = 500

const (
	ledgersCollection      = "ledgers"
	transactionsCollection = "transactions"
	categoriesCollection   = "categories"
)

// FirestoreStore implements Store on Cloud Firestore. Transactions and
// categories live in subcollections under ledgers/{ledgerID}; dates are
// encoded as native Firestore timestamps.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore connects to the given project.
func NewFirestoreStore(ctx context.Context, projectID string) (*FirestoreStore, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewFirestoreStore: creating client: %w", err)
	}
	return &FirestoreStore{client: client}, nil
}

// Close releases the underlying client.
func (s *FirestoreStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// MaxBatchSize implements Store.
func (s *FirestoreStore) MaxBatchSize() int {
	return firestoreBatchLimit
}

func (s *FirestoreStore) transactions(ledgerID string) *firestore.CollectionRef {
	return s.client.Collection(ledgersCollection).Doc(ledgerID).Collection(transactionsCollection)
}

// ListTransactions implements Store.
func (s *FirestoreStore) ListTransactions(ctx context.Context, ledgerID string) ([]TransactionDoc, error) {
	var docs []TransactionDoc
	iter := s.transactions(ledgerID).Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListTransactions: ledger %s: %w", ledgerID, err)
		}
		var doc TransactionDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("ListTransactions: decoding %s: %w", snap.Ref.ID, err)
		}
		doc.ID = snap.Ref.ID
		docs = append(docs, doc)
	}
	return docs, nil
}

// ListCategories implements Store.
func (s *FirestoreStore) ListCategories(ctx context.Context, ledgerID string) ([]CategoryDoc, error) {
	var cats []CategoryDoc
	iter := s.client.Collection(ledgersCollection).Doc(ledgerID).Collection(categoriesCollection).Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListCategories: ledger %s: %w", ledgerID, err)
		}
		var cat CategoryDoc
		if err := snap.DataTo(&cat); err != nil {
			return nil, fmt.Errorf("ListCategories: decoding %s: %w", snap.Ref.ID, err)
		}
		cat.ID = snap.Ref.ID
		cats = append(cats, cat)
	}
	return cats, nil
}

// CommitTransactions implements Store. One WriteBatch commit covers the whole
// group, so either every document lands or none does.
func (s *FirestoreStore) CommitTransactions(ctx context.Context, ledgerID string, docs []TransactionDoc) error {
	if len(docs) == 0 {
		return nil
	}
	if len(docs) > firestoreBatchLimit {
		return fmt.Errorf("CommitTransactions: %d docs exceeds batch limit %d", len(docs), firestoreBatchLimit)
	}
	coll := s.transactions(ledgerID)
	batch := s.client.Batch()
	for i := range docs {
		batch.Set(coll.Doc(uuid.NewString()), docs[i])
	}
	if _, err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("CommitTransactions: ledger %s: %w", ledgerID, err)
	}
	return nil
}

var _ Store = (*FirestoreStore)(nil)
