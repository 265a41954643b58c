package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests and single-instance runs
// without a Firestore project configured.
type MemoryStore struct {
	mu        sync.RWMutex
	batchSize int
	txs       map[string][]TransactionDoc
	cats      map[string][]CategoryDoc

	commitCalls int
	commitHook  func(call int, docs []TransactionDoc) error
}

// NewMemoryStore creates an empty store with the given atomic-batch limit.
// A non-positive batchSize falls back to the Firestore limit.
func NewMemoryStore(batchSize int) *MemoryStore {
	if batchSize <= 0 {
		batchSize = firestoreBatchLimit
	}
	return &MemoryStore{
		batchSize: batchSize,
		txs:       make(map[string][]TransactionDoc),
		cats:      make(map[string][]CategoryDoc),
	}
}

// MaxBatchSize implements Store.
func (m *MemoryStore) MaxBatchSize() int {
	return m.batchSize
}

// SeedCategories installs ledger categories.
func (m *MemoryStore) SeedCategories(ledgerID string, cats []CategoryDoc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cats[ledgerID] = append(m.cats[ledgerID], cats...)
}

// SeedTransactions installs pre-existing ledger transactions.
func (m *MemoryStore) SeedTransactions(ledgerID string, docs []TransactionDoc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range docs {
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		m.txs[ledgerID] = append(m.txs[ledgerID], d)
	}
}

// SetCommitHook installs a hook invoked before each commit with the 1-based
// call number; returning an error fails that commit atomically. Test seam.
func (m *MemoryStore) SetCommitHook(hook func(call int, docs []TransactionDoc) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commitHook = hook
}

// ListTransactions implements Store.
func (m *MemoryStore) ListTransactions(ctx context.Context, ledgerID string) ([]TransactionDoc, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]TransactionDoc, len(m.txs[ledgerID]))
	copy(out, m.txs[ledgerID])
	return out, nil
}

// ListCategories implements Store.
func (m *MemoryStore) ListCategories(ctx context.Context, ledgerID string) ([]CategoryDoc, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]CategoryDoc, len(m.cats[ledgerID]))
	copy(out, m.cats[ledgerID])
	return out, nil
}

// CommitTransactions implements Store.
func (m *MemoryStore) CommitTransactions(ctx context.Context, ledgerID string, docs []TransactionDoc) error {
	if len(docs) > m.batchSize {
		return fmt.Errorf("CommitTransactions: %d docs exceeds batch limit %d", len(docs), m.batchSize)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commitCalls++
	if m.commitHook != nil {
		if err := m.commitHook(m.commitCalls, docs); err != nil {
			return err
		}
	}
	for _, d := range docs {
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		m.txs[ledgerID] = append(m.txs[ledgerID], d)
	}
	return nil
}

var _ Store = (*MemoryStore)(nil)
