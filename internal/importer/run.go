package importer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/importer/internal/store"
)

// RunState names a phase of an import run.
type RunState string

const (
	StateIdle        RunState = "idle"
	StateParsing     RunState = "parsing"
	StateParsed      RunState = "parsed"
	StateClassifying RunState = "classifying"
	StateReviewing   RunState = "reviewing"
	StateCommitting  RunState = "committing"
	StateCompleted   RunState = "completed"
	StateCancelled   RunState = "cancelled"
	StateFailed      RunState = "failed"
)

// ErrInvalidTransition reports an operation attempted in a state that does not
// allow it.
var ErrInvalidTransition = errors.New("operation not allowed in current state")

// Classifier assigns categories to parsed transactions, keyed by sequence ID.
// Implementations stream: onPartial (optional) receives assignments as they
// become resolvable, before the final map is returned.
type Classifier interface {
	Categorize(ctx context.Context, txs []*CanonicalTransaction, onPartial func(map[int]string)) (map[int]string, error)
}

// RunConfig carries everything a Run needs besides the export content itself.
type RunConfig struct {
	LedgerID   string
	UserID     string
	Platform   string
	Policy     DirectionPolicy
	Store      store.Store
	Classifier Classifier // nil disables classification
	Logger     zerolog.Logger
	OnProgress func(float64) // commit progress, optional
}

// Run drives one import through parse, optional classification, review and
// commit. Methods are safe for concurrent use with Cancel and Snapshot; the
// phase methods themselves are meant to be called sequentially by one
// goroutine.
type Run struct {
	id  string
	cfg RunConfig

	mu             sync.Mutex
	state          RunState
	txs            []*CanonicalTransaction
	categories     []Category
	preSkipped     int
	progress       float64
	result         *ImportBatchResult
	runErr         error
	cancelClassify context.CancelFunc
}

// NewRun validates the platform and returns a run in StateIdle.
func NewRun(id string, cfg RunConfig) (*Run, error) {
	if _, err := ProfileByID(cfg.Platform); err != nil {
		return nil, fmt.Errorf("NewRun: %w", err)
	}
	if cfg.Store == nil {
		return nil, errors.New("NewRun: store is required")
	}
	return &Run{id: id, cfg: cfg, state: StateIdle}, nil
}

func (r *Run) ID() string { return r.id }

// State returns the current phase.
func (r *Run) State() RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// RunSnapshot is a point-in-time view of a run for status reporting.
type RunSnapshot struct {
	ID           string
	State        RunState
	Progress     float64
	Transactions int
	PreSkipped   int
	Result       *ImportBatchResult
	Err          string
}

// Snapshot captures the run state without exposing internal slices.
func (r *Run) Snapshot() RunSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := RunSnapshot{
		ID:           r.id,
		State:        r.state,
		Progress:     r.progress,
		Transactions: len(r.txs),
		PreSkipped:   r.preSkipped,
	}
	if r.result != nil {
		res := *r.result
		snap.Result = &res
	}
	if r.runErr != nil {
		snap.Err = r.runErr.Error()
	}
	return snap
}

// Transactions returns the parsed, deduplicated transactions for review.
func (r *Run) Transactions() []*CanonicalTransaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*CanonicalTransaction, len(r.txs))
	copy(out, r.txs)
	return out
}

// Parse decodes the raw export, maps it to canonical transactions and drops
// rows whose dedup key already exists in the ledger. Any failure moves the run
// to StateFailed.
func (r *Run) Parse(ctx context.Context, raw []byte) error {
	if err := r.transition(StateParsing, StateIdle); err != nil {
		return err
	}
	profile, _ := ProfileByID(r.cfg.Platform)

	text, err := DecodeExport(profile, raw)
	if err != nil {
		return r.fail(fmt.Errorf("decode export: %w", err))
	}

	catDocs, err := r.cfg.Store.ListCategories(ctx, r.cfg.LedgerID)
	if err != nil {
		return r.fail(fmt.Errorf("fetch categories: %w", err))
	}
	categories := make([]Category, 0, len(catDocs))
	for _, d := range catDocs {
		categories = append(categories, Category{ID: d.ID, Name: d.Name})
	}

	txs, err := ParseExport(profile, text, categories, ParseOptions{Policy: r.cfg.Policy})
	if err != nil {
		return r.fail(err)
	}

	existingDocs, err := r.cfg.Store.ListTransactions(ctx, r.cfg.LedgerID)
	if err != nil {
		return r.fail(fmt.Errorf("fetch existing transactions: %w", err))
	}
	existing := NewKeySet(len(existingDocs))
	for _, d := range existingDocs {
		existing.Add(FormatDedupKey(d.Date, decimal.NewFromFloat(d.Amount), d.Description))
	}
	kept, dups := Dedupe(existing, txs)

	r.mu.Lock()
	r.txs = kept
	r.categories = categories
	r.preSkipped = dups
	r.state = StateParsed
	r.mu.Unlock()

	r.cfg.Logger.Info().
		Str("run_id", r.id).
		Str("platform", profile.ID).
		Int("parsed", len(txs)).
		Int("duplicates", dups).
		Msg("Export parsed")
	return nil
}

// Classify runs the configured classifier over the parsed transactions,
// applying streamed assignments as they arrive. On success the run enters
// StateReviewing. Cancellation (via Cancel or ctx) moves it to StateCancelled.
// Any other failure returns the run to StateParsed so the caller can fall back
// to committing without enrichment.
func (r *Run) Classify(ctx context.Context) error {
	if r.cfg.Classifier == nil {
		return errors.New("Classify: no classifier configured")
	}
	if err := r.transition(StateClassifying, StateParsed, StateReviewing); err != nil {
		return err
	}

	cctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.mu.Lock()
	r.cancelClassify = cancel
	txs := make([]*CanonicalTransaction, len(r.txs))
	copy(txs, r.txs)
	r.mu.Unlock()

	assignments, err := r.cfg.Classifier.Categorize(cctx, txs, r.applyAssignments)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelClassify = nil

	if err != nil {
		if errors.Is(err, context.Canceled) {
			r.state = StateCancelled
			r.cfg.Logger.Info().Str("run_id", r.id).Msg("Classification cancelled")
			return err
		}
		// Recoverable: the run can still commit unenriched.
		r.state = StateParsed
		r.cfg.Logger.Warn().Err(err).Str("run_id", r.id).Msg("Classification failed")
		return err
	}

	r.applyLocked(assignments)
	r.state = StateReviewing
	r.cfg.Logger.Info().
		Str("run_id", r.id).
		Int("assigned", len(assignments)).
		Msg("Classification completed")
	return nil
}

// applyAssignments is the streaming callback; partial maps only ever add or
// overwrite suggested categories.
func (r *Run) applyAssignments(partial map[int]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applyLocked(partial)
}

func (r *Run) applyLocked(assignments map[int]string) {
	for _, tx := range r.txs {
		if category, found := assignments[tx.SequenceID]; found && category != "" {
			tx.LLMCategory = category
		}
	}
}

// suggestionMaxDistance bounds how far an edit-distance suggestion may sit
// from the unmatched text before it is treated as noise.
const suggestionMaxDistance = 2

// Suggestions proposes ledger categories for transactions whose category
// matched nothing, keyed by sequence ID. Informational for the review caller;
// only ApplyReview changes assignments.
func (r *Run) Suggestions() map[int]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	suggestions := make(map[int]string)
	for _, tx := range r.txs {
		source := tx.LLMCategory
		switch {
		case source == "":
			if tx.CategoryID != "" {
				continue
			}
			source = tx.CategoryName
		case MatchCategory(source, r.categories) != nil:
			continue
		}
		if s := SuggestCategory(source, r.categories, suggestionMaxDistance); s != nil {
			suggestions[tx.SequenceID] = s.Name
		}
	}
	return suggestions
}

// ApplyReview overwrites suggested categories with user decisions, keyed by
// sequence ID. Only valid while reviewing.
func (r *Run) ApplyReview(overrides map[int]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateReviewing {
		return fmt.Errorf("ApplyReview in state %s: %w", r.state, ErrInvalidTransition)
	}
	for _, tx := range r.txs {
		if category, found := overrides[tx.SequenceID]; found {
			tx.LLMCategory = category
		}
	}
	return nil
}

// Commit reconciles suggested categories against the ledger's category list
// and writes the transactions in atomic groups. Reachable from StateParsed
// (classification skipped, failed, or never configured) and StateReviewing.
func (r *Run) Commit(ctx context.Context) (ImportBatchResult, error) {
	if err := r.transition(StateCommitting, StateParsed, StateReviewing); err != nil {
		return ImportBatchResult{}, err
	}

	r.mu.Lock()
	for _, tx := range r.txs {
		if tx.LLMCategory == "" {
			continue
		}
		if match := MatchCategory(tx.LLMCategory, r.categories); match != nil {
			tx.CategoryID = match.ID
			tx.CategoryName = match.Name
		} else {
			tx.CategoryID = ""
			tx.CategoryName = tx.LLMCategory
		}
	}
	txs := make([]*CanonicalTransaction, len(r.txs))
	copy(txs, r.txs)
	preSkipped := r.preSkipped
	r.mu.Unlock()

	result, err := Commit(ctx, r.cfg.Store, r.cfg.LedgerID, r.cfg.UserID, txs, r.reportProgress, r.cfg.Logger)
	result.Skipped += preSkipped
	result.Total += preSkipped

	r.mu.Lock()
	defer r.mu.Unlock()
	res := result
	r.result = &res
	if err != nil {
		r.state = StateFailed
		r.runErr = err
		return result, err
	}
	r.state = StateCompleted
	r.cfg.Logger.Info().
		Str("run_id", r.id).
		Int("imported", result.Imported).
		Int("skipped", result.Skipped).
		Int("total", result.Total).
		Msg("Import committed")
	return result, nil
}

// Cancel aborts an in-flight classification. It is a no-op in any other
// state: commits are never interrupted mid-group.
func (r *Run) Cancel() {
	r.mu.Lock()
	cancel := r.cancelClassify
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (r *Run) reportProgress(f float64) {
	r.mu.Lock()
	r.progress = f
	r.mu.Unlock()
	if r.cfg.OnProgress != nil {
		r.cfg.OnProgress(f)
	}
}

// transition moves to next if the current state is one of from.
func (r *Run) transition(next RunState, from ...RunState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range from {
		if r.state == s {
			r.state = next
			return nil
		}
	}
	return fmt.Errorf("transition to %s from %s: %w", next, r.state, ErrInvalidTransition)
}

func (r *Run) fail(err error) error {
	r.mu.Lock()
	r.state = StateFailed
	r.runErr = err
	r.mu.Unlock()
	r.cfg.Logger.Error().Err(err).Str("run_id", r.id).Msg("Import run failed")
	return err
}
