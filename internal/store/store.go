// Package store persists company identities, raw facts, financial profiles
// and import run audit records.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/finprofile/internal/model"
	"github.com/sells-group/finprofile/internal/resilience"
)

var (
	// ErrPersistence marks a storage failure that survived retries. The
	// import pipeline treats it as fatal.
	ErrPersistence = eris.New("store: persistence failure")

	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = eris.New("store: not found")
)

// RunFilter specifies criteria for listing import runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
}

// Store defines the persistence interface for the import pipeline.
type Store interface {
	// Companies
	UpsertCompanies(ctx context.Context, companies []model.Company) (int64, error)

	// Facts and profiles
	ReplaceFacts(ctx context.Context, cik string, facts []model.Fact) (int64, error)
	CountFacts(ctx context.Context, cik string) (int64, error)
	UpsertProfile(ctx context.Context, p *model.FinancialProfile) error
	GetProfile(ctx context.Context, cikOrTicker string) (*model.FinancialProfile, error)
	DeleteProfile(ctx context.Context, cik string) error

	// Import runs
	StartRun(ctx context.Context) (*model.ImportRun, error)
	CompleteRun(ctx context.Context, runID string, totals model.RunTotals) error
	FailRun(ctx context.Context, runID string, errMsg string, totals model.RunTotals) error
	ListRuns(ctx context.Context, filter RunFilter) ([]model.ImportRun, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Options tunes write batching and per-call deadlines.
type Options struct {
	// FactBatchSize is the number of fact rows per COPY batch.
	FactBatchSize int

	// Timeout bounds each storage call, retries included. Zero disables it.
	Timeout time.Duration

	Retry resilience.RetryConfig
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("store", "write")
	return Options{
		FactBatchSize: 1000,
		Timeout:       2 * time.Minute,
		Retry:         retry,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.FactBatchSize <= 0 {
		o.FactBatchSize = def.FactBatchSize
	}
	if o.Retry.MaxAttempts <= 0 {
		o.Retry = def.Retry
	}
	return o
}

// call runs fn under the per-call deadline, retrying transient failures. A
// failure that survives is wrapped as ErrPersistence, except ErrNotFound.
func call(ctx context.Context, opts Options, op string, fn func(ctx context.Context) error) error {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	err := resilience.Do(ctx, opts.Retry, fn)
	if err == nil {
		return nil
	}
	if eris.Is(err, ErrNotFound) {
		return err
	}
	return eris.Wrapf(ErrPersistence, "%s: %v", op, err)
}

func totalsArgs(t model.RunTotals) []any {
	return []any{
		t.CompaniesInDirectory,
		t.CompaniesProcessed,
		t.FactsInserted,
		t.ProfilesWritten,
		t.EntriesSkipped,
		t.EntriesFailed,
	}
}

func newRun(id string, now time.Time) *model.ImportRun {
	return &model.ImportRun{
		ID:        id,
		Status:    model.RunStatusRunning,
		StartedAt: now,
	}
}
