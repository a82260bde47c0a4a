package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/finprofile/internal/db"
	"github.com/sells-group/finprofile/internal/model"
)

const (
	companiesTable = "finprofile.companies"
	factsTable     = "finprofile.financial_facts"
)

var companyColumns = []string{"cik", "ticker", "name", "sic", "sic_description", "exchange", "fiscal_year_end"}

var factColumns = []string{
	"cik", "taxonomy", "concept", "unit", "period_start", "period_end", "fiscal_year",
	"fiscal_period", "form", "accession", "filed", "frame", "value",
}

// PostgresStore implements Store on a pgx pool.
type PostgresStore struct {
	pool    db.Pool
	opts    Options
	closeFn func()
}

// NewPostgres wraps an existing pool.
func NewPostgres(pool db.Pool, opts Options) *PostgresStore {
	return &PostgresStore{pool: pool, opts: opts.withDefaults()}
}

// OpenPostgres connects a new pool and returns a store that closes it.
func OpenPostgres(ctx context.Context, connString string, poolOpts db.PoolOptions, opts Options) (*PostgresStore, error) {
	pool, err := db.NewPool(ctx, connString, poolOpts)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: open")
	}
	s := NewPostgres(pool, opts)
	s.closeFn = pool.Close
	return s, nil
}

// Migrate applies the embedded schema migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return eris.Wrap(Migrate(ctx, s.pool), "postgres: migrate")
}

// Close releases the pool when the store owns it.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// UpsertCompanies inserts or refreshes company identities keyed by CIK.
func (s *PostgresStore) UpsertCompanies(ctx context.Context, companies []model.Company) (int64, error) {
	if len(companies) == 0 {
		return 0, nil
	}

	rows := make([][]any, len(companies))
	for i, c := range companies {
		rows[i] = []any{c.CIK, c.Ticker, c.Name, c.SIC, c.SICDescription, c.Exchange, c.FiscalYearEnd}
	}

	var n int64
	err := call(ctx, s.opts, "postgres: upsert companies", func(ctx context.Context) error {
		var err error
		n, err = db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
			Table:        companiesTable,
			Columns:      companyColumns,
			ConflictKeys: []string{"cik"},
			UpdatedAt:    "updated_at",
		}, rows)
		return err
	})
	return n, err
}

// ReplaceFacts deletes the company's prior facts and copies the new set in
// batches, all in one transaction. Readers never observe a partial set.
func (s *PostgresStore) ReplaceFacts(ctx context.Context, cik string, facts []model.Fact) (int64, error) {
	rows := make([][]any, len(facts))
	for i, f := range facts {
		rows[i] = factRow(f)
	}

	var n int64
	err := call(ctx, s.opts, "postgres: replace facts "+cik, func(ctx context.Context) error {
		return db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, `DELETE FROM finprofile.financial_facts WHERE cik = $1`, cik); err != nil {
				return eris.Wrap(err, "delete prior facts")
			}
			copied, err := db.CopyInBatches(ctx, tx, factsTable, factColumns, rows, s.opts.FactBatchSize)
			if err != nil {
				return err
			}
			n = copied
			return nil
		})
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// CountFacts returns the number of stored facts for a company.
func (s *PostgresStore) CountFacts(ctx context.Context, cik string) (int64, error) {
	var n int64
	err := call(ctx, s.opts, "postgres: count facts", func(ctx context.Context) error {
		return s.pool.QueryRow(ctx,
			`SELECT count(*) FROM finprofile.financial_facts WHERE cik = $1`, cik,
		).Scan(&n)
	})
	return n, err
}

// UpsertProfile stores the profile document and its sortable summary columns.
func (s *PostgresStore) UpsertProfile(ctx context.Context, p *model.FinancialProfile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal profile")
	}

	return call(ctx, s.opts, "postgres: upsert profile "+p.CIK, func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO finprofile.financial_profiles
				(cik, ticker, version, profile, latest_revenue, latest_year, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, now())
			 ON CONFLICT (cik) DO UPDATE SET
				ticker = EXCLUDED.ticker,
				version = EXCLUDED.version,
				profile = EXCLUDED.profile,
				latest_revenue = EXCLUDED.latest_revenue,
				latest_year = EXCLUDED.latest_year,
				updated_at = now()`,
			p.CIK, p.Ticker, p.Version, data, p.LatestRevenue(), p.LatestYear(),
		)
		return err
	})
}

// GetProfile loads a profile by CIK or ticker.
func (s *PostgresStore) GetProfile(ctx context.Context, cikOrTicker string) (*model.FinancialProfile, error) {
	var data []byte
	err := call(ctx, s.opts, "postgres: get profile", func(ctx context.Context) error {
		err := s.pool.QueryRow(ctx,
			`SELECT profile FROM finprofile.financial_profiles WHERE cik = $1 OR ticker = $1 LIMIT 1`,
			cikOrTicker,
		).Scan(&data)
		if errors.Is(err, pgx.ErrNoRows) {
			return eris.Wrapf(ErrNotFound, "profile %s", cikOrTicker)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	var p model.FinancialProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal profile")
	}
	return &p, nil
}

// DeleteProfile removes the profile of a company, if any.
func (s *PostgresStore) DeleteProfile(ctx context.Context, cik string) error {
	return call(ctx, s.opts, "postgres: delete profile "+cik, func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx,
			`DELETE FROM finprofile.financial_profiles WHERE cik = $1`, cik)
		return err
	})
}

// StartRun records a new running import.
func (s *PostgresStore) StartRun(ctx context.Context) (*model.ImportRun, error) {
	run := newRun(uuid.New().String(), time.Now().UTC())

	err := call(ctx, s.opts, "postgres: start run", func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO finprofile.import_runs (id, status, started_at) VALUES ($1, $2, $3)`,
			run.ID, string(run.Status), run.StartedAt,
		)
		return err
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}

// CompleteRun marks a run completed with its final totals.
func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, totals model.RunTotals) error {
	return s.finishRun(ctx, runID, model.RunStatusCompleted, nil, totals)
}

// FailRun marks a run failed with the error message and the totals reached.
func (s *PostgresStore) FailRun(ctx context.Context, runID string, errMsg string, totals model.RunTotals) error {
	return s.finishRun(ctx, runID, model.RunStatusFailed, &errMsg, totals)
}

func (s *PostgresStore) finishRun(ctx context.Context, runID string, status model.RunStatus, errMsg *string, totals model.RunTotals) error {
	args := append([]any{string(status), errMsg}, totalsArgs(totals)...)
	args = append(args, runID)

	return call(ctx, s.opts, "postgres: finish run "+runID, func(ctx context.Context) error {
		tag, err := s.pool.Exec(ctx,
			`UPDATE finprofile.import_runs SET
				status = $1, error = $2, completed_at = now(),
				companies_in_directory = $3, companies_processed = $4, facts_inserted = $5,
				profiles_written = $6, entries_skipped = $7, entries_failed = $8
			 WHERE id = $9`,
			args...,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return eris.Wrapf(ErrNotFound, "run %s", runID)
		}
		return nil
	})
}

// ListRuns returns import runs, most recent first.
func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.ImportRun, error) {
	query := `SELECT id, status, started_at, completed_at, companies_in_directory, companies_processed,
		facts_inserted, profiles_written, entries_skipped, entries_failed, error
		FROM finprofile.import_runs WHERE true`
	var args []any

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY started_at DESC LIMIT $%d`, len(args))

	var runs []model.ImportRun
	err := call(ctx, s.opts, "postgres: list runs", func(ctx context.Context) error {
		runs = nil
		return pgxscan.Select(ctx, s.pool, &runs, query, args...)
	})
	if err != nil {
		return nil, err
	}
	return runs, nil
}

// factRow converts a fact to COPY values. Dates are validated upstream, so a
// parse failure here only happens for optional columns and maps to NULL.
func factRow(f model.Fact) []any {
	return []any{
		f.CIK, f.Taxonomy, f.Concept, f.Unit,
		dateOrNil(f.PeriodStart), dateOrNil(f.PeriodEnd), f.FiscalYear,
		nullable(f.FiscalPeriod), nullable(f.Form), f.Accession,
		dateOrNil(f.Filed), nullable(f.Frame), f.Value,
	}
}

func dateOrNil(s string) any {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil
	}
	return t
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
