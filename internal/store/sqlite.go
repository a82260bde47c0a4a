package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/finprofile/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It serves local
// runs without a Postgres server.
type SQLiteStore struct {
	db   *sql.DB
	opts Options
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
// The pool is limited to one connection so ":memory:" databases are shared.
func NewSQLite(dsn string, opts Options) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, opts: opts.withDefaults()}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS companies (
	cik             TEXT PRIMARY KEY,
	ticker          TEXT NOT NULL,
	name            TEXT NOT NULL DEFAULT '',
	sic             TEXT,
	sic_description TEXT,
	exchange        TEXT,
	fiscal_year_end TEXT,
	updated_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS financial_facts (
	cik           TEXT NOT NULL REFERENCES companies(cik) ON DELETE CASCADE,
	taxonomy      TEXT NOT NULL,
	concept       TEXT NOT NULL,
	unit          TEXT NOT NULL,
	period_start  TEXT,
	period_end    TEXT NOT NULL,
	fiscal_year   INTEGER NOT NULL,
	fiscal_period TEXT,
	form          TEXT,
	accession     TEXT NOT NULL,
	filed         TEXT,
	frame         TEXT,
	value         REAL NOT NULL,
	PRIMARY KEY (cik, taxonomy, concept, unit, period_end, fiscal_year, accession)
);

CREATE TABLE IF NOT EXISTS financial_profiles (
	cik            TEXT PRIMARY KEY REFERENCES companies(cik) ON DELETE CASCADE,
	ticker         TEXT NOT NULL,
	version        INTEGER NOT NULL,
	profile        TEXT NOT NULL,
	latest_revenue REAL,
	latest_year    INTEGER,
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS import_runs (
	id                     TEXT PRIMARY KEY,
	status                 TEXT NOT NULL DEFAULT 'running',
	started_at             DATETIME NOT NULL,
	completed_at           DATETIME,
	companies_in_directory INTEGER NOT NULL DEFAULT 0,
	companies_processed    INTEGER NOT NULL DEFAULT 0,
	facts_inserted         INTEGER NOT NULL DEFAULT 0,
	profiles_written       INTEGER NOT NULL DEFAULT 0,
	entries_skipped        INTEGER NOT NULL DEFAULT 0,
	entries_failed         INTEGER NOT NULL DEFAULT 0,
	error                  TEXT
);

CREATE INDEX IF NOT EXISTS idx_companies_ticker ON companies(ticker);
CREATE INDEX IF NOT EXISTS idx_financial_profiles_ticker ON financial_profiles(ticker);
CREATE INDEX IF NOT EXISTS idx_import_runs_started_at ON import_runs(started_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// inTx runs fn in a transaction, rolling back on error.
func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "begin tx")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return eris.Wrap(tx.Commit(), "commit tx")
}

func (s *SQLiteStore) UpsertCompanies(ctx context.Context, companies []model.Company) (int64, error) {
	if len(companies) == 0 {
		return 0, nil
	}

	var n int64
	err := call(ctx, s.opts, "sqlite: upsert companies", func(ctx context.Context) error {
		n = 0
		return s.inTx(ctx, func(tx *sql.Tx) error {
			stmt, err := tx.PrepareContext(ctx,
				`INSERT INTO companies (cik, ticker, name, sic, sic_description, exchange, fiscal_year_end, updated_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, datetime('now'))
				 ON CONFLICT (cik) DO UPDATE SET
					ticker = excluded.ticker,
					name = excluded.name,
					sic = excluded.sic,
					sic_description = excluded.sic_description,
					exchange = excluded.exchange,
					fiscal_year_end = excluded.fiscal_year_end,
					updated_at = excluded.updated_at`)
			if err != nil {
				return eris.Wrap(err, "prepare company upsert")
			}
			defer stmt.Close() //nolint:errcheck

			for _, c := range companies {
				if _, err := stmt.ExecContext(ctx,
					c.CIK, c.Ticker, c.Name, c.SIC, c.SICDescription, c.Exchange, c.FiscalYearEnd,
				); err != nil {
					return eris.Wrapf(err, "upsert company %s", c.CIK)
				}
				n++
			}
			return nil
		})
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *SQLiteStore) ReplaceFacts(ctx context.Context, cik string, facts []model.Fact) (int64, error) {
	var n int64
	err := call(ctx, s.opts, "sqlite: replace facts "+cik, func(ctx context.Context) error {
		n = 0
		return s.inTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, `DELETE FROM financial_facts WHERE cik = ?`, cik); err != nil {
				return eris.Wrap(err, "delete prior facts")
			}

			stmt, err := tx.PrepareContext(ctx,
				`INSERT INTO financial_facts (cik, taxonomy, concept, unit, period_start, period_end, fiscal_year,
					fiscal_period, form, accession, filed, frame, value)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
			if err != nil {
				return eris.Wrap(err, "prepare fact insert")
			}
			defer stmt.Close() //nolint:errcheck

			for _, f := range facts {
				if _, err := stmt.ExecContext(ctx,
					f.CIK, f.Taxonomy, f.Concept, f.Unit, nullable(f.PeriodStart), f.PeriodEnd, f.FiscalYear,
					nullable(f.FiscalPeriod), nullable(f.Form), f.Accession, nullable(f.Filed), nullable(f.Frame), f.Value,
				); err != nil {
					return eris.Wrapf(err, "insert fact %s", f.Key())
				}
				n++
			}
			return nil
		})
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *SQLiteStore) CountFacts(ctx context.Context, cik string) (int64, error) {
	var n int64
	err := call(ctx, s.opts, "sqlite: count facts", func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, `SELECT count(*) FROM financial_facts WHERE cik = ?`, cik).Scan(&n)
	})
	return n, err
}

func (s *SQLiteStore) UpsertProfile(ctx context.Context, p *model.FinancialProfile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal profile")
	}

	return call(ctx, s.opts, "sqlite: upsert profile "+p.CIK, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO financial_profiles (cik, ticker, version, profile, latest_revenue, latest_year, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, datetime('now'))
			 ON CONFLICT (cik) DO UPDATE SET
				ticker = excluded.ticker,
				version = excluded.version,
				profile = excluded.profile,
				latest_revenue = excluded.latest_revenue,
				latest_year = excluded.latest_year,
				updated_at = excluded.updated_at`,
			p.CIK, p.Ticker, p.Version, string(data), p.LatestRevenue(), p.LatestYear(),
		)
		return err
	})
}

func (s *SQLiteStore) GetProfile(ctx context.Context, cikOrTicker string) (*model.FinancialProfile, error) {
	var data string
	err := call(ctx, s.opts, "sqlite: get profile", func(ctx context.Context) error {
		err := s.db.QueryRowContext(ctx,
			`SELECT profile FROM financial_profiles WHERE cik = ? OR ticker = ? LIMIT 1`,
			cikOrTicker, cikOrTicker,
		).Scan(&data)
		if errors.Is(err, sql.ErrNoRows) {
			return eris.Wrapf(ErrNotFound, "profile %s", cikOrTicker)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	var p model.FinancialProfile
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal profile")
	}
	return &p, nil
}

func (s *SQLiteStore) DeleteProfile(ctx context.Context, cik string) error {
	return call(ctx, s.opts, "sqlite: delete profile "+cik, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM financial_profiles WHERE cik = ?`, cik)
		return err
	})
}

func (s *SQLiteStore) StartRun(ctx context.Context) (*model.ImportRun, error) {
	run := newRun(uuid.New().String(), time.Now().UTC())

	err := call(ctx, s.opts, "sqlite: start run", func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO import_runs (id, status, started_at) VALUES (?, ?, ?)`,
			run.ID, string(run.Status), run.StartedAt,
		)
		return err
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, totals model.RunTotals) error {
	return s.finishRun(ctx, runID, model.RunStatusCompleted, nil, totals)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, errMsg string, totals model.RunTotals) error {
	return s.finishRun(ctx, runID, model.RunStatusFailed, &errMsg, totals)
}

func (s *SQLiteStore) finishRun(ctx context.Context, runID string, status model.RunStatus, errMsg *string, totals model.RunTotals) error {
	args := append([]any{string(status), errMsg, time.Now().UTC()}, totalsArgs(totals)...)
	args = append(args, runID)

	return call(ctx, s.opts, "sqlite: finish run "+runID, func(ctx context.Context) error {
		res, err := s.db.ExecContext(ctx,
			`UPDATE import_runs SET
				status = ?, error = ?, completed_at = ?,
				companies_in_directory = ?, companies_processed = ?, facts_inserted = ?,
				profiles_written = ?, entries_skipped = ?, entries_failed = ?
			 WHERE id = ?`,
			args...,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return eris.Wrapf(ErrNotFound, "run %s", runID)
		}
		return nil
	})
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.ImportRun, error) {
	query := `SELECT id, status, started_at, completed_at, companies_in_directory, companies_processed,
		facts_inserted, profiles_written, entries_skipped, entries_failed, error
		FROM import_runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	var runs []model.ImportRun
	err := call(ctx, s.opts, "sqlite: list runs", func(ctx context.Context) error {
		runs = nil
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close() //nolint:errcheck

		for rows.Next() {
			r, err := scanImportRun(rows)
			if err != nil {
				return err
			}
			runs = append(runs, r)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return runs, nil
}

func scanImportRun(rows *sql.Rows) (model.ImportRun, error) {
	var r model.ImportRun
	var status string
	var completedAt sql.NullTime
	var errMsg sql.NullString

	if err := rows.Scan(
		&r.ID, &status, &r.StartedAt, &completedAt,
		&r.CompaniesInDirectory, &r.CompaniesProcessed, &r.FactsInserted,
		&r.ProfilesWritten, &r.EntriesSkipped, &r.EntriesFailed, &errMsg,
	); err != nil {
		return r, eris.Wrap(err, "scan import run")
	}

	r.Status = model.RunStatus(status)
	if completedAt.Valid {
		t := completedAt.Time
		r.CompletedAt = &t
	}
	if errMsg.Valid {
		msg := errMsg.String
		r.Error = &msg
	}
	return r, nil
}
