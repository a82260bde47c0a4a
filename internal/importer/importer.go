// Package importer runs one import cycle: fetch the bulk archives, persist
// company identities, then replace each company's facts and profile.
package importer

import (
	"context"
	"errors"
	"net/url"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/finprofile/internal/directory"
	"github.com/sells-group/finprofile/internal/fetcher"
	"github.com/sells-group/finprofile/internal/model"
	"github.com/sells-group/finprofile/internal/profile"
	"github.com/sells-group/finprofile/internal/store"
	"github.com/sells-group/finprofile/internal/xbrl"
)

// State is the lifecycle position of an Importer.
type State string

const (
	StateCreated            State = "created"
	StateDownloading        State = "downloading"
	StateImportingCompanies State = "importing-companies"
	StateImportingFacts     State = "importing-facts"
	StateCompleted          State = "completed"
	StateFailed             State = "failed"
)

// errLimitReached stops the facts stream once Options.Limit entries were handled.
var errLimitReached = eris.New("importer: entry limit reached")

// Options configures an import run.
type Options struct {
	SubmissionsURL  string
	CompanyFactsURL string
	CacheDir        string
	Refresh         bool // re-download archives even when cached

	CompanyBatchSize int
	ProgressEvery    int
	Limit            int    // max facts entries handled; 0 = all
	MaxEntrySize     uint64 // 0 = no limit
}

func (o Options) withDefaults() Options {
	if o.CompanyBatchSize <= 0 {
		o.CompanyBatchSize = 1000
	}
	if o.ProgressEvery <= 0 {
		o.ProgressEvery = 500
	}
	return o
}

// Importer orchestrates one import run at a time.
type Importer struct {
	store   store.Store
	fetcher fetcher.Fetcher
	policy  *xbrl.ConceptPolicy
	builder *profile.Builder
	opts    Options

	mu    sync.RWMutex
	state State
}

// New creates an Importer. A nil policy selects xbrl.DefaultPolicy.
func New(st store.Store, f fetcher.Fetcher, policy *xbrl.ConceptPolicy, opts Options) *Importer {
	if policy == nil {
		policy = xbrl.DefaultPolicy()
	}
	return &Importer{
		store:   st,
		fetcher: f,
		policy:  policy,
		builder: profile.NewBuilder(policy),
		opts:    opts.withDefaults(),
		state:   StateCreated,
	}
}

// State returns the current lifecycle state.
func (i *Importer) State() State {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.state
}

func (i *Importer) setState(s State) {
	i.mu.Lock()
	prev := i.state
	i.state = s
	i.mu.Unlock()

	zap.L().Info("import state changed",
		zap.String("component", "importer"),
		zap.String("from", string(prev)),
		zap.String("to", string(s)),
	)
}

// Run executes a full import cycle and records it as an ImportRun. Writes
// committed before a failure are kept; re-running replaces them.
func (i *Importer) Run(ctx context.Context) (Stats, error) {
	log := zap.L().With(zap.String("component", "importer"))
	start := time.Now()

	run, err := i.store.StartRun(ctx)
	if err != nil {
		i.setState(StateFailed)
		return Stats{}, eris.Wrap(err, "importer: start run")
	}
	log = log.With(zap.String("run_id", run.ID))
	log.Info("import run started")

	stats, err := i.run(ctx)
	if err != nil {
		i.setState(StateFailed)
		// Record the failure even when ctx was cancelled.
		if failErr := i.store.FailRun(context.WithoutCancel(ctx), run.ID, err.Error(), stats.Totals()); failErr != nil {
			log.Error("failed to record run failure", zap.Error(failErr))
		}
		log.Error("import run failed",
			append(stats.fields(), zap.Error(err), zap.Duration("elapsed", time.Since(start)))...)
		return stats, err
	}

	if err := i.store.CompleteRun(ctx, run.ID, stats.Totals()); err != nil {
		i.setState(StateFailed)
		return stats, eris.Wrap(err, "importer: complete run")
	}
	i.setState(StateCompleted)

	log.Info("import run complete", append(stats.fields(), zap.Duration("elapsed", time.Since(start)))...)
	return stats, nil
}

func (i *Importer) run(ctx context.Context) (Stats, error) {
	i.setState(StateDownloading)
	submissions, err := i.fetch(ctx, i.opts.SubmissionsURL)
	if err != nil {
		return Stats{}, err
	}
	companyFacts, err := i.fetch(ctx, i.opts.CompanyFactsURL)
	if err != nil {
		return Stats{}, err
	}

	i.setState(StateImportingCompanies)
	dir, stats, err := i.importCompanies(ctx, submissions)
	if err != nil {
		return stats, err
	}

	i.setState(StateImportingFacts)
	factStats, err := i.importFacts(ctx, companyFacts, dir)
	return stats.Merge(factStats), err
}

// fetch ensures the archive at rawURL is present in the cache directory and
// returns its local path.
func (i *Importer) fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || path.Base(u.Path) == "/" || path.Base(u.Path) == "." {
		return "", eris.Errorf("importer: invalid archive url %q", rawURL)
	}
	local := filepath.Join(i.opts.CacheDir, path.Base(u.Path))

	if _, err := fetcher.FetchCached(ctx, i.fetcher, rawURL, local, i.opts.Refresh); err != nil {
		return "", eris.Wrapf(err, "importer: fetch %s", rawURL)
	}
	return local, nil
}

// importCompanies builds the directory and persists the identities in batches.
func (i *Importer) importCompanies(ctx context.Context, archive string) (directory.Directory, Stats, error) {
	log := zap.L().With(zap.String("component", "importer"))

	var stats Stats

	dir, ds, err := directory.Build(ctx, archive)
	if err != nil {
		return nil, stats, err
	}
	stats.CompaniesInDirectory = int64(ds.Companies)
	stats.Tickerless = int64(ds.Tickerless)
	stats.MalformedSubmissions = int64(ds.Malformed)

	companies := dir.Companies()
	batch := i.opts.CompanyBatchSize
	for start := 0; start < len(companies); start += batch {
		end := min(start+batch, len(companies))

		n, err := i.store.UpsertCompanies(ctx, companies[start:end])
		if err != nil {
			return dir, stats, eris.Wrapf(err, "importer: upsert companies %d-%d", start, end)
		}
		stats.CompaniesUpserted += n

		log.Info("company identities persisted",
			zap.Int64("persisted", stats.CompaniesUpserted),
			zap.Int("total", len(companies)),
		)
	}

	return dir, stats, nil
}

// importFacts streams the company facts archive, replacing the facts and
// profile of every known company. Unknown, tickerless and non-matching
// entries are skipped without being read.
func (i *Importer) importFacts(ctx context.Context, archive string, dir directory.Directory) (Stats, error) {
	log := zap.L().With(zap.String("component", "importer"))

	var stats Stats
	targets := i.policy.TargetConcepts()

	match := func(name string) bool {
		if _, ok := dir.Lookup(name); ok {
			return true
		}
		stats.EntriesSkipped++
		return false
	}

	handle := func(ctx context.Context, name string, data []byte) error {
		if i.opts.Limit > 0 && stats.EntriesSeen >= int64(i.opts.Limit) {
			return errLimitReached
		}
		stats.EntriesSeen++
		if stats.EntriesSeen%int64(i.opts.ProgressEvery) == 0 {
			log.Info("facts import progress", stats.fields()...)
		}

		company, _ := dir.Lookup(name)
		return i.importCompany(ctx, company, name, data, targets, &stats)
	}

	stopOn := func(err error) bool {
		return errors.Is(err, errLimitReached) || errors.Is(err, store.ErrPersistence) ||
			errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
	}

	res, err := fetcher.StreamZIP(ctx, archive, match, handle, fetcher.StreamOptions{
		StopOn:       stopOn,
		MaxEntrySize: i.opts.MaxEntrySize,
	})
	stats.EntriesFailed += int64(res.Failed)

	if errors.Is(err, errLimitReached) {
		log.Info("entry limit reached", zap.Int("limit", i.opts.Limit))
		return stats, nil
	}
	if err != nil {
		return stats, eris.Wrap(err, "importer: import facts")
	}
	return stats, nil
}

// importCompany replaces one company's facts and profile. Parse failures are
// returned to the stream, which counts and skips them.
func (i *Importer) importCompany(ctx context.Context, company model.Company, entry string, data []byte, targets map[string][]string, stats *Stats) error {
	cik := company.CIK
	facts, err := xbrl.DecodeCompanyFacts(data)
	if err != nil {
		return eris.Wrapf(err, "importer: decode %s", entry)
	}

	rows := xbrl.ExtractRawFacts(facts, cik, targets)
	if len(rows) == 0 {
		stats.EntriesSkipped++
		return nil
	}

	n, err := i.store.ReplaceFacts(ctx, cik, rows)
	if err != nil {
		return eris.Wrapf(err, "importer: replace facts for %s", cik)
	}
	stats.CompaniesProcessed++
	stats.FactsInserted += n

	p, err := i.builder.Build(company, facts)
	if err != nil {
		// Facts were replaced; a profile from an earlier run no longer
		// matches them.
		if err := i.store.DeleteProfile(ctx, cik); err != nil {
			return eris.Wrapf(err, "importer: delete profile for %s", cik)
		}
		stats.ProfilesSkipped++
		zap.L().Debug("no profile", zap.String("cik", cik), zap.Error(err))
		return nil
	}

	if err := i.store.UpsertProfile(ctx, p); err != nil {
		return eris.Wrapf(err, "importer: upsert profile for %s", cik)
	}
	stats.ProfilesWritten++
	return nil
}
