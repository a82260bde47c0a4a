package directory

import (
	"context"
	"errors"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/finprofile/internal/fetcher"
	"github.com/sells-group/finprofile/internal/model"
)

// Directory maps canonical CIK to company identity.
type Directory map[string]model.Company

// Lookup resolves a per-company archive entry name to a known company.
// Unknown filers and names that are not per-company entries are not found.
func (d Directory) Lookup(entryName string) (model.Company, bool) {
	cik, ok := EntryCIK(entryName)
	if !ok {
		return model.Company{}, false
	}
	c, ok := d[cik]
	return c, ok
}

// Companies returns the identities ordered by CIK.
func (d Directory) Companies() []model.Company {
	out := make([]model.Company, 0, len(d))
	for _, c := range d {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CIK < out[j].CIK })
	return out
}

// Stats counts the outcome of a directory build.
type Stats struct {
	Entries    int
	Companies  int
	Tickerless int
	Malformed  int
}

// Build streams the submissions archive at archivePath and returns the
// directory of ticketed filers. Tickerless and malformed entries are counted
// and skipped.
func Build(ctx context.Context, archivePath string) (Directory, Stats, error) {
	log := zap.L().With(zap.String("component", "directory"))

	dir := make(Directory)
	var stats Stats

	handle := func(_ context.Context, name string, data []byte) error {
		c, err := ParseSubmission(data)
		switch {
		case err == nil:
			dir[c.CIK] = c
		case errors.Is(err, ErrNoTicker):
			stats.Tickerless++
		default:
			stats.Malformed++
			log.Debug("skip submission entry", zap.String("entry", name), zap.Error(err))
		}
		return nil
	}

	res, err := fetcher.StreamZIP(ctx, archivePath, IsCompanyEntry, handle, fetcher.StreamOptions{})
	if err != nil {
		return nil, stats, eris.Wrap(err, "directory: stream submissions")
	}

	stats.Entries = res.Matched
	stats.Malformed += res.Failed
	stats.Companies = len(dir)

	log.Info("company directory built",
		zap.Int("entries", stats.Entries),
		zap.Int("companies", stats.Companies),
		zap.Int("tickerless", stats.Tickerless),
		zap.Int("malformed", stats.Malformed),
	)
	return dir, stats, nil
}
