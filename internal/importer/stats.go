package importer

import (
	"go.uber.org/zap"

	"github.com/sells-group/finprofile/internal/model"
)

// Stats accumulates the counters of one import run. Each stage returns its
// own Stats and Run merges them.
type Stats struct {
	CompaniesInDirectory int64
	CompaniesUpserted    int64
	Tickerless           int64
	MalformedSubmissions int64

	EntriesSeen        int64
	CompaniesProcessed int64
	FactsInserted      int64
	ProfilesWritten    int64
	ProfilesSkipped    int64
	EntriesSkipped     int64
	EntriesFailed      int64
}

// Merge returns the sum of s and o.
func (s Stats) Merge(o Stats) Stats {
	return Stats{
		CompaniesInDirectory: s.CompaniesInDirectory + o.CompaniesInDirectory,
		CompaniesUpserted:    s.CompaniesUpserted + o.CompaniesUpserted,
		Tickerless:           s.Tickerless + o.Tickerless,
		MalformedSubmissions: s.MalformedSubmissions + o.MalformedSubmissions,
		EntriesSeen:          s.EntriesSeen + o.EntriesSeen,
		CompaniesProcessed:   s.CompaniesProcessed + o.CompaniesProcessed,
		FactsInserted:        s.FactsInserted + o.FactsInserted,
		ProfilesWritten:      s.ProfilesWritten + o.ProfilesWritten,
		ProfilesSkipped:      s.ProfilesSkipped + o.ProfilesSkipped,
		EntriesSkipped:       s.EntriesSkipped + o.EntriesSkipped,
		EntriesFailed:        s.EntriesFailed + o.EntriesFailed,
	}
}

// Totals converts the accumulator into the counters stored on the run row.
func (s Stats) Totals() model.RunTotals {
	return model.RunTotals{
		CompaniesInDirectory: s.CompaniesInDirectory,
		CompaniesProcessed:   s.CompaniesProcessed,
		FactsInserted:        s.FactsInserted,
		ProfilesWritten:      s.ProfilesWritten,
		EntriesSkipped:       s.EntriesSkipped,
		EntriesFailed:        s.EntriesFailed,
	}
}

func (s Stats) fields() []zap.Field {
	return []zap.Field{
		zap.Int64("companies_in_directory", s.CompaniesInDirectory),
		zap.Int64("companies_upserted", s.CompaniesUpserted),
		zap.Int64("tickerless", s.Tickerless),
		zap.Int64("malformed_submissions", s.MalformedSubmissions),
		zap.Int64("entries_seen", s.EntriesSeen),
		zap.Int64("companies_processed", s.CompaniesProcessed),
		zap.Int64("facts_inserted", s.FactsInserted),
		zap.Int64("profiles_written", s.ProfilesWritten),
		zap.Int64("profiles_skipped", s.ProfilesSkipped),
		zap.Int64("entries_skipped", s.EntriesSkipped),
		zap.Int64("entries_failed", s.EntriesFailed),
	}
}
