package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/finprofile/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(":memory:", testOptions())
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedCompany(t *testing.T, s *SQLiteStore) {
	t.Helper()
	_, err := s.UpsertCompanies(context.Background(), []model.Company{
		{CIK: "0000320193", Ticker: "AAPL", Name: "Apple Inc.", Exchange: "Nasdaq"},
	})
	require.NoError(t, err)
}

func TestSQLite_UpsertCompanies_Idempotent(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	n, err := s.UpsertCompanies(ctx, []model.Company{
		{CIK: "0000320193", Ticker: "AAPL", Name: "Apple Inc."},
		{CIK: "0000789019", Ticker: "MSFT", Name: "MICROSOFT CORP"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = s.UpsertCompanies(ctx, []model.Company{{CIK: "0000320193", Ticker: "AAPL", Name: "Apple"}})
	require.NoError(t, err)

	var count int
	require.NoError(t, s.db.QueryRow(`SELECT count(*) FROM companies`).Scan(&count))
	assert.Equal(t, 2, count)

	var name string
	require.NoError(t, s.db.QueryRow(`SELECT name FROM companies WHERE cik = ?`, "0000320193").Scan(&name))
	assert.Equal(t, "Apple", name)
}

func TestSQLite_ReplaceFacts_ReplacesPriorSet(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	seedCompany(t, s)

	n, err := s.ReplaceFacts(ctx, "0000320193", sampleFacts("0000320193", 3))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = s.ReplaceFacts(ctx, "0000320193", sampleFacts("0000320193", 1))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	count, err := s.CountFacts(ctx, "0000320193")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSQLite_ReplaceFacts_AtomicOnFailure(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	seedCompany(t, s)

	_, err := s.ReplaceFacts(ctx, "0000320193", sampleFacts("0000320193", 2))
	require.NoError(t, err)

	dup := sampleFacts("0000320193", 1)
	dup = append(dup, dup[0])
	_, err = s.ReplaceFacts(ctx, "0000320193", dup)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistence)

	count, err := s.CountFacts(ctx, "0000320193")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestSQLite_ReplaceFacts_UnknownCompany(t *testing.T) {
	s := newTestSQLite(t)

	_, err := s.ReplaceFacts(context.Background(), "0000000042", sampleFacts("0000000042", 1))
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestSQLite_Profile_RoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	seedCompany(t, s)

	growth := 25.0
	p := &model.FinancialProfile{
		Version:      model.ProfileVersion,
		CIK:          "0000320193",
		Ticker:       "AAPL",
		Name:         "Apple Inc.",
		RevenueScale: "Lower Middle Market ($50M-$250M)",
		YearlyData: []model.YearlyFinancial{
			{Year: 2022, Revenue: 100, RevenueGrowth: &growth},
			{Year: 2021, Revenue: 80},
		},
		KeyInsight: "Revenue grew 25.0% year over year in FY2022.",
	}
	require.NoError(t, s.UpsertProfile(ctx, p))

	got, err := s.GetProfile(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, p, got)

	got, err = s.GetProfile(ctx, "0000320193")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", got.Ticker)

	var latestRevenue float64
	var latestYear int
	require.NoError(t, s.db.QueryRow(
		`SELECT latest_revenue, latest_year FROM financial_profiles WHERE cik = ?`, "0000320193",
	).Scan(&latestRevenue, &latestYear))
	assert.Equal(t, 100.0, latestRevenue)
	assert.Equal(t, 2022, latestYear)

	p.YearlyData[0].Revenue = 110
	require.NoError(t, s.UpsertProfile(ctx, p))
	got, err = s.GetProfile(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 110.0, got.LatestRevenue())
}

func TestSQLite_DeleteProfile(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	seedCompany(t, s)

	p := &model.FinancialProfile{
		Version:    model.ProfileVersion,
		CIK:        "0000320193",
		Ticker:     "AAPL",
		YearlyData: []model.YearlyFinancial{{Year: 2022, Revenue: 100}},
	}
	require.NoError(t, s.UpsertProfile(ctx, p))

	require.NoError(t, s.DeleteProfile(ctx, "0000320193"))
	_, err := s.GetProfile(ctx, "AAPL")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.DeleteProfile(ctx, "0000320193"))
}

func TestSQLite_GetProfile_NotFound(t *testing.T) {
	s := newTestSQLite(t)

	_, err := s.GetProfile(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_RunLifecycle(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	first, err := s.StartRun(ctx)
	require.NoError(t, err)
	require.NoError(t, s.CompleteRun(ctx, first.ID, model.RunTotals{
		CompaniesInDirectory: 3,
		CompaniesProcessed:   2,
		FactsInserted:        40,
		ProfilesWritten:      2,
		EntriesSkipped:       1,
	}))

	second, err := s.StartRun(ctx)
	require.NoError(t, err)
	require.NoError(t, s.FailRun(ctx, second.ID, "fetcher: network error", model.RunTotals{CompaniesInDirectory: 3}))

	runs, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 2)

	byID := map[string]model.ImportRun{}
	for _, r := range runs {
		byID[r.ID] = r
	}

	done := byID[first.ID]
	assert.Equal(t, model.RunStatusCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, int64(40), done.FactsInserted)
	assert.Equal(t, int64(1), done.EntriesSkipped)
	assert.Nil(t, done.Error)

	failed := byID[second.ID]
	assert.Equal(t, model.RunStatusFailed, failed.Status)
	require.NotNil(t, failed.Error)
	assert.Equal(t, "fetcher: network error", *failed.Error)

	completedOnly, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusCompleted})
	require.NoError(t, err)
	require.Len(t, completedOnly, 1)
	assert.Equal(t, first.ID, completedOnly[0].ID)
}

func TestSQLite_CompleteRun_NotFound(t *testing.T) {
	s := newTestSQLite(t)

	err := s.CompleteRun(context.Background(), "missing", model.RunTotals{})
	assert.ErrorIs(t, err, ErrNotFound)
}
