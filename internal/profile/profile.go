// Package profile assembles per-company financial profiles from extracted
// XBRL series.
package profile

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/finprofile/internal/model"
	"github.com/sells-group/finprofile/internal/xbrl"
)

// MaxYears is the number of most recent fiscal years kept in a profile.
const MaxYears = 3

// ErrNoRevenue is returned when no revenue concept resolves. Revenue is the
// mandatory anchor of every profile.
var ErrNoRevenue = eris.New("profile: no revenue data")

// Builder turns company facts documents into financial profiles.
type Builder struct {
	policy *xbrl.ConceptPolicy
}

// NewBuilder creates a Builder using the given concept policy.
func NewBuilder(policy *xbrl.ConceptPolicy) *Builder {
	if policy == nil {
		policy = xbrl.DefaultPolicy()
	}
	return &Builder{policy: policy}
}

// Build resolves the profile of one company. It is a pure function of its
// inputs.
func (b *Builder) Build(company model.Company, facts *xbrl.CompanyFacts) (*model.FinancialProfile, error) {
	ex := xbrl.NewExtractor(facts, b.policy)

	revenue, _ := ex.Annual(xbrl.MetricRevenue)
	if len(revenue) == 0 {
		return nil, eris.Wrapf(ErrNoRevenue, "cik %s", company.CIK)
	}

	grossProfit, _ := ex.Annual(xbrl.MetricGrossProfit)
	costOfRevenue, _ := ex.Annual(xbrl.MetricCostOfRevenue)
	operatingIncome, _ := ex.Annual(xbrl.MetricOperatingIncome)
	netIncome, _ := ex.Annual(xbrl.MetricNetIncome)

	years := revenue.Years()
	if len(years) > MaxYears {
		years = years[:MaxYears]
	}

	yearly := make([]model.YearlyFinancial, 0, len(years))
	for _, y := range years {
		rev := revenue[y]
		yf := model.YearlyFinancial{
			Year:    y,
			Revenue: xbrl.Millions(rev),
		}

		if prior, ok := revenue[y-1]; ok && prior != 0 {
			yf.RevenueGrowth = ptr(xbrl.Round((rev-prior)/math.Abs(prior)*100, 1))
		}

		if gp, ok := grossProfit[y]; ok {
			yf.GrossMargin = xbrl.BoundedMargin(gp, rev)
		} else if cogs, ok := costOfRevenue[y]; ok {
			yf.GrossMargin = xbrl.BoundedMargin(rev-cogs, rev)
		}
		if oi, ok := operatingIncome[y]; ok {
			yf.OperatingMargin = xbrl.BoundedMargin(oi, rev)
		}
		if ni, ok := netIncome[y]; ok {
			yf.NetMargin = xbrl.BoundedMargin(ni, rev)
		}

		yf.Expenses = ex.Expenses(y, rev)
		yearly = append(yearly, yf)
	}

	p := &model.FinancialProfile{
		Version:      model.ProfileVersion,
		CIK:          company.CIK,
		Ticker:       company.Ticker,
		Name:         company.Name,
		RevenueScale: RevenueScale(yearly[0].Revenue),
		YearlyData:   yearly,
		BalanceSheet: ex.BalanceSheets(years),
	}
	p.DerivedMetrics = ComputeDerivedMetrics(rawLatest(ex, years[0], revenue[years[0]]))

	if employees, ok := ex.Employees(); ok {
		p.EmployeeCount = &employees
		p.RevenuePerEmployee = ptr(math.Round(revenue[years[0]] / float64(employees)))
	}

	p.KeyInsight = KeyInsight(p)
	return p, nil
}

// rawLatest returns the latest year and its balance sheet in disclosed USD,
// unrounded, for ratio inputs.
func rawLatest(ex *xbrl.Extractor, year int, revenue float64) ([]model.YearlyFinancial, []model.BalanceSheetSnapshot) {
	years := []model.YearlyFinancial{{
		Year:     year,
		Revenue:  revenue,
		Expenses: ex.RawExpenses(year, revenue),
	}}
	return years, ex.RawBalanceSheets([]int{year})
}

// RevenueScale labels a company by its latest revenue in millions of USD.
func RevenueScale(revenueMillions float64) string {
	switch {
	case revenueMillions < 10:
		return "Micro (<$10M)"
	case revenueMillions < 50:
		return "Small ($10M-$50M)"
	case revenueMillions < 250:
		return "Lower Middle Market ($50M-$250M)"
	case revenueMillions < 1000:
		return "Middle Market ($250M-$1B)"
	case revenueMillions < 10000:
		return "Large ($1B-$10B)"
	default:
		return "Enterprise ($10B+)"
	}
}
