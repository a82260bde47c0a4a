package profile

import (
	"fmt"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/finprofile/internal/model"
	"github.com/sells-group/finprofile/internal/xbrl"
)

var apple = model.Company{CIK: "0000320193", Ticker: "AAPL", Name: "Apple Inc."}

func annual(fy int, val float64) xbrl.FactValue {
	return xbrl.FactValue{
		Start: fmt.Sprintf("%d-01-01", fy),
		End:   fmt.Sprintf("%d-12-31", fy),
		Val:   val,
		Accn:  fmt.Sprintf("0000320193-%02d-000010", (fy+1)%100),
		FY:    fy,
		FP:    "FY",
		Form:  "10-K",
		Filed: fmt.Sprintf("%d-02-20", fy+1),
	}
}

func yearEnd(fy int, val float64) xbrl.FactValue {
	v := annual(fy, val)
	v.Start = ""
	return v
}

func usd(values ...xbrl.FactValue) xbrl.Fact {
	return xbrl.Fact{Units: map[string][]xbrl.FactValue{"USD": values}}
}

func doc(gaap map[string]xbrl.Fact) *xbrl.CompanyFacts {
	return &xbrl.CompanyFacts{
		CIK:   320193,
		Facts: map[string]xbrl.FactNS{xbrl.TaxonomyGAAP: gaap},
	}
}

func TestBuild_ScenarioB_RevenueGrowth(t *testing.T) {
	facts := doc(map[string]xbrl.Fact{
		"Revenues": usd(annual(2022, 100_000_000), annual(2021, 80_000_000)),
	})

	p, err := NewBuilder(nil).Build(apple, facts)
	require.NoError(t, err)

	require.Len(t, p.YearlyData, 2)
	y := p.YearlyData[0]
	assert.Equal(t, 2022, y.Year)
	assert.Equal(t, 100.0, y.Revenue)
	require.NotNil(t, y.RevenueGrowth)
	assert.Equal(t, 25.0, *y.RevenueGrowth)

	assert.Equal(t, 2021, p.YearlyData[1].Year)
	assert.Nil(t, p.YearlyData[1].RevenueGrowth)

	assert.Equal(t, model.ProfileVersion, p.Version)
	assert.Equal(t, "AAPL", p.Ticker)
	assert.Equal(t, 2022, p.LatestYear())
	assert.Equal(t, 100.0, p.LatestRevenue())
	assert.Equal(t, "Lower Middle Market ($50M-$250M)", p.RevenueScale)
}

func TestBuild_ScenarioC_DSO(t *testing.T) {
	facts := doc(map[string]xbrl.Fact{
		"Revenues":                     usd(annual(2022, 100_000_000), annual(2021, 80_000_000)),
		"AccountsReceivableNetCurrent": usd(yearEnd(2022, 20_000_000)),
	})

	p, err := NewBuilder(nil).Build(apple, facts)
	require.NoError(t, err)

	require.NotNil(t, p.DerivedMetrics)
	require.NotNil(t, p.DerivedMetrics.DSO)
	assert.Equal(t, 73.0, *p.DerivedMetrics.DSO)
	assert.Nil(t, p.DerivedMetrics.DPO)
}

func TestBuild_SmallFilerRatiosUseUnroundedAmounts(t *testing.T) {
	facts := doc(map[string]xbrl.Fact{
		"Revenues":                     usd(annual(2022, 12_345)),
		"AccountsReceivableNetCurrent": usd(yearEnd(2022, 6_000)),
		"CostOfRevenue":                usd(annual(2022, 10_000)),
		"AccountsPayableCurrent":       usd(yearEnd(2022, 2_500)),
		"InventoryNet":                 usd(yearEnd(2022, 4_000)),
	})

	p, err := NewBuilder(nil).Build(apple, facts)
	require.NoError(t, err)

	assert.Equal(t, 0.01, p.LatestRevenue())
	require.NotNil(t, p.DerivedMetrics)
	require.NotNil(t, p.DerivedMetrics.DSO)
	assert.Equal(t, 177.0, *p.DerivedMetrics.DSO)
	require.NotNil(t, p.DerivedMetrics.DPO)
	assert.Equal(t, 91.0, *p.DerivedMetrics.DPO)
	require.NotNil(t, p.DerivedMetrics.InventoryTurns)
	assert.Equal(t, 2.5, *p.DerivedMetrics.InventoryTurns)
	require.NotNil(t, p.DerivedMetrics.CurrentRatio)
	assert.Equal(t, 4.0, *p.DerivedMetrics.CurrentRatio)
}

func TestBuild_RevenueMandatory(t *testing.T) {
	facts := doc(map[string]xbrl.Fact{
		"Assets":      usd(yearEnd(2022, 500_000_000)),
		"Liabilities": usd(yearEnd(2022, 200_000_000)),
	})

	p, err := NewBuilder(nil).Build(apple, facts)
	assert.Nil(t, p)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNoRevenue))
}

func TestBuild_KeepsThreeMostRecentYears(t *testing.T) {
	facts := doc(map[string]xbrl.Fact{
		"Revenues": usd(
			annual(2019, 50_000_000),
			annual(2020, 60_000_000),
			annual(2021, 72_000_000),
			annual(2022, 90_000_000),
		),
	})

	p, err := NewBuilder(nil).Build(apple, facts)
	require.NoError(t, err)
	require.Len(t, p.YearlyData, 3)
	assert.Equal(t, []int{2022, 2021, 2020}, []int{p.YearlyData[0].Year, p.YearlyData[1].Year, p.YearlyData[2].Year})

	// Growth of the oldest kept year uses the dropped prior year.
	require.NotNil(t, p.YearlyData[2].RevenueGrowth)
	assert.Equal(t, 20.0, *p.YearlyData[2].RevenueGrowth)
}

func TestBuild_GrowthNeedsAdjacentYear(t *testing.T) {
	facts := doc(map[string]xbrl.Fact{
		"Revenues": usd(annual(2022, 100_000_000), annual(2020, 80_000_000)),
	})

	p, err := NewBuilder(nil).Build(apple, facts)
	require.NoError(t, err)
	assert.Nil(t, p.YearlyData[0].RevenueGrowth)
}

func TestBuild_Margins(t *testing.T) {
	facts := doc(map[string]xbrl.Fact{
		"Revenues":            usd(annual(2022, 100_000_000)),
		"GrossProfit":         usd(annual(2022, 45_000_000)),
		"OperatingIncomeLoss": usd(annual(2022, 150_000_000)),
		"NetIncomeLoss":       usd(annual(2022, -12_345_000)),
	})

	p, err := NewBuilder(nil).Build(apple, facts)
	require.NoError(t, err)

	y := p.YearlyData[0]
	require.NotNil(t, y.GrossMargin)
	assert.Equal(t, 45.0, *y.GrossMargin)
	assert.Nil(t, y.OperatingMargin, "150% margin is out of bounds")
	require.NotNil(t, y.NetMargin)
	assert.Equal(t, -12.3, *y.NetMargin)
}

func TestBuild_GrossMarginFromCostOfRevenue(t *testing.T) {
	facts := doc(map[string]xbrl.Fact{
		"Revenues":      usd(annual(2022, 100_000_000)),
		"CostOfRevenue": usd(annual(2022, 60_000_000)),
	})

	p, err := NewBuilder(nil).Build(apple, facts)
	require.NoError(t, err)
	require.NotNil(t, p.YearlyData[0].GrossMargin)
	assert.Equal(t, 40.0, *p.YearlyData[0].GrossMargin)

	cogs, ok := p.YearlyData[0].Expense(xbrl.LabelCOGS)
	require.True(t, ok)
	assert.Equal(t, 60.0, cogs.Amount)
	assert.Equal(t, 60.0, *cogs.PercentOfRevenue)
}

func TestBuild_GrossMarginBound(t *testing.T) {
	facts := doc(map[string]xbrl.Fact{
		"Revenues":    usd(annual(2022, 100_000_000)),
		"GrossProfit": usd(annual(2022, 150_000_000)),
	})

	p, err := NewBuilder(nil).Build(apple, facts)
	require.NoError(t, err)
	assert.Nil(t, p.YearlyData[0].GrossMargin)
}

func TestBuild_ExpensePolicyGAOverSGA(t *testing.T) {
	facts := doc(map[string]xbrl.Fact{
		"Revenues":                               usd(annual(2022, 100_000_000)),
		"SellingGeneralAndAdministrativeExpense": usd(annual(2022, 30_000_000)),
		"GeneralAndAdministrativeExpense":        usd(annual(2022, 10_000_000)),
	})

	p, err := NewBuilder(nil).Build(apple, facts)
	require.NoError(t, err)

	_, hasGA := p.YearlyData[0].Expense(xbrl.LabelGA)
	_, hasSGA := p.YearlyData[0].Expense(xbrl.LabelSGA)
	assert.True(t, hasGA)
	assert.False(t, hasSGA)
}

func TestBuild_Employees(t *testing.T) {
	facts := doc(map[string]xbrl.Fact{
		"Revenues":            usd(annual(2022, 100_000_000), annual(2021, 80_000_000)),
		"OperatingIncomeLoss": usd(annual(2022, 12_300_000)),
	})
	facts.Facts[xbrl.TaxonomyDEI] = xbrl.FactNS{
		"EntityNumberOfEmployees": {Units: map[string][]xbrl.FactValue{
			"pure": {{End: "2022-12-31", Val: 1250, FY: 2022, FP: "FY", Form: "10-K"}},
		}},
	}

	p, err := NewBuilder(nil).Build(apple, facts)
	require.NoError(t, err)

	require.NotNil(t, p.EmployeeCount)
	assert.Equal(t, int64(1250), *p.EmployeeCount)
	require.NotNil(t, p.RevenuePerEmployee)
	assert.Equal(t, 80000.0, *p.RevenuePerEmployee)
	assert.Equal(t,
		"Revenue grew 25.0% year over year in FY2022. Operating margin of 12.3%. Approximately 1,250 employees.",
		p.KeyInsight)
}

func TestBuild_FallbackInsight(t *testing.T) {
	facts := doc(map[string]xbrl.Fact{
		"Revenues": usd(annual(2022, 5_000_000)),
	})

	p, err := NewBuilder(nil).Build(apple, facts)
	require.NoError(t, err)
	assert.Equal(t, FallbackInsight, p.KeyInsight)
	assert.Nil(t, p.EmployeeCount)
	assert.Nil(t, p.RevenuePerEmployee)
	assert.Nil(t, p.DerivedMetrics)
	assert.Empty(t, p.BalanceSheet)
	assert.Equal(t, "Micro (<$10M)", p.RevenueScale)
}

func TestBuild_Deterministic(t *testing.T) {
	facts := doc(map[string]xbrl.Fact{
		"Revenues":                     usd(annual(2022, 100_000_000), annual(2021, 80_000_000)),
		"CostOfRevenue":                usd(annual(2022, 60_000_000)),
		"AccountsReceivableNetCurrent": usd(yearEnd(2022, 20_000_000)),
		"AccountsPayableCurrent":       usd(yearEnd(2022, 6_000_000)),
	})

	a, err := NewBuilder(nil).Build(apple, facts)
	require.NoError(t, err)
	b, err := NewBuilder(nil).Build(apple, facts)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRevenueScale(t *testing.T) {
	tests := []struct {
		revenue float64
		want    string
	}{
		{0.5, "Micro (<$10M)"},
		{10, "Small ($10M-$50M)"},
		{249.99, "Lower Middle Market ($50M-$250M)"},
		{250, "Middle Market ($250M-$1B)"},
		{5000, "Large ($1B-$10B)"},
		{383285, "Enterprise ($10B+)"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, RevenueScale(tt.revenue))
		})
	}
}

func TestKeyInsight_Decline(t *testing.T) {
	p := &model.FinancialProfile{YearlyData: []model.YearlyFinancial{
		{Year: 2023, Revenue: 90, RevenueGrowth: ptr(-3.2)},
	}}
	assert.Equal(t, "Revenue declined 3.2% year over year in FY2023.", KeyInsight(p))

	p.YearlyData[0].RevenueGrowth = ptr(0.0)
	assert.Equal(t, "Revenue was flat year over year in FY2023.", KeyInsight(p))
}
