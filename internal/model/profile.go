package model

// ProfileVersion is bumped whenever the serialized profile shape changes.
const ProfileVersion = 2

// ExpenseLine is one functional operating expense for a fiscal year.
type ExpenseLine struct {
	Label            string   `json:"label"`
	Concept          string   `json:"concept"`
	Amount           float64  `json:"amount"` // millions USD
	PercentOfRevenue *float64 `json:"percentOfRevenue,omitempty"`
}

// YearlyFinancial aggregates one fiscal year of income statement data.
// Monetary amounts are in millions of USD; margins and growth are percentages.
type YearlyFinancial struct {
	Year            int           `json:"year"`
	Revenue         float64       `json:"revenue"`
	RevenueGrowth   *float64      `json:"revenueGrowth,omitempty"`
	GrossMargin     *float64      `json:"grossMargin,omitempty"`
	OperatingMargin *float64      `json:"operatingMargin,omitempty"`
	NetMargin       *float64      `json:"netMargin,omitempty"`
	Expenses        []ExpenseLine `json:"expenses,omitempty"`
}

// Expense returns the expense line with the given label, if present.
func (y YearlyFinancial) Expense(label string) (ExpenseLine, bool) {
	for _, e := range y.Expenses {
		if e.Label == label {
			return e, true
		}
	}
	return ExpenseLine{}, false
}

// BalanceSheetSnapshot is the point-in-time balance sheet at a fiscal year end.
// Amounts are in millions of USD.
type BalanceSheetSnapshot struct {
	Year               int      `json:"year"`
	Cash               *float64 `json:"cash,omitempty"`
	AccountsReceivable *float64 `json:"accountsReceivable,omitempty"`
	AccountsPayable    *float64 `json:"accountsPayable,omitempty"`
	Inventory          *float64 `json:"inventory,omitempty"`
	TotalAssets        *float64 `json:"totalAssets,omitempty"`
	TotalLiabilities   *float64 `json:"totalLiabilities,omitempty"`
	LongTermDebt       *float64 `json:"longTermDebt,omitempty"`
	TotalEquity        *float64 `json:"totalEquity,omitempty"`
}

// DerivedMetrics holds cross-statement ratios. Every field is optional.
type DerivedMetrics struct {
	DSO            *float64 `json:"dso,omitempty"`
	DPO            *float64 `json:"dpo,omitempty"`
	InventoryTurns *float64 `json:"inventoryTurns,omitempty"`
	DebtToEquity   *float64 `json:"debtToEquity,omitempty"`
	CurrentRatio   *float64 `json:"currentRatio,omitempty"`
}

// Empty reports whether no ratio could be computed.
func (m DerivedMetrics) Empty() bool {
	return m.DSO == nil && m.DPO == nil && m.InventoryTurns == nil &&
		m.DebtToEquity == nil && m.CurrentRatio == nil
}

// FinancialProfile is the per-company record consumed by the analytics app.
type FinancialProfile struct {
	Version            int                    `json:"version"`
	CIK                string                 `json:"cik"`
	Ticker             string                 `json:"ticker"`
	Name               string                 `json:"name"`
	RevenueScale       string                 `json:"revenueScale"`
	YearlyData         []YearlyFinancial      `json:"yearlyData"`
	BalanceSheet       []BalanceSheetSnapshot `json:"balanceSheet,omitempty"`
	DerivedMetrics     *DerivedMetrics        `json:"derivedMetrics,omitempty"`
	EmployeeCount      *int64                 `json:"employeeCount,omitempty"`
	RevenuePerEmployee *float64               `json:"revenuePerEmployee,omitempty"` // USD
	KeyInsight         string                 `json:"keyInsight"`
}

// LatestYear returns the most recent fiscal year in the profile.
func (p *FinancialProfile) LatestYear() int {
	if p == nil || len(p.YearlyData) == 0 {
		return 0
	}
	return p.YearlyData[0].Year
}

// LatestRevenue returns the most recent revenue in millions of USD.
func (p *FinancialProfile) LatestRevenue() float64 {
	if p == nil || len(p.YearlyData) == 0 {
		return 0
	}
	return p.YearlyData[0].Revenue
}
