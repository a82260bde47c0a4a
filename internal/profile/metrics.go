package profile

import (
	"github.com/sells-group/finprofile/internal/model"
	"github.com/sells-group/finprofile/internal/xbrl"
)

const daysPerYear = 365

// ComputeDerivedMetrics derives liquidity and efficiency ratios from the
// latest fiscal year and the balance sheet snapshot for that same year.
// Amounts may be in any unit shared by both inputs; only the ratios are
// rounded. Each ratio is omitted when its inputs are missing; nil is
// returned when nothing could be computed.
func ComputeDerivedMetrics(years []model.YearlyFinancial, sheets []model.BalanceSheetSnapshot) *model.DerivedMetrics {
	if len(years) == 0 || len(sheets) == 0 {
		return nil
	}

	latest := years[0]
	for _, y := range years[1:] {
		if y.Year > latest.Year {
			latest = y
		}
	}

	var sheet *model.BalanceSheetSnapshot
	for i := range sheets {
		if sheets[i].Year == latest.Year {
			sheet = &sheets[i]
			break
		}
	}
	if sheet == nil {
		return nil
	}

	var m model.DerivedMetrics

	if sheet.AccountsReceivable != nil && latest.Revenue > 0 {
		m.DSO = ptr(xbrl.Round(*sheet.AccountsReceivable/latest.Revenue*daysPerYear, 0))
	}

	cogs, hasCOGS := latest.Expense(xbrl.LabelCOGS)
	hasCOGS = hasCOGS && cogs.Amount > 0

	if sheet.AccountsPayable != nil && hasCOGS {
		m.DPO = ptr(xbrl.Round(*sheet.AccountsPayable/cogs.Amount*daysPerYear, 0))
	}

	if hasCOGS && sheet.Inventory != nil && *sheet.Inventory > 0 {
		m.InventoryTurns = ptr(xbrl.Round(cogs.Amount / *sheet.Inventory, 1))
	}

	if sheet.TotalLiabilities != nil && sheet.TotalEquity != nil && *sheet.TotalEquity > 0 {
		m.DebtToEquity = ptr(xbrl.Round(*sheet.TotalLiabilities / *sheet.TotalEquity, 2))
	}

	// Simplified proxy: quick assets plus inventory over payables only.
	if sheet.AccountsPayable != nil && *sheet.AccountsPayable > 0 &&
		(sheet.Cash != nil || sheet.AccountsReceivable != nil || sheet.Inventory != nil) {
		current := deref(sheet.Cash) + deref(sheet.AccountsReceivable) + deref(sheet.Inventory)
		m.CurrentRatio = ptr(xbrl.Round(current / *sheet.AccountsPayable, 2))
	}

	if m.Empty() {
		return nil
	}
	return &m
}

func ptr[T any](v T) *T { return &v }

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
