package xbrl

import (
	"math"
	"sort"
	"time"

	"github.com/sells-group/finprofile/internal/model"
)

const (
	unitUSD         = "USD"
	fiscalPeriodFY  = "FY"
	dateLayout      = "2006-01-02"
	minAnnualMonths = 10
	maxAnnualMonths = 14
)

// Series maps the calendar year of a period end to a USD value.
type Series map[int]float64

// Years returns the years in the series, most recent first.
func (s Series) Years() []int {
	years := make([]int, 0, len(s))
	for y := range s {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years
}

// Extractor resolves metrics from one company facts document.
// It is not safe for concurrent use.
type Extractor struct {
	facts  *CompanyFacts
	policy *ConceptPolicy
	cache  map[string]resolved
}

type resolved struct {
	series  Series
	concept string
}

// NewExtractor binds a facts document to a concept policy.
func NewExtractor(facts *CompanyFacts, policy *ConceptPolicy) *Extractor {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Extractor{facts: facts, policy: policy, cache: make(map[string]resolved)}
}

// Annual resolves a flow metric (income statement) to a yearly series and
// returns the concept that supplied it.
func (e *Extractor) Annual(metric string) (Series, string) {
	return e.resolve("annual:"+metric, e.policy.Concepts(metric), true)
}

// Instant resolves a point-in-time metric (balance sheet) to a yearly series.
func (e *Extractor) Instant(metric string) (Series, string) {
	return e.resolve("instant:"+metric, e.policy.Concepts(metric), false)
}

// AnnualConcept resolves a single us-gaap flow concept.
func (e *Extractor) AnnualConcept(concept string) Series {
	s, _ := e.resolve("concept:"+concept, []string{concept}, true)
	return s
}

// resolve tries candidates in priority order and stops at the first one that
// yields any data.
func (e *Extractor) resolve(key string, candidates []string, flow bool) (Series, string) {
	if r, ok := e.cache[key]; ok {
		return r.series, r.concept
	}

	var r resolved
	for _, name := range candidates {
		f, ok := e.facts.concept(TaxonomyGAAP, name)
		if !ok {
			continue
		}
		s := e.policy.latestByYear(f.Units[unitUSD], flow)
		if len(s) > 0 {
			r = resolved{series: s, concept: name}
			break
		}
	}
	e.cache[key] = r
	return r.series, r.concept
}

// latestByYear keeps annual-filing full-year values, grouped by calendar
// year of period end. Restatements resolve to the highest fiscal year label,
// then to the latest filing date.
func (p *ConceptPolicy) latestByYear(values []FactValue, flow bool) Series {
	best := make(map[int]FactValue)
	for _, v := range values {
		if !p.isAnnualForm(v.Form) || v.FP != fiscalPeriodFY {
			continue
		}
		end, err := time.Parse(dateLayout, v.End)
		if err != nil {
			continue
		}
		if flow && v.Start != "" {
			start, err := time.Parse(dateLayout, v.Start)
			if err != nil || !AnnualSpan(start, end) {
				continue
			}
		}

		year := end.Year()
		cur, ok := best[year]
		if !ok || supersedes(v, cur) {
			best[year] = v
		}
	}

	if len(best) == 0 {
		return nil
	}
	s := make(Series, len(best))
	for y, v := range best {
		s[y] = v.Val
	}
	return s
}

// AnnualSpan reports whether start..end covers a full fiscal year
// (10 to 14 whole calendar months, both dates inclusive).
func AnnualSpan(start, end time.Time) bool {
	months := spanMonths(start, end)
	return months >= minAnnualMonths && months <= maxAnnualMonths
}

// spanMonths counts the whole calendar months in the inclusive period
// start..end. 2022-01-01..2022-10-31 is 10 months.
func spanMonths(start, end time.Time) int {
	next := end.AddDate(0, 0, 1)
	months := (next.Year()-start.Year())*12 + int(next.Month()) - int(start.Month())
	if next.Day() < start.Day() {
		months--
	}
	return months
}

func supersedes(a, b FactValue) bool {
	if a.FY != b.FY {
		return a.FY > b.FY
	}
	return a.Filed > b.Filed
}

// Employees returns the most recently reported employee count from the dei
// taxonomy.
func (e *Extractor) Employees() (int64, bool) {
	for _, name := range e.policy.Concepts(MetricEmployees) {
		f, ok := e.facts.concept(TaxonomyDEI, name)
		if !ok {
			continue
		}

		var values []FactValue
		for _, v := range e.policy.employeeValues(f) {
			if v.Val > 0 && v.End != "" {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			continue
		}

		sort.SliceStable(values, func(i, j int) bool {
			if values[i].End != values[j].End {
				return values[i].End > values[j].End
			}
			return values[i].Filed > values[j].Filed
		})
		return int64(math.Round(values[0].Val)), true
	}
	return 0, false
}

// employeeValues picks the first known unit present, else the first unit by
// name.
func (p *ConceptPolicy) employeeValues(f Fact) []FactValue {
	for _, u := range p.EmployeeUnits {
		if v, ok := f.Units[u]; ok && len(v) > 0 {
			return v
		}
	}
	units := make([]string, 0, len(f.Units))
	for u := range f.Units {
		units = append(units, u)
	}
	sort.Strings(units)
	for _, u := range units {
		if len(f.Units[u]) > 0 {
			return f.Units[u]
		}
	}
	return nil
}

// Expenses returns the functional expense breakdown for one year,
// deduplicated by display label. When revenue is positive each line also
// carries its percent of revenue. A granular G&A line suppresses the combined
// SG&A line.
func (e *Extractor) Expenses(year int, revenue float64) []model.ExpenseLine {
	return e.expenses(year, revenue, Millions)
}

// RawExpenses is Expenses with amounts left in disclosed USD.
func (e *Extractor) RawExpenses(year int, revenue float64) []model.ExpenseLine {
	return e.expenses(year, revenue, unscaled)
}

func (e *Extractor) expenses(year int, revenue float64, scale func(float64) float64) []model.ExpenseLine {
	seen := make(map[string]bool)
	var lines []model.ExpenseLine
	for _, ec := range e.policy.Expenses {
		if seen[ec.Label] {
			continue
		}
		v, ok := e.AnnualConcept(ec.Concept)[year]
		if !ok {
			continue
		}
		seen[ec.Label] = true

		line := model.ExpenseLine{
			Label:   ec.Label,
			Concept: ec.Concept,
			Amount:  scale(v),
		}
		if revenue > 0 {
			if pct, ok := Percent(v, revenue); ok {
				line.PercentOfRevenue = &pct
			}
		}
		lines = append(lines, line)
	}

	if seen[LabelGA] && seen[LabelSGA] {
		kept := lines[:0]
		for _, l := range lines {
			if l.Label != LabelSGA {
				kept = append(kept, l)
			}
		}
		lines = kept
	}
	return lines
}

// BalanceSheets assembles one snapshot per requested year where at least one
// balance sheet metric resolved. Each metric is resolved independently.
func (e *Extractor) BalanceSheets(years []int) []model.BalanceSheetSnapshot {
	return e.balanceSheets(years, Millions)
}

// RawBalanceSheets is BalanceSheets with amounts left in disclosed USD.
func (e *Extractor) RawBalanceSheets(years []int) []model.BalanceSheetSnapshot {
	return e.balanceSheets(years, unscaled)
}

func (e *Extractor) balanceSheets(years []int, scale func(float64) float64) []model.BalanceSheetSnapshot {
	cash, _ := e.Instant(MetricCash)
	receivables, _ := e.Instant(MetricReceivables)
	payables, _ := e.Instant(MetricPayables)
	inventory, _ := e.Instant(MetricInventory)
	assets, _ := e.Instant(MetricAssets)
	liabilities, _ := e.Instant(MetricLiabilities)
	debt, _ := e.Instant(MetricLongTermDebt)

	var out []model.BalanceSheetSnapshot
	for _, y := range years {
		snap := model.BalanceSheetSnapshot{
			Year:               y,
			Cash:               valueAt(cash, y, scale),
			AccountsReceivable: valueAt(receivables, y, scale),
			AccountsPayable:    valueAt(payables, y, scale),
			Inventory:          valueAt(inventory, y, scale),
			TotalAssets:        valueAt(assets, y, scale),
			TotalLiabilities:   valueAt(liabilities, y, scale),
			LongTermDebt:       valueAt(debt, y, scale),
		}
		a, okA := assets[y]
		l, okL := liabilities[y]
		if okA && okL {
			eq := scale(a - l)
			snap.TotalEquity = &eq
		}
		if snap.Cash == nil && snap.AccountsReceivable == nil && snap.AccountsPayable == nil &&
			snap.Inventory == nil && snap.TotalAssets == nil && snap.TotalLiabilities == nil &&
			snap.LongTermDebt == nil {
			continue
		}
		out = append(out, snap)
	}
	return out
}

func valueAt(s Series, year int, scale func(float64) float64) *float64 {
	v, ok := s[year]
	if !ok {
		return nil
	}
	m := scale(v)
	return &m
}

func unscaled(v float64) float64 { return v }
