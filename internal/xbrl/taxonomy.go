package xbrl

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Metric names resolved by the extraction engine.
const (
	MetricRevenue         = "revenue"
	MetricCostOfRevenue   = "cost_of_revenue"
	MetricGrossProfit     = "gross_profit"
	MetricOperatingIncome = "operating_income"
	MetricNetIncome       = "net_income"
	MetricCash            = "cash"
	MetricReceivables     = "receivables"
	MetricPayables        = "payables"
	MetricInventory       = "inventory"
	MetricAssets          = "assets"
	MetricLiabilities     = "liabilities"
	MetricLongTermDebt    = "long_term_debt"
	MetricEmployees       = "employees"
)

// Expense display labels.
const (
	LabelCOGS      = "COGS"
	LabelRAndD     = "R&D"
	LabelSGA       = "SG&A"
	LabelGA        = "G&A"
	LabelSM        = "Sales & Marketing"
	LabelDA        = "D&A"
	LabelAdvertise = "Advertising"
)

// ExpenseConcept maps a us-gaap expense concept to its display label.
type ExpenseConcept struct {
	Concept string `yaml:"concept"`
	Label   string `yaml:"label"`
}

// ConceptPolicy lists, per metric, the alternative concept names tried in
// priority order. The first candidate that yields any data wins; candidates
// are never merged.
type ConceptPolicy struct {
	Candidates    map[string][]string `yaml:"candidates"`
	Expenses      []ExpenseConcept    `yaml:"expenses"`
	AnnualForms   []string            `yaml:"annual_forms"`
	EmployeeUnits []string            `yaml:"employee_units"`
}

// DefaultPolicy returns the compiled-in concept priority lists.
func DefaultPolicy() *ConceptPolicy {
	return &ConceptPolicy{
		Candidates: map[string][]string{
			MetricRevenue: {
				"Revenues",
				"RevenueFromContractWithCustomerExcludingAssessedTax",
				"RevenueFromContractWithCustomerIncludingAssessedTax",
				"SalesRevenueNet",
				"SalesRevenueGoodsNet",
				"SalesRevenueServicesNet",
			},
			MetricCostOfRevenue: {
				"CostOfRevenue",
				"CostOfGoodsAndServicesSold",
				"CostOfGoodsSold",
				"CostOfServices",
			},
			MetricGrossProfit:     {"GrossProfit"},
			MetricOperatingIncome: {"OperatingIncomeLoss"},
			MetricNetIncome: {
				"NetIncomeLoss",
				"ProfitLoss",
				"NetIncomeLossAvailableToCommonStockholdersBasic",
			},
			MetricCash: {
				"CashAndCashEquivalentsAtCarryingValue",
				"CashCashEquivalentsRestrictedCashAndRestrictedCashEquivalents",
				"Cash",
			},
			MetricReceivables: {"AccountsReceivableNetCurrent", "ReceivablesNetCurrent"},
			MetricPayables:    {"AccountsPayableCurrent", "AccountsPayableAndAccruedLiabilitiesCurrent"},
			MetricInventory:   {"InventoryNet", "InventoryGross"},
			MetricAssets:      {"Assets"},
			MetricLiabilities: {"Liabilities"},
			MetricLongTermDebt: {
				"LongTermDebtNoncurrent",
				"LongTermDebt",
				"LongTermDebtAndCapitalLeaseObligations",
			},
			MetricEmployees: {"EntityNumberOfEmployees", "NumberOfEmployees"},
		},
		Expenses: []ExpenseConcept{
			{Concept: "CostOfRevenue", Label: LabelCOGS},
			{Concept: "CostOfGoodsAndServicesSold", Label: LabelCOGS},
			{Concept: "CostOfGoodsSold", Label: LabelCOGS},
			{Concept: "ResearchAndDevelopmentExpense", Label: LabelRAndD},
			{Concept: "SellingGeneralAndAdministrativeExpense", Label: LabelSGA},
			{Concept: "GeneralAndAdministrativeExpense", Label: LabelGA},
			{Concept: "SellingAndMarketingExpense", Label: LabelSM},
			{Concept: "AdvertisingExpense", Label: LabelAdvertise},
			{Concept: "DepreciationDepletionAndAmortization", Label: LabelDA},
			{Concept: "DepreciationAndAmortization", Label: LabelDA},
		},
		AnnualForms:   []string{"10-K"},
		EmployeeUnits: []string{"pure", "employee", "Employee", "employees", "Employees", "number"},
	}
}

// LoadPolicy reads a YAML policy file and overlays it on the defaults.
// Candidate lists in the file replace the default list for that metric;
// a non-empty expenses table replaces the default table.
func LoadPolicy(path string) (*ConceptPolicy, error) {
	p := DefaultPolicy()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "xbrl: read concept policy %s", path)
	}

	var override ConceptPolicy
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, eris.Wrapf(err, "xbrl: parse concept policy %s", path)
	}

	for metric, names := range override.Candidates {
		if !knownMetric(metric) {
			return nil, eris.Errorf("xbrl: concept policy %s: unknown metric %q", path, metric)
		}
		if len(names) == 0 {
			return nil, eris.Errorf("xbrl: concept policy %s: empty candidate list for %q", path, metric)
		}
		p.Candidates[metric] = names
	}
	if len(override.Expenses) > 0 {
		p.Expenses = override.Expenses
	}
	if len(override.AnnualForms) > 0 {
		p.AnnualForms = override.AnnualForms
	}
	if len(override.EmployeeUnits) > 0 {
		p.EmployeeUnits = override.EmployeeUnits
	}
	return p, nil
}

// Concepts returns the candidate list for a metric.
func (p *ConceptPolicy) Concepts(metric string) []string {
	return p.Candidates[metric]
}

// TargetConcepts returns every concept the policy can consume, per taxonomy,
// in a stable order. Used to select raw facts for persistence.
func (p *ConceptPolicy) TargetConcepts() map[string][]string {
	seen := make(map[string]bool)
	out := map[string][]string{}
	add := func(ns, name string) {
		k := ns + ":" + name
		if seen[k] {
			return
		}
		seen[k] = true
		out[ns] = append(out[ns], name)
	}

	for _, metric := range metricOrder {
		ns := TaxonomyGAAP
		if metric == MetricEmployees {
			ns = TaxonomyDEI
		}
		for _, name := range p.Candidates[metric] {
			add(ns, name)
		}
	}
	for _, e := range p.Expenses {
		add(TaxonomyGAAP, e.Concept)
	}
	return out
}

func (p *ConceptPolicy) isAnnualForm(form string) bool {
	for _, f := range p.AnnualForms {
		if f == form {
			return true
		}
	}
	return false
}

var metricOrder = []string{
	MetricRevenue, MetricCostOfRevenue, MetricGrossProfit, MetricOperatingIncome,
	MetricNetIncome, MetricCash, MetricReceivables, MetricPayables, MetricInventory,
	MetricAssets, MetricLiabilities, MetricLongTermDebt, MetricEmployees,
}

func knownMetric(metric string) bool {
	for _, m := range metricOrder {
		if m == metric {
			return true
		}
	}
	return false
}
