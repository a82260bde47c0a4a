package xbrl

import "fmt"

// fyValue builds a 10-K full-year value filed shortly after the period end.
func fyValue(fy int, start, end string, val float64) FactValue {
	return FactValue{
		Start: start,
		End:   end,
		Val:   val,
		Accn:  fmt.Sprintf("0000320193-%02d-000106", fy%100),
		FY:    fy,
		FP:    "FY",
		Form:  "10-K",
		Filed: fmt.Sprintf("%d-02-15", fy+1),
	}
}

// instantValue builds a 10-K point-in-time value.
func instantValue(fy int, end string, val float64) FactValue {
	return fyValue(fy, "", end, val)
}

func usd(values ...FactValue) Fact {
	return Fact{Units: map[string][]FactValue{"USD": values}}
}

func gaapDoc(concepts map[string]Fact) *CompanyFacts {
	return &CompanyFacts{
		CIK:        320193,
		EntityName: "Apple Inc.",
		Facts:      map[string]FactNS{TaxonomyGAAP: FactNS(concepts)},
	}
}
