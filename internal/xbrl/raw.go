package xbrl

import (
	"sort"
	"time"

	"github.com/sells-group/finprofile/internal/model"
)

// ExtractRawFacts flattens the target concepts of a facts document into
// persistable rows. Rows sharing a primary key keep the first occurrence.
// Output order is deterministic.
func ExtractRawFacts(facts *CompanyFacts, cik string, targets map[string][]string) []model.Fact {
	if facts == nil || len(facts.Facts) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var result []model.Fact

	for _, ns := range []string{TaxonomyGAAP, TaxonomyDEI} {
		nsMap, ok := facts.Facts[ns]
		if !ok {
			continue
		}

		for _, name := range targets[ns] {
			fact, ok := nsMap[name]
			if !ok {
				continue
			}

			units := make([]string, 0, len(fact.Units))
			for u := range fact.Units {
				units = append(units, u)
			}
			sort.Strings(units)

			for _, unit := range units {
				for _, v := range fact.Units[unit] {
					if v.Accn == "" || validDate(v.End) == "" {
						continue
					}
					row := model.Fact{
						CIK:          cik,
						Taxonomy:     ns,
						Concept:      name,
						Unit:         unit,
						PeriodStart:  validDate(v.Start),
						PeriodEnd:    v.End,
						FiscalYear:   v.FY,
						FiscalPeriod: v.FP,
						Form:         v.Form,
						Accession:    v.Accn,
						Filed:        validDate(v.Filed),
						Frame:        v.Frame,
						Value:        v.Val,
					}
					key := row.Key()
					if seen[key] {
						continue
					}
					seen[key] = true
					result = append(result, row)
				}
			}
		}
	}

	return result
}

// validDate returns s when it is a YYYY-MM-DD date and "" otherwise.
func validDate(s string) string {
	if _, err := time.Parse(dateLayout, s); err != nil {
		return ""
	}
	return s
}
