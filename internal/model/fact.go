package model

import "strconv"

// Fact is one disclosed XBRL value for a company.
//
// The primary key is (CIK, Taxonomy, Concept, Unit, PeriodEnd, FiscalYear, Accession).
type Fact struct {
	CIK          string  `json:"cik"`
	Taxonomy     string  `json:"taxonomy"`
	Concept      string  `json:"concept"`
	Unit         string  `json:"unit"`
	PeriodStart  string  `json:"period_start,omitempty"`
	PeriodEnd    string  `json:"period_end"`
	FiscalYear   int     `json:"fiscal_year"`
	FiscalPeriod string  `json:"fiscal_period,omitempty"`
	Form         string  `json:"form"`
	Accession    string  `json:"accession"`
	Filed        string  `json:"filed,omitempty"`
	Frame        string  `json:"frame,omitempty"`
	Value        float64 `json:"value"`
}

// Key returns the primary key of the fact within one company.
func (f Fact) Key() string {
	return f.Taxonomy + "|" + f.Concept + "|" + f.Unit + "|" + f.PeriodEnd + "|" +
		strconv.Itoa(f.FiscalYear) + "|" + f.Accession
}
