// Package model defines the records persisted by the import pipeline.
package model

// CIKWidth is the fixed width of a canonical CIK.
const CIKWidth = 10

// Company is the identity of one ticketed SEC filer.
type Company struct {
	CIK            string `json:"cik" db:"cik"`
	Ticker         string `json:"ticker" db:"ticker"`
	Name           string `json:"name" db:"name"`
	SIC            string `json:"sic,omitempty" db:"sic"`
	SICDescription string `json:"sic_description,omitempty" db:"sic_description"`
	Exchange       string `json:"exchange,omitempty" db:"exchange"`
	FiscalYearEnd  string `json:"fiscal_year_end,omitempty" db:"fiscal_year_end"`
}
