// Package xbrl parses SEC company facts documents and resolves XBRL concepts
// into annual and point-in-time series.
package xbrl

import (
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

// Taxonomy namespaces consumed from company facts documents.
const (
	TaxonomyGAAP = "us-gaap"
	TaxonomyDEI  = "dei"
)

// ErrMalformed marks a facts document that could not be decoded.
var ErrMalformed = eris.New("xbrl: malformed company facts")

// CompanyFacts represents the EDGAR company facts JSON structure.
type CompanyFacts struct {
	CIK        int               `json:"cik"`
	EntityName string            `json:"entityName"`
	Facts      map[string]FactNS `json:"facts"`
}

// FactNS groups facts by concept name within one taxonomy.
type FactNS map[string]Fact

// Fact is a single XBRL concept with its values grouped by unit.
type Fact struct {
	Label       string                 `json:"label"`
	Description string                 `json:"description"`
	Units       map[string][]FactValue `json:"units"`
}

// FactValue is a single disclosed data point.
type FactValue struct {
	Start string  `json:"start,omitempty"`
	End   string  `json:"end"`
	Val   float64 `json:"val"`
	Accn  string  `json:"accn"`
	FY    int     `json:"fy"`
	FP    string  `json:"fp"`
	Form  string  `json:"form"`
	Filed string  `json:"filed"`
	Frame string  `json:"frame,omitempty"`
}

// DecodeCompanyFacts decodes a company facts document held in memory.
func DecodeCompanyFacts(data []byte) (*CompanyFacts, error) {
	var facts CompanyFacts
	if err := json.Unmarshal(data, &facts); err != nil {
		return nil, eris.Wrap(ErrMalformed, err.Error())
	}
	return &facts, nil
}

// concept returns the named concept in a taxonomy, if disclosed.
func (c *CompanyFacts) concept(taxonomy, name string) (Fact, bool) {
	if c == nil {
		return Fact{}, false
	}
	ns, ok := c.Facts[taxonomy]
	if !ok {
		return Fact{}, false
	}
	f, ok := ns[name]
	return f, ok
}
