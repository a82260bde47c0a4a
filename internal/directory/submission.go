// Package directory builds the in-memory map of ticketed SEC filers from the
// bulk submissions archive.
package directory

import (
	"bytes"
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"

	"github.com/sells-group/finprofile/internal/model"
)

var (
	// ErrMalformed marks a submissions entry that cannot be decoded or has no usable CIK.
	ErrMalformed = eris.New("directory: malformed submission")

	// ErrNoTicker marks a filer with no listed ticker.
	ErrNoTicker = eris.New("directory: filer has no ticker")
)

// entryPattern matches primary per-company entries; supplemental
// "CIK##########-submissions-NNN.json" files do not match.
var entryPattern = regexp.MustCompile(`^CIK(\d{10})\.json$`)

// EntryCIK returns the canonical CIK encoded in a per-company archive entry
// name such as "CIK0000320193.json".
func EntryCIK(name string) (string, bool) {
	m := entryPattern.FindStringSubmatch(path.Base(name))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// IsCompanyEntry reports whether name is a per-company archive entry.
func IsCompanyEntry(name string) bool {
	_, ok := EntryCIK(name)
	return ok
}

// PadCIK left-pads a numeric filer id to the canonical width.
func PadCIK(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", eris.Wrap(ErrMalformed, "empty cik")
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return "", eris.Wrapf(ErrMalformed, "cik %q is not numeric", raw)
	}
	cik := fmt.Sprintf("%0*d", model.CIKWidth, n)
	if len(cik) > model.CIKWidth {
		return "", eris.Wrapf(ErrMalformed, "cik %q exceeds %d digits", raw, model.CIKWidth)
	}
	return cik, nil
}

// flexCIK accepts the filer id as a JSON number or a JSON string.
type flexCIK string

func (c *flexCIK) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = ""
		return nil
	}
	*c = flexCIK(strings.Trim(string(data), `"`))
	return nil
}

// submission holds the fields of a company submissions document the
// directory consumes.
type submission struct {
	CIK            flexCIK  `json:"cik"`
	Name           string   `json:"name"`
	SIC            string   `json:"sic"`
	SICDescription string   `json:"sicDescription"`
	Tickers        []string `json:"tickers"`
	Exchanges      []string `json:"exchanges"`
	FiscalYearEnd  string   `json:"fiscalYearEnd"`
}

// ParseSubmission decodes one submissions document into a company identity.
// Filers without a ticker return ErrNoTicker.
func ParseSubmission(data []byte) (model.Company, error) {
	var sub submission
	if err := json.Unmarshal(data, &sub); err != nil {
		return model.Company{}, eris.Wrap(ErrMalformed, err.Error())
	}

	cik, err := PadCIK(string(sub.CIK))
	if err != nil {
		return model.Company{}, err
	}

	ticker := firstNonEmpty(sub.Tickers)
	if ticker == "" {
		return model.Company{}, eris.Wrapf(ErrNoTicker, "cik %s", cik)
	}

	return model.Company{
		CIK:            cik,
		Ticker:         strings.ToUpper(ticker),
		Name:           strings.TrimSpace(sub.Name),
		SIC:            sub.SIC,
		SICDescription: sub.SICDescription,
		Exchange:       firstNonEmpty(sub.Exchanges),
		FiscalYearEnd:  sub.FiscalYearEnd,
	}, nil
}

// firstNonEmpty returns the first listed value, trimmed; a blank first value
// counts as absent.
func firstNonEmpty(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}
