package profile

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/finprofile/internal/model"
)

// FallbackInsight is used when no growth, margin or headcount is available.
const FallbackInsight = "Limited financial detail is available from recent annual filings."

var printer = message.NewPrinter(language.English)

// KeyInsight summarizes growth, operating margin and headcount for the
// latest year, using whichever are available.
func KeyInsight(p *model.FinancialProfile) string {
	var parts []string

	if len(p.YearlyData) > 0 {
		latest := p.YearlyData[0]
		if g := latest.RevenueGrowth; g != nil {
			switch {
			case *g > 0:
				parts = append(parts, fmt.Sprintf("Revenue grew %.1f%% year over year in FY%d", *g, latest.Year))
			case *g < 0:
				parts = append(parts, fmt.Sprintf("Revenue declined %.1f%% year over year in FY%d", math.Abs(*g), latest.Year))
			default:
				parts = append(parts, fmt.Sprintf("Revenue was flat year over year in FY%d", latest.Year))
			}
		}
		if m := latest.OperatingMargin; m != nil {
			parts = append(parts, fmt.Sprintf("Operating margin of %.1f%%", *m))
		}
	}

	if p.EmployeeCount != nil {
		parts = append(parts, printer.Sprintf("Approximately %d employees", *p.EmployeeCount))
	}

	if len(parts) == 0 {
		return FallbackInsight
	}
	return strings.Join(parts, ". ") + "."
}
