package parser

import (
	"fmt"
	"regexp"

	"github.com/FACorreiaa/expense-tracker/internal/domain/import/normalizer"
	"github.com/FACorreiaa/expense-tracker/internal/domain/import/statement"
)

func reportDatePattern(label string) *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta(label) + `\s*(\d{1,2})/(\d{1,2})/(\d{4}|\d{2})\b`)
}

// ReportContext finds the statement's reference date: the first occurrence of
// the report-date label followed by a valid DD/MM/YY date.
func (p *Parser) ReportContext(text string) (statement.ReportContext, error) {
	matches := p.reportDateRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return statement.ReportContext{}, &statement.MissingReportDateError{
			Reason: fmt.Sprintf("label %q not followed by a DD/MM/YY date", p.markers.ReportDateLabel),
		}
	}

	var lastErr error
	for _, m := range matches {
		d, err := normalizer.ParseShortDate(m[1], m[2], m[3])
		if err != nil {
			lastErr = err
			continue
		}
		return statement.NewReportContext(d), nil
	}

	return statement.ReportContext{}, &statement.MissingReportDateError{
		Reason: fmt.Sprintf("no valid report date: %v", lastErr),
	}
}
