// Package parser turns the flat text of a credit-card statement into parsed
// transactions: it finds the report date, splits the foreign and domestic
// regions and assembles transactions from a typed token stream per line.
package parser

import (
	"regexp"

	"github.com/FACorreiaa/expense-tracker/internal/domain/categorization"
	"github.com/FACorreiaa/expense-tracker/internal/domain/import/statement"
)

// ParseResult contains the results of parsing one statement
type ParseResult struct {
	Report   statement.ReportContext
	Foreign  []statement.ParsedTransaction
	Domestic []statement.ParsedTransaction

	ForeignSectionFound  bool
	DomesticSectionFound bool
	TotalLines           int
	SkippedLines         int
}

// Transactions returns foreign transactions followed by domestic ones.
func (r *ParseResult) Transactions() []statement.ParsedTransaction {
	out := make([]statement.ParsedTransaction, 0, len(r.Foreign)+len(r.Domestic))
	out = append(out, r.Foreign...)
	return append(out, r.Domestic...)
}

// Empty reports whether neither region yielded a transaction.
func (r *ParseResult) Empty() bool {
	return len(r.Foreign) == 0 && len(r.Domestic) == 0
}

// ParserConfig configures the statement parser
type ParserConfig struct {
	Markers         Markers
	Taxonomy        *categorization.Taxonomy
	Matcher         categorization.Matcher // nil: Aho-Corasick over Taxonomy
	ForeignCategory string
}

// DefaultConfig returns the configuration for Hebrew issuer statements.
func DefaultConfig() ParserConfig {
	return ParserConfig{
		Markers:         DefaultMarkers(),
		Taxonomy:        categorization.DefaultTaxonomy,
		ForeignCategory: categorization.ForeignCategory,
	}
}

// Parser is safe for concurrent use once built.
type Parser struct {
	markers         Markers
	taxonomy        *categorization.Taxonomy
	matcher         categorization.Matcher
	foreignCategory string
	reportDateRe    *regexp.Regexp
}

// NewParser creates a new statement parser
func NewParser(config ParserConfig) *Parser {
	if config.Taxonomy == nil {
		config.Taxonomy = categorization.DefaultTaxonomy
	}
	if config.Matcher == nil {
		config.Matcher = categorization.NewEngine(config.Taxonomy)
	}
	if config.ForeignCategory == "" {
		config.ForeignCategory = categorization.ForeignCategory
	}
	if config.Markers == (Markers{}) {
		config.Markers = DefaultMarkers()
	}

	return &Parser{
		markers:         config.Markers,
		taxonomy:        config.Taxonomy,
		matcher:         config.Matcher,
		foreignCategory: config.ForeignCategory,
		reportDateRe:    reportDatePattern(config.Markers.ReportDateLabel),
	}
}

// Taxonomy returns the category set the parser assigns from.
func (p *Parser) Taxonomy() *categorization.Taxonomy {
	return p.taxonomy
}

func (p *Parser) Markers() Markers {
	return p.markers
}

// Parse runs the full text-to-transactions stage. A missing report date is
// fatal; unrecognised lines are counted and skipped. A statement with no
// transactions is not an error here, callers decide with ParseResult.Empty.
func (p *Parser) Parse(text string) (*ParseResult, error) {
	report, err := p.ReportContext(text)
	if err != nil {
		return nil, err
	}

	sections := p.SplitSections(text)
	result := &ParseResult{
		Report:               report,
		ForeignSectionFound:  sections.ForeignFound,
		DomesticSectionFound: sections.DomesticFound,
		TotalLines:           len(sections.Foreign) + len(sections.Domestic),
	}

	var skipped int
	result.Foreign, skipped = p.ParseForeign(sections.Foreign)
	result.SkippedLines += skipped

	result.Domestic, skipped = p.ParseDomestic(sections.Domestic)
	result.SkippedLines += skipped

	return result, nil
}
