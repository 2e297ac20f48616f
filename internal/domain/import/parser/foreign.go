package parser

import (
	"regexp"
	"strings"

	"github.com/FACorreiaa/expense-tracker/internal/domain/import/normalizer"
	"github.com/FACorreiaa/expense-tracker/internal/domain/import/statement"
)

// foreignAmountRe matches the billed shekel amount on the third line of a
// foreign transaction group.
var foreignAmountRe = regexp.MustCompile(`(\d{1,3}(?:,\d{3})+\.\d{2}|\d+\.\d{2})\s*` + normalizer.CurrencyGlyph)

// ParseForeign reads the foreign region as groups of three lines: the first
// carries the date and merchant, the third the billed amount with the shekel
// glyph. The middle line (original currency) is ignored. When a window does
// not fit, the scan advances by a single line.
func (p *Parser) ParseForeign(lines []string) ([]statement.ParsedTransaction, int) {
	var (
		txs     []statement.ParsedTransaction
		skipped int
	)

	for i := 0; i+2 < len(lines); {
		tx, ok := p.foreignGroup(lines[i], lines[i+2])
		if !ok {
			skipped++
			i++
			continue
		}
		txs = append(txs, tx)
		i += 3
	}

	return txs, skipped
}

func (p *Parser) foreignGroup(head, billed string) (statement.ParsedTransaction, bool) {
	date, ok := lineTokens(Tokenize(head)).first(TokenDate)
	if !ok {
		return statement.ParsedTransaction{}, false
	}
	m := foreignAmountRe.FindStringSubmatch(billed)
	if m == nil {
		return statement.ParsedTransaction{}, false
	}
	amount, err := normalizer.ParseAmount(m[1])
	if err != nil {
		return statement.ParsedTransaction{}, false
	}

	return statement.ParsedTransaction{
		Date:     date.Date,
		Name:     normalizer.CleanDescription(strings.Replace(head, date.Text, "", 1)),
		Amount:   amount,
		Category: p.foreignCategory,
		Type:     statement.TypeForeign,
	}, true
}
