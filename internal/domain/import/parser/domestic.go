package parser

import (
	"strings"

	"github.com/FACorreiaa/expense-tracker/internal/domain/import/normalizer"
	"github.com/FACorreiaa/expense-tracker/internal/domain/import/statement"
)

// ParseDomestic reads the domestic region line by line. Lines without both a
// date and an amount are skipped. It also returns the number of skipped lines.
func (p *Parser) ParseDomestic(lines []string) ([]statement.ParsedTransaction, int) {
	var (
		txs     []statement.ParsedTransaction
		skipped int
	)

	for i, line := range lines {
		toks := lineTokens(Tokenize(line))

		date, ok := toks.first(TokenDate)
		if !ok {
			skipped++
			continue
		}
		// Balance columns can follow the charged amount, so the last one wins.
		amount, ok := toks.last(TokenAmount)
		if !ok {
			skipped++
			continue
		}

		tx := statement.ParsedTransaction{
			Date:   date.Date,
			Amount: amount.Amount,
			Type:   statement.TypeDomestic,
		}
		if inst, ok := toks.first(TokenInstallment); ok {
			details := inst.Text
			tx.PaymentDetails = &details
		}

		residual := toks.residual()
		marker := p.markers.RedactedMerchant
		switch {
		case marker != "" && strings.HasPrefix(residual, marker):
			tx.Name, tx.Category = p.splitCategory(strings.TrimPrefix(residual, marker))
			p.resolveRedacted(&tx, lines, i)
		default:
			tx.Name, tx.Category = p.splitCategory(residual)
			if marker != "" && strings.Contains(tx.Name, marker) {
				tx.Name = normalizer.CleanDescription(strings.Replace(tx.Name, marker, "", 1))
			}
		}

		txs = append(txs, tx)
	}

	return txs, skipped
}

// resolveRedacted fills in a merchant whose name the issuer hid. The real name
// sits on the following line when that line is not itself a transaction; a
// category may sit on the line after it.
func (p *Parser) resolveRedacted(tx *statement.ParsedTransaction, lines []string, i int) {
	if i+1 >= len(lines) || isTransactionLike(lines[i+1]) {
		return
	}
	next := normalizer.CleanDescription(lines[i+1])
	if tx.Category == p.taxonomy.Fallback() {
		tx.Name, tx.Category = p.splitCategory(next)
	} else {
		tx.Name = next
	}

	if tx.Category != p.taxonomy.Fallback() || i+2 >= len(lines) {
		return
	}
	if label := strings.TrimSpace(lines[i+2]); p.taxonomy.Contains(label) {
		tx.Category = label
	}
}

// splitCategory separates the trailing category from the merchant name.
// An exact taxonomy label as the last word wins; otherwise the first label in
// taxonomy order found anywhere in the text is taken and removed once.
func (p *Parser) splitCategory(residual string) (name, category string) {
	residual = normalizer.CleanDescription(residual)

	words := strings.Fields(residual)
	if n := len(words); n > 0 && p.taxonomy.Contains(words[n-1]) {
		return strings.Join(words[:n-1], " "), words[n-1]
	}

	if label, ok := p.matcher.Match(residual); ok {
		return normalizer.CleanDescription(strings.Replace(residual, label, "", 1)), label
	}

	return residual, p.taxonomy.Fallback()
}

func isTransactionLike(line string) bool {
	toks := lineTokens(Tokenize(line))
	return toks.has(TokenDate) || toks.has(TokenAmount)
}
