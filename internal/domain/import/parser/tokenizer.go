package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/expense-tracker/internal/domain/import/normalizer"
)

// TokenKind classifies a piece of a statement line.
type TokenKind int

const (
	TokenText TokenKind = iota
	TokenDate
	TokenAmount
	TokenInstallment
)

func (k TokenKind) String() string {
	switch k {
	case TokenDate:
		return "date"
	case TokenAmount:
		return "amount"
	case TokenInstallment:
		return "installment"
	default:
		return "text"
	}
}

// Token is one typed piece of a line. Only the field matching Kind is set.
type Token struct {
	Kind        TokenKind
	Text        string
	Date        time.Time
	Amount      decimal.Decimal
	Installment Installment
}

// Installment is a parsed "K of N" annotation.
type Installment struct {
	Current int
	Total   int
}

// Installment annotations come before dates and amounts in the alternation so
// their digits are never claimed by the other patterns.
var tokenRe = regexp.MustCompile(
	`(?P<inst>(?:תשלום\s+)?(?P<cur>\d{1,3})\s*מתוך\s*(?P<total>\d{1,3})(?:\s*תשלומים|\s*תשלום)?)` +
		`|(?P<date>\b(?P<dd>\d{2})/(?P<mm>\d{2})/(?P<yy>\d{4}|\d{2})\b)` +
		`|(?P<amount>\b\d{1,3}(?:,\d{3})+\.\d{2}\b|\b\d+\.\d{2}\b)`,
)

var (
	groupInst   = tokenRe.SubexpIndex("inst")
	groupCur    = tokenRe.SubexpIndex("cur")
	groupTotal  = tokenRe.SubexpIndex("total")
	groupDate   = tokenRe.SubexpIndex("date")
	groupDD     = tokenRe.SubexpIndex("dd")
	groupMM     = tokenRe.SubexpIndex("mm")
	groupYY     = tokenRe.SubexpIndex("yy")
	groupAmount = tokenRe.SubexpIndex("amount")
)

// Tokenize splits a line into a typed token stream, preserving order.
// Text between recognised tokens becomes TokenText with whitespace collapsed
// and noise words (stray signs, currency glyphs) dropped. A date-shaped token
// that is not a real calendar date stays text.
func Tokenize(line string) []Token {
	var tokens []Token
	pos := 0

	for _, m := range tokenRe.FindAllStringSubmatchIndex(line, -1) {
		start, end := m[0], m[1]
		tokens = appendText(tokens, line[pos:start])
		pos = end

		raw := line[start:end]
		switch {
		case m[2*groupInst] >= 0:
			cur, _ := strconv.Atoi(line[m[2*groupCur]:m[2*groupCur+1]])
			total, _ := strconv.Atoi(line[m[2*groupTotal]:m[2*groupTotal+1]])
			tokens = append(tokens, Token{
				Kind:        TokenInstallment,
				Text:        strings.TrimSpace(raw),
				Installment: Installment{Current: cur, Total: total},
			})

		case m[2*groupDate] >= 0:
			d, err := normalizer.ParseShortDate(
				line[m[2*groupDD]:m[2*groupDD+1]],
				line[m[2*groupMM]:m[2*groupMM+1]],
				line[m[2*groupYY]:m[2*groupYY+1]],
			)
			if err != nil {
				tokens = appendText(tokens, raw)
				continue
			}
			tokens = append(tokens, Token{Kind: TokenDate, Text: raw, Date: d})

		case m[2*groupAmount] >= 0:
			amount, err := normalizer.ParseAmount(raw)
			if err != nil {
				tokens = appendText(tokens, raw)
				continue
			}
			tokens = append(tokens, Token{Kind: TokenAmount, Text: raw, Amount: amount})
		}
	}

	return appendText(tokens, line[pos:])
}

func appendText(tokens []Token, s string) []Token {
	words := strings.Fields(s)
	kept := words[:0]
	for _, w := range words {
		if !normalizer.IsNoise(w) {
			kept = append(kept, w)
		}
	}
	if len(kept) == 0 {
		return tokens
	}
	return append(tokens, Token{Kind: TokenText, Text: strings.Join(kept, " ")})
}

// lineTokens is a tokenized line with the lookups the line parsers need.
type lineTokens []Token

func (lt lineTokens) first(kind TokenKind) (Token, bool) {
	for _, t := range lt {
		if t.Kind == kind {
			return t, true
		}
	}
	return Token{}, false
}

func (lt lineTokens) last(kind TokenKind) (Token, bool) {
	for i := len(lt) - 1; i >= 0; i-- {
		if lt[i].Kind == kind {
			return lt[i], true
		}
	}
	return Token{}, false
}

func (lt lineTokens) has(kind TokenKind) bool {
	_, ok := lt.first(kind)
	return ok
}

// residual joins the text tokens: the line minus dates, amounts and
// installment annotations.
func (lt lineTokens) residual() string {
	var parts []string
	for _, t := range lt {
		if t.Kind == TokenText {
			parts = append(parts, t.Text)
		}
	}
	return normalizer.CleanDescription(strings.Join(parts, " "))
}
