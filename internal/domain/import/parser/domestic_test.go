package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/expense-tracker/internal/domain/import/statement"
)

func TestParser_ParseDomestic(t *testing.T) {
	p := NewParser(DefaultConfig())

	t.Run("single line", func(t *testing.T) {
		txs, skipped := p.ParseDomestic([]string{"01/03/25 סופרמרקט טוב 145.90 מזון"})
		require.Len(t, txs, 1)
		assert.Zero(t, skipped)

		tx := txs[0]
		assert.Equal(t, "2025-03-01", tx.Date.Format(statement.ISODateLayout))
		assert.Equal(t, "סופרמרקט טוב", tx.Name)
		assert.True(t, tx.Amount.Equal(amount("145.90")))
		assert.Equal(t, "מזון", tx.Category)
		assert.Equal(t, statement.TypeDomestic, tx.Type)
		assert.Nil(t, tx.PaymentDetails)
	})

	t.Run("last amount wins", func(t *testing.T) {
		txs, _ := p.ParseDomestic([]string{"03/03/25 מסעדה 120.50 433.80"})
		require.Len(t, txs, 1)
		assert.True(t, txs[0].Amount.Equal(amount("433.80")))
	})

	t.Run("category falls back", func(t *testing.T) {
		txs, _ := p.ParseDomestic([]string{"07/03/25 AMAZON 33.00"})
		require.Len(t, txs, 1)
		assert.Equal(t, "AMAZON", txs[0].Name)
		assert.Equal(t, "other", txs[0].Category)
	})

	t.Run("category found inside the text", func(t *testing.T) {
		txs, _ := p.ParseDomestic([]string{"09/03/25 תחנת דלק פז 210.00"})
		require.Len(t, txs, 1)
		assert.Equal(t, "דלק", txs[0].Category)
		assert.Equal(t, "תחנת פז", txs[0].Name)
	})

	t.Run("installment annotation", func(t *testing.T) {
		txs, _ := p.ParseDomestic([]string{"15/01/25 מחסני חשמל 1,200.00 300.00 2 מתוך 4 תשלום קניות"})
		require.Len(t, txs, 1)

		tx := txs[0]
		assert.Equal(t, "מחסני חשמל", tx.Name)
		assert.Equal(t, "קניות", tx.Category)
		assert.True(t, tx.Amount.Equal(amount("300")))
		require.NotNil(t, tx.PaymentDetails)
		assert.Equal(t, "2 מתוך 4 תשלום", *tx.PaymentDetails)
	})

	t.Run("lines without date or amount are skipped", func(t *testing.T) {
		txs, skipped := p.ParseDomestic([]string{
			"תאריך שם בית העסק סכום",
			"01/03/25 ללא סכום",
			"מזון 12.00",
			`סה"כ 1,000.00`,
		})
		assert.Empty(t, txs)
		assert.Equal(t, 4, skipped)
	})

	t.Run("redacted merchant takes the next line", func(t *testing.T) {
		txs, _ := p.ParseDomestic([]string{
			"05/03/25 שם בית עסק לא מוצג 50.00",
			"פנגו חניונים",
			"תחבורה",
		})
		require.Len(t, txs, 1)
		assert.Equal(t, "פנגו חניונים", txs[0].Name)
		assert.Equal(t, "תחבורה", txs[0].Category)
	})

	t.Run("redacted merchant keeps its own category", func(t *testing.T) {
		txs, _ := p.ParseDomestic([]string{
			"05/03/25 שם בית עסק לא מוצג 50.00 בריאות",
			"סופר פארם",
			"תחבורה",
		})
		require.Len(t, txs, 1)
		assert.Equal(t, "סופר פארם", txs[0].Name)
		assert.Equal(t, "בריאות", txs[0].Category)
	})

	t.Run("redacted merchant before another transaction", func(t *testing.T) {
		txs, _ := p.ParseDomestic([]string{
			"05/03/25 שם בית עסק לא מוצג 50.00",
			"06/03/25 AMAZON 10.00",
		})
		require.Len(t, txs, 2)
		assert.Empty(t, txs[0].Name)
		assert.Equal(t, "other", txs[0].Category)
		assert.Equal(t, "AMAZON", txs[1].Name)
	})

	t.Run("marker mid-string is stripped", func(t *testing.T) {
		txs, _ := p.ParseDomestic([]string{
			"08/03/25 העברה שם בית עסק לא מוצג 20.00 שירותים",
			"לא שם",
		})
		require.Len(t, txs, 1)
		assert.Equal(t, "העברה", txs[0].Name)
		assert.Equal(t, "שירותים", txs[0].Category)
	})
}
