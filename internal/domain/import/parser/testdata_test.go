package parser

import "strings"

// sampleStatement mimics extractor output: rows joined by double spaces,
// pages joined by newlines.
var sampleStatement = strings.Join([]string{
	"ישראכרט  פירוט חיובים  לתאריך: 02/04/25  כרטיס 1234",
	`עסקאות בחו"ל`,
	"תאריך עסקה  שם בית העסק  סכום מקור  סכום חיוב",
	"12/02/25 Some Store  123456789  89.90 ₪",
	"20/02/25 AMAZON MKTPLACE  USD 25.00  92.15 ₪",
	"עסקאות בארץ",
	"תאריך  שם בית העסק  סכום  ענף",
	"01/03/25 סופרמרקט טוב 145.90 מזון",
	"15/01/25 מחסני חשמל 1,200.00 300.00 2 מתוך 4 תשלום קניות",
	"05/03/25 שם בית עסק לא מוצג 50.00  פנגו חניונים  תחבורה",
	"07/03/25 AMAZON 33.00",
	"08/03/25 העברה שם בית עסק לא מוצג 20.00 שירותים",
	"03/03/25 מסעדה 120.50 433.80",
	`סה"כ חיוב לתאריך 10/04/25 1,234.56 ₪`,
	"הודעות ללקוח  03/04/25 99.99",
}, "\n")
