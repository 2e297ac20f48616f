package parser

// Markers are the fixed phrases that delimit a statement's regions.
// They are matched as literal substrings of the extracted text.
type Markers struct {
	ReportDateLabel  string
	ForeignStart     string
	DomesticStart    string
	SectionEnd       string
	RedactedMerchant string
}

// DefaultMarkers returns the phrases printed on Hebrew credit-card statements.
func DefaultMarkers() Markers {
	return Markers{
		ReportDateLabel:  "לתאריך:",
		ForeignStart:     `עסקאות בחו"ל`,
		DomesticStart:    "עסקאות בארץ",
		SectionEnd:       `סה"כ חיוב לתאריך`,
		RedactedMerchant: "שם בית עסק לא מוצג",
	}
}
