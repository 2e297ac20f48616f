package parser

import (
	"regexp"
	"strings"
)

// Sections holds the line lists of the two transaction regions.
type Sections struct {
	Foreign       []string
	Domestic      []string
	ForeignFound  bool
	DomesticFound bool
}

// Lines are separated by newlines or by runs of two or more spaces, which is
// how the extractor marks row breaks inside a page.
var lineBreakRe = regexp.MustCompile(`\r?\n| {2,}`)

// SplitSections locates the foreign and domestic regions. A region runs from
// just after its start marker to the nearest following end marker or start of
// the other region, whichever comes first. A missing start marker yields an
// empty region; a missing terminator runs the region to the end of the text.
func (p *Parser) SplitSections(text string) Sections {
	var s Sections

	foreign, ok := sectionBody(text, p.markers.ForeignStart, p.markers.SectionEnd, p.markers.DomesticStart)
	s.ForeignFound = ok
	s.Foreign = SplitLines(foreign)

	domestic, ok := sectionBody(text, p.markers.DomesticStart, p.markers.SectionEnd, p.markers.ForeignStart)
	s.DomesticFound = ok
	s.Domestic = SplitLines(domestic)

	return s
}

func sectionBody(text, start string, terminators ...string) (string, bool) {
	if start == "" {
		return "", false
	}
	idx := strings.Index(text, start)
	if idx < 0 {
		return "", false
	}

	rest := text[idx+len(start):]
	end := len(rest)
	for _, term := range terminators {
		if term == "" {
			continue
		}
		if i := strings.Index(rest, term); i >= 0 && i < end {
			end = i
		}
	}
	return rest[:end], true
}

// SplitLines breaks a region into trimmed, non-empty lines.
func SplitLines(body string) []string {
	var lines []string
	for _, l := range lineBreakRe.Split(body, -1) {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
