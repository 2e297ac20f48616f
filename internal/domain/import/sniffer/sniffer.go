// Package sniffer checks uploads at the boundary: that the bytes are a PDF,
// and which statement regions the extracted text contains.
package sniffer

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"unicode"

	"github.com/FACorreiaa/expense-tracker/internal/domain/import/parser"
)

// ErrNotPDF is returned for uploads that are not PDF documents.
var ErrNotPDF = errors.New("file is not a PDF")

// pdfMagic starts every PDF file, possibly after a few bytes of junk.
var pdfMagic = []byte("%PDF-")

// magicWindow is how far into the file the header may appear.
const magicWindow = 1024

// Kind describes a detected upload
type Kind struct {
	ContentType string
	Version     string // e.g. "1.7"
}

// DetectKind accepts PDF bytes only, recognised by the magic header.
func DetectKind(data []byte) (*Kind, error) {
	window := data
	if len(window) > magicWindow {
		window = window[:magicWindow]
	}
	idx := bytes.Index(window, pdfMagic)
	if idx < 0 {
		return nil, ErrNotPDF
	}

	kind := &Kind{ContentType: "application/pdf"}

	rest := window[idx+len(pdfMagic):]
	end := bytes.IndexFunc(rest, func(r rune) bool { return r != '.' && !unicode.IsDigit(r) })
	if end < 0 {
		end = len(rest)
	}
	kind.Version = string(rest[:end])
	return kind, nil
}

// Layout records which markers appear in statement text
type Layout struct {
	HasReportDate bool
	HasForeign    bool
	HasDomestic   bool
	HasSectionEnd bool
	Fingerprint   string // SHA256 of the markers found, in a fixed order
}

// Recognised reports whether the text looks like a supported statement.
func (l *Layout) Recognised() bool {
	return l.HasReportDate && (l.HasForeign || l.HasDomestic)
}

// DetectLayout inspects extracted text for the statement markers. The
// fingerprint lets support tell statement variants apart in logs.
func DetectLayout(text string, m parser.Markers) *Layout {
	l := &Layout{
		HasReportDate: contains(text, m.ReportDateLabel),
		HasForeign:    contains(text, m.ForeignStart),
		HasDomestic:   contains(text, m.DomesticStart),
		HasSectionEnd: contains(text, m.SectionEnd),
	}

	var found []string
	for _, marker := range []struct {
		ok   bool
		name string
	}{
		{l.HasReportDate, m.ReportDateLabel},
		{l.HasForeign, m.ForeignStart},
		{l.HasDomestic, m.DomesticStart},
		{l.HasSectionEnd, m.SectionEnd},
	} {
		if marker.ok {
			found = append(found, normalize(marker.name))
		}
	}
	l.Fingerprint = generateFingerprint(found)
	return l
}

func contains(text, marker string) bool {
	return marker != "" && strings.Contains(text, marker)
}

func normalize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, s)
}

// generateFingerprint creates a unique hash from marker names
func generateFingerprint(parts []string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(hash[:])
}
