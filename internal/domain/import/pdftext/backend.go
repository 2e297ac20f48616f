package pdftext

import (
	"io"
)

// TextRun is a positioned piece of text on a page. It is the only shape
// rendering output takes once it leaves a Backend.
type TextRun struct {
	Text     string
	X        float64
	Y        float64
	Width    float64
	FontSize float64
}

// Document is an opened PDF. Pages are numbered from 1.
type Document interface {
	NumPages() int
	// PageRows returns the page's text rows top to bottom, each row's runs
	// left to right. A page without content returns nil rows.
	PageRows(page int) ([][]TextRun, error)
}

// Backend opens PDF bytes.
type Backend interface {
	Open(r io.ReaderAt, size int64) (Document, error)
}

// BackendFactory builds the backend on first use.
type BackendFactory func() (Backend, error)
