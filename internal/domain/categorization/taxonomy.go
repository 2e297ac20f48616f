// Package categorization holds the fixed expense category taxonomy and the
// strategies used to find a category label inside noisy statement text.
package categorization

import "slices"

// FallbackCategory is assigned when no taxonomy label matches.
const FallbackCategory = "other"

// ForeignCategory tags every transaction from the foreign-purchases section.
const ForeignCategory = "Foreign"

// defaultLabels is ordered; first-match lookups depend on this order.
var defaultLabels = []string{
	"מזון",
	"מסעדות",
	"תחבורה",
	"דלק",
	"קניות",
	"ביגוד",
	"בריאות",
	"חשמל",
	"מים",
	"תקשורת",
	"בידור",
	"חינוך",
	"ביטוח",
	"דיור",
	"ספורט",
	"טיפוח",
	"מתנות",
	"חיות מחמד",
	"תרומות",
	"שירותים",
}

// DefaultTaxonomy is shared by the statement parser and manual expense entry.
var DefaultTaxonomy = NewTaxonomy(defaultLabels, FallbackCategory)

// Taxonomy is an immutable ordered set of category labels.
type Taxonomy struct {
	labels   []string
	index    map[string]int
	fallback string
}

// NewTaxonomy copies labels, dropping empty and duplicate entries.
func NewTaxonomy(labels []string, fallback string) *Taxonomy {
	t := &Taxonomy{
		labels:   make([]string, 0, len(labels)),
		index:    make(map[string]int, len(labels)),
		fallback: fallback,
	}
	for _, l := range labels {
		if l == "" {
			continue
		}
		if _, dup := t.index[l]; dup {
			continue
		}
		t.index[l] = len(t.labels)
		t.labels = append(t.labels, l)
	}
	return t
}

// Labels returns the labels in taxonomy order.
func (t *Taxonomy) Labels() []string {
	return slices.Clone(t.labels)
}

// All returns the labels followed by the fallback category.
func (t *Taxonomy) All() []string {
	return append(t.Labels(), t.fallback)
}

// Contains reports whether s is exactly one of the labels.
func (t *Taxonomy) Contains(s string) bool {
	_, ok := t.index[s]
	return ok
}

// Index returns the position of label, or -1.
func (t *Taxonomy) Index(label string) int {
	if i, ok := t.index[label]; ok {
		return i
	}
	return -1
}

// Fallback returns the label used when nothing matches.
func (t *Taxonomy) Fallback() string {
	return t.fallback
}
