package categorization

import "strings"

// Matcher locates a taxonomy label anywhere inside free text.
// Implementations must return the label that comes first in taxonomy order
// among all labels present, so strategies can be swapped without changing
// parser output.
type Matcher interface {
	Match(text string) (label string, ok bool)
}

// OrderedMatcher walks the taxonomy in order and returns the first label that
// is a substring of the text.
type OrderedMatcher struct {
	taxonomy *Taxonomy
}

// NewOrderedMatcher creates a linear first-match matcher.
func NewOrderedMatcher(t *Taxonomy) *OrderedMatcher {
	return &OrderedMatcher{taxonomy: t}
}

// Match implements Matcher.
func (m *OrderedMatcher) Match(text string) (string, bool) {
	for _, label := range m.taxonomy.labels {
		if strings.Contains(text, label) {
			return label, true
		}
	}
	return "", false
}
