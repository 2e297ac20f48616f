package categorization

import (
	"github.com/cloudflare/ahocorasick"
)

// Engine matches all taxonomy labels in a single pass using the Aho-Corasick
// algorithm. When several labels occur in the text, the one earliest in the
// taxonomy wins, which keeps it interchangeable with OrderedMatcher.
type Engine struct {
	matcher  *ahocorasick.Matcher
	taxonomy *Taxonomy
}

// NewEngine builds the matcher trie once from the taxonomy labels.
func NewEngine(t *Taxonomy) *Engine {
	e := &Engine{taxonomy: t}
	if len(t.labels) > 0 {
		patterns := make([][]byte, len(t.labels))
		for i, l := range t.labels {
			patterns[i] = []byte(l)
		}
		e.matcher = ahocorasick.NewMatcher(patterns)
	}
	return e
}

// Match implements Matcher.
func (e *Engine) Match(text string) (string, bool) {
	if e.matcher == nil || text == "" {
		return "", false
	}

	hits := e.matcher.Match([]byte(text))
	if len(hits) == 0 {
		return "", false
	}

	best := -1
	for _, idx := range hits {
		if idx < 0 || idx >= len(e.taxonomy.labels) {
			continue
		}
		if best < 0 || idx < best {
			best = idx
		}
	}
	if best < 0 {
		return "", false
	}
	return e.taxonomy.labels[best], true
}

// PatternCount returns the number of labels loaded in the engine.
func (e *Engine) PatternCount() int {
	return len(e.taxonomy.labels)
}
