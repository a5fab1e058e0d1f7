// Package expect compares captured stderr text against expected strings.
package expect

import "strings"

// Kind selects how an expected item is compared with the captured text.
type Kind int

const (
	// Substring requires the captured text to contain the item.
	Substring Kind = iota
	// Exact requires the captured text to equal the item.
	Exact
)

func (k Kind) String() string {
	switch k {
	case Exact:
		return "exact"
	default:
		return "substring"
	}
}

// Relation is the phrase used when an item does not hold.
func (k Kind) Relation() string {
	if k == Exact {
		return "was not equal to"
	}
	return "was not in"
}

// Matcher checks every expected item against one captured text.
type Matcher struct {
	Kind Kind

	// Quoted wraps each item in double quotes before comparing.
	Quoted bool
}

// Mismatch is an expected item the captured text did not satisfy.
type Mismatch struct {
	Item   string // as compared, including quotes when Quoted
	Kind   Kind
	Quoted bool
}

// Label is the item as it appears in a diagnostic, wrapped in double quotes
// exactly once.
func (m Mismatch) Label() string {
	if m.Quoted {
		return m.Item
	}
	return `"` + m.Item + `"`
}

// Item returns the form of raw that is compared against captured text.
func (m Matcher) Item(raw string) string {
	if m.Quoted {
		return `"` + raw + `"`
	}
	return raw
}

// Holds reports whether a single item is satisfied by text.
func (m Matcher) Holds(text, raw string) bool {
	item := m.Item(raw)
	if m.Kind == Exact {
		return text == item
	}
	return strings.Contains(text, item)
}

// Check returns the items text fails to satisfy, in order. An empty expected
// list always passes.
func (m Matcher) Check(text string, expected []string) []Mismatch {
	var out []Mismatch
	for _, raw := range expected {
		if m.Holds(text, raw) {
			continue
		}
		out = append(out, Mismatch{Item: m.Item(raw), Kind: m.Kind, Quoted: m.Quoted})
	}
	return out
}
