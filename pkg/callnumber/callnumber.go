// Package callnumber normalizes course call numbers such as "2415H" or
// "161.02" and decides when two of them name the same catalog course.
package callnumber

import (
	"regexp"
	"strings"
)

// Wildcard is the section that matches any other section.
const Wildcard = "XX"

var (
	baseRe    = regexp.MustCompile(`^\d{3,4}`)
	sectionRe = regexp.MustCompile(`\.(\d+|[xX]+)`)
)

// Key is the structured form of a call number. An empty Section means the
// call number had none.
type Key struct {
	Base    string
	Honors  bool
	Section string
}

// Parse extracts the key of raw. It returns false when raw does not start
// with a 3-4 digit base.
func Parse(raw string) (Key, bool) {
	base := baseRe.FindString(raw)
	if base == "" {
		return Key{}, false
	}

	lower := strings.ToLower(raw)
	k := Key{
		Base:   base,
		Honors: strings.ContainsAny(lower, "he"),
	}
	if m := sectionRe.FindStringSubmatch(raw); m != nil {
		k.Section = strings.ToUpper(m[1])
	}
	return k, true
}

func (k Key) wildcard() bool {
	return k.Section == "" || k.Section == Wildcard
}

// Matches reports whether k and other denote the same catalog slot: same
// base and honors flag, and sections that are equal or where either side is
// missing or the wildcard.
func (k Key) Matches(other Key) bool {
	if k.Base != other.Base || k.Honors != other.Honors {
		return false
	}
	if k.wildcard() || other.wildcard() {
		return true
	}
	return k.Section == other.Section
}

// Equivalent parses both call numbers and matches them. Unparseable input
// never matches.
func Equivalent(a, b string) bool {
	ka, ok := Parse(a)
	if !ok {
		return false
	}
	kb, ok := Parse(b)
	if !ok {
		return false
	}
	return ka.Matches(kb)
}
