// Package catalog holds course records and the ways they are obtained: JSON
// catalog files and the collegescheduler course API.
package catalog

import (
	"fmt"
	"strings"
)

// Course is one catalog entry as consumed by the graph builder.
type Course struct {
	SubjectID   string `json:"subjectId"`
	SubjectLong string `json:"subjectLong"`
	CallNumber  string `json:"callNumber"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ID is the identifier used for graph nodes, e.g. "CSE 2231".
func (c Course) ID() string {
	return fmt.Sprintf("%s %s", c.SubjectID, c.CallNumber)
}

// RawCourse is a course listing without a description, as returned by the
// subject listing endpoint.
type RawCourse struct {
	SubjectID   string `json:"subjectId"`
	SubjectLong string `json:"subjectLong"`
	Number      string `json:"number"`
	Title       string `json:"title"`
}

// SubjectIDs returns the distinct subjects of courses in first-seen order.
func SubjectIDs(courses []Course) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, c := range courses {
		if _, ok := seen[c.SubjectID]; ok {
			continue
		}
		seen[c.SubjectID] = struct{}{}
		out = append(out, c.SubjectID)
	}
	return out
}

// ParseSubjectList splits a comma separated list of subject codes,
// upper-casing and trimming each one. Empty input yields nil.
func ParseSubjectList(list string) []string {
	var out []string
	for _, s := range strings.Split(list, ",") {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
