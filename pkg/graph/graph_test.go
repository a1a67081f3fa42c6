package graph

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/prereqgraph/prereqgraph/pkg/catalog"
)

var courses = []catalog.Course{
	{SubjectID: "CSE", CallNumber: "2221", Title: "Software I", Description: "Prereq: 1223."},
	{SubjectID: "CSE", CallNumber: "2231", Title: "Software II", Description: "Prereq: 2221. Concur: Stat 3460."},
	{SubjectID: "CSE", CallNumber: "2321", Title: "Foundations I", Description: "Prereq: 2231, and Math 1151 or 1161.xx."},
	{SubjectID: "CSE", CallNumber: "2421", Title: "Systems I", Description: "Prereq: 2231; or permission of instructor."},
	{SubjectID: "STAT", CallNumber: "3460", Title: "Probability", Description: "Prereq: Math 1151."},
	{SubjectID: "MATH", CallNumber: "1151", Title: "Calculus I", Description: "Not open to students with credit for 1161."},
	{SubjectID: "MATH", CallNumber: "1161.01", Title: "Accelerated Calculus I", Description: ""},
	{SubjectID: "MATH", CallNumber: "1161.02", Title: "Accelerated Calculus I", Description: ""},
}

func linkSet(links []Link) map[Link]bool {
	set := make(map[Link]bool, len(links))
	for _, l := range links {
		set[l] = true
	}
	return set
}

func TestConstructAllSubjects(t *testing.T) {
	g := Construct(courses, []string{"CSE", "STAT", "MATH"})

	require.Len(t, g.Nodes, len(courses))
	require.Equal(t, "CSE 2221", g.Nodes[0].ID)
	require.Equal(t, "CSE", g.Nodes[0].Group)

	want := []Link{
		{Source: "CSE 2221", Target: "CSE 2231"},
		{Source: "STAT 3460", Target: "CSE 2231", Concurrent: true},
		{Source: "CSE 2231", Target: "CSE 2321", Group: "(CSE 2231 and (MATH 1151 or MATH 1161.XX))"},
		{Source: "MATH 1151", Target: "CSE 2321", Group: "(MATH 1151 or MATH 1161.XX)"},
		{Source: "MATH 1161.01", Target: "CSE 2321", Group: "(MATH 1151 or MATH 1161.XX)"},
		{Source: "MATH 1161.02", Target: "CSE 2321", Group: "(MATH 1151 or MATH 1161.XX)"},
		{Source: "CSE 2231", Target: "CSE 2421", Group: "(CSE 2231 or unknown)"},
		{Source: "MATH 1151", Target: "STAT 3460"},
	}
	require.Equal(t, want, g.Links)
}

func TestConstructFiltersSubjects(t *testing.T) {
	g := Construct(courses, []string{"cse"})

	require.Len(t, g.Nodes, 4)
	for _, n := range g.Nodes {
		require.Equal(t, "CSE", n.Group)
	}
	// References to excluded subjects resolve to nothing.
	require.Equal(t, []Link{
		{Source: "CSE 2221", Target: "CSE 2231"},
		{Source: "CSE 2231", Target: "CSE 2321", Group: "(CSE 2231 and (MATH 1151 or MATH 1161.XX))"},
		{Source: "CSE 2231", Target: "CSE 2421", Group: "(CSE 2231 or unknown)"},
	}, g.Links)
}

func TestConstructLinksStayInsideGraph(t *testing.T) {
	for _, included := range [][]string{nil, {"CSE"}, {"MATH"}, {"STAT", "MATH"}, {"CSE", "STAT", "MATH"}} {
		g := (&Builder{Concurrency: 2}).Construct(courses, included)

		ids := make(map[string]bool, len(g.Nodes))
		for _, n := range g.Nodes {
			ids[n.ID] = true
		}
		for _, l := range g.Links {
			require.True(t, ids[l.Source], "source %s missing for %v", l.Source, included)
			require.True(t, ids[l.Target], "target %s missing for %v", l.Target, included)
		}
	}
}

func TestConstructBackfillsNodeLinks(t *testing.T) {
	g := Construct(courses, []string{"CSE", "STAT", "MATH"})

	for _, n := range g.Nodes {
		var want []Link
		for _, l := range g.Links {
			if l.Source == n.ID || l.Target == n.ID {
				want = append(want, l)
			}
		}
		if want == nil {
			require.Empty(t, n.Links, n.ID)
			continue
		}
		require.Equal(t, want, n.Links, n.ID)
	}

	byID := map[string]Node{}
	for _, n := range g.Nodes {
		byID[n.ID] = n
	}
	require.Len(t, byID["CSE 2231"].Links, 4)
	require.Equal(t, linkSet(byID["CSE 2231"].Links), linkSet([]Link{
		{Source: "CSE 2221", Target: "CSE 2231"},
		{Source: "STAT 3460", Target: "CSE 2231", Concurrent: true},
		{Source: "CSE 2231", Target: "CSE 2321", Group: "(CSE 2231 and (MATH 1151 or MATH 1161.XX))"},
		{Source: "CSE 2231", Target: "CSE 2421", Group: "(CSE 2231 or unknown)"},
	}))
}

func TestConstructSelfReferenceListedOnce(t *testing.T) {
	g := Construct([]catalog.Course{
		{SubjectID: "CSE", CallNumber: "4999", Description: "Prereq: 4999."},
	}, []string{"CSE"})

	require.Len(t, g.Links, 1)
	require.Len(t, g.Nodes[0].Links, 1)
}

func TestConstructHoverText(t *testing.T) {
	g := Construct(courses, []string{"CSE"})

	byID := map[string]Node{}
	for _, n := range g.Nodes {
		byID[n.ID] = n
	}
	require.Equal(t,
		"CSE 2231<br>Software II<br><br>Prereq: 2221. Concur: Stat 3460.<br><br>Prereqs: CSE 2221<br>Concur: STAT 3460",
		byID["CSE 2231"].HoverText)
	require.Contains(t, byID["CSE 2221"].HoverText, "Concur: none")
}

func TestConstructEmpty(t *testing.T) {
	g := Construct(nil, nil)
	require.Empty(t, g.Nodes)
	require.NotNil(t, g.Links)
}

type recordingLogger struct {
	nopLogger
	debug []string
}

func (r *recordingLogger) Debugf(format string, args ...interface{}) {
	r.debug = append(r.debug, format)
}

func TestConstructLogsParseErrors(t *testing.T) {
	log := &recordingLogger{}
	(&Builder{Log: log}).Construct(courses, []string{"CSE"})
	require.Len(t, log.debug, 1)
}

func TestSubjectColor(t *testing.T) {
	hex := regexp.MustCompile(`^#[0-9a-f]{6}$`)

	require.Regexp(t, hex, SubjectColor("CSE"))
	require.Equal(t, SubjectColor("CSE"), SubjectColor("cse"))
	require.NotEqual(t, SubjectColor("CSE"), SubjectColor("MATH"))
}
