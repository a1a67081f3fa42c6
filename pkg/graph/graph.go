// Package graph builds the course dependency graph: one node per included
// course and one link per resolved course reference in its prerequisite or
// concurrency clause.
package graph

import (
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/prereqgraph/prereqgraph/pkg/callnumber"
	"github.com/prereqgraph/prereqgraph/pkg/catalog"
	"github.com/prereqgraph/prereqgraph/pkg/expr"
	"github.com/prereqgraph/prereqgraph/pkg/lexer"
	"github.com/prereqgraph/prereqgraph/pkg/parser"
)

// Logger abstracts logging so callers can use logrus, stdlib log, or any
// other logger that satisfies this interface.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

// Node is a course in the graph. Links holds every link the course takes
// part in, as source or target.
type Node struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Group     string `json:"group"`
	Color     string `json:"color"`
	HoverText string `json:"hoverText"`
	Links     []Link `json:"links"`
}

// Link points from a required course (Source) to the course requiring it
// (Target). Group is the printed form of the innermost operator enclosing
// the reference and is only used to group links for display.
type Link struct {
	Source     string `json:"source"`
	Target     string `json:"target"`
	Concurrent bool   `json:"concurrent"`
	Group      string `json:"group"`
}

// Graph is the output handed to renderers and exporters.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

// Builder holds the knobs of graph construction. The zero value is usable.
type Builder struct {
	// Concurrency bounds the number of descriptions parsed in parallel;
	// defaults to 8 if <= 0.
	Concurrency int
	// Log receives parse diagnostics at debug level; nil = no logging.
	Log Logger
}

// Construct builds the graph with a default Builder.
func Construct(courses []catalog.Course, includedSubjectIDs []string) *Graph {
	return (&Builder{}).Construct(courses, includedSubjectIDs)
}

type parsedCourse struct {
	course  catalog.Course
	clauses expr.Clauses
}

// Construct keeps the courses whose subject is in includedSubjectIDs, parses
// their descriptions and resolves every literal against the kept courses.
// Subject codes of all courses, included or not, are known to the tokenizer.
func (b *Builder) Construct(courses []catalog.Course, includedSubjectIDs []string) *Graph {
	log := b.Log
	if log == nil {
		log = nopLogger{}
	}

	included := make(map[string]bool, len(includedSubjectIDs))
	for _, s := range includedSubjectIDs {
		included[strings.ToUpper(s)] = true
	}

	var filtered []catalog.Course
	for _, c := range courses {
		if included[strings.ToUpper(c.SubjectID)] {
			filtered = append(filtered, c)
		}
	}

	subjects := lexer.NewSubjects(catalog.SubjectIDs(courses)...)
	parsed := b.parseAll(filtered, subjects)

	errCount := 0
	for _, p := range parsed {
		for _, msg := range append(expr.Errors(p.clauses.Prereq), expr.Errors(p.clauses.Concur)...) {
			errCount++
			log.Debugf("%s: %s", p.course.ID(), msg)
		}
	}

	g := &Graph{
		Nodes: make([]Node, 0, len(parsed)),
		Links: []Link{},
	}
	for _, p := range parsed {
		g.Nodes = append(g.Nodes, newNode(p))
	}

	idx := newIndex(filtered)
	for _, p := range parsed {
		g.Links = append(g.Links, idx.links(p.course.ID(), p.clauses.Prereq, false)...)
		g.Links = append(g.Links, idx.links(p.course.ID(), p.clauses.Concur, true)...)
	}

	backfill(g)

	log.Infof("Built graph: %d courses, %d links, %d unparsed fragments", len(g.Nodes), len(g.Links), errCount)
	return g
}

// parseAll parses every description, fanning out over a bounded group of
// goroutines. Results keep the order of courses.
func (b *Builder) parseAll(courses []catalog.Course, subjects lexer.Subjects) []parsedCourse {
	concurrency := b.Concurrency
	if concurrency <= 0 {
		concurrency = 8
	}

	out := make([]parsedCourse, len(courses))
	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, c := range courses {
		i, c := i, c
		g.Go(func() error {
			out[i] = parsedCourse{
				course:  c,
				clauses: parser.ParseDescription(c.Description, c.SubjectID, subjects),
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func newNode(p parsedCourse) Node {
	id := p.course.ID()
	return Node{
		ID:    id,
		Label: id,
		Group: p.course.SubjectID,
		Color: SubjectColor(p.course.SubjectID),
		HoverText: fmt.Sprintf("%s<br>%s<br><br>%s<br><br>Prereqs: %s<br>Concur: %s",
			id, p.course.Title, p.course.Description,
			expr.String(p.clauses.Prereq), expr.String(p.clauses.Concur)),
		Links: []Link{},
	}
}

// backfill copies each link onto the nodes it touches, preserving link order.
func backfill(g *Graph) {
	byID := make(map[string][]int, len(g.Nodes))
	for i, n := range g.Nodes {
		byID[n.ID] = append(byID[n.ID], i)
	}
	for _, l := range g.Links {
		for _, i := range byID[l.Source] {
			g.Nodes[i].Links = append(g.Nodes[i].Links, l)
		}
		if l.Target == l.Source {
			continue
		}
		for _, i := range byID[l.Target] {
			g.Nodes[i].Links = append(g.Nodes[i].Links, l)
		}
	}
}

type indexedCourse struct {
	id  string
	key callnumber.Key
}

// index resolves literals to courses by subject and call-number key.
type index struct {
	bySubject map[string][]indexedCourse
}

func newIndex(courses []catalog.Course) *index {
	idx := &index{bySubject: make(map[string][]indexedCourse)}
	for _, c := range courses {
		key, ok := callnumber.Parse(c.CallNumber)
		if !ok {
			continue
		}
		subject := strings.ToUpper(c.SubjectID)
		idx.bySubject[subject] = append(idx.bySubject[subject], indexedCourse{id: c.ID(), key: key})
	}
	return idx
}

func (idx *index) resolve(lit *expr.Literal) []string {
	key, ok := callnumber.Parse(lit.CallNumber)
	if !ok {
		return nil
	}
	var ids []string
	for _, c := range idx.bySubject[strings.ToUpper(lit.SubjectID)] {
		if key.Matches(c.key) {
			ids = append(ids, c.id)
		}
	}
	return ids
}

func (idx *index) links(target string, e expr.Expression, concurrent bool) []Link {
	if e == nil {
		return nil
	}
	x := &extractor{idx: idx, target: target, concurrent: concurrent}
	e.Accept(x)
	return x.links
}

// extractor walks an expression emitting one link per resolved course.
type extractor struct {
	idx        *index
	target     string
	concurrent bool
	group      string
	links      []Link
}

func (x *extractor) VisitLiteral(e *expr.Literal) {
	for _, source := range x.idx.resolve(e) {
		x.links = append(x.links, Link{
			Source:     source,
			Target:     x.target,
			Concurrent: x.concurrent,
			Group:      x.group,
		})
	}
}

func (x *extractor) VisitOperator(e *expr.Operator) {
	outer := x.group
	x.group = expr.String(e)
	for _, operand := range e.Operands {
		operand.Accept(x)
	}
	x.group = outer
}

// Negations are not part of the current grammar and contribute no links.
func (x *extractor) VisitNot(*expr.Not) {}

func (x *extractor) VisitError(*expr.Error) {}
