// Package parser turns the token stream of a course description into the
// prerequisite and concurrency expressions it contains.
//
// The grammar, tightest binding first:
//
//	atom      = [subjectId] callNumber ["(" ... ")"]
//	orList    = atom {"or" atom}
//	commaList = orList {"," ["or" | "and"] orList}
//	semiList  = commaList {";" ["or" | "and"] commaList}
//	clause    = semiList
//	start     = {skip} {("prereq" ["or" "concur"] | "concur") ":" clause {skip}}
//
// Parsing never fails. Fragments that do not fit the grammar become
// expr.Error nodes and the parser resynchronises on the next course
// reference, comma, period, section keyword or end of input.
package parser

import (
	"fmt"
	"strings"

	"github.com/prereqgraph/prereqgraph/pkg/expr"
	"github.com/prereqgraph/prereqgraph/pkg/lexer"
)

// syncKinds are the tokens error recovery stops in front of.
var syncKinds = []lexer.Kind{
	lexer.SubjectID,
	lexer.CallNumber,
	lexer.Comma,
	lexer.Prereq,
	lexer.Concur,
	lexer.EOF,
	lexer.Period,
}

// ParseDescription tokenizes text and parses it. subjectID is the subject of
// the course the description belongs to and becomes the subject of bare call
// numbers.
func ParseDescription(text, subjectID string, subjects lexer.Subjects) expr.Clauses {
	return Parse(lexer.Tokenize(text, subjects), subjectID)
}

// Parse scans tokens for "Prereq:" and "Concur:" sections and parses the
// expression following each. "Prereq or concur:" counts as a concurrency
// section. When a section repeats, the last one wins.
func Parse(tokens []lexer.Token, subjectID string) expr.Clauses {
	var clauses expr.Clauses

	c := cursor{tokens: tokens}.skipToSection()
	for c.allow(lexer.Prereq, lexer.Concur) {
		concurrent := true
		if next, ok := c.accept(lexer.Prereq); ok {
			c = next
			concurrent = false
			if next, ok := c.accept(lexer.Or); ok {
				_, c = next.expect(lexer.Concur)
				concurrent = true
			}
		} else {
			c = c.advance()
		}

		_, c = c.expect(lexer.Colon)

		var e expr.Expression
		e, c = c.clause(subjectID)
		if concurrent {
			clauses.Concur = e
		} else {
			clauses.Prereq = e
		}

		c = c.skipToSection()
	}

	return clauses
}

// cursor is the parser state: the token sequence and the index of the next
// token. Methods take and return cursors by value, so a rule can only move
// the position forward by returning a new cursor.
type cursor struct {
	tokens []lexer.Token
	pos    int
}

func (c cursor) next() lexer.Token {
	if c.pos >= len(c.tokens) {
		return lexer.Token{Kind: lexer.EOF}
	}
	return c.tokens[c.pos]
}

func (c cursor) advance() cursor {
	if c.pos < len(c.tokens) {
		c.pos++
	}
	return c
}

func (c cursor) atEOF() bool {
	return c.pos >= len(c.tokens)
}

func (c cursor) allow(kinds ...lexer.Kind) bool {
	k := c.next().Kind
	for _, kind := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// accept consumes the next token if it has the given kind.
func (c cursor) accept(kind lexer.Kind) (cursor, bool) {
	if c.next().Kind != kind {
		return c, false
	}
	return c.advance(), true
}

// expect consumes a token of the given kind or recovers, returning the
// resulting error node.
func (c cursor) expect(kind lexer.Kind) (*expr.Error, cursor) {
	if next, ok := c.accept(kind); ok {
		return nil, next
	}
	return c.skipErrors(kind.String())
}

func (c cursor) skipToSection() cursor {
	for !c.allow(lexer.Prereq, lexer.Concur, lexer.EOF) {
		c = c.advance()
	}
	return c
}

// skipErrors consumes tokens up to the next synchronising token and reports
// what it skipped. It may consume nothing.
func (c cursor) skipErrors(expected string) (*expr.Error, cursor) {
	var skipped strings.Builder
	for !c.allow(syncKinds...) {
		skipped.WriteString(c.next().String())
		c = c.advance()
	}
	return expr.NewError(fmt.Sprintf("Expected %s, got %q", expected, skipped.String())), c
}

// skipParens drops a parenthesised group following a course reference. The
// catalog uses these for old call numbers, not for nesting.
func (c cursor) skipParens() cursor {
	next, ok := c.accept(lexer.LParen)
	if !ok {
		return c
	}
	c = next
	for {
		if next, ok := c.accept(lexer.RParen); ok {
			return next
		}
		if c.atEOF() {
			return c
		}
		c = c.advance()
	}
}

func (c cursor) clause(subjectID string) (expr.Expression, cursor) {
	return c.semicolonList(subjectID)
}

func (c cursor) atom(subjectID string) (expr.Expression, cursor) {
	_, c = c.skipErrors("expression")

	if next, ok := c.accept(lexer.SubjectID); ok {
		subject := strings.ToUpper(c.next().Text)
		number := next.next()
		err, after := next.expect(lexer.CallNumber)
		if err != nil {
			return err, after
		}
		return expr.NewLiteral(subject, number.Text), after.skipParens()
	}

	number := c.next()
	if next, ok := c.accept(lexer.CallNumber); ok {
		return expr.NewLiteral(subjectID, number.Text), next.skipParens()
	}

	return c.skipErrors("expression")
}

func (c cursor) orList(subjectID string) (expr.Expression, cursor) {
	d := defaultSubject{id: subjectID}

	var e expr.Expression
	e, c = c.atom(d.id)
	values := []expr.Expression{e}
	d = d.observe(e)

	for {
		next, ok := c.accept(lexer.Or)
		if !ok {
			break
		}
		e, c = next.atom(d.id)
		values = append(values, e)
		d = d.observe(e)
	}

	if len(values) == 1 {
		return values[0], c
	}
	return expr.NewOperator(expr.Or, values...), c
}

func (c cursor) commaList(subjectID string) (expr.Expression, cursor) {
	return c.separatedList(lexer.Comma, "comma", cursor.orList, subjectID)
}

func (c cursor) semicolonList(subjectID string) (expr.Expression, cursor) {
	return c.separatedList(lexer.Semicolon, "semicolon", cursor.commaList, subjectID)
}

// separatedList parses element {sep ["or"|"and"] element}. The last
// connective seen labels the whole list; a list of several elements with no
// connective is ambiguous and becomes an error node.
func (c cursor) separatedList(sep lexer.Kind, name string, element func(cursor, string) (expr.Expression, cursor), subjectID string) (expr.Expression, cursor) {
	d := defaultSubject{id: subjectID}

	var e expr.Expression
	e, c = element(c, d.id)
	values := []expr.Expression{e}
	d = d.observe(e)

	var op expr.Op
	hasOp := false
	for {
		next, ok := c.accept(sep)
		if !ok {
			break
		}
		c = next
		if next, ok := c.accept(lexer.Or); ok {
			c, op, hasOp = next, expr.Or, true
		} else if next, ok := c.accept(lexer.And); ok {
			c, op, hasOp = next, expr.And, true
		}

		e, c = element(c, d.id)
		values = append(values, e)
		d = d.observe(e)
	}

	if len(values) == 1 {
		return values[0], c
	}

	if !hasOp {
		printed := make([]string, len(values))
		for i, v := range values {
			printed[i] = expr.String(v)
		}
		return expr.NewError(fmt.Sprintf("Expected operator in %s separated list %s", name, strings.Join(printed, ", "))), c
	}

	return expr.NewOperator(op, values...), c
}

// defaultSubject carries the subject given to bare call numbers through a
// list. The first literal in the list fixes it for the rest of the list.
type defaultSubject struct {
	id    string
	fixed bool
}

func (d defaultSubject) observe(e expr.Expression) defaultSubject {
	if d.fixed {
		return d
	}
	if lit, ok := e.(*expr.Literal); ok {
		return defaultSubject{id: lit.SubjectID, fixed: true}
	}
	return d
}
