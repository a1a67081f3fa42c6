// Package expr defines the boolean expression tree produced by the requisite
// parser.
//
// Expression is a closed union: only the four variants declared here
// implement it, and every Visitor must handle all of them, so adding a
// variant breaks the build of every consumer until it is handled.
package expr

import (
	"encoding/json"
	"strings"
)

// Op is the connective of an Operator node.
type Op int

const (
	And Op = iota
	Or
)

func (o Op) String() string {
	if o == Or {
		return "or"
	}
	return "and"
}

// Expression is one node of a requisite expression tree.
type Expression interface {
	Accept(v Visitor)
	isExpression()
}

// Visitor receives the concrete variant of an Expression.
type Visitor interface {
	VisitLiteral(e *Literal)
	VisitOperator(e *Operator)
	VisitNot(e *Not)
	VisitError(e *Error)
}

// Literal is a single course reference. SubjectID is an upper-case subject
// code; CallNumber is the raw call-number text as scanned.
type Literal struct {
	SubjectID  string
	CallNumber string
}

// Operator joins two or more operands. Lists of one element are never
// wrapped in an Operator.
type Operator struct {
	Op       Op
	Operands []Expression
}

// Not negates its operand. The current grammar never produces it.
type Not struct {
	Operand Expression
}

// Error marks a fragment the parser could not make sense of.
type Error struct {
	Message string
}

func (e *Literal) Accept(v Visitor)  { v.VisitLiteral(e) }
func (e *Operator) Accept(v Visitor) { v.VisitOperator(e) }
func (e *Not) Accept(v Visitor)      { v.VisitNot(e) }
func (e *Error) Accept(v Visitor)    { v.VisitError(e) }

func (*Literal) isExpression()  {}
func (*Operator) isExpression() {}
func (*Not) isExpression()      {}
func (*Error) isExpression()    {}

// NewLiteral, NewOperator and NewError are shorthands used by the parser and tests.
func NewLiteral(subjectID, callNumber string) *Literal {
	return &Literal{SubjectID: subjectID, CallNumber: callNumber}
}

func NewOperator(op Op, operands ...Expression) *Operator {
	return &Operator{Op: op, Operands: operands}
}

func NewError(message string) *Error {
	return &Error{Message: message}
}

// Clauses holds the two independent expressions found in one description.
// A nil field means the clause was absent.
type Clauses struct {
	Prereq Expression `json:"prereq"`
	Concur Expression `json:"concur"`
}

// String pretty-prints an expression for display. A nil expression prints as
// "none" and error nodes print as "unknown".
func String(e Expression) string {
	if e == nil {
		return "none"
	}
	p := &printer{}
	e.Accept(p)
	return p.b.String()
}

func (e *Literal) String() string  { return String(e) }
func (e *Operator) String() string { return String(e) }
func (e *Not) String() string      { return String(e) }
func (e *Error) String() string    { return String(e) }

type printer struct {
	b strings.Builder
}

func (p *printer) VisitLiteral(e *Literal) {
	p.b.WriteString(strings.ToUpper(e.SubjectID))
	p.b.WriteByte(' ')
	p.b.WriteString(strings.ToUpper(e.CallNumber))
}

func (p *printer) VisitOperator(e *Operator) {
	p.b.WriteByte('(')
	for i, operand := range e.Operands {
		if i > 0 {
			p.b.WriteString(" " + e.Op.String() + " ")
		}
		operand.Accept(p)
	}
	p.b.WriteByte(')')
}

func (p *printer) VisitNot(e *Not) {
	p.b.WriteString("not ")
	e.Operand.Accept(p)
}

func (p *printer) VisitError(*Error) {
	p.b.WriteString("unknown")
}

// Errors returns the messages of every Error node in e, depth first.
func Errors(e Expression) []string {
	if e == nil {
		return nil
	}
	c := &errorCollector{}
	e.Accept(c)
	return c.messages
}

type errorCollector struct {
	messages []string
}

func (c *errorCollector) VisitLiteral(*Literal) {}

func (c *errorCollector) VisitOperator(e *Operator) {
	for _, operand := range e.Operands {
		operand.Accept(c)
	}
}

func (c *errorCollector) VisitNot(e *Not) { e.Operand.Accept(c) }

func (c *errorCollector) VisitError(e *Error) {
	c.messages = append(c.messages, e.Message)
}

// JSON encoding uses a "type" discriminator so consumers can rebuild the tree.

func (e *Literal) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type       string `json:"type"`
		SubjectID  string `json:"subjectId"`
		CallNumber string `json:"callNumber"`
	}{"literal", e.SubjectID, e.CallNumber})
}

func (e *Operator) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     string       `json:"type"`
		Operator string       `json:"operator"`
		Values   []Expression `json:"values"`
	}{"operator", e.Op.String(), e.Operands})
}

func (e *Not) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  string     `json:"type"`
		Value Expression `json:"value"`
	}{"not", e.Operand})
}

func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}{"error", e.Message})
}
