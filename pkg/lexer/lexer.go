// Package lexer splits free-text course descriptions into the tokens the
// requisite parser understands. Anything it does not recognise becomes a
// one-character Error token, so every input is consumed in a single pass.
package lexer

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind identifies the type of a token.
type Kind int

const (
	EOF Kind = iota
	Error

	// Keywords
	And
	Or
	Not
	Prereq
	Concur
	Enrollment

	// Symbols
	Comma
	Period
	Colon
	Semicolon
	LParen
	RParen

	// Values
	SubjectID
	CallNumber
)

var kindNames = [...]string{
	EOF:        "eof",
	Error:      "error",
	And:        "and",
	Or:         "or",
	Not:        "not",
	Prereq:     "prereq",
	Concur:     "concur",
	Enrollment: "enrollment",
	Comma:      ",",
	Period:     ".",
	Colon:      ":",
	Semicolon:  ";",
	LParen:     "(",
	RParen:     ")",
	SubjectID:  "subjectId",
	CallNumber: "callNumber",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Token is a single lexeme. Text holds the exact (lower-cased) substring the
// token was scanned from and Pos its byte offset in the lower-cased input.
type Token struct {
	Kind Kind
	Text string
	Pos  int
}

// String returns the textual form used in parser diagnostics.
func (t Token) String() string {
	if t.Kind == EOF {
		return EOF.String()
	}
	return t.Text
}

// keywords are tested before subject codes, so a subject can never shadow one.
var keywords = map[string]Kind{
	"and":        And,
	"or":         Or,
	"not":        Not,
	"prereq":     Prereq,
	"concur":     Concur,
	"enrollment": Enrollment,
}

var symbols = map[byte]Kind{
	',': Comma,
	'.': Period,
	':': Colon,
	';': Semicolon,
	'(': LParen,
	')': RParen,
}

var (
	wordRe       = regexp.MustCompile(`^[a-z]+`)
	callNumberRe = regexp.MustCompile(`(?i)^\d{3,4}(\.(\d+|xx))?h?`)
)

// Subjects is the set of lower-cased subject codes known to the catalog.
type Subjects map[string]struct{}

// NewSubjects builds a Subjects set, lower-casing every code.
func NewSubjects(ids ...string) Subjects {
	s := make(Subjects, len(ids))
	for _, id := range ids {
		s[strings.ToLower(id)] = struct{}{}
	}
	return s
}

// Has reports whether word is a known subject code.
func (s Subjects) Has(word string) bool {
	_, ok := s[word]
	return ok
}

// Tokenize lower-cases text and scans it left to right. The returned slice
// never contains an EOF token; consumers synthesize one past the end.
func Tokenize(text string, subjects Subjects) []Token {
	text = strings.ToLower(text)

	var tokens []Token
	pos := 0
	for {
		rest := strings.TrimLeftFunc(text[pos:], unicode.IsSpace)
		pos = len(text) - len(rest)
		if rest == "" {
			return tokens
		}

		tok := scan(rest, subjects)
		tok.Pos = pos
		tokens = append(tokens, tok)
		pos += len(tok.Text)
	}
}

// scan reads one token from the start of a non-empty, whitespace-trimmed string.
func scan(text string, subjects Subjects) Token {
	if word := wordRe.FindString(text); word != "" {
		if kind, ok := keywords[word]; ok {
			return Token{Kind: kind, Text: word}
		}
		if subjects.Has(word) {
			return Token{Kind: SubjectID, Text: word}
		}
	}

	if kind, ok := symbols[text[0]]; ok {
		return Token{Kind: kind, Text: text[:1]}
	}

	if num := callNumberRe.FindString(text); num != "" {
		return Token{Kind: CallNumber, Text: num}
	}

	_, size := utf8.DecodeRuneInString(text)
	return Token{Kind: Error, Text: text[:size]}
}
