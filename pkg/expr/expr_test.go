package expr

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	tests := []struct {
		name string
		in   Expression
		want string
	}{
		{"nil", nil, "none"},
		{"literal", NewLiteral("stat", "3460h"), "STAT 3460H"},
		{"error", NewError("Expected expression"), "unknown"},
		{
			"nested",
			NewOperator(And,
				NewLiteral("CSE", "2231"),
				NewOperator(Or, NewLiteral("STAT", "3460"), NewLiteral("STAT", "3470")),
			),
			"(CSE 2231 and (STAT 3460 or STAT 3470))",
		},
		{"not", &Not{Operand: NewLiteral("CSE", "1110")}, "not CSE 1110"},
	}

	for _, tc := range tests {
		require.Equal(t, tc.want, String(tc.in), tc.name)
	}
}

func TestErrors(t *testing.T) {
	e := NewOperator(Or,
		NewError("first"),
		NewOperator(And, NewLiteral("CSE", "2231"), NewError("second")),
		&Not{Operand: NewError("third")},
	)
	require.Equal(t, []string{"first", "second", "third"}, Errors(e))
	require.Nil(t, Errors(nil))
	require.Empty(t, Errors(NewLiteral("CSE", "2231")))
}

func TestClausesJSON(t *testing.T) {
	c := Clauses{
		Prereq: NewOperator(Or, NewLiteral("CSE", "2231"), NewError("bad")),
	}
	data, err := json.Marshal(c)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"prereq": {
			"type": "operator",
			"operator": "or",
			"values": [
				{"type": "literal", "subjectId": "CSE", "callNumber": "2231"},
				{"type": "error", "message": "bad"}
			]
		},
		"concur": null
	}`, string(data))
}
