package callnumber

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		raw  string
		want Key
		ok   bool
	}{
		{"161.02", Key{Base: "161", Section: "02"}, true},
		{"5520H", Key{Base: "5520", Honors: true}, true},
		{"2415h", Key{Base: "2415", Honors: true}, true},
		{"1181E", Key{Base: "1181", Honors: true}, true},
		{"161.xx", Key{Base: "161", Section: "XX"}, true},
		{"3901.01h", Key{Base: "3901", Honors: true, Section: "01"}, true},
		{"12345", Key{Base: "1234"}, true},
		{"abc", Key{}, false},
		{"42", Key{}, false},
		{"", Key{}, false},
	}

	for _, tc := range tests {
		got, ok := Parse(tc.raw)
		require.Equal(t, tc.ok, ok, "raw %q", tc.raw)
		require.Equal(t, tc.want, got, "raw %q", tc.raw)
	}
}

func TestMatches(t *testing.T) {
	k := func(base string, honors bool, section string) Key {
		return Key{Base: base, Honors: honors, Section: section}
	}

	tests := []struct {
		name string
		a, b Key
		want bool
	}{
		{"identical", k("161", false, ""), k("161", false, ""), true},
		{"wildcard section", k("161", false, "XX"), k("161", false, "02"), true},
		{"missing section", k("161", false, ""), k("161", false, "02"), true},
		{"same section", k("161", false, "02"), k("161", false, "02"), true},
		{"different section", k("161", false, "01"), k("161", false, "02"), false},
		{"honors differs", k("5520", true, ""), k("5520", false, ""), false},
		{"base differs", k("2231", false, ""), k("2321", false, ""), false},
	}

	for _, tc := range tests {
		require.Equal(t, tc.want, tc.a.Matches(tc.b), tc.name)
		require.Equal(t, tc.want, tc.b.Matches(tc.a), "%s (symmetric)", tc.name)
		require.True(t, tc.a.Matches(tc.a), "%s (reflexive)", tc.name)
	}
}

func TestEquivalent(t *testing.T) {
	require.True(t, Equivalent("161.xx", "161.02"))
	require.True(t, Equivalent("2231", "2231"))
	require.False(t, Equivalent("2231h", "2231"))
	require.False(t, Equivalent("abc", "abc"))
	require.False(t, Equivalent("2231", ""))
}
