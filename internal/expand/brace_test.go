package expand

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestBraceExpandText(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"a{b,c}d", []string{"abd", "acd"}},
		{"{1..3}", []string{"1", "2", "3"}},
		{"{3..1}", []string{"3", "2", "1"}},
		{"{a..c}", []string{"a", "b", "c"}},
		{"{1..5..2}", []string{"1", "3", "5"}},
		{"{a,b}{1,2}", []string{"a1", "a2", "b1", "b2"}},
		{"no braces here", []string{"no braces here"}},
		{"{single}", []string{"{single}"}}, // no comma, no range: literal
	}
	for _, c := range cases {
		got := braceExpandText(c.in)
		if diff := cmp.Diff(c.want, got, cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("braceExpandText(%q) mismatch (-want +got):\n%s", c.in, diff)
		}
	}
}
