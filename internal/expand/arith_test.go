package expand

import "testing"

func TestEvalArith(t *testing.T) {
	get := func(name string) (string, bool) {
		vals := map[string]string{"N": "4", "EMPTY": ""}
		v, ok := vals[name]
		return v, ok
	}
	cases := []struct {
		expr string
		want int64
	}{
		{"1 + 2 * 3", 7},
		{"(1 + 2) * 3", 9},
		{"10 / 3", 3},
		{"10 % 3", 1},
		{"-5 + 2", -3},
		{"!0", 1},
		{"!1", 0},
		{"1 == 1 && 2 == 2", 1},
		{"1 == 1 && 2 == 3", 0},
		{"1 < 2 || 0", 1},
		{"N * 2", 8},
		{"EMPTY + 1", 1},
		{"UNSET_VAR + 5", 5},
		{"~0", -1},
	}
	for _, c := range cases {
		got, err := evalArith(c.expr, get)
		if err != nil {
			t.Errorf("evalArith(%q): %v", c.expr, err)
			continue
		}
		if got != c.want {
			t.Errorf("evalArith(%q) = %d, want %d", c.expr, got, c.want)
		}
	}
}

func TestEvalArithErrors(t *testing.T) {
	get := func(string) (string, bool) { return "", false }
	cases := []string{"1 / 0", "1 % 0", "(1 + 2", "1 +"}
	for _, expr := range cases {
		if _, err := evalArith(expr, get); err == nil {
			t.Errorf("evalArith(%q): expected error", expr)
		}
	}
}
