package builtin

import "testing"

func TestEvalTestUnary(t *testing.T) {
	cases := []struct {
		args []string
		want bool
	}{
		{[]string{"nonempty"}, true},
		{[]string{""}, false},
		{[]string{"-z", ""}, true},
		{[]string{"-z", "x"}, false},
		{[]string{"-n", "x"}, true},
		{[]string{"!", "x"}, false},
	}
	for _, c := range cases {
		got, err := evalTest(c.args)
		if err != nil {
			t.Errorf("evalTest(%v): %v", c.args, err)
			continue
		}
		if got != c.want {
			t.Errorf("evalTest(%v) = %v, want %v", c.args, got, c.want)
		}
	}
}

func TestEvalTestBinary(t *testing.T) {
	cases := []struct {
		args []string
		want bool
	}{
		{[]string{"a", "=", "a"}, true},
		{[]string{"a", "=", "b"}, false},
		{[]string{"a", "!=", "b"}, true},
		{[]string{"3", "-eq", "3"}, true},
		{[]string{"3", "-lt", "4"}, true},
		{[]string{"3", "-gt", "4"}, false},
		{[]string{"3", "-ge", "3"}, true},
	}
	for _, c := range cases {
		got, err := evalTest(c.args)
		if err != nil {
			t.Errorf("evalTest(%v): %v", c.args, err)
			continue
		}
		if got != c.want {
			t.Errorf("evalTest(%v) = %v, want %v", c.args, got, c.want)
		}
	}
}

func TestEvalTestCombinators(t *testing.T) {
	got, err := evalTest([]string{"a", "-a", "b"})
	if err != nil || !got {
		t.Fatalf("evalTest(a -a b) = %v, %v, want true, nil", got, err)
	}
	got, err = evalTest([]string{"", "-o", "b"})
	if err != nil || !got {
		t.Fatalf("evalTest(\"\" -o b) = %v, %v, want true, nil", got, err)
	}
}

func TestEvalTestNumericErrors(t *testing.T) {
	if _, err := evalTest([]string{"x", "-eq", "1"}); err == nil {
		t.Fatal("expected error comparing non-numeric with -eq")
	}
}

func TestBiTestBracketRequiresClosingBracket(t *testing.T) {
	c, _ := newTestContext()
	if err := biTestBracket(c, []string{"a", "=", "a"}); err == nil {
		t.Fatal("expected usage error without trailing ]")
	}
	if err := biTestBracket(c, []string{"a", "=", "a", "]"}); err != nil {
		t.Fatalf("biTestBracket: %v", err)
	}
}

func TestBiTestExitStatus(t *testing.T) {
	c, _ := newTestContext()
	if err := biTest(c, []string{"a", "=", "a"}); err != nil {
		t.Fatalf("biTest true case returned error: %v", err)
	}
	err := biTest(c, []string{"a", "=", "b"})
	if err == nil {
		t.Fatal("biTest false case should return a non-nil status error")
	}
	se, ok := err.(interface{ ExitStatus() int })
	if !ok || se.ExitStatus() != 1 {
		t.Fatalf("err = %v, want ExitStatus() == 1", err)
	}
}
