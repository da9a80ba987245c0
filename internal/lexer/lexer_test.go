package lexer

import (
	"testing"

	"rush/internal/shellerr"
)

func scanAll(t *testing.T, input string) []Token {
	t.Helper()
	lx := New(input)
	var toks []Token
	for {
		tok, err := lx.NextToken()
		if err != nil {
			t.Fatalf("NextToken(%q): %v", input, err)
		}
		toks = append(toks, tok)
		if tok.Type == EOF {
			return toks
		}
	}
}

func wordText(tok Token) string {
	var s string
	for _, seg := range tok.Segments {
		s += seg.Text
	}
	return s
}

func TestLexWords(t *testing.T) {
	toks := scanAll(t, `echo hello world`)
	if len(toks) != 4 { // 3 words + EOF
		t.Fatalf("got %d tokens, want 4", len(toks))
	}
	for i, want := range []string{"echo", "hello", "world"} {
		if toks[i].Type != Word || wordText(toks[i]) != want {
			t.Errorf("token %d = %q, want %q", i, wordText(toks[i]), want)
		}
	}
}

func TestLexOperators(t *testing.T) {
	toks := scanAll(t, `a && b || c | d ; e & f`)
	var gotTypes []Type
	for _, tok := range toks {
		if tok.Type != Word {
			gotTypes = append(gotTypes, tok.Type)
		}
	}
	want := []Type{AndIf, OrIf, Pipe, Semi, Amp, EOF}
	if len(gotTypes) != len(want) {
		t.Fatalf("got %v, want %v", gotTypes, want)
	}
	for i := range want {
		if gotTypes[i] != want[i] {
			t.Errorf("op %d = %v, want %v", i, gotTypes[i], want[i])
		}
	}
}

func TestLexRedirections(t *testing.T) {
	cases := []struct {
		in     string
		opType Type
		fd     int
	}{
		{"> out", Great, -1},
		{">> out", DGreat, -1},
		{"< in", Less, -1},
		{"2> err", TwoGreat, 2},
		{"2>> err", TwoDGreat, 2},
		{"2>&1", GreatAnd, 2},
		{"0<&3", LessAnd, 0},
	}
	for _, c := range cases {
		toks := scanAll(t, c.in)
		if toks[0].Type != c.opType {
			t.Errorf("%q: op = %v, want %v", c.in, toks[0].Type, c.opType)
		}
		if toks[0].FD != c.fd {
			t.Errorf("%q: fd = %d, want %d", c.in, toks[0].FD, c.fd)
		}
	}
}

func TestLexQuoting(t *testing.T) {
	toks := scanAll(t, `echo 'a b' "c d"`)
	if toks[1].Segments[0].Kind != Single || toks[1].Segments[0].Text != "a b" {
		t.Errorf("single quote segment = %+v", toks[1].Segments[0])
	}
	if toks[2].Segments[0].Kind != Double || toks[2].Segments[0].Text != "c d" {
		t.Errorf("double quote segment = %+v", toks[2].Segments[0])
	}
}

func TestLexUnterminatedQuote(t *testing.T) {
	lx := New(`echo 'unterminated`)
	_, err := lx.NextToken() // "echo"
	if err != nil {
		t.Fatalf("unexpected error on first word: %v", err)
	}
	_, err = lx.NextToken()
	if err == nil {
		t.Fatal("expected error for unterminated quote")
	}
	if _, ok := err.(*shellerr.LexError); !ok {
		t.Fatalf("err = %T, want *shellerr.LexError", err)
	}
}

func TestLexUnterminatedCommandSubstitution(t *testing.T) {
	lx := New(`echo $(ls -l`)
	_, err := lx.NextToken() // "echo"
	if err != nil {
		t.Fatalf("unexpected error on first word: %v", err)
	}
	_, err = lx.NextToken()
	if err == nil {
		t.Fatal("expected error for unterminated command substitution")
	}
	le, ok := err.(*shellerr.LexError)
	if !ok {
		t.Fatalf("err = %T, want *shellerr.LexError", err)
	}
	if le.Msg != "unterminated command substitution" {
		t.Errorf("Msg = %q", le.Msg)
	}
}

func TestLexUnterminatedParamExpansion(t *testing.T) {
	lx := New(`echo ${FOO`)
	_, err := lx.NextToken()
	if err != nil {
		t.Fatalf("unexpected error on first word: %v", err)
	}
	_, err = lx.NextToken()
	if err == nil {
		t.Fatal("expected error for unterminated parameter expansion")
	}
	le, ok := err.(*shellerr.LexError)
	if !ok {
		t.Fatalf("err = %T, want *shellerr.LexError", err)
	}
	if le.Msg != "unterminated parameter expansion" {
		t.Errorf("Msg = %q", le.Msg)
	}
}

func TestLexDollarFormsPreservedVerbatim(t *testing.T) {
	toks := scanAll(t, `echo $(cat file | grep x) ${NAME:-def} $HOME $$`)
	want := []string{
		"$(cat file | grep x)",
		"${NAME:-def}",
		"$HOME",
		"$$",
	}
	for i, w := range want {
		if got := wordText(toks[i+1]); got != w {
			t.Errorf("word %d = %q, want %q", i, got, w)
		}
	}
}

func TestLexEscapeAndLineContinuation(t *testing.T) {
	toks := scanAll(t, "echo a\\ b\\\nc")
	if got := wordText(toks[1]); got != "a bc" {
		t.Errorf("got %q, want %q", got, "a bc")
	}
}
