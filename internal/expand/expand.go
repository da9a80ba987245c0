// Package expand implements spec.md §4.3's word-expansion pipeline: brace,
// tilde, parameter/variable/arithmetic/command substitution, field
// splitting, and glob expansion, applied in that fixed order with the
// quoting rules that suppress later stages.
package expand

import (
	"strings"

	"rush/internal/lexer"
	"rush/internal/shellerr"
)

// Vars is the variable/parameter lookup surface expand needs from shell
// state, kept minimal so this package never imports internal/state
// (avoiding an import cycle with the executor, which imports both).
type Vars interface {
	Get(name string) (string, bool)
	Set(name, value string)
}

// Runner executes a command pipeline and captures its stdout, backing
// `$(cmd)` and backtick substitution. The executor implements this.
type Runner interface {
	RunCapture(cmdline string) (string, error)
}

// Chunk is one piece of a word's expansion result, tagged with how later
// stages must treat it: Quoted chunks never field-split and have their glob
// metacharacters taken literally; Split chunks are unquoted substitution
// results whose embedded IFS whitespace still needs splitting.
type Chunk struct {
	Text   string
	Quoted bool
	Split  bool
}

// Fields expands a Word token into its final argv entries: the full
// pipeline (brace, tilde, substitution, field split, glob). Used for
// command words and plain arguments.
func Fields(tok lexer.Token, vars Vars, run Runner) ([]string, error) {
	rawForms := braceForms(tok)
	var out []string
	for _, raw := range rawForms {
		chunks, err := expandSegments(raw, vars, run)
		if err != nil {
			return nil, err
		}
		fields := splitChunks(chunks)
		for _, f := range fields {
			out = append(out, expandFieldGlob(f)...)
		}
	}
	return out, nil
}

// Single expands tok to exactly one string: no field splitting, no glob,
// used for redirection targets and the right-hand side of assignments
// (spec.md §4.3 notes tilde still applies "after = in assignments").
func Single(tok lexer.Token, vars Vars, run Runner) (string, error) {
	chunks, err := expandSegments([]lexer.Segment(tok.Segments), vars, run)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(c.Text)
	}
	return b.String(), nil
}

// braceForms applies brace expansion (stage 1) to a word, honoring the
// "suppressed inside quotes" rule: a word built from more than one segment
// kind, or any Single/Double segment, is passed through unchanged — brace
// expansion only fires on a purely bare (unquoted) word, which covers every
// case spec.md §8 tests (`{a,b}{1,2}`, `{1..9}`).
func braceForms(tok lexer.Token) [][]lexer.Segment {
	if len(tok.Segments) != 1 || tok.Segments[0].Kind != lexer.Bare {
		return [][]lexer.Segment{tok.Segments}
	}
	texts := braceExpandText(tok.Segments[0].Text)
	forms := make([][]lexer.Segment, len(texts))
	for i, t := range texts {
		forms[i] = []lexer.Segment{{Kind: lexer.Bare, Text: t}}
	}
	return forms
}

// expandSegments runs tilde expansion and parameter/command/arithmetic
// substitution (stages 2-3) over a segment list, producing the chunk
// sequence stages 4-5 operate on.
func expandSegments(segs []lexer.Segment, vars Vars, run Runner) ([]Chunk, error) {
	var out []Chunk
	for i, seg := range segs {
		switch seg.Kind {
		case lexer.Single:
			out = append(out, Chunk{Text: seg.Text, Quoted: true})
		case lexer.Bare:
			text := seg.Text
			if i == 0 {
				text = tildeExpand(text)
			}
			text = expandAssignTilde(text)
			chunks, err := scanSubstitutions(text, false, vars, run)
			if err != nil {
				return nil, err
			}
			out = append(out, chunks...)
		case lexer.Double:
			chunks, err := scanSubstitutions(seg.Text, true, vars, run)
			if err != nil {
				return nil, err
			}
			out = append(out, chunks...)
		}
	}
	return out, nil
}

// expandAssignTilde implements the "~ after =" rule for inline assignment
// values split across multiple `:`-separated path components, e.g.
// `PATH=~/bin:~/local/bin`.
func expandAssignTilde(text string) string {
	if !strings.Contains(text, "=") && !strings.Contains(text, ":~") {
		return text
	}
	parts := strings.Split(text, ":")
	for i, p := range parts {
		if i == 0 {
			if eq := strings.IndexByte(p, '='); eq >= 0 && strings.HasPrefix(p[eq+1:], "~") {
				parts[i] = p[:eq+1] + tildeExpand(p[eq+1:])
			}
		} else if strings.HasPrefix(p, "~") {
			parts[i] = tildeExpand(p)
		}
	}
	return strings.Join(parts, ":")
}

// expandFieldGlob applies glob expansion (stage 5) to one field, returning
// every match in lexical order, or the literal text as a single-element
// slice if the field has no glob metacharacters or nothing matched.
func expandFieldGlob(field []Chunk) []string {
	pattern, anyUnquotedMeta := buildGlobPattern(field)
	if anyUnquotedMeta {
		if matches := expandGlobField(pattern); len(matches) > 0 {
			return matches
		}
	}
	return []string{unescapeLiteral(pattern)}
}

// buildGlobPattern concatenates a field's chunks into one pattern string,
// backslash-escaping glob metacharacters found in Quoted chunks so they
// match literally, while leaving unquoted metacharacters active.
func buildGlobPattern(field []Chunk) (string, bool) {
	var b strings.Builder
	anyMeta := false
	for _, c := range field {
		if c.Quoted {
			for _, r := range c.Text {
				switch r {
				case '*', '?', '[', '\\':
					b.WriteByte('\\')
				}
				b.WriteRune(r)
			}
			continue
		}
		b.WriteString(c.Text)
		if hasGlobMeta(c.Text) {
			anyMeta = true
		}
	}
	return b.String(), anyMeta
}

func unescapeLiteral(s string) string {
	if !strings.Contains(s, "\\") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// EvalArith evaluates a `$(( expr ))` body for callers outside word
// expansion proper (e.g. an eventual `let`/arithmetic builtin).
func EvalArith(expr string, vars Vars) (int64, error) {
	return evalArith(expr, vars.Get)
}

// quoteParam wraps shellerr.ExpansionError for ${NAME:?msg} and friends.
func quoteParam(msg string) error { return &shellerr.ExpansionError{Msg: "rush: " + msg} }
