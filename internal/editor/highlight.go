package editor

import (
	"strings"

	"github.com/fatih/color"

	"rush/internal/builtin"
	"rush/internal/state"
)

// painter implements chzyer/readline's Painter interface (Paint(line []rune,
// pos int) []rune), colouring the line on every keystroke per spec.md §4.7.
// It is a hand-rolled byte-scanning state machine that tells apart quoted
// text, substitutions, operators and words (colouring the first word as a
// command) rather than a re-lex through internal/lexer: re-lexing
// on every keystroke would mean every partial, often-invalid prefix of the
// line has to tokenise cleanly, and the per-prompt latency budget (spec.md
// §7) rules out allocating a token slice per keystroke regardless.
type painter struct {
	sh *state.Shell
}

func newPainter(sh *state.Shell) *painter {
	return &painter{sh: sh}
}

var (
	colKnownCmd = color.New(color.FgGreen)
	colUnknown  = color.New(color.FgRed)
	colQuote    = color.New(color.FgYellow)
	colOperator = color.New(color.FgCyan)
	colSubst    = color.New(color.FgMagenta)
)

// Paint returns line recoloured with ANSI escapes. pos is ignored: colouring
// does not depend on cursor position, only on lexical class.
func (p *painter) Paint(line []rune, _ int) []rune {
	s := string(line)
	var b strings.Builder
	i := 0
	firstWordDone := false

	for i < len(s) {
		switch {
		case s[i] == '\'':
			j := closeQuote(s, i+1, '\'')
			colQuote.Fprint(&b, s[i:j])
			i = j
		case s[i] == '"':
			j := closeQuote(s, i+1, '"')
			colQuote.Fprint(&b, s[i:j])
			i = j
		case strings.HasPrefix(s[i:], "$("), strings.HasPrefix(s[i:], "`"):
			j := closeSubst(s, i)
			colSubst.Fprint(&b, s[i:j])
			i = j
		case isOperatorStart(s, i):
			j := operatorEnd(s, i)
			colOperator.Fprint(&b, s[i:j])
			i = j
			firstWordDone = false
		case s[i] == ' ' || s[i] == '\t':
			j := i
			for j < len(s) && (s[j] == ' ' || s[j] == '\t') {
				j++
			}
			b.WriteString(s[i:j])
			i = j
		default:
			j := wordEnd(s, i)
			word := s[i:j]
			if !firstWordDone {
				firstWordDone = true
				if p.isKnownCommand(word) {
					colKnownCmd.Fprint(&b, word)
				} else {
					colUnknown.Fprint(&b, word)
				}
			} else {
				b.WriteString(word)
			}
			i = j
		}
	}
	return []rune(b.String())
}

func (p *painter) isKnownCommand(word string) bool {
	if word == "" {
		return true
	}
	if builtin.Is(word) {
		return true
	}
	if _, ok := p.sh.Alias(word); ok {
		return true
	}
	if strings.ContainsRune(word, '/') {
		return true
	}
	return p.sh.Path.Has(word)
}

func closeQuote(s string, start int, q byte) int {
	for i := start; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			continue
		}
		if s[i] == q {
			return i + 1
		}
	}
	return len(s)
}

func closeSubst(s string, start int) int {
	depth := 0
	i := start
	backtick := s[start] == '`'
	if backtick {
		for i++; i < len(s); i++ {
			if s[i] == '`' {
				return i + 1
			}
		}
		return len(s)
	}
	for ; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return len(s)
}

func isOperatorStart(s string, i int) bool {
	switch s[i] {
	case '|', '&', ';', '<', '>':
		return true
	}
	return false
}

func operatorEnd(s string, i int) int {
	end := i + 2
	if end > len(s) {
		end = len(s)
	}
	two := s[i:end]
	switch two {
	case "&&", "||", ">>", "<&", ">&":
		return i + 2
	}
	return i + 1
}

func wordEnd(s string, i int) int {
	j := i
	for j < len(s) {
		switch s[j] {
		case ' ', '\t', '\'', '"', '|', '&', ';', '<', '>', '`':
			return j
		}
		if strings.HasPrefix(s[j:], "$(") {
			return j
		}
		j++
	}
	return j
}
