package expand

import (
	"strconv"
	"strings"
)

// scanSubstitutions performs stage 3 of spec.md §4.3 over text: a single
// left-to-right scan resolving `$NAME`, `${...}`, `$(cmd)`, backtick
// command substitution, and `$((expr))`. When quoted is true (text came
// from a double-quoted segment) the whole result collapses into one Chunk
// with Quoted=true, since double quotes suppress field splitting; otherwise
// literal runs and substitution results are kept as separate chunks so
// splitChunks can field-split only the latter.
func scanSubstitutions(text string, quoted bool, vars Vars, run Runner) ([]Chunk, error) {
	var chunks []Chunk
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			chunks = append(chunks, Chunk{Text: lit.String(), Quoted: quoted})
			lit.Reset()
		}
	}

	i := 0
	for i < len(text) {
		c := text[i]
		switch {
		case c == '$' && i+1 < len(text):
			val, split, n, err := expandDollar(text[i:], vars, run)
			if err != nil {
				return nil, err
			}
			flush()
			chunks = append(chunks, Chunk{Text: val, Quoted: quoted, Split: split && !quoted})
			i += n
		case c == '`':
			end := strings.IndexByte(text[i+1:], '`')
			if end < 0 {
				flush()
				chunks = append(chunks, Chunk{Text: text[i:], Quoted: quoted})
				i = len(text)
				break
			}
			body := unescapeBacktickBody(text[i+1 : i+1+end])
			out, err := run.RunCapture(body)
			if err != nil {
				return nil, err
			}
			flush()
			chunks = append(chunks, Chunk{Text: trimTrailingNewlines(out), Quoted: quoted, Split: !quoted})
			i += end + 2
		default:
			lit.WriteByte(c)
			i++
		}
	}
	flush()

	if quoted {
		var b strings.Builder
		for _, c := range chunks {
			b.WriteString(c.Text)
		}
		return []Chunk{{Text: b.String(), Quoted: true}}, nil
	}
	return chunks, nil
}

// expandDollar resolves the `$...` construct starting at s[0]=='$', returning
// its expansion, whether the result is subject to field splitting, and how
// many bytes of s it consumed.
func expandDollar(s string, vars Vars, run Runner) (value string, split bool, n int, err error) {
	if strings.HasPrefix(s, "$((") {
		end := matchingParen(s, 3)
		if end > 0 {
			v, err := evalArith(s[3:end-2], vars.Get)
			if err != nil {
				return "", false, 0, quoteParam(err.Error())
			}
			return strconv.FormatInt(v, 10), true, end, nil
		}
	}
	if strings.HasPrefix(s, "$(") {
		end := matchingParen(s, 2)
		if end > 0 {
			out, err := run.RunCapture(s[2 : end-1])
			if err != nil {
				return "", false, 0, err
			}
			return trimTrailingNewlines(out), true, end, nil
		}
	}
	if strings.HasPrefix(s, "${") {
		end := matchingBrace(s, 2)
		if end > 0 {
			v, err := expandParamExpr(s[2:end-1], vars, run)
			return v, true, end, err
		}
	}
	switch s[1] {
	case '$', '?', '!', '#', '@', '*':
		v, _ := vars.Get(s[1:2])
		return v, true, 2, nil
	}
	if s[1] >= '0' && s[1] <= '9' {
		v, _ := vars.Get(s[1:2])
		return v, true, 2, nil
	}
	if isIdentByte(s[1], true) {
		j := 2
		for j < len(s) && isIdentByte(s[j], false) {
			j++
		}
		v, _ := vars.Get(s[1:j])
		return v, true, j, nil
	}
	return "$", false, 1, nil
}

// matchingParen returns the index just past the ')' (or the second ')' for
// `$((`) matching the '(' that starts at s[openAt-1], tracking quotes, or 0
// if unterminated (caller falls back to treating '$' as literal).
func matchingParen(s string, openAt int) int {
	isArith := strings.HasPrefix(s, "$((")
	depth := 1
	i := openAt
	for i < len(s) {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				if isArith {
					if i+1 < len(s) && s[i+1] == ')' {
						return i + 2
					}
					return 0
				}
				return i + 1
			}
		case '\'':
			i++
			for i < len(s) && s[i] != '\'' {
				i++
			}
		case '"':
			i++
			for i < len(s) && s[i] != '"' {
				if s[i] == '\\' {
					i++
				}
				i++
			}
		}
		i++
	}
	return 0
}

func matchingBrace(s string, openAt int) int {
	depth := 1
	i := openAt
	for i < len(s) {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
		i++
	}
	return 0
}

func unescapeBacktickBody(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && (s[i+1] == '`' || s[i+1] == '\\' || s[i+1] == '$') {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func trimTrailingNewlines(s string) string {
	for len(s) > 0 && s[len(s)-1] == '\n' {
		s = s[:len(s)-1]
	}
	return s
}

// expandParamExpr resolves the body of a `${...}` form (spec.md §4.3.3):
// plain lookup, the four unset/null defaults, length, prefix/suffix
// trimming, and substring replacement.
func expandParamExpr(body string, vars Vars, run Runner) (string, error) {
	if strings.HasPrefix(body, "#") && body != "#" && isParamName(body[1:]) {
		v, _ := vars.Get(body[1:])
		return strconv.Itoa(len(v)), nil
	}

	name, rest := splitParamName(body)
	if rest == "" {
		v, _ := vars.Get(name)
		return v, nil
	}

	expandAlt := func(word string) (string, error) {
		chunks, err := scanSubstitutions(word, true, vars, run)
		if err != nil {
			return "", err
		}
		if len(chunks) == 0 {
			return "", nil
		}
		return chunks[0].Text, nil
	}

	switch {
	case strings.HasPrefix(rest, ":-"):
		v, ok := vars.Get(name)
		if !ok || v == "" {
			return expandAlt(rest[2:])
		}
		return v, nil
	case strings.HasPrefix(rest, ":="):
		v, ok := vars.Get(name)
		if !ok || v == "" {
			w, err := expandAlt(rest[2:])
			if err != nil {
				return "", err
			}
			vars.Set(name, w)
			return w, nil
		}
		return v, nil
	case strings.HasPrefix(rest, ":+"):
		if v, ok := vars.Get(name); ok && v != "" {
			return expandAlt(rest[2:])
		}
		return "", nil
	case strings.HasPrefix(rest, ":?"):
		v, ok := vars.Get(name)
		if !ok || v == "" {
			msg := rest[2:]
			if msg == "" {
				msg = name + ": parameter null or not set"
			}
			return "", quoteParam(msg)
		}
		return v, nil
	case strings.HasPrefix(rest, "-"):
		if v, ok := vars.Get(name); ok {
			return v, nil
		}
		return expandAlt(rest[1:])
	case strings.HasPrefix(rest, "="):
		v, ok := vars.Get(name)
		if ok {
			return v, nil
		}
		w, err := expandAlt(rest[1:])
		if err != nil {
			return "", err
		}
		vars.Set(name, w)
		return w, nil
	case strings.HasPrefix(rest, "+"):
		if _, ok := vars.Get(name); ok {
			return expandAlt(rest[1:])
		}
		return "", nil
	case strings.HasPrefix(rest, "?"):
		if v, ok := vars.Get(name); ok {
			return v, nil
		}
		msg := rest[1:]
		if msg == "" {
			msg = name + ": parameter not set"
		}
		return "", quoteParam(msg)
	case strings.HasPrefix(rest, "##"):
		v, _ := vars.Get(name)
		return trimPrefixGlob(v, rest[2:], true), nil
	case strings.HasPrefix(rest, "#"):
		v, _ := vars.Get(name)
		return trimPrefixGlob(v, rest[1:], false), nil
	case strings.HasPrefix(rest, "%%"):
		v, _ := vars.Get(name)
		return trimSuffixGlob(v, rest[2:], true), nil
	case strings.HasPrefix(rest, "%"):
		v, _ := vars.Get(name)
		return trimSuffixGlob(v, rest[1:], false), nil
	case strings.HasPrefix(rest, "//"):
		v, _ := vars.Get(name)
		pat, repl := splitPatRepl(rest[2:])
		return replaceGlobAll(v, pat, repl), nil
	case strings.HasPrefix(rest, "/"):
		v, _ := vars.Get(name)
		pat, repl := splitPatRepl(rest[1:])
		return replaceGlobFirst(v, pat, repl), nil
	}
	v, _ := vars.Get(name)
	return v, nil
}

func isParamName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isIdentByte(s[i], i == 0) {
			return false
		}
	}
	return true
}

// splitParamName splits body into its leading parameter name (a normal
// identifier, or one of the single-character special parameters) and the
// operator suffix that follows.
func splitParamName(body string) (name, rest string) {
	if body == "" {
		return "", ""
	}
	switch body[0] {
	case '@', '*', '#', '?', '!', '$':
		return body[:1], body[1:]
	}
	if body[0] >= '0' && body[0] <= '9' {
		return body[:1], body[1:]
	}
	i := 0
	for i < len(body) && isIdentByte(body[i], i == 0) {
		i++
	}
	return body[:i], body[i:]
}

func splitPatRepl(s string) (pat, repl string) {
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' {
			i++
			continue
		}
		if s[i] == '/' {
			return s[:i], s[i+1:]
		}
	}
	return s, ""
}

func trimPrefixGlob(v, pat string, longest bool) string {
	if longest {
		for i := len(v); i >= 0; i-- {
			if matchGlob(pat, v[:i]) {
				return v[i:]
			}
		}
	} else {
		for i := 0; i <= len(v); i++ {
			if matchGlob(pat, v[:i]) {
				return v[i:]
			}
		}
	}
	return v
}

func trimSuffixGlob(v, pat string, longest bool) string {
	if longest {
		for i := 0; i <= len(v); i++ {
			if matchGlob(pat, v[i:]) {
				return v[:i]
			}
		}
	} else {
		for i := len(v); i >= 0; i-- {
			if matchGlob(pat, v[i:]) {
				return v[:i]
			}
		}
	}
	return v
}

func findGlobSubstr(v, pat string, start int) (mstart, mend int, ok bool) {
	for i := start; i <= len(v); i++ {
		for j := len(v); j >= i; j-- {
			if matchGlob(pat, v[i:j]) {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

func replaceGlobFirst(v, pat, repl string) string {
	s, e, ok := findGlobSubstr(v, pat, 0)
	if !ok {
		return v
	}
	return v[:s] + repl + v[e:]
}

func replaceGlobAll(v, pat, repl string) string {
	var b strings.Builder
	pos := 0
	for pos <= len(v) {
		s, e, ok := findGlobSubstr(v, pat, pos)
		if !ok {
			b.WriteString(v[pos:])
			break
		}
		b.WriteString(v[pos:s])
		b.WriteString(repl)
		if e == s {
			if s < len(v) {
				b.WriteByte(v[s])
			}
			pos = s + 1
		} else {
			pos = e
		}
	}
	return b.String()
}
