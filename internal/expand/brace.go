package expand

import (
	"strconv"
	"strings"
)

// braceExpandText implements brace expansion (spec.md §4.3.1): `{a,b,c}` and
// `{1..9}`/`{a..z}` ranges, with arbitrary nesting, expanding to one string
// per enumeration in lexical order. A `{...}` group with no top-level comma
// and no valid range is left untouched, matching bash's "single alternative
// is literal" rule.
func braceExpandText(s string) []string {
	open, commas, rangeBody, closeIdx := findBraceGroup(s)
	if open < 0 {
		return []string{s}
	}
	prefix := s[:open]
	suffixes := braceExpandText(s[closeIdx+1:])

	var alts []string
	if rangeBody != "" {
		alts = expandRange(rangeBody)
	} else {
		body := s[open+1 : closeIdx]
		parts := splitTopLevel(body, commas)
		for _, p := range parts {
			alts = append(alts, braceExpandText(p)...)
		}
	}
	if alts == nil {
		// Not actually a valid group (shouldn't happen; findBraceGroup only
		// returns open>=0 when it found a comma or range), but fall back to
		// literal text defensively.
		return []string{s}
	}

	out := make([]string, 0, len(alts)*len(suffixes))
	for _, a := range alts {
		for _, suf := range suffixes {
			out = append(out, prefix+a+suf)
		}
	}
	return out
}

// findBraceGroup locates the first brace group eligible for expansion: a
// balanced `{...}` span containing either a top-level `..` range or at least
// one top-level comma. Returns open < 0 if none exists. commas holds the
// byte offsets (relative to the group body) of top-level commas; rangeBody
// is non-empty when the group is a `{x..y[..step]}` range instead.
func findBraceGroup(s string) (open int, commas []int, rangeBody string, closeIdx int) {
	for i := 0; i < len(s); i++ {
		if s[i] != '{' {
			continue
		}
		depth := 1
		var localCommas []int
		j := i + 1
		for ; j < len(s) && depth > 0; j++ {
			switch s[j] {
			case '{':
				depth++
			case '}':
				depth--
			case ',':
				if depth == 1 {
					localCommas = append(localCommas, j-(i+1))
				}
			}
		}
		if depth != 0 {
			continue // unbalanced from here; try a later '{'
		}
		close := j - 1
		body := s[i+1 : close]
		if len(localCommas) > 0 {
			return i, localCommas, "", close
		}
		if isRangeBody(body) {
			return i, nil, body, close
		}
		// Not expandable; keep scanning past this group for another '{'.
		i = close
	}
	return -1, nil, "", -1
}

func isRangeBody(body string) bool {
	parts := strings.Split(body, "..")
	if len(parts) != 2 && len(parts) != 3 {
		return false
	}
	isNum := func(p string) bool {
		_, err := strconv.Atoi(p)
		return err == nil
	}
	isAlpha := func(p string) bool { return len(p) == 1 && isAsciiAlpha(p[0]) }
	if isNum(parts[0]) && isNum(parts[1]) {
		return true
	}
	if isAlpha(parts[0]) && isAlpha(parts[1]) {
		return true
	}
	return false
}

func isAsciiAlpha(b byte) bool { return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') }

func expandRange(body string) []string {
	parts := strings.Split(body, "..")
	step := 1
	if len(parts) == 3 {
		if n, err := strconv.Atoi(parts[2]); err == nil && n != 0 {
			step = n
			if step < 0 {
				step = -step
			}
		}
	}
	if n1, err1 := strconv.Atoi(parts[0]); err1 == nil {
		n2, _ := strconv.Atoi(parts[1])
		var out []string
		if n1 <= n2 {
			for v := n1; v <= n2; v += step {
				out = append(out, strconv.Itoa(v))
			}
		} else {
			for v := n1; v >= n2; v -= step {
				out = append(out, strconv.Itoa(v))
			}
		}
		return out
	}
	c1, c2 := parts[0][0], parts[1][0]
	var out []string
	if c1 <= c2 {
		for v := c1; v <= c2; v += byte(step) {
			out = append(out, string(rune(v)))
		}
	} else {
		for v := c1; v >= c2; v -= byte(step) {
			out = append(out, string(rune(v)))
		}
	}
	return out
}

func splitTopLevel(body string, commas []int) []string {
	if len(commas) == 0 {
		return []string{body}
	}
	parts := make([]string, 0, len(commas)+1)
	prev := 0
	for _, c := range commas {
		parts = append(parts, body[prev:c])
		prev = c + 1
	}
	parts = append(parts, body[prev:])
	return parts
}
