package expand

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// hasGlobMeta reports whether s contains an unescaped glob metacharacter,
// used to decide whether a field needs pathname expansion at all (spec.md
// §4.3.5: "if no match, the pattern is left literal" only applies once we
// know there's something to match).
func hasGlobMeta(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '*', '?', '[':
			return true
		}
	}
	return false
}

// matchGlob reports whether name matches pattern, supporting `*`, `?`,
// `[...]` character classes with `!`/`^` negation and `a-z` ranges, and
// `\X` as a literal X — the general form spec.md §4.3.5 calls for, a step
// up from original_source's glob.rs which only had `*`/`?`. Backtracking
// matcher in the classic recursive style.
func matchGlob(pattern, name string) bool {
	return matchHere([]rune(pattern), []rune(name))
}

func matchHere(pat, name []rune) bool {
	for len(pat) > 0 {
		switch pat[0] {
		case '*':
			// Collapse consecutive stars, then try every split point.
			for len(pat) > 0 && pat[0] == '*' {
				pat = pat[1:]
			}
			if len(pat) == 0 {
				return true
			}
			for i := 0; i <= len(name); i++ {
				if matchHere(pat, name[i:]) {
					return true
				}
			}
			return false
		case '?':
			if len(name) == 0 {
				return false
			}
			pat, name = pat[1:], name[1:]
		case '[':
			end := findClassEnd(pat)
			if end < 0 {
				// Unterminated class: '[' is literal.
				if len(name) == 0 || name[0] != '[' {
					return false
				}
				pat, name = pat[1:], name[1:]
				continue
			}
			if len(name) == 0 || !matchClass(pat[1:end], name[0]) {
				return false
			}
			pat, name = pat[end+1:], name[1:]
		case '\\':
			if len(pat) > 1 {
				pat = pat[1:]
			}
			if len(name) == 0 || name[0] != pat[0] {
				return false
			}
			pat, name = pat[1:], name[1:]
		default:
			if len(name) == 0 || name[0] != pat[0] {
				return false
			}
			pat, name = pat[1:], name[1:]
		}
	}
	return len(name) == 0
}

// findClassEnd returns the index (within pat) of the ']' closing the class
// that opens at pat[0], or -1 if unterminated. A ']' immediately after the
// opening '[' (or after a leading negation) is literal, matching POSIX.
func findClassEnd(pat []rune) int {
	i := 1
	if i < len(pat) && (pat[i] == '!' || pat[i] == '^') {
		i++
	}
	if i < len(pat) && pat[i] == ']' {
		i++
	}
	for ; i < len(pat); i++ {
		if pat[i] == ']' {
			return i
		}
	}
	return -1
}

func matchClass(body []rune, c rune) bool {
	neg := false
	if len(body) > 0 && (body[0] == '!' || body[0] == '^') {
		neg = true
		body = body[1:]
	}
	matched := false
	for i := 0; i < len(body); i++ {
		if i+2 < len(body) && body[i+1] == '-' {
			lo, hi := body[i], body[i+2]
			if lo <= c && c <= hi {
				matched = true
			}
			i += 2
			continue
		}
		if body[i] == c {
			matched = true
		}
	}
	return matched != neg
}

// expandGlobField performs pathname expansion over field, which may contain
// multiple `/`-separated components each independently a glob pattern.
// Returns the matches sorted lexically, or nil if field has no glob
// metacharacters or nothing matched (caller leaves the pattern literal per
// spec.md §4.3.5).
func expandGlobField(field string) []string {
	if !hasGlobMeta(field) {
		return nil
	}
	var root string
	comps := strings.Split(field, "/")
	if field != "" && field[0] == '/' {
		root = "/"
		comps = comps[1:]
	}
	results := expandComponents(root, comps)
	if len(results) == 0 {
		return nil
	}
	sort.Strings(results)
	return results
}

func expandComponents(base string, comps []string) []string {
	if len(comps) == 0 {
		if base == "" {
			return nil
		}
		return []string{strings.TrimSuffix(base, "/")}
	}
	comp := comps[0]
	rest := comps[1:]

	dir := base
	if dir == "" {
		dir = "."
	}
	if !hasGlobMeta(comp) {
		next := joinGlob(base, comp)
		if len(rest) == 0 {
			if _, err := os.Lstat(next); err != nil {
				return nil
			}
			return []string{next}
		}
		return expandComponents(next, rest)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	hiddenOK := strings.HasPrefix(comp, ".")
	var out []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") && !hiddenOK {
			continue
		}
		if !matchGlob(comp, name) {
			continue
		}
		next := joinGlob(base, name)
		if len(rest) == 0 {
			out = append(out, next)
		} else if e.IsDir() {
			out = append(out, expandComponents(next, rest)...)
		}
	}
	return out
}

func joinGlob(base, comp string) string {
	if base == "" {
		return comp
	}
	return filepath.Join(base, comp)
}
