package editor

import (
	"os"
	"path/filepath"
	"strings"

	"rush/internal/builtin"
	"rush/internal/state"

	"rush/pkg/platform"
)

// completer implements readline.AutoCompleter (Do(line []rune, pos int)
// (newLine [][]rune, length int)) per spec.md §4.7: position-aware —
// commands right after the line start, `&&`, `||`, or `;`, filenames
// otherwise. Tilde is expanded only to build the candidate list; matches
// are returned with the literal prefix the user typed still in front.
type completer struct {
	sh *state.Shell
}

func newCompleter(sh *state.Shell) *completer {
	return &completer{sh: sh}
}

func (c *completer) Do(line []rune, pos int) ([][]rune, int) {
	text := string(line[:pos])
	word, wordStart := lastWord(text)
	if atCommandPosition(text, wordStart) {
		return c.completeCommands(word)
	}
	return c.completeFiles(word)
}

// lastWord returns the run of non-space runes ending at pos, and the byte
// offset it starts at.
func lastWord(text string) (string, int) {
	i := len(text)
	for i > 0 && !isWordBoundary(text[i-1]) {
		i--
	}
	return text[i:], i
}

func isWordBoundary(b byte) bool { return b == ' ' || b == '\t' }

// atCommandPosition reports whether the word starting at wordStart is in
// command position: the line so far (before the word) is empty or ends in
// `&&`, `||`, `;`, or `|` (each possibly followed by spaces).
func atCommandPosition(text string, wordStart int) bool {
	prefix := strings.TrimRight(text[:wordStart], " \t")
	if prefix == "" {
		return true
	}
	for _, op := range []string{"&&", "||", ";", "|"} {
		if strings.HasSuffix(prefix, op) {
			return true
		}
	}
	return false
}

func (c *completer) completeCommands(prefix string) ([][]rune, int) {
	seen := make(map[string]bool)
	var matches [][]rune
	add := func(name string) {
		if strings.HasPrefix(name, prefix) && !seen[name] {
			seen[name] = true
			matches = append(matches, []rune(name))
		}
	}
	for name := range builtin.Table {
		add(name)
	}
	for name := range c.sh.Aliases() {
		add(name)
	}
	for _, name := range c.sh.Path.WithPrefix(prefix) {
		add(name)
	}
	return matches, len(prefix)
}

func (c *completer) completeFiles(prefix string) ([][]rune, int) {
	search := prefix
	if strings.HasPrefix(search, "~") {
		search = platform.NormalizePath(search)
	}

	dir, pattern := filepath.Split(search)
	if dir == "" {
		dir = "."
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0
	}

	var matches [][]rune
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, pattern) {
			continue
		}
		if entry.IsDir() {
			name += "/"
		}
		matches = append(matches, []rune(name))
	}
	return matches, len(pattern)
}
