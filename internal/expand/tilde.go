package expand

import (
	"os"
	"os/user"
	"strings"
)

// tildeExpand implements spec.md §4.3.2: a leading `~` expands to $HOME,
// `~name` looks up name's home directory in the system password database,
// and `~/x` / `~name/x` expand just the prefix. Only applies to the start
// of a bare (unquoted) chunk; callers must not invoke this on quoted text.
func tildeExpand(s string) string {
	if !strings.HasPrefix(s, "~") {
		return s
	}
	rest := s[1:]
	name := rest
	var tail string
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		name, tail = rest[:i], rest[i:]
	}
	if name == "" {
		home := os.Getenv("HOME")
		if home == "" {
			if u, err := user.Current(); err == nil {
				home = u.HomeDir
			}
		}
		if home == "" {
			return s
		}
		return home + tail
	}
	u, err := user.Lookup(name)
	if err != nil {
		return s
	}
	return u.HomeDir + tail
}
