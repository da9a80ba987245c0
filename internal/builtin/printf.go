package builtin

import (
	"fmt"
	"strconv"
	"strings"

	"rush/internal/shellerr"
)

// biPrintf implements a POSIX-subset `printf`: %s/%d/%i/%b/%% conversions
// and \n \t \\ escapes in the format, with the format recycled over any
// extra arguments the way POSIX printf does when more args are given than
// conversions.
func biPrintf(c *Context, args []string) error {
	if len(args) == 0 {
		return &shellerr.BuiltinUsageError{Name: "printf", Usage: "FORMAT [ARGS...]"}
	}
	format := args[0]
	rest := args[1:]
	for {
		consumed, err := printfOnce(c, format, rest)
		if err != nil {
			return err
		}
		rest = rest[consumed:]
		if len(rest) == 0 || consumed == 0 {
			return nil
		}
	}
}

func printfOnce(c *Context, format string, args []string) (int, error) {
	i := 0
	argIdx := 0
	next := func() string {
		if argIdx < len(args) {
			v := args[argIdx]
			argIdx++
			return v
		}
		return ""
	}
	for i < len(format) {
		ch := format[i]
		if ch == '\\' && i+1 < len(format) {
			i++
			switch format[i] {
			case 'n':
				fmt.Fprint(c.Stdout, "\n")
			case 't':
				fmt.Fprint(c.Stdout, "\t")
			case 'r':
				fmt.Fprint(c.Stdout, "\r")
			case '\\':
				fmt.Fprint(c.Stdout, "\\")
			default:
				fmt.Fprintf(c.Stdout, "\\%c", format[i])
			}
			i++
			continue
		}
		if ch == '%' && i+1 < len(format) {
			i++
			if format[i] == '%' {
				fmt.Fprint(c.Stdout, "%")
				i++
				continue
			}
			spec := string(format[i])
			switch format[i] {
			case 's':
				fmt.Fprint(c.Stdout, next())
			case 'b':
				fmt.Fprint(c.Stdout, interpretBackslashes(next()))
			case 'd', 'i':
				v := next()
				n, err := strconv.ParseInt(strings.TrimSpace(v), 0, 64)
				if err != nil {
					n = 0
				}
				fmt.Fprintf(c.Stdout, "%d", n)
			default:
				fmt.Fprintf(c.Stdout, "%%%s", spec)
			}
			i++
			continue
		}
		fmt.Fprintf(c.Stdout, "%c", ch)
		i++
	}
	return argIdx, nil
}

func interpretBackslashes(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			switch s[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(s[i])
			}
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
