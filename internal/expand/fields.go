package expand

// splitChunks implements field splitting (spec.md §4.3.4): only chunks
// marked Split (unquoted substitution results) are scanned for IFS
// whitespace; literal and Quoted chunks never split, and a Split chunk's
// leading/trailing IFS run merges with the previous/next field boundary the
// way unquoted whitespace does in the original command line.
func splitChunks(chunks []Chunk) [][]Chunk {
	const ifs = " \t\n"

	var fields [][]Chunk
	var cur []Chunk
	haveCur := false
	hadQuotedOrLiteral := false

	flush := func() {
		if haveCur {
			fields = append(fields, cur)
		}
		cur = nil
		haveCur = false
	}

	for _, c := range chunks {
		if !c.Split {
			cur = append(cur, c)
			haveCur = true
			hadQuotedOrLiteral = true
			continue
		}
		start := 0
		text := c.Text
		for i := 0; i < len(text); i++ {
			if isIFS(text[i], ifs) {
				if i > start {
					cur = append(cur, Chunk{Text: text[start:i]})
					haveCur = true
				}
				flush()
				start = i + 1
			}
		}
		if start < len(text) {
			cur = append(cur, Chunk{Text: text[start:]})
			haveCur = true
		}
	}
	flush()
	if len(fields) == 0 {
		if !hadQuotedOrLiteral {
			// Word expanded entirely from unquoted substitutions that all
			// came up empty (e.g. `$UNSET`): it contributes no argument at
			// all, not an empty one.
			return nil
		}
		return [][]Chunk{{}}
	}
	return fields
}

func isIFS(b byte, ifs string) bool {
	for i := 0; i < len(ifs); i++ {
		if ifs[i] == b {
			return true
		}
	}
	return false
}
