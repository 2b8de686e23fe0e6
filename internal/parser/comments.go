package parser

// StripComments blanks out comments in step definition source while keeping
// every line and column where it was. Handles /* */ blocks, // and # line
// comments, and skips string and regex literals (which never span lines).
// Ruby #{...} interpolation is not a comment.
func StripComments(content string) string {
	out := []byte(content)
	var quote byte
	inBlock := false

	for i := 0; i < len(out); i++ {
		c := out[i]
		if c == '\n' {
			quote = 0
			continue
		}

		if inBlock {
			if c == '*' && i+1 < len(out) && out[i+1] == '/' {
				out[i], out[i+1] = ' ', ' '
				i++
				inBlock = false
				continue
			}
			out[i] = ' '
			continue
		}

		if quote != 0 {
			if c == '\\' && i+1 < len(out) && out[i+1] != '\n' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}

		var next byte
		if i+1 < len(out) {
			next = out[i+1]
		}

		switch {
		case c == '"' || c == '\'' || c == '`':
			quote = c
		case c == '/' && next == '*':
			out[i], out[i+1] = ' ', ' '
			i++
			inBlock = true
		case c == '/' && next == '/':
			i = blankLine(out, i)
		case c == '/' && startsRegexLiteral(out, i):
			quote = '/'
		case c == '#' && next != '{':
			i = blankLine(out, i)
		}
	}

	return string(out)
}

// blankLine replaces out[i:] up to the newline with spaces and returns the
// index of the last blanked byte.
func blankLine(out []byte, i int) int {
	j := i
	for ; j < len(out) && out[j] != '\n'; j++ {
		out[j] = ' '
	}
	return j - 1
}

// startsRegexLiteral guesses whether a slash at i opens a regex literal
// rather than a division, by looking at the previous non-blank byte.
func startsRegexLiteral(out []byte, i int) bool {
	for j := i - 1; j >= 0; j-- {
		switch out[j] {
		case ' ', '\t':
			continue
		case '\n':
			return true
		case '(', ',', '=', ':', '[', '!', '&', '|', '?', '{', '}', ';':
			return true
		default:
			return false
		}
	}
	return true
}
