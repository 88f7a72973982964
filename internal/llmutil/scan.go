package llmutil

import "strings"

// scanState tracks string and bracket nesting over JSON-ish text.
type scanState struct {
	stack    []byte
	inString bool
	escaped  bool
}

// step advances the state by one byte and reports whether c closed a bracket.
func (s *scanState) step(c byte) (closed bool) {
	if s.inString {
		switch {
		case s.escaped:
			s.escaped = false
		case c == '\\':
			s.escaped = true
		case c == '"':
			s.inString = false
		}
		return false
	}
	switch c {
	case '"':
		s.inString = true
	case '{', '[':
		s.stack = append(s.stack, c)
	case '}', ']':
		if len(s.stack) > 0 {
			s.stack = s.stack[:len(s.stack)-1]
			return true
		}
	}
	return false
}

func (s *scanState) balanced() bool {
	return !s.inString && len(s.stack) == 0
}

// closers returns the brackets needed to close every open level.
func closers(stack []byte) string {
	var b strings.Builder
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
	return b.String()
}

// objectCloses reports whether the object opening at text[start] is closed
// before the end of text.
func objectCloses(text string, start int) bool {
	return balancedEnd(text, start) >= 0
}

// balancedEnd returns the offset just past the bracket that closes the one at
// text[start], or -1 when it never closes.
func balancedEnd(text string, start int) int {
	var s scanState
	for i := start; i < len(text); i++ {
		if s.step(text[i]) && len(s.stack) == 0 {
			return i + 1
		}
	}
	return -1
}

// enclosingObject returns the offset of the innermost object still open at
// pos, skipping nested objects that close before it. It returns -1 when there
// is none.
func enclosingObject(text string, pos int) int {
	for open := strings.LastIndexByte(text[:pos], '{'); open >= 0; open = strings.LastIndexByte(text[:open], '{') {
		if balancedEnd(text[:pos], open) < 0 {
			return open
		}
	}
	return -1
}
