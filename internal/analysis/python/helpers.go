// Filename: python/helpers.go
package python

import (
	"strconv"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
)

// fStringPlaceholder replaces every interpolation of a formatted string.
const fStringPlaceholder = "{...}"

// NodeContent extracts the string content of a node from the source byte slice.
func NodeContent(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return node.Content(source)
}

// namedChildren returns the named children of node in order.
func namedChildren(node *sitter.Node) []*sitter.Node {
	if node == nil {
		return nil
	}
	count := int(node.NamedChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		if child := node.NamedChild(i); child != nil && child.Type() != "comment" {
			out = append(out, child)
		}
	}
	return out
}

// unwrapParens strips any parenthesized_expression wrappers.
func unwrapParens(node *sitter.Node) *sitter.Node {
	for node != nil && node.Type() == "parenthesized_expression" {
		children := namedChildren(node)
		if len(children) != 1 {
			return node
		}
		node = children[0]
	}
	return node
}

// stringLiteral returns the value of a string or concatenated_string node.
// Formatted strings render their interpolations as "{...}" and report isFormatted.
func stringLiteral(node *sitter.Node, source []byte) (value string, isFormatted bool, ok bool) {
	node = unwrapParens(node)
	if node == nil {
		return "", false, false
	}
	switch node.Type() {
	case "string":
		return decodeString(NodeContent(node, source))
	case "concatenated_string":
		var b strings.Builder
		for _, part := range namedChildren(node) {
			v, f, ok := stringLiteral(part, source)
			if !ok {
				return "", false, false
			}
			isFormatted = isFormatted || f
			b.WriteString(v)
		}
		return b.String(), isFormatted, true
	}
	return "", false, false
}

// plainString is stringLiteral restricted to non-formatted strings.
func plainString(node *sitter.Node, source []byte) (string, bool) {
	v, f, ok := stringLiteral(node, source)
	if !ok || f {
		return "", false
	}
	return v, true
}

// stringList returns the string elements of a list or tuple literal, skipping
// non-string elements. A single string is treated as a one-element list.
func stringList(node *sitter.Node, source []byte) ([]string, bool) {
	node = unwrapParens(node)
	if node == nil {
		return nil, false
	}
	if s, ok := plainString(node, source); ok {
		return []string{s}, true
	}
	if node.Type() != "list" && node.Type() != "tuple" {
		return nil, false
	}
	var out []string
	for _, el := range namedChildren(node) {
		if s, ok := plainString(el, source); ok {
			out = append(out, s)
		}
	}
	return out, true
}

// isTrue reports whether node is the literal True.
func isTrue(node *sitter.Node) bool {
	node = unwrapParens(node)
	return node != nil && node.Type() == "true"
}

// callName returns the trailing name of a call's function: "fields.Char" -> "Char".
func callName(call *sitter.Node, source []byte) string {
	if call == nil || call.Type() != "call" {
		return ""
	}
	return trailingName(call.ChildByFieldName("function"), source)
}

// trailingName returns the identifier or the last attribute of a dotted access.
func trailingName(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	switch node.Type() {
	case "identifier":
		return NodeContent(node, source)
	case "attribute":
		return NodeContent(node.ChildByFieldName("attribute"), source)
	}
	return ""
}

// callArguments splits a call's argument list into positional arguments and keyword arguments.
func callArguments(call *sitter.Node, source []byte) (positional []*sitter.Node, keywords map[string]*sitter.Node) {
	keywords = map[string]*sitter.Node{}
	if call == nil {
		return nil, keywords
	}
	args := call.ChildByFieldName("arguments")
	if args == nil || args.Type() != "argument_list" {
		return nil, keywords
	}
	for _, arg := range namedChildren(args) {
		switch arg.Type() {
		case "keyword_argument":
			name := NodeContent(arg.ChildByFieldName("name"), source)
			if _, seen := keywords[name]; !seen {
				keywords[name] = arg.ChildByFieldName("value")
			}
		case "list_splat", "dictionary_splat":
		default:
			positional = append(positional, arg)
		}
	}
	return positional, keywords
}

// decodeString evaluates a Python string literal token, including its prefix and quotes.
func decodeString(raw string) (string, bool, bool) {
	i := 0
	for i < len(raw) && strings.ContainsRune("rRbBuUfF", rune(raw[i])) {
		i++
	}
	prefix := strings.ToLower(raw[:i])
	body := raw[i:]

	var quote string
	switch {
	case strings.HasPrefix(body, `"""`), strings.HasPrefix(body, `'''`):
		quote = body[:3]
	case strings.HasPrefix(body, `"`), strings.HasPrefix(body, `'`):
		quote = body[:1]
	default:
		return "", false, false
	}
	if len(body) < 2*len(quote) || !strings.HasSuffix(body, quote) {
		return "", false, false
	}
	inner := body[len(quote) : len(body)-len(quote)]

	isFormatted := strings.Contains(prefix, "f")
	if isFormatted {
		inner = collapseInterpolations(inner)
	}
	if strings.Contains(prefix, "r") {
		return inner, isFormatted, true
	}
	return unescape(inner), isFormatted, true
}

// collapseInterpolations replaces each {expr} with "{...}" and undoubles braces.
func collapseInterpolations(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '{' && i+1 < len(s) && s[i+1] == '{':
			b.WriteByte('{')
			i++
		case c == '}' && i+1 < len(s) && s[i+1] == '}':
			b.WriteByte('}')
			i++
		case c == '{':
			depth := 1
			j := i + 1
			for ; j < len(s) && depth > 0; j++ {
				switch s[j] {
				case '{':
					depth++
				case '}':
					depth--
				}
			}
			b.WriteString(fStringPlaceholder)
			i = j - 1
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// unescape processes the backslash escapes of a non-raw Python string.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch e := s[i]; e {
		case '\n':
			// line continuation
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '\\', '\'', '"':
			b.WriteByte(e)
		case '0':
			b.WriteByte(0)
		case 'x', 'u', 'U':
			width := map[byte]int{'x': 2, 'u': 4, 'U': 8}[e]
			if i+1+width <= len(s) {
				if r, err := strconv.ParseUint(s[i+1:i+1+width], 16, 32); err == nil && utf8.ValidRune(rune(r)) {
					b.WriteRune(rune(r))
					i += width
					continue
				}
			}
			b.WriteByte('\\')
			b.WriteByte(e)
		default:
			b.WriteByte('\\')
			b.WriteByte(e)
		}
	}
	return b.String()
}

// pyRepr renders s the way Python's repr() renders a str.
func pyRepr(s string) string {
	quote := byte('\'')
	if strings.Contains(s, "'") && !strings.Contains(s, `"`) {
		quote = '"'
	}
	var b strings.Builder
	b.WriteByte(quote)
	for _, r := range s {
		switch {
		case r == '\\':
			b.WriteString(`\\`)
		case r == rune(quote):
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\t':
			b.WriteString(`\t`)
		case r == '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte(quote)
	return b.String()
}

// cleanDoc trims a docstring and strips its common indentation.
func cleanDoc(doc string) string {
	lines := strings.Split(strings.ReplaceAll(doc, "\r\n", "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
