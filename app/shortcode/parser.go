package shortcode

import (
	"html"
	"strconv"
	"strings"
)

// Node is either literal text or one shortcode occurrence.
type Node struct {
	Text string // set for text nodes

	Tag     string
	Attrs   Attrs
	Content string // raw inner content of an enclosing shortcode
	Closed  bool   // true when a closing tag was found
}

// Attrs holds shortcode attributes. Positional values are keyed "0", "1", ...
type Attrs map[string]string

// Get returns the attribute or def when it is absent.
func (a Attrs) Get(name, def string) string {
	if v, ok := a[name]; ok {
		return v
	}
	return def
}

// Parse splits s into text and shortcode nodes. Only tags for which known
// returns true are recognised; anything else stays text. [[tag]] is an
// escaped shortcode and yields the literal [tag].
func Parse(s string, known func(string) bool) []Node {
	var nodes []Node
	var text strings.Builder

	flush := func() {
		if text.Len() > 0 {
			nodes = append(nodes, Node{Text: text.String()})
			text.Reset()
		}
	}

	pos := 0
	for pos < len(s) {
		open := strings.IndexByte(s[pos:], '[')
		if open < 0 {
			text.WriteString(s[pos:])
			break
		}
		text.WriteString(s[pos : pos+open])
		pos += open

		tag, end, selfClosing, attrs, ok := scanOpening(s, pos)
		if !ok || !known(tag) {
			text.WriteByte('[')
			pos++
			continue
		}

		// [[tag ...]] or [[tag]...[/tag]]
		if pos > 0 && s[pos-1] == '[' {
			inner := end
			if !selfClosing {
				if _, after, found := findClosing(s, end, tag); found {
					inner = after
				}
			}
			if inner < len(s) && s[inner] == ']' {
				str := text.String()
				text.Reset()
				text.WriteString(str[:len(str)-1])
				text.WriteString(s[pos:inner])
				pos = inner + 1
				continue
			}
		}

		node := Node{Tag: tag, Attrs: attrs}
		pos = end
		if !selfClosing {
			if closeAt, after, found := findClosing(s, end, tag); found {
				node.Content = s[end:closeAt]
				node.Closed = true
				pos = after
			}
		}

		flush()
		nodes = append(nodes, node)
	}
	flush()

	return nodes
}

// scanOpening reads "[tag attrs]" or "[tag attrs /]" starting at s[start] == '['.
func scanOpening(s string, start int) (tag string, end int, selfClosing bool, attrs Attrs, ok bool) {
	i := start + 1
	for i < len(s) && isTagByte(s[i]) {
		i++
	}
	if i == start+1 || i >= len(s) {
		return "", 0, false, nil, false
	}
	tag = s[start+1 : i]
	if c := s[i]; c != ']' && c != '/' && c != ' ' && c != '\t' && c != '\n' && c != '\r' {
		return "", 0, false, nil, false
	}

	var quote byte
	j := i
	for ; j < len(s); j++ {
		c := s[j]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '[':
			return "", 0, false, nil, false
		case c == ']':
			raw := strings.TrimSpace(s[i:j])
			if strings.HasSuffix(raw, "/") {
				selfClosing = true
				raw = strings.TrimSpace(strings.TrimSuffix(raw, "/"))
			}
			return tag, j + 1, selfClosing, parseAttrs(raw), true
		}
	}
	return "", 0, false, nil, false
}

// findClosing finds the [/tag] matching an opening tag whose body starts at from.
// Nested occurrences of the same tag are balanced.
func findClosing(s string, from int, tag string) (closeAt, after int, found bool) {
	openTag := "[" + tag
	closeTag := "[/" + tag + "]"
	depth := 0

	for i := from; i < len(s); {
		next := strings.IndexByte(s[i:], '[')
		if next < 0 {
			return 0, 0, false
		}
		i += next

		if strings.HasPrefix(s[i:], closeTag) {
			if depth == 0 {
				return i, i + len(closeTag), true
			}
			depth--
			i += len(closeTag)
			continue
		}

		if strings.HasPrefix(s[i:], openTag) {
			if name, end, selfClosing, _, ok := scanOpening(s, i); ok && name == tag {
				if !selfClosing {
					depth++
				}
				i = end
				continue
			}
		}
		i++
	}
	return 0, 0, false
}

func isTagByte(c byte) bool {
	return c == '_' || c == '-' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// parseAttrs accepts name="value", name='value', name=value and bare positional values.
// Names are lowercased and values HTML-unescaped.
func parseAttrs(raw string) Attrs {
	attrs := Attrs{}
	positional := 0
	i := 0

	for i < len(raw) {
		for i < len(raw) && isSpace(raw[i]) {
			i++
		}
		if i >= len(raw) {
			break
		}

		start := i
		for i < len(raw) && !isSpace(raw[i]) && raw[i] != '=' && raw[i] != '"' && raw[i] != '\'' {
			i++
		}
		name := raw[start:i]

		j := i
		for j < len(raw) && isSpace(raw[j]) {
			j++
		}
		if name != "" && j < len(raw) && raw[j] == '=' {
			j++
			for j < len(raw) && isSpace(raw[j]) {
				j++
			}
			value, next := readValue(raw, j)
			attrs[strings.ToLower(name)] = html.UnescapeString(value)
			i = next
			continue
		}

		value := name
		if name == "" {
			value, i = readValue(raw, i)
		}
		attrs[strconv.Itoa(positional)] = html.UnescapeString(value)
		positional++
	}

	return attrs
}

func readValue(raw string, i int) (string, int) {
	if i >= len(raw) {
		return "", i
	}
	if q := raw[i]; q == '"' || q == '\'' {
		end := strings.IndexByte(raw[i+1:], q)
		if end < 0 {
			return raw[i+1:], len(raw)
		}
		return raw[i+1 : i+1+end], i + end + 2
	}
	start := i
	for i < len(raw) && !isSpace(raw[i]) {
		i++
	}
	return raw[start:i], i
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
