package views

import (
	"fmt"
	"strings"

	"go.yaml.in/yaml/v3"
)

// parseFrontMatter splits a leading YAML block from content. The block opens
// with a "---" (or "= yaml =") line and closes with "---" or "...". Without
// a complete block, attrs is empty and body is the whole content.
func parseFrontMatter(content string) (attrs map[string]any, body string, err error) {
	attrs = map[string]any{}

	text := strings.TrimPrefix(content, "\ufeff")
	open, rest, ok := cutLine(text)
	if !ok || (open != "---" && open != "= yaml =") {
		return attrs, content, nil
	}

	var block strings.Builder
	for {
		line, next, more := cutLine(rest)
		if line == "---" || line == "..." || (open == "= yaml =" && line == open) {
			body = next
			break
		}
		if !more {
			// unterminated block, not front matter
			return attrs, content, nil
		}
		block.WriteString(line)
		block.WriteByte('\n')
		rest = next
	}

	if err = yaml.Unmarshal([]byte(block.String()), &attrs); err != nil {
		return nil, "", fmt.Errorf("error parsing front matter: %w", err)
	}
	if attrs == nil {
		attrs = map[string]any{}
	}
	return attrs, body, nil
}

// cutLine returns the first line of s without its line ending and the text
// following it. more is false when s has no line ending.
func cutLine(s string) (line, rest string, more bool) {
	line, rest, more = strings.Cut(s, "\n")
	return strings.TrimRight(line, " \t\r"), rest, more
}
