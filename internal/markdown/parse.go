package markdown

import (
	"bufio"
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parsed holds the frontmatter and body of an entity file.
type Parsed struct {
	Frontmatter map[string]interface{}
	Body        string
}

// ID returns the frontmatter id, or "" when there is none.
func (p *Parsed) ID() string {
	if p.Frontmatter == nil {
		return ""
	}
	if s, ok := p.Frontmatter["id"].(string); ok {
		return s
	}
	return ""
}

// Parse splits raw Markdown into YAML frontmatter and body. Content without a
// frontmatter block, or with invalid YAML, is returned as body only.
func Parse(data []byte) *Parsed {
	fm, body := splitFrontmatter(data)
	return &Parsed{Frontmatter: fm, Body: body}
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body.
func splitFrontmatter(data []byte) (map[string]interface{}, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	// The renderer separates header and body with exactly one blank line.
	body := strings.TrimPrefix(string(afterDelim), "\n\n")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return nil, string(data)
	}
	return fm, body
}

// EntityID extracts the entity id of a mirror file. Hand-edited headers that
// no longer parse as YAML still yield their id line.
func EntityID(data []byte) string {
	if id := Parse(data).ID(); id != "" {
		return id
	}
	sc := bufio.NewScanner(bytes.NewReader(data))
	inHeader := false
	for sc.Scan() {
		line := sc.Text()
		if line == "---" {
			if inHeader {
				return ""
			}
			inHeader = true
			continue
		}
		if inHeader && strings.HasPrefix(line, "id: ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "id: "))
		}
	}
	return ""
}
