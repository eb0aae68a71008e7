package template

import "strings"

// ReplaceSection swaps the body of [name] for lines. A missing section is
// appended at the end. Section names match case-insensitively.
func ReplaceSection(text, name string, lines []string) string {
	newline := detectNewline(text)
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	normalized = strings.TrimSuffix(normalized, "\n")

	var doc []string
	if normalized != "" {
		doc = strings.Split(normalized, "\n")
	}
	start, end := findSection(doc, name)

	var out []string
	if start < 0 {
		out = append(out, doc...)
		if len(out) > 0 && strings.TrimSpace(out[len(out)-1]) != "" {
			out = append(out, "")
		}
		out = append(out, "["+name+"]")
		out = append(out, lines...)
	} else {
		out = append(out, doc[:start+1]...)
		out = append(out, lines...)
		rest := doc[end:]
		for len(rest) > 0 && strings.TrimSpace(rest[0]) == "" {
			rest = rest[1:]
		}
		if len(rest) > 0 {
			out = append(out, "")
			out = append(out, rest...)
		}
	}
	return joinLines(append(out, ""), true, newline)
}

// SectionLines returns the non-blank, non-comment lines of [name].
func SectionLines(text, name string) []string {
	doc := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	start, end := findSection(doc, name)
	if start < 0 {
		return nil
	}
	var out []string
	for _, line := range doc[start+1 : end] {
		trim := strings.TrimSpace(line)
		if trim == "" || strings.HasPrefix(trim, "#") || strings.HasPrefix(trim, ";") || strings.HasPrefix(trim, "//") {
			continue
		}
		out = append(out, trim)
	}
	return out
}

// findSection returns the header index and the index of the next header
// (or len(doc)). start is -1 when the section is absent.
func findSection(doc []string, name string) (start, end int) {
	want := strings.ToLower(strings.TrimSpace(name))
	start = -1
	for i, line := range doc {
		sec, ok := parseSectionHeader(strings.TrimSpace(line))
		if !ok {
			continue
		}
		if start >= 0 {
			end = i
			// trailing blank lines belong to the gap, not the body
			for end > start+1 && strings.TrimSpace(doc[end-1]) == "" {
				end--
			}
			return start, end
		}
		if sec == want {
			start = i
		}
	}
	if start < 0 {
		return -1, -1
	}
	end = len(doc)
	return start, end
}
