package provider

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	jsonFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	codeFenceRe = regexp.MustCompile("(?s)```[a-zA-Z0-9]*\\n(.*?)```")
)

// ExtractJSON pulls a JSON object out of free-text LLM output. It tries a
// fenced ```json block first, then falls back to the first balanced object
// in the text. The returned string is raw JSON ready for json.Unmarshal.
func ExtractJSON(text string) (string, error) {
	if m := jsonFenceRe.FindStringSubmatch(text); m != nil {
		return m[1], nil
	}
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", fmt.Errorf("no JSON object in response")
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unbalanced JSON object in response")
}

// ExtractCodeBlock returns the contents of the first fenced code block, or
// the whole text trimmed when no fence is present. Evolution responses
// sometimes arrive as bare source with no markdown at all.
func ExtractCodeBlock(text string) string {
	if m := codeFenceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimRight(m[1], "\n")
	}
	return strings.TrimSpace(text)
}
