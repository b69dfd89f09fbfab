package llm

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// StripFences removes markdown code fences the model sometimes wraps
// replies in, despite being told not to.
func StripFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if !strings.Contains(cleaned, "```") {
		return cleaned
	}
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```bash", "")
	cleaned = strings.ReplaceAll(cleaned, "```sh", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	return strings.TrimSpace(cleaned)
}

// DecodeJSONReply extracts the first JSON object from a model reply.
// Leading prose and fences are tolerated; anything that is not valid
// JSON after extraction is an error.
func DecodeJSONReply(raw string) (gjson.Result, error) {
	cleaned := StripFences(raw)
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end < start {
		return gjson.Result{}, fmt.Errorf("no JSON object in model reply")
	}
	cleaned = cleaned[start : end+1]
	if !gjson.Valid(cleaned) {
		return gjson.Result{}, fmt.Errorf("model reply is not valid JSON")
	}
	return gjson.Parse(cleaned), nil
}

// StringList reads a field that models return either as an array of
// strings or as a single string.
func StringList(result gjson.Result, path string) []string {
	field := result.Get(path)
	if !field.Exists() {
		return nil
	}
	if field.IsArray() {
		items := make([]string, 0, len(field.Array()))
		for _, entry := range field.Array() {
			text := strings.TrimSpace(entry.String())
			if text != "" {
				items = append(items, text)
			}
		}
		return items
	}
	text := strings.TrimSpace(field.String())
	if text == "" {
		return nil
	}
	return []string{text}
}
