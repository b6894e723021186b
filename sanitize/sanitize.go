// Package sanitize turns whatever the chat agent returned into the text shown
// to the user. Every stage is total: malformed input degrades to a best-effort
// string, never to an error.
package sanitize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var (
	thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)
	blankLines = regexp.MustCompile(`\n{3,}`)
)

// Responder is implemented by agent replies that carry their answer directly.
type Responder interface {
	Response() string
}

// Sanitize extracts the display text from a raw agent reply.
//
// Plain text that is not JSON is returned untouched. JSON input is searched
// for a data.result string; when that path is missing the whole document is
// pretty-printed instead so nothing is silently dropped. Reasoning blocks are
// then removed and paragraph spacing normalized.
func Sanitize(raw any) string {
	text := extract(raw)

	parsed, ok := parse(text)
	if !ok {
		return text
	}

	text = locate(parsed)
	text = stripThinking(text)
	return collapseBlankLines(text)
}

// extract picks the working string out of the raw reply.
func extract(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case Responder:
		if r := v.Response(); r != "" {
			return r
		}
	case map[string]any:
		if r, ok := v["response"]; ok && truthy(r) {
			if s, ok := r.(string); ok {
				return s
			}
			return stringify(r)
		}
	case map[string]string:
		if r := v["response"]; r != "" {
			return r
		}
	}
	return stringify(raw)
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	}
	return true
}

func stringify(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// parse decodes s as a single JSON value.
func parse(s string) (any, bool) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	// trailing data means s was not one JSON document
	if _, err := dec.Token(); err != io.EOF {
		return nil, false
	}
	return v, true
}

// locate returns data.result when present, otherwise a dump of v.
func locate(v any) string {
	if obj, ok := v.(map[string]any); ok {
		if data, ok := obj["data"].(map[string]any); ok {
			if result, ok := data["result"].(string); ok {
				return strings.TrimSpace(result)
			}
		}
	}
	return dump(v)
}

func dump(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func stripThinking(s string) string {
	return strings.TrimSpace(thinkBlock.ReplaceAllString(s, ""))
}

func collapseBlankLines(s string) string {
	return blankLines.ReplaceAllString(s, "\n\n")
}
