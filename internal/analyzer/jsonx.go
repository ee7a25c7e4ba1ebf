package analyzer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// extractJSONObject finds the first complete JSON object in model output.
// Code fences and prose around the object are ignored.
func extractJSONObject(raw string) ([]byte, error) {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "```"); i >= 0 {
		rest := s[i+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		if strings.Contains(rest, "{") {
			s = rest
		}
	}

	start := strings.IndexByte(s, '{')
	if start < 0 {
		return nil, fmt.Errorf("%w: no JSON object in output", ErrParse)
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
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
				obj := []byte(s[start : i+1])
				if !json.Valid(obj) {
					return nil, fmt.Errorf("%w: malformed JSON object", ErrParse)
				}
				return obj, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: unterminated JSON object", ErrParse)
}

// DecodeJSON extracts the first JSON object from model output and decodes it
// into v. Failures wrap ErrParse.
func DecodeJSON(raw string, v any) error {
	obj, err := extractJSONObject(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(obj, v); err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}
	return nil
}

// flexString accepts a JSON string, number, bool or null. Models are not
// consistent about quoting prices and years.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*f = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
	case b[0] == '[':
		var list flexStrings
		if err := json.Unmarshal(b, &list); err != nil {
			return err
		}
		*f = flexString(strings.Join(list, ", "))
	case b[0] == '{':
		*f = ""
	default:
		if _, err := strconv.ParseFloat(string(b), 64); err == nil || string(b) == "true" || string(b) == "false" {
			*f = flexString(b)
			return nil
		}
		return fmt.Errorf("unexpected value %s", b)
	}
	return nil
}

// flexStrings accepts a list of scalars or a single scalar.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = nil
		return nil
	}
	if b[0] != '[' {
		var one flexString
		if err := json.Unmarshal(b, &one); err != nil {
			return err
		}
		*f = flexStrings{string(one)}
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		return err
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		var s flexString
		if err := json.Unmarshal(item, &s); err != nil {
			continue
		}
		out = append(out, string(s))
	}
	*f = out
	return nil
}

func clean(s flexString) string {
	return strings.Join(strings.Fields(string(s)), " ")
}

// cleanList trims every entry, drops empties and case-insensitive duplicates.
func cleanList(in flexStrings) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		s = clean(flexString(s))
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

func allEmpty(values ...string) bool {
	for _, v := range values {
		if v != "" {
			return false
		}
	}
	return true
}
