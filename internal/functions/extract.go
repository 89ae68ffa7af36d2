package functions

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

var (
	ErrNoJSONObject     = errors.New("no JSON object found in arguments")
	ErrInvalidArguments = errors.New("invalid function arguments")
)

// LocateObject returns the first top-level {...} region of text. Braces are
// counted character by character, so a brace inside a quoted string value
// shifts the match. A '}' seen at depth zero is ignored.
func LocateObject(text string) (string, error) {
	depth, start := 0, -1
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", ErrNoJSONObject
}

// Extract decodes the JSON object embedded in text into T. When schema is
// non-nil the object is validated against it first. A failed extraction is
// attempted once more before the error is returned wrapped in
// ErrInvalidArguments.
func Extract[T Arguments](text string, schema *jsonschema.Schema) (T, error) {
	args, err := extractOnce[T](text, schema)
	if err == nil {
		return args, nil
	}
	args, err = extractOnce[T](text, schema)
	if err != nil {
		return args, fmt.Errorf("%w: %w", ErrInvalidArguments, err)
	}
	return args, nil
}

func extractOnce[T Arguments](text string, schema *jsonschema.Schema) (T, error) {
	var args T
	obj, err := LocateObject(text)
	if err != nil {
		return args, err
	}
	if schema != nil {
		var doc any
		if err := json.Unmarshal([]byte(obj), &doc); err != nil {
			return args, fmt.Errorf("decode arguments: %w", err)
		}
		if m, ok := doc.(map[string]any); ok {
			doc = canonicalKeys(m, Describe[T]())
		}
		if err := schema.Validate(doc); err != nil {
			return args, fmt.Errorf("validate arguments: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(obj), &args); err != nil {
		return args, fmt.Errorf("decode arguments: %w", err)
	}
	return args, nil
}

// canonicalKeys renames top-level keys that match a declared parameter name
// case-insensitively, matching how the JSON decoder binds fields. A key that
// already matches exactly wins over a differently cased duplicate.
func canonicalKeys(m map[string]any, params []Parameter) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		name := k
		for _, p := range params {
			if strings.EqualFold(k, p.Name) {
				name = p.Name
				break
			}
		}
		if _, exact := m[name]; exact && name != k {
			continue
		}
		out[name] = v
	}
	return out
}
