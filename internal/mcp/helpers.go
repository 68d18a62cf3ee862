package mcpserver

import (
	"fmt"
	"strings"
)

// stringArg returns args[key] as a string, or def when it is absent or empty.
func stringArg(args map[string]any, key, def string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return def
}

// stringListArg accepts either a JSON array of strings or a comma-separated
// string. Absent or empty values yield def; an empty name is an error.
func stringListArg(args map[string]any, key string, def []string) ([]string, error) {
	switch v := args[key].(type) {
	case nil:
		return def, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return def, nil
		}
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
			if parts[i] == "" {
				return nil, fmt.Errorf("%s[%d] is empty", key, i)
			}
		}
		return parts, nil
	case []any:
		if len(v) == 0 {
			return def, nil
		}
		out := make([]string, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string, got %T", key, i, item)
			}
			if strings.TrimSpace(s) == "" {
				return nil, fmt.Errorf("%s[%d] is empty", key, i)
			}
			out[i] = s
		}
		return out, nil
	case []string:
		if len(v) == 0 {
			return def, nil
		}
		for i, s := range v {
			if strings.TrimSpace(s) == "" {
				return nil, fmt.Errorf("%s[%d] is empty", key, i)
			}
		}
		return v, nil
	default:
		return nil, fmt.Errorf("%s must be an array of strings or a comma-separated string, got %T", key, v)
	}
}

// intArg reads a JSON number argument.
func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}
