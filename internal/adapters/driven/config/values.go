// Package config holds the value conversions shared by the ConfigStore
// adapters. Values arrive either from Go callers or from TOML decoding,
// where integers are int64 and arrays are []any.
package config

// String returns v as a string, or "" if it is not one.
func String(v any) string {
	s, _ := v.(string)
	return s
}

// Int returns v as an int, or 0 if it is not numeric.
func Int(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

// Bool returns v as a bool, or false if it is not one.
func Bool(v any) bool {
	b, _ := v.(bool)
	return b
}

// StringSlice returns v as a string slice, dropping non-string items.
// It returns nil if v is not a slice.
func StringSlice(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}
