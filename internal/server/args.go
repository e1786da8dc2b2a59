package server

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/tax-filing-buddy/internal/common"
)

func invalidArg(format string, args ...any) error {
	return common.NewAppError("INVALID_ARGUMENT", fmt.Sprintf(format, args...), common.ErrInvalidInput)
}

func argString(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case fmt.Stringer:
		return t.String(), true
	}
	return fmt.Sprint(v), true
}

// argNumber accepts JSON numbers and numeric strings. A missing optional
// argument reads as 0.
func argNumber(args map[string]any, key string, required bool) (float64, error) {
	v, ok := args[key]
	if !ok || v == nil {
		if required {
			return 0, invalidArg("%s is required", key)
		}
		return 0, nil
	}
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, invalidArg("%s must be a number", key)
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(t, ",", "")), 64)
		if err != nil {
			return 0, invalidArg("%s must be a number", key)
		}
		return f, nil
	}
	return 0, invalidArg("%s must be a number", key)
}

// argStrings accepts a list of strings or a single comma-separated string.
func argStrings(args map[string]any, key string) ([]string, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return nil, nil
	}
	var out []string
	switch t := v.(type) {
	case []string:
		out = append(out, t...)
	case []any:
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, invalidArg("%s must be a list of strings", key)
			}
			out = append(out, s)
		}
	case string:
		for _, part := range strings.Split(t, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	default:
		return nil, invalidArg("%s must be a list of strings", key)
	}
	return out, nil
}
