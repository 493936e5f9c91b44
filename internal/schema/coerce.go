package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// coerce converts JSON-decoded or form-decoded values to the field's Kind.
// Form submissions deliver every scalar as a string, so strings are parsed.
func coerce(raw any, f Field) (any, error) {
	switch f.Kind {
	case String:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%s must be a string", f.Name)
		}
		if f.Transform != nil {
			s = f.Transform(s)
		}
		return s, nil

	case Int:
		n, err := toFloat(raw)
		// float64(math.MaxInt64) rounds up to 2^63, which does not fit
		if err != nil || n != math.Trunc(n) || n < math.MinInt64 || n >= math.MaxInt64 {
			return nil, fmt.Errorf("%s must be an integer", f.Name)
		}
		return int64(n), nil

	case Number:
		n, err := toFloat(raw)
		if err != nil {
			return nil, fmt.Errorf("%s must be a valid number", f.Name)
		}
		return n, nil

	case Bool:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			s := strings.ToLower(strings.TrimSpace(v))
			if s == "on" {
				return true, nil
			}
			if b, err := strconv.ParseBool(s); err == nil {
				return b, nil
			}
		}
		return nil, fmt.Errorf("%s must be a boolean", f.Name)

	case StringList:
		list, err := toStringList(raw, f.SplitComma)
		if err != nil {
			return nil, fmt.Errorf("%s must be a %s", f.Name, f.Kind)
		}
		if f.Transform != nil {
			for i := range list {
				list[i] = f.Transform(list[i])
			}
		}
		return list, nil
	}
	return nil, fmt.Errorf("%s has unsupported kind", f.Name)
}

func toFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, fmt.Errorf("not a number: %q", v)
		}
		return n, nil
	}
	return 0, fmt.Errorf("not a number: %T", raw)
}

func toStringList(raw any, splitComma bool) ([]string, error) {
	switch v := raw.(type) {
	case []string:
		return append([]string{}, v...), nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("list element %v is not a string", item)
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		trimmed := strings.TrimSpace(v)
		if strings.HasPrefix(trimmed, "[") {
			var out []string
			if err := json.Unmarshal([]byte(trimmed), &out); err == nil {
				return out, nil
			}
		}
		if !splitComma {
			return []string{v}, nil
		}
		out := []string{}
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported list type %T", raw)
}
