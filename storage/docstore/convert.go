package docstore

import "time"

// Field coercion helpers. Stored documents come back loosely typed and the
// concrete numeric type depends on the backend, so decoders go through these.

func String(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}

func Int(data map[string]interface{}, key string) int {
	switch v := data[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func Bool(data map[string]interface{}, key string) bool {
	if v, ok := data[key].(bool); ok {
		return v
	}
	return false
}

func Time(data map[string]interface{}, key string) time.Time {
	switch v := data[key].(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func StringSlice(data map[string]interface{}, key string) []string {
	switch v := data[key].(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func BoolMap(data map[string]interface{}, key string) map[string]bool {
	switch v := data[key].(type) {
	case map[string]bool:
		out := make(map[string]bool, len(v))
		for k, b := range v {
			out[k] = b
		}
		return out
	case map[string]interface{}:
		out := make(map[string]bool, len(v))
		for k, e := range v {
			if b, ok := e.(bool); ok {
				out[k] = b
			}
		}
		return out
	}
	return nil
}

func MapSlice(data map[string]interface{}, key string) []map[string]interface{} {
	switch v := data[key].(type) {
	case []map[string]interface{}:
		return v
	case []interface{}:
		out := make([]map[string]interface{}, 0, len(v))
		for _, e := range v {
			if m, ok := e.(map[string]interface{}); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}
