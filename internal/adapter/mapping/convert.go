package mapping

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

func toBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return false, err
		}
		return i != 0, nil
	case string:
		switch strings.ToLower(v) {
		case "true", "1":
			return true, nil
		case "false", "0":
			return false, nil
		default:
			return false, fmt.Errorf("invalid bool value %q", v)
		}
	case float64:
		return v != 0, nil
	case int64:
		return v != 0, nil
	case int:
		return v != 0, nil
	default:
		return false, fmt.Errorf("unsupported bool type %T", value)
	}
}

func toInt64(value any) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case json.Number:
		return v.Int64()
	case float64:
		return int64(v), nil
	case float32:
		return int64(v), nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("unsupported int type %T", value)
	}
}

func toString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("unsupported string type %T", value)
	}
}

func toStringSlice(value any) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return append([]string{}, v...), nil
	case []any:
		out := make([]string, 0, len(v))
		for i, item := range v {
			s, err := toString(item)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported list type %T", value)
	}
}

// toTime accepts RFC3339 strings, time values and unix milliseconds.
func toTime(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v.UTC(), nil
	case string:
		ts, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}, err
		}
		return ts.UTC(), nil
	default:
		ms, err := toInt64(value)
		if err != nil {
			return time.Time{}, fmt.Errorf("unsupported time type %T", value)
		}
		return time.UnixMilli(ms).UTC(), nil
	}
}

func formatTime(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339Nano)
}

// fieldReader pulls typed values out of a document map, remembering the
// first conversion error so codecs can read every field and check once.
type fieldReader struct {
	data map[string]any
	err  error
}

func (r *fieldReader) fail(key string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("field %q: %w", key, err)
	}
}

func (r *fieldReader) str(key string) string {
	raw, ok := r.data[key]
	if !ok || raw == nil {
		return ""
	}
	s, err := toString(raw)
	if err != nil {
		r.fail(key, err)
	}
	return s
}

func (r *fieldReader) boolean(key string) bool {
	raw, ok := r.data[key]
	if !ok || raw == nil {
		return false
	}
	b, err := toBool(raw)
	if err != nil {
		r.fail(key, err)
	}
	return b
}

func (r *fieldReader) integer(key string) int {
	raw, ok := r.data[key]
	if !ok || raw == nil {
		return 0
	}
	i, err := toInt64(raw)
	if err != nil {
		r.fail(key, err)
	}
	return int(i)
}

func (r *fieldReader) strings(key string) []string {
	raw, ok := r.data[key]
	if !ok || raw == nil {
		return []string{}
	}
	list, err := toStringSlice(raw)
	if err != nil {
		r.fail(key, err)
		return []string{}
	}
	return list
}

func (r *fieldReader) timestamp(key string) *time.Time {
	raw, ok := r.data[key]
	if !ok || raw == nil {
		return nil
	}
	ts, err := toTime(raw)
	if err != nil {
		r.fail(key, err)
		return nil
	}
	return &ts
}

func (r *fieldReader) boolMap(key string) map[string]bool {
	out := map[string]bool{}
	raw, ok := r.data[key]
	if !ok || raw == nil {
		return out
	}
	m, ok := raw.(map[string]any)
	if !ok {
		r.fail(key, fmt.Errorf("unsupported map type %T", raw))
		return out
	}
	for k, v := range m {
		b, err := toBool(v)
		if err != nil {
			r.fail(key+"."+k, err)
			continue
		}
		out[k] = b
	}
	return out
}

func (r *fieldReader) intMap(key string) map[string]int {
	out := map[string]int{}
	raw, ok := r.data[key]
	if !ok || raw == nil {
		return out
	}
	m, ok := raw.(map[string]any)
	if !ok {
		r.fail(key, fmt.Errorf("unsupported map type %T", raw))
		return out
	}
	for k, v := range m {
		i, err := toInt64(v)
		if err != nil {
			r.fail(key+"."+k, err)
			continue
		}
		out[k] = int(i)
	}
	return out
}
