package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"
)

// ToString coerces a scalar JSON value to its string form. Numbers keep
// their shortest decimal representation so numeric IDs survive intact.
func ToString(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case json.Number:
		return val.String(), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case bool:
		return strconv.FormatBool(val), true
	default:
		return "", false
	}
}

// ToFloat coerces numbers and numeric strings. NaN and infinities are
// rejected.
func ToFloat(v any) (float64, bool) {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ToBool accepts JSON booleans, "true"/"false"/"1"/"0" strings and numbers.
func ToBool(v any) (bool, bool) {
	switch val := v.(type) {
	case bool:
		return val, true
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "1":
			return true, true
		case "false", "0":
			return false, true
		}
		return false, false
	default:
		if f, ok := ToFloat(v); ok {
			return f != 0, true
		}
		return false, false
	}
}

// ToStringSlice accepts a list or a string holding a JSON-encoded list.
// Scalar elements are stringified; a nested object, list or null element
// fails the whole value.
func ToStringSlice(v any) ([]string, bool) {
	var items []any
	switch val := v.(type) {
	case []any:
		items = val
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out, true
	case string:
		if err := DecodeJSON([]byte(val), &items); err != nil {
			return nil, false
		}
		if items == nil {
			return nil, false
		}
	default:
		return nil, false
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		switch item.(type) {
		case nil, map[string]any, []any:
			return nil, false
		}
		s, ok := ToString(item)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// DecodeJSON decodes exactly one JSON value from data with numbers kept as
// json.Number. Anything but whitespace after the value is an error.
func DecodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errTrailingData
	}
	return nil
}

var errTrailingData = errors.New("trailing data after json value")

func stringField(raw map[string]any, key string) string {
	s, _ := ToString(raw[key])
	return s
}

func floatField(raw map[string]any, key string) float64 {
	f, _ := ToFloat(raw[key])
	return f
}

func boolField(raw map[string]any, key string) bool {
	b, _ := ToBool(raw[key])
	return b
}

// optionalFloat returns nil when the key is absent, null or not numeric.
func optionalFloat(raw map[string]any, key string) *float64 {
	f, ok := ToFloat(raw[key])
	if !ok {
		return nil
	}
	return &f
}

// sliceField treats an absent or null key as an empty list. ok is false
// only when a value is present but cannot be coerced.
func sliceField(raw map[string]any, key string) ([]string, bool) {
	v, exists := raw[key]
	if !exists || v == nil {
		return []string{}, true
	}
	values, ok := ToStringSlice(v)
	if !ok {
		return []string{}, false
	}
	return values, true
}
