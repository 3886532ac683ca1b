package normalize

import (
	"encoding/json"
	"testing"
)

func TestToFloat(t *testing.T) {
	tests := []struct {
		in     any
		want   float64
		wantOK bool
	}{
		{1.5, 1.5, true},
		{json.Number("2.25"), 2.25, true},
		{"3", 3, true},
		{" 4.5 ", 4.5, true},
		{7, 7, true},
		{"", 0, false},
		{"abc", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
		{nil, 0, false},
		{true, 0, false},
		{[]any{1}, 0, false},
	}
	for _, tt := range tests {
		got, ok := ToFloat(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ToFloat(%#v) = (%v,%v), want (%v,%v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestToBool(t *testing.T) {
	tests := []struct {
		in     any
		want   bool
		wantOK bool
	}{
		{true, true, true},
		{"TRUE", true, true},
		{"0", false, true},
		{json.Number("1"), true, true},
		{"maybe", false, false},
		{nil, false, false},
	}
	for _, tt := range tests {
		got, ok := ToBool(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ToBool(%#v) = (%v,%v), want (%v,%v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestToString(t *testing.T) {
	tests := []struct {
		in     any
		want   string
		wantOK bool
	}{
		{"abc", "abc", true},
		{json.Number("12345678901234567890"), "12345678901234567890", true},
		{float64(16085), "16085", true},
		{0.25, "0.25", true},
		{nil, "", false},
		{map[string]any{}, "", false},
	}
	for _, tt := range tests {
		got, ok := ToString(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ToString(%#v) = (%q,%v), want (%q,%v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestToStringSlice(t *testing.T) {
	tests := []struct {
		name   string
		in     any
		want   []string
		wantOK bool
	}{
		{"native", []any{"a", "b"}, []string{"a", "b"}, true},
		{"encoded", `["x", 0.5]`, []string{"x", "0.5"}, true},
		{"encoded empty", `[]`, []string{}, true},
		{"encoded object", `{"a":1}`, nil, false},
		{"encoded null", `null`, nil, false},
		{"invalid json", `[1,`, nil, false},
		{"trailing garbage", `["Yes"]x`, nil, false},
		{"trailing second value", `["Yes"] ["No"]`, nil, false},
		{"trailing whitespace", "[\"Yes\"] \n", []string{"Yes"}, true},
		{"nested element", []any{"a", []any{"b"}}, nil, false},
		{"null element", []any{"a", nil}, nil, false},
		{"scalar", 3.0, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToStringSlice(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var items []any
	if err := DecodeJSON([]byte(`[1, "a"] `), &items); err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if _, ok := items[0].(json.Number); !ok {
		t.Fatalf("numbers must decode as json.Number, got %T", items[0])
	}
	if err := DecodeJSON([]byte(`[1]]`), &items); err == nil {
		t.Fatal("expected error for trailing bracket")
	}
}
