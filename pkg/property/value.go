package property

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Kind identifies which variant a [Value] holds.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindString
	KindNumber
	KindBool
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	default:
		return "invalid"
	}
}

// Value is a tagged union of string, number, boolean and numeric list.
// The zero Value is invalid and never produced by the constructors.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	list []float64
}

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number returns a numeric value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Int returns a numeric value holding i.
func Int(i int) Value { return Number(float64(i)) }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// List returns a numeric list value. The slice is copied.
func List(vals ...float64) Value {
	return Value{kind: KindList, list: slices.Clone(vals)}
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether v was produced by a constructor or decoder.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// AsString returns the string held by v.
func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }

// AsNumber returns the number held by v.
func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == KindNumber }

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsList returns a copy of the numeric list held by v.
func (v Value) AsList() ([]float64, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return slices.Clone(v.list), true
}

// Truthy reports whether v would be treated as set by the rendering engine:
// non-empty strings and lists, non-zero numbers and true.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindString:
		return v.str != ""
	case KindNumber:
		return v.num != 0
	case KindBool:
		return v.b
	case KindList:
		return len(v.list) > 0
	}
	return false
}

// Equal reports whether v and o hold the same variant and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindList:
		return slices.Equal(v.list, o.list)
	}
	return true
}

// String renders v the way the native property parser reads it.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return formatNumber(v.num)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindList:
		parts := make([]string, len(v.list))
		for i, f := range v.list {
			parts[i] = formatNumber(f)
		}
		return "[" + strings.Join(parts, ",") + "]"
	}
	return ""
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// MarshalJSON encodes v as a plain JSON string, number, boolean or array.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	}
	return nil, fmt.Errorf("marshal invalid property value")
}

// UnmarshalJSON decodes a JSON string, number, boolean or numeric array.
// Objects, null and non-numeric arrays are rejected.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty property value")
	}
	switch c := data[0]; {
	case c == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = String(s)
	case c == 't' || c == 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Bool(b)
	case c == '[':
		var list []float64
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("property list must hold numbers: %w", err)
		}
		*v = List(list...)
	case c == '-' || (c >= '0' && c <= '9'):
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("parse property number: %w", err)
		}
		*v = Number(f)
	default:
		return fmt.Errorf("unsupported property value %s", truncate(data, 32))
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// Parse interprets a textual value: booleans, numbers and bracketed numeric
// lists are recognised, anything else is a string.
func Parse(s string) Value {
	t := strings.TrimSpace(s)
	switch strings.ToLower(t) {
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}
	if f, err := strconv.ParseFloat(t, 64); err == nil {
		return Number(f)
	}
	if strings.HasPrefix(t, "[") && strings.HasSuffix(t, "]") {
		var list []float64
		if err := json.Unmarshal([]byte(t), &list); err == nil {
			return List(list...)
		}
	}
	return String(s)
}

// ParseAssignment splits "key=value" and parses the value with [Parse].
func ParseAssignment(s string) (string, Value, error) {
	k, val, ok := strings.Cut(s, "=")
	k = Key(k)
	if !ok || k == "" {
		return "", Value{}, fmt.Errorf("invalid property assignment %q (want key=value)", s)
	}
	return k, Parse(val), nil
}
