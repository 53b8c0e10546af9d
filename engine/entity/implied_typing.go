package entity

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is a typed property value. Values parsed from text hold bool, int32, int64, uint32, uint64, float32,
// []int32, []float32 or string.
type Value struct {
	raw any
}

// NewValue wraps v.
func NewValue(v any) Value {
	return Value{raw: v}
}

// Raw returns the wrapped value.
func (v Value) Raw() any {
	return v.raw
}

// IsString reports whether the value is held as text.
func (v Value) IsString() bool {
	_, ok := v.raw.(string)
	return ok
}

// Int returns the value as a signed integer. Unsigned values that do not fit are rejected.
func (v Value) Int() (int64, bool) {
	switch x := v.raw.(type) {
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint32:
		return int64(x), true
	case uint64:
		if x > math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	}
	return 0, false
}

// Float returns the value as a float. Integers convert.
func (v Value) Float() (float64, bool) {
	switch x := v.raw.(type) {
	case float32:
		return float64(x), true
	case float64:
		return x, true
	}
	if i, ok := v.Int(); ok {
		return float64(i), true
	}
	return 0, false
}

// Bool returns the value as a bool.
func (v Value) Bool() (bool, bool) {
	b, ok := v.raw.(bool)
	return b, ok
}

// Vector returns a vector value as floats.
func (v Value) Vector() ([]float32, bool) {
	switch x := v.raw.(type) {
	case []float32:
		return x, true
	case []int32:
		out := make([]float32, len(x))
		for i, e := range x {
			out[i] = float32(e)
		}
		return out, true
	}
	return nil, false
}

func (v Value) String() string {
	switch x := v.raw.(type) {
	case nil:
		return ""
	case string:
		return x
	case []int32:
		return formatVector(x)
	case []float32:
		return formatVector(x)
	}
	return fmt.Sprint(v.raw)
}

func formatVector[T int32 | float32](xs []T) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprint(x)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// ParseImplied types a literal by its spelling: true/false are bools, integers become int32 (int64 when they do not
// fit, uint32/uint64 with a u suffix), numbers with a fraction, an exponent or an f suffix become float32, and
// brace-enclosed comma separated numbers become vectors. Anything else is kept as a string.
//
// Parameters:
//   - s: the literal
//
// Returns:
//   - Value: the typed value
func ParseImplied(s string) Value {
	t := strings.TrimSpace(s)
	switch strings.ToLower(t) {
	case "true":
		return Value{raw: true}
	case "false":
		return Value{raw: false}
	}

	if strings.HasPrefix(t, "{") && strings.HasSuffix(t, "}") {
		if v, ok := parseVector(t[1 : len(t)-1]); ok {
			return v
		}
		return Value{raw: s}
	}
	if v, ok := parseScalar(t); ok {
		return v
	}
	return Value{raw: s}
}

func parseVector(body string) (Value, bool) {
	parts := strings.Split(body, ",")
	scalars := make([]Value, 0, len(parts))
	isFloat := false
	for _, p := range parts {
		v, ok := parseScalar(strings.TrimSpace(p))
		if !ok {
			return Value{}, false
		}
		if _, f := v.raw.(float32); f {
			isFloat = true
		}
		scalars = append(scalars, v)
	}

	if isFloat {
		out := make([]float32, len(scalars))
		for i, v := range scalars {
			f, _ := v.Float()
			out[i] = float32(f)
		}
		return Value{raw: out}, true
	}
	out := make([]int32, len(scalars))
	for i, v := range scalars {
		n, ok := v.Int()
		if !ok || n < math.MinInt32 || n > math.MaxInt32 {
			return Value{}, false
		}
		out[i] = int32(n)
	}
	return Value{raw: out}, true
}

func parseScalar(t string) (Value, bool) {
	if t == "" || !strings.ContainsAny(t[:1], "0123456789+-.") {
		return Value{}, false
	}

	if body, ok := strings.CutSuffix(strings.ToLower(t), "u"); ok && !strings.HasPrefix(body, "-") {
		u, err := strconv.ParseUint(body, 0, 64)
		if err != nil {
			return Value{}, false
		}
		if u <= math.MaxUint32 {
			return Value{raw: uint32(u)}, true
		}
		return Value{raw: u}, true
	}

	if i, err := strconv.ParseInt(t, 0, 64); err == nil {
		if i >= math.MinInt32 && i <= math.MaxInt32 {
			return Value{raw: int32(i)}, true
		}
		return Value{raw: i}, true
	}

	body := t
	if !strings.HasPrefix(strings.ToLower(t), "0x") {
		body = strings.TrimSuffix(strings.TrimSuffix(t, "f"), "F")
	}
	f, err := strconv.ParseFloat(body, 32)
	if err != nil {
		return Value{}, false
	}
	return Value{raw: float32(f)}, true
}
