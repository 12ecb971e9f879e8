package listenpg

import (
	"strconv"
	"strings"
)

// Value is a tagged scalar carried in exchange and binding arguments.
// Host frameworks hand these over as loosely-typed values; normalization
// happens once at the boundary so the rest of the relay never inspects
// raw interface values.
type Value struct {
	str  string
	num  int64
	kind valueKind
}

type valueKind int

const (
	kindNone valueKind = iota
	kindString
	kindInt
)

func StringValue(s string) Value { return Value{kind: kindString, str: s} }
func IntValue(i int64) Value     { return Value{kind: kindInt, num: i} }

// Text returns the textual form of the value. Integer values render in
// base 10, so binary, numeric, and textual encodings of the same value
// resolve identically.
func (v Value) Text() (string, bool) {
	switch v.kind {
	case kindString:
		return v.str, true
	case kindInt:
		return strconv.FormatInt(v.num, 10), true
	default:
		return "", false
	}
}

// Int64 returns the numeric form of the value. Textual values parse if
// they hold a base-10 integer.
func (v Value) Int64() (int64, bool) {
	switch v.kind {
	case kindInt:
		return v.num, true
	case kindString:
		n, err := strconv.ParseInt(strings.TrimSpace(v.str), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// IsSet reports whether the value holds anything.
func (v Value) IsSet() bool { return v.kind != kindNone }

// NormalizeValue converts a loosely-typed host value into a Value.
// Unsupported kinds normalize to the unset value rather than erroring.
func NormalizeValue(raw any) Value {
	switch t := raw.(type) {
	case string:
		return StringValue(t)
	case []byte:
		return StringValue(string(t))
	case int:
		return IntValue(int64(t))
	case int8:
		return IntValue(int64(t))
	case int16:
		return IntValue(int64(t))
	case int32:
		return IntValue(int64(t))
	case int64:
		return IntValue(t)
	case uint8:
		return IntValue(int64(t))
	case uint16:
		return IntValue(int64(t))
	case uint32:
		return IntValue(int64(t))
	case float64:
		if t == float64(int64(t)) {
			return IntValue(int64(t))
		}
		return Value{}
	default:
		return Value{}
	}
}

// Arguments maps argument names to normalized scalar values.
type Arguments map[string]Value

// NormalizeArguments converts a raw host argument table.
func NormalizeArguments(raw map[string]any) Arguments {
	if len(raw) == 0 {
		return nil
	}
	args := make(Arguments, len(raw))
	for k, v := range raw {
		args[k] = NormalizeValue(v)
	}
	return args
}
