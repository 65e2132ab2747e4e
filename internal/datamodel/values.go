package datamodel

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// parseWire converts a wire string into the Go value of its declared type
func parseWire(t ParamType, s string) (any, error) {
	s = strings.TrimSpace(s)
	switch t {
	case TypeBoolean:
		switch strings.ToLower(s) {
		case "1", "true":
			return true, nil
		case "0", "false":
			return false, nil
		}
		return nil, fmt.Errorf("invalid boolean %q", s)
	case TypeInt:
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("invalid int %q", s)
		}
		return n, nil
	case TypeUnsignedInt:
		n, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid unsignedInt %q", s)
		}
		return int(n), nil
	case TypeString:
		return s, nil
	default:
		return nil, fmt.Errorf("cannot parse %s values", t)
	}
}

// formatWire renders a value of the declared type as a wire string
func formatWire(t ParamType, v any) (string, error) {
	switch t {
	case TypeBoolean:
		b, ok := v.(bool)
		if !ok {
			return "", fmt.Errorf("want bool, got %T", v)
		}
		if b {
			return "true", nil
		}
		return "false", nil
	case TypeInt:
		n, err := ToInt(v)
		if err != nil {
			return "", err
		}
		return strconv.Itoa(n), nil
	case TypeUnsignedInt:
		n, err := ToInt(v)
		if err != nil {
			return "", err
		}
		if n < 0 {
			return "", fmt.Errorf("negative unsignedInt %d", n)
		}
		return strconv.Itoa(n), nil
	case TypeString:
		switch s := v.(type) {
		case string:
			return s, nil
		case fmt.Stringer:
			return s.String(), nil
		}
		return fmt.Sprint(v), nil
	default:
		return "", fmt.Errorf("cannot format %s values", t)
	}
}

// ToInt converts integral numeric values to int
func ToInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case uint:
		return int(n), nil
	case uint32:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("non-integral value %v", n)
		}
		return int(n), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(n))
	default:
		return 0, fmt.Errorf("want integer, got %T", v)
	}
}

// ToFloat converts numeric values to float64
func ToFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(n), 64)
	default:
		i, err := ToInt(v)
		if err != nil {
			return 0, fmt.Errorf("want number, got %T", v)
		}
		return float64(i), nil
	}
}

// Equal compares two semantic values, treating numbers of different
// Go types as equal when they hold the same value
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if isNumber(a) && isNumber(b) {
		fa, errA := ToFloat(a)
		fb, errB := ToFloat(b)
		return errA == nil && errB == nil && fa == fb
	}
	return a == b
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int32, int64, uint, uint32, uint64, float32, float64:
		return true
	}
	return false
}
