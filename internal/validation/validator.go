package validation

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Validator checks struct fields against their `validate` tags.
// Supported rules: required, min=N, max=N. For strings min and max bound
// the length, for numbers the value.
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates a struct
func (v *Validator) Validate(s interface{}) error {
	val := reflect.ValueOf(s)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return fmt.Errorf("validate expects a struct")
	}

	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		tag := fieldType.Tag.Get("validate")

		if tag == "" {
			continue
		}

		if err := v.validateField(field, tag); err != nil {
			return fmt.Errorf("%s: %w", fieldName(fieldType), err)
		}
	}

	return nil
}

// validateField validates a single field
func (v *Validator) validateField(field reflect.Value, tag string) error {
	for _, rule := range strings.Split(tag, ",") {
		name, arg, _ := strings.Cut(rule, "=")

		switch name {
		case "required":
			if field.IsZero() {
				return fmt.Errorf("field is required")
			}

		case "min", "max":
			bound, err := strconv.ParseFloat(arg, 64)
			if err != nil {
				return fmt.Errorf("bad %s rule %q", name, arg)
			}
			n, isLen, ok := measure(field)
			if !ok {
				continue
			}
			if name == "min" && n < bound {
				if isLen {
					return fmt.Errorf("minimum length is %s", arg)
				}
				return fmt.Errorf("minimum is %s", arg)
			}
			if name == "max" && n > bound {
				if isLen {
					return fmt.Errorf("maximum length is %s", arg)
				}
				return fmt.Errorf("maximum is %s", arg)
			}

		default:
			return fmt.Errorf("unknown rule %q", name)
		}
	}

	return nil
}

// measure returns the length of strings and slices or the value of numbers
func measure(field reflect.Value) (float64, bool, bool) {
	switch field.Kind() {
	case reflect.String, reflect.Slice, reflect.Map:
		return float64(field.Len()), true, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(field.Int()), false, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(field.Uint()), false, true
	case reflect.Float32, reflect.Float64:
		return field.Float(), false, true
	}
	return 0, false, false
}

// fieldName prefers the json name so errors match the request body
func fieldName(f reflect.StructField) string {
	if tag := f.Tag.Get("json"); tag != "" {
		if name, _, _ := strings.Cut(tag, ","); name != "" && name != "-" {
			return name
		}
	}
	return f.Name
}
