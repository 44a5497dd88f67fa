package impact

import (
	"fmt"
	"reflect"

	"github.com/ecobalance/impact-balance/internal/models"
)

// Sanitize normalizes a free-form value for JSONB persistence. Typed-nil
// pointers and interfaces become plain nils (stored as explicit null),
// maps and slices are walked recursively, and everything else passes
// through untouched. Applying Sanitize twice yields the same value.
func Sanitize(v any) any {
	if v == nil {
		return nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return Sanitize(rv.Elem().Interface())
	case reflect.Map:
		if rv.IsNil() {
			return nil
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = Sanitize(iter.Value().Interface())
		}
		return out
	case reflect.Slice:
		if rv.IsNil() {
			return nil
		}
		fallthrough
	case reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = Sanitize(rv.Index(i).Interface())
		}
		return out
	default:
		return v
	}
}

// SanitizeInput returns the form input with its free-form metadata
// normalized for storage. Typed fields need no treatment; only the Extra
// map can carry arbitrary values.
func SanitizeInput(input models.EventFormInput) models.EventFormInput {
	if input.Extra == nil {
		return input
	}
	sanitized, _ := Sanitize(input.Extra).(map[string]any)
	input.Extra = sanitized
	return input
}
