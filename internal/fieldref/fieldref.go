// Package fieldref resolves record struct fields by storage column name and
// compares the loosely typed values that flow through cursors and query
// conditions.
package fieldref

import (
	"reflect"
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"
)

// SnakeName converts the provided string to snake_case using ASCII-aware rules.
// We keep this implementation local so we can aggressively strip punctuation
// (e.g. pointers, generic suffixes) that can show up in reflected type names;
// leaving those characters in a column name or cache namespace would break
// prefix-based lookups downstream.
func SnakeName(s string) string {
	if s == "" {
		return ""
	}

	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(runes) + len(runes)/2)

	lastUnderscore := false

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		switch {
		case unicode.IsUpper(r):
			if b.Len() > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if (unicode.IsLower(prev) || unicode.IsDigit(prev) || nextLower) && !lastUnderscore {
					b.WriteByte('_')
					lastUnderscore = true
				}
			}
			b.WriteRune(unicode.ToLower(r))
			lastUnderscore = false

		case unicode.IsLower(r):
			b.WriteRune(r)
			lastUnderscore = false

		case unicode.IsDigit(r):
			if b.Len() > 0 {
				prev := runes[i-1]
				if !unicode.IsDigit(prev) && prev != '_' && !lastUnderscore {
					b.WriteByte('_')
				}
			}
			b.WriteRune(r)
			lastUnderscore = false

		case r == '_':
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}

		case r == '-' || unicode.IsSpace(r):
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}

		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}

	return strings.Trim(b.String(), "_")
}

// TableName derives the storage namespace for a record type: the plural
// snake_case form of the struct name, mirroring how bun names tables.
func TableName(t reflect.Type) string {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil {
		return ""
	}
	return inflection.Plural(SnakeName(t.Name()))
}

// TableNameOf is the generic convenience over TableName.
func TableNameOf[T any]() string {
	var zero T
	return TableName(reflect.TypeOf(&zero).Elem())
}

// NewRecord allocates a fresh instance for pointer-typed records so adapters
// can scan into non-nil destinations. Non-pointer types come back as their
// zero value.
func NewRecord[T any]() T {
	var zero T
	t := reflect.TypeOf(&zero).Elem()
	if t.Kind() != reflect.Ptr {
		return zero
	}
	return reflect.New(t.Elem()).Interface().(T)
}

// Clone copies the top-level struct value behind a pointer-typed record.
// Nested reference fields are shared between the copies, which is safe as
// long as callers replace rather than mutate them.
func Clone[T any](rec T) T {
	v := reflect.ValueOf(rec)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return rec
	}
	cp := reflect.New(v.Elem().Type())
	cp.Elem().Set(v.Elem())
	return cp.Interface().(T)
}

// ColumnName returns the storage column for a struct field: the bun tag's
// column segment when present, otherwise the snake_case field name.
func ColumnName(field reflect.StructField) string {
	tag := field.Tag.Get("bun")
	if tag != "" && tag != "-" {
		if name := strings.Split(tag, ",")[0]; name != "" && !strings.Contains(name, ":") {
			return name
		}
	}
	return SnakeName(field.Name)
}

// Value extracts the named column's value from a record struct. Embedded
// structs are searched depth-first so base model fields resolve through
// domain types.
func Value(rec any, column string) (any, bool) {
	v := reflect.ValueOf(rec)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, false
	}
	return structValue(v, column)
}

func structValue(v reflect.Value, column string) (any, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() && !field.Anonymous {
			continue
		}

		fv := v.Field(i)
		if field.Anonymous {
			av := fv
			for av.Kind() == reflect.Ptr {
				if av.IsNil() {
					break
				}
				av = av.Elem()
			}
			if av.Kind() == reflect.Struct {
				if val, ok := structValue(av, column); ok {
					return val, true
				}
			}
			continue
		}

		if ColumnName(field) == column {
			if !fv.CanInterface() {
				return nil, false
			}
			return fv.Interface(), true
		}
	}
	return nil, false
}
