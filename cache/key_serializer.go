package cache

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// KeySeparator joins the segments of a cache key.
const KeySeparator = "::"

// defaultKeySerializer renders method arguments into stable key segments.
// Scalars keep their literal form, Stringer types use their String output,
// and composite values get a length-prefixed rendering with map entries
// sorted so the same arguments always produce the same key.
type defaultKeySerializer struct{}

// NewDefaultKeySerializer returns the serializer used when no custom one is
// configured.
func NewDefaultKeySerializer() KeySerializer {
	return &defaultKeySerializer{}
}

// SerializeKey builds a cache key from the method name and its arguments.
func (s *defaultKeySerializer) SerializeKey(method string, args ...any) string {
	if len(args) == 0 {
		return method
	}

	var b strings.Builder
	b.WriteString(method)
	for _, arg := range args {
		b.WriteString(KeySeparator)
		b.WriteString(s.render(arg))
	}
	return b.String()
}

// render produces one key segment. Pointers unwrap first so *T and T render
// identically, and nil in any shape keeps an explicit marker rather than
// disappearing from the key.
func (s *defaultKeySerializer) render(v any) string {
	if v == nil {
		return "nil"
	}

	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Func:
		return fmt.Sprintf("func:%p", v)
	case reflect.Pointer:
		if rv.IsNil() {
			return "nil"
		}
		return s.render(rv.Elem().Interface())
	}

	// time.Time, decimal.Decimal and friends keep their identity in
	// unexported fields; their String output is the stable form.
	if str, ok := v.(fmt.Stringer); ok {
		return str.String()
	}

	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() {
			return "slice:nil"
		}
		return s.renderSeq("slice", rv)
	case reflect.Array:
		return s.renderSeq("array", rv)
	case reflect.Map:
		if rv.IsNil() {
			return "map:nil"
		}
		return s.renderMap(rv)
	case reflect.Struct:
		return s.renderStruct(rv)
	case reflect.Chan:
		return fmt.Sprintf("chan:%p", v)
	case reflect.Interface:
		if rv.IsNil() {
			return "interface:nil"
		}
		return s.render(rv.Elem().Interface())
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128,
		reflect.String:
		return fmt.Sprint(v)
	}

	return s.renderOpaque(v)
}

// renderSeq renders slices and arrays as label[len]:{e0,e1,...}.
func (s *defaultKeySerializer) renderSeq(label string, rv reflect.Value) string {
	parts := make([]string, rv.Len())
	for i := range parts {
		parts[i] = s.render(rv.Index(i).Interface())
	}
	return fmt.Sprintf("%s[%d]:{%s}", label, len(parts), strings.Join(parts, ","))
}

// renderMap renders map[len]:{k=v,...} ordered by rendered key, since Go's
// map iteration order would otherwise change the key between calls.
func (s *defaultKeySerializer) renderMap(rv reflect.Value) string {
	type pair struct{ k, v string }

	pairs := make([]pair, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		pairs = append(pairs, pair{
			k: s.render(iter.Key().Interface()),
			v: s.render(iter.Value().Interface()),
		})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].k < pairs[j].k })

	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = p.k + "=" + p.v
	}
	return fmt.Sprintf("map[%d]:{%s}", len(pairs), strings.Join(parts, ","))
}

// renderStruct renders exported fields in declaration order. Unexported
// fields cannot be read through reflection and are left out.
func (s *defaultKeySerializer) renderStruct(rv reflect.Value) string {
	rt := rv.Type()
	parts := make([]string, 0, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		parts = append(parts, field.Name+":"+s.render(rv.Field(i).Interface()))
	}
	return fmt.Sprintf("struct:{%s}", strings.Join(parts, ","))
}

// renderOpaque is the last resort for kinds with no literal form. Values
// that cannot marshal fall back to their type name.
func (s *defaultKeySerializer) renderOpaque(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "fallback:" + reflect.TypeOf(v).String()
	}
	return "json:" + string(data)
}
