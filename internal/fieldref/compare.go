package fieldref

import (
	"reflect"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Compare orders two loosely typed values. It returns (-1|0|1, true) when the
// values are comparable after normalization, and (0, false) otherwise.
//
// Normalization mirrors what cursor round-trips produce: integers and floats
// compare as float64, time.Time and RFC3339 strings compare as instants, and
// decimals compare through decimal.Cmp against numbers or numeric strings.
func Compare(a, b any) (int, bool) {
	a = indirect(a)
	b = indirect(b)

	if a == nil || b == nil {
		if a == nil && b == nil {
			return 0, true
		}
		return 0, false
	}

	if at, ok := a.(time.Time); ok {
		bt, ok := coerceTime(b)
		if !ok {
			return 0, false
		}
		return compareTimes(at, bt), true
	}
	if bt, ok := b.(time.Time); ok {
		at, ok := coerceTime(a)
		if !ok {
			return 0, false
		}
		return compareTimes(at, bt), true
	}

	if ad, ok := a.(decimal.Decimal); ok {
		bd, ok := coerceDecimal(b)
		if !ok {
			return 0, false
		}
		return ad.Cmp(bd), true
	}
	if bd, ok := b.(decimal.Decimal); ok {
		ad, ok := coerceDecimal(a)
		if !ok {
			return 0, false
		}
		return ad.Cmp(bd), true
	}

	if af, ok := asFloat(a); ok {
		bf, ok := asFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}

	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv), true
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0, true
			case !av:
				return -1, true
			default:
				return 1, true
			}
		}
	}

	return 0, false
}

// Equal reports whether two values are comparable and equal.
func Equal(a, b any) bool {
	c, ok := Compare(a, b)
	return ok && c == 0
}

func indirect(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.CanInterface() {
		return nil
	}
	return rv.Interface()
}

func compareTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

func coerceTime(v any) (time.Time, bool) {
	switch tv := v.(type) {
	case time.Time:
		return tv, true
	case string:
		if t, err := time.Parse(time.RFC3339Nano, tv); err == nil {
			return t, true
		}
		if t, err := time.Parse(time.RFC3339, tv); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func coerceDecimal(v any) (decimal.Decimal, bool) {
	switch dv := v.(type) {
	case decimal.Decimal:
		return dv, true
	case string:
		d, err := decimal.NewFromString(dv)
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	}
	if f, ok := asFloat(v); ok {
		return decimal.NewFromFloat(f), true
	}
	return decimal.Decimal{}, false
}

func asFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}
