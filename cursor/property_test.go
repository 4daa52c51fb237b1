//go:build property
// +build property

// Package cursor_test contains property-based tests for cursor token
// encode/decode stability.
package cursor_test

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/goliatone/go-repository-engine/cursor"
)

// TestEncodeDecodeRoundTrip verifies decode inverts encode.
// Property: Decode(Encode(m)) == m for JSON-representable mappings.
func TestEncodeDecodeRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("decode inverts encode", prop.ForAll(
		func(keys []string, strs []string, nums []float64, flags []bool) bool {
			m := cursor.Mapping{}
			for i, k := range keys {
				if k == "" {
					continue
				}
				switch i % 3 {
				case 0:
					if i < len(strs) {
						m[k] = strs[i]
					}
				case 1:
					if i < len(nums) {
						m[k] = nums[i]
					}
				case 2:
					if i < len(flags) {
						m[k] = flags[i]
					}
				}
			}

			decoded := cursor.Decode(cursor.Encode(m))
			if len(m) == 0 {
				return len(decoded) == 0
			}
			return reflect.DeepEqual(decoded, m)
		},
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.Float64Range(-1e9, 1e9)),
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t)
}

// TestDecodeNeverPanics verifies arbitrary tokens decode to a usable mapping.
// Property: Decode(token) != nil for any token.
func TestDecodeNeverPanics(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("arbitrary tokens decode to an empty or valid mapping", prop.ForAll(
		func(token string) bool {
			return cursor.Decode(token) != nil
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
