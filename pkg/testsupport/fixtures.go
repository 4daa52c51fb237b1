// Package testsupport holds the fixture and golden-file helpers shared by
// the engine's test suites.
package testsupport

import (
	"bytes"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"testing"
)

var update = flag.Bool("update", false, "rewrite golden files with current output")

// FixturePath resolves a file under the package's testdata directory.
func FixturePath(name string) string {
	return filepath.Join("testdata", name)
}

// GoldenPath resolves a file under testdata/golden.
func GoldenPath(name string) string {
	return filepath.Join("testdata", "golden", name)
}

// LoadFixtureJSON decodes the JSON fixture at path into dest.
func LoadFixtureJSON(t *testing.T, path string, dest any) {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("load fixture %s: %v", path, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		t.Fatalf("decode fixture %s: %v", path, err)
	}
}

// Fixture decodes the JSON fixture at testdata/name into a fresh T.
func Fixture[T any](t *testing.T, name string) T {
	t.Helper()

	var v T
	LoadFixtureJSON(t, FixturePath(name), &v)
	return v
}

// Golden compares got against the golden file at path, byte for byte.
// Running the tests with -update rewrites the file instead of comparing.
func Golden(t *testing.T, path string, got []byte) {
	t.Helper()

	if *update {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("create golden dir for %s: %v", path, err)
		}
		if err := os.WriteFile(path, got, 0o644); err != nil {
			t.Fatalf("write golden %s: %v", path, err)
		}
		return
	}

	want, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden %s: %v (run with -update to create it)", path, err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("golden mismatch for %s:\nwant:\n%s\ngot:\n%s", path, want, got)
	}
}

// GoldenJSON marshals got with two-space indentation, appends a trailing
// newline, and compares the result against the golden file at path.
func GoldenJSON(t *testing.T, path string, got any) {
	t.Helper()

	data, err := json.MarshalIndent(got, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden payload for %s: %v", path, err)
	}
	Golden(t, path, append(data, '\n'))
}
