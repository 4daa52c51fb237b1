// Package cursor implements the opaque pagination token format used by the
// repository engine. A cursor is a URL-safe base64 envelope around a JSON
// object of sort-field values; clients must treat it as opaque.
package cursor

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
)

// Mapping holds the ordering values that position a row inside a sorted
// result set. Keys are column names (for example "created_at" and "id"),
// values are that row's values for those columns.
type Mapping map[string]any

// Encode serializes the mapping into an opaque URL-safe token. An empty or
// nil mapping encodes to the empty string. Serialization failures also yield
// the empty string, so a page response degrades to "no cursor" instead of
// failing the whole request.
func Encode(m Mapping) string {
	if len(m) == 0 {
		return ""
	}

	data, err := json.Marshal(m)
	if err != nil {
		return ""
	}

	return base64.RawURLEncoding.EncodeToString(data)
}

// Decode parses a token produced by Encode, logging through slog.Default.
// See DecodeWith for the full contract.
func Decode(token string) Mapping {
	return DecodeWith(slog.Default(), token)
}

// DecodeWith parses a token produced by Encode. The empty string yields an
// empty Mapping. A token that fails base64 or JSON decoding yields an empty
// Mapping and one warning through the provided logger; it never returns an
// error, so a tampered or truncated cursor degrades to first-page semantics
// rather than surfacing to the client.
//
// JSON round-tripping normalizes values: numbers come back as float64 and
// times as RFC3339 strings. Consumers comparing cursor values against typed
// columns must normalize both sides before comparing.
func DecodeWith(logger *slog.Logger, token string) Mapping {
	if token == "" {
		return Mapping{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		logger.Warn("discarding malformed cursor", "error", err, "cursor", token)
		return Mapping{}
	}

	var m Mapping
	if err := json.Unmarshal(data, &m); err != nil {
		logger.Warn("discarding malformed cursor", "error", err, "cursor", token)
		return Mapping{}
	}
	if m == nil {
		m = Mapping{}
	}

	return m
}
