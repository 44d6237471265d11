// Package format renders CLI results as json, edn or a terminal table.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Formats lists the accepted --format values.
var Formats = []string{"json", "edn", "table"}

// Valid reports whether name is an accepted format ("" means json).
func Valid(name string) bool {
	if name == "" {
		return true
	}
	for _, f := range Formats {
		if f == name {
			return true
		}
	}
	return false
}

// Write writes v in the requested format. Table output renders the envelope's
// "data" value; the other formats write v as-is.
func Write(w io.Writer, v any, format string, pretty bool) error {
	switch strings.ToLower(format) {
	case "", "json":
		return WriteJSON(w, v, pretty)
	case "edn":
		return WriteEDN(w, v, pretty)
	case "table":
		return WriteTable(w, v, pretty)
	default:
		return fmt.Errorf("unknown format: %s (want %s)", format, strings.Join(Formats, "|"))
	}
}

// WriteJSON writes strict JSON. Hints for follow-up commands go in "meta" or
// "_hints", never as free text.
func WriteJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// generic round-trips v through JSON so structs follow their json tags.
func generic(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var x any
	if err := json.Unmarshal(b, &x); err != nil {
		return nil, err
	}
	return x, nil
}
