package resource

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Fields maps a field name (dotted path) to a string or bool value.
type Fields map[string]any

func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

func (f Fields) Names() []string {
	out := make([]string, 0, len(f))
	for k := range f {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// String returns the value of name as display text ("" when missing).
func (f Fields) String(name string) string {
	return Display(f[name])
}

func (f Fields) Bool(name string) bool {
	b, _ := f[name].(bool)
	return b
}

// Nest expands dotted names into nested JSON objects:
// {"address.city": "x"} becomes {"address": {"city": "x"}}.
func (f Fields) Nest() map[string]any {
	out := map[string]any{}
	for _, name := range f.Names() {
		Assign(out, name, f[name])
	}
	return out
}

// Extract reads the spec's editable fields out of a decoded record.
func Extract(spec Spec, rec map[string]any) Fields {
	out := make(Fields, len(spec.Fields))
	for _, fd := range spec.Fields {
		v, ok := At(rec, fd.Name)
		switch fd.Kind {
		case KindBool:
			b, _ := v.(bool)
			out[fd.Name] = b
		default:
			if !ok || v == nil {
				out[fd.Name] = ""
				continue
			}
			out[fd.Name] = Display(v)
		}
	}
	return out
}

// At follows a dotted path through nested objects.
func At(m map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var cur any = m
	for _, p := range parts {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Assign sets a dotted path, creating (or replacing non-object) parents as needed.
func Assign(m map[string]any, path string, v any) {
	parts := strings.Split(path, ".")
	cur := m
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[p] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = v
}

// Display renders a decoded JSON value as a single line of text.
func Display(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		if float64(int64(t)) == t {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// ParseValue converts raw text (from a flag or text input) into the field's kind.
func ParseValue(fd Field, raw string) (any, error) {
	if fd.Kind == KindBool {
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%s: expected true or false, got %q", fd.Name, raw)
		}
		return b, nil
	}
	return raw, nil
}

// ParseAssignments parses "name=value" pairs against spec.
func ParseAssignments(spec Spec, pairs []string) (Fields, error) {
	out := Fields{}
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid assignment %q (want name=value)", pair)
		}
		name = strings.TrimSpace(name)
		fd, ok := spec.Field(name)
		if !ok {
			return nil, fmt.Errorf("%s has no editable field %q (fields: %s)", spec.Name, name, strings.Join(spec.FieldNames(), ", "))
		}
		v, err := ParseValue(fd, raw)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

// ToMap converts a record into its generic JSON object form.
func ToMap(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

// FromMap decodes a generic JSON object into out.
func FromMap(m map[string]any, out any) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
