// Package resource describes the demo API collections: their endpoint paths,
// editable fields, validation rules and ownership.
package resource

import "strings"

type Kind int

const (
	KindString Kind = iota
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	default:
		return "string"
	}
}

// Field is one editable value of a record. Name is a dotted JSON path
// ("title", "address.city").
type Field struct {
	Name     string
	Label    string
	Kind     Kind
	Required bool
	// Unique rejects a create whose value already exists in the loaded collection.
	Unique bool
	// Rule is a validator tag checked against non-empty text values ("email", "url").
	Rule string
}

// Tag is the full validator tag for the field's text value.
func (f Field) Tag() string {
	var parts []string
	switch {
	case f.Required:
		parts = append(parts, "notblank")
	case f.Rule != "":
		parts = append(parts, "omitempty")
	}
	if f.Rule != "" {
		parts = append(parts, f.Rule)
	}
	return strings.Join(parts, ",")
}

// Owner describes the foreign key a collection can be filtered by.
type Owner struct {
	// Field is the record's JSON key holding the owner id (e.g. "userId").
	Field string
	// Resource is the owning collection (e.g. "users").
	Resource string
	// Nested fetches scoped collections as /{Resource}/{id}/{collection}
	// instead of /{collection}?{Field}={id}.
	Nested bool
}

type Spec struct {
	Name     string
	Singular string
	Fields   []Field
	Owner    *Owner
	// Prepend inserts created records at the head of the collection.
	Prepend bool
	// Selectable views bind the edit form to a single selected record.
	Selectable bool
}

func (s Spec) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func (s Spec) Required() []Field {
	var out []Field
	for _, f := range s.Fields {
		if f.Required {
			out = append(out, f)
		}
	}
	return out
}

// BoolField returns the first boolean field, if any (todos' "completed").
func (s Spec) BoolField() (Field, bool) {
	for _, f := range s.Fields {
		if f.Kind == KindBool {
			return f, true
		}
	}
	return Field{}, false
}

// Title is the capitalised singular name used in notices ("Post created").
func (s Spec) Title() string {
	if s.Singular == "" {
		return s.Name
	}
	return strings.ToUpper(s.Singular[:1]) + s.Singular[1:]
}

// Heading is the capitalised collection name used for tabs and list titles.
func (s Spec) Heading() string {
	if s.Name == "" {
		return ""
	}
	return strings.ToUpper(s.Name[:1]) + s.Name[1:]
}

func (s Spec) FieldNames() []string {
	out := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		out = append(out, f.Name)
	}
	return out
}
