package listedit

import (
	"context"
	"fmt"

	"placeholder-cli/internal/model"
	"placeholder-cli/internal/resource"
)

// Row is a record in untyped form, for code that handles every resource alike.
type Row struct {
	ID     int
	Label  string
	Fields resource.Fields
	Record map[string]any
}

// View is an Editor with its record type erased.
type View interface {
	Spec() resource.Spec
	Load(ctx context.Context, f Filter) error
	Rows() []Row
	Row(id int) (Row, bool)
	Create(ctx context.Context, fields resource.Fields) (Row, error)
	Update(ctx context.Context, id int, fields resource.Fields) error
	Toggle(ctx context.Context, id int, field string) error
	Remove(ctx context.Context, id int) error
	Fetch(ctx context.Context, id int) (Row, error)

	Select(id int) error
	ClearSelection()
	Selected() (int, bool)
	EditSelected(name string, value any) error
	SaveSelected(ctx context.Context) error

	SetField(id int, name string, value any) error
	Buffer(id int) (resource.Fields, bool)
	Changes(id int) (resource.Fields, bool)
	BufferIDs() []int

	Filter() Filter
	LoadPhase() Phase
	Submitting(id int) bool
	LastError() error
}

type erased[T Record] struct {
	*Editor[T]
}

// Erase wraps e as a View.
func Erase[T Record](e *Editor[T]) View {
	return erased[T]{Editor: e}
}

func (v erased[T]) row(item T) Row {
	r := Row{ID: item.Key(), Label: item.Label()}
	if m, err := resource.ToMap(item); err == nil {
		r.Record = m
		r.Fields = resource.Extract(v.spec, m)
	}
	return r
}

func (v erased[T]) Rows() []Row {
	items := v.Items()
	out := make([]Row, 0, len(items))
	for _, it := range items {
		out = append(out, v.row(it))
	}
	return out
}

func (v erased[T]) Row(id int) (Row, bool) {
	it, ok := v.Item(id)
	if !ok {
		return Row{}, false
	}
	return v.row(it), true
}

func (v erased[T]) Create(ctx context.Context, fields resource.Fields) (Row, error) {
	it, err := v.Editor.Create(ctx, fields)
	if err != nil {
		return Row{}, err
	}
	return v.row(it), nil
}

func (v erased[T]) Fetch(ctx context.Context, id int) (Row, error) {
	it, err := v.Editor.Fetch(ctx, id)
	if err != nil {
		return Row{}, err
	}
	return v.row(it), nil
}

// Open builds the view for spec's resource.
func Open(spec resource.Spec, remote Remote, cfg Config) (View, error) {
	switch spec.Name {
	case resource.Posts.Name:
		return Erase(New[model.Post](spec, remote, cfg)), nil
	case resource.Comments.Name:
		return Erase(New[model.Comment](spec, remote, cfg)), nil
	case resource.Albums.Name:
		return Erase(New[model.Album](spec, remote, cfg)), nil
	case resource.Photos.Name:
		return Erase(New[model.Photo](spec, remote, cfg)), nil
	case resource.Todos.Name:
		return Erase(New[model.Todo](spec, remote, cfg)), nil
	case resource.Users.Name:
		return Erase(New[model.User](spec, remote, cfg)), nil
	default:
		return nil, fmt.Errorf("unknown resource %q", spec.Name)
	}
}

// OpenAll builds one view per known resource, in display order.
func OpenAll(remote Remote, cfg Config) ([]View, error) {
	specs := resource.All()
	out := make([]View, 0, len(specs))
	for _, s := range specs {
		v, err := Open(s, remote, cfg)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
