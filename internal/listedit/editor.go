// Package listedit keeps a remote collection mirrored in local, editable state.
//
// An Editor loads a collection, seeds a per-id edit buffer from it, and applies
// creates, updates and deletes locally only after the remote call succeeded.
// State is guarded by a mutex that is never held across a network call, so
// several operations may be in flight at once; the last response to land wins.
package listedit

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"

	"placeholder-cli/internal/api"
	"placeholder-cli/internal/resource"

	"go.uber.org/zap"
)

// Record is a collection item with a server-assigned id.
type Record interface {
	Key() int
	Label() string
}

// Remote is the subset of the API client the editor needs.
type Remote interface {
	List(ctx context.Context, segments []string, q url.Values, out any) error
	Get(ctx context.Context, resource string, id int, out any) error
	Create(ctx context.Context, resource string, body any, out any) error
	Patch(ctx context.Context, resource string, id int, body any) error
	Delete(ctx context.Context, resource string, id int) error
}

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseLoaded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseLoaded:
		return "loaded"
	case PhaseFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Filter selects which subset of a collection is fetched.
// Owner 0 is the "all" sentinel.
type Filter struct {
	Owner  int
	Limit  int
	Offset int
}

func All() Filter { return Filter{} }

func Owned(id int) Filter { return Filter{Owner: id} }

func (f Filter) IsAll() bool { return f.Owner == 0 }

func (f Filter) String() string {
	if f.IsAll() {
		return "all"
	}
	return strconv.Itoa(f.Owner)
}

type Config struct {
	Logger *zap.Logger
	// DefaultOwner is sent as the owner id of records created while the filter is "all".
	DefaultOwner int
}

type Editor[T Record] struct {
	spec         resource.Spec
	remote       Remote
	log          *zap.Logger
	defaultOwner int

	mu       sync.Mutex
	items    []T
	buffer   map[int]resource.Fields
	filter   Filter
	phase    Phase
	lastErr  error
	inflight map[int]int
	selected int
	hasSel   bool
}

func New[T Record](spec resource.Spec, remote Remote, cfg Config) *Editor[T] {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	owner := cfg.DefaultOwner
	if owner <= 0 {
		owner = 1
	}
	return &Editor[T]{
		spec:         spec,
		remote:       remote,
		log:          log.With(zap.String("resource", spec.Name)),
		defaultOwner: owner,
		buffer:       map[int]resource.Fields{},
		inflight:     map[int]int{},
	}
}

func (e *Editor[T]) Spec() resource.Spec { return e.spec }

// segments returns the collection path and query for f.
func (e *Editor[T]) segments(f Filter) ([]string, url.Values, error) {
	q := url.Values{}
	if f.Limit > 0 {
		q.Set("_limit", strconv.Itoa(f.Limit))
	}
	if f.Offset > 0 {
		q.Set("_start", strconv.Itoa(f.Offset))
	}
	if f.IsAll() {
		return []string{e.spec.Name}, q, nil
	}
	o := e.spec.Owner
	if o == nil {
		return nil, nil, fmt.Errorf("%s cannot be filtered by owner", e.spec.Name)
	}
	if f.Owner < 0 {
		return nil, nil, fmt.Errorf("invalid owner id %d", f.Owner)
	}
	if o.Nested {
		return []string{o.Resource, strconv.Itoa(f.Owner), e.spec.Name}, q, nil
	}
	q.Set(o.Field, strconv.Itoa(f.Owner))
	return []string{e.spec.Name}, q, nil
}

// Load fetches the collection for f and, on success, replaces the items and
// re-seeds the edit buffer. On failure the previous state is kept.
func (e *Editor[T]) Load(ctx context.Context, f Filter) error {
	segs, q, err := e.segments(f)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.phase = PhaseLoading
	e.mu.Unlock()

	var raw []map[string]any
	err = e.remote.List(ctx, segs, q, &raw)
	if err != nil {
		e.log.Warn("load failed", zap.String("filter", f.String()), zap.Error(err))
		e.mu.Lock()
		e.phase = PhaseFailed
		e.lastErr = err
		e.mu.Unlock()
		return fmt.Errorf("load %s: %w", e.spec.Name, err)
	}

	items := make([]T, 0, len(raw))
	buffer := make(map[int]resource.Fields, len(raw))
	for _, rec := range raw {
		var item T
		if err := resource.FromMap(rec, &item); err != nil {
			e.mu.Lock()
			e.phase = PhaseFailed
			e.lastErr = err
			e.mu.Unlock()
			return fmt.Errorf("load %s: decode item: %w", e.spec.Name, err)
		}
		id := item.Key()
		if _, dup := buffer[id]; dup {
			e.log.Warn("duplicate id in collection", zap.Int("id", id))
			continue
		}
		items = append(items, item)
		buffer[id] = resource.Extract(e.spec, rec)
	}

	e.mu.Lock()
	e.items = items
	e.buffer = buffer
	e.filter = f
	e.phase = PhaseLoaded
	e.lastErr = nil
	if e.hasSel {
		if _, ok := buffer[e.selected]; !ok {
			e.hasSel = false
			e.selected = 0
		}
	}
	e.mu.Unlock()

	e.log.Debug("loaded", zap.String("filter", f.String()), zap.Int("count", len(items)))
	return nil
}

// Create validates fields, POSTs them and inserts the server's record.
func (e *Editor[T]) Create(ctx context.Context, fields resource.Fields) (T, error) {
	var zero T

	e.mu.Lock()
	existing := make(map[int]resource.Fields, len(e.items))
	for _, it := range e.items {
		existing[it.Key()] = e.committed(it)
	}
	owner := e.filter.Owner
	e.mu.Unlock()

	if err := validateCreate(e.spec, fields, existing); err != nil {
		return zero, err
	}

	body := fields.Nest()
	if o := e.spec.Owner; o != nil {
		if owner == 0 {
			owner = e.defaultOwner
		}
		body[o.Field] = owner
	}

	e.begin(0)
	defer e.end(0)

	var resp map[string]any
	if err := e.remote.Create(ctx, e.spec.Name, body, &resp); err != nil {
		return zero, e.fail("create", 0, err)
	}
	if _, ok := resp["id"].(float64); !ok {
		return zero, e.fail("create", 0, errors.New("response has no numeric id"))
	}

	// The response echoes the body; fill in anything it left out.
	rec := body
	for k, v := range resp {
		rec[k] = v
	}
	var item T
	if err := resource.FromMap(rec, &item); err != nil {
		return zero, e.fail("create", 0, fmt.Errorf("decode response: %w", err))
	}
	id := item.Key()

	e.mu.Lock()
	if i := e.indexOf(id); i >= 0 {
		// Some servers hand out the same id for every create; keep ids unique.
		e.log.Warn("create returned a loaded id; replacing it", zap.Int("id", id))
		e.items[i] = item
	} else if e.spec.Prepend {
		e.items = append([]T{item}, e.items...)
	} else {
		e.items = append(e.items, item)
	}
	e.buffer[id] = resource.Extract(e.spec, rec)
	e.lastErr = nil
	e.mu.Unlock()

	e.log.Debug("created", zap.Int("id", id))
	return item, nil
}

// Update PATCHes only the given fields of id and merges them locally on success.
// An id missing from the collection is still sent; nothing is merged locally.
func (e *Editor[T]) Update(ctx context.Context, id int, fields resource.Fields) error {
	if err := validateUpdate(e.spec, fields); err != nil {
		return err
	}

	e.begin(id)
	defer e.end(id)

	if err := e.remote.Patch(ctx, e.spec.Name, id, fields.Nest()); err != nil {
		return e.fail("update", id, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if i := e.indexOf(id); i >= 0 {
		merged, err := merge(e.items[i], fields)
		if err != nil {
			e.log.Warn("merge update", zap.Int("id", id), zap.Error(err))
		} else {
			e.items[i] = merged
		}
	}
	if buf, ok := e.buffer[id]; ok {
		for k, v := range fields {
			buf[k] = v
		}
	}
	e.lastErr = nil
	e.log.Debug("updated", zap.Int("id", id), zap.Strings("fields", fields.Names()))
	return nil
}

// Toggle flips a boolean field of id. An empty field name means the resource's
// first boolean field.
func (e *Editor[T]) Toggle(ctx context.Context, id int, field string) error {
	fd, ok := e.spec.BoolField()
	if field != "" {
		fd, ok = e.spec.Field(field)
	}
	if !ok || fd.Kind != resource.KindBool {
		return fmt.Errorf("%s: %w: no boolean field %q", e.spec.Name, ErrUnknownField, field)
	}

	e.mu.Lock()
	buf, found := e.buffer[id]
	var cur bool
	if found {
		cur = buf.Bool(fd.Name)
	}
	e.mu.Unlock()
	if !found {
		return fmt.Errorf("%s %d: %w", e.spec.Name, id, ErrNotFound)
	}
	return e.Update(ctx, id, resource.Fields{fd.Name: !cur})
}

// Remove DELETEs id and drops it locally on success.
func (e *Editor[T]) Remove(ctx context.Context, id int) error {
	e.begin(id)
	defer e.end(id)

	if err := e.remote.Delete(ctx, e.spec.Name, id); err != nil {
		return e.fail("delete", id, err)
	}

	e.mu.Lock()
	if i := e.indexOf(id); i >= 0 {
		e.items = append(e.items[:i:i], e.items[i+1:]...)
	}
	delete(e.buffer, id)
	if e.hasSel && e.selected == id {
		e.hasSel = false
		e.selected = 0
	}
	e.lastErr = nil
	e.mu.Unlock()

	e.log.Debug("deleted", zap.Int("id", id))
	return nil
}

// Fetch reads a single record without touching the collection.
func (e *Editor[T]) Fetch(ctx context.Context, id int) (T, error) {
	var item T
	if err := e.remote.Get(ctx, e.spec.Name, id, &item); err != nil {
		e.log.Warn("fetch failed", zap.Int("id", id), zap.Error(err))
		return item, fmt.Errorf("fetch %s %d: %w", e.spec.Name, id, err)
	}
	return item, nil
}

func (e *Editor[T]) Select(id int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.buffer[id]; !ok {
		return fmt.Errorf("%s %d: %w", e.spec.Name, id, ErrNotFound)
	}
	e.selected = id
	e.hasSel = true
	return nil
}

func (e *Editor[T]) ClearSelection() {
	e.mu.Lock()
	e.selected = 0
	e.hasSel = false
	e.mu.Unlock()
}

func (e *Editor[T]) Selected() (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selected, e.hasSel
}

// EditSelected sets a buffer field of the selected record.
func (e *Editor[T]) EditSelected(name string, value any) error {
	id, ok := e.Selected()
	if !ok {
		return ErrNoSelection
	}
	return e.SetField(id, name, value)
}

// SaveSelected submits the changed fields of the selected record.
func (e *Editor[T]) SaveSelected(ctx context.Context) error {
	id, ok := e.Selected()
	if !ok {
		return ErrNoSelection
	}
	changes, ok := e.Changes(id)
	if !ok {
		return fmt.Errorf("%s %d: %w", e.spec.Name, id, ErrNotFound)
	}
	return e.Update(ctx, id, changes)
}

// SetField changes one buffered value. It never talks to the remote.
func (e *Editor[T]) SetField(id int, name string, value any) error {
	fd, ok := e.spec.Field(name)
	if !ok {
		return fmt.Errorf("%s: %w %q", e.spec.Name, ErrUnknownField, name)
	}
	switch fd.Kind {
	case resource.KindBool:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("%s: %s must be true or false", e.spec.Name, name)
		}
	default:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("%s: %s must be text", e.spec.Name, name)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	buf, ok := e.buffer[id]
	if !ok {
		return fmt.Errorf("%s %d: %w", e.spec.Name, id, ErrNotFound)
	}
	buf[name] = value
	return nil
}

// Buffer returns a copy of id's in-progress values.
func (e *Editor[T]) Buffer(id int) (resource.Fields, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	buf, ok := e.buffer[id]
	if !ok {
		return nil, false
	}
	return buf.Clone(), true
}

// Changes returns the buffered values of id that differ from the committed
// record. A buffered id with no loaded record returns the whole entry.
func (e *Editor[T]) Changes(id int) (resource.Fields, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	buf, ok := e.buffer[id]
	if !ok {
		return nil, false
	}
	i := e.indexOf(id)
	if i < 0 {
		return buf.Clone(), true
	}
	saved := e.committed(e.items[i])
	out := resource.Fields{}
	for name, v := range buf {
		if saved[name] != v {
			out[name] = v
		}
	}
	return out, true
}

// BufferIDs returns the ids present in the edit buffer.
func (e *Editor[T]) BufferIDs() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]int, 0, len(e.buffer))
	for id := range e.buffer {
		out = append(out, id)
	}
	return out
}

func (e *Editor[T]) Items() []T {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]T(nil), e.items...)
}

func (e *Editor[T]) Item(id int) (T, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i := e.indexOf(id); i >= 0 {
		return e.items[i], true
	}
	var zero T
	return zero, false
}

func (e *Editor[T]) Filter() Filter {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.filter
}

func (e *Editor[T]) LoadPhase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// Submitting reports whether a mutation for id is in flight. Id 0 tracks creates.
func (e *Editor[T]) Submitting(id int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inflight[id] > 0
}

// LastError is the most recent remote failure, cleared by the next success.
func (e *Editor[T]) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

func (e *Editor[T]) begin(id int) {
	e.mu.Lock()
	e.inflight[id]++
	e.mu.Unlock()
}

func (e *Editor[T]) end(id int) {
	e.mu.Lock()
	if e.inflight[id] <= 1 {
		delete(e.inflight, id)
	} else {
		e.inflight[id]--
	}
	e.mu.Unlock()
}

func (e *Editor[T]) fail(op string, id int, err error) error {
	fields := []zap.Field{zap.Int("id", id), zap.Error(err)}
	if reqID, ok := api.RequestID(err); ok {
		fields = append(fields, zap.String("requestId", reqID))
	}
	e.log.Warn(op+" failed", fields...)
	e.mu.Lock()
	e.lastErr = err
	e.mu.Unlock()
	if id == 0 {
		return fmt.Errorf("%s %s: %w", op, e.spec.Singular, err)
	}
	return fmt.Errorf("%s %s %d: %w", op, e.spec.Singular, id, err)
}

// indexOf must be called with mu held.
func (e *Editor[T]) indexOf(id int) int {
	for i, it := range e.items {
		if it.Key() == id {
			return i
		}
	}
	return -1
}

// committed returns the saved (not buffered) field values of item.
func (e *Editor[T]) committed(item T) resource.Fields {
	m, err := resource.ToMap(item)
	if err != nil {
		return resource.Fields{}
	}
	return resource.Extract(e.spec, m)
}

func merge[T Record](item T, fields resource.Fields) (T, error) {
	m, err := resource.ToMap(item)
	if err != nil {
		return item, err
	}
	for name, v := range fields {
		resource.Assign(m, name, v)
	}
	var out T
	if err := resource.FromMap(m, &out); err != nil {
		return item, err
	}
	return out, nil
}
