package listedit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"placeholder-cli/internal/api"
	"placeholder-cli/internal/model"
	"placeholder-cli/internal/resource"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type hit struct {
	Method string
	Path   string
	Query  string
	Body   map[string]any
}

type fakeRemote struct {
	mu   sync.Mutex
	hits []hit
}

func (f *fakeRemote) all() []hit {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]hit(nil), f.hits...)
}

// newRemote serves fn behind an api.Client and records every request.
func newRemote(t *testing.T, fn func(w http.ResponseWriter, r *http.Request)) (*api.Client, *fakeRemote) {
	t.Helper()
	rec := &fakeRemote{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := hit{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery}
		if b, _ := io.ReadAll(r.Body); len(b) > 0 {
			_ = json.Unmarshal(b, &h.Body)
		}
		rec.mu.Lock()
		rec.hits = append(rec.hits, h)
		rec.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		fn(w, r)
	}))
	t.Cleanup(srv.Close)
	c, err := api.New(srv.URL)
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	return c, rec
}

func reply(status int, body string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

// routes picks a reply by method; unknown methods get 500.
func routes(m map[string]string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		body, ok := m[r.Method]
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		status := http.StatusOK
		if r.Method == http.MethodPost {
			status = http.StatusCreated
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func loadedPosts(t *testing.T, fn func(http.ResponseWriter, *http.Request)) (*Editor[model.Post], *fakeRemote) {
	t.Helper()
	c, rec := newRemote(t, fn)
	e := New[model.Post](resource.Posts, c, Config{})
	if err := e.Load(context.Background(), All()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return e, rec
}

func bufferKeys(e interface{ BufferIDs() []int }) []int {
	ids := e.BufferIDs()
	sort.Ints(ids)
	return ids
}

func TestLoad_SeedsBufferFromCollection(t *testing.T) {
	t.Parallel()

	e, rec := loadedPosts(t, reply(200, `[{"id":1,"title":"A","body":"b","userId":1}]`))

	items := e.Items()
	if len(items) != 1 || items[0] != (model.Post{ID: 1, UserID: 1, Title: "A", Body: "b"}) {
		t.Fatalf("items: %#v", items)
	}
	buf, ok := e.Buffer(1)
	if !ok {
		t.Fatalf("expected buffer entry for 1")
	}
	want := resource.Fields{"title": "A", "body": "b"}
	if len(buf) != len(want) || buf["title"] != "A" || buf["body"] != "b" {
		t.Fatalf("buffer: got %#v, want %#v", buf, want)
	}
	if got := rec.all(); len(got) != 1 || got[0].Method != http.MethodGet || got[0].Path != "/posts" || got[0].Query != "" {
		t.Fatalf("requests: %+v", got)
	}
	if e.LoadPhase() != PhaseLoaded {
		t.Fatalf("phase: %v", e.LoadPhase())
	}
}

func TestLoad_BufferKeysMatchCollectionIDs(t *testing.T) {
	t.Parallel()

	e, _ := loadedPosts(t, reply(200, `[
		{"id":3,"title":"c","body":"x"},
		{"id":1,"title":"a","body":"x"},
		{"id":2,"title":"b","body":"x"},
		{"id":1,"title":"dup","body":"x"}
	]`))

	var ids []int
	for _, it := range e.Items() {
		ids = append(ids, it.ID)
	}
	if len(ids) != 3 {
		t.Fatalf("expected duplicate id to be dropped, got %v", ids)
	}
	sort.Ints(ids)
	keys := bufferKeys(e)
	if len(keys) != len(ids) {
		t.Fatalf("buffer keys %v != ids %v", keys, ids)
	}
	for i := range ids {
		if keys[i] != ids[i] {
			t.Fatalf("buffer keys %v != ids %v", keys, ids)
		}
	}
	if it, _ := e.Item(1); it.Title != "a" {
		t.Fatalf("first occurrence must win, got %q", it.Title)
	}
}

func TestLoad_OwnerFilterPaths(t *testing.T) {
	t.Parallel()

	c, rec := newRemote(t, reply(200, `[]`))
	ctx := context.Background()

	posts := New[model.Post](resource.Posts, c, Config{})
	if err := posts.Load(ctx, Owned(2)); err != nil {
		t.Fatalf("posts: %v", err)
	}
	comments := New[model.Comment](resource.Comments, c, Config{})
	if err := comments.Load(ctx, Owned(5)); err != nil {
		t.Fatalf("comments: %v", err)
	}
	photos := New[model.Photo](resource.Photos, c, Config{})
	if err := photos.Load(ctx, Filter{Owner: 7, Limit: 10, Offset: 20}); err != nil {
		t.Fatalf("photos: %v", err)
	}

	got := rec.all()
	want := []hit{
		{Method: "GET", Path: "/posts", Query: "userId=2"},
		{Method: "GET", Path: "/posts/5/comments"},
		{Method: "GET", Path: "/albums/7/photos", Query: "_limit=10&_start=20"},
	}
	if len(got) != len(want) {
		t.Fatalf("requests: %+v", got)
	}
	for i := range want {
		if got[i].Method != want[i].Method || got[i].Path != want[i].Path || got[i].Query != want[i].Query {
			t.Fatalf("request %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
	if posts.Filter() != Owned(2) {
		t.Fatalf("filter not recorded: %+v", posts.Filter())
	}

	users := New[model.User](resource.Users, c, Config{})
	if err := users.Load(ctx, Owned(1)); err == nil {
		t.Fatalf("users have no owner; expected error")
	}
}

func TestLoad_FailureKeepsPreviousState(t *testing.T) {
	t.Parallel()

	var fail atomic.Bool
	e, _ := loadedPosts(t, func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = io.WriteString(w, `[{"id":1,"title":"A","body":"b"}]`)
	})

	fail.Store(true)
	err := e.Load(context.Background(), Owned(4))
	if !api.IsStatus(err, 500) {
		t.Fatalf("expected 500 status error, got %v", err)
	}
	if len(e.Items()) != 1 || e.Filter() != All() {
		t.Fatalf("state changed on failed load: %v %+v", e.Items(), e.Filter())
	}
	if e.LoadPhase() != PhaseFailed || e.LastError() == nil {
		t.Fatalf("phase=%v lastErr=%v", e.LoadPhase(), e.LastError())
	}
}

func TestUpdate_PatchesSubmittedFieldsAndMerges(t *testing.T) {
	t.Parallel()

	e, rec := loadedPosts(t, routes(map[string]string{
		"GET":   `[{"id":1,"title":"A","body":"b","userId":1},{"id":2,"title":"B","body":"c","userId":1}]`,
		"PATCH": `{}`,
	}))

	if err := e.Update(context.Background(), 1, resource.Fields{"title": "A2", "body": "b"}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got := rec.all()[1]
	if got.Method != http.MethodPatch || got.Path != "/posts/1" {
		t.Fatalf("request: %+v", got)
	}
	if len(got.Body) != 2 || got.Body["title"] != "A2" || got.Body["body"] != "b" {
		t.Fatalf("patch body: %#v", got.Body)
	}
	items := e.Items()
	if items[0].Title != "A2" || items[0].UserID != 1 {
		t.Fatalf("item 1 not merged: %+v", items[0])
	}
	if items[1] != (model.Post{ID: 2, UserID: 1, Title: "B", Body: "c"}) {
		t.Fatalf("item 2 changed: %+v", items[1])
	}
	if buf, _ := e.Buffer(1); buf["title"] != "A2" {
		t.Fatalf("buffer not merged: %#v", buf)
	}
}

func TestUpdate_RemoteFailureLeavesStateUnchanged(t *testing.T) {
	t.Parallel()

	e, _ := loadedPosts(t, routes(map[string]string{
		"GET": `[{"id":1,"title":"A","body":"b"}]`,
	}))

	err := e.Update(context.Background(), 1, resource.Fields{"title": "A2"})
	var se *api.StatusError
	if !errors.As(err, &se) || se.StatusCode != 500 {
		t.Fatalf("expected status error, got %v", err)
	}
	if it, _ := e.Item(1); it.Title != "A" {
		t.Fatalf("item changed on failure: %+v", it)
	}
	if e.LastError() == nil {
		t.Fatalf("expected LastError to be set")
	}
	if e.Submitting(1) {
		t.Fatalf("in-flight counter not released")
	}
}

func TestUpdate_NestedUserFields(t *testing.T) {
	t.Parallel()

	c, rec := newRemote(t, routes(map[string]string{
		"GET":   `[{"id":1,"name":"Leanne","address":{"city":"Gwenborough","street":"Kulas"},"company":{"name":"Romaguera"}}]`,
		"PATCH": ``,
	}))
	e := New[model.User](resource.Users, c, Config{})
	ctx := context.Background()
	if err := e.Load(ctx, All()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := e.Update(ctx, 1, resource.Fields{"address.city": "Paris"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	body := rec.all()[1].Body
	addr, _ := body["address"].(map[string]any)
	if len(body) != 1 || addr["city"] != "Paris" {
		t.Fatalf("patch body: %#v", body)
	}
	it, _ := e.Item(1)
	if it.Address.City != "Paris" || it.Address.Street != "Kulas" {
		t.Fatalf("merged user: %+v", it.Address)
	}
}

func TestRemove_DropsItemAndBuffer(t *testing.T) {
	t.Parallel()

	e, rec := loadedPosts(t, routes(map[string]string{
		"GET":    `[{"id":1,"title":"A","body":"b"}]`,
		"DELETE": `{}`,
	}))

	if err := e.Remove(context.Background(), 1); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if got := rec.all()[1]; got.Method != http.MethodDelete || got.Path != "/posts/1" {
		t.Fatalf("request: %+v", got)
	}
	if len(e.Items()) != 0 {
		t.Fatalf("expected empty collection, got %v", e.Items())
	}
	if _, ok := e.Buffer(1); ok {
		t.Fatalf("buffer entry survived delete")
	}
}

func TestRemove_ClearsSelectionOfDeletedItemOnly(t *testing.T) {
	t.Parallel()

	c, _ := newRemote(t, routes(map[string]string{
		"GET":    `[{"id":1,"name":"a"},{"id":2,"name":"b"}]`,
		"DELETE": `{}`,
	}))
	e := New[model.User](resource.Users, c, Config{})
	ctx := context.Background()
	if err := e.Load(ctx, All()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := e.Select(1); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if err := e.Remove(ctx, 2); err != nil {
		t.Fatalf("Remove(2): %v", err)
	}
	if id, ok := e.Selected(); !ok || id != 1 {
		t.Fatalf("selection lost after unrelated delete: %d %v", id, ok)
	}
	if err := e.Remove(ctx, 1); err != nil {
		t.Fatalf("Remove(1): %v", err)
	}
	if _, ok := e.Selected(); ok {
		t.Fatalf("selection survived delete of selected item")
	}
	if err := e.EditSelected("name", "x"); !errors.Is(err, ErrNoSelection) {
		t.Fatalf("expected ErrNoSelection, got %v", err)
	}
}

func TestCreate_BlankRequiredFieldNeverCallsRemote(t *testing.T) {
	t.Parallel()

	e, rec := loadedPosts(t, routes(map[string]string{"GET": `[]`, "POST": `{"id":101}`}))

	for _, title := range []string{"", "   ", "\t\n"} {
		_, err := e.Create(context.Background(), resource.Fields{"title": title, "body": "x"})
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("title %q: expected *ValidationError, got %v", title, err)
		}
		if len(ve.Problems) != 1 || ve.Problems[0].Field != "title" {
			t.Fatalf("problems: %+v", ve.Problems)
		}
	}
	if err := e.Update(context.Background(), 1, resource.Fields{"body": " "}); !IsValidation(err) {
		t.Fatalf("update: expected validation error, got %v", err)
	}
	if n := len(rec.all()); n != 1 {
		t.Fatalf("expected only the initial GET, got %d requests", n)
	}
}

func TestCreate_TrustsServerIDAndPrepends(t *testing.T) {
	t.Parallel()

	e, rec := loadedPosts(t, routes(map[string]string{
		"GET":  `[{"id":1,"title":"A","body":"b","userId":1}]`,
		"POST": `{"id":101,"title":"New","body":"x","userId":3}`,
	}))
	if err := e.Load(context.Background(), Owned(3)); err != nil {
		t.Fatalf("Load: %v", err)
	}

	got, err := e.Create(context.Background(), resource.Fields{"title": "New", "body": "x"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got.ID != 101 {
		t.Fatalf("expected server id 101, got %d", got.ID)
	}
	post := rec.all()[2]
	if post.Method != http.MethodPost || post.Path != "/posts" || post.Body["userId"] != float64(3) {
		t.Fatalf("request: %+v", post)
	}
	items := e.Items()
	if len(items) != 2 || items[0].ID != 101 {
		t.Fatalf("expected created post first, got %+v", items)
	}
	if buf, ok := e.Buffer(101); !ok || buf["title"] != "New" {
		t.Fatalf("buffer: %#v", buf)
	}
}

func TestCreate_AppendsForAlbumsAndUsesDefaultOwner(t *testing.T) {
	t.Parallel()

	c, rec := newRemote(t, routes(map[string]string{
		"GET":  `[{"id":1,"userId":1,"title":"a"}]`,
		"POST": `{"id":101}`,
	}))
	e := New[model.Album](resource.Albums, c, Config{DefaultOwner: 4})
	ctx := context.Background()
	if err := e.Load(ctx, All()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := e.Create(ctx, resource.Fields{"title": "b"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if body := rec.all()[1].Body; body["userId"] != float64(4) {
		t.Fatalf("owner: %#v", body)
	}
	items := e.Items()
	if len(items) != 2 || items[1].ID != 101 || items[1].Title != "b" || items[1].UserID != 4 {
		t.Fatalf("expected appended album filled from request, got %+v", items)
	}
}

func TestCreate_RepeatedServerIDKeepsIDsUnique(t *testing.T) {
	t.Parallel()

	c, _ := newRemote(t, routes(map[string]string{
		"GET":  `[]`,
		"POST": `{"id":101}`,
	}))
	core, logs := observer.New(zapcore.WarnLevel)
	e := New[model.Post](resource.Posts, c, Config{Logger: zap.New(core)})
	ctx := context.Background()
	if err := e.Load(ctx, All()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	for _, title := range []string{"one", "two"} {
		if _, err := e.Create(ctx, resource.Fields{"title": title, "body": "x"}); err != nil {
			t.Fatalf("Create %s: %v", title, err)
		}
	}
	items := e.Items()
	if len(items) != 1 || items[0].Title != "two" {
		t.Fatalf("expected a single item holding the latest create, got %+v", items)
	}
	replaced := logs.FilterMessage("create returned a loaded id; replacing it").All()
	if len(replaced) != 1 || replaced[0].ContextMap()["id"] != int64(101) {
		t.Fatalf("expected one replace warning for id 101, got %+v", replaced)
	}
}

func TestCreateAndRemove_RemoteFailureLeavesStateUnchanged(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		run    func(ctx context.Context, e *Editor[model.Post]) error
		method string
		busyID int
		logMsg string
	}{
		{
			name: "create",
			run: func(ctx context.Context, e *Editor[model.Post]) error {
				_, err := e.Create(ctx, resource.Fields{"title": "new", "body": "x"})
				return err
			},
			method: http.MethodPost,
			busyID: 0,
			logMsg: "create failed",
		},
		{
			name: "remove",
			run: func(ctx context.Context, e *Editor[model.Post]) error {
				return e.Remove(ctx, 1)
			},
			method: http.MethodDelete,
			busyID: 1,
			logMsg: "delete failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, _ := newRemote(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method == http.MethodGet {
					_, _ = io.WriteString(w, `[{"id":1,"title":"A","body":"b","userId":1}]`)
					return
				}
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = io.WriteString(w, `{"error":"boom"}`)
			})
			core, logs := observer.New(zapcore.WarnLevel)
			e := New[model.Post](resource.Posts, c, Config{Logger: zap.New(core)})
			ctx := context.Background()
			if err := e.Load(ctx, All()); err != nil {
				t.Fatalf("Load: %v", err)
			}
			if err := e.Select(1); err != nil {
				t.Fatalf("Select: %v", err)
			}

			err := tt.run(ctx, e)
			var se *api.StatusError
			if !errors.As(err, &se) || se.StatusCode != 500 || se.Method != tt.method {
				t.Fatalf("expected %s 500 status error, got %v", tt.method, err)
			}

			items := e.Items()
			if len(items) != 1 || items[0] != (model.Post{ID: 1, UserID: 1, Title: "A", Body: "b"}) {
				t.Fatalf("collection changed: %+v", items)
			}
			if buf, ok := e.Buffer(1); !ok || buf["title"] != "A" || buf["body"] != "b" {
				t.Fatalf("buffer changed: %#v %v", buf, ok)
			}
			if ids := bufferKeys(e); len(ids) != 1 || ids[0] != 1 {
				t.Fatalf("buffer keys: %v", ids)
			}
			if sel, ok := e.Selected(); !ok || sel != 1 {
				t.Fatalf("selection changed: %d %v", sel, ok)
			}
			if !errors.Is(e.LastError(), se) {
				t.Fatalf("LastError: got %v, want %v", e.LastError(), se)
			}
			if e.Submitting(tt.busyID) || e.Submitting(0) || e.Submitting(1) {
				t.Fatalf("in-flight counter not released")
			}

			failed := logs.FilterMessage(tt.logMsg).All()
			if len(failed) != 1 {
				t.Fatalf("expected one %q warning, got %d", tt.logMsg, len(failed))
			}
			if got := failed[0].ContextMap()["requestId"]; got == "" || got != se.RequestID {
				t.Fatalf("warning requestId: got %v, want %q", got, se.RequestID)
			}
		})
	}
}

func TestChanges_DiffsBufferAgainstCommitted(t *testing.T) {
	t.Parallel()

	e, _ := loadedPosts(t, routes(map[string]string{
		"GET":   `[{"id":1,"title":"A","body":"b"}]`,
		"PATCH": `{}`,
	}))
	if got, ok := e.Changes(1); !ok || len(got) != 0 {
		t.Fatalf("fresh buffer: %#v %v", got, ok)
	}
	if err := e.SetField(1, "title", "A2"); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	if got, _ := e.Changes(1); !reflect.DeepEqual(got, resource.Fields{"title": "A2"}) {
		t.Fatalf("changes: %#v", got)
	}
	if err := e.Update(context.Background(), 1, resource.Fields{"title": "A2"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got, _ := e.Changes(1); len(got) != 0 {
		t.Fatalf("changes after save: %#v", got)
	}
	if _, ok := e.Changes(9); ok {
		t.Fatalf("unknown id must report !ok")
	}
}

func TestClearSelection_KeepsBuffer(t *testing.T) {
	t.Parallel()

	c, _ := newRemote(t, routes(map[string]string{
		"GET": `[{"id":2,"name":"Ervin","username":"Antonette"}]`,
	}))
	v, err := Open(resource.Users, c, Config{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := v.Load(context.Background(), All()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := v.Select(2); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if err := v.EditSelected("name", "Ervin H"); err != nil {
		t.Fatalf("EditSelected: %v", err)
	}
	v.ClearSelection()
	if _, ok := v.Selected(); ok {
		t.Fatalf("selection not cleared")
	}
	if err := v.EditSelected("name", "x"); !errors.Is(err, ErrNoSelection) {
		t.Fatalf("EditSelected after clear: got %v", err)
	}
	if buf, _ := v.Buffer(2); buf["name"] != "Ervin H" {
		t.Fatalf("buffer lost pending edit: %#v", buf)
	}
}

func TestCreate_MissingIDIsAnError(t *testing.T) {
	t.Parallel()

	e, _ := loadedPosts(t, routes(map[string]string{"GET": `[]`, "POST": `{"title":"x"}`}))
	if _, err := e.Create(context.Background(), resource.Fields{"title": "x", "body": "y"}); err == nil {
		t.Fatalf("expected error for response without id")
	}
	if len(e.Items()) != 0 {
		t.Fatalf("state changed: %+v", e.Items())
	}
}

func TestCreate_UniqueCommentName(t *testing.T) {
	t.Parallel()

	c, rec := newRemote(t, routes(map[string]string{
		"GET":  `[{"id":1,"postId":1,"name":"taken","email":"a@b","body":"x"}]`,
		"POST": `{"id":501}`,
	}))
	e := New[model.Comment](resource.Comments, c, Config{})
	ctx := context.Background()
	if err := e.Load(ctx, Owned(1)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	_, err := e.Create(ctx, resource.Fields{"name": "taken", "body": "y"})
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Problems[0].Field != "name" {
		t.Fatalf("expected unique violation, got %v", err)
	}
	if n := len(rec.all()); n != 1 {
		t.Fatalf("unexpected requests: %d", n)
	}
	if _, err := e.Create(ctx, resource.Fields{"name": "fresh", "body": "y"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if body := rec.all()[1].Body; body["postId"] != float64(1) {
		t.Fatalf("owner id: %#v", body)
	}
}

func TestToggle_FlipsCompleted(t *testing.T) {
	t.Parallel()

	c, rec := newRemote(t, routes(map[string]string{
		"GET":   `[{"id":1,"userId":1,"title":"t","completed":false}]`,
		"PATCH": `{}`,
	}))
	e := New[model.Todo](resource.Todos, c, Config{})
	ctx := context.Background()
	if err := e.Load(ctx, All()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := e.Toggle(ctx, 1, ""); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if body := rec.all()[1].Body; len(body) != 1 || body["completed"] != true {
		t.Fatalf("patch body: %#v", body)
	}
	if it, _ := e.Item(1); !it.Completed || it.Label() != "[x] t" {
		t.Fatalf("item: %+v", it)
	}
	if err := e.Toggle(ctx, 99, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := e.Toggle(ctx, 1, "title"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestSetField_OnlyTouchesBuffer(t *testing.T) {
	t.Parallel()

	e, rec := loadedPosts(t, reply(200, `[{"id":1,"title":"A","body":"b"}]`))

	if err := e.SetField(1, "title", "draft"); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	if buf, _ := e.Buffer(1); buf["title"] != "draft" {
		t.Fatalf("buffer: %#v", buf)
	}
	if it, _ := e.Item(1); it.Title != "A" {
		t.Fatalf("collection must not change before submit: %+v", it)
	}
	if err := e.SetField(1, "userId", "2"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
	if err := e.SetField(9, "title", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if n := len(rec.all()); n != 1 {
		t.Fatalf("SetField must not call the remote, got %d requests", n)
	}
}

func TestSubmitting_TracksInFlightMutations(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	e, _ := loadedPosts(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			_, _ = io.WriteString(w, `[{"id":1,"title":"A","body":"b"}]`)
			return
		}
		entered <- struct{}{}
		<-release
		_, _ = io.WriteString(w, `{}`)
	})

	done := make(chan error, 1)
	go func() {
		done <- e.Update(context.Background(), 1, resource.Fields{"title": "B"})
	}()
	<-entered
	if !e.Submitting(1) {
		t.Fatalf("expected id 1 to be submitting")
	}
	if e.Submitting(2) {
		t.Fatalf("id 2 is not submitting")
	}
	// State stays readable while the request is in flight.
	if it, _ := e.Item(1); it.Title != "A" {
		t.Fatalf("item changed before response: %+v", it)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Update: %v", err)
	}
	if e.Submitting(1) {
		t.Fatalf("expected id 1 to be idle")
	}
}

func TestFetch_DoesNotTouchCollection(t *testing.T) {
	t.Parallel()

	e, rec := loadedPosts(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/posts/7" {
			_, _ = io.WriteString(w, `{"id":7,"title":"seven","body":"x"}`)
			return
		}
		_, _ = io.WriteString(w, `[]`)
	})
	got, err := e.Fetch(context.Background(), 7)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got.ID != 7 || got.Title != "seven" {
		t.Fatalf("fetched: %+v", got)
	}
	if len(e.Items()) != 0 {
		t.Fatalf("collection changed: %+v", e.Items())
	}
	if p := rec.all()[1].Path; p != "/posts/7" {
		t.Fatalf("path: %s", p)
	}
}

func TestView_RowsAndSaveSelected(t *testing.T) {
	t.Parallel()

	c, rec := newRemote(t, routes(map[string]string{
		"GET":   `[{"id":2,"name":"Ervin","username":"Antonette","address":{"city":"Wisokyburgh"}}]`,
		"PATCH": `{}`,
	}))
	v, err := Open(resource.Users, c, Config{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()
	if err := v.Load(ctx, All()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	rows := v.Rows()
	if len(rows) != 1 || rows[0].ID != 2 || rows[0].Label != "Ervin (@Antonette)" {
		t.Fatalf("rows: %+v", rows)
	}
	if rows[0].Fields["address.city"] != "Wisokyburgh" {
		t.Fatalf("fields: %#v", rows[0].Fields)
	}
	if err := v.SaveSelected(ctx); !errors.Is(err, ErrNoSelection) {
		t.Fatalf("expected ErrNoSelection, got %v", err)
	}
	if err := v.Select(2); err != nil {
		t.Fatalf("Select: %v", err)
	}
	// Nothing changed yet, so there is nothing to send.
	if err := v.SaveSelected(ctx); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if n := len(rec.all()); n != 1 {
		t.Fatalf("unexpected requests: %d", n)
	}

	// Other required fields are blank in this fixture; only the edited one is sent.
	if err := v.EditSelected("address.city", "Gwenborough"); err != nil {
		t.Fatalf("EditSelected: %v", err)
	}
	if err := v.SaveSelected(ctx); err != nil {
		t.Fatalf("SaveSelected: %v", err)
	}
	patch := rec.all()[1]
	want := map[string]any{"address": map[string]any{"city": "Gwenborough"}}
	if patch.Method != http.MethodPatch || patch.Path != "/users/2" || !reflect.DeepEqual(patch.Body, want) {
		t.Fatalf("patch: %+v", patch)
	}
	if row, _ := v.Row(2); row.Fields["address.city"] != "Gwenborough" || row.Fields["name"] != "Ervin" {
		t.Fatalf("row after save: %#v", row.Fields)
	}

	if _, err := Open(resource.Spec{Name: "widgets"}, c, Config{}); err == nil {
		t.Fatalf("expected error for unknown resource")
	}
	views, err := OpenAll(c, Config{})
	if err != nil || len(views) != len(resource.All()) {
		t.Fatalf("OpenAll: %d %v", len(views), err)
	}
}
