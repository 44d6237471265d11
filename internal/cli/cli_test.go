package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"placeholder-cli/internal/fakeapi"
)

func runCLI(t *testing.T, args []string) (stdout []byte, stderr []byte, err error) {
	t.Helper()

	cmd := NewRootCmd()

	var outBuf bytes.Buffer
	var errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)

	e := cmd.Execute()
	return outBuf.Bytes(), errBuf.Bytes(), e
}

// newAPI starts a demo-seeded local server and isolates config from ~/.placeholder.
func newAPI(t *testing.T) string {
	t.Helper()
	t.Setenv("PLACEHOLDER_CONFIG_DIR", t.TempDir())
	t.Setenv("PLACEHOLDER_CONFIG", "")
	t.Setenv("PLACEHOLDER_BASE_URL", "")
	t.Setenv("PLACEHOLDER_FORMAT", "")

	ctx := context.Background()
	st, err := fakeapi.Open(ctx, "")
	if err != nil {
		t.Fatalf("fakeapi.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if err := fakeapi.SeedDemo(ctx, st); err != nil {
		t.Fatalf("SeedDemo: %v", err)
	}
	srv := httptest.NewServer(fakeapi.NewServer(st, nil).Handler())
	t.Cleanup(srv.Close)
	return srv.URL
}

func mustRun(t *testing.T, base string, args ...string) map[string]any {
	t.Helper()
	full := append([]string{"--base-url", base, "--log-level", "error"}, args...)
	stdout, stderr, err := runCLI(t, full)
	if err != nil {
		t.Fatalf("command failed: placeholder %v\nerr: %v\nstderr:\n%s\nstdout:\n%s", args, err, stderr, stdout)
	}
	var env map[string]any
	if err := json.Unmarshal(stdout, &env); err != nil {
		t.Fatalf("stdout is not a json envelope: %v\n%s", err, stdout)
	}
	if _, ok := env["data"]; !ok {
		t.Fatalf("expected data key: %s", stdout)
	}
	return env
}

func dataMap(t *testing.T, env map[string]any) map[string]any {
	t.Helper()
	m, ok := env["data"].(map[string]any)
	if !ok {
		t.Fatalf("data is not an object: %#v", env["data"])
	}
	return m
}

func dataList(t *testing.T, env map[string]any) []any {
	t.Helper()
	xs, ok := env["data"].([]any)
	if !ok {
		t.Fatalf("data is not a list: %#v", env["data"])
	}
	return xs
}

func TestList_OwnerAndPaging(t *testing.T) {
	base := newAPI(t)

	all := dataList(t, mustRun(t, base, "posts", "list"))
	if len(all) != 4 {
		t.Fatalf("posts: %d", len(all))
	}

	env := mustRun(t, base, "posts", "list", "--owner", "2")
	owned := dataList(t, env)
	if len(owned) != 2 {
		t.Fatalf("owned posts: %v", owned)
	}
	if meta, _ := env["meta"].(map[string]any); meta["filter"] != "2" {
		t.Fatalf("meta: %v", env["meta"])
	}

	env = mustRun(t, base, "comments", "list", "--owner", "1", "--limit", "1")
	if xs := dataList(t, env); len(xs) != 1 {
		t.Fatalf("limited comments: %v", xs)
	}
	hints, _ := env["_hints"].([]any)
	if len(hints) == 0 || !strings.Contains(hints[0].(string), "--offset 1") {
		t.Fatalf("expected next-page hint, got %v", hints)
	}
}

func TestShow_NotFound(t *testing.T) {
	base := newAPI(t)

	post := dataMap(t, mustRun(t, base, "posts", "show", "3"))
	if post["title"] != "Post 3" {
		t.Fatalf("post: %v", post)
	}

	_, stderr, err := runCLI(t, []string{"--base-url", base, "--log-level", "error", "posts", "show", "999"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if _, ok := err.(notFoundError); !ok {
		t.Fatalf("expected notFoundError, got %T: %v", err, err)
	}
	if !strings.Contains(string(stderr), "post not found: 999") {
		t.Fatalf("stderr: %s", stderr)
	}

	if _, _, err := runCLI(t, []string{"--base-url", base, "posts", "show", "abc"}); err == nil {
		t.Fatalf("expected invalid id error")
	}
}

func TestCreateUpdateDelete(t *testing.T) {
	base := newAPI(t)

	created := dataMap(t, mustRun(t, base, "posts", "create", "--owner", "2", "--set", "title=Hello", "--set", "body=World"))
	if created["id"] != float64(5) || created["userId"] != float64(2) || created["title"] != "Hello" {
		t.Fatalf("created: %v", created)
	}

	mustRun(t, base, "posts", "update", "5", "--set", "title=Changed")
	if got := dataMap(t, mustRun(t, base, "posts", "show", "5")); got["title"] != "Changed" || got["body"] != "World" {
		t.Fatalf("after update: %v", got)
	}

	mustRun(t, base, "posts", "delete", "5")
	if xs := dataList(t, mustRun(t, base, "posts", "list")); len(xs) != 4 {
		t.Fatalf("after delete: %d posts", len(xs))
	}
	if _, _, err := runCLI(t, []string{"--base-url", base, "--log-level", "error", "posts", "delete", "5"}); err == nil {
		t.Fatalf("second delete must fail")
	}
}

func TestCreate_ValidationSendsNothing(t *testing.T) {
	base := newAPI(t)

	_, stderr, err := runCLI(t, []string{"--base-url", base, "posts", "create", "--set", "title=  ", "--set", "body=x"})
	if err == nil || !strings.Contains(string(stderr), "Title cannot be empty") {
		t.Fatalf("expected validation error, got %v\n%s", err, stderr)
	}
	_, _, err = runCLI(t, []string{"--base-url", base, "comments", "create", "--owner", "1", "--set", "name=Comment 1", "--set", "body=x"})
	if err == nil {
		t.Fatalf("expected unique-name violation")
	}
	_, _, err = runCLI(t, []string{"--base-url", base, "posts", "create", "--set", "userId=3"})
	if err == nil {
		t.Fatalf("expected unknown field error")
	}
	if xs := dataList(t, mustRun(t, base, "posts", "list")); len(xs) != 4 {
		t.Fatalf("nothing may be created: %d posts", len(xs))
	}
}

func TestToggleAndNestedUpdate(t *testing.T) {
	base := newAPI(t)

	todo := dataMap(t, mustRun(t, base, "todos", "toggle", "1"))
	if todo["completed"] != true {
		t.Fatalf("toggle: %v", todo)
	}
	if got := dataMap(t, mustRun(t, base, "todos", "show", "1")); got["completed"] != true {
		t.Fatalf("server not updated: %v", got)
	}

	mustRun(t, base, "users", "update", "1", "--set", "address.city=Paris")
	user := dataMap(t, mustRun(t, base, "users", "show", "1"))
	addr, _ := user["address"].(map[string]any)
	if addr["city"] != "Paris" || addr["street"] != "1 Main St" {
		t.Fatalf("address: %v", addr)
	}

	if _, _, err := runCLI(t, []string{"--base-url", base, "users", "list", "--owner", "1"}); err == nil {
		t.Fatalf("users has no --owner flag")
	}
}

func TestFormatsAndResources(t *testing.T) {
	base := newAPI(t)

	stdout, _, err := runCLI(t, []string{"--base-url", base, "--format", "table", "posts", "list", "--owner", "1"})
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	if !strings.Contains(string(stdout), "Post 1") || strings.Contains(string(stdout), "Post 3") {
		t.Fatalf("table output:\n%s", stdout)
	}

	stdout, _, err = runCLI(t, []string{"--base-url", base, "--format", "edn", "posts", "show", "2"})
	if err != nil {
		t.Fatalf("edn: %v", err)
	}
	if !strings.HasPrefix(string(stdout), "{:data {") || !strings.Contains(string(stdout), `:title "Post 2"`) {
		t.Fatalf("edn output: %s", stdout)
	}

	if _, _, err := runCLI(t, []string{"--format", "xml", "resources"}); err == nil {
		t.Fatalf("expected unknown format error")
	}

	res := dataList(t, mustRun(t, base, "resources"))
	if len(res) != 6 {
		t.Fatalf("resources: %v", res)
	}
}

func TestConfigFileAndFlagPrecedence(t *testing.T) {
	base := newAPI(t)
	path := filepath.Join(t.TempDir(), "config.yaml")

	// An explicit --config must exist before it is read.
	if stdout, _, err := runCLI(t, []string{"--config", path, "config", "show"}); err == nil {
		t.Fatalf("expected missing config error, got:\n%s", stdout)
	}

	if err := os.WriteFile(path, []byte("baseUrl: "+base+"\nformat: edn\ntimeout: 3s\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	env := mustRun(t, base, "--config", path, "--format", "json", "config", "show")
	cfg := dataMap(t, env)
	if cfg["format"] != "json" || cfg["timeout"] != "3s" || cfg["baseUrl"] != base {
		t.Fatalf("effective config: %v", cfg)
	}

	t.Setenv("PLACEHOLDER_TIMEOUT", "7s")
	cfg = dataMap(t, mustRun(t, base, "--config", path, "--format", "json", "config", "show"))
	if cfg["timeout"] != "7s" {
		t.Fatalf("env must override file: %v", cfg)
	}
}

func TestConfigInit_WritesDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PLACEHOLDER_CONFIG_DIR", dir)
	t.Setenv("PLACEHOLDER_CONFIG", "")

	if _, stderr, err := runCLI(t, []string{"config", "init"}); err != nil {
		t.Fatalf("config init: %v\n%s", err, stderr)
	}
	b, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(b), "baseUrl: https://jsonplaceholder.typicode.com") {
		t.Fatalf("config file:\n%s", b)
	}
	if _, _, err := runCLI(t, []string{"config", "init"}); err == nil {
		t.Fatalf("second init must refuse to overwrite")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--force"}); err != nil {
		t.Fatalf("init --force: %v", err)
	}
}

func TestDocs(t *testing.T) {
	t.Setenv("PLACEHOLDER_CONFIG_DIR", t.TempDir())
	t.Setenv("PLACEHOLDER_CONFIG", "")

	stdout, _, err := runCLI(t, []string{"docs", "cli", "--raw"})
	if err != nil {
		t.Fatalf("docs: %v", err)
	}
	if !strings.HasPrefix(string(stdout), "# placeholder CLI") {
		t.Fatalf("docs output: %s", stdout)
	}
	if _, _, err := runCLI(t, []string{"docs", "nope"}); err == nil {
		t.Fatalf("expected unknown topic error")
	}
}
