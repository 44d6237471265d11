package main

import (
	"os"
	"strconv"
	"strings"

	"placeholder-cli/internal/cli"
	"placeholder-cli/internal/resource"
)

// pathArgs maps an API-style path to subcommand args:
//
//	/posts          -> posts list
//	/posts/3        -> posts show 3
//	/users/1/todos  -> todos list --owner 1
func pathArgs(p string) ([]string, bool) {
	if !strings.HasPrefix(p, "/") {
		return nil, false
	}
	parts := strings.Split(strings.Trim(p, "/"), "/")
	spec, ok := resource.Lookup(parts[0])
	if !ok {
		return nil, false
	}
	switch len(parts) {
	case 1:
		return []string{spec.Name, "list"}, true
	case 2:
		if _, err := strconv.Atoi(parts[1]); err != nil {
			return nil, false
		}
		return []string{spec.Name, "show", parts[1]}, true
	case 3:
		child, ok := resource.Lookup(parts[2])
		if !ok || child.Owner == nil || child.Owner.Resource != spec.Name {
			return nil, false
		}
		if _, err := strconv.Atoi(parts[1]); err != nil {
			return nil, false
		}
		return []string{child.Name, "list", "--owner", parts[1]}, true
	}
	return nil, false
}

func rewritePathArgs(argv []string) []string {
	// Convenience: `placeholder /posts/3` works like `placeholder posts show 3`.
	//
	// Cobra treats the first non-flag token as a subcommand, so we rewrite argv before parsing.
	// Persistent flags may come first (`placeholder --base-url X /posts/3`), so find the first
	// positional token rather than looking at argv[1].
	if len(argv) < 2 {
		return argv
	}

	valueFlags := map[string]bool{
		"--config":    true,
		"--base-url":  true,
		"--timeout":   true,
		"--format":    true,
		"--log-level": true,
		"--log-file":  true,
	}

	rewrite := func(i int) []string {
		args, ok := pathArgs(strings.TrimSpace(argv[i]))
		if !ok {
			return argv
		}
		out := make([]string, 0, len(argv)+len(args))
		out = append(out, argv[:i]...)
		out = append(out, args...)
		out = append(out, argv[i+1:]...)
		return out
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		if a == "" {
			continue
		}
		if a == "--" {
			if i+1 < len(argv) {
				return rewrite(i + 1)
			}
			return argv
		}
		if strings.HasPrefix(a, "-") {
			if !strings.Contains(a, "=") && valueFlags[a] {
				i++ // skip value
			}
			continue
		}
		return rewrite(i)
	}
	return argv
}

func main() {
	os.Args = rewritePathArgs(os.Args)

	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
