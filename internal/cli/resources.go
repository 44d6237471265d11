package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"placeholder-cli/internal/api"
	"placeholder-cli/internal/listedit"
	"placeholder-cli/internal/resource"

	"github.com/spf13/cobra"
)

func newResourceCmd(app *App, spec resource.Spec) *cobra.Command {
	cmd := &cobra.Command{
		Use:   spec.Name,
		Short: spec.Heading() + " commands",
	}
	cmd.AddCommand(newListCmd(app, spec))
	cmd.AddCommand(newShowCmd(app, spec))
	cmd.AddCommand(newCreateCmd(app, spec))
	cmd.AddCommand(newUpdateCmd(app, spec))
	cmd.AddCommand(newDeleteCmd(app, spec))
	if _, ok := spec.BoolField(); ok {
		cmd.AddCommand(newToggleCmd(app, spec))
	}
	return cmd
}

func ownerHelp(spec resource.Spec) string {
	if spec.Owner == nil {
		return ""
	}
	return fmt.Sprintf("Only %s of this %s id (%s)", spec.Name, strings.TrimSuffix(spec.Owner.Resource, "s"), spec.Owner.Field)
}

func newListCmd(app *App, spec resource.Spec) *cobra.Command {
	var owner, limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List " + spec.Name,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := app.view(spec)
			if err != nil {
				return writeErr(cmd, err)
			}
			f := listedit.Filter{Owner: owner, Limit: limit, Offset: offset}
			if err := v.Load(ctx(cmd), f); err != nil {
				return writeErr(cmd, err)
			}

			rows := v.Rows()
			data := make([]map[string]any, 0, len(rows))
			for _, r := range rows {
				data = append(data, r.Record)
			}

			meta := map[string]any{
				"resource": spec.Name,
				"filter":   f.String(),
				"returned": len(data),
				"limit":    limit,
				"offset":   offset,
			}
			var hints []string
			if limit > 0 && len(data) == limit {
				next := fmt.Sprintf("placeholder %s list --limit %d --offset %d", spec.Name, limit, offset+limit)
				if owner != 0 {
					next += " --owner " + strconv.Itoa(owner)
				}
				hints = append(hints, next)
			}
			if len(data) > 0 {
				hints = append(hints, fmt.Sprintf("placeholder %s show %d", spec.Name, rows[0].ID))
			}
			out := map[string]any{"data": data, "meta": meta}
			if len(hints) > 0 {
				out["_hints"] = hints
			}
			return writeOut(cmd, app, out)
		},
	}
	if spec.Owner != nil {
		cmd.Flags().IntVar(&owner, "owner", 0, ownerHelp(spec))
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Max records to return (0 = all)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Records to skip (for pagination)")
	return cmd
}

func newShowCmd(app *App, spec resource.Spec) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one " + spec.Singular,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			v, err := app.view(spec)
			if err != nil {
				return writeErr(cmd, err)
			}
			row, err := v.Fetch(ctx(cmd), id)
			if err != nil {
				return writeErr(cmd, remoteErr(spec, id, err))
			}
			return writeOut(cmd, app, map[string]any{"data": row.Record})
		},
	}
}

func newCreateCmd(app *App, spec resource.Spec) *cobra.Command {
	var sets []string
	var owner int

	cmd := &cobra.Command{
		Use:   "create --set name=value...",
		Short: "Create a " + spec.Singular,
		Example: fmt.Sprintf("  placeholder %s create %s",
			spec.Name, exampleSets(spec)),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := resource.ParseAssignments(spec, sets)
			if err != nil {
				return writeErr(cmd, err)
			}
			v, err := app.view(spec)
			if err != nil {
				return writeErr(cmd, err)
			}
			// Load the target scope first: creates land in it, and unique
			// fields are checked against it.
			if err := v.Load(ctx(cmd), listedit.Owned(owner)); err != nil {
				return writeErr(cmd, err)
			}
			row, err := v.Create(ctx(cmd), fields)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data":   row.Record,
				"_hints": []string{fmt.Sprintf("placeholder %s show %d", spec.Name, row.ID)},
			})
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Field assignment name=value (repeatable; fields: "+strings.Join(spec.FieldNames(), ", ")+")")
	if spec.Owner != nil {
		cmd.Flags().IntVar(&owner, "owner", 0, "Owning "+strings.TrimSuffix(spec.Owner.Resource, "s")+" id (default from config defaultOwner)")
	}
	return cmd
}

func newUpdateCmd(app *App, spec resource.Spec) *cobra.Command {
	var sets []string

	cmd := &cobra.Command{
		Use:   "update <id> --set name=value...",
		Short: "Update fields of a " + spec.Singular + " (only the given fields are sent)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			fields, err := resource.ParseAssignments(spec, sets)
			if err != nil {
				return writeErr(cmd, err)
			}
			v, err := app.view(spec)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := v.Update(ctx(cmd), id, fields); err != nil {
				return writeErr(cmd, remoteErr(spec, id, err))
			}
			data := fields.Nest()
			data["id"] = id
			return writeOut(cmd, app, map[string]any{"data": data})
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Field assignment name=value (repeatable)")
	_ = cmd.MarkFlagRequired("set")
	return cmd
}

func newDeleteCmd(app *App, spec resource.Spec) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a " + spec.Singular,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			v, err := app.view(spec)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := v.Remove(ctx(cmd), id); err != nil {
				return writeErr(cmd, remoteErr(spec, id, err))
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"id": id, "deleted": true}})
		},
	}
}

func newToggleCmd(app *App, spec resource.Spec) *cobra.Command {
	fd, _ := spec.BoolField()
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Flip " + fd.Name + " of a " + spec.Singular,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			v, err := app.view(spec)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := v.Load(ctx(cmd), listedit.All()); err != nil {
				return writeErr(cmd, err)
			}
			if err := v.Toggle(ctx(cmd), id, fd.Name); err != nil {
				return writeErr(cmd, remoteErr(spec, id, err))
			}
			row, _ := v.Row(id)
			return writeOut(cmd, app, map[string]any{"data": row.Record})
		},
	}
}

// newResourcesCmd describes the collections and their editable fields.
func newResourcesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "resources",
		Short: "List resources and their editable fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var out []map[string]any
			for _, s := range resource.All() {
				fields := make([]map[string]any, 0, len(s.Fields))
				for _, f := range s.Fields {
					fd := map[string]any{
						"name":     f.Name,
						"kind":     f.Kind.String(),
						"required": f.Required,
						"unique":   f.Unique,
					}
					if f.Rule != "" {
						fd["rule"] = f.Rule
					}
					fields = append(fields, fd)
				}
				r := map[string]any{"name": s.Name, "fields": fields}
				if s.Owner != nil {
					r["owner"] = map[string]any{"field": s.Owner.Field, "resource": s.Owner.Resource, "nested": s.Owner.Nested}
				}
				out = append(out, r)
			}
			return writeOut(cmd, app, map[string]any{"data": out})
		},
	}
}

func exampleSets(spec resource.Spec) string {
	var parts []string
	for _, f := range spec.Required() {
		parts = append(parts, fmt.Sprintf("--set %s=...", f.Name))
		if len(parts) == 3 {
			break
		}
	}
	return strings.Join(parts, " ")
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q (want a positive integer)", s)
	}
	return id, nil
}

// remoteErr turns a 404 (or an unknown local id) into a notFoundError.
func remoteErr(spec resource.Spec, id int, err error) error {
	if api.IsNotFound(err) || errorsIsNotFound(err) {
		return errNotFound(spec.Singular, strconv.Itoa(id))
	}
	return err
}

func ctx(cmd *cobra.Command) context.Context {
	if c := cmd.Context(); c != nil {
		return c
	}
	return context.Background()
}
