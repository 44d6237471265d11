package cli

import (
	"errors"
	"fmt"
	"os"

	"placeholder-cli/internal/config"

	"github.com/spf13/cobra"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create the config file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective settings (file, env and flags applied)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeOut(cmd, app, map[string]any{"data": map[string]any{
				"baseUrl":      app.cfg.BaseURL,
				"timeout":      app.cfg.Timeout.String(),
				"format":       app.cfg.Format,
				"pretty":       app.cfg.Pretty,
				"breaker":      app.cfg.Breaker,
				"defaultOwner": app.cfg.DefaultOwner,
				"log":          map[string]any{"level": app.cfg.Log.Level, "file": app.cfg.Log.File},
				"serve":        map[string]any{"addr": app.cfg.Serve.Addr, "db": app.cfg.Serve.DB},
				"tui":          map[string]any{"theme": app.cfg.TUI.Theme, "resource": app.cfg.TUI.Resource},
			}})
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := app.ConfigPath
			if path == "" {
				p, err := config.DefaultPath()
				if err != nil {
					return writeErr(cmd, err)
				}
				path = p
			}
			if _, err := os.Stat(path); err == nil && !force {
				return writeErr(cmd, fmt.Errorf("%s already exists (use --force to overwrite)", path))
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return writeErr(cmd, err)
			}
			if err := config.Default().Save(path); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"path": path}})
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	cmd.AddCommand(initCmd)
	return cmd
}
