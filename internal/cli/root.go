package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"placeholder-cli/internal/api"
	"placeholder-cli/internal/config"
	"placeholder-cli/internal/format"
	"placeholder-cli/internal/listedit"
	"placeholder-cli/internal/logging"
	"placeholder-cli/internal/resource"
	"placeholder-cli/internal/tui"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type App struct {
	ConfigPath string
	BaseURL    string
	Timeout    time.Duration
	Format     string
	PrettyJSON bool
	LogLevel   string
	LogFile    string
	Breaker    bool

	cfg      *config.Config
	log      *zap.Logger
	closeLog func()
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "placeholder",
		Short:        "CRUD views for the demo REST API (CLI + TUI)",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  placeholder

  # Scriptable commands
  placeholder posts list --owner 1
  placeholder todos toggle 3

  # Direct lookup (shortcut for: placeholder posts show 3)
  placeholder /posts/3

  # Work offline against a local server
  placeholder serve
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if len(args) == 0 {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.setup(cmd, cmd.Parent() == nil)
	}
	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if app.closeLog != nil {
			app.closeLog()
		}
		return nil
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&app.ConfigPath, "config", envOr("PLACEHOLDER_CONFIG", ""), "Config file (default ~/.placeholder/config.yaml)")
	pf.StringVar(&app.BaseURL, "base-url", "", "API base URL (default "+config.DefaultBaseURL+")")
	pf.DurationVar(&app.Timeout, "timeout", 0, "Per-request timeout (default 30s; 0 disables)")
	pf.StringVar(&app.Format, "format", "", "Output format (json|edn|table)")
	pf.BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print output")
	pf.StringVar(&app.LogLevel, "log-level", "", "Log level (debug|info|warn|error)")
	pf.StringVar(&app.LogFile, "log-file", "", "Write logs to this file (the TUI logs nowhere otherwise)")
	pf.BoolVar(&app.Breaker, "breaker", false, "Fail fast after repeated server errors")

	for _, spec := range resource.All() {
		cmd.AddCommand(newResourceCmd(app, spec))
	}
	cmd.AddCommand(newResourcesCmd(app))
	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newDocsCmd(app))

	return cmd
}

// setup resolves config (file, env, then explicitly set flags) and builds the logger.
func (app *App) setup(cmd *cobra.Command, interactive bool) error {
	cfg, err := config.Load(app.ConfigPath)
	if err != nil {
		return writeErr(cmd, err)
	}

	flags := cmd.Flags()
	if flags.Changed("base-url") {
		cfg.BaseURL = app.BaseURL
	}
	if flags.Changed("timeout") {
		cfg.Timeout = app.Timeout
	}
	if flags.Changed("format") {
		cfg.Format = app.Format
	}
	if flags.Changed("pretty") {
		cfg.Pretty = app.PrettyJSON
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = app.LogLevel
	}
	if flags.Changed("log-file") {
		cfg.Log.File = app.LogFile
	}
	if flags.Changed("breaker") {
		cfg.Breaker = app.Breaker
	}
	if err := cfg.Validate(); err != nil {
		return writeErr(cmd, err)
	}

	opts := logging.Options{Level: cfg.Log.Level, File: cfg.Log.File}
	if !interactive {
		// The TUI owns the terminal; everything else may log to stderr.
		opts.Console = cmd.ErrOrStderr()
	}
	log, closeLog, err := logging.New(opts)
	if err != nil {
		return writeErr(cmd, err)
	}

	app.cfg = cfg
	app.Format = cfg.Format
	app.PrettyJSON = cfg.Pretty
	app.log = log
	app.closeLog = closeLog
	return nil
}

func (app *App) client() (*api.Client, error) {
	opts := []api.Option{
		api.WithTimeout(app.cfg.Timeout),
		api.WithLogger(app.log),
	}
	if app.cfg.Breaker {
		opts = append(opts, api.WithBreaker("placeholder-api"))
	}
	return api.New(app.cfg.BaseURL, opts...)
}

func (app *App) editorConfig() listedit.Config {
	return listedit.Config{Logger: app.log, DefaultOwner: app.cfg.DefaultOwner}
}

func (app *App) view(spec resource.Spec) (listedit.View, error) {
	c, err := app.client()
	if err != nil {
		return nil, err
	}
	return listedit.Open(spec, c, app.editorConfig())
}

func runTUI(cmd *cobra.Command, app *App) error {
	c, err := app.client()
	if err != nil {
		return writeErr(cmd, err)
	}
	views, err := listedit.OpenAll(c, app.editorConfig())
	if err != nil {
		return writeErr(cmd, err)
	}
	return tui.Run(ctx(cmd), views, tui.Options{
		Logger:   app.log,
		Theme:    app.cfg.TUI.Theme,
		Resource: app.cfg.TUI.Resource,
		BaseURL:  app.cfg.BaseURL,
		Open:     app.view,
	})
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
