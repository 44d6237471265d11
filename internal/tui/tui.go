// Package tui is the interactive front-end: one tab per resource, each backed
// by a listedit.View.
package tui

import (
	"context"

	"placeholder-cli/internal/listedit"
	"placeholder-cli/internal/resource"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

type Options struct {
	Logger *zap.Logger
	// Theme is light, dark or auto.
	Theme string
	// Resource names the tab shown first.
	Resource string
	BaseURL  string
	// Open builds a standalone view, used to list owner filter choices.
	Open func(resource.Spec) (listedit.View, error)
}

func Run(ctx context.Context, views []listedit.View, opts Options) error {
	applyColorProfilePreference()
	applyThemePreference(opts.Theme)

	m := newAppModel(ctx, views, opts)
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
