package tui

import (
	"strings"

	"placeholder-cli/internal/resource"

	"github.com/charmbracelet/bubbles/key"
)

type keyMap struct {
	NextTab key.Binding
	PrevTab key.Binding
	Reload  key.Binding
	Owner   key.Binding
	Add     key.Binding
	Edit    key.Binding
	Toggle  key.Binding
	Delete  key.Binding
	Open    key.Binding
	Select  key.Binding
	Help    key.Binding
	Quit    key.Binding

	// Forms and modals.
	Next   key.Binding
	Prev   key.Binding
	Save   key.Binding
	Back   key.Binding
	Yes    key.Binding
	No     key.Binding
	Switch key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		NextTab: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next")),
		PrevTab: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev")),
		Reload:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Owner:   key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "owner")),
		Add:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		Edit:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		Toggle:  key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
		Delete:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Open:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
		Select:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "select/clear")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),

		Next:   key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
		Prev:   key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "prev field")),
		Save:   key.NewBinding(key.WithKeys("enter", "ctrl+s"), key.WithHelp("enter", "save")),
		Back:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Yes:    key.NewBinding(key.WithKeys("y")),
		No:     key.NewBinding(key.WithKeys("n")),
		Switch: key.NewBinding(key.WithKeys("tab", "shift+tab", "left", "right")),
	}
}

// listKeys are the bindings that apply to spec's list screen.
func (k keyMap) listKeys(spec resource.Spec) []key.Binding {
	out := []key.Binding{k.NextTab, k.Reload}
	if spec.Owner != nil {
		out = append(out, k.Owner)
	}
	out = append(out, k.Add, k.Edit)
	if _, ok := spec.BoolField(); ok {
		out = append(out, k.Toggle)
	}
	if spec.Selectable {
		out = append(out, k.Select)
	}
	return append(out, k.Delete, k.Open, k.Help, k.Quit)
}

func (k keyMap) formKeys(hasBool bool) []key.Binding {
	out := []key.Binding{k.Next, k.Prev}
	if hasBool {
		out = append(out, k.Toggle)
	}
	return append(out, k.Save, k.Back)
}

func helpLine(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		if h.Key == "" {
			continue
		}
		parts = append(parts, h.Key+": "+h.Desc)
	}
	return strings.Join(parts, "  ")
}
