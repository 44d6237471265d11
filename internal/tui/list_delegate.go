package tui

import (
	"fmt"
	"io"
	"strings"

	"placeholder-cli/internal/listedit"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

// rowItem is one record in a resource list.
type rowItem struct {
	row      listedit.Row
	busy     bool
	selected bool
}

func (i rowItem) FilterValue() string { return i.row.Label }
func (i rowItem) Description() string { return "" }

func (i rowItem) Title() string {
	mark := "  "
	switch {
	case i.busy:
		mark = "… "
	case i.selected:
		mark = "● "
	}
	return fmt.Sprintf("%s%4d  %s", mark, i.row.ID, i.row.Label)
}

// ownerItem is a choice in the owner filter picker. id 0 means all owners.
type ownerItem struct {
	id    int
	label string
}

func (i ownerItem) FilterValue() string { return i.label }
func (i ownerItem) Description() string { return "" }

func (i ownerItem) Title() string {
	if i.id == 0 {
		return i.label
	}
	return fmt.Sprintf("%4d  %s", i.id, i.label)
}

type compactItemDelegate struct {
	normal   lipgloss.Style
	selected lipgloss.Style
}

func newCompactItemDelegate() compactItemDelegate {
	return compactItemDelegate{
		normal: lipgloss.NewStyle(),
		selected: lipgloss.NewStyle().
			Foreground(colorSelectedFg).
			Background(colorSelectedBg).
			Bold(true),
	}
}

func (d compactItemDelegate) Height() int                             { return 1 }
func (d compactItemDelegate) Spacing() int                            { return 0 }
func (d compactItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d compactItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	contentW := m.Width()
	if contentW < 4 {
		return
	}

	style := d.normal
	if index == m.Index() {
		style = d.selected
	}

	txt := fmt.Sprint(item)
	if t, ok := item.(interface{ Title() string }); ok {
		txt = t.Title()
	}

	line := txt
	if lineW := xansi.StringWidth(line); lineW < contentW {
		line += strings.Repeat(" ", contentW-lineW)
	} else if lineW > contentW {
		line = xansi.Cut(line, 0, contentW-1) + "…"
	}
	fmt.Fprint(w, style.Render(line))
}

func newList(title string, items []list.Item) list.Model {
	l := list.New(items, newCompactItemDelegate(), 0, 0)
	l.Title = title
	// The app draws its own header and footer.
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowPagination(false)
	l.SetFilteringEnabled(true)
	l.DisableQuitKeybindings()
	// Emacs-style aliases.
	l.KeyMap.CursorUp.SetKeys(append(l.KeyMap.CursorUp.Keys(), "ctrl+p")...)
	l.KeyMap.CursorDown.SetKeys(append(l.KeyMap.CursorDown.Keys(), "ctrl+n")...)
	return l
}

func selectRowByID(l *list.Model, id int) bool {
	for i, it := range l.Items() {
		if r, ok := it.(rowItem); ok && r.row.ID == id {
			l.Select(i)
			return true
		}
		if o, ok := it.(ownerItem); ok && o.id == id {
			l.Select(i)
			return true
		}
	}
	return false
}
