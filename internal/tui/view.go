package tui

import (
	"fmt"
	"strings"

	"placeholder-cli/internal/listedit"

	"github.com/charmbracelet/lipgloss"
)

func (m appModel) View() string {
	if len(m.tabs) == 0 {
		return "no resources\n"
	}
	w, bodyH := m.bodySize()

	header := normalizePane(m.renderTabs(), w, 1)
	status := normalizePane(m.renderStatus(), w, 1)

	var body string
	switch m.screen {
	case screenForm:
		if m.form != nil {
			spec := m.tabs[m.form.tab].view.Spec()
			title := "New " + spec.Singular
			if !m.form.creating() {
				title = fmt.Sprintf("Edit %s %d", spec.Singular, m.form.id)
			}
			body = overlayCenter(m.form.render(w, title), w, bodyH)
		}
	case screenOwners:
		body = m.owners.View()
	case screenDetail, screenHelp:
		body = m.detail.View()
	default:
		body = m.renderList()
	}

	switch m.modal {
	case modalConfirmDelete:
		body = overlayCenter(renderConfirmModal(w, m.modalTitle, m.modalBody, "Delete", "Cancel", m.confirmFocus), w, bodyH)
	case modalAlert:
		body = overlayCenter(renderAlertModal(w, m.modalTitle, m.modalBody), w, bodyH)
	}

	footer := normalizePane(m.renderFooter(), w, 1)
	return strings.Join([]string{header, status, normalizePane(body, w, bodyH), footer}, "\n")
}

func (m appModel) renderTabs() string {
	parts := make([]string, 0, len(m.tabs)+1)
	for i, t := range m.tabs {
		parts = append(parts, styleTab(i == m.active).Render(t.view.Spec().Heading()))
	}
	tabs := lipgloss.JoinHorizontal(lipgloss.Top, parts...)
	if m.opts.BaseURL == "" {
		return tabs
	}
	return tabs + "  " + styleMuted().Render(m.opts.BaseURL)
}

func (m appModel) renderStatus() string {
	t := m.tabs[m.active]
	spec := t.view.Spec()

	var parts []string
	if spec.Owner != nil {
		f := t.view.Filter()
		owner := "all"
		if !f.IsAll() {
			owner = fmt.Sprintf("%s %d", strings.TrimSuffix(spec.Owner.Resource, "s"), f.Owner)
		}
		parts = append(parts, "owner: "+owner)
	}
	if sel, ok := t.view.Selected(); ok {
		parts = append(parts, fmt.Sprintf("editing: %d", sel))
	}
	parts = append(parts, fmt.Sprintf("%d %s", len(t.list.Items()), spec.Name))

	switch {
	case t.loading:
		parts = append(parts, m.spinner.View()+" loading")
	case t.view.LoadPhase() == listedit.PhaseFailed:
		parts = append(parts, "load failed (r to retry)")
	}
	if t.pending[0] > 0 || t.view.Submitting(0) {
		parts = append(parts, m.spinner.View()+" saving")
	}
	return styleMuted().Render(strings.Join(parts, "  ·  "))
}

func (m appModel) renderList() string {
	t := m.tabs[m.active]
	if len(t.list.Items()) == 0 {
		switch {
		case t.loading || t.view.LoadPhase() == listedit.PhaseIdle:
			return styleMuted().Render("Loading…")
		case t.view.LoadPhase() == listedit.PhaseFailed:
			return styleMuted().Render("Nothing loaded. Press r to retry.")
		default:
			return styleMuted().Render("No " + t.view.Spec().Name + ". Press a to add one.")
		}
	}
	return t.list.View()
}

func (m appModel) renderFooter() string {
	if m.notice != "" {
		return styleNotice(m.noticeErr).Render(m.notice)
	}
	var line string
	switch m.screen {
	case screenForm:
		hasBool := m.form != nil && m.form.hasBool()
		line = helpLine(m.keys.formKeys(hasBool))
	case screenOwners:
		line = "enter: choose  /: search  esc: back"
	case screenDetail, screenHelp:
		line = "↑/↓: scroll  esc: back"
	default:
		line = helpLine(m.keys.listKeys(m.tabs[m.active].view.Spec()))
	}
	return styleMuted().Render(line)
}
