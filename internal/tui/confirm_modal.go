package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type confirmModalFocus int

const (
	confirmFocusConfirm confirmModalFocus = iota
	confirmFocusCancel
)

func (f confirmModalFocus) toggle() confirmModalFocus {
	if f == confirmFocusConfirm {
		return confirmFocusCancel
	}
	return confirmFocusConfirm
}

func renderConfirmModal(width int, title, body, confirmLabel, cancelLabel string, focus confirmModalFocus) string {
	// No nested borders: some terminals show background artifacts inside modals.
	btnBase := lipgloss.NewStyle().
		Padding(0, 1).
		Foreground(colorSurfaceFg).
		Background(colorControlBg)
	btnActive := btnBase.
		Foreground(colorSelectedFg).
		Background(colorSelectedBg).
		Bold(true)

	confirm := btnBase.Render(confirmLabel)
	cancel := btnBase.Render(cancelLabel)
	if focus == confirmFocusConfirm {
		confirm = btnActive.Render(confirmLabel)
	} else {
		cancel = btnActive.Render(cancelLabel)
	}
	controls := lipgloss.JoinHorizontal(lipgloss.Top, confirm, " ", cancel)

	help := styleMuted().Width(modalBodyWidth(width)).Render("tab: focus   enter: select   y/n   esc: cancel")
	return renderModalBox(width, title, strings.Join([]string{body, "", controls, "", help}, "\n"))
}

// renderAlertModal is a blocking notice dismissed with enter or esc.
func renderAlertModal(width int, title, body string) string {
	help := styleMuted().Width(modalBodyWidth(width)).Render("enter/esc: dismiss")
	return renderModalBox(width, title, strings.Join([]string{body, "", help}, "\n"))
}
