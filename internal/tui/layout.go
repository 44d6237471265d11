package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

// normalizePane forces s to exactly width columns (ANSI-aware) and height lines.
func normalizePane(s string, width, height int) string {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}

	lines := strings.Split(s, "\n")
	if height > 0 {
		if len(lines) > height {
			lines = lines[:height]
		}
		for len(lines) < height {
			lines = append(lines, "")
		}
	}

	for i, ln := range lines {
		lines[i] = fitLine(ln, width)
	}
	return strings.Join(lines, "\n")
}

// fitLine truncates with an ellipsis or pads with spaces to width columns.
func fitLine(ln string, width int) string {
	w := xansi.StringWidth(ln)
	switch {
	case width <= 0:
		return ""
	case w > width && width == 1:
		return xansi.Cut(ln, 0, 1)
	case w > width:
		ln = xansi.Cut(ln, 0, width-1) + "…"
		w = xansi.StringWidth(ln)
	}
	if w < width {
		ln += strings.Repeat(" ", width-w)
	}
	return ln
}

func modalWidth(screenW int) int {
	w := screenW - 8
	if w > 72 {
		w = 72
	}
	if w < 30 {
		w = 30
	}
	return w
}

func modalBodyWidth(screenW int) int {
	return modalWidth(screenW) - 4
}

// renderModalBox draws a titled box sized for screenW.
func renderModalBox(screenW int, title, content string) string {
	w := modalWidth(screenW)
	header := lipgloss.NewStyle().
		Bold(true).
		Width(w-2).
		Padding(0, 1).
		Background(colorModalHeader).
		Foreground(colorSurfaceFg).
		Render(title)
	body := lipgloss.NewStyle().
		Width(w-2).
		Padding(1, 1).
		Render(content)
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorAccent).
		Render(lipgloss.JoinVertical(lipgloss.Left, header, body))
}

// overlayCenter places box in the middle of a width x height area.
func overlayCenter(box string, width, height int) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box,
		lipgloss.WithWhitespaceChars(" "))
}
