package tui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Palette. Adaptive colors keep the TUI readable on light and dark terminals;
// faint styling is only applied on dark backgrounds.

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

func faintIfDark(st lipgloss.Style) lipgloss.Style {
	if lipgloss.HasDarkBackground() {
		return st.Faint(true)
	}
	return st
}

// Also used by the markdown palette, which needs both variants.
var (
	colorSurfaceFg = ac("235", "252")
	colorControlBg = ac("252", "235")
	colorAccent    = ac("27", "62")
)

var (
	colorMuted       lipgloss.TerminalColor = ac("240", "243")
	colorChromeMuted lipgloss.TerminalColor = ac("240", "245")
	colorSelectedBg  lipgloss.TerminalColor = ac("#e9e9e9", "#262626")
	colorSelectedFg  lipgloss.TerminalColor = ac("235", "255")
	colorInputBg     lipgloss.TerminalColor = ac("254", "234")
	colorAccentFg    lipgloss.TerminalColor = ac("255", "235")
	colorError       lipgloss.TerminalColor = ac("160", "203")
	colorSuccess     lipgloss.TerminalColor = ac("28", "78")
	colorModalHeader lipgloss.TerminalColor = colorControlBg
)

func styleMuted() lipgloss.Style {
	return faintIfDark(lipgloss.NewStyle().Foreground(colorMuted))
}

func styleTab(active bool) lipgloss.Style {
	st := lipgloss.NewStyle().Padding(0, 1)
	if active {
		return st.Bold(true).Foreground(colorAccentFg).Background(colorAccent)
	}
	return st.Foreground(colorChromeMuted)
}

func styleNotice(isErr bool) lipgloss.Style {
	if isErr {
		return lipgloss.NewStyle().Foreground(colorError).Bold(true)
	}
	return lipgloss.NewStyle().Foreground(colorSuccess)
}

// applyColorProfilePreference sets Lip Gloss's color profile for the TUI.
//
// termenv.EnvColorProfile honors CLICOLOR which can disable colors in an
// alt-screen program, so only NO_COLOR is respected here.
func applyColorProfilePreference() {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}

	profile := termenv.ColorProfile()

	// TERM/COLORTERM can report more than the detector does.
	term := strings.ToLower(strings.TrimSpace(os.Getenv("TERM")))
	colorterm := strings.ToLower(strings.TrimSpace(os.Getenv("COLORTERM")))
	switch {
	case strings.Contains(colorterm, "truecolor") || strings.Contains(colorterm, "24bit"):
		if profile != termenv.Ascii {
			profile = termenv.TrueColor
		}
	case strings.Contains(term, "256color"):
		if profile == termenv.Ascii || profile == termenv.ANSI {
			profile = termenv.ANSI256
		}
	}

	lipgloss.SetColorProfile(profile)
}

// applyThemePreference configures background detection from the configured
// theme (light, dark or auto). For auto, COLORFGBG ("fg;bg") is consulted
// before falling back to Lip Gloss's own probing.
func applyThemePreference(theme string) {
	switch strings.ToLower(strings.TrimSpace(theme)) {
	case "light":
		lipgloss.SetHasDarkBackground(false)
		return
	case "dark":
		lipgloss.SetHasDarkBackground(true)
		return
	}

	if v := strings.TrimSpace(os.Getenv("COLORFGBG")); v != "" {
		parts := strings.Split(v, ";")
		if bg, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1])); err == nil {
			lipgloss.SetHasDarkBackground(bg < 7)
		}
	}
}
