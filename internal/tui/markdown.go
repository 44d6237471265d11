package tui

import (
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
)

var (
	mdRendererMu sync.Mutex
	// Keyed by style and wrap width. WithAutoStyle can block on terminal
	// queries, so a fixed style is chosen from the theme instead.
	mdRenderers = map[string]*glamour.TermRenderer{}
)

func renderMarkdown(md string, width int) string {
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}
	if width < 10 {
		width = 10
	}

	style := markdownStyle()
	key := style + ":" + strconv.Itoa(width)

	mdRendererMu.Lock()
	r := mdRenderers[key]
	if r == nil {
		cfg := markdownStyleConfig(style)
		zero := uint(0)
		cfg.Document.Margin = &zero
		rr, err := glamour.NewTermRenderer(
			glamour.WithStyles(cfg),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			mdRendererMu.Unlock()
			return md
		}
		mdRenderers[key] = rr
		r = rr
	}
	mdRendererMu.Unlock()

	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

func markdownStyle() string {
	if lipgloss.HasDarkBackground() {
		return "dark"
	}
	return "light"
}

func markdownStyleConfig(style string) ansi.StyleConfig {
	cfg := styles.DarkStyleConfig
	if style == "light" {
		cfg = styles.LightStyleConfig
	}
	applyMarkdownPalette(&cfg, style)
	return cfg
}

// applyMarkdownPalette keeps headings and text on the surface foreground and
// links on the accent color.
func applyMarkdownPalette(cfg *ansi.StyleConfig, style string) {
	text := mdColor(colorSurfaceFg, style)
	cfg.Text.Color = text
	cfg.Heading.Color = text
	cfg.H1.Color = text
	cfg.H1.BackgroundColor = nil
	cfg.H2.Color = text
	cfg.H3.Color = text

	link := mdColor(colorAccent, style)
	underline := true
	cfg.Link.Color = link
	cfg.Link.Underline = &underline
	cfg.LinkText.Color = link

	cfg.Code.Color = text
	cfg.Strong.Color = nil
	cfg.Emph.Color = nil
}

func mdColor(c lipgloss.AdaptiveColor, style string) *string {
	v := c.Dark
	if style == "light" {
		v = c.Light
	}
	return &v
}
