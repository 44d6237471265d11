package tui

import (
	"strings"

	"placeholder-cli/internal/resource"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

// form edits one record. id 0 creates a new one; anything else edits the
// record's buffer entry in place as the user types.
type form struct {
	tab    int
	id     int
	viaSel bool // edits go through the view's selection (users)
	fields []resource.Field
	inputs []textinput.Model // zero value for bool fields
	bools  map[string]bool
	focus  int

	submitting bool
}

func newForm(tab int, spec resource.Spec, id int, values resource.Fields) *form {
	f := &form{
		tab:    tab,
		id:     id,
		fields: spec.Fields,
		inputs: make([]textinput.Model, len(spec.Fields)),
		bools:  map[string]bool{},
	}
	for i, fd := range spec.Fields {
		if fd.Kind == resource.KindBool {
			f.bools[fd.Name] = values.Bool(fd.Name)
			continue
		}
		in := textinput.New()
		in.Prompt = ""
		in.Placeholder = fd.Label
		in.CharLimit = 500
		in.SetValue(values.String(fd.Name))
		f.inputs[i] = in
	}
	f.setFocus(0)
	return f
}

func (f *form) creating() bool { return f.id == 0 }

func (f *form) focused() resource.Field { return f.fields[f.focus] }

func (f *form) hasBool() bool { return len(f.bools) > 0 }

func (f *form) setFocus(i int) {
	n := len(f.fields)
	if n == 0 {
		return
	}
	f.focus = ((i % n) + n) % n
	for j := range f.inputs {
		if f.fields[j].Kind == resource.KindBool {
			continue
		}
		if j == f.focus {
			f.inputs[j].Focus()
		} else {
			f.inputs[j].Blur()
		}
	}
}

// values collects every field, typed by kind.
func (f *form) values() resource.Fields {
	out := resource.Fields{}
	for i, fd := range f.fields {
		if fd.Kind == resource.KindBool {
			out[fd.Name] = f.bools[fd.Name]
			continue
		}
		out[fd.Name] = f.inputs[i].Value()
	}
	return out
}

func (f *form) render(width int, title string) string {
	bodyW := modalBodyWidth(width)
	labelW := 0
	for _, fd := range f.fields {
		if w := xansi.StringWidth(fd.Label); w > labelW {
			labelW = w
		}
	}
	labelW += 2

	var lines []string
	for i, fd := range f.fields {
		label := fd.Label
		if fd.Required {
			label += "*"
		}
		labelSt := styleMuted().Width(labelW)
		if i == f.focus {
			labelSt = lipgloss.NewStyle().Bold(true).Width(labelW)
		}

		var value string
		if fd.Kind == resource.KindBool {
			value = "[ ]"
			if f.bools[fd.Name] {
				value = "[x]"
			}
		} else {
			value = renderInputLine(bodyW-labelW, f.inputs[i].View())
		}
		lines = append(lines, labelSt.Render(label)+value)
	}
	if f.submitting {
		lines = append(lines, "", styleMuted().Render("saving…"))
	}
	return renderModalBox(width, title, strings.Join(lines, "\n"))
}

func renderInputLine(w int, inputView string) string {
	if w < 10 {
		w = 10
	}
	// One visual line; a wrapped cursor looks like an inserted newline.
	inputView = strings.NewReplacer("\n", " ", "\r", " ").Replace(inputView)

	line := lipgloss.PlaceHorizontal(
		w,
		lipgloss.Left,
		" "+inputView,
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceBackground(colorInputBg),
	)
	if xansi.StringWidth(line) > w {
		line = xansi.Cut(line, 0, w) + "\x1b[0m"
	}
	return line
}
