package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"placeholder-cli/internal/docs"
	"placeholder-cli/internal/listedit"
	"placeholder-cli/internal/resource"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case noticeExpiredMsg:
		if msg.seq == m.noticeSeq {
			m.notice = ""
			m.noticeErr = false
		}
		return m, nil

	case loadedMsg:
		t := &m.tabs[msg.tab]
		t.loading = false
		m.refreshList(msg.tab)
		if msg.err != nil {
			m.log.Warn("load failed", zap.String("resource", t.view.Spec().Name), zap.Error(msg.err))
			return m, m.showNotice("Could not load "+t.view.Spec().Name+": "+msg.err.Error(), true)
		}
		return m, nil

	case mutatedMsg:
		return m.applyMutated(msg)

	case detailMsg:
		if msg.err != nil {
			return m, m.showNotice(msg.err.Error(), true)
		}
		spec := m.tabs[msg.tab].view.Spec()
		m.detail.SetContent(renderMarkdown(detailMarkdown(spec, msg.row), m.detail.Width))
		m.detail.GotoTop()
		m.screen = screenDetail
		return m, nil

	case ownersMsg:
		if msg.err != nil {
			return m, m.showNotice("Could not load owners: "+msg.err.Error(), true)
		}
		t := &m.tabs[msg.tab]
		t.owners = msg.rows
		t.hasOwners = true
		if msg.tab == m.active && m.screen == screenList && m.modal == modalNone {
			m.openOwnerPicker()
		}
		return m, nil

	case tea.KeyMsg:
		if m.modal != modalNone {
			return m.updateModal(msg)
		}
		switch m.screen {
		case screenForm:
			return m.updateForm(msg)
		case screenOwners:
			return m.updateOwners(msg)
		case screenDetail, screenHelp:
			return m.updatePager(msg)
		default:
			return m.updateList(msg)
		}
	}

	// Anything else (cursor blink, filter matches) goes to the visible widget.
	var cmd tea.Cmd
	switch m.screen {
	case screenForm:
		if m.form != nil && m.form.focused().Kind != resource.KindBool {
			m.form.inputs[m.form.focus], cmd = m.form.inputs[m.form.focus].Update(msg)
		}
	case screenOwners:
		m.owners, cmd = m.owners.Update(msg)
	case screenList:
		if len(m.tabs) > 0 {
			t := m.current()
			t.list, cmd = t.list.Update(msg)
		}
	}
	return m, cmd
}

func (m appModel) applyMutated(msg mutatedMsg) (tea.Model, tea.Cmd) {
	t := &m.tabs[msg.tab]
	if t.pending[msg.key] > 1 {
		t.pending[msg.key]--
	} else {
		delete(t.pending, msg.key)
	}
	spec := t.view.Spec()

	if f := m.form; f != nil && f.submitting && f.tab == msg.tab && f.id == msg.key {
		f.submitting = false
		if msg.err == nil {
			m.form = nil
			m.screen = screenList
		}
	}
	m.refreshList(msg.tab)

	if msg.err != nil {
		return m, m.reportError(spec, msg.op, msg.err)
	}
	if msg.op == opCreated {
		selectRowByID(&t.list, msg.id)
	}
	return m, m.showNotice(spec.Title()+" "+msg.op, false)
}

// reportError shows validation problems as a blocking alert and anything else
// as an error notice.
func (m *appModel) reportError(spec resource.Spec, op string, err error) tea.Cmd {
	var ve *listedit.ValidationError
	if errors.As(err, &ve) {
		lines := make([]string, 0, len(ve.Problems))
		for _, p := range ve.Problems {
			lines = append(lines, p.Message)
		}
		m.openAlert("Cannot save "+spec.Singular, strings.Join(lines, "\n"))
		return nil
	}
	m.log.Warn("mutation failed", zap.String("resource", spec.Name), zap.String("op", op), zap.Error(err))
	return m.showNotice(fmt.Sprintf("%s not %s: %v", spec.Title(), op, err), true)
}

func (m appModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if len(m.tabs) == 0 {
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		return m, nil
	}
	t := m.current()
	if t.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		t.list, cmd = t.list.Update(msg)
		return m, cmd
	}
	spec := t.view.Spec()

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.NextTab):
		m.switchTab(m.active + 1)
		return m, m.ensureLoaded()

	case key.Matches(msg, m.keys.PrevTab):
		m.switchTab(m.active - 1)
		return m, m.ensureLoaded()

	case tabDigit(msg) > 0 && tabDigit(msg) <= len(m.tabs):
		m.switchTab(tabDigit(msg) - 1)
		return m, m.ensureLoaded()

	case key.Matches(msg, m.keys.Reload):
		return m, m.load(m.active, t.view.Filter())

	case key.Matches(msg, m.keys.Owner) && spec.Owner != nil:
		if t.hasOwners {
			m.openOwnerPicker()
			return m, nil
		}
		return m, m.fetchOwners(m.active)

	case key.Matches(msg, m.keys.Add):
		m.form = newForm(m.active, spec, 0, nil)
		m.screen = screenForm
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Edit):
		return m.startEdit()

	case key.Matches(msg, m.keys.Toggle):
		fd, ok := spec.BoolField()
		row, has := m.highlighted()
		if !ok || !has {
			return m, nil
		}
		id := row.ID
		return m, m.mutate(m.active, id, opUpdated, func(ctx context.Context, v listedit.View) (int, error) {
			return id, v.Toggle(ctx, id, fd.Name)
		})

	case key.Matches(msg, m.keys.Select) && spec.Selectable:
		row, ok := m.highlighted()
		if !ok {
			return m, nil
		}
		if sel, ok := t.view.Selected(); ok && sel == row.ID {
			t.view.ClearSelection()
			m.refreshList(m.active)
			return m, m.showNotice("Stopped editing "+row.Label, false)
		}
		if err := t.view.Select(row.ID); err != nil {
			return m, m.showNotice(err.Error(), true)
		}
		m.refreshList(m.active)
		return m, m.showNotice("Editing "+row.Label, false)

	case key.Matches(msg, m.keys.Delete):
		row, ok := m.highlighted()
		if !ok {
			return m, nil
		}
		m.modal = modalConfirmDelete
		m.modalTitle = "Delete " + spec.Singular + "?"
		m.modalBody = row.Label
		m.pendingDelete = row.ID
		m.confirmFocus = confirmFocusCancel
		return m, nil

	case key.Matches(msg, m.keys.Open):
		row, ok := m.highlighted()
		if !ok {
			return m, nil
		}
		return m, m.fetchDetail(m.active, row.ID)

	case key.Matches(msg, m.keys.Help):
		m.openHelp()
		return m, nil
	}

	var cmd tea.Cmd
	t.list, cmd = t.list.Update(msg)
	return m, cmd
}

// startEdit opens the form on the highlighted record. Selectable resources
// edit their selected record, selecting the highlighted one if none is.
func (m appModel) startEdit() (tea.Model, tea.Cmd) {
	t := m.current()
	spec := t.view.Spec()

	id := 0
	if spec.Selectable {
		if sel, ok := t.view.Selected(); ok {
			id = sel
		}
	}
	if id == 0 {
		row, ok := m.highlighted()
		if !ok {
			return m, nil
		}
		id = row.ID
		if spec.Selectable {
			if err := t.view.Select(id); err != nil {
				return m, m.showNotice(err.Error(), true)
			}
			m.refreshList(m.active)
		}
	}

	buf, ok := t.view.Buffer(id)
	if !ok {
		return m, m.showNotice(fmt.Sprintf("%s %d is not loaded", spec.Singular, id), true)
	}
	f := newForm(m.active, spec, id, buf)
	f.viaSel = spec.Selectable
	m.form = f
	m.screen = screenForm
	return m, textinput.Blink
}

func (m appModel) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := m.form
	if f == nil {
		m.screen = screenList
		return m, nil
	}
	fd := f.focused()

	switch {
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	case key.Matches(msg, m.keys.Back):
		m.form = nil
		m.screen = screenList
		return m, nil
	case key.Matches(msg, m.keys.Next):
		f.setFocus(f.focus + 1)
		return m, nil
	case key.Matches(msg, m.keys.Prev):
		f.setFocus(f.focus - 1)
		return m, nil
	case key.Matches(msg, m.keys.Save):
		if f.submitting {
			return m, nil
		}
		return m, m.submitForm()
	case key.Matches(msg, m.keys.Toggle) && fd.Kind == resource.KindBool:
		v := !f.bools[fd.Name]
		f.bools[fd.Name] = v
		return m, m.applyField(fd, v)
	}
	if fd.Kind == resource.KindBool {
		return m, nil
	}

	before := f.inputs[f.focus].Value()
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	if after := f.inputs[f.focus].Value(); after != before {
		return m, tea.Batch(cmd, m.applyField(fd, after))
	}
	return m, cmd
}

// applyField writes one edited value into the record's buffer entry. New
// records have no entry; their values are read from the form on save.
func (m *appModel) applyField(fd resource.Field, value any) tea.Cmd {
	f := m.form
	if f.creating() {
		return nil
	}
	v := m.tabs[f.tab].view
	var err error
	if f.viaSel {
		err = v.EditSelected(fd.Name, value)
	} else {
		err = v.SetField(f.id, fd.Name, value)
	}
	if err != nil {
		return m.showNotice(err.Error(), true)
	}
	return nil
}

func (m *appModel) submitForm() tea.Cmd {
	f := m.form
	if !f.creating() {
		if changes, ok := m.tabs[f.tab].view.Changes(f.id); ok && len(changes) == 0 {
			m.form = nil
			m.screen = screenList
			return m.showNotice("No changes", false)
		}
	}
	f.submitting = true

	if f.creating() {
		fields := f.values()
		return m.mutate(f.tab, 0, opCreated, func(ctx context.Context, v listedit.View) (int, error) {
			row, err := v.Create(ctx, fields)
			return row.ID, err
		})
	}

	id := f.id
	if f.viaSel {
		return m.mutate(f.tab, id, opUpdated, func(ctx context.Context, v listedit.View) (int, error) {
			return id, v.SaveSelected(ctx)
		})
	}
	return m.mutate(f.tab, id, opUpdated, func(ctx context.Context, v listedit.View) (int, error) {
		changes, ok := v.Changes(id)
		if !ok {
			return id, fmt.Errorf("%s %d: %w", v.Spec().Name, id, listedit.ErrNotFound)
		}
		return id, v.Update(ctx, id, changes)
	})
}

func (m appModel) updateModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	switch m.modal {
	case modalAlert:
		if key.Matches(msg, m.keys.Back) || msg.String() == "enter" {
			m.closeModal()
		}
		return m, nil

	case modalConfirmDelete:
		switch {
		case key.Matches(msg, m.keys.Switch):
			m.confirmFocus = m.confirmFocus.toggle()
		case key.Matches(msg, m.keys.Yes):
			return m.confirmDelete()
		case key.Matches(msg, m.keys.No), key.Matches(msg, m.keys.Back):
			m.closeModal()
		case msg.String() == "enter":
			if m.confirmFocus == confirmFocusConfirm {
				return m.confirmDelete()
			}
			m.closeModal()
		}
		return m, nil
	}
	return m, nil
}

func (m appModel) confirmDelete() (tea.Model, tea.Cmd) {
	id := m.pendingDelete
	m.closeModal()
	if id == 0 {
		return m, nil
	}
	return m, m.mutate(m.active, id, opDeleted, func(ctx context.Context, v listedit.View) (int, error) {
		return id, v.Remove(ctx, id)
	})
}

func (m appModel) updateOwners(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.owners.FilterState() != list.Filtering {
		switch {
		case msg.String() == "ctrl+c":
			return m, tea.Quit
		case key.Matches(msg, m.keys.Back):
			m.screen = screenList
			return m, nil
		case msg.String() == "enter":
			it, ok := m.owners.SelectedItem().(ownerItem)
			if !ok {
				return m, nil
			}
			m.screen = screenList
			return m, m.load(m.active, listedit.Owned(it.id))
		}
	}
	var cmd tea.Cmd
	m.owners, cmd = m.owners.Update(msg)
	return m, cmd
}

func (m appModel) updatePager(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc", "q", "enter", "?":
		m.screen = screenList
		return m, nil
	}
	var cmd tea.Cmd
	m.detail, cmd = m.detail.Update(msg)
	return m, cmd
}

func (m *appModel) switchTab(i int) {
	n := len(m.tabs)
	if n == 0 {
		return
	}
	m.active = ((i % n) + n) % n
}

// tabDigit returns 1-9 for a digit key, 0 otherwise.
func tabDigit(msg tea.KeyMsg) int {
	s := msg.String()
	if len(s) == 1 && s[0] >= '1' && s[0] <= '9' {
		return int(s[0] - '0')
	}
	return 0
}

func (m *appModel) openOwnerPicker() {
	t := m.current()
	items := []list.Item{ownerItem{id: 0, label: "All"}}
	for _, r := range t.owners {
		items = append(items, ownerItem{id: r.ID, label: r.Label})
	}
	m.owners = newList("Owner", items)
	w, h := m.bodySize()
	m.owners.SetSize(w, h)
	selectRowByID(&m.owners, t.view.Filter().Owner)
	m.screen = screenOwners
}

func (m *appModel) openHelp() {
	md, _ := docs.Get("tui")
	m.detail.SetContent(renderMarkdown(md, m.detail.Width))
	m.detail.GotoTop()
	m.screen = screenHelp
}

func detailMarkdown(spec resource.Spec, row listedit.Row) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", row.Label)
	fmt.Fprintf(&b, "- **id**: %d\n", row.ID)
	if spec.Owner != nil {
		if v, ok := resource.At(row.Record, spec.Owner.Field); ok {
			fmt.Fprintf(&b, "- **%s**: %s\n", spec.Owner.Field, resource.Display(v))
		}
	}
	for _, fd := range spec.Fields {
		v, _ := resource.At(row.Record, fd.Name)
		fmt.Fprintf(&b, "- **%s**: %s\n", fd.Label, resource.Display(v))
	}
	if u, ok := row.Record["url"].(string); ok && u != "" {
		fmt.Fprintf(&b, "\n[Open image](%s)\n", u)
	}
	return b.String()
}
