package tui

import (
	"context"
	"fmt"
	"time"

	"placeholder-cli/internal/listedit"
	"placeholder-cli/internal/resource"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

type screen int

const (
	screenList screen = iota
	screenForm
	screenOwners
	screenDetail
	screenHelp
)

type modalKind int

const (
	modalNone modalKind = iota
	modalConfirmDelete
	modalAlert
)

const defaultNoticeTTL = 3 * time.Second

const (
	opCreated = "created"
	opUpdated = "updated"
	opDeleted = "deleted"
)

type loadedMsg struct {
	tab int
	err error
}

type mutatedMsg struct {
	tab int
	op  string
	key int // pending key the mutation was counted under
	id  int
	err error
}

type detailMsg struct {
	tab int
	row listedit.Row
	err error
}

type ownersMsg struct {
	tab  int
	rows []listedit.Row
	err  error
}

type noticeExpiredMsg struct{ seq int }

// tab is one resource view and its list widget.
type tab struct {
	view listedit.View
	list list.Model

	loading bool
	pending map[int]int // in-flight mutations per id; 0 is creates

	owners    []listedit.Row
	hasOwners bool
}

type appModel struct {
	ctx  context.Context
	log  *zap.Logger
	opts Options
	keys keyMap

	tabs   []tab
	active int

	width  int
	height int

	screen screen
	form   *form
	owners list.Model
	detail viewport.Model

	modal         modalKind
	modalTitle    string
	modalBody     string
	confirmFocus  confirmModalFocus
	pendingDelete int

	spinner spinner.Model

	notice    string
	noticeErr bool
	noticeSeq int
	noticeTTL time.Duration
}

func newAppModel(ctx context.Context, views []listedit.View, opts Options) appModel {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	m := appModel{
		ctx:       ctx,
		log:       log,
		opts:      opts,
		keys:      defaultKeyMap(),
		noticeTTL: defaultNoticeTTL,
		spinner:   spinner.New(spinner.WithSpinner(spinner.MiniDot)),
		detail:    viewport.New(0, 0),
		owners:    newList("Owner", nil),
	}
	for i, v := range views {
		m.tabs = append(m.tabs, tab{
			view:    v,
			list:    newList(v.Spec().Heading(), nil),
			pending: map[int]int{},
		})
		if v.Spec().Name == opts.Resource {
			m.active = i
		}
	}
	return m
}

func (m appModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.ensureLoaded())
}

func (m *appModel) current() *tab {
	return &m.tabs[m.active]
}

// ensureLoaded starts the first load of the active tab.
func (m *appModel) ensureLoaded() tea.Cmd {
	if len(m.tabs) == 0 {
		return nil
	}
	t := m.current()
	if t.loading || t.view.LoadPhase() != listedit.PhaseIdle {
		return nil
	}
	return m.load(m.active, listedit.All())
}

func (m *appModel) load(i int, f listedit.Filter) tea.Cmd {
	t := &m.tabs[i]
	t.loading = true
	v, ctx := t.view, m.ctx
	return func() tea.Msg {
		return loadedMsg{tab: i, err: v.Load(ctx, f)}
	}
}

func (m *appModel) mutate(i, id int, op string, fn func(ctx context.Context, v listedit.View) (int, error)) tea.Cmd {
	t := &m.tabs[i]
	t.pending[id]++
	m.refreshList(i)
	v, ctx := t.view, m.ctx
	return func() tea.Msg {
		got, err := fn(ctx, v)
		if got == 0 {
			got = id
		}
		return mutatedMsg{tab: i, op: op, key: id, id: got, err: err}
	}
}

func (m *appModel) fetchDetail(i, id int) tea.Cmd {
	v, ctx := m.tabs[i].view, m.ctx
	return func() tea.Msg {
		row, err := v.Fetch(ctx, id)
		return detailMsg{tab: i, row: row, err: err}
	}
}

// fetchOwners lists the owner collection through a separate view so the
// owner's own tab keeps its filter.
func (m *appModel) fetchOwners(i int) tea.Cmd {
	spec := m.tabs[i].view.Spec()
	if spec.Owner == nil || m.opts.Open == nil {
		return nil
	}
	open, ctx := m.opts.Open, m.ctx
	ownerName := spec.Owner.Resource
	return func() tea.Msg {
		ownerSpec, ok := resource.Lookup(ownerName)
		if !ok {
			return ownersMsg{tab: i, err: fmt.Errorf("unknown owner resource %q", ownerName)}
		}
		v, err := open(ownerSpec)
		if err != nil {
			return ownersMsg{tab: i, err: err}
		}
		if err := v.Load(ctx, listedit.All()); err != nil {
			return ownersMsg{tab: i, err: err}
		}
		return ownersMsg{tab: i, rows: v.Rows()}
	}
}

// refreshList rebuilds tab i's list from its view, keeping the cursor on the
// same record when it still exists.
func (m *appModel) refreshList(i int) {
	t := &m.tabs[i]
	curID := 0
	if it, ok := t.list.SelectedItem().(rowItem); ok {
		curID = it.row.ID
	}
	sel, hasSel := t.view.Selected()

	rows := t.view.Rows()
	items := make([]list.Item, 0, len(rows))
	for _, r := range rows {
		items = append(items, rowItem{
			row:      r,
			busy:     t.pending[r.ID] > 0 || t.view.Submitting(r.ID),
			selected: hasSel && sel == r.ID,
		})
	}
	_ = t.list.SetItems(items)
	if curID != 0 {
		selectRowByID(&t.list, curID)
	}
}

func (m *appModel) highlighted() (listedit.Row, bool) {
	it, ok := m.current().list.SelectedItem().(rowItem)
	if !ok {
		return listedit.Row{}, false
	}
	return it.row, true
}

func (m *appModel) showNotice(text string, isErr bool) tea.Cmd {
	m.noticeSeq++
	m.notice = text
	m.noticeErr = isErr
	if m.noticeTTL <= 0 {
		return nil
	}
	seq := m.noticeSeq
	return tea.Tick(m.noticeTTL, func(time.Time) tea.Msg { return noticeExpiredMsg{seq: seq} })
}

func (m *appModel) openAlert(title, body string) {
	m.modal = modalAlert
	m.modalTitle = title
	m.modalBody = body
}

func (m *appModel) closeModal() {
	m.modal = modalNone
	m.modalTitle = ""
	m.modalBody = ""
	m.pendingDelete = 0
	m.confirmFocus = confirmFocusConfirm
}

func (m *appModel) resize() {
	bodyW, bodyH := m.bodySize()
	for i := range m.tabs {
		m.tabs[i].list.SetSize(bodyW, bodyH)
	}
	m.owners.SetSize(bodyW, bodyH)
	m.detail.Width = bodyW
	m.detail.Height = bodyH
}

// bodySize is the area between the header rows and the footer.
func (m appModel) bodySize() (int, int) {
	w := m.width
	if w < 20 {
		w = 20
	}
	h := m.height - 3
	if h < 3 {
		h = 3
	}
	return w, h
}
