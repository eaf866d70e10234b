package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ragc/internal/app"
	"ragc/internal/domain"
	"ragc/internal/render"
)

type pane int

const (
	paneCollections pane = iota
	paneIngest
	paneSearch
	paneChat
	numPanes
)

var paneTitles = [numPanes]string{"Collections", "Ingest", "Search", "Chat"}

type inputID int

const (
	inCreateName inputID = iota
	inCreateSize
	inCreateDistance
	inChunk
	inUploadPath
	inChunkSize
	inChunkOverlap
	inQuery
	inLimit
	inPrompt
	numInputs
)

type fieldKind int

const (
	fieldList fieldKind = iota
	fieldInput
	fieldSelector
)

type field struct {
	kind     fieldKind
	input    inputID
	selector app.Selector
}

// fields lists the focusable controls of each pane in tab order.
var fields = [numPanes][]field{
	paneCollections: {
		{kind: fieldList},
		{kind: fieldInput, input: inCreateName},
		{kind: fieldInput, input: inCreateSize},
		{kind: fieldInput, input: inCreateDistance},
	},
	paneIngest: {
		{kind: fieldSelector, selector: app.SelectAdd},
		{kind: fieldInput, input: inChunk},
		{kind: fieldSelector, selector: app.SelectUpload},
		{kind: fieldInput, input: inUploadPath},
		{kind: fieldInput, input: inChunkSize},
		{kind: fieldInput, input: inChunkOverlap},
	},
	paneSearch: {
		{kind: fieldSelector, selector: app.SelectSearch},
		{kind: fieldInput, input: inQuery},
		{kind: fieldInput, input: inLimit},
	},
	paneChat: {
		{kind: fieldInput, input: inPrompt},
	},
}

// deltaMsg carries a settled handler result back to the update loop.
type deltaMsg struct{ delta app.Delta }

type expireMsg struct{}

// Options configure the TUI.
type Options struct {
	APIURL       string
	Welcome      bool
	VectorSize   int
	Distance     domain.Distance
	ChunkSize    int
	ChunkOverlap int
}

// Model is the Bubble Tea model for the client.
type Model struct {
	ctx   context.Context
	ctrl  *app.Controller
	state *app.State
	opts  Options

	pane    pane
	focus   [numPanes]int
	cursor  int
	confirm string

	inputs     [numInputs]textinput.Model
	results    viewport.Model
	transcript viewport.Model
	spin       spinner.Model

	width  int
	height int
	ready  bool
}

// New creates a model bound to ctx; cancelling ctx aborts outstanding calls.
func New(ctx context.Context, ctrl *app.Controller, state *app.State, opts Options) Model {
	m := Model{ctx: ctx, ctrl: ctrl, state: state, opts: opts}

	placeholders := [numInputs]string{
		inCreateName:     "collection name",
		inCreateSize:     "vector size",
		inCreateDistance: "COSINE | EUCLID | DOT | MANHATTAN",
		inChunk:          "text chunk to embed",
		inUploadPath:     "path to file",
		inChunkSize:      "chunk size",
		inChunkOverlap:   "chunk overlap",
		inQuery:          "search query",
		inLimit:          "limit",
		inPrompt:         "ask something and press Enter",
	}
	for i := range m.inputs {
		ti := textinput.New()
		ti.Prompt = "> "
		ti.Placeholder = placeholders[i]
		ti.CharLimit = 0
		m.inputs[i] = ti
	}
	m.resetInputs(inCreateName, inCreateSize, inCreateDistance, inChunkSize, inChunkOverlap, inLimit)

	m.results = viewport.New(0, 0)
	m.transcript = viewport.New(0, 0)
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	m.spin = s

	if opts.Welcome {
		m.state.Apply(ctrl.Welcome())
	}
	m.refreshViews()
	m.focusCurrent()
	return m
}

// resetInputs restores fields to their configured defaults.
func (m *Model) resetInputs(ids ...inputID) {
	for _, id := range ids {
		v := ""
		switch id {
		case inCreateSize:
			v = itoa(m.opts.VectorSize)
		case inCreateDistance:
			v = string(m.opts.Distance)
		case inChunkSize:
			v = itoa(m.opts.ChunkSize)
		case inChunkOverlap:
			v = itoa(m.opts.ChunkOverlap)
		case inLimit:
			v = itoa(m.ctrl.Defaults().SearchLimit)
		}
		m.inputs[id].SetValue(v)
	}
}

// Init loads the registry once at startup.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.run(app.ActionRefresh, m.ctrl.Refresh))
}

// run moves a to in-flight and dispatches fn. Re-entrant calls are dropped.
func (m Model) run(a app.Action, fn func(ctx context.Context) app.Delta) tea.Cmd {
	wasBusy := m.state.Busy()
	if !m.state.Begin(a) {
		return nil
	}
	return m.dispatch(wasBusy, fn)
}

func (m Model) dispatch(wasBusy bool, fn func(ctx context.Context) app.Delta) tea.Cmd {
	ctx := m.ctx
	call := func() tea.Msg { return deltaMsg{delta: fn(ctx)} }
	if wasBusy {
		return call
	}
	return tea.Batch(call, m.spin.Tick)
}

func (m Model) current() field {
	fs := fields[m.pane]
	return fs[m.focus[m.pane]%len(fs)]
}

func (m *Model) focusCurrent() tea.Cmd {
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
	f := m.current()
	if f.kind == fieldInput {
		return m.inputs[f.input].Focus()
	}
	return nil
}

func (m *Model) moveFocus(step int) tea.Cmd {
	n := len(fields[m.pane])
	m.focus[m.pane] = ((m.focus[m.pane]+step)%n + n) % n
	return m.focusCurrent()
}

func (m *Model) switchPane(step int) tea.Cmd {
	m.pane = pane(((int(m.pane)+step)%int(numPanes) + int(numPanes)) % int(numPanes))
	m.confirm = ""
	return m.focusCurrent()
}

// Update handles key, window and result messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil

	case deltaMsg:
		cmd := m.apply(msg.delta)
		return m, cmd

	case expireMsg:
		m.state.Notifier.Expire(time.Now())
		return m, nil

	case spinner.TickMsg:
		if !m.state.Busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if m.confirm != "" {
			return m.updateConfirm(msg)
		}
		switch msg.String() {
		case "ctrl+right", "f5":
			cmd := m.switchPane(1)
			return m, cmd
		case "ctrl+left":
			cmd := m.switchPane(-1)
			return m, cmd
		case "f1", "f2", "f3", "f4":
			m.pane = pane(msg.String()[1] - '1')
			m.confirm = ""
			cmd := m.focusCurrent()
			return m, cmd
		case "tab":
			cmd := m.moveFocus(1)
			return m, cmd
		case "shift+tab":
			cmd := m.moveFocus(-1)
			return m, cmd
		case "ctrl+r":
			return m, m.run(app.ActionRefresh, m.ctrl.Refresh)
		case "pgup", "pgdown":
			return m.scroll(msg)
		}
		switch f := m.current(); f.kind {
		case fieldList:
			return m.updateList(msg)
		case fieldSelector:
			return m.updateSelector(f.selector, msg)
		case fieldInput:
			if msg.Type == tea.KeyEnter {
				cmd := m.submit()
				return m, cmd
			}
		}
	}

	f := m.current()
	if f.kind != fieldInput {
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[f.input], cmd = m.inputs[f.input].Update(msg)
	return m, cmd
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	name := m.confirm
	switch msg.String() {
	case "y", "Y", "enter":
		m.confirm = ""
		return m, m.run(app.ActionDelete, func(ctx context.Context) app.Delta {
			return m.ctrl.Delete(ctx, name, true)
		})
	case "n", "N", "esc":
		m.confirm = ""
		m.state.Apply(m.ctrl.Delete(m.ctx, name, false))
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	names := m.state.Registry.Names()
	switch msg.String() {
	case "up", "k":
		if len(names) > 0 {
			m.cursor = (m.cursor - 1 + len(names)) % len(names)
		}
	case "down", "j":
		if len(names) > 0 {
			m.cursor = (m.cursor + 1) % len(names)
		}
	case "r":
		return m, m.run(app.ActionRefresh, m.ctrl.Refresh)
	case "enter", "i":
		if name, ok := m.cursorName(); ok {
			return m, m.run(app.ActionInfo, func(ctx context.Context) app.Delta { return m.ctrl.Info(ctx, name) })
		}
	case "d", "delete":
		if name, ok := m.cursorName(); ok {
			m.confirm = name
		}
	}
	return m, nil
}

func (m Model) cursorName() (string, bool) {
	names := m.state.Registry.Names()
	if m.cursor < 0 || m.cursor >= len(names) {
		return "", false
	}
	return names[m.cursor], true
}

func (m Model) updateSelector(s app.Selector, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "left", "h":
		m.state.Registry.Cycle(s, -1)
	case "right", "l", " ":
		m.state.Registry.Cycle(s, 1)
	case "enter":
		cmd := m.moveFocus(1)
		return m, cmd
	}
	return m, nil
}

func (m Model) scroll(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.pane {
	case paneSearch:
		m.results, cmd = m.results.Update(msg)
	case paneChat:
		m.transcript, cmd = m.transcript.Update(msg)
	}
	return m, cmd
}

// submit triggers the action owned by the focused input.
func (m *Model) submit() tea.Cmd {
	val := func(id inputID) string { return m.inputs[id].Value() }
	reg := m.state.Registry
	switch m.current().input {
	case inCreateName, inCreateSize, inCreateDistance:
		form := app.CreateForm{Name: val(inCreateName), VectorSize: val(inCreateSize), Distance: val(inCreateDistance)}
		return m.run(app.ActionCreate, func(ctx context.Context) app.Delta { return m.ctrl.Create(ctx, form) })
	case inChunk:
		form := app.AddForm{Collection: reg.Selected(app.SelectAdd), Chunk: val(inChunk)}
		return m.run(app.ActionAdd, func(ctx context.Context) app.Delta { return m.ctrl.Add(ctx, form) })
	case inUploadPath, inChunkSize, inChunkOverlap:
		var paths []string
		if p := val(inUploadPath); p != "" {
			paths = []string{p}
		}
		form := app.UploadForm{
			Collection:   reg.Selected(app.SelectUpload),
			Paths:        paths,
			ChunkSize:    val(inChunkSize),
			ChunkOverlap: val(inChunkOverlap),
		}
		return m.run(app.ActionUpload, func(ctx context.Context) app.Delta { return m.ctrl.Upload(ctx, form) })
	case inQuery, inLimit:
		form := app.SearchForm{Collection: reg.Selected(app.SelectSearch), Query: val(inQuery), Limit: val(inLimit)}
		return m.run(app.ActionSearch, func(ctx context.Context) app.Delta { return m.ctrl.Search(ctx, form) })
	case inPrompt:
		return m.submitChat()
	}
	return nil
}

// submitChat shows the user's message immediately, then sends it.
func (m *Model) submitChat() tea.Cmd {
	prompt := m.inputs[inPrompt].Value()
	begin, ok := m.ctrl.BeginChat(prompt)
	if !ok {
		return nil
	}
	wasBusy := m.state.Busy()
	if !m.state.Begin(app.ActionChat) {
		return nil
	}
	m.state.Apply(begin)
	m.resetInputs(inPrompt)
	m.refreshTranscript()
	form := app.ChatForm{
		Prompt:     prompt,
		Collection: m.state.Registry.Selected(app.SelectSearch),
		Limit:      m.inputs[inLimit].Value(),
	}
	return m.dispatch(wasBusy, func(ctx context.Context) app.Delta { return m.ctrl.Chat(ctx, form) })
}

// apply folds a settled delta into the state and the widgets.
func (m *Model) apply(d app.Delta) tea.Cmd {
	if app.IsCancelled(d) && m.ctx.Err() != nil {
		d.Notices = nil
	}
	m.state.Apply(d)
	if d.ResetForm {
		switch d.Action {
		case app.ActionCreate:
			m.resetInputs(inCreateName, inCreateSize, inCreateDistance)
		case app.ActionAdd:
			m.resetInputs(inChunk)
		case app.ActionUpload:
			m.resetInputs(inUploadPath)
		}
	}
	if d.Collections != nil {
		if n := len(m.state.Registry.Names()); m.cursor >= n {
			m.cursor = max(0, n-1)
		}
	}
	m.refreshViews()
	if len(d.Notices) == 0 {
		return nil
	}
	return tea.Tick(m.state.Notifier.Lifetime(), func(time.Time) tea.Msg { return expireMsg{} })
}

func (m *Model) refreshViews() {
	m.results.SetContent(render.Results(m.state.Results))
	m.refreshTranscript()
}

func (m *Model) refreshTranscript() {
	m.transcript.SetContent(render.Transcript(m.state.Transcript.Messages()))
	m.transcript.GotoBottom()
}

func (m *Model) layout() {
	w := max(20, m.width-4)
	for i := range m.inputs {
		m.inputs[i].Width = w - 4
	}
	_, fh := boxStyle.GetFrameSize()
	// header, tabs, status and notifications
	reserved := 8 + fh
	m.results.Width = w
	m.results.Height = max(3, m.height-reserved-6)
	m.transcript.Width = w
	m.transcript.Height = max(3, m.height-reserved-2)
	m.refreshViews()
}
