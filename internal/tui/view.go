package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"ragc/internal/app"
	"ragc/internal/render"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true)
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	activeTabStyle = lipgloss.NewStyle().Bold(true).Underline(true).Foreground(lipgloss.Color("12"))
	tabStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	boxStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	focusBoxStyle  = boxStyle.Copy().BorderForeground(lipgloss.Color("12"))
	modalStyle     = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(lipgloss.Color("9")).Padding(0, 1)
	labelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(14)
)

func itoa(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

// View renders the layout for the active pane.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render("ragc") + "  " + mutedStyle.Render(m.opts.APIURL) + "\n")
	b.WriteString(m.viewTabs() + "\n")

	switch m.pane {
	case paneCollections:
		b.WriteString(m.viewCollections())
	case paneIngest:
		b.WriteString(m.viewIngest())
	case paneSearch:
		b.WriteString(m.viewSearch())
	case paneChat:
		b.WriteString(m.viewChat())
	}
	b.WriteString("\n")

	for _, n := range m.state.Notifier.Active() {
		b.WriteString(render.Notification(n.Level == app.LevelError, n.Text) + "\n")
	}
	b.WriteString(m.viewStatus())
	return b.String()
}

func (m Model) viewTabs() string {
	tabs := make([]string, 0, numPanes)
	for i, t := range paneTitles {
		label := "F" + strconv.Itoa(i+1) + " " + t
		if pane(i) == m.pane {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}
	return strings.Join(tabs, "  ")
}

func (m Model) viewStatus() string {
	if m.state.Busy() {
		return m.spin.View() + " working..."
	}
	help := "tab: next field  F1-F4: panes  ctrl+r: refresh  ctrl+c: quit"
	switch m.current().kind {
	case fieldList:
		help = "↑/↓: move  enter: info  d: delete  r: refresh  tab: create form"
	case fieldSelector:
		help = "←/→: choose collection  tab: next field"
	}
	return mutedStyle.Render(help)
}

func (m Model) box(focused bool, content string) string {
	if focused {
		return focusBoxStyle.Render(content)
	}
	return boxStyle.Render(content)
}

func (m Model) inputRow(label string, id inputID) string {
	return labelStyle.Render(label) + m.inputs[id].View()
}

func (m Model) focused(id inputID) bool {
	f := m.current()
	return f.kind == fieldInput && f.input == id
}

func (m Model) selectorRow(label string, s app.Selector) string {
	f := m.current()
	row := render.Selector(label, m.state.Registry.Options(s), m.state.Registry.Selected(s))
	if f.kind == fieldSelector && f.selector == s {
		return activeTabStyle.Render("›") + " " + row
	}
	return "  " + row
}

func (m Model) viewCollections() string {
	listFocused := m.current().kind == fieldList
	list := m.box(listFocused, headerStyle.Render("Collections")+"\n"+
		render.CollectionList(m.state.Registry.Names(), m.cursor))

	form := m.box(!listFocused, strings.Join([]string{
		headerStyle.Render("Create collection"),
		m.inputRow("Name", inCreateName),
		m.inputRow("Vector size", inCreateSize),
		m.inputRow("Distance", inCreateDistance),
	}, "\n"))

	parts := []string{list, form}
	if m.state.Info != nil {
		parts = append(parts, boxStyle.Render(render.CollectionInfo(*m.state.Info)))
	}
	if m.confirm != "" {
		parts = append(parts, modalStyle.Render("Delete collection "+strconv.Quote(m.confirm)+"? (y/n)"))
	}
	return strings.Join(parts, "\n")
}

func (m Model) viewIngest() string {
	add := m.box(m.focused(inChunk), strings.Join([]string{
		headerStyle.Render("Add vector"),
		m.selectorRow("Collection", app.SelectAdd),
		m.inputRow("Chunk", inChunk),
	}, "\n"))
	upload := m.box(m.focused(inUploadPath) || m.focused(inChunkSize) || m.focused(inChunkOverlap), strings.Join([]string{
		headerStyle.Render("Upload file"),
		m.selectorRow("Collection", app.SelectUpload),
		m.inputRow("File", inUploadPath),
		m.inputRow("Chunk size", inChunkSize),
		m.inputRow("Chunk overlap", inChunkOverlap),
	}, "\n"))
	return add + "\n" + upload
}

func (m Model) viewSearch() string {
	form := m.box(m.focused(inQuery) || m.focused(inLimit), strings.Join([]string{
		headerStyle.Render("Search"),
		m.selectorRow("Collection", app.SelectSearch),
		m.inputRow("Query", inQuery),
		m.inputRow("Limit", inLimit),
	}, "\n"))
	return form + "\n" + boxStyle.Render(m.results.View())
}

func (m Model) viewChat() string {
	collection := m.state.Registry.Selected(app.SelectSearch)
	if collection == "" {
		collection = m.ctrl.Defaults().ChatCollection
	}
	header := headerStyle.Render("Chat") + "  " + mutedStyle.Render("collection: "+collection)
	return header + "\n" + boxStyle.Render(m.transcript.View()) + "\n" + m.inputs[inPrompt].View()
}

