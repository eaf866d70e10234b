// Package render turns client state into terminal text. Every function is pure:
// the same input always yields the same output.
package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"ragc/internal/domain"
)

const (
	EmptyResultsText = "No matching results."
	IdleResultsText  = "No search yet."
	NoContentText    = "(no content)"
	ErrorResultsText = "Search failed"
)

// ResultsStatus is the state of the result panel.
type ResultsStatus int

const (
	ResultsIdle ResultsStatus = iota
	ResultsLoaded
	ResultsEmpty
	ResultsError
)

// ResultsView is what the result panel shows.
type ResultsView struct {
	Status     ResultsStatus
	Collection string
	Query      string
	Results    []domain.SearchResult
	Err        string
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	scoreStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	botStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	selectedStyle = lipgloss.NewStyle().Reverse(true)
)

// Score formats a similarity score as a percentage with two decimals.
func Score(s float64) string {
	return strconv.FormatFloat(s*100, 'f', 2, 64) + "%"
}

// Results renders the result panel.
func Results(v ResultsView) string {
	switch v.Status {
	case ResultsIdle:
		return mutedStyle.Render(IdleResultsText)
	case ResultsError:
		msg := ErrorResultsText
		if v.Err != "" {
			msg += ": " + v.Err
		}
		return errorStyle.Render(msg)
	case ResultsEmpty:
		return mutedStyle.Render(EmptyResultsText)
	}
	if len(v.Results) == 0 {
		return mutedStyle.Render(EmptyResultsText)
	}
	var b strings.Builder
	for i, r := range v.Results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		text, ok := r.Text()
		if !ok || text == "" {
			text = NoContentText
		}
		fmt.Fprintf(&b, "%d. similarity %s\n%s", i+1, scoreStyle.Render(Score(r.Score)), text)
	}
	return b.String()
}

// Message renders one transcript entry.
func Message(m domain.ChatMessage) string {
	label := botStyle.Render("Assistant")
	if m.Origin == domain.OriginUser {
		label = userStyle.Render("You")
	}
	stamp := mutedStyle.Render(m.Timestamp.Format("15:04"))
	return label + " " + stamp + "\n" + m.Text
}

// Transcript renders the whole chat log in order.
func Transcript(msgs []domain.ChatMessage) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		parts = append(parts, Message(m))
	}
	return strings.Join(parts, "\n\n")
}

// CollectionInfo renders the info panel for one collection.
func CollectionInfo(info domain.CollectionInfo) string {
	rows := [][2]string{
		{"Collection", info.Name},
		{"Vectors", strconv.Itoa(info.VectorsCount)},
		{"Vector size", strconv.Itoa(info.VectorSize)},
		{"Distance", string(info.Distance)},
	}
	var b strings.Builder
	for i, r := range rows {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%-12s %s", titleStyle.Render(r[0]), r[1])
	}
	return b.String()
}

// CollectionList renders the known collections with the cursor row highlighted.
func CollectionList(names []string, cursor int) string {
	if len(names) == 0 {
		return mutedStyle.Render("No collections.")
	}
	lines := make([]string, len(names))
	for i, n := range names {
		if i == cursor {
			lines[i] = selectedStyle.Render("> " + n)
		} else {
			lines[i] = "  " + n
		}
	}
	return strings.Join(lines, "\n")
}

// Selector renders a one-line collection chooser.
func Selector(label string, options []string, selected string) string {
	if len(options) == 0 {
		return label + ": " + mutedStyle.Render("(no collections)")
	}
	value := selected
	if value == "" {
		value = mutedStyle.Render("(none)")
	}
	return fmt.Sprintf("%s: < %s >  %s", label, value, mutedStyle.Render(fmt.Sprintf("%d available", len(options))))
}

// Notification renders a toast line.
func Notification(isError bool, text string) string {
	if isError {
		return errorStyle.Render("✗ " + text)
	}
	return successStyle.Render("✓ " + text)
}
