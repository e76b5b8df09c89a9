package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"github.com/amirbrooks/tasktrack/internal/due"
	"github.com/amirbrooks/tasktrack/internal/task"
)

// styles holds the lipgloss styles used for cards and menus. A nil *styles
// renders plain text.
type styles struct {
	title    lipgloss.Style
	box      lipgloss.Style
	label    lipgloss.Style
	done     lipgloss.Style
	progress lipgloss.Style
	high     lipgloss.Style
	warn     lipgloss.Style
	errText  lipgloss.Style
}

func newStyles(color bool) *styles {
	if !color {
		return nil
	}
	return &styles{
		title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		box:      lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8")).Padding(0, 1),
		label:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		done:     lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		progress: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		high:     lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		warn:     lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		errText:  lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

func (s *styles) heading(text string) string {
	if s == nil {
		return text
	}
	return s.title.Render(text)
}

func (s *styles) warning(text string) string {
	if s == nil {
		return text
	}
	return s.warn.Render(text)
}

func (s *styles) failure(text string) string {
	if s == nil {
		return text
	}
	return s.errText.Render(text)
}

func (s *styles) status(v string) string {
	if s == nil {
		return v
	}
	switch v {
	case task.StatusDone:
		return s.done.Render(v)
	case task.StatusInProgress:
		return s.progress.Render(v)
	}
	return v
}

func (s *styles) priority(v string) string {
	if s == nil || v != task.PriorityHigh {
		return v
	}
	return s.high.Render(v)
}

// card renders a task the way RenderHuman does, boxed when styled.
func (s *styles) card(t task.Task) string {
	if s == nil {
		return strings.TrimRight(t.RenderHuman(), "\n")
	}
	var b strings.Builder
	b.WriteString(s.title.Render(fmt.Sprintf("Task #%d: %s", t.ID, t.Title)))
	row := func(label, value string) {
		b.WriteString("\n")
		b.WriteString(s.label.Render(label + ":"))
		b.WriteString(" ")
		b.WriteString(value)
	}
	row("Description", t.Description)
	row("Category", t.Category)
	row("Due", due.Format(t.Due))
	row("Priority", s.priority(t.Priority))
	row("Status", s.status(t.Status))
	return s.box.Render(b.String())
}

// writeCards prints each task card separated by a blank line.
func writeCards(w io.Writer, st *styles, tasks []task.Task) {
	for i, t := range tasks {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, st.card(t))
	}
}

// writeTable prints tasks as an aligned table, or TSV when plain is set.
func writeTable(w io.Writer, tasks []task.Task, plain bool) {
	const header = "ID\tCATEGORY\tPRIORITY\tSTATUS\tDUE\tTITLE"
	if plain {
		fmt.Fprintln(w, header)
		for _, t := range tasks {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
				t.ID, t.Category, t.Priority, t.Status, due.Format(t.Due), t.Title)
		}
		return
	}
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, header)
	for _, t := range tasks {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.Category, t.Priority, t.Status, due.Format(t.Due), t.Title)
	}
	_ = tw.Flush()
}
