// Package todoform is the quick-add form for a new todo.
package todoform

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/todoapp/internal/clock"
	"github.com/nhle/todoapp/internal/model"
	"github.com/nhle/todoapp/internal/theme"
	"github.com/nhle/todoapp/internal/todos"
)

// SubmittedMsg is dispatched when the form is completed.
type SubmittedMsg struct {
	Input todos.CreateTodoInput
}

// CancelMsg is dispatched when the user aborts the form.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	title      string
	priority   string
	dueDate    string
	recurrence string
	reminder   int
	tagIDs     []int64
	subtasks   string
}

// Model is the Bubble Tea model for the quick-add form.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	anchor *clock.Anchor
	tags   []model.Tag
	width  int
	height int

	submitted bool
	quitOnEnd bool
}

// New creates a form that parses due dates in the anchored zone.
func New(anchor *clock.Anchor, tags []model.Tag, width, height int) Model {
	m := Model{
		fb:     &formBindings{priority: string(model.PriorityMedium), recurrence: string(model.RecurrenceNone)},
		anchor: anchor,
		tags:   tags,
		width:  width,
		height: height,
	}
	m.form = m.buildForm()
	return m
}

// Standalone makes the form quit the program when it completes or aborts,
// for use as the root model of a tea.Program.
func (m Model) Standalone() Model {
	m.quitOnEnd = true
	return m
}

// Init starts the form.
func (m Model) Init() tea.Cmd {
	return m.form.Init()
}

// Update handles messages for the form.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "ctrl+c" {
		return m, m.finish(func() tea.Msg { return CancelMsg{} })
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.submitted = true
		input := m.Input()
		return m, m.finish(func() tea.Msg { return SubmittedMsg{Input: input} })
	case huh.StateAborted:
		return m, m.finish(func() tea.Msg { return CancelMsg{} })
	}
	return m, cmd
}

func (m Model) finish(cmd tea.Cmd) tea.Cmd {
	if m.quitOnEnd {
		return tea.Quit
	}
	return cmd
}

// View renders the form.
func (m Model) View() string {
	if m.submitted && m.quitOnEnd {
		return ""
	}
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render("New Todo") + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// Submitted reports whether the form was completed rather than aborted.
func (m Model) Submitted() bool {
	return m.submitted
}

// Input converts the current field values into a create request.
func (m Model) Input() todos.CreateTodoInput {
	in := todos.CreateTodoInput{
		Title:      strings.TrimSpace(m.fb.title),
		Priority:   m.fb.priority,
		DueDate:    strings.TrimSpace(m.fb.dueDate),
		Recurrence: m.fb.recurrence,
		TagIDs:     m.fb.tagIDs,
	}
	if m.fb.reminder > 0 {
		minutes := m.fb.reminder
		in.ReminderMinutes = &minutes
	}
	for _, line := range strings.Split(m.fb.subtasks, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			in.Subtasks = append(in.Subtasks, line)
		}
	}
	return in
}

func (m *Model) buildForm() *huh.Form {
	fields := []huh.Field{
		huh.NewInput().
			Title("Title").
			Placeholder("What needs to be done?").
			Value(&m.fb.title).
			Validate(validateRequired("Title")),
		huh.NewSelect[string]().
			Title("Priority").
			Options(
				huh.NewOption("High", string(model.PriorityHigh)),
				huh.NewOption("Medium", string(model.PriorityMedium)),
				huh.NewOption("Low", string(model.PriorityLow)),
			).
			Value(&m.fb.priority),
		huh.NewInput().
			Title("Due").
			Placeholder("YYYY-MM-DD HH:MM (optional, " + clock.OffsetLabel(m.anchor.Now()) + ")").
			Value(&m.fb.dueDate).
			Validate(m.validateOptionalDate),
		huh.NewSelect[string]().
			Title("Repeat").
			Options(
				huh.NewOption("Never", string(model.RecurrenceNone)),
				huh.NewOption("Daily", string(model.RecurrenceDaily)),
				huh.NewOption("Weekly", string(model.RecurrenceWeekly)),
				huh.NewOption("Monthly", string(model.RecurrenceMonthly)),
				huh.NewOption("Yearly", string(model.RecurrenceYearly)),
			).
			Value(&m.fb.recurrence),
		huh.NewSelect[int]().
			Title("Reminder").
			Options(reminderOptions()...).
			Value(&m.fb.reminder),
	}
	if tagField := m.tagField(); tagField != nil {
		fields = append(fields, tagField)
	}
	fields = append(fields,
		huh.NewText().
			Title("Subtasks").
			Placeholder("One per line (optional)").
			Value(&m.fb.subtasks),
	)

	return huh.NewForm(
		huh.NewGroup(fields...),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func reminderOptions() []huh.Option[int] {
	opts := []huh.Option[int]{huh.NewOption("None", 0)}
	for _, l := range model.ReminderLeads {
		opts = append(opts, huh.NewOption(l.Label(), int(l)))
	}
	return opts
}

func (m *Model) tagField() huh.Field {
	if len(m.tags) == 0 {
		return nil
	}
	opts := make([]huh.Option[int64], len(m.tags))
	for i, t := range m.tags {
		opts[i] = huh.NewOption(t.Name, t.ID)
	}
	return huh.NewMultiSelect[int64]().
		Title("Tags").
		Options(opts...).
		Value(&m.fb.tagIDs)
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 4
	if h < 10 {
		h = 10
	}
	return h
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func (m *Model) validateOptionalDate(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if _, err := m.anchor.Parse(s); err != nil {
		return fmt.Errorf("invalid date, use YYYY-MM-DD or YYYY-MM-DD HH:MM")
	}
	return nil
}
