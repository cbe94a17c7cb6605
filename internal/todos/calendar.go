package todos

import (
	"context"
	"strings"
	"time"

	"github.com/nhle/todoapp/internal/clock"
	"github.com/nhle/todoapp/internal/model"
	"github.com/nhle/todoapp/internal/recurrence"
	"github.com/nhle/todoapp/internal/store"
)

// maxProjected bounds how many occurrences of one monthly or yearly todo are
// walked when projecting it into a month: about 33 years of a monthly todo.
// Daily and weekly todos skip straight to the month and never reach it.
const maxProjected = 400

// Projection is a future occurrence of a recurring todo. It is not stored;
// the instance is only created when the current one is completed.
type Projection struct {
	TodoID  int64     `json:"todo_id"`
	Title   string    `json:"title"`
	DueDate time.Time `json:"due_date"`
}

// CalendarMonth is everything shown on one month of the calendar.
type CalendarMonth struct {
	Year        int             `json:"year"`
	Month       time.Month      `json:"month"`
	Todos       []model.Todo    `json:"todos"`
	Projections []Projection    `json:"projections"`
	Holidays    []model.Holiday `json:"holidays"`
}

// Calendar returns the todos due in the given month of the anchored zone,
// projected occurrences of open recurring todos, and the month's holidays.
func (s *Service) Calendar(ctx context.Context, userID int64, year int, month time.Month) (*CalendarMonth, error) {
	if month < time.January || month > time.December {
		return nil, invalid("month", "must be between 1 and 12")
	}
	if year < 1 || year > 9999 {
		return nil, invalid("year", "must be between 1 and 9999")
	}

	start := time.Date(year, month, 1, 0, 0, 0, 0, s.anchor.Location())
	end := clock.EndOfMonth(start)

	todos, err := s.store.ListTodos(ctx, userID, store.TodoFilter{
		DueFrom: &start,
		DueTo:   &end,
		SortBy:  "due_date",
		Now:     s.anchor.Now(),
	})
	if err != nil {
		return nil, err
	}

	open, err := s.store.ListTodos(ctx, userID, store.TodoFilter{
		Status: store.StatusActive,
		DueTo:  &end,
		Now:    s.anchor.Now(),
	})
	if err != nil {
		return nil, err
	}
	projections := []Projection{}
	for _, todo := range open {
		if !todo.IsRecurring() || todo.DueDate == nil {
			continue
		}
		projections = append(projections, project(todo, start, end)...)
	}

	holidays, err := s.store.ListHolidays(ctx, year)
	if err != nil {
		return nil, err
	}
	prefix := start.Format("2006-01-")
	inMonth := []model.Holiday{}
	for _, h := range holidays {
		if strings.HasPrefix(h.Date, prefix) {
			inMonth = append(inMonth, h)
		}
	}

	if todos == nil {
		todos = []model.Todo{}
	}
	return &CalendarMonth{
		Year:        year,
		Month:       month,
		Todos:       todos,
		Projections: projections,
		Holidays:    inMonth,
	}, nil
}

// project walks the occurrences following todo's due date and keeps those
// inside [start, end].
func project(todo model.Todo, start, end time.Time) []Projection {
	var out []Projection
	cur := skipAhead(*todo.DueDate, todo.Recurrence, start)
	for i := 0; i < maxProjected; i++ {
		next, err := recurrence.NextDueDate(&cur, todo.Recurrence)
		if err != nil || next.After(end) {
			break
		}
		if !next.Before(start) {
			out = append(out, Projection{TodoID: todo.ID, Title: todo.Title, DueDate: next})
		}
		cur = next
	}
	return out
}

// skipAhead moves a daily or weekly due date forward by whole periods to an
// occurrence still before start. Monthly and yearly dates clamp to short
// months, so their chain has to be walked step by step.
func skipAhead(due time.Time, pattern model.Recurrence, start time.Time) time.Time {
	var step int
	switch pattern {
	case model.RecurrenceDaily:
		step = 1
	case model.RecurrenceWeekly:
		step = 7
	default:
		return due
	}
	periods := int(start.Sub(due)/(24*time.Hour)) / step
	if periods < 2 {
		return due
	}
	return due.AddDate(0, 0, (periods-1)*step)
}

// Holidays returns the holidays of year, including recurring ones.
func (s *Service) Holidays(ctx context.Context, year int) ([]model.Holiday, error) {
	if year < 1 || year > 9999 {
		return nil, invalid("year", "must be between 1 and 9999")
	}
	holidays, err := s.store.ListHolidays(ctx, year)
	if err != nil {
		return nil, err
	}
	if holidays == nil {
		holidays = []model.Holiday{}
	}
	return holidays, nil
}
