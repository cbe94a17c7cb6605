package todos

import (
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nhle/todoapp/internal/clock"
	"github.com/nhle/todoapp/internal/model"
)

const (
	maxTitleLen        = 500
	maxSubtaskTitleLen = 200
	maxTagNameLen      = 50
	maxTemplateNameLen = 100
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

func validateText(field, s string, maxLen int) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", invalid(field, "must not be empty")
	}
	if utf8.RuneCountInString(s) > maxLen {
		return "", invalid(field, "must be at most %d characters", maxLen)
	}
	return s, nil
}

func validateColor(color string) (string, error) {
	color = strings.TrimSpace(color)
	if !colorPattern.MatchString(color) {
		return "", invalid("color", "must be a hex color like #3B82F6")
	}
	return strings.ToUpper(color), nil
}

func parsePriority(s string) (model.Priority, error) {
	p, err := model.ParsePriority(s)
	if err != nil {
		return "", invalid("priority", "must be one of high, medium, low")
	}
	return p, nil
}

func parseRecurrence(s string) (model.Recurrence, error) {
	r, err := model.ParseRecurrence(s)
	if err != nil {
		return "", invalid("recurrence_pattern", "must be one of daily, weekly, monthly, yearly")
	}
	return r, nil
}

func parseReminder(minutes *int) (*model.ReminderLead, error) {
	if minutes == nil {
		return nil, nil
	}
	lead, err := model.ParseReminderLead(*minutes)
	if err != nil {
		return nil, invalid("reminder_minutes", "must be one of 15, 30, 60, 120, 1440, 2880, 10080")
	}
	return &lead, nil
}

func (s *Service) parseDue(v string) (*time.Time, error) {
	if strings.TrimSpace(v) == "" {
		return nil, nil
	}
	t, err := s.anchor.Parse(v)
	if err != nil {
		if errors.Is(err, clock.ErrInvalidDate) {
			return nil, invalid("due_date", "must be an ISO-8601 date")
		}
		return nil, err
	}
	return &t, nil
}

// checkSchedule enforces that recurrence and reminders only exist
// alongside a due date.
func checkSchedule(due *time.Time, rec model.Recurrence, lead *model.ReminderLead) error {
	if due != nil {
		return nil
	}
	if rec.IsSet() {
		return invalid("recurrence_pattern", "requires a due date")
	}
	if lead != nil {
		return invalid("reminder_minutes", "requires a due date")
	}
	return nil
}
