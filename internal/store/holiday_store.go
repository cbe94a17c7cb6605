package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/todoapp/internal/model"
)

// ListHolidays returns the holidays that fall in year: rows stored for that
// year plus recurring rows from other years remapped onto it.
func (r *repo) ListHolidays(ctx context.Context, year int) ([]model.Holiday, error) {
	var rows []model.Holiday
	err := sqlx.SelectContext(ctx, r.ext, &rows, `
		SELECT id, name, date, year, recurring
		FROM holidays
		WHERE year = ? OR recurring = 1
		ORDER BY date, name`, year)
	if err != nil {
		return nil, fmt.Errorf("querying holidays: %w", err)
	}

	seen := make(map[string]bool, len(rows))
	holidays := make([]model.Holiday, 0, len(rows))
	for _, h := range rows {
		if h.Year != year {
			// Recurring holiday stored under another year: keep month-day.
			if len(h.Date) != len("2006-01-02") {
				continue
			}
			h.Date = strconv.Itoa(year) + h.Date[4:]
			h.Year = year
		}
		key := h.Date + "|" + strings.ToLower(h.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		holidays = append(holidays, h)
	}
	sort.SliceStable(holidays, func(i, j int) bool {
		return holidays[i].Date < holidays[j].Date
	})
	return holidays, nil
}

// UpsertHolidays inserts holidays, replacing any existing row with the
// same date and name.
func (r *repo) UpsertHolidays(ctx context.Context, holidays []model.Holiday) error {
	return r.inTx(ctx, func(tx *repo) error {
		for _, h := range holidays {
			if strings.TrimSpace(h.Name) == "" {
				return fmt.Errorf("holiday name must not be empty")
			}
			year, err := strconv.Atoi(h.Date[:min(4, len(h.Date))])
			if err != nil || len(h.Date) != len("2006-01-02") {
				return fmt.Errorf("holiday %q: invalid date %q", h.Name, h.Date)
			}
			_, err = tx.ext.ExecContext(ctx, `
				INSERT INTO holidays (name, date, year, recurring)
				VALUES (?, ?, ?, ?)
				ON CONFLICT(date, name) DO UPDATE SET
					year = excluded.year,
					recurring = excluded.recurring`,
				h.Name, h.Date, year, boolToInt(h.Recurring),
			)
			if err != nil {
				return fmt.Errorf("upserting holiday %q: %w", h.Name, err)
			}
		}
		return nil
	})
}
