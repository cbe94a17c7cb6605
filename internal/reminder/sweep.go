package reminder

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nhle/todoapp/internal/clock"
	"github.com/nhle/todoapp/internal/model"
	"github.com/nhle/todoapp/internal/store"
)

// Sweeper finds a user's todos whose reminder window has opened and claims
// them so each due occurrence is notified at most once.
type Sweeper struct {
	repo   store.Repository
	anchor *clock.Anchor
	logger zerolog.Logger
}

// NewSweeper returns a Sweeper reading candidates from repo and evaluating
// them against anchor's current time.
func NewSweeper(repo store.Repository, anchor *clock.Anchor, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		repo:   repo,
		anchor: anchor,
		logger: logger.With().Str("component", "reminder").Logger(),
	}
}

// CheckDue returns a payload for every reminder that became due for userID
// and was claimed by this call. A todo that fails to claim is logged and
// skipped. An empty result is normal.
func (s *Sweeper) CheckDue(ctx context.Context, userID int64) ([]model.NotificationPayload, error) {
	candidates, err := s.repo.ListReminderCandidates(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing reminder candidates: %w", err)
	}

	now := s.anchor.Now()
	payloads := []model.NotificationPayload{}
	for _, todo := range candidates {
		if !IsNotificationDue(now, todo.DueDate, todo.Reminder, todo.LastNotificationSent) {
			continue
		}

		message := FormatRelativeDue(*todo.DueDate, now)
		n := model.Notification{
			ID:        uuid.New().String(),
			UserID:    userID,
			TodoID:    todo.ID,
			Message:   message,
			CreatedAt: now,
		}

		claimed, err := s.repo.ClaimReminder(ctx, n)
		if err != nil {
			s.logger.Error().
				Err(err).
				Int64("user_id", userID).
				Int64("todo_id", todo.ID).
				Msg("failed to claim reminder")
			continue
		}
		if !claimed {
			s.logger.Debug().
				Int64("todo_id", todo.ID).
				Msg("reminder already claimed")
			continue
		}

		payloads = append(payloads, model.NotificationPayload{
			ID:       n.ID,
			TodoID:   todo.ID,
			Title:    todo.Title,
			Message:  message,
			Priority: todo.Priority,
			DueDate:  *todo.DueDate,
		})
	}

	if len(payloads) > 0 {
		s.logger.Info().
			Int64("user_id", userID).
			Int("count", len(payloads)).
			Msg("reminders due")
	}
	return payloads, nil
}
