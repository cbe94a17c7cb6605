// Package sync runs the reminder sweep on a timer for a set of users and
// fans the claimed reminders out to deliverers and the TUI.
package sync

import (
	"context"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/nhle/todoapp/internal/model"
)

// SweepState represents the current state of a user's sweep.
type SweepState int

const (
	SweepIdle SweepState = iota
	SweepRunning
	SweepError
)

func (s SweepState) String() string {
	switch s {
	case SweepRunning:
		return "running"
	case SweepError:
		return "error"
	default:
		return "idle"
	}
}

// SweepStatus holds the sweep state for a single user.
type SweepStatus struct {
	UserID    int64
	State     SweepState
	LastSweep time.Time
	Error     error
}

// ReminderMsg is a tea.Msg sent when a sweep completes.
type ReminderMsg struct {
	UserID        int64
	Notifications []model.NotificationPayload
	Error         error
}

// Checker runs one reminder sweep for a user.
type Checker interface {
	CheckDue(ctx context.Context, userID int64) ([]model.NotificationPayload, error)
}

// Deliverer hands claimed reminders to an outside channel such as a mailbox.
type Deliverer interface {
	Deliver(ctx context.Context, userID int64, notifications []model.NotificationPayload) error
}

// sweepTimeout is the maximum time allowed for a single sweep and delivery.
const sweepTimeout = 30 * time.Second

const defaultInterval = 60 * time.Second

// Poller orchestrates background reminder sweeps for registered users.
type Poller struct {
	checker    Checker
	deliverers []Deliverer
	interval   time.Duration
	logger     zerolog.Logger

	users     []int64
	statuses  map[int64]*SweepStatus
	resultCh  chan ReminderMsg
	triggerCh map[int64]chan struct{}
	stopCh    chan struct{}
	wg        gosync.WaitGroup
	mu        gosync.Mutex
	running   bool
	stopped   bool
	now       func() time.Time
}

// New creates a Poller that sweeps every interval. A non-positive interval
// falls back to one minute.
func New(checker Checker, interval time.Duration, logger zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Poller{
		checker:   checker,
		interval:  interval,
		logger:    logger.With().Str("component", "poller").Logger(),
		statuses:  make(map[int64]*SweepStatus),
		resultCh:  make(chan ReminderMsg, 16),
		triggerCh: make(map[int64]chan struct{}),
		stopCh:    make(chan struct{}),
		now:       time.Now,
	}
}

// AddDeliverer registers d to receive every non-empty sweep result.
func (p *Poller) AddDeliverer(d Deliverer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deliverers = append(p.deliverers, d)
}

// Watch registers a user to be swept. Users added after Start are ignored.
func (p *Poller) Watch(userID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.statuses[userID]; ok {
		return
	}
	p.users = append(p.users, userID)
	p.statuses[userID] = &SweepStatus{UserID: userID, State: SweepIdle}
	p.triggerCh[userID] = make(chan struct{}, 1)
}

// Start launches one polling goroutine per watched user. Each sweeps once
// immediately and then on every tick until ctx is done or Stop is called.
// A stopped poller can be started again.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	if p.stopped {
		p.stopCh = make(chan struct{})
		p.stopped = false
	}
	p.running = true
	stop := p.stopCh
	users := make([]int64, len(p.users))
	copy(users, p.users)
	p.mu.Unlock()

	for _, id := range users {
		p.wg.Add(1)
		go p.pollUser(ctx, id, stop)
	}
	p.logger.Info().Int("users", len(users)).Dur("interval", p.interval).Msg("reminder poller started")
}

// Stop halts all polling goroutines and waits for in-flight sweeps.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	close(p.stopCh)
	p.running = false
	p.stopped = true
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info().Msg("reminder poller stopped")
}

// RefreshAll triggers an immediate sweep of every watched user.
func (p *Poller) RefreshAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, ch := range p.triggerCh {
		select {
		case ch <- struct{}{}:
		default:
			// A refresh is already pending.
		}
	}
}

// Statuses returns the current sweep status of every watched user, in the
// order they were registered.
func (p *Poller) Statuses() []SweepStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	statuses := make([]SweepStatus, 0, len(p.users))
	for _, id := range p.users {
		statuses = append(statuses, *p.statuses[id])
	}
	return statuses
}

// Listen returns a tea.Cmd that waits for the next sweep result. Call it
// again after handling each ReminderMsg to keep listening.
func (p *Poller) Listen() tea.Cmd {
	p.mu.Lock()
	stop := p.stopCh
	p.mu.Unlock()

	return func() tea.Msg {
		select {
		case msg := <-p.resultCh:
			return msg
		case <-stop:
			return nil
		}
	}
}

func (p *Poller) pollUser(ctx context.Context, userID int64, stop <-chan struct{}) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.mu.Lock()
	trigger := p.triggerCh[userID]
	p.mu.Unlock()

	p.sweep(ctx, userID)

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			p.sweep(ctx, userID)
		case <-trigger:
			p.sweep(ctx, userID)
		}
	}
}

// sweep runs one CheckDue for the user, hands the result to the deliverers
// and publishes it on the result channel.
func (p *Poller) sweep(ctx context.Context, userID int64) {
	p.setStatus(userID, SweepRunning, nil)

	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	notifications, err := p.checker.CheckDue(ctx, userID)
	if err != nil {
		p.logger.Error().Err(err).Int64("user_id", userID).Msg("reminder sweep failed")
		p.setStatus(userID, SweepError, err)
		p.sendResult(ReminderMsg{UserID: userID, Error: err})
		return
	}

	if len(notifications) > 0 {
		p.logger.Info().Int64("user_id", userID).Int("count", len(notifications)).Msg("reminders due")
		p.deliver(ctx, userID, notifications)
	}

	p.setStatus(userID, SweepIdle, nil)
	p.sendResult(ReminderMsg{UserID: userID, Notifications: notifications})
}

// deliver passes notifications to every deliverer. A failing deliverer is
// logged; the reminders stay claimed.
func (p *Poller) deliver(ctx context.Context, userID int64, notifications []model.NotificationPayload) {
	p.mu.Lock()
	deliverers := make([]Deliverer, len(p.deliverers))
	copy(deliverers, p.deliverers)
	p.mu.Unlock()

	for _, d := range deliverers {
		if err := d.Deliver(ctx, userID, notifications); err != nil {
			p.logger.Error().Err(err).Int64("user_id", userID).Msg("reminder delivery failed")
		}
	}
}

func (p *Poller) setStatus(userID int64, state SweepState, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	status, ok := p.statuses[userID]
	if !ok {
		return
	}
	status.State = state
	status.Error = err
	if state == SweepIdle {
		status.LastSweep = p.now()
	}
}

// sendResult publishes msg without blocking.
func (p *Poller) sendResult(msg ReminderMsg) {
	select {
	case p.resultCh <- msg:
	default:
		// Drop if no one is listening.
	}
}
