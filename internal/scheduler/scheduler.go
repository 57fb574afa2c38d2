// Package scheduler owns the two background timers: the periodic sweep
// that reverts stale completed tasks, and the once-per-calendar-day summary
// email. The timers are independent and both passes are idempotent, so a
// double run after a restart is harmless.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/om-08/level-up-tasks/internal/auth"
	"github.com/om-08/level-up-tasks/internal/clock"
	"github.com/om-08/level-up-tasks/internal/config"
	"github.com/om-08/level-up-tasks/internal/points"
	"github.com/om-08/level-up-tasks/internal/rank"
	"github.com/om-08/level-up-tasks/internal/summary"
	"github.com/om-08/level-up-tasks/internal/task"
)

type Scheduler struct {
	tasks  *task.FileRepo
	ledger *points.FileRepo
	users  *auth.FileRepo
	ranks  *rank.Resolver
	sender summary.Sender
	clock  clock.Clock
	logger *log.Logger

	resetAfter  time.Duration
	sweepEvery  time.Duration
	sendHourUTC int
}

func New(tasks *task.FileRepo, ledger *points.FileRepo, users *auth.FileRepo, ranks *rank.Resolver, sender summary.Sender, clk clock.Clock, logger *log.Logger, cfg *config.Config) *Scheduler {
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{
		tasks:       tasks,
		ledger:      ledger,
		users:       users,
		ranks:       ranks,
		sender:      sender,
		clock:       clk,
		logger:      logger,
		resetAfter:  time.Duration(cfg.Reset.AfterHours) * time.Hour,
		sweepEvery:  time.Duration(cfg.Reset.SweepMinutes) * time.Minute,
		sendHourUTC: cfg.Email.SendHourUTC,
	}
}

// Start runs both timers until ctx is cancelled. A reset pass runs
// immediately so a long-stopped server catches up on boot.
func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		s.ResetPass(s.clock.Now())

		resetTick := time.NewTicker(s.sweepEvery)
		defer resetTick.Stop()
		mailTick := time.NewTicker(15 * time.Minute)
		defer mailTick.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-resetTick.C:
				s.ResetPass(s.clock.Now())
			case <-mailTick.C:
				s.SummaryPass(ctx, s.clock.Now())
			}
		}
	}()
}

// ResetPass reverts every task completed at least resetAfter ago, per
// user. Points are untouched. Running the pass twice back to back changes
// nothing the second time.
func (s *Scheduler) ResetPass(now time.Time) {
	for _, uid := range s.tasks.Users() {
		repo := s.tasks.ForUser(uid)
		ts, err := repo.List()
		if err != nil {
			s.logger.Printf("[reset] list tasks for %s: %v", uid, err)
			continue
		}
		next, changed := task.ResetDue(ts, now, s.resetAfter)
		if !changed {
			continue
		}
		if err := repo.ReplaceAll(next); err != nil {
			s.logger.Printf("[reset] save tasks for %s: %v", uid, err)
			continue
		}
		if err := s.ledger.ForUser(uid).MarkTaskReset(points.Day(now)); err != nil {
			s.logger.Printf("[reset] mark reset for %s: %v", uid, err)
		}
		s.logger.Printf("[reset] reverted stale completed tasks user=%s", uid)
	}
}

// SummaryPass emails each registered account at most once per calendar
// day, after the configured send hour. Accounts come from the auth repo,
// not the ledger: a user who never earned a point still gets a summary
// over zero-value ledger state. A failed send is not marked, so the next
// tick retries; a sent day is skipped no matter how often the pass runs.
func (s *Scheduler) SummaryPass(ctx context.Context, now time.Time) {
	if s.sender == nil {
		return
	}
	if now.UTC().Hour() < s.sendHourUTC {
		return
	}
	today := points.Day(now)

	for _, u := range s.users.Users() {
		if u.Email == "" {
			continue
		}
		ledger := s.ledger.ForUser(u.ID)
		state := ledger.Get()
		if state.LastEmailSent == today {
			continue
		}

		ts, err := s.tasks.ForUser(u.ID).List()
		if err != nil {
			s.logger.Printf("[summary] list tasks for %s: %v", u.ID, err)
			continue
		}

		snap := summary.Build(u.ID, u.Email, ts, state.Points, s.ranks.Current(state.Points).Name, now)
		snap.SenderEmail = state.SenderEmail

		if err := s.sender.Send(ctx, snap); err != nil {
			s.logger.Printf("[summary] send to %s failed: %v", u.Email, err)
			continue
		}
		if err := ledger.MarkEmailSent(today); err != nil {
			s.logger.Printf("[summary] mark sent for %s: %v", u.ID, err)
		}
	}
}
