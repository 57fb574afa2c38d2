package scheduler

import (
	"context"
	"errors"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/om-08/level-up-tasks/internal/auth"
	"github.com/om-08/level-up-tasks/internal/clock"
	"github.com/om-08/level-up-tasks/internal/config"
	"github.com/om-08/level-up-tasks/internal/points"
	"github.com/om-08/level-up-tasks/internal/rank"
	"github.com/om-08/level-up-tasks/internal/summary"
	"github.com/om-08/level-up-tasks/internal/task"
)

type recorderSender struct {
	mu   sync.Mutex
	sent []summary.Snapshot
	fail bool
}

func (r *recorderSender) Send(_ context.Context, snap summary.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("smtp unavailable")
	}
	r.sent = append(r.sent, snap)
	return nil
}

func (r *recorderSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

type fixture struct {
	sched  *Scheduler
	tasks  *task.FileRepo
	ledger *points.FileRepo
	users  *auth.FileRepo
	sender *recorderSender
	clock  *clock.Fake
	userID string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := log.New(os.Stderr, "", 0)

	tasks, err := task.NewFileRepo(t.TempDir(), logger)
	require.NoError(t, err)
	ledger, err := points.NewFileRepo(t.TempDir(), logger)
	require.NoError(t, err)
	users, err := auth.NewFileRepo(t.TempDir())
	require.NoError(t, err)

	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	clk := clock.NewFake(start)
	u, err := users.CreateUser("user@example.com", "hash", "", start)
	require.NoError(t, err)

	sender := &recorderSender{}
	cfg := config.Default()
	sched := New(tasks, ledger, users, rank.NewResolver(cfg.Ranks), sender, clk, logger, cfg)

	return &fixture{
		sched:  sched,
		tasks:  tasks,
		ledger: ledger,
		users:  users,
		sender: sender,
		clock:  clk,
		userID: u.ID,
	}
}

func TestResetPass_RevertsStaleTasksAndKeepsPoints(t *testing.T) {
	f := newFixture(t)
	repo := f.tasks.ForUser(f.userID)

	done := f.clock.Now()
	_, err := repo.Create(task.Task{ID: "stale", Title: "Old", Points: 5, Completed: true, CompletedAt: &done, CreatedAt: done})
	require.NoError(t, err)
	_, _, err = f.ledger.ForUser(f.userID).Add(5)
	require.NoError(t, err)

	f.clock.Advance(25 * time.Hour)
	f.sched.ResetPass(f.clock.Now())

	got, ok, err := repo.Get("stale")
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, got.Completed, "stale completion reverted")
	assert.Nil(t, got.CompletedAt)

	assert.Equal(t, 5, f.ledger.ForUser(f.userID).Points(), "earned points survive the reset")
	assert.Equal(t, points.Day(f.clock.Now()), f.ledger.ForUser(f.userID).Get().LastTaskReset)
}

func TestResetPass_LeavesFreshCompletionsAlone(t *testing.T) {
	f := newFixture(t)
	repo := f.tasks.ForUser(f.userID)

	done := f.clock.Now()
	_, err := repo.Create(task.Task{ID: "fresh", Title: "New", Points: 5, Completed: true, CompletedAt: &done, CreatedAt: done})
	require.NoError(t, err)

	f.clock.Advance(23 * time.Hour)
	f.sched.ResetPass(f.clock.Now())

	got, _, err := repo.Get("fresh")
	require.NoError(t, err)
	assert.True(t, got.Completed, "under 24h stays completed")
}

func TestResetPass_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	repo := f.tasks.ForUser(f.userID)

	done := f.clock.Now()
	_, err := repo.Create(task.Task{ID: "stale", Title: "Old", Completed: true, CompletedAt: &done, CreatedAt: done})
	require.NoError(t, err)

	f.clock.Advance(25 * time.Hour)
	f.sched.ResetPass(f.clock.Now())
	first, err := repo.List()
	require.NoError(t, err)

	f.sched.ResetPass(f.clock.Now())
	second, err := repo.List()
	require.NoError(t, err)
	assert.Equal(t, first, second, "immediate second pass changes nothing")
}

func TestSummaryPass_SendsOncePerCalendarDay(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.ledger.ForUser(f.userID).Add(25)
	require.NoError(t, err)
	ctx := context.Background()

	// 10:00 UTC is before the 18:00 send hour.
	f.sched.SummaryPass(ctx, f.clock.Now())
	assert.Equal(t, 0, f.sender.count())

	f.clock.Advance(8 * time.Hour) // 18:00
	f.sched.SummaryPass(ctx, f.clock.Now())
	require.Equal(t, 1, f.sender.count())
	assert.Equal(t, "user@example.com", f.sender.sent[0].Email)
	assert.Equal(t, 25, f.sender.sent[0].Points)

	// Later the same day: the guard holds.
	f.clock.Advance(3 * time.Hour)
	f.sched.SummaryPass(ctx, f.clock.Now())
	assert.Equal(t, 1, f.sender.count())

	// Next day after the send hour: a new summary goes out.
	f.clock.Advance(24 * time.Hour)
	f.sched.SummaryPass(ctx, f.clock.Now())
	assert.Equal(t, 2, f.sender.count())
}

func TestSummaryPass_FailedSendIsRetriedNextPass(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.ledger.ForUser(f.userID).Add(5)
	require.NoError(t, err)
	ctx := context.Background()
	f.clock.Advance(9 * time.Hour) // 19:00

	f.sender.fail = true
	f.sched.SummaryPass(ctx, f.clock.Now())
	assert.Equal(t, 0, f.sender.count())
	assert.Empty(t, f.ledger.ForUser(f.userID).Get().LastEmailSent, "failure is not marked as sent")

	f.sender.fail = false
	f.sched.SummaryPass(ctx, f.clock.Now())
	assert.Equal(t, 1, f.sender.count())
}

func TestSummaryPass_UsesCustomSenderAddress(t *testing.T) {
	f := newFixture(t)
	ledger := f.ledger.ForUser(f.userID)
	_, _, err := ledger.Add(5)
	require.NoError(t, err)
	require.NoError(t, ledger.SetSenderEmail("custom@example.com"))

	f.clock.Advance(9 * time.Hour)
	f.sched.SummaryPass(context.Background(), f.clock.Now())
	require.Equal(t, 1, f.sender.count())
	assert.Equal(t, "custom@example.com", f.sender.sent[0].SenderEmail)
}

func TestSummaryPass_NilSenderIsANoOp(t *testing.T) {
	f := newFixture(t)
	f.sched.sender = nil
	_, _, err := f.ledger.ForUser(f.userID).Add(5)
	require.NoError(t, err)

	f.clock.Advance(9 * time.Hour)
	f.sched.SummaryPass(context.Background(), f.clock.Now())
	assert.Empty(t, f.ledger.ForUser(f.userID).Get().LastEmailSent)
}

func TestSummaryPass_EmailsAccountWithUntouchedLedger(t *testing.T) {
	// A fresh sign-up with no completions has no ledger entry yet; the
	// dispatch still emails them over zero-value state.
	f := newFixture(t)
	assert.Empty(t, f.ledger.Users(), "precondition: the ledger knows nothing about this user")

	f.clock.Advance(9 * time.Hour)
	f.sched.SummaryPass(context.Background(), f.clock.Now())

	require.Equal(t, 1, f.sender.count())
	assert.Equal(t, "user@example.com", f.sender.sent[0].Email)
	assert.Equal(t, 0, f.sender.sent[0].Points)
	assert.Equal(t, "E-Rank Hunter", f.sender.sent[0].Rank)
	assert.Equal(t, points.Day(f.clock.Now()), f.ledger.ForUser(f.userID).Get().LastEmailSent)
}

func TestSummaryPass_IgnoresLedgerEntriesWithoutAccount(t *testing.T) {
	// An orphaned ledger entry (say, a deleted account) is not a recipient;
	// only registered accounts get mail.
	f := newFixture(t)
	_, _, err := f.ledger.ForUser("ghost-user").Add(5)
	require.NoError(t, err)

	f.clock.Advance(9 * time.Hour)
	f.sched.SummaryPass(context.Background(), f.clock.Now())

	require.Equal(t, 1, f.sender.count())
	assert.Equal(t, "user@example.com", f.sender.sent[0].Email)
}
