package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/om-08/level-up-tasks/internal/config"
)

var testStart = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func dailyTuning() config.Category {
	return config.Category{Label: "Daily", Points: 5, LockMinutes: 15}
}

func TestNew_TrimsTitleAndSetsLock(t *testing.T) {
	tk, err := New("  Morning run  ", CategoryDaily, "", dailyTuning(), testStart)
	require.NoError(t, err)

	assert.Equal(t, "Morning run", tk.Title)
	assert.Equal(t, 5, tk.Points)
	assert.False(t, tk.Completed)
	require.NotNil(t, tk.CompletableAfter)
	assert.Equal(t, testStart.Add(15*time.Minute), *tk.CompletableAfter)
}

func TestNew_RejectsEmptyTitle(t *testing.T) {
	_, err := New("   ", CategoryDaily, "", dailyTuning(), testStart)
	assert.ErrorIs(t, err, ErrEmptyTitle)
}

func TestNew_NoLockWhenCategoryHasNone(t *testing.T) {
	tk, err := New("Quick note", CategoryPersonal, "", config.Category{Points: 8}, testStart)
	require.NoError(t, err)
	assert.Nil(t, tk.CompletableAfter)
	assert.False(t, tk.Locked(testStart))
}

func TestToggle_RefusedWhileLocked(t *testing.T) {
	tk, err := New("Morning run", CategoryDaily, "", dailyTuning(), testStart)
	require.NoError(t, err)

	res := tk.Toggle(testStart.Add(10 * time.Minute))
	assert.True(t, res.Locked)
	assert.Equal(t, 0, res.Delta)
	assert.Equal(t, 5, res.RemainingMinutes)
	assert.False(t, res.Task.Completed, "refusal must not mutate the task")
}

func TestToggle_RemainingMinutesRoundsUp(t *testing.T) {
	tk, err := New("Morning run", CategoryDaily, "", dailyTuning(), testStart)
	require.NoError(t, err)

	res := tk.Toggle(testStart.Add(14*time.Minute + 1*time.Second))
	assert.True(t, res.Locked)
	assert.Equal(t, 1, res.RemainingMinutes)
}

func TestToggle_AllowedAtExactLockExpiry(t *testing.T) {
	tk, err := New("Morning run", CategoryDaily, "", dailyTuning(), testStart)
	require.NoError(t, err)

	at := testStart.Add(15 * time.Minute)
	res := tk.Toggle(at)
	assert.False(t, res.Locked)
	assert.Equal(t, 5, res.Delta)
	assert.True(t, res.Task.Completed)
	require.NotNil(t, res.Task.CompletedAt)
	assert.Equal(t, at, *res.Task.CompletedAt)
}

func TestToggle_UncompleteReturnsNegativeDelta(t *testing.T) {
	tk, err := New("Morning run", CategoryDaily, "", dailyTuning(), testStart)
	require.NoError(t, err)

	done := tk.Toggle(testStart.Add(time.Hour)).Task
	res := done.Toggle(testStart.Add(2 * time.Hour))

	assert.Equal(t, -5, res.Delta)
	assert.False(t, res.Task.Completed)
	assert.Nil(t, res.Task.CompletedAt)
}

func TestToggle_LockDoesNotApplyToUncompleting(t *testing.T) {
	// Once completed, un-completing works regardless of the original lock.
	tk, err := New("Morning run", CategoryDaily, "", dailyTuning(), testStart)
	require.NoError(t, err)
	tk.Completed = true
	at := testStart
	tk.CompletedAt = &at

	res := tk.Toggle(testStart.Add(time.Minute))
	assert.False(t, res.Locked)
	assert.Equal(t, -5, res.Delta)
}

func TestResetDue_RevertsOnlyStaleCompletions(t *testing.T) {
	after := 24 * time.Hour
	now := testStart.Add(48 * time.Hour)

	oldDone := testStart
	freshDone := now.Add(-time.Hour)
	tasks := []Task{
		{ID: "a", Title: "old", Completed: true, CompletedAt: &oldDone, Points: 5},
		{ID: "b", Title: "fresh", Completed: true, CompletedAt: &freshDone, Points: 5},
		{ID: "c", Title: "pending", Completed: false, Points: 5},
	}

	out, changed := ResetDue(tasks, now, after)
	require.True(t, changed)

	assert.False(t, out[0].Completed, "stale completion reverts")
	assert.Nil(t, out[0].CompletedAt)
	assert.True(t, out[1].Completed, "fresh completion survives")
	assert.False(t, out[2].Completed)
}

func TestResetDue_IsIdempotent(t *testing.T) {
	after := 24 * time.Hour
	now := testStart.Add(48 * time.Hour)
	done := testStart
	tasks := []Task{{ID: "a", Completed: true, CompletedAt: &done}}

	first, changed := ResetDue(tasks, now, after)
	require.True(t, changed)

	second, changed := ResetDue(first, now, after)
	assert.False(t, changed, "second pass with no elapsed time is a no-op")
	assert.Equal(t, first, second)
}

func TestResetDue_KeepsOriginalLock(t *testing.T) {
	// The reset brings the task back as pending but never refreshes the
	// creation-time lock, so a long-expired lock stays expired.
	lock := testStart.Add(15 * time.Minute)
	done := testStart.Add(time.Hour)
	tasks := []Task{{ID: "a", Completed: true, CompletedAt: &done, CompletableAfter: &lock}}

	now := testStart.Add(72 * time.Hour)
	out, changed := ResetDue(tasks, now, 24*time.Hour)
	require.True(t, changed)
	require.NotNil(t, out[0].CompletableAfter)
	assert.Equal(t, lock, *out[0].CompletableAfter)
	assert.False(t, out[0].Locked(now))
}

func TestNewChallenge_OverridesCategoryPoints(t *testing.T) {
	tmpl, ok := FindChallenge("learn a NEW skill")
	require.True(t, ok, "catalog lookup is case-insensitive")

	tk, err := NewChallenge(tmpl, config.Category{Points: 25, LockMinutes: 90}, testStart)
	require.NoError(t, err)
	assert.True(t, tk.IsChallenge)
	assert.Equal(t, 40, tk.Points, "template points beat category default")
	assert.Equal(t, CategoryChallenge, tk.Category)
}

func TestHasChallenge_MatchesOnlyChallengeTasks(t *testing.T) {
	tasks := []Task{
		{Title: "Read for 30 minutes", IsChallenge: false},
	}
	assert.False(t, HasChallenge(tasks, "Read for 30 minutes"), "a plain task with the same title is not a duplicate")

	tasks[0].IsChallenge = true
	assert.True(t, HasChallenge(tasks, "read for 30 MINUTES"))
}

func TestCompletionRate(t *testing.T) {
	assert.Equal(t, 0.0, CompletionRate(nil))

	tasks := []Task{{Completed: true}, {Completed: false}, {Completed: true}, {Completed: false}}
	assert.InDelta(t, 50.0, CompletionRate(tasks), 0.01)
}
