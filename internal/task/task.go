package task

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/om-08/level-up-tasks/internal/config"
)

var (
	ErrEmptyTitle      = errors.New("task title must not be empty")
	ErrUnknownCategory = errors.New("unknown task category")
	ErrNotFound        = errors.New("task not found")
)

type Category string

const (
	CategoryDaily     Category = "daily"
	CategoryWeekly    Category = "weekly"
	CategoryImportant Category = "important"
	CategoryPersonal  Category = "personal"
	CategoryWork      Category = "work"
	CategoryChallenge Category = "challenge"
)

func ParseCategory(s string) (Category, bool) {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case CategoryDaily:
		return CategoryDaily, true
	case CategoryWeekly:
		return CategoryWeekly, true
	case CategoryImportant:
		return CategoryImportant, true
	case CategoryPersonal:
		return CategoryPersonal, true
	case CategoryWork:
		return CategoryWork, true
	case CategoryChallenge:
		return CategoryChallenge, true
	}
	return "", false
}

type Task struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Category    Category `json:"category"`
	Points      int      `json:"points"`
	Completed   bool     `json:"completed"`
	IsChallenge bool     `json:"isChallenge,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	// CompletedAt is set exactly while Completed is true.
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	// CompletableAfter blocks completion until it passes. Assigned once at
	// creation; never refreshed by the daily reset.
	CompletableAfter *time.Time `json:"completableAfter,omitempty"`
}

// New builds a task in its initial locked state. Points and lock duration
// come from the category's configured tuning; Points never changes after
// this point.
func New(title string, category Category, description string, cat config.Category, now time.Time) (Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Task{}, ErrEmptyTitle
	}

	t := Task{
		ID:          uuid.NewString(),
		Title:       title,
		Description: strings.TrimSpace(description),
		Category:    category,
		Points:      cat.Points,
		CreatedAt:   now,
	}
	if cat.LockMinutes > 0 {
		after := now.Add(time.Duration(cat.LockMinutes) * time.Minute)
		t.CompletableAfter = &after
	}
	return t, nil
}

// NewChallenge builds a catalog challenge. The template's point value
// overrides the category default.
func NewChallenge(tmpl ChallengeTemplate, cat config.Category, now time.Time) (Task, error) {
	t, err := New(tmpl.Title, tmpl.Category, tmpl.Description, cat, now)
	if err != nil {
		return Task{}, err
	}
	t.IsChallenge = true
	if tmpl.Points > 0 {
		t.Points = tmpl.Points
	}
	return t, nil
}

// ToggleResult reports what a completion toggle did. A locked refusal is
// not an error: the task is returned unchanged with Delta zero and the
// remaining lock time for user feedback.
type ToggleResult struct {
	Task             Task
	Delta            int
	Locked           bool
	RemainingMinutes int
}

// Toggle flips completion state. Completing a still-locked task is refused.
func (t Task) Toggle(now time.Time) ToggleResult {
	if !t.Completed && t.CompletableAfter != nil && now.Before(*t.CompletableAfter) {
		remaining := t.CompletableAfter.Sub(now)
		mins := int((remaining + time.Minute - 1) / time.Minute)
		return ToggleResult{Task: t, Delta: 0, Locked: true, RemainingMinutes: mins}
	}

	if t.Completed {
		t.Completed = false
		t.CompletedAt = nil
		return ToggleResult{Task: t, Delta: -t.Points}
	}

	t.Completed = true
	at := now
	t.CompletedAt = &at
	return ToggleResult{Task: t, Delta: t.Points}
}

// Locked reports whether completion is currently refused.
func (t Task) Locked(now time.Time) bool {
	return !t.Completed && t.CompletableAfter != nil && now.Before(*t.CompletableAfter)
}

// ResetDue reverts tasks completed at least `after` ago back to pending.
// Earned points are untouched; this resets visibility, not the ledger.
// The returned flag is false when nothing changed, so callers can skip
// redundant persistence writes and notifications. Running it again with no
// elapsed time is a no-op.
func ResetDue(tasks []Task, now time.Time, after time.Duration) ([]Task, bool) {
	changed := false
	out := make([]Task, len(tasks))
	for i, t := range tasks {
		if t.Completed && t.CompletedAt != nil && now.Sub(*t.CompletedAt) >= after {
			t.Completed = false
			t.CompletedAt = nil
			changed = true
		}
		out[i] = t
	}
	return out, changed
}

// CompletionRate is the share of completed tasks, in percent.
func CompletionRate(tasks []Task) float64 {
	if len(tasks) == 0 {
		return 0
	}
	done := 0
	for _, t := range tasks {
		if t.Completed {
			done++
		}
	}
	return float64(done) / float64(len(tasks)) * 100
}
