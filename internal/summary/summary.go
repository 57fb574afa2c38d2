// Package summary builds and delivers the daily email digest: per-category
// completion counts, overall completion rate, current rank and points.
package summary

import (
	"math"
	"sort"
	"time"

	"github.com/om-08/level-up-tasks/internal/task"
)

type CategoryStat struct {
	Name           string `json:"name"`
	Completed      int    `json:"completed"`
	Total          int    `json:"total"`
	CompletionRate int    `json:"completionRate"`
}

// Snapshot is a point-in-time view; building one never touches the stores
// again, so a slow SMTP dial cannot observe half-mutated state.
type Snapshot struct {
	UserID         string         `json:"userId"`
	Email          string         `json:"email"`
	Date           time.Time      `json:"date"`
	Points         int            `json:"points"`
	Rank           string         `json:"rank"`
	CompletedTasks int            `json:"completedTasks"`
	TotalTasks     int            `json:"totalTasks"`
	CompletionRate int            `json:"completionRate"`
	Categories     []CategoryStat `json:"categories"`

	// SenderEmail overrides the configured sender when set.
	SenderEmail string `json:"senderEmail,omitempty"`
}

func Build(userID, email string, tasks []task.Task, points int, rankName string, now time.Time) Snapshot {
	snap := Snapshot{
		UserID:     userID,
		Email:      email,
		Date:       now,
		Points:     points,
		Rank:       rankName,
		TotalTasks: len(tasks),
	}

	byCategory := map[string]*CategoryStat{}
	for _, t := range tasks {
		name := string(t.Category)
		st, ok := byCategory[name]
		if !ok {
			st = &CategoryStat{Name: name}
			byCategory[name] = st
		}
		st.Total++
		if t.Completed {
			st.Completed++
			snap.CompletedTasks++
		}
	}
	if snap.TotalTasks > 0 {
		snap.CompletionRate = int(math.Round(float64(snap.CompletedTasks) / float64(snap.TotalTasks) * 100))
	}

	for _, st := range byCategory {
		if st.Total > 0 {
			st.CompletionRate = int(math.Round(float64(st.Completed) / float64(st.Total) * 100))
		}
		snap.Categories = append(snap.Categories, *st)
	}
	sort.Slice(snap.Categories, func(i, j int) bool {
		return snap.Categories[i].Name < snap.Categories[j].Name
	})
	return snap
}
