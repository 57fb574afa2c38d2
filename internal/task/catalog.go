package task

import "strings"

// ChallengeTemplate is one entry of the predefined challenge catalog.
// Points overrides the challenge category default when non-zero.
type ChallengeTemplate struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Points      int      `json:"points"`
}

var challengeCatalog = []ChallengeTemplate{
	{Title: "Read for 30 minutes", Description: "Read a book or educational article for at least 30 minutes", Category: CategoryChallenge, Points: 25},
	{Title: "Exercise for 20 minutes", Description: "Complete a 20-minute workout or physical activity", Category: CategoryChallenge, Points: 30},
	{Title: "Learn a new skill", Description: "Spend 1 hour learning a new skill or improving an existing one", Category: CategoryChallenge, Points: 40},
	{Title: "Meditate for 10 minutes", Description: "Practice mindfulness meditation for 10 minutes", Category: CategoryChallenge, Points: 20},
	{Title: "Drink 8 glasses of water", Description: "Stay hydrated by drinking at least 8 glasses of water today", Category: CategoryChallenge, Points: 15},
	{Title: "Write in a journal", Description: "Spend 15 minutes writing about your thoughts, goals, or gratitude", Category: CategoryChallenge, Points: 22},
	{Title: "Clean and organize your space", Description: "Spend 30 minutes decluttering and organizing your environment", Category: CategoryChallenge, Points: 27},
	{Title: "Cook a healthy meal", Description: "Prepare a nutritious meal from scratch instead of ordering out", Category: CategoryChallenge, Points: 32},
	{Title: "Complete a coding challenge", Description: "Solve a programming problem or build a small project", Category: CategoryChallenge, Points: 35},
	{Title: "Digital detox for 2 hours", Description: "Stay away from screens and social media for 2 hours", Category: CategoryChallenge, Points: 38},
}

func Catalog() []ChallengeTemplate {
	out := make([]ChallengeTemplate, len(challengeCatalog))
	copy(out, challengeCatalog)
	return out
}

// FindChallenge looks a template up by title, case-insensitively.
func FindChallenge(title string) (ChallengeTemplate, bool) {
	title = strings.ToLower(strings.TrimSpace(title))
	for _, c := range challengeCatalog {
		if strings.ToLower(c.Title) == title {
			return c, true
		}
	}
	return ChallengeTemplate{}, false
}

// HasChallenge reports whether an identical challenge is already present
// and not yet deleted; the catalog refuses duplicates.
func HasChallenge(tasks []Task, title string) bool {
	title = strings.ToLower(strings.TrimSpace(title))
	for _, t := range tasks {
		if t.IsChallenge && strings.ToLower(t.Title) == title {
			return true
		}
	}
	return false
}
