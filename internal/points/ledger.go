// Package points owns the per-user points ledger and the small bits of
// per-user bookkeeping that ride along with it: the last daily-reset day,
// the last summary-email day, and an optional custom sender address.
package points

import "time"

// DayFormat is the calendar-day granularity used by the reset and email
// once-per-day guards.
const DayFormat = "2006-01-02"

type UserState struct {
	Points        int    `json:"points"`
	LastTaskReset string `json:"lastTaskReset,omitempty"`
	LastEmailSent string `json:"lastEmailSent,omitempty"`
	SenderEmail   string `json:"senderEmail,omitempty"`
}

func Day(t time.Time) string {
	return t.UTC().Format(DayFormat)
}

// apply clamps the ledger at zero after every mutation.
func apply(points, delta int) int {
	next := points + delta
	if next < 0 {
		return 0
	}
	return next
}
