package rank

import (
	"fmt"

	"github.com/om-08/level-up-tasks/internal/config"
)

type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionNone Direction = "none"
)

// Transition is the result of comparing the resolved rank before and after
// a ledger mutation. Direction is derived from ladder position, not from
// thresholds crossed, so a single delete that drops through two boundaries
// still reports one "down" to the final rank.
type Transition struct {
	Direction Direction   `json:"direction"`
	Rank      config.Rank `json:"rank"`
}

// Resolver answers rank queries against a fixed ascending ladder. All
// methods are pure; points below every threshold resolve to the lowest
// rank and the top rank is terminal.
type Resolver struct {
	ladder []config.Rank
}

func NewResolver(ladder []config.Rank) *Resolver {
	if len(ladder) == 0 {
		ladder = config.DefaultRanks()
	}
	own := make([]config.Rank, len(ladder))
	copy(own, ladder)
	return &Resolver{ladder: own}
}

func (r *Resolver) Ladder() []config.Rank {
	out := make([]config.Rank, len(r.ladder))
	copy(out, r.ladder)
	return out
}

func (r *Resolver) index(points int) int {
	idx := 0
	for i, rk := range r.ladder {
		if points >= rk.RequiredPoints {
			idx = i
		}
	}
	return idx
}

// Current returns the highest rank whose threshold does not exceed points.
func (r *Resolver) Current(points int) config.Rank {
	return r.ladder[r.index(points)]
}

// Next returns the rank directly above the current one; ok is false at the
// top of the ladder.
func (r *Resolver) Next(points int) (config.Rank, bool) {
	idx := r.index(points)
	if idx+1 >= len(r.ladder) {
		return config.Rank{}, false
	}
	return r.ladder[idx+1], true
}

// Progress reports how far points sit between the current and next
// thresholds, as a percentage in [0,100]. The top rank always reports 100.
func (r *Resolver) Progress(points int) float64 {
	cur := r.Current(points)
	next, ok := r.Next(points)
	if !ok {
		return 100
	}
	span := float64(next.RequiredPoints - cur.RequiredPoints)
	gained := float64(points - cur.RequiredPoints)
	pct := gained / span * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// Detect compares resolved ranks for two ledger totals.
func (r *Resolver) Detect(oldPoints, newPoints int) Transition {
	oldIdx := r.index(oldPoints)
	newIdx := r.index(newPoints)
	t := Transition{Rank: r.ladder[newIdx], Direction: DirectionNone}
	switch {
	case newIdx > oldIdx:
		t.Direction = DirectionUp
	case newIdx < oldIdx:
		t.Direction = DirectionDown
	}
	return t
}

func UpMessage(rk config.Rank) string {
	return fmt.Sprintf("Congratulations! You've been promoted to %s!", rk.Name)
}

func DownMessage(rk config.Rank) string {
	return fmt.Sprintf("You've fallen back to %s. Complete more tasks to climb again.", rk.Name)
}
