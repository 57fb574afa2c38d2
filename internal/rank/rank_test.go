package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/om-08/level-up-tasks/internal/config"
)

func testResolver() *Resolver {
	return NewResolver(config.DefaultRanks())
}

func TestResolver_CurrentResolvesHighestReachedThreshold(t *testing.T) {
	r := testResolver()

	cases := []struct {
		points int
		want   string
	}{
		{0, "E-Rank Hunter"},
		{99, "E-Rank Hunter"},
		{100, "D-Rank Hunter"},
		{299, "D-Rank Hunter"},
		{300, "C-Rank Hunter"},
		{1500, "S-Rank Hunter"},
		{4999, "National Level Hunter"},
		{5000, "Shadow Monarch"},
		{999999, "Shadow Monarch"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, r.Current(tc.points).Name, "points=%d", tc.points)
	}
}

func TestResolver_NextStopsAtTopOfLadder(t *testing.T) {
	r := testResolver()

	next, ok := r.Next(0)
	require.True(t, ok)
	assert.Equal(t, "D-Rank Hunter", next.Name)

	_, ok = r.Next(5000)
	assert.False(t, ok, "top rank has no next")
}

func TestResolver_ProgressIsClampedAndTerminal(t *testing.T) {
	r := testResolver()

	assert.Equal(t, 0.0, r.Progress(0))
	assert.InDelta(t, 50.0, r.Progress(50), 0.01)
	assert.InDelta(t, 50.0, r.Progress(200), 0.01)
	assert.Equal(t, 100.0, r.Progress(5000), "top rank reports full progress")
	assert.Equal(t, 100.0, r.Progress(12000))
}

func TestResolver_ProgressNeverDecreasesWithPoints(t *testing.T) {
	r := testResolver()

	// Within a single band progress is monotonic; crossing a boundary may
	// restart lower, but the resolved rank moved up.
	prev := r.Progress(100)
	for p := 101; p < 300; p++ {
		cur := r.Progress(p)
		if cur < prev {
			t.Fatalf("progress decreased within band at %d points: %f -> %f", p, prev, cur)
		}
		prev = cur
	}
}

func TestResolver_DetectReportsSingleTransitionAcrossManyThresholds(t *testing.T) {
	r := testResolver()

	// A big completion that jumps two thresholds is still one promotion to
	// the final rank.
	tr := r.Detect(90, 320)
	assert.Equal(t, DirectionUp, tr.Direction)
	assert.Equal(t, "C-Rank Hunter", tr.Rank.Name)

	// A delete that falls back through a threshold is one demotion.
	tr = r.Detect(105, 95)
	assert.Equal(t, DirectionDown, tr.Direction)
	assert.Equal(t, "E-Rank Hunter", tr.Rank.Name)

	// Movement inside one band is no transition at all.
	tr = r.Detect(10, 90)
	assert.Equal(t, DirectionNone, tr.Direction)
}

func TestResolver_DetectUsesLadderPositionNotThresholdCount(t *testing.T) {
	r := testResolver()

	// From above a threshold back to exactly the threshold: same rank, no
	// transition, even though the total dropped.
	tr := r.Detect(150, 100)
	assert.Equal(t, DirectionNone, tr.Direction)
	assert.Equal(t, "D-Rank Hunter", tr.Rank.Name)
}

func TestNewResolver_FallsBackToDefaultLadder(t *testing.T) {
	r := NewResolver(nil)
	assert.Equal(t, "E-Rank Hunter", r.Current(0).Name)
	assert.Len(t, r.Ladder(), 8)
}
