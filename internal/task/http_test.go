package task

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/om-08/level-up-tasks/internal/clock"
	"github.com/om-08/level-up-tasks/internal/config"
	"github.com/om-08/level-up-tasks/internal/points"
	"github.com/om-08/level-up-tasks/internal/rank"
)

type handlerFixture struct {
	handler *Handler
	repo    *MemoryRepo
	ledger  *points.FileRepo
	clock   *clock.Fake
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	logger := log.New(os.Stderr, "", 0)
	repo := NewMemoryRepo()
	ledgerRoot, err := points.NewFileRepo(t.TempDir(), logger)
	require.NoError(t, err)
	ledger := ledgerRoot.ForUser("u1")

	clk := clock.NewFake(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	h := NewHandler(repo, rank.NewResolver(nil), config.DefaultCategories(), clk, logger)
	h.SetLedgerResolver(func(*http.Request) *points.FileRepo { return ledger })

	return &handlerFixture{handler: h, repo: repo, ledger: ledger, clock: clk}
}

func (f *handlerFixture) do(t *testing.T, fn http.HandlerFunc, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	fn(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body=%s", rec.Body.String())
	return out
}

func TestTasksRoot_CreateAssignsCategoryTuning(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, f.handler.TasksRoot, http.MethodPost, "/api/tasks", map[string]any{
		"title":    "Ship the report",
		"category": "work",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decode(t, rec)
	tk := body["task"].(map[string]any)
	assert.Equal(t, float64(12), tk["points"])
	assert.NotEmpty(t, tk["completableAfter"], "work tasks carry a lock")
}

func TestTasksRoot_CreateRejectsBadInput(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, f.handler.TasksRoot, http.MethodPost, "/api/tasks", map[string]any{
		"title":    "Mystery",
		"category": "nonsense",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, f.handler.TasksRoot, http.MethodPost, "/api/tasks", map[string]any{
		"title":    "   ",
		"category": "daily",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestToggle_LockedRefusalReportsRemainingMinutes(t *testing.T) {
	f := newHandlerFixture(t)

	lock := f.clock.Now().Add(15 * time.Minute)
	_, err := f.repo.Create(Task{ID: "t1", Title: "Run", Points: 5, CreatedAt: f.clock.Now(), CompletableAfter: &lock})
	require.NoError(t, err)

	rec := f.do(t, f.handler.TasksSub, http.MethodPost, "/api/tasks/t1/toggle", nil)
	require.Equal(t, http.StatusOK, rec.Code, "a lock refusal is not an error status")

	body := decode(t, rec)
	assert.Equal(t, true, body["locked"])
	assert.Equal(t, float64(0), body["delta"])
	assert.Equal(t, float64(15), body["remainingMinutes"])
	assert.Equal(t, "This task can be completed in 15 minutes.", body["message"])
	assert.Equal(t, 0, f.ledger.Points(), "refusal never touches the ledger")
}

func TestToggle_SingularMinuteMessage(t *testing.T) {
	f := newHandlerFixture(t)

	lock := f.clock.Now().Add(30 * time.Second)
	_, err := f.repo.Create(Task{ID: "t1", Title: "Run", Points: 5, CreatedAt: f.clock.Now(), CompletableAfter: &lock})
	require.NoError(t, err)

	rec := f.do(t, f.handler.TasksSub, http.MethodPost, "/api/tasks/t1/toggle", nil)
	body := decode(t, rec)
	assert.Equal(t, "This task can be completed in 1 minute.", body["message"])
}

func TestToggle_CompletionMovesLedgerAndReportsTransition(t *testing.T) {
	f := newHandlerFixture(t)
	_, _, err := f.ledger.Add(95)
	require.NoError(t, err)

	_, err = f.repo.Create(Task{ID: "t1", Title: "Big one", Points: 15, CreatedAt: f.clock.Now()})
	require.NoError(t, err)

	rec := f.do(t, f.handler.TasksSub, http.MethodPost, "/api/tasks/t1/toggle", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, float64(15), body["delta"])
	assert.Equal(t, float64(110), body["points"])
	tr := body["transition"].(map[string]any)
	assert.Equal(t, "up", tr["direction"])
	assert.Equal(t, "D-Rank Hunter", tr["rank"].(map[string]any)["name"])
	assert.Equal(t, "Congratulations! You've been promoted to D-Rank Hunter!", body["message"])
}

func TestDelete_CompensatesCompletedTask(t *testing.T) {
	f := newHandlerFixture(t)
	_, _, err := f.ledger.Add(105)
	require.NoError(t, err)

	done := f.clock.Now()
	_, err = f.repo.Create(Task{ID: "t1", Title: "Done", Points: 10, Completed: true, CompletedAt: &done, CreatedAt: done})
	require.NoError(t, err)

	rec := f.do(t, f.handler.TasksSub, http.MethodDelete, "/api/tasks/t1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, float64(-10), body["delta"])
	assert.Equal(t, float64(95), body["points"])
	tr := body["transition"].(map[string]any)
	assert.Equal(t, "down", tr["direction"], "falling back under 100 demotes")
}

func TestDelete_UnknownTaskIs404(t *testing.T) {
	f := newHandlerFixture(t)
	rec := f.do(t, f.handler.TasksSub, http.MethodDelete, "/api/tasks/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChallenges_AddAndRejectDuplicate(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, f.handler.Challenges, http.MethodPost, "/api/challenges", map[string]any{
		"title": "Meditate for 10 minutes",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tk := decode(t, rec)["task"].(map[string]any)
	assert.Equal(t, float64(20), tk["points"], "template override wins")
	assert.Equal(t, true, tk["isChallenge"])

	rec = f.do(t, f.handler.Challenges, http.MethodPost, "/api/challenges", map[string]any{
		"title": "Meditate for 10 minutes",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, f.handler.Challenges, http.MethodPost, "/api/challenges", map[string]any{
		"title": "Not in the catalog",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChallenges_ListFlagsAddedEntries(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, f.handler.Challenges, http.MethodPost, "/api/challenges", map[string]any{
		"title": "Read for 30 minutes",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, f.handler.Challenges, http.MethodGet, "/api/challenges", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Challenges []struct {
			Title string `json:"title"`
			Added bool   `json:"added"`
		} `json:"challenges"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Challenges, 10)

	added := 0
	for _, c := range body.Challenges {
		if c.Added {
			added++
			assert.Equal(t, "Read for 30 minutes", c.Title)
		}
	}
	assert.Equal(t, 1, added)
}
