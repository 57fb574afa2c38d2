package task

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/om-08/level-up-tasks/internal/clock"
	"github.com/om-08/level-up-tasks/internal/config"
	"github.com/om-08/level-up-tasks/internal/points"
	"github.com/om-08/level-up-tasks/internal/rank"
)

// Handler serves /api/tasks and /api/challenges. Repos and ledgers are
// resolved per request so each authenticated user gets a scoped view.
type Handler struct {
	repo           Repo
	repoResolver   func(*http.Request) Repo
	ledgerResolver func(*http.Request) *points.FileRepo
	ranks          *rank.Resolver
	categories     map[string]config.Category
	clock          clock.Clock
	logger         *log.Logger

	// syncProfile mirrors the ledger server-side after a mutation;
	// fire-and-forget, never blocks the response.
	syncProfile func(r *http.Request, newPoints int)
}

func NewHandler(repo Repo, ranks *rank.Resolver, categories map[string]config.Category, clk clock.Clock, logger *log.Logger) *Handler {
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = log.Default()
	}
	if len(categories) == 0 {
		categories = config.DefaultCategories()
	}
	return &Handler{
		repo:       repo,
		ranks:      ranks,
		categories: categories,
		clock:      clk,
		logger:     logger,
	}
}

func (h *Handler) SetRepoResolver(fn func(*http.Request) Repo) {
	h.repoResolver = fn
}

func (h *Handler) SetLedgerResolver(fn func(*http.Request) *points.FileRepo) {
	h.ledgerResolver = fn
}

func (h *Handler) SetProfileSync(fn func(r *http.Request, newPoints int)) {
	h.syncProfile = fn
}

func (h *Handler) repoForRequest(r *http.Request) Repo {
	if h.repoResolver != nil {
		if repo := h.repoResolver(r); repo != nil {
			return repo
		}
	}
	return h.repo
}

func (h *Handler) ledgerForRequest(r *http.Request) *points.FileRepo {
	if h.ledgerResolver == nil {
		return nil
	}
	return h.ledgerResolver(r)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func decodeJSON(r *http.Request, out any) error {
	return json.NewDecoder(r.Body).Decode(out)
}

// applyDelta mutates the ledger and reports the resulting rank transition.
// The delta lands on the ledger before the resolver is consulted, so
// transition detection always sees the post-mutation total.
func (h *Handler) applyDelta(r *http.Request, delta int) (newPoints int, tr rank.Transition, err error) {
	ledger := h.ledgerForRequest(r)
	if ledger == nil || delta == 0 {
		pts := 0
		if ledger != nil {
			pts = ledger.Points()
		}
		return pts, rank.Transition{Direction: rank.DirectionNone, Rank: h.ranks.Current(pts)}, nil
	}
	old, next, err := ledger.Add(delta)
	if err != nil {
		return 0, rank.Transition{}, err
	}
	tr = h.ranks.Detect(old, next)
	if h.syncProfile != nil {
		go h.syncProfile(r, next)
	}
	return next, tr, nil
}

// /api/tasks  (collection)
func (h *Handler) TasksRoot(w http.ResponseWriter, r *http.Request) {
	repo := h.repoForRequest(r)

	switch r.Method {
	case http.MethodGet:
		ts, err := repo.List()
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		completed := 0
		for _, t := range ts {
			if t.Completed {
				completed++
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"tasks":          ts,
			"completed":      completed,
			"total":          len(ts),
			"completionRate": CompletionRate(ts),
		})

	case http.MethodPost:
		var in struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Category    string `json:"category"`
		}
		if err := decodeJSON(r, &in); err != nil {
			writeErr(w, http.StatusBadRequest, "invalid json")
			return
		}
		cat, ok := ParseCategory(in.Category)
		if !ok {
			writeErr(w, http.StatusBadRequest, ErrUnknownCategory.Error())
			return
		}
		tuning, ok := h.categories[string(cat)]
		if !ok {
			writeErr(w, http.StatusBadRequest, ErrUnknownCategory.Error())
			return
		}
		t, err := New(in.Title, cat, in.Description, tuning, h.clock.Now())
		if err != nil {
			if errors.Is(err, ErrEmptyTitle) {
				writeErr(w, http.StatusBadRequest, err.Error())
				return
			}
			writeErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		t, err = repo.Create(t)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"task": t})

	default:
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// /api/tasks/{id} and /api/tasks/{id}/toggle
func (h *Handler) TasksSub(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/tasks/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeErr(w, http.StatusNotFound, "task id required")
		return
	}
	id := parts[0]

	switch {
	case len(parts) == 2 && parts[1] == "toggle" && r.Method == http.MethodPost:
		h.toggle(w, r, id)
	case len(parts) == 1 && r.Method == http.MethodDelete:
		h.delete(w, r, id)
	case len(parts) == 1 && r.Method == http.MethodGet:
		t, ok, err := h.repoForRequest(r).Get(id)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !ok {
			writeErr(w, http.StatusNotFound, ErrNotFound.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"task": t})
	default:
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request, id string) {
	repo := h.repoForRequest(r)
	t, ok, err := repo.Get(id)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		writeErr(w, http.StatusNotFound, ErrNotFound.Error())
		return
	}

	res := t.Toggle(h.clock.Now())
	if res.Locked {
		// A locked task is a refusal, not an error: nothing changed and
		// the ledger is untouched.
		plural := "s"
		if res.RemainingMinutes == 1 {
			plural = ""
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"task":             res.Task,
			"delta":            0,
			"locked":           true,
			"remainingMinutes": res.RemainingMinutes,
			"message":          fmt.Sprintf("This task can be completed in %d minute%s.", res.RemainingMinutes, plural),
		})
		return
	}

	if _, err := repo.Put(res.Task); err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	newPoints, tr, err := h.applyDelta(r, res.Delta)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}

	payload := map[string]any{
		"task":       res.Task,
		"delta":      res.Delta,
		"locked":     false,
		"points":     newPoints,
		"transition": tr,
	}
	if msg := transitionMessage(tr); msg != "" {
		payload["message"] = msg
	}
	writeJSON(w, http.StatusOK, payload)
}

func transitionMessage(tr rank.Transition) string {
	switch tr.Direction {
	case rank.DirectionUp:
		return rank.UpMessage(tr.Rank)
	case rank.DirectionDown:
		return rank.DownMessage(tr.Rank)
	}
	return ""
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request, id string) {
	repo := h.repoForRequest(r)
	delta, err := repo.Delete(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeErr(w, http.StatusNotFound, err.Error())
			return
		}
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	newPoints, tr, err := h.applyDelta(r, delta)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	payload := map[string]any{
		"deleted":    true,
		"delta":      delta,
		"points":     newPoints,
		"transition": tr,
	}
	if msg := transitionMessage(tr); msg != "" {
		payload["message"] = msg
	}
	writeJSON(w, http.StatusOK, payload)
}

// /api/challenges
func (h *Handler) Challenges(w http.ResponseWriter, r *http.Request) {
	repo := h.repoForRequest(r)

	switch r.Method {
	case http.MethodGet:
		ts, err := repo.List()
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		type entry struct {
			ChallengeTemplate
			Added bool `json:"added"`
		}
		catalog := Catalog()
		out := make([]entry, 0, len(catalog))
		for _, c := range catalog {
			out = append(out, entry{ChallengeTemplate: c, Added: HasChallenge(ts, c.Title)})
		}
		writeJSON(w, http.StatusOK, map[string]any{"challenges": out})

	case http.MethodPost:
		var in struct {
			Title string `json:"title"`
		}
		if err := decodeJSON(r, &in); err != nil {
			writeErr(w, http.StatusBadRequest, "invalid json")
			return
		}
		tmpl, ok := FindChallenge(in.Title)
		if !ok {
			writeErr(w, http.StatusNotFound, "challenge not in catalog")
			return
		}
		ts, err := repo.List()
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		if HasChallenge(ts, tmpl.Title) {
			writeErr(w, http.StatusConflict, "challenge already added")
			return
		}
		tuning := h.categories[string(tmpl.Category)]
		t, err := NewChallenge(tmpl, tuning, h.clock.Now())
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		t, err = repo.Create(t)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"task": t})

	default:
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}
