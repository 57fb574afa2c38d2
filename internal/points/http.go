package points

import (
	"encoding/json"
	"net/http"
	"net/mail"
	"strings"

	"github.com/om-08/level-up-tasks/internal/rank"
)

type Handler struct {
	repoResolver func(*http.Request) *FileRepo
	ranks        *rank.Resolver
}

func NewHandler(ranks *rank.Resolver) *Handler {
	return &Handler{ranks: ranks}
}

func (h *Handler) SetRepoResolver(fn func(*http.Request) *FileRepo) {
	h.repoResolver = fn
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

// State serves GET /api/points: the ledger total plus resolved rank state.
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	repo := h.repoResolver(r)
	us := repo.Get()

	payload := map[string]any{
		"points":   us.Points,
		"rank":     h.ranks.Current(us.Points),
		"progress": h.ranks.Progress(us.Points),
		"ladder":   h.ranks.Ladder(),
	}
	if next, ok := h.ranks.Next(us.Points); ok {
		payload["nextRank"] = next
	}
	if us.SenderEmail != "" {
		payload["senderEmail"] = us.SenderEmail
	}
	writeJSON(w, http.StatusOK, payload)
}

// SenderEmail serves /api/settings/sender-email, the optional per-user
// override for the daily summary sender address.
func (h *Handler) SenderEmail(w http.ResponseWriter, r *http.Request) {
	repo := h.repoResolver(r)

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"senderEmail": repo.Get().SenderEmail})

	case http.MethodPost:
		var in struct {
			SenderEmail string `json:"senderEmail"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeErr(w, http.StatusBadRequest, "invalid json")
			return
		}
		email := strings.TrimSpace(in.SenderEmail)
		if email != "" {
			if _, err := mail.ParseAddress(email); err != nil {
				writeErr(w, http.StatusBadRequest, "invalid sender email")
				return
			}
		}
		if err := repo.SetSenderEmail(email); err != nil {
			writeErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "senderEmail": email})

	default:
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}
