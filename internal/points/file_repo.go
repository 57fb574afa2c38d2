package points

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

type fileState struct {
	Users map[string]UserState `json:"users"`
}

type fileStore struct {
	mu     sync.RWMutex
	path   string
	logger *log.Logger
	s      fileState
}

// FileRepo is the durable ledger store, user-scoped via ForUser.
type FileRepo struct {
	store  *fileStore
	userID string
}

func NewFileRepo(dataDir string, logger *log.Logger) (*FileRepo, error) {
	if logger == nil {
		logger = log.Default()
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	st := &fileStore{
		path:   filepath.Join(dataDir, "points.json"),
		logger: logger,
		s:      fileState{Users: map[string]UserState{}},
	}
	st.load()
	return &FileRepo{store: st, userID: "default"}, nil
}

func (s *fileStore) load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Printf("[points] read %s: %v; starting empty", s.path, err)
		}
		s.s = fileState{Users: map[string]UserState{}}
		return
	}
	var loaded fileState
	if err := json.Unmarshal(b, &loaded); err != nil {
		s.logger.Printf("[points] parse %s: %v; starting empty", s.path, err)
		s.s = fileState{Users: map[string]UserState{}}
		return
	}
	if loaded.Users == nil {
		loaded.Users = map[string]UserState{}
	}
	s.s = loaded
}

func (s *fileStore) saveLocked() error {
	b, err := json.MarshalIndent(s.s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, b, 0o644)
}

func (r *FileRepo) ForUser(userID string) *FileRepo {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		userID = "default"
	}
	return &FileRepo{store: r.store, userID: userID}
}

func (r *FileRepo) Users() []string {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]string, 0, len(r.store.s.Users))
	for uid := range r.store.s.Users {
		out = append(out, uid)
	}
	return out
}

func (r *FileRepo) Get() UserState {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return r.store.s.Users[r.userID]
}

func (r *FileRepo) Points() int {
	return r.Get().Points
}

// Add applies a task delta to the ledger, clamped at zero, and returns the
// totals before and after so transition detection always sees the
// post-mutation value.
func (r *FileRepo) Add(delta int) (oldPoints, newPoints int, err error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	us := r.store.s.Users[r.userID]
	oldPoints = us.Points
	us.Points = apply(us.Points, delta)
	newPoints = us.Points
	r.store.s.Users[r.userID] = us
	if err := r.store.saveLocked(); err != nil {
		return 0, 0, err
	}
	return oldPoints, newPoints, nil
}

func (r *FileRepo) SetSenderEmail(email string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	us := r.store.s.Users[r.userID]
	us.SenderEmail = strings.TrimSpace(email)
	r.store.s.Users[r.userID] = us
	return r.store.saveLocked()
}

func (r *FileRepo) MarkEmailSent(day string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	us := r.store.s.Users[r.userID]
	us.LastEmailSent = day
	r.store.s.Users[r.userID] = us
	return r.store.saveLocked()
}

func (r *FileRepo) MarkTaskReset(day string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	us := r.store.s.Users[r.userID]
	us.LastTaskReset = day
	r.store.s.Users[r.userID] = us
	return r.store.saveLocked()
}
