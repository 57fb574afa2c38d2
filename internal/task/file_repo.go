package task

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

type fileState struct {
	Users map[string]userTaskState `json:"users"`
}

type userTaskState struct {
	Tasks map[string]Task `json:"tasks"`
}

func newFileState() fileState {
	return fileState{Users: map[string]userTaskState{}}
}

type fileStore struct {
	mu     sync.RWMutex
	path   string
	logger *log.Logger
	s      fileState
}

// FileRepo is the durable task repository. It is user-scoped; call
// ForUser(userID) to get a scoped view sharing the same file.
//
// Timestamps round-trip as RFC 3339 strings through the typed time.Time
// fields on Task; there is no name-keyed revival step to silently miss a
// renamed field.
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
		path:   filepath.Join(dataDir, "tasks.json"),
		logger: logger,
		s:      newFileState(),
	}
	st.load()
	return &FileRepo{store: st, userID: "default"}, nil
}

// load fails soft: a missing, unreadable or corrupt snapshot degrades to an
// empty collection rather than a partial one or an error to the caller.
func (s *fileStore) load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Printf("[tasks] read %s: %v; starting empty", s.path, err)
		}
		s.s = newFileState()
		return
	}

	var loaded fileState
	if err := json.Unmarshal(b, &loaded); err != nil {
		s.logger.Printf("[tasks] parse %s: %v; starting empty", s.path, err)
		s.s = newFileState()
		return
	}
	if loaded.Users == nil {
		loaded.Users = map[string]userTaskState{}
	}
	for uid, us := range loaded.Users {
		if us.Tasks == nil {
			us.Tasks = map[string]Task{}
			loaded.Users[uid] = us
		}
	}
	s.s = loaded
}

// saveLocked writes the full current snapshot; no diffing, last write wins.
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

// Users lists user ids with stored tasks; the reset sweep iterates these.
func (r *FileRepo) Users() []string {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]string, 0, len(r.store.s.Users))
	for uid := range r.store.s.Users {
		out = append(out, uid)
	}
	return out
}

func (r *FileRepo) userStateLocked() userTaskState {
	us, ok := r.store.s.Users[r.userID]
	if !ok || us.Tasks == nil {
		us = userTaskState{Tasks: map[string]Task{}}
		r.store.s.Users[r.userID] = us
	}
	return us
}

func (r *FileRepo) Create(t Task) (Task, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	us := r.userStateLocked()
	us.Tasks[t.ID] = t
	if err := r.store.saveLocked(); err != nil {
		return Task{}, err
	}
	return t, nil
}

func (r *FileRepo) Get(id string) (Task, bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	us, ok := r.store.s.Users[r.userID]
	if !ok || us.Tasks == nil {
		return Task{}, false, nil
	}
	t, ok := us.Tasks[id]
	return t, ok, nil
}

func (r *FileRepo) List() ([]Task, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	us, ok := r.store.s.Users[r.userID]
	if !ok || us.Tasks == nil {
		return []Task{}, nil
	}
	out := make([]Task, 0, len(us.Tasks))
	for _, t := range us.Tasks {
		out = append(out, t)
	}
	sortNewestFirst(out)
	return out, nil
}

func (r *FileRepo) Put(t Task) (Task, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	us := r.userStateLocked()
	if _, ok := us.Tasks[t.ID]; !ok {
		return Task{}, ErrNotFound
	}
	us.Tasks[t.ID] = t
	if err := r.store.saveLocked(); err != nil {
		return Task{}, err
	}
	return t, nil
}

func (r *FileRepo) Delete(id string) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	us := r.userStateLocked()
	t, ok := us.Tasks[id]
	if !ok {
		return 0, ErrNotFound
	}
	delete(us.Tasks, id)
	if err := r.store.saveLocked(); err != nil {
		return 0, err
	}
	if t.Completed {
		return -t.Points, nil
	}
	return 0, nil
}

func (r *FileRepo) ReplaceAll(ts []Task) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	next := make(map[string]Task, len(ts))
	for _, t := range ts {
		next[t.ID] = t
	}
	r.store.s.Users[r.userID] = userTaskState{Tasks: next}
	return r.store.saveLocked()
}
