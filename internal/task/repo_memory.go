package task

import (
	"sort"
	"sync"
)

type MemoryRepo struct {
	mu    sync.RWMutex
	tasks map[string]Task
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{tasks: map[string]Task{}}
}

func (r *MemoryRepo) Create(t Task) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[t.ID] = t
	return t, nil
}

func (r *MemoryRepo) Get(id string) (Task, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id]
	return t, ok, nil
}

func (r *MemoryRepo) List() ([]Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, t)
	}
	sortNewestFirst(out)
	return out, nil
}

func (r *MemoryRepo) Put(t Task) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[t.ID]; !ok {
		return Task{}, ErrNotFound
	}
	r.tasks[t.ID] = t
	return t, nil
}

func (r *MemoryRepo) Delete(id string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return 0, ErrNotFound
	}
	delete(r.tasks, id)
	if t.Completed {
		return -t.Points, nil
	}
	return 0, nil
}

func (r *MemoryRepo) ReplaceAll(ts []Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := make(map[string]Task, len(ts))
	for _, t := range ts {
		next[t.ID] = t
	}
	r.tasks = next
	return nil
}

func sortNewestFirst(ts []Task) {
	sort.Slice(ts, func(i, j int) bool {
		if !ts[i].CreatedAt.Equal(ts[j].CreatedAt) {
			return ts[i].CreatedAt.After(ts[j].CreatedAt)
		}
		return ts[i].ID < ts[j].ID
	})
}
