package task

// Repo stores tasks for a single user. Creation stamps (id, timestamps,
// lock) happen in New; repos only persist.
type Repo interface {
	Create(t Task) (Task, error)
	Get(id string) (Task, bool, error)
	List() ([]Task, error)
	Put(t Task) (Task, error)

	// Delete removes the task unconditionally and returns the compensating
	// ledger delta: -Points when the task was completed, 0 otherwise.
	// Folding compensation into the repo keeps callers from double-counting.
	Delete(id string) (int, error)

	// ReplaceAll swaps the whole collection in one write; used by the
	// daily reset sweep.
	ReplaceAll(ts []Task) error
}
