package server

import "sync"

// Status is a sync job's position in the reserve/push/pull lifecycle.
type Status int

const (
	// StatusPushReady means a PIN has been reserved and is waiting for
	// its one permitted push.
	StatusPushReady Status = iota
	// StatusPullReady means data has been pushed and is waiting for its
	// one permitted pull.
	StatusPullReady
)

// Job is one relay entry: a bcrypt-hashed pull password, a status, and
// the pushed bytes once available.
type Job struct {
	PWHash []byte
	Status Status
	Data   []byte
}

// JobTable is the process-wide PIN -> Job mapping. Mutation requires
// exclusive access, held for the duration of mutate/remove/insert,
// matching the single shared lock the relay's original Rust
// implementation uses around its sync_jobs map.
type JobTable struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

// NewJobTable returns an empty job table.
func NewJobTable() *JobTable {
	return &JobTable{jobs: make(map[string]*Job)}
}

// Insert adds or replaces the job for pin.
func (t *JobTable) Insert(pin string, job *Job) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.jobs[pin] = job
}

// Mutate runs fn against pin's job with mu held for the whole
// read-modify-write, the get_mut-style accessor the status/data
// transitions in push_s need: without it, two concurrent pushes against
// the same pin (or a push racing pull's Remove) could tear the job's
// state. fn is not called if pin has no job; ok reports whether it was.
func (t *JobTable) Mutate(pin string, fn func(*Job)) (ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	j, ok := t.jobs[pin]
	if !ok {
		return false
	}
	fn(j)
	return true
}

// Remove atomically takes the job for pin out of the table, returning
// it if present. Used by pull to guarantee single-shot delivery: once
// removed, a concurrent second pull sees no job at all.
func (t *JobTable) Remove(pin string) (*Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	j, ok := t.jobs[pin]
	if ok {
		delete(t.jobs, pin)
	}
	return j, ok
}
