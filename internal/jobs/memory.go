package jobs

import (
	"context"
	"sync"
	"time"

	"server/internal/domain"
)

// MemoryStore keeps jobs in process memory. It is the default store when no
// DATABASE_URL is configured and the one used by tests. A per-job mutex
// enforces the single-writer-per-key discipline Update promises.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*memoryEntry
}

type memoryEntry struct {
	mu  sync.Mutex
	job domain.Job
}

// NewMemoryStore creates an empty in-memory job store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*memoryEntry)}
}

// Create inserts a new job record.
func (s *MemoryStore) Create(ctx context.Context, job *domain.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = &memoryEntry{job: cloneJob(job)}
	return nil
}

// GetByID fetches a job snapshot by its identifier.
func (s *MemoryStore) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entry := s.lookup(jobID)
	if entry == nil {
		return nil, domain.ErrNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	snapshot := cloneJob(&entry.job)
	return &snapshot, nil
}

// Update applies mutate under the job's write lock and returns the resulting
// snapshot.
func (s *MemoryStore) Update(ctx context.Context, jobID string, mutate func(*domain.Job) error) (*domain.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entry := s.lookup(jobID)
	if entry == nil {
		return nil, domain.ErrNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	working := cloneJob(&entry.job)
	if err := mutate(&working); err != nil {
		return nil, err
	}
	working.UpdatedAt = time.Now().UTC()
	entry.job = working
	snapshot := cloneJob(&working)
	return &snapshot, nil
}

func (s *MemoryStore) lookup(jobID string) *memoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobs[jobID]
}

func cloneJob(j *domain.Job) domain.Job {
	out := *j
	out.Params = cloneMap(j.Params)
	out.Result = cloneMap(j.Result)
	return out
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

var _ domain.JobStore = (*MemoryStore)(nil)
