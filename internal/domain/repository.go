package domain

import "context"

// JobStore defines persistence for job entities. Implementations must be
// safe for concurrent use and guarantee single-writer semantics per job id:
// the mutate callback passed to Update runs with exclusive access to the
// stored record, so a webhook push and an in-flight poll cannot lose
// updates to each other.
type JobStore interface {
	Create(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, jobID string) (*Job, error)
	// Update applies mutate to the stored job under the per-job write lock
	// and returns the resulting snapshot. Unknown ids yield ErrNotFound;
	// an error returned by mutate aborts the update unchanged.
	Update(ctx context.Context, jobID string, mutate func(*Job) error) (*Job, error)
}
