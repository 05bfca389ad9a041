// Package providers defines the capability contract shared by the external
// service clients. Each client wraps one vendor HTTP API; the jobs service
// decides per kind whether a configured client handles the work or the
// simulated fallback takes over.
package providers

import (
	"context"
	"errors"
	"fmt"

	"server/internal/domain"
)

// State is the canonical lifecycle vocabulary providers are mapped onto.
type State string

const (
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateError      State = "error"
)

// Artifact is a produced output, either as raw bytes or as a remote URL the
// caller still has to fetch.
type Artifact struct {
	Data     []byte
	URL      string
	Ext      string
	Metadata map[string]string
}

// StartResult is the outcome of handing a job to a provider. Asynchronous
// providers return a ProviderRef to poll; synchronous ones return the
// finished Artifact directly.
type StartResult struct {
	ProviderRef string
	Artifact    *Artifact
}

// Status is one provider poll observation, already mapped onto the canonical
// state vocabulary and a 0-100 progress value.
type Status struct {
	State     State
	Progress  int
	ResultURL string
	Message   string
}

// Client is the capability interface the jobs service composes per kind.
type Client interface {
	Kind() domain.JobKind
	// Configured reports whether credentials are present; unconfigured
	// clients are never called and the job runs simulated instead.
	Configured() bool
	// Start hands the job to the provider. The job carries the validated
	// kind-specific params and the local id providers may embed in
	// callback URLs.
	Start(ctx context.Context, job *domain.Job) (*StartResult, error)
	// Status polls an asynchronous job. Synchronous providers never get
	// polled and may return ErrNoStatus.
	Status(ctx context.Context, providerRef string) (*Status, error)
}

// ErrNoStatus is returned by synchronous providers that finish at Start and
// expose no status endpoint.
var ErrNoStatus = errors.New("provider has no status endpoint")

// LogicError marks a failure the provider itself reported: the upstream call
// worked but the work failed (quota exceeded, generation error). It maps to
// the job's terminal error state, unlike transport errors which stay
// transient.
type LogicError struct {
	Message string
}

func (e *LogicError) Error() string {
	return fmt.Sprintf("provider error: %s", e.Message)
}

// IsLogicError reports whether err is a provider-reported failure and
// extracts its message.
func IsLogicError(err error) (string, bool) {
	var le *LogicError
	if errors.As(err, &le) {
		return le.Message, true
	}
	return "", false
}
