package job

import "time"

// Status of a job handed to the OS scheduler.
type Status string

const (
	StatusPending   Status = "pending"
	StatusFired     Status = "fired"
	StatusCancelled Status = "cancelled"
	// StatusUnknown is set when the scheduler could not be queried.
	StatusUnknown Status = "unknown"
)

// Record tracks one OS-scheduled job. The OS scheduler is the source of
// truth; a Record is advisory.
type Record struct {
	ID        string    `json:"id"`
	Backend   string    `json:"backend"`
	Spec      Spec      `json:"spec"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsPending reports whether the record can still be cancelled or reconciled.
func (r Record) IsPending() bool {
	return r.Status == StatusPending
}
