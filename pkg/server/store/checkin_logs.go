package store

import (
	"github.com/veripass/veripass/pkg/model"
)

// CheckInLogsStore abstracts the append-only check-in trail
type CheckInLogsStore interface {
	// AppendLog persists one check-in attempt. Rows are never updated.
	AppendLog(entry *model.CheckInLog) error

	// ListLogsByEnrollment returns the enrollment's attempts, newest first.
	ListLogsByEnrollment(enrollmentID string) ([]model.CheckInLog, error)
}
