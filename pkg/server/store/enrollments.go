package store

import (
	"errors"
	"time"

	"github.com/veripass/veripass/pkg/model"
)

// ErrEnrollmentNotFound is returned when an enrollment doesn't exist
var ErrEnrollmentNotFound = errors.New("enrollment not found")

// ErrActiveEnrollmentExists is returned when a subject already holds an
// active enrollment
var ErrActiveEnrollmentExists = errors.New("subject already has an active enrollment")

// EnrollmentsStore abstracts enrollment storage operations
type EnrollmentsStore interface {
	// CreateEnrollment persists a new enrollment. Returns
	// ErrActiveEnrollmentExists when the subject already holds an active one.
	CreateEnrollment(enrollment *model.Enrollment) error

	// FetchEnrollment retrieves an enrollment by id.
	// Returns ErrEnrollmentNotFound if it doesn't exist.
	FetchEnrollment(id string) (*model.Enrollment, error)

	// FetchActiveEnrollmentBySubject retrieves the subject's active
	// enrollment. Returns ErrEnrollmentNotFound if there is none.
	FetchActiveEnrollmentBySubject(subjectID string) (*model.Enrollment, error)

	// RecordVerification bumps the usage counter and stamps
	// last_verified_at after a successful check-in.
	RecordVerification(id string, at time.Time) error

	// SaveScrubbed writes back an enrollment after Scrub, persisting the
	// cleared identity and biometric columns.
	SaveScrubbed(enrollment *model.Enrollment) error

	// ExpireEnrollments marks active enrollments past their expiry as
	// expired and reports how many rows advanced. Forward-only.
	ExpireEnrollments(now time.Time) (int64, error)
}
