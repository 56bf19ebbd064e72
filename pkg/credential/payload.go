package credential

import (
	"time"
)

// Kind discriminates credential token types.
type Kind string

const (
	// KindEnrollment proves a completed identity enrollment.
	KindEnrollment Kind = "ENROLLMENT"
	// KindBoardingPass authorizes one specific boarding event.
	KindBoardingPass Kind = "BOARDING_PASS"
)

// PayloadVersion is bumped whenever the wire layout changes.
const PayloadVersion = 1

// Payload is the signed content of a credential token. Tokens are immutable
// once issued; a cancelled boarding pass is represented by the backing
// record's status, which verification cross-checks separately.
type Payload struct {
	Type    Kind `json:"type"`
	Version int  `json:"version"`

	SubjectID     string `json:"subject_id"`
	EnrollmentID  string `json:"enrollment_id,omitempty"`
	ReservationID string `json:"reservation_id,omitempty"`
	PassID        string `json:"pass_id,omitempty"`

	// Identity summary, displayed at the gate. Never includes biometric data.
	FullName       string `json:"full_name,omitempty"`
	DocumentNumber string `json:"document_number,omitempty"`
	Nationality    string `json:"nationality,omitempty"`

	// Boarding assignment, BOARDING_PASS only.
	Flight        string     `json:"flight,omitempty"`
	Gate          string     `json:"gate,omitempty"`
	Seat          string     `json:"seat,omitempty"`
	BoardingGroup string     `json:"boarding_group,omitempty"`
	BoardingTime  *time.Time `json:"boarding_time,omitempty"`

	Status string `json:"status,omitempty"`

	IssuedAt  time.Time  `json:"issued_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// knownKind reports whether k is a credential type this codec understands.
func knownKind(k Kind) bool {
	return k == KindEnrollment || k == KindBoardingPass
}
