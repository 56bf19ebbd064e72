package audit

import (
	"fmt"
	"strings"
)

// CheckInEvent represents a check-in attempt audit event
type CheckInEvent struct {
	SubjectHash    string
	EnrollmentID   string
	ReservationID  string
	PassID         string
	ClientIP       string
	Outcome        string
	FailureReasons []string
	FaceSimilarity *float64
}

func (e CheckInEvent) MessageID() string {
	return "checkin"
}

func (e CheckInEvent) Message() string {
	if e.Outcome == "success" {
		return fmt.Sprintf("subject %s checked in for reservation %s", e.SubjectHash, e.ReservationID)
	}
	msg := fmt.Sprintf("subject %s failed check-in for reservation %s", e.SubjectHash, e.ReservationID)
	if len(e.FailureReasons) > 0 {
		msg += ": " + strings.Join(e.FailureReasons, ", ")
	}
	return msg
}

func (e CheckInEvent) Severity() Severity {
	if e.Outcome == "success" {
		return SeverityInfo
	}
	return SeverityWarning
}

func (e CheckInEvent) Facility() int {
	return FacilityAuthPriv
}

func (e CheckInEvent) StructuredData() map[string]map[string]string {
	sd := map[string]map[string]string{
		SDIDSubject: {
			"subject":     e.SubjectHash,
			"enrollment":  e.EnrollmentID,
			"reservation": e.ReservationID,
		},
		SDIDClient: {
			"ip": e.ClientIP,
		},
		SDIDAction: {
			"operation": "checkin",
			"result":    e.Outcome,
		},
	}
	if e.PassID != "" {
		sd[SDIDSubject]["pass"] = e.PassID
	}
	if e.FaceSimilarity != nil {
		sd[SDIDScores] = map[string]string{"face": formatScore(*e.FaceSimilarity)}
	}
	if len(e.FailureReasons) > 0 {
		sd[SDIDAction]["reasons"] = strings.Join(e.FailureReasons, ",")
	}
	return sd
}
