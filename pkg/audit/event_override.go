package audit

import "fmt"

// OverrideEvent represents a manual check-in override audit event. Overrides
// are always logged distinctly from automated success, at notice severity.
type OverrideEvent struct {
	SubjectHash   string
	EnrollmentID  string
	ReservationID string
	AgentID       string
	ClientIP      string
	Reason        string
}

func (e OverrideEvent) MessageID() string {
	return "override"
}

func (e OverrideEvent) Message() string {
	msg := fmt.Sprintf("agent %s manually overrode identity verification for subject %s on reservation %s",
		e.AgentID, e.SubjectHash, e.ReservationID)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e OverrideEvent) Severity() Severity {
	return SeverityNotice
}

func (e OverrideEvent) Facility() int {
	return FacilityAuthPriv
}

func (e OverrideEvent) StructuredData() map[string]map[string]string {
	sd := map[string]map[string]string{
		SDIDAuth: {
			"agent": e.AgentID,
		},
		SDIDSubject: {
			"subject":     e.SubjectHash,
			"enrollment":  e.EnrollmentID,
			"reservation": e.ReservationID,
		},
		SDIDClient: {
			"ip": e.ClientIP,
		},
		SDIDAction: {
			"operation": "override",
			"result":    "manual_override",
		},
	}
	if e.Reason != "" {
		sd[SDIDAction]["reason"] = e.Reason
	}
	return sd
}
