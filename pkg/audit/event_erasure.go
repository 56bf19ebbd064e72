package audit

import "fmt"

// ErasureEvent represents a right-to-erasure audit event. The record keeps
// only the anonymized subject hash, never the erased identity.
type ErasureEvent struct {
	SubjectHash  string
	EnrollmentID string
	ClientIP     string
	Success      bool
	ErrorMessage string
}

func (e ErasureEvent) MessageID() string {
	return "erasure"
}

func (e ErasureEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("enrollment %s revoked and scrubbed for subject %s", e.EnrollmentID, e.SubjectHash)
	}
	msg := fmt.Sprintf("erasure request failed for subject %s", e.SubjectHash)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e ErasureEvent) Severity() Severity {
	if e.Success {
		return SeverityNotice
	}
	return SeverityWarning
}

func (e ErasureEvent) Facility() int {
	return FacilityAuthPriv
}

func (e ErasureEvent) StructuredData() map[string]map[string]string {
	result := "failure"
	if e.Success {
		result = "success"
	}
	return map[string]map[string]string{
		SDIDSubject: {
			"subject":    e.SubjectHash,
			"enrollment": e.EnrollmentID,
		},
		SDIDClient: {
			"ip": e.ClientIP,
		},
		SDIDAction: {
			"operation": "erasure",
			"result":    result,
		},
	}
}
