package audit

import (
	"fmt"
	"strconv"
)

// EnrollmentEvent represents an enrollment attempt audit event. Stage is
// the pipeline step the attempt reached before it settled.
type EnrollmentEvent struct {
	SubjectHash        string
	EnrollmentID       string
	ClientIP           string
	Outcome            string
	Stage              string
	DocumentConfidence float64
	FaceSimilarity     float64
	LivenessConfidence float64
	LivenessChecked    bool
	ConsentGiven       bool
	ErrorMessage       string
}

func (e EnrollmentEvent) MessageID() string {
	return "enroll"
}

func (e EnrollmentEvent) Message() string {
	switch e.Outcome {
	case "active":
		return fmt.Sprintf("subject %s enrolled as %s", e.SubjectHash, e.EnrollmentID)
	case "manual_review_required":
		return fmt.Sprintf("subject %s enrollment %s flagged for manual review", e.SubjectHash, e.EnrollmentID)
	}
	msg := fmt.Sprintf("subject %s failed to enroll", e.SubjectHash)
	if e.Stage != "" {
		msg = fmt.Sprintf("subject %s failed to enroll during %s", e.SubjectHash, e.Stage)
	}
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e EnrollmentEvent) Severity() Severity {
	if e.Outcome == "active" {
		return SeverityInfo
	}
	return SeverityWarning
}

func (e EnrollmentEvent) Facility() int {
	return FacilityAuthPriv
}

func (e EnrollmentEvent) StructuredData() map[string]map[string]string {
	sd := map[string]map[string]string{
		SDIDSubject: {
			"subject": e.SubjectHash,
		},
		SDIDClient: {
			"ip": e.ClientIP,
		},
		SDIDAction: {
			"operation": "enroll",
			"result":    e.Outcome,
		},
		SDIDScores: {
			"document": formatScore(e.DocumentConfidence),
			"face":     formatScore(e.FaceSimilarity),
		},
		SDIDConsent: {
			"given": strconv.FormatBool(e.ConsentGiven),
		},
	}
	if e.Stage != "" {
		sd[SDIDAction]["stage"] = e.Stage
	}
	if e.EnrollmentID != "" {
		sd[SDIDSubject]["enrollment"] = e.EnrollmentID
	}
	if e.LivenessChecked {
		sd[SDIDScores]["liveness"] = formatScore(e.LivenessConfidence)
	}
	return sd
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', 1, 64)
}
