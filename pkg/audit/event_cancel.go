package audit

import "fmt"

// CancelEvent represents a boarding pass cancellation audit event
type CancelEvent struct {
	PassID        string
	ReservationID string
	AgentID       string
	ClientIP      string
	Success       bool
	ErrorMessage  string
}

func (e CancelEvent) MessageID() string {
	return "cancel"
}

func (e CancelEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("agent %s cancelled pass %s for reservation %s", e.AgentID, e.PassID, e.ReservationID)
	}
	msg := fmt.Sprintf("agent %s failed to cancel pass %s", e.AgentID, e.PassID)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e CancelEvent) Severity() Severity {
	if e.Success {
		return SeverityInfo
	}
	return SeverityWarning
}

func (e CancelEvent) Facility() int {
	return FacilityAuthPriv
}

func (e CancelEvent) StructuredData() map[string]map[string]string {
	result := "failure"
	if e.Success {
		result = "success"
	}
	return map[string]map[string]string{
		SDIDAuth: {
			"agent": e.AgentID,
		},
		SDIDSubject: {
			"pass":        e.PassID,
			"reservation": e.ReservationID,
		},
		SDIDClient: {
			"ip": e.ClientIP,
		},
		SDIDAction: {
			"operation": "cancel",
			"result":    result,
		},
	}
}
