package audit

import "fmt"

// BoardingEvent represents a gate boarding audit event
type BoardingEvent struct {
	SubjectHash   string
	PassID        string
	ReservationID string
	Flight        string
	Gate          string
	ClientIP      string
	Success       bool
	FaceRechecked bool
	ErrorMessage  string
}

func (e BoardingEvent) MessageID() string {
	return "boarding"
}

func (e BoardingEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("subject %s boarded flight %s with pass %s", e.SubjectHash, e.Flight, e.PassID)
	}
	msg := fmt.Sprintf("subject %s was refused boarding for flight %s", e.SubjectHash, e.Flight)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e BoardingEvent) Severity() Severity {
	if e.Success {
		return SeverityInfo
	}
	return SeverityWarning
}

func (e BoardingEvent) Facility() int {
	return FacilityAuthPriv
}

func (e BoardingEvent) StructuredData() map[string]map[string]string {
	result := "failure"
	if e.Success {
		result = "success"
	}
	sd := map[string]map[string]string{
		SDIDSubject: {
			"subject":     e.SubjectHash,
			"pass":        e.PassID,
			"reservation": e.ReservationID,
		},
		SDIDClient: {
			"ip": e.ClientIP,
		},
		SDIDAction: {
			"operation": "boarding",
			"result":    result,
		},
	}
	if e.Flight != "" {
		sd[SDIDSubject]["flight"] = e.Flight
	}
	if e.Gate != "" {
		sd[SDIDSubject]["gate"] = e.Gate
	}
	if e.FaceRechecked {
		sd[SDIDAction]["face_recheck"] = "true"
	}
	return sd
}
