package audit

import (
	"bytes"
	"regexp"
	"strings"
	"testing"
)

func TestLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger()
	logger.SetWriter(&buf)

	logger.Log(CheckInEvent{
		SubjectHash:   "a1b2c3",
		EnrollmentID:  "enr-1",
		ReservationID: "res-1",
		ClientIP:      "10.0.0.1",
		Outcome:       "success",
	})

	line := buf.String()

	// <PRI>VERSION TIMESTAMP HOSTNAME APP-NAME PROCID MSGID ...
	// PRI = authpriv(10)*8 + info(6) = 86
	if !strings.HasPrefix(line, "<86>1 ") {
		t.Errorf("unexpected priority prefix: %q", line)
	}
	if !strings.Contains(line, " veripass ") {
		t.Errorf("missing app name: %q", line)
	}
	if !strings.Contains(line, " checkin ") {
		t.Errorf("missing message id: %q", line)
	}
	if !strings.Contains(line, `subject="a1b2c3"`) {
		t.Errorf("missing structured data: %q", line)
	}
	if !strings.HasSuffix(line, "subject a1b2c3 checked in for reservation res-1\n") {
		t.Errorf("unexpected message: %q", line)
	}

	tsPattern := regexp.MustCompile(`^<86>1 \d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}Z `)
	if !tsPattern.MatchString(line) {
		t.Errorf("timestamp not RFC5424 formatted: %q", line)
	}
}

func TestLoggerFailureSeverity(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger()
	logger.SetWriter(&buf)

	logger.Log(CheckInEvent{
		SubjectHash:    "a1b2c3",
		ReservationID:  "res-1",
		Outcome:        "failed",
		FailureReasons: []string{"signature_invalid", "expired"},
	})

	line := buf.String()

	// PRI = authpriv(10)*8 + warning(4) = 84
	if !strings.HasPrefix(line, "<84>1 ") {
		t.Errorf("failed check-in should log at warning: %q", line)
	}
	if !strings.Contains(line, "signature_invalid, expired") {
		t.Errorf("failure reasons missing from message: %q", line)
	}
}

func TestOverrideEventIsDistinct(t *testing.T) {
	event := OverrideEvent{
		SubjectHash:   "a1b2c3",
		EnrollmentID:  "enr-1",
		ReservationID: "res-1",
		AgentID:       "agent-7",
		Reason:        "camera outage",
	}

	if event.MessageID() != "override" {
		t.Errorf("MessageID() = %q, want override", event.MessageID())
	}
	if event.Severity() != SeverityNotice {
		t.Errorf("Severity() = %v, want notice", event.Severity())
	}

	sd := event.StructuredData()
	if sd[SDIDAuth]["agent"] != "agent-7" {
		t.Errorf("agent id missing from structured data: %v", sd)
	}
	if sd[SDIDAction]["result"] != "manual_override" {
		t.Errorf("override result must never read as automated success: %v", sd)
	}
}

func TestEnrollmentEventScores(t *testing.T) {
	event := EnrollmentEvent{
		SubjectHash:        "a1b2c3",
		EnrollmentID:       "enr-1",
		Outcome:            "active",
		DocumentConfidence: 96.2,
		FaceSimilarity:     92,
		LivenessConfidence: 88.5,
		LivenessChecked:    true,
		ConsentGiven:       true,
	}

	sd := event.StructuredData()
	if sd[SDIDScores]["document"] != "96.2" {
		t.Errorf("document score = %q", sd[SDIDScores]["document"])
	}
	if sd[SDIDScores]["face"] != "92.0" {
		t.Errorf("face score = %q", sd[SDIDScores]["face"])
	}
	if sd[SDIDScores]["liveness"] != "88.5" {
		t.Errorf("liveness score = %q", sd[SDIDScores]["liveness"])
	}
	if sd[SDIDConsent]["given"] != "true" {
		t.Errorf("consent missing: %v", sd)
	}

	// Liveness is omitted when the check never ran.
	event.LivenessChecked = false
	if _, ok := event.StructuredData()[SDIDScores]["liveness"]; ok {
		t.Error("liveness score should be omitted when unchecked")
	}

	// The pipeline stage rides in the action block when set.
	event.Stage = "gating"
	if event.StructuredData()[SDIDAction]["stage"] != "gating" {
		t.Errorf("stage missing from structured data: %v", event.StructuredData())
	}
}

func TestEscapeSDValue(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`plain`, `"plain"`},
		{`with "quotes"`, `"with \"quotes\""`},
		{`back\slash`, `"back\\slash"`},
		{`brack]et`, `"brack\]et"`},
	}

	for _, tt := range tests {
		if got := escapeSDValue(tt.in); got != tt.want {
			t.Errorf("escapeSDValue(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
