// Package checkin drives the credential and identity re-verification state
// machine: pending, verifying_credential, verifying_identity, then exactly
// one of success, failed, or manual_override. Every attempt leaves exactly
// one log entry regardless of where it stopped.
package checkin

import (
	"context"
	"time"

	"github.com/veripass/veripass/pkg/audit"
	"github.com/veripass/veripass/pkg/config"
	"github.com/veripass/veripass/pkg/credential"
	"github.com/veripass/veripass/pkg/faults"
	"github.com/veripass/veripass/pkg/gateway"
	"github.com/veripass/veripass/pkg/metrics"
	"github.com/veripass/veripass/pkg/model"
	"github.com/veripass/veripass/pkg/server/store"
	"github.com/veripass/veripass/pkg/vault"
)

// Log failure reasons beyond the codec's own.
const (
	ReasonEnrollmentNotUsable = "enrollment_not_usable"
	ReasonEnrollmentNotFound  = "enrollment_not_found"
	ReasonWrongCredentialKind = "wrong_credential_kind"
	ReasonMalformedToken      = "malformed_token"
	ReasonAlreadyProcessed    = "already_processed"
	ReasonFaceMismatch        = "face_mismatch"
	ReasonProviderFailure     = "provider_failure"
)

// Request is one check-in attempt: either a scanned enrollment token or a
// manual subject lookup, plus the reservation's boarding details from the
// reservation system.
type Request struct {
	// Token is the scanned ENROLLMENT credential. When empty, SubjectID
	// drives a manual lookup instead.
	Token     string
	SubjectID string

	ReservationID string
	LivePhoto     gateway.Image

	// Boarding details resolved by the reservation system.
	Flight               string
	Gate                 string
	Seat                 string
	BoardingGroup        string
	BoardingTime         time.Time
	WheelchairAssistance bool
	ExtraBoardingTime    bool

	// Override bypasses the face check. Requires an authenticated agent and
	// is always logged as manual_override, never as success.
	Override       bool
	OverrideReason string
	AgentID        string

	ClientIP string
}

// Result is the terminal outcome of one attempt.
type Result struct {
	State      State
	Enrollment *model.Enrollment
	Pass       *model.BoardingPass
	PassToken  string
	Log        *model.CheckInLog
}

// Machine executes check-in attempts.
type Machine struct {
	gateway     *gateway.Gateway
	vault       *vault.Vault
	codec       *credential.Codec
	enrollments store.EnrollmentsStore
	passes      store.PassesStore
	logs        store.CheckInLogsStore
	cfg         *config.VeripassConfig
	metrics     *metrics.Metrics
	now         func() time.Time
}

// New creates a Machine. metrics may be nil.
func New(
	g *gateway.Gateway,
	v *vault.Vault,
	codec *credential.Codec,
	enrollments store.EnrollmentsStore,
	passes store.PassesStore,
	logs store.CheckInLogsStore,
	cfg *config.VeripassConfig,
	m *metrics.Metrics,
) *Machine {
	return &Machine{
		gateway:     g,
		vault:       v,
		codec:       codec,
		enrollments: enrollments,
		passes:      passes,
		logs:        logs,
		cfg:         cfg,
		metrics:     m,
		now:         time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (m *Machine) WithClock(now func() time.Time) *Machine {
	m.now = now
	return m
}

// attempt accumulates everything the terminal log entry needs while the
// machine advances.
type attempt struct {
	req        Request
	started    time.Time
	state      State
	enrollment *model.Enrollment
	pass       *model.BoardingPass
	passToken  string
	tokenValid bool
	similarity *float64
	reasons    []string
}

// CheckIn runs one attempt to its terminal state. The returned Result is
// non-nil even on failure, carrying the persisted log entry; the error
// classifies the failure for the caller.
func (m *Machine) CheckIn(ctx context.Context, req Request) (*Result, error) {
	a := &attempt{req: req, started: m.now(), state: StatePending}

	err := m.run(ctx, a)

	outcome := model.CheckInFailed
	switch a.state {
	case StateSuccess:
		outcome = model.CheckInSuccess
	case StateManualOverride:
		outcome = model.CheckInManualOverride
	}

	entry := m.appendLog(a, outcome)
	m.emitAudit(a, outcome)
	m.metrics.IncrementCheckIn(string(outcome))
	m.metrics.ObserveCheckInLatency(m.now().Sub(a.started))

	result := &Result{
		State:      a.state,
		Enrollment: a.enrollment,
		Pass:       a.pass,
		PassToken:  a.passToken,
		Log:        entry,
	}
	return result, err
}

func (m *Machine) run(ctx context.Context, a *attempt) error {
	if a.req.ReservationID == "" {
		a.state = StateFailed
		a.reasons = append(a.reasons, ReasonMalformedToken)
		return faults.New(faults.InputInvalid, "reservation id is required")
	}

	// verifying_credential
	a.state = StateVerifyingCredential
	if err := m.resolveEnrollment(a); err != nil {
		a.state = StateFailed
		return err
	}

	if !a.enrollment.Usable() {
		a.state = StateFailed
		a.reasons = append(a.reasons, ReasonEnrollmentNotUsable)
		return faults.New(faults.CredentialInvalid, "enrollment is not usable for check-in")
	}

	// Duplicate check-in: the reservation already holds a live pass.
	if _, err := m.passes.FetchPassByReservation(a.req.ReservationID); err == nil {
		a.state = StateFailed
		a.reasons = append(a.reasons, ReasonAlreadyProcessed)
		return faults.Wrap(store.ErrAlreadyProcessed, faults.StateConflict, "reservation already checked in")
	} else if err != store.ErrPassNotFound {
		a.state = StateFailed
		return faults.Wrap(err, faults.Internal, "failed to look up existing pass")
	}

	// verifying_identity
	a.state = StateVerifyingIdentity
	if a.req.Override {
		if a.req.AgentID == "" {
			a.state = StateFailed
			return faults.New(faults.InputInvalid, "manual override requires an agent identity")
		}
		a.state = StateManualOverride
	} else {
		if err := m.verifyIdentity(ctx, a); err != nil {
			a.state = StateFailed
			return err
		}
		a.state = StateSuccess
	}

	return m.issuePass(a)
}

func (m *Machine) resolveEnrollment(a *attempt) error {
	if a.req.Token == "" {
		if a.req.SubjectID == "" {
			a.reasons = append(a.reasons, ReasonMalformedToken)
			return faults.New(faults.InputInvalid, "a credential token or subject id is required")
		}
		enrollment, err := m.enrollments.FetchActiveEnrollmentBySubject(a.req.SubjectID)
		if err != nil {
			a.reasons = append(a.reasons, ReasonEnrollmentNotFound)
			return faults.Wrap(err, faults.NotFound, "no active enrollment for subject")
		}
		a.enrollment = enrollment
		return nil
	}

	verified, err := m.codec.Verify(a.req.Token)
	if err != nil {
		a.reasons = append(a.reasons, ReasonMalformedToken)
		return faults.Wrap(err, faults.CredentialInvalid, "credential token is malformed")
	}
	if verified.Payload.Type != credential.KindEnrollment {
		a.reasons = append(a.reasons, ReasonWrongCredentialKind)
		return faults.New(faults.CredentialInvalid, "credential is not an enrollment token")
	}
	if !verified.Valid {
		// Short-circuit to failed with the codec's full reason list.
		a.reasons = append(a.reasons, verified.Reasons...)
		return faults.New(faults.CredentialInvalid, "credential verification failed")
	}
	a.tokenValid = true

	enrollment, err := m.enrollments.FetchEnrollment(verified.Payload.EnrollmentID)
	if err != nil {
		a.reasons = append(a.reasons, ReasonEnrollmentNotFound)
		return faults.Wrap(err, faults.NotFound, "enrollment not found")
	}
	a.enrollment = enrollment
	return nil
}

func (m *Machine) verifyIdentity(ctx context.Context, a *attempt) error {
	if len(a.req.LivePhoto) == 0 {
		return faults.New(faults.InputInvalid, "a live photo is required")
	}
	if len(a.enrollment.Template) == 0 {
		a.reasons = append(a.reasons, ReasonEnrollmentNotUsable)
		return faults.New(faults.CredentialInvalid, "enrollment holds no biometric template")
	}

	match, err := m.gateway.CompareFacesWithRetry(ctx, a.req.LivePhoto, gateway.Image(a.enrollment.Template))
	if err != nil {
		a.reasons = append(a.reasons, ReasonProviderFailure)
		return err
	}

	a.similarity = &match.SimilarityScore
	if !match.IsMatch(m.cfg.FaceMatchThreshold) {
		a.reasons = append(a.reasons, ReasonFaceMismatch)
		return faults.Newf(faults.ThresholdNotMet,
			"face similarity %.1f at or below threshold %.1f",
			match.SimilarityScore, m.cfg.FaceMatchThreshold)
	}
	return nil
}

func (m *Machine) issuePass(a *attempt) error {
	now := m.now().UTC()
	expires := now.Add(m.cfg.BoardingPassValidity())

	pass := &model.BoardingPass{
		ReservationID:        a.req.ReservationID,
		EnrollmentID:         a.enrollment.ID,
		SubjectID:            a.enrollment.SubjectID,
		Flight:               a.req.Flight,
		Gate:                 a.req.Gate,
		Seat:                 a.req.Seat,
		BoardingGroup:        a.req.BoardingGroup,
		BoardingTime:         a.req.BoardingTime,
		WheelchairAssistance: a.req.WheelchairAssistance,
		ExtraBoardingTime:    a.req.ExtraBoardingTime,
		Status:               model.PassIssued,
		CreatedAt:            now,
		ExpiresAt:            &expires,
	}
	if err := m.passes.CreatePass(pass); err != nil {
		a.state = StateFailed
		if err == store.ErrAlreadyProcessed {
			a.reasons = append(a.reasons, ReasonAlreadyProcessed)
			return faults.Wrap(err, faults.StateConflict, "reservation already checked in")
		}
		return faults.Wrap(err, faults.Internal, "failed to issue boarding pass")
	}
	a.pass = pass

	if err := m.enrollments.RecordVerification(a.enrollment.ID, now); err != nil {
		a.state = StateFailed
		return faults.Wrap(err, faults.Internal, "failed to record verification")
	}

	token, err := m.codec.Issue(credential.Payload{
		Type:          credential.KindBoardingPass,
		SubjectID:     a.enrollment.SubjectID,
		EnrollmentID:  a.enrollment.ID,
		ReservationID: pass.ReservationID,
		PassID:        pass.ID,
		FullName:      a.enrollment.FullName(),
		Flight:        pass.Flight,
		Gate:          pass.Gate,
		Seat:          pass.Seat,
		BoardingGroup: pass.BoardingGroup,
		BoardingTime:  &pass.BoardingTime,
		Status:        string(model.PassIssued),
		ExpiresAt:     &expires,
	})
	if err != nil {
		a.state = StateFailed
		return faults.Wrap(err, faults.Internal, "failed to issue boarding pass credential")
	}
	a.passToken = token
	return nil
}

func (m *Machine) appendLog(a *attempt, outcome model.CheckInOutcome) *model.CheckInLog {
	entry := &model.CheckInLog{
		SubjectHash:    m.subjectHash(a),
		TokenValid:     a.tokenValid,
		FaceSimilarity: a.similarity,
		Outcome:        outcome,
		FailureReasons: a.reasons,
		AgentID:        a.req.AgentID,
		DurationMs:     m.now().Sub(a.started).Milliseconds(),
		CreatedAt:      m.now().UTC(),
	}
	if a.enrollment != nil {
		entry.EnrollmentID = a.enrollment.ID
	}
	if a.pass != nil {
		entry.PassID = &a.pass.ID
	}

	if err := m.logs.AppendLog(entry); err != nil {
		// The attempt outcome stands even if the trail write fails; the
		// audit stream below still records it.
		return entry
	}
	return entry
}

func (m *Machine) emitAudit(a *attempt, outcome model.CheckInOutcome) {
	if a.state == StateManualOverride {
		audit.Log(audit.OverrideEvent{
			SubjectHash:   m.subjectHash(a),
			EnrollmentID:  a.enrollmentID(),
			ReservationID: a.req.ReservationID,
			AgentID:       a.req.AgentID,
			ClientIP:      a.req.ClientIP,
			Reason:        a.req.OverrideReason,
		})
		return
	}

	event := audit.CheckInEvent{
		SubjectHash:    m.subjectHash(a),
		EnrollmentID:   a.enrollmentID(),
		ReservationID:  a.req.ReservationID,
		ClientIP:       a.req.ClientIP,
		Outcome:        string(outcome),
		FailureReasons: a.reasons,
		FaceSimilarity: a.similarity,
	}
	if a.pass != nil {
		event.PassID = a.pass.ID
	}
	audit.Log(event)
}

func (m *Machine) subjectHash(a *attempt) string {
	if a.enrollment != nil {
		return m.vault.Anonymize(a.enrollment.SubjectID)
	}
	if a.req.SubjectID != "" {
		return m.vault.Anonymize(a.req.SubjectID)
	}
	return ""
}

func (a *attempt) enrollmentID() string {
	if a.enrollment != nil {
		return a.enrollment.ID
	}
	return ""
}
