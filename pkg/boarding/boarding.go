// Package boarding performs the final credential re-check at the gate. The
// scan path is a read-only verification; the validate path consumes the
// pass with a one-way issued to boarded transition that elects exactly one
// winner under concurrent scans.
package boarding

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

// ScanResult is the read-only verdict on a gate scan.
type ScanResult struct {
	Pass         *model.BoardingPass
	Payload      *credential.Payload
	Verification *credential.Verification
}

// Validator re-checks boarding credentials at the gate.
type Validator struct {
	gateway     *gateway.Gateway
	vault       *vault.Vault
	codec       *credential.Codec
	enrollments store.EnrollmentsStore
	passes      store.PassesStore
	cfg         *config.VeripassConfig
	metrics     *metrics.Metrics
	now         func() time.Time
}

// New creates a Validator. metrics may be nil.
func New(
	g *gateway.Gateway,
	v *vault.Vault,
	codec *credential.Codec,
	enrollments store.EnrollmentsStore,
	passes store.PassesStore,
	cfg *config.VeripassConfig,
	m *metrics.Metrics,
) *Validator {
	return &Validator{
		gateway:     g,
		vault:       v,
		codec:       codec,
		enrollments: enrollments,
		passes:      passes,
		cfg:         cfg,
		metrics:     m,
		now:         time.Now,
	}
}

// ScanGate is the fast path: verify the token and cross-check the live
// record, mutating nothing. Scanning the same pass twice yields the same
// answer. The cross-check is what retires cancelled passes whose tokens
// still carry a perfectly valid signature.
func (v *Validator) ScanGate(ctx context.Context, token string) (*ScanResult, error) {
	verified, err := v.codec.Verify(token, string(model.PassIssued))
	if err != nil {
		return nil, faults.Wrap(err, faults.CredentialInvalid, "boarding token is malformed")
	}
	if verified.Payload.Type != credential.KindBoardingPass {
		return nil, faults.New(faults.CredentialInvalid, "credential is not a boarding pass")
	}
	if !verified.Valid {
		return nil, faults.Newf(faults.CredentialInvalid,
			"boarding token verification failed: %v", verified.Reasons)
	}

	pass, err := v.passes.FetchPass(verified.Payload.PassID)
	if err != nil {
		return nil, faults.Wrap(err, faults.NotFound, "boarding pass not found")
	}

	// The token is immutable; the record is the source of truth.
	if !pass.Boardable() {
		if pass.Status == model.PassBoarded {
			return nil, faults.Wrap(store.ErrAlreadyBoarded, faults.StateConflict, "pass already boarded")
		}
		return nil, faults.Newf(faults.CredentialInvalid, "pass status is %s", pass.Status)
	}

	return &ScanResult{Pass: pass, Payload: verified.Payload, Verification: verified}, nil
}

// ValidateRequest is the full boarding path input. LivePhoto triggers a
// face recheck against the enrollment template before the pass is consumed.
type ValidateRequest struct {
	Token     string
	LivePhoto gateway.Image
	ClientIP  string
}

// Validate runs the fast path, optionally rechecks the face, and then
// consumes the pass. Exactly one concurrent Validate per pass succeeds.
func (v *Validator) Validate(ctx context.Context, req ValidateRequest) (*model.BoardingPass, error) {
	pass, err := v.validate(ctx, req)
	v.reportBoarding(req, pass, err)
	return pass, err
}

func (v *Validator) validate(ctx context.Context, req ValidateRequest) (*model.BoardingPass, error) {
	scan, err := v.ScanGate(ctx, req.Token)
	if err != nil {
		return nil, err
	}

	if len(req.LivePhoto) > 0 {
		if err := v.recheckFace(ctx, scan, req.LivePhoto); err != nil {
			return nil, err
		}
	}

	boarded, err := v.passes.MarkBoarded(scan.Pass.ID, v.now().UTC())
	switch err {
	case nil:
		return boarded, nil
	case store.ErrAlreadyBoarded:
		return nil, faults.Wrap(err, faults.StateConflict, "pass already boarded")
	case store.ErrPassNotBoardable:
		return nil, faults.New(faults.CredentialInvalid, "pass is no longer boardable")
	default:
		return nil, faults.Wrap(err, faults.Internal, "failed to board pass")
	}
}

func (v *Validator) recheckFace(ctx context.Context, scan *ScanResult, photo gateway.Image) error {
	enrollment, err := v.enrollments.FetchEnrollment(scan.Pass.EnrollmentID)
	if err != nil {
		return faults.Wrap(err, faults.NotFound, "enrollment not found for face recheck")
	}
	if len(enrollment.Template) == 0 {
		return faults.New(faults.CredentialInvalid, "enrollment holds no biometric template")
	}

	match, err := v.gateway.CompareFacesWithRetry(ctx, photo, gateway.Image(enrollment.Template))
	if err != nil {
		return err
	}
	if !match.IsMatch(v.cfg.FaceMatchThreshold) {
		return faults.Newf(faults.ThresholdNotMet,
			"face similarity %.1f at or below threshold %.1f",
			match.SimilarityScore, v.cfg.FaceMatchThreshold)
	}
	return nil
}

// Cancel retires an issued pass. A consumed pass stays consumed.
func (v *Validator) Cancel(passID, agentID, clientIP string) error {
	pass, err := v.passes.FetchPass(passID)
	if err != nil {
		return faults.Wrap(err, faults.NotFound, "boarding pass not found")
	}

	err = v.passes.CancelPass(passID)
	switch err {
	case nil:
	case store.ErrAlreadyBoarded:
		err = faults.Wrap(err, faults.StateConflict, "pass already boarded; cancellation refused")
	default:
		err = faults.Wrap(err, faults.Internal, "failed to cancel pass")
	}

	audit.Log(audit.CancelEvent{
		PassID:        passID,
		ReservationID: pass.ReservationID,
		AgentID:       agentID,
		ClientIP:      clientIP,
		Success:       err == nil,
		ErrorMessage:  faults.Reason(err),
	})
	return err
}

func (v *Validator) reportBoarding(req ValidateRequest, pass *model.BoardingPass, err error) {
	event := audit.BoardingEvent{
		ClientIP:      req.ClientIP,
		Success:       err == nil,
		FaceRechecked: len(req.LivePhoto) > 0,
	}
	if pass != nil {
		event.SubjectHash = v.vault.Anonymize(pass.SubjectID)
		event.PassID = pass.ID
		event.ReservationID = pass.ReservationID
		event.Flight = pass.Flight
		event.Gate = pass.Gate
	}
	if err != nil {
		event.ErrorMessage = faults.Reason(err)
		v.metrics.IncrementBoarding(string(faults.KindOf(err)))
	} else {
		v.metrics.IncrementBoarding("boarded")
	}
	audit.Log(event)
}
