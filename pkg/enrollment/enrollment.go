// Package enrollment runs the one-time identity capture pipeline: document
// extraction, face matching, optional liveness, threshold gating, consent,
// and credential issuance. Provider calls are never retried here; an
// enrollment capture is one-shot.
package enrollment

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

// Request carries everything captured at the enrollment kiosk.
type Request struct {
	SubjectID string

	Document gateway.Image
	Selfie   gateway.Image

	// LivenessFrames is optional; when present the liveness check runs and
	// participates in gating.
	LivenessFrames []gateway.Image

	ConsentGiven       bool
	ConsentTextVersion string

	ClientIP string
}

// Result is the outcome of a completed pipeline run. Token and DeepLink are
// only set when the enrollment came out active; a manual-review enrollment
// is persisted but holds no credential yet.
type Result struct {
	Enrollment *model.Enrollment
	Token      string
	DeepLink   string

	ManualReview bool
}

// Orchestrator drives the enrollment pipeline.
type Orchestrator struct {
	gateway     *gateway.Gateway
	vault       *vault.Vault
	codec       *credential.Codec
	enrollments store.EnrollmentsStore
	cfg         *config.VeripassConfig
	metrics     *metrics.Metrics
	now         func() time.Time
}

// New creates an Orchestrator. metrics may be nil.
func New(
	g *gateway.Gateway,
	v *vault.Vault,
	codec *credential.Codec,
	enrollments store.EnrollmentsStore,
	cfg *config.VeripassConfig,
	m *metrics.Metrics,
) *Orchestrator {
	return &Orchestrator{
		gateway:     g,
		vault:       v,
		codec:       codec,
		enrollments: enrollments,
		cfg:         cfg,
		metrics:     m,
		now:         time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// Enroll runs the pipeline for one capture. Hard failures return a fault;
// sub-threshold face or liveness scores produce a persisted manual-review
// enrollment instead of a rejection.
func (o *Orchestrator) Enroll(ctx context.Context, req Request) (*Result, error) {
	result, stage, err := o.enroll(ctx, req)
	o.report(req, result, stage, err)
	return result, err
}

func (o *Orchestrator) enroll(ctx context.Context, req Request) (*Result, Stage, error) {
	stage := StageCollecting
	if req.SubjectID == "" {
		return nil, stage, faults.New(faults.InputInvalid, "subject id is required")
	}
	if len(req.Document) == 0 || len(req.Selfie) == 0 {
		return nil, stage, faults.New(faults.InputInvalid, "document and selfie images are required")
	}
	// Consent gates the whole pipeline: nothing is persisted, and no
	// provider call is made, without it.
	if !req.ConsentGiven {
		return nil, stage, faults.New(faults.InputInvalid, "biometric processing consent is required")
	}

	stage = StageExtracting
	doc, err := o.gateway.ExtractDocumentFields(ctx, req.Document)
	if err != nil {
		return nil, stage, err
	}
	docConfidence := doc.MinConfidence()
	if docConfidence < o.cfg.DocumentConfidenceFloor {
		return nil, stage, faults.Newf(faults.ThresholdNotMet,
			"document unreadable: field confidence %.1f below floor %.1f",
			docConfidence, o.cfg.DocumentConfidenceFloor)
	}

	stage = StageMatching
	match, err := o.gateway.CompareFaces(ctx, req.Selfie, req.Document)
	if err != nil {
		return nil, stage, err
	}

	scores := model.EnrollmentScores{
		DocumentConfidence: docConfidence,
		FaceSimilarity:     match.SimilarityScore,
	}

	if len(req.LivenessFrames) > 0 {
		liveness, err := o.gateway.CheckLiveness(ctx, req.LivenessFrames)
		if err != nil {
			return nil, stage, err
		}
		scores.LivenessChecked = true
		scores.LivenessConfidence = liveness.ConfidenceScore
		if !liveness.LiveDetected {
			scores.LivenessConfidence = 0
		}
	}

	// Every configured check must clear its threshold for the enrollment to
	// come out active; anything short, a mismatched face included, lands in
	// manual review rather than rejection.
	stage = StageGating
	status := model.EnrollmentActive
	if !o.clearsThresholds(scores) {
		status = model.EnrollmentManualReview
	}

	stage = StageConsenting
	now := o.now().UTC()
	consent := model.Consent{
		Given:       true,
		GivenAt:     &now,
		TextVersion: req.ConsentTextVersion,
	}

	stage = StageIssuing
	expires := now.Add(o.cfg.EnrollmentValidity())
	enrollment := &model.Enrollment{
		SubjectID:        req.SubjectID,
		FirstName:        doc.Fields["first_name"],
		LastName:         doc.Fields["last_name"],
		DateOfBirth:      doc.Fields["date_of_birth"],
		DocumentNumber:   doc.Fields["document_number"],
		Nationality:      doc.Fields["nationality"],
		DocumentType:     doc.Fields["document_type"],
		Template:         req.Selfie,
		FaceEncodingHash: vault.HashTemplate(req.Selfie),
		Scores:           scores,
		Consent:          consent,
		Status:           status,
		CreatedAt:        now,
		ExpiresAt:        &expires,
	}

	if err := o.enrollments.CreateEnrollment(enrollment); err != nil {
		if err == store.ErrActiveEnrollmentExists {
			return nil, stage, faults.Wrap(err, faults.StateConflict, "subject already has an active enrollment")
		}
		return nil, stage, faults.Wrap(err, faults.Internal, "failed to persist enrollment")
	}

	result := &Result{
		Enrollment:   enrollment,
		ManualReview: status == model.EnrollmentManualReview,
	}
	if status != model.EnrollmentActive {
		return result, stage, nil
	}

	token, err := o.codec.Issue(credential.Payload{
		Type:           credential.KindEnrollment,
		SubjectID:      req.SubjectID,
		EnrollmentID:   enrollment.ID,
		FullName:       enrollment.FullName(),
		DocumentNumber: enrollment.DocumentNumber,
		Nationality:    enrollment.Nationality,
		ExpiresAt:      &expires,
	})
	if err != nil {
		return nil, stage, faults.Wrap(err, faults.Internal, "failed to issue enrollment credential")
	}
	link, err := credential.DeepLink(token)
	if err != nil {
		return nil, stage, faults.Wrap(err, faults.Internal, "failed to render credential link")
	}

	result.Token = token
	result.DeepLink = link
	return result, stage, nil
}

func (o *Orchestrator) clearsThresholds(scores model.EnrollmentScores) bool {
	if scores.DocumentConfidence < o.cfg.DocumentConfidenceFloor {
		return false
	}
	if scores.FaceSimilarity <= o.cfg.FaceMatchThreshold {
		return false
	}
	if scores.LivenessChecked && scores.LivenessConfidence < o.cfg.LivenessFloor {
		return false
	}
	return true
}

func (o *Orchestrator) report(req Request, result *Result, stage Stage, err error) {
	event := audit.EnrollmentEvent{
		SubjectHash:  o.vault.Anonymize(req.SubjectID),
		ClientIP:     req.ClientIP,
		ConsentGiven: req.ConsentGiven,
		Stage:        stage.String(),
	}

	switch {
	case err != nil:
		event.Outcome = "rejected"
		event.ErrorMessage = faults.Reason(err)
	case result.ManualReview:
		event.Outcome = "manual_review_required"
	default:
		event.Outcome = "active"
	}

	if result != nil && result.Enrollment != nil {
		event.EnrollmentID = result.Enrollment.ID
		event.DocumentConfidence = result.Enrollment.Scores.DocumentConfidence
		event.FaceSimilarity = result.Enrollment.Scores.FaceSimilarity
		event.LivenessChecked = result.Enrollment.Scores.LivenessChecked
		event.LivenessConfidence = result.Enrollment.Scores.LivenessConfidence
	}

	audit.Log(event)
	o.metrics.IncrementEnrollment(event.Outcome)
}
