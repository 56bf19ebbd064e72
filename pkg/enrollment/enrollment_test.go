package enrollment

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veripass/veripass/pkg/audit"
	"github.com/veripass/veripass/pkg/config"
	"github.com/veripass/veripass/pkg/credential"
	"github.com/veripass/veripass/pkg/faults"
	"github.com/veripass/veripass/pkg/gateway"
	"github.com/veripass/veripass/pkg/gateway/simulator"
	"github.com/veripass/veripass/pkg/model"
	"github.com/veripass/veripass/pkg/server/store"
	"github.com/veripass/veripass/pkg/vault"
)

// memEnrollments is an in-memory store.EnrollmentsStore for pipeline tests.
type memEnrollments struct {
	rows map[string]*model.Enrollment
}

var _ store.EnrollmentsStore = (*memEnrollments)(nil)

func newMemEnrollments() *memEnrollments {
	return &memEnrollments{rows: make(map[string]*model.Enrollment)}
}

func (m *memEnrollments) CreateEnrollment(e *model.Enrollment) error {
	if e.Status == model.EnrollmentActive {
		for _, row := range m.rows {
			if row.SubjectID == e.SubjectID && row.Status == model.EnrollmentActive {
				return store.ErrActiveEnrollmentExists
			}
		}
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	m.rows[e.ID] = e
	return nil
}

func (m *memEnrollments) FetchEnrollment(id string) (*model.Enrollment, error) {
	if e, ok := m.rows[id]; ok {
		return e, nil
	}
	return nil, store.ErrEnrollmentNotFound
}

func (m *memEnrollments) FetchActiveEnrollmentBySubject(subjectID string) (*model.Enrollment, error) {
	for _, e := range m.rows {
		if e.SubjectID == subjectID && e.Status == model.EnrollmentActive {
			return e, nil
		}
	}
	return nil, store.ErrEnrollmentNotFound
}

func (m *memEnrollments) RecordVerification(id string, at time.Time) error {
	e, ok := m.rows[id]
	if !ok {
		return store.ErrEnrollmentNotFound
	}
	e.UseCount++
	e.LastVerifiedAt = &at
	return nil
}

func (m *memEnrollments) SaveScrubbed(e *model.Enrollment) error {
	m.rows[e.ID] = e
	return nil
}

func (m *memEnrollments) ExpireEnrollments(now time.Time) (int64, error) {
	var n int64
	for _, e := range m.rows {
		if e.Status == model.EnrollmentActive && e.ExpiresAt != nil && e.ExpiresAt.Before(now) {
			e.Status = model.EnrollmentExpired
			n++
		}
	}
	return n, nil
}

func testConfig() *config.VeripassConfig {
	cfg, _ := config.Load()
	return cfg
}

func testDeps(t *testing.T, sim *simulator.Provider) (*Orchestrator, *memEnrollments, *credential.Codec) {
	t.Helper()

	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	v, err := vault.New(key)
	require.NoError(t, err)

	codec := credential.NewCodec(v)
	enrollments := newMemEnrollments()
	g := gateway.New(sim, time.Second, 0)
	return New(g, v, codec, enrollments, testConfig(), nil), enrollments, codec
}

func validRequest() Request {
	return Request{
		SubjectID:          "subj-1",
		Document:           gateway.Image("document-bytes"),
		Selfie:             gateway.Image("selfie-bytes"),
		ConsentGiven:       true,
		ConsentTextVersion: "v2",
	}
}

func TestEnrollActive(t *testing.T) {
	sim := simulator.New(1)
	sim.DocumentConfidence = simulator.Fixed(96)
	sim.Similarity = simulator.Fixed(92)
	o, enrollments, codec := testDeps(t, sim)

	result, err := o.Enroll(context.Background(), validRequest())
	require.NoError(t, err)

	require.NotNil(t, result.Enrollment)
	assert.Equal(t, model.EnrollmentActive, result.Enrollment.Status)
	assert.False(t, result.ManualReview)
	assert.NotEmpty(t, result.Enrollment.FirstName)
	assert.NotEmpty(t, result.Enrollment.DocumentNumber)
	assert.Equal(t, 96.0, result.Enrollment.Scores.DocumentConfidence)
	assert.Equal(t, 92.0, result.Enrollment.Scores.FaceSimilarity)
	assert.False(t, result.Enrollment.Scores.LivenessChecked)
	assert.NotEmpty(t, result.Enrollment.FaceEncodingHash)
	require.NotNil(t, result.Enrollment.Consent.GivenAt)
	assert.Equal(t, "v2", result.Enrollment.Consent.TextVersion)

	// Validity defaults to one year.
	require.NotNil(t, result.Enrollment.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(365*24*time.Hour), *result.Enrollment.ExpiresAt, time.Minute)

	// The issued token verifies and names the enrollment.
	require.NotEmpty(t, result.Token)
	verified, err := codec.Verify(result.Token)
	require.NoError(t, err)
	assert.True(t, verified.Valid)
	assert.Equal(t, credential.KindEnrollment, verified.Payload.Type)
	assert.Equal(t, result.Enrollment.ID, verified.Payload.EnrollmentID)
	assert.Contains(t, result.DeepLink, "veripass://credential/")

	assert.Len(t, enrollments.rows, 1)
}

func TestEnrollFaceMismatchGoesToManualReview(t *testing.T) {
	sim := simulator.New(1)
	sim.Similarity = simulator.Fixed(70)
	o, enrollments, _ := testDeps(t, sim)

	result, err := o.Enroll(context.Background(), validRequest())
	require.NoError(t, err, "a sub-threshold face score is not a rejection")

	assert.True(t, result.ManualReview)
	assert.Equal(t, model.EnrollmentManualReview, result.Enrollment.Status)
	assert.Equal(t, 70.0, result.Enrollment.Scores.FaceSimilarity,
		"the reviewer needs the recorded score")
	assert.Empty(t, result.Token, "manual review enrollments hold no credential")
	assert.Len(t, enrollments.rows, 1, "the record persists for the human reviewer")
}

func TestEnrollFaceThresholdBoundaryIsStrict(t *testing.T) {
	sim := simulator.New(1)
	sim.DocumentConfidence = simulator.Fixed(96)
	sim.Similarity = simulator.Fixed(gateway.FaceMatchThreshold)
	o, _, _ := testDeps(t, sim)

	result, err := o.Enroll(context.Background(), validRequest())
	require.NoError(t, err)
	assert.True(t, result.ManualReview, "similarity exactly at the threshold does not clear it")
}

func TestEnrollDocumentUnreadable(t *testing.T) {
	sim := simulator.New(1)
	sim.DocumentConfidence = simulator.Fixed(42)
	o, enrollments, _ := testDeps(t, sim)

	_, err := o.Enroll(context.Background(), validRequest())
	assert.Equal(t, faults.ThresholdNotMet, faults.KindOf(err))
	assert.Contains(t, faults.Reason(err), "document unreadable")
	assert.Empty(t, enrollments.rows)
}

func TestEnrollConsentRequired(t *testing.T) {
	sim := simulator.New(1)
	sim.Err = assert.AnError // any provider call would fail loudly
	o, enrollments, _ := testDeps(t, sim)

	req := validRequest()
	req.ConsentGiven = false

	_, err := o.Enroll(context.Background(), req)
	assert.Equal(t, faults.InputInvalid, faults.KindOf(err),
		"missing consent must fail before any provider call or persistence")
	assert.Empty(t, enrollments.rows)
}

func TestEnrollLowLivenessGoesToManualReview(t *testing.T) {
	sim := simulator.New(1)
	sim.DocumentConfidence = simulator.Fixed(96)
	sim.Similarity = simulator.Fixed(92)
	sim.LivenessScore = simulator.Fixed(55)
	o, enrollments, _ := testDeps(t, sim)

	req := validRequest()
	req.LivenessFrames = []gateway.Image{[]byte("f1"), []byte("f2"), []byte("f3")}

	result, err := o.Enroll(context.Background(), req)
	require.NoError(t, err, "sub-threshold liveness is not a rejection")

	assert.True(t, result.ManualReview)
	assert.Equal(t, model.EnrollmentManualReview, result.Enrollment.Status)
	assert.True(t, result.Enrollment.Scores.LivenessChecked)
	assert.Empty(t, result.Token, "manual review enrollments hold no credential")
	assert.Len(t, enrollments.rows, 1, "the record persists for the human reviewer")
}

func TestEnrollDuplicateActiveSubject(t *testing.T) {
	sim := simulator.New(1)
	sim.DocumentConfidence = simulator.Fixed(96)
	sim.Similarity = simulator.Fixed(92)
	o, _, _ := testDeps(t, sim)

	_, err := o.Enroll(context.Background(), validRequest())
	require.NoError(t, err)

	_, err = o.Enroll(context.Background(), validRequest())
	assert.Equal(t, faults.StateConflict, faults.KindOf(err))
}

// countingProvider tracks how often CompareFaces is reached.
type countingProvider struct {
	gateway.Provider
	compareCalls int
}

func (c *countingProvider) CompareFaces(ctx context.Context, selfie, idPhoto gateway.Image) (*gateway.FaceMatchResult, error) {
	c.compareCalls++
	return nil, context.DeadlineExceeded
}

func TestEnrollProviderTimeoutIsNotRetried(t *testing.T) {
	sim := simulator.New(1)
	sim.DocumentConfidence = simulator.Fixed(96)
	counting := &countingProvider{Provider: sim}

	key := make([]byte, 32)
	v, err := vault.New(key)
	require.NoError(t, err)
	o := New(gateway.New(counting, time.Second, 2), v,
		credential.NewCodec(v), newMemEnrollments(), testConfig(), nil)

	_, err = o.Enroll(context.Background(), validRequest())
	assert.Equal(t, faults.ProviderTimeout, faults.KindOf(err))
	assert.Equal(t, 1, counting.compareCalls,
		"one-shot captures must never retry the provider")
}

func TestEnrollReportsFailingStage(t *testing.T) {
	var buf bytes.Buffer
	audit.DefaultLogger.SetWriter(&buf)
	defer audit.DefaultLogger.SetWriter(os.Stdout)

	sim := simulator.New(1)
	sim.DocumentConfidence = simulator.Fixed(42)
	o, _, _ := testDeps(t, sim)

	_, err := o.Enroll(context.Background(), validRequest())
	require.Error(t, err)

	assert.Contains(t, buf.String(), `stage="extracting"`,
		"the audit trail names the pipeline step the attempt died in")
	assert.Contains(t, buf.String(), "failed to enroll during extracting")
}

func TestStageStrings(t *testing.T) {
	assert.Equal(t, "collecting", StageCollecting.String())
	assert.Equal(t, "matching", StageMatching.String())
	assert.Equal(t, "issuing", StageIssuing.String())

	stage, err := StageString("consenting")
	require.NoError(t, err)
	assert.Equal(t, StageConsenting, stage)

	_, err = StageString("unknown")
	assert.Error(t, err)
}
