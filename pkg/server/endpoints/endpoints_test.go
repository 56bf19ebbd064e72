package endpoints

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veripass/veripass/pkg/config"
	"github.com/veripass/veripass/pkg/credential"
	"github.com/veripass/veripass/pkg/gateway"
	"github.com/veripass/veripass/pkg/gateway/simulator"
	"github.com/veripass/veripass/pkg/identity"
	"github.com/veripass/veripass/pkg/model"
	"github.com/veripass/veripass/pkg/server"
	"github.com/veripass/veripass/pkg/server/middleware"
	"github.com/veripass/veripass/pkg/server/store"
	"github.com/veripass/veripass/pkg/vault"

	"github.com/google/uuid"
)

var agentSecret = []byte("endpoint-test-agent-secret")

// In-memory stores backing the handler tests.

type memEnrollments struct {
	mu   sync.Mutex
	rows map[string]*model.Enrollment
}

var _ store.EnrollmentsStore = (*memEnrollments)(nil)

func (m *memEnrollments) CreateEnrollment(e *model.Enrollment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	for _, row := range m.rows {
		if row.SubjectID == e.SubjectID && row.Status == model.EnrollmentActive {
			return store.ErrActiveEnrollmentExists
		}
	}
	m.rows[e.ID] = e
	return nil
}

func (m *memEnrollments) FetchEnrollment(id string) (*model.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.rows[id]; ok {
		return e, nil
	}
	return nil, store.ErrEnrollmentNotFound
}

func (m *memEnrollments) FetchActiveEnrollmentBySubject(subjectID string) (*model.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.SubjectID == subjectID && row.Status == model.EnrollmentActive {
			return row, nil
		}
	}
	return nil, store.ErrEnrollmentNotFound
}

func (m *memEnrollments) RecordVerification(id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.rows[id]; ok {
		e.UseCount++
		e.LastVerifiedAt = &at
		return nil
	}
	return store.ErrEnrollmentNotFound
}

func (m *memEnrollments) SaveScrubbed(e *model.Enrollment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[e.ID] = e
	return nil
}

func (m *memEnrollments) ExpireEnrollments(time.Time) (int64, error) { return 0, nil }

type memPasses struct {
	mu   sync.Mutex
	rows map[string]*model.BoardingPass
}

var _ store.PassesStore = (*memPasses)(nil)

func (m *memPasses) CreatePass(p *model.BoardingPass) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	for _, row := range m.rows {
		if row.ReservationID == p.ReservationID &&
			(row.Status == model.PassIssued || row.Status == model.PassBoarded) {
			return store.ErrAlreadyProcessed
		}
	}
	m.rows[p.ID] = p
	return nil
}

func (m *memPasses) FetchPass(id string) (*model.BoardingPass, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.rows[id]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, store.ErrPassNotFound
}

func (m *memPasses) FetchPassByReservation(reservationID string) (*model.BoardingPass, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.rows {
		if p.ReservationID == reservationID &&
			(p.Status == model.PassIssued || p.Status == model.PassBoarded) {
			copied := *p
			return &copied, nil
		}
	}
	return nil, store.ErrPassNotFound
}

func (m *memPasses) MarkBoarded(id string, at time.Time) (*model.BoardingPass, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return nil, store.ErrPassNotFound
	}
	switch p.Status {
	case model.PassIssued:
		p.Status = model.PassBoarded
		p.GateScannedAt = &at
		p.BoardedAt = &at
		copied := *p
		return &copied, nil
	case model.PassBoarded:
		return nil, store.ErrAlreadyBoarded
	default:
		return nil, store.ErrPassNotBoardable
	}
}

func (m *memPasses) CancelPass(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return store.ErrPassNotFound
	}
	switch p.Status {
	case model.PassIssued, model.PassCancelled:
		p.Status = model.PassCancelled
		return nil
	case model.PassBoarded:
		return store.ErrAlreadyBoarded
	default:
		return store.ErrPassNotBoardable
	}
}

func (m *memPasses) ExpirePasses(time.Time) (int64, error) { return 0, nil }

type memLogs struct {
	mu   sync.Mutex
	rows []model.CheckInLog
}

var _ store.CheckInLogsStore = (*memLogs)(nil)

func (m *memLogs) AppendLog(entry *model.CheckInLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	m.rows = append(m.rows, *entry)
	return nil
}

func (m *memLogs) ListLogsByEnrollment(enrollmentID string) ([]model.CheckInLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.CheckInLog
	for _, row := range m.rows {
		if row.EnrollmentID == enrollmentID {
			out = append(out, row)
		}
	}
	return out, nil
}

type fakeHealth struct{ err error }

func (f *fakeHealth) CheckConnectivity() error { return f.err }

type apiFixture struct {
	srv         *server.Server
	sim         *simulator.Provider
	enrollments *memEnrollments
	passes      *memPasses
	logs        *memLogs
	health      *fakeHealth

	agentToken      string
	kioskToken      string
	supervisorToken string
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i + 7)
	}
	v, err := vault.New(key)
	require.NoError(t, err)

	cfg, err := config.Load()
	require.NoError(t, err)

	sim := simulator.New(3)
	sim.DocumentConfidence = simulator.Fixed(95)
	sim.Similarity = simulator.Fixed(93)
	sim.LivenessScore = simulator.Fixed(92)

	f := &apiFixture{
		sim:         sim,
		enrollments: &memEnrollments{rows: make(map[string]*model.Enrollment)},
		passes:      &memPasses{rows: make(map[string]*model.BoardingPass)},
		logs:        &memLogs{},
		health:      &fakeHealth{},
	}

	f.srv = server.NewServer(
		v, credential.NewCodec(v), gateway.New(sim, time.Second, 1),
		nil, cfg, nil,
		f.enrollments, f.passes, f.logs, f.health,
		agentSecret, "localhost", "0",
	)
	RegisterAll(f.srv)

	f.agentToken, err = middleware.IssueToken(agentSecret, "agent-7", "Desk 4", identity.RoleAgent, "T2-D4", time.Hour)
	require.NoError(t, err)
	f.kioskToken, err = middleware.IssueToken(agentSecret, "kiosk-1", "Kiosk 1", identity.RoleKiosk, "T1-K1", time.Hour)
	require.NoError(t, err)
	f.supervisorToken, err = middleware.IssueToken(agentSecret, "sup-1", "Supervisor", identity.RoleSupervisor, "T2", time.Hour)
	require.NoError(t, err)
	return f
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "192.0.2.10:43210"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.srv.Router.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) enroll(t *testing.T, subjectID string) EnrollmentResponse {
	t.Helper()

	rec := f.do(t, "POST", "/enrollments", f.kioskToken, EnrollmentRequest{
		SubjectID:          subjectID,
		Document:           gateway.Image("document-photo"),
		Selfie:             gateway.Image("selfie-photo"),
		ConsentGiven:       true,
		ConsentTextVersion: "v2",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp EnrollmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestStatusEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, "GET", "/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "ok", resp.Database)
}

func TestStatusEndpoint_DatabaseDown(t *testing.T) {
	f := newAPIFixture(t)
	f.health.err = assert.AnError

	rec := f.do(t, "GET", "/", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCreateEnrollment(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.enroll(t, "subj-1")

	assert.Equal(t, model.EnrollmentActive, resp.Status)
	assert.NotEmpty(t, resp.EnrollmentID)
	assert.NotEmpty(t, resp.Token)
	assert.NotEmpty(t, resp.DeepLink)
}

func TestCreateEnrollment_Unauthorized(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, "POST", "/enrollments", "", EnrollmentRequest{SubjectID: "subj-1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateEnrollment_MissingConsent(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, "POST", "/enrollments", f.kioskToken, EnrollmentRequest{
		SubjectID: "subj-1",
		Document:  gateway.Image("document-photo"),
		Selfie:    gateway.Image("selfie-photo"),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "input_invalid")
}

func TestCreateEnrollment_FaceMismatchHeldForReview(t *testing.T) {
	f := newAPIFixture(t)
	f.sim.Similarity = simulator.Fixed(60)

	rec := f.do(t, "POST", "/enrollments", f.kioskToken, EnrollmentRequest{
		SubjectID:    "subj-1",
		Document:     gateway.Image("document-photo"),
		Selfie:       gateway.Image("selfie-photo"),
		ConsentGiven: true,
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp EnrollmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, model.EnrollmentManualReview, resp.Status)
	assert.NotEmpty(t, resp.EnrollmentID, "the held record is persisted and addressable")
	assert.Empty(t, resp.Token, "no credential is issued until a reviewer clears it")
}

func TestFetchEnrollment(t *testing.T) {
	f := newAPIFixture(t)
	created := f.enroll(t, "subj-1")

	rec := f.do(t, "GET", "/enrollments/"+created.EnrollmentID, f.agentToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp EnrollmentSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, created.EnrollmentID, resp.EnrollmentID)
	assert.Equal(t, model.EnrollmentActive, resp.Status)
	assert.True(t, resp.ConsentGiven)

	// The biometric template must never appear in the response body.
	assert.NotContains(t, rec.Body.String(), "template")
}

func TestFetchEnrollment_NotFound(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, "GET", "/enrollments/no-such-id", f.agentToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEraseEnrollment(t *testing.T) {
	f := newAPIFixture(t)
	created := f.enroll(t, "subj-1")

	// Agents cannot erase.
	rec := f.do(t, "DELETE", "/enrollments/"+created.EnrollmentID, f.agentToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Supervisors can.
	rec = f.do(t, "DELETE", "/enrollments/"+created.EnrollmentID, f.supervisorToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, "GET", "/enrollments/"+created.EnrollmentID, f.agentToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp EnrollmentSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, model.EnrollmentRevoked, resp.Status)
	assert.Empty(t, resp.DocumentNumber)
}

func checkInBody(token string) CheckInRequest {
	return CheckInRequest{
		Token:         token,
		ReservationID: "res-1",
		LivePhoto:     gateway.Image("live-photo"),
		Flight:        "VP123",
		Gate:          "B12",
		Seat:          "14C",
		BoardingTime:  time.Now().Add(2 * time.Hour).UTC(),
	}
}

func TestCheckIn(t *testing.T) {
	f := newAPIFixture(t)
	created := f.enroll(t, "subj-1")

	rec := f.do(t, "POST", "/checkins", f.agentToken, checkInBody(created.Token))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp CheckInResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.State)
	assert.NotEmpty(t, resp.PassID)
	assert.NotEmpty(t, resp.PassToken)
	assert.NotEmpty(t, resp.LogID)
}

func TestCheckIn_Duplicate(t *testing.T) {
	f := newAPIFixture(t)
	created := f.enroll(t, "subj-1")

	rec := f.do(t, "POST", "/checkins", f.agentToken, checkInBody(created.Token))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, "POST", "/checkins", f.agentToken, checkInBody(created.Token))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already_processed")
}

func TestCheckIn_OverrideRequiresAgentRole(t *testing.T) {
	f := newAPIFixture(t)
	created := f.enroll(t, "subj-1")

	body := checkInBody(created.Token)
	body.Override = true
	body.OverrideReason = "face capture failed"

	rec := f.do(t, "POST", "/checkins", f.kioskToken, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, "POST", "/checkins", f.agentToken, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp CheckInResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "manual_override", resp.State)
}

func TestListCheckInLogs(t *testing.T) {
	f := newAPIFixture(t)
	created := f.enroll(t, "subj-1")

	rec := f.do(t, "POST", "/checkins", f.agentToken, checkInBody(created.Token))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, "GET", "/checkins/"+created.EnrollmentID+"/logs", f.agentToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []CheckInLogEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, model.CheckInSuccess, entries[0].Outcome)
	assert.Equal(t, "agent-7", entries[0].AgentID)
}

func TestBoardingFlow(t *testing.T) {
	f := newAPIFixture(t)
	created := f.enroll(t, "subj-1")

	rec := f.do(t, "POST", "/checkins", f.agentToken, checkInBody(created.Token))
	require.Equal(t, http.StatusCreated, rec.Code)

	var checkedIn CheckInResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &checkedIn))

	// Scan is read-only.
	rec = f.do(t, "POST", "/boarding/scan-gate", f.agentToken, ScanGateRequest{Token: checkedIn.PassToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var scanned ScanGateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &scanned))
	assert.Equal(t, model.PassIssued, scanned.Pass.Status)
	assert.Equal(t, "VP123", scanned.Pass.Flight)

	// Validate consumes the pass.
	rec = f.do(t, "POST", "/boarding/validate", f.agentToken, ValidateRequest{
		Token:     checkedIn.PassToken,
		LivePhoto: gateway.Image("live-photo"),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var boarded PassSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &boarded))
	assert.Equal(t, model.PassBoarded, boarded.Status)

	// A second validate conflicts.
	rec = f.do(t, "POST", "/boarding/validate", f.agentToken, ValidateRequest{Token: checkedIn.PassToken})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCancelPass(t *testing.T) {
	f := newAPIFixture(t)
	created := f.enroll(t, "subj-1")

	rec := f.do(t, "POST", "/checkins", f.agentToken, checkInBody(created.Token))
	require.Equal(t, http.StatusCreated, rec.Code)

	var checkedIn CheckInResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &checkedIn))

	// Kiosks cannot cancel.
	rec = f.do(t, "POST", "/passes/"+checkedIn.PassID+"/cancel", f.kioskToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, "POST", "/passes/"+checkedIn.PassID+"/cancel", f.agentToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, "GET", "/passes/"+checkedIn.PassID, f.agentToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var pass PassSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pass))
	assert.Equal(t, model.PassCancelled, pass.Status)
}

func TestFetchPass_NotFound(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, "GET", "/passes/no-such-id", f.agentToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClientIP(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "192.0.2.10:43210"
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	// Peer is not a trusted proxy: the forwarded header is ignored.
	assert.Equal(t, "192.0.2.10", clientIP(r, cfg))

	cfg.TrustedProxies = []string{"192.0.2.0/24"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "203.0.113.9", clientIP(r, cfg))
}
