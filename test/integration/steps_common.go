package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cucumber/godog"

	"github.com/veripass/veripass/pkg/identity"
	"github.com/veripass/veripass/pkg/server/middleware"
)

// StepsContext holds state shared between step definitions
type StepsContext struct {
	tc           *TestContext
	response     *http.Response
	responseBody []byte

	agentTokens map[string]string // role -> bearer token
	currentRole string

	subjectIDs       map[string]string // logical name -> unique subject id
	enrollmentTokens map[string]string // subject -> enrollment token
	enrollmentIDs    map[string]string // subject -> enrollment id
	passToken        string
	passID           string
}

// subjectID maps a scenario's logical passenger name to a subject id unique
// across scenarios, since all scenarios share one database.
func (s *StepsContext) subjectID(name string) string {
	if id, ok := s.subjectIDs[name]; ok {
		return id
	}
	id := fmt.Sprintf("%s-%d", name, time.Now().UnixNano())
	s.subjectIDs[name] = id
	return id
}

// NewStepsContext creates a new steps context
func NewStepsContext(tc *TestContext) *StepsContext {
	return &StepsContext{
		tc:               tc,
		agentTokens:      make(map[string]string),
		subjectIDs:       make(map[string]string),
		enrollmentTokens: make(map[string]string),
		enrollmentIDs:    make(map[string]string),
	}
}

// RegisterSteps registers all step definitions
func (s *StepsContext) RegisterSteps(sc *godog.ScenarioContext) {
	// Background steps
	sc.Step(`^a Veripass server is running$`, s.aVeripassServerIsRunning)
	sc.Step(`^I am signed in as an? (kiosk|agent|supervisor)$`, s.iAmSignedInAs)

	// Enrollment steps
	sc.Step(`^passenger "([^"]*)" enrolls with a valid document and selfie$`, s.passengerEnrolls)
	sc.Step(`^passenger "([^"]*)" enrolls without consent$`, s.passengerEnrollsWithoutConsent)
	sc.Step(`^the enrollment should be active$`, s.theEnrollmentShouldBeActive)
	sc.Step(`^I fetch the enrollment for "([^"]*)"$`, s.iFetchTheEnrollment)
	sc.Step(`^I request erasure for "([^"]*)"$`, s.iRequestErasure)
	sc.Step(`^the enrollment for "([^"]*)" should be revoked$`, s.theEnrollmentShouldBeRevoked)

	// Check-in steps
	sc.Step(`^passenger "([^"]*)" checks in for reservation "([^"]*)" on flight "([^"]*)"$`, s.passengerChecksIn)
	sc.Step(`^I should receive a boarding pass$`, s.iShouldReceiveABoardingPass)

	// Boarding steps
	sc.Step(`^the pass is scanned at the gate$`, s.thePassIsScannedAtTheGate)
	sc.Step(`^the passenger boards with a matching live photo$`, s.thePassengerBoards)
	sc.Step(`^the pass should be consumed$`, s.thePassShouldBeConsumed)

	// Response steps
	sc.Step(`^the response status should be (\d+)$`, s.theResponseStatusShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, s.theResponseShouldContain)
	sc.Step(`^the response should not contain "([^"]*)"$`, s.theResponseShouldNotContain)
}

// Background steps

func (s *StepsContext) aVeripassServerIsRunning() error {
	// Server is already running via TestContext
	return nil
}

func (s *StepsContext) iAmSignedInAs(role string) error {
	if token, ok := s.agentTokens[role]; ok && token != "" {
		s.currentRole = role
		return nil
	}

	station := "kiosk-1"
	if role != identity.RoleKiosk {
		station = "gate-12"
	}
	token, err := middleware.IssueToken(
		[]byte(testAgentSecret), role+"-it", "Integration "+role, role, station, time.Hour)
	if err != nil {
		return fmt.Errorf("failed to issue %s token: %w", role, err)
	}
	s.agentTokens[role] = token
	s.currentRole = role
	return nil
}

// request sends an authenticated JSON request and captures the response
func (s *StepsContext) request(method, path string, body interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, s.tc.ServerURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := s.agentTokens[s.currentRole]; token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	s.response, err = s.tc.HTTPClient.Do(req)
	if err != nil {
		return err
	}

	s.responseBody, err = io.ReadAll(s.response.Body)
	_ = s.response.Body.Close()
	return err
}

// Enrollment steps

type enrollmentBody struct {
	SubjectID          string   `json:"subject_id"`
	Document           []byte   `json:"document"`
	Selfie             []byte   `json:"selfie"`
	LivenessFrames     [][]byte `json:"liveness_frames,omitempty"`
	ConsentGiven       bool     `json:"consent_given"`
	ConsentTextVersion string   `json:"consent_text_version,omitempty"`
}

func (s *StepsContext) passengerEnrolls(subject string) error {
	if err := s.request("POST", "/enrollments", enrollmentBody{
		SubjectID:          s.subjectID(subject),
		Document:           []byte("document-photo-" + subject),
		Selfie:             []byte("selfie-photo-" + subject),
		ConsentGiven:       true,
		ConsentTextVersion: "v2",
	}); err != nil {
		return err
	}

	if s.response.StatusCode == http.StatusCreated {
		var resp struct {
			EnrollmentID string `json:"enrollment_id"`
			Token        string `json:"token"`
		}
		if err := json.Unmarshal(s.responseBody, &resp); err != nil {
			return fmt.Errorf("failed to parse enrollment response: %w", err)
		}
		s.enrollmentIDs[subject] = resp.EnrollmentID
		s.enrollmentTokens[subject] = resp.Token
	}
	return nil
}

func (s *StepsContext) passengerEnrollsWithoutConsent(subject string) error {
	return s.request("POST", "/enrollments", enrollmentBody{
		SubjectID: s.subjectID(subject),
		Document:  []byte("document-photo-" + subject),
		Selfie:    []byte("selfie-photo-" + subject),
	})
}

func (s *StepsContext) theEnrollmentShouldBeActive() error {
	var resp struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(s.responseBody, &resp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Status != "active" {
		return fmt.Errorf("expected active enrollment, got %q: %s", resp.Status, string(s.responseBody))
	}
	return nil
}

func (s *StepsContext) iFetchTheEnrollment(subject string) error {
	id, ok := s.enrollmentIDs[subject]
	if !ok {
		return fmt.Errorf("no enrollment recorded for %s", subject)
	}
	return s.request("GET", "/enrollments/"+id, nil)
}

func (s *StepsContext) iRequestErasure(subject string) error {
	id, ok := s.enrollmentIDs[subject]
	if !ok {
		return fmt.Errorf("no enrollment recorded for %s", subject)
	}
	return s.request("DELETE", "/enrollments/"+id, nil)
}

func (s *StepsContext) theEnrollmentShouldBeRevoked(subject string) error {
	if err := s.iFetchTheEnrollment(subject); err != nil {
		return err
	}
	var resp struct {
		Status         string `json:"status"`
		DocumentNumber string `json:"document_number"`
	}
	if err := json.Unmarshal(s.responseBody, &resp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Status != "revoked" {
		return fmt.Errorf("expected revoked enrollment, got %q", resp.Status)
	}
	if resp.DocumentNumber != "" {
		return fmt.Errorf("document number survived erasure: %q", resp.DocumentNumber)
	}
	return nil
}

// Check-in steps

type checkInBody struct {
	Token         string    `json:"token"`
	ReservationID string    `json:"reservation_id"`
	LivePhoto     []byte    `json:"live_photo,omitempty"`
	Flight        string    `json:"flight"`
	Gate          string    `json:"gate,omitempty"`
	Seat          string    `json:"seat,omitempty"`
	BoardingTime  time.Time `json:"boarding_time"`
}

func (s *StepsContext) passengerChecksIn(subject, reservation, flight string) error {
	token, ok := s.enrollmentTokens[subject]
	if !ok {
		return fmt.Errorf("no enrollment token recorded for %s", subject)
	}

	if err := s.request("POST", "/checkins", checkInBody{
		Token:         token,
		ReservationID: reservation,
		LivePhoto:     []byte("live-photo-" + subject),
		Flight:        flight,
		Gate:          "B12",
		Seat:          "14C",
		BoardingTime:  time.Now().Add(2 * time.Hour).UTC(),
	}); err != nil {
		return err
	}

	if s.response.StatusCode == http.StatusCreated {
		var resp struct {
			PassID    string `json:"pass_id"`
			PassToken string `json:"pass_token"`
		}
		if err := json.Unmarshal(s.responseBody, &resp); err != nil {
			return fmt.Errorf("failed to parse check-in response: %w", err)
		}
		s.passID = resp.PassID
		s.passToken = resp.PassToken
	}
	return nil
}

func (s *StepsContext) iShouldReceiveABoardingPass() error {
	if s.passToken == "" || s.passID == "" {
		return fmt.Errorf("no boarding pass issued: %s", string(s.responseBody))
	}
	return nil
}

// Boarding steps

func (s *StepsContext) thePassIsScannedAtTheGate() error {
	if s.passToken == "" {
		return fmt.Errorf("no pass token recorded")
	}
	return s.request("POST", "/boarding/scan-gate", map[string]string{
		"token": s.passToken,
	})
}

func (s *StepsContext) thePassengerBoards() error {
	if s.passToken == "" {
		return fmt.Errorf("no pass token recorded")
	}
	return s.request("POST", "/boarding/validate", map[string]interface{}{
		"token":      s.passToken,
		"live_photo": []byte("gate-photo"),
	})
}

func (s *StepsContext) thePassShouldBeConsumed() error {
	if err := s.request("GET", "/passes/"+s.passID, nil); err != nil {
		return err
	}
	var resp struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(s.responseBody, &resp); err != nil {
		return fmt.Errorf("failed to parse pass: %w", err)
	}
	if resp.Status != "boarded" {
		return fmt.Errorf("expected boarded pass, got %q", resp.Status)
	}
	return nil
}

// Response steps

func (s *StepsContext) theResponseStatusShouldBe(expectedStatus int) error {
	if s.response.StatusCode != expectedStatus {
		return fmt.Errorf("expected status %d, got %d: %s", expectedStatus, s.response.StatusCode, string(s.responseBody))
	}
	return nil
}

func (s *StepsContext) theResponseShouldContain(substr string) error {
	if !bytes.Contains(s.responseBody, []byte(substr)) {
		return fmt.Errorf("response does not contain %q: %s", substr, string(s.responseBody))
	}
	return nil
}

func (s *StepsContext) theResponseShouldNotContain(substr string) error {
	if bytes.Contains(s.responseBody, []byte(substr)) {
		return fmt.Errorf("response contains %q: %s", substr, string(s.responseBody))
	}
	return nil
}
