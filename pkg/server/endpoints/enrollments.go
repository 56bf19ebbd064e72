package endpoints

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/veripass/veripass/pkg/audit"
	"github.com/veripass/veripass/pkg/config"
	"github.com/veripass/veripass/pkg/enrollment"
	"github.com/veripass/veripass/pkg/gateway"
	"github.com/veripass/veripass/pkg/identity"
	"github.com/veripass/veripass/pkg/model"
	"github.com/veripass/veripass/pkg/server"
	"github.com/veripass/veripass/pkg/server/store"
	"github.com/veripass/veripass/pkg/vault"
)

// EnrollmentRequest is the POST /enrollments body. Images arrive base64
// encoded in the JSON fields.
type EnrollmentRequest struct {
	SubjectID          string          `json:"subject_id"`
	Document           gateway.Image   `json:"document"`
	Selfie             gateway.Image   `json:"selfie"`
	LivenessFrames     []gateway.Image `json:"liveness_frames,omitempty"`
	ConsentGiven       bool            `json:"consent_given"`
	ConsentTextVersion string          `json:"consent_text_version,omitempty"`
}

// EnrollmentResponse is the POST /enrollments response.
type EnrollmentResponse struct {
	EnrollmentID string                 `json:"enrollment_id"`
	Status       model.EnrollmentStatus `json:"status"`
	FullName     string                 `json:"full_name,omitempty"`
	Token        string                 `json:"token,omitempty"`
	DeepLink     string                 `json:"deep_link,omitempty"`
	ExpiresAt    *time.Time             `json:"expires_at,omitempty"`
}

// EnrollmentSummary is the GET /enrollments/{id} response. The biometric
// template never appears here.
type EnrollmentSummary struct {
	EnrollmentID   string                 `json:"enrollment_id"`
	Status         model.EnrollmentStatus `json:"status"`
	FullName       string                 `json:"full_name,omitempty"`
	DocumentNumber string                 `json:"document_number,omitempty"`
	Nationality    string                 `json:"nationality,omitempty"`
	Scores         model.EnrollmentScores `json:"scores"`
	ConsentGiven   bool                   `json:"consent_given"`
	CreatedAt      time.Time              `json:"created_at"`
	ExpiresAt      *time.Time             `json:"expires_at,omitempty"`
	LastVerifiedAt *time.Time             `json:"last_verified_at,omitempty"`
	UseCount       int                    `json:"use_count"`
}

func RegisterEnrollmentsEndpoints(s *server.Server) {
	router := s.Router.PathPrefix("/enrollments").Subrouter()
	router.Use(s.AgentMiddleware.Middleware)

	// POST /enrollments - run the enrollment pipeline
	router.HandleFunc("", handleCreateEnrollment(s.Enroller, s.Config)).Methods("POST")

	// GET /enrollments/{id} - fetch an enrollment summary
	router.HandleFunc("/{id}", handleFetchEnrollment(s.EnrollmentsStore)).Methods("GET")

	// DELETE /enrollments/{id} - right-to-erasure request
	router.HandleFunc("/{id}", handleEraseEnrollment(s.EnrollmentsStore, s.Vault, s.Config)).Methods("DELETE")
}

func handleCreateEnrollment(enroller *enrollment.Orchestrator, cfg *config.VeripassConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req EnrollmentRequest
		if !decodeJSONBody(w, r, &req) {
			return
		}

		result, err := enroller.Enroll(r.Context(), enrollment.Request{
			SubjectID:          req.SubjectID,
			Document:           req.Document,
			Selfie:             req.Selfie,
			LivenessFrames:     req.LivenessFrames,
			ConsentGiven:       req.ConsentGiven,
			ConsentTextVersion: req.ConsentTextVersion,
			ClientIP:           clientIP(r, cfg),
		})
		if err != nil {
			respondWithFault(w, err)
			return
		}

		status := http.StatusCreated
		if result.ManualReview {
			// Persisted, but held for review; no credential was issued.
			status = http.StatusAccepted
		}
		respondWithJSON(w, status, EnrollmentResponse{
			EnrollmentID: result.Enrollment.ID,
			Status:       result.Enrollment.Status,
			FullName:     result.Enrollment.FullName(),
			Token:        result.Token,
			DeepLink:     result.DeepLink,
			ExpiresAt:    result.Enrollment.ExpiresAt,
		})
	}
}

func handleFetchEnrollment(enrollments store.EnrollmentsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		e, err := enrollments.FetchEnrollment(id)
		if err != nil {
			if errors.Is(err, store.ErrEnrollmentNotFound) {
				respondWithError(w, http.StatusNotFound, map[string]string{"message": "enrollment not found"})
				return
			}
			respondWithError(w, http.StatusInternalServerError, map[string]string{"message": "failed to fetch enrollment"})
			return
		}

		respondWithJSON(w, http.StatusOK, EnrollmentSummary{
			EnrollmentID:   e.ID,
			Status:         e.Status,
			FullName:       e.FullName(),
			DocumentNumber: e.DocumentNumber,
			Nationality:    e.Nationality,
			Scores:         e.Scores,
			ConsentGiven:   e.Consent.Given,
			CreatedAt:      e.CreatedAt,
			ExpiresAt:      e.ExpiresAt,
			LastVerifiedAt: e.LastVerifiedAt,
			UseCount:       e.UseCount,
		})
	}
}

func handleEraseEnrollment(enrollments store.EnrollmentsStore, v *vault.Vault, cfg *config.VeripassConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		ip := clientIP(r, cfg)

		agent, _ := identity.Get(r.Context())
		if agent == nil || !agent.CanErase() {
			respondWithError(w, http.StatusForbidden, map[string]string{"message": "erasure requires supervisor role"})
			return
		}

		e, err := enrollments.FetchEnrollment(id)
		if err != nil {
			if errors.Is(err, store.ErrEnrollmentNotFound) {
				respondWithError(w, http.StatusNotFound, map[string]string{"message": "enrollment not found"})
				return
			}
			respondWithError(w, http.StatusInternalServerError, map[string]string{"message": "failed to fetch enrollment"})
			return
		}

		subjectHash := v.Anonymize(e.SubjectID)

		e.Scrub(time.Now().UTC())
		if err := enrollments.SaveScrubbed(e); err != nil {
			audit.Log(audit.ErasureEvent{
				SubjectHash:  subjectHash,
				EnrollmentID: e.ID,
				ClientIP:     ip,
				Success:      false,
				ErrorMessage: "failed to persist scrubbed enrollment",
			})
			respondWithError(w, http.StatusInternalServerError, map[string]string{"message": "failed to erase enrollment"})
			return
		}

		audit.Log(audit.ErasureEvent{
			SubjectHash:  subjectHash,
			EnrollmentID: e.ID,
			ClientIP:     ip,
			Success:      true,
		})
		w.WriteHeader(http.StatusNoContent)
	}
}
