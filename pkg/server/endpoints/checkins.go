package endpoints

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/veripass/veripass/pkg/checkin"
	"github.com/veripass/veripass/pkg/config"
	"github.com/veripass/veripass/pkg/gateway"
	"github.com/veripass/veripass/pkg/identity"
	"github.com/veripass/veripass/pkg/model"
	"github.com/veripass/veripass/pkg/server"
	"github.com/veripass/veripass/pkg/server/store"
)

// CheckInRequest is the POST /checkins body. Either token or subject_id
// identifies the traveler; the reservation fields come from the reservation
// system lookup performed by the agent's terminal.
type CheckInRequest struct {
	Token     string `json:"token,omitempty"`
	SubjectID string `json:"subject_id,omitempty"`

	ReservationID string        `json:"reservation_id"`
	LivePhoto     gateway.Image `json:"live_photo,omitempty"`

	Flight               string    `json:"flight"`
	Gate                 string    `json:"gate,omitempty"`
	Seat                 string    `json:"seat,omitempty"`
	BoardingGroup        string    `json:"boarding_group,omitempty"`
	BoardingTime         time.Time `json:"boarding_time"`
	WheelchairAssistance bool      `json:"wheelchair_assistance,omitempty"`
	ExtraBoardingTime    bool      `json:"extra_boarding_time,omitempty"`

	Override       bool   `json:"override,omitempty"`
	OverrideReason string `json:"override_reason,omitempty"`
}

// CheckInResponse is the POST /checkins response. FailureReasons mirror the
// persisted log entry so the agent terminal can display them.
type CheckInResponse struct {
	State          string     `json:"state"`
	PassID         string     `json:"pass_id,omitempty"`
	PassToken      string     `json:"pass_token,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	FailureReasons []string   `json:"failure_reasons,omitempty"`
	LogID          string     `json:"log_id,omitempty"`
}

func RegisterCheckInsEndpoints(s *server.Server) {
	router := s.Router.PathPrefix("/checkins").Subrouter()
	router.Use(s.AgentMiddleware.Middleware)

	// POST /checkins - run a check-in attempt
	router.HandleFunc("", handleCheckIn(s.CheckIn, s.Config)).Methods("POST")

	// GET /checkins/{enrollmentID}/logs - list attempts for an enrollment
	router.HandleFunc("/{enrollmentID}/logs", handleListCheckInLogs(s.CheckInLogsStore)).Methods("GET")
}

func handleCheckIn(machine *checkin.Machine, cfg *config.VeripassConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CheckInRequest
		if !decodeJSONBody(w, r, &req) {
			return
		}

		agent, _ := identity.Get(r.Context())
		if req.Override && (agent == nil || !agent.CanOverride()) {
			respondWithError(w, http.StatusForbidden, map[string]string{"message": "manual override requires agent role"})
			return
		}

		attempt := checkin.Request{
			Token:                req.Token,
			SubjectID:            req.SubjectID,
			ReservationID:        req.ReservationID,
			LivePhoto:            req.LivePhoto,
			Flight:               req.Flight,
			Gate:                 req.Gate,
			Seat:                 req.Seat,
			BoardingGroup:        req.BoardingGroup,
			BoardingTime:         req.BoardingTime,
			WheelchairAssistance: req.WheelchairAssistance,
			ExtraBoardingTime:    req.ExtraBoardingTime,
			Override:             req.Override,
			OverrideReason:       req.OverrideReason,
			ClientIP:             clientIP(r, cfg),
		}
		if agent != nil {
			attempt.AgentID = agent.ID
		}

		result, err := machine.CheckIn(r.Context(), attempt)

		resp := CheckInResponse{State: result.State.String()}
		if result.Log != nil {
			resp.FailureReasons = result.Log.FailureReasons
			resp.LogID = result.Log.ID
		}
		if result.Pass != nil {
			resp.PassID = result.Pass.ID
			resp.ExpiresAt = result.Pass.ExpiresAt
		}
		resp.PassToken = result.PassToken

		if err != nil {
			respondWithJSON(w, faultStatus(err), resp)
			return
		}
		respondWithJSON(w, http.StatusCreated, resp)
	}
}

// CheckInLogEntry is one attempt in the GET /checkins/{enrollmentID}/logs
// response.
type CheckInLogEntry struct {
	ID             string               `json:"id"`
	PassID         *string              `json:"pass_id,omitempty"`
	TokenValid     bool                 `json:"token_valid"`
	FaceSimilarity *float64             `json:"face_similarity,omitempty"`
	Outcome        model.CheckInOutcome `json:"outcome"`
	FailureReasons []string             `json:"failure_reasons,omitempty"`
	AgentID        string               `json:"agent_id,omitempty"`
	DurationMs     int64                `json:"duration_ms"`
	CreatedAt      time.Time            `json:"created_at"`
}

func handleListCheckInLogs(logs store.CheckInLogsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		enrollmentID := mux.Vars(r)["enrollmentID"]

		entries, err := logs.ListLogsByEnrollment(enrollmentID)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, map[string]string{"message": "failed to list check-in logs"})
			return
		}

		out := make([]CheckInLogEntry, 0, len(entries))
		for _, entry := range entries {
			out = append(out, CheckInLogEntry{
				ID:             entry.ID,
				PassID:         entry.PassID,
				TokenValid:     entry.TokenValid,
				FaceSimilarity: entry.FaceSimilarity,
				Outcome:        entry.Outcome,
				FailureReasons: entry.FailureReasons,
				AgentID:        entry.AgentID,
				DurationMs:     entry.DurationMs,
				CreatedAt:      entry.CreatedAt,
			})
		}
		respondWithJSON(w, http.StatusOK, out)
	}
}
